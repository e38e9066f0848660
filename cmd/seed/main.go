// Seed mints a batch of activation codes for distribution.
//
// Usage: seed -config config.yaml -n 10 -points 500 -days 30
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"kiro-flight-backend/internal/config"
	pg "kiro-flight-backend/internal/infra/db/postgres"
	"kiro-flight-backend/internal/infra/logging"
	"kiro-flight-backend/internal/usecase"

	"github.com/joho/godotenv"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	count := flag.Int("n", 10, "number of codes to mint")
	points := flag.Int("points", 500, "point value per code")
	days := flag.Int("days", 30, "validity window in days")
	flag.Parse()

	_ = godotenv.Load(".env")

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := pg.Migrate(cfg.Database.URL); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	logger := logging.New(cfg.Log, true)
	userRepo := pg.NewPostgresUserRepo(pool)
	accountRepo := pg.NewAccountRepo(pool)
	codeRepo := pg.NewActivationCodeRepo(pool)
	tm := pg.NewTxManager(pool)
	activationUC := usecase.NewActivationUseCase(userRepo, codeRepo, accountRepo, tm, logger)

	fmt.Printf("minting %d codes worth %d points, valid %d days:\n", *count, *points, *days)
	for i := 0; i < *count; i++ {
		ac, err := activationUC.CreateCode(ctx, "", *points, *days)
		if err != nil {
			log.Fatalf("create code: %v", err)
		}
		fmt.Printf("  %s\n", ac.Code)
	}
}
