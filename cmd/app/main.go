// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kiro-flight-backend/internal/config"
	pg "kiro-flight-backend/internal/infra/db/postgres"
	"kiro-flight-backend/internal/infra/logging"
	"kiro-flight-backend/internal/infra/metrics"
	red "kiro-flight-backend/internal/infra/redis"
	"kiro-flight-backend/internal/infra/web"
	"kiro-flight-backend/internal/usecase"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, insecure cookies)")
	flag.Parse()

	// .env first so DATABASE_URL/ADMIN_TOKEN style overrides reach LoadConfig.
	_ = godotenv.Load(".env")

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	// ---- Postgres ----
	if err := pg.Migrate(cfg.Database.URL); err != nil {
		log.Fatalf("migrate: %v", err)
	}
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	// ---- Redis (optional; rate limiting only) ----
	var limiter red.Limiter = red.NoopLimiter{}
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisClient.Close()
		limiter = red.NewRateLimiter(redisClient)
	} else {
		logger.Warn().Msg("redis.url not set, rate limiting disabled")
	}

	// ---- Metrics ----
	metrics.MustRegister()
	go samplePoolStats(ctx, pool)

	// ---- Repositories ----
	userRepo := pg.NewPostgresUserRepo(pool)
	accountRepo := pg.NewAccountRepo(pool)
	codeRepo := pg.NewActivationCodeRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Use cases ----
	identityUC := usecase.NewIdentityUseCase(userRepo, accountRepo, tm, logger)
	activationUC := usecase.NewActivationUseCase(userRepo, codeRepo, accountRepo, tm, logger)
	exchangeUC := usecase.NewExchangeUseCase(userRepo, accountRepo, tm, cfg.Exchange.Price, logger)
	accountUC := usecase.NewAccountUseCase(userRepo, accountRepo, logger)
	statsUC := usecase.NewStatsUseCase(userRepo, accountRepo, codeRepo, logger)

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Admin.SessionSecret, !cfg.Runtime.Dev, cfg.Admin.SessionTTL)
	srv := web.NewServer(identityUC, activationUC, exchangeUC, accountUC, statsUC, auth, limiter, cfg, logger)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("http server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
}

// samplePoolStats exports pgx pool gauges every 15 seconds.
func samplePoolStats(ctx context.Context, pool *pgxpool.Pool) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st := pool.Stat()
			metrics.SetDBPoolStats(st.TotalConns(), st.IdleConns(), st.AcquiredConns())
		}
	}
}
