package usecase

import (
	"context"

	"kiro-flight-backend/internal/domain/ports/repository"

	"github.com/rs/zerolog"
)

// Compile-time check
var _ StatsUseCase = (*statsUC)(nil)

// StatsUseCase is a read-only projection for the admin surface.
type StatsUseCase interface {
	Totals(ctx context.Context) (users, visibleAccounts, unusedCodes int, err error)
}

type statsUC struct {
	users    repository.UserRepository
	accounts repository.AccountRepository
	codes    repository.ActivationCodeRepository

	log *zerolog.Logger
}

func NewStatsUseCase(users repository.UserRepository, accounts repository.AccountRepository, codes repository.ActivationCodeRepository, logger *zerolog.Logger) *statsUC {
	return &statsUC{users: users, accounts: accounts, codes: codes, log: logger}
}

func (s *statsUC) Totals(ctx context.Context) (int, int, int, error) {
	users, err := s.users.CountUsers(ctx, repository.NoTX)
	if err != nil {
		return 0, 0, 0, err
	}
	accounts, err := s.accounts.CountVisible(ctx, repository.NoTX)
	if err != nil {
		return 0, 0, 0, err
	}
	codes, err := s.codes.CountUnused(ctx, repository.NoTX)
	if err != nil {
		return 0, 0, 0, err
	}
	return users, accounts, codes, nil
}
