package usecase

import (
	"context"
	"time"

	"kiro-flight-backend/internal/domain"
	"kiro-flight-backend/internal/domain/model"
	"kiro-flight-backend/internal/domain/ports/repository"
	"kiro-flight-backend/internal/infra/logging"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ AccountUseCase = (*accountUC)(nil)

// AccountUseCase covers the pool operations that do not move points:
// credential fetch, hide, listing, and administrative seeding.
type AccountUseCase interface {
	GetToken(ctx context.Context, deviceID, accountID string, source model.AccountSource) (*model.Account, error)
	Hide(ctx context.Context, deviceID, accountID string) error
	Seed(ctx context.Context, source model.AccountSource, creds []model.Credentials) (int, error)
	CountVisible(ctx context.Context) (int, error)
	List(ctx context.Context, offset, limit int) ([]*model.Account, error)
}

type accountUC struct {
	users    repository.UserRepository
	accounts repository.AccountRepository
	log      *zerolog.Logger
}

func NewAccountUseCase(users repository.UserRepository, accounts repository.AccountRepository, logger *zerolog.Logger) *accountUC {
	return &accountUC{
		users:    users,
		accounts: accounts,
		log:      logger,
	}
}

// GetToken returns the credential bundle only to the account's owner.
// Hidden accounts stay fetchable by id: hide is soft-removal, not revocation.
func (u *accountUC) GetToken(ctx context.Context, deviceID, accountID string, source model.AccountSource) (*model.Account, error) {
	defer logging.TraceDuration(u.log, "AccountUC.GetToken")()

	if deviceID == "" || accountID == "" {
		return nil, domain.ErrInvalidInput
	}
	user, err := u.users.FindByDeviceID(ctx, repository.NoTX, deviceID)
	if err != nil {
		return nil, err
	}
	return u.accounts.FindOwned(ctx, repository.NoTX, user.ID, accountID, source)
}

// Hide soft-removes the account from the caller's visible list. Hiding an
// account the caller does not own is a no-op, matching idempotent delete
// semantics.
func (u *accountUC) Hide(ctx context.Context, deviceID, accountID string) error {
	defer logging.TraceDuration(u.log, "AccountUC.Hide")()

	if deviceID == "" || accountID == "" {
		return domain.ErrInvalidInput
	}
	user, err := u.users.FindByDeviceID(ctx, repository.NoTX, deviceID)
	if err != nil {
		return err
	}
	if err := u.accounts.Hide(ctx, repository.NoTX, user.ID, accountID); err != nil {
		return err
	}
	u.log.Info().Str("device_id", deviceID).Str("account_id", accountID).Msg("account hidden")
	return nil
}

// Seed inserts unowned accounts into the pool for later claiming by the
// exchange flow.
func (u *accountUC) Seed(ctx context.Context, source model.AccountSource, creds []model.Credentials) (int, error) {
	defer logging.TraceDuration(u.log, "AccountUC.Seed")()

	if len(creds) == 0 {
		return 0, domain.ErrInvalidInput
	}
	inserted := 0
	for _, c := range creds {
		a := &model.Account{
			ID:          ulid.Make().String(),
			Source:      source,
			Credentials: c,
			CreatedAt:   time.Now(),
		}
		if err := u.accounts.Insert(ctx, repository.NoTX, a); err != nil {
			return inserted, err
		}
		inserted++
	}
	u.log.Info().Str("source", string(source)).Int("count", inserted).Msg("pool accounts seeded")
	return inserted, nil
}

func (u *accountUC) CountVisible(ctx context.Context) (int, error) {
	return u.accounts.CountVisible(ctx, repository.NoTX)
}

func (u *accountUC) List(ctx context.Context, offset, limit int) ([]*model.Account, error) {
	return u.accounts.List(ctx, repository.NoTX, offset, limit)
}
