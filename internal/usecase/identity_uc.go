package usecase

import (
	"context"
	"errors"

	"kiro-flight-backend/internal/domain"
	"kiro-flight-backend/internal/domain/model"
	"kiro-flight-backend/internal/domain/ports/repository"
	"kiro-flight-backend/internal/infra/logging"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ IdentityUseCase = (*identityUC)(nil)

// IdentityUseCase resolves an opaque device id to a persistent user,
// creating the user on first contact.
type IdentityUseCase interface {
	ResolveOrCreate(ctx context.Context, deviceID string) (*model.User, []*model.Account, error)
	Resolve(ctx context.Context, deviceID string) (*model.User, error)
	Count(ctx context.Context) (int, error)
	List(ctx context.Context, offset, limit int) ([]*model.User, error)
}

type identityUC struct {
	users    repository.UserRepository
	accounts repository.AccountRepository
	tm       repository.TransactionManager
	log      *zerolog.Logger
}

func NewIdentityUseCase(users repository.UserRepository, accounts repository.AccountRepository, tm repository.TransactionManager, logger *zerolog.Logger) *identityUC {
	return &identityUC{
		users:    users,
		accounts: accounts,
		tm:       tm,
		log:      logger,
	}
}

// ResolveOrCreate looks the user up by device id, creating one with a zero
// balance if absent, and returns the user's visible accounts. Repeated calls
// with the same device id never create duplicate users: the device_id unique
// key backs the read-then-insert, and a lost insert race falls back to the
// winner's row.
func (u *identityUC) ResolveOrCreate(ctx context.Context, deviceID string) (*model.User, []*model.Account, error) {
	defer logging.TraceDuration(u.log, "IdentityUC.ResolveOrCreate")()

	if deviceID == "" || len(deviceID) > model.MaxDeviceIDLen {
		return nil, nil, domain.ErrInvalidInput
	}

	var user *model.User
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		usr, err := u.users.FindByDeviceID(ctx, tx, deviceID)
		if err == nil {
			user = usr
			return nil
		}
		if !errors.Is(err, domain.ErrUserNotFound) {
			return err
		}

		nu, err := model.NewUser("", deviceID)
		if err != nil {
			return err
		}
		if err := u.users.Save(ctx, tx, nu); err != nil {
			return err
		}
		u.log.Info().Str("device_id", deviceID).Msg("registered new device")
		user = nu
		return nil
	})
	if errors.Is(err, domain.ErrAlreadyExists) {
		// Concurrent first contact: the other request inserted the row.
		user, err = u.users.FindByDeviceID(ctx, repository.NoTX, deviceID)
	}
	if err != nil {
		return nil, nil, err
	}

	accounts, err := u.accounts.ListVisible(ctx, repository.NoTX, user.ID)
	if err != nil {
		return nil, nil, err
	}
	return user, accounts, nil
}

// Resolve never creates: callers that require a previously registered device
// (redeem, exchange, token fetch) go through here.
func (u *identityUC) Resolve(ctx context.Context, deviceID string) (*model.User, error) {
	if deviceID == "" {
		return nil, domain.ErrInvalidInput
	}
	return u.users.FindByDeviceID(ctx, repository.NoTX, deviceID)
}

func (u *identityUC) Count(ctx context.Context) (int, error) {
	return u.users.CountUsers(ctx, repository.NoTX)
}

func (u *identityUC) List(ctx context.Context, offset, limit int) ([]*model.User, error) {
	return u.users.List(ctx, repository.NoTX, offset, limit)
}
