package usecase

import (
	"context"
	"errors"
	"time"

	"kiro-flight-backend/internal/domain"
	"kiro-flight-backend/internal/domain/model"
	"kiro-flight-backend/internal/domain/ports/repository"
	"kiro-flight-backend/internal/infra/logging"
	"kiro-flight-backend/internal/infra/metrics"

	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ ActivationUseCase = (*activationUC)(nil)

// RedeemResult is what a successful redemption reports back.
type RedeemResult struct {
	CurrentPoints int
	ExpireAt      time.Time
	Accounts      []*model.Account
}

// ActivationUseCase validates and atomically redeems one-time codes.
type ActivationUseCase interface {
	Redeem(ctx context.Context, deviceID, code string) (*RedeemResult, error)
	Logout(ctx context.Context, deviceID string) (bool, error)
	CreateCode(ctx context.Context, code string, points, expireDays int) (*model.ActivationCode, error)
	CountUnused(ctx context.Context) (int, error)
	List(ctx context.Context, offset, limit int) ([]*model.ActivationCode, error)
}

type activationUC struct {
	users    repository.UserRepository
	codes    repository.ActivationCodeRepository
	accounts repository.AccountRepository
	tm       repository.TransactionManager
	log      *zerolog.Logger
	now      func() time.Time
}

func NewActivationUseCase(users repository.UserRepository, codes repository.ActivationCodeRepository, accounts repository.AccountRepository, tm repository.TransactionManager, logger *zerolog.Logger) *activationUC {
	return &activationUC{
		users:    users,
		codes:    codes,
		accounts: accounts,
		tm:       tm,
		log:      logger,
		now:      time.Now,
	}
}

// Redeem credits the code's points to the device's user and flips the code's
// one-shot flag, all inside one transaction with the code row locked. Of N
// concurrent redemptions of the same code exactly one succeeds; the rest see
// is_used already set. Redemption is additive on the balance but overwrites
// the currently-activated display marker.
func (u *activationUC) Redeem(ctx context.Context, deviceID, code string) (*RedeemResult, error) {
	defer logging.TraceDuration(u.log, "ActivationUC.Redeem")()

	if deviceID == "" || code == "" {
		return nil, domain.ErrInvalidInput
	}

	var res RedeemResult
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		user, err := u.users.FindByDeviceID(ctx, tx, deviceID)
		if err != nil {
			return err
		}

		ac, err := u.codes.FindByCodeForUpdate(ctx, tx, code)
		if err != nil {
			return err
		}
		if ac.IsUsed {
			return domain.ErrCodeInvalidOrUsed
		}
		if ac.Expired(u.now()) {
			return domain.ErrCodeExpired
		}

		if err := u.codes.MarkUsed(ctx, tx, ac.ID, user.ID); err != nil {
			return err
		}
		balance, err := u.users.CreditActivation(ctx, tx, user.ID, ac.Points, ac.Code, ac.ExpireAt)
		if err != nil {
			return err
		}
		accounts, err := u.accounts.ListVisible(ctx, tx, user.ID)
		if err != nil {
			return err
		}

		res = RedeemResult{CurrentPoints: balance, ExpireAt: ac.ExpireAt, Accounts: accounts}
		metrics.ObserveRedemption("ok", ac.Points)
		u.log.Info().Str("device_id", deviceID).Str("code", code).Int("points", balance).Msg("code redeemed")
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCodeInvalidOrUsed):
			metrics.ObserveRedemption("invalid", 0)
		case errors.Is(err, domain.ErrCodeExpired):
			metrics.ObserveRedemption("expired", 0)
		case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrInvalidInput):
			// no metric: request never reached the code
		default:
			metrics.ObserveRedemption("error", 0)
		}
		return nil, err
	}
	return &res, nil
}

// Logout clears the activated-code display marker. Points and owned accounts
// survive. An unknown device is reported via found=false, not an error.
func (u *activationUC) Logout(ctx context.Context, deviceID string) (bool, error) {
	defer logging.TraceDuration(u.log, "ActivationUC.Logout")()

	if deviceID == "" {
		return false, domain.ErrInvalidInput
	}
	found, err := u.users.ClearActivation(ctx, repository.NoTX, deviceID)
	if err != nil {
		return false, err
	}
	if found {
		u.log.Info().Str("device_id", deviceID).Msg("device logged out")
	}
	return found, nil
}

// CreateCode registers a new one-time code. An empty code string mints a
// random one, retrying on the rare collision with an existing code.
func (u *activationUC) CreateCode(ctx context.Context, code string, points, expireDays int) (*model.ActivationCode, error) {
	defer logging.TraceDuration(u.log, "ActivationUC.CreateCode")()

	if points <= 0 || expireDays <= 0 {
		return nil, domain.ErrInvalidInput
	}

	mint := code == ""
	for attempt := 0; attempt < 5; attempt++ {
		if mint {
			var err error
			code, err = generateActivationCode()
			if err != nil {
				return nil, err
			}
		}
		ac := &model.ActivationCode{
			Code:      code,
			Points:    points,
			ExpireAt:  u.now().AddDate(0, 0, expireDays),
			CreatedAt: u.now(),
		}
		err := u.codes.Save(ctx, repository.NoTX, ac)
		if err == nil {
			u.log.Info().Str("code", ac.Code).Int("points", points).Int("expire_days", expireDays).Msg("activation code created")
			return ac, nil
		}
		if errors.Is(err, domain.ErrAlreadyExists) && mint {
			continue
		}
		return nil, err
	}
	return nil, domain.ErrAlreadyExists
}

func (u *activationUC) CountUnused(ctx context.Context) (int, error) {
	return u.codes.CountUnused(ctx, repository.NoTX)
}

func (u *activationUC) List(ctx context.Context, offset, limit int) ([]*model.ActivationCode, error) {
	return u.codes.List(ctx, repository.NoTX, offset, limit)
}
