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
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

// Compile-time check
var _ ExchangeUseCase = (*exchangeUC)(nil)

// ExchangeResult carries the allocated account and what is left of the balance.
type ExchangeResult struct {
	Account         *model.Account
	RemainingPoints int
}

// ExchangeUseCase spends points for exclusive-use pooled accounts.
type ExchangeUseCase interface {
	Exchange(ctx context.Context, deviceID string, source model.AccountSource) (*ExchangeResult, error)
	Price() int
}

type exchangeUC struct {
	users    repository.UserRepository
	accounts repository.AccountRepository
	tm       repository.TransactionManager
	price    int
	log      *zerolog.Logger
}

func NewExchangeUseCase(users repository.UserRepository, accounts repository.AccountRepository, tm repository.TransactionManager, price int, logger *zerolog.Logger) *exchangeUC {
	return &exchangeUC{
		users:    users,
		accounts: accounts,
		tm:       tm,
		price:    price,
		log:      logger,
	}
}

func (u *exchangeUC) Price() int { return u.price }

// Exchange debits the fixed price and allocates one account of the requested
// source, atomically as a pair. The debit is conditional (points >= price in
// the same statement), so two concurrent exchanges over one price's worth of
// points resolve to one success and one ErrInsufficientPoints. A rollback of
// either half undoes both.
func (u *exchangeUC) Exchange(ctx context.Context, deviceID string, source model.AccountSource) (*ExchangeResult, error) {
	defer logging.TraceDuration(u.log, "ExchangeUC.Exchange")()

	if deviceID == "" {
		return nil, domain.ErrInvalidInput
	}

	var res ExchangeResult
	txOpts := pgx.TxOptions{IsoLevel: pgx.ReadCommitted}
	err := u.tm.WithTx(ctx, txOpts, func(ctx context.Context, tx repository.Tx) error {
		user, err := u.users.FindByDeviceID(ctx, tx, deviceID)
		if err != nil {
			return err
		}

		balance, err := u.users.DebitPoints(ctx, tx, user.ID, u.price)
		if err != nil {
			return err
		}

		account, err := u.accounts.ClaimUnowned(ctx, tx, user.ID, source)
		if errors.Is(err, domain.ErrAccountNotFound) {
			// Pool is dry: fall back to synthesized placeholder credentials.
			account = &model.Account{
				ID:          ulid.Make().String(),
				UserID:      user.ID,
				Source:      source,
				Credentials: synthesizeCredentials(source),
				CreatedAt:   time.Now(),
			}
			err = u.accounts.Insert(ctx, tx, account)
			metrics.ObserveAccountClaim(string(source), "synthesized")
		} else if err == nil {
			metrics.ObserveAccountClaim(string(source), "pool")
		}
		if err != nil {
			return err
		}

		res = ExchangeResult{Account: account, RemainingPoints: balance}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInsufficientPoints):
			metrics.ObserveExchange(string(source), "insufficient")
		case errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrInvalidInput):
			// request never reached the debit
		default:
			metrics.ObserveExchange(string(source), "error")
		}
		return nil, err
	}

	metrics.ObserveExchange(string(source), "ok")
	u.log.Info().
		Str("device_id", deviceID).
		Str("source", string(source)).
		Str("account_id", res.Account.ID).
		Int("remaining_points", res.RemainingPoints).
		Msg("account exchanged")
	return &res, nil
}
