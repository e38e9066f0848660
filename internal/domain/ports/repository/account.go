package repository

import (
	"context"

	"kiro-flight-backend/internal/domain/model"
)

// AccountRepository is the port for the pooled credential records.
type AccountRepository interface {
	// Insert stores a freshly built account. An empty UserID seeds the
	// unclaimed pool.
	Insert(ctx context.Context, tx Tx, a *model.Account) error
	// ClaimUnowned binds the oldest unclaimed account of the source to the
	// user and returns it; returns domain.ErrAccountNotFound when the pool
	// is dry. Must run inside the exchange transaction.
	ClaimUnowned(ctx context.Context, tx Tx, userID string, source model.AccountSource) (*model.Account, error)
	// FindOwned returns the account only if it belongs to userID (and
	// matches source when non-empty); domain.ErrAccountNotFound otherwise.
	FindOwned(ctx context.Context, tx Tx, userID, accountID string, source model.AccountSource) (*model.Account, error)
	// Hide soft-removes the account from the owner's visible list.
	// Not owned by userID -> no-op, no error.
	Hide(ctx context.Context, tx Tx, userID, accountID string) error
	// ListVisible returns the non-hidden accounts owned by userID,
	// newest first (stable).
	ListVisible(ctx context.Context, tx Tx, userID string) ([]*model.Account, error)
	CountVisible(ctx context.Context, tx Tx) (int, error)
	List(ctx context.Context, tx Tx, offset, limit int) ([]*model.Account, error)
}
