package repository

import (
	"context"
	"time"

	"kiro-flight-backend/internal/domain/model"
)

// -----------------------------
// Users
// -----------------------------

type UserRepository interface {
	Save(ctx context.Context, tx Tx, u *model.User) error
	FindByDeviceID(ctx context.Context, tx Tx, deviceID string) (*model.User, error)
	FindByID(ctx context.Context, tx Tx, id string) (*model.User, error)
	// CreditActivation adds points to the user and records the given code as
	// the currently-activated display marker. Must run inside a transaction
	// together with the code's used-flag flip.
	CreditActivation(ctx context.Context, tx Tx, userID string, points int, code string, expireAt time.Time) (newBalance int, err error)
	// DebitPoints decrements the balance only if points >= price in the same
	// atomic statement; returns domain.ErrInsufficientPoints otherwise.
	DebitPoints(ctx context.Context, tx Tx, userID string, price int) (newBalance int, err error)
	// ClearActivation drops the activated-code marker and its expiry.
	// Returns false when no user matches the device id.
	ClearActivation(ctx context.Context, tx Tx, deviceID string) (found bool, err error)
	CountUsers(ctx context.Context, tx Tx) (int, error)
	List(ctx context.Context, tx Tx, offset, limit int) ([]*model.User, error)
}
