package repository

import (
	"context"

	"kiro-flight-backend/internal/domain/model"
)

// ActivationCodeRepository is the port for managing activation codes.
type ActivationCodeRepository interface {
	// Save creates a new activation code; domain.ErrAlreadyExists on a
	// duplicate code string.
	Save(ctx context.Context, tx Tx, code *model.ActivationCode) error
	// FindByCodeForUpdate loads the code row and, when tx is a real
	// transaction, locks it so concurrent redemptions serialize.
	// Returns domain.ErrCodeInvalidOrUsed when the code does not exist.
	FindByCodeForUpdate(ctx context.Context, tx Tx, code string) (*model.ActivationCode, error)
	// MarkUsed flips the one-shot flag and attributes the redemption.
	// Flipping an already-used code returns domain.ErrCodeInvalidOrUsed.
	MarkUsed(ctx context.Context, tx Tx, id, userID string) error
	CountUnused(ctx context.Context, tx Tx) (int, error)
	List(ctx context.Context, tx Tx, offset, limit int) ([]*model.ActivationCode, error)
}
