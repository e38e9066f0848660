package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"kiro-flight-backend/internal/domain"
	"kiro-flight-backend/internal/domain/model"
	"kiro-flight-backend/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.ActivationCodeRepository = (*activationCodeRepo)(nil)

type activationCodeRepo struct {
	pool *pgxpool.Pool
}

func NewActivationCodeRepo(pool *pgxpool.Pool) repository.ActivationCodeRepository {
	return &activationCodeRepo{pool: pool}
}

const codeColumns = `id, code, points, expire_at, is_used, used_by, created_at`

func (r *activationCodeRepo) Save(ctx context.Context, tx repository.Tx, code *model.ActivationCode) error {
	if code.ID == "" {
		code.ID = uuid.NewString()
	}
	const q = `
INSERT INTO activation_codes (id, code, points, expire_at, is_used, used_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7);
`
	_, err := execSQL(ctx, r.pool, tx, q,
		code.ID, code.Code, code.Points, code.ExpireAt, code.IsUsed, code.UsedBy, code.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("save activation code: %w", err)
	}
	return nil
}

// FindByCodeForUpdate loads the code row. Inside a transaction the row is
// locked (FOR UPDATE), so of N concurrent redemptions exactly one proceeds
// while the rest block and then observe is_used = TRUE.
func (r *activationCodeRepo) FindByCodeForUpdate(ctx context.Context, tx repository.Tx, code string) (*model.ActivationCode, error) {
	q := `SELECT ` + codeColumns + ` FROM activation_codes WHERE code = $1`
	if _, isTx := tx.(pgx.Tx); isTx {
		q += ` FOR UPDATE`
	}
	row, err := pickRow(ctx, r.pool, tx, q+`;`, code)
	if err != nil {
		return nil, err
	}

	var ac model.ActivationCode
	err = row.Scan(&ac.ID, &ac.Code, &ac.Points, &ac.ExpireAt, &ac.IsUsed, &ac.UsedBy, &ac.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrCodeInvalidOrUsed
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return &ac, nil
}

// MarkUsed flips the one-shot flag. The WHERE clause re-checks is_used so the
// flip stays exactly-once even without a prior row lock.
func (r *activationCodeRepo) MarkUsed(ctx context.Context, tx repository.Tx, id, userID string) error {
	const q = `UPDATE activation_codes SET is_used = TRUE, used_by = $2 WHERE id = $1 AND is_used = FALSE;`
	tag, err := execSQL(ctx, r.pool, tx, q, id, userID)
	if err != nil {
		return fmt.Errorf("mark code used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCodeInvalidOrUsed
	}
	return nil
}

func (r *activationCodeRepo) CountUnused(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM activation_codes WHERE is_used = FALSE;`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count unused codes: %w", err)
	}
	return n, nil
}

func (r *activationCodeRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.ActivationCode, error) {
	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT `+codeColumns+` FROM activation_codes ORDER BY created_at DESC OFFSET $1 LIMIT $2;`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list codes: %w", err)
	}
	defer rows.Close()

	var out []*model.ActivationCode
	for rows.Next() {
		var ac model.ActivationCode
		if err := rows.Scan(&ac.ID, &ac.Code, &ac.Points, &ac.ExpireAt, &ac.IsUsed, &ac.UsedBy, &ac.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &ac)
	}
	return out, rows.Err()
}
