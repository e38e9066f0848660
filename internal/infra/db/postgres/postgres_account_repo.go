package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"kiro-flight-backend/internal/domain"
	"kiro-flight-backend/internal/domain/model"
	"kiro-flight-backend/internal/domain/ports/repository"
)

// Ensure implementation satisfies the interface.
var _ repository.AccountRepository = (*accountRepo)(nil)

type accountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) repository.AccountRepository {
	return &accountRepo{pool: pool}
}

const accountColumns = `id, COALESCE(user_id, ''), source, COALESCE(email, ''), COALESCE(password, ''),
       COALESCE(refresh_token, ''), COALESCE(access_token, ''), COALESCE(client_id, ''),
       COALESCE(client_secret, ''), COALESCE(login, ''), COALESCE(profile_url, ''), is_hidden, created_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(
		&a.ID, &a.UserID, &a.Source,
		&a.Credentials.Email, &a.Credentials.Password,
		&a.Credentials.RefreshToken, &a.Credentials.AccessToken,
		&a.Credentials.ClientID, &a.Credentials.ClientSecret,
		&a.Credentials.Login, &a.Credentials.ProfileURL,
		&a.IsHidden, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *accountRepo) Insert(ctx context.Context, tx repository.Tx, a *model.Account) error {
	const q = `
INSERT INTO accounts
  (id, user_id, source, email, password, refresh_token, access_token, client_id, client_secret, login, profile_url, is_hidden, created_at)
VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13);
`
	_, err := execSQL(ctx, r.pool, tx, q,
		a.ID, a.UserID, a.Source,
		a.Credentials.Email, a.Credentials.Password,
		a.Credentials.RefreshToken, a.Credentials.AccessToken,
		a.Credentials.ClientID, a.Credentials.ClientSecret,
		a.Credentials.Login, a.Credentials.ProfileURL,
		a.IsHidden, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

// ClaimUnowned binds the oldest unclaimed pool account of the source to the
// user. SKIP LOCKED keeps concurrent exchanges from queueing on the same row:
// each claimer grabs the next free account or falls through to synthesis.
func (r *accountRepo) ClaimUnowned(ctx context.Context, tx repository.Tx, userID string, source model.AccountSource) (*model.Account, error) {
	const q = `
UPDATE accounts SET user_id = $1
 WHERE id = (
       SELECT id FROM accounts
        WHERE user_id IS NULL AND source = $2 AND is_hidden = FALSE
        ORDER BY created_at
        LIMIT 1
        FOR UPDATE SKIP LOCKED)
RETURNING ` + accountColumns + `;
`
	row, err := pickRow(ctx, r.pool, tx, q, userID, source)
	if err != nil {
		return nil, err
	}
	return scanAccount(row)
}

func (r *accountRepo) FindOwned(ctx context.Context, tx repository.Tx, userID, accountID string, source model.AccountSource) (*model.Account, error) {
	q := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 AND user_id = $2`
	args := []interface{}{accountID, userID}
	if source != "" {
		q += ` AND source = $3`
		args = append(args, source)
	}
	row, err := pickRow(ctx, r.pool, tx, q+`;`, args...)
	if err != nil {
		return nil, err
	}
	return scanAccount(row)
}

// Hide flips the visibility flag only when the caller owns the account.
// Zero rows affected is not an error: hiding someone else's account (or an
// already-hidden one) is an idempotent no-op.
func (r *accountRepo) Hide(ctx context.Context, tx repository.Tx, userID, accountID string) error {
	const q = `UPDATE accounts SET is_hidden = TRUE WHERE id = $1 AND user_id = $2;`
	if _, err := execSQL(ctx, r.pool, tx, q, accountID, userID); err != nil {
		return fmt.Errorf("hide account: %w", err)
	}
	return nil
}

func (r *accountRepo) ListVisible(ctx context.Context, tx repository.Tx, userID string) ([]*model.Account, error) {
	const q = `
SELECT ` + accountColumns + `
  FROM accounts
 WHERE user_id = $1 AND is_hidden = FALSE
 ORDER BY created_at DESC, id DESC;
`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		return nil, fmt.Errorf("list visible accounts: %w", err)
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func (r *accountRepo) CountVisible(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM accounts WHERE is_hidden = FALSE;`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

func (r *accountRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.Account, error) {
	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT `+accountColumns+` FROM accounts ORDER BY created_at DESC OFFSET $1 LIMIT $2;`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()
	return collectAccounts(rows)
}

func collectAccounts(rows pgx.Rows) ([]*model.Account, error) {
	var out []*model.Account
	for rows.Next() {
		var a model.Account
		err := rows.Scan(
			&a.ID, &a.UserID, &a.Source,
			&a.Credentials.Email, &a.Credentials.Password,
			&a.Credentials.RefreshToken, &a.Credentials.AccessToken,
			&a.Credentials.ClientID, &a.Credentials.ClientSecret,
			&a.Credentials.Login, &a.Credentials.ProfileURL,
			&a.IsHidden, &a.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
