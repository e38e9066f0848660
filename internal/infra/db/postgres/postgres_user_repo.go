package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"kiro-flight-backend/internal/domain"
	"kiro-flight-backend/internal/domain/model"
	"kiro-flight-backend/internal/domain/ports/repository"
)

var _ repository.UserRepository = (*PostgresUserRepo)(nil)

type PostgresUserRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepo(pool *pgxpool.Pool) *PostgresUserRepo {
	return &PostgresUserRepo{pool: pool}
}

const userColumns = `id, device_id, points, activated_code, expire_at, created_at`

func scanUser(row pgx.Row) (*model.User, error) {
	var u model.User
	if err := row.Scan(&u.ID, &u.DeviceID, &u.Points, &u.ActivatedCode, &u.ExpireAt, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *PostgresUserRepo) Save(ctx context.Context, tx repository.Tx, u *model.User) error {
	const q = `
INSERT INTO users (id, device_id, points, activated_code, expire_at, created_at)
VALUES ($1,$2,$3,$4,$5,$6)
ON CONFLICT (id) DO UPDATE SET
  points=$3, activated_code=$4, expire_at=$5;
`
	_, err := execSQL(ctx, r.pool, tx, q, u.ID, u.DeviceID, u.Points, u.ActivatedCode, u.ExpireAt, u.CreatedAt)
	if err != nil {
		if IsUniqueViolation(err) {
			// device_id unique key: a concurrent first contact won the insert.
			return domain.ErrAlreadyExists
		}
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepo) FindByDeviceID(ctx context.Context, tx repository.Tx, deviceID string) (*model.User, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+userColumns+` FROM users WHERE device_id=$1;`, deviceID)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

func (r *PostgresUserRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.User, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+userColumns+` FROM users WHERE id=$1;`, id)
	if err != nil {
		return nil, err
	}
	return scanUser(row)
}

// CreditActivation adds points and overwrites the activated-code display
// marker in one statement. Runs inside the redeem transaction, after the
// code row has been locked and flipped.
func (r *PostgresUserRepo) CreditActivation(ctx context.Context, tx repository.Tx, userID string, points int, code string, expireAt time.Time) (int, error) {
	const q = `
UPDATE users
   SET points = points + $2, activated_code = $3, expire_at = $4
 WHERE id = $1
RETURNING points;
`
	row, err := pickRow(ctx, r.pool, tx, q, userID, points, code, expireAt)
	if err != nil {
		return 0, err
	}
	var balance int
	if err := row.Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrUserNotFound
		}
		return 0, fmt.Errorf("credit activation: %w", err)
	}
	return balance, nil
}

// DebitPoints is the conditional debit: the balance check and the decrement
// happen in the same statement, so two concurrent exchanges can never both
// spend the same points.
func (r *PostgresUserRepo) DebitPoints(ctx context.Context, tx repository.Tx, userID string, price int) (int, error) {
	const q = `
UPDATE users
   SET points = points - $2
 WHERE id = $1 AND points >= $2
RETURNING points;
`
	row, err := pickRow(ctx, r.pool, tx, q, userID, price)
	if err != nil {
		return 0, err
	}
	var balance int
	if err := row.Scan(&balance); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrInsufficientPoints
		}
		return 0, fmt.Errorf("debit points: %w", err)
	}
	return balance, nil
}

func (r *PostgresUserRepo) ClearActivation(ctx context.Context, tx repository.Tx, deviceID string) (bool, error) {
	const q = `UPDATE users SET activated_code = NULL, expire_at = NULL WHERE device_id = $1;`
	tag, err := execSQL(ctx, r.pool, tx, q, deviceID)
	if err != nil {
		return false, fmt.Errorf("clear activation: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PostgresUserRepo) CountUsers(ctx context.Context, tx repository.Tx) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM users;`)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

func (r *PostgresUserRepo) List(ctx context.Context, tx repository.Tx, offset, limit int) ([]*model.User, error) {
	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC OFFSET $1 LIMIT $2;`, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.DeviceID, &u.Points, &u.ActivatedCode, &u.ExpireAt, &u.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}
