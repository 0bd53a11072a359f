package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/kodacci/o-monitor-rest/internal/user/domain"
)

const userColumns = `id, login, name, email, password_hash, privilege, token_id, deleted, created_at, updated_at, deleted_at`

type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a user repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByID returns the user for id, or nil if not found.
// It returns an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 AND deleted = false`, id)
	return scanUserRow(row)
}

// GetByLogin returns the user with the given login, or nil if not found.
func (r *PostgresRepository) GetByLogin(ctx context.Context, login string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE login = $1 AND deleted = false`, login)
	return scanUserRow(row)
}

func (r *PostgresRepository) GetTokenID(ctx context.Context, id int64) (string, error) {
	var tokenID sql.NullString
	err := r.db.QueryRowContext(ctx, `SELECT token_id FROM users WHERE id = $1 AND deleted = false`, id).Scan(&tokenID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", nil
		}
		return "", err
	}
	return tokenID.String, nil
}

func (r *PostgresRepository) SetTokenID(ctx context.Context, id int64, tokenID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET token_id = $2, updated_at = $3 WHERE id = $1 AND deleted = false`,
		id, tokenID, time.Now().UTC())
	return err
}

// List returns all users ordered by id.
func (r *PostgresRepository) List(ctx context.Context) ([]*domain.User, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE deleted = false ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) Create(ctx context.Context, u *domain.User) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return r.db.QueryRowContext(ctx,
		`INSERT INTO users (login, name, email, password_hash, privilege, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		u.Login, u.Name, u.Email, u.PasswordHash, string(u.Privilege), u.CreatedAt, u.UpdatedAt,
	).Scan(&u.ID)
}

// Update overwrites the mutable profile fields. The token id is left untouched.
func (r *PostgresRepository) Update(ctx context.Context, u *domain.User) error {
	u.UpdatedAt = time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET login = $2, name = $3, email = $4, password_hash = $5, privilege = $6, updated_at = $7
		 WHERE id = $1 AND deleted = false`,
		u.ID, u.Login, u.Name, u.Email, u.PasswordHash, string(u.Privilege), u.UpdatedAt)
	return err
}

func (r *PostgresRepository) SoftDelete(ctx context.Context, id int64) (int64, error) {
	now := time.Now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET deleted = true, deleted_at = $2, updated_at = $2, token_id = NULL WHERE id = $1 AND deleted = false`,
		id, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM users WHERE deleted = false`).Scan(&n)
	return n, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUserRow(row *sql.Row) (*domain.User, error) {
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func scanUser(s rowScanner) (*domain.User, error) {
	var (
		u         domain.User
		privilege string
		tokenID   sql.NullString
		deletedAt sql.NullTime
	)
	if err := s.Scan(&u.ID, &u.Login, &u.Name, &u.Email, &u.PasswordHash, &privilege, &tokenID,
		&u.Deleted, &u.CreatedAt, &u.UpdatedAt, &deletedAt); err != nil {
		return nil, err
	}
	u.Privilege = domain.Privilege(privilege)
	if tokenID.Valid {
		t := tokenID.String
		u.TokenID = &t
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		u.DeletedAt = &t
	}
	return &u, nil
}
