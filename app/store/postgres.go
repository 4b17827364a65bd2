package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/avelier/doorkeeper/app/models"
)

// NewPostgresStorage returns a Storage backed by the users and sessions
// tables over database/sql (pgx stdlib driver).
func NewPostgresStorage(db *sql.DB) Storage {
	return Storage{
		Users:    &postgresUsers{db: db},
		Sessions: &postgresSessions{db: db},
	}
}

// EnsurePostgresSchema creates the two tables and their indexes if they
// do not exist yet. The unique email index is defense in depth; the
// service still performs its own pre-insert lookup.
func EnsurePostgresSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL,
			name TEXT NOT NULL,
			hashed_password TEXT NOT NULL,
			email_verified BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_by_email ON users (email)`,
		`CREATE TABLE IF NOT EXISTS sessions (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			token TEXT NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS sessions_by_token ON sessions (token)`,
		`CREATE INDEX IF NOT EXISTS sessions_by_user ON sessions (user_id)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

type postgresUsers struct {
	db *sql.DB
}

func (s *postgresUsers) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
	INSERT INTO users (id, email, name, hashed_password, email_verified, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Name,
		user.HashedPassword,
		user.EmailVerified,
		user.CreatedAt,
		user.UpdatedAt,
	)
	return err
}

func (s *postgresUsers) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, email, name, hashed_password,
	email_verified, created_at, updated_at FROM users WHERE email = $1`
	return s.scanUser(s.db.QueryRowContext(ctx, query, email))
}

func (s *postgresUsers) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT id, email, name, hashed_password,
	email_verified, created_at, updated_at FROM users WHERE id = $1`
	return s.scanUser(s.db.QueryRowContext(ctx, query, id))
}

func (s *postgresUsers) scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.HashedPassword,
		&user.EmailVerified,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *postgresUsers) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	query := `UPDATE users SET name = $1, email_verified = $2, updated_at = $3 WHERE id = $4`
	res, err := s.db.ExecContext(ctx, query,
		user.Name,
		user.EmailVerified,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type postgresSessions struct {
	db *sql.DB
}

func (s *postgresSessions) Create(ctx context.Context, session *models.Session) error {
	if session.ID == "" {
		session.ID = uuid.NewString()
	}
	session.CreatedAt = time.Now().UTC()

	query := `
	INSERT INTO sessions (id, user_id, token, expires_at, created_at)
	VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.Token,
		session.ExpiresAt,
		session.CreatedAt,
	)
	return err
}

func (s *postgresSessions) GetByToken(ctx context.Context, token string) (*models.Session, error) {
	query := `SELECT id, user_id, token, expires_at, created_at
	FROM sessions WHERE token = $1`
	var session models.Session
	err := s.db.QueryRowContext(ctx, query, token).Scan(
		&session.ID,
		&session.UserID,
		&session.Token,
		&session.ExpiresAt,
		&session.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &session, nil
}

func (s *postgresSessions) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM sessions WHERE id = $1`
	_, err := s.db.ExecContext(ctx, query, id)
	return err
}

func (s *postgresSessions) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	query := `DELETE FROM sessions WHERE expires_at < $1`
	res, err := s.db.ExecContext(ctx, query, now)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
