package config

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// NewPostgresDB opens a database/sql pool on the pgx stdlib driver and
// verifies connectivity before returning it.
func NewPostgresDB(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("empty postgres DSN")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(GetInt("DB_MAX_OPEN_CONNS", 20))
	db.SetMaxIdleConns(GetInt("DB_MAX_IDLE_CONNS", 10))
	db.SetConnMaxIdleTime(5 * time.Minute)
	db.SetConnMaxLifetime(60 * time.Minute)

	// verify connectivity early (fail fast)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}

// PostgresDSN assembles a connection string from the individual
// POSTGRES_* variables.
func PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		GetString("POSTGRES_USER", "postgres"),
		GetString("POSTGRES_PASSWORD", "postgres"),
		GetString("POSTGRES_HOST", "localhost"),
		GetString("POSTGRES_PORT", "5432"),
		GetString("POSTGRES_DB", "doorkeeper"),
		GetString("POSTGRES_SSLMODE", "disable"),
	)
}
