// Package postgres is the PostgreSQL-backed storage implementation.
// Embeddings are stored in pgvector columns so near-neighbor queries
// can run in the database when the in-memory registry is cold.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/openscrape/facedex/internal/config"
)

// Pool manages a PostgreSQL connection pool.
type Pool struct {
	db *sql.DB
}

// NewPool creates a new PostgreSQL connection pool and verifies the
// connection.
func NewPool(cfg config.DatabaseConfig) (*Pool, error) {
	if cfg.URL == "" {
		return nil, errors.New("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Pool{db: db}, nil
}

// DB returns the underlying sql.DB for direct access.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Close closes the connection pool.
func (p *Pool) Close() error {
	if p.db != nil {
		if err := p.db.Close(); err != nil {
			return fmt.Errorf("closing database connection: %w", err)
		}
	}
	return nil
}

// QueryRow executes a query that returns a single row.
func (p *Pool) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.db.QueryRowContext(ctx, query, args...)
}

// Query executes a query that returns rows.
func (p *Pool) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	rows, err := p.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing query: %w", err)
	}
	return rows, nil
}

// Exec executes a query that doesn't return rows.
func (p *Pool) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	result, err := p.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("executing statement: %w", err)
	}
	return result, nil
}

// BeginTx starts a transaction.
func (p *Pool) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	tx, err := p.db.BeginTx(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	return tx, nil
}

// Initialize creates a pool and applies pending migrations.
func Initialize(cfg config.DatabaseConfig) (*Pool, error) {
	pool, err := NewPool(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL pool: %w", err)
	}

	if err := pool.Migrate(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return pool, nil
}
