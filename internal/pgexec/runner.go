// Package pgexec executes compiled queries against PostgreSQL.
package pgexec

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/roach88/pggraphql/internal/fragment"
	"github.com/roach88/pggraphql/internal/querysql"
)

// ResultColumn is the single column every compiled statement returns.
const ResultColumn = "res"

// Open connects to PostgreSQL through pgx and verifies the connection.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}
	return db, nil
}

// Runner hands compiled statements to a database.
type Runner struct {
	DB     *sql.DB
	Logger *slog.Logger
}

// New creates a Runner. If logger is nil, a discard logger is used.
func New(db *sql.DB, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{DB: db, Logger: logger}
}

// Run executes q with its params bound as $1..$n and returns the JSON
// document from the result column. A NULL document is returned as null.
func (r *Runner) Run(ctx context.Context, q *querysql.Result) (json.RawMessage, error) {
	if r.DB == nil {
		return nil, errors.New("database connection not established")
	}
	if q == nil {
		return nil, errors.New("no query to run")
	}

	stmt := fragment.Rebind(q.SQL)
	start := time.Now()

	var doc []byte
	err := r.DB.QueryRowContext(ctx, stmt, q.Params...).Scan(&doc)
	if err != nil {
		return nil, fmt.Errorf("run query: %w", err)
	}

	r.logger().Debug("query executed",
		slog.Int("params", len(q.Params)),
		slog.Duration("duration", time.Since(start)),
		slog.Int("bytes", len(doc)),
	)

	if doc == nil {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(doc) {
		return nil, fmt.Errorf("run query: %s column is not valid JSON", ResultColumn)
	}
	return json.RawMessage(doc), nil
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return r.Logger
}
