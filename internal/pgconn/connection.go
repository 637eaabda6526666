// Package pgconn establishes the Postgres connection the rest of the
// rebuild runs over, adapted from the teacher's MySQL connection-factory
// pattern (internal/mysql/connection.go): a ConnectionConfig struct, TLS
// mode switch, and a hidden-input password prompt, wired to
// github.com/jackc/pgx/v5 instead of go-sql-driver/mysql.
package pgconn

import (
	"context"
	"fmt"
	"net/url"
	"syscall"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/term"
)

// ConnectionConfig holds Postgres connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Socket   string
	TLSMode  string // "", "disable", "allow", "prefer", "require", "verify-ca", "verify-full"
}

// Connect establishes a pooled Postgres connection and verifies it with
// a ping before returning.
func Connect(ctx context.Context, cfg ConnectionConfig) (*pgxpool.Pool, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse connection string: %w", err)
	}
	// One session for the whole run: every caller (the rebuild and the
	// plan subcommand alike) issues its statements one after another, so
	// a single connection serves them all.
	poolCfg.MaxConns = 1
	poolCfg.MinConns = 1

	// Session-level settings asserted on every connection the pool opens
	// (spec section 6), ground truth original_source's connection.py
	// server_settings dict.
	poolCfg.ConnConfig.RuntimeParams["application_name"] = "pg_rebuild_table"
	poolCfg.ConnConfig.RuntimeParams["search_path"] = "public"

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open connection: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	return pool, nil
}

func buildDSN(cfg ConnectionConfig) (string, error) {
	switch cfg.TLSMode {
	case "", "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
		// valid
	default:
		return "", fmt.Errorf("invalid TLS mode %q: valid values are disable, allow, prefer, require, verify-ca, verify-full", cfg.TLSMode)
	}

	db := cfg.Database
	if db == "" {
		db = "postgres"
	}

	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(cfg.User, cfg.Password),
		Path:   "/" + db,
	}
	q := u.Query()
	if cfg.TLSMode != "" {
		q.Set("sslmode", cfg.TLSMode)
	}

	if cfg.Socket != "" {
		// pgx's URL parser takes a unix socket directory via the "host"
		// query parameter rather than the URL authority component.
		q.Set("host", cfg.Socket)
	} else {
		u.Host = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}

// PromptPassword reads a password from the terminal without echoing.
func PromptPassword() string {
	fmt.Print("Enter password: ")
	password, err := term.ReadPassword(syscall.Stdin)
	fmt.Println()
	if err != nil {
		return ""
	}
	return string(password)
}

// Conn is the narrow pgx surface internal/rebuildtable's adapter wraps
// before handing it to internal/copier, internal/delta, and internal/swap
// through their own interfaces — satisfied by both *pgxpool.Pool and
// pgx.Tx, so the same code path works whether a caller is issuing a
// standalone query or running inside a transaction.
type Conn interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}
