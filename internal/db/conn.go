package db

import (
	"context"
	"database/sql"
	"fmt"
	"net"

	"github.com/go-sql-driver/mysql"

	"db_schema_lifecycle/internal/config"
)

// Conn is a single dedicated session against the target database.
// Session settings (autocommit, wait_timeout) are applied at open time,
// so every statement issued through a Conn sees them.
type Conn struct {
	db   *sql.DB
	conn *sql.Conn
}

// Factory mints a fresh connection per call. The orchestrator opens one
// connection per operation and closes it when the operation ends.
type Factory func(ctx context.Context) (*Conn, error)

// NewFactory binds a configuration into a connection factory.
func NewFactory(cfg config.DBConfig) Factory {
	return func(ctx context.Context) (*Conn, error) {
		return Open(ctx, cfg)
	}
}

// Open dials the configured MySQL database and prepares the session:
// autocommit on, and wait_timeout raised to its maximum (365 days) so the
// server's idle reaper never drops a long-lived administrative session.
func Open(ctx context.Context, cfg config.DBConfig) (*Conn, error) {
	mycfg := mysql.Config{
		User:                 cfg.User,
		Passwd:               cfg.Password,
		Net:                  "tcp",
		Addr:                 net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port)),
		DBName:               cfg.DBName,
		AllowNativePasswords: true,
		ParseTime:            true,
	}
	pool, err := sql.Open("mysql", mycfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", mycfg.Addr, err)
	}
	pool.SetMaxOpenConns(1)

	conn, err := pool.Conn(ctx)
	if err != nil {
		_ = pool.Close()
		return nil, fmt.Errorf("connect to %s/%s: %w", mycfg.Addr, cfg.DBName, err)
	}

	for _, stmt := range []string{"SET autocommit=1", "SET wait_timeout=31536000"} {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			_ = conn.Close()
			_ = pool.Close()
			return nil, fmt.Errorf("session setup %q: %w", stmt, err)
		}
	}
	return &Conn{db: pool, conn: conn}, nil
}

func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.conn.ExecContext(ctx, query, args...)
}

func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.conn.QueryContext(ctx, query, args...)
}

func (c *Conn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.conn.QueryRowContext(ctx, query, args...)
}

func (c *Conn) Close() error {
	err := c.conn.Close()
	if cerr := c.db.Close(); err == nil {
		err = cerr
	}
	return err
}
