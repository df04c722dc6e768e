// Package sqlexec runs SQL scripts through the mysql command-line client.
// The client is invoked with an argument vector, never a shell string, and
// the password travels in the child environment rather than argv.
package sqlexec

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// Client wraps subprocess invocations of the mysql client for one target.
type Client struct {
	host     string
	port     int
	user     string
	password string
	dbName   string
	binary   string
	logger   *slog.Logger
}

func NewClient(host string, port int, user, password, dbName string, logger *slog.Logger) *Client {
	return &Client{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		dbName:   dbName,
		binary:   "mysql",
		logger:   logger,
	}
}

// ScriptError reports a failed client invocation.
type ScriptError struct {
	Path     string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ScriptError) Error() string {
	target := e.Path
	if target == "" {
		target = "statement"
	}
	msg := fmt.Sprintf("sql execution of %s failed with exit code %d", target, e.ExitCode)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *ScriptError) Unwrap() error { return e.Err }

// RunFile streams the SQL file at path into the configured database.
func (c *Client) RunFile(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open script: %w", err)
	}
	defer f.Close()

	c.logger.Info("executing sql file", "path", path, "db", c.dbName)
	if err := c.run(ctx, f, path, c.args(c.dbName)); err != nil {
		return err
	}
	c.logger.Info("executed sql file", "path", path)
	return nil
}

// RunStatement executes a single statement against the configured database.
func (c *Client) RunStatement(ctx context.Context, stmt string) error {
	return c.run(ctx, nil, "", append(c.args(c.dbName), "--execute="+stmt))
}

// DropDatabase drops the configured database if it exists. The statement
// runs on a server-level session since the database may be absent.
func (c *Client) DropDatabase(ctx context.Context) error {
	stmt := "DROP DATABASE IF EXISTS " + quoteIdent(c.dbName)
	return c.run(ctx, nil, "", append(c.args(""), "--execute="+stmt))
}

// CreateDatabase creates the configured database.
func (c *Client) CreateDatabase(ctx context.Context) error {
	stmt := "CREATE DATABASE " + quoteIdent(c.dbName)
	return c.run(ctx, nil, "", append(c.args(""), "--execute="+stmt))
}

// args builds the invocation vector. dbName is appended only when the
// session should start with a database selected.
func (c *Client) args(dbName string) []string {
	args := []string{
		"--host=" + c.host,
		fmt.Sprintf("--port=%d", c.port),
		"--user=" + c.user,
	}
	if dbName != "" {
		args = append(args, dbName)
	}
	return args
}

func (c *Client) run(ctx context.Context, stdin io.Reader, path string, args []string) error {
	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Env = append(os.Environ(), "MYSQL_PWD="+c.password)
	cmd.Stdin = stdin
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		exitCode := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
		return &ScriptError{
			Path:     path,
			ExitCode: exitCode,
			Stderr:   strings.TrimSpace(stderr.String()),
			Err:      err,
		}
	}
	return nil
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
