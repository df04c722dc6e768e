package fixture

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"db_schema_lifecycle/internal/db"
)

// Execer is the slice of a session the installer needs.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Acknowledger blocks until the operator confirms an out-of-band step.
type Acknowledger interface {
	Acknowledge(prompt string) error
}

// ConflictError reports a uniqueness violation while inserting fixture
// rows with conflict tolerance off.
type ConflictError struct {
	Table string
	Err   error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("fixture conflict in table %s: %v", e.Table, e.Err)
}

func (e *ConflictError) Unwrap() error { return e.Err }

// Options tunes fixture installation.
type Options struct {
	// IgnoreConflicts logs and skips rows that violate uniqueness
	// constraints instead of aborting.
	IgnoreConflicts bool
}

// Installer writes fixture documents into the current application's
// database. Sub-fixtures for other applications are never inserted here:
// they are written to a file and handed to the operator, since this tool
// only owns one application's database.
type Installer struct {
	logger *slog.Logger
	prompt Acknowledger
}

func NewInstaller(logger *slog.Logger, prompt Acknowledger) *Installer {
	return &Installer{logger: logger, prompt: prompt}
}

// Install inserts the document's self fixture through conn, then hands
// off any foreign-app fixtures.
func (ins *Installer) Install(ctx context.Context, conn Execer, doc Document, opts Options) error {
	if err := ins.installApp(ctx, conn, doc.Self, opts); err != nil {
		return err
	}

	names := make([]string, 0, len(doc.Others))
	for name := range doc.Others {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := ins.handOff(name, doc.Others[name]); err != nil {
			return err
		}
	}
	return nil
}

func (ins *Installer) installApp(ctx context.Context, conn Execer, app AppFixture, opts Options) error {
	for _, table := range app.installOrder() {
		rows, ok := app.Tables[table]
		if !ok {
			return fmt.Errorf("tableOrder names unknown table %q", table)
		}
		ins.logger.Info("installing table", "table", table, "rows", len(rows))
		for _, row := range rows {
			if err := ins.insertRow(ctx, conn, table, row, opts); err != nil {
				return err
			}
		}
	}
	return nil
}

func (ins *Installer) insertRow(ctx context.Context, conn Execer, table string, row Row, opts Options) error {
	cols := make([]string, 0, len(row))
	for col := range row {
		cols = append(cols, col)
	}
	sort.Strings(cols)

	quoted := make([]string, len(cols))
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		quoted[i] = quoteIdent(col)
		placeholders[i] = "?"
		args[i] = row[col]
	}
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdent(table), strings.Join(quoted, ","), strings.Join(placeholders, ","))

	if _, err := conn.ExecContext(ctx, query, args...); err != nil {
		if db.Classify(err) == db.KindDuplicateEntry {
			if opts.IgnoreConflicts {
				ins.logger.Info("ignoring conflict", "table", table)
				return nil
			}
			return &ConflictError{Table: table, Err: err}
		}
		return fmt.Errorf("insert into %s: %w", table, err)
	}
	return nil
}

// handOff writes a foreign app's fixture to a temp file and waits for the
// operator to load it into that app's own instance.
func (ins *Installer) handOff(appName string, app AppFixture) error {
	data, err := app.marshal()
	if err != nil {
		return fmt.Errorf("encode fixture for app %q: %w", appName, err)
	}
	f, err := os.CreateTemp("", appName+"-*.json")
	if err != nil {
		return fmt.Errorf("write fixture for app %q: %w", appName, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("write fixture for app %q: %w", appName, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write fixture for app %q: %w", appName, err)
	}
	ins.logger.Info("foreign app fixture written", "app", appName, "path", f.Name())
	return ins.prompt.Acknowledge(fmt.Sprintf(
		"Please load the file %q into an instance of %q. Press ENTER to continue.", f.Name(), appName))
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
