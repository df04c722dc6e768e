package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"db_schema_lifecycle/internal/db"
)

// CurrentVersion reads the installed schema version from the metadata
// table. ok is false when no schema is installed, which the caller must
// treat as a normal state, not a fault. The connection opened for the
// inspection is closed before returning.
func CurrentVersion(ctx context.Context, connect ConnectFunc, table string) (version SchemaVersion, ok bool, err error) {
	conn, err := connect(ctx)
	if err != nil {
		return "", false, err
	}
	defer conn.Close()

	query := fmt.Sprintf("SELECT value FROM %s WHERE attribute = ?", quoteIdent(table))
	var value string
	err = conn.QueryRowContext(ctx, query, "version").Scan(&value)
	switch {
	case err == nil:
		return SchemaVersion(value), true, nil
	case errors.Is(err, sql.ErrNoRows):
		// Table exists but the version row is missing: a half-installed
		// schema, not an uninstalled one.
		return "", false, fmt.Errorf("%w: table %s has no version row", ErrSchemaRead, table)
	case db.Classify(err) == db.KindUndefinedTable:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("read schema version: %w", err)
	}
}

func quoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
