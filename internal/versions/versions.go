// Package versions holds the statically registered schema version
// modules for the application whose database schemactl manages. Each
// module's migration steps ship as embedded SQL executed over the
// operation's scoped connection.
package versions

import (
	"context"
	"embed"
	"fmt"

	"db_schema_lifecycle/internal/db"
	"db_schema_lifecycle/internal/lifecycle"
)

//go:embed sql/*.sql
var files embed.FS

// Registry builds the ordered version catalog. Version 1 is the base
// schema installed by install-schema; version 2 can be reached by full
// upgrade or by overlay, and trims version 1 once it is obsolete.
func Registry() (*lifecycle.Registry, error) {
	return lifecycle.NewRegistry(
		lifecycle.Module{Version: "1"},
		lifecycle.Module{
			Version:         "2",
			PreviousVersion: "1",
			Upgrade:         fromVersion("1", "sql/v2_upgrade.sql"),
			Overlay:         fromVersion("1", "sql/v2_overlay.sql"),
			Trim:            trimVersion("1", "sql/v2_trim.sql"),
		},
	)
}

// fromVersion runs an embedded migration script after checking the
// source version the script was written against.
func fromVersion(expected lifecycle.SchemaVersion, name string) lifecycle.ModuleFunc {
	return func(ctx context.Context, conn lifecycle.Conn, from lifecycle.SchemaVersion) error {
		if from != expected {
			return fmt.Errorf("script %s migrates from version %s, not %s", name, expected, from)
		}
		return runScript(ctx, conn, name)
	}
}

func trimVersion(expected lifecycle.SchemaVersion, name string) lifecycle.ModuleFunc {
	return func(ctx context.Context, conn lifecycle.Conn, trim lifecycle.SchemaVersion) error {
		if trim != expected {
			return fmt.Errorf("script %s trims version %s, not %s", name, expected, trim)
		}
		return runScript(ctx, conn, name)
	}
}

func runScript(ctx context.Context, conn lifecycle.Conn, name string) error {
	body, err := files.ReadFile(name)
	if err != nil {
		return fmt.Errorf("read embedded script %s: %w", name, err)
	}
	if err := db.ExecScript(ctx, conn, string(body)); err != nil {
		return fmt.Errorf("run %s: %w", name, err)
	}
	return nil
}
