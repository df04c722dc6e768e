package lifecycle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
)

// ScriptRunner executes SQL against the target database outside of a
// tracked session. sqlexec.Client implements it.
type ScriptRunner interface {
	RunFile(ctx context.Context, path string) error
	DropDatabase(ctx context.Context) error
	CreateDatabase(ctx context.Context) error
}

// Confirmer gates destructive operations behind an operator prompt.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// Manager sequences schema lifecycle operations for one database. Every
// operation acquires its own connection and releases it when done.
type Manager struct {
	registry      *Registry
	connect       ConnectFunc
	scripts       ScriptRunner
	confirm       Confirmer
	metadataTable string
	schemaFile    string
	logger        *slog.Logger
}

func NewManager(registry *Registry, connect ConnectFunc, scripts ScriptRunner, confirm Confirmer, metadataTable, schemaFile string, logger *slog.Logger) *Manager {
	return &Manager{
		registry:      registry,
		connect:       connect,
		scripts:       scripts,
		confirm:       confirm,
		metadataTable: metadataTable,
		schemaFile:    schemaFile,
		logger:        logger,
	}
}

// CurrentVersion reports the installed schema version, if any.
func (m *Manager) CurrentVersion(ctx context.Context) (SchemaVersion, bool, error) {
	return CurrentVersion(ctx, m.connect, m.metadataTable)
}

// InstallSchema replaces the database wholesale: drop if present, create,
// then execute the base schema file. The schema file is responsible for
// writing the initial metadata version row.
func (m *Manager) InstallSchema(ctx context.Context) error {
	if m.schemaFile == "" {
		return fmt.Errorf("no schema file configured")
	}
	log := m.logger.With("op", "install-schema", "op_id", uuid.NewString())
	log.Warn("replacing database; any existing data will be lost")

	if err := m.scripts.DropDatabase(ctx); err != nil {
		return fmt.Errorf("drop previous database: %w", err)
	}
	log.Info("creating database")
	if err := m.scripts.CreateDatabase(ctx); err != nil {
		return fmt.Errorf("create database: %w", err)
	}
	if err := m.scripts.RunFile(ctx, m.schemaFile); err != nil {
		return fmt.Errorf("install base schema: %w", err)
	}
	log.Info("schema installed", "schema_file", m.schemaFile)
	return nil
}

// Upgrade migrates all data to the target version, replacing the source
// version's structures. Target defaults to the latest registered version.
func (m *Manager) Upgrade(ctx context.Context, target SchemaVersion) error {
	return m.migrate(ctx, CapUpgrade, target)
}

// Overlay installs the target version's structures alongside the current
// ones so both versions stay servable until a later trim.
func (m *Manager) Overlay(ctx context.Context, target SchemaVersion) error {
	return m.migrate(ctx, CapOverlay, target)
}

func (m *Manager) migrate(ctx context.Context, op Capability, target SchemaVersion) error {
	current, installed, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	if !installed {
		return fmt.Errorf("%w; install one with install-schema", ErrNoSchemaInstalled)
	}
	if target == "" {
		target = m.registry.Latest()
	}
	if target == current {
		return fmt.Errorf("%w: %s", ErrAlreadyAtVersion, current)
	}
	module, err := m.registry.Resolve(target)
	if err != nil {
		return err
	}
	proc, err := Require(module, op)
	if err != nil {
		return err
	}

	log := m.logger.With("op", string(op), "op_id", uuid.NewString(), "from", string(current), "to", string(target))
	log.Info("dispatching migration")

	conn, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := proc(ctx, conn, current); err != nil {
		return fmt.Errorf("%s to version %s: %w", op, target, err)
	}
	log.Info("migration finished")
	return nil
}

// Trim irreversibly removes data belonging to an obsolete version. The
// reference version defaults to the installed one and the trim version to
// the reference module's declared previous version. The operator must
// confirm before anything runs; a negative answer abandons the operation
// with no side effects.
func (m *Manager) Trim(ctx context.Context, reference, trim SchemaVersion) error {
	if reference == "" {
		current, installed, err := m.CurrentVersion(ctx)
		if err != nil {
			return err
		}
		if !installed {
			return fmt.Errorf("%w", ErrNoSchemaInstalled)
		}
		reference = current
	}
	module, err := m.registry.Resolve(reference)
	if err != nil {
		return err
	}
	proc, err := Require(module, CapTrim)
	if err != nil {
		return err
	}
	if trim == "" {
		trim = module.PreviousVersion
	}

	log := m.logger.With("op", "trim", "op_id", uuid.NewString(), "reference", string(reference), "trim", string(trim))

	ok, err := m.confirm.Confirm("Trim is a destructive and irreversible operation. Are you sure you want to proceed?")
	if err != nil {
		return err
	}
	if !ok {
		log.Info("trim not performed")
		return nil
	}

	conn, err := m.connect(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := proc(ctx, conn, trim); err != nil {
		return fmt.Errorf("trim version %s: %w", trim, err)
	}
	log.Info("trim finished")
	return nil
}

// ExecuteScript runs an arbitrary SQL file against the configured
// database through the script runner.
func (m *Manager) ExecuteScript(ctx context.Context, path string) error {
	return m.scripts.RunFile(ctx, path)
}

// CheckVersion verifies the installed schema version is the registry's
// latest. Applications call this at startup before serving traffic.
func (m *Manager) CheckVersion(ctx context.Context) error {
	current, installed, err := m.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	if !installed {
		return fmt.Errorf("%w", ErrNoSchemaInstalled)
	}
	if expected := m.registry.Latest(); current != expected {
		return fmt.Errorf("%w: installed %s, expected %s", ErrVersionMismatch, current, expected)
	}
	return nil
}
