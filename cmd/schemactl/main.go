package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"db_schema_lifecycle/internal/config"
	"db_schema_lifecycle/internal/db"
	"db_schema_lifecycle/internal/fixture"
	"db_schema_lifecycle/internal/lifecycle"
	"db_schema_lifecycle/internal/logging"
	"db_schema_lifecycle/internal/sqlexec"
	"db_schema_lifecycle/internal/versions"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}
	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "execute":
		if err := executeCmd(args); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "install-schema":
		if err := installSchemaCmd(args); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "install-fixture":
		if err := installFixtureCmd(args); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "import-data":
		if err := importDataCmd(args); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "get-schema-version":
		if err := getSchemaVersionCmd(args); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "check-version":
		if err := checkVersionCmd(args); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "upgrade":
		if err := upgradeCmd(args); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "overlay":
		if err := overlayCmd(args); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	case "trim":
		if err := trimCmd(args); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %s\n", cmd)
		usage()
		os.Exit(1)
	}
}

func usage() {
	fmt.Println(`schemactl commands:
  execute <path>          - run a SQL file against the configured database
  install-schema          - wipe the database and install the base schema
  install-fixture <path>  - reinstall the schema, then load a fixture
  import-data <path>      - load a fixture into the existing database
  get-schema-version      - print the installed schema version
  check-version           - verify the installed version is the latest
  upgrade                 - migrate all data to a target version
  overlay                 - install a target version alongside the current one
  trim                    - remove an obsolete version's data (irreversible)

Connection settings come from SCHEMACTL_* environment variables (or .env).
Flags are command specific; run "<cmd> -h" for details.`)
}

// toolkit bundles the components every subcommand needs, built once from
// the environment.
type toolkit struct {
	cfg     config.Config
	logger  *slog.Logger
	manager *lifecycle.Manager
}

func newToolkit() (*toolkit, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := logging.NewLogger(cfg.LogLevel)
	registry, err := versions.Registry()
	if err != nil {
		return nil, err
	}
	scripts := sqlexec.NewClient(cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.DBName, logger)
	factory := db.NewFactory(cfg.DB)
	connect := func(ctx context.Context) (lifecycle.Conn, error) {
		return factory(ctx)
	}
	manager := lifecycle.NewManager(registry, connect, scripts, stdinPrompt{}, cfg.MetadataTable, cfg.DB.SchemaFile, logger)
	return &toolkit{cfg: cfg, logger: logger, manager: manager}, nil
}

func executeCmd(args []string) error {
	fs := flagSet("execute")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path := fs.Arg(0)
	if path == "" {
		return fmt.Errorf("usage: execute <path>")
	}
	tk, err := newToolkit()
	if err != nil {
		return err
	}
	if err := tk.manager.ExecuteScript(context.Background(), path); err != nil {
		return err
	}
	fmt.Println("Executed", path)
	return nil
}

func installSchemaCmd(args []string) error {
	fs := flagSet("install-schema")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tk, err := newToolkit()
	if err != nil {
		return err
	}
	fmt.Printf("Warning: this will wipe out any existing database %q!\n", tk.cfg.DB.DBName)
	if err := tk.manager.InstallSchema(context.Background()); err != nil {
		return err
	}
	fmt.Println("Schema installed.")
	return nil
}

func installFixtureCmd(args []string) error {
	fs := flagSet("install-fixture")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path := fs.Arg(0)
	if path == "" {
		return fmt.Errorf("usage: install-fixture <path>")
	}
	tk, err := newToolkit()
	if err != nil {
		return err
	}
	fmt.Printf("Warning: this will wipe out any existing database %q!\n", tk.cfg.DB.DBName)
	if err := tk.manager.InstallSchema(context.Background()); err != nil {
		return err
	}
	return loadFixture(tk, path, false)
}

func importDataCmd(args []string) error {
	fs := flagSet("import-data")
	ignoreConflicts := fs.Bool("ignore-conflicts", false, "skip rows that violate uniqueness constraints")
	if err := fs.Parse(args); err != nil {
		return err
	}
	path := fs.Arg(0)
	if path == "" {
		return fmt.Errorf("usage: import-data <path> [--ignore-conflicts]")
	}
	tk, err := newToolkit()
	if err != nil {
		return err
	}
	return loadFixture(tk, path, *ignoreConflicts)
}

func loadFixture(tk *toolkit, path string, ignoreConflicts bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read fixture: %w", err)
	}
	doc, err := fixture.Parse(data)
	if err != nil {
		return err
	}

	ctx := context.Background()
	conn, err := db.Open(ctx, tk.cfg.DB)
	if err != nil {
		return err
	}
	defer conn.Close()

	installer := fixture.NewInstaller(tk.logger, stdinPrompt{})
	if err := installer.Install(ctx, conn, doc, fixture.Options{IgnoreConflicts: ignoreConflicts}); err != nil {
		return err
	}
	fmt.Println("Fixture loaded from", path)
	return nil
}

func getSchemaVersionCmd(args []string) error {
	fs := flagSet("get-schema-version")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tk, err := newToolkit()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	version, installed, err := tk.manager.CurrentVersion(ctx)
	if err != nil {
		return err
	}
	if !installed {
		fmt.Println("no schema installed")
		return nil
	}
	fmt.Println(version)
	return nil
}

func checkVersionCmd(args []string) error {
	fs := flagSet("check-version")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tk, err := newToolkit()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := tk.manager.CheckVersion(ctx); err != nil {
		return err
	}
	fmt.Println("Installed schema version is up to date.")
	return nil
}

func upgradeCmd(args []string) error {
	fs := flagSet("upgrade")
	target := fs.String("target-version", "", "target version (default: latest registered version)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tk, err := newToolkit()
	if err != nil {
		return err
	}
	if err := tk.manager.Upgrade(context.Background(), lifecycle.SchemaVersion(*target)); err != nil {
		return err
	}
	fmt.Println("Upgrade complete.")
	return nil
}

func overlayCmd(args []string) error {
	fs := flagSet("overlay")
	target := fs.String("target-version", "", "target version (default: latest registered version)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tk, err := newToolkit()
	if err != nil {
		return err
	}
	if err := tk.manager.Overlay(context.Background(), lifecycle.SchemaVersion(*target)); err != nil {
		return err
	}
	fmt.Println("Overlay complete.")
	return nil
}

func trimCmd(args []string) error {
	fs := flagSet("trim")
	reference := fs.String("reference-version", "", "reference version (default: installed version)")
	trim := fs.String("trim-version", "", "obsolete version to remove (default: reference module's previous version)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	tk, err := newToolkit()
	if err != nil {
		return err
	}
	if err := tk.manager.Trim(context.Background(), lifecycle.SchemaVersion(*reference), lifecycle.SchemaVersion(*trim)); err != nil {
		return err
	}
	return nil
}

// stdinPrompt is the interactive confirmation gate.
type stdinPrompt struct{}

func (stdinPrompt) Confirm(prompt string) (bool, error) {
	reader := bufio.NewReader(os.Stdin)
	fmt.Print(prompt + " (y/n): ")
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			return false, err
		}
		switch strings.TrimSpace(line) {
		case "y":
			return true, nil
		case "n":
			return false, nil
		}
		fmt.Print("Please type y or n: ")
	}
}

func (stdinPrompt) Acknowledge(prompt string) error {
	fmt.Print(prompt)
	if _, err := bufio.NewReader(os.Stdin).ReadString('\n'); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stdout)
	return fs
}
