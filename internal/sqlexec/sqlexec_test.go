package sqlexec

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

var discardLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func testClient() *Client {
	return NewClient("db.internal", 3307, "app", "secret", "appdb", discardLogger)
}

func TestArgsVector(t *testing.T) {
	c := testClient()

	require.Equal(t, []string{
		"--host=db.internal",
		"--port=3307",
		"--user=app",
		"appdb",
	}, c.args("appdb"))

	// Server-level invocations select no database.
	require.Equal(t, []string{
		"--host=db.internal",
		"--port=3307",
		"--user=app",
	}, c.args(""))
}

func TestPasswordNeverInArgs(t *testing.T) {
	c := testClient()
	for _, arg := range c.args(c.dbName) {
		require.NotContains(t, arg, "secret")
	}
}

func TestQuoteIdent(t *testing.T) {
	require.Equal(t, "`appdb`", quoteIdent("appdb"))
	require.Equal(t, "`odd``name`", quoteIdent("odd`name"))
}

func TestRunReportsExitCode(t *testing.T) {
	c := testClient()
	c.binary = "false"

	err := c.RunStatement(context.Background(), "SELECT 1")
	var scriptErr *ScriptError
	require.ErrorAs(t, err, &scriptErr)
	require.Equal(t, 1, scriptErr.ExitCode)
}

func TestRunMissingBinary(t *testing.T) {
	c := testClient()
	c.binary = "definitely-not-a-mysql-client"

	err := c.RunStatement(context.Background(), "SELECT 1")
	var scriptErr *ScriptError
	require.ErrorAs(t, err, &scriptErr)
	require.Equal(t, -1, scriptErr.ExitCode)
}

func TestRunFileMissingScript(t *testing.T) {
	c := testClient()
	err := c.RunFile(context.Background(), "no/such/file.sql")
	require.ErrorContains(t, err, "open script")
}

func TestScriptErrorMessage(t *testing.T) {
	err := &ScriptError{Path: "patch.sql", ExitCode: 1, Stderr: "ERROR 1064"}
	require.Contains(t, err.Error(), "patch.sql")
	require.Contains(t, err.Error(), "exit code 1")
	require.Contains(t, err.Error(), "ERROR 1064")

	err = &ScriptError{ExitCode: 2}
	require.Contains(t, err.Error(), "statement")
}
