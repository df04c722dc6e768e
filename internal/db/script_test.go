package db

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func TestSplitStatements(t *testing.T) {
	stmts := splitStatements(`
CREATE TABLE t (id int);
INSERT INTO t VALUES (1);
`)
	require.Equal(t, []string{"CREATE TABLE t (id int)", "INSERT INTO t VALUES (1)"}, stmts)
}

func TestSplitStatementsRespectsQuotes(t *testing.T) {
	stmts := splitStatements(`INSERT INTO t VALUES ('a;b'); UPDATE t SET v = "x;y";`)
	require.Equal(t, []string{
		`INSERT INTO t VALUES ('a;b')`,
		`UPDATE t SET v = "x;y"`,
	}, stmts)
}

func TestSplitStatementsEmpty(t *testing.T) {
	require.Empty(t, splitStatements("  \n ; ; \n"))
}

func TestExecScript(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	mock.ExpectExec("^" + regexp.QuoteMeta("CREATE TABLE t (id int)") + "$").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("^" + regexp.QuoteMeta("INSERT INTO t VALUES (1)") + "$").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = ExecScript(context.Background(), mockDB, "CREATE TABLE t (id int);\nINSERT INTO t VALUES (1);")
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestExecScriptStopsOnError(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	boom := errors.New("syntax error")
	mock.ExpectExec(".*").WillReturnError(boom)

	err = ExecScript(context.Background(), mockDB, "BAD SQL; INSERT INTO t VALUES (1);")
	require.ErrorIs(t, err, boom)
	require.NoError(t, mock.ExpectationsWereMet())
}
