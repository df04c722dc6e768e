package lifecycle

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

func mockConnect(t *testing.T) (ConnectFunc, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	connect := func(ctx context.Context) (Conn, error) {
		return mockDB, nil
	}
	return connect, mock
}

func TestCurrentVersionInstalled(t *testing.T) {
	connect, mock := mockConnect(t)
	mock.ExpectQuery("SELECT value FROM `metadata`").
		WithArgs("version").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("3"))
	mock.ExpectClose()

	version, installed, err := CurrentVersion(context.Background(), connect, "metadata")
	require.NoError(t, err)
	require.True(t, installed)
	require.Equal(t, SchemaVersion("3"), version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCurrentVersionNoSchema(t *testing.T) {
	connect, mock := mockConnect(t)
	mock.ExpectQuery("SELECT value FROM `metadata`").
		WillReturnError(&mysql.MySQLError{Number: 1146, Message: "Table 'app.metadata' doesn't exist"})
	mock.ExpectClose()

	_, installed, err := CurrentVersion(context.Background(), connect, "metadata")
	require.NoError(t, err)
	require.False(t, installed)
}

func TestCurrentVersionMissingRow(t *testing.T) {
	connect, mock := mockConnect(t)
	mock.ExpectQuery("SELECT value FROM `metadata`").
		WillReturnRows(sqlmock.NewRows([]string{"value"}))
	mock.ExpectClose()

	_, _, err := CurrentVersion(context.Background(), connect, "metadata")
	require.ErrorIs(t, err, ErrSchemaRead)
}

func TestCurrentVersionOtherErrorPropagates(t *testing.T) {
	connect, mock := mockConnect(t)
	mock.ExpectQuery("SELECT value FROM `metadata`").
		WillReturnError(&mysql.MySQLError{Number: 1045, Message: "access denied"})
	mock.ExpectClose()

	_, _, err := CurrentVersion(context.Background(), connect, "metadata")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrSchemaRead)
}

func TestCurrentVersionCustomTableQuoting(t *testing.T) {
	connect, mock := mockConnect(t)
	mock.ExpectQuery("SELECT value FROM `app_meta`").
		WithArgs("version").
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("1"))
	mock.ExpectClose()

	version, installed, err := CurrentVersion(context.Background(), connect, "app_meta")
	require.NoError(t, err)
	require.True(t, installed)
	require.Equal(t, SchemaVersion("1"), version)
}
