package db

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/require"
)

func TestClassifyMySQLErrors(t *testing.T) {
	cases := []struct {
		number uint16
		want   Kind
	}{
		{1146, KindUndefinedTable},
		{1062, KindDuplicateEntry},
		{1045, KindAccessDenied},
		{1044, KindAccessDenied},
		{1049, KindUnknownDatabase},
		{1054, KindOther},
	}
	for _, tc := range cases {
		err := &mysql.MySQLError{Number: tc.number, Message: "boom"}
		require.Equal(t, tc.want, Classify(err), "error number %d", tc.number)
	}
}

func TestClassifyWrappedError(t *testing.T) {
	err := fmt.Errorf("read schema version: %w", &mysql.MySQLError{Number: 1146})
	require.Equal(t, KindUndefinedTable, Classify(err))
}

func TestClassifyConnectionErrors(t *testing.T) {
	require.Equal(t, KindConnection, Classify(&net.OpError{Op: "dial", Err: errors.New("refused")}))
	require.Equal(t, KindConnection, Classify(driver.ErrBadConn))
	require.Equal(t, KindConnection, Classify(mysql.ErrInvalidConn))
}

func TestClassifyOther(t *testing.T) {
	require.Equal(t, KindOther, Classify(nil))
	require.Equal(t, KindOther, Classify(errors.New("something else")))
}
