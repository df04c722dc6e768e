package db

import (
	"database/sql/driver"
	"errors"
	"net"

	"github.com/go-sql-driver/mysql"
)

// Kind is an engine-agnostic classification of driver errors. Callers
// branch on kinds instead of MySQL error numbers.
type Kind int

const (
	KindOther Kind = iota
	KindConnection
	KindAccessDenied
	KindUnknownDatabase
	KindUndefinedTable
	KindDuplicateEntry
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindAccessDenied:
		return "access denied"
	case KindUnknownDatabase:
		return "unknown database"
	case KindUndefinedTable:
		return "undefined table"
	case KindDuplicateEntry:
		return "duplicate entry"
	default:
		return "other"
	}
}

// Classify maps a driver error into a semantic kind.
func Classify(err error) Kind {
	if err == nil {
		return KindOther
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case 1146: // ER_NO_SUCH_TABLE
			return KindUndefinedTable
		case 1062: // ER_DUP_ENTRY
			return KindDuplicateEntry
		case 1044, 1045: // ER_DBACCESS_DENIED_ERROR, ER_ACCESS_DENIED_ERROR
			return KindAccessDenied
		case 1049: // ER_BAD_DB_ERROR
			return KindUnknownDatabase
		}
		return KindOther
	}
	var netErr net.Error
	if errors.As(err, &netErr) ||
		errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, mysql.ErrInvalidConn) {
		return KindConnection
	}
	return KindOther
}
