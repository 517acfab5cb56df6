package store

import (
	"errors"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	sqlitelib "modernc.org/sqlite/lib"
)

var (
	ErrNotFound            = errors.New("record not found")
	ErrDeleted             = errors.New("record is in the trash")
	ErrNotDeleted          = errors.New("record is not in the trash")
	ErrDuplicate           = errors.New("record already exists")
	ErrUnsupportedDatabase = errors.New("unsupported database type")
)

// isUniqueViolation recognises unique constraint failures of every supported driver
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var cgoErr sqlite3.Error
	if errors.As(err, &cgoErr) {
		return cgoErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			cgoErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var pureErr interface{ Code() int }
	if errors.As(err, &pureErr) {
		code := pureErr.Code()
		return code == sqlitelib.SQLITE_CONSTRAINT_UNIQUE || code == sqlitelib.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
