package storage

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// MySQL error numbers
const (
	mysqlErrDupEntry        = 1062
	mysqlErrLockWaitTimeout = 1205
	mysqlErrLockNowait      = 3572
)

// PostgreSQL error codes
const (
	pgErrUniqueViolation  = "23505"
	pgErrLockNotAvailable = "55P03"
)

// Dialect captures what differs between the supported databases.
type Dialect struct {
	Name   string
	Driver string
	Goose  string
	// LockStmt takes the claim lock inside an open transaction, empty when BeginTx already does
	LockStmt  string
	Returning bool
	IsLocked  func(error) bool
	IsUnique  func(error) bool
}

var MySQL = Dialect{
	Name:     "mysql",
	Driver:   "mysql",
	Goose:    "mysql",
	LockStmt: `SELECT name FROM allocation_locks WHERE name = 'cart_assignments' FOR UPDATE NOWAIT`,
	IsLocked: func(err error) bool {
		var me *mysql.MySQLError
		return errors.As(err, &me) && (me.Number == mysqlErrLockNowait || me.Number == mysqlErrLockWaitTimeout)
	},
	IsUnique: func(err error) bool {
		var me *mysql.MySQLError
		return errors.As(err, &me) && me.Number == mysqlErrDupEntry
	},
}

var Postgres = Dialect{
	Name:      "postgres",
	Driver:    "pgx",
	Goose:     "postgres",
	LockStmt:  `LOCK TABLE cart_assignments IN EXCLUSIVE MODE NOWAIT`,
	Returning: true,
	IsLocked: func(err error) bool {
		var pe *pgconn.PgError
		return errors.As(err, &pe) && pe.Code == pgErrLockNotAvailable
	},
	IsUnique: func(err error) bool {
		var pe *pgconn.PgError
		return errors.As(err, &pe) && pe.Code == pgErrUniqueViolation
	},
}

// SQLite takes the write lock at BEGIN IMMEDIATE (see SQLiteDSN).
var SQLite = Dialect{
	Name:   "sqlite",
	Driver: "sqlite",
	Goose:  "sqlite3",
	IsLocked: func(err error) bool {
		var se *sqlite.Error
		if !errors.As(err, &se) {
			return false
		}
		code := se.Code() & 0xff
		return code == sqlite3.SQLITE_BUSY || code == sqlite3.SQLITE_LOCKED
	},
	IsUnique: func(err error) bool {
		var se *sqlite.Error
		if !errors.As(err, &se) {
			return false
		}
		return se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE ||
			(se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(se.Error(), "UNIQUE"))
	},
}

func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case "mysql":
		return MySQL, nil
	case "postgres", "postgresql", "pgx":
		return Postgres, nil
	case "sqlite", "sqlite3":
		return SQLite, nil
	}
	return Dialect{}, fmt.Errorf("unsupported database driver %q", name)
}

// Rebind rewrites ? placeholders into the dialect's form.
func (d Dialect) Rebind(query string) string {
	if d.Name != Postgres.Name {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}

func stringArgs[T ~string](values []T) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = string(v)
	}
	return args
}
