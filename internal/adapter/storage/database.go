package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations
var migrations embed.FS

type Options struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Migrate         bool
}

// Open connects to the configured database and, when asked, applies the embedded migrations.
func Open(ctx context.Context, opts Options) (*sql.DB, Dialect, error) {
	dialect, err := DialectFor(opts.Driver)
	if err != nil {
		return nil, Dialect{}, err
	}

	dsn := opts.DSN
	if dialect.Name == SQLite.Name {
		dsn = SQLiteDSN(dsn)
	}

	db, err := sql.Open(dialect.Driver, dsn)
	if err != nil {
		return nil, Dialect{}, fmt.Errorf("open db: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, Dialect{}, fmt.Errorf("ping db: %w", err)
	}

	if opts.Migrate {
		if err := Migrate(ctx, db, dialect); err != nil {
			db.Close()
			return nil, Dialect{}, fmt.Errorf("run migrations: %w", err)
		}
	}

	return db, dialect, nil
}

func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect(dialect.Goose); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations/"+dialect.Name); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	return nil
}

// SQLiteDSN turns a file path into a DSN where every transaction starts with BEGIN IMMEDIATE
// and a held write lock fails at once with SQLITE_BUSY instead of waiting.
func SQLiteDSN(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(0)&_txlock=immediate"
}
