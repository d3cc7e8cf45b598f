package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"

	sq "github.com/Masterminds/squirrel"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStore is the sqlite-backed Store. It always runs against an
// in-memory database, so data lives exactly as long as the process.
type SQLiteStore struct {
	db   *sql.DB
	sql  sq.StatementBuilderType
	opts options
}

var _ Store = (*SQLiteStore)(nil)

func OpenSQLite(ctx context.Context, opts ...Option) (*SQLiteStore, error) {
	o := buildOptions(opts)

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Every new connection to :memory: is a fresh empty database, so the pool
	// is pinned to one connection that is never recycled.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := migrate(ctx, db, o); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteStore{
		db:   db,
		sql:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
		opts: o,
	}, nil
}

func migrate(ctx context.Context, db *sql.DB, o options) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("create migration provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	o.logger.Debug().Int("applied", len(results)).Msg("sqlite schema migrated")
	return nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}
