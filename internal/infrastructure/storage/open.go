package storage

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

//go:embed schema_sqlite.sql schema_postgres.sql
var schemaFS embed.FS

// Dialect captures the per-backend differences the store cares about.
type Dialect struct {
	Name        string
	driver      string
	placeholder sq.PlaceholderFormat
	schemaFile  string
	// SET clause of the statistics upsert; postgres needs the target table qualified.
	incrementSet string
}

var (
	SQLite = Dialect{
		Name:         "sqlite",
		driver:       "sqlite",
		placeholder:  sq.Question,
		schemaFile:   "schema_sqlite.sql",
		incrementSet: "posts_count = posts_count + 1",
	}
	Postgres = Dialect{
		Name:         "postgres",
		driver:       "postgres",
		placeholder:  sq.Dollar,
		schemaFile:   "schema_postgres.sql",
		incrementSet: "posts_count = " + tableStats + ".posts_count + 1",
	}
)

// DialectFor maps a config driver name onto a Dialect.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "sqlite", "sqlite3", "":
		return SQLite, nil
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported database driver %q", name)
	}
}

// Open connects to the configured backend and applies the embedded schema.
func Open(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	dialect, err := DialectFor(driver)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s dsn is required", dialect.Name)
	}

	var db *sql.DB
	switch dialect.Name {
	case SQLite.Name:
		db, err = openSQLite(dsn)
	default:
		db, err = openPostgres(ctx, dsn)
	}
	if err != nil {
		return nil, err
	}

	store := New(db, dialect)
	if err := store.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func openSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open(SQLite.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// single writer keeps upserts serialized
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

func openPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open(Postgres.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}
