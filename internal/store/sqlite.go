// ABOUTME: SQLite implementation of the store interfaces with goose-managed schema
// ABOUTME: Supports the modernc (pure Go) and mattn (cgo) drivers behind one type

package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// Driver names accepted by NewSQLiteStore.
const (
	DriverModernc = "sqlite"
	DriverMattn   = "sqlite3"
)

// timeLayout is fixed-width so TEXT ordering matches chronological ordering.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its base FS and dialect in package state.
var gooseMu sync.Mutex

// SQLiteStore implements AccountStore, RecordStore and AuditStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (creating if needed) the database at path using the
// named driver, applies pending migrations and returns a ready store.
// Parent directories are created if needed.
func NewSQLiteStore(ctx context.Context, driver, path string, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "store")

	if driver == "" {
		driver = DriverModernc
	}
	dsn, err := buildDSN(driver, path)
	if err != nil {
		return nil, err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %v", ErrStorageUnavailable, err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	// One writer connection; WAL still lets readers proceed.
	db.SetMaxOpenConns(1)

	logger.Info("SQLite store initialized", "path", path, "driver", driver)
	return newWithDB(db, logger), nil
}

// newWithDB wraps an already-open, already-migrated database.
func newWithDB(db *sql.DB, logger *slog.Logger) *SQLiteStore {
	return &SQLiteStore{db: db, logger: logger}
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}

// buildDSN attaches the pragmas each driver understands to the file path.
func buildDSN(driver, path string) (string, error) {
	if path == "" {
		return "", errors.New("database path is required")
	}
	switch driver {
	case DriverModernc:
		return path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", nil
	case DriverMattn:
		return path + "?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", driver)
	}
}

func migrate(ctx context.Context, db *sql.DB) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("setting goose dialect: %w", err)
	}
	return goose.UpContext(ctx, db, "migrations")
}

// dbtx is the subset of database/sql shared by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on error or panic.
func (s *SQLiteStore) withTx(ctx context.Context, fn func(tx dbtx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	return fn(tx)
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

// isUniqueConstraintError checks if an error is a unique constraint violation.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isForeignKeyError checks if an error is a foreign key violation.
func isForeignKeyError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// normalizeEmail is the canonical form used for storage and lookup.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
