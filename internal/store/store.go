package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"
	"entgo.io/ent/dialect/sql/schema"

	// Postgres driver for server deployments.
	_ "github.com/lib/pq"
	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// Supported driver names.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store holds the database handle and hands out repositories.
type Store struct {
	db      *sql.DB
	drv     *entsql.Driver
	dialect string
}

// Open connects to the database, applies pragmas for sqlite and runs
// auto-migration.
func Open(driver, dsn string) (*Store, error) {
	var d string
	switch driver {
	case DriverSQLite:
		d = dialect.SQLite
		dsn = withSQLitePragmas(dsn)
	case DriverPostgres:
		d = dialect.Postgres
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if driver == DriverSQLite {
		if err := applyPragmas(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragmas: %w", err)
		}
	}

	s := &Store{
		db:      db,
		drv:     entsql.OpenDB(d, db),
		dialect: d,
	}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("auto-migrate: %w", err)
	}
	return s, nil
}

// OpenSQLite is Open with the sqlite driver.
func OpenSQLite(dsn string) (*Store, error) {
	return Open(DriverSQLite, dsn)
}

func (s *Store) migrate(ctx context.Context) error {
	m, err := schema.NewMigrate(s.drv)
	if err != nil {
		return err
	}
	return m.Create(ctx, Tables...)
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Dialect returns the ent dialect name in use.
func (s *Store) Dialect() string {
	return s.dialect
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.drv.Close()
}

// Questions returns the question repository.
func (s *Store) Questions() QuestionRepo {
	return &questionRepo{s: s}
}

// Answers returns the answer event repository.
func (s *Store) Answers() AnswerRepo {
	return &answerRepo{s: s}
}

// Bookmarks returns the bookmark repository.
func (s *Store) Bookmarks() BookmarkRepo {
	return &bookmarkRepo{s: s}
}

// Accounts returns the account repository.
func (s *Store) Accounts() AccountRepo {
	return &accountRepo{s: s}
}

// Rankings returns the cross-account score repository.
func (s *Store) Rankings() RankingRepo {
	return &rankingRepo{s: s}
}

// Notices returns the notice repository.
func (s *Store) Notices() NoticeRepo {
	return &noticeRepo{s: s}
}

func (s *Store) sql() *entsql.DialectBuilder {
	return entsql.Dialect(s.dialect)
}

// sqlitePragmas are per-connection settings, so they travel in the DSN
// and apply to every pooled connection.
var sqlitePragmas = []string{
	"foreign_keys(1)",
	"busy_timeout(5000)",
	"synchronous(NORMAL)",
}

func withSQLitePragmas(dsn string) string {
	if strings.Contains(dsn, "_pragma=") {
		return dsn
	}
	params := make([]string, len(sqlitePragmas))
	for i, p := range sqlitePragmas {
		params[i] = "_pragma=" + p
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(params, "&")
}

// applyPragmas sets database-level options that persist in the file.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}
