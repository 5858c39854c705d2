package kv

import (
	"database/sql"
	"strings"

	_ "github.com/marcboeker/go-duckdb"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

// SQLStore keeps slots in a single two-column table. SQLite and DuckDB share the
// same statements.
type SQLStore struct {
	db     *sql.DB
	driver string
}

var _ Store = (*SQLStore)(nil)

// NewSQLiteStore opens (or creates) a SQLite database at dsn.
func NewSQLiteStore(dsn string) (*SQLStore, error) {
	return newSQLStore("sqlite3", dsn)
}

// NewDuckDBStore opens (or creates) a DuckDB database at path. An empty path is an
// in-memory database.
func NewDuckDBStore(path string) (*SQLStore, error) {
	return newSQLStore("duckdb", path)
}

func newSQLStore(driver string, dsn string) (*SQLStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open %s database", driver)
	}

	// In-memory databases are per connection, and DuckDB works best with a single one anyway.
	if driver == "duckdb" || dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	s := &SQLStore{db: db, driver: driver}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, errors.Wrapf(err, "failed to migrate %s database", driver)
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`)
	return err
}

func (s *SQLStore) Get(key string) (string, bool, error) {
	var value string
	err := s.db.QueryRow(`SELECT value FROM kv WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "%s store: failed to read slot %s", s.driver, key)
	}
	return value, true, nil
}

func (s *SQLStore) Set(key string, value string) error {
	_, err := s.db.Exec(
		`INSERT INTO kv (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return errors.Wrapf(err, "%s store: failed to write slot %s", s.driver, key)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}
