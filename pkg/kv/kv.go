// Package kv provides the opaque key-value slots gemchat persists its state into.
//
// A Store is deliberately small: values are strings, keys are strings, and every
// call is synchronous. The conversation store writes its whole session into a
// single slot, the UI preferences live in a handful of independent slots.
package kv

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// Store is a synchronous string-keyed slot store.
type Store interface {
	// Get returns the value stored under key. found is false if the slot was never written.
	Get(key string) (value string, found bool, err error)
	// Set replaces the value stored under key.
	Set(key string, value string) error
	Close() error
}

type Backend string

const (
	BackendFile   Backend = "file"
	BackendSQLite Backend = "sqlite"
	BackendDuckDB Backend = "duckdb"
	BackendMemory Backend = "memory"
)

// Settings selects and locates a backend.
type Settings struct {
	Backend Backend `yaml:"backend" mapstructure:"backend"`
	// Path is a directory for the file backend, a database file for sqlite and duckdb.
	// An empty path resolves to DefaultPath(Backend).
	Path string `yaml:"path" mapstructure:"path"`
}

// Open constructs the backend described by settings.
func Open(settings Settings) (Store, error) {
	backend := Backend(strings.ToLower(strings.TrimSpace(string(settings.Backend))))
	if backend == "" {
		backend = BackendFile
	}

	path := settings.Path
	if path == "" && backend != BackendMemory {
		var err error
		path, err = DefaultPath(backend)
		if err != nil {
			return nil, err
		}
	}

	switch backend {
	case BackendFile:
		return NewFileStore(path)
	case BackendSQLite:
		if err := ensureParentDir(path); err != nil {
			return nil, err
		}
		return NewSQLiteStore(path)
	case BackendDuckDB:
		if err := ensureParentDir(path); err != nil {
			return nil, err
		}
		return NewDuckDBStore(path)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, errors.Errorf("unknown storage backend %q", settings.Backend)
	}
}

// DefaultPath returns the location used when no explicit path is configured.
func DefaultPath(backend Backend) (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		// fallback to current directory if home dir cannot be determined
		homeDir = "."
	}
	root := filepath.Join(homeDir, ".gemchat")

	switch backend {
	case BackendFile, "":
		return filepath.Join(root, "state"), nil
	case BackendSQLite:
		return filepath.Join(root, "gemchat.db"), nil
	case BackendDuckDB:
		return filepath.Join(root, "gemchat.duckdb"), nil
	case BackendMemory:
		return "", nil
	default:
		return "", errors.Errorf("unknown storage backend %q", backend)
	}
}

func ensureParentDir(path string) error {
	if path == ":memory:" || strings.HasPrefix(path, "file:") {
		return nil
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return errors.Wrapf(err, "failed to create storage directory %s", dir)
	}
	return nil
}
