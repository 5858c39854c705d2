package kv

import (
	"net/url"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// FileStore keeps one file per slot under a directory.
//
// Layout:
//
//	<dir>/<escaped key>.slot
//
// Writes go to a temp file first and are renamed into place, so a crash never
// leaves a half-written slot behind.
type FileStore struct {
	dir string
}

var _ Store = (*FileStore)(nil)

func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, errors.New("file store: directory is empty")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, errors.Wrap(err, "file store: failed to create directory")
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) slotPath(key string) string {
	return filepath.Join(f.dir, url.PathEscape(key)+".slot")
}

func (f *FileStore) Get(key string) (string, bool, error) {
	b, err := os.ReadFile(f.slotPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, errors.Wrapf(err, "file store: failed to read slot %s", key)
	}
	return string(b), true, nil
}

func (f *FileStore) Set(key string, value string) error {
	path := f.slotPath(key)
	tmp, err := os.CreateTemp(f.dir, ".slot-*")
	if err != nil {
		return errors.Wrap(err, "file store: failed to create temp file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return errors.Wrapf(err, "file store: failed to write slot %s", key)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrapf(err, "file store: failed to close slot %s", key)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return errors.Wrapf(err, "file store: failed to save slot %s", key)
	}

	log.Trace().Str("key", key).Int("bytes", len(value)).Msg("slot written")
	return nil
}

func (f *FileStore) Close() error {
	return nil
}
