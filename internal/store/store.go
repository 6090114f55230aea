// Package store persists user data as flat JSON files, one file per
// concern. The write pattern is load-modify-overwrite under a mutex;
// the data volumes here (a handful of users, their favorites and watch
// history) never justify a database.
package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/afero"
)

type fileStore struct {
	fs  afero.Fs
	dir string
	mu  sync.Mutex
	log *slog.Logger
}

func newFileStore(fs afero.Fs, dir, component string) fileStore {
	return fileStore{
		fs:  fs,
		dir: dir,
		log: slog.Default().With("component", component),
	}
}

// load reads one JSON file into v. A missing file is not an error; v is
// left at its zero value.
func (s *fileStore) load(name string, v interface{}) error {
	raw, err := afero.ReadFile(s.fs, filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode %s: %w", name, err)
	}
	return nil
}

// save overwrites one JSON file via tmp+rename.
func (s *fileStore) save(name string, v interface{}) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := s.fs.Rename(tmp, path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to finalize %s: %w", name, err)
	}
	return nil
}
