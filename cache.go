package catacombs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// fileCache stores a fetched document next to the time it was saved.
type fileCache struct {
	path string
}

// cacheEnvelope is the on-disk format of a cached document.
type cacheEnvelope struct {
	Data json.RawMessage `json:"data"`
	// SavedAt is the unix time in milliseconds.
	SavedAt int64 `json:"savedAt"`
}

// load returns the cached document and the time it was saved. A missing file
// returns nil data and no error.
func (c *fileCache) load() ([]byte, time.Time, error) {
	raw, err := os.ReadFile(c.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("catacombs: read cache %s: %w", c.path, err)
	}

	var env cacheEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, time.Time{}, fmt.Errorf("catacombs: decode cache %s: %w", c.path, err)
	}
	if len(env.Data) == 0 || env.SavedAt == 0 {
		return nil, time.Time{}, nil
	}
	return env.Data, time.UnixMilli(env.SavedAt), nil
}

// save writes data with the given save time.
func (c *fileCache) save(data []byte, at time.Time) error {
	raw, err := json.Marshal(cacheEnvelope{Data: data, SavedAt: at.UnixMilli()})
	if err != nil {
		return fmt.Errorf("catacombs: encode cache: %w", err)
	}
	return writeFileAtomic(c.path, raw)
}

// writeFileAtomic writes data to a temporary file in the target directory and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("catacombs: create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("catacombs: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("catacombs: write %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("catacombs: close %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("catacombs: rename %s: %w", tmpName, err)
	}
	return nil
}
