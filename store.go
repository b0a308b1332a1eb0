package catacombs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// BackupInterval is how often LocalStore.BackupIfDue writes a backup.
const BackupInterval = 10 * time.Minute

// ErrCorruptStore is logged when a store file exists but cannot be decoded.
var ErrCorruptStore = errors.New("catacombs: store file is corrupt")

// LocalStore is a JSON file holding a value of type T. Values decoded from
// disk are merged over the defaults. The file falls back to a copy in the
// backup directory; when neither decodes the defaults are used and a warning
// is logged.
type LocalStore[T any] struct {
	path       string
	backupPath string
	log        logrus.FieldLogger

	mu         sync.Mutex
	value      T
	lastBackup time.Time
}

// OpenLocalStore loads name from dir, falling back to backupDir. backupDir
// may be empty.
func OpenLocalStore[T any](dir, backupDir, name string, defaults func() T, log logrus.FieldLogger) *LocalStore[T] {
	s := &LocalStore[T]{
		path: filepath.Join(dir, name),
		log:  log,
	}
	if backupDir != "" {
		s.backupPath = filepath.Join(backupDir, name)
	}
	s.value = s.read(defaults)
	return s
}

func (s *LocalStore[T]) read(defaults func() T) T {
	primary, perr := decodeStoreFile(s.path, defaults)
	if perr == nil {
		return primary
	}

	if s.backupPath != "" {
		backup, berr := decodeStoreFile(s.backupPath, defaults)
		if berr == nil {
			if !errors.Is(perr, fs.ErrNotExist) {
				s.log.WithError(perr).WithField("path", s.path).Warn("catacombs: store unreadable, restored from backup")
			}
			return backup
		}
	}

	if errors.Is(perr, ErrCorruptStore) {
		s.log.WithError(perr).WithField("path", s.path).Warn("catacombs: store was corrupted and has been reset")
	}
	return defaults()
}

func decodeStoreFile[T any](path string, defaults func() T) (T, error) {
	v := defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return v, err
	}
	if len(raw) == 0 {
		return v, fmt.Errorf("%w: %s is empty", ErrCorruptStore, path)
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return defaults(), fmt.Errorf("%w: %s: %v", ErrCorruptStore, path, err)
	}
	return v, nil
}

// Path returns the primary file path.
func (s *LocalStore[T]) Path() string { return s.path }

// Get returns the current value.
func (s *LocalStore[T]) Get() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Update changes the value in place. It does not save.
func (s *LocalStore[T]) Update(fn func(*T)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.value)
}

// Save writes the value to the primary file.
func (s *LocalStore[T]) Save() error {
	raw, err := s.encode()
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, raw)
}

// Backup writes the value to the backup file.
func (s *LocalStore[T]) Backup() error {
	if s.backupPath == "" {
		return nil
	}
	raw, err := s.encode()
	if err != nil {
		return err
	}
	return writeFileAtomic(s.backupPath, raw)
}

// BackupIfDue writes a backup when none was written in the last
// BackupInterval. It reports whether a backup was written.
func (s *LocalStore[T]) BackupIfDue(now time.Time) (bool, error) {
	s.mu.Lock()
	due := s.lastBackup.IsZero() || now.Sub(s.lastBackup) > BackupInterval
	if due {
		s.lastBackup = now
	}
	s.mu.Unlock()

	if !due {
		return false, nil
	}
	return true, s.Backup()
}

func (s *LocalStore[T]) encode() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	raw, err := json.MarshalIndent(s.value, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("catacombs: encode store %s: %w", s.path, err)
	}
	return raw, nil
}
