package catacombs

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testSettings struct {
	Volume int      `json:"volume"`
	Names  []string `json:"names"`
	Muted  bool     `json:"muted"`
}

func defaultSettings() testSettings {
	return testSettings{Volume: 50, Names: []string{}}
}

func TestLocalStoreDefaultsWhenMissing(t *testing.T) {
	dir := t.TempDir()
	s := OpenLocalStore(dir, "", "settings.json", defaultSettings, quietLogger())
	if got := s.Get(); got.Volume != 50 || got.Muted {
		t.Fatalf("expected defaults, got %+v", got)
	}
	if s.Path() != filepath.Join(dir, "settings.json") {
		t.Fatalf("unexpected path %s", s.Path())
	}
}

func TestLocalStoreSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	s := OpenLocalStore(dir, "", "settings.json", defaultSettings, quietLogger())
	s.Update(func(v *testSettings) {
		v.Muted = true
		v.Names = append(v.Names, "Alice")
	})
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var onDisk map[string]any
	if err := json.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("saved file is not JSON: %v", err)
	}

	reopened := OpenLocalStore(dir, "", "settings.json", defaultSettings, quietLogger())
	got := reopened.Get()
	if !got.Muted || len(got.Names) != 1 || got.Names[0] != "Alice" || got.Volume != 50 {
		t.Fatalf("unexpected reloaded value %+v", got)
	}
}

func TestLocalStoreMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "settings.json"), []byte(`{"muted": true}`), 0o644); err != nil {
		t.Fatal(err)
	}
	s := OpenLocalStore(dir, "", "settings.json", defaultSettings, quietLogger())
	if got := s.Get(); !got.Muted || got.Volume != 50 {
		t.Fatalf("expected missing keys from the defaults, got %+v", got)
	}
}

func TestLocalStoreCorruptResets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	for _, content := range []string{"", "{not json"} {
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		s := OpenLocalStore(dir, "", "settings.json", defaultSettings, quietLogger())
		if got := s.Get(); got.Volume != 50 || got.Muted {
			t.Fatalf("content %q: expected defaults, got %+v", content, got)
		}
	}
}

func TestLocalStoreRestoresFromBackup(t *testing.T) {
	dir := t.TempDir()
	backupDir := filepath.Join(dir, "backup")

	s := OpenLocalStore(dir, backupDir, "settings.json", defaultSettings, quietLogger())
	s.Update(func(v *testSettings) { v.Volume = 80 })
	if err := s.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Backup(); err != nil {
		t.Fatalf("backup: %v", err)
	}

	if err := os.WriteFile(s.Path(), []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	restored := OpenLocalStore(dir, backupDir, "settings.json", defaultSettings, quietLogger())
	if got := restored.Get(); got.Volume != 80 {
		t.Fatalf("expected the backup value, got %+v", got)
	}

	if err := os.Remove(s.Path()); err != nil {
		t.Fatal(err)
	}
	restored = OpenLocalStore(dir, backupDir, "settings.json", defaultSettings, quietLogger())
	if got := restored.Get(); got.Volume != 80 {
		t.Fatalf("expected the backup when the primary is missing, got %+v", got)
	}
}

func TestLocalStoreBackupIfDue(t *testing.T) {
	dir := t.TempDir()
	s := OpenLocalStore(dir, filepath.Join(dir, "backup"), "settings.json", defaultSettings, quietLogger())
	start := time.Unix(10_000, 0)

	if ok, err := s.BackupIfDue(start); !ok || err != nil {
		t.Fatalf("expected the first backup, got %v (%v)", ok, err)
	}
	if ok, _ := s.BackupIfDue(start.Add(BackupInterval / 2)); ok {
		t.Fatalf("backup written before the interval passed")
	}
	if ok, _ := s.BackupIfDue(start.Add(BackupInterval + time.Second)); !ok {
		t.Fatalf("expected a backup after the interval")
	}
	if _, err := os.Stat(filepath.Join(dir, "backup", "settings.json")); err != nil {
		t.Fatalf("backup file missing: %v", err)
	}

	noBackup := OpenLocalStore(dir, "", "other.json", defaultSettings, quietLogger())
	if err := noBackup.Backup(); err != nil {
		t.Fatalf("backup without a directory: %v", err)
	}
}

func TestFileCache(t *testing.T) {
	c := &fileCache{path: filepath.Join(t.TempDir(), "nested", "doc.json")}

	raw, at, err := c.load()
	if err != nil || raw != nil || !at.IsZero() {
		t.Fatalf("expected nothing from a missing cache, got %s %v %v", raw, at, err)
	}

	saved := time.UnixMilli(1_700_000_000_123)
	if err := c.save([]byte(`{"version":3}`), saved); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, at, err = c.load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(raw) != `{"version":3}` || !at.Equal(saved) {
		t.Fatalf("unexpected cache %s saved at %v", raw, at)
	}

	if err := os.WriteFile(c.path, []byte("nope"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.load(); err == nil {
		t.Fatalf("expected an error for a corrupt cache")
	}

	if err := os.WriteFile(c.path, []byte(`{"data":null,"savedAt":0}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if raw, _, err := c.load(); err != nil || raw != nil {
		t.Fatalf("expected an empty envelope to count as missing, got %s (%v)", raw, err)
	}
}
