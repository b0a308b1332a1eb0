package catacombs

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
)

// RoomData is one entry of the static room database.
type RoomData struct {
	Name    string  `json:"name" jsonschema:"required"`
	Type    string  `json:"type" jsonschema:"required,enum=normal,enum=puzzle,enum=trap,enum=yellow,enum=blood,enum=fairy,enum=rare,enum=entrance"`
	Cores   []int32 `json:"cores" jsonschema:"required"`
	Secrets int     `json:"secrets"`
	Crypts  int     `json:"crypts,omitempty"`
	Clear   string  `json:"clear,omitempty" jsonschema:"enum=mob,enum=miniboss"`
}

// RoomDatabase indexes room data by core and by name.
type RoomDatabase struct {
	entries []RoomData
	byCore  map[int32]int
	byName  map[string]int
}

// NewRoomDatabase builds a database from entries. When a core or name occurs
// more than once the first entry wins.
func NewRoomDatabase(entries []RoomData) *RoomDatabase {
	db := &RoomDatabase{
		entries: entries,
		byCore:  make(map[int32]int, len(entries)*2),
		byName:  make(map[string]int, len(entries)),
	}
	for i, e := range entries {
		for _, c := range e.Cores {
			if _, ok := db.byCore[c]; !ok {
				db.byCore[c] = i
			}
		}
		if _, ok := db.byName[e.Name]; !ok {
			db.byName[e.Name] = i
		}
	}
	return db
}

// ParseRoomDatabase decodes a JSON array of room entries.
func ParseRoomDatabase(data []byte) (*RoomDatabase, error) {
	var entries []RoomData
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("catacombs: decode room database: %w", err)
	}
	return NewRoomDatabase(entries), nil
}

// ByCore returns the entry whose cores include core.
func (db *RoomDatabase) ByCore(core int32) (*RoomData, bool) {
	if db == nil {
		return nil, false
	}
	i, ok := db.byCore[core]
	if !ok {
		return nil, false
	}
	return &db.entries[i], true
}

// ByName returns the entry with the given name.
func (db *RoomDatabase) ByName(name string) (*RoomData, bool) {
	if db == nil {
		return nil, false
	}
	i, ok := db.byName[name]
	if !ok {
		return nil, false
	}
	return &db.entries[i], true
}

// Len returns the number of entries.
func (db *RoomDatabase) Len() int {
	if db == nil {
		return 0
	}
	return len(db.entries)
}

// RoomSource looks up room data. Missing entries are not an error; the room
// simply stays unidentified.
type RoomSource interface {
	ByCore(core int32) (*RoomData, bool)
	ByName(name string) (*RoomData, bool)
}

// RoomStore holds the current room database and lets it be swapped while the
// tracker is running.
type RoomStore struct {
	db atomic.Pointer[RoomDatabase]
}

// NewRoomStore creates a store holding db, which may be nil.
func NewRoomStore(db *RoomDatabase) *RoomStore {
	s := &RoomStore{}
	if db != nil {
		s.db.Store(db)
	}
	return s
}

// Swap replaces the database.
func (s *RoomStore) Swap(db *RoomDatabase) {
	s.db.Store(db)
}

// Load returns the current database.
func (s *RoomStore) Load() *RoomDatabase {
	return s.db.Load()
}

// ByCore implements RoomSource.
func (s *RoomStore) ByCore(core int32) (*RoomData, bool) {
	return s.db.Load().ByCore(core)
}

// ByName implements RoomSource.
func (s *RoomStore) ByName(name string) (*RoomData, bool) {
	return s.db.Load().ByName(name)
}
