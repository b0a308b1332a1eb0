package catacombs

import "testing"

func TestParseRoomDatabase(t *testing.T) {
	raw := []byte(`[
		{"name": "Cathedral", "type": "normal", "cores": [11, 12], "secrets": 5, "crypts": 1, "clear": "mob"},
		{"name": "Blood", "type": "blood", "cores": [12]},
		{"name": "Cathedral", "type": "rare", "cores": [13]}
	]`)
	db, err := ParseRoomDatabase(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if db.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", db.Len())
	}

	// The first entry wins for shared cores and names.
	if r, ok := db.ByCore(12); !ok || r.Name != "Cathedral" {
		t.Fatalf("expected core 12 to be the cathedral, got %+v", r)
	}
	if r, ok := db.ByName("Cathedral"); !ok || r.Type != "normal" || r.Secrets != 5 {
		t.Fatalf("unexpected cathedral entry %+v", r)
	}
	if r, ok := db.ByCore(13); !ok || r.Type != "rare" {
		t.Fatalf("expected core 13 to keep its own entry, got %+v", r)
	}
	if _, ok := db.ByCore(99); ok {
		t.Fatalf("unexpected match for an unknown core")
	}

	if _, err := ParseRoomDatabase([]byte(`{"name": "x"}`)); err == nil {
		t.Fatalf("expected an object to be rejected")
	}
}

func TestRoomStoreNil(t *testing.T) {
	var db *RoomDatabase
	if db.Len() != 0 {
		t.Fatalf("expected a nil database to be empty")
	}
	s := NewRoomStore(nil)
	if _, ok := s.ByName("Blood"); ok {
		t.Fatalf("expected no match from an empty store")
	}
	s.Swap(NewRoomDatabase([]RoomData{{Name: "Blood", Type: "blood", Cores: []int32{1}}}))
	if _, ok := s.ByName("Blood"); !ok || s.Load().Len() != 1 {
		t.Fatalf("expected the swapped database to be used")
	}
}
