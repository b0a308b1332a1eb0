package catacombs

import "testing"

func TestLocationAreaChanges(t *testing.T) {
	var l Location
	var worlds []string
	l.OnWorldChange(func(e EventWorldChange) { worlds = append(worlds, e.World) })

	if l.InWorld("") || l.InWorld("catacombs") {
		t.Fatalf("empty location matched a world")
	}

	l.onTabAdd("Area: Catacombs")
	l.onTabAdd("Area: Catacombs")
	l.onTabAdd(" Crypts: 3")
	if len(worlds) != 1 || worlds[0] != WorldCatacombs {
		t.Fatalf("expected one lowercase change, got %v", worlds)
	}
	if l.Area() != "Catacombs" || !l.InWorld("CATACOMBS") {
		t.Fatalf("unexpected area %q", l.Area())
	}

	l.onTabAdd("Dungeon: Dungeon Hub")
	if len(worlds) != 2 || worlds[1] != "dungeon hub" {
		t.Fatalf("expected the hub, got %v", worlds)
	}
}

func TestLocationSubarea(t *testing.T) {
	var l Location
	var areas []string
	l.OnAreaChange(func(e EventAreaChange) { areas = append(areas, e.Area) })

	if l.InArea("catacombs") {
		t.Fatalf("empty subarea matched")
	}
	l.onScoreboardLine("Purse: 1,000")
	l.onScoreboardLine(" ⏣ The Catacombs (F4)")
	l.onScoreboardLine(" ⏣ The Catacombs (F4)")
	if len(areas) != 1 || areas[0] != " ⏣ the catacombs (f4)" {
		t.Fatalf("unexpected area changes %q", areas)
	}
	if !l.InArea("Catacombs (F4)") || l.InArea("village") {
		t.Fatalf("unexpected InArea result for %q", l.Subarea())
	}

	l.onScoreboardLine(" ф Rift")
	if len(areas) != 2 || l.Subarea() != " ф Rift" {
		t.Fatalf("expected the rift subarea, got %q", l.Subarea())
	}
}

func TestLocationWorldUnload(t *testing.T) {
	var l Location
	worlds, areas := 0, 0
	l.OnWorldChange(func(e EventWorldChange) {
		if e.World != "" {
			t.Errorf("unload reported world %q", e.World)
		}
		worlds++
	})
	l.OnAreaChange(func(EventAreaChange) { areas++ })

	l.onWorldUnload()
	if worlds != 0 || areas != 0 {
		t.Fatalf("unloading an empty location emitted events")
	}

	l.area = "Catacombs"
	l.subarea = " ⏣ The Catacombs (F1)"
	l.onWorldUnload()
	l.onWorldUnload()
	if worlds != 1 || areas != 1 {
		t.Fatalf("expected one event of each kind, got %d and %d", worlds, areas)
	}
	if l.Area() != "" || l.Subarea() != "" {
		t.Fatalf("location not cleared")
	}
}
