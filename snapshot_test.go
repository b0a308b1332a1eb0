package catacombs

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestTrackerSnapshot(t *testing.T) {
	rig := newTestRig(t)
	rig.moveLocal(Component{0, 0})
	rig.enterDungeon("F7")
	rig.tracker.HandleTabUpdate(" Crypts: 3")
	rig.tracker.HandleTabUpdate(" Three Weirdos: [✔]")
	rig.tick(8)

	id := uuid.New()
	at := rig.clock.Now()
	snap := rig.tracker.Snapshot(id, at)

	if snap.RunID != id || !snap.TakenAt.Equal(at) {
		t.Fatalf("unexpected run id or time")
	}
	if snap.Floor != "F7" || snap.FloorNumber != 7 || snap.Crypts != 3 {
		t.Fatalf("unexpected run fields %+v", snap)
	}
	if snap.Area != "Catacombs" {
		t.Fatalf("unexpected area %q", snap.Area)
	}
	if len(snap.Party) != 2 || snap.Party[0].Name != testLocal || snap.Party[1].Class != "Tank" {
		t.Fatalf("unexpected party %+v", snap.Party)
	}
	if snap.Puzzles["Three Weirdos"] != PuzzleSuccess.String() {
		t.Fatalf("unexpected puzzles %v", snap.Puzzles)
	}
	if len(snap.Rooms) != 3 {
		t.Fatalf("expected 3 rooms, got %d", len(snap.Rooms))
	}
	if len(snap.Players) != 2 || snap.Players[0].Name != testLocal || snap.Players[1].Name != testFriend {
		t.Fatalf("expected players sorted by name, got %+v", snap.Players)
	}
	if snap.Players[0].Room != "Cathedral" || snap.Current != "Cathedral" {
		t.Fatalf("expected the local player in the cathedral, got %q and %q", snap.Players[0].Room, snap.Current)
	}
	if snap.Score.Score != rig.tracker.Dungeon().ScoreData().Score {
		t.Fatalf("snapshot score differs from the dungeon")
	}

	raw, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["floor"] != "F7" || decoded["currentRoom"] != "Cathedral" {
		t.Fatalf("unexpected encoding %s", raw)
	}
}

func TestTrackerSnapshotLeavesStateAlone(t *testing.T) {
	rig := newTestRig(t)
	rig.moveLocal(Component{0, 0})
	rig.enterDungeon("F2")
	rig.tick(8)

	before := rig.tracker.Scanner().Player(testLocal).Visited()["Cathedral"]
	rig.tracker.Snapshot(uuid.New(), time.Now())
	rig.tracker.Snapshot(uuid.New(), time.Now())
	if after := rig.tracker.Scanner().Player(testLocal).Visited()["Cathedral"]; after != before {
		t.Fatalf("snapshot changed the visit time from %v to %v", before, after)
	}
}

func TestHistoryRecord(t *testing.T) {
	h := DefaultHistory()
	run := func(floor string, score int) RunSnapshot {
		return RunSnapshot{RunID: uuid.New(), Floor: floor, Score: ScoreData{Score: score}, Time: "05m 00s"}
	}

	if h.Record(run("", 300)) {
		t.Fatalf("a run without a floor cannot be a best")
	}
	first := run("F7", 250)
	if !h.Record(first) {
		t.Fatalf("expected the first F7 run to be a best")
	}
	if h.Record(run("F7", 250)) || h.Record(run("F7", 200)) {
		t.Fatalf("an equal or lower score replaced the best")
	}
	if h.Best["F7"].RunID != first.RunID {
		t.Fatalf("best run replaced")
	}
	if !h.Record(run("M7", 100)) || !h.Record(run("F7", 301)) {
		t.Fatalf("expected new bests")
	}
	if h.Best["F7"].Score != 301 || h.Best["M7"].Score != 100 {
		t.Fatalf("unexpected bests %+v", h.Best)
	}
	if h.Last.Score.Score != 301 {
		t.Fatalf("expected the last run to be kept, got %+v", h.Last)
	}

	var zero History
	if !zero.Record(run("F1", 10)) || zero.Best["F1"].Score != 10 {
		t.Fatalf("expected a zero history to work")
	}
}
