package catacombs

import (
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

const (
	testRoof   = 99
	testLocal  = "Alice"
	testFriend = "Bob"

	// testFloorColumns is the number of lattice positions of testFloor with
	// a roof. Every other position is all air and stays pending.
	testFloorColumns = 8
)

// roomCentre returns the world centre of a room grid component.
func roomCentre(c Component) (int, int) {
	return ComponentToReal(c, false)
}

// placeRoom puts a roof block above the centre of c.
func placeRoom(w *MemoryWorld, c Component) {
	x, z := roomCentre(c)
	w.SetBlock(x, testRoof, z, Block{ID: 1})
}

// joinRooms puts a roof block in the door slot between a and b, making the
// scanner treat them as one room.
func joinRooms(w *MemoryWorld, a, b Component) {
	ax, az := roomCentre(a)
	bx, bz := roomCentre(b)
	w.SetBlock((ax+bx)/2, testRoof, (az+bz)/2, Block{ID: 1})
}

// placeDoor puts a low roof and a door block in the slot between a and b.
func placeDoor(w *MemoryWorld, a, b Component, door Block) (int, int) {
	ax, az := roomCentre(a)
	bx, bz := roomCentre(b)
	x, z := (ax+bx)/2, (az+bz)/2
	w.SetBlock(x, 72, z, Block{ID: 1})
	w.SetBlock(x, DoorY, z, door)
	return x, z
}

// testFloor builds a floor with a named 1x1 room at [0,0], an unnamed 1x1
// room at [1,0] behind a door, and an L shaped room at [3,3], [4,3], [3,4].
// Only the column of [0,0] differs from the others below the roof.
func testFloor() (*MemoryWorld, *RoomDatabase) {
	w := NewMemoryWorld()
	placeRoom(w, Component{0, 0})
	placeRoom(w, Component{1, 0})
	placeDoor(w, Component{0, 0}, Component{1, 0}, Block{ID: 1})

	placeRoom(w, Component{3, 3})
	placeRoom(w, Component{4, 3})
	placeRoom(w, Component{3, 4})
	joinRooms(w, Component{3, 3}, Component{4, 3})
	joinRooms(w, Component{3, 3}, Component{3, 4})

	cx, cz := roomCentre(Component{0, 0})
	w.SetBlock(cx, 50, cz, Block{ID: 4})
	// Rotation marker in the north east corner of [0,0].
	w.SetBlock(cx+HalfRoomSize, testRoof, cz-HalfRoomSize, Block{ID: BlockStainedClay, Meta: rotationMarkerMeta})

	core := Core(w, cx, cz)
	db := NewRoomDatabase([]RoomData{
		{Name: "Cathedral", Type: "normal", Cores: []int32{core}, Secrets: 5, Crypts: 1, Clear: "mob"},
		{Name: "Entrance", Type: "entrance", Cores: []int32{1}},
	})
	return w, db
}

type testRig struct {
	world   *MemoryWorld
	roster  *StaticRoster
	clock   *fakeClock
	tracker *Tracker
}

func newTestRig(t *testing.T) *testRig {
	t.Helper()
	w, db := testFloor()
	roster := NewStaticRoster(testLocal)
	clock := newFakeClock()
	tr := NewBuilder().
		World(w).
		Roster(roster).
		Rooms(db).
		Clock(clock.Now).
		Init()
	return &testRig{world: w, roster: roster, clock: clock, tracker: tr}
}

// moveLocal places the local player at the centre of c.
func (r *testRig) moveLocal(c Component) {
	x, z := roomCentre(c)
	r.roster.Set(PlayerState{
		Name:     testLocal,
		Position: mgl64.Vec3{float64(x), 70, float64(z)},
		Ping:     50,
	})
}

// enterDungeon feeds the lines a client sees when a run on floor starts.
func (r *testRig) enterDungeon(floor string) {
	r.tracker.HandleTabAdd("§r§b§lArea: §r§7Catacombs§r")
	r.tracker.HandleScoreboardLine("§7 ⏣ §cThe Catacombs §7(" + floor + ")")
	r.tracker.HandleTabAdd("§r[302] §6Alice §r§f(§r§dMage XLII§r§f)")
	r.tracker.HandleTabAdd("§r[280] §r[VIP] §aBob §r§f(§r§dTank L§r§f)")
}

func (r *testRig) tick(n int) {
	for i := 0; i < n; i++ {
		r.clock.Advance(TickRate)
		r.tracker.Tick()
	}
}

func TestTrackerEntersDungeon(t *testing.T) {
	rig := newTestRig(t)
	tr := rig.tracker

	if tr.Scheduler().Registered(LoopScannerUpdate) {
		t.Fatalf("scanner loop registered before entering a dungeon")
	}

	var worlds []string
	tr.Location().OnWorldChange(func(e EventWorldChange) { worlds = append(worlds, e.World) })

	rig.enterDungeon("F7")
	if !tr.Location().InWorld("catacombs") {
		t.Fatalf("expected to be in the catacombs, area is %q", tr.Location().Area())
	}
	if !tr.Location().InArea("the catacombs") {
		t.Fatalf("expected the subarea to be set, got %q", tr.Location().Subarea())
	}
	if len(worlds) != 1 || worlds[0] != WorldCatacombs {
		t.Fatalf("unexpected world changes %v", worlds)
	}
	if tr.Scanner().State() != ScannerScanning {
		t.Fatalf("expected the scanner to run")
	}
	if !tr.Scheduler().Registered(LoopScannerUpdate) || !tr.Scheduler().Registered(LoopScannerTransitions) {
		t.Fatalf("expected both scanner loops to be registered")
	}
	if tr.Dungeon().Floor() != "F7" || tr.Dungeon().FloorNumber() != 7 {
		t.Fatalf("unexpected floor %q (%d)", tr.Dungeon().Floor(), tr.Dungeon().FloorNumber())
	}
}

func TestTrackerResetIsIdempotent(t *testing.T) {
	rig := newTestRig(t)
	rig.moveLocal(Component{0, 0})
	rig.enterDungeon("F5")
	rig.tick(5)

	if len(rig.tracker.Scanner().UniqueRooms()) == 0 {
		t.Fatalf("expected rooms before the reset")
	}

	for i := 0; i < 2; i++ {
		rig.tracker.Reset()
		tr := rig.tracker
		if len(tr.Scanner().UniqueRooms()) != 0 || len(tr.Scanner().Players()) != 0 {
			t.Fatalf("reset %d: scanner kept state", i)
		}
		if tr.Scanner().Pending() != len(ScanCoords()) {
			t.Fatalf("reset %d: expected every coordinate pending, got %d", i, tr.Scanner().Pending())
		}
		if tr.Dungeon().Floor() != "" || len(tr.Dungeon().PartyMembers()) != 0 {
			t.Fatalf("reset %d: dungeon kept state", i)
		}
		if tr.Scheduler().Registered(LoopScannerUpdate) {
			t.Fatalf("reset %d: scanner loop still registered", i)
		}
	}
}

func TestTrackerWorldUnload(t *testing.T) {
	rig := newTestRig(t)
	rig.enterDungeon("F3")
	rig.tick(1)

	fired := false
	rig.tracker.After(5, func() { fired = true })

	rig.tracker.HandleWorldUnload()
	if rig.tracker.Location().Area() != "" || rig.tracker.Location().Subarea() != "" {
		t.Fatalf("expected the location to be cleared")
	}
	if rig.tracker.Scanner().State() != ScannerInactive {
		t.Fatalf("expected the scanner to stop")
	}
	if rig.tracker.Scheduler().PendingTasks() != 0 {
		t.Fatalf("expected pending tasks to be dropped")
	}
	rig.tick(10)
	if fired {
		t.Fatalf("task ran after the world was unloaded")
	}

	// A second unload has nothing left to clear.
	rig.tracker.HandleWorldUnload()
}

func TestTrackerLeavingCatacombsResets(t *testing.T) {
	rig := newTestRig(t)
	rig.enterDungeon("F1")
	rig.tracker.HandleTabAdd("Area: Hub")
	if rig.tracker.Scanner().State() != ScannerInactive {
		t.Fatalf("expected the scanner to stop outside the catacombs")
	}
	if rig.tracker.Dungeon().Floor() != "" {
		t.Fatalf("expected the run to be reset")
	}
}

func TestStripFormatting(t *testing.T) {
	if got := StripFormatting("§aHello §lWorld§r"); got != "Hello World" {
		t.Fatalf("got %q", got)
	}
	if got := StripFormatting("plain"); got != "plain" {
		t.Fatalf("got %q", got)
	}
	if got := stripNonASCII(" ⏣ The Catacombs 👾(F7)"); got != "  The Catacombs (F7)" {
		t.Fatalf("got %q", got)
	}
}

func TestTrackerReloadPatterns(t *testing.T) {
	rig := newTestRig(t)
	var versions []int
	rig.tracker.OnPatternsUpdated(func(e EventPatternsUpdated) { versions = append(versions, e.Version) })

	doc := DefaultPatternDocument()
	doc.Version = 3
	doc.Regex[dungeonsGroup][PatternCrypts] = PatternSpec{Pattern: `^ Tombs: (\d+)$`}
	if err := rig.tracker.ReloadPatterns(doc); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if err := rig.tracker.ReloadPatterns(doc); err != nil {
		t.Fatalf("same version reload: %v", err)
	}
	if len(versions) != 1 || versions[0] != 3 {
		t.Fatalf("expected one update to version 3, got %v", versions)
	}

	rig.enterDungeon("F4")
	rig.tracker.HandleTabAdd(" Tombs: 4")
	if got := rig.tracker.Dungeon().Crypts(); got != 4 {
		t.Fatalf("expected the new pattern to apply, got %d crypts", got)
	}

	bad := DefaultPatternDocument()
	bad.Version = 4
	bad.Regex[dungeonsGroup][PatternCrypts] = PatternSpec{Pattern: `(`}
	if err := rig.tracker.ReloadPatterns(bad); err == nil {
		t.Fatalf("expected an invalid document to be rejected")
	}
	if got := rig.tracker.Patterns().Version(); got != 3 {
		t.Fatalf("expected version 3 to stay active, got %d", got)
	}
}

func TestTrackerSwapRooms(t *testing.T) {
	rig := newTestRig(t)
	if rig.tracker.Rooms().Len() != 2 {
		t.Fatalf("expected the builder rooms, got %d", rig.tracker.Rooms().Len())
	}
	rig.tracker.SwapRooms(NewRoomDatabase(nil))
	if rig.tracker.Rooms().Len() != 0 {
		t.Fatalf("expected an empty database after the swap")
	}
}

func TestBuilderWithoutWorldPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic")
		}
	}()
	NewBuilder().Init()
}

func TestBuilderDefaults(t *testing.T) {
	tr := NewBuilder().World(NewMemoryWorld()).LocalPlayer("Steve").Init()
	if tr.Roster().LocalName() != "Steve" {
		t.Fatalf("expected the default roster to use the local name, got %q", tr.Roster().LocalName())
	}
	if tr.Patterns() == nil {
		t.Fatalf("expected the built-in patterns")
	}
	if tr.Rooms().Len() != 0 {
		t.Fatalf("expected no rooms")
	}
}
