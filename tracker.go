package catacombs

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Loop names registered while inside a dungeon.
const (
	LoopScannerUpdate      = "scanner.update"
	LoopScannerTransitions = "scanner.transitions"
)

var formattingRegex = regexp.MustCompile("§.")

// StripFormatting removes Minecraft formatting codes.
func StripFormatting(s string) string {
	if !strings.ContainsRune(s, '§') {
		return s
	}
	return formattingRegex.ReplaceAllString(s, "")
}

// stripNonASCII removes every rune above 0x7f. Scoreboard lines carry
// invisible padding emoji between the visible characters.
func stripNonASCII(s string) string {
	return strings.Map(func(r rune) rune {
		if r > 0x7f {
			return -1
		}
		return r
	}, s)
}

// Tracker ties the location, dungeon, scanner and scheduler of one client
// together. The host feeds it text lines, minimap updates and entity deaths as
// they arrive and calls Tick once per game tick.
//
// Tracker is not safe for concurrent use; Service adds locking.
type Tracker struct {
	env       *env
	roster    Roster
	patterns  *PatternSet
	rooms     *RoomStore
	log       logrus.FieldLogger
	location  *Location
	dungeon   *Dungeon
	scanner   *DungeonScanner
	scheduler *Scheduler

	onPatterns Observers[EventPatternsUpdated]
}

func newTracker(w World, roster Roster, patterns *PatternSet, rooms *RoomStore, log logrus.FieldLogger, now func() time.Time) *Tracker {
	e := &env{world: w, rooms: rooms}
	t := &Tracker{
		env:       e,
		roster:    roster,
		patterns:  patterns,
		rooms:     rooms,
		log:       log,
		location:  &Location{},
		scheduler: newScheduler(log, now),
	}
	t.dungeon = newDungeon(patterns, roster, log)
	t.scanner = newDungeonScanner(e, t.dungeon, roster, log, now)
	t.location.OnWorldChange(t.onWorldChange)
	return t
}

func (t *Tracker) Location() *Location { return t.location }

func (t *Tracker) Dungeon() *Dungeon { return t.dungeon }

func (t *Tracker) Scanner() *DungeonScanner { return t.scanner }

// Scheduler returns the tick scheduler driving the tracker loops.
func (t *Tracker) Scheduler() *Scheduler { return t.scheduler }

func (t *Tracker) Roster() Roster { return t.roster }

// Patterns returns the active pattern set.
func (t *Tracker) Patterns() *Patterns { return t.patterns.Load() }

// Rooms returns the active room database.
func (t *Tracker) Rooms() *RoomDatabase { return t.rooms.Load() }

// SetWorld replaces the block sampler, for example after a dimension change.
func (t *Tracker) SetWorld(w World) {
	t.env.world = w
}

// OnPatternsUpdated registers a listener for pattern hot swaps.
func (t *Tracker) OnPatternsUpdated(fn func(EventPatternsUpdated)) *Tracker {
	t.onPatterns.Add(fn)
	return t
}

// HandleScoreboardLine feeds a sidebar line. Formatting is removed for the
// location and, together with non-ASCII padding, for the dungeon.
func (t *Tracker) HandleScoreboardLine(line string) {
	plain := StripFormatting(line)
	t.location.onScoreboardLine(plain)
	t.dungeon.onScoreboardLine(stripNonASCII(plain))
}

// HandleTabAdd feeds a tab list line that was just added.
func (t *Tracker) HandleTabAdd(line string) {
	plain := StripFormatting(line)
	t.location.onTabAdd(plain)
	t.dungeon.onTabLine(plain)
}

// HandleTabUpdate feeds a tab list line whose display name changed.
func (t *Tracker) HandleTabUpdate(line string) {
	t.dungeon.onTabLine(StripFormatting(line))
}

// HandleChat feeds a server chat line.
func (t *Tracker) HandleChat(line string) {
	t.dungeon.onChat(StripFormatting(line))
}

// HandleMap feeds a dungeon minimap update.
func (t *Tracker) HandleMap(data MapData) {
	if !t.dungeon.onMapData(data) {
		return
	}
	t.scanner.onMapData(data.Colors)
}

// HandleEntityDeath feeds an entity death.
func (t *Tracker) HandleEntityDeath(e EntityDeath) {
	t.dungeon.onEntityDeath(e)
}

// HandleWorldUnload clears the location, which resets the run.
func (t *Tracker) HandleWorldUnload() {
	t.location.onWorldUnload()
	t.scheduler.ResetTPS()
	t.Reset()
}

// After runs fn once, delay ticks from now. Pending tasks are dropped when
// the run is reset.
func (t *Tracker) After(delay uint64, fn func()) *TaskHandle {
	return t.scheduler.After(delay, fn)
}

// Tick advances the scheduler by one game tick.
func (t *Tracker) Tick() {
	t.scheduler.Tick()
}

// Reset discards the current run and stops scanning. Calling it twice is the
// same as calling it once.
func (t *Tracker) Reset() {
	t.scheduler.tasks.Clear()
	t.scheduler.Unregister(LoopScannerUpdate)
	t.scheduler.Unregister(LoopScannerTransitions)
	t.scanner.Reset()
	t.dungeon.Reset()
}

// ReloadPatterns compiles doc and swaps it in when its version is new. A
// document with the active version is ignored. On error the active set is
// kept and the error returned.
func (t *Tracker) ReloadPatterns(doc PatternDocument) error {
	p, err := t.patterns.Reload(doc)
	if errors.Is(err, ErrSameVersion) {
		return nil
	}
	if err != nil {
		t.log.WithError(err).WithField("version", doc.Version).Warn("catacombs: rejected pattern document")
		return err
	}
	t.log.WithField("version", p.Version()).Info("catacombs: patterns updated")
	t.onPatterns.Emit(EventPatternsUpdated{Version: p.Version()})
	return nil
}

// SwapRooms replaces the room database. Rooms already identified keep their
// data.
func (t *Tracker) SwapRooms(db *RoomDatabase) {
	t.rooms.Swap(db)
	t.log.WithField("rooms", db.Len()).Debug("catacombs: room database updated")
}

func (t *Tracker) onWorldChange(e EventWorldChange) {
	if e.World != WorldCatacombs {
		t.Reset()
		return
	}

	t.Reset()
	t.scanner.Start()
	t.scheduler.Register(LoopScannerUpdate, Default, 1, t.scanner.update)
	t.scheduler.Register(LoopScannerTransitions, After, 1, func(uint64) {
		t.scanner.checkTransitions()
	})
	t.log.Info("catacombs: entered dungeon")
}
