package catacombs

import (
	"io"
	"time"

	"github.com/sirupsen/logrus"
)

// Builder configures a Tracker before initialization.
// Use NewBuilder() to create a builder and chain configuration methods.
type Builder struct {
	world    World
	roster   Roster
	local    string
	patterns *PatternSet
	rooms    *RoomDatabase
	log      logrus.FieldLogger
	now      func() time.Time
}

// NewBuilder creates a new tracker builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// World sets the block sampler. Required.
func (b *Builder) World(w World) *Builder {
	b.world = w
	return b
}

// Roster sets the player lookup. Without one a StaticRoster is used.
func (b *Builder) Roster(r Roster) *Builder {
	b.roster = r
	return b
}

// LocalPlayer names the local player of the default StaticRoster. It is
// ignored when a Roster is set.
func (b *Builder) LocalPlayer(name string) *Builder {
	b.local = name
	return b
}

// Patterns sets the pattern set. Without one the built-in document is used.
//
// Example:
//
//	ps := catacombs.NewPatternSet(nil)
//	if _, err := ps.Reload(doc); err != nil { ... }
//	builder.Patterns(ps)
func (b *Builder) Patterns(ps *PatternSet) *Builder {
	b.patterns = ps
	return b
}

// Rooms sets the initial room database.
func (b *Builder) Rooms(db *RoomDatabase) *Builder {
	b.rooms = db
	return b
}

// Logger sets the logger. Without one nothing is logged.
func (b *Builder) Logger(l logrus.FieldLogger) *Builder {
	b.log = l
	return b
}

// Clock sets the time source used for room dwell times.
func (b *Builder) Clock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// Init creates the Tracker. It panics when no World was set or the built-in
// patterns fail to compile.
func (b *Builder) Init() *Tracker {
	if b.world == nil {
		panic("catacombs: builder has no world")
	}

	log := b.log
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	roster := b.roster
	if roster == nil {
		roster = NewStaticRoster(b.local)
	}

	patterns := b.patterns
	if patterns == nil || patterns.Load() == nil {
		p, err := CompilePatterns(DefaultPatternDocument())
		if err != nil {
			panic("catacombs: failed to compile built-in patterns: " + err.Error())
		}
		if patterns == nil {
			patterns = NewPatternSet(p)
		} else {
			patterns.current.Store(p)
		}
	}

	now := b.now
	if now == nil {
		now = time.Now
	}

	return newTracker(b.world, roster, patterns, NewRoomStore(b.rooms), log, now)
}
