package catacombs

// Event types emitted by the tracker. Listeners run synchronously on the
// update path and must not block.

// EventRoomEnter is emitted when the local player enters a room with a
// different name than the previous one. Room is nil outside any known room.
type EventRoomEnter struct {
	Room *Room
}

// EventRoomLeave is emitted when the local player moves to a grid cell owned
// by a differently named room.
type EventRoomLeave struct {
	New *Room
	Old *Room
}

// EventRoomCleared is emitted when a room gains a white or green checkmark.
type EventRoomCleared struct {
	Room      *Room
	Checkmark Checkmark
}

// EventPuzzleState is emitted for every puzzle line in the tab list.
type EventPuzzleState struct {
	Name     string
	State    PuzzleState
	FailedBy string
}

// EventScore is emitted once per run when the score first reaches a
// threshold.
type EventScore struct {
	Threshold int
	Score     ScoreData
}

// EventWorldChange is emitted when the tab list area changes. World is the
// lowercase area name, or "" when the world was unloaded.
type EventWorldChange struct {
	World string
}

// EventAreaChange is emitted when the scoreboard subarea changes.
type EventAreaChange struct {
	Area string
}

// EventPatternsUpdated is emitted after a newer pattern document was
// compiled and swapped in.
type EventPatternsUpdated struct {
	Version int
}

// Observers is an ordered list of listeners for one event type.
type Observers[E any] struct {
	fns []func(E)
}

// Add registers fn. Listeners are called in registration order.
func (o *Observers[E]) Add(fn func(E)) {
	o.fns = append(o.fns, fn)
}

// Emit calls every listener with e.
func (o *Observers[E]) Emit(e E) {
	for _, fn := range o.fns {
		fn(e)
	}
}

// Len returns the number of listeners.
func (o *Observers[E]) Len() int {
	return len(o.fns)
}
