package catacombs

import (
	"fmt"
	"time"
)

// VisitRecord is recorded for every player inside a room when the room is
// cleared.
type VisitRecord struct {
	// Time is how long the player had spent in the room when it was cleared.
	Time time.Duration `json:"time"`
	Room string        `json:"room"`
	// Solo is set when the player was the only one in the room.
	Solo bool `json:"solo"`
}

// DungeonPlayer tracks one party member through a run.
type DungeonPlayer struct {
	name     string
	inRender bool

	iconX, iconZ float64
	realX, realZ float64
	hasPosition  bool
	rotation     float64

	currentRoom   *Room
	lastRoom      *Room
	lastRoomCheck time.Time

	visited map[*Room]time.Duration
	white   map[string]VisitRecord
	green   map[string]VisitRecord
	deaths  int
}

// NewDungeonPlayer returns a player that has not been placed in a room.
func NewDungeonPlayer(name string) *DungeonPlayer {
	return &DungeonPlayer{
		name:    name,
		visited: make(map[*Room]time.Duration),
		white:   make(map[string]VisitRecord),
		green:   make(map[string]VisitRecord),
	}
}

func (p *DungeonPlayer) Name() string { return p.name }

// InRender reports whether the player's position comes from the world rather
// than the minimap.
func (p *DungeonPlayer) InRender() bool { return p.inRender }

// Icon returns the player's position on the 125x125 map grid.
func (p *DungeonPlayer) Icon() (x, z float64, ok bool) {
	return p.iconX, p.iconZ, p.hasPosition
}

// Position returns the player's world position.
func (p *DungeonPlayer) Position() (x, z float64, ok bool) {
	return p.realX, p.realZ, p.hasPosition
}

// Rotation returns the facing in degrees.
func (p *DungeonPlayer) Rotation() float64 { return p.rotation }

// CurrentRoom returns the room the player is standing in, or nil.
func (p *DungeonPlayer) CurrentRoom() *Room { return p.currentRoom }

func (p *DungeonPlayer) Deaths() int { return p.deaths }

// TimeIn returns how long the player has spent in the room.
func (p *DungeonPlayer) TimeIn(r *Room) time.Duration {
	return p.visited[r]
}

// Visited returns the accumulated dwell time per room name. Unidentified rooms
// are keyed by their first component.
func (p *DungeonPlayer) Visited() map[string]time.Duration {
	out := make(map[string]time.Duration, len(p.visited))
	for r, d := range p.visited {
		out[roomKey(r)] += d
	}
	return out
}

// WhiteChecks returns the rooms the player helped clear with a white
// checkmark, keyed by room name.
func (p *DungeonPlayer) WhiteChecks() map[string]VisitRecord {
	return copyRecords(p.white)
}

// GreenChecks returns the rooms the player helped clear with a green
// checkmark, keyed by room name.
func (p *DungeonPlayer) GreenChecks() map[string]VisitRecord {
	return copyRecords(p.green)
}

func (p *DungeonPlayer) String() string {
	return fmt.Sprintf("DungeonPlayer[iconX: %.2f, iconZ: %.2f, rotation: %.1f, realX: %.2f, realZ: %.2f, currentRoom: %v]",
		p.iconX, p.iconZ, p.rotation, p.realX, p.realZ, p.currentRoom)
}

// recordClear keeps the first record per room name.
func (p *DungeonPlayer) recordClear(check Checkmark, rec VisitRecord) {
	records := p.white
	if check == CheckGreen {
		records = p.green
	}
	if _, ok := records[rec.Room]; ok {
		return
	}
	records[rec.Room] = rec
}

// enterRoom moves occupancy from the last room to the current one. The time
// since the previous check is added to the room the player was in during it.
func (p *DungeonPlayer) enterRoom(now time.Time) {
	curr := p.currentRoom
	if curr == nil {
		return
	}
	prev := p.lastRoom
	if curr != prev {
		if prev != nil {
			prev.players.Remove(p)
		}
		curr.players.Put(p)
	}

	if _, ok := p.visited[curr]; !ok {
		p.visited[curr] = 0
	}
	if !p.lastRoomCheck.IsZero() {
		spent := curr
		if prev != nil {
			spent = prev
		}
		p.visited[spent] += now.Sub(p.lastRoomCheck)
	}
	p.lastRoomCheck = now
	p.lastRoom = curr
}

func roomKey(r *Room) string {
	if r.name != "" {
		return r.name
	}
	if len(r.comps) == 0 {
		return "?"
	}
	return fmt.Sprintf("room%v", r.comps[0])
}

func copyRecords(in map[string]VisitRecord) map[string]VisitRecord {
	out := make(map[string]VisitRecord, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
