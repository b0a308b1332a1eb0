package catacombs

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// RunSnapshot is a copy of the tracker state, safe to keep and serialize.
type RunSnapshot struct {
	RunID   uuid.UUID `json:"runId"`
	TakenAt time.Time `json:"takenAt"`

	Area        string `json:"area,omitempty"`
	Subarea     string `json:"subarea,omitempty"`
	Floor       string `json:"floor,omitempty"`
	FloorNumber int    `json:"floorNumber"`
	Time        string `json:"time"`

	Score          ScoreData `json:"score"`
	SecretsFound   int       `json:"secretsFound"`
	Crypts         int       `json:"crypts"`
	CompletedRooms int       `json:"completedRooms"`
	PuzzlesDone    int       `json:"puzzlesDone"`
	PuzzleCount    int       `json:"puzzleCount"`
	TeamDeaths     int       `json:"teamDeaths"`
	ClearedPercent float64   `json:"clearedPercent"`
	Milestone      string    `json:"milestone"`
	MimicDead      bool      `json:"mimicDead"`
	BloodDone      bool      `json:"bloodDone"`
	Paul           bool      `json:"paul"`

	Party   []PlayerInfo      `json:"party"`
	Rooms   []RoomSummary     `json:"rooms"`
	Players []PlayerSummary   `json:"players"`
	Current string            `json:"currentRoom,omitempty"`
	Puzzles map[string]string `json:"puzzles,omitempty"`
}

// RoomSummary describes one discovered room.
type RoomSummary struct {
	Name       string      `json:"name,omitempty"`
	Type       RoomType    `json:"type"`
	Shape      Shape       `json:"shape"`
	Checkmark  Checkmark   `json:"checkmark"`
	Explored   bool        `json:"explored"`
	Secrets    int         `json:"secrets"`
	Rotation   int         `json:"rotation"`
	Components []Component `json:"components"`
}

// PlayerSummary describes one tracked party member.
type PlayerSummary struct {
	Name        string                 `json:"name"`
	Room        string                 `json:"room,omitempty"`
	Visited     map[string]string      `json:"visited,omitempty"`
	WhiteChecks map[string]VisitRecord `json:"whiteChecks,omitempty"`
	GreenChecks map[string]VisitRecord `json:"greenChecks,omitempty"`
}

// Snapshot copies the tracker state. It never changes the tracker.
func (t *Tracker) Snapshot(runID uuid.UUID, now time.Time) RunSnapshot {
	d := t.dungeon
	snap := RunSnapshot{
		RunID:          runID,
		TakenAt:        now,
		Area:           t.location.Area(),
		Subarea:        t.location.Subarea(),
		Floor:          d.Floor(),
		FloorNumber:    d.FloorNumber(),
		Time:           FormatDuration(time.Duration(d.DungeonSeconds() * float64(time.Second))),
		Score:          d.ScoreData(),
		SecretsFound:   d.SecretsFound(),
		Crypts:         d.Crypts(),
		CompletedRooms: d.CompletedRooms(),
		PuzzlesDone:    d.PuzzlesDone(),
		PuzzleCount:    d.PuzzleCount(),
		TeamDeaths:     d.TeamDeaths(),
		ClearedPercent: d.ClearedPercent(),
		Milestone:      d.Milestone(),
		MimicDead:      d.MimicDead(),
		BloodDone:      d.BloodDone(),
		Paul:           d.HasPaul(),
	}

	for _, name := range d.PartyMembers() {
		if info, ok := d.ByName(name); ok {
			snap.Party = append(snap.Party, info)
		}
	}

	if len(d.puzzles) > 0 {
		snap.Puzzles = make(map[string]string, len(d.puzzles))
		for name, state := range d.puzzles {
			snap.Puzzles[name] = state.String()
		}
	}

	for _, r := range t.scanner.UniqueRooms() {
		rot, _ := r.Rotation()
		snap.Rooms = append(snap.Rooms, RoomSummary{
			Name:       r.Name(),
			Type:       r.Type(),
			Shape:      r.Shape(),
			Checkmark:  r.Checkmark(),
			Explored:   r.Explored(),
			Secrets:    r.Secrets(),
			Rotation:   rot,
			Components: r.Components(),
		})
	}

	for _, p := range t.scanner.Players() {
		ps := PlayerSummary{
			Name:        p.Name(),
			WhiteChecks: p.WhiteChecks(),
			GreenChecks: p.GreenChecks(),
		}
		if r := p.CurrentRoom(); r != nil {
			ps.Room = r.Name()
		}
		visited := p.Visited()
		if len(visited) > 0 {
			ps.Visited = make(map[string]string, len(visited))
			for room, dur := range visited {
				ps.Visited[room] = FormatDuration(dur)
			}
		}
		snap.Players = append(snap.Players, ps)
	}
	sort.Slice(snap.Players, func(i, j int) bool { return snap.Players[i].Name < snap.Players[j].Name })

	if r := t.scanner.CurrentRoom(); r != nil {
		snap.Current = r.Name()
	}
	return snap
}

// History is the persisted record of runs.
type History struct {
	Last RunSnapshot `json:"last"`
	// Best holds the highest score per floor.
	Best map[string]BestRun `json:"best"`
}

// BestRun is the highest scoring run on a floor.
type BestRun struct {
	RunID uuid.UUID `json:"runId"`
	Score int       `json:"score"`
	Time  string    `json:"time"`
	At    time.Time `json:"at"`
}

// DefaultHistory returns an empty history.
func DefaultHistory() History {
	return History{Best: make(map[string]BestRun)}
}

// Record stores snap as the last run and updates the best run of its floor.
// It reports whether snap is a new best.
func (h *History) Record(snap RunSnapshot) bool {
	h.Last = snap
	if snap.Floor == "" {
		return false
	}
	if h.Best == nil {
		h.Best = make(map[string]BestRun)
	}
	best, ok := h.Best[snap.Floor]
	if ok && best.Score >= snap.Score.Score {
		return false
	}
	h.Best[snap.Floor] = BestRun{
		RunID: snap.RunID,
		Score: snap.Score.Score,
		Time:  snap.Time,
		At:    snap.TakenAt,
	}
	return true
}
