package catacombs

import "github.com/go-gl/mathgl/mgl64"

// PlayerState is the live state of a player as seen by the host.
type PlayerState struct {
	Name     string
	Position mgl64.Vec3
	Yaw      float64
	// Ping is the latency in milliseconds. Values of zero or below mean the
	// player is not verified as a real tracked entity.
	Ping int
}

// HasPing reports whether the entry carries a usable ping.
func (s PlayerState) HasPing() bool {
	return s.Ping > 0
}

// Roster resolves party members to their live world state.
type Roster interface {
	// LocalName returns the name of the player running the tracker.
	LocalName() string
	// Lookup returns the live state of a player in the world.
	Lookup(name string) (PlayerState, bool)
}

// StaticRoster is a Roster backed by a map. It is used by tests and replays.
type StaticRoster struct {
	Local   string
	Players map[string]PlayerState
}

// NewStaticRoster returns an empty roster whose local player is local.
func NewStaticRoster(local string) *StaticRoster {
	return &StaticRoster{Local: local, Players: make(map[string]PlayerState)}
}

// LocalName implements Roster.
func (r *StaticRoster) LocalName() string { return r.Local }

// Lookup implements Roster.
func (r *StaticRoster) Lookup(name string) (PlayerState, bool) {
	s, ok := r.Players[name]
	return s, ok
}

// Set stores the state of a player.
func (r *StaticRoster) Set(s PlayerState) {
	r.Players[s.Name] = s
}

// Remove forgets a player.
func (r *StaticRoster) Remove(name string) {
	delete(r.Players, name)
}

func localState(r Roster) (PlayerState, bool) {
	if r == nil {
		return PlayerState{}, false
	}
	return r.Lookup(r.LocalName())
}
