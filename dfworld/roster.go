package dfworld

import (
	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"

	"github.com/oriumgames/catacombs"
)

// Roster looks players up in a world transaction.
type Roster struct {
	tx    *world.Tx
	local string
}

// NewRoster creates a roster over tx. local names the tracked player. tx may
// be nil and bound later.
func NewRoster(tx *world.Tx, local string) *Roster {
	return &Roster{tx: tx, local: local}
}

// Bind makes lookups go through tx. Pass nil when the transaction ends.
func (r *Roster) Bind(tx *world.Tx) { r.tx = tx }

// LocalName implements catacombs.Roster.
func (r *Roster) LocalName() string { return r.local }

// Lookup implements catacombs.Roster.
func (r *Roster) Lookup(name string) (catacombs.PlayerState, bool) {
	if r.tx == nil {
		return catacombs.PlayerState{}, false
	}
	for e := range r.tx.Players() {
		p, ok := e.(*player.Player)
		if !ok || p.Name() != name {
			continue
		}
		return State(p), true
	}
	return catacombs.PlayerState{}, false
}

// State converts a player to its tracker state. The ping is at least one
// millisecond so players in the world always count as verified.
func State(p *player.Player) catacombs.PlayerState {
	ping := int(p.Latency().Milliseconds())
	if ping < 1 {
		ping = 1
	}
	return catacombs.PlayerState{
		Name:     p.Name(),
		Position: p.Position(),
		Yaw:      p.Rotation().Yaw(),
		Ping:     ping,
	}
}
