package dfworld

import (
	"fmt"

	"github.com/df-mc/dragonfly/server/player"
	"github.com/df-mc/dragonfly/server/world"

	"github.com/oriumgames/catacombs"
)

// Handler forwards player events to a driver. Attach one to every player in
// the dungeon world; chat is treated as party chat.
//
// Dragonfly calls handlers inside a world transaction, which never overlaps
// with the driver's tick transaction, so taking the service lock here is
// safe.
type Handler struct {
	player.NopHandler
	d *Driver
}

// NewHandler returns a handler feeding d.
func NewHandler(d *Driver) *Handler {
	return &Handler{d: d}
}

// Compile-time check that Handler implements player.Handler.
var _ player.Handler = (*Handler)(nil)

// HandleChat forwards the message as a party chat line.
func (h *Handler) HandleChat(ctx *player.Context, message *string) {
	line := fmt.Sprintf("Party > %s: %s", ctx.Val().Name(), *message)
	h.d.svc.Do(func(t *catacombs.Tracker) {
		t.HandleChat(line)
	})
}

// HandleChangeWorld follows the tracked player into the new world.
func (h *Handler) HandleChangeWorld(p *player.Player, _, after *world.World) {
	if p.Name() != h.d.roster.LocalName() {
		return
	}
	h.d.SetWorld(after)
}

// HandleQuit stops sampling when the tracked player leaves.
func (h *Handler) HandleQuit(p *player.Player) {
	if p.Name() != h.d.roster.LocalName() {
		return
	}
	h.d.SetWorld(nil)
}
