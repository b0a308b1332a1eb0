package dfworld

import (
	"sync/atomic"

	"github.com/df-mc/dragonfly/server/world"
	"github.com/sirupsen/logrus"

	"github.com/oriumgames/catacombs"
)

// Driver runs a tracker against a Dragonfly world. Each tick executes in a
// world transaction with the sampler and the roster bound to it.
type Driver struct {
	world   atomic.Pointer[world.World]
	sampler *Sampler
	roster  *Roster
	tracker *catacombs.Tracker
	svc     *catacombs.Service
	log     logrus.FieldLogger
}

// NewDriver builds a tracker over w for the player named local and wraps it
// in a service configured by cfg. cfg.Wrap is replaced. w may be nil until
// the player joins.
func NewDriver(w *world.World, local string, cfg catacombs.Config, log logrus.FieldLogger) *Driver {
	d := &Driver{
		sampler: NewSampler(nil),
		roster:  NewRoster(nil, local),
		log:     log,
	}
	d.world.Store(w)

	d.tracker = catacombs.NewBuilder().
		World(d.sampler).
		Roster(d.roster).
		Logger(log).
		Init()
	cfg.Wrap = d.wrap
	d.svc = catacombs.NewService(d.tracker, cfg)
	return d
}

// Tracker returns the driven tracker. Once the service runs, access it
// through the service.
func (d *Driver) Tracker() *catacombs.Tracker { return d.tracker }

// Service returns the service the driver steps.
func (d *Driver) Service() *catacombs.Service { return d.svc }

// World returns the world ticks execute in, or nil.
func (d *Driver) World() *world.World { return d.world.Load() }

// SetWorld moves the driver to w and resets the run. A nil world pauses
// sampling; ticks still advance the scheduler.
func (d *Driver) SetWorld(w *world.World) {
	if d.world.Swap(w) == w {
		return
	}
	d.svc.Do(func(t *catacombs.Tracker) {
		t.HandleWorldUnload()
	})
	d.log.WithField("local", d.roster.LocalName()).Debug("dfworld: tracked player changed world")
}

// wrap executes step inside a transaction on the current world and waits for
// it to finish.
func (d *Driver) wrap(step func()) {
	w := d.world.Load()
	if w == nil {
		step()
		return
	}
	<-w.Exec(func(tx *world.Tx) {
		d.sampler.Bind(tx)
		d.roster.Bind(tx)
		defer func() {
			d.sampler.Bind(nil)
			d.roster.Bind(nil)
		}()
		step()
	})
}
