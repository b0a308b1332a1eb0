package catacombs

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sasha-s/go-deadlock"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Config configures a Service.
type Config struct {
	// PersistInterval is how often the run history is saved.
	PersistInterval time.Duration
	// SnapshotEvery is the number of ticks between snapshot broadcasts.
	SnapshotEvery uint64

	Patterns Provider[PatternDocument]
	Rooms    Provider[[]RoomData]
	Mayor    Provider[MayorDocument]
	// History persists the last and best runs. Nil disables persistence.
	History *LocalStore[History]

	// Wrap, when set, is called by Run on every tick with the step to
	// perform. Hosts whose world can only be read inside a transaction open
	// it here and call step within it.
	Wrap func(step func())
}

// DefaultConfig returns a Config with no providers and no persistence.
func DefaultConfig() Config {
	return Config{
		PersistInterval: 30 * time.Second,
		SnapshotEvery:   20,
	}
}

// Service runs a Tracker in real time. It owns the tracker lock: hosts feed
// events through Do, readers use View or Snapshot.
type Service struct {
	mu      deadlock.RWMutex
	tracker *Tracker
	cfg     Config
	log     logrus.FieldLogger
	runID   uuid.UUID
	ticks   uint64

	onSnapshot Observers[RunSnapshot]
}

// NewService wraps t. A new run id is drawn every time the tracker enters a
// dungeon.
func NewService(t *Tracker, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.PersistInterval <= 0 {
		cfg.PersistInterval = def.PersistInterval
	}
	if cfg.SnapshotEvery == 0 {
		cfg.SnapshotEvery = def.SnapshotEvery
	}

	s := &Service{
		tracker: t,
		cfg:     cfg,
		log:     t.log.WithField("component", "service"),
		runID:   uuid.New(),
	}
	t.Location().OnWorldChange(func(e EventWorldChange) {
		if e.World == WorldCatacombs {
			s.runID = uuid.New()
			s.log.WithField("run", s.runID).Info("catacombs: run started")
		}
	})
	t.Dungeon().On300Score(func(EventScore) {
		s.record()
	})
	return s
}

// OnSnapshot registers a listener for periodic snapshots. Listeners run
// without the tracker lock held. Register listeners before Run.
func (s *Service) OnSnapshot(fn func(RunSnapshot)) *Service {
	s.onSnapshot.Add(fn)
	return s
}

// Do runs fn with exclusive access to the tracker.
func (s *Service) Do(fn func(t *Tracker)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.tracker)
}

// View runs fn with shared access to the tracker. fn must not change it.
func (s *Service) View(fn func(t *Tracker)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.tracker)
}

// RunID returns the id of the current run.
func (s *Service) RunID() uuid.UUID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runID
}

// Snapshot copies the current tracker state.
func (s *Service) Snapshot() RunSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tracker.Snapshot(s.runID, time.Now())
}

// Load fetches every configured provider once and applies the results. A
// failing provider is logged unless it is required.
func (s *Service) Load(ctx context.Context) error {
	if err := load(ctx, s, s.cfg.Patterns, s.applyPatterns); err != nil {
		return err
	}
	if err := load(ctx, s, s.cfg.Rooms, s.applyRooms); err != nil {
		return err
	}
	return load(ctx, s, s.cfg.Mayor, s.applyMayor)
}

// Run loads the providers and then runs the tick driver, the provider
// subscriptions and the persister until ctx is done or one of them fails.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Load(ctx); err != nil {
		return err
	}

	step := s.Step
	if wrap := s.cfg.Wrap; wrap != nil {
		step = func() { wrap(s.Step) }
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.tracker.Scheduler().Run(gctx, step)
	})
	g.Go(func() error {
		return consume(gctx, s, s.cfg.Patterns, s.applyPatterns)
	})
	g.Go(func() error {
		return consume(gctx, s, s.cfg.Rooms, s.applyRooms)
	})
	g.Go(func() error {
		return consume(gctx, s, s.cfg.Mayor, s.applyMayor)
	})
	g.Go(func() error {
		return s.persistLoop(gctx)
	})

	err := g.Wait()
	s.Persist()
	return err
}

// Step advances the tracker by one tick and broadcasts a snapshot every
// SnapshotEvery ticks. Run calls it from the tick driver; replays call it
// directly.
func (s *Service) Step() {
	s.mu.Lock()
	s.tracker.Tick()
	s.ticks++
	var (
		snap RunSnapshot
		send bool
	)
	if s.onSnapshot.Len() > 0 && s.ticks%s.cfg.SnapshotEvery == 0 {
		snap = s.tracker.Snapshot(s.runID, time.Now())
		send = true
	}
	s.mu.Unlock()

	if send {
		s.onSnapshot.Emit(snap)
	}
}

func (s *Service) persistLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.PersistInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Persist()
		}
	}
}

// Persist records the current run, saves the history and writes a backup
// when one is due.
func (s *Service) Persist() {
	if s.cfg.History == nil {
		return
	}
	s.mu.Lock()
	s.record()
	s.mu.Unlock()

	if err := s.cfg.History.Save(); err != nil {
		s.log.WithError(err).Warn("catacombs: failed to save history")
	}
	if _, err := s.cfg.History.BackupIfDue(time.Now()); err != nil {
		s.log.WithError(err).Warn("catacombs: failed to back up history")
	}
}

// record stores the current run in the history. The caller holds the lock.
func (s *Service) record() {
	if s.cfg.History == nil || s.tracker.Dungeon().Floor() == "" {
		return
	}
	snap := s.tracker.Snapshot(s.runID, time.Now())
	var best bool
	s.cfg.History.Update(func(h *History) {
		best = h.Record(snap)
	})
	if best {
		s.log.WithFields(logrus.Fields{
			"floor": snap.Floor,
			"score": snap.Score.Score,
		}).Info("catacombs: new best score")
	}
}

func (s *Service) applyPatterns(doc PatternDocument) {
	_ = s.tracker.ReloadPatterns(doc)
}

func (s *Service) applyRooms(entries []RoomData) {
	s.tracker.SwapRooms(NewRoomDatabase(entries))
}

func (s *Service) applyMayor(doc MayorDocument) {
	paul := doc.HasPaul()
	s.tracker.Dungeon().SetPaul(paul)
	s.log.WithField("paul", paul).Debug("catacombs: mayor updated")
}

// optioned is implemented by providers that expose their options.
type optioned interface {
	Options() ProviderOptions
}

func load[T any](ctx context.Context, s *Service, p Provider[T], apply func(T)) error {
	if p == nil {
		return nil
	}
	v, err := p.Fetch(ctx)
	if err != nil {
		if o, ok := p.(optioned); ok && o.Options().Required {
			return fmt.Errorf("catacombs: required provider %s: %w", p.Name(), err)
		}
		s.log.WithError(err).WithField("provider", p.Name()).Warn("catacombs: provider unavailable, using built-in data")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	apply(v)
	return nil
}

func consume[T any](ctx context.Context, s *Service, p Provider[T], apply func(T)) error {
	if p == nil {
		return nil
	}
	updates := make(chan T)
	sub, err := p.Subscribe(ctx, updates)
	if err != nil {
		return fmt.Errorf("catacombs: subscribe %s: %w", p.Name(), err)
	}
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil
		case v := <-updates:
			s.mu.Lock()
			apply(v)
			s.mu.Unlock()
		}
	}
}
