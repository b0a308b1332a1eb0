package catacombs

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
)

// TickRate is the game tick interval (20 TPS).
const TickRate = 50 * time.Millisecond

// LoopFunc is a loop body. run counts the executions of this loop since it
// was registered, starting at 1.
type LoopFunc func(run uint64)

// Scheduler runs named loops once per tick, stage by stage. Within a stage
// loops run in name order. Loops may register and unregister loops, including
// themselves, while running; changes apply from the next stage pass.
//
// Scheduler is not safe for concurrent use. The Service serialises access.
type Scheduler struct {
	loops      [stageCount][]*loopState
	tasks      taskQueue
	tickNumber uint64
	tickRate   time.Duration
	log        logrus.FieldLogger

	now       func() time.Time
	lastCheck time.Time
	tpsWindow []float64
}

// loopState tracks the state of a single loop.
type loopState struct {
	name    string
	stage   Stage
	every   uint64
	fn      LoopFunc
	runs    uint64
	nextRun uint64
	removed bool
}

// ShouldRun checks if the loop is due on the given tick.
func (l *loopState) ShouldRun(tick uint64) bool {
	if l.every <= 1 {
		return true
	}
	return tick >= l.nextRun
}

// MarkRun schedules the next run.
func (l *loopState) MarkRun(tick uint64) {
	l.runs++
	if l.every > 1 {
		l.nextRun = tick + l.every
	}
}

// tpsSamples is the number of one-second samples TPS averages over.
const tpsSamples = 5

func newScheduler(log logrus.FieldLogger, now func() time.Time) *Scheduler {
	return &Scheduler{
		tickRate: TickRate,
		log:      log,
		now:      now,
	}
}

// TickNumber returns the number of ticks executed.
func (s *Scheduler) TickNumber() uint64 { return s.tickNumber }

// Register adds a loop running every n ticks in stage. A loop registered
// under an existing name replaces it. The first run happens on the next tick.
func (s *Scheduler) Register(name string, stage Stage, every uint64, fn LoopFunc) {
	if stage < Before || stage >= stageCount {
		panic(fmt.Sprintf("catacombs: invalid stage %d for loop %s", stage, name))
	}
	s.Unregister(name)

	state := &loopState{
		name:    name,
		stage:   stage,
		every:   every,
		fn:      fn,
		nextRun: s.tickNumber + 1,
	}
	loops := append(s.loops[stage], state)
	sort.SliceStable(loops, func(i, j int) bool {
		return loops[i].name < loops[j].name
	})
	s.loops[stage] = loops
}

// Unregister removes a loop. It reports whether the loop existed.
func (s *Scheduler) Unregister(name string) bool {
	for stage := Before; stage < stageCount; stage++ {
		for i, l := range s.loops[stage] {
			if l.name != name {
				continue
			}
			l.removed = true
			s.loops[stage] = append(s.loops[stage][:i:i], s.loops[stage][i+1:]...)
			return true
		}
	}
	return false
}

// Registered reports whether a loop with the name exists.
func (s *Scheduler) Registered(name string) bool {
	for stage := Before; stage < stageCount; stage++ {
		for _, l := range s.loops[stage] {
			if l.name == name {
				return true
			}
		}
	}
	return false
}

// Tick executes one scheduler tick: every due loop stage by stage, then the
// scheduled tasks.
func (s *Scheduler) Tick() {
	s.tickNumber++
	s.sampleTPS()
	for stage := Before; stage < stageCount; stage++ {
		s.runStage(stage)
	}
	s.runTasks()
}

// sampleTPS records the tick rate every 20 ticks.
func (s *Scheduler) sampleTPS() {
	if s.tickNumber%20 != 0 {
		return
	}
	now := s.now()
	if !s.lastCheck.IsZero() {
		if elapsed := now.Sub(s.lastCheck); elapsed > 0 {
			s.tpsWindow = append(s.tpsWindow, 20/elapsed.Seconds())
			if len(s.tpsWindow) > tpsSamples {
				s.tpsWindow = s.tpsWindow[1:]
			}
		}
	}
	s.lastCheck = now
}

// TPS returns the ticks per second averaged over the last five seconds,
// capped at 20. It reads 0 until enough ticks were seen after a reset.
func (s *Scheduler) TPS() float64 {
	var sum float64
	for _, v := range s.tpsWindow {
		sum += v
	}
	return max(0, min(20, sum/tpsSamples))
}

// ResetTPS forgets the tick rate samples, for example after a world change.
func (s *Scheduler) ResetTPS() {
	s.lastCheck = time.Time{}
	s.tpsWindow = nil
}

func (s *Scheduler) runStage(stage Stage) {
	loops := append([]*loopState(nil), s.loops[stage]...)
	for _, l := range loops {
		if l.removed || !l.ShouldRun(s.tickNumber) {
			continue
		}
		l.MarkRun(s.tickNumber)
		s.execute(l)
	}
}

// execute runs a loop with panic recovery. A panicking loop is unregistered
// so one faulty consumer cannot stall the tracker.
func (s *Scheduler) execute(l *loopState) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithFields(logrus.Fields{
				"loop":  l.name,
				"stage": l.stage,
				"panic": r,
				"stack": string(debug.Stack()),
			}).Error("catacombs: loop panicked, unregistering")
			s.Unregister(l.name)
		}
	}()
	l.fn(l.runs)
}

// Run calls step every tick interval until ctx is done. step is expected to
// take whatever lock guards the scheduler and call Tick.
func (s *Scheduler) Run(ctx context.Context, step func()) error {
	ticker := time.NewTicker(s.tickRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			step()
		}
	}
}
