package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/oriumgames/catacombs"
)

// replayEvent is one line of a replay log.
type replayEvent struct {
	Type string `json:"type"`

	// tick
	N int `json:"n,omitempty"`

	// block, fill
	X    int    `json:"x,omitempty"`
	Y    int    `json:"y,omitempty"`
	Z    int    `json:"z,omitempty"`
	To   [3]int `json:"to,omitempty"`
	ID   int    `json:"id,omitempty"`
	Meta int    `json:"meta,omitempty"`

	// scoreboard, tabAdd, tabUpdate, chat
	Line string `json:"line,omitempty"`

	// map
	Colors      []byte                    `json:"colors,omitempty"`
	Decorations []catacombs.MapDecoration `json:"decorations,omitempty"`

	// player
	Name string     `json:"name,omitempty"`
	Pos  [3]float64 `json:"pos,omitempty"`
	Yaw  float64    `json:"yaw,omitempty"`
	Ping int        `json:"ping,omitempty"`

	// death
	Zombie bool `json:"zombie,omitempty"`
	Baby   bool `json:"baby,omitempty"`
	Armor  int  `json:"armor,omitempty"`
}

// replayer feeds a replay log into a service.
type replayer struct {
	svc    *catacombs.Service
	world  *catacombs.MemoryWorld
	roster *catacombs.StaticRoster
	// delay is slept after every tick; zero replays as fast as possible.
	delay time.Duration
}

func (r *replayer) run(ctx context.Context, in io.Reader) (int, error) {
	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	lines := 0
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return lines, nil
		}
		lines++
		raw := sc.Bytes()
		if len(raw) == 0 || raw[0] == '#' {
			continue
		}
		var ev replayEvent
		if err := json.Unmarshal(raw, &ev); err != nil {
			return lines, fmt.Errorf("line %d: %w", lines, err)
		}
		if err := r.apply(ctx, ev); err != nil {
			return lines, fmt.Errorf("line %d: %w", lines, err)
		}
	}
	return lines, sc.Err()
}

func (r *replayer) apply(ctx context.Context, ev replayEvent) error {
	switch ev.Type {
	case "tick":
		n := ev.N
		if n <= 0 {
			n = 1
		}
		for i := 0; i < n; i++ {
			r.svc.Step()
			if r.delay > 0 {
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(r.delay):
				}
			}
		}
	case "block":
		r.svc.Do(func(*catacombs.Tracker) {
			r.world.SetBlock(ev.X, ev.Y, ev.Z, catacombs.Block{ID: ev.ID, Meta: ev.Meta})
		})
	case "fill":
		r.svc.Do(func(*catacombs.Tracker) {
			r.world.Fill(ev.X, ev.Y, ev.Z, ev.To[0], ev.To[1], ev.To[2], catacombs.Block{ID: ev.ID, Meta: ev.Meta})
		})
	case "scoreboard":
		r.svc.Do(func(t *catacombs.Tracker) { t.HandleScoreboardLine(ev.Line) })
	case "tabAdd":
		r.svc.Do(func(t *catacombs.Tracker) { t.HandleTabAdd(ev.Line) })
	case "tabUpdate":
		r.svc.Do(func(t *catacombs.Tracker) { t.HandleTabUpdate(ev.Line) })
	case "chat":
		r.svc.Do(func(t *catacombs.Tracker) { t.HandleChat(ev.Line) })
	case "map":
		r.svc.Do(func(t *catacombs.Tracker) {
			t.HandleMap(catacombs.MapData{Colors: ev.Colors, Decorations: ev.Decorations})
		})
	case "player":
		r.svc.Do(func(*catacombs.Tracker) {
			r.roster.Set(catacombs.PlayerState{
				Name:     ev.Name,
				Position: mgl64.Vec3{ev.Pos[0], ev.Pos[1], ev.Pos[2]},
				Yaw:      ev.Yaw,
				Ping:     ev.Ping,
			})
		})
	case "leave":
		r.svc.Do(func(*catacombs.Tracker) { r.roster.Remove(ev.Name) })
	case "death":
		r.svc.Do(func(t *catacombs.Tracker) {
			t.HandleEntityDeath(catacombs.EntityDeath{Zombie: ev.Zombie, Baby: ev.Baby, Armor: ev.Armor})
		})
	case "unload":
		r.svc.Do(func(t *catacombs.Tracker) { t.HandleWorldUnload() })
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	return nil
}
