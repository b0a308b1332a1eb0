// Package catacombs tracks a dungeon run from the inputs a game client sees
// and scores it as it goes.
//
// The tracker is an architectural layer over three host-provided sources:
//   - World: block samples, used to discover rooms, doors and their rotation
//   - Roster: live player positions and pings
//   - Text and map: scoreboard, tab list, chat lines and the minimap buffer
//
// # Quick Start
//
// Build a tracker over the host's world and feed it:
//
//	tracker := catacombs.NewBuilder().
//	    World(world).
//	    Roster(roster).
//	    Rooms(db).
//	    Init()
//
//	tracker.Dungeon().On300Score(func(e catacombs.EventScore) {
//	    fmt.Println("S+ reached with", e.Score.Score)
//	})
//
//	// On every game tick:
//	tracker.HandleTabAdd(line)
//	tracker.HandleMap(catacombs.MapData{Colors: colors, Decorations: decos})
//	tracker.Tick()
//
// # Service
//
// Service runs a tracker in real time. It owns the tracker lock, hot-swaps the
// pattern document, room database and mayor data from their providers, and
// persists the run history:
//
//	svc := catacombs.NewService(tracker, catacombs.Config{
//	    Patterns: catacombs.NewURLProvider[catacombs.PatternDocument]("patterns", catacombs.PatternDocumentURL, "cache/patterns.json"),
//	    History:  catacombs.OpenLocalStore("data", "data/backup", "history.json", catacombs.DefaultHistory, log),
//	})
//	svc.Do(func(t *catacombs.Tracker) { t.HandleChat(line) })
//	err := svc.Run(ctx)
//
// # Concurrency
//
// A Tracker is not safe for concurrent use. Listeners run synchronously on the
// update path. Hosts feeding a tracker from several goroutines go through a
// Service.
package catacombs
