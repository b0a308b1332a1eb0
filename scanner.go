package catacombs

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Roof heights at or above this level mean a door slot is walled over.
const doorRoofLimit = 85

// Y level probed next to entrance rooms for an entrance door.
const entranceDoorProbeY = 76

// RoomHandle addresses a room in the scanner's arena. The zero handle means
// no room.
type RoomHandle int

// ScannerState is the lifecycle state of a DungeonScanner.
type ScannerState uint8

const (
	ScannerInactive ScannerState = iota
	ScannerScanning
)

func (s ScannerState) String() string {
	if s == ScannerScanning {
		return "scanning"
	}
	return "inactive"
}

// DungeonScanner incrementally discovers the floor layout from world blocks
// and the minimap, and tracks players through it.
//
// Rooms live in an arena addressed by RoomHandle. Every room grid cell holds
// the handle of the room that owns it; merging two rooms repoints the cells of
// the absorbed room to the survivor and frees the absorbed arena slot.
type DungeonScanner struct {
	env     *env
	dungeon *Dungeon
	roster  Roster
	log     logrus.FieldLogger
	now     func() time.Time

	state    ScannerState
	pending  []ScanCoord
	cells    [RoomCellCount]RoomHandle
	arena    []*Room
	order    []RoomHandle
	doors    [DoorSlotCount]*Door
	doorList []*Door
	players  []*DungeonPlayer

	current *Room
	lastIdx int
	hasLast bool

	enter   Observers[EventRoomEnter]
	leave   Observers[EventRoomLeave]
	cleared Observers[EventRoomCleared]
}

func newDungeonScanner(e *env, d *Dungeon, roster Roster, log logrus.FieldLogger, now func() time.Time) *DungeonScanner {
	s := &DungeonScanner{
		env:     e,
		dungeon: d,
		roster:  roster,
		log:     log,
		now:     now,
	}
	s.Reset()
	return s
}

func (s *DungeonScanner) State() ScannerState { return s.state }

// Start begins scanning. It is a no-op while already scanning.
func (s *DungeonScanner) Start() {
	if s.state == ScannerScanning {
		return
	}
	s.state = ScannerScanning
	s.log.Debug("catacombs: scanner started")
}

// Stop stops scanning without discarding discovered state.
func (s *DungeonScanner) Stop() {
	s.state = ScannerInactive
}

// Reset discards every room, door and player and stops scanning.
func (s *DungeonScanner) Reset() {
	s.state = ScannerInactive
	s.pending = ScanCoords()
	s.cells = [RoomCellCount]RoomHandle{}
	s.arena = nil
	s.order = nil
	s.doors = [DoorSlotCount]*Door{}
	s.doorList = nil
	s.players = nil
	s.current = nil
	s.lastIdx = 0
	s.hasLast = false
}

// OnRoomEnter registers a listener for room enter events.
func (s *DungeonScanner) OnRoomEnter(fn func(EventRoomEnter)) *DungeonScanner {
	s.enter.Add(fn)
	return s
}

// OnRoomLeave registers a listener for room leave events.
func (s *DungeonScanner) OnRoomLeave(fn func(EventRoomLeave)) *DungeonScanner {
	s.leave.Add(fn)
	return s
}

// OnRoomCleared registers a listener for rooms gaining a checkmark.
func (s *DungeonScanner) OnRoomCleared(fn func(EventRoomCleared)) *DungeonScanner {
	s.cleared.Add(fn)
	return s
}

// Pending returns the number of lattice positions not yet scanned.
func (s *DungeonScanner) Pending() int { return len(s.pending) }

// CurrentRoom returns the room the local player is in.
func (s *DungeonScanner) CurrentRoom() *Room { return s.current }

// Room returns the room addressed by h, or nil if the handle is empty or was
// absorbed by a merge.
func (s *DungeonScanner) Room(h RoomHandle) *Room {
	if h <= 0 || int(h) > len(s.arena) {
		return nil
	}
	return s.arena[h-1]
}

// RoomAtIndex returns the room owning a grid index.
func (s *DungeonScanner) RoomAtIndex(idx int) *Room {
	if !validRoomIndex(idx) {
		return nil
	}
	return s.Room(s.cells[idx])
}

// RoomAtComponent returns the room owning a room grid component.
func (s *DungeonScanner) RoomAtComponent(c Component) *Room {
	if !inGrid(c) {
		return nil
	}
	return s.RoomAtIndex(RoomIndex(c))
}

// RoomAt returns the room at a world position.
func (s *DungeonScanner) RoomAt(x, z float64) *Room {
	return s.RoomAtComponent(RealToComponent(x, z, false))
}

// DoorAtIndex returns the door in a door slot.
func (s *DungeonScanner) DoorAtIndex(idx int) *Door {
	if !validDoorIndex(idx) {
		return nil
	}
	return s.doors[idx]
}

// DoorAtComponent returns the door at a door lattice component.
func (s *DungeonScanner) DoorAtComponent(c Component) *Door {
	return s.DoorAtIndex(DoorIndex(c))
}

// DoorAt returns the door at a world position.
func (s *DungeonScanner) DoorAt(x, z float64) *Door {
	return s.DoorAtComponent(RealToComponent(x, z, true))
}

// UniqueRooms returns every live room in discovery order.
func (s *DungeonScanner) UniqueRooms() []*Room {
	out := make([]*Room, 0, len(s.order))
	for _, h := range s.order {
		if r := s.Room(h); r != nil {
			out = append(out, r)
		}
	}
	return out
}

// UniqueDoors returns every door in discovery order.
func (s *DungeonScanner) UniqueDoors() []*Door {
	return append([]*Door(nil), s.doorList...)
}

// ExploredRooms returns the rooms revealed on the minimap, in grid order.
func (s *DungeonScanner) ExploredRooms() []*Room {
	var (
		out  []*Room
		seen CellMask
	)
	for idx := range s.cells {
		r := s.RoomAtIndex(idx)
		if r == nil || !r.explored || seen.ContainsAny(r.mask) {
			continue
		}
		seen = seen.Or(r.mask)
		out = append(out, r)
	}
	return out
}

// Players returns the tracked party members.
func (s *DungeonScanner) Players() []*DungeonPlayer {
	return append([]*DungeonPlayer(nil), s.players...)
}

// Player returns the tracked party member with the given name.
func (s *DungeonScanner) Player(name string) *DungeonPlayer {
	for _, p := range s.players {
		if p.name == name {
			return p
		}
	}
	return nil
}

// update runs one scan step: candidate scan, rotation and door refresh, and
// player refresh. tick counts update calls since scanning started.
func (s *DungeonScanner) update(tick uint64) {
	if s.state != ScannerScanning {
		return
	}
	s.scan()
	s.checkRoomState()
	s.checkDoorState()
	s.checkPlayerState(tick)
}

// checkTransitions compares the local player's grid index with the previous
// tick and emits leave and enter events. A leave needs a room to leave.
// Scanning stops once the player leaves the 6x6 grid for the boss room.
func (s *DungeonScanner) checkTransitions() {
	if s.state != ScannerScanning {
		return
	}
	local, ok := localState(s.roster)
	if !ok {
		return
	}

	x, z := local.Position.X(), local.Position.Z()
	idx := RoomIndex(RealToComponent(x, z, false))
	if idx > RoomCellCount-1 {
		s.state = ScannerInactive
		s.log.WithField("idx", idx).Debug("catacombs: left room grid, scanner stopped")
	}

	next := s.RoomAtIndex(idx)
	var prev *Room
	if s.hasLast {
		prev = s.RoomAtIndex(s.lastIdx)
	}

	if s.hasLast && s.lastIdx == idx {
		return
	}
	if !sameRoomName(prev, next) {
		if prev != nil {
			s.leave.Emit(EventRoomLeave{New: next, Old: prev})
		}
		s.enter.Emit(EventRoomEnter{Room: next})
	}
	s.lastIdx = idx
	s.hasLast = true
	s.current = s.RoomAt(x, z)
}

// sameRoomName compares rooms by name. No room and an unnamed room differ.
func sameRoomName(a, b *Room) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.name == b.name
}

func inGrid(c Component) bool {
	return c.X >= 0 && c.X < GridWidth && c.Z >= 0 && c.Z < GridWidth
}

// scan resolves every pending lattice position whose chunk is loaded. Door
// slots become doors when the roof is low enough; room slots become rooms
// and are joined to their neighbours. Columns that are all air stay pending.
func (s *DungeonScanner) scan() {
	w := s.env.world
	for i := len(s.pending) - 1; i >= 0; i-- {
		sc := s.pending[i]
		if !w.IsChunkLoaded(sc.X, 0, sc.Z) {
			continue
		}
		roof, ok := HighestY(w, sc.X, sc.Z)
		if !ok {
			continue
		}
		s.pending = append(s.pending[:i], s.pending[i+1:]...)

		if sc.IsDoor() {
			if roof < doorRoofLimit {
				d := newDoor(s.env, sc.X, sc.Z, sc.Lattice)
				if sc.Lattice.Z%2 == 1 {
					d.rotation = 0
				}
				s.addDoor(d)
			}
			continue
		}

		s.scanRoom(sc, roof)
	}
}

func (s *DungeonScanner) scanRoom(sc ScanCoord, roof int) {
	w := s.env.world
	c := Component{X: sc.Lattice.X >> 1, Z: sc.Lattice.Z >> 1}
	idx := RoomIndex(c)

	room := s.RoomAtIndex(idx)
	if room == nil {
		room = s.addRoom(newRoom(s.env, []Component{c}, roof))
		s.cells[idx] = room.handle
	} else if room.height == 0 {
		room.height = roof
	}

	for _, dir := range directions {
		nx, nz := sc.X+dir.dx, sc.Z+dir.dz
		floor := w.BlockAt(nx, roof, nz)
		above := w.BlockAt(nx, roof+1, nz)

		if room.typ == RoomEntrance && !floor.IsAir() {
			if w.BlockAt(nx, entranceDoorProbeY, nz).IsAir() {
				continue
			}
			dc := Component{X: c.X*2 + dir.cx, Z: c.Z*2 + dir.cz}
			if validDoorIndex(DoorIndex(dc)) {
				d := newDoor(s.env, nx, nz, dc)
				d.typ = DoorEntrance
				s.addDoor(d)
			}
			continue
		}

		if floor.IsAir() || !above.IsAir() {
			continue
		}

		nc := Component{X: c.X + dir.cx, Z: c.Z + dir.cz}
		if !inGrid(nc) {
			continue
		}
		ndx := RoomIndex(nc)

		existing := s.RoomAtIndex(ndx)
		if existing == nil {
			room.addComponent(nc, true)
			s.cells[ndx] = room.handle
			continue
		}
		if existing.typ == RoomEntrance || existing == room {
			continue
		}

		survivor, absorbed := existing, room
		if room.handle < existing.handle {
			survivor, absorbed = room, existing
		}
		s.mergeRooms(survivor, absorbed)
		room = survivor
	}
}

func (s *DungeonScanner) addRoom(r *Room) *Room {
	s.arena = append(s.arena, r)
	r.handle = RoomHandle(len(s.arena))
	s.order = append(s.order, r.handle)
	return r
}

func (s *DungeonScanner) addDoor(d *Door) {
	idx := DoorIndex(d.lattice)
	if !validDoorIndex(idx) {
		return
	}
	if prev := s.doors[idx]; prev != nil {
		for i, pd := range s.doorList {
			if pd == prev {
				s.doorList = append(s.doorList[:i], s.doorList[i+1:]...)
				break
			}
		}
	}
	s.doors[idx] = d
	s.doorList = append(s.doorList, d)
}

// mergeRooms moves every component of absorbed into survivor, repoints the
// grid and frees the absorbed handle. Occupants and dwell times carry over.
func (s *DungeonScanner) mergeRooms(survivor, absorbed *Room) {
	for _, c := range absorbed.comps {
		survivor.addComponent(c, false)
	}
	for i, h := range s.cells {
		if h == absorbed.handle {
			s.cells[i] = survivor.handle
		}
	}
	for i, h := range s.order {
		if h == absorbed.handle {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.arena[absorbed.handle-1] = nil

	absorbed.players.Each(func(p *DungeonPlayer) {
		survivor.players.Put(p)
	})
	for _, p := range s.players {
		if p.currentRoom == absorbed {
			p.currentRoom = survivor
		}
		if p.lastRoom == absorbed {
			p.lastRoom = survivor
		}
		if d, ok := p.visited[absorbed]; ok {
			p.visited[survivor] += d
			delete(p.visited, absorbed)
		}
	}
	if s.current == absorbed {
		s.current = survivor
	}

	survivor.update()
	s.log.WithFields(logrus.Fields{
		"survivor": survivor.handle,
		"absorbed": absorbed.handle,
		"shape":    survivor.shape,
	}).Debug("catacombs: merged rooms")
}

func (s *DungeonScanner) checkRoomState() {
	for _, r := range s.UniqueRooms() {
		if r.rotation != rotationUnknown {
			continue
		}
		r.findRotation()
	}
}

func (s *DungeonScanner) checkDoorState() {
	for _, d := range s.doorList {
		if d.opened {
			continue
		}
		d.check()
	}
}

// checkPlayerState adds party members until every member is tracked, then
// refreshes tracked players. Real positions are sampled every fourth tick for
// players with a verified ping; the rest keep their minimap position.
func (s *DungeonScanner) checkPlayerState(tick uint64) {
	members := s.dungeon.PartyMembers()
	if !s.allTracked(members) {
		for _, name := range members {
			if s.Player(name) != nil {
				continue
			}
			if st, ok := s.roster.Lookup(name); ok && st.Ping < 0 {
				continue
			}
			s.players = append(s.players, NewDungeonPlayer(name))
		}
		return
	}

	now := s.now()
	for _, p := range s.players {
		st, found := s.roster.Lookup(p.name)
		verified := found && st.HasPing()
		if tick != 0 && tick%4 == 0 && found {
			if verified {
				s.onPlayerMove(p, st.Position.X(), st.Position.Z(), st.Yaw)
			} else {
				p.inRender = false
			}
		}
		if !verified {
			continue
		}
		p.enterRoom(now)
	}
}

func (s *DungeonScanner) allTracked(members []string) bool {
	if len(s.players) < len(members) {
		return false
	}
	for _, name := range members {
		if s.Player(name) == nil {
			return false
		}
	}
	return true
}

func (s *DungeonScanner) onPlayerMove(p *DungeonPlayer, x, z, yaw float64) {
	if p == nil || !insideFloor(x, z) {
		return
	}
	p.inRender = true
	p.iconX = clampMap(x, CornerStartX, CornerEndX, 0, DefaultMapSizeX)
	p.iconZ = clampMap(z, CornerStartZ, CornerEndZ, 0, DefaultMapSizeZ)
	p.realX = x
	p.realZ = z
	p.hasPosition = true
	p.rotation = yaw + 180
	p.currentRoom = s.RoomAt(x, z)
}

// roomCleared records a visit for every player inside the room.
func (s *DungeonScanner) roomCleared(r *Room, check Checkmark) {
	occupants := r.Players()
	for _, p := range occupants {
		p.recordClear(check, VisitRecord{
			Time: p.visited[r],
			Room: roomKey(r),
			Solo: len(occupants) == 1,
		})
	}
	s.log.WithFields(logrus.Fields{
		"room":      roomKey(r),
		"checkmark": check,
		"players":   len(occupants),
	}).Debug("catacombs: room cleared")
	s.cleared.Emit(EventRoomCleared{Room: r, Checkmark: check})
}
