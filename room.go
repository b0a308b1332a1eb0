package catacombs

import (
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/zyedidia/generic/mapset"
)

const rotationUnknown = -1

// Corner offsets probed for the rotation marker, in rotation order.
var cornerOffsets = [4][2]int{
	{-HalfRoomSize, -HalfRoomSize},
	{HalfRoomSize, -HalfRoomSize},
	{HalfRoomSize, HalfRoomSize},
	{-HalfRoomSize, HalfRoomSize},
}

// env carries the collaborators rooms and doors sample from.
type env struct {
	world World
	rooms RoomSource
}

// Room is one discovered room. A room owns one or more contiguous room grid
// components. Rooms are created and mutated only by the DungeonScanner that
// owns them.
type Room struct {
	env    *env
	handle RoomHandle

	comps   []Component
	mask    CellMask
	centres [][2]int
	height  int

	data    *RoomData
	name    string
	typ     RoomType
	clear   ClearType
	secrets int
	crypts  int
	cores   []int32
	shape   Shape

	explored  bool
	checkmark Checkmark
	rotation  int
	corner    mgl64.Vec3

	players mapset.Set[*DungeonPlayer]
}

func newRoom(e *env, comps []Component, height int) *Room {
	r := &Room{
		env:       e,
		height:    height,
		typ:       RoomUnknown,
		shape:     Shape1x1,
		checkmark: CheckUnexplored,
		rotation:  rotationUnknown,
		players:   mapset.New[*DungeonPlayer](),
	}
	for _, c := range comps {
		r.addComponent(c, false)
	}
	r.update()
	return r
}

// Handle returns the arena handle of the room.
func (r *Room) Handle() RoomHandle { return r.handle }

// Name returns the room name from the room database, or "" while the room is
// unidentified.
func (r *Room) Name() string { return r.name }

func (r *Room) Type() RoomType { return r.typ }

func (r *Room) Shape() Shape { return r.shape }

// Clear returns how the room is cleared. It is only meaningful once the room
// has been identified.
func (r *Room) Clear() ClearType { return r.clear }

// Secrets is the secret count from the room database, or 0 when unknown.
func (r *Room) Secrets() int { return r.secrets }

func (r *Room) Crypts() int { return r.crypts }

// Height returns the Y level of the room's roof, or 0 if unknown.
func (r *Room) Height() int { return r.height }

// Explored reports whether the room is revealed on the minimap.
func (r *Room) Explored() bool { return r.explored }

// Checkmark returns the last checkmark seen on the map.
func (r *Room) Checkmark() Checkmark { return r.checkmark }

// Data returns the database entry the room was identified as.
func (r *Room) Data() (RoomData, bool) {
	if r.data == nil {
		return RoomData{}, false
	}
	return *r.data, true
}

// Cores returns the fingerprints of the identified room.
func (r *Room) Cores() []int32 {
	return append([]int32(nil), r.cores...)
}

// Components returns the room's grid components sorted by x then z.
func (r *Room) Components() []Component {
	return append([]Component(nil), r.comps...)
}

// Mask returns the room's grid cells as a mask of room indices.
func (r *Room) Mask() CellMask { return r.mask }

// Rotation returns the rotation in degrees once resolved.
func (r *Room) Rotation() (int, bool) {
	return r.rotation, r.rotation != rotationUnknown
}

// Corner returns the world position of the rotation corner once resolved.
func (r *Room) Corner() (mgl64.Vec3, bool) {
	return r.corner, r.rotation != rotationUnknown
}

// Players returns the players currently in the room, ordered by name.
func (r *Room) Players() []*DungeonPlayer {
	out := make([]*DungeonPlayer, 0, r.players.Size())
	r.players.Each(func(p *DungeonPlayer) {
		out = append(out, p)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// HasComponent reports whether c is one of the room's components.
func (r *Room) HasComponent(c Component) bool {
	for _, rc := range r.comps {
		if rc == c {
			return true
		}
	}
	return false
}

func (r *Room) String() string {
	name := r.name
	if name == "" {
		name = "?"
	}
	return fmt.Sprintf("Room[name: %s, type: %s, shape: %s, comps: %v, checkmark: %s]", name, r.typ, r.shape, r.comps, r.checkmark)
}

func (r *Room) addComponent(c Component, update bool) {
	if r.HasComponent(c) {
		return
	}
	r.comps = append(r.comps, c)
	if update {
		r.update()
	}
}

// update recomputes everything derived from the component set. The rotation
// is resolved again on a later tick.
func (r *Room) update() {
	sort.Slice(r.comps, func(i, j int) bool {
		if r.comps[i].X != r.comps[j].X {
			return r.comps[i].X < r.comps[j].X
		}
		return r.comps[i].Z < r.comps[j].Z
	})

	r.mask = 0
	r.centres = r.centres[:0]
	for _, c := range r.comps {
		if idx := RoomIndex(c); validRoomIndex(idx) {
			r.mask.Set(idx)
		}
		x, z := ComponentToReal(c, false)
		r.centres = append(r.centres, [2]int{x, z})
	}

	r.scan()
	r.shape = RoomShape(r.comps)
	r.corner = mgl64.Vec3{}
	r.rotation = rotationUnknown
}

// scan fingerprints every component column and identifies the room.
func (r *Room) scan() {
	for _, c := range r.centres {
		if r.height == 0 {
			if h, ok := HighestY(r.env.world, c[0], c[1]); ok {
				r.height = h
			}
		}
		r.loadFromCore(Core(r.env.world, c[0], c[1]))
	}
}

func (r *Room) loadFromCore(core int32) bool {
	if r.env.rooms == nil {
		return false
	}
	data, ok := r.env.rooms.ByCore(core)
	if !ok {
		return false
	}
	r.loadFromData(data)
	return true
}

func (r *Room) loadFromData(data *RoomData) {
	r.data = data
	r.name = data.Name
	if t, ok := ParseRoomType(data.Type); ok {
		r.typ = t
	} else {
		r.typ = RoomNormal
	}
	r.secrets = data.Secrets
	r.crypts = data.Crypts
	r.cores = data.Cores
	if data.Clear == "mob" {
		r.clear = ClearMob
	} else {
		r.clear = ClearMiniboss
	}
}

// loadFromMapColor types the room from its minimap colour. Blood and entrance
// rooms are unique per floor and are identified by name.
func (r *Room) loadFromMapColor(color byte) {
	t, ok := mapColorRoomTypes[color]
	if !ok {
		t = RoomNormal
	}
	r.typ = t

	if r.env.rooms == nil {
		return
	}
	var name string
	switch t {
	case RoomBlood:
		name = "Blood"
	case RoomEntrance:
		name = "Entrance"
	default:
		return
	}
	if data, ok := r.env.rooms.ByName(name); ok {
		r.loadFromData(data)
	}
}

// findRotation probes the corners of every component for the rotation
// marker. The probe stops at the first unloaded chunk and is retried later.
func (r *Room) findRotation() {
	if r.height == 0 || len(r.centres) == 0 {
		return
	}

	if r.typ == RoomFairy {
		c := r.centres[0]
		r.rotation = 0
		r.corner = mgl64.Vec3{float64(c[0]-HalfRoomSize) + 0.5, float64(r.height), float64(c[1]-HalfRoomSize) + 0.5}
		return
	}

	w := r.env.world
	for _, c := range r.centres {
		for i, off := range cornerOffsets {
			nx, nz := c[0]+off[0], c[1]+off[1]
			if !w.IsChunkLoaded(nx, r.height, nz) {
				return
			}
			b := w.BlockAt(nx, r.height, nz)
			if b.ID != BlockStainedClay || b.Meta != rotationMarkerMeta {
				continue
			}
			r.rotation = i * 90
			r.corner = mgl64.Vec3{float64(nx) + 0.5, float64(r.height), float64(nz) + 0.5}
			return
		}
	}
}

// FromPos converts a world position to room-relative coordinates.
func (r *Room) FromPos(pos mgl64.Vec3) (mgl64.Vec3, bool) {
	if r.rotation == rotationUnknown {
		return mgl64.Vec3{}, false
	}
	rel := mgl64.Vec3{
		math.Floor(pos[0]) - math.Floor(r.corner[0]),
		math.Floor(pos[1]) - math.Floor(r.corner[1]),
		math.Floor(pos[2]) - math.Floor(r.corner[2]),
	}
	return RotateCoords(rel, r.rotation), true
}

// FromComp converts room-relative coordinates to a world position. It is the
// inverse of FromPos for block positions.
func (r *Room) FromComp(rel mgl64.Vec3) (mgl64.Vec3, bool) {
	if r.rotation == rotationUnknown {
		return mgl64.Vec3{}, false
	}
	v := RotateCoords(rel, 360-r.rotation)
	return mgl64.Vec3{
		math.Floor(v[0]) + math.Floor(r.corner[0]),
		math.Floor(v[1]) + math.Floor(r.corner[1]),
		math.Floor(v[2]) + math.Floor(r.corner[2]),
	}, true
}
