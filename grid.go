package catacombs

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Floor layout constants. The playable floor starts at (-200, -200) and is
// tiled by 31 block rooms separated by 1 block door slots.
const (
	CornerStartX = -200
	CornerStartZ = -200
	CornerEndX   = -10
	CornerEndZ   = -10

	RoomSize          = 31
	DoorSize          = 1
	RoomDoorSize      = RoomSize + DoorSize
	HalfRoomSize      = RoomSize / 2
	HalfRoomDoorSize  = RoomDoorSize / 2
	DefaultMapSizeX   = 125
	DefaultMapSizeZ   = 125
	GridWidth         = 6
	RoomCellCount     = GridWidth * GridWidth
	DoorSlotCount     = 60
	scanLatticeExtent = 11
)

// Component is a coordinate pair on one of the two floor grids: the 6x6 room
// grid (0..5 on each axis) or the 11x11 door lattice (0..10), where odd
// coordinates are door slots.
type Component struct {
	X, Z int
}

func (c Component) String() string {
	return fmt.Sprintf("[%d, %d]", c.X, c.Z)
}

// direction describes a probe from a room centre towards a neighbour.
// dx/dz is the world offset, cx/cz the component offset.
type direction struct {
	dx, dz int
	cx, cz int
}

var directions = [4]direction{
	{HalfRoomDoorSize, 0, 1, 0},
	{-HalfRoomDoorSize, 0, -1, 0},
	{0, HalfRoomDoorSize, 0, 1},
	{0, -HalfRoomDoorSize, 0, -1},
}

// RealToComponent converts world coordinates to a grid component. With doors
// set the door lattice is used (16 block period), otherwise the room grid
// (32 block period). Coordinates west or north of the floor yield negative
// components.
func RealToComponent(x, z float64, doors bool) Component {
	size := RoomDoorSize
	if doors {
		size = HalfRoomDoorSize
	}
	s := 4 + ((size - 16) >> 4)

	return Component{
		X: int(x-CornerStartX+0.5) >> s,
		Z: int(z-CornerStartZ+0.5) >> s,
	}
}

// ComponentToReal returns the world centre of a component.
func ComponentToReal(c Component, doors bool) (x, z int) {
	pitch := RoomDoorSize
	if doors {
		pitch = HalfRoomDoorSize
	}
	return CornerStartX + HalfRoomSize + pitch*c.X, CornerStartZ + HalfRoomSize + pitch*c.Z
}

// RoomIndex returns the room grid index of c. Valid indices are 0..35.
func RoomIndex(c Component) int {
	return GridWidth*c.Z + c.X
}

// DoorIndex returns the door slot index of a door lattice component. Valid
// indices are 0..59.
func DoorIndex(c Component) int {
	idx := ((c.X - 1) >> 1) + GridWidth*c.Z
	return idx - floorDiv(idx, 12)
}

func validRoomIndex(idx int) bool { return idx >= 0 && idx < RoomCellCount }
func validDoorIndex(idx int) bool { return idx >= 0 && idx < DoorSlotCount }

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

// ScanCoord is a lattice position queued for scanning together with its
// world centre.
type ScanCoord struct {
	Lattice Component
	X, Z    int
}

// IsDoor reports whether the coordinate is a door slot.
func (s ScanCoord) IsDoor() bool {
	return s.Lattice.X%2 == 1 || s.Lattice.Z%2 == 1
}

// ScanCoords returns every room and door position of the 11x11 lattice,
// skipping the pillar positions where both coordinates are odd.
func ScanCoords() []ScanCoord {
	coords := make([]ScanCoord, 0, scanLatticeExtent*scanLatticeExtent)
	for z := 0; z < scanLatticeExtent; z++ {
		for x := 0; x < scanLatticeExtent; x++ {
			if x%2 == 1 && z%2 == 1 {
				continue
			}
			coords = append(coords, ScanCoord{
				Lattice: Component{X: x, Z: z},
				X:       CornerStartX + HalfRoomSize + x*HalfRoomDoorSize,
				Z:       CornerStartZ + HalfRoomSize + z*HalfRoomDoorSize,
			})
		}
	}
	return coords
}

// Shape is the footprint of a room on the room grid.
type Shape string

const (
	Shape1x1     Shape = "1x1"
	Shape1x2     Shape = "1x2"
	Shape1x3     Shape = "1x3"
	Shape1x4     Shape = "1x4"
	Shape2x2     Shape = "2x2"
	ShapeL       Shape = "L"
	ShapeUnknown Shape = "Unknown"
)

// RoomShape classifies a set of room components.
func RoomShape(comps []Component) Shape {
	n := len(comps)
	if n == 0 || n > 4 {
		return ShapeUnknown
	}

	xs := make(map[int]struct{}, n)
	zs := make(map[int]struct{}, n)
	for _, c := range comps {
		xs[c.X] = struct{}{}
		zs[c.Z] = struct{}{}
	}

	switch n {
	case 4:
		if len(xs) == 1 || len(zs) == 1 {
			return Shape1x4
		}
		return Shape2x2
	case 1:
		return Shape1x1
	case 2:
		return Shape1x2
	}
	if len(xs) == n || len(zs) == n {
		return Shape1x3
	}
	return ShapeL
}

// RotateCoords rotates v around the Y axis by a multiple of 90 degrees.
// Negative angles are normalised first; any other angle returns v unchanged.
func RotateCoords(v mgl64.Vec3, degrees int) mgl64.Vec3 {
	if degrees < 0 {
		degrees += 360
	}
	switch degrees {
	case 90:
		return mgl64.Vec3{v[2], v[1], -v[0]}
	case 180:
		return mgl64.Vec3{-v[0], v[1], -v[2]}
	case 270:
		return mgl64.Vec3{-v[2], v[1], v[0]}
	}
	return v
}

// clampMap linearly maps n from [inMin, inMax] to [outMin, outMax], clamping
// at both ends.
func clampMap(n, inMin, inMax, outMin, outMax float64) float64 {
	if n <= inMin {
		return outMin
	}
	if n >= inMax {
		return outMax
	}
	return (n-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}

func insideFloor(x, z float64) bool {
	return x >= CornerStartX && x <= CornerEndX && z >= CornerStartZ && z <= CornerEndZ
}
