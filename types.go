package catacombs

import "strings"

// RoomType is the kind of a room.
type RoomType uint8

const (
	RoomNormal RoomType = iota
	RoomPuzzle
	RoomTrap
	RoomYellow
	RoomBlood
	RoomFairy
	RoomRare
	RoomEntrance
	RoomUnknown
)

var roomTypeNames = [...]string{"normal", "puzzle", "trap", "yellow", "blood", "fairy", "rare", "entrance", "unknown"}

// String returns the lowercase name used by the room database.
func (t RoomType) String() string {
	if int(t) < len(roomTypeNames) {
		return roomTypeNames[t]
	}
	return "unknown"
}

func (t RoomType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseRoomType parses a room database type name. Unknown names report false.
func ParseRoomType(s string) (RoomType, bool) {
	s = strings.ToLower(s)
	for i, n := range roomTypeNames[:RoomUnknown] {
		if n == s {
			return RoomType(i), true
		}
	}
	return RoomUnknown, false
}

// Minimap palette indices that identify room types.
var mapColorRoomTypes = map[byte]RoomType{
	18: RoomBlood,
	30: RoomEntrance,
	63: RoomNormal,
	82: RoomFairy,
	62: RoomTrap,
	74: RoomYellow,
	66: RoomPuzzle,
}

// Checkmark is the clear state of a room as shown on the minimap.
type Checkmark uint8

const (
	CheckNone Checkmark = iota
	CheckWhite
	CheckGreen
	CheckFailed
	CheckUnexplored
)

func (c Checkmark) String() string {
	switch c {
	case CheckNone:
		return "none"
	case CheckWhite:
		return "white"
	case CheckGreen:
		return "green"
	case CheckFailed:
		return "failed"
	case CheckUnexplored:
		return "unexplored"
	default:
		return "unknown"
	}
}

func (c Checkmark) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ClearType is how a room is cleared.
type ClearType uint8

const (
	ClearMob ClearType = iota
	ClearMiniboss
)

func (c ClearType) String() string {
	if c == ClearMob {
		return "mob"
	}
	return "miniboss"
}

func (c ClearType) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// DoorType is the kind of a door.
type DoorType uint8

const (
	DoorNormal DoorType = iota
	DoorWither
	DoorBlood
	DoorEntrance
)

func (t DoorType) String() string {
	switch t {
	case DoorNormal:
		return "normal"
	case DoorWither:
		return "wither"
	case DoorBlood:
		return "blood"
	case DoorEntrance:
		return "entrance"
	default:
		return "unknown"
	}
}

func (t DoorType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// PuzzleState is the outcome of a puzzle as shown in the tab list.
type PuzzleState int

const (
	PuzzlePending PuzzleState = iota
	PuzzleSuccess
	PuzzleFail
	PuzzleUnknown PuzzleState = -1
)

var puzzleSymbols = map[string]PuzzleState{
	"✦": PuzzlePending,
	"✔": PuzzleSuccess,
	"✖": PuzzleFail,
}

func (s PuzzleState) String() string {
	switch s {
	case PuzzlePending:
		return "pending"
	case PuzzleSuccess:
		return "success"
	case PuzzleFail:
		return "fail"
	default:
		return "unknown"
	}
}

func (s PuzzleState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
