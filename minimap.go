package catacombs

import (
	"regexp"
	"strconv"
)

// Minimap buffer dimensions.
const (
	MapWidth  = 128
	MapHeight = 128
	MapPixels = MapWidth * MapHeight
)

// Minimap palette indices with a fixed meaning.
const (
	mapColorBlood     = 18
	mapColorEntrance  = 30
	mapColorWhite     = 34
	mapColorHidden    = 85
	mapColorNone      = 0
	mapAnchorRunCheck = 15
)

// MapDecoration is one icon on the minimap. X and Y are signed offsets from
// the map centre as sent by the server; Rotation is in sixteenths of a turn.
type MapDecoration struct {
	Name     string
	X, Y     int8
	Rotation byte
}

// MapData is one minimap update.
type MapData struct {
	Colors      []byte
	Decorations []MapDecoration
}

// MapLayout anchors the room grid inside the minimap.
type MapLayout struct {
	CornerX, CornerY int
	RoomSize         int
	GapSize          int
}

// MapIcon is a decoration resolved to a party member.
type MapIcon struct {
	Name     string
	X, Y     int
	Rotation float64
	Player   string
}

var iconNameRegex = regexp.MustCompile(`^icon-(\d+)$`)

// FindMapLayout locates the entrance room in the minimap and derives the grid
// origin and the room and gap sizes in pixels. Floor 0 and 1 maps are one
// column narrower, floor 0 also one row shorter.
func FindMapLayout(colors []byte, floorNumber int) (MapLayout, bool) {
	anchor := -1
	for i, c := range colors {
		if c != mapColorEntrance {
			continue
		}
		if i+mapAnchorRunCheck >= len(colors) || colors[i+mapAnchorRunCheck] != mapColorEntrance {
			continue
		}
		if i+MapWidth*mapAnchorRunCheck >= len(colors) || colors[i+MapWidth*mapAnchorRunCheck] != mapColorEntrance {
			continue
		}
		anchor = i
		break
	}
	if anchor == -1 {
		return MapLayout{}, false
	}

	size := 0
	for anchor+size < len(colors) && colors[anchor+size] == mapColorEntrance {
		size++
	}

	l := MapLayout{RoomSize: size, GapSize: size + 4}
	l.CornerX = (anchor % MapWidth) % l.GapSize
	l.CornerY = (anchor / MapWidth) % l.GapSize

	if floorNumber == 0 || floorNumber == 1 {
		l.CornerX += l.GapSize
	}
	if floorNumber == 0 {
		l.CornerY += l.GapSize
	}
	return l, true
}

// resolveIcons maps decorations named icon-N to party members. The local
// player is listed first in the party but drawn last, so the order is rotated
// by one before indexing. Dead members have no icon.
func resolveIcons(decorations []MapDecoration, party []string, dead func(string) bool) []MapIcon {
	if len(party) == 0 {
		return nil
	}
	order := make([]string, 0, len(party))
	order = append(order, party[1:]...)
	order = append(order, party[0])

	alive := make([]string, 0, len(order))
	for _, name := range order {
		if dead != nil && dead(name) {
			continue
		}
		alive = append(alive, name)
	}
	if len(alive) == 0 {
		return nil
	}

	icons := make([]MapIcon, 0, len(decorations))
	for _, d := range decorations {
		m := iconNameRegex.FindStringSubmatch(d.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		icon := MapIcon{
			Name:     d.Name,
			X:        int(d.X) + 128,
			Y:        int(d.Y) + 128,
			Rotation: float64(d.Rotation)*360/16 + 180,
		}
		if n < len(alive) {
			icon.Player = alive[n]
		}
		icons = append(icons, icon)
	}
	return icons
}

// onMapData applies a minimap update: icon positions for players outside
// render distance, then the explored and checkmark state of every room.
func (s *DungeonScanner) onMapData(colors []byte) {
	layout, ok := s.dungeon.MapLayout()
	if !ok {
		return
	}

	span := float64(layout.RoomSize*GridWidth + 20)
	for _, icon := range s.dungeon.Icons() {
		p := s.Player(icon.Player)
		if p == nil || p.inRender {
			continue
		}
		p.iconX = clampMap(float64(icon.X)/2-float64(layout.CornerX), 0, span, 0, DefaultMapSizeX)
		p.iconZ = clampMap(float64(icon.Y)/2-float64(layout.CornerY), 0, span, 0, DefaultMapSizeZ)
		p.realX = clampMap(p.iconX, 0, DefaultMapSizeX, CornerStartX, CornerEndX)
		p.realZ = clampMap(p.iconZ, 0, DefaultMapSizeZ, CornerStartZ, CornerEndZ)
		p.hasPosition = true
		p.rotation = icon.Rotation
		p.currentRoom = s.RoomAt(p.realX, p.realZ)
		if p.currentRoom != nil {
			p.currentRoom.players.Put(p)
		}
	}

	if len(colors) < MapPixels {
		return
	}

	for _, room := range s.UniqueRooms() {
		if len(room.comps) == 0 {
			continue
		}
		c := room.comps[0]
		mx := layout.CornerX + layout.RoomSize/2 + layout.GapSize*c.X
		my := layout.CornerY + layout.RoomSize/2 + 1 + layout.GapSize*c.Z
		idx := mx + my*MapWidth
		if idx < 1 || idx+5+MapWidth*4 >= len(colors) {
			continue
		}

		center := colors[idx-1]
		rcolor := colors[idx+5+MapWidth*4]
		if rcolor == mapColorNone || rcolor == mapColorHidden {
			room.explored = false
			continue
		}
		room.explored = true

		if room.typ == RoomNormal && room.height == 0 {
			room.loadFromMapColor(rcolor)
		}

		check := CheckNone
		switch {
		case center == mapColorEntrance && rcolor != mapColorEntrance:
			if room.checkmark != CheckGreen {
				s.roomCleared(room, CheckGreen)
			}
			check = CheckGreen
		case center == mapColorWhite:
			if room.checkmark != CheckWhite {
				s.roomCleared(room, CheckWhite)
			}
			check = CheckWhite
		case center == mapColorBlood && rcolor != mapColorBlood:
			check = CheckFailed
		}
		room.checkmark = check
	}
}
