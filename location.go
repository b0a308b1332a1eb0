package catacombs

import (
	"regexp"
	"strings"
)

// WorldCatacombs is the lowercase tab list area of a dungeon run.
const WorldCatacombs = "catacombs"

var (
	areaRegex    = regexp.MustCompile(`^(?:Area|Dungeon): ([\w ]+)$`)
	subareaRegex = regexp.MustCompile(`^ (⏣|ф)`)
)

// Location tracks the tab list area (the world) and the scoreboard subarea.
type Location struct {
	area    string
	subarea string

	onWorld Observers[EventWorldChange]
	onArea  Observers[EventAreaChange]
}

// Area returns the current tab list area as shown, or "".
func (l *Location) Area() string { return l.area }

// Subarea returns the current scoreboard subarea line, or "".
func (l *Location) Subarea() string { return l.subarea }

// OnWorldChange registers a listener for area changes.
func (l *Location) OnWorldChange(fn func(EventWorldChange)) *Location {
	l.onWorld.Add(fn)
	return l
}

// OnAreaChange registers a listener for subarea changes.
func (l *Location) OnAreaChange(fn func(EventAreaChange)) *Location {
	l.onArea.Add(fn)
	return l
}

// InWorld reports whether the current area equals world, ignoring case.
func (l *Location) InWorld(world string) bool {
	if l.area == "" {
		return false
	}
	return strings.EqualFold(l.area, world)
}

// InArea reports whether the current subarea contains area, ignoring case.
func (l *Location) InArea(area string) bool {
	if l.subarea == "" {
		return false
	}
	return strings.Contains(strings.ToLower(l.subarea), strings.ToLower(area))
}

// onScoreboardLine handles a scoreboard line with formatting removed.
func (l *Location) onScoreboardLine(line string) {
	if !subareaRegex.MatchString(line) {
		return
	}
	if line != l.subarea {
		l.onArea.Emit(EventAreaChange{Area: strings.ToLower(line)})
	}
	l.subarea = line
}

// onTabAdd handles a newly added tab list line with formatting removed.
func (l *Location) onTabAdd(line string) {
	m := areaRegex.FindStringSubmatch(line)
	if m == nil {
		return
	}
	area := m[1]
	if area != l.area {
		l.onWorld.Emit(EventWorldChange{World: strings.ToLower(area)})
	}
	l.area = area
}

// onWorldUnload clears both areas and notifies listeners once.
func (l *Location) onWorldUnload() {
	if l.area == "" && l.subarea == "" {
		return
	}
	l.area = ""
	l.subarea = ""
	l.onWorld.Emit(EventWorldChange{})
	l.onArea.Emit(EventAreaChange{})
}
