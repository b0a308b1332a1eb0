package catacombs

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Milestone symbols in order.
var milestones = []string{"⓿", "❶", "❷", "❸", "❹", "❺", "❻", "❼", "❽", "❾"}

// Party chat messages that confirm a mimic kill.
var mimicMessages = []string{
	"mimic dead",
	"mimic dead!",
	"mimic killed",
	"mimic killed!",
	"$skytils-dungeon-score-mimic$",
}

var partyChatRegex = regexp.MustCompile(`^Party > (?:\[[\w+]+\] )?(?:\w{1,16}): (.*)$`)

// Pattern key for the chat line announcing the blood room is finished. It is
// optional in the remote document.
const PatternBloodDone = "BloodDone"

const (
	classMage = "Mage"
	classDead = "DEAD"
)

// PlayerInfo is a party member's class and level from the tab list.
type PlayerInfo struct {
	Class      string `json:"className"`
	Level      int    `json:"level"`
	LevelRoman string `json:"levelRoman"`
	Name       string `json:"name"`
}

// EntityDeath describes a dying entity for mimic detection.
type EntityDeath struct {
	Zombie bool
	Baby   bool
	// Armor is the number of occupied armour slots.
	Armor int
}

// Dungeon aggregates the state of one run: floor, party, counters and score.
// It is fed text lines, chat, entity deaths and minimap updates by the
// Tracker.
type Dungeon struct {
	patterns *PatternSet
	roster   Roster
	log      logrus.FieldLogger

	partyMembers []string
	players      map[string]PlayerInfo
	icons        []MapIcon
	mapColors    []byte
	layout       MapLayout
	hasLayout    bool

	floor                string
	floorNumber          int
	secretsFound         int
	secretsFoundPercent  float64
	crypts               int
	milestone            string
	completedRooms       int
	puzzleCount          int
	teamDeaths           int
	openedRooms          int
	clearedRooms         int
	currentClass         string
	currentLevel         int
	puzzlesDone          int
	puzzles              map[string]PuzzleState
	clearedPercent       float64
	secretsPercentNeeded float64
	dungeonSeconds       float64

	score      ScoreData
	bloodDone  bool
	spiritPet  bool
	mimicDead  bool
	mimicArmed bool
	paul       bool
	fired270   bool
	fired300   bool

	on270  Observers[EventScore]
	on300  Observers[EventScore]
	puzzle Observers[EventPuzzleState]
}

func newDungeon(patterns *PatternSet, roster Roster, log logrus.FieldLogger) *Dungeon {
	d := &Dungeon{patterns: patterns, roster: roster, log: log}
	d.Reset()
	return d
}

// Reset clears every per-run value. Listeners and the mayor perk survive.
func (d *Dungeon) Reset() {
	d.partyMembers = nil
	d.players = make(map[string]PlayerInfo)
	d.icons = nil
	d.mapColors = nil
	d.layout = MapLayout{}
	d.hasLayout = false

	d.floor = ""
	d.floorNumber = -1
	d.secretsFound = 0
	d.secretsFoundPercent = 0
	d.crypts = 0
	d.milestone = milestones[0]
	d.completedRooms = 0
	d.puzzleCount = 0
	d.teamDeaths = 0
	d.openedRooms = 0
	d.clearedRooms = 0
	d.currentClass = ""
	d.currentLevel = 0
	d.puzzlesDone = 0
	d.puzzles = make(map[string]PuzzleState)
	d.clearedPercent = 0
	d.secretsPercentNeeded = 1
	d.dungeonSeconds = 0

	d.score = ScoreData{}
	d.bloodDone = false
	d.spiritPet = false
	d.mimicDead = false
	d.mimicArmed = false
	d.fired270 = false
	d.fired300 = false
}

// On270Score registers a listener called once per run when the score first
// reaches 270.
func (d *Dungeon) On270Score(fn func(EventScore)) *Dungeon {
	d.on270.Add(fn)
	return d
}

// On300Score registers a listener called once per run when the score first
// reaches 300.
func (d *Dungeon) On300Score(fn func(EventScore)) *Dungeon {
	d.on300.Add(fn)
	return d
}

// OnPuzzleState registers a listener for puzzle lines.
func (d *Dungeon) OnPuzzleState(fn func(EventPuzzleState)) *Dungeon {
	d.puzzle.Add(fn)
	return d
}

// onScoreboardLine handles a scoreboard line with formatting and non-ASCII
// characters removed.
func (d *Dungeon) onScoreboardLine(line string) {
	p := d.patterns.Load()
	if m := p.Match(PatternClearedPercent, line); m != nil {
		d.clearedPercent = parseFloatGroup(m, 1, d.clearedPercent)
		d.calculateScore()
		return
	}

	if d.floor != "" {
		return
	}
	m := p.Match(PatternFloor, line)
	if m == nil || len(m) < 2 || m[1] == "" {
		return
	}

	d.floor = m[1]
	d.floorNumber = parseFloorNumber(d.floor)
	d.secretsPercentNeeded = SecretsPercentNeeded(d.floor)
	d.mimicArmed = true
	d.log.WithFields(logrus.Fields{
		"floor":   d.floor,
		"secrets": d.secretsPercentNeeded,
	}).Info("catacombs: entered floor")
}

// parseFloorNumber reads the digit after the floor letter. The entrance
// floor "E" is floor 0.
func parseFloorNumber(floor string) int {
	if floor == "E" {
		return 0
	}
	if len(floor) < 2 {
		return -1
	}
	n, err := strconv.Atoi(floor[1:2])
	if err != nil {
		return -1
	}
	return n
}

// onTabLine handles a tab list line with formatting removed.
func (d *Dungeon) onTabLine(line string) {
	if line == "" {
		return
	}
	p := d.patterns.Load()

	if m := p.Match(PatternDungeonTime, line); m != nil {
		h := parseFloatGroup(m, 1, 0)
		mins := parseFloatGroup(m, 2, 0)
		s := parseFloatGroup(m, 3, 0)
		d.dungeonSeconds = s + mins*60 + h*3600
	}

	d.secretsFound = parseIntMatch(p, PatternSecretsFound, line, d.secretsFound)
	d.secretsFoundPercent = parseFloatMatch(p, PatternSecretsFoundPer, line, d.secretsFoundPercent)
	d.crypts = parseIntMatch(p, PatternCrypts, line, d.crypts)
	if m := p.Match(PatternMilestone, line); len(m) > 1 && m[1] != "" {
		d.milestone = m[1]
	}
	d.completedRooms = parseIntMatch(p, PatternCompletedRooms, line, d.completedRooms)
	d.puzzleCount = parseIntMatch(p, PatternPuzzleCount, line, d.puzzleCount)
	d.teamDeaths = parseIntMatch(p, PatternTeamDeaths, line, d.teamDeaths)
	d.openedRooms = parseIntMatch(p, PatternOpenedRooms, line, d.openedRooms)
	d.clearedRooms = parseIntMatch(p, PatternClearedRooms, line, d.clearedRooms)
	d.calculateScore()

	if m := p.Match(PatternPuzzleState, line); m != nil {
		d.onPuzzleLine(m)
		return
	}

	m := p.Match(PatternPlayerInfo, line)
	if len(m) < 2 || m[1] == "" {
		return
	}
	name := m[1]
	d.addPartyMember(name)

	class := group(m, 2)
	if class == "" {
		return
	}
	roman := group(m, 3)
	level, _ := DecodeRoman(roman)
	d.players[name] = PlayerInfo{Class: class, Level: level, LevelRoman: roman, Name: name}

	if d.roster != nil && name == d.roster.LocalName() {
		d.currentClass = class
		d.currentLevel = level
	}
}

// onPuzzleLine counts a puzzle as done the first time it shows success and
// emits the puzzle state.
func (d *Dungeon) onPuzzleLine(m []string) {
	name := strings.TrimSpace(group(m, 1))
	state, ok := puzzleSymbols[group(m, 2)]
	if !ok {
		state = PuzzleUnknown
	}
	if state == PuzzleSuccess && d.puzzles[name] != PuzzleSuccess {
		d.puzzlesDone++
		d.calculateScore()
	}
	d.puzzles[name] = state
	d.puzzle.Emit(EventPuzzleState{Name: name, State: state, FailedBy: group(m, 3)})
}

func (d *Dungeon) addPartyMember(name string) {
	for _, n := range d.partyMembers {
		if n == name {
			return
		}
	}
	d.partyMembers = append(d.partyMembers, name)
}

// onChat handles a chat line with formatting removed.
func (d *Dungeon) onChat(line string) {
	if d.floor == "" {
		return
	}
	if m := d.patterns.Load().Match(PatternBloodDone, line); m != nil && !d.bloodDone {
		d.bloodDone = true
		d.log.Debug("catacombs: blood room done")
		d.calculateScore()
		return
	}

	if d.floorNumber != 6 && d.floorNumber != 7 {
		return
	}
	m := partyChatRegex.FindStringSubmatch(line)
	if m == nil {
		return
	}
	msg := strings.ToLower(m[1])
	for _, phrase := range mimicMessages {
		if msg == phrase {
			d.setMimicDead("party chat")
			return
		}
	}
}

// onEntityDeath detects the mimic: an unarmoured baby zombie on floor 6 or 7.
func (d *Dungeon) onEntityDeath(e EntityDeath) {
	if !d.mimicArmed || !e.Zombie || d.mimicDead {
		return
	}
	if d.floorNumber != 6 && d.floorNumber != 7 {
		return
	}
	if !e.Baby || e.Armor > 0 {
		return
	}
	d.setMimicDead("entity death")
}

func (d *Dungeon) setMimicDead(source string) {
	if d.mimicDead {
		return
	}
	d.mimicDead = true
	d.log.WithField("source", source).Info("catacombs: mimic killed")
	d.calculateScore()
}

// onMapData stores the minimap, anchors the grid once and resolves icons.
func (d *Dungeon) onMapData(data MapData) bool {
	if d.floor == "" {
		return false
	}
	d.mapColors = data.Colors
	if !d.hasLayout {
		d.layout, d.hasLayout = FindMapLayout(data.Colors, d.floorNumber)
		if d.hasLayout {
			d.log.WithFields(logrus.Fields{
				"cornerX":  d.layout.CornerX,
				"cornerY":  d.layout.CornerY,
				"roomSize": d.layout.RoomSize,
			}).Debug("catacombs: map layout found")
		}
	}

	icons := resolveIcons(data.Decorations, d.partyMembers, func(name string) bool {
		return d.players[name].Class == classDead
	})
	if icons != nil || len(data.Decorations) == 0 {
		d.icons = icons
	}
	return true
}

// calculateScore recomputes the score and fires the threshold listeners. The
// 270 listeners always run before the 300 listeners, even when both are
// reached by the same update.
func (d *Dungeon) calculateScore() {
	if d.floor == "" {
		return
	}
	d.score = CalculateScore(d.ScoreInput())

	if d.score.Score >= ScoreThresholdS && !d.fired270 {
		d.fired270 = true
		d.log.WithField("score", d.score.Score).Info("catacombs: reached 270 score")
		d.on270.Emit(EventScore{Threshold: ScoreThresholdS, Score: d.score})
	}
	if d.score.Score >= ScoreThresholdSPlus && !d.fired300 {
		d.fired300 = true
		d.log.WithField("score", d.score.Score).Info("catacombs: reached 300 score")
		d.on300.Emit(EventScore{Threshold: ScoreThresholdSPlus, Score: d.score})
	}
}

// ScoreInput returns the current inputs of the score.
func (d *Dungeon) ScoreInput() ScoreInput {
	return ScoreInput{
		Floor:                d.floor,
		SecretsFound:         d.secretsFound,
		SecretsFoundPercent:  d.secretsFoundPercent,
		SecretsPercentNeeded: d.secretsPercentNeeded,
		ClearedPercent:       d.clearedPercent,
		CompletedRooms:       d.completedRooms,
		PuzzleCount:          d.puzzleCount,
		PuzzlesDone:          d.puzzlesDone,
		TeamDeaths:           d.teamDeaths,
		Crypts:               d.crypts,
		DungeonSeconds:       d.dungeonSeconds,
		BloodDone:            d.bloodDone,
		InBoss:               d.InBoss(),
		SpiritPet:            d.spiritPet,
		MimicDead:            d.mimicDead,
		Paul:                 d.paul,
	}
}

// ScoreData returns the last computed score.
func (d *Dungeon) ScoreData() ScoreData { return d.score }

// Floor returns the floor id such as "F7" or "M3", or "" before it is known.
func (d *Dungeon) Floor() string { return d.floor }

// FloorNumber returns the floor number, or -1 before it is known.
func (d *Dungeon) FloorNumber() int { return d.floorNumber }

// PartyMembers returns the party in tab list order.
func (d *Dungeon) PartyMembers() []string {
	return append([]string(nil), d.partyMembers...)
}

// Team returns the class and level of every party member with a class.
func (d *Dungeon) Team() map[string]PlayerInfo {
	out := make(map[string]PlayerInfo, len(d.players))
	for k, v := range d.players {
		out[k] = v
	}
	return out
}

// ByName returns the tab list entry of a party member.
func (d *Dungeon) ByName(name string) (PlayerInfo, bool) {
	p, ok := d.players[name]
	return p, ok
}

// ByClass returns every party member playing class.
func (d *Dungeon) ByClass(class string) []PlayerInfo {
	var out []PlayerInfo
	for _, name := range d.partyMembers {
		if p, ok := d.players[name]; ok && p.Class == class {
			out = append(out, p)
		}
	}
	return out
}

// IsDupeClass reports whether more than one party member plays class.
func (d *Dungeon) IsDupeClass(class string) bool {
	return len(d.ByClass(class)) > 1
}

// CurrentClass returns the local player's class.
func (d *Dungeon) CurrentClass() string { return d.currentClass }

// CurrentLevel returns the local player's class level.
func (d *Dungeon) CurrentLevel() int { return d.currentLevel }

// MageReduction applies the mage cooldown reduction to cooldown seconds. With
// checkClass set the cooldown is returned unchanged unless the local player
// is a mage.
func (d *Dungeon) MageReduction(cooldown float64, checkClass bool) float64 {
	if checkClass && d.currentClass != classMage {
		return cooldown
	}
	mult := 2.0
	if d.IsDupeClass(classMage) {
		mult = 1
	}
	return cooldown * (0.75 - math.Floor(float64(d.currentLevel)/2)/100*mult)
}

// Milestone returns the current milestone symbol.
func (d *Dungeon) Milestone() string { return d.milestone }

// MilestoneIndex returns the current milestone as a number, or -1 for an
// unknown symbol.
func (d *Dungeon) MilestoneIndex() int {
	for i, m := range milestones {
		if m == d.milestone {
			return i
		}
	}
	return -1
}

// SecretsFound is the secret count shown in the tab list.
func (d *Dungeon) SecretsFound() int { return d.secretsFound }

// SecretsFoundPercent is the share of secrets found, from 0 to 100.
func (d *Dungeon) SecretsFoundPercent() float64 { return d.secretsFoundPercent }

func (d *Dungeon) Crypts() int { return d.crypts }

func (d *Dungeon) CompletedRooms() int { return d.completedRooms }

func (d *Dungeon) PuzzleCount() int { return d.puzzleCount }

func (d *Dungeon) PuzzlesDone() int { return d.puzzlesDone }

// TeamDeaths counts deaths across the whole party.
func (d *Dungeon) TeamDeaths() int { return d.teamDeaths }

func (d *Dungeon) OpenedRooms() int { return d.openedRooms }

func (d *Dungeon) ClearedRooms() int { return d.clearedRooms }

// ClearedPercent is the scoreboard cleared percentage.
func (d *Dungeon) ClearedPercent() float64 { return d.clearedPercent }

// DungeonSeconds returns the elapsed run time from the tab list.
func (d *Dungeon) DungeonSeconds() float64 { return d.dungeonSeconds }

func (d *Dungeon) MimicDead() bool { return d.mimicDead }

func (d *Dungeon) BloodDone() bool { return d.bloodDone }

// SetBloodDone marks the blood room as finished.
func (d *Dungeon) SetBloodDone(v bool) *Dungeon {
	d.bloodDone = v
	d.calculateScore()
	return d
}

// SetSpiritPet sets whether the first death is halved by the spirit pet. It
// has to be set again after every reset.
func (d *Dungeon) SetSpiritPet(v bool) *Dungeon {
	d.spiritPet = v
	d.calculateScore()
	return d
}

// HasPaul reports whether the current mayor grants the EZPZ bonus.
func (d *Dungeon) HasPaul() bool { return d.paul }

// SetPaul sets the mayor bonus. It survives resets.
func (d *Dungeon) SetPaul(v bool) *Dungeon {
	d.paul = v
	d.calculateScore()
	return d
}

// InBoss reports whether the local player has left the room grid.
func (d *Dungeon) InBoss() bool {
	if d.floor == "" {
		return false
	}
	local, ok := localState(d.roster)
	if !ok {
		return false
	}
	c := RealToComponent(local.Position.X(), local.Position.Z(), false)
	return RoomIndex(c) > RoomCellCount-1
}

// MapLayout returns the minimap anchor once found.
func (d *Dungeon) MapLayout() (MapLayout, bool) { return d.layout, d.hasLayout }

// Icons returns the minimap icons of the last update.
func (d *Dungeon) Icons() []MapIcon {
	return append([]MapIcon(nil), d.icons...)
}

func group(m []string, i int) string {
	if i < len(m) {
		return m[i]
	}
	return ""
}

func parseFloatGroup(m []string, i int, fallback float64) float64 {
	s := group(m, i)
	if s == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fallback
	}
	return v
}

func parseFloatMatch(p *Patterns, key, line string, fallback float64) float64 {
	m := p.Match(key, line)
	if m == nil {
		return fallback
	}
	return parseFloatGroup(m, 1, fallback)
}

func parseIntMatch(p *Patterns, key, line string, fallback int) int {
	return int(parseFloatMatch(p, key, line, float64(fallback)))
}
