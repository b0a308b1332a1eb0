package catacombs

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
)

// Pattern keys of the Dungeons group. The misspelt secret keys match the
// published pattern document.
const (
	PatternFloor            = "Floor"
	PatternPlayerInfo       = "PlayerInfo"
	PatternSecretsFound     = "ScretsFound"
	PatternSecretsFoundPer  = "ScretsFoundPer"
	PatternMilestone        = "Milestone"
	PatternCompletedRooms   = "CompletedRooms"
	PatternTeamDeaths       = "TeamDeaths"
	PatternPuzzleCount      = "PuzzleCount"
	PatternCrypts           = "Crypts"
	PatternRoomSecretsFound = "RoomSecretsFound"
	PatternPuzzleState      = "PuzzleState"
	PatternOpenedRooms      = "OpenedRooms"
	PatternClearedRooms     = "ClearedRooms"
	PatternClearedPercent   = "ClearedPercent"
	PatternDungeonTime      = "DungeonTime"
)

const dungeonsGroup = "Dungeons"

var (
	// ErrNoPatterns is returned when a document has no Dungeons group.
	ErrNoPatterns = errors.New("catacombs: pattern document has no Dungeons group")
	// ErrSameVersion is returned by Reload when the document is not newer.
	ErrSameVersion = errors.New("catacombs: pattern document version unchanged")
)

// PatternSpec is a regular expression with optional flags. In JSON it is
// either a string or a [pattern, flags] pair.
type PatternSpec struct {
	Pattern string
	Flags   string
}

// UnmarshalJSON accepts a pattern string or a [pattern, flags] pair.
func (p *PatternSpec) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = PatternSpec{Pattern: s}
		return nil
	}
	var pair []string
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("pattern must be a string or [pattern, flags]: %w", err)
	}
	if len(pair) == 0 || len(pair) > 2 {
		return fmt.Errorf("pattern pair must have 1 or 2 elements, got %d", len(pair))
	}
	p.Pattern = pair[0]
	if len(pair) == 2 {
		p.Flags = pair[1]
	}
	return nil
}

func (p PatternSpec) MarshalJSON() ([]byte, error) {
	if p.Flags == "" {
		return json.Marshal(p.Pattern)
	}
	return json.Marshal([]string{p.Pattern, p.Flags})
}

// compile translates the flags into inline RE2 flags. Flags without an RE2
// equivalent (g, u, y, d) only affect iteration and are dropped.
func (p PatternSpec) compile() (*regexp.Regexp, error) {
	var inline strings.Builder
	for _, f := range p.Flags {
		switch f {
		case 'i', 'm', 's':
			inline.WriteRune(f)
		case 'g', 'u', 'y', 'd':
		default:
			return nil, fmt.Errorf("unsupported flag %q", f)
		}
	}
	expr := p.Pattern
	if inline.Len() > 0 {
		expr = "(?" + inline.String() + ")" + expr
	}
	return regexp.Compile(expr)
}

// PatternDocument is the versioned remote pattern configuration.
type PatternDocument struct {
	Version int                               `json:"version"`
	Regex   map[string]map[string]PatternSpec `json:"regex"`
}

func (d PatternDocument) DocumentVersion() int { return d.Version }

// Patterns is an immutable compiled pattern set. A missing pattern is nil and
// never matches.
type Patterns struct {
	version int
	byKey   map[string]*regexp.Regexp
}

// CompilePatterns compiles the Dungeons group of doc. Every invalid pattern
// is reported; none of the set is usable unless all compile.
func CompilePatterns(doc PatternDocument) (*Patterns, error) {
	group, ok := doc.Regex[dungeonsGroup]
	if !ok {
		return nil, ErrNoPatterns
	}

	ps := &Patterns{version: doc.Version, byKey: make(map[string]*regexp.Regexp, len(group))}
	var errs []error
	for key, spec := range group {
		re, err := spec.compile()
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		ps.byKey[key] = re
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("catacombs: compile patterns v%d: %w", doc.Version, errors.Join(errs...))
	}
	return ps, nil
}

// Version returns the version of the document the patterns were compiled from.
func (p *Patterns) Version() int {
	if p == nil {
		return 0
	}
	return p.version
}

// Get returns the compiled pattern for key, or nil.
func (p *Patterns) Get(key string) *regexp.Regexp {
	if p == nil {
		return nil
	}
	return p.byKey[key]
}

// Match returns the submatches of key against s, or nil.
func (p *Patterns) Match(key, s string) []string {
	re := p.Get(key)
	if re == nil {
		return nil
	}
	return re.FindStringSubmatch(s)
}

// PatternSet holds the active Patterns and swaps them atomically on reload.
type PatternSet struct {
	current atomic.Pointer[Patterns]
}

// NewPatternSet creates a set holding p, which may be nil.
func NewPatternSet(p *Patterns) *PatternSet {
	s := &PatternSet{}
	if p != nil {
		s.current.Store(p)
	}
	return s
}

// Load returns the active patterns.
func (s *PatternSet) Load() *Patterns {
	return s.current.Load()
}

// Reload compiles doc and swaps it in when its version differs from the
// active one. On any error the active set is kept.
func (s *PatternSet) Reload(doc PatternDocument) (*Patterns, error) {
	if cur := s.current.Load(); cur != nil && cur.version == doc.Version {
		return cur, ErrSameVersion
	}
	p, err := CompilePatterns(doc)
	if err != nil {
		return s.current.Load(), err
	}
	s.current.Store(p)
	return p, nil
}

// DefaultPatternDocument returns the built-in patterns used until a remote
// document is fetched.
func DefaultPatternDocument() PatternDocument {
	return PatternDocument{
		Version: 0,
		Regex: map[string]map[string]PatternSpec{
			dungeonsGroup: {
				PatternFloor:            {Pattern: `^ *The Catacombs \((\w+)\)$`},
				PatternPlayerInfo:       {Pattern: `^\[\d+\] (?:\[\w+\] )?(\w{1,16})(?: .+?)? \((\w+)(?: ([IVXLCDM]+))?\)$`},
				PatternSecretsFound:     {Pattern: `^ Secrets Found: (\d+)$`},
				PatternSecretsFoundPer:  {Pattern: `^ Secrets Found: ([\d.]+)%$`},
				PatternMilestone:        {Pattern: `^ Your Milestone: (.)$`},
				PatternCompletedRooms:   {Pattern: `^ Completed Rooms: (\d+)$`},
				PatternTeamDeaths:       {Pattern: `^Team Deaths: (\d+)$`},
				PatternPuzzleCount:      {Pattern: `^Puzzles: \((\d+)\)$`},
				PatternCrypts:           {Pattern: `^ Crypts: (\d+)$`},
				PatternRoomSecretsFound: {Pattern: `(\d+)/(\d+) Secrets`},
				PatternPuzzleState:      {Pattern: `^ ([\w ]+): \[([✦✔✖])\] ?(?:\((\w{1,16})\))?$`},
				PatternOpenedRooms:      {Pattern: `^ Opened Rooms: (\d+)$`},
				PatternClearedRooms:     {Pattern: `^ Cleared Rooms: (\d+)$`},
				PatternClearedPercent:   {Pattern: `^Cleared: (\d+)% ?(?:\(\d+\))?$`},
				PatternDungeonTime:      {Pattern: `^ Time: (?:(\d+)h)? ?(?:(\d+)m)? ?(?:(\d+)s)?$`},
				PatternBloodDone:        {Pattern: `^\[BOSS\] The Watcher: You have proven yourself\. You may pass\.$`},
			},
		},
	}
}
