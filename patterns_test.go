package catacombs

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDefaultPatternsCompile(t *testing.T) {
	p, err := CompilePatterns(DefaultPatternDocument())
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	for _, key := range []string{PatternFloor, PatternPlayerInfo, PatternDungeonTime, PatternBloodDone} {
		if p.Get(key) == nil {
			t.Errorf("missing pattern %s", key)
		}
	}
	if p.Get("Nope") != nil || p.Match("Nope", "x") != nil {
		t.Fatalf("expected unknown keys to never match")
	}
}

func TestPatternDocumentJSON(t *testing.T) {
	raw := []byte(`{
		"version": 7,
		"regex": {
			"Dungeons": {
				"Floor": "^The Catacombs \\((\\w+)\\)$",
				"Crypts": ["^ crypts: (\\d+)$", "gi"]
			},
			"Other": {"Ignored": "x"}
		}
	}`)
	var doc PatternDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if doc.DocumentVersion() != 7 {
		t.Fatalf("expected version 7, got %d", doc.DocumentVersion())
	}
	spec := doc.Regex[dungeonsGroup][PatternCrypts]
	if spec.Pattern != `^ crypts: (\d+)$` || spec.Flags != "gi" {
		t.Fatalf("unexpected spec %+v", spec)
	}

	p, err := CompilePatterns(doc)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if m := p.Match(PatternCrypts, " CRYPTS: 3"); len(m) != 2 || m[1] != "3" {
		t.Fatalf("expected a case insensitive match, got %v", m)
	}

	out, err := json.Marshal(doc.Regex[dungeonsGroup][PatternFloor])
	if err != nil || string(out) != `"^The Catacombs \\((\\w+)\\)$"` {
		t.Fatalf("unexpected encoding %s (%v)", out, err)
	}
	out, _ = json.Marshal(spec)
	if string(out) != `["^ crypts: (\\d+)$","gi"]` {
		t.Fatalf("unexpected pair encoding %s", out)
	}
}

func TestPatternSpecRejectsBadInput(t *testing.T) {
	var spec PatternSpec
	if err := json.Unmarshal([]byte(`42`), &spec); err == nil {
		t.Fatalf("expected a number to be rejected")
	}
	if err := json.Unmarshal([]byte(`["a", "b", "c"]`), &spec); err == nil {
		t.Fatalf("expected a triple to be rejected")
	}

	doc := PatternDocument{Regex: map[string]map[string]PatternSpec{
		dungeonsGroup: {"Bad": {Pattern: "x", Flags: "q"}},
	}}
	if _, err := CompilePatterns(doc); err == nil {
		t.Fatalf("expected an unsupported flag to fail")
	}
}

func TestCompilePatternsNeedsGroup(t *testing.T) {
	_, err := CompilePatterns(PatternDocument{Version: 1})
	if !errors.Is(err, ErrNoPatterns) {
		t.Fatalf("expected ErrNoPatterns, got %v", err)
	}
}

func TestPatternSetReload(t *testing.T) {
	set := NewPatternSet(nil)
	if set.Load() != nil {
		t.Fatalf("expected an empty set")
	}

	doc := DefaultPatternDocument()
	doc.Version = 1
	if _, err := set.Reload(doc); err != nil {
		t.Fatalf("reload: %v", err)
	}
	first := set.Load()

	if _, err := set.Reload(doc); !errors.Is(err, ErrSameVersion) {
		t.Fatalf("expected ErrSameVersion, got %v", err)
	}
	if set.Load() != first {
		t.Fatalf("same version replaced the active set")
	}

	bad := PatternDocument{Version: 2, Regex: map[string]map[string]PatternSpec{
		dungeonsGroup: {PatternFloor: {Pattern: "("}, PatternCrypts: {Pattern: "[a-"}},
	}}
	cur, err := set.Reload(bad)
	if err == nil {
		t.Fatalf("expected invalid patterns to fail")
	}
	if cur != first || set.Load() != first {
		t.Fatalf("failed reload replaced the active set")
	}

	// A lower version is still a different document.
	doc.Version = 0
	if p, err := set.Reload(doc); err != nil || p.Version() != 0 {
		t.Fatalf("expected version 0 to load, got %v", err)
	}
}

func TestDefaultPatternsMatchGameLines(t *testing.T) {
	p, _ := CompilePatterns(DefaultPatternDocument())
	tests := []struct {
		key  string
		line string
		want []string
	}{
		{PatternFloor, "  The Catacombs (M7)", []string{"M7"}},
		{PatternPlayerInfo, "[410] [MVP] Steve (Berserk XL)", []string{"Steve", "Berserk", "XL"}},
		{PatternPlayerInfo, "[1] Alex (EMPTY)", []string{"Alex", "EMPTY", ""}},
		{PatternRoomSecretsFound, "  3/7 Secrets  ", []string{"3", "7"}},
		{PatternPuzzleState, " Three Weirdos: [✦]", []string{"Three Weirdos", "✦", ""}},
		{PatternDungeonTime, " Time: 1h 02m 03s", []string{"1", "02", "03"}},
		{PatternDungeonTime, " Time: 45s", []string{"", "", "45"}},
	}
	for _, tt := range tests {
		m := p.Match(tt.key, tt.line)
		if m == nil {
			t.Errorf("%s did not match %q", tt.key, tt.line)
			continue
		}
		for i, want := range tt.want {
			if m[i+1] != want {
				t.Errorf("%s on %q: group %d expected %q, got %q", tt.key, tt.line, i+1, want, m[i+1])
			}
		}
	}
}
