package dfworld

import (
	"testing"

	"github.com/df-mc/dragonfly/server/block"
	"github.com/df-mc/dragonfly/server/item"
	"github.com/df-mc/dragonfly/server/world"

	"github.com/oriumgames/catacombs"
)

func TestLegacyBlock(t *testing.T) {
	tests := []struct {
		name  string
		block world.Block
		want  catacombs.Block
	}{
		{"nil", nil, catacombs.Air},
		{"air", block.Air{}, catacombs.Air},
		{"stone", block.Stone{}, catacombs.Block{ID: 1}},
		{"blue terracotta", block.StainedTerracotta{Colour: item.ColourBlue()}, catacombs.Block{ID: catacombs.BlockStainedClay, Meta: 11}},
		{"red terracotta", block.StainedTerracotta{Colour: item.ColourRed()}, catacombs.Block{ID: catacombs.BlockStainedClay, Meta: 14}},
	}
	for _, tt := range tests {
		if got := LegacyBlock(tt.block); got != tt.want {
			t.Errorf("%s: expected %+v, got %+v", tt.name, tt.want, got)
		}
	}
}

func TestLegacyBlockUnknown(t *testing.T) {
	got := LegacyBlock(block.Glowstone{})
	if got.ID < unknownBase {
		t.Fatalf("expected an unmapped block above %d, got %d", unknownBase, got.ID)
	}
	if got != unknownBlock("minecraft:glowstone") {
		t.Fatalf("expected the ID derived from the block name, got %d", got.ID)
	}
	if again := LegacyBlock(block.Glowstone{}); again != got {
		t.Fatalf("unmapped blocks must map to a stable ID, got %d and %d", got.ID, again.ID)
	}
	if other := LegacyBlock(block.Netherrack{}); other == got || other.ID < unknownBase {
		t.Fatalf("expected netherrack to get its own unmapped ID, got %d", other.ID)
	}
}
