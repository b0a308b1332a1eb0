// Package dfworld adapts a Dragonfly world transaction to the tracker's block
// and player lookups.
package dfworld

import (
	"strings"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/df-mc/dragonfly/server/world"

	"github.com/oriumgames/catacombs"
)

// unknownBase offsets the name hash of blocks without a legacy ID so they
// never collide with a mapped one.
const unknownBase = 4096

// legacyIDs maps Bedrock block names to the legacy numeric IDs room cores are
// hashed from.
var legacyIDs = map[string]int{
	"minecraft:air":               catacombs.BlockAir,
	"minecraft:stone":             1,
	"minecraft:grass_block":       2,
	"minecraft:grass":             2,
	"minecraft:dirt":              3,
	"minecraft:cobblestone":       4,
	"minecraft:bedrock":           7,
	"minecraft:flowing_water":     catacombs.BlockFlowingWater,
	"minecraft:water":             catacombs.BlockWater,
	"minecraft:flowing_lava":      10,
	"minecraft:lava":              11,
	"minecraft:sand":              12,
	"minecraft:gravel":            13,
	"minecraft:glass":             20,
	"minecraft:gold_block":        catacombs.BlockGold,
	"minecraft:bricks":            45,
	"minecraft:brick_block":       45,
	"minecraft:mossy_cobblestone": 48,
	"minecraft:obsidian":          49,
	"minecraft:torch":             50,
	"minecraft:chest":             catacombs.BlockChest,
	"minecraft:stonebrick":        98,
	"minecraft:stone_bricks":      98,
	"minecraft:iron_bars":         catacombs.BlockIronBars,
	"minecraft:hardened_clay":     172,
	"minecraft:barrier":           catacombs.BlockBarrier,
	"minecraft:coal_block":        catacombs.BlockCoal,

	"minecraft:infested_stone":                 catacombs.BlockMonsterEgg,
	"minecraft:infested_cobblestone":           catacombs.BlockMonsterEgg,
	"minecraft:infested_stone_bricks":          catacombs.BlockMonsterEgg,
	"minecraft:infested_mossy_stone_bricks":    catacombs.BlockMonsterEgg,
	"minecraft:infested_cracked_stone_bricks":  catacombs.BlockMonsterEgg,
	"minecraft:infested_chiseled_stone_bricks": catacombs.BlockMonsterEgg,
	"minecraft:monster_egg":                    catacombs.BlockMonsterEgg,
}

// colourMeta is the legacy metadata of each dye colour.
var colourMeta = map[string]int{
	"white": 0, "orange": 1, "magenta": 2, "light_blue": 3,
	"yellow": 4, "lime": 5, "pink": 6, "gray": 7,
	"light_gray": 8, "silver": 8, "cyan": 9, "purple": 10,
	"blue": 11, "brown": 12, "green": 13, "red": 14, "black": 15,
}

// LegacyBlock converts a Dragonfly block to its legacy ID and metadata.
// Stained terracotta keeps its colour as metadata; the blue one marks the
// rotation corner of a room.
func LegacyBlock(b world.Block) catacombs.Block {
	if b == nil {
		return catacombs.Air
	}
	name, _ := b.EncodeBlock()
	if id, ok := legacyIDs[name]; ok {
		return catacombs.Block{ID: id}
	}
	if colour, ok := strings.CutSuffix(strings.TrimPrefix(name, "minecraft:"), "_terracotta"); ok {
		if meta, ok := colourMeta[colour]; ok {
			return catacombs.Block{ID: catacombs.BlockStainedClay, Meta: meta}
		}
	}
	return unknownBlock(name)
}

// unknownBlock derives an ID from the block name. Runtime IDs are only
// assigned once the block registry is finalised and change between versions.
func unknownBlock(name string) catacombs.Block {
	return catacombs.Block{ID: unknownBase + int(uint32(catacombs.HashCode(name))>>8)}
}

// Sampler reads blocks through a world transaction. Outside a transaction
// every block reads as air and no chunk is loaded.
type Sampler struct {
	tx *world.Tx
}

// NewSampler reads blocks through tx. tx may be nil and bound later.
func NewSampler(tx *world.Tx) *Sampler {
	return &Sampler{tx: tx}
}

// Bind makes the sampler read through tx. Pass nil when the transaction ends.
func (s *Sampler) Bind(tx *world.Tx) { s.tx = tx }

// BlockAt implements catacombs.World.
func (s *Sampler) BlockAt(x, y, z int) catacombs.Block {
	if s.tx == nil {
		return catacombs.Air
	}
	return LegacyBlock(s.tx.Block(cube.Pos{x, y, z}))
}

// IsChunkLoaded implements catacombs.World. Dragonfly loads chunks on access
// inside a transaction, so only the height range is checked.
func (s *Sampler) IsChunkLoaded(_, y, _ int) bool {
	if s.tx == nil {
		return false
	}
	r := s.tx.Range()
	return y >= r.Min() && y <= r.Max()
}
