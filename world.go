package catacombs

// Legacy numeric block IDs the floor layout is recognised by.
const (
	BlockAir          = 0
	BlockFlowingWater = 8
	BlockWater        = 9
	BlockGold         = 41
	BlockChest        = 54
	BlockMonsterEgg   = 97
	BlockIronBars     = 101
	BlockStainedClay  = 159
	BlockBarrier      = 166
	BlockCoal         = 173
)

// Stained clay metadata value marking the corner a room is rotated from.
const rotationMarkerMeta = 11

// Block is a sampled block: its legacy numeric ID and metadata value.
type Block struct {
	ID   int
	Meta int
}

// Air is the block returned for empty positions.
var Air = Block{}

// IsAir reports whether the block is air (ID 0).
func (b Block) IsAir() bool {
	return b.ID == BlockAir
}

// World samples blocks from the game world. Implementations are only called
// from the tracker's update path and need not be safe for concurrent use.
type World interface {
	// BlockAt returns the block at the position, or Air when there is none.
	BlockAt(x, y, z int) Block
	// IsChunkLoaded reports whether the chunk holding the position is
	// available. Samples against unloaded chunks are retried on a later tick.
	IsChunkLoaded(x, y, z int) bool
}

const (
	worldCeiling = 256
	coreTop      = 140
	coreBottom   = 12
)

// HighestY returns the Y level of the highest solid block in the column at x,
// z. Air, water and the gold ceiling marker are skipped. It reports false if
// the column holds nothing else.
func HighestY(w World, x, z int) (int, bool) {
	for y := worldCeiling; y > 0; y-- {
		switch w.BlockAt(x, y, z).ID {
		case BlockAir, BlockGold, BlockFlowingWater, BlockWater:
			continue
		}
		return y, true
	}
	return 0, false
}
