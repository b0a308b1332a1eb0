package catacombs

// MemoryWorld is a sparse in-memory World. Every chunk counts as loaded until
// it is explicitly unloaded. The zero value is not usable; use NewMemoryWorld.
type MemoryWorld struct {
	blocks   map[blockPos]Block
	unloaded map[chunkPos]struct{}
}

type blockPos struct{ x, y, z int }

type chunkPos struct{ x, z int }

// NewMemoryWorld creates an empty world.
func NewMemoryWorld() *MemoryWorld {
	return &MemoryWorld{
		blocks:   make(map[blockPos]Block),
		unloaded: make(map[chunkPos]struct{}),
	}
}

// BlockAt implements World.
func (w *MemoryWorld) BlockAt(x, y, z int) Block {
	return w.blocks[blockPos{x, y, z}]
}

// IsChunkLoaded implements World.
func (w *MemoryWorld) IsChunkLoaded(x, _, z int) bool {
	_, gone := w.unloaded[chunkPos{x >> 4, z >> 4}]
	return !gone
}

// SetBlock places b at the position. Placing Air removes the block.
func (w *MemoryWorld) SetBlock(x, y, z int, b Block) {
	if b.IsAir() {
		delete(w.blocks, blockPos{x, y, z})
		return
	}
	w.blocks[blockPos{x, y, z}] = b
}

// Fill places b in every position of the inclusive box.
func (w *MemoryWorld) Fill(x0, y0, z0, x1, y1, z1 int, b Block) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	if z0 > z1 {
		z0, z1 = z1, z0
	}
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			for z := z0; z <= z1; z++ {
				w.SetBlock(x, y, z, b)
			}
		}
	}
}

// UnloadChunk marks the chunk holding the block position as unloaded.
func (w *MemoryWorld) UnloadChunk(x, z int) {
	w.unloaded[chunkPos{x >> 4, z >> 4}] = struct{}{}
}

// LoadChunk reverses UnloadChunk.
func (w *MemoryWorld) LoadChunk(x, z int) {
	delete(w.unloaded, chunkPos{x >> 4, z >> 4})
}

// Len returns the number of non-air blocks.
func (w *MemoryWorld) Len() int {
	return len(w.blocks)
}
