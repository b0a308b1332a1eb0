package bedrock

import (
	"image/color"
	"sync"
)

// baseColours are the map base colours of the dungeon minimap palette, in
// palette order. Index 0 is transparent.
var baseColours = [...]color.RGBA{
	{0, 0, 0, 0},
	{127, 178, 56, 255},
	{247, 233, 163, 255},
	{199, 199, 199, 255},
	{255, 0, 0, 255},
	{160, 160, 255, 255},
	{167, 167, 167, 255},
	{0, 124, 0, 255},
	{255, 255, 255, 255},
	{164, 168, 184, 255},
	{151, 109, 77, 255},
	{112, 112, 112, 255},
	{64, 64, 255, 255},
	{143, 119, 72, 255},
	{255, 252, 245, 255},
	{216, 127, 51, 255},
	{178, 76, 216, 255},
	{102, 153, 216, 255},
	{229, 229, 51, 255},
	{127, 204, 25, 255},
	{242, 127, 165, 255},
	{76, 76, 76, 255},
	{153, 153, 153, 255},
	{76, 127, 153, 255},
	{127, 63, 178, 255},
	{51, 76, 178, 255},
	{102, 76, 51, 255},
	{102, 127, 51, 255},
	{153, 51, 51, 255},
	{25, 25, 25, 255},
	{250, 238, 77, 255},
	{92, 219, 213, 255},
	{74, 128, 255, 255},
	{0, 217, 58, 255},
	{129, 86, 49, 255},
	{112, 2, 0, 255},
}

// shades multiply a base colour, out of 255, for the four variants of it.
var shades = [4]uint32{180, 220, 255, 135}

// Palette maps RGBA pixels back to map colour indices.
type Palette struct {
	colours []color.RGBA

	mu    sync.Mutex
	cache map[color.RGBA]byte
}

// NewPalette builds the shaded palette.
func NewPalette() *Palette {
	p := &Palette{
		colours: make([]color.RGBA, len(baseColours)*len(shades)),
		cache:   make(map[color.RGBA]byte),
	}
	for i, base := range baseColours {
		for s, mul := range shades {
			p.colours[i*4+s] = color.RGBA{
				R: uint8(uint32(base.R) * mul / 255),
				G: uint8(uint32(base.G) * mul / 255),
				B: uint8(uint32(base.B) * mul / 255),
				A: base.A,
			}
		}
	}
	return p
}

// Colour returns the RGBA value of a palette index.
func (p *Palette) Colour(index byte) color.RGBA {
	if int(index) >= len(p.colours) {
		return color.RGBA{}
	}
	return p.colours[index]
}

// Index returns the palette index nearest to c. Transparent pixels map to 0.
func (p *Palette) Index(c color.RGBA) byte {
	if c.A == 0 {
		return 0
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if idx, ok := p.cache[c]; ok {
		return idx
	}

	best, bestDist := 0, -1
	// Indices 0-3 are transparent.
	for i := 4; i < len(p.colours); i++ {
		pc := p.colours[i]
		dr := int(pc.R) - int(c.R)
		dg := int(pc.G) - int(c.G)
		db := int(pc.B) - int(c.B)
		d := dr*dr + dg*dg + db*db
		if bestDist < 0 || d < bestDist {
			best, bestDist = i, d
			if d == 0 {
				break
			}
		}
	}
	p.cache[c] = byte(best)
	return byte(best)
}
