package bedrock

import (
	"image/color"
	"testing"
)

func TestPaletteRoundTrip(t *testing.T) {
	p := NewPalette()
	for _, idx := range []byte{6, 18, 30, 34, 74, 122} {
		if got := p.Index(p.Colour(idx)); got != idx {
			t.Errorf("index %d came back as %d (%v)", idx, got, p.Colour(idx))
		}
	}
}

func TestPaletteNearest(t *testing.T) {
	p := NewPalette()
	if got := p.Index(color.RGBA{}); got != 0 {
		t.Fatalf("expected transparent pixels to map to 0, got %d", got)
	}
	// Pure red is base colour 4 at full shade.
	if got := p.Index(color.RGBA{R: 250, G: 3, B: 2, A: 255}); got != 18 {
		t.Fatalf("expected the red entry, got %d", got)
	}
	// Cached lookups agree with the first one.
	if got := p.Index(color.RGBA{R: 250, G: 3, B: 2, A: 255}); got != 18 {
		t.Fatalf("cached lookup returned %d", got)
	}
	if c := p.Colour(255); c != (color.RGBA{}) {
		t.Fatalf("expected out of range indices to be empty, got %v", c)
	}
}
