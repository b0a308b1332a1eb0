package catacombs

import (
	"strconv"
	"strings"
	"unicode/utf16"
)

// HashCode is the 32-bit rolling string hash used to key room cores:
// h = h*31 + c over the UTF-16 code units of s, wrapping at 32 bits.
func HashCode(s string) int32 {
	var h int32
	for _, c := range utf16.Encode([]rune(s)) {
		h = (h << 5) - h + int32(c)
	}
	return h
}

// Core fingerprints the vertical column at x, z. Chests and iron bars vary
// between instances of the same room and are hashed as zero.
func Core(w World, x, z int) int32 {
	var sb strings.Builder
	sb.Grow((coreTop - coreBottom + 1) * 2)
	for y := coreTop; y >= coreBottom; y-- {
		id := w.BlockAt(x, y, z).ID
		if id == BlockIronBars || id == BlockChest {
			sb.WriteByte('0')
			continue
		}
		sb.WriteString(strconv.Itoa(id))
	}
	return HashCode(sb.String())
}
