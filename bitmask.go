package catacombs

import (
	"math/bits"
)

// CellMask is a 64-bit bitmask over grid indices. It covers both the 36 room
// cells and the 60 door slots.
type CellMask uint64

// Set sets the bit at the given index.
func (m *CellMask) Set(idx int) {
	*m |= 1 << uint(idx)
}

// Clear clears the bit at the given index.
func (m *CellMask) Clear(idx int) {
	*m &^= 1 << uint(idx)
}

// Has returns true if the bit at the given index is set.
func (m CellMask) Has(idx int) bool {
	if idx < 0 || idx > 63 {
		return false
	}
	return m&(1<<uint(idx)) != 0
}

// ContainsAll returns true if all bits set in other are also set in m.
func (m CellMask) ContainsAll(other CellMask) bool {
	return m&other == other
}

// ContainsAny returns true if any bit set in other is also set in m.
func (m CellMask) ContainsAny(other CellMask) bool {
	return m&other != 0
}

// IsZero returns true if no bits are set.
func (m CellMask) IsZero() bool {
	return m == 0
}

// Or returns a new mask with bits set from both m and other.
func (m CellMask) Or(other CellMask) CellMask { return m | other }

// AndNot returns a new mask with bits set in m but not in other.
func (m CellMask) AndNot(other CellMask) CellMask { return m &^ other }

// Count returns the number of bits set.
func (m CellMask) Count() int {
	return bits.OnesCount64(uint64(m))
}

// Each calls fn for every set bit in ascending order.
func (m CellMask) Each(fn func(idx int)) {
	for v := uint64(m); v != 0; v &= v - 1 {
		fn(bits.TrailingZeros64(v))
	}
}
