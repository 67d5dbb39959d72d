// Package tile models hardware tile references and the 2x2 map blocks built
// from them.
package tile

import "fmt"

const (
	// IndexBits is the width of the tileset index inside a tile value.
	IndexBits = 11
	// IndexMask selects the tileset index of a tile value.
	IndexMask = 1<<IndexBits - 1
)

// Attribute is one of the flag bits of a tile value.
type Attribute uint16

const (
	AttrHFlip    Attribute = 0x0800
	AttrVFlip    Attribute = 0x1000
	AttrPriority Attribute = 0x8000
)

var attributeNames = map[Attribute]string{
	AttrHFlip:    "hflip",
	AttrVFlip:    "vflip",
	AttrPriority: "priority",
}

func (a Attribute) String() string {
	if name, ok := attributeNames[a]; ok {
		return name
	}
	return fmt.Sprintf("attr(0x%04X)", uint16(a))
}

// Tile is a packed hardware tile value: index in the low bits, flip and
// priority flags above it. Bits outside the index and flags are dropped.
type Tile uint16

const valueMask = IndexMask | uint16(AttrHFlip|AttrVFlip|AttrPriority)

// New returns the tile for a raw 16-bit value.
func New(value uint16) Tile {
	return Tile(value & valueMask)
}

// FromIndex returns a tile with no attributes set.
func FromIndex(index int) Tile {
	return Tile(uint16(index) & IndexMask)
}

// Value returns the packed hardware value.
func (t Tile) Value() uint16 {
	return uint16(t)
}

// Index returns the tileset index.
func (t Tile) Index() int {
	return int(uint16(t) & IndexMask)
}

// WithIndex replaces the index, keeping the attributes.
func (t Tile) WithIndex(index int) Tile {
	return Tile(uint16(t)&^IndexMask | uint16(index)&IndexMask)
}

// Add adds n to the index, wrapping within the index width.
func (t Tile) Add(n int) Tile {
	return t.WithIndex(t.Index() + n)
}

// Sub subtracts n from the index, wrapping within the index width.
func (t Tile) Sub(n int) Tile {
	return t.WithIndex(t.Index() - n)
}

// Has reports whether attr is set.
func (t Tile) Has(attr Attribute) bool {
	return uint16(t)&uint16(attr) != 0
}

// With returns t with attr set.
func (t Tile) With(attr Attribute) Tile {
	return t | Tile(attr)
}

// Without returns t with attr cleared.
func (t Tile) Without(attr Attribute) Tile {
	return t &^ Tile(attr)
}

// Toggle returns t with attr inverted.
func (t Tile) Toggle(attr Attribute) Tile {
	return t ^ Tile(attr)
}

// HFlip reports whether the tile is mirrored horizontally.
func (t Tile) HFlip() bool { return t.Has(AttrHFlip) }

// VFlip reports whether the tile is mirrored vertically.
func (t Tile) VFlip() bool { return t.Has(AttrVFlip) }

// Priority reports whether the tile is drawn in the high priority plane.
func (t Tile) Priority() bool { return t.Has(AttrPriority) }

func (t Tile) String() string {
	return fmt.Sprintf("0x%04X", uint16(t))
}
