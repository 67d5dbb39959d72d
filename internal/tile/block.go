package tile

import "strings"

const (
	BlockWidth  = 2
	BlockHeight = 2
	BlockSize   = BlockWidth * BlockHeight
)

// MapBlock is a 2x2 group of tiles stored row by row.
type MapBlock [BlockSize]Tile

// Tile returns the tile at column x, row y.
func (b MapBlock) Tile(x, y int) Tile {
	return b[y*BlockWidth+x]
}

// SetTile replaces the tile at column x, row y.
func (b *MapBlock) SetTile(x, y int, t Tile) {
	b[y*BlockWidth+x] = t
}

func (b MapBlock) String() string {
	parts := make([]string, len(b))
	for i, t := range b {
		parts[i] = t.String()
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Blockset is an ordered list of map blocks.
type Blockset []MapBlock

// Equal reports whether both blocksets hold the same blocks.
func (bs Blockset) Equal(o Blockset) bool {
	if len(bs) != len(o) {
		return false
	}
	for i := range bs {
		if bs[i] != o[i] {
			return false
		}
	}
	return true
}
