// Package tileset decodes and edits pixel tiles in the packed form the
// Genesis VDP reads: each pixel is a palette index of BitDepth bits, packed
// most significant first. Sprites and other large graphics group several
// hardware tiles into a block that is stored column by column.
package tileset

import (
	"fmt"

	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/logging"
	"github.com/rcarmo/landstalker/internal/palette"
	"github.com/rcarmo/landstalker/internal/tile"
)

const (
	DefaultTileWidth  = 8
	DefaultTileHeight = 8
	DefaultBitDepth   = 4
	// MaxTiles is the number of tiles addressable by one tileset.
	MaxTiles = 0x400
)

var log = logging.For("tileset")

// BlockType describes how many hardware tiles make up one stored entry.
type BlockType int

const (
	BlockNormal BlockType = iota
	Block1x2
	Block2x1
	Block2x2
	Block3x3
	Block4x4
	Block4x6
)

var blockTypes = map[BlockType]struct {
	name string
	w, h int
}{
	BlockNormal: {"Normal", 1, 1},
	Block1x2:    {"Block 1x2", 1, 2},
	Block2x1:    {"Block 2x1", 2, 1},
	Block2x2:    {"Block 2x2", 2, 2},
	Block3x3:    {"Block 3x3", 3, 3},
	Block4x4:    {"Block 4x4", 4, 4},
	Block4x6:    {"Block 4x6", 4, 6},
}

func (b BlockType) String() string {
	if bt, ok := blockTypes[b]; ok {
		return bt.name
	}
	return fmt.Sprintf("BlockType(%d)", int(b))
}

// Dimensions returns the block size in hardware tiles.
func (b BlockType) Dimensions() (w, h int) {
	bt, ok := blockTypes[b]
	if !ok {
		return 1, 1
	}
	return bt.w, bt.h
}

// order4x6 lists, for each cell of a 4x6 block in row order, the stored
// sub-tile that fills it. The top 4x4 and the bottom 4x2 are each stored
// column by column.
var order4x6 = [24]int{
	0, 4, 8, 12,
	1, 5, 9, 13,
	2, 6, 10, 14,
	3, 7, 11, 15,
	16, 18, 20, 22,
	17, 19, 21, 23,
}

// cells returns, for each stored sub-tile, the column and row it occupies
// inside its block.
func (b BlockType) cells() [][2]int {
	w, h := b.Dimensions()
	out := make([][2]int, w*h)
	if b == Block4x6 {
		for cell, stored := range order4x6 {
			out[stored] = [2]int{cell % w, cell / w}
		}
		return out
	}
	for s := range out {
		out[s] = [2]int{s / h, s % h}
	}
	return out
}

// Tileset is an ordered list of tiles (or blocks of tiles), each held as one
// palette index byte per pixel in row order.
type Tileset struct {
	tileWidth     int
	tileHeight    int
	bitDepth      int
	blockType     BlockType
	width         int
	height        int
	compressed    bool
	tiles         [][]byte
	colourIndices []byte
}

// New returns an empty tileset of 8x8 4bpp tiles.
func New() *Tileset {
	ts := &Tileset{}
	ts.setParams(DefaultTileWidth, DefaultTileHeight, DefaultBitDepth, BlockNormal)
	return ts
}

// NewWithParams returns an empty tileset with the given tile geometry.
func NewWithParams(tileWidth, tileHeight, bitDepth int, bt BlockType) (*Tileset, error) {
	ts := &Tileset{}
	if err := ts.SetParams(tileWidth, tileHeight, bitDepth, bt); err != nil {
		return nil, err
	}
	return ts, nil
}

// Decode reads an 8x8 4bpp tileset, LZ77 compressed or raw.
func Decode(src []byte, compressed bool) (*Tileset, int, error) {
	ts := New()
	n, err := ts.SetBits(src, compressed)
	if err != nil {
		return nil, n, err
	}
	return ts, n, nil
}

// SetParams changes the geometry and drops all tiles. The bit depth must
// divide a byte: 1, 2, 4 or 8.
func (ts *Tileset) SetParams(tileWidth, tileHeight, bitDepth int, bt BlockType) error {
	const op = "tileset params"
	switch bitDepth {
	case 1, 2, 4, 8:
	default:
		return codec.Config(op, codec.ErrBadParameter, "bit depth %d does not divide a byte", bitDepth)
	}
	if tileWidth <= 0 || tileHeight <= 0 {
		return codec.Config(op, codec.ErrBadParameter, "tile size %dx%d", tileWidth, tileHeight)
	}
	if tileWidth*tileHeight*bitDepth%8 != 0 {
		return codec.Config(op, codec.ErrBadParameter, "%dx%d tiles at %d bpp are not a whole number of bytes", tileWidth, tileHeight, bitDepth)
	}
	ts.setParams(tileWidth, tileHeight, bitDepth, bt)
	return nil
}

func (ts *Tileset) setParams(tileWidth, tileHeight, bitDepth int, bt BlockType) {
	bw, bh := bt.Dimensions()
	ts.tiles = nil
	ts.blockType = bt
	ts.tileWidth = tileWidth
	ts.tileHeight = tileHeight
	ts.width = tileWidth * bw
	ts.height = tileHeight * bh
	ts.bitDepth = bitDepth
	if len(ts.colourIndices) < 1<<bitDepth {
		ts.colourIndices = nil
	}
}

// SetBits replaces all tiles with those packed in src and returns the number
// of source bytes used. A trailing partial tile is padded with index 0.
func (ts *Tileset) SetBits(src []byte, compressed bool) (int, error) {
	data := src
	consumed := len(src)
	if compressed {
		out, n, err := codec.LZ77Decode(src)
		if err != nil {
			return n, err
		}
		data, consumed = out, n
	}
	ts.compressed = compressed

	pixelsPerTile := ts.width * ts.height
	perByte := 8 / ts.bitDepth
	mask := byte(1<<ts.bitDepth - 1)
	total := len(data) * perByte
	count := (total + pixelsPerTile - 1) / pixelsPerTile

	linear := make([]byte, count*pixelsPerTile)
	for i, b := range data {
		for p := 0; p < perByte; p++ {
			shift := 8 - ts.bitDepth*(p+1)
			linear[i*perByte+p] = b >> shift & mask
		}
	}

	ts.tiles = make([][]byte, count)
	for i := range ts.tiles {
		ts.tiles[i] = ts.fromStorage(linear[i*pixelsPerTile : (i+1)*pixelsPerTile])
	}
	return consumed, nil
}

// fromStorage rearranges one stored block into row order.
func (ts *Tileset) fromStorage(stored []byte) []byte {
	if ts.blockType == BlockNormal {
		return append([]byte(nil), stored...)
	}
	out := make([]byte, ts.width*ts.height)
	sub := ts.tileWidth * ts.tileHeight
	for s, cell := range ts.blockType.cells() {
		src := stored[s*sub:]
		x0, y0 := cell[0]*ts.tileWidth, cell[1]*ts.tileHeight
		for y := 0; y < ts.tileHeight; y++ {
			copy(out[(y0+y)*ts.width+x0:(y0+y)*ts.width+x0+ts.tileWidth], src[y*ts.tileWidth:])
		}
	}
	return out
}

// toStorage is the inverse of fromStorage.
func (ts *Tileset) toStorage(pixels []byte) []byte {
	if ts.blockType == BlockNormal {
		return pixels
	}
	out := make([]byte, 0, len(pixels))
	for _, cell := range ts.blockType.cells() {
		x0, y0 := cell[0]*ts.tileWidth, cell[1]*ts.tileHeight
		for y := 0; y < ts.tileHeight; y++ {
			row := (y0+y)*ts.width + x0
			out = append(out, pixels[row:row+ts.tileWidth]...)
		}
	}
	return out
}

// Bits packs the tiles back into their stored form.
func (ts *Tileset) Bits(compressed bool) []byte {
	perByte := 8 / ts.bitDepth
	mask := byte(1<<ts.bitDepth - 1)
	out := make([]byte, 0, ts.UncompressedSize())
	var cur byte
	n := 0
	for _, t := range ts.tiles {
		for _, px := range ts.toStorage(t) {
			cur = cur<<ts.bitDepth | px&mask
			n++
			if n == perByte {
				out = append(out, cur)
				cur, n = 0, 0
			}
		}
	}
	if n > 0 {
		out = append(out, cur<<(ts.bitDepth*(perByte-n)))
	}
	if compressed {
		return codec.LZ77Encode(out)
	}
	return out
}

// Equal compares geometry and pixels.
func (ts *Tileset) Equal(o *Tileset) bool {
	if ts.bitDepth != o.bitDepth || ts.width != o.width || ts.height != o.height ||
		len(ts.tiles) != len(o.tiles) {
		return false
	}
	for i := range ts.tiles {
		if string(ts.tiles[i]) != string(o.tiles[i]) {
			return false
		}
	}
	return true
}

func (ts *Tileset) inRange(i int) bool {
	return i >= 0 && i < len(ts.tiles)
}

func (ts *Tileset) blank() []byte {
	return make([]byte, ts.width*ts.height)
}

// Clear drops every tile.
func (ts *Tileset) Clear() {
	ts.tiles = nil
}

// Reset zeroes every tile, resizing first when size is not negative.
func (ts *Tileset) Reset(size int) {
	if size >= 0 {
		ts.Resize(size)
	}
	for _, t := range ts.tiles {
		for i := range t {
			t[i] = 0
		}
	}
}

// Resize truncates or pads the tileset with blank tiles.
func (ts *Tileset) Resize(size int) {
	if size < len(ts.tiles) {
		ts.tiles = ts.tiles[:size]
		return
	}
	for len(ts.tiles) < size {
		ts.tiles = append(ts.tiles, ts.blank())
	}
}

// InsertTilesBefore inserts count blank tiles ahead of tile n. n may equal
// TileCount to append.
func (ts *Tileset) InsertTilesBefore(n, count int) error {
	if n < 0 || n > len(ts.tiles) || count < 0 {
		return codec.Malformed("insert tiles", codec.ErrBufferOverrun, "position %d of %d", n, len(ts.tiles))
	}
	if len(ts.tiles)+count > MaxTiles {
		return codec.Capacity("insert tiles", codec.ErrTooLong, "%d + %d tiles", len(ts.tiles), count)
	}
	added := make([][]byte, count)
	for i := range added {
		added[i] = ts.blank()
	}
	ts.tiles = append(ts.tiles[:n], append(added, ts.tiles[n:]...)...)
	return nil
}

// DeleteTile removes tile n if it exists.
func (ts *Tileset) DeleteTile(n int) {
	if ts.inRange(n) {
		ts.tiles = append(ts.tiles[:n], ts.tiles[n+1:]...)
	}
}

// DuplicateTile copies the pixels of src over dst.
func (ts *Tileset) DuplicateTile(src, dst tile.Tile) {
	s, d := src.Index(), dst.Index()
	if ts.inRange(s) && ts.inRange(d) && s != d {
		ts.tiles[d] = append([]byte(nil), ts.tiles[s]...)
	}
}

// SwapTile exchanges two tiles.
func (ts *Tileset) SwapTile(a, b tile.Tile) {
	i, j := a.Index(), b.Index()
	if ts.inRange(i) && ts.inRange(j) && i != j {
		ts.tiles[i], ts.tiles[j] = ts.tiles[j], ts.tiles[i]
	}
}

// SetTile replaces the pixels of t. Pixels must fill the tile and fit the
// bit depth.
func (ts *Tileset) SetTile(t tile.Tile, pixels []byte) error {
	i := t.Index()
	if !ts.inRange(i) {
		return codec.Malformed("set tile", codec.ErrBufferOverrun, "tile %d of %d", i, len(ts.tiles))
	}
	if len(pixels) != ts.width*ts.height {
		return codec.Malformed("set tile", codec.ErrBufferUnderrun, "%d pixels, want %d", len(pixels), ts.width*ts.height)
	}
	limit := byte(1 << ts.bitDepth)
	for _, px := range pixels {
		if px >= limit {
			return codec.Malformed("set tile", codec.ErrBufferOverrun, "pixel value %d at %dbpp", px, ts.bitDepth)
		}
	}
	ts.tiles[i] = append([]byte(nil), pixels...)
	return nil
}

// GetTile returns a copy of the pixels of t with its flips applied. An out of
// range index falls back to tile 0.
func (ts *Tileset) GetTile(t tile.Tile) []byte {
	i := t.Index()
	if !ts.inRange(i) {
		log.Debug("tile %d out of range, tileset holds %d", i, len(ts.tiles))
		i = 0
	}
	if len(ts.tiles) == 0 {
		return ts.blank()
	}
	out := append([]byte(nil), ts.tiles[i]...)
	w, h := ts.width, ts.height
	if t.VFlip() {
		for y := 0; y < h/2; y++ {
			a, b := out[y*w:(y+1)*w], out[(h-1-y)*w:(h-y)*w]
			for x := range a {
				a[x], b[x] = b[x], a[x]
			}
		}
	}
	if t.HFlip() {
		for y := 0; y < h; y++ {
			row := out[y*w : (y+1)*w]
			for l, r := 0, w-1; l < r; l, r = l+1, r-1 {
				row[l], row[r] = row[r], row[l]
			}
		}
	}
	return out
}

// TilePixels returns the live pixel slice of tile n for in-place editing.
func (ts *Tileset) TilePixels(n int) ([]byte, error) {
	if !ts.inRange(n) {
		return nil, codec.Malformed("tile pixels", codec.ErrBufferOverrun, "tile %d of %d", n, len(ts.tiles))
	}
	return ts.tiles[n], nil
}

// TileRGBA renders t through pal as 0xAARRGGBB values, honouring any colour
// index remapping.
func (ts *Tileset) TileRGBA(t tile.Tile, pal *palette.Palette) []uint32 {
	px := ts.GetTile(t)
	out := make([]uint32, len(px))
	for i, p := range px {
		out[i] = pal.Colour(ts.mapColour(p)).RGBA()
	}
	return out
}

func (ts *Tileset) mapColour(p byte) int {
	if len(ts.colourIndices) == 0 || int(p) >= len(ts.colourIndices) {
		return int(p)
	}
	return int(ts.colourIndices[p])
}

// SetColourIndices remaps tile pixel values to palette entries. An empty
// list removes the mapping; lists too short or pointing past 16 entries are
// ignored.
func (ts *Tileset) SetColourIndices(indices []byte) {
	if len(indices) == 0 {
		ts.colourIndices = nil
		return
	}
	if len(indices) < 1<<ts.bitDepth {
		return
	}
	for _, c := range indices {
		if c >= palette.Entries {
			return
		}
	}
	ts.colourIndices = append([]byte(nil), indices...)
}

func (ts *Tileset) ColourIndices() []byte {
	return append([]byte(nil), ts.colourIndices...)
}

// DefaultColourIndices is the identity mapping for the bit depth.
func (ts *Tileset) DefaultColourIndices() []byte {
	out := make([]byte, 1<<ts.bitDepth)
	for i := range out {
		out[i] = byte(i)
	}
	return out
}

// LockedColours reports which of the 16 palette entries no pixel of this
// tileset can reach.
func (ts *Tileset) LockedColours() [palette.Entries]bool {
	var locked [palette.Entries]bool
	for i := range locked {
		locked[i] = true
	}
	n := 1 << ts.bitDepth
	if len(ts.colourIndices) == 0 {
		for i := 0; i < n && i < palette.Entries; i++ {
			locked[i] = false
		}
		return locked
	}
	for i := 0; i < n && i < len(ts.colourIndices); i++ {
		locked[ts.colourIndices[i]] = false
	}
	return locked
}

func (ts *Tileset) TileCount() int { return len(ts.tiles) }

// TileSizeBytes is the packed size of one tile or block.
func (ts *Tileset) TileSizeBytes() int {
	return ts.width * ts.height * ts.bitDepth / 8
}

func (ts *Tileset) UncompressedSize() int {
	return ts.TileSizeBytes() * len(ts.tiles)
}

// Width is the pixel width of one entry, including every tile of a block.
func (ts *Tileset) Width() int  { return ts.width }
func (ts *Tileset) Height() int { return ts.height }

func (ts *Tileset) TileWidth() int       { return ts.tileWidth }
func (ts *Tileset) TileHeight() int      { return ts.tileHeight }
func (ts *Tileset) BitDepth() int        { return ts.bitDepth }
func (ts *Tileset) BlockType() BlockType { return ts.blockType }

// Compressed reports whether the tileset was last loaded from LZ77 data.
func (ts *Tileset) Compressed() bool { return ts.compressed }
