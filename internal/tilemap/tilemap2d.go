// Package tilemap holds the flat 2D tile maps used for the title screen,
// HUD, text boxes and other full screen graphics.
package tilemap

import (
	"encoding/binary"
	"path/filepath"
	"strings"

	"github.com/go-restruct/restruct"

	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/tile"
)

// Compression selects one of the stored forms of a 2D map.
type Compression int

const (
	CompressionNone Compression = iota
	CompressionRLE
	CompressionLZ77
)

var compressionInfo = map[Compression]struct{ name, ext string }{
	CompressionNone: {"none", ".bin"},
	CompressionRLE:  {"rle", ".rle"},
	CompressionLZ77: {"lz77", ".lz77"},
}

func (c Compression) String() string {
	return compressionInfo[c].name
}

// FileExt is the file extension used when the map is saved in this form.
func (c Compression) FileExt() string {
	if i, ok := compressionInfo[c]; ok {
		return i.ext
	}
	return ".bin"
}

// CompressionFromFileExt guesses the stored form from a file name.
func CompressionFromFileExt(name string) Compression {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".lz77":
		return CompressionLZ77
	case ".rle":
		return CompressionRLE
	}
	return CompressionNone
}

// lz77Header precedes the tile words in an LZ77 map.
type lz77Header struct {
	Left   uint8
	Top    uint8
	Width  uint8
	Height uint8
}

// Tilemap2D is a width x height grid of tiles stored in row order. Tile
// indices are absolute; GetTile and SetTile work relative to Base, the first
// VRAM tile of the tileset the map is drawn with.
type Tilemap2D struct {
	width       int
	height      int
	left        int
	top         int
	base        int
	compression Compression
	tiles       []tile.Tile
}

// New returns a blank map.
func New(width, height, base int) *Tilemap2D {
	return &Tilemap2D{
		width:  width,
		height: height,
		base:   base,
		tiles:  make([]tile.Tile, width*height),
	}
}

// Decode reads a map in the given form. Uncompressed maps carry no size, so
// width and height must be supplied; the other forms ignore them. It returns
// the number of bytes consumed.
func Decode(data []byte, width, height int, cmp Compression, base int) (*Tilemap2D, int, error) {
	m := &Tilemap2D{width: width, height: height, base: base, compression: cmp}
	var (
		n   int
		err error
	)
	switch cmp {
	case CompressionNone:
		n, err = m.unpackWords(data)
	case CompressionRLE:
		n, err = m.decodeRLE(data)
	case CompressionLZ77:
		n, err = m.decodeLZ77(data)
	default:
		return nil, 0, codec.Config("decode map", codec.ErrUnknownSection, "compression %d", int(cmp))
	}
	if err != nil {
		return nil, n, err
	}
	return m, n, nil
}

// Encode produces the stored form of the map.
func (m *Tilemap2D) Encode(cmp Compression) ([]byte, error) {
	switch cmp {
	case CompressionNone:
		return m.packWords(), nil
	case CompressionRLE:
		return m.encodeRLE()
	case CompressionLZ77:
		return m.encodeLZ77()
	}
	return nil, codec.Config("encode map", codec.ErrUnknownSection, "compression %d", int(cmp))
}

func (m *Tilemap2D) unpackWords(data []byte) (int, error) {
	size := m.width * m.height * 2
	if m.width <= 0 || m.height <= 0 || len(data) < size {
		return 0, codec.Malformed("decode map", codec.ErrBufferUnderrun,
			"%dx%d map needs %d bytes, got %d", m.width, m.height, size, len(data))
	}
	m.tiles = make([]tile.Tile, m.width*m.height)
	for i := range m.tiles {
		m.tiles[i] = tile.New(binary.BigEndian.Uint16(data[i*2:]))
	}
	return size, nil
}

func (m *Tilemap2D) packWords() []byte {
	out := make([]byte, 0, len(m.tiles)*2)
	for _, t := range m.tiles {
		out = binary.BigEndian.AppendUint16(out, t.Value())
	}
	return out
}

func (m *Tilemap2D) decodeLZ77(data []byte) (int, error) {
	raw, n, err := codec.LZ77Decode(data)
	if err != nil {
		return n, err
	}
	if len(raw) < 4 {
		return n, codec.Malformed("decode map", codec.ErrBufferUnderrun, "lz77 map header")
	}
	var h lz77Header
	if err := restruct.Unpack(raw[:4], binary.BigEndian, &h); err != nil {
		return n, codec.Malformed("decode map", err, "lz77 map header")
	}
	m.left, m.top = int(h.Left), int(h.Top)
	m.width, m.height = int(h.Width), int(h.Height)
	if _, err := m.unpackWords(raw[4:]); err != nil {
		return n, err
	}
	return n, nil
}

func (m *Tilemap2D) checkByteSize(op string) error {
	if m.width > 0xFF || m.height > 0xFF || m.left > 0xFF || m.top > 0xFF {
		return codec.Capacity(op, codec.ErrTooLong, "%dx%d map at %d,%d", m.width, m.height, m.left, m.top)
	}
	return nil
}

func (m *Tilemap2D) encodeLZ77() ([]byte, error) {
	if err := m.checkByteSize("encode map"); err != nil {
		return nil, err
	}
	h := lz77Header{Left: uint8(m.left), Top: uint8(m.top), Width: uint8(m.width), Height: uint8(m.height)}
	hdr, err := restruct.Pack(binary.BigEndian, &h)
	if err != nil {
		return nil, codec.Malformed("encode map", err, "lz77 map header")
	}
	return codec.LZ77Encode(append(hdr, m.packWords()...)), nil
}

// Equal compares geometry and tiles. Base and compression are not part of
// the map contents.
func (m *Tilemap2D) Equal(o *Tilemap2D) bool {
	if m.width != o.width || m.height != o.height || m.left != o.left || m.top != o.top ||
		len(m.tiles) != len(o.tiles) {
		return false
	}
	for i := range m.tiles {
		if m.tiles[i] != o.tiles[i] {
			return false
		}
	}
	return true
}

func (m *Tilemap2D) Width() int  { return m.width }
func (m *Tilemap2D) Height() int { return m.height }
func (m *Tilemap2D) Left() int   { return m.left }
func (m *Tilemap2D) Top() int    { return m.top }
func (m *Tilemap2D) Base() int   { return m.base }

func (m *Tilemap2D) SetLeft(left int) { m.left = left }
func (m *Tilemap2D) SetTop(top int)   { m.top = top }
func (m *Tilemap2D) SetBase(base int) { m.base = base }

// Compression is the form the map was decoded from.
func (m *Tilemap2D) Compression() Compression     { return m.compression }
func (m *Tilemap2D) SetCompression(c Compression) { m.compression = c }

// Tiles returns the raw row-ordered tiles with absolute indices.
func (m *Tilemap2D) Tiles() []tile.Tile { return m.tiles }

// IsTileValid reports whether x, y lies inside the map.
func (m *Tilemap2D) IsTileValid(x, y int) bool {
	return x >= 0 && x < m.width && y >= 0 && y < m.height
}

// GetTile returns the tile at x, y with its index made relative to Base.
// Positions outside the map return the zero tile.
func (m *Tilemap2D) GetTile(x, y int) tile.Tile {
	if !m.IsTileValid(x, y) {
		return 0
	}
	return m.tiles[y*m.width+x].Sub(m.base)
}

// SetTile stores t at x, y, offsetting its index by Base.
func (m *Tilemap2D) SetTile(t tile.Tile, x, y int) {
	if m.IsTileValid(x, y) {
		m.tiles[y*m.width+x] = t.Add(m.base)
	}
}

// Clear drops every tile, leaving the dimensions unchanged.
func (m *Tilemap2D) Clear() {
	m.tiles = nil
}

// Fill sets every tile to t.
func (m *Tilemap2D) Fill(t tile.Tile) {
	for i := range m.tiles {
		m.tiles[i] = t
	}
}

// FillIncrementing sets tile i to t with its index advanced by i.
func (m *Tilemap2D) FillIncrementing(t tile.Tile) {
	for i := range m.tiles {
		m.tiles[i] = t.Add(i)
	}
}

func (m *Tilemap2D) rebuild(width, height int, at func(x, y int) tile.Tile) {
	tiles := make([]tile.Tile, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			tiles[y*width+x] = at(x, y)
		}
	}
	m.width, m.height, m.tiles = width, height, tiles
}

func (m *Tilemap2D) raw(x, y int) tile.Tile {
	if !m.IsTileValid(x, y) || y*m.width+x >= len(m.tiles) {
		return 0
	}
	return m.tiles[y*m.width+x]
}

// InsertRow adds a row of fill tiles at position.
func (m *Tilemap2D) InsertRow(position int, fill tile.Tile) {
	m.rebuild(m.width, m.height+1, func(x, y int) tile.Tile {
		switch {
		case y == position:
			return fill
		case y > position:
			return m.raw(x, y-1)
		}
		return m.raw(x, y)
	})
}

// InsertColumn adds a column of fill tiles at position.
func (m *Tilemap2D) InsertColumn(position int, fill tile.Tile) {
	m.rebuild(m.width+1, m.height, func(x, y int) tile.Tile {
		switch {
		case x == position:
			return fill
		case x > position:
			return m.raw(x-1, y)
		}
		return m.raw(x, y)
	})
}

// DeleteRow removes a row. A map is never reduced below one row.
func (m *Tilemap2D) DeleteRow(position int) {
	if m.height < 2 {
		return
	}
	m.rebuild(m.width, m.height-1, func(x, y int) tile.Tile {
		if y >= position {
			return m.raw(x, y+1)
		}
		return m.raw(x, y)
	})
}

// DeleteColumn removes a column. A map is never reduced below one column.
func (m *Tilemap2D) DeleteColumn(position int) {
	if m.width < 2 {
		return
	}
	m.rebuild(m.width-1, m.height, func(x, y int) tile.Tile {
		if x >= position {
			return m.raw(x+1, y)
		}
		return m.raw(x, y)
	})
}

// Resize changes the dimensions, keeping tiles that remain in range and
// filling new space with the zero tile.
func (m *Tilemap2D) Resize(width, height int) {
	m.rebuild(width, height, m.raw)
}
