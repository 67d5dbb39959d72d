// Package sprite decodes sprite animation frames, the sprite graphics bank
// that groups them into animations, and the per room entity placement table.
package sprite

import (
	"encoding/binary"

	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/logging"
	"github.com/rcarmo/landstalker/internal/tileset"
)

var log = logging.For("sprite")

const (
	tileWords = 16 // one 8x8 4bpp tile

	cmdSkip       = 0x80
	cmdLast       = 0x40
	cmdCompressed = 0x20
	cmdCountMask  = 0x0FFF

	// Zero runs at least this long become a skip command.
	zeroRunThreshold = 4

	MinSubSpriteCoord = -120
	MaxSubSpriteCoord = 128
	MaxSubSpriteSize  = 4
)

// SubSprite is one hardware sprite of a frame: W by H tiles placed at X, Y
// relative to the frame origin. Tiles are laid out column first.
type SubSprite struct {
	X, Y      int
	W, H      int
	TileIndex int
}

func (s SubSprite) tiles() int {
	return s.W * s.H
}

func (s SubSprite) validate() error {
	const op = "sub sprite"
	for _, c := range []int{s.X, s.Y} {
		if c < MinSubSpriteCoord || c > MaxSubSpriteCoord || c%8 != 0 {
			return codec.Malformed(op, codec.ErrBadParameter, "coordinate %d is not a multiple of 8 in [%d, %d]", c, MinSubSpriteCoord, MaxSubSpriteCoord)
		}
	}
	if s.W < 1 || s.W > MaxSubSpriteSize || s.H < 1 || s.H > MaxSubSpriteSize {
		return codec.Malformed(op, codec.ErrBadParameter, "size %dx%d", s.W, s.H)
	}
	return nil
}

func coordByte(c int) byte {
	if c < 0 {
		c += 0x100
	}
	return byte(c>>1) & 0x7C
}

func coord(b byte) int {
	c := int(b&0x7C) << 1
	if c > 0x80 {
		c -= 0x100
	}
	return c
}

// Frame is one animation frame: a list of sub sprites and the tiles they
// draw, in order.
type Frame struct {
	subs       []SubSprite
	tiles      *tileset.Tileset
	compressed bool
}

// NewFrame returns a frame holding one blank 1x1 sub sprite.
func NewFrame() *Frame {
	f := &Frame{subs: []SubSprite{{W: 1, H: 1}}, tiles: tileset.New()}
	f.tiles.Reset(1)
	return f
}

// DecodeFrame reads a frame and returns the number of bytes used.
func DecodeFrame(src []byte) (*Frame, int, error) {
	const op = "decode sprite frame"
	f := &Frame{}
	pos, expected := 0, 0
	for {
		if pos+2 > len(src) {
			return nil, pos, codec.Malformed(op, codec.ErrBufferUnderrun, "sub sprite %d", len(f.subs))
		}
		b1, b2 := src[pos], src[pos+1]
		pos += 2
		s := SubSprite{
			X: coord(b2), Y: coord(b1),
			W: int(b1&3) + 1, H: int(b2&3) + 1,
			TileIndex: expected,
		}
		f.subs = append(f.subs, s)
		expected += s.tiles()
		if b2&0x80 != 0 {
			break
		}
	}

	words := make([]byte, 0, expected*tileWords*2)
	for {
		if pos+2 > len(src) {
			return nil, pos, codec.Malformed(op, codec.ErrBufferUnderrun, "missing command at %d", pos)
		}
		ctrl := src[pos]
		count := int(binary.BigEndian.Uint16(src[pos:]) & cmdCountMask)
		pos += 2
		switch {
		case ctrl&cmdSkip != 0:
			words = append(words, make([]byte, count*2)...)
		case ctrl&cmdCompressed != 0:
			out, n, err := codec.LZ77Decode(src[pos:])
			if err != nil {
				return nil, pos, codec.Malformed(op, err, "compressed tiles at %d", pos)
			}
			words = append(words, out...)
			pos += n
			f.compressed = true
		default:
			if pos+count*2 > len(src) {
				return nil, pos, codec.Malformed(op, codec.ErrBufferUnderrun, "copy of %d words at %d", count, pos)
			}
			words = append(words, src[pos:pos+count*2]...)
			pos += count * 2
		}
		if ctrl&cmdLast != 0 {
			break
		}
	}
	if need := expected * tileWords * 2; len(words) < need {
		words = append(words, make([]byte, need-len(words))...)
	}
	f.tiles = tileset.New()
	if _, err := f.tiles.SetBits(words, false); err != nil {
		return nil, pos, err
	}
	return f, pos, nil
}

// Bytes encodes the frame the way it was loaded.
func (f *Frame) Bytes() ([]byte, error) {
	return f.Encode(f.compressed)
}

// Encode writes the sub sprite list then the tiles, either as one LZ77
// block or as runs of copied words and skipped zero words. Tiles the sub
// sprites expect but the frame lacks are written as zeros.
func (f *Frame) Encode(compressed bool) ([]byte, error) {
	const op = "encode sprite frame"
	if len(f.subs) == 0 {
		return nil, codec.Malformed(op, codec.ErrBadParameter, "frame has no sub sprites")
	}
	out := make([]byte, 0, 64)
	for _, s := range f.subs {
		if err := s.validate(); err != nil {
			return nil, err
		}
		out = append(out, coordByte(s.Y)|byte(s.W-1), coordByte(s.X)|byte(s.H-1))
	}
	out[len(out)-1] |= 0x80

	expected := f.ExpectedTileCount()
	actual := f.tiles.TileCount()
	n := min(actual, expected) * tileWords
	bits := f.tiles.Bits(false)[:n*2]

	last := -1
	if compressed {
		if n > cmdCountMask {
			return nil, codec.Capacity(op, codec.ErrTooLong, "%d words in one compressed block", n)
		}
		last = len(out)
		out = append(out, cmdCompressed|byte(n>>8), byte(n))
		out = append(out, codec.LZ77Encode(bits)...)
	} else {
		for i := 0; i < n; {
			if z := min(zeroRun(bits, i, n), cmdCountMask); z >= zeroRunThreshold {
				last = len(out)
				out = appendCommand(out, cmdSkip, z)
				i += z
				continue
			}
			start := i
			for i < n && i-start < cmdCountMask && zeroRun(bits, i, n) < zeroRunThreshold {
				i++
			}
			last = len(out)
			out = appendCommand(out, 0, i-start)
			out = append(out, bits[start*2:i*2]...)
		}
	}
	for pad := (expected - actual) * tileWords; pad > 0; {
		z := min(pad, cmdCountMask)
		last = len(out)
		out = appendCommand(out, cmdSkip, z)
		pad -= z
	}
	if last < 0 {
		return append(out, cmdSkip|cmdLast, 0), nil
	}
	out[last] |= cmdLast
	return out, nil
}

func appendCommand(out []byte, flags byte, count int) []byte {
	return append(out, flags|byte(count>>8&0x0F), byte(count))
}

// zeroRun counts the zero words from word i on, stopping at n.
func zeroRun(bits []byte, i, n int) int {
	j := i
	for j < n && bits[j*2] == 0 && bits[j*2+1] == 0 {
		j++
	}
	return j - i
}

// Equal compares sub sprites, tiles and storage format.
func (f *Frame) Equal(o *Frame) bool {
	if f.compressed != o.compressed || len(f.subs) != len(o.subs) {
		return false
	}
	for i := range f.subs {
		if f.subs[i] != o.subs[i] {
			return false
		}
	}
	return f.tiles.Equal(o.tiles)
}

// SubSprites returns a copy of the sub sprite list.
func (f *Frame) SubSprites() []SubSprite {
	return append([]SubSprite(nil), f.subs...)
}

// SetSubSprites replaces the sub sprite list, renumbering tile indices so
// the sub sprites draw consecutive tiles.
func (f *Frame) SetSubSprites(subs []SubSprite) error {
	next := 0
	out := make([]SubSprite, len(subs))
	for i, s := range subs {
		if err := s.validate(); err != nil {
			return err
		}
		s.TileIndex = next
		next += s.tiles()
		out[i] = s
	}
	f.subs = out
	return nil
}

// Tiles returns the frame's tiles for editing.
func (f *Frame) Tiles() *tileset.Tileset {
	return f.tiles
}

// Compressed reports whether the frame is stored LZ77 compressed.
func (f *Frame) Compressed() bool {
	return f.compressed
}

// SetCompressed selects the storage format used by Bytes.
func (f *Frame) SetCompressed(c bool) {
	f.compressed = c
}

// ExpectedTileCount is the number of tiles the sub sprites draw.
func (f *Frame) ExpectedTileCount() int {
	n := 0
	for _, s := range f.subs {
		n += s.tiles()
	}
	return n
}

// Bounds returns the smallest rectangle covering every sub sprite, as left,
// top, right and bottom pixel coordinates.
func (f *Frame) Bounds() (left, top, right, bottom int) {
	if len(f.subs) == 0 {
		return 0, 0, 0, 0
	}
	left, top = f.subs[0].X, f.subs[0].Y
	right, bottom = left, top
	for _, s := range f.subs {
		left = min(left, s.X)
		top = min(top, s.Y)
		right = max(right, s.X+s.W*tileset.DefaultTileWidth)
		bottom = max(bottom, s.Y+s.H*tileset.DefaultTileHeight)
	}
	return left, top, right, bottom
}

// TilePosition returns where tile n is drawn. Tiles of a sub sprite fill
// its columns top to bottom.
func (f *Frame) TilePosition(n int) (x, y int, ok bool) {
	for _, s := range f.subs {
		if n >= s.TileIndex && n < s.TileIndex+s.tiles() {
			p := n - s.TileIndex
			return s.X + 8*(p/s.H), s.Y + 8*(p%s.H), true
		}
	}
	log.Debug("tile %d is not drawn by any sub sprite", n)
	return 0, 0, false
}
