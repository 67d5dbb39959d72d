package tileset

import (
	"bytes"

	"github.com/lunixbochs/struc"

	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/tile"
)

// AnimatedHeaderSize is the stored size of an animation descriptor.
const AnimatedHeaderSize = 6

type animatedHeader struct {
	Base   uint16 `struc:"uint16,big"`
	Length uint16 `struc:"uint16,big"`
	Speed  uint8  `struc:"uint8"`
	Frames uint8  `struc:"uint8"`
}

// Animated is a tileset whose frames are copied over a run of VRAM tiles in
// turn. Base is the VRAM byte address of the first replaced tile and Length
// the size of one frame in 16-bit words.
type Animated struct {
	*Tileset
	Base        uint16
	Length      uint16
	Speed       uint8
	Frames      uint8
	BaseTileset uint8
}

// NewAnimated returns an empty animated tileset with default geometry.
func NewAnimated(base, length uint16, speed, frames uint8) *Animated {
	return &Animated{Tileset: New(), Base: base, Length: length, Speed: speed, Frames: frames}
}

// DecodeAnimatedHeader reads a 6-byte animation descriptor.
func DecodeAnimatedHeader(src []byte) (*Animated, error) {
	if len(src) < AnimatedHeaderSize {
		return nil, codec.Malformed("animated tileset", codec.ErrBufferUnderrun, "%d byte header", len(src))
	}
	var h animatedHeader
	if err := struc.Unpack(bytes.NewReader(src[:AnimatedHeaderSize]), &h); err != nil {
		return nil, codec.Malformed("animated tileset", err, "header")
	}
	return NewAnimated(h.Base, h.Length, h.Speed, h.Frames), nil
}

// HeaderBytes encodes the animation descriptor.
func (a *Animated) HeaderBytes() ([]byte, error) {
	var buf bytes.Buffer
	h := animatedHeader{Base: a.Base, Length: a.Length, Speed: a.Speed, Frames: a.Frames}
	if err := struc.Pack(&buf, &h); err != nil {
		return nil, codec.Malformed("animated tileset", err, "header")
	}
	return buf.Bytes(), nil
}

// StartTile is the first VRAM tile the animation replaces.
func (a *Animated) StartTile() tile.Tile {
	return tile.FromIndex(int(a.Base) / a.TileSizeBytes())
}

func (a *Animated) SetStartTile(t tile.Tile) {
	a.Base = uint16(t.Index() * a.TileSizeBytes())
}

// FrameSizeTiles is the number of tiles in one frame.
func (a *Animated) FrameSizeTiles() int {
	return 2 * int(a.Length) / a.TileSizeBytes()
}

func (a *Animated) SetFrameSizeTiles(count int) {
	a.Length = uint16(count * a.TileSizeBytes() / 2)
}

func (a *Animated) frameIndex(vramIndex, frame int) int {
	return vramIndex - a.StartTile().Index() + frame*a.FrameSizeTiles()
}

// GetFrameTile returns the pixels shown for VRAM tile t during frame.
func (a *Animated) GetFrameTile(t tile.Tile, frame int) []byte {
	return a.GetTile(t.WithIndex(a.frameIndex(t.Index(), frame)))
}

// FrameTilePixels returns the live pixels backing VRAM tile index during frame.
func (a *Animated) FrameTilePixels(index, frame int) ([]byte, error) {
	return a.TilePixels(a.frameIndex(index, frame))
}

// Equal compares the tiles and every animation parameter.
func (a *Animated) Equal(o *Animated) bool {
	return a.Tileset.Equal(o.Tileset) &&
		a.Base == o.Base && a.Length == o.Length && a.Speed == o.Speed &&
		a.Frames == o.Frames && a.BaseTileset == o.BaseTileset
}
