package tileset

import (
	"bytes"
	"image/png"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/palette"
	"github.com/rcarmo/landstalker/internal/tile"
)

func rampTile() []byte {
	px := make([]byte, 64)
	for i := range px {
		px[i] = byte(i % 16)
	}
	return px
}

func TestSetBits_Normal(t *testing.T) {
	src := make([]byte, 32)
	src[0] = 0x12
	src[31] = 0xEF

	ts := New()
	n, err := ts.SetBits(src, false)
	require.NoError(t, err)
	assert.Equal(t, 32, n)
	assert.Equal(t, 1, ts.TileCount())
	assert.Equal(t, 32, ts.TileSizeBytes())

	px, err := ts.TilePixels(0)
	require.NoError(t, err)
	assert.Equal(t, byte(1), px[0])
	assert.Equal(t, byte(2), px[1])
	assert.Equal(t, byte(0xE), px[62])
	assert.Equal(t, byte(0xF), px[63])

	assert.Equal(t, src, ts.Bits(false))
}

func TestSetBits_PartialTilePadded(t *testing.T) {
	ts := New()
	_, err := ts.SetBits(make([]byte, 40), false)
	require.NoError(t, err)
	assert.Equal(t, 2, ts.TileCount())
	assert.Len(t, ts.Bits(false), 64)
}

func TestSetBits_Compressed(t *testing.T) {
	raw := make([]byte, 128)
	for i := range raw {
		raw[i] = byte(i / 8)
	}
	enc := codec.LZ77Encode(raw)

	ts, n, err := Decode(append(enc, 0xFF), true)
	require.NoError(t, err)
	assert.Equal(t, len(enc), n)
	assert.True(t, ts.Compressed())
	assert.Equal(t, raw, ts.Bits(false))

	again, _, err := Decode(ts.Bits(true), true)
	require.NoError(t, err)
	assert.True(t, ts.Equal(again))

	_, _, err = Decode([]byte{0x00}, true)
	assert.Equal(t, codec.KindMalformed, codec.KindOf(err))
}

func TestBlockLayout_2x2(t *testing.T) {
	// Four stored 8x8 tiles filled with 1..4 land column by column.
	src := make([]byte, 128)
	for s := 0; s < 4; s++ {
		for i := 0; i < 32; i++ {
			src[s*32+i] = byte((s+1)<<4 | (s + 1))
		}
	}
	ts := newTileset(t, 8, 8, 4, Block2x2)
	_, err := ts.SetBits(src, false)
	require.NoError(t, err)
	require.Equal(t, 1, ts.TileCount())
	assert.Equal(t, 16, ts.Width())

	px := ts.GetTile(tile.FromIndex(0))
	assert.Equal(t, byte(1), px[0])        // top left
	assert.Equal(t, byte(2), px[8*16])     // bottom left
	assert.Equal(t, byte(3), px[8])        // top right
	assert.Equal(t, byte(4), px[8*16+8])   // bottom right
	assert.Equal(t, src, ts.Bits(false))
}

func TestBlockLayout_4x6(t *testing.T) {
	src := make([]byte, 24*32)
	for s := 0; s < 24; s++ {
		for i := 0; i < 32; i++ {
			src[s*32+i] = byte(s%16)<<4 | byte(s%16)
		}
	}
	ts := newTileset(t, 8, 8, 4, Block4x6)
	_, err := ts.SetBits(src, false)
	require.NoError(t, err)
	require.Equal(t, 1, ts.TileCount())
	assert.Equal(t, 32, ts.Width())
	assert.Equal(t, 48, ts.Height())

	px := ts.GetTile(tile.FromIndex(0))
	at := func(cx, cy int) byte { return px[cy*8*32+cx*8] }
	assert.Equal(t, byte(4), at(1, 0))
	assert.Equal(t, byte(1), at(0, 1))
	assert.Equal(t, byte(16%16), at(0, 4))
	assert.Equal(t, byte(17%16), at(0, 5))
	assert.Equal(t, byte(18%16), at(1, 4))
	assert.Equal(t, src, ts.Bits(false))
}

func TestBlockRoundTrip_AllTypes(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for bt := BlockNormal; bt <= Block4x6; bt++ {
		ts := newTileset(t, 8, 8, 4, bt)
		src := make([]byte, ts.TileSizeBytes()*3)
		rng.Read(src)
		_, err := ts.SetBits(src, false)
		require.NoError(t, err, bt.String())
		assert.Equal(t, src, ts.Bits(false), bt.String())
	}
}

func newTileset(t *testing.T, w, h, depth int, bt BlockType) *Tileset {
	t.Helper()
	ts, err := NewWithParams(w, h, depth, bt)
	require.NoError(t, err)
	return ts
}

func TestSetParams_RejectsBadGeometry(t *testing.T) {
	for _, depth := range []int{0, 3, 5, 16, -4} {
		_, err := NewWithParams(8, 8, depth, BlockNormal)
		require.Error(t, err, "depth %d", depth)
		assert.Equal(t, codec.KindConfig, codec.KindOf(err))
	}
	_, err := NewWithParams(0, 8, 4, BlockNormal)
	assert.Equal(t, codec.KindConfig, codec.KindOf(err))
	_, err = NewWithParams(3, 1, 1, BlockNormal)
	assert.Equal(t, codec.KindConfig, codec.KindOf(err))

	ts := New()
	assert.Error(t, ts.SetParams(8, 8, 0, BlockNormal))
	assert.Equal(t, 4, ts.BitDepth())
	require.NoError(t, ts.SetParams(8, 8, 1, BlockNormal))
	_, err = ts.SetBits(make([]byte, 8), false)
	require.NoError(t, err)
	assert.Equal(t, 1, ts.TileCount())
}

func TestBitDepth2(t *testing.T) {
	ts := newTileset(t, 8, 8, 2, BlockNormal)
	src := make([]byte, 16)
	src[0] = 0x1B // 0,1,2,3
	_, err := ts.SetBits(src, false)
	require.NoError(t, err)
	px, _ := ts.TilePixels(0)
	assert.Equal(t, []byte{0, 1, 2, 3}, px[:4])
	assert.Equal(t, src, ts.Bits(false))
}

func TestGetTile_Flips(t *testing.T) {
	ts := New()
	ts.Resize(1)
	require.NoError(t, ts.SetTile(tile.FromIndex(0), rampTile()))

	h := ts.GetTile(tile.FromIndex(0).With(tile.AttrHFlip))
	assert.Equal(t, byte(7), h[0])
	assert.Equal(t, byte(0), h[7])

	v := ts.GetTile(tile.FromIndex(0).With(tile.AttrVFlip))
	assert.Equal(t, byte(56%16), v[0])

	hv := ts.GetTile(tile.FromIndex(0).With(tile.AttrHFlip).With(tile.AttrVFlip))
	assert.Equal(t, byte(63%16), hv[0])

	// Out of range falls back to tile 0.
	assert.Equal(t, rampTile(), ts.GetTile(tile.FromIndex(9)))
}

func TestEditing(t *testing.T) {
	ts := New()
	require.NoError(t, ts.InsertTilesBefore(0, 3))
	assert.Equal(t, 3, ts.TileCount())

	require.NoError(t, ts.SetTile(tile.FromIndex(1), rampTile()))
	ts.DuplicateTile(tile.FromIndex(1), tile.FromIndex(2))
	p2, _ := ts.TilePixels(2)
	assert.Equal(t, rampTile(), p2)

	ts.SwapTile(tile.FromIndex(0), tile.FromIndex(1))
	p0, _ := ts.TilePixels(0)
	p1, _ := ts.TilePixels(1)
	assert.Equal(t, rampTile(), p0)
	assert.Equal(t, make([]byte, 64), p1)

	ts.DeleteTile(1)
	ts.DeleteTile(10)
	assert.Equal(t, 2, ts.TileCount())

	require.NoError(t, ts.InsertTilesBefore(2, 1))
	assert.Equal(t, 3, ts.TileCount())

	err := ts.InsertTilesBefore(5, 1)
	assert.Equal(t, codec.KindMalformed, codec.KindOf(err))
	err = ts.InsertTilesBefore(0, MaxTiles)
	assert.Equal(t, codec.KindCapacity, codec.KindOf(err))

	err = ts.SetTile(tile.FromIndex(0), make([]byte, 10))
	assert.Error(t, err)
	bad := rampTile()
	bad[0] = 16
	assert.Error(t, ts.SetTile(tile.FromIndex(0), bad))
	_, err = ts.TilePixels(3)
	assert.Error(t, err)

	ts.Reset(-1)
	p0, _ = ts.TilePixels(0)
	assert.Equal(t, make([]byte, 64), p0)
	ts.Reset(1)
	assert.Equal(t, 1, ts.TileCount())
}

func TestColourIndices(t *testing.T) {
	ts := New()
	assert.Len(t, ts.DefaultColourIndices(), 16)
	locked := ts.LockedColours()
	assert.False(t, locked[15])

	ts2 := newTileset(t, 8, 8, 2, BlockNormal)
	ts2.SetColourIndices([]byte{0, 1, 2}) // too short
	assert.Empty(t, ts2.ColourIndices())
	ts2.SetColourIndices([]byte{0, 9, 10, 16}) // out of range
	assert.Empty(t, ts2.ColourIndices())
	ts2.SetColourIndices([]byte{0, 9, 10, 11})
	assert.Equal(t, []byte{0, 9, 10, 11}, ts2.ColourIndices())

	locked = ts2.LockedColours()
	assert.False(t, locked[0])
	assert.True(t, locked[1])
	assert.False(t, locked[9])
	assert.False(t, locked[11])

	ts2.Resize(1)
	px, _ := ts2.TilePixels(0)
	px[0] = 1
	pal := palette.New("p", palette.TypeFull)
	rgba := ts2.TileRGBA(tile.FromIndex(0), pal)
	assert.Equal(t, pal.Colour(9).RGBA(), rgba[0])

	ts2.SetColourIndices(nil)
	assert.Empty(t, ts2.ColourIndices())
}

func TestAnimated(t *testing.T) {
	a, err := DecodeAnimatedHeader([]byte{0x20, 0x00, 0x00, 0x40, 0x05, 0x03})
	require.NoError(t, err)
	assert.Equal(t, uint16(0x2000), a.Base)
	assert.Equal(t, tile.FromIndex(0x100), a.StartTile())
	assert.Equal(t, 4, a.FrameSizeTiles())
	assert.Equal(t, uint8(5), a.Speed)
	assert.Equal(t, uint8(3), a.Frames)

	hdr, err := a.HeaderBytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0x20, 0x00, 0x00, 0x40, 0x05, 0x03}, hdr)

	a.Resize(12)
	marker := rampTile()
	require.NoError(t, a.SetTile(tile.FromIndex(9), marker))
	// Frame 2 of VRAM tile 0x101 is stored tile 1 + 2*4.
	assert.Equal(t, marker, a.GetFrameTile(tile.FromIndex(0x101), 2))
	px, err := a.FrameTilePixels(0x101, 2)
	require.NoError(t, err)
	assert.Equal(t, marker, px)

	a.SetStartTile(tile.FromIndex(0x80))
	assert.Equal(t, uint16(0x1000), a.Base)
	a.SetFrameSizeTiles(6)
	assert.Equal(t, uint16(96), a.Length)

	b := NewAnimated(0x1000, 96, 5, 3)
	assert.False(t, a.Equal(b))
	b.Resize(12)
	require.NoError(t, b.SetTile(tile.FromIndex(9), marker))
	assert.True(t, a.Equal(b))

	_, err = DecodeAnimatedHeader([]byte{1, 2})
	assert.Equal(t, codec.KindMalformed, codec.KindOf(err))
}

func TestExportPNG(t *testing.T) {
	ts := New()
	ts.Resize(20)
	require.NoError(t, ts.SetTile(tile.FromIndex(17), rampTile()))
	pal := palette.New("p", palette.TypeFull)

	var buf bytes.Buffer
	require.NoError(t, ts.ExportPNG(&buf, pal, 16, 2))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 16*8*2, img.Bounds().Dx())
	assert.Equal(t, 2*8*2, img.Bounds().Dy())

	// Tile 17 sits at column 1, row 1; its pixel (1,0) has index 1.
	r, g, b, _ := img.At((8+1)*2, 8*2).RGBA()
	wr, wg, wb, _ := pal.Colour(1).NRGBA().RGBA()
	assert.Equal(t, []uint32{wr, wg, wb}, []uint32{r, g, b})
}
