package map3d

import (
	"image"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/landstalker/internal/codec"
)

func TestDecode_Known(t *testing.T) {
	data := []byte{
		0x00, 0x00, 0x00, 0x01, // 1x1 room at 0,0
		0x01, 0x40, 0x50, // both counters 5
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
		0x08, 0x4B, 0x80, // literal at 0, copy at 1, end, op 3
		0x01, 0x01, 0x40, 0x00, 0x00, // 1x1 heightmap
	}
	m, n, err := Decode(append(data, 0xEE))
	require.NoError(t, err)
	assert.Equal(t, len(data), n)
	assert.Equal(t, 1, m.Width())
	assert.Equal(t, 1, m.Height())
	assert.Equal(t, []uint16{5}, m.Blocks(LayerFG))
	assert.Equal(t, []uint16{5}, m.Blocks(LayerBG))
	assert.Equal(t, []uint16{0x4000}, m.Heightmap())

	enc, err := m.Encode()
	require.NoError(t, err)
	assert.Equal(t, data, enc)
}

func randomRoom(rng *rand.Rand, w, h, hw, hh int) *Tilemap3D {
	m := New(w, h, hw, hh)
	m.SetLeft(rng.Intn(8))
	m.SetTop(rng.Intn(8))
	v := uint16(rng.Intn(0x400))
	for _, layer := range [][]uint16{m.foreground, m.background} {
		for i := range layer {
			switch rng.Intn(6) {
			case 0:
				v = uint16(rng.Intn(0x400))
			case 1:
				v = (v + 1) & BlockMask
			case 2:
				if i >= w {
					v = layer[i-w]
				}
			case 3:
				v = uint16(rng.Intn(4))
			}
			layer[i] = v
		}
	}
	cell := uint16(rng.Intn(0x10000))
	for i := range m.heightmap {
		if rng.Intn(4) == 0 {
			cell = uint16(rng.Intn(0x10000))
		}
		m.heightmap[i] = cell
	}
	return m
}

func TestRoundTrip_Random(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	sizes := [][4]int{{1, 1, 0, 0}, {2, 3, 4, 4}, {8, 8, 12, 12}, {20, 14, 24, 30}, {40, 40, 50, 50}}
	for _, s := range sizes {
		for trial := 0; trial < 3; trial++ {
			m := randomRoom(rng, s[0], s[1], s[2], s[3])
			enc, err := m.Encode()
			require.NoError(t, err)

			dec, n, err := Decode(enc)
			require.NoError(t, err, "%v", s)
			assert.Equal(t, len(enc), n, "%v", s)
			assert.True(t, m.Equal(dec), "%v trial %d", s, trial)
		}
	}
}

func TestRoundTrip_Structured(t *testing.T) {
	// Uniform layers compress to a single literal and one long copy.
	flat := New(16, 16, 20, 20)
	enc, err := flat.Encode()
	require.NoError(t, err)
	dec, _, err := Decode(enc)
	require.NoError(t, err)
	assert.True(t, flat.Equal(dec))

	// Columns of incrementing blocks exercise the vertical chains.
	cols := New(12, 10, 14, 14)
	for y := 0; y < 10; y++ {
		for x := 0; x < 12; x++ {
			cols.foreground[y*12+x] = uint16(0x100 + x*3 + y%2)
			cols.background[y*12+x] = uint16((x + y) % 5)
		}
	}
	cols.heightmap[0] = 0x1234
	enc, err = cols.Encode()
	require.NoError(t, err)
	dec, n, err := Decode(enc)
	require.NoError(t, err)
	assert.Equal(t, len(enc), n)
	assert.True(t, cols.Equal(dec))
}

func TestHeightmapLongRun(t *testing.T) {
	m := New(2, 2, 40, 40)
	enc, err := m.Encode()
	require.NoError(t, err)
	// 1600 identical cells: pattern then 0x63F as six 0xFF bytes and 0x45.
	tail := enc[len(enc)-9:]
	assert.Equal(t, []byte{0x40, 0x00, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0x45}, tail)

	dec, _, err := Decode(enc)
	require.NoError(t, err)
	assert.True(t, m.Equal(dec))
}

func TestEncode_Capacity(t *testing.T) {
	m := New(2, 2, 1, 1)
	m.foreground[3] = 0x400
	_, err := m.Encode()
	assert.Equal(t, codec.KindCapacity, codec.KindOf(err))

	wide := New(2, 0x81, 1, 1)
	_, err = wide.Encode()
	assert.Equal(t, codec.KindCapacity, codec.KindOf(err))
}

func TestDecode_Truncated(t *testing.T) {
	m := randomRoom(rand.New(rand.NewSource(9)), 6, 6, 8, 8)
	enc, err := m.Encode()
	require.NoError(t, err)

	for _, cut := range []int{2, 10, len(enc) / 2, len(enc) - 1} {
		_, _, err := Decode(enc[:cut])
		assert.Equal(t, codec.KindMalformed, codec.KindOf(err), "cut at %d", cut)
	}
}

func TestCellAccessors(t *testing.T) {
	m := New(2, 2, 3, 3)
	p := image.Pt(1, 2)

	require.True(t, m.SetCellHeight(p, 7))
	require.True(t, m.SetCellType(p, FloorDoorNW))
	require.True(t, m.SetCellRestrictions(p, 0x0C))
	c, ok := m.Cell(p)
	require.True(t, ok)
	assert.Equal(t, uint16(0xC704), c)

	h, _ := m.CellHeight(p)
	assert.Equal(t, uint8(7), h)
	ft, _ := m.CellType(p)
	assert.Equal(t, FloorDoorNW, ft)
	r, _ := m.CellRestrictions(p)
	assert.Equal(t, uint8(0x0C), r)

	assert.False(t, m.SetCellHeight(p, 16))
	assert.False(t, m.SetCellHeight(image.Pt(3, 0), 1))
	_, ok = m.CellType(image.Pt(-1, 0))
	assert.False(t, ok)

	assert.Equal(t, "door_nw", FloorDoorNW.String())
	assert.Equal(t, "sign_ne2", FloorType(22).String())
	assert.Equal(t, "sign_nw5", FloorType(30).String())
}

func TestBlocks(t *testing.T) {
	m := New(3, 2, 1, 1)
	assert.True(t, m.SetBlock(image.Pt(2, 1), LayerFG, 0xFFFF))
	assert.Equal(t, BlockMask, m.Block(image.Pt(2, 1), LayerFG))
	assert.Equal(t, uint16(0), m.Block(image.Pt(2, 1), LayerBG))
	assert.Equal(t, NoBlock, m.Block(image.Pt(3, 0), LayerFG))
	assert.False(t, m.SetBlock(image.Pt(0, 2), LayerBG, 1))

	m.ClearTilemap()
	assert.Equal(t, uint16(0), m.Block(image.Pt(2, 1), LayerFG))
}

func TestLayerEditing(t *testing.T) {
	m := New(2, 2, 2, 2)
	copy(m.foreground, []uint16{1, 2, 3, 4})
	copy(m.background, []uint16{5, 6, 7, 8})

	m.InsertTilemapRow(0)
	assert.Equal(t, 3, m.Height())
	assert.Equal(t, []uint16{1, 2, 1, 2, 3, 4}, m.foreground)
	assert.Equal(t, []uint16{5, 6, 5, 6, 7, 8}, m.background)

	m.InsertTilemapColumn(1)
	assert.Equal(t, []uint16{1, 2, 2, 1, 2, 2, 3, 4, 4}, m.foreground)

	m.DeleteTilemapRow(0)
	assert.Equal(t, []uint16{1, 2, 2, 3, 4, 4}, m.foreground)
	m.DeleteTilemapColumn(2)
	assert.Equal(t, []uint16{1, 2, 3, 4}, m.foreground)
	assert.Equal(t, []uint16{5, 6, 7, 8}, m.background)

	m.Resize(3, 1)
	assert.Equal(t, []uint16{1, 2, 0}, m.foreground)
	m.DeleteTilemapRow(0)
	assert.Equal(t, 1, m.Height())

	// Growth stops at the limit.
	big := New(MaxDimension, 1, 1, 1)
	big.InsertTilemapColumn(0)
	assert.Equal(t, MaxDimension, big.Width())
}

func TestHeightmapEditing(t *testing.T) {
	m := New(1, 1, 2, 2)
	copy(m.heightmap, []uint16{1, 2, 3, 4})

	m.InsertHeightmapRow(1)
	assert.Equal(t, []uint16{1, 2, 3, 4, 3, 4}, m.heightmap)
	m.InsertHeightmapColumn(0)
	assert.Equal(t, []uint16{1, 1, 2, 3, 3, 4, 3, 3, 4}, m.heightmap)
	m.DeleteHeightmapColumn(1)
	m.DeleteHeightmapRow(2)
	assert.Equal(t, []uint16{1, 2, 3, 4}, m.heightmap)

	m.ResizeHeightmap(3, 2)
	assert.Equal(t, []uint16{1, 2, DefaultCell, 3, 4, DefaultCell}, m.heightmap)
	m.InsertHeightmapRow(5)
	assert.Equal(t, 2, m.HeightmapHeight())
}

func TestGeometry(t *testing.T) {
	m := New(4, 3, 10, 10)
	m.SetLeft(2)
	m.SetTop(1)

	assert.Equal(t, 18, m.CartesianWidth())
	assert.Equal(t, 9, m.CartesianHeight())
	assert.Equal(t, 144, m.PixelWidth())

	assert.Equal(t, image.Pt(64, 16), m.IsoToPixel(image.Pt(1, 0), LayerFG, true))
	assert.Equal(t, image.Pt(80, 16), m.IsoToPixel(image.Pt(1, 0), LayerBG, true))
	assert.Equal(t, image.Pt(48, 8), m.IsoToPixel(image.Pt(1, 0), LayerFG, false))
	assert.Equal(t, image.Pt(-1, -1), m.IsoToPixel(image.Pt(4, 0), LayerFG, true))

	assert.Equal(t, image.Pt(8, 2), m.ToXYPoint(image.Pt(1, 0)))
	assert.Equal(t, image.Pt(8, -2), m.ToXYPoint3D(Point3D{1, 0, 2}))
	assert.Equal(t, image.Pt(1, 0), m.ToIsometric(image.Pt(8, 2)))
	assert.Equal(t, image.Pt(-1, -1), m.ToIsometric(image.Pt(0, 0)))

	assert.Equal(t, image.Pt(32, 176), m.HMPointToPixel(image.Pt(0, 0)))
	assert.Equal(t, image.Pt(32, 144), m.Iso3DToPixel(Point3D{12, 12, 2}))
	assert.Equal(t, m.Iso3DToPixel(Point3D{12, 12, 1}), m.EntityPositionToPixel(12*0x100, 12*0x100, 0x100))

	m.SetTileDims(16, 16)
	assert.Equal(t, image.Pt(64, 352), m.HMPointToPixel(image.Pt(0, 0)))
}
