package palette

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/landstalker/internal/codec"
)

func TestColour_Quantise(t *testing.T) {
	tests := []struct {
		in   uint8
		want uint8
	}{
		{0, 0},
		{35, 0},
		{36, 1},
		{108, 3},
		{251, 6},
		{252, 7},
		{255, 7},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NewColour(tt.in, 0, 0).R, "input %d", tt.in)
	}
	assert.Equal(t, uint8(252), NewColour(255, 255, 255).Red())
}

func TestColour_Genesis(t *testing.T) {
	c := FromGenesis(0x0E42)
	assert.Equal(t, Colour{R: 1, G: 2, B: 7}, c)
	assert.Equal(t, uint16(0x0E42), c.Genesis())

	// Low bits of each nibble are not part of the colour.
	assert.Equal(t, uint16(0x0000), FromGenesis(0x1111).Genesis())

	for v := uint16(0); v < 0x1000; v++ {
		masked := v & 0x0EEE
		assert.Equal(t, masked, FromGenesis(masked).Genesis())
	}
}

func TestColour_Packing(t *testing.T) {
	c := Colour{R: 7, G: 1, B: 2}
	assert.Equal(t, uint32(0x00FC2448), c.RGB())
	assert.Equal(t, uint32(0xFFFC2448), c.RGBA())
	assert.Equal(t, uint32(0xFF4824FC), c.BGRA())

	c.Transparent = true
	assert.Equal(t, uint32(0x00FC2448), c.RGBA())
	assert.Equal(t, c, FromRGBA(c.RGBA()))
	assert.Equal(t, c, FromBGRA(c.BGRA()))
}

func TestType_Tables(t *testing.T) {
	for ty, info := range types {
		if ty.IsVarWidth() {
			continue
		}
		unlocked := 0
		for _, l := range info.locked {
			if !l {
				unlocked++
			}
		}
		assert.Equal(t, info.size, unlocked, "%s", ty)
	}
	assert.Equal(t, 13, TypeRoom.Size())
	assert.Equal(t, 0, TypeTitleBlueFade.Size())
	assert.True(t, TypeTitleBlueFade.IsVarWidth())

	ty, ok := ParseType("sprite_high")
	assert.True(t, ok)
	assert.Equal(t, TypeSpriteHigh, ty)
}

func TestFromBytes_Room(t *testing.T) {
	data := make([]byte, 0, 26)
	for i := 0; i < 13; i++ {
		data = append(data, 0x00, byte(i%7*2))
	}

	p, err := FromBytes("room", data, TypeRoom)
	require.NoError(t, err)
	assert.Equal(t, 16, p.Len())
	assert.Equal(t, 13, p.Size())

	// Entries 0, 1 and 15 are locked and keep their cleared values.
	assert.True(t, p.Colour(0).Transparent)
	assert.Equal(t, uint16(0x0CCC), p.Colour(1).Genesis())
	assert.Equal(t, uint16(0x0000), p.Colour(2).Genesis())
	assert.Equal(t, uint16(0x0002), p.Colour(3).Genesis())
	assert.Equal(t, uint16(0x000A), p.Colour(14).Genesis())
	assert.False(t, p.Editable(15))
	assert.True(t, p.Editable(2))
	assert.Equal(t, "room", p.Owner(2))
	assert.Equal(t, "", p.Owner(0))

	out, err := p.Bytes()
	require.NoError(t, err)
	assert.Equal(t, data, out)

	assert.Equal(t, 2, p.NthUnlockedIndex(0))
	assert.Equal(t, 14, p.NthUnlockedIndex(12))
	assert.Equal(t, 16, p.NthUnlockedIndex(13))

	p.SetNthUnlockedGenesis(1, 0x0EEE)
	assert.Equal(t, uint16(0x0EEE), p.Colour(3).Genesis())
}

func TestFromBytes_WrongSize(t *testing.T) {
	_, err := FromBytes("hud", []byte{0, 0, 0, 0}, TypeHUD)
	assert.Equal(t, codec.KindMalformed, codec.KindOf(err))
}

func TestFromBytes_VarWidth(t *testing.T) {
	data := []byte{0x00, 0x03, 0x0E, 0x00, 0x0C, 0x00, 0x0A, 0x00}

	p, err := FromBytes("fade", data, TypeTitleBlueFade)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Size())
	assert.Equal(t, 8, p.SizeBytes())
	assert.Equal(t, uint8(7), p.Colour(0).B)
	assert.True(t, p.Editable(2))

	out, err := p.Bytes()
	require.NoError(t, err)
	assert.Equal(t, data, out)

	_, err = FromBytes("fade", data[:5], TypeTitleBlueFade)
	assert.Equal(t, codec.KindMalformed, codec.KindOf(err))
}

func TestMerge(t *testing.T) {
	low, err := FromColours("low", []Colour{{R: 1}, {R: 2}, {R: 3}, {R: 4}, {R: 5}, {R: 6}}, TypeSpriteLow)
	require.NoError(t, err)
	high, err := FromColours("high", []Colour{{G: 1}, {G: 2}, {G: 3}, {G: 4}, {G: 5}, {G: 6}, {G: 7}}, TypeSpriteHigh)
	require.NoError(t, err)

	m := Merge(low, high)
	assert.Equal(t, "low,high", m.Name)
	assert.Equal(t, uint8(1), m.Colour(2).R)
	assert.Equal(t, uint8(7), m.Colour(14).G)
	assert.Equal(t, "low", m.Owner(7))
	assert.Equal(t, "high", m.Owner(8))
	assert.False(t, m.Editable(0))
	assert.False(t, m.Editable(15))

	d := Merge()
	assert.Equal(t, "Default", d.Owner(3))
	assert.Equal(t, uint16(0x0CCC), d.Colour(1).Genesis())
}

func TestNew_Debug(t *testing.T) {
	p := New("dbg", TypeFull)
	assert.Equal(t, uint16(0x0C0C), p.Colour(0).Genesis())
	assert.True(t, p.Colour(0).Transparent)
	assert.Equal(t, uint16(0x0880), p.Colour(14).Genesis())

	c := p.Clone()
	c.SetGenesis(3, 0)
	assert.False(t, p.Equal(c))
	assert.Len(t, p.ColorPalette(), 16)
	assert.True(t, p.Colour(99).Transparent)
}
