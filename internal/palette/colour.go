package palette

import "image/color"

const (
	channelMax   = 0x07
	channelScale = 36
)

// Colour is a Genesis CRAM colour: three bits per channel plus a
// transparency flag that is never stored in ROM.
type Colour struct {
	R, G, B     uint8
	Transparent bool
}

func quantise(v uint8) uint8 {
	if q := v / channelScale; q < channelMax {
		return q
	}
	return channelMax
}

// NewColour quantises 8-bit channels down to the 3-bit hardware range.
func NewColour(r, g, b uint8) Colour {
	return Colour{R: quantise(r), G: quantise(g), B: quantise(b)}
}

// FromGenesis unpacks a 0000BBB0GGG0RRR0 hardware word.
func FromGenesis(c uint16) Colour {
	return Colour{
		R: uint8(c&0x000E) >> 1,
		G: uint8(c&0x00E0) >> 5,
		B: uint8(c & 0x0E00 >> 9),
	}
}

// FromRGBA reads a 0xAARRGGBB value. Alpha zero marks the colour transparent.
func FromRGBA(c uint32) Colour {
	col := NewColour(uint8(c>>16), uint8(c>>8), uint8(c))
	col.Transparent = c>>24 == 0
	return col
}

// FromBGRA reads a 0xAABBGGRR value.
func FromBGRA(c uint32) Colour {
	col := NewColour(uint8(c), uint8(c>>8), uint8(c>>16))
	col.Transparent = c>>24 == 0
	return col
}

// Genesis packs the colour into its hardware word.
func (c Colour) Genesis() uint16 {
	return uint16(c.B&channelMax)<<9 | uint16(c.G&channelMax)<<5 | uint16(c.R&channelMax)<<1
}

func (c Colour) Red() uint8   { return c.R * channelScale }
func (c Colour) Green() uint8 { return c.G * channelScale }
func (c Colour) Blue() uint8  { return c.B * channelScale }

func (c Colour) Alpha() uint8 {
	if c.Transparent {
		return 0x00
	}
	return 0xFF
}

// RGB returns 0x00RRGGBB.
func (c Colour) RGB() uint32 {
	return uint32(c.Red())<<16 | uint32(c.Green())<<8 | uint32(c.Blue())
}

// RGBA returns 0xAARRGGBB.
func (c Colour) RGBA() uint32 {
	return uint32(c.Alpha())<<24 | c.RGB()
}

// BGRA returns 0xAABBGGRR.
func (c Colour) BGRA() uint32 {
	return uint32(c.Alpha())<<24 | uint32(c.Blue())<<16 | uint32(c.Green())<<8 | uint32(c.Red())
}

// NRGBA converts the colour for use with the image packages.
func (c Colour) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.Red(), G: c.Green(), B: c.Blue(), A: c.Alpha()}
}
