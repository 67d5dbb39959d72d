// Package palette implements Genesis colours and the partial palettes the
// game stores in ROM. A fixed width palette only stores its unlocked entries;
// the locked ones belong to some other palette loaded into the same CRAM line.
package palette

import (
	"bytes"
	"encoding/binary"
	"image/color"
	"strings"

	"github.com/lunixbochs/struc"

	"github.com/rcarmo/landstalker/internal/codec"
)

// varRecord is the stored form of a variable width palette.
type varRecord struct {
	Count   int      `struc:"uint16,big,sizeof=Colours"`
	Colours []uint16 `struc:"[]uint16,big"`
}

// Palette is a 16 entry colour line, or an arbitrary length list of colours
// for variable width types.
type Palette struct {
	Name    string
	typ     Type
	colours []Colour
	owners  []string
	locked  []bool
}

var debugColours = [Entries]uint16{
	0x0C0C, 0x0CCC, 0x000E, 0x00E0, 0x00EE, 0x0E00, 0x0EE0, 0x0EEE,
	0x0888, 0x0008, 0x0080, 0x0088, 0x0800, 0x0808, 0x0880, 0x0000,
}

func newFixed(name string, typ Type) *Palette {
	p := &Palette{
		Name:    name,
		typ:     typ,
		colours: make([]Colour, Entries),
		owners:  make([]string, Entries),
		locked:  make([]bool, Entries),
	}
	locked := typ.Locked()
	for i := range p.locked {
		p.locked[i] = locked[i]
		if !locked[i] {
			p.owners[i] = name
		}
	}
	return p
}

func newVar(name string, typ Type, colours []Colour) *Palette {
	p := &Palette{
		Name:    name,
		typ:     typ,
		colours: append([]Colour(nil), colours...),
		owners:  make([]string, len(colours)),
		locked:  make([]bool, len(colours)),
	}
	for i := range p.owners {
		p.owners[i] = name
	}
	return p
}

// New returns a palette filled with the debug colours, which make unset
// entries easy to spot.
func New(name string, typ Type) *Palette {
	if typ.IsVarWidth() {
		return newVar(name, typ, nil)
	}
	p := newFixed(name, typ)
	p.LoadDebug()
	return p
}

// FromColours builds a palette from exactly the colours the type stores.
func FromColours(name string, colours []Colour, typ Type) (*Palette, error) {
	if typ.IsVarWidth() {
		if len(colours) > 0xFFFF {
			return nil, codec.Capacity("palette", codec.ErrTooLong, "%d colours", len(colours))
		}
		return newVar(name, typ, colours), nil
	}
	if len(colours) != typ.Size() {
		return nil, codec.Malformed("palette", codec.ErrBufferUnderrun,
			"%s palette needs %d colours, got %d", typ, typ.Size(), len(colours))
	}
	p := newFixed(name, typ)
	p.Clear()
	next := 0
	for i := range p.colours {
		if !p.locked[i] {
			p.colours[i] = colours[next]
			next++
		}
	}
	p.colours[0].Transparent = true
	return p, nil
}

// FromBytes decodes a palette as stored in ROM.
func FromBytes(name string, data []byte, typ Type) (*Palette, error) {
	if typ.IsVarWidth() {
		var rec varRecord
		if err := struc.Unpack(bytes.NewReader(data), &rec); err != nil {
			return nil, codec.Malformed("palette", codec.ErrBufferUnderrun, "%s: %v", typ, err)
		}
		if len(data) != 2+rec.Count*2 {
			return nil, codec.Malformed("palette", codec.ErrBufferOverrun,
				"%s palette of %d colours is %d bytes", typ, rec.Count, len(data))
		}
		return newVar(name, typ, wordsToColours(rec.Colours)), nil
	}
	if len(data) != typ.SizeBytes() {
		return nil, codec.Malformed("palette", codec.ErrBufferUnderrun,
			"%s palette needs %d bytes, got %d", typ, typ.SizeBytes(), len(data))
	}
	words := make([]uint16, typ.Size())
	for i := range words {
		words[i] = binary.BigEndian.Uint16(data[i*2:])
	}
	return FromColours(name, wordsToColours(words), typ)
}

func wordsToColours(words []uint16) []Colour {
	colours := make([]Colour, len(words))
	for i, w := range words {
		colours[i] = FromGenesis(w)
	}
	return colours
}

// Merge overlays the unlocked entries of each palette in order, producing the
// CRAM line the game would see. Names are joined with commas.
func Merge(pals ...*Palette) *Palette {
	if len(pals) == 0 {
		p := newFixed("Default", TypeFull)
		for i := range p.locked {
			p.locked[i] = true
			p.owners[i] = "Default"
		}
		p.Clear()
		return p
	}
	size := len(pals[0].colours)
	p := &Palette{
		typ:     TypeFull,
		colours: make([]Colour, size),
		owners:  make([]string, size),
		locked:  make([]bool, size),
	}
	for i := range p.locked {
		p.locked[i] = true
	}
	p.Clear()
	names := make([]string, 0, len(pals))
	for _, src := range pals {
		names = append(names, src.Name)
		for i := 0; i < size && i < len(src.colours); i++ {
			if !src.locked[i] {
				p.locked[i] = false
				p.owners[i] = src.Name
				p.colours[i] = src.colours[i]
			}
		}
	}
	p.Name = strings.Join(names, ",")
	return p
}

// Clear resets every entry to black, with a transparent entry 0 and a grey
// entry 1.
func (p *Palette) Clear() {
	for i := range p.colours {
		p.colours[i] = FromGenesis(0x0000)
	}
	if len(p.colours) > 0 {
		p.colours[0].Transparent = true
	}
	if len(p.colours) > 1 {
		p.colours[1] = FromGenesis(0x0CCC)
	}
}

// LoadDebug fills a 16 entry palette with high contrast colours.
func (p *Palette) LoadDebug() {
	for i := 0; i < len(p.colours) && i < Entries; i++ {
		p.colours[i] = FromGenesis(debugColours[i])
	}
	if len(p.colours) > 0 {
		p.colours[0].Transparent = true
	}
}

// Bytes encodes the stored entries as big endian hardware words.
func (p *Palette) Bytes() ([]byte, error) {
	if p.typ.IsVarWidth() {
		rec := varRecord{Colours: make([]uint16, len(p.colours))}
		for i, c := range p.colours {
			rec.Colours[i] = c.Genesis()
		}
		var buf bytes.Buffer
		if err := struc.Pack(&buf, &rec); err != nil {
			return nil, codec.Malformed("palette", err, "%s", p.typ)
		}
		return buf.Bytes(), nil
	}
	out := make([]byte, 0, p.typ.SizeBytes())
	locked := p.typ.Locked()
	for i, c := range p.colours {
		if !locked[i] {
			out = binary.BigEndian.AppendUint16(out, c.Genesis())
		}
	}
	return out, nil
}

// Equal compares type and colours. Names and owners are ignored.
func (p *Palette) Equal(o *Palette) bool {
	if p.typ != o.typ || len(p.colours) != len(o.colours) {
		return false
	}
	for i := range p.colours {
		if p.colours[i] != o.colours[i] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy.
func (p *Palette) Clone() *Palette {
	return &Palette{
		Name:    p.Name,
		typ:     p.typ,
		colours: append([]Colour(nil), p.colours...),
		owners:  append([]string(nil), p.owners...),
		locked:  append([]bool(nil), p.locked...),
	}
}

func (p *Palette) Type() Type { return p.typ }

// Len returns the number of entries held, 16 for fixed width palettes.
func (p *Palette) Len() int { return len(p.colours) }

// Size returns the number of stored colours.
func (p *Palette) Size() int {
	if p.typ.IsVarWidth() {
		return len(p.colours)
	}
	return p.typ.Size()
}

// SizeBytes returns the number of bytes Bytes produces.
func (p *Palette) SizeBytes() int {
	if p.typ.IsVarWidth() {
		return 2 + len(p.colours)*2
	}
	return p.typ.SizeBytes()
}

// Colour returns entry i, or a transparent black for out of range entries.
func (p *Palette) Colour(i int) Colour {
	if !p.InRange(i) {
		return Colour{Transparent: true}
	}
	return p.colours[i]
}

// SetGenesis overwrites entry i with a hardware colour word.
func (p *Palette) SetGenesis(i int, c uint16) {
	if p.InRange(i) {
		p.colours[i] = FromGenesis(c)
	}
}

// Owner returns the name of the palette that supplies entry i.
func (p *Palette) Owner(i int) string {
	if !p.InRange(i) {
		return ""
	}
	return p.owners[i]
}

// InRange reports whether i addresses an entry.
func (p *Palette) InRange(i int) bool {
	return i >= 0 && i < len(p.colours)
}

// Editable reports whether entry i is stored by this palette.
func (p *Palette) Editable(i int) bool {
	return p.InRange(i) && !p.locked[i]
}

// Locked returns a copy of the locked entry map.
func (p *Palette) Locked() []bool {
	return append([]bool(nil), p.locked...)
}

// NthUnlockedIndex maps the n-th stored colour to its hardware entry. It
// returns Len() when there is no such colour.
func (p *Palette) NthUnlockedIndex(n int) int {
	for i, l := range p.locked {
		if l {
			continue
		}
		if n == 0 {
			return i
		}
		n--
	}
	return len(p.colours)
}

func (p *Palette) NthUnlockedColour(n int) Colour {
	return p.Colour(p.NthUnlockedIndex(n))
}

func (p *Palette) SetNthUnlockedGenesis(n int, c uint16) {
	p.SetGenesis(p.NthUnlockedIndex(n), c)
}

// ColorPalette converts the palette for image.Paletted.
func (p *Palette) ColorPalette() color.Palette {
	out := make(color.Palette, len(p.colours))
	for i, c := range p.colours {
		out[i] = c.NRGBA()
	}
	return out
}
