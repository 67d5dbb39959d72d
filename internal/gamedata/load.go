package gamedata

import (
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/datamgr"
	"github.com/rcarmo/landstalker/internal/palette"
	"github.com/rcarmo/landstalker/internal/rom"
	"github.com/rcarmo/landstalker/internal/text"
)

// Labels of the data read from a ROM image.
const (
	behaviourOffsetsLea = "SpriteBehaviourOffsets"
	behaviourTableLea   = "SpriteBehaviourTable"
	behaviourSection    = "SpriteBehaviourSection"

	fallTableLea        = "FallTableLeaLoc"
	climbTableLea       = "ClimbTableLeaLoc"
	transitionTableLea1 = "TransitionTableLeaLoc1"
	transitionTableLea2 = "TransitionTableLeaLoc2"
	miscWarpSection     = "MiscWarpSection"

	introStringSection     = "IntroStrings"
	endCreditStringSection = "EndCreditTextSection"
)

var paletteSections = []struct {
	section string
	typ     palette.Type
}{
	{"LavaPaletteRotation", palette.TypeLava},
	{"KazaltWarpPalette", palette.TypeWarp},
	{"SegaLogoPalette", palette.TypeSegaLogo},
	{"TitlePaletteYellowFade", palette.TypeTitleYellow},
	{"ProjectilePalette1", palette.TypeProjectile},
	{"GameStartPalette", palette.TypeFull},
}

// Load decodes every table r's offsets know how to find. Tables whose
// labels are missing for the region are skipped.
func (g *GameData) Load(r *rom.Rom) error {
	loaders := []struct {
		what string
		fn   func(*rom.Rom) error
	}{
		{"palettes", g.loadPalettes},
		{"tilesets", g.loadTilesets},
		{"blocksets", g.loadBlocksets},
		{"huffman trees", g.loadHuffman},
		{"main strings", g.loadMainStrings},
		{"intro strings", func(r *rom.Rom) error { return g.loadStrings(r, introStringSection, text.FormatIntro) }},
		{"end credits", func(r *rom.Rom) error { return g.loadStrings(r, endCreditStringSection, text.FormatEndCredit) }},
		{"sprite graphics", g.loadSpriteGraphics},
		{"sprite data", g.loadSpriteData},
		{"behaviours", g.loadBehaviours},
		{"scripts", g.loadScripts},
		{"rooms", g.loadRooms},
		{"warps", g.loadWarps},
		{"chests", g.loadChests},
		{"doors", g.loadDoors},
		{"tile swaps", g.loadGfxSwaps},
		{"dialogue", g.loadDialogue},
		{"room lists", g.loadRoomLists},
	}
	for i, l := range loaders {
		for _, m := range g.Managers() {
			m.SetProgress("Loading "+l.what, float64(i)/float64(len(loaders)))
		}
		if err := l.fn(r); err != nil {
			return errors.Wrapf(err, "load %s", l.what)
		}
	}
	for _, m := range g.Managers() {
		m.SetProgress("Ready", 1)
	}
	log.Info("loaded %s ROM: %d palettes, %d tilesets, %d blocksets, %d strings, %d sprite frames, %d room maps, %d warp tables",
		r.RegionName(), g.Palettes.Len(), g.Tilesets.Len(), g.Blocksets.Len(), g.Strings.Len(),
		g.SpriteFrames.Len(), g.Maps3D.Len(), g.Warps.Len())
	return nil
}

func missing(r *rom.Rom, sections []string, addresses []string) bool {
	for _, s := range sections {
		if !r.SectionExists(s) {
			log.Debug("section %s not known for %s, skipping", s, r.Region())
			return true
		}
	}
	for _, a := range addresses {
		if !r.AddressExists(a) {
			log.Debug("address %s not known for %s, skipping", a, r.Region())
			return true
		}
	}
	return false
}

// leaTargets follows the lea instructions at the named addresses. A zeroed
// instruction means the table is not present in this image.
func leaTargets(r *rom.Rom, names ...string) ([]uint32, bool, error) {
	out := make([]uint32, len(names))
	for i, name := range names {
		a, err := r.Address(name)
		if err != nil {
			return nil, false, err
		}
		ins, err := r.Read32(a)
		if err != nil {
			return nil, false, err
		}
		if ins == 0 {
			log.Debug("%s: no instruction at 0x%06X, skipping", name, a)
			return nil, false, nil
		}
		if out[i], err = r.ReadOffset16(name); err != nil {
			return nil, false, err
		}
	}
	return out, true, nil
}

// pointers reads the 32-bit pointers at the named addresses. A null pointer
// means the table is not present in this image.
func pointers(r *rom.Rom, names ...string) ([]uint32, bool, error) {
	out := make([]uint32, len(names))
	for i, name := range names {
		p, err := r.ReadPointer(name)
		if err != nil {
			return nil, false, err
		}
		if p == 0 {
			log.Debug("%s: null pointer, skipping", name)
			return nil, false, nil
		}
		out[i] = p
	}
	return out, true, nil
}

func readSpan(r *rom.Rom, what string, begin, end uint32) ([]byte, error) {
	if end < begin {
		return nil, codec.Malformed("load "+what, codec.ErrInconsistent, "ends at 0x%06X before it begins at 0x%06X", end, begin)
	}
	return r.ReadBytes(begin, int(end-begin))
}

func be32(v uint32) []byte {
	return binary.BigEndian.AppendUint32(nil, v)
}

func padEven(b []byte, fill byte) []byte {
	if len(b)%2 == 1 {
		return append(b, fill)
	}
	return b
}

// sortedUnique returns the distinct values of ptrs in ascending order.
func sortedUnique(ptrs []uint32) []uint32 {
	seen := make(map[uint32]bool, len(ptrs))
	var out []uint32
	for _, p := range ptrs {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// nextAfter returns the smallest of ptrs above p, or end.
func nextAfter(ptrs []uint32, p, end uint32) uint32 {
	i := sort.Search(len(ptrs), func(i int) bool { return ptrs[i] > p })
	if i < len(ptrs) && ptrs[i] < end {
		return ptrs[i]
	}
	return end
}

func (g *GameData) loadPalettes(r *rom.Rom) error {
	for _, ps := range paletteSections {
		if missing(r, []string{ps.section}, nil) {
			continue
		}
		data, err := r.ReadSection(ps.section)
		if err != nil {
			return err
		}
		size := ps.typ.SizeBytes()
		if size == 0 || len(data)%size != 0 {
			log.Warn("section %s is %d bytes, not a whole number of %s palettes, skipping", ps.section, len(data), ps.typ)
			continue
		}
		var hs []Handle[*palette.Palette]
		for i := 0; i*size < len(data); i++ {
			name := fmt.Sprintf("%s%d", ps.section, i)
			h, err := g.AddPalette(name, fmt.Sprintf("graphics/palettes/%s.pal", name), data[i*size:(i+1)*size], ps.typ)
			if err != nil {
				return err
			}
			hs = append(hs, h)
		}
		section := ps.section
		g.refresh = append(g.refresh, func(*rom.Rom) error {
			b, err := g.Palettes.concat(hs)
			if err != nil {
				return err
			}
			g.graphics.AddPendingWrite(section, b)
			return nil
		})
	}
	return nil
}

func zeroFilled(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}

// loadStrings reads back to back records until the section ends or only
// zero padding is left.
func (g *GameData) loadStrings(r *rom.Rom, section string, f text.Format) error {
	if missing(r, []string{section}, nil) {
		return nil
	}
	data, err := r.ReadSection(section)
	if err != nil {
		return err
	}
	var hs []Handle[*text.String]
	for pos := 0; pos < len(data); {
		if zeroFilled(data[pos:]) {
			log.Debug("%s: %d bytes of padding after %d strings", section, len(data)-pos, len(hs))
			break
		}
		_, n, err := g.text.Decode(f, data[pos:])
		if err != nil {
			return errors.Wrapf(err, "%s string %d at 0x%06X", section, len(hs), pos)
		}
		name := fmt.Sprintf("%s%d", section, len(hs))
		h, err := g.AddString(name, fmt.Sprintf("strings/%s/%03d%s", section, len(hs), f.FileExt()), data[pos:pos+n], f)
		if err != nil {
			return err
		}
		hs = append(hs, h)
		pos += n
	}
	g.refresh = append(g.refresh, func(*rom.Rom) error {
		b, err := g.Strings.concat(hs)
		if err != nil {
			return err
		}
		g.strings.AddPendingWrite(section, b)
		return nil
	})
	return nil
}

func (g *GameData) loadBehaviours(r *rom.Rom) error {
	if missing(r, []string{behaviourSection}, []string{behaviourOffsetsLea, behaviourTableLea}) {
		return nil
	}
	offBegin, err := r.ReadOffset16(behaviourOffsetsLea)
	if err != nil {
		return err
	}
	tabBegin, err := r.ReadOffset16(behaviourTableLea)
	if err != nil {
		return err
	}
	sec, err := r.Section(behaviourSection)
	if err != nil {
		return err
	}
	if tabBegin < offBegin || tabBegin > sec.End {
		return codec.Malformed("load behaviours", codec.ErrInconsistent,
			"offsets at 0x%06X, table at 0x%06X, section ends 0x%06X", offBegin, tabBegin, sec.End)
	}
	offsets, err := r.ReadBytes(offBegin, int(tabBegin-offBegin))
	if err != nil {
		return err
	}
	size := 0
	for _, n := range offsets {
		size += int(n)
	}
	if tabBegin+uint32(size) > sec.End {
		return codec.Malformed("load behaviours", codec.ErrBufferUnderrun,
			"scripts need %d bytes, section has %d", size, sec.End-tabBegin)
	}
	table, err := r.ReadBytes(tabBegin, size)
	if err != nil {
		return err
	}
	h, err := g.AddBehaviours("Behaviours", "spritedata/behaviours.bin", append(offsets, table...))
	if err != nil {
		return err
	}
	g.refresh = append(g.refresh, func(r *rom.Rom) error {
		b, err := g.Behaviours.Bytes(h)
		if err != nil {
			return err
		}
		offsets, _, err := splitBehaviours(b)
		if err != nil {
			return err
		}
		sec, err := r.Section(behaviourSection)
		if err != nil {
			return err
		}
		g.sprites.AddPendingWrite(behaviourSection, b)
		return g.addLeaWrites(r, g.sprites, map[string]uint32{
			behaviourOffsetsLea: sec.Begin,
			behaviourTableLea:   sec.Begin + uint32(len(offsets)),
		})
	})
	return nil
}

func (g *GameData) loadWarps(r *rom.Rom) error {
	leas := []string{fallTableLea, climbTableLea, transitionTableLea1, transitionTableLea2}
	if missing(r, []string{miscWarpSection}, leas) {
		return nil
	}
	sec, err := r.Section(miscWarpSection)
	if err != nil {
		return err
	}
	begin, err := r.ReadOffset16(fallTableLea)
	if err != nil {
		return err
	}
	if !sec.Contains(begin) {
		return codec.Malformed("load warps", codec.ErrInconsistent, "fall table 0x%06X is outside %s", begin, miscWarpSection)
	}
	raw, err := r.ReadBytes(begin, int(sec.End-begin))
	if err != nil {
		return err
	}
	h, err := g.AddWarps("MiscWarps", "rooms/misc_warps.bin", raw)
	if err != nil {
		return err
	}
	g.refresh = append(g.refresh, func(r *rom.Rom) error {
		wl, err := g.Warps.Get(h)
		if err != nil {
			return err
		}
		falls, err := wl.FallBytes()
		if err != nil {
			return err
		}
		climbs, err := wl.ClimbBytes()
		if err != nil {
			return err
		}
		transitions, err := wl.TransitionBytes()
		if err != nil {
			return err
		}
		sec, err := r.Section(miscWarpSection)
		if err != nil {
			return err
		}
		b := append(append(append([]byte(nil), falls...), climbs...), transitions...)
		g.rooms.AddPendingWrite(miscWarpSection, b)
		fall := sec.Begin
		climb := fall + uint32(len(falls))
		transition := climb + uint32(len(climbs))
		return g.addLeaWrites(r, g.rooms, map[string]uint32{
			fallTableLea:        fall,
			climbTableLea:       climb,
			transitionTableLea1: transition,
			transitionTableLea2: transition,
		})
	})
	return nil
}

func (g *GameData) addLeaWrites(r *rom.Rom, m *datamgr.Manager, targets map[string]uint32) error {
	for name, target := range targets {
		ins, err := r.Offset16(name, target)
		if err != nil {
			return err
		}
		m.AddPendingWrite(name, ins)
	}
	return nil
}
