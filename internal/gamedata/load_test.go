package gamedata

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/landstalker/internal/blockset"
	"github.com/rcarmo/landstalker/internal/map3d"
	"github.com/rcarmo/landstalker/internal/rom"
	"github.com/rcarmo/landstalker/internal/rooms"
	"github.com/rcarmo/landstalker/internal/sprite"
	"github.com/rcarmo/landstalker/internal/text"
	"github.com/rcarmo/landstalker/internal/tile"
	"github.com/rcarmo/landstalker/internal/tileset"
)

// romImage lays data out in a blank US image and points labels at it.
type romImage struct {
	t    *testing.T
	data []byte
	o    *rom.Offsets
}

func newImage(t *testing.T) *romImage {
	return &romImage{t: t, data: usImage(t), o: rom.DefaultOffsets()}
}

// block is the start of the kth scratch area. Tables go at the front and
// instructions and pointers from 0xF00 on.
func block(k int) uint32 { return 0x1E0000 + uint32(k)*0x1000 }

func (im *romImage) put(at uint32, b []byte) uint32 {
	copy(im.data[at:], b)
	return at + uint32(len(b))
}

func (im *romImage) addr(name string, a uint32) {
	if im.o.Addresses[name] == nil {
		im.o.Addresses[name] = map[string]uint32{}
	}
	im.o.Addresses[name]["US"] = a
}

func (im *romImage) section(name string, begin, end uint32) {
	if im.o.Sections[name] == nil {
		im.o.Sections[name] = map[string][]uint32{}
	}
	im.o.Sections[name]["US"] = []uint32{begin, end}
}

func (im *romImage) lea(name string, pc, target uint32) {
	im.t.Helper()
	d := int64(target) - int64(pc) - 2
	require.True(im.t, d >= -0x8000 && d <= 0x7FFF, name)
	im.addr(name, pc)
	binary.BigEndian.PutUint32(im.data[pc:], 0x41FA0000|uint32(uint16(int16(d))))
}

func (im *romImage) ptr(name string, at, value uint32) {
	im.addr(name, at)
	binary.BigEndian.PutUint32(im.data[at:], value)
}

func (im *romImage) rom() *rom.Rom {
	im.t.Helper()
	r, err := rom.NewWithOffsets(im.data, im.o)
	require.NoError(im.t, err)
	return r
}

var (
	flagTables = [][]byte{
		{0x01, 0x23, 0x95, 0xA3, 0xFF, 0xFF},
		{0x00, 0x10, 0x01, 0xE1, 0x82, 0x03, 0xFF, 0xFF},
		{0xFF, 0xFF},
		{0x02, 0x00, 0x81, 0x42, 0xFF, 0xFF},
		{0xFF, 0xFF},
		{0x00, 0x05, 0x33, 0x06, 0xFF, 0xFF},
	}
	swapFlagTables = [][]byte{
		{0x00, 0x10, 0xFF, 0x08, 0xFF, 0xFF},
		{0x00, 0x20, 0x12, 0x03, 0xFF, 0xFF},
		{0x00, 0x01, 0x10, 0x02, 0x00, 0x02, 0x10, 0x02, 0xFF, 0xFF},
	}
)

func (im *romImage) tilesets() {
	t := im.t
	b := block(0)
	ptrStart := b + 12
	dataAddr := ptrStart + 4*roomTilesets

	ts := tileset.New()
	_, err := ts.SetBits(bytes.Repeat([]byte{0x12, 0x34}, 32), false)
	require.NoError(t, err)
	anim := im.put(dataAddr, padEven(ts.Bits(true), 0xFF))
	font := im.put(anim, bytes.Repeat([]byte{0x56}, 64))
	end := im.put(font, bytes.Repeat([]byte{0x78}, 64))

	binary.BigEndian.PutUint32(im.data[b:], ptrStart)
	binary.BigEndian.PutUint32(im.data[b+4:], anim)
	binary.BigEndian.PutUint32(im.data[b+8:], font)
	binary.BigEndian.PutUint32(im.data[ptrStart:], dataAddr)
	for i := 1; i < roomTilesets; i++ {
		binary.BigEndian.PutUint32(im.data[ptrStart+uint32(i*4):], anim)
	}
	im.section(tilesetSection, b, b+0xE00)
	im.section(introFontSection, font, end)
	im.ptr(introFontPtr, b+0xF00, b+8)

	hdr, err := tileset.NewAnimated(0x20, 0x10, 4, 2).HeaderBytes()
	require.NoError(t, err)
	table := append(append([]byte{0x00, 0xFF}, hdr...), be32(b+4)...)
	im.put(b+0xF10, table)
	im.section(animTilesetTable, b+0xF10, b+0xF10+uint32(len(table)))
}

func (im *romImage) blocksets() {
	t := im.t
	b := block(1)
	primary := b + 4
	slots := primary + 4*primaryBlocksets
	data := slots + 8

	first, err := blockset.Encode(tile.Blockset{{tile.FromIndex(5), tile.FromIndex(6), tile.FromIndex(7), tile.FromIndex(8)}})
	require.NoError(t, err)
	second, err := blockset.Encode(tile.Blockset{{tile.FromIndex(9), tile.FromIndex(9), tile.FromIndex(1), tile.FromIndex(2)}})
	require.NoError(t, err)
	next := im.put(data, padEven(first, 0xFF))
	im.put(next, second)

	binary.BigEndian.PutUint32(im.data[b:], primary)
	binary.BigEndian.PutUint32(im.data[primary:], slots)
	for i := 1; i < primaryBlocksets; i++ {
		binary.BigEndian.PutUint32(im.data[primary+uint32(i*4):], data)
	}
	binary.BigEndian.PutUint32(im.data[slots:], data)
	binary.BigEndian.PutUint32(im.data[slots+4:], next)
	im.section(blocksetSection, b, b+0xE00)
	im.addr(bigTilesListPtr, b)
}

// strings stores "Hi" with trees trained on "Hi" and "iHi".
func (im *romImage) strings() {
	t := im.t
	ctx := text.DefaultContext()
	hi, ihi := text.NewString(text.FormatHuffman), text.NewString(text.FormatHuffman)
	hi.Text, ihi.Text = "Hi", "iHi"
	require.NoError(t, ctx.RecalculateTrees([]*text.String{hi, ihi}, 0x56))
	offsets, trees, err := ctx.Trees.Encode()
	require.NoError(t, err)

	b := block(2)
	small := b + textBoxWidth*8*2
	offs := small + textBoxWidth*6*2
	tables := im.put(offs, offsets)
	im.put(tables, trees)
	im.section(huffmanSection, b, b+0xE00)
	im.lea(textBoxLea, b+0xF00, b)
	im.lea(smallBoxLea, b+0xF04, small)
	im.lea(huffOffsetsLea, b+0xF08, offs)
	im.lea(huffTablesLea, b+0xF0C, tables)

	s, err := ctx.Encode(hi)
	require.NoError(t, err)
	b = block(3)
	first := im.put(b, bytes.Repeat([]byte{0x3C}, 30))
	end := im.put(first, s)
	for end%4 != 0 {
		end++
	}
	binary.BigEndian.PutUint32(im.data[end:], first)
	im.section(stringSection, b, b+0xE00)
	im.ptr(mainFontPtr, b+0xF00, b)
	im.ptr(stringPtr, b+0xF04, end)
}

func (im *romImage) sprites() {
	t := im.t
	frame, err := sprite.NewFrame().Bytes()
	require.NoError(t, err)
	layout := &sprite.Layout{Sprites: []sprite.SpriteLayout{{
		Volume:     3,
		Animations: [][]string{{sprite.FrameName(0, 0), sprite.FrameName(0, 0)}},
	}}}
	b := block(4)
	gfx, err := sprite.PackGraphics(layout, []sprite.FrameData{{Name: sprite.FrameName(0, 0), Data: frame}}, b)
	require.NoError(t, err)
	im.put(b, gfx)
	im.section(spriteGfxSection, b, b+0xE00)
	im.addr(spriteGfxPtrPtr, b)

	re := sprite.NewRoomEntities()
	re.SetEntities(0, []sprite.Entity{sprite.NewEntity()})
	offsets, table, err := re.Bytes(2)
	require.NoError(t, err)

	b = block(5)
	parts := append(append([][]byte{}, flagTables...),
		[]byte{0x00, 0x00, 0x00, 0x03}, // graphics lookup
		[]byte{0x11, 0x22},             // dimensions
		offsets,
		[]byte{0xAA, 0xBB, 0xCC, 0xDD}, // enemy stats
	)
	at := b
	for i, p := range parts {
		im.lea(spriteDataLeas[i], b+0xF00+uint32(i*4), at)
		at = im.put(at, p)
	}
	im.put(at, table)
	im.ptr(spriteTableAddr, b+0xF40, at)
	im.lea("LockedDoorSpriteFlagsLea2", b+0xF44, b+uint32(len(bytes.Join(flagTables[:3], nil))))
	im.lea("LockedDoorSpriteFlagsLea3", b+0xF48, b+uint32(len(bytes.Join(flagTables[:3], nil))))
	im.lea("SacredTreeFlagsLea2", b+0xF4C, b+uint32(len(bytes.Join(flagTables[:5], nil))))
	im.section(spriteDataSection, b, b+0xE00)

	b = block(6)
	im.put(b, []byte{0xE0, 0x05, 0x81, 0x23})
	im.section(scriptSection, b, b+4)
	im.put(b+0x10, []byte{0xFF, 0xFF, 0x00, 0x44, 0x03, 0x00, 0xFF, 0xFF})
	im.section(progressFlagSection, b+0x10, b+0x18)
}

func (im *romImage) rooms() {
	t := im.t
	b := block(7)
	m, err := map3d.New(2, 2, 4, 4).Encode()
	require.NoError(t, err)
	maps := b + 2*rooms.RoomRecordSize
	im.put(b, append(be32(maps), 0x03, 0x02, 0x00, 0x00))
	im.put(b+rooms.RoomRecordSize, append(be32(maps), 0x00, 0x00, 0x21, 0x07))
	pal := im.put(maps, padEven(m, 0xFF))
	exits := im.put(pal, bytes.Repeat([]byte{0x0E, 0xEE}, 13))
	end := im.put(exits, []byte{0xFF, 0xFF})
	im.section(roomDataSection, b, end)
	im.ptr(roomDataPtr, b+0xF00, b)
	im.ptr(roomPalPtr, b+0xF04, pal)
	im.ptr(roomExitsPtr, b+0xF08, exits)

	b = block(8)
	chests := rooms.NewChests()
	chests.SetRoomChests(0, []rooms.ChestItem{0x10, 0x11})
	offsets, contents, err := chests.Bytes(2)
	require.NoError(t, err)
	im.put(im.put(b, offsets), contents)
	im.section(chestSection, b, b+0x20)
	im.lea(chestOffsetsLea, b+0xF00, b)
	im.lea(chestContentLea, b+0xF04, b+uint32(len(offsets)))

	doors := map3d.NewDoors()
	doors.SetRoomDoors(0, []map3d.Door{map3d.DecodeDoor(0x12, 0x34)})
	offsets, data, err := doors.Bytes(2)
	require.NoError(t, err)
	im.put(im.put(b+0x100, offsets), data)
	im.section(doorSection, b+0x100, b+0x120)
	im.lea(doorLookupLea, b+0xF08, b+0x100)
	im.lea(doorTableLea, b+0xF0C, b+0x100+uint32(len(offsets)))

	dialogue := rooms.NewDialogueTable()
	dialogue.SetRoomCharacters(0, []rooms.Character{1, 2, 3})
	data, err = dialogue.Bytes()
	require.NoError(t, err)
	im.put(b+0x200, data)
	im.section(dialogueSection, b+0x200, b+0x220)
	im.lea(dialogueTableLea, b+0xF10, b+0x200)

	b = block(9)
	at := b
	for i, name := range []string{gfxSwapFlagsLea, lockedDoorSwapLea, treeWarpSwapLea} {
		im.lea(name, b+0xF00+uint32(i*4), at)
		at = im.put(at, swapFlagTables[i])
	}
	im.lea(lockedDoorSwapLea2, b+0xF0C, b+uint32(len(swapFlagTables[0])))
	swaps := map3d.NewTileSwaps()
	swaps.SetSwaps(1, []map3d.TileSwap{map3d.NewTileSwap()})
	data, err = swaps.Bytes()
	require.NoError(t, err)
	im.lea(tileSwapTableLea, b+0xF10, at)
	im.put(at, data)
	im.section(gfxSwapSection, b, b+0x100)

	b = block(10)
	lists := []struct {
		section string
		leas    []string
		data    []byte
	}{
		{"ShopsSection", []string{"Shops", "ShopsLea"}, rooms.EncodeRoomSet([]uint16{1, 2}, true)},
		{"LifestockSoldFlagsSection", []string{"LifestockSoldFlags"}, rooms.EncodeRoomFlagMap(map[uint16]uint16{3: 0x10})},
		{"BigTreeLocationsSection", []string{"BigTreeLocations"}, rooms.EncodeRoomSet([]uint16{4, 5}, false)},
		{"LightableRoomsSection", []string{"LightableRooms"}, rooms.EncodeRoomFlagMap(map[uint16]uint16{6: 0x21})},
	}
	pc := b + 0xF00
	for i, l := range lists {
		at := b + uint32(i)*0x100
		im.section(l.section, at, im.put(at, l.data))
		for _, lea := range l.leas {
			im.lea(lea, pc, at)
			pc += 4
		}
	}
}

func fullImage(t *testing.T) *romImage {
	im := newImage(t)
	im.tilesets()
	im.blocksets()
	im.strings()
	im.sprites()
	im.rooms()
	return im
}

func TestLoad_AllTables(t *testing.T) {
	r := fullImage(t).rom()
	g := New(nil)
	require.NoError(t, g.Load(r))

	for name, n := range map[string]int{
		"tilesets":          g.Tilesets.Len(),
		"animated tilesets": g.AnimatedTilesets.Len(),
		"blocksets":         g.Blocksets.Len(),
		"2d maps":           g.Maps2D.Len(),
		"3d maps":           g.Maps3D.Len(),
		"huffman trees":     g.HuffmanTrees.Len(),
		"sprite frames":     g.SpriteFrames.Len(),
		"sprite layouts":    g.SpriteLayouts.Len(),
		"entities":          g.Entities.Len(),
		"sprite flags":      g.SpriteFlags.Len(),
		"sprite tables":     g.SpriteTables.Len(),
		"scripts":           g.Scripts.Len(),
		"progress flags":    g.ProgressFlags.Len(),
		"room tables":       g.RoomTables.Len(),
		"chests":            g.Chests.Len(),
		"doors":             g.Doors.Len(),
		"tile swaps":        g.TileSwaps.Len(),
		"gfx swap flags":    g.GfxSwapFlags.Len(),
		"dialogue":          g.Dialogue.Len(),
		"room sets":         g.RoomSets.Len(),
		"room flag maps":    g.RoomFlagMaps.Len(),
	} {
		assert.NotZero(t, n, name)
	}
	assert.Equal(t, 3, g.Tilesets.Len())
	assert.Equal(t, []string{"Blockset0100", "Blockset0101"}, g.Blocksets.Names())
	assert.Equal(t, 3, g.SpriteTables.Len())
	assert.Equal(t, 2, g.RoomSets.Len())
	assert.Equal(t, 2, g.RoomFlagMaps.Len())
	_, ok := g.AnimatedTilesets.Lookup("Tileset01Anim01")
	assert.True(t, ok)
	_, ok = g.Palettes.Lookup("RoomPal00")
	assert.True(t, ok)
	_, ok = g.Warps.Lookup("RoomWarps")
	assert.True(t, ok)

	sh, ok := g.Strings.Lookup("MainString0000")
	require.True(t, ok)
	s, err := g.Strings.Get(sh)
	require.NoError(t, err)
	assert.Equal(t, "Hi", s.Text)

	th, ok := g.RoomTables.Lookup("RoomTable")
	require.True(t, ok)
	tab, err := g.RoomTables.Get(th)
	require.NoError(t, err)
	require.Len(t, tab.Rooms, 2)
	assert.Equal(t, "Map001", tab.Rooms[1].Map)
	assert.Equal(t, uint8(7), tab.Rooms[1].BGM)

	ch, _ := g.Chests.Lookup("Chests")
	chests, err := g.Chests.Get(ch)
	require.NoError(t, err)
	assert.Equal(t, []rooms.ChestItem{0x10, 0x11}, chests.ForRoom(0))

	eh, _ := g.Entities.Lookup("RoomEntities")
	ents, err := g.Entities.Get(eh)
	require.NoError(t, err)
	list, ok := ents.Entities(0)
	require.True(t, ok)
	assert.Len(t, list, 1)

	sets, _ := g.RoomSets.Lookup("Shops")
	shops, err := g.RoomSets.Get(sets)
	require.NoError(t, err)
	assert.Equal(t, []uint16{1, 2}, shops)

	assert.False(t, g.HasBeenModified())
}

func TestInjectIntoRom_AllTables(t *testing.T) {
	im := fullImage(t)
	r := im.rom()
	g := New(nil)
	require.NoError(t, g.Load(r))

	sh, _ := g.Strings.Lookup("MainString0000")
	require.NoError(t, g.Strings.Mutate(sh, func(s *text.String) (*text.String, error) {
		s.Text = "iHi"
		return s, nil
	}))
	th, _ := g.RoomTables.Lookup("RoomTable")
	require.NoError(t, g.RoomTables.Mutate(th, func(tab *rooms.RoomTable) (*rooms.RoomTable, error) {
		tab.Rooms[1].BGM = 9
		return tab, nil
	}))
	ch, _ := g.Chests.Lookup("Chests")
	require.NoError(t, g.Chests.Mutate(ch, func(c *rooms.Chests) (*rooms.Chests, error) {
		c.SetRoomChests(1, []rooms.ChestItem{0x12})
		return c, nil
	}))
	eh, _ := g.Entities.Lookup("RoomEntities")
	require.NoError(t, g.Entities.Mutate(eh, func(re *sprite.RoomEntities) (*sprite.RoomEntities, error) {
		e := sprite.NewEntity()
		e.Type = 0x42
		re.SetEntities(1, []sprite.Entity{e})
		return re, nil
	}))
	lh, _ := g.RoomSets.Lookup("BigTreeLocations")
	require.NoError(t, g.RoomSets.Mutate(lh, func(s []uint16) ([]uint16, error) {
		s[1] = 8
		return s, nil
	}))
	require.True(t, g.HasBeenModified())

	require.NoError(t, g.InjectIntoRom(r))
	assert.False(t, g.HasBeenModified())
	assert.Equal(t, r.Checksum(), r.StoredChecksum())

	content, err := r.ReadOffset16(chestContentLea)
	require.NoError(t, err)
	got, err := r.ReadBytes(content, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x10, 0x11, 0x12}, got)

	again := New(nil)
	require.NoError(t, again.Load(r))

	sh, _ = again.Strings.Lookup("MainString0000")
	s, err := again.Strings.Get(sh)
	require.NoError(t, err)
	assert.Equal(t, "iHi", s.Text)

	th, _ = again.RoomTables.Lookup("RoomTable")
	tab, err := again.RoomTables.Get(th)
	require.NoError(t, err)
	assert.Equal(t, uint8(9), tab.Rooms[1].BGM)
	assert.Equal(t, uint8(3), tab.Rooms[0].Tileset)

	ch, _ = again.Chests.Lookup("Chests")
	chests, err := again.Chests.Get(ch)
	require.NoError(t, err)
	assert.Equal(t, []rooms.ChestItem{0x12}, chests.ForRoom(1))

	eh, _ = again.Entities.Lookup("RoomEntities")
	ents, err := again.Entities.Get(eh)
	require.NoError(t, err)
	list, ok := ents.Entities(1)
	require.True(t, ok)
	require.Len(t, list, 1)
	assert.Equal(t, uint8(0x42), list[0].Type)

	lh, _ = again.RoomSets.Lookup("BigTreeLocations")
	trees, err := again.RoomSets.Get(lh)
	require.NoError(t, err)
	assert.Equal(t, []uint16{4, 8}, trees)

	// Untouched tables come back unchanged.
	assert.Equal(t, g.Tilesets.Names(), again.Tilesets.Names())
	assert.Equal(t, g.Blocksets.Names(), again.Blocksets.Names())
	assert.Equal(t, g.SpriteFrames.Names(), again.SpriteFrames.Names())
	for _, name := range g.Tilesets.Names() {
		h1, _ := g.Tilesets.Lookup(name)
		h2, ok := again.Tilesets.Lookup(name)
		require.True(t, ok, name)
		b1, err := g.Tilesets.Bytes(h1)
		require.NoError(t, err)
		b2, err := again.Tilesets.Bytes(h2)
		require.NoError(t, err)
		assert.Equal(t, b1, b2, name)
	}
}

func TestLoad_BadTablePointer(t *testing.T) {
	im := fullImage(t)
	// Room records pointing past the palettes.
	binary.BigEndian.PutUint32(im.data[block(7):], block(7)+0xE00)
	err := New(nil).Load(im.rom())
	assert.Error(t, err)
}
