package gamedata

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sort"

	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/rom"
	"github.com/rcarmo/landstalker/internal/tile"
	"github.com/rcarmo/landstalker/internal/tileset"
)

const (
	tilesetSection   = "TilesetSection"
	animTilesetTable = "AnimatedTilesetTable"
	introFontPtr     = "IntroFontPtr"
	introFontSection = "IntroFont"

	blocksetSection = "BlocksetSection"
	bigTilesListPtr = "BigTilesListPtr"

	roomTilesets     = 32
	primaryBlocksets = 64
	animRecordSize   = tileset.AnimatedHeaderSize + 4
)

// The tileset section opens with a pointer to the room tileset table. The
// pointers in front of that table lead to the animated tilesets and then
// the intro font. A room slot that points at an animated tileset is unused.
func (g *GameData) loadTilesets(r *rom.Rom) error {
	const op = "load tilesets"
	if missing(r, []string{tilesetSection, animTilesetTable, introFontSection}, []string{introFontPtr}) {
		return nil
	}
	sec, err := r.Section(tilesetSection)
	if err != nil {
		return err
	}
	ptrStart, err := r.Read32(sec.Begin)
	if err != nil {
		return err
	}
	if ptrStart == 0 {
		log.Debug("%s: null tileset table, skipping", tilesetSection)
		return nil
	}
	if ptrStart < sec.Begin+4 || (ptrStart-sec.Begin)%4 != 0 || ptrStart+roomTilesets*4 > sec.End {
		return codec.Malformed(op, codec.ErrInconsistent, "tileset table at 0x%06X", ptrStart)
	}

	animTable, err := r.ReadSection(animTilesetTable)
	if err != nil {
		return err
	}
	end := bytes.IndexByte(animTable, 0xFF)
	if end < 0 {
		return codec.Malformed(op, codec.ErrBufferUnderrun, "%s has no terminator", animTilesetTable)
	}
	bases := animTable[:end]
	recs := (end + 2) &^ 1
	type anim struct {
		header []byte
		base   byte
		size   int
		addr   uint32
	}
	anims := make([]anim, len(bases))
	isAnim := make(map[uint32]bool, len(bases))
	for k, base := range bases {
		off := recs + k*animRecordSize
		if off+animRecordSize > len(animTable) {
			return codec.Malformed(op, codec.ErrBufferUnderrun, "animated tileset %d record", k)
		}
		a, err := tileset.DecodeAnimatedHeader(animTable[off:])
		if err != nil {
			return err
		}
		addr, err := r.Read32(binary.BigEndian.Uint32(animTable[off+tileset.AnimatedHeaderSize:]))
		if err != nil {
			return err
		}
		anims[k] = anim{
			header: animTable[off : off+tileset.AnimatedHeaderSize],
			base:   base,
			size:   int(a.Frames) * int(a.Length) * 2,
			addr:   addr,
		}
		isAnim[addr] = true
	}

	introSlot, err := r.ReadPointer(introFontPtr)
	if err != nil {
		return err
	}
	introAddr, err := r.Read32(introSlot)
	if err != nil {
		return err
	}
	introSec, err := r.Section(introFontSection)
	if err != nil {
		return err
	}

	roomPtrs := make([]uint32, roomTilesets)
	all := []uint32{introAddr}
	for i := range roomPtrs {
		if roomPtrs[i], err = r.Read32(ptrStart + uint32(i*4)); err != nil {
			return err
		}
		all = append(all, roomPtrs[i])
	}
	for _, a := range anims {
		all = append(all, a.addr)
	}
	sorted := sortedUnique(all)

	rooms := make([]Handle[*tileset.Tileset], roomTilesets)
	for i, p := range roomPtrs {
		if isAnim[p] {
			continue
		}
		if !sec.Contains(p) {
			return codec.Malformed(op, codec.ErrBufferOverrun, "tileset %d at 0x%06X", i+1, p)
		}
		raw, err := readSpan(r, "tileset", p, nextAfter(sorted, p, sec.End))
		if err != nil {
			return err
		}
		name := fmt.Sprintf("Tileset%02d", i+1)
		if rooms[i], err = g.AddTileset(name, fmt.Sprintf("graphics/tilesets/%s.lz77", name), raw, true); err != nil {
			return codec.Malformed(op, err, "%s at 0x%06X", name, p)
		}
	}

	perBase := make(map[byte]int)
	animHandles := make([]Handle[*tileset.Animated], len(anims))
	for k, a := range anims {
		stop := min(a.addr+uint32(a.size), nextAfter(sorted, a.addr, sec.End))
		data, err := readSpan(r, "animated tileset", a.addr, stop)
		if err != nil {
			return err
		}
		perBase[a.base]++
		name := fmt.Sprintf("Tileset%02dAnim%02d", int(a.base)+1, perBase[a.base])
		raw := append(append(append([]byte(nil), a.header...), a.base), data...)
		if animHandles[k], err = g.AddAnimatedTileset(name, fmt.Sprintf("graphics/tilesets/animated/%s.bin", name), raw); err != nil {
			return err
		}
	}

	font, err := r.ReadBytes(introAddr, introSec.Size())
	if err != nil {
		return err
	}
	fh, err := g.AddFont("IntroFont", "graphics/fonts/intro.bin", font, 8, 16, 4)
	if err != nil {
		return err
	}

	g.refresh = append(g.refresh, func(r *rom.Rom) error {
		sec, err := r.Section(tilesetSection)
		if err != nil {
			return err
		}
		introSlot := sec.Begin + 4*uint32(len(animHandles)+1)
		ptrStart := introSlot + 4
		dataAddr := ptrStart + 4*roomTilesets
		var data []byte

		slots := make([]uint32, roomTilesets)
		for i, h := range rooms {
			if !h.Valid() {
				continue
			}
			b, err := g.Tilesets.Bytes(h)
			if err != nil {
				return err
			}
			slots[i] = dataAddr + uint32(len(data))
			data = padEven(append(data, b...), 0xFF)
		}

		animAddrs := make([]uint32, len(animHandles))
		var table, records []byte
		for k, h := range animHandles {
			a, err := g.AnimatedTilesets.Get(h)
			if err != nil {
				return err
			}
			hdr, err := a.HeaderBytes()
			if err != nil {
				return err
			}
			animAddrs[k] = dataAddr + uint32(len(data))
			data = padEven(append(data, a.Bits(false)...), 0xFF)
			table = append(table, a.BaseTileset)
			records = append(append(records, hdr...), be32(sec.Begin+4*uint32(k+1))...)
		}
		for i, h := range rooms {
			if h.Valid() {
				continue
			}
			if len(animAddrs) == 0 {
				return codec.Malformed("inject tilesets", codec.ErrInconsistent, "tileset %d is unused and nothing can fill its slot", i+1)
			}
			slots[i] = animAddrs[0]
		}

		fontAddr := dataAddr + uint32(len(data))
		font, err := g.Tilesets.Bytes(fh)
		if err != nil {
			return err
		}
		data = append(data, font...)

		out := be32(ptrStart)
		for _, a := range animAddrs {
			out = append(out, be32(a)...)
		}
		out = append(out, be32(fontAddr)...)
		for _, s := range slots {
			out = append(out, be32(s)...)
		}
		g.graphics.AddPendingWrite(tilesetSection, append(out, data...))
		table = padEven(append(table, 0xFF), 0xFF)
		g.graphics.AddPendingWrite(animTilesetTable, append(table, records...))
		g.graphics.AddPendingWrite(introFontPtr, be32(introSlot))
		return nil
	})
	return nil
}

// The blockset section holds a pointer to 64 primary pointers, each leading
// to a run of secondary pointers, one per blockset. Unused primaries share
// the pointer of the next used one; trailing ones point past the last
// secondary pointer.
func (g *GameData) loadBlocksets(r *rom.Rom) error {
	const op = "load blocksets"
	if missing(r, []string{blocksetSection}, []string{bigTilesListPtr}) {
		return nil
	}
	ptrs, ok, err := pointers(r, bigTilesListPtr)
	if err != nil || !ok {
		return err
	}
	sec, err := r.Section(blocksetSection)
	if err != nil {
		return err
	}
	table := ptrs[0]
	if table < sec.Begin || table+primaryBlocksets*4 > sec.End {
		return codec.Malformed(op, codec.ErrInconsistent, "primary table at 0x%06X", table)
	}
	owner := make(map[uint32]int, primaryBlocksets)
	primary := make([]uint32, primaryBlocksets)
	for i := range primary {
		if primary[i], err = r.Read32(table + uint32(i*4)); err != nil {
			return err
		}
		owner[primary[i]] = i
	}
	groups := sortedUnique(primary)
	first, err := r.Read32(groups[0])
	if err != nil {
		return err
	}

	type slot struct {
		pri, sec int
		addr     uint32
	}
	var slots []slot
	for j, gp := range groups {
		end := first
		if j+1 < len(groups) {
			end = min(end, groups[j+1])
		}
		for s, a := 0, gp; a < end; s, a = s+1, a+4 {
			data, err := r.Read32(a)
			if err != nil {
				return err
			}
			slots = append(slots, slot{pri: owner[gp], sec: s, addr: data})
		}
	}
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].pri < slots[j].pri })
	addrs := make([]uint32, len(slots))
	for i, s := range slots {
		addrs[i] = s.addr
	}
	sorted := sortedUnique(addrs)

	type loaded struct {
		pri int
		h   Handle[tile.Blockset]
	}
	var handles []loaded
	for _, s := range slots {
		if !sec.Contains(s.addr) {
			return codec.Malformed(op, codec.ErrBufferOverrun, "blockset %d.%d at 0x%06X", s.pri, s.sec, s.addr)
		}
		raw, err := readSpan(r, "blockset", s.addr, nextAfter(sorted, s.addr, sec.End))
		if err != nil {
			return err
		}
		name := fmt.Sprintf("Blockset%02d%02d", s.pri&0x1F+1, s.sec+10*(s.pri>>5))
		h, err := g.AddBlockset(name, fmt.Sprintf("graphics/blocksets/%s.cbs", name), raw)
		if err != nil {
			return codec.Malformed(op, err, "%s at 0x%06X", name, s.addr)
		}
		handles = append(handles, loaded{s.pri, h})
	}

	g.refresh = append(g.refresh, func(r *rom.Rom) error {
		sec, err := r.Section(blocksetSection)
		if err != nil {
			return err
		}
		slotsAddr := sec.Begin + 4 + primaryBlocksets*4
		dataAddr := slotsAddr + 4*uint32(len(handles))

		firstSlot := make([]int, primaryBlocksets)
		for i := range firstSlot {
			firstSlot[i] = -1
		}
		for k := len(handles) - 1; k >= 0; k-- {
			firstSlot[handles[k].pri] = k
		}
		primary := make([]byte, 0, primaryBlocksets*4)
		next := dataAddr
		fill := make([]uint32, primaryBlocksets)
		for i := primaryBlocksets - 1; i >= 0; i-- {
			if firstSlot[i] >= 0 {
				next = slotsAddr + 4*uint32(firstSlot[i])
			}
			fill[i] = next
		}
		for _, p := range fill {
			primary = append(primary, be32(p)...)
		}

		var slotPtrs, data []byte
		for _, l := range handles {
			b, err := g.Blocksets.Bytes(l.h)
			if err != nil {
				return err
			}
			slotPtrs = append(slotPtrs, be32(dataAddr+uint32(len(data)))...)
			data = padEven(append(data, b...), 0xFF)
		}
		g.graphics.AddPendingWrite(blocksetSection, bytes.Join([][]byte{be32(sec.Begin + 4), primary, slotPtrs, data}, nil))
		return nil
	})
	return nil
}
