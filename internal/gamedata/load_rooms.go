package gamedata

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/map3d"
	"github.com/rcarmo/landstalker/internal/palette"
	"github.com/rcarmo/landstalker/internal/rom"
	"github.com/rcarmo/landstalker/internal/rooms"
)

const (
	roomDataSection = "RoomDataSection"
	roomDataPtr     = "RoomDataPtr"
	roomPalPtr      = "RoomPalPtr"
	roomExitsPtr    = "RoomExitsPtr"

	chestSection    = "ChestSection"
	chestOffsetsLea = "RoomChestOffsets"
	chestContentLea = "ChestContents"

	doorSection   = "DoorTableSection"
	doorLookupLea = "DoorLookup"
	doorTableLea  = "DoorTable"

	gfxSwapSection     = "GfxSwapSection"
	gfxSwapFlagsLea    = "RoomGfxSwapFlags"
	lockedDoorSwapLea  = "LockedDoorGfxSwapFlags"
	lockedDoorSwapLea2 = "LockedDoorGfxSwapFlagsLEA"
	treeWarpSwapLea    = "TreeWarpGfxSwapFlags"
	tileSwapTableLea   = "TileSwaps"

	dialogueSection  = "RoomCharacterTableSection"
	dialogueTableLea = "RoomDialogueTable"
)

func (g *GameData) loadRooms(r *rom.Rom) error {
	const op = "load rooms"
	names := []string{roomDataPtr, roomPalPtr, roomExitsPtr}
	if missing(r, []string{roomDataSection}, names) {
		return nil
	}
	ptrs, ok, err := pointers(r, names...)
	if err != nil || !ok {
		return err
	}
	data, pal, exits := ptrs[0], ptrs[1], ptrs[2]
	sec, err := r.Section(roomDataSection)
	if err != nil {
		return err
	}
	if data < sec.Begin || data >= pal || pal > exits || exits >= sec.End {
		return codec.Malformed(op, codec.ErrInconsistent,
			"rooms 0x%06X, palettes 0x%06X, exits 0x%06X outside %s", data, pal, exits, roomDataSection)
	}

	// Room records run up to the first map.
	var records [][]byte
	var mapPtrs []uint32
	lowest := pal
	for addr := data; addr+rooms.RoomRecordSize <= lowest; addr += rooms.RoomRecordSize {
		rec, err := r.ReadBytes(addr, rooms.RoomRecordSize)
		if err != nil {
			return err
		}
		p := binary.BigEndian.Uint32(rec)
		if p < addr+rooms.RoomRecordSize || p >= pal {
			return codec.Malformed(op, codec.ErrInconsistent, "room %d map at 0x%06X", len(records), p)
		}
		lowest = min(lowest, p)
		records = append(records, rec)
		mapPtrs = append(mapPtrs, p)
	}
	if len(records) == 0 {
		return codec.Malformed(op, codec.ErrBufferUnderrun, "no rooms at 0x%06X", data)
	}

	addrs := sortedUnique(mapPtrs)
	mapNames := make(map[uint32]string, len(addrs))
	var maps []Handle[*map3d.Tilemap3D]
	for i, a := range addrs {
		raw, err := readSpan(r, "room map", a, nextAfter(addrs, a, pal))
		if err != nil {
			return err
		}
		name := fmt.Sprintf("Map%03d", i+1)
		h, err := g.AddTilemap3D(name, fmt.Sprintf("rooms/maps/%s.cmp", name), raw)
		if err != nil {
			return codec.Malformed(op, err, "%s at 0x%06X", name, a)
		}
		mapNames[a] = name
		maps = append(maps, h)
	}

	tab := &rooms.RoomTable{}
	for i, rec := range records {
		room, err := rooms.DecodeRoomParams(mapNames[mapPtrs[i]], rec[4:])
		if err != nil {
			return err
		}
		tab.Rooms = append(tab.Rooms, room)
	}
	doc, err := tab.Bytes()
	if err != nil {
		return err
	}
	th, err := g.AddRoomTable("RoomTable", "rooms/rooms.yaml", doc)
	if err != nil {
		return err
	}

	palData, err := readSpan(r, "room palettes", pal, exits)
	if err != nil {
		return err
	}
	size := palette.TypeRoom.SizeBytes()
	if len(palData)%size != 0 {
		return codec.Malformed(op, codec.ErrInconsistent, "%d bytes of room palettes", len(palData))
	}
	var pals []Handle[*palette.Palette]
	for i := 0; i*size < len(palData); i++ {
		name := fmt.Sprintf("RoomPal%02d", i)
		h, err := g.AddPalette(name, fmt.Sprintf("graphics/palettes/rooms/%s.pal", name), palData[i*size:(i+1)*size], palette.TypeRoom)
		if err != nil {
			return err
		}
		pals = append(pals, h)
	}

	warpData, err := readSpan(r, "room exits", exits, sec.End)
	if err != nil {
		return err
	}
	wh, err := g.AddRoomWarps("RoomWarps", "rooms/warps.bin", warpData)
	if err != nil {
		return err
	}
	log.Debug("rooms: %d rooms, %d maps, %d palettes", len(records), len(maps), len(pals))

	g.refresh = append(g.refresh, func(r *rom.Rom) error {
		sec, err := r.Section(roomDataSection)
		if err != nil {
			return err
		}
		tab, err := g.RoomTables.Get(th)
		if err != nil {
			return err
		}
		mapsBegin := sec.Begin + uint32(len(tab.Rooms)*rooms.RoomRecordSize)
		addrOf := make(map[string]uint32, len(maps))
		var mapData []byte
		for _, h := range maps {
			b, err := g.Maps3D.Bytes(h)
			if err != nil {
				return err
			}
			name, err := g.Maps3D.Name(h)
			if err != nil {
				return err
			}
			addrOf[name] = mapsBegin + uint32(len(mapData))
			mapData = padEven(append(mapData, b...), 0xFF)
		}
		packed, err := tab.Pack(func(name string) (uint32, bool) {
			a, ok := addrOf[name]
			return a, ok
		})
		if err != nil {
			return err
		}
		palData, err := g.Palettes.concat(pals)
		if err != nil {
			return err
		}
		warps, err := g.Warps.Bytes(wh)
		if err != nil {
			return err
		}
		palAddr := mapsBegin + uint32(len(mapData))
		exitsAddr := palAddr + uint32(len(palData))
		g.rooms.AddPendingWrite(roomDataSection, bytes.Join([][]byte{packed, mapData, palData, warps}, nil))
		g.rooms.AddPendingWrite(roomDataPtr, be32(sec.Begin))
		g.rooms.AddPendingWrite(roomPalPtr, be32(palAddr))
		g.rooms.AddPendingWrite(roomExitsPtr, be32(exitsAddr))
		return nil
	})
	return nil
}

func (g *GameData) loadChests(r *rom.Rom) error {
	leas := []string{chestOffsetsLea, chestContentLea}
	if missing(r, []string{chestSection}, leas) {
		return nil
	}
	targets, ok, err := leaTargets(r, leas...)
	if err != nil || !ok {
		return err
	}
	sec, err := r.Section(chestSection)
	if err != nil {
		return err
	}
	offsets, err := readSpan(r, "chest offsets", targets[0], targets[1])
	if err != nil {
		return err
	}
	contents, err := readSpan(r, "chest contents", targets[1], sec.End)
	if err != nil {
		return err
	}
	contents = bytes.TrimRight(contents, "\xff")
	count := len(offsets)
	h, err := g.AddChests("Chests", "rooms/chests.bin", append(offsets, contents...), count)
	if err != nil {
		return err
	}
	g.refresh = append(g.refresh, func(r *rom.Rom) error {
		c, err := g.Chests.Get(h)
		if err != nil {
			return err
		}
		offsets, contents, err := c.Bytes(count)
		if err != nil {
			return err
		}
		sec, err := r.Section(chestSection)
		if err != nil {
			return err
		}
		g.rooms.AddPendingWrite(chestSection, append(offsets, contents...))
		return g.addLeaWrites(r, g.rooms, map[string]uint32{
			chestOffsetsLea: sec.Begin,
			chestContentLea: sec.Begin + uint32(len(offsets)),
		})
	})
	return nil
}

func (g *GameData) loadDoors(r *rom.Rom) error {
	leas := []string{doorLookupLea, doorTableLea}
	if missing(r, []string{doorSection}, leas) {
		return nil
	}
	targets, ok, err := leaTargets(r, leas...)
	if err != nil || !ok {
		return err
	}
	sec, err := r.Section(doorSection)
	if err != nil {
		return err
	}
	offsets, err := readSpan(r, "door offsets", targets[0], targets[1])
	if err != nil {
		return err
	}
	data, err := readSpan(r, "doors", targets[1], sec.End)
	if err != nil {
		return err
	}
	count := len(offsets)
	h, err := g.AddDoors("Doors", "rooms/doors.bin", append(offsets, data...), count)
	if err != nil {
		return err
	}
	g.refresh = append(g.refresh, func(r *rom.Rom) error {
		d, err := g.Doors.Get(h)
		if err != nil {
			return err
		}
		offsets, data, err := d.Bytes(count)
		if err != nil {
			return err
		}
		sec, err := r.Section(doorSection)
		if err != nil {
			return err
		}
		g.rooms.AddPendingWrite(doorSection, append(offsets, data...))
		return g.addLeaWrites(r, g.rooms, map[string]uint32{
			doorLookupLea: sec.Begin,
			doorTableLea:  sec.Begin + uint32(len(offsets)),
		})
	})
	return nil
}

// loadGfxSwaps reads the swap, locked door and tree warp trigger lists and
// the tile swap table that follows them.
func (g *GameData) loadGfxSwaps(r *rom.Rom) error {
	leas := []string{gfxSwapFlagsLea, lockedDoorSwapLea, treeWarpSwapLea, tileSwapTableLea}
	if missing(r, []string{gfxSwapSection}, append(leas, lockedDoorSwapLea2)) {
		return nil
	}
	targets, ok, err := leaTargets(r, leas...)
	if err != nil || !ok {
		return err
	}
	sec, err := r.Section(gfxSwapSection)
	if err != nil {
		return err
	}
	bounds := append(targets, sec.End)
	parts := make([][]byte, len(leas))
	for i := range leas {
		if parts[i], err = readSpan(r, leas[i], bounds[i], bounds[i+1]); err != nil {
			return err
		}
	}
	flags, err := rooms.DecodeGfxSwapFlags(parts[0], parts[1], parts[2])
	if err != nil {
		return err
	}
	fh, err := g.AddGfxSwapFlags("GfxSwapFlags", "rooms/gfx_swap_flags.bin", flags.Bytes())
	if err != nil {
		return err
	}
	table := parts[3][:len(parts[3])/map3d.TileSwapSize*map3d.TileSwapSize]
	th, err := g.AddTileSwaps("TileSwaps", "rooms/tile_swaps.bin", table)
	if err != nil {
		return err
	}
	g.refresh = append(g.refresh, func(r *rom.Rom) error {
		flags, err := g.GfxSwapFlags.Get(fh)
		if err != nil {
			return err
		}
		table, err := g.TileSwaps.Bytes(th)
		if err != nil {
			return err
		}
		sec, err := r.Section(gfxSwapSection)
		if err != nil {
			return err
		}
		swaps, doors, trees := flags.Tables()
		doorsAddr := sec.Begin + uint32(len(swaps))
		treesAddr := doorsAddr + uint32(len(doors))
		tableAddr := treesAddr + uint32(len(trees))
		g.rooms.AddPendingWrite(gfxSwapSection, bytes.Join([][]byte{swaps, doors, trees, table}, nil))
		return g.addLeaWrites(r, g.rooms, map[string]uint32{
			gfxSwapFlagsLea:    sec.Begin,
			lockedDoorSwapLea:  doorsAddr,
			lockedDoorSwapLea2: doorsAddr,
			treeWarpSwapLea:    treesAddr,
			tileSwapTableLea:   tableAddr,
		})
	})
	return nil
}

func (g *GameData) loadDialogue(r *rom.Rom) error {
	if missing(r, []string{dialogueSection}, []string{dialogueTableLea}) {
		return nil
	}
	targets, ok, err := leaTargets(r, dialogueTableLea)
	if err != nil || !ok {
		return err
	}
	sec, err := r.Section(dialogueSection)
	if err != nil {
		return err
	}
	data, err := readSpan(r, "dialogue table", targets[0], sec.End)
	if err != nil {
		return err
	}
	h, err := g.AddDialogue("RoomDialogue", "strings/room_dialogue.bin", data[:len(data)&^1])
	if err != nil {
		return err
	}
	g.refresh = append(g.refresh, func(r *rom.Rom) error {
		b, err := g.Dialogue.Bytes(h)
		if err != nil {
			return err
		}
		sec, err := r.Section(dialogueSection)
		if err != nil {
			return err
		}
		g.strings.AddPendingWrite(dialogueSection, b)
		return g.addLeaWrites(r, g.strings, map[string]uint32{dialogueTableLea: sec.Begin})
	})
	return nil
}

// Room lists live in their own sections, each found through one or more lea
// instructions.
var roomLists = []struct {
	name       string
	section    string
	leas       []string
	flagMap    bool
	terminated bool
}{
	{"Shops", "ShopsSection", []string{"Shops", "ShopsLea"}, false, true},
	{"LifestockSoldFlags", "LifestockSoldFlagsSection", []string{"LifestockSoldFlags"}, true, false},
	{"BigTreeLocations", "BigTreeLocationsSection", []string{"BigTreeLocations"}, false, false},
	{"LightableRooms", "LightableRoomsSection", []string{"LightableRooms"}, true, false},
}

func (g *GameData) loadRoomLists(r *rom.Rom) error {
	for _, rl := range roomLists {
		if missing(r, []string{rl.section}, rl.leas) {
			continue
		}
		targets, ok, err := leaTargets(r, rl.leas[0])
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		sec, err := r.Section(rl.section)
		if err != nil {
			return err
		}
		data, err := readSpan(r, rl.name, targets[0], sec.End)
		if err != nil {
			return err
		}
		filename := fmt.Sprintf("rooms/%s.bin", rl.name)
		var encode func() ([]byte, error)
		if rl.flagMap {
			h, err := g.AddRoomFlagMap(rl.name, filename, data)
			if err != nil {
				return err
			}
			encode = func() ([]byte, error) { return g.RoomFlagMaps.Bytes(h) }
		} else {
			h, err := g.AddRoomSet(rl.name, filename, data[:len(data)&^1], rl.terminated)
			if err != nil {
				return err
			}
			encode = func() ([]byte, error) { return g.RoomSets.Bytes(h) }
		}
		rl := rl
		g.refresh = append(g.refresh, func(r *rom.Rom) error {
			b, err := encode()
			if err != nil {
				return err
			}
			sec, err := r.Section(rl.section)
			if err != nil {
				return err
			}
			g.rooms.AddPendingWrite(rl.section, b)
			targets := make(map[string]uint32, len(rl.leas))
			for _, lea := range rl.leas {
				targets[lea] = sec.Begin
			}
			return g.addLeaWrites(r, g.rooms, targets)
		})
	}
	return nil
}
