// Package gamedata owns every decoded object of an editing session. Objects
// live in typed stores and are reached through handles; all edits go through
// the store so that change tracking stays accurate.
package gamedata

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/rcarmo/landstalker/internal/behaviours"
	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/codec/huffman"
	"github.com/rcarmo/landstalker/internal/datamgr"
	"github.com/rcarmo/landstalker/internal/labels"
	"github.com/rcarmo/landstalker/internal/logging"
	"github.com/rcarmo/landstalker/internal/map3d"
	"github.com/rcarmo/landstalker/internal/palette"
	"github.com/rcarmo/landstalker/internal/rom"
	"github.com/rcarmo/landstalker/internal/rooms"
	"github.com/rcarmo/landstalker/internal/script"
	"github.com/rcarmo/landstalker/internal/sprite"
	"github.com/rcarmo/landstalker/internal/text"
	"github.com/rcarmo/landstalker/internal/tile"
	"github.com/rcarmo/landstalker/internal/tilemap"
	"github.com/rcarmo/landstalker/internal/tileset"
)

var log = logging.For("gamedata")

// GameData is the arena of one editing session.
type GameData struct {
	labels *labels.Set
	text   *text.Context

	graphics *datamgr.Manager
	strings  *datamgr.Manager
	sprites  *datamgr.Manager
	scripts  *datamgr.Manager
	rooms    *datamgr.Manager

	Palettes         *Store[*palette.Palette]
	Tilesets         *Store[*tileset.Tileset]
	AnimatedTilesets *Store[*tileset.Animated]
	Blocksets        *Store[tile.Blockset]
	Maps2D           *Store[*tilemap.Tilemap2D]
	Maps3D           *Store[*map3d.Tilemap3D]
	Strings          *Store[*text.String]
	HuffmanTrees     *Store[*huffman.Trees]
	Behaviours       *Store[behaviours.Table]
	SpriteFrames     *Store[*sprite.Frame]
	SpriteLayouts    *Store[*sprite.Layout]
	Entities         *Store[*sprite.RoomEntities]
	SpriteFlags      *Store[*rooms.SpriteFlags]
	SpriteTables     *Store[[]byte]
	Scripts          *Store[*script.Script]
	ProgressFlags    *Store[*script.ProgressFlags]
	RoomTables       *Store[*rooms.RoomTable]
	Warps            *Store[*rooms.WarpList]
	Chests           *Store[*rooms.Chests]
	Doors            *Store[*map3d.Doors]
	TileSwaps        *Store[*map3d.TileSwaps]
	GfxSwapFlags     *Store[*rooms.GfxSwapFlags]
	Dialogue         *Store[*rooms.DialogueTable]
	RoomSets         *Store[[]uint16]
	RoomFlagMaps     *Store[map[uint16]uint16]

	// refresh rebuilds the pending writes of everything loaded from a ROM.
	refresh []func(r *rom.Rom) error
}

// New returns an empty arena. A nil label set means the built in labels.
func New(l *labels.Set) *GameData {
	if l == nil {
		l = labels.Default()
	}
	g := &GameData{
		labels:   l,
		text:     text.DefaultContext(),
		graphics: datamgr.NewManager("Graphics"),
		strings:  datamgr.NewManager("Strings"),
		sprites:  datamgr.NewManager("Sprites"),
		scripts:  datamgr.NewManager("Scripts"),
		rooms:    datamgr.NewManager("Rooms"),
	}
	g.Palettes = newStore[*palette.Palette]("palette", g.graphics)
	g.Tilesets = newStore[*tileset.Tileset]("tileset", g.graphics)
	g.AnimatedTilesets = newStore[*tileset.Animated]("animated tileset", g.graphics)
	g.Blocksets = newStore[tile.Blockset]("blockset", g.graphics)
	g.Maps2D = newStore[*tilemap.Tilemap2D]("tilemap", g.graphics)
	g.Maps3D = newStore[*map3d.Tilemap3D]("room map", g.rooms)
	g.Strings = newStore[*text.String]("string", g.strings)
	g.HuffmanTrees = newStore[*huffman.Trees]("huffman trees", g.strings)
	g.Behaviours = newStore[behaviours.Table]("behaviours", g.sprites)
	g.SpriteFrames = newStore[*sprite.Frame]("sprite frame", g.sprites)
	g.SpriteLayouts = newStore[*sprite.Layout]("sprite layout", g.sprites)
	g.Entities = newStore[*sprite.RoomEntities]("room entities", g.sprites)
	g.SpriteFlags = newStore[*rooms.SpriteFlags]("sprite flags", g.sprites)
	g.SpriteTables = newStore[[]byte]("sprite table", g.sprites)
	g.Scripts = newStore[*script.Script]("script", g.scripts)
	g.ProgressFlags = newStore[*script.ProgressFlags]("progress flags", g.scripts)
	g.RoomTables = newStore[*rooms.RoomTable]("room table", g.rooms)
	g.Warps = newStore[*rooms.WarpList]("warps", g.rooms)
	g.Chests = newStore[*rooms.Chests]("chests", g.rooms)
	g.Doors = newStore[*map3d.Doors]("doors", g.rooms)
	g.TileSwaps = newStore[*map3d.TileSwaps]("tile swaps", g.rooms)
	g.GfxSwapFlags = newStore[*rooms.GfxSwapFlags]("gfx swap flags", g.rooms)
	g.Dialogue = newStore[*rooms.DialogueTable]("dialogue table", g.strings)
	g.RoomSets = newStore[[]uint16]("room list", g.rooms)
	g.RoomFlagMaps = newStore[map[uint16]uint16]("room flags", g.rooms)
	return g
}

// Labels returns the label set names are resolved with.
func (g *GameData) Labels() *labels.Set {
	return g.labels
}

// Managers lists the managers in write order.
func (g *GameData) Managers() []*datamgr.Manager {
	return []*datamgr.Manager{g.graphics, g.strings, g.sprites, g.scripts, g.rooms}
}

// AddPalette decodes a palette of a given type.
func (g *GameData) AddPalette(name, filename string, raw []byte, typ palette.Type) (Handle[*palette.Palette], error) {
	return g.Palettes.Add(datamgr.NewEntry(name, filename, raw, paletteSerialiser(name, typ)))
}

// AddTileset decodes a tileset, LZ77 compressed or raw.
func (g *GameData) AddTileset(name, filename string, raw []byte, compressed bool) (Handle[*tileset.Tileset], error) {
	return g.Tilesets.Add(datamgr.NewEntry(name, filename, raw, tilesetSerialiser(compressed)))
}

// AddBlockset decodes a compressed blockset.
func (g *GameData) AddBlockset(name, filename string, raw []byte) (Handle[tile.Blockset], error) {
	return g.Blocksets.Add(datamgr.NewEntry[tile.Blockset](name, filename, raw, blocksetSerialiser))
}

// AddTilemap2D decodes a 2D tilemap stored with cmp.
func (g *GameData) AddTilemap2D(name, filename string, raw []byte, width, height int, cmp tilemap.Compression, base int) (Handle[*tilemap.Tilemap2D], error) {
	return g.Maps2D.Add(datamgr.NewEntry(name, filename, raw, tilemap2DSerialiser(width, height, cmp, base)))
}

// AddTilemap3D decodes a compressed room map.
func (g *GameData) AddTilemap3D(name, filename string, raw []byte) (Handle[*map3d.Tilemap3D], error) {
	return g.Maps3D.Add(datamgr.NewEntry[*map3d.Tilemap3D](name, filename, raw, tilemap3DSerialiser))
}

// AddString decodes a single string record.
func (g *GameData) AddString(name, filename string, raw []byte, f text.Format) (Handle[*text.String], error) {
	return g.Strings.Add(datamgr.NewEntry(name, filename, raw, stringSerialiser(g.text, f)))
}

// AddBehaviours decodes an offset table and script table stored back to back.
func (g *GameData) AddBehaviours(name, filename string, raw []byte) (Handle[behaviours.Table], error) {
	return g.Behaviours.Add(datamgr.NewEntry(name, filename, raw, behavioursSerialiser(g.nameBehaviours)))
}

// AddScript decodes a character script table.
func (g *GameData) AddScript(name, filename string, raw []byte) (Handle[*script.Script], error) {
	return g.Scripts.Add(datamgr.NewEntry[*script.Script](name, filename, raw, scriptSerialiser))
}

// AddProgressFlags decodes a quest progress table.
func (g *GameData) AddProgressFlags(name, filename string, raw []byte) (Handle[*script.ProgressFlags], error) {
	return g.ProgressFlags.Add(datamgr.NewEntry[*script.ProgressFlags](name, filename, raw, progressFlagsSerialiser))
}

// AddWarps decodes the fall, climb and transition tables stored back to back.
func (g *GameData) AddWarps(name, filename string, raw []byte) (Handle[*rooms.WarpList], error) {
	return g.Warps.Add(datamgr.NewEntry[*rooms.WarpList](name, filename, raw, miscWarpSerialiser))
}

// AddFont decodes uncompressed tiles of the given geometry.
func (g *GameData) AddFont(name, filename string, raw []byte, width, height, depth int) (Handle[*tileset.Tileset], error) {
	return g.Tilesets.Add(datamgr.NewEntry(name, filename, raw, fontSerialiser(width, height, depth)))
}

// AddAnimatedTileset decodes an animation header, base tileset index and
// frame tiles.
func (g *GameData) AddAnimatedTileset(name, filename string, raw []byte) (Handle[*tileset.Animated], error) {
	return g.AnimatedTilesets.Add(datamgr.NewEntry[*tileset.Animated](name, filename, raw, animatedSerialiser))
}

// AddHuffmanTrees decodes the offset table and tree data of numChars
// characters. The trees become the ones strings are compressed with.
func (g *GameData) AddHuffmanTrees(name, filename string, raw []byte, numChars int) (Handle[*huffman.Trees], error) {
	h, err := g.HuffmanTrees.Add(datamgr.NewEntry(name, filename, raw, huffmanSerialiser(numChars)))
	if err != nil {
		return h, err
	}
	trees, err := g.HuffmanTrees.Get(h)
	if err != nil {
		return h, err
	}
	g.text.Trees = trees
	return h, nil
}

// AddSpriteFrame decodes one sprite frame.
func (g *GameData) AddSpriteFrame(name, filename string, raw []byte) (Handle[*sprite.Frame], error) {
	return g.SpriteFrames.Add(datamgr.NewEntry[*sprite.Frame](name, filename, raw, spriteFrameSerialiser))
}

// AddSpriteLayout decodes a sprite layout document.
func (g *GameData) AddSpriteLayout(name, filename string, raw []byte) (Handle[*sprite.Layout], error) {
	return g.SpriteLayouts.Add(datamgr.NewEntry[*sprite.Layout](name, filename, raw, spriteLayoutSerialiser))
}

// AddEntities decodes roomCount entity offsets followed by the entity table.
func (g *GameData) AddEntities(name, filename string, raw []byte, roomCount int) (Handle[*sprite.RoomEntities], error) {
	return g.Entities.Add(datamgr.NewEntry(name, filename, raw, entitiesSerialiser(roomCount)))
}

// AddSpriteFlags decodes the six sprite flag lists stored back to back.
func (g *GameData) AddSpriteFlags(name, filename string, raw []byte) (Handle[*rooms.SpriteFlags], error) {
	return g.SpriteFlags.Add(datamgr.NewEntry[*rooms.SpriteFlags](name, filename, raw, spriteFlagsSerialiser))
}

// AddSpriteTable keeps a sprite table as raw bytes.
func (g *GameData) AddSpriteTable(name, filename string, raw []byte) (Handle[[]byte], error) {
	return g.SpriteTables.Add(datamgr.NewEntry[[]byte](name, filename, raw, rawSerialiser))
}

// AddRoomTable decodes a room table document.
func (g *GameData) AddRoomTable(name, filename string, raw []byte) (Handle[*rooms.RoomTable], error) {
	return g.RoomTables.Add(datamgr.NewEntry[*rooms.RoomTable](name, filename, raw, roomTableSerialiser))
}

// AddRoomWarps decodes the room exit table.
func (g *GameData) AddRoomWarps(name, filename string, raw []byte) (Handle[*rooms.WarpList], error) {
	return g.Warps.Add(datamgr.NewEntry[*rooms.WarpList](name, filename, raw, roomWarpSerialiser))
}

// AddChests decodes roomCount chest offsets followed by the contents.
func (g *GameData) AddChests(name, filename string, raw []byte, roomCount int) (Handle[*rooms.Chests], error) {
	return g.Chests.Add(datamgr.NewEntry(name, filename, raw, chestsSerialiser(roomCount)))
}

// AddDoors decodes roomCount door offsets followed by the door records.
func (g *GameData) AddDoors(name, filename string, raw []byte, roomCount int) (Handle[*map3d.Doors], error) {
	return g.Doors.Add(datamgr.NewEntry(name, filename, raw, doorsSerialiser(roomCount)))
}

// AddTileSwaps decodes a tile swap table.
func (g *GameData) AddTileSwaps(name, filename string, raw []byte) (Handle[*map3d.TileSwaps], error) {
	return g.TileSwaps.Add(datamgr.NewEntry[*map3d.TileSwaps](name, filename, raw, tileSwapsSerialiser))
}

// AddGfxSwapFlags decodes the three tile swap trigger lists.
func (g *GameData) AddGfxSwapFlags(name, filename string, raw []byte) (Handle[*rooms.GfxSwapFlags], error) {
	return g.GfxSwapFlags.Add(datamgr.NewEntry[*rooms.GfxSwapFlags](name, filename, raw, gfxSwapFlagsSerialiser))
}

// AddDialogue decodes a room character table.
func (g *GameData) AddDialogue(name, filename string, raw []byte) (Handle[*rooms.DialogueTable], error) {
	return g.Dialogue.Add(datamgr.NewEntry[*rooms.DialogueTable](name, filename, raw, dialogueSerialiser))
}

// AddRoomSet decodes a list of rooms.
func (g *GameData) AddRoomSet(name, filename string, raw []byte, terminated bool) (Handle[[]uint16], error) {
	return g.RoomSets.Add(datamgr.NewEntry(name, filename, raw, roomSetSerialiser(terminated)))
}

// AddRoomFlagMap decodes a room to flag table.
func (g *GameData) AddRoomFlagMap(name, filename string, raw []byte) (Handle[map[uint16]uint16], error) {
	return g.RoomFlagMaps.Add(datamgr.NewEntry[map[uint16]uint16](name, filename, raw, roomFlagMapSerialiser))
}

func (g *GameData) nameBehaviours(t behaviours.Table) {
	for id, b := range t {
		if name, ok := g.labels.Get(labels.Behaviours, id); ok {
			b.Name = name
			t[id] = b
		}
	}
}

// rawStore reaches the entries of any Store by name, as bytes.
type rawStore interface {
	Kind() string
	Names() []string
	bytesOf(name string) ([]byte, error)
	setBytesOf(name string, b []byte) error
}

func (g *GameData) stores() []rawStore {
	return []rawStore{
		g.Palettes, g.Tilesets, g.AnimatedTilesets, g.Blocksets, g.Maps2D, g.Maps3D,
		g.Strings, g.HuffmanTrees, g.Behaviours, g.SpriteFrames, g.SpriteLayouts,
		g.Entities, g.SpriteFlags, g.SpriteTables, g.Scripts, g.ProgressFlags,
		g.RoomTables, g.Warps, g.Chests, g.Doors, g.TileSwaps, g.GfxSwapFlags,
		g.Dialogue, g.RoomSets, g.RoomFlagMaps,
	}
}

func (g *GameData) store(kind string) (rawStore, error) {
	for _, s := range g.stores() {
		if s.Kind() == kind {
			return s, nil
		}
	}
	return nil, codec.Config("game data", ErrNoEntry, "unknown kind %q", kind)
}

// Entries lists the entry names of every kind of data that holds any.
func (g *GameData) Entries() map[string][]string {
	out := make(map[string][]string)
	for _, s := range g.stores() {
		if names := s.Names(); len(names) > 0 {
			out[s.Kind()] = names
		}
	}
	return out
}

// EntryBytes returns the encoded working copy of the named entry.
func (g *GameData) EntryBytes(kind, name string) ([]byte, error) {
	s, err := g.store(kind)
	if err != nil {
		return nil, err
	}
	return s.bytesOf(name)
}

// SetEntryBytes decodes b into the named entry's working copy. The change
// reaches a ROM on the next InjectIntoRom.
func (g *GameData) SetEntryBytes(kind, name string, b []byte) error {
	s, err := g.store(kind)
	if err != nil {
		return err
	}
	return s.setBytesOf(name, b)
}

// Import reads back the files Save wrote under dir and returns how many
// entries changed. Files that are missing leave their entry alone.
func (g *GameData) Import(dir string) (int, error) {
	total := 0
	for _, m := range g.Managers() {
		n, err := m.Import(dir)
		total += n
		if err != nil {
			return total, errors.Wrap(err, m.Description())
		}
	}
	log.Info("imported %d changed entries from %s", total, dir)
	return total, nil
}

// HasBeenModified reports whether anything has uncommitted edits.
func (g *GameData) HasBeenModified() bool {
	for _, m := range g.Managers() {
		if m.HasBeenModified() {
			return true
		}
	}
	return false
}

// RefreshPendingWrites rebuilds the writes needed to put everything loaded
// from a ROM back into r.
func (g *GameData) RefreshPendingWrites(r *rom.Rom) error {
	for _, m := range g.Managers() {
		m.ClearPendingWrites()
	}
	for _, fn := range g.refresh {
		if err := fn(r); err != nil {
			return err
		}
	}
	return nil
}

// WillFitInRom reports whether every pending write fits its section.
func (g *GameData) WillFitInRom(r *rom.Rom) (bool, error) {
	for _, m := range g.Managers() {
		ok, err := m.WillFitInRom(r)
		if err != nil || !ok {
			return ok, err
		}
	}
	return true, nil
}

// InjectIntoRom writes every edit into r and fixes its checksum. Nothing is
// written unless every manager's writes fit.
func (g *GameData) InjectIntoRom(r *rom.Rom) error {
	if err := g.RefreshPendingWrites(r); err != nil {
		return err
	}
	ok, err := g.WillFitInRom(r)
	if err != nil {
		return err
	}
	if !ok {
		g.AbandonRomInjection()
		return codec.Capacity("inject", codec.ErrBufferOverrun, "edited data does not fit in the ROM")
	}
	for _, m := range g.Managers() {
		if err := m.InjectIntoRom(r); err != nil {
			return errors.Wrap(err, m.Description())
		}
	}
	sum := r.FixChecksum()
	log.Info("injected edits, checksum now 0x%04X", sum)
	return nil
}

// AbandonRomInjection drops every pending write.
func (g *GameData) AbandonRomInjection() {
	for _, m := range g.Managers() {
		m.AbandonRomInjection()
	}
}

// Save writes every entry as a file under dir.
func (g *GameData) Save(dir string) error {
	for _, m := range g.Managers() {
		if err := m.Save(dir); err != nil {
			return errors.Wrap(err, m.Description())
		}
	}
	return nil
}

// Summary lists how many entries each store holds.
func (g *GameData) Summary() []string {
	counts := []struct {
		what string
		n    int
	}{
		{"palettes", g.Palettes.Len()},
		{"tilesets", g.Tilesets.Len()},
		{"anim tilesets", g.AnimatedTilesets.Len()},
		{"blocksets", g.Blocksets.Len()},
		{"tilemaps", g.Maps2D.Len()},
		{"room maps", g.Maps3D.Len()},
		{"strings", g.Strings.Len()},
		{"huffman trees", g.HuffmanTrees.Len()},
		{"behaviours", g.Behaviours.Len()},
		{"sprite frames", g.SpriteFrames.Len()},
		{"sprite layouts", g.SpriteLayouts.Len()},
		{"entities", g.Entities.Len()},
		{"sprite flags", g.SpriteFlags.Len()},
		{"sprite tables", g.SpriteTables.Len()},
		{"scripts", g.Scripts.Len()},
		{"progress flags", g.ProgressFlags.Len()},
		{"room tables", g.RoomTables.Len()},
		{"warps", g.Warps.Len()},
		{"chests", g.Chests.Len()},
		{"doors", g.Doors.Len()},
		{"tile swaps", g.TileSwaps.Len()},
		{"gfx swap flags", g.GfxSwapFlags.Len()},
		{"dialogue", g.Dialogue.Len()},
		{"room lists", g.RoomSets.Len()},
		{"room flags", g.RoomFlagMaps.Len()},
	}
	out := make([]string, len(counts))
	for i, c := range counts {
		out[i] = fmt.Sprintf("%-16s%d", c.what, c.n)
	}
	return out
}
