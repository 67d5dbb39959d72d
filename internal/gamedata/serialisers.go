package gamedata

import (
	"bytes"
	"reflect"

	"github.com/rcarmo/landstalker/internal/behaviours"
	"github.com/rcarmo/landstalker/internal/blockset"
	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/codec/huffman"
	"github.com/rcarmo/landstalker/internal/datamgr"
	"github.com/rcarmo/landstalker/internal/map3d"
	"github.com/rcarmo/landstalker/internal/palette"
	"github.com/rcarmo/landstalker/internal/rooms"
	"github.com/rcarmo/landstalker/internal/script"
	"github.com/rcarmo/landstalker/internal/sprite"
	"github.com/rcarmo/landstalker/internal/text"
	"github.com/rcarmo/landstalker/internal/tile"
	"github.com/rcarmo/landstalker/internal/tilemap"
	"github.com/rcarmo/landstalker/internal/tileset"
)

func paletteSerialiser(name string, typ palette.Type) datamgr.Serialiser[*palette.Palette] {
	return datamgr.Funcs[*palette.Palette]{
		EncodeFn: (*palette.Palette).Bytes,
		DecodeFn: func(b []byte) (*palette.Palette, error) { return palette.FromBytes(name, b, typ) },
		EqualFn:  (*palette.Palette).Equal,
	}
}

func tilesetSerialiser(compressed bool) datamgr.Serialiser[*tileset.Tileset] {
	return datamgr.Funcs[*tileset.Tileset]{
		EncodeFn: func(ts *tileset.Tileset) ([]byte, error) { return ts.Bits(compressed), nil },
		DecodeFn: func(b []byte) (*tileset.Tileset, error) {
			ts, _, err := tileset.Decode(b, compressed)
			return ts, err
		},
		EqualFn: (*tileset.Tileset).Equal,
	}
}

// fontSerialiser keeps uncompressed tiles of a fixed geometry.
func fontSerialiser(width, height, depth int) datamgr.Serialiser[*tileset.Tileset] {
	return datamgr.Funcs[*tileset.Tileset]{
		EncodeFn: func(ts *tileset.Tileset) ([]byte, error) { return ts.Bits(false), nil },
		DecodeFn: func(b []byte) (*tileset.Tileset, error) {
			ts, err := tileset.NewWithParams(width, height, depth, tileset.BlockNormal)
			if err != nil {
				return nil, err
			}
			if _, err := ts.SetBits(b, false); err != nil {
				return nil, err
			}
			return ts, nil
		},
		EqualFn: (*tileset.Tileset).Equal,
	}
}

// An animated tileset entry is its 6-byte header, the index of the tileset
// it animates and the raw frame tiles.
var animatedSerialiser = datamgr.Funcs[*tileset.Animated]{
	EncodeFn: func(a *tileset.Animated) ([]byte, error) {
		h, err := a.HeaderBytes()
		if err != nil {
			return nil, err
		}
		return append(append(h, a.BaseTileset), a.Bits(false)...), nil
	},
	DecodeFn: func(b []byte) (*tileset.Animated, error) {
		a, err := tileset.DecodeAnimatedHeader(b)
		if err != nil {
			return nil, err
		}
		if len(b) < tileset.AnimatedHeaderSize+1 {
			return nil, codec.Malformed("decode animated tileset", codec.ErrBufferUnderrun, "no base tileset")
		}
		a.BaseTileset = b[tileset.AnimatedHeaderSize]
		if _, err := a.SetBits(b[tileset.AnimatedHeaderSize+1:], false); err != nil {
			return nil, err
		}
		return a, nil
	},
	EqualFn: (*tileset.Animated).Equal,
}

var blocksetSerialiser = datamgr.Funcs[tile.Blockset]{
	EncodeFn: blockset.Encode,
	DecodeFn: func(b []byte) (tile.Blockset, error) {
		bs, _, err := blockset.Decode(b)
		return bs, err
	},
	EqualFn: tile.Blockset.Equal,
}

func tilemap2DSerialiser(width, height int, cmp tilemap.Compression, base int) datamgr.Serialiser[*tilemap.Tilemap2D] {
	return datamgr.Funcs[*tilemap.Tilemap2D]{
		EncodeFn: func(m *tilemap.Tilemap2D) ([]byte, error) { return m.Encode(cmp) },
		DecodeFn: func(b []byte) (*tilemap.Tilemap2D, error) {
			m, _, err := tilemap.Decode(b, width, height, cmp, base)
			return m, err
		},
		EqualFn: (*tilemap.Tilemap2D).Equal,
	}
}

var tilemap3DSerialiser = datamgr.Funcs[*map3d.Tilemap3D]{
	EncodeFn: (*map3d.Tilemap3D).Encode,
	DecodeFn: func(b []byte) (*map3d.Tilemap3D, error) {
		m, _, err := map3d.Decode(b)
		return m, err
	},
	EqualFn: (*map3d.Tilemap3D).Equal,
}

func stringSerialiser(ctx *text.Context, f text.Format) datamgr.Serialiser[*text.String] {
	return datamgr.Funcs[*text.String]{
		EncodeFn: ctx.Encode,
		DecodeFn: func(b []byte) (*text.String, error) {
			s, n, err := ctx.Decode(f, b)
			if err != nil {
				return nil, err
			}
			if n != len(b) {
				return nil, codec.Malformed("decode string", nil, "%d trailing bytes", len(b)-n)
			}
			return s, nil
		},
		EqualFn: (*text.String).Equal,
	}
}

// The Huffman entry holds the offset table, two bytes per character, and the
// tree data.
func huffmanSerialiser(numChars int) datamgr.Serialiser[*huffman.Trees] {
	return datamgr.Funcs[*huffman.Trees]{
		EncodeFn: func(t *huffman.Trees) ([]byte, error) {
			offsets, data, err := t.Encode()
			if err != nil {
				return nil, err
			}
			return append(offsets, data...), nil
		},
		DecodeFn: func(b []byte) (*huffman.Trees, error) {
			if len(b) < numChars*2 {
				return nil, codec.Malformed("decode huffman trees", codec.ErrBufferUnderrun, "%d bytes for %d characters", len(b), numChars)
			}
			return huffman.DecodeTrees(b[:numChars*2], b[numChars*2:], numChars)
		},
		EqualFn: func(a, b *huffman.Trees) bool {
			ao, ad, aerr := a.Encode()
			bo, bd, berr := b.Encode()
			return aerr == nil && berr == nil && bytes.Equal(ao, bo) && bytes.Equal(ad, bd)
		},
	}
}

var scriptSerialiser = datamgr.Funcs[*script.Script]{
	EncodeFn: (*script.Script).Bytes,
	DecodeFn: script.Decode,
	EqualFn:  (*script.Script).Equal,
}

var progressFlagsSerialiser = datamgr.Funcs[*script.ProgressFlags]{
	EncodeFn: (*script.ProgressFlags).Bytes,
	DecodeFn: script.DecodeProgressFlags,
	EqualFn:  (*script.ProgressFlags).Equal,
}

// The behaviour entry stores the offset table and the scripts back to back.
// Each offset byte is a script length, so the split point is the one count n
// where the first n bytes sum to the remaining length.
func splitBehaviours(b []byte) (offsets, table []byte, err error) {
	sum := 0
	for n := 0; n <= len(b); n++ {
		if sum == len(b)-n {
			return b[:n], b[n:], nil
		}
		if n == len(b) || sum > len(b)-n {
			break
		}
		sum += int(b[n])
	}
	return nil, nil, codec.Malformed("decode behaviours", codec.ErrInconsistent, "offsets do not match the script table")
}

func behavioursSerialiser(names func(behaviours.Table)) datamgr.Serialiser[behaviours.Table] {
	return datamgr.Funcs[behaviours.Table]{
		EncodeFn: func(t behaviours.Table) ([]byte, error) {
			offsets, table, err := behaviours.Pack(t)
			if err != nil {
				return nil, err
			}
			return append(offsets, table...), nil
		},
		DecodeFn: func(b []byte) (behaviours.Table, error) {
			offsets, table, err := splitBehaviours(b)
			if err != nil {
				return nil, err
			}
			t, err := behaviours.Unpack(offsets, table)
			if err != nil {
				return nil, err
			}
			names(t)
			return t, nil
		},
		EqualFn: func(a, b behaviours.Table) bool { return reflect.DeepEqual(a, b) },
	}
}

// splitTerminated returns the records of a table up to and including its
// terminator, and the bytes after it.
func splitTerminated(op string, b []byte, recSize, termSize int) (head, rest []byte, err error) {
	for i := 0; i+1 < len(b); i += recSize {
		if b[i] == 0xFF && b[i+1] == 0xFF {
			if i+termSize > len(b) {
				break
			}
			return b[:i+termSize], b[i+termSize:], nil
		}
	}
	return nil, nil, codec.Malformed(op, codec.ErrBufferUnderrun, "missing terminator")
}

// The misc warp entry holds the fall, climb and transition tables back to
// back, each closed by its own terminator.
var miscWarpSerialiser = datamgr.Funcs[*rooms.WarpList]{
	EncodeFn: func(wl *rooms.WarpList) ([]byte, error) {
		falls, err := wl.FallBytes()
		if err != nil {
			return nil, err
		}
		climbs, err := wl.ClimbBytes()
		if err != nil {
			return nil, err
		}
		transitions, err := wl.TransitionBytes()
		if err != nil {
			return nil, err
		}
		out := append(falls, climbs...)
		return append(out, transitions...), nil
	},
	DecodeFn: func(b []byte) (*rooms.WarpList, error) {
		falls, rest, err := splitTerminated("decode fall destinations", b, rooms.RouteSize, 2)
		if err != nil {
			return nil, err
		}
		climbs, transitions, err := splitTerminated("decode climb destinations", rest, rooms.RouteSize, 2)
		if err != nil {
			return nil, err
		}
		return rooms.DecodeWarpList([]byte{0xFF, 0xFF}, falls, climbs, transitions)
	},
	EqualFn: (*rooms.WarpList).Equal,
}

var spriteFrameSerialiser = datamgr.Funcs[*sprite.Frame]{
	EncodeFn: (*sprite.Frame).Bytes,
	DecodeFn: func(b []byte) (*sprite.Frame, error) {
		f, _, err := sprite.DecodeFrame(b)
		return f, err
	},
	EqualFn: (*sprite.Frame).Equal,
}

var spriteLayoutSerialiser = datamgr.Funcs[*sprite.Layout]{
	EncodeFn: (*sprite.Layout).Bytes,
	DecodeFn: sprite.DecodeLayout,
	EqualFn:  (*sprite.Layout).Equal,
}

// splitAt cuts a back to back entry into its fixed size head and the rest.
func splitAt(op string, b []byte, n int) (head, rest []byte, err error) {
	if n > len(b) {
		return nil, nil, codec.Malformed(op, codec.ErrBufferUnderrun, "%d bytes, head needs %d", len(b), n)
	}
	return b[:n], b[n:], nil
}

// The entity entry holds the per room offsets, one word per room, and the
// entity table.
func entitiesSerialiser(roomCount int) datamgr.Serialiser[*sprite.RoomEntities] {
	return datamgr.Funcs[*sprite.RoomEntities]{
		EncodeFn: func(re *sprite.RoomEntities) ([]byte, error) {
			offsets, table, err := re.Bytes(roomCount)
			if err != nil {
				return nil, err
			}
			return append(offsets, table...), nil
		},
		DecodeFn: func(b []byte) (*sprite.RoomEntities, error) {
			offsets, table, err := splitAt("decode entities", b, roomCount*2)
			if err != nil {
				return nil, err
			}
			return sprite.DecodeRoomEntities(offsets, table)
		},
		EqualFn: (*sprite.RoomEntities).Equal,
	}
}

var spriteFlagsSerialiser = datamgr.Funcs[*rooms.SpriteFlags]{
	EncodeFn: func(f *rooms.SpriteFlags) ([]byte, error) { return f.Bytes(), nil },
	DecodeFn: func(b []byte) (*rooms.SpriteFlags, error) {
		tables, err := rooms.SplitSpriteFlags(b)
		if err != nil {
			return nil, err
		}
		return rooms.DecodeSpriteFlags(tables)
	},
	EqualFn: (*rooms.SpriteFlags).Equal,
}

// rawSerialiser keeps tables that are only ever copied through.
var rawSerialiser = datamgr.Funcs[[]byte]{
	EncodeFn: func(b []byte) ([]byte, error) { return append([]byte(nil), b...), nil },
	DecodeFn: func(b []byte) ([]byte, error) { return append([]byte(nil), b...), nil },
	EqualFn:  bytes.Equal,
}

var roomTableSerialiser = datamgr.Funcs[*rooms.RoomTable]{
	EncodeFn: (*rooms.RoomTable).Bytes,
	DecodeFn: rooms.DecodeRoomTable,
	EqualFn:  (*rooms.RoomTable).Equal,
}

// The room warp entry is the warp table alone.
var roomWarpSerialiser = datamgr.Funcs[*rooms.WarpList]{
	EncodeFn: (*rooms.WarpList).WarpBytes,
	DecodeFn: func(b []byte) (*rooms.WarpList, error) {
		end := []byte{0xFF, 0xFF}
		return rooms.DecodeWarpList(b, end, end, []byte{0xFF, 0xFF, 0xFF, 0xFF})
	},
	EqualFn: (*rooms.WarpList).Equal,
}

// The chest entry holds one offset byte per room and the contents.
func chestsSerialiser(roomCount int) datamgr.Serialiser[*rooms.Chests] {
	return datamgr.Funcs[*rooms.Chests]{
		EncodeFn: func(c *rooms.Chests) ([]byte, error) {
			offsets, contents, err := c.Bytes(roomCount)
			if err != nil {
				return nil, err
			}
			return append(offsets, contents...), nil
		},
		DecodeFn: func(b []byte) (*rooms.Chests, error) {
			offsets, contents, err := splitAt("decode chests", b, roomCount)
			if err != nil {
				return nil, err
			}
			return rooms.DecodeChests(offsets, contents)
		},
		EqualFn: (*rooms.Chests).Equal,
	}
}

// The door entry holds one offset byte per room and the door records.
func doorsSerialiser(roomCount int) datamgr.Serialiser[*map3d.Doors] {
	return datamgr.Funcs[*map3d.Doors]{
		EncodeFn: func(d *map3d.Doors) ([]byte, error) {
			offsets, data, err := d.Bytes(roomCount)
			if err != nil {
				return nil, err
			}
			return append(offsets, data...), nil
		},
		DecodeFn: func(b []byte) (*map3d.Doors, error) {
			offsets, data, err := splitAt("decode doors", b, roomCount)
			if err != nil {
				return nil, err
			}
			return map3d.DecodeDoors(offsets, data)
		},
		EqualFn: (*map3d.Doors).Equal,
	}
}

var tileSwapsSerialiser = datamgr.Funcs[*map3d.TileSwaps]{
	EncodeFn: (*map3d.TileSwaps).Bytes,
	DecodeFn: map3d.DecodeTileSwaps,
	EqualFn:  (*map3d.TileSwaps).Equal,
}

var gfxSwapFlagsSerialiser = datamgr.Funcs[*rooms.GfxSwapFlags]{
	EncodeFn: func(f *rooms.GfxSwapFlags) ([]byte, error) { return f.Bytes(), nil },
	DecodeFn: rooms.DecodeGfxSwapFlagBytes,
	EqualFn:  (*rooms.GfxSwapFlags).Equal,
}

var dialogueSerialiser = datamgr.Funcs[*rooms.DialogueTable]{
	EncodeFn: (*rooms.DialogueTable).Bytes,
	DecodeFn: rooms.DecodeDialogueTable,
	EqualFn:  (*rooms.DialogueTable).Equal,
}

func roomSetSerialiser(terminated bool) datamgr.Serialiser[[]uint16] {
	return datamgr.Funcs[[]uint16]{
		EncodeFn: func(rs []uint16) ([]byte, error) { return rooms.EncodeRoomSet(rs, terminated), nil },
		DecodeFn: func(b []byte) ([]uint16, error) { return rooms.DecodeRoomSet(b, terminated) },
		EqualFn:  func(a, b []uint16) bool { return reflect.DeepEqual(a, b) },
	}
}

var roomFlagMapSerialiser = datamgr.Funcs[map[uint16]uint16]{
	EncodeFn: func(m map[uint16]uint16) ([]byte, error) { return rooms.EncodeRoomFlagMap(m), nil },
	DecodeFn: rooms.DecodeRoomFlagMap,
	EqualFn:  func(a, b map[uint16]uint16) bool { return reflect.DeepEqual(a, b) },
}
