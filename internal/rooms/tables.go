package rooms

import (
	"reflect"

	"github.com/rcarmo/landstalker/internal/codec"
)

// splitList cuts one EncodeFlags list off the front of b: records of size
// bytes up to a 0xFF at a record boundary, then the terminator padded to an
// even length.
func splitList(op string, b []byte, size int) (list, rest []byte, err error) {
	for i := 0; i < len(b); i += size {
		if b[i] != listTerminator {
			continue
		}
		end := i + 1
		if end%2 == 1 {
			end++
		}
		if end > len(b) {
			break
		}
		return b[:end], b[end:], nil
	}
	return nil, nil, codec.Malformed(op, codec.ErrBufferUnderrun, "missing terminator")
}

// SpriteFlags gathers the entity related flag lists of the sprite data
// section, in their stored order.
type SpriteFlags struct {
	Visibility    []EntityFlag
	OneTimeEvents []OneTimeEventFlag
	RoomClear     []RoomClearFlag
	LockedDoors   []RoomClearFlag
	Switches      []RoomClearFlag
	SacredTrees   []SacredTreeFlag
}

// SpriteFlagTables is the number of lists in SpriteFlags.
const SpriteFlagTables = 6

var spriteFlagSizes = [SpriteFlagTables]int{
	EntityFlagSize, OneTimeEventFlagSize, RoomClearFlagSize,
	RoomClearFlagSize, RoomClearFlagSize, SacredTreeFlagSize,
}

// DecodeSpriteFlags reads the six lists from their separate tables.
func DecodeSpriteFlags(tables [][]byte) (*SpriteFlags, error) {
	if len(tables) != SpriteFlagTables {
		return nil, codec.Malformed("decode sprite flags", codec.ErrBadParameter, "%d tables", len(tables))
	}
	f := &SpriteFlags{}
	var err error
	if f.Visibility, err = DecodeEntityFlags(tables[0]); err != nil {
		return nil, err
	}
	if f.OneTimeEvents, err = DecodeOneTimeEventFlags(tables[1]); err != nil {
		return nil, err
	}
	if f.RoomClear, err = DecodeRoomClearFlags(tables[2]); err != nil {
		return nil, err
	}
	if f.LockedDoors, err = DecodeRoomClearFlags(tables[3]); err != nil {
		return nil, err
	}
	if f.Switches, err = DecodeRoomClearFlags(tables[4]); err != nil {
		return nil, err
	}
	if f.SacredTrees, err = DecodeSacredTreeFlags(tables[5]); err != nil {
		return nil, err
	}
	return f, nil
}

// SplitSpriteFlags cuts the output of Bytes back into its six tables.
func SplitSpriteFlags(b []byte) ([][]byte, error) {
	out := make([][]byte, 0, SpriteFlagTables)
	for i, size := range spriteFlagSizes {
		list, rest, err := splitList("split sprite flags", b, size)
		if err != nil {
			return nil, codec.Malformed("split sprite flags", err, "table %d", i)
		}
		out = append(out, list)
		b = rest
	}
	return out, nil
}

// Tables encodes each list.
func (f *SpriteFlags) Tables() [][]byte {
	return [][]byte{
		EncodeFlags(f.Visibility),
		EncodeFlags(f.OneTimeEvents),
		EncodeFlags(f.RoomClear),
		EncodeFlags(f.LockedDoors),
		EncodeFlags(f.Switches),
		EncodeFlags(f.SacredTrees),
	}
}

// Bytes encodes the lists back to back.
func (f *SpriteFlags) Bytes() []byte {
	var out []byte
	for _, t := range f.Tables() {
		out = append(out, t...)
	}
	return out
}

// Equal compares every list.
func (f *SpriteFlags) Equal(o *SpriteFlags) bool {
	return reflect.DeepEqual(f.Tables(), o.Tables())
}

// GfxSwapFlags holds the three trigger lists that sit in front of the tile
// swap table: flag driven swaps, locked door swaps and tree warps.
type GfxSwapFlags struct {
	Swaps       map[uint16][]TileSwapFlag
	LockedDoors map[uint16][]TileSwapFlag
	TreeWarps   []TreeWarpFlag
}

// DecodeGfxSwapFlags reads the three lists from their separate tables.
func DecodeGfxSwapFlags(swaps, doors, trees []byte) (*GfxSwapFlags, error) {
	f := &GfxSwapFlags{}
	var err error
	if f.Swaps, err = DecodeTileSwapFlags(swaps); err != nil {
		return nil, err
	}
	if f.LockedDoors, err = DecodeTileSwapFlags(doors); err != nil {
		return nil, err
	}
	if f.TreeWarps, err = DecodeTreeWarpFlags(trees); err != nil {
		return nil, err
	}
	return f, nil
}

// Tables encodes the swap, locked door and tree warp lists.
func (f *GfxSwapFlags) Tables() (swaps, doors, trees []byte) {
	return EncodeTileSwapFlags(f.Swaps), EncodeTileSwapFlags(f.LockedDoors), EncodeFlags(f.TreeWarps)
}

// Bytes encodes the lists back to back.
func (f *GfxSwapFlags) Bytes() []byte {
	swaps, doors, trees := f.Tables()
	return append(append(swaps, doors...), trees...)
}

// DecodeGfxSwapFlagBytes is the inverse of Bytes.
func DecodeGfxSwapFlagBytes(b []byte) (*GfxSwapFlags, error) {
	const op = "split gfx swap flags"
	swaps, rest, err := splitList(op, b, TileSwapFlagSize)
	if err != nil {
		return nil, err
	}
	doors, trees, err := splitList(op, rest, TileSwapFlagSize)
	if err != nil {
		return nil, err
	}
	return DecodeGfxSwapFlags(swaps, doors, trees)
}

// Equal compares every list.
func (f *GfxSwapFlags) Equal(o *GfxSwapFlags) bool {
	return reflect.DeepEqual(f.Bytes(), o.Bytes())
}
