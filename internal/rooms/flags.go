// Package rooms holds the per room tables that sit beside the maps: event
// flags, chest contents, warps and transitions, and the characters that can
// talk in each room.
package rooms

import (
	"sort"

	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/logging"
)

var log = logging.For("rooms")

// Record sizes of the fixed width flag lists.
const (
	EntityFlagSize       = 4
	OneTimeEventFlagSize = 6
	RoomClearFlagSize    = 4
	SacredTreeFlagSize   = 4
	TileSwapFlagSize     = 4
	TreeWarpFlagSize     = 8
)

const listTerminator = 0xFF

// Flag is a fixed size record attached to one or more rooms.
type Flag interface {
	InRoom(room uint16) bool
	Bytes() []byte
}

// EntityFlag shows or hides an entity depending on a game flag.
//
//	RRRRRRRR RRRRRRRR SFFFFFFF FFFEEEEE
type EntityFlag struct {
	Room   uint16
	Entity uint8
	Flag   uint16
	Set    bool
}

// DecodeEntityFlag unpacks a four byte record.
func DecodeEntityFlag(b []byte) EntityFlag {
	return EntityFlag{
		Room:   uint16(b[0])<<8 | uint16(b[1]),
		Entity: b[3] & 0x1F,
		Flag:   uint16(b[2]&0x7F)<<3 | uint16(b[3]>>5),
		Set:    b[2]&0x80 != 0,
	}
}

func (f EntityFlag) InRoom(room uint16) bool { return f.Room == room }

func (f EntityFlag) Bytes() []byte {
	return []byte{
		byte(f.Room >> 8), byte(f.Room),
		byte(f.Flag>>3)&0x7F | setBit(f.Set),
		f.Entity&0x1F | byte(f.Flag&0x07)<<5,
	}
}

// OneTimeEventFlag shows an entity while one flag is in a given state and
// another is not.
type OneTimeEventFlag struct {
	Room       uint16
	Entity     uint8
	FlagOn     uint16
	FlagOnSet  bool
	FlagOff    uint16
	FlagOffSet bool
}

// DecodeOneTimeEventFlag unpacks a six byte record.
func DecodeOneTimeEventFlag(b []byte) OneTimeEventFlag {
	return OneTimeEventFlag{
		Room:       uint16(b[0])<<8 | uint16(b[1]),
		Entity:     b[3] & 0x1F,
		FlagOn:     uint16(b[2]&0x7F)<<3 | uint16(b[3]>>5),
		FlagOnSet:  b[2]&0x80 != 0,
		FlagOff:    uint16(b[4]&0x7F)<<3 | uint16(b[5]&0x07),
		FlagOffSet: b[4]&0x80 != 0,
	}
}

func (f OneTimeEventFlag) InRoom(room uint16) bool { return f.Room == room }

func (f OneTimeEventFlag) Bytes() []byte {
	return []byte{
		byte(f.Room >> 8), byte(f.Room),
		byte(f.FlagOn>>3)&0x7F | setBit(f.FlagOnSet),
		f.Entity&0x1F | byte(f.FlagOn&0x07)<<5,
		byte(f.FlagOff>>3)&0x7F | setBit(f.FlagOffSet),
		byte(f.FlagOff & 0x07),
	}
}

// RoomClearFlag is set once an entity in the room is defeated. The same
// layout serves locked doors and permanent switches.
type RoomClearFlag struct {
	Room   uint16
	Entity uint8
	Flag   uint16
}

// DecodeRoomClearFlag unpacks a four byte record.
func DecodeRoomClearFlag(b []byte) RoomClearFlag {
	return RoomClearFlag{
		Room:   uint16(b[0])<<8 | uint16(b[1]),
		Entity: b[3] & 0x1F,
		Flag:   uint16(b[2])<<3 | uint16(b[3]>>5),
	}
}

func (f RoomClearFlag) InRoom(room uint16) bool { return f.Room == room }

func (f RoomClearFlag) Bytes() []byte {
	return []byte{
		byte(f.Room >> 8), byte(f.Room),
		byte(f.Flag >> 3),
		f.Entity&0x1F | byte(f.Flag&0x07)<<5,
	}
}

// SacredTreeFlag ties a sacred tree in a room to a flag.
type SacredTreeFlag struct {
	Room uint16
	Flag uint16
}

// DecodeSacredTreeFlag unpacks a four byte record.
func DecodeSacredTreeFlag(b []byte) SacredTreeFlag {
	return SacredTreeFlag{
		Room: uint16(b[0])<<8 | uint16(b[1]),
		Flag: uint16(b[2])<<3 | uint16(b[3]&0x07),
	}
}

func (f SacredTreeFlag) InRoom(room uint16) bool { return f.Room == room }

func (f SacredTreeFlag) Bytes() []byte {
	return []byte{byte(f.Room >> 8), byte(f.Room), byte(f.Flag >> 3), byte(f.Flag & 0x07)}
}

// TileSwapFlag triggers the Index'th tile swap of a room when Flag is set,
// or on entry when Always is set.
type TileSwapFlag struct {
	Room   uint16
	Index  uint8
	Flag   uint16
	Always bool
}

// DecodeTileSwapFlag unpacks a four byte record. A flag byte of 0xFF marks
// an unconditional swap.
func DecodeTileSwapFlag(b []byte) TileSwapFlag {
	f := TileSwapFlag{
		Room:   uint16(b[0])<<8 | uint16(b[1]),
		Index:  b[3] >> 3,
		Always: b[2] == 0xFF,
	}
	if !f.Always {
		f.Flag = uint16(b[2])<<3 | uint16(b[3]&0x07)
	}
	return f
}

func (f TileSwapFlag) InRoom(room uint16) bool { return f.Room == room }

func (f TileSwapFlag) Bytes() []byte {
	b := []byte{byte(f.Room >> 8), byte(f.Room), 0xFF, f.Index << 3}
	if !f.Always {
		b[2] = byte(f.Flag >> 3)
		b[3] |= byte(f.Flag & 0x07)
	}
	return b
}

// TreeWarpFlag links two sacred tree rooms. The flag is stored twice; the
// low bit of the flag is never used.
type TreeWarpFlag struct {
	Room1 uint16
	Room2 uint16
	Flag  uint16
}

// DecodeTreeWarpFlag unpacks an eight byte record.
func DecodeTreeWarpFlag(b []byte) (TreeWarpFlag, error) {
	if b[2] != b[6] || b[3] != b[7] {
		return TreeWarpFlag{}, codec.Malformed("tree warp flag", codec.ErrInconsistent, "flag copies differ: %02X%02X vs %02X%02X", b[2], b[3], b[6], b[7])
	}
	return TreeWarpFlag{
		Room1: uint16(b[0])<<8 | uint16(b[1]),
		Room2: uint16(b[4])<<8 | uint16(b[5]),
		Flag:  uint16(b[2])<<3 | uint16(b[3]&0x06),
	}, nil
}

func (f TreeWarpFlag) InRoom(room uint16) bool { return f.Room1 == room || f.Room2 == room }

func (f TreeWarpFlag) Bytes() []byte {
	hi, lo := byte(f.Flag>>3), byte(f.Flag&0x06)
	return []byte{byte(f.Room1 >> 8), byte(f.Room1), hi, lo, byte(f.Room2 >> 8), byte(f.Room2), hi, lo}
}

// Equal ignores the order of the two rooms.
func (f TreeWarpFlag) Equal(o TreeWarpFlag) bool {
	if f.Flag != o.Flag {
		return false
	}
	return (f.Room1 == o.Room1 && f.Room2 == o.Room2) || (f.Room1 == o.Room2 && f.Room2 == o.Room1)
}

func setBit(set bool) byte {
	if set {
		return 0x80
	}
	return 0
}

// decodeList reads fixed size records until one starts with 0xFF or the
// data runs out.
func decodeList[T any](op string, data []byte, size int, decode func([]byte) (T, error)) ([]T, error) {
	var out []T
	for i := 0; i < len(data) && data[i] != listTerminator; i += size {
		if i+size > len(data) {
			return nil, codec.Malformed(op, codec.ErrBufferUnderrun, "record %d is %d of %d bytes", i/size, len(data)-i, size)
		}
		v, err := decode(data[i : i+size])
		if err != nil {
			return nil, codec.Malformed(op, err, "record %d", i/size)
		}
		out = append(out, v)
	}
	return out, nil
}

func infallible[T any](decode func([]byte) T) func([]byte) (T, error) {
	return func(b []byte) (T, error) { return decode(b), nil }
}

// DecodeEntityFlags reads an entity visibility list.
func DecodeEntityFlags(data []byte) ([]EntityFlag, error) {
	return decodeList("entity flags", data, EntityFlagSize, infallible(DecodeEntityFlag))
}

// DecodeOneTimeEventFlags reads a one time event list.
func DecodeOneTimeEventFlags(data []byte) ([]OneTimeEventFlag, error) {
	return decodeList("one time event flags", data, OneTimeEventFlagSize, infallible(DecodeOneTimeEventFlag))
}

// DecodeRoomClearFlags reads a room clear, locked door or switch list.
func DecodeRoomClearFlags(data []byte) ([]RoomClearFlag, error) {
	return decodeList("room clear flags", data, RoomClearFlagSize, infallible(DecodeRoomClearFlag))
}

// DecodeSacredTreeFlags reads the sacred tree list.
func DecodeSacredTreeFlags(data []byte) ([]SacredTreeFlag, error) {
	return decodeList("sacred tree flags", data, SacredTreeFlagSize, infallible(DecodeSacredTreeFlag))
}

// DecodeTreeWarpFlags reads the tree warp list.
func DecodeTreeWarpFlags(data []byte) ([]TreeWarpFlag, error) {
	return decodeList("tree warp flags", data, TreeWarpFlagSize, DecodeTreeWarpFlag)
}

// EncodeFlags writes the records back to back, then a 0xFF terminator
// padded to an even length.
func EncodeFlags[T Flag](flags []T) []byte {
	var out []byte
	for _, f := range flags {
		out = append(out, f.Bytes()...)
	}
	out = append(out, listTerminator)
	if len(out)%2 == 1 {
		out = append(out, listTerminator)
	}
	return out
}

// FlagsForRoom returns the records that belong to a room, in list order.
func FlagsForRoom[T Flag](room uint16, flags []T) []T {
	var out []T
	for _, f := range flags {
		if f.InRoom(room) {
			out = append(out, f)
		}
	}
	return out
}

// SetFlagsForRoom replaces a room's records in place, dropping surplus old
// ones and appending any extra new ones.
func SetFlagsForRoom[T Flag](room uint16, src, dst []T) []T {
	return replaceMatching(dst, func(f T) bool { return f.InRoom(room) }, src)
}

// replaceMatching overwrites the entries selected by match with src, in
// order. Leftover matches are removed and leftover src entries appended.
func replaceMatching[T any](dst []T, match func(T) bool, src []T) []T {
	out := make([]T, 0, len(dst)+len(src))
	next := 0
	for _, v := range dst {
		if !match(v) {
			out = append(out, v)
			continue
		}
		if next < len(src) {
			out = append(out, src[next])
			next++
		}
	}
	return append(out, src[next:]...)
}

// DecodeTileSwapFlags reads the tile swap trigger list, grouped by room.
func DecodeTileSwapFlags(data []byte) (map[uint16][]TileSwapFlag, error) {
	list, err := decodeList("tile swap flags", data, TileSwapFlagSize, infallible(DecodeTileSwapFlag))
	if err != nil {
		return nil, err
	}
	out := make(map[uint16][]TileSwapFlag)
	for _, f := range list {
		out[f.Room] = append(out[f.Room], f)
	}
	return out, nil
}

// EncodeTileSwapFlags writes the triggers in ascending room order.
func EncodeTileSwapFlags(flags map[uint16][]TileSwapFlag) []byte {
	var list []TileSwapFlag
	for _, room := range sortedKeys(flags) {
		list = append(list, flags[room]...)
	}
	return EncodeFlags(list)
}

// DecodeRoomFlagMap reads a room to flag table, as used for lifestock and
// lantern flags.
func DecodeRoomFlagMap(data []byte) (map[uint16]uint16, error) {
	type entry struct{ room, flag uint16 }
	list, err := decodeList("room flag map", data, 4, func(b []byte) (entry, error) {
		return entry{uint16(b[0])<<8 | uint16(b[1]), uint16(b[2])<<3 | uint16(b[3]&0x07)}, nil
	})
	if err != nil {
		return nil, err
	}
	out := make(map[uint16]uint16, len(list))
	for _, e := range list {
		if _, dup := out[e.room]; dup {
			log.Debug("room flag map: room %d listed twice, keeping first", e.room)
			continue
		}
		out[e.room] = e.flag
	}
	return out, nil
}

// EncodeRoomFlagMap writes a room to flag table in ascending room order.
func EncodeRoomFlagMap(m map[uint16]uint16) []byte {
	var out []byte
	for _, room := range sortedKeys(m) {
		f := m[room]
		out = append(out, byte(room>>8), byte(room), byte(f>>3), byte(f&0x07))
	}
	return append(out, 0xFF, 0xFF)
}

// DecodeRoomSet reads a sorted list of room numbers. Terminated lists stop
// at the first word starting with 0xFF.
func DecodeRoomSet(data []byte, terminated bool) ([]uint16, error) {
	if len(data)%2 != 0 {
		return nil, codec.Malformed("room set", codec.ErrBufferUnderrun, "odd length %d", len(data))
	}
	seen := make(map[uint16]bool)
	var out []uint16
	for i := 0; i < len(data); i += 2 {
		if terminated && data[i] == listTerminator {
			break
		}
		r := uint16(data[i])<<8 | uint16(data[i+1])
		if !seen[r] {
			seen[r] = true
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

// EncodeRoomSet writes the rooms in ascending order without duplicates.
func EncodeRoomSet(rooms []uint16, terminated bool) []byte {
	sorted := append([]uint16(nil), rooms...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var out []byte
	for i, r := range sorted {
		if i > 0 && sorted[i-1] == r {
			continue
		}
		out = append(out, byte(r>>8), byte(r))
	}
	if terminated {
		out = append(out, 0xFF, 0xFF)
	}
	return out
}

func sortedKeys[V any](m map[uint16]V) []uint16 {
	keys := make([]uint16, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
