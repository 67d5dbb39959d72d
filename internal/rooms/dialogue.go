package rooms

import (
	"encoding/binary"

	"github.com/rcarmo/landstalker/internal/codec"
)

// Character is a speaker id in the dialogue table.
type Character = uint16

const (
	dialogueIDMask  = 0x07FF
	dialogueRunBits = 11
	maxDialogueRun  = 0x1F
	dialogueEnd     = 0xFFFF
)

// DialogueTable lists the characters that can speak in each room.
//
// Each room is a header word (count << 11 | room) followed by count words of
// (run << 11 | first character), covering run consecutive ids.
type DialogueTable struct {
	rooms map[uint16][]Character
}

// NewDialogueTable returns an empty table.
func NewDialogueTable() *DialogueTable {
	return &DialogueTable{rooms: make(map[uint16][]Character)}
}

// DecodeDialogueTable reads big endian words up to the 0xFFFF terminator or
// the end of data.
func DecodeDialogueTable(data []byte) (*DialogueTable, error) {
	const op = "decode dialogue table"
	if len(data)%2 != 0 {
		return nil, codec.Malformed(op, codec.ErrBufferUnderrun, "odd length %d", len(data))
	}
	words := make([]uint16, len(data)/2)
	for i := range words {
		words[i] = binary.BigEndian.Uint16(data[i*2:])
	}
	t := NewDialogueTable()
	for i := 0; i < len(words) && words[i] != dialogueEnd; {
		room := words[i] & dialogueIDMask
		count := int(words[i] >> dialogueRunBits)
		i++
		if i+count > len(words) {
			return nil, codec.Malformed(op, codec.ErrBufferUnderrun, "room %d needs %d runs", room, count)
		}
		chars := []Character{}
		for _, w := range words[i : i+count] {
			first := w & dialogueIDMask
			for k := uint16(0); k < w>>dialogueRunBits; k++ {
				chars = append(chars, first+k)
			}
		}
		i += count
		t.rooms[room] = chars
	}
	return t, nil
}

// Bytes encodes the table in room order. Consecutive ids collapse into runs
// of at most 31.
func (t *DialogueTable) Bytes() ([]byte, error) {
	const op = "encode dialogue table"
	var words []uint16
	for _, room := range sortedKeys(t.rooms) {
		if room > dialogueIDMask {
			return nil, codec.Capacity(op, codec.ErrTooLong, "room %d", room)
		}
		header := len(words)
		words = append(words, room)
		runs := 0
		for _, c := range t.rooms[room] {
			if c > dialogueIDMask {
				return nil, codec.Capacity(op, codec.ErrTooLong, "room %d character %d", room, c)
			}
			if runs > 0 {
				last := words[len(words)-1]
				n := last >> dialogueRunBits
				if last&dialogueIDMask+n == c && n < maxDialogueRun {
					words[len(words)-1] += 1 << dialogueRunBits
					continue
				}
			}
			words = append(words, c|1<<dialogueRunBits)
			runs++
		}
		if runs > maxDialogueRun {
			return nil, codec.Capacity(op, codec.ErrTooLong, "room %d has %d character runs", room, runs)
		}
		words[header] |= uint16(runs) << dialogueRunBits
	}
	words = append(words, dialogueEnd)
	out := make([]byte, len(words)*2)
	for i, w := range words {
		binary.BigEndian.PutUint16(out[i*2:], w)
	}
	return out, nil
}

// RoomCharacters returns a copy of the room's speakers.
func (t *DialogueTable) RoomCharacters(room uint16) []Character {
	return append([]Character(nil), t.rooms[room]...)
}

// SetRoomCharacters replaces the room's speakers. An empty list removes the
// room.
func (t *DialogueTable) SetRoomCharacters(room uint16, chars []Character) {
	if len(chars) == 0 {
		delete(t.rooms, room)
		return
	}
	t.rooms[room] = append([]Character(nil), chars...)
}

// Rooms lists the rooms in the table, ascending.
func (t *DialogueTable) Rooms() []uint16 {
	return sortedKeys(t.rooms)
}

// Equal compares every room.
func (t *DialogueTable) Equal(o *DialogueTable) bool {
	if len(t.rooms) != len(o.rooms) {
		return false
	}
	for room, chars := range t.rooms {
		other, ok := o.rooms[room]
		if !ok || len(other) != len(chars) {
			return false
		}
		for i := range chars {
			if chars[i] != other[i] {
				return false
			}
		}
	}
	return true
}
