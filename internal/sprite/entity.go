package sprite

import (
	"encoding/binary"
	"sort"

	"github.com/rcarmo/landstalker/internal/codec"
)

// EntitySize is the stored size of one entity.
const EntitySize = 8

const (
	entityTerminator = 0xFFFF

	MinEntityCoord = 0x80
	MaxEntityCoord = 0x4000
	MaxEntityZ     = 0xF80
)

// Orientation is the direction an entity faces.
type Orientation uint8

const (
	FacingNE Orientation = iota
	FacingSE
	FacingSW
	FacingNW
)

// Entity places one sprite in a room. Coordinates are in 1/256 tile units
// and move in half tile steps.
type Entity struct {
	Type        uint8
	X, Y, Z     uint16
	Orientation Orientation
	Palette     uint8
	Speed       uint8
	Behaviour   uint16
	Dialogue    uint8

	CopySource uint8
	CopyTiles  bool

	Hostile     bool
	Pickupable  bool
	HasDialogue bool
	NoRotate    bool
	NoFriction  bool
	NoGravity   bool
	Invisible   bool
	NotSolid    bool
	Reserved    bool
}

// NewEntity returns an entity at the room origin using palette 2.
func NewEntity() Entity {
	return Entity{X: 0x1F80, Y: 0x1F80, Palette: 2}
}

// DecodeEntity reads one stored entity.
func DecodeEntity(b []byte) (Entity, error) {
	if len(b) < EntitySize {
		return Entity{}, codec.Malformed("decode entity", codec.ErrBufferUnderrun, "%d bytes", len(b))
	}
	half := func(bit byte, set uint16) uint16 {
		if b[3]&bit != 0 {
			return set
		}
		return 0x80
	}
	e := Entity{
		X:           uint16(b[0]&0x3F)<<8 + half(0x80, 0x100),
		Orientation: Orientation(b[0] >> 6),
		Y:           uint16(b[1]&0x3F)<<8 + half(0x40, 0x100),
		Palette:     b[1] >> 6,
		Speed:       b[2] & 0x07,
		Hostile:     b[2]&0x80 != 0,
		Pickupable:  b[2]&0x40 != 0,
		HasDialogue: b[2]&0x20 != 0,
		NoRotate:    b[2]&0x10 != 0,
		NoFriction:  b[2]&0x08 != 0,
		Reserved:    b[3]&0x20 != 0,
		CopyTiles:   b[3]&0x10 != 0,
		CopySource:  b[3] & 0x0F,
		Behaviour:   uint16(b[4]&0x03)<<8 | uint16(b[7]),
		Dialogue:    b[4] >> 2 & 0x3F,
		Type:        b[5],
		Z:           uint16(b[6]&0x0F) << 8,
		NoGravity:   b[6]&0x80 != 0,
		Invisible:   b[6]&0x20 != 0,
		NotSolid:    b[6]&0x10 != 0,
	}
	if b[6]&0x40 != 0 {
		e.Z += 0x80
	}
	return e, nil
}

func flag(set bool, bit byte) byte {
	if set {
		return bit
	}
	return 0
}

func (e Entity) validate() error {
	const op = "encode entity"
	for _, c := range []uint16{e.X, e.Y} {
		if c < MinEntityCoord || c > MaxEntityCoord || c&0x7F != 0 {
			return codec.Malformed(op, codec.ErrBadParameter, "coordinate 0x%04X", c)
		}
	}
	switch {
	case e.Z > MaxEntityZ || e.Z&0x7F != 0:
		return codec.Malformed(op, codec.ErrBadParameter, "height 0x%03X", e.Z)
	case e.Orientation > FacingNW:
		return codec.Malformed(op, codec.ErrBadParameter, "orientation %d", e.Orientation)
	case e.Palette > 3:
		return codec.Malformed(op, codec.ErrBadParameter, "palette %d", e.Palette)
	case e.Speed > 7:
		return codec.Malformed(op, codec.ErrBadParameter, "speed %d", e.Speed)
	case e.Behaviour >= 0x400:
		return codec.Malformed(op, codec.ErrBadParameter, "behaviour %d", e.Behaviour)
	case e.Dialogue >= 0x40:
		return codec.Malformed(op, codec.ErrBadParameter, "dialogue %d", e.Dialogue)
	case e.CopySource >= 0x10:
		return codec.Malformed(op, codec.ErrBadParameter, "copy source %d", e.CopySource)
	}
	return nil
}

// coordBytes splits a coordinate into its tile byte and half tile flag.
func coordBytes(c uint16) (byte, bool) {
	hi := byte(c >> 8)
	if c&0x80 == 0 {
		hi--
	}
	return hi, c&0x80 == 0
}

// Bytes encodes the entity.
func (e Entity) Bytes() ([]byte, error) {
	if err := e.validate(); err != nil {
		return nil, err
	}
	x, xHalf := coordBytes(e.X)
	y, yHalf := coordBytes(e.Y)
	b := []byte{
		x&0x3F | byte(e.Orientation)<<6,
		y&0x3F | e.Palette<<6,
		e.Speed | flag(e.Hostile, 0x80) | flag(e.Pickupable, 0x40) | flag(e.HasDialogue, 0x20) |
			flag(e.NoRotate, 0x10) | flag(e.NoFriction, 0x08),
		flag(xHalf, 0x80) | flag(yHalf, 0x40) | flag(e.Reserved, 0x20) | flag(e.CopyTiles, 0x10) | e.CopySource,
		e.Dialogue<<2 | byte(e.Behaviour>>8),
		e.Type,
		byte(e.Z>>8) | flag(e.Z&0x80 != 0, 0x40) | flag(e.NoGravity, 0x80) | flag(e.Invisible, 0x20) |
			flag(e.NotSolid, 0x10),
		byte(e.Behaviour),
	}
	if b[0] == 0xFF && b[1] == 0xFF {
		return nil, codec.Malformed("encode entity", codec.ErrInconsistent, "entity encodes as the list terminator")
	}
	return b, nil
}

// RoomEntities is the entity list of every room. A room may be present with
// an empty list, which is stored differently from an absent room.
type RoomEntities struct {
	rooms map[uint16][]Entity
}

// NewRoomEntities returns an empty table.
func NewRoomEntities() *RoomEntities {
	return &RoomEntities{rooms: make(map[uint16][]Entity)}
}

// DecodeRoomEntities reads the per room offset table and the entity lists.
// Offsets are big endian words; zero means no list, anything else is one
// more than the list's byte offset into table.
func DecodeRoomEntities(offsets, table []byte) (*RoomEntities, error) {
	const op = "decode room entities"
	if len(offsets)%2 != 0 {
		return nil, codec.Malformed(op, codec.ErrBufferUnderrun, "odd offset table of %d bytes", len(offsets))
	}
	re := NewRoomEntities()
	for i := 0; i < len(offsets); i += 2 {
		off := int(binary.BigEndian.Uint16(offsets[i:]))
		if off == 0 {
			continue
		}
		room := uint16(i / 2)
		list := []Entity{}
		for pos := off - 1; ; pos += EntitySize {
			if pos+2 > len(table) {
				return nil, codec.Malformed(op, codec.ErrBufferUnderrun, "room %d list at %d", room, off-1)
			}
			if binary.BigEndian.Uint16(table[pos:]) == entityTerminator {
				break
			}
			e, err := DecodeEntity(table[pos:])
			if err != nil {
				return nil, codec.Malformed(op, err, "room %d entity %d", room, len(list))
			}
			list = append(list, e)
		}
		re.rooms[room] = list
	}
	return re, nil
}

// Bytes encodes the table for roomCount rooms. Lists are written in room
// order, each closed by a terminator word.
func (re *RoomEntities) Bytes(roomCount int) (offsets, table []byte, err error) {
	const op = "encode room entities"
	offsets = make([]byte, 0, roomCount*2)
	for room := 0; room < roomCount; room++ {
		list, ok := re.rooms[uint16(room)]
		if !ok {
			offsets = binary.BigEndian.AppendUint16(offsets, 0)
			continue
		}
		if len(table)+1 > 0xFFFF {
			return nil, nil, codec.Capacity(op, codec.ErrTooLong, "room %d list at %d", room, len(table))
		}
		offsets = binary.BigEndian.AppendUint16(offsets, uint16(len(table)+1))
		for i, e := range list {
			b, err := e.Bytes()
			if err != nil {
				return nil, nil, codec.Malformed(op, err, "room %d entity %d", room, i)
			}
			table = append(table, b...)
		}
		table = binary.BigEndian.AppendUint16(table, entityTerminator)
	}
	for room := range re.rooms {
		if int(room) >= roomCount {
			return nil, nil, codec.Capacity(op, codec.ErrBufferOverrun, "room %d is past the %d room table", room, roomCount)
		}
	}
	return offsets, table, nil
}

// Rooms lists the rooms with a list, in ascending order.
func (re *RoomEntities) Rooms() []uint16 {
	rooms := make([]uint16, 0, len(re.rooms))
	for r := range re.rooms {
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })
	return rooms
}

// Entities returns a copy of a room's list and whether the room has one.
func (re *RoomEntities) Entities(room uint16) ([]Entity, bool) {
	list, ok := re.rooms[room]
	return append([]Entity(nil), list...), ok
}

// SetEntities replaces a room's list. An empty list keeps the room present.
func (re *RoomEntities) SetEntities(room uint16, list []Entity) {
	re.rooms[room] = append([]Entity{}, list...)
}

// Remove drops a room's list entirely.
func (re *RoomEntities) Remove(room uint16) {
	delete(re.rooms, room)
}

// Equal compares every room's list.
func (re *RoomEntities) Equal(o *RoomEntities) bool {
	if len(re.rooms) != len(o.rooms) {
		return false
	}
	for room, list := range re.rooms {
		other, ok := o.rooms[room]
		if !ok || len(other) != len(list) {
			return false
		}
		for i := range list {
			if list[i] != other[i] {
				return false
			}
		}
	}
	return true
}
