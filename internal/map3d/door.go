package map3d

import (
	"fmt"
	"image"
	"sort"

	"github.com/rcarmo/landstalker/internal/codec"
)

// DoorSize is the wall opening drawn for a door.
type DoorSize uint8

const (
	Door1x4 DoorSize = iota
	Door2x4
	Door2x5
	Door1x0
)

var doorDims = map[DoorSize][2]int{
	Door1x4: {1, 4},
	Door2x4: {2, 4},
	Door2x5: {2, 5},
	Door1x0: {1, 0},
}

func (d DoorSize) String() string {
	if dims, ok := doorDims[d]; ok {
		return fmt.Sprintf("%dx%d door", dims[0], dims[1])
	}
	return fmt.Sprintf("door size %d", uint8(d))
}

// Dimensions returns the width and height of the opening in blocks.
func (d DoorSize) Dimensions() (int, int) {
	dims, ok := doorDims[d]
	if !ok {
		return 1, 0
	}
	return dims[0], dims[1]
}

// Door is a doorway cut into a wall. X and Y are heightmap coordinates; the
// floor type of that cell decides which wall the door sits in.
type Door struct {
	X, Y int
	Size DoorSize
}

const doorTerminator = 0xFF

// DecodeDoor unpacks a two byte door record:
//
//	b1: -S YYYYYY   b2: SS XXXXXX
//
// Coordinates are stored offset by HeightmapOffset.
func DecodeDoor(b1, b2 byte) Door {
	return Door{
		X:    int(b2&0x3F) - HeightmapOffset,
		Y:    int(b1&0x3F) - HeightmapOffset,
		Size: DoorSize(b1&0x40>>4 | b2&0xC0>>6),
	}
}

// Bytes packs the door record.
func (d Door) Bytes() (byte, byte) {
	sz := byte(d.Size)
	return byte(d.Y+HeightmapOffset)&0x3F | (sz&0x04)<<4,
		byte(d.X+HeightmapOffset)&0x3F | (sz&0x03)<<6
}

func (d Door) swap(m *Tilemap3D) (TileSwap, bool) {
	p := image.Pt(d.X, d.Y)
	floor, _ := m.CellType(p)
	if floor != FloorDoorNE && floor != FloorDoorNW {
		return TileSwap{}, false
	}
	z, _ := m.CellHeight(p)
	w, h := d.Size.Dimensions()
	shift := 0
	mode := SwapWallNE
	if floor == FloorDoorNW {
		shift = 1
		mode = SwapWallNW
	}
	// Destinations wrap as bytes, the way the game stores them.
	dst := func(v int) int { return int(uint8(HeightmapOffset + v - int(z) - h + shift)) }
	return TileSwap{
		Map: CopyOp{
			SrcX: 0xFF, SrcY: 0xFF,
			DstX: dst(d.X), DstY: dst(d.Y),
			Width: w, Height: h,
		},
		Mode:   mode,
		Active: true,
	}, true
}

// DrawDoor clears the door opening on the foreground layer. Doors on cells
// that are not door walls draw nothing.
func (d Door) DrawDoor(m *Tilemap3D, l Layer) {
	if l == LayerBG {
		return
	}
	if s, ok := d.swap(m); ok {
		s.DrawSwap(m, l)
	}
}

// TileOffset is the layer position of the door's top corner. Without a map,
// or outside its heightmap, the room margins and cell height are ignored.
func (d Door) TileOffset(m *Tilemap3D, l Layer) image.Point {
	if m == nil {
		return image.Point{}
	}
	_, h := d.Size.Dimensions()
	off := image.Pt(d.X+HeightmapOffset-h, d.Y+HeightmapOffset-h)
	p := image.Pt(d.X, d.Y)
	floor := FloorNormal
	if m.IsHMPointValid(p) {
		floor, _ = m.CellType(p)
		z, _ := m.CellHeight(p)
		off = off.Sub(image.Pt(m.left+int(z), m.top+int(z)))
	}
	switch floor {
	case FloorDoorNE:
		if l == LayerFG {
			off.X++
		} else {
			off = off.Add(image.Pt(1, 1))
		}
	case FloorDoorNW:
		if l == LayerFG {
			off = off.Add(image.Pt(1, 1))
		} else {
			off.Y++
		}
	}
	return off
}

// Doors is the table of doors for every room. A room may be present with no
// doors; it still gets an entry when written.
type Doors struct {
	rooms map[uint16][]Door
}

// NewDoors returns an empty table.
func NewDoors() *Doors {
	return &Doors{rooms: make(map[uint16][]Door)}
}

// DecodeDoors reads the per room offset table and the door records it
// indexes. Rooms with a zero offset have no entry; the others own a run of
// records ended by 0xFF, stored back to back in room order.
func DecodeDoors(offsets, data []byte) (*Doors, error) {
	const op = "decode doors"
	d := NewDoors()
	pos := 0
	for room, off := range offsets {
		if off == 0 {
			continue
		}
		doors := []Door{}
		for {
			if pos >= len(data) {
				return nil, codec.Malformed(op, codec.ErrBufferUnderrun, "room %d", room)
			}
			if data[pos] == doorTerminator {
				pos++
				break
			}
			if pos+1 >= len(data) {
				return nil, codec.Malformed(op, codec.ErrBufferUnderrun, "room %d", room)
			}
			doors = append(doors, DecodeDoor(data[pos], data[pos+1]))
			pos += 2
		}
		d.rooms[uint16(room)] = doors
	}
	return d, nil
}

// Bytes encodes the table for roomCount rooms. Each offset is one more than
// the size of the previous room's record run.
func (d *Doors) Bytes(roomCount int) (offsets, data []byte, err error) {
	offsets = make([]byte, 0, roomCount)
	last := 0
	for room := 0; room < roomCount; room++ {
		doors, ok := d.rooms[uint16(room)]
		if !ok {
			offsets = append(offsets, 0)
			continue
		}
		if last+1 > 0xFF {
			return nil, nil, codec.Capacity("encode doors", codec.ErrTooLong, "room %d offset %d", room, last+1)
		}
		offsets = append(offsets, byte(last+1))
		last = len(doors)*2 + 1
		for _, door := range doors {
			b1, b2 := door.Bytes()
			data = append(data, b1, b2)
		}
		data = append(data, doorTerminator)
	}
	return offsets, data, nil
}

// Rooms lists the rooms with an entry, in ascending order.
func (d *Doors) Rooms() []uint16 {
	rooms := make([]uint16, 0, len(d.rooms))
	for r := range d.rooms {
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })
	return rooms
}

// RoomDoors returns a copy of the doors of a room.
func (d *Doors) RoomDoors(room uint16) []Door {
	return append([]Door(nil), d.rooms[room]...)
}

// HasDoors reports whether the room has an entry.
func (d *Doors) HasDoors(room uint16) bool {
	_, ok := d.rooms[room]
	return ok
}

// SetRoomDoors replaces the doors of a room. An empty list keeps the entry.
func (d *Doors) SetRoomDoors(room uint16, doors []Door) {
	d.rooms[room] = append([]Door{}, doors...)
}

// Equal compares every room entry.
func (d *Doors) Equal(o *Doors) bool {
	if len(d.rooms) != len(o.rooms) {
		return false
	}
	for room, doors := range d.rooms {
		other, ok := o.rooms[room]
		if !ok || len(other) != len(doors) {
			return false
		}
		for i := range doors {
			if doors[i] != other[i] {
				return false
			}
		}
	}
	return true
}
