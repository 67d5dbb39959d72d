package rooms

import (
	"reflect"

	"gopkg.in/yaml.v3"

	"github.com/rcarmo/landstalker/internal/codec"
)

// RoomRecordSize is the stored size of one room table entry: a 32-bit map
// pointer followed by four packed parameter bytes.
const RoomRecordSize = 8

// Room holds the parameters of one room. Map names the room's 3D map.
//
//	UUPTTTTT VVPPPPPP EEEEBBBB SSSMMMMM
type Room struct {
	Map         string `yaml:"map"`
	Tileset     uint8  `yaml:"tileset"`
	PriBlockset uint8  `yaml:"pri_blockset"`
	SecBlockset uint8  `yaml:"sec_blockset"`
	Palette     uint8  `yaml:"palette"`
	ZBegin      uint8  `yaml:"z_begin"`
	ZEnd        uint8  `yaml:"z_end"`
	BGM         uint8  `yaml:"bgm"`
	Unknown1    uint8  `yaml:"unknown1"`
	Unknown2    uint8  `yaml:"unknown2"`
}

// DecodeRoomParams unpacks the parameter bytes of a room table entry.
func DecodeRoomParams(mapName string, p []byte) (Room, error) {
	if len(p) < 4 {
		return Room{}, codec.Malformed("decode room", codec.ErrBufferUnderrun, "%d parameter bytes", len(p))
	}
	return Room{
		Map:         mapName,
		Unknown1:    p[0] >> 6,
		PriBlockset: p[0] >> 5 & 0x01,
		Tileset:     p[0] & 0x1F,
		Unknown2:    p[1] >> 6,
		Palette:     p[1] & 0x3F,
		ZEnd:        p[2] >> 4,
		ZBegin:      p[2] & 0x0F,
		SecBlockset: p[3] >> 5,
		BGM:         p[3] & 0x1F,
	}, nil
}

// Params packs the room parameters.
func (r Room) Params() ([]byte, error) {
	for _, f := range []struct {
		name  string
		v, mx uint8
	}{
		{"tileset", r.Tileset, 0x1F},
		{"primary blockset", r.PriBlockset, 0x01},
		{"secondary blockset", r.SecBlockset, 0x07},
		{"palette", r.Palette, 0x3F},
		{"z begin", r.ZBegin, 0x0F},
		{"z end", r.ZEnd, 0x0F},
		{"bgm", r.BGM, 0x1F},
		{"unknown1", r.Unknown1, 0x03},
		{"unknown2", r.Unknown2, 0x03},
	} {
		if f.v > f.mx {
			return nil, codec.Malformed("encode room", codec.ErrBadParameter, "%s %d exceeds %d", f.name, f.v, f.mx)
		}
	}
	return []byte{
		r.Unknown1<<6 | r.PriBlockset<<5 | r.Tileset,
		r.Unknown2<<6 | r.Palette,
		r.ZEnd<<4 | r.ZBegin,
		r.SecBlockset<<5 | r.BGM,
	}, nil
}

// BlocksetID is the index of the room's primary blockset group.
func (r Room) BlocksetID() uint8 {
	return r.PriBlockset<<5 | r.Tileset
}

// RoomTable lists every room in index order.
type RoomTable struct {
	Rooms []Room `yaml:"rooms"`
}

// DecodeRoomTable reads a room table document.
func DecodeRoomTable(b []byte) (*RoomTable, error) {
	var t RoomTable
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, codec.Malformed("decode room table", err, "parse")
	}
	return &t, nil
}

// Bytes renders the table as YAML.
func (t *RoomTable) Bytes() ([]byte, error) {
	b, err := yaml.Marshal(t)
	if err != nil {
		return nil, codec.Malformed("encode room table", err, "marshal")
	}
	return b, nil
}

// Pack encodes the table as stored in the ROM, looking up each room's map
// address with mapAddr.
func (t *RoomTable) Pack(mapAddr func(name string) (uint32, bool)) ([]byte, error) {
	out := make([]byte, 0, len(t.Rooms)*RoomRecordSize)
	for i, r := range t.Rooms {
		addr, ok := mapAddr(r.Map)
		if !ok {
			return nil, codec.Malformed("pack room table", codec.ErrInconsistent, "room %d uses unknown map %q", i, r.Map)
		}
		p, err := r.Params()
		if err != nil {
			return nil, codec.Malformed("pack room table", err, "room %d", i)
		}
		out = append(out, byte(addr>>24), byte(addr>>16), byte(addr>>8), byte(addr))
		out = append(out, p...)
	}
	return out, nil
}

// Equal compares every room.
func (t *RoomTable) Equal(o *RoomTable) bool {
	return reflect.DeepEqual(t, o)
}
