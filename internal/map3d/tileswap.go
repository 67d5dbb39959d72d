package map3d

import (
	"encoding/binary"
	"image"
	"sort"

	"github.com/go-restruct/restruct"

	"github.com/rcarmo/landstalker/internal/codec"
)

// SwapMode selects the shape of the region a tile swap redraws.
type SwapMode uint8

const (
	SwapFloor SwapMode = iota
	SwapWallNE
	SwapWallNW
)

var swapModeNames = [...]string{"floor", "wall_ne", "wall_nw"}

func (s SwapMode) String() string {
	if int(s) < len(swapModeNames) {
		return swapModeNames[s]
	}
	return "unknown"
}

// Region picks which corner of a swap a tile offset is measured from.
type Region int

const (
	RegionUndefined Region = iota
	RegionSource
	RegionDestination
)

// CopyOp is a rectangular copy inside one grid.
type CopyOp struct {
	SrcX, SrcY int
	DstX, DstY int
	Width      int
	Height     int
}

// TileSwap redraws part of a room when its trigger fires: Map copies blocks
// within a layer and Heightmap copies heightmap cells. Inactive swaps are
// kept for editing but are never drawn or written out. A swap's trigger is
// its position in the room's list.
type TileSwap struct {
	Map       CopyOp
	Heightmap CopyOp
	Mode      SwapMode
	Active    bool
}

// TileSwapSize is the size of one stored swap record.
const TileSwapSize = 16

type swapRecord struct {
	MapSrcX   uint8
	MapSrcY   uint8
	MapDstX   uint8
	MapDstY   uint8
	MapWidth  uint8
	MapHeight uint8
	HMSrcX    uint8
	HMSrcY    uint8
	HMDstX    uint8
	HMDstY    uint8
	HMWidth   uint8
	HMHeight  uint8
	Room      uint16
	Index     uint8
	Mode      uint8
}

const swapTerminator = 0xFFFF

// NewTileSwap returns an active 1x1 floor swap.
func NewTileSwap() TileSwap {
	return TileSwap{
		Map:       CopyOp{Width: 1, Height: 1},
		Heightmap: CopyOp{Width: 1, Height: 1},
		Active:    true,
	}
}

func hmCoord(b uint8) int {
	v := int(b) - HeightmapOffset
	switch {
	case v < 0:
		return 0
	case v > 0x3F:
		return 0x3F
	}
	return v
}

func (r *swapRecord) swap() TileSwap {
	return TileSwap{
		Map: CopyOp{
			SrcX: int(r.MapSrcX), SrcY: int(r.MapSrcY),
			DstX: int(r.MapDstX), DstY: int(r.MapDstY),
			Width: int(r.MapWidth) + 1, Height: int(r.MapHeight) + 1,
		},
		Heightmap: CopyOp{
			SrcX: hmCoord(r.HMSrcX), SrcY: hmCoord(r.HMSrcY),
			DstX: hmCoord(r.HMDstX), DstY: hmCoord(r.HMDstY),
			Width: int(r.HMWidth) + 1, Height: int(r.HMHeight) + 1,
		},
		Mode:   SwapMode(r.Mode),
		Active: true,
	}
}

// Bytes encodes the swap as entry idx of room's list.
func (s TileSwap) Bytes(room uint16, idx uint8) ([]byte, error) {
	hm := func(v int) uint8 { return uint8(v + HeightmapOffset) }
	r := swapRecord{
		MapSrcX: uint8(s.Map.SrcX), MapSrcY: uint8(s.Map.SrcY),
		MapDstX: uint8(s.Map.DstX), MapDstY: uint8(s.Map.DstY),
		MapWidth: uint8(s.Map.Width - 1), MapHeight: uint8(s.Map.Height - 1),
		HMSrcX: hm(s.Heightmap.SrcX), HMSrcY: hm(s.Heightmap.SrcY),
		HMDstX: hm(s.Heightmap.DstX), HMDstY: hm(s.Heightmap.DstY),
		HMWidth: uint8(s.Heightmap.Width - 1), HMHeight: uint8(s.Heightmap.Height - 1),
		Room:  room,
		Index: idx << 3,
		Mode:  uint8(s.Mode),
	}
	return restruct.Pack(binary.BigEndian, &r)
}

// Equal compares everything but the active flag.
func (s TileSwap) Equal(o TileSwap) bool {
	return s.Map == o.Map && s.Heightmap == o.Heightmap && s.Mode == o.Mode
}

// RelTileOffset is the shift between the heightmap corner of a wall swap
// and its first block on the given layer.
func (s TileSwap) RelTileOffset(l Layer) image.Point {
	switch s.Mode {
	case SwapWallNE:
		if l == LayerFG {
			return image.Pt(1, 0)
		}
	case SwapWallNW:
		if l != LayerFG {
			return image.Pt(0, 1)
		}
	}
	return image.Point{}
}

// TileOffset places a corner of the swap in layer coordinates. A nil map
// leaves the room margins out.
func (s TileSwap) TileOffset(region Region, m *Tilemap3D, l Layer) image.Point {
	off := s.RelTileOffset(l)
	if m != nil {
		off = off.Sub(image.Pt(m.left, m.top))
	}
	switch region {
	case RegionSource:
		off = off.Add(image.Pt(s.Map.SrcX, s.Map.SrcY))
	case RegionDestination:
		off = off.Add(image.Pt(s.Map.DstX, s.Map.DstY))
	}
	return off
}

func (s TileSwap) covers(xo, yo int, l Layer) bool {
	w, h := s.Map.Width, s.Map.Height
	switch s.Mode {
	case SwapFloor:
		return xo >= 0 && xo < w && yo >= 0 && yo < h
	case SwapWallNE:
		d := xo - yo
		if l == LayerFG {
			d--
		}
		return d >= 0 && d < w && yo >= 0 && yo < h
	case SwapWallNW:
		if xo < 0 || xo >= h {
			return false
		}
		if l == LayerBG {
			return yo > xo && yo <= xo+w
		}
		return yo >= xo && yo < xo+w
	}
	return false
}

// DrawSwap copies the swap's source blocks over its destination on one
// layer. Floor swaps cover a rectangle; wall swaps cover a diagonal strip.
// Source blocks outside the map read as zero. Inactive swaps draw nothing.
func (s TileSwap) DrawSwap(m *Tilemap3D, l Layer) {
	if !s.Active {
		return
	}
	for y := 0; y < m.height; y++ {
		for x := 0; x < m.width; x++ {
			if !s.covers(x-s.Map.DstX+m.left, y-s.Map.DstY+m.top, l) {
				continue
			}
			src := image.Pt(s.Map.SrcX-s.Map.DstX+x, s.Map.SrcY-s.Map.DstY+y)
			var v uint16
			if m.IsIsoPointValid(src) {
				v = m.Block(src, l)
			}
			m.SetBlock(image.Pt(x, y), l, v)
		}
	}
}

// DrawHeightmapSwap copies the swap's heightmap cells. Cells whose source or
// destination lie outside the heightmap are skipped.
func (s TileSwap) DrawHeightmapSwap(m *Tilemap3D) {
	if !s.Active {
		return
	}
	for y := 0; y < s.Heightmap.Height; y++ {
		for x := 0; x < s.Heightmap.Width; x++ {
			src := image.Pt(x+s.Heightmap.SrcX, y+s.Heightmap.SrcY)
			dst := image.Pt(x+s.Heightmap.DstX, y+s.Heightmap.DstY)
			if c, ok := m.Cell(src); ok && m.IsHMPointValid(dst) {
				m.SetCell(dst, c)
			}
		}
	}
}

// IsHeightmapPointInSwap reports whether a heightmap cell is overwritten by
// the swap.
func (s TileSwap) IsHeightmapPointInSwap(x, y int) bool {
	h := s.Heightmap
	return x >= h.DstX && x < h.DstX+h.Width && y >= h.DstY && y < h.DstY+h.Height
}

// TileSwaps is the table of swaps for every room.
type TileSwaps struct {
	rooms map[uint16][]TileSwap
}

// NewTileSwaps returns an empty table.
func NewTileSwaps() *TileSwaps {
	return &TileSwaps{rooms: make(map[uint16][]TileSwap)}
}

// DecodeTileSwaps reads records until the 0xFFFF room terminator.
func DecodeTileSwaps(data []byte) (*TileSwaps, error) {
	const op = "decode tile swaps"
	if len(data)%TileSwapSize != 0 {
		return nil, codec.Malformed(op, codec.ErrBufferUnderrun, "%d bytes is not a whole number of records", len(data))
	}
	ts := NewTileSwaps()
	for i := 0; i+TileSwapSize <= len(data); i += TileSwapSize {
		var r swapRecord
		if err := restruct.Unpack(data[i:i+TileSwapSize], binary.BigEndian, &r); err != nil {
			return nil, codec.Malformed(op, err, "record %d", i/TileSwapSize)
		}
		if r.Room == swapTerminator {
			break
		}
		ts.rooms[r.Room] = append(ts.rooms[r.Room], r.swap())
	}
	return ts, nil
}

// Bytes encodes the active swaps in room order, followed by a terminator
// record of 0xFF bytes. Each record carries its position in the room's list,
// inactive swaps included.
func (ts *TileSwaps) Bytes() ([]byte, error) {
	var out []byte
	for _, room := range ts.Rooms() {
		for i, s := range ts.rooms[room] {
			if !s.Active {
				continue
			}
			b, err := s.Bytes(room, uint8(i))
			if err != nil {
				return nil, codec.Malformed("encode tile swaps", err, "room %d", room)
			}
			out = append(out, b...)
		}
	}
	for i := 0; i < TileSwapSize; i++ {
		out = append(out, 0xFF)
	}
	return out, nil
}

// Rooms lists the rooms holding swaps, in ascending order.
func (ts *TileSwaps) Rooms() []uint16 {
	rooms := make([]uint16, 0, len(ts.rooms))
	for r := range ts.rooms {
		rooms = append(rooms, r)
	}
	sort.Slice(rooms, func(i, j int) bool { return rooms[i] < rooms[j] })
	return rooms
}

// Swaps returns a copy of the swaps for a room.
func (ts *TileSwaps) Swaps(room uint16) []TileSwap {
	return append([]TileSwap(nil), ts.rooms[room]...)
}

// HasSwaps reports whether the room has at least one active swap.
func (ts *TileSwaps) HasSwaps(room uint16) bool {
	for _, s := range ts.rooms[room] {
		if s.Active {
			return true
		}
	}
	return false
}

// SetSwaps replaces the swaps for a room. An empty list removes the room.
func (ts *TileSwaps) SetSwaps(room uint16, swaps []TileSwap) {
	if len(swaps) == 0 {
		delete(ts.rooms, room)
		return
	}
	ts.rooms[room] = append([]TileSwap(nil), swaps...)
}

// Equal compares the swaps of every room.
func (ts *TileSwaps) Equal(o *TileSwaps) bool {
	if len(ts.rooms) != len(o.rooms) {
		return false
	}
	for room, swaps := range ts.rooms {
		other, ok := o.rooms[room]
		if !ok || len(other) != len(swaps) {
			return false
		}
		for i := range swaps {
			if !swaps[i].Equal(other[i]) {
				return false
			}
		}
	}
	return true
}
