package rooms

import (
	"bytes"
	"sort"

	"github.com/lunixbochs/struc"

	"github.com/rcarmo/landstalker/internal/codec"
)

// WarpType is the way the player walks through a warp.
type WarpType uint8

const (
	WarpNormal WarpType = iota
	WarpStairSE
	WarpStairSW
	WarpUnknown
)

var warpTypeNames = [...]string{"normal", "stair_se", "stair_sw", "unknown"}

func (t WarpType) String() string {
	if int(t) < len(warpTypeNames) {
		return warpTypeNames[t]
	}
	return "unknown"
}

// NoRoom marks an unset room in warps and routes.
const NoRoom = 0xFFFF

// Warp joins a rectangle in one room to a rectangle in another. Sizes are 1
// to 3 tiles on each axis.
type Warp struct {
	Room1 uint16
	X1    uint8
	Y1    uint8
	Room2 uint16
	X2    uint8
	Y2    uint8
	XSize uint8
	YSize uint8
	Type  WarpType
}

type warpRecord struct {
	Word1 uint16 `struc:"uint16,big"`
	X1    uint8  `struc:"uint8"`
	Y1    uint8  `struc:"uint8"`
	Word2 uint16 `struc:"uint16,big"`
	X2    uint8  `struc:"uint8"`
	Y2    uint8  `struc:"uint8"`
}

type routeRecord struct {
	Room uint16 `struc:"uint16,big"`
	Dest uint16 `struc:"uint16,big"`
}

type transitionRecord struct {
	Src    uint16 `struc:"uint16,big"`
	Dst    uint16 `struc:"uint16,big"`
	FlagHi uint8  `struc:"uint8"`
	FlagLo uint8  `struc:"uint8"`
}

// Record sizes of the warp tables.
const (
	WarpSize       = 8
	RouteSize      = 4
	TransitionSize = 6
)

const (
	warpRoomMask = 0x03FF
	warpSize3    = 0x0400
	warpXSize    = 0x0800
	warpYSize    = 0x1000
	warpTypeBits = 13
)

// NewWarp returns an unset 1x1 normal warp.
func NewWarp() Warp {
	return Warp{Room1: NoRoom, Room2: NoRoom, XSize: 1, YSize: 1}
}

func (r warpRecord) warp() Warp {
	w := Warp{
		Room1: r.Word1 & warpRoomMask,
		X1:    r.X1, Y1: r.Y1,
		Room2: r.Word2 & warpRoomMask,
		X2:    r.X2, Y2: r.Y2,
		XSize: 1, YSize: 1,
		Type: WarpType(r.Word1 >> warpTypeBits & 0x03),
	}
	big := uint8(2)
	if r.Word1&warpSize3 != 0 {
		big = 3
	}
	if r.Word1&warpXSize != 0 {
		w.XSize = big
	}
	if r.Word1&warpYSize != 0 {
		w.YSize = big
	}
	return w
}

func (w Warp) record() warpRecord {
	word := w.Room1 & warpRoomMask
	if w.XSize == 3 || w.YSize == 3 {
		word |= warpSize3
	}
	if w.XSize > 1 {
		word |= warpXSize
	}
	if w.YSize > 1 {
		word |= warpYSize
	}
	word |= uint16(w.Type&0x03) << warpTypeBits
	return warpRecord{Word1: word, X1: w.X1, Y1: w.Y1, Word2: w.Room2 & warpRoomMask, X2: w.X2, Y2: w.Y2}
}

// IsValid reports whether both ends name a room.
func (w Warp) IsValid() bool {
	return w.Room1 != NoRoom && w.Room2 != NoRoom
}

// Equal treats a warp and its reverse as the same warp.
func (w Warp) Equal(o Warp) bool {
	if w.Type != o.Type || w.XSize != o.XSize || w.YSize != o.YSize {
		return false
	}
	same := w.Room1 == o.Room1 && w.Room2 == o.Room2 && w.X1 == o.X1 && w.Y1 == o.Y1 && w.X2 == o.X2 && w.Y2 == o.Y2
	swapped := w.Room1 == o.Room2 && w.Room2 == o.Room1 && w.X1 == o.X2 && w.Y1 == o.Y2 && w.X2 == o.X1 && w.Y2 == o.Y1
	return same || swapped
}

// InRoom reports whether either end of the warp is in room.
func (w Warp) InRoom(room uint16) bool {
	return w.Room1 == room || w.Room2 == room
}

// Transition moves the player from Src to Dst when Flag is set.
type Transition struct {
	Src  uint16
	Dst  uint16
	Flag uint16
}

// transitionLess orders by destination, then by descending source.
func transitionLess(a, b Transition) bool {
	if a.Dst != b.Dst {
		return a.Dst < b.Dst
	}
	return a.Src > b.Src
}

// WarpList holds the warps between rooms, the fall and climb destinations,
// and the flag driven room transitions.
type WarpList struct {
	warps       []Warp
	falls       map[uint16]uint16
	climbs      map[uint16]uint16
	transitions []Transition
}

// NewWarpList returns an empty list.
func NewWarpList() *WarpList {
	return &WarpList{falls: make(map[uint16]uint16), climbs: make(map[uint16]uint16)}
}

// DecodeWarpList reads the four tables. Each ends with a record whose first
// word is 0xFFFF.
func DecodeWarpList(warps, falls, climbs, transitions []byte) (*WarpList, error) {
	wl := NewWarpList()
	err := readRecords("decode warps", warps, WarpSize, func(r *bytes.Reader) error {
		var rec warpRecord
		if err := struc.Unpack(r, &rec); err != nil {
			return err
		}
		wl.warps = append(wl.warps, rec.warp())
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := decodeRoutes("decode fall destinations", falls, wl.falls); err != nil {
		return nil, err
	}
	if err := decodeRoutes("decode climb destinations", climbs, wl.climbs); err != nil {
		return nil, err
	}
	err = readRecords("decode transitions", transitions, TransitionSize, func(r *bytes.Reader) error {
		var rec transitionRecord
		if err := struc.Unpack(r, &rec); err != nil {
			return err
		}
		wl.transitions = append(wl.transitions, Transition{
			Src:  rec.Src,
			Dst:  rec.Dst,
			Flag: uint16(rec.FlagHi)<<3 | uint16(rec.FlagLo&0x07),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return wl, nil
}

func decodeRoutes(op string, data []byte, routes map[uint16]uint16) error {
	return readRecords(op, data, RouteSize, func(r *bytes.Reader) error {
		var rec routeRecord
		if err := struc.Unpack(r, &rec); err != nil {
			return err
		}
		if _, dup := routes[rec.Room]; !dup {
			routes[rec.Room] = rec.Dest
		}
		return nil
	})
}

// readRecords calls read for each record until the 0xFFFF terminator word.
func readRecords(op string, data []byte, size int, read func(*bytes.Reader) error) error {
	for i := 0; ; i += size {
		if i+2 > len(data) {
			return codec.Malformed(op, codec.ErrBufferUnderrun, "missing terminator after %d records", i/size)
		}
		if data[i] == 0xFF && data[i+1] == 0xFF {
			return nil
		}
		if i+size > len(data) {
			return codec.Malformed(op, codec.ErrBufferUnderrun, "record %d is truncated", i/size)
		}
		if err := read(bytes.NewReader(data[i : i+size])); err != nil {
			return codec.Malformed(op, err, "record %d", i/size)
		}
	}
}

func packAll[T any](op string, recs []T, terminator int) ([]byte, error) {
	var buf bytes.Buffer
	for i := range recs {
		if err := struc.Pack(&buf, &recs[i]); err != nil {
			return nil, codec.Malformed(op, err, "record %d", i)
		}
	}
	for i := 0; i < terminator; i++ {
		buf.WriteByte(0xFF)
	}
	return buf.Bytes(), nil
}

// WarpBytes encodes the warp table.
func (wl *WarpList) WarpBytes() ([]byte, error) {
	recs := make([]warpRecord, len(wl.warps))
	for i, w := range wl.warps {
		recs[i] = w.record()
	}
	return packAll("encode warps", recs, 2)
}

func routeBytes(op string, routes map[uint16]uint16) ([]byte, error) {
	var recs []routeRecord
	for _, room := range sortedKeys(routes) {
		recs = append(recs, routeRecord{Room: room, Dest: routes[room]})
	}
	return packAll(op, recs, 2)
}

// FallBytes encodes the fall destination table in room order.
func (wl *WarpList) FallBytes() ([]byte, error) {
	return routeBytes("encode fall destinations", wl.falls)
}

// ClimbBytes encodes the climb destination table in room order.
func (wl *WarpList) ClimbBytes() ([]byte, error) {
	return routeBytes("encode climb destinations", wl.climbs)
}

// TransitionBytes encodes the transitions sorted by destination, then by
// descending source. The table ends with four 0xFF bytes.
func (wl *WarpList) TransitionBytes() ([]byte, error) {
	sorted := append([]Transition(nil), wl.transitions...)
	sort.SliceStable(sorted, func(i, j int) bool { return transitionLess(sorted[i], sorted[j]) })
	recs := make([]transitionRecord, len(sorted))
	for i, t := range sorted {
		recs[i] = transitionRecord{Src: t.Src, Dst: t.Dst, FlagHi: uint8(t.Flag >> 3), FlagLo: uint8(t.Flag & 0x07)}
	}
	return packAll("encode transitions", recs, 4)
}

// WarpsForRoom returns the warps with an end in room.
func (wl *WarpList) WarpsForRoom(room uint16) []Warp {
	var out []Warp
	for _, w := range wl.warps {
		if w.InRoom(room) {
			out = append(out, w)
		}
	}
	return out
}

// UpdateWarpsForRoom replaces the room's warps in place. Invalid warps are
// dropped.
func (wl *WarpList) UpdateWarpsForRoom(room uint16, warps []Warp) {
	var valid []Warp
	for _, w := range warps {
		if w.IsValid() {
			valid = append(valid, w)
		}
	}
	wl.warps = replaceMatching(wl.warps, func(w Warp) bool { return w.InRoom(room) }, valid)
}

// HasFallDestination reports whether falling out of room leads somewhere.
func (wl *WarpList) HasFallDestination(room uint16) bool {
	_, ok := wl.falls[room]
	return ok
}

// FallDestination returns the room reached by falling, or NoRoom.
func (wl *WarpList) FallDestination(room uint16) uint16 {
	if d, ok := wl.falls[room]; ok {
		return d
	}
	return NoRoom
}

// SetHasFallDestination adds a destination of room 0 or removes the entry.
func (wl *WarpList) SetHasFallDestination(room uint16, enabled bool) {
	setHas(wl.falls, room, enabled)
}

// SetFallDestination sets the room reached by falling.
func (wl *WarpList) SetFallDestination(room, dest uint16) {
	wl.falls[room] = dest
}

// HasClimbDestination reports whether climbing out of room leads somewhere.
func (wl *WarpList) HasClimbDestination(room uint16) bool {
	_, ok := wl.climbs[room]
	return ok
}

// ClimbDestination returns the room reached by climbing, or NoRoom.
func (wl *WarpList) ClimbDestination(room uint16) uint16 {
	if d, ok := wl.climbs[room]; ok {
		return d
	}
	return NoRoom
}

// SetHasClimbDestination adds a destination of room 0 or removes the entry.
func (wl *WarpList) SetHasClimbDestination(room uint16, enabled bool) {
	setHas(wl.climbs, room, enabled)
}

// SetClimbDestination sets the room reached by climbing.
func (wl *WarpList) SetClimbDestination(room, dest uint16) {
	wl.climbs[room] = dest
}

func setHas(routes map[uint16]uint16, room uint16, enabled bool) {
	_, ok := routes[room]
	switch {
	case ok && !enabled:
		delete(routes, room)
	case !ok && enabled:
		routes[room] = 0
	}
}

// TransitionsForRoom returns transitions that start or end in room.
func (wl *WarpList) TransitionsForRoom(room uint16) []Transition {
	var out []Transition
	for _, t := range wl.transitions {
		if t.Src == room || t.Dst == room {
			out = append(out, t)
		}
	}
	return out
}

// SrcTransitionsForRoom returns transitions that start in room.
func (wl *WarpList) SrcTransitionsForRoom(room uint16) []Transition {
	var out []Transition
	for _, t := range wl.transitions {
		if t.Src == room {
			out = append(out, t)
		}
	}
	return out
}

// SetSrcTransitionsForRoom replaces the transitions starting in room.
func (wl *WarpList) SetSrcTransitionsForRoom(room uint16, ts []Transition) {
	wl.transitions = replaceMatching(wl.transitions, func(t Transition) bool { return t.Src == room }, ts)
}

// Equal compares all four tables. Warps and transitions compare in order.
func (wl *WarpList) Equal(o *WarpList) bool {
	if len(wl.warps) != len(o.warps) || len(wl.transitions) != len(o.transitions) {
		return false
	}
	for i := range wl.warps {
		if !wl.warps[i].Equal(o.warps[i]) {
			return false
		}
	}
	for i := range wl.transitions {
		if wl.transitions[i] != o.transitions[i] {
			return false
		}
	}
	return routesEqual(wl.falls, o.falls) && routesEqual(wl.climbs, o.climbs)
}

func routesEqual(a, b map[uint16]uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}
