package rooms

import (
	"github.com/rcarmo/landstalker/internal/codec"
)

// ChestItem is the item id stored in a chest.
type ChestItem = uint8

// MaxChestContents bounds the shared contents table, whose offsets are bytes.
const MaxChestContents = 0xFF

// Chests maps rooms to the contents of their chests, in entity order. Rooms
// can also carry a "no chests" marker, stored as a zero offset.
type Chests struct {
	contents map[uint16][]ChestItem
	noChests map[uint16]bool
}

// NewChests returns an empty table.
func NewChests() *Chests {
	return &Chests{contents: make(map[uint16][]ChestItem), noChests: make(map[uint16]bool)}
}

// DecodeChests reads the per room offset table and the shared contents.
// Each offset is the end of the room's run in contents; a room whose offset
// does not rise has no chests, and a zero offset in a table that rises
// anywhere marks the room as having chests disabled.
func DecodeChests(offsets, contents []byte) (*Chests, error) {
	const op = "decode chests"
	c := NewChests()
	var max byte
	for _, o := range offsets {
		if o > max {
			max = o
		}
	}
	if int(max) > len(contents) {
		return nil, codec.Malformed(op, codec.ErrBufferUnderrun, "offsets reach %d, contents hold %d", max, len(contents))
	}
	prev := 0
	for i, o := range offsets {
		room := uint16(i)
		end := int(o)
		switch {
		case end == 0 && max > 0:
			c.noChests[room] = true
		case end > prev:
			c.contents[room] = append([]ChestItem(nil), contents[prev:end]...)
			prev = end
		case end < prev:
			return nil, codec.Malformed(op, codec.ErrInconsistent, "room %d offset %d falls below %d", i, end, prev)
		}
	}
	if prev != len(contents) {
		log.Debug("chests: %d trailing content bytes ignored", len(contents)-prev)
	}
	return c, nil
}

// Bytes encodes the table for roomCount rooms.
func (c *Chests) Bytes(roomCount int) (offsets, contents []byte, err error) {
	offsets = make([]byte, 0, roomCount)
	for i := 0; i < roomCount; i++ {
		room := uint16(i)
		if c.noChests[room] {
			offsets = append(offsets, 0)
			continue
		}
		contents = append(contents, c.contents[room]...)
		if len(contents) > MaxChestContents {
			return nil, nil, codec.Capacity("encode chests", codec.ErrTooLong, "%d chest items", len(contents))
		}
		offsets = append(offsets, byte(len(contents)))
	}
	return offsets, contents, nil
}

// ForRoom returns a copy of the room's chest contents.
func (c *Chests) ForRoom(room uint16) []ChestItem {
	return append([]ChestItem(nil), c.contents[room]...)
}

// HasChests reports whether the room holds at least one chest.
func (c *Chests) HasChests(room uint16) bool {
	return len(c.contents[room]) > 0 && !c.noChests[room]
}

// HasNoChestsSet reports whether the room carries the "no chests" marker.
func (c *Chests) HasNoChestsSet(room uint16) bool {
	return c.noChests[room]
}

// SetRoomChests replaces the contents of a room. Setting contents clears
// the marker; an empty list removes the room.
func (c *Chests) SetRoomChests(room uint16, items []ChestItem) {
	if len(items) == 0 {
		delete(c.contents, room)
		return
	}
	c.contents[room] = append([]ChestItem(nil), items...)
	delete(c.noChests, room)
}

// ClearRoomChests removes the contents of a room.
func (c *Chests) ClearRoomChests(room uint16) {
	delete(c.contents, room)
}

// SetNoChests marks the room and drops any contents.
func (c *Chests) SetNoChests(room uint16) {
	delete(c.contents, room)
	c.noChests[room] = true
}

// ClearNoChests removes the marker.
func (c *Chests) ClearNoChests(room uint16) {
	delete(c.noChests, room)
}

// Cleanup sizes every room's contents to its chest entity count, adding
// empty chests and trimming surplus ones. chestCounts is indexed by room.
// It reports whether the total still fits the table.
func (c *Chests) Cleanup(chestCounts []int) bool {
	total := 0
	for i, n := range chestCounts {
		room := uint16(i)
		if c.noChests[room] {
			delete(c.contents, room)
			continue
		}
		items, ok := c.contents[room]
		switch {
		case ok && len(items) != n:
			resized := make([]ChestItem, n)
			copy(resized, items)
			c.contents[room] = resized
		case !ok && n > 0:
			c.contents[room] = make([]ChestItem, n)
		}
		if n == 0 {
			delete(c.contents, room)
		}
		total += n
	}
	return total <= MaxChestContents
}

// Equal compares contents and markers.
func (c *Chests) Equal(o *Chests) bool {
	if len(c.contents) != len(o.contents) || len(c.noChests) != len(o.noChests) {
		return false
	}
	for room := range c.noChests {
		if !o.noChests[room] {
			return false
		}
	}
	for room, items := range c.contents {
		other, ok := o.contents[room]
		if !ok || string(items) != string(other) {
			return false
		}
	}
	return true
}
