package rooms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/landstalker/internal/codec"
)

func TestDecodeChests(t *testing.T) {
	offsets := []byte{0, 5, 0, 8}
	contents := []byte{1, 2, 3, 4, 5, 6, 7, 8}

	c, err := DecodeChests(offsets, contents)
	require.NoError(t, err)
	assert.Equal(t, []ChestItem{1, 2, 3, 4, 5}, c.ForRoom(1))
	assert.True(t, c.HasNoChestsSet(0))
	assert.True(t, c.HasNoChestsSet(2))
	assert.Equal(t, []ChestItem{6, 7, 8}, c.ForRoom(3))
	assert.True(t, c.HasChests(3))
	assert.False(t, c.HasChests(0))
	assert.Empty(t, c.ForRoom(0))

	gotOffsets, gotContents, err := c.Bytes(len(offsets))
	require.NoError(t, err)
	assert.Equal(t, offsets, gotOffsets)
	assert.Equal(t, contents, gotContents)
}

func TestChests_EmptyRoomsKeepOffset(t *testing.T) {
	offsets := []byte{2, 2, 2, 3}
	contents := []byte{9, 9, 4}
	c, err := DecodeChests(offsets, contents)
	require.NoError(t, err)
	assert.Equal(t, []ChestItem{9, 9}, c.ForRoom(0))
	assert.False(t, c.HasChests(1))
	assert.False(t, c.HasNoChestsSet(1))
	assert.Equal(t, []ChestItem{4}, c.ForRoom(3))

	o, d, err := c.Bytes(4)
	require.NoError(t, err)
	assert.Equal(t, offsets, o)
	assert.Equal(t, contents, d)

	again, err := DecodeChests(o, d)
	require.NoError(t, err)
	assert.True(t, c.Equal(again))
}

func TestDecodeChests_Malformed(t *testing.T) {
	_, err := DecodeChests([]byte{0, 5}, []byte{1, 2})
	assert.Equal(t, codec.KindMalformed, codec.KindOf(err))

	_, err = DecodeChests([]byte{4, 2}, []byte{1, 2, 3, 4})
	assert.Equal(t, codec.KindMalformed, codec.KindOf(err))
}

func TestChests_Editing(t *testing.T) {
	c := NewChests()
	c.SetRoomChests(2, []ChestItem{7})
	c.SetNoChests(4)
	assert.True(t, c.HasChests(2))

	c.SetNoChests(2)
	assert.False(t, c.HasChests(2))
	c.SetRoomChests(2, []ChestItem{7, 8})
	assert.False(t, c.HasNoChestsSet(2))
	assert.Equal(t, []ChestItem{7, 8}, c.ForRoom(2))

	c.ClearNoChests(4)
	assert.False(t, c.HasNoChestsSet(4))
	c.SetRoomChests(2, nil)
	assert.False(t, c.HasChests(2))

	big := NewChests()
	big.SetRoomChests(0, make([]ChestItem, 200))
	big.SetRoomChests(1, make([]ChestItem, 56))
	_, _, err := big.Bytes(2)
	assert.Equal(t, codec.KindCapacity, codec.KindOf(err))
}

func TestChests_Cleanup(t *testing.T) {
	c := NewChests()
	c.SetRoomChests(0, []ChestItem{1, 2, 3})
	c.SetRoomChests(1, []ChestItem{4})
	c.SetNoChests(3)

	ok := c.Cleanup([]int{2, 0, 2, 1})
	assert.True(t, ok)
	assert.Equal(t, []ChestItem{1, 2}, c.ForRoom(0))
	assert.False(t, c.HasChests(1))
	assert.Equal(t, []ChestItem{0, 0}, c.ForRoom(2))
	assert.True(t, c.HasNoChestsSet(3))
	assert.Empty(t, c.ForRoom(3))

	assert.False(t, c.Cleanup([]int{200, 100}))
}
