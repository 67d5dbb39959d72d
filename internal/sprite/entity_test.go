package sprite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/landstalker/internal/codec"
)

var guard = Entity{
	Type: 0x6A, X: 0x1F80, Y: 0x1000, Z: 0x180,
	Orientation: FacingSW, Palette: 1, Speed: 3,
	Behaviour: 0x123, Dialogue: 5,
	CopySource: 2, CopyTiles: true,
	Hostile: true, NoGravity: true,
}

var guardBytes = []byte{0x9F, 0x4F, 0x83, 0x52, 0x15, 0x6A, 0xC1, 0x23}

func TestEntity_Bytes(t *testing.T) {
	b, err := guard.Bytes()
	require.NoError(t, err)
	assert.Equal(t, guardBytes, b)

	e, err := DecodeEntity(guardBytes)
	require.NoError(t, err)
	assert.Equal(t, guard, e)
}

func TestNewEntity(t *testing.T) {
	e := NewEntity()
	b, err := e.Bytes()
	require.NoError(t, err)
	again, err := DecodeEntity(b)
	require.NoError(t, err)
	assert.Equal(t, e, again)
	assert.Equal(t, uint8(2), again.Palette)
}

func TestEntity_InvalidFields(t *testing.T) {
	for name, mod := range map[string]func(*Entity){
		"x off grid":   func(e *Entity) { e.X = 0x1F81 },
		"x too small":  func(e *Entity) { e.X = 0 },
		"y too large":  func(e *Entity) { e.Y = 0x4080 },
		"z too high":   func(e *Entity) { e.Z = 0x1000 },
		"speed":        func(e *Entity) { e.Speed = 8 },
		"behaviour":    func(e *Entity) { e.Behaviour = 0x400 },
		"dialogue":     func(e *Entity) { e.Dialogue = 0x40 },
		"palette":      func(e *Entity) { e.Palette = 4 },
		"copy source":  func(e *Entity) { e.CopySource = 0x10 },
		"terminator": func(e *Entity) {
			e.X, e.Y, e.Orientation, e.Palette = 0x3F80, 0x3F80, FacingNW, 3
		},
	} {
		e := guard
		mod(&e)
		_, err := e.Bytes()
		require.Error(t, err, name)
		assert.Equal(t, codec.KindMalformed, codec.KindOf(err), name)
	}
}

func TestRoomEntities(t *testing.T) {
	offsets := []byte{0x00, 0x01, 0x00, 0x00, 0x00, 0x0B}
	table := append(append([]byte{}, guardBytes...), 0xFF, 0xFF, 0xFF, 0xFF)

	re, err := DecodeRoomEntities(offsets, table)
	require.NoError(t, err)
	assert.Equal(t, []uint16{0, 2}, re.Rooms())

	list, ok := re.Entities(0)
	require.True(t, ok)
	assert.Equal(t, []Entity{guard}, list)
	_, ok = re.Entities(1)
	assert.False(t, ok)
	list, ok = re.Entities(2)
	assert.True(t, ok)
	assert.Empty(t, list)

	o, d, err := re.Bytes(3)
	require.NoError(t, err)
	assert.Equal(t, offsets, o)
	assert.Equal(t, table, d)

	again, err := DecodeRoomEntities(o, d)
	require.NoError(t, err)
	assert.True(t, re.Equal(again))

	again.Remove(2)
	assert.False(t, re.Equal(again))
	again.SetEntities(2, nil)
	assert.True(t, re.Equal(again))
}

func TestRoomEntities_Errors(t *testing.T) {
	_, err := DecodeRoomEntities([]byte{0x00}, nil)
	assert.Error(t, err)

	_, err = DecodeRoomEntities([]byte{0x00, 0x01}, guardBytes)
	assert.Error(t, err)

	re := NewRoomEntities()
	re.SetEntities(5, []Entity{guard})
	_, _, err = re.Bytes(3)
	require.Error(t, err)
	assert.Equal(t, codec.KindCapacity, codec.KindOf(err))
}
