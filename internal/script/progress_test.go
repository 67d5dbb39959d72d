package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/landstalker/internal/codec"
)

var progressBytes = []byte{
	0x00, 0x12, 0x02, 0x00, // quest 0: flag 0x12 -> 2
	0x00, 0x10, 0x01, 0x00, // quest 0: flag 0x10 -> 1
	0xFF, 0xFF,
	0xFF, 0xFF, // quest 1 is empty
	0x01, 0x00, 0x05, 0x00, // quest 2: flag 0x100 -> 5
	0xFF, 0xFF,
}

func TestDecodeProgressFlags(t *testing.T) {
	p, err := DecodeProgressFlags(progressBytes)
	require.NoError(t, err)
	assert.Equal(t, 3, p.Len())

	f, ok := p.Flag(0, 2)
	assert.True(t, ok)
	assert.Equal(t, uint16(0x12), f)
	f, ok = p.Flag(2, 5)
	assert.True(t, ok)
	assert.Equal(t, uint16(0x100), f)
	_, ok = p.Flag(1, 0)
	assert.False(t, ok)

	assert.Equal(t, []ProgressFlag{
		{QuestProgress{0, 1}, 0x10},
		{QuestProgress{0, 2}, 0x12},
		{QuestProgress{2, 5}, 0x100},
	}, p.Entries())

	b, err := p.Bytes()
	require.NoError(t, err)
	assert.Equal(t, progressBytes, b)
}

func TestDecodeProgressFlags_Malformed(t *testing.T) {
	_, err := DecodeProgressFlags(progressBytes[:6])
	assert.Equal(t, codec.KindMalformed, codec.KindOf(err))
	_, err = DecodeProgressFlags(progressBytes[:8])
	assert.Equal(t, codec.KindMalformed, codec.KindOf(err))
	_, err = DecodeProgressFlags([]byte{0xFF})
	assert.Equal(t, codec.KindMalformed, codec.KindOf(err))

	empty, err := DecodeProgressFlags(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
}

func TestProgressFlags_Editing(t *testing.T) {
	p := NewProgressFlags()
	p.Set(1, 3, 0x44)
	p.Set(1, 4, 0x45)
	p.Delete(1, 4)

	b, err := p.Bytes()
	require.NoError(t, err)
	assert.Equal(t, []byte{0xFF, 0xFF, 0x00, 0x44, 0x03, 0x00, 0xFF, 0xFF}, b)

	p.Set(0, 0, 0xFFFF)
	_, err = p.Bytes()
	assert.Equal(t, codec.KindCapacity, codec.KindOf(err))
}

func TestProgressFlags_Yaml(t *testing.T) {
	p, err := DecodeProgressFlags(progressBytes)
	require.NoError(t, err)

	text := p.ToYaml()
	assert.Equal(t, "- Quest: 0\n"+
		"  QuestProgress:\n"+
		"    - OnFlagSet: 0x0012\n"+
		"      SetProgress: 2\n"+
		"    - OnFlagSet: 0x0010\n"+
		"      SetProgress: 1\n"+
		"- Quest: 1\n"+
		"  QuestProgress: []\n"+
		"- Quest: 2\n"+
		"  QuestProgress:\n"+
		"    - OnFlagSet: 0x0100\n"+
		"      SetProgress: 5\n", text)

	back, err := ProgressFlagsFromYaml([]byte(text))
	require.NoError(t, err)
	assert.True(t, p.Equal(back))

	_, err = ProgressFlagsFromYaml([]byte("Quest: [\n"))
	assert.Equal(t, codec.KindMalformed, codec.KindOf(err))
	assert.Equal(t, "[]\n", NewProgressFlags().ToYaml())
}
