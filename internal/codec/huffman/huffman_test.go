package huffman

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/landstalker/internal/codec"
)

func TestNewTreeFromFrequencies_Codes(t *testing.T) {
	tree, err := NewTreeFromFrequencies(map[byte]int{1: 5, 2: 2, 3: 1})
	require.NoError(t, err)

	tests := []struct {
		chr  byte
		code string
	}{
		{1, "1"},
		{2, "01"},
		{3, "00"},
	}
	for _, tt := range tests {
		code, ok := tree.Code(tt.chr)
		require.True(t, ok)
		assert.Equal(t, tt.code, code, "char %d", tt.chr)
	}
	assert.Equal(t, []byte{1, 2, 3}, tree.Chars())
}

func TestNewTreeFromFrequencies_ReservedLeaf(t *testing.T) {
	_, err := NewTreeFromFrequencies(map[byte]int{1: 5, 0xFF: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReservedChar)
	assert.Equal(t, codec.KindMalformed, codec.KindOf(err))

	freq := FrequencyCounts{}
	freq.Add([]byte{0x01, 0xFF, 0x55}, 0x55)
	_, err = Recalculate(freq, 0x56)
	assert.ErrorIs(t, err, ErrReservedChar)
}

func TestTree_EncodeLayout(t *testing.T) {
	tree, err := NewTreeFromFrequencies(map[byte]int{1: 5, 2: 2, 3: 1})
	require.NoError(t, err)

	data, offset := tree.Encode()

	// Leaves reversed, then preorder bits 00111.
	assert.Equal(t, []byte{1, 2, 3, 0x38}, data)
	assert.Equal(t, 3, offset)
}

func TestDecodeTree(t *testing.T) {
	tree, consumed, err := DecodeTree([]byte{1, 2, 3, 0x38}, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, consumed)

	for chr, want := range map[byte]string{1: "1", 2: "01", 3: "00"} {
		code, ok := tree.Code(chr)
		require.True(t, ok)
		assert.Equal(t, want, code)
	}
}

func TestDecodeTree_SingleLeaf(t *testing.T) {
	tree, _, err := DecodeTree([]byte{0x42, 0x80}, 1)
	require.NoError(t, err)

	code, ok := tree.Code(0x42)
	require.True(t, ok)
	assert.Equal(t, "", code)

	// A single leaf consumes no bits.
	c, err := tree.DecodeChar(codec.NewBitBarrel(nil))
	require.NoError(t, err)
	assert.Equal(t, byte(0x42), c)
}

func TestDecodeTree_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		data   []byte
		offset int
	}{
		{"offset past end", []byte{0x00}, 4},
		{"bits run out", []byte{0x01, 0x00}, 1},
		{"leaf without character", []byte{0x80}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeTree(tt.data, tt.offset)
			require.Error(t, err)
			assert.True(t, codec.IsKind(err, codec.KindMalformed))
		})
	}
}

func TestTrees_CompressRoundTrip(t *testing.T) {
	const eos = DefaultEOS
	rng := rand.New(rand.NewSource(7))

	var strs [][]byte
	for i := 0; i < 50; i++ {
		s := make([]byte, 1+rng.Intn(40))
		for j := range s {
			s[j] = byte(rng.Intn(20))
		}
		strs = append(strs, append(s, eos))
	}

	freq := FrequencyCounts{}
	for _, s := range strs {
		freq.Add(s, eos)
	}
	trees, err := Recalculate(freq, 0x56)
	require.NoError(t, err)

	offsets, data, err := trees.Encode()
	require.NoError(t, err)
	assert.Len(t, offsets, 0x56*2)

	decoded, err := DecodeTrees(offsets, data, 0x56)
	require.NoError(t, err)

	for _, s := range strs {
		compressed, err := trees.CompressString(s, eos)
		require.NoError(t, err)

		out, err := decoded.DecompressString(compressed, eos)
		require.NoError(t, err)
		assert.Equal(t, s, out)
	}
}

func TestTrees_EncodeUnusedSlots(t *testing.T) {
	freq := FrequencyCounts{}
	freq.Add([]byte{0x01, 0x55}, 0x55)
	trees, err := Recalculate(freq, 4)
	require.NoError(t, err)

	offsets, _, err := trees.Encode()
	require.NoError(t, err)

	// Table grows to cover the highest context (0x55) and unused slots are 0xFFFF.
	require.Len(t, offsets, 0x56*2)
	assert.Equal(t, []byte{0xFF, 0xFF}, offsets[0:2])
	assert.NotEqual(t, []byte{0xFF, 0xFF}, offsets[2:4])
}

func TestTrees_CompressErrors(t *testing.T) {
	freq := FrequencyCounts{}
	freq.Add([]byte{0x01, 0x02, 0x55}, 0x55)
	trees, err := Recalculate(freq, 0x56)
	require.NoError(t, err)

	_, err = trees.CompressString([]byte{0x01, 0x02}, 0x55)
	assert.ErrorIs(t, err, ErrNoTerminator)

	_, err = trees.CompressString([]byte{0x02, 0x55}, 0x55)
	assert.ErrorIs(t, err, codec.ErrNoHuffmanTable)

	_, err = trees.CompressString([]byte{0x01, 0x03, 0x55}, 0x55)
	assert.ErrorIs(t, err, codec.ErrNoHuffmanTable)
}

func TestTrees_DecompressMissingTable(t *testing.T) {
	trees := NewTrees(0x56)
	_, err := trees.DecompressString([]byte{0x00}, 0x55)
	assert.ErrorIs(t, err, codec.ErrNoHuffmanTable)
}

func TestDecodeTrees_ShortTable(t *testing.T) {
	_, err := DecodeTrees([]byte{0xFF}, nil, 1)
	require.Error(t, err)
	assert.Equal(t, codec.KindMalformed, codec.KindOf(err))
}
