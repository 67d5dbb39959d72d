package huffman

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/logging"
)

// DefaultEOS is the end-of-string character of the main string bank.
const DefaultEOS = 0x55

const noTree = 0xFFFF

// maxStringChars bounds decoding when single-leaf trees consume no bits.
const maxStringChars = 0xFFFF

// FrequencyCounts maps a previous character to counts of the characters that follow it.
type FrequencyCounts map[byte]map[byte]int

// Add counts every character pair in chars, starting from eos.
func (f FrequencyCounts) Add(chars []byte, eos byte) {
	last := eos
	for _, c := range chars {
		m, ok := f[last]
		if !ok {
			m = make(map[byte]int)
			f[last] = m
		}
		m[c]++
		last = c
	}
}

// Trees is the full set of context trees, keyed on the previous character.
type Trees struct {
	numChars int
	trees    map[byte]*Tree
}

// NewTrees returns an empty set that will encode an offset table of numChars entries.
func NewTrees(numChars int) *Trees {
	return &Trees{numChars: numChars, trees: make(map[byte]*Tree)}
}

// DecodeTrees reads numChars big-endian offsets from offsets, each locating a
// tree inside data. An offset of 0xFFFF means that character has no tree.
func DecodeTrees(offsets, data []byte, numChars int) (*Trees, error) {
	if len(offsets) < numChars*2 {
		return nil, codec.Malformed("huffman decode trees", codec.ErrBufferUnderrun,
			"offset table holds %d bytes, need %d", len(offsets), numChars*2)
	}
	t := NewTrees(numChars)
	for c := 0; c < numChars; c++ {
		off := int(offsets[c*2])<<8 | int(offsets[c*2+1])
		if off == noTree {
			continue
		}
		tree, _, err := DecodeTree(data, off)
		if err != nil {
			return nil, err
		}
		t.trees[byte(c)] = tree
	}
	return t, nil
}

// Recalculate builds a fresh tree for every context present in freq.
func Recalculate(freq FrequencyCounts, numChars int) (*Trees, error) {
	logging.Debug("Recalculating Huffman trees...")
	t := NewTrees(numChars)
	for c, counts := range freq {
		tree, err := NewTreeFromFrequencies(counts)
		if err != nil {
			return nil, errors.Wrapf(err, "context 0x%02X", c)
		}
		t.trees[c] = tree
	}
	return t, nil
}

// NumChars returns the number of entries in the offset table.
func (t *Trees) NumChars() int {
	return t.numChars
}

// Tree returns the tree used after character c.
func (t *Trees) Tree(c byte) (*Tree, bool) {
	tree, ok := t.trees[c]
	return tree, ok
}

// Encode serialises the offset table and the concatenated trees.
func (t *Trees) Encode() (offsets, data []byte, err error) {
	keys := make([]int, 0, len(t.trees))
	for c := range t.trees {
		keys = append(keys, int(c))
	}
	sort.Ints(keys)

	size := t.numChars
	if len(keys) > 0 && keys[len(keys)-1]+1 > size {
		size = keys[len(keys)-1] + 1
	}
	offsets = make([]byte, size*2)
	for i := range offsets {
		offsets[i] = 0xFF
	}

	for _, c := range keys {
		enc, off := t.trees[byte(c)].Encode()
		result := off + len(data)
		offsets[c*2] = byte(result >> 8)
		offsets[c*2+1] = byte(result)
		data = append(data, enc...)
		if result > 0xFFFE || len(data) > 0xFFFF {
			return nil, nil, codec.Capacity("huffman encode trees", codec.ErrBufferOverrun, "tree data size out of range")
		}
	}
	return offsets, data, nil
}

// CompressString encodes chars, each using the tree of the character before
// it. The final character must be eos.
func (t *Trees) CompressString(chars []byte, eos byte) ([]byte, error) {
	last := eos
	w := codec.NewBitBarrelWriter()
	for _, c := range chars {
		tree, ok := t.trees[last]
		if !ok {
			return nil, codec.Malformed("huffman compress", codec.ErrNoHuffmanTable, "0x%02X", last)
		}
		if !tree.EncodeChar(c, w) {
			return nil, codec.Malformed("huffman compress", codec.ErrNoHuffmanTable,
				"no entry in table 0x%02X for character 0x%02X", last, c)
		}
		last = c
	}
	if last != eos {
		return nil, codec.Malformed("huffman compress", ErrNoTerminator,
			"string terminator 0x%02X not last character in string", eos)
	}
	return w.Bytes(), nil
}

// DecompressString decodes characters until eos. Running out of bits first
// is an error.
func (t *Trees) DecompressString(data []byte, eos byte) ([]byte, error) {
	var out []byte
	last := eos
	bb := codec.NewBitBarrel(data)
	for {
		tree, ok := t.trees[last]
		if !ok {
			return nil, codec.Malformed("huffman decompress", codec.ErrNoHuffmanTable, "0x%02X", last)
		}
		c, err := tree.DecodeChar(bb)
		if err != nil {
			return nil, codec.Malformed("huffman decompress", err, "")
		}
		out = append(out, c)
		last = c
		if last == eos {
			return out, nil
		}
		if len(out) > maxStringChars {
			return nil, codec.Malformed("huffman decompress", ErrNoTerminator, "none after %d characters", len(out))
		}
	}
}
