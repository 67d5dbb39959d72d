// Package huffman implements the per-character Huffman trees used to
// compress in-game strings. Each character has its own tree that encodes the
// character following it.
package huffman

import (
	"container/heap"
	"errors"
	"sort"

	"github.com/rcarmo/landstalker/internal/codec"
)

// internalChar marks a node that is not a leaf.
const internalChar = 0xFF

var (
	// ErrTreeCorrupt indicates a tree whose bit layout does not describe a binary tree.
	ErrTreeCorrupt = errors.New("huffman tree is corrupt")
	// ErrNoTerminator indicates a string that does not end with its end-of-string character.
	ErrNoTerminator = errors.New("string terminator missing")
	// ErrReservedChar indicates a leaf for the byte that marks internal nodes.
	ErrReservedChar = errors.New("character 0xFF cannot be a leaf")
)

type node struct {
	chr    byte
	weight int
	seq    int
	left   *node
	right  *node
	parent *node
}

func (n *node) isLeaf() bool {
	return n.chr != internalChar
}

// Tree is a single Huffman tree mapping characters to bit codes.
type Tree struct {
	root  *node
	codes map[byte]string
}

// NewTree returns a tree with an empty root.
func NewTree() *Tree {
	t := &Tree{root: &node{chr: internalChar}}
	t.updateCodes()
	return t
}

// nodeHeap is a min-heap on weight. Ties resolve by creation order so tree
// shape does not depend on map iteration.
type nodeHeap []*node

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].weight != h[j].weight {
		return h[i].weight < h[j].weight
	}
	return h[i].seq < h[j].seq
}
func (h nodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x interface{}) { *h = append(*h, x.(*node)) }
func (h *nodeHeap) Pop() interface{} {
	old := *h
	n := old[len(old)-1]
	*h = old[:len(old)-1]
	return n
}

// NewTreeFromFrequencies builds an optimal tree from character weights.
// 0xFF marks internal nodes in the stored form, so it cannot be a leaf.
func NewTreeFromFrequencies(freq map[byte]int) (*Tree, error) {
	if _, ok := freq[internalChar]; ok {
		return nil, codec.Malformed("huffman build tree", ErrReservedChar, "")
	}
	chars := make([]int, 0, len(freq))
	for c := range freq {
		chars = append(chars, int(c))
	}
	sort.Ints(chars)

	h := make(nodeHeap, 0, len(chars))
	seq := 0
	for _, c := range chars {
		h = append(h, &node{chr: byte(c), weight: freq[byte(c)], seq: seq})
		seq++
	}
	heap.Init(&h)

	for h.Len() > 1 {
		left := heap.Pop(&h).(*node)
		right := heap.Pop(&h).(*node)
		parent := &node{chr: internalChar, weight: left.weight + right.weight, seq: seq, left: left, right: right}
		seq++
		left.parent = parent
		right.parent = parent
		heap.Push(&h, parent)
	}

	t := &Tree{root: &node{chr: internalChar}}
	if h.Len() == 1 {
		t.root = h[0]
		t.root.parent = nil
	}
	t.updateCodes()
	return t, nil
}

// DecodeTree reads a tree whose bit stream starts at data[offset]. Leaf
// characters are stored in reverse immediately before offset. It returns the
// number of bit stream bytes consumed.
func DecodeTree(data []byte, offset int) (*Tree, int, error) {
	if offset < 0 || offset > len(data) {
		return nil, 0, codec.Malformed("huffman decode tree", codec.ErrBufferUnderrun, "offset %d outside %d bytes", offset, len(data))
	}
	bb := codec.NewBitBarrel(data[offset:])
	charPos := offset
	root := &node{chr: internalChar}
	cur := root

	for {
		bit, err := bb.ReadBit()
		if err != nil {
			return nil, bb.BytePosition(), codec.Malformed("huffman decode tree", err, "")
		}
		if !bit {
			if cur.left != nil {
				return nil, bb.BytePosition(), codec.Malformed("huffman decode tree", ErrTreeCorrupt, "")
			}
			cur.left = &node{chr: internalChar, parent: cur}
			cur = cur.left
			continue
		}

		charPos--
		if charPos < 0 {
			return nil, bb.BytePosition(), codec.Malformed("huffman decode tree", codec.ErrBufferUnderrun, "leaf characters run before start of data")
		}
		cur.chr = data[charPos]
		if cur == root {
			break
		}
		for {
			cur = cur.parent
			if cur == root || cur.right == nil {
				break
			}
		}
		if cur == root && cur.right != nil {
			break
		}
		cur.right = &node{chr: internalChar, parent: cur}
		cur = cur.right
	}

	t := &Tree{root: root}
	t.updateCodes()
	return t, bb.BytePosition(), nil
}

// Encode serialises the tree. The result holds the leaf characters in
// reverse order followed by the bit stream; the returned offset is where the
// bit stream begins.
func (t *Tree) Encode() ([]byte, int) {
	var chars []byte
	w := codec.NewBitBarrelWriter()
	encodePreorder(w, &chars, t.root)

	out := make([]byte, 0, len(chars)+w.ByteCount())
	for i := len(chars) - 1; i >= 0; i-- {
		out = append(out, chars[i])
	}
	offset := len(out)
	out = append(out, w.Bytes()...)
	return out, offset
}

func encodePreorder(w *codec.BitBarrelWriter, chars *[]byte, n *node) {
	if n == nil {
		return
	}
	if n.isLeaf() {
		*chars = append(*chars, n.chr)
		w.WriteBit(true)
		return
	}
	if n.left != nil {
		w.WriteBit(false)
		encodePreorder(w, chars, n.left)
	}
	if n.right != nil {
		encodePreorder(w, chars, n.right)
	}
}

// DecodeChar walks the tree using bits from bb and returns the leaf reached.
func (t *Tree) DecodeChar(bb *codec.BitBarrel) (byte, error) {
	cur := t.root
	for !cur.isLeaf() {
		bit, err := bb.ReadBit()
		if err != nil {
			return 0, err
		}
		if bit {
			cur = cur.right
		} else {
			cur = cur.left
		}
		if cur == nil {
			return 0, ErrTreeCorrupt
		}
	}
	return cur.chr, nil
}

// EncodeChar writes the code for chr. It reports false if chr has no code.
func (t *Tree) EncodeChar(chr byte, w *codec.BitBarrelWriter) bool {
	code, ok := t.codes[chr]
	if !ok {
		return false
	}
	for _, c := range code {
		w.WriteBit(c == '1')
	}
	return true
}

// Code returns the bit string for chr, e.g. "0110".
func (t *Tree) Code(chr byte) (string, bool) {
	code, ok := t.codes[chr]
	return code, ok
}

// Chars returns every leaf character in ascending order.
func (t *Tree) Chars() []byte {
	chars := make([]byte, 0, len(t.codes))
	for c := range t.codes {
		chars = append(chars, c)
	}
	sort.Slice(chars, func(i, j int) bool { return chars[i] < chars[j] })
	return chars
}

func (t *Tree) updateCodes() {
	t.codes = make(map[byte]string)
	var walk func(n *node, prefix string)
	walk = func(n *node, prefix string) {
		if n.isLeaf() {
			t.codes[n.chr] = prefix
			return
		}
		if n.left != nil {
			walk(n.left, prefix+"0")
		}
		if n.right != nil {
			walk(n.right, prefix+"1")
		}
	}
	walk(t.root, "")
}
