// Package blockset implements the compressed map block format. A stream
// holds a block count, three run-length attribute masks (priority, vflip,
// hflip) and the tile indices coded through a 16 entry move-to-front queue.
package blockset

import (
	"math/bits"

	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/tile"
)

const (
	queueSize   = 16
	literalBits = 11
	queueBits   = 4
)

// maskOrder is the order the attribute masks appear in the stream.
var maskOrder = [...]tile.Attribute{tile.AttrPriority, tile.AttrVFlip, tile.AttrHFlip}

type tileQueue [queueSize]int

func (q *tileQueue) push(v int) {
	copy(q[1:], q[:queueSize-1])
	q[0] = v
}

func (q *tileQueue) moveToFront(i int) {
	v := q[i]
	copy(q[1:i+1], q[:i])
	q[0] = v
}

func (q *tileQueue) find(v int) int {
	for i, x := range q {
		if x == v {
			return i
		}
	}
	return -1
}

// readNumber reads an Elias-gamma style number: n zero bits, a one bit, then
// n mantissa bits. The value is 2^n + mantissa - 1, or 0 when n is 0.
func readNumber(bb *codec.BitBarrel) (int, error) {
	exp, err := bb.CountZeros()
	if err != nil {
		return 0, err
	}
	if exp == 0 {
		return 0, nil
	}
	mantissa, err := bb.ReadBits(exp)
	if err != nil {
		return 0, err
	}
	return 1<<exp + int(mantissa) - 1, nil
}

// writeNumber writes v (v >= 1) so that readNumber returns v - 1.
func writeNumber(w *codec.BitBarrelWriter, v int) {
	exp := bits.Len(uint(v)) - 1
	w.WriteBits(0, exp)
	w.WriteBit(true)
	if exp > 0 {
		w.WriteBits(uint32(v-1<<exp), exp)
	}
}

func decodeMask(tiles []tile.Tile, attr tile.Attribute, bb *codec.BitBarrel) error {
	pos := 0
	first := true
	set := false
	for {
		num, err := readNumber(bb)
		if err != nil {
			return err
		}
		if !(first && num == 0) {
			if !first {
				num++
			}
			if pos+num > len(tiles) {
				return codec.ErrBufferOverrun
			}
			if set {
				for i := pos; i < pos+num; i++ {
					tiles[i] = tiles[i].With(attr)
				}
			}
			pos += num
		}
		first = false
		set = !set
		if pos == len(tiles) {
			return nil
		}
	}
}

func decodeTile(q *tileQueue, bb *codec.BitBarrel) (int, error) {
	fromQueue, err := bb.ReadBit()
	if err != nil {
		return 0, err
	}
	if fromQueue {
		idx, err := bb.ReadBits(queueBits)
		if err != nil {
			return 0, err
		}
		if idx != 0 {
			q.moveToFront(int(idx))
		}
	} else {
		v, err := bb.ReadBits(literalBits)
		if err != nil {
			return 0, err
		}
		q.push(int(v))
	}
	return q[0], nil
}

func decodeTiles(tiles []tile.Tile, bb *codec.BitBarrel) error {
	var q tileQueue
	for i := 0; i < len(tiles); i += 2 {
		idx, err := decodeTile(&q, bb)
		if err != nil {
			return err
		}
		tiles[i] = tiles[i].WithIndex(idx)

		explicit, err := bb.ReadBit()
		if err != nil {
			return err
		}
		if !explicit {
			next, err := decodeTile(&q, bb)
			if err != nil {
				return err
			}
			tiles[i+1] = tiles[i+1].WithIndex(next)
		} else if tiles[i].HFlip() {
			tiles[i+1] = tiles[i+1].WithIndex(idx - 1)
		} else {
			tiles[i+1] = tiles[i+1].WithIndex(idx + 1)
		}
	}
	return nil
}

// Decode reads a compressed blockset from src. It returns the blocks and the
// number of bytes consumed.
func Decode(src []byte) (tile.Blockset, int, error) {
	if len(src) < 2 {
		return nil, 0, codec.Malformed("decode blockset", codec.ErrBufferUnderrun, "unexpected end of input data")
	}
	bb := codec.NewBitBarrel(src)
	total, _ := bb.ReadBits(16)
	tiles := make([]tile.Tile, int(total)*tile.BlockSize)

	for _, attr := range maskOrder {
		if err := decodeMask(tiles, attr, bb); err != nil {
			return nil, bb.BytePosition(), codec.Malformed("decode blockset", err, "%s mask", attr)
		}
	}
	if err := decodeTiles(tiles, bb); err != nil {
		return nil, bb.BytePosition(), codec.Malformed("decode blockset", err, "tile indices")
	}

	blocks := make(tile.Blockset, total)
	for i := range blocks {
		copy(blocks[i][:], tiles[i*tile.BlockSize:])
	}
	bb.AdvanceNextByte()
	return blocks, bb.BytePosition(), nil
}

func encodeMask(blocks tile.Blockset, attr tile.Attribute, w *codec.BitBarrelWriter) {
	set := false
	count := 0
	for _, b := range blocks {
		for _, t := range b {
			if t.Has(attr) == set {
				count++
			} else {
				set = !set
				count++
				writeNumber(w, count)
				count = 0
			}
		}
	}
	writeNumber(w, count+1)
}

func encodeTile(q *tileQueue, idx int, w *codec.BitBarrelWriter) {
	pos := q.find(idx)
	if pos < 0 {
		w.WriteBit(false)
		w.WriteBits(uint32(idx), literalBits)
		q.push(idx)
		return
	}
	w.WriteBit(true)
	w.WriteBits(uint32(pos), queueBits)
	if pos != 0 {
		q.moveToFront(pos)
	}
}

// Encode compresses blocks into the format read by Decode.
func Encode(blocks tile.Blockset) ([]byte, error) {
	if len(blocks) > 0xFFFF {
		return nil, codec.Capacity("encode blockset", codec.ErrTooLong, "%d blocks", len(blocks))
	}
	w := codec.NewBitBarrelWriter()
	w.WriteBits(uint32(len(blocks)), 16)
	for _, attr := range maskOrder {
		encodeMask(blocks, attr, w)
	}

	var q tileQueue
	for _, b := range blocks {
		for i := 0; i < tile.BlockSize; i += 2 {
			first := b[i].Index()
			encodeTile(&q, first, w)
			next := first + 1
			if b[i].HFlip() {
				next = first - 1
			}
			if b[i+1].Index() == next {
				w.WriteBit(true)
			} else {
				w.WriteBit(false)
				encodeTile(&q, b[i+1].Index(), w)
			}
		}
	}
	return w.Bytes(), nil
}
