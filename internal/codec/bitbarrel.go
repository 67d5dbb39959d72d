package codec

// BitBarrel provides bit-level reading from a byte slice.
// Bits are read MSB-first (most significant bit first).
type BitBarrel struct {
	data []byte
	pos  int // absolute bit position
}

// NewBitBarrel creates a new bit reader positioned at the first bit of data
func NewBitBarrel(data []byte) *BitBarrel {
	return &BitBarrel{data: data}
}

// ReadBit reads a single bit
func (bb *BitBarrel) ReadBit() (bool, error) {
	idx := bb.pos >> 3
	if idx >= len(bb.data) {
		return false, ErrBufferUnderrun
	}
	bit := bb.data[idx]&(0x80>>(bb.pos&7)) != 0
	bb.pos++
	return bit, nil
}

// ReadBits reads n bits (up to 32) and composes them big-endian
func (bb *BitBarrel) ReadBits(n int) (uint32, error) {
	var v uint32
	for i := 0; i < n; i++ {
		bit, err := bb.ReadBit()
		if err != nil {
			return 0, err
		}
		v <<= 1
		if bit {
			v |= 1
		}
	}
	return v, nil
}

// CountZeros consumes zero bits up to and including the first one bit and
// returns the number of zeros seen.
func (bb *BitBarrel) CountZeros() (int, error) {
	count := 0
	for {
		bit, err := bb.ReadBit()
		if err != nil {
			return count, err
		}
		if bit {
			return count, nil
		}
		count++
	}
}

// AdvanceNextByte skips the remaining bits of a partially read byte.
func (bb *BitBarrel) AdvanceNextByte() {
	bb.pos = (bb.pos + 7) &^ 7
}

// BytePosition returns the number of bytes touched so far.
func (bb *BitBarrel) BytePosition() int {
	return (bb.pos + 7) >> 3
}

// BitPosition returns the absolute bit offset of the next read.
func (bb *BitBarrel) BitPosition() int {
	return bb.pos
}

// Remaining returns the number of unread bits.
func (bb *BitBarrel) Remaining() int {
	return len(bb.data)*8 - bb.pos
}

// BitBarrelWriter accumulates bits MSB-first into a growing byte slice.
type BitBarrelWriter struct {
	buf    []byte
	bitpos int // next bit inside the last byte, -1 when a new byte is needed
}

// NewBitBarrelWriter creates an empty bit writer
func NewBitBarrelWriter() *BitBarrelWriter {
	return &BitBarrelWriter{bitpos: -1}
}

// WriteBit appends a single bit
func (w *BitBarrelWriter) WriteBit(bit bool) {
	if w.bitpos < 0 {
		w.AdvanceNextByte()
	}
	if bit {
		w.buf[len(w.buf)-1] |= 1 << w.bitpos
	}
	w.bitpos--
}

// WriteBits appends the low n bits of value, most significant first
func (w *BitBarrelWriter) WriteBits(value uint32, n int) {
	for n > 0 {
		n--
		w.WriteBit(value&(1<<n) != 0)
	}
}

// WriteByte appends eight bits. It never fails.
func (w *BitBarrelWriter) WriteByte(b byte) error {
	w.WriteBits(uint32(b), 8)
	return nil
}

// AdvanceNextByte starts a new zero byte unless the current one is still
// untouched. Called straight after a completed byte it appends a zero byte.
func (w *BitBarrelWriter) AdvanceNextByte() {
	if w.bitpos != 7 {
		w.bitpos = 7
		w.buf = append(w.buf, 0)
	}
}

// ByteCount returns the number of bytes written, including a partial byte.
func (w *BitBarrelWriter) ByteCount() int {
	return len(w.buf)
}

// Bytes returns the written bytes.
func (w *BitBarrelWriter) Bytes() []byte {
	return w.buf
}
