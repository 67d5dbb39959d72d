package map3d

import (
	"math/bits"
	"sort"

	"github.com/rcarmo/landstalker/internal/codec"
)

// Compressed room layout:
//
//	header     left, top, width-1, height*2-1 (bytes)
//	tiles      10 bit increment base, 10 bit literal counter,
//	           eight 12 bit copy distances
//	markers    coded position deltas, each with a command and an optional
//	           vertical chain of repeats
//	tile ops   2 bit operations filling the literal runs
//	heightmap  byte aligned: width, height, then RLE of 16 bit cells
//
// Both layers are compressed as one buffer, foreground first.
const (
	fixedOffsets = 6
	offsetSlots  = 14
	offsetBits   = 12
	tileBits     = 10
	maxLookback  = 1<<offsetBits - 1
	maxCodedExp  = 16

	literalMarker = 0xFFFF

	opLiteral    = 0
	opRelative   = 1
	opLiteralInc = 2
	opIncrement  = 3
)

func decodeErr(err error, format string, args ...interface{}) error {
	return codec.Malformed("decode 3d map", err, format, args...)
}

// bitReader keeps the first read error so the decode loops stay readable.
type bitReader struct {
	bb  *codec.BitBarrel
	err error
}

func (r *bitReader) bits(n int) int {
	if r.err != nil {
		return 0
	}
	v, err := r.bb.ReadBits(n)
	r.err = err
	return int(v)
}

func (r *bitReader) bit() bool {
	return r.bits(1) == 1
}

// coded reads an exponent in unary, then that many bits below the leading
// one. An exponent of zero reads as 1.
func (r *bitReader) coded() int {
	if r.err != nil {
		return 0
	}
	exp, err := r.bb.CountZeros()
	if err != nil {
		r.err = err
		return 0
	}
	if exp == 0 {
		return 1
	}
	if exp > maxCodedExp {
		r.err = codec.ErrTooLong
		return 0
	}
	return 1<<exp + r.bits(exp)
}

func (m *Tilemap3D) offsetTable() [offsetSlots]int {
	return [offsetSlots]int{0, 1, 2, m.width, m.width * 2, m.width + 1}
}

// Decode reads a compressed room and returns it with the number of bytes
// consumed.
func Decode(src []byte) (*Tilemap3D, int, error) {
	r := &bitReader{bb: codec.NewBitBarrel(src)}
	m := &Tilemap3D{tileWidth: defaultTileWidth, tileHeight: defaultTileHeight}

	m.left = r.bits(8)
	m.top = r.bits(8)
	m.width = r.bits(8) + 1
	m.height = (r.bits(8) + 1) / 2
	incBase := r.bits(tileBits)
	litStart := r.bits(tileBits)
	offsets := m.offsetTable()
	for i := fixedOffsets; i < offsetSlots; i++ {
		offsets[i] = r.bits(offsetBits)
	}
	if r.err != nil {
		return nil, r.bb.BytePosition(), decodeErr(r.err, "header")
	}
	if m.height == 0 {
		return nil, r.bb.BytePosition(), decodeErr(codec.ErrBufferUnderrun, "zero height room")
	}

	total := m.Size() * 2
	marks := make([]int, total)
	mark := func(pos, value int) bool {
		if pos >= total {
			r.err = codec.ErrBufferOverrun
			return false
		}
		marks[pos] = value
		return true
	}

	for pos := -1; r.err == nil; {
		pos += r.coded()
		if pos >= total || r.err != nil {
			break
		}
		cmd := r.bits(3)
		if cmd >= fixedOffsets {
			cmd = fixedOffsets + ((cmd&1)<<2 | r.bits(2))
		}
		value := offsets[cmd]
		if cmd == 0 {
			value = literalMarker
		}
		mark(pos, value)
		if !r.bit() {
			continue
		}
		row := pos
		right := r.bit()
		for more := true; more && r.err == nil; more = r.bit() {
			for repeat := true; repeat && r.err == nil; repeat = r.bit() {
				row += m.width
				if right {
					row++
				}
				if !mark(row, value) {
					break
				}
			}
			right = !right
		}
	}
	if r.err != nil {
		return nil, r.bb.BytePosition(), decodeErr(r.err, "block markers")
	}

	buf := make([]uint16, total)
	ctr0, ctr1 := litStart, incBase
	for dst := 0; dst < total; {
		op := marks[dst]
		if op != literalMarker {
			if op == 0 || op > dst {
				return nil, r.bb.BytePosition(), decodeErr(codec.ErrBufferUnderrun, "copy distance %d at block %d", op, dst)
			}
			for {
				buf[dst] = buf[dst-op]
				dst++
				if dst >= total || marks[dst] != 0 {
					break
				}
			}
			continue
		}
		for {
			var v int
			switch r.bits(2) {
			case opLiteral:
				if ctr0 != 0 {
					v = r.bits(bits.Len(uint(ctr0)))
				}
			case opRelative:
				v = incBase
				if ctr1 != incBase {
					v += r.bits(bits.Len(uint(ctr1 - incBase)))
				}
			case opLiteralInc:
				v = ctr0
				ctr0++
			case opIncrement:
				v = ctr1
				ctr1++
			}
			buf[dst] = uint16(v)
			dst++
			if r.err != nil {
				return nil, r.bb.BytePosition(), decodeErr(r.err, "block %d", dst-1)
			}
			if dst >= total || marks[dst] != 0 {
				break
			}
		}
	}
	half := total / 2
	m.foreground = buf[:half:half]
	m.background = buf[half:]

	r.bb.AdvanceNextByte()
	m.hmWidth = r.bits(8)
	m.hmHeight = r.bits(8)
	m.heightmap = make([]uint16, m.hmWidth*m.hmHeight)
	var pattern uint16
	remaining := 0
	for i := range m.heightmap {
		if remaining == 0 {
			pattern = uint16(r.bits(16))
			for {
				b := r.bits(8)
				remaining += b
				if b != 0xFF || r.err != nil {
					break
				}
			}
			remaining++
		}
		m.heightmap[i] = pattern
		remaining--
	}
	if r.err != nil {
		return nil, r.bb.BytePosition(), decodeErr(r.err, "heightmap")
	}
	r.bb.AdvanceNextByte()
	log.Debug("decoded %dx%d room, %dx%d heightmap, %d bytes", m.width, m.height, m.hmWidth, m.hmHeight, r.bb.BytePosition())
	return m, r.bb.BytePosition(), nil
}

func (m *Tilemap3D) checkEncodable() error {
	const op = "encode 3d map"
	switch {
	case m.width < 1 || m.width > 0x100 || m.height < 1 || m.height > 0x80:
		return codec.Capacity(op, codec.ErrTooLong, "%dx%d layers", m.width, m.height)
	case m.left < 0 || m.left > 0xFF || m.top < 0 || m.top > 0xFF:
		return codec.Capacity(op, codec.ErrTooLong, "offset %d,%d", m.left, m.top)
	case m.hmWidth < 0 || m.hmWidth > 0xFF || m.hmHeight < 0 || m.hmHeight > 0xFF:
		return codec.Capacity(op, codec.ErrTooLong, "%dx%d heightmap", m.hmWidth, m.hmHeight)
	case len(m.foreground) != m.Size() || len(m.background) != m.Size() || len(m.heightmap) != m.HeightmapSize():
		return codec.Malformed(op, codec.ErrBufferUnderrun, "layer sizes do not match dimensions")
	}
	for i, layer := range [][]uint16{m.foreground, m.background} {
		for j, v := range layer {
			if v > BlockMask {
				return codec.Capacity(op, codec.ErrTooLong, "block %#x at %s %d", v, Layer(1-i), j)
			}
		}
	}
	return nil
}

// runAt is the number of blocks from pos matching those dist back.
func runAt(in []uint16, pos, dist int) int {
	n := 0
	for pos+n < len(in) && in[pos-dist+n] == in[pos+n] {
		n++
	}
	return n
}

// chooseOffsets fills the eight free distance slots with the distances that
// most often give the longest match, highest count first.
func (m *Tilemap3D) chooseOffsets(in []uint16) [offsetSlots]int {
	freq := make(map[int]int)
	for pos := 1; pos < len(in); {
		lookback := pos
		if lookback > maxLookback {
			lookback = maxLookback
		}
		best := 0
		for d := 1; d <= lookback; d++ {
			if n := runAt(in, pos, d); n > best {
				best = n
			}
		}
		if best < 2 {
			pos++
			continue
		}
		for d := 1; d <= lookback; d++ {
			if runAt(in, pos, d) == best {
				freq[d]++
			}
		}
		pos += best
	}

	offsets := m.offsetTable()
	fixed := make(map[int]bool)
	for _, o := range offsets[:fixedOffsets] {
		fixed[o] = true
	}
	cands := make([]int, 0, len(freq))
	for d := range freq {
		if !fixed[d] {
			cands = append(cands, d)
		}
	}
	sort.Slice(cands, func(i, j int) bool {
		if freq[cands[i]] != freq[cands[j]] {
			return freq[cands[i]] > freq[cands[j]]
		}
		return cands[i] < cands[j]
	})
	for i := 0; i < len(cands) && fixedOffsets+i < offsetSlots; i++ {
		offsets[fixedOffsets+i] = cands[i]
	}
	return offsets
}

// findMatch picks the slot giving the longest copy at pos, preferring
// lower slots. Slot 0 with length 1 means no copy applies.
func findMatch(in []uint16, pos int, offsets [offsetSlots]int) (slot, length int) {
	lookback := pos
	if lookback > maxLookback {
		lookback = maxLookback
	}
	for i, d := range offsets {
		if d == 0 || d > lookback {
			continue
		}
		if n := runAt(in, pos, d); n > length {
			slot, length = i, n
		}
	}
	if length == 0 {
		return 0, 1
	}
	return slot, length
}

type verticalRun struct {
	right bool
	count int
}

type marker struct {
	pos      int
	slot     int
	merged   bool
	vertical []verticalRun
}

// mergeVertical folds markers that repeat straight down or down and to the
// right of an earlier marker with the same command into that marker's
// vertical chain. Directions alternate along a chain.
func mergeVertical(markers []marker, width, total int) []marker {
	at := make(map[int]int, len(markers))
	for i, mk := range markers {
		at[mk.pos] = i
	}
	for i := range markers {
		mk := &markers[i]
		if mk.merged {
			continue
		}
		count := 0
		right := false
		begin := true
		next, prev := mk.pos, mk.pos
		for next < total {
			next += width
			if right {
				next++
			}
			if j, ok := at[next]; ok && j > i && !markers[j].merged && markers[j].slot == mk.slot {
				count++
				markers[j].merged = true
				prev = next
				continue
			}
			if count > 0 {
				mk.vertical = append(mk.vertical, verticalRun{right, count})
				count = 0
			} else if !begin {
				break
			}
			begin = false
			right = !right
			next = prev
		}
	}
	out := markers[:0]
	for _, mk := range markers {
		if !mk.merged {
			out = append(out, mk)
		}
	}
	return out
}

func writeCoded(w *codec.BitBarrelWriter, v int) {
	exp := bits.Len(uint(v)) - 1
	w.WriteBits(0, exp)
	w.WriteBit(true)
	w.WriteBits(uint32(v-1<<exp), exp)
}

type tileOp struct {
	op    int
	value int
	width int
}

// tileOps picks the two counters and codes every literal block. The
// increment base is the start of the longest run of consecutive values
// among the literals; the literal counter starts high enough that every
// literal fits in its bit width.
func tileOps(literals []uint16) (incBase, litStart int, ops []tileOp) {
	var runs [int(BlockMask) + 1]int
	var seen [int(BlockMask) + 1]bool
	var keys []int
	maxLit := 0
	for _, lv := range literals {
		v := int(lv)
		for _, k := range keys {
			if v == k+runs[k] {
				runs[k]++
			}
		}
		if !seen[v] {
			seen[v] = true
			runs[v] = 1
			keys = append(keys, v)
		}
		if v > maxLit {
			maxLit = v
		}
	}
	sort.Ints(keys)
	for _, k := range keys {
		if runs[k] > runs[incBase] || !seen[incBase] {
			incBase = k
		}
	}
	if maxLit > 0 {
		minStart := 1 << (bits.Len(uint(maxLit)) - 1)
		litStart = minStart
		for _, k := range keys {
			if k >= minStart {
				litStart = k
				break
			}
		}
	}

	ctr0, ctr1 := litStart, incBase
	ops = make([]tileOp, 0, len(literals))
	for _, lv := range literals {
		v := int(lv)
		switch {
		case v == ctr1:
			ops = append(ops, tileOp{op: opIncrement})
			ctr1++
		case v == ctr0:
			ops = append(ops, tileOp{op: opLiteralInc})
			ctr0++
		case v >= incBase && v < ctr1:
			ops = append(ops, tileOp{opRelative, v - incBase, bits.Len(uint(ctr1 - incBase))})
		default:
			ops = append(ops, tileOp{opLiteral, v, bits.Len(uint(ctr0))})
		}
	}
	return incBase, litStart, ops
}

// Encode compresses the room. Blocks above BlockMask and dimensions that do
// not fit the header are capacity errors.
func (m *Tilemap3D) Encode() ([]byte, error) {
	if err := m.checkEncodable(); err != nil {
		return nil, err
	}
	in := make([]uint16, 0, m.Size()*2)
	in = append(in, m.foreground...)
	in = append(in, m.background...)
	total := len(in)

	offsets := m.chooseOffsets(in)

	markers := []marker{{pos: 0, slot: 0}}
	copied := make([]bool, total)
	for pos := 1; pos < total; {
		slot, n := findMatch(in, pos, offsets)
		if slot != 0 || markers[len(markers)-1].slot != 0 {
			markers = append(markers, marker{pos: pos, slot: slot})
		}
		if slot == 0 {
			pos++
			continue
		}
		for i := pos; i < pos+n; i++ {
			copied[i] = true
		}
		pos += n
	}
	markers = mergeVertical(markers, m.width, total)

	var literals []uint16
	for i, v := range in {
		if !copied[i] {
			literals = append(literals, v)
		}
	}
	incBase, litStart, ops := tileOps(literals)

	w := codec.NewBitBarrelWriter()
	w.WriteBits(uint32(m.left), 8)
	w.WriteBits(uint32(m.top), 8)
	w.WriteBits(uint32(m.width-1), 8)
	w.WriteBits(uint32(m.height*2-1), 8)
	w.WriteBits(uint32(incBase), tileBits)
	w.WriteBits(uint32(litStart), tileBits)
	for _, o := range offsets[fixedOffsets:] {
		w.WriteBits(uint32(o), offsetBits)
	}

	last := -1
	for _, mk := range markers {
		writeCoded(w, mk.pos-last)
		last = mk.pos
		if mk.slot < fixedOffsets {
			w.WriteBits(uint32(mk.slot), 3)
		} else {
			w.WriteBits(3, 2)
			w.WriteBits(uint32(mk.slot-fixedOffsets), 3)
		}
		if len(mk.vertical) == 0 {
			w.WriteBit(false)
			continue
		}
		w.WriteBit(true)
		for i, v := range mk.vertical {
			if i == 0 {
				w.WriteBit(v.right)
			} else {
				w.WriteBit(true)
			}
			for j := 1; j < v.count; j++ {
				w.WriteBit(true)
			}
			w.WriteBit(false)
		}
		w.WriteBit(false)
	}
	writeCoded(w, total-last)

	for _, op := range ops {
		w.WriteBits(uint32(op.op), 2)
		if op.op == opLiteral || op.op == opRelative {
			w.WriteBits(uint32(op.value), op.width)
		}
	}

	w.AdvanceNextByte()
	_ = w.WriteByte(byte(m.hmWidth))
	_ = w.WriteByte(byte(m.hmHeight))
	for i := 0; i < len(m.heightmap); {
		cell := m.heightmap[i]
		n := 1
		for i+n < len(m.heightmap) && m.heightmap[i+n] == cell {
			n++
		}
		_ = w.WriteByte(byte(cell >> 8))
		_ = w.WriteByte(byte(cell))
		for rest := n - 1; ; rest -= 0xFF {
			if rest < 0xFF {
				_ = w.WriteByte(byte(rest))
				break
			}
			_ = w.WriteByte(0xFF)
		}
		i += n
	}
	return w.Bytes(), nil
}
