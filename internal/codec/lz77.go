package codec

const (
	lz77MinRun    = 3
	lz77MaxRun    = 18
	lz77MaxOffset = 4095
)

type lz77EntryType int

const (
	lz77End lz77EntryType = iota
	lz77Literal
	lz77Run
)

type lz77Entry struct {
	kind   lz77EntryType
	value  byte // literal byte or run length
	offset uint16
}

// LZ77Decode decompresses src and returns the output together with the
// number of input bytes consumed, including the end-of-stream marker.
//
// Each control byte describes the next eight entries MSB-first: a set bit is
// a literal byte, a clear bit a two byte back-reference holding a 12-bit
// offset and a 4-bit length (18 - n). A back-reference with offset zero ends
// the stream.
func LZ77Decode(src []byte) ([]byte, int, error) {
	out := make([]byte, 0, len(src)*2)
	pos := 0
	var ctrl byte
	ctrlBits := 0

	for {
		if ctrlBits == 0 {
			if pos >= len(src) {
				return nil, pos, Malformed("lz77 decode", ErrBufferUnderrun, "missing control byte at %d", pos)
			}
			ctrl = src[pos]
			pos++
			ctrlBits = 8
		}
		literal := ctrl&0x80 != 0
		ctrl <<= 1
		ctrlBits--

		if literal {
			if pos >= len(src) {
				return nil, pos, Malformed("lz77 decode", ErrBufferUnderrun, "missing literal at %d", pos)
			}
			out = append(out, src[pos])
			pos++
			continue
		}

		if pos+1 >= len(src) {
			return nil, pos, Malformed("lz77 decode", ErrBufferUnderrun, "missing reference at %d", pos)
		}
		offset := int(src[pos]&0xF0)<<4 | int(src[pos+1])
		length := lz77MaxRun - int(src[pos]&0x0F)
		pos += 2

		if offset == 0 {
			return out, pos, nil
		}
		if offset > len(out) {
			return nil, pos, Malformed("lz77 decode", ErrBufferUnderrun,
				"back-reference offset %d beyond %d decoded bytes", offset, len(out))
		}
		// Byte-wise copy: runs may overlap the bytes they produce.
		start := len(out) - offset
		for i := 0; i < length; i++ {
			out = append(out, out[start+i])
		}
	}
}

func lz77FindBestMatch(in []byte, curpos int) (length int, offset uint16) {
	if len(in) <= lz77MinRun || curpos == 0 {
		return 0, 0
	}
	maxLen := len(in) - curpos
	if maxLen > lz77MaxRun {
		maxLen = lz77MaxRun
	}
	if maxLen < lz77MinRun {
		return 1, 0
	}
	endSearch := 0
	if curpos > lz77MaxOffset {
		endSearch = curpos - lz77MaxOffset
	}
	best := 0
	for i := curpos; i > endSearch; i-- {
		n := 0
		for in[n+i-1] == in[curpos+n] {
			n++
			if n == maxLen {
				break
			}
		}
		if n > best {
			best = n
			offset = uint16(curpos - i + 1)
			if best == maxLen {
				break
			}
		}
	}
	return best, offset
}

// LZ77Encode compresses src into the format read by LZ77Decode.
func LZ77Encode(src []byte) []byte {
	entries := make([]lz77Entry, 0, len(src)/2+1)
	for i := 0; i < len(src); {
		length, offset := lz77FindBestMatch(src, i)
		if length >= lz77MinRun {
			// Lazy matching: prefer a strictly longer run starting one byte later.
			nextLen, nextOffset := lz77FindBestMatch(src, i+1)
			if nextLen > length {
				entries = append(entries, lz77Entry{kind: lz77Literal, value: src[i]})
				i++
				length, offset = nextLen, nextOffset
			}
			entries = append(entries, lz77Entry{kind: lz77Run, value: byte(length), offset: offset})
			i += length
		} else {
			entries = append(entries, lz77Entry{kind: lz77Literal, value: src[i]})
			i++
		}
	}
	entries = append(entries, lz77Entry{kind: lz77End})

	out := make([]byte, 0, len(src)+len(entries)/8+3)
	for start := 0; start < len(entries); start += 8 {
		end := start + 8
		if end > len(entries) {
			end = len(entries)
		}
		var ctrl byte
		for i := start; i < end; i++ {
			if entries[i].kind == lz77Literal {
				ctrl |= 0x80 >> (i - start)
			}
		}
		out = append(out, ctrl)
		for _, e := range entries[start:end] {
			switch e.kind {
			case lz77Literal:
				out = append(out, e.value)
			case lz77Run:
				out = append(out,
					byte((e.offset&0xF00)>>4)|byte((lz77MaxRun-int(e.value))&0x0F),
					byte(e.offset&0xFF))
			default:
				out = append(out, 0x00, 0x00)
			}
		}
	}
	return out
}
