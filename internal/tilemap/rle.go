package tilemap

import (
	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/tile"
)

// RLE stream layout: width and height bytes, then a run list of the upper
// attribute bits, then a command list for the tile indices.
const (
	attrMask      = 0xF800
	attrShortFlag = 0x04
	attrMaxShort  = 0x03
	// attrMaxRun keeps the long-form count clear of attrShortFlag.
	attrMaxRun = 0x3FF

	cmdCopy      = 0
	cmdRun       = 1
	cmdRunLast   = 2
	cmdIncrement = 3

	runMax    = 0x07
	repeatMax = 0x3F
	endMarker = 0x7FF
)

// noValue marks the run and increment registers before the first run sets
// them.
const noValue = -1

func rleErr(err error, format string, args ...interface{}) error {
	return codec.Malformed("decode rle map", err, format, args...)
}

func (m *Tilemap2D) decodeRLE(data []byte) (int, error) {
	if len(data) <= 6 {
		return 0, rleErr(codec.ErrBufferUnderrun, "%d bytes", len(data))
	}
	m.width, m.height = int(data[0]), int(data[1])
	total := m.width * m.height
	m.tiles = make([]tile.Tile, 0, total)
	d := 2

	for {
		if d >= len(data) {
			return d, rleErr(codec.ErrBufferUnderrun, "attribute runs")
		}
		b := data[d]
		d++
		attrs := uint16(b&0xF8) << 8
		length := int(b & attrMaxShort)
		if b&attrShortFlag == 0 {
			if d >= len(data) {
				return d, rleErr(codec.ErrBufferUnderrun, "attribute runs")
			}
			length = length<<8 | int(data[d])
			d++
			if length == 0 {
				break
			}
		}
		if len(m.tiles)+length >= total {
			return d, rleErr(codec.ErrBufferOverrun, "attribute run of %d at tile %d", length+1, len(m.tiles))
		}
		for i := 0; i <= length; i++ {
			m.tiles = append(m.tiles, tile.New(attrs))
		}
	}
	if len(m.tiles) != total {
		return d, rleErr(codec.ErrBufferUnderrun, "attributes cover %d of %d tiles", len(m.tiles), total)
	}

	idx := 0
	last, incr := noValue, noValue
	fill := func(count int, next func() int) error {
		if idx+count >= total {
			return rleErr(codec.ErrBufferOverrun, "run of %d at tile %d", count+1, idx)
		}
		for i := 0; i <= count; i++ {
			m.tiles[idx] = m.tiles[idx].WithIndex(next())
			idx++
		}
		return nil
	}

	for {
		if d >= len(data) {
			return d, rleErr(codec.ErrBufferUnderrun, "tile commands")
		}
		b := data[d]
		switch b >> 6 {
		case cmdCopy, cmdRun:
			if d+1 >= len(data) {
				return d, rleErr(codec.ErrBufferUnderrun, "tile commands")
			}
			value := (int(b)<<8 | int(data[d+1])) & endMarker
			d += 2
			if b>>6 == cmdCopy {
				if value == endMarker {
					return d, nil
				}
				if err := fill(0, func() int { return value }); err != nil {
					return d, err
				}
				continue
			}
			count := int(b&0x38) >> 3
			if err := fill(count, func() int { return value }); err != nil {
				return d, err
			}
			last = value
			if incr == noValue {
				incr = value
			}
		case cmdRunLast:
			d++
			if last == noValue {
				return d, rleErr(codec.ErrBufferUnderrun, "repeat before any run")
			}
			if err := fill(int(b&repeatMax), func() int { return last }); err != nil {
				return d, err
			}
		case cmdIncrement:
			d++
			if incr == noValue {
				return d, rleErr(codec.ErrBufferUnderrun, "increment before any run")
			}
			if err := fill(int(b&repeatMax), func() int { incr++; return incr }); err != nil {
				return d, err
			}
		}
	}
}

func (m *Tilemap2D) encodeRLE() ([]byte, error) {
	if len(m.tiles) == 0 {
		return nil, codec.Malformed("encode rle map", codec.ErrBufferUnderrun, "empty map")
	}
	if m.width > 0xFF || m.height > 0xFF {
		return nil, codec.Capacity("encode rle map", codec.ErrTooLong, "%dx%d map", m.width, m.height)
	}
	tiles := m.tiles
	out := []byte{byte(m.width), byte(m.height)}

	// Attribute runs. Each run covers count+1 tiles.
	for idx := 0; idx < len(tiles); {
		count := 0
		for idx+count+1 < len(tiles) && count < attrMaxRun {
			if tiles[idx].Value()&attrMask != tiles[idx+count+1].Value()&attrMask {
				break
			}
			count++
		}
		b := byte(tiles[idx].Value()>>8) & 0xF8
		if count > attrMaxShort {
			out = append(out, b|byte(count>>8), byte(count))
		} else {
			out = append(out, b|attrShortFlag|byte(count))
		}
		idx += count + 1
	}
	out = append(out, 0x00, 0x00)

	runLength := func(from, value, limit int) int {
		count := 0
		for j := from + 1; j < len(tiles) && tiles[j].Index() == value && count < limit; j++ {
			count++
		}
		return count
	}

	// The first command is always a run so the decoder has both registers set.
	first := tiles[0].Index()
	last, incr := first, first
	count := runLength(0, first, runMax)
	out = append(out, 0x40|byte(count<<3)|byte(first>>8&0x07), byte(first))

	for i := count + 1; i < len(tiles); {
		idx := tiles[i].Index()
		switch {
		case idx == last:
			n := runLength(i, last, repeatMax)
			out = append(out, 0x80|byte(n))
			i += n + 1
		case idx == incr+1:
			incr++
			n := 0
			for j := i + 1; j < len(tiles) && tiles[j].Index() == incr+1 && n < repeatMax; j++ {
				incr++
				n++
			}
			out = append(out, 0xC0|byte(n))
			i += n + 1
		case i+1 < len(tiles) && tiles[i+1].Index() == idx, idx == endMarker:
			// A copy of the end marker value would end the stream, so that
			// index is always written as a run.
			n := runLength(i, idx, runMax)
			out = append(out, 0x40|byte(n<<3)|byte(idx>>8&0x07), byte(idx))
			last = idx
			i += n + 1
		default:
			out = append(out, byte(idx>>8), byte(idx))
			i++
		}
	}
	return append(out, 0x07, 0xFF), nil
}
