package sprite

import (
	"encoding/binary"
	"fmt"
	"reflect"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/rcarmo/landstalker/internal/codec"
)

// SpriteLayout lists the animations of one sprite graphic. Each animation
// is a sequence of frame names; a frame may appear in several animations.
type SpriteLayout struct {
	Volume     uint16     `yaml:"volume"`
	Animations [][]string `yaml:"animations"`
}

// Layout describes how the frames of the sprite graphics bank are grouped.
type Layout struct {
	Sprites []SpriteLayout `yaml:"sprites"`
}

// FrameData is one stored frame of the bank.
type FrameData struct {
	Name   string
	Sprite int
	Data   []byte
}

// FrameName is the name given to the nth distinct frame of a sprite.
func FrameName(sprite, n int) string {
	return fmt.Sprintf("SpriteGfx%03dFrame%02d", sprite, n)
}

// DecodeLayout reads a layout document.
func DecodeLayout(b []byte) (*Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(b, &l); err != nil {
		return nil, codec.Malformed("decode sprite layout", err, "parse")
	}
	return &l, nil
}

// Bytes renders the layout as YAML.
func (l *Layout) Bytes() ([]byte, error) {
	b, err := yaml.Marshal(l)
	if err != nil {
		return nil, codec.Malformed("encode sprite layout", err, "marshal")
	}
	return b, nil
}

// Equal compares every sprite.
func (l *Layout) Equal(o *Layout) bool {
	return reflect.DeepEqual(l, o)
}

// FrameCount is the number of frame references across all animations.
func (l *Layout) FrameCount() int {
	n := 0
	for _, s := range l.Sprites {
		for _, a := range s.Animations {
			n += len(a)
		}
	}
	return n
}

// ptrTable reads 32-bit pointers from addr until it reaches the lowest
// pointer read so far, the table being followed by what it points at.
func ptrTable(data []byte, base, addr uint32) ([]uint32, error) {
	var out []uint32
	lowest := ^uint32(0)
	for addr < lowest {
		off := int64(addr) - int64(base)
		if off < 0 || off+4 > int64(len(data)) {
			return nil, codec.Malformed("sprite pointer table", codec.ErrBufferUnderrun, "pointer at 0x%06X", addr)
		}
		p := binary.BigEndian.Uint32(data[off:])
		if p < addr {
			return nil, codec.Malformed("sprite pointer table", codec.ErrInconsistent, "pointer 0x%06X at 0x%06X points backwards", p, addr)
		}
		out = append(out, p)
		lowest = min(lowest, p)
		addr += 4
	}
	return out, nil
}

// UnpackGraphics splits the sprite graphics bank held in data, which starts
// at ROM address base, into its layout and its frames in address order.
//
// The bank opens with a pointer to the animation pointers, followed by a
// (first animation, volume) word pair per sprite. Animation pointers index
// the frame pointer table, and frame pointers lead to the frames, the last
// of which runs up to the end of data.
func UnpackGraphics(data []byte, base uint32) (*Layout, []FrameData, error) {
	const op = "unpack sprite graphics"
	if len(data) < 4 {
		return nil, nil, codec.Malformed(op, codec.ErrBufferUnderrun, "%d bytes", len(data))
	}
	end := base + uint32(len(data))
	animBegin := binary.BigEndian.Uint32(data)
	if animBegin < base+4 || animBegin >= end || (animBegin-base-4)%4 != 0 {
		return nil, nil, codec.Malformed(op, codec.ErrInconsistent, "animation pointers at 0x%06X", animBegin)
	}
	lut := data[4 : animBegin-base]

	animPtrs, err := ptrTable(data, base, animBegin)
	if err != nil {
		return nil, nil, err
	}
	frameBegin := animPtrs[0]
	for _, p := range animPtrs {
		frameBegin = min(frameBegin, p)
	}
	framePtrs, err := ptrTable(data, base, frameBegin)
	if err != nil {
		return nil, nil, err
	}
	animIdx := make([]int, len(animPtrs))
	for i, p := range animPtrs {
		if (p-frameBegin)%4 != 0 || int(p-frameBegin)/4 > len(framePtrs) {
			return nil, nil, codec.Malformed(op, codec.ErrInconsistent, "animation %d points at 0x%06X", i, p)
		}
		animIdx[i] = int(p-frameBegin) / 4
	}

	l := &Layout{}
	names := make(map[uint32]string)
	owner := make(map[uint32]int)
	sprites := len(lut) / 4
	anim := 0
	for i := 0; i < sprites; i++ {
		first := int(binary.BigEndian.Uint16(lut[i*4:]))
		last := len(animIdx)
		if i+1 < sprites {
			last = int(binary.BigEndian.Uint16(lut[i*4+4:]))
		}
		if first != anim || last < first || last > len(animIdx) {
			return nil, nil, codec.Malformed(op, codec.ErrInconsistent, "sprite %d animations %d to %d", i, first, last)
		}
		s := SpriteLayout{Volume: binary.BigEndian.Uint16(lut[i*4+2:]), Animations: [][]string{}}
		distinct := 0
		for ; anim < last; anim++ {
			stop := len(framePtrs)
			if anim+1 < len(animIdx) {
				stop = animIdx[anim+1]
			}
			if stop < animIdx[anim] {
				return nil, nil, codec.Malformed(op, codec.ErrInconsistent, "animation %d frames %d to %d", anim, animIdx[anim], stop)
			}
			frames := []string{}
			for _, fp := range framePtrs[animIdx[anim]:stop] {
				name, ok := names[fp]
				if !ok {
					name = FrameName(i, distinct)
					distinct++
					names[fp] = name
					owner[fp] = i
				}
				frames = append(frames, name)
			}
			s.Animations = append(s.Animations, frames)
		}
		l.Sprites = append(l.Sprites, s)
	}

	addrs := make([]uint32, 0, len(names))
	for a := range names {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool { return addrs[i] < addrs[j] })
	out := make([]FrameData, 0, len(addrs))
	for i, a := range addrs {
		stop := end
		if i+1 < len(addrs) {
			stop = addrs[i+1]
		}
		if a < base || a >= end {
			return nil, nil, codec.Malformed(op, codec.ErrBufferOverrun, "frame %s at 0x%06X", names[a], a)
		}
		span := data[a-base : stop-base]
		_, n, err := DecodeFrame(span)
		if err != nil {
			return nil, nil, codec.Malformed(op, err, "frame %s at 0x%06X", names[a], a)
		}
		out = append(out, FrameData{Name: names[a], Sprite: owner[a], Data: append([]byte(nil), span[:n]...)})
	}
	log.Debug("sprite graphics: %d sprites, %d animations, %d frames", len(l.Sprites), len(animIdx), len(out))
	return l, out, nil
}

// PackGraphics lays the bank out again for ROM address base. Frames are
// written in the order given, each starting on an even address. Frames no
// animation uses are left out.
func PackGraphics(l *Layout, frames []FrameData, base uint32) ([]byte, error) {
	const op = "pack sprite graphics"
	anims := 0
	for _, s := range l.Sprites {
		anims += len(s.Animations)
	}
	if anims > 0xFFFF {
		return nil, codec.Capacity(op, codec.ErrTooLong, "%d animations", anims)
	}
	animBegin := base + 4 + uint32(len(l.Sprites))*4
	frameBegin := animBegin + uint32(anims)*4
	framesBegin := frameBegin + uint32(l.FrameCount())*4

	used := make(map[string]bool)
	for _, s := range l.Sprites {
		for _, a := range s.Animations {
			for _, name := range a {
				used[name] = true
			}
		}
	}
	body := make([]byte, 0, 1024)
	addr := make(map[string]uint32, len(frames))
	for _, f := range frames {
		if _, dup := addr[f.Name]; dup {
			return nil, codec.Malformed(op, codec.ErrInconsistent, "frame %s given twice", f.Name)
		}
		if !used[f.Name] {
			log.Debug("frame %s is in no animation, leaving it out", f.Name)
			continue
		}
		addr[f.Name] = framesBegin + uint32(len(body))
		body = append(body, f.Data...)
		if (framesBegin+uint32(len(body)))&1 != 0 {
			body = append(body, 0xFF)
		}
	}

	out := binary.BigEndian.AppendUint32(make([]byte, 0, int(framesBegin-base)+len(body)), animBegin)
	first := 0
	for _, s := range l.Sprites {
		out = binary.BigEndian.AppendUint16(out, uint16(first))
		out = binary.BigEndian.AppendUint16(out, s.Volume)
		first += len(s.Animations)
	}
	n := 0
	for _, s := range l.Sprites {
		for _, a := range s.Animations {
			out = binary.BigEndian.AppendUint32(out, frameBegin+uint32(n)*4)
			n += len(a)
		}
	}
	for i, s := range l.Sprites {
		for j, a := range s.Animations {
			for _, name := range a {
				p, ok := addr[name]
				if !ok {
					return nil, codec.Malformed(op, codec.ErrInconsistent, "sprite %d animation %d uses unknown frame %s", i, j, name)
				}
				out = binary.BigEndian.AppendUint32(out, p)
			}
		}
	}
	return append(out, body...), nil
}
