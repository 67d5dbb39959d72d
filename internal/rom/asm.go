package rom

import (
	"encoding/binary"

	"github.com/rcarmo/landstalker/internal/codec"
)

// Several tables are found through lea instructions whose low word is a
// displacement from the instruction's extension word.

func pcRel16(pc, target uint32) (uint16, error) {
	d := int64(target) - int64(pc) - 2
	if d < -0x8000 || d > 0x7FFF {
		return 0, codec.Capacity("pc relative", codec.ErrBufferOverrun, "0x%06X is out of reach of 0x%06X", target, pc)
	}
	return uint16(int16(d)), nil
}

func pcRel8(pc, target uint32) (uint8, error) {
	d := int64(target) - int64(pc) - 2
	if d < -0x80 || d > 0x7F {
		return 0, codec.Capacity("pc relative", codec.ErrBufferOverrun, "0x%06X is out of reach of 0x%06X", target, pc)
	}
	return uint8(int8(d)), nil
}

// ReadOffset16 follows the 16-bit displacement of the instruction at a named
// address.
func (r *Rom) ReadOffset16(name string) (uint32, error) {
	pc, err := r.Address(name)
	if err != nil {
		return 0, err
	}
	ins, err := r.Read32(pc)
	if err != nil {
		return 0, err
	}
	return uint32(int64(pc) + int64(int16(ins&0xFFFF)) + 2), nil
}

// ReadOffset8 follows the 8-bit displacement of the instruction at a named
// address.
func (r *Rom) ReadOffset8(name string) (uint32, error) {
	pc, err := r.Address(name)
	if err != nil {
		return 0, err
	}
	ins, err := r.Read32(pc)
	if err != nil {
		return 0, err
	}
	return uint32(int64(pc) + int64(int8(ins&0xFF)) + 2), nil
}

// Offset16 returns the instruction at a named address rewritten to point at
// target, ready to be queued as a pending write.
func (r *Rom) Offset16(name string, target uint32) ([]byte, error) {
	pc, err := r.Address(name)
	if err != nil {
		return nil, err
	}
	ins, err := r.Read32(pc)
	if err != nil {
		return nil, err
	}
	d, err := pcRel16(pc, target)
	if err != nil {
		return nil, err
	}
	return binary.BigEndian.AppendUint32(nil, ins&0xFFFF0000|uint32(d)), nil
}

// Offset8 is Offset16 for instructions with an 8-bit displacement.
func (r *Rom) Offset8(name string, target uint32) ([]byte, error) {
	pc, err := r.Address(name)
	if err != nil {
		return nil, err
	}
	ins, err := r.Read32(pc)
	if err != nil {
		return nil, err
	}
	d, err := pcRel8(pc, target)
	if err != nil {
		return nil, err
	}
	return binary.BigEndian.AppendUint32(nil, ins&0xFFFFFF00|uint32(d)), nil
}
