// Package behaviours decodes and encodes the entity behaviour scripts: a
// small bytecode where each opcode is followed by a fixed set of parameters.
package behaviours

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/logging"
)

var log = logging.For("behaviours")

// MaxScriptSize is the largest script the one byte length table can hold.
const MaxScriptSize = 0xFF

// Param is one parameter value. Coordinates use Coord, everything else
// uses Int. Label parameters hold the 1-based index of the target command.
type Param struct {
	Name  string
	Type  ParamType
	Int   int
	Coord float64
}

func (p Param) String() string {
	if p.Type.IsCoordinate() {
		return fmt.Sprintf("%f", p.Coord)
	}
	return fmt.Sprintf("%d", p.Int)
}

// Command is one decoded instruction.
type Command struct {
	Type   CommandType
	Params []Param
}

// NewCommand builds a command with its parameters named and typed from the
// command table. Values are given in parameter order.
func NewCommand(t CommandType, values ...float64) (Command, error) {
	def, err := Lookup(t)
	if err != nil {
		return Command{}, err
	}
	if len(values) != len(def.Params) {
		return Command{}, codec.Malformed("behaviour", codec.ErrBadParameter,
			"%s takes %d parameters, got %d", def.Name(), len(def.Params), len(values))
	}
	cmd := Command{Type: t, Params: newParams(len(def.Params))}
	for i, pd := range def.Params {
		p := Param{Name: pd.Name, Type: pd.Type}
		if pd.Type.IsCoordinate() {
			p.Coord = values[i]
		} else {
			p.Int = int(values[i])
		}
		cmd.Params[i] = p
	}
	return cmd, nil
}

// Behaviour is a named script.
type Behaviour struct {
	Name     string
	Commands []Command
}

// Table holds every behaviour keyed by its id.
type Table map[int]Behaviour

// IDs returns the behaviour ids in ascending order.
func (t Table) IDs() []int {
	ids := make([]int, 0, len(t))
	for id := range t {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Unpack splits the script table into behaviours. Each byte of offsets is
// the length of one script; scripts are stored back to back.
func Unpack(offsets, table []byte) (Table, error) {
	out := make(Table, len(offsets))
	pos := 0
	for id, n := range offsets {
		end := pos + int(n)
		if end > len(table) {
			return nil, codec.Malformed("behaviour.unpack", codec.ErrBufferUnderrun,
				"behaviour %d ends at %d, table is %d bytes", id, end, len(table))
		}
		cmds, err := decodeScript(table[pos:end])
		if err != nil {
			return nil, fmt.Errorf("behaviour %d: %w", id, err)
		}
		out[id] = Behaviour{Name: fmt.Sprintf("Behaviour%d", id), Commands: cmds}
		pos = end
	}
	if pos != len(table) {
		log.Debug("%d trailing bytes after %d behaviours", len(table)-pos, len(offsets))
	}
	return out, nil
}

func decodeScript(b []byte) ([]Command, error) {
	// Labels are stored as byte displacements, so the command boundaries must
	// be known before any label can be resolved.
	index := make(map[int]int)
	var defs []CommandDef
	var starts []int
	for pos := 0; pos < len(b); {
		def, err := Lookup(CommandType(b[pos]))
		if err != nil {
			return nil, err
		}
		if pos+def.Size() > len(b) {
			return nil, codec.Malformed("behaviour.unpack", codec.ErrBufferUnderrun,
				"%s at %d needs %d bytes, %d left", def.Name(), pos, def.Size(), len(b)-pos)
		}
		defs = append(defs, def)
		starts = append(starts, pos)
		index[pos] = len(defs)
		pos += def.Size()
	}

	cmds := make([]Command, len(defs))
	for i, def := range defs {
		cmd := Command{Type: def.ID, Params: newParams(len(def.Params))}
		j := starts[i] + 1
		for k, pd := range def.Params {
			p := Param{Name: pd.Name, Type: pd.Type}
			switch pd.Type {
			case ParamUint8, ParamSound, ParamLowCutscene:
				p.Int = int(b[j])
			case ParamInt8:
				p.Int = int(int8(b[j]))
			case ParamHighCutscene:
				p.Int = int(b[j]) + 256
			case ParamUint16:
				p.Int = int(binary.BigEndian.Uint16(b[j:]))
			case ParamLabel:
				target := j + int(int8(b[j])) - 1
				idx, ok := index[target]
				if !ok {
					return nil, codec.Malformed("behaviour.unpack", codec.ErrBadParameter,
						"command %d jumps to %d, not a command boundary", i+1, target)
				}
				p.Int = idx
			case ParamCoordinate:
				p.Coord = float64(b[j]) / 16.0
			case ParamFlag:
				p.Int = int(b[j])<<3 | int(b[j+1]&7)
			case ParamLongCoordinate:
				p.Coord = float64(binary.BigEndian.Uint16(b[j:])) / 256.0
			default:
				return nil, codec.Malformed("behaviour.unpack", codec.ErrBadParameter, "%s has an untyped parameter", def.Name())
			}
			j += pd.Type.Size()
			cmd.Params[k] = p
		}
		cmds[i] = cmd
	}
	return cmds, nil
}

// Pack encodes the table in id order, returning the length table and the
// concatenated scripts.
func Pack(t Table) (offsets, table []byte, err error) {
	for _, id := range t.IDs() {
		script, err := encodeScript(t[id].Commands)
		if err != nil {
			return nil, nil, fmt.Errorf("behaviour %d: %w", id, err)
		}
		if len(script) > MaxScriptSize {
			return nil, nil, codec.Capacity("behaviour.pack", codec.ErrTooLong,
				"behaviour %d is %d bytes, limit %d", id, len(script), MaxScriptSize)
		}
		offsets = append(offsets, byte(len(script)))
		table = append(table, script...)
	}
	return offsets, table, nil
}

func encodeScript(cmds []Command) ([]byte, error) {
	defs := make([]CommandDef, len(cmds))
	starts := make([]int, len(cmds))
	size := 0
	for i, c := range cmds {
		def, err := Lookup(c.Type)
		if err != nil {
			return nil, err
		}
		if len(c.Params) != len(def.Params) {
			return nil, codec.Malformed("behaviour.pack", codec.ErrBadParameter,
				"command %d: %s takes %d parameters, got %d", i+1, def.Name(), len(def.Params), len(c.Params))
		}
		defs[i] = def
		starts[i] = size
		size += def.Size()
	}

	out := make([]byte, 0, size)
	for i, c := range cmds {
		def := defs[i]
		out = append(out, byte(def.ID))
		for k, pd := range def.Params {
			v := c.Params[k]
			var err error
			switch pd.Type {
			case ParamUint8, ParamSound, ParamLowCutscene:
				err = checkRange(i, pd, v.Int, 0, 0xFF)
				out = append(out, byte(v.Int))
			case ParamInt8:
				err = checkRange(i, pd, v.Int, math.MinInt8, math.MaxInt8)
				out = append(out, byte(int8(v.Int)))
			case ParamHighCutscene:
				err = checkRange(i, pd, v.Int, 0x100, 0x1FF)
				out = append(out, byte(v.Int-256))
			case ParamUint16:
				err = checkRange(i, pd, v.Int, 0, 0xFFFF)
				out = binary.BigEndian.AppendUint16(out, uint16(v.Int))
			case ParamLabel:
				if v.Int < 1 || v.Int > len(cmds) {
					return nil, codec.Malformed("behaviour.pack", codec.ErrBadParameter,
						"command %d: label %d does not exist", i+1, v.Int)
				}
				disp := starts[v.Int-1] - len(out) + 1
				err = checkRange(i, pd, disp, math.MinInt8, math.MaxInt8)
				out = append(out, byte(int8(disp)))
			case ParamCoordinate:
				n := int(v.Coord * 16.0)
				err = checkRange(i, pd, n, 0, 0xFF)
				out = append(out, byte(n))
			case ParamFlag:
				err = checkRange(i, pd, v.Int, 0, 0x7FF)
				out = append(out, byte(v.Int>>3), byte(v.Int&7))
			case ParamLongCoordinate:
				n := int(v.Coord * 256.0)
				err = checkRange(i, pd, n, 0, 0xFFFF)
				out = binary.BigEndian.AppendUint16(out, uint16(n))
			}
			if err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

func checkRange(i int, pd ParamDef, v, lo, hi int) error {
	if v < lo || v > hi {
		return codec.Capacity("behaviour.pack", codec.ErrBadParameter,
			"command %d: %s %d outside [%d, %d]", i+1, pd.Name, v, lo, hi)
	}
	return nil
}

func newParams(n int) []Param {
	if n == 0 {
		return nil
	}
	return make([]Param, n)
}
