package script

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/logging"
)

var log = logging.For("script")

// ErrNoLine is returned for a line index outside the script.
var ErrNoLine = errors.New("no such script line")

// Script is the ordered table of script lines.
type Script struct {
	lines []Entry
}

// New returns an empty script.
func New() *Script {
	return &Script{}
}

// Decode reads a table of big endian script words.
func Decode(b []byte) (*Script, error) {
	if len(b)%2 != 0 {
		return nil, codec.Malformed("script.decode", codec.ErrBufferUnderrun, "odd table length %d", len(b))
	}
	s := &Script{lines: make([]Entry, 0, len(b)/2)}
	invalid := 0
	for i := 0; i < len(b); i += 2 {
		e := DecodeEntry(binary.BigEndian.Uint16(b[i:]))
		if e.Type == EntryInvalid {
			invalid++
		}
		s.lines = append(s.lines, e)
	}
	if invalid > 0 {
		log.Debug("script table has %d invalid lines out of %d", invalid, len(s.lines))
	}
	return s, nil
}

// Bytes encodes the script.
func (s *Script) Bytes() ([]byte, error) {
	out := make([]byte, 0, len(s.lines)*2)
	for i, e := range s.lines {
		w, err := e.Word()
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", i)
		}
		out = binary.BigEndian.AppendUint16(out, w)
	}
	return out, nil
}

// Len is the number of lines.
func (s *Script) Len() int {
	return len(s.lines)
}

// Lines returns a copy of every line.
func (s *Script) Lines() []Entry {
	return append([]Entry(nil), s.lines...)
}

func (s *Script) check(line int) error {
	if line < 0 || line >= len(s.lines) {
		return errors.Wrapf(ErrNoLine, "line %d of %d", line, len(s.lines))
	}
	return nil
}

// Line returns one line.
func (s *Script) Line(line int) (Entry, error) {
	if err := s.check(line); err != nil {
		return Entry{}, err
	}
	return s.lines[line], nil
}

// SetLine replaces one line.
func (s *Script) SetLine(line int, e Entry) error {
	if err := s.check(line); err != nil {
		return err
	}
	s.lines[line] = e
	return nil
}

// SetLineClear sets the clear-box marker of a line.
func (s *Script) SetLineClear(line int, on bool) error {
	if err := s.check(line); err != nil {
		return err
	}
	s.lines[line].Clear = on
	return nil
}

// SetLineEnd sets the end marker of a line.
func (s *Script) SetLineEnd(line int, end bool) error {
	if err := s.check(line); err != nil {
		return err
	}
	s.lines[line].End = end
	return nil
}

// SetLineData sets the value of a line, keeping its type and markers.
func (s *Script) SetLineData(line int, v uint16) error {
	if err := s.check(line); err != nil {
		return err
	}
	s.lines[line].Value = v
	return nil
}

// InsertBefore inserts a line before index line. Inserting at Len appends.
func (s *Script) InsertBefore(line int, e Entry) error {
	if line < 0 || line > len(s.lines) {
		return errors.Wrapf(ErrNoLine, "insert at %d of %d", line, len(s.lines))
	}
	s.lines = append(s.lines, Entry{})
	copy(s.lines[line+1:], s.lines[line:])
	s.lines[line] = e
	return nil
}

// Delete removes one line.
func (s *Script) Delete(line int) error {
	if err := s.check(line); err != nil {
		return err
	}
	s.lines = append(s.lines[:line], s.lines[line+1:]...)
	return nil
}

// Swap exchanges two lines.
func (s *Script) Swap(a, b int) error {
	if err := s.check(a); err != nil {
		return err
	}
	if err := s.check(b); err != nil {
		return err
	}
	s.lines[a], s.lines[b] = s.lines[b], s.lines[a]
	return nil
}

// Equal compares the encoded form of two scripts.
func (s *Script) Equal(o *Script) bool {
	if len(s.lines) != len(o.lines) {
		return false
	}
	for i := range s.lines {
		a, errA := s.lines[i].Word()
		b, errB := o.lines[i].Word()
		if errA != nil || errB != nil {
			if s.lines[i] != o.lines[i] {
				return false
			}
			continue
		}
		if a != b {
			return false
		}
	}
	return true
}

// String lists every line, one per row.
func (s *Script) String() string {
	var sb strings.Builder
	for _, e := range s.lines {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

type entryYaml struct {
	Type  string `yaml:"Type"`
	Value uint16 `yaml:"Value,omitempty"`
	Slot  uint8  `yaml:"Slot,omitempty"`
	Clear bool   `yaml:"Clear,omitempty"`
	End   bool   `yaml:"End,omitempty"`
}

// ToYaml writes the script as a list of lines.
func (s *Script) ToYaml() ([]byte, error) {
	doc := make([]entryYaml, len(s.lines))
	for i, e := range s.lines {
		doc[i] = entryYaml{Type: e.Type.String(), Value: e.Value, Slot: e.Slot, Clear: e.Clear, End: e.End}
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, errors.Wrap(err, "script yaml")
	}
	if err := enc.Close(); err != nil {
		return nil, errors.Wrap(err, "script yaml")
	}
	return buf.Bytes(), nil
}

// FromYaml reads a script written by ToYaml.
func FromYaml(src []byte) (*Script, error) {
	var doc []entryYaml
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, codec.Malformed("script.yaml", err, "parse")
	}
	s := &Script{lines: make([]Entry, 0, len(doc))}
	for i, d := range doc {
		t, err := ParseEntryType(d.Type)
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", i)
		}
		e := Entry{Type: t, Value: d.Value, Slot: d.Slot, Clear: d.Clear, End: d.End}
		if _, err := e.Word(); err != nil {
			return nil, errors.Wrapf(err, "line %d", i)
		}
		s.lines = append(s.lines, e)
	}
	return s, nil
}
