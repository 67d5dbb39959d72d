package script

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"

	"github.com/go-restruct/restruct"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/rcarmo/landstalker/internal/codec"
)

// QuestProgress identifies one step of one quest.
type QuestProgress struct {
	Quest    uint8
	Progress uint8
}

// ProgressFlag is one entry of the progress table: once Flag is set the
// quest advances to the given progress.
type ProgressFlag struct {
	QuestProgress
	Flag uint16
}

// ProgressFlags maps quest steps to the flags that trigger them. In the ROM
// each quest is a run of four byte records (flag, progress, padding) in
// descending progress order, closed by 0xFFFF; quests follow each other.
type ProgressFlags struct {
	flags map[QuestProgress]uint16
}

type progressRecord struct {
	Flag     uint16
	Progress uint8
	Pad      uint8
}

const (
	progressRecordSize = 4
	progressTerminator = 0xFFFF
)

// NewProgressFlags returns an empty table.
func NewProgressFlags() *ProgressFlags {
	return &ProgressFlags{flags: make(map[QuestProgress]uint16)}
}

// DecodeProgressFlags reads quest blocks until the data ends.
func DecodeProgressFlags(data []byte) (*ProgressFlags, error) {
	const op = "decode progress flags"
	p := NewProgressFlags()
	quest := 0
	open := false
	for i := 0; i < len(data); {
		if i+2 > len(data) {
			return nil, codec.Malformed(op, codec.ErrBufferUnderrun, "quest %d is truncated", quest)
		}
		if binary.BigEndian.Uint16(data[i:]) == progressTerminator {
			quest++
			open = false
			i += 2
			continue
		}
		if quest > 0xFF {
			return nil, codec.Malformed(op, codec.ErrTooLong, "more than 256 quests")
		}
		if i+progressRecordSize > len(data) {
			return nil, codec.Malformed(op, codec.ErrBufferUnderrun, "quest %d record at %d is truncated", quest, i)
		}
		var r progressRecord
		if err := restruct.Unpack(data[i:i+progressRecordSize], binary.BigEndian, &r); err != nil {
			return nil, codec.Malformed(op, err, "record at %d", i)
		}
		k := QuestProgress{uint8(quest), r.Progress}
		if old, dup := p.flags[k]; dup {
			log.Debug("quest %d progress %d listed twice (0x%04X, 0x%04X), keeping the last", quest, r.Progress, old, r.Flag)
		}
		p.flags[k] = r.Flag
		open = true
		i += progressRecordSize
	}
	if open {
		return nil, codec.Malformed(op, codec.ErrBufferUnderrun, "quest %d has no terminator", quest)
	}
	return p, nil
}

// Bytes encodes quests 0 to the highest quest in use. Quests without flags
// are written as a bare terminator.
func (p *ProgressFlags) Bytes() ([]byte, error) {
	entries := p.Entries()
	if len(entries) == 0 {
		return nil, nil
	}
	last := int(entries[len(entries)-1].Quest)
	var out []byte
	for q := 0; q <= last; q++ {
		steps := p.quest(uint8(q))
		for _, e := range steps {
			if e.Flag == progressTerminator {
				return nil, codec.Capacity("encode progress flags", codec.ErrBadParameter,
					"quest %d progress %d uses the terminator as its flag", q, e.Progress)
			}
			rec, err := restruct.Pack(binary.BigEndian, &progressRecord{Flag: e.Flag, Progress: e.Progress})
			if err != nil {
				return nil, errors.Wrapf(err, "quest %d progress %d", q, e.Progress)
			}
			out = append(out, rec...)
		}
		out = binary.BigEndian.AppendUint16(out, progressTerminator)
	}
	return out, nil
}

// quest returns the steps of one quest in descending progress order.
func (p *ProgressFlags) quest(q uint8) []ProgressFlag {
	var steps []ProgressFlag
	for k, f := range p.flags {
		if k.Quest == q {
			steps = append(steps, ProgressFlag{k, f})
		}
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].Progress > steps[j].Progress })
	return steps
}

// Entries lists the table by quest then progress, ascending.
func (p *ProgressFlags) Entries() []ProgressFlag {
	out := make([]ProgressFlag, 0, len(p.flags))
	for k, f := range p.flags {
		out = append(out, ProgressFlag{k, f})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quest != out[j].Quest {
			return out[i].Quest < out[j].Quest
		}
		return out[i].Progress < out[j].Progress
	})
	return out
}

// Len is the number of quest steps.
func (p *ProgressFlags) Len() int {
	return len(p.flags)
}

// Flag returns the flag that triggers a quest step.
func (p *ProgressFlags) Flag(quest, progress uint8) (uint16, bool) {
	f, ok := p.flags[QuestProgress{quest, progress}]
	return f, ok
}

// Set maps a quest step to a flag.
func (p *ProgressFlags) Set(quest, progress uint8, flag uint16) {
	p.flags[QuestProgress{quest, progress}] = flag
}

// Delete removes a quest step.
func (p *ProgressFlags) Delete(quest, progress uint8) {
	delete(p.flags, QuestProgress{quest, progress})
}

// Equal compares two tables.
func (p *ProgressFlags) Equal(o *ProgressFlags) bool {
	if len(p.flags) != len(o.flags) {
		return false
	}
	for k, v := range p.flags {
		if ov, ok := o.flags[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

// ToYaml writes one block per quest, steps in table order.
func (p *ProgressFlags) ToYaml() string {
	var sb strings.Builder
	entries := p.Entries()
	if len(entries) == 0 {
		return "[]\n"
	}
	last := int(entries[len(entries)-1].Quest)
	for q := 0; q <= last; q++ {
		fmt.Fprintf(&sb, "- Quest: %d\n", q)
		steps := p.quest(uint8(q))
		if len(steps) == 0 {
			sb.WriteString("  QuestProgress: []\n")
			continue
		}
		sb.WriteString("  QuestProgress:\n")
		for _, s := range steps {
			fmt.Fprintf(&sb, "    - OnFlagSet: 0x%04X\n", s.Flag)
			fmt.Fprintf(&sb, "      SetProgress: %d\n", s.Progress)
		}
	}
	return sb.String()
}

type questYaml struct {
	Quest         uint8 `yaml:"Quest"`
	QuestProgress []struct {
		OnFlagSet   uint16 `yaml:"OnFlagSet"`
		SetProgress uint8  `yaml:"SetProgress"`
	} `yaml:"QuestProgress"`
}

// ProgressFlagsFromYaml reads a table written by ToYaml.
func ProgressFlagsFromYaml(src []byte) (*ProgressFlags, error) {
	var doc []questYaml
	if err := yaml.Unmarshal(src, &doc); err != nil {
		return nil, codec.Malformed("progress flags yaml", err, "parse")
	}
	p := NewProgressFlags()
	for _, q := range doc {
		for _, s := range q.QuestProgress {
			p.Set(q.Quest, s.SetProgress, s.OnFlagSet)
		}
	}
	return p, nil
}
