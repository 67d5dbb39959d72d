// Package script handles the character dialogue script table and the quest
// progress flag table.
//
// Every script line is a 16-bit word. Bit 15 marks a string line whose low
// 13 bits select a message; otherwise bits 10-12 select a command and the low
// 10 bits hold its parameter. Bits 13 and 14 are the end and clear-box
// markers on every line.
package script

import (
	"fmt"

	"github.com/rcarmo/landstalker/internal/codec"
)

// EntryType is the decoded meaning of a script line.
type EntryType int

const (
	EntryInvalid EntryType = iota
	EntryString
	EntryItemLoad
	EntryGlobalCharLoad
	EntryNumberLoad
	EntrySetFlag
	EntryGiveItem
	EntryGiveMoney
	EntryPlayBGM
	EntrySetSpeaker
	EntrySetGlobalSpeaker
	EntryPlayCutscene
)

var entryNames = [...]string{
	EntryInvalid:          "Invalid",
	EntryString:           "String",
	EntryItemLoad:         "LoadItem",
	EntryGlobalCharLoad:   "LoadGlobalCharacter",
	EntryNumberLoad:       "LoadNumber",
	EntrySetFlag:          "SetFlag",
	EntryGiveItem:         "GiveItem",
	EntryGiveMoney:        "GiveMoney",
	EntryPlayBGM:          "PlayBGM",
	EntrySetSpeaker:       "SetSpeaker",
	EntrySetGlobalSpeaker: "SetGlobalSpeaker",
	EntryPlayCutscene:     "PlayCutscene",
}

func (t EntryType) String() string {
	if t >= 0 && int(t) < len(entryNames) {
		return entryNames[t]
	}
	return fmt.Sprintf("EntryType(%d)", int(t))
}

// ParseEntryType is the inverse of EntryType.String.
func ParseEntryType(name string) (EntryType, error) {
	for i, n := range entryNames {
		if n == name {
			return EntryType(i), nil
		}
	}
	return EntryInvalid, codec.Malformed("script", codec.ErrUnknownCommand, "entry type %q", name)
}

const (
	stringBit   = 0x8000
	clearBit    = 0x4000
	endBit      = 0x2000
	stringMask  = 0x1FFF
	commandMask = 0x1C00
	paramMask   = 0x03FF

	globalBase  = 1000
	giveItem    = 1000
	giveMoney   = 1001
	bgmBase     = 1002
	bgmCount    = 2
	maxItem     = 64
	maxSlot     = 3
	cmdNumLoad  = 4
	cmdFlags    = 5
	cmdSpeaker  = 6
	cmdCutscene = 7
)

// BGMNames names the two tracks a script can start.
var BGMNames = [bgmCount]string{"Heh Heh, I Think I Will Disrupt This Good Cheer", "Black Market"}

// Entry is one script line. Value holds the message, item, character, number,
// flag, track or cutscene depending on Type; Slot is only used by the load
// entries. An invalid entry keeps its raw word in Value.
type Entry struct {
	Type  EntryType
	Clear bool
	End   bool
	Value uint16
	Slot  uint8
}

// NewEntry returns a default line of a type.
func NewEntry(t EntryType) Entry {
	if t == EntryInvalid {
		return Entry{Type: EntryInvalid, Value: 0x17FF}
	}
	return Entry{Type: t}
}

// DecodeEntry decodes one script word.
func DecodeEntry(word uint16) Entry {
	e := Entry{Clear: word&clearBit != 0, End: word&endBit != 0}
	if word&stringBit != 0 {
		e.Type = EntryString
		e.Value = word & stringMask
		return e
	}
	cmd := (word & commandMask) >> 10
	param := word & paramMask
	switch {
	case cmd <= maxSlot && param < maxItem:
		e.Type, e.Value, e.Slot = EntryItemLoad, param, uint8(cmd)
	case cmd <= maxSlot && param >= globalBase:
		e.Type, e.Value, e.Slot = EntryGlobalCharLoad, param-globalBase, uint8(cmd)
	case cmd == cmdNumLoad:
		e.Type, e.Value = EntryNumberLoad, param
	case cmd == cmdFlags && param < giveItem:
		e.Type, e.Value = EntrySetFlag, param
	case cmd == cmdFlags && param == giveItem:
		e.Type = EntryGiveItem
	case cmd == cmdFlags && param == giveMoney:
		e.Type = EntryGiveMoney
	case cmd == cmdFlags && param >= bgmBase && param < bgmBase+bgmCount:
		e.Type, e.Value = EntryPlayBGM, param-bgmBase
	case cmd == cmdSpeaker && param < globalBase:
		e.Type, e.Value = EntrySetSpeaker, param
	case cmd == cmdSpeaker:
		e.Type, e.Value = EntrySetGlobalSpeaker, param-globalBase
	case cmd == cmdCutscene:
		e.Type, e.Value = EntryPlayCutscene, param
	default:
		e.Type, e.Value = EntryInvalid, word&0x9FFF
	}
	return e
}

// Word encodes the line. Values that do not fit their field are capacity
// errors.
func (e Entry) Word() (uint16, error) {
	var w uint16
	if e.Clear {
		w |= clearBit
	}
	if e.End {
		w |= endBit
	}
	cmd := func(c, param uint16) uint16 { return c<<10 | param }
	switch e.Type {
	case EntryString:
		if e.Value > stringMask {
			return 0, e.overflow(stringMask)
		}
		return w | stringBit | e.Value, nil
	case EntryItemLoad:
		if e.Value >= maxItem {
			return 0, e.overflow(maxItem - 1)
		}
		if e.Slot > maxSlot {
			return 0, codec.Capacity("script", codec.ErrBadParameter, "slot %d", e.Slot)
		}
		return w | cmd(uint16(e.Slot), e.Value), nil
	case EntryGlobalCharLoad:
		if e.Value > paramMask-globalBase {
			return 0, e.overflow(paramMask - globalBase)
		}
		if e.Slot > maxSlot {
			return 0, codec.Capacity("script", codec.ErrBadParameter, "slot %d", e.Slot)
		}
		return w | cmd(uint16(e.Slot), e.Value+globalBase), nil
	case EntryNumberLoad:
		if e.Value > paramMask {
			return 0, e.overflow(paramMask)
		}
		return w | cmd(cmdNumLoad, e.Value), nil
	case EntrySetFlag:
		if e.Value >= giveItem {
			return 0, e.overflow(giveItem - 1)
		}
		return w | cmd(cmdFlags, e.Value), nil
	case EntryGiveItem:
		return w | cmd(cmdFlags, giveItem), nil
	case EntryGiveMoney:
		return w | cmd(cmdFlags, giveMoney), nil
	case EntryPlayBGM:
		if e.Value >= bgmCount {
			return 0, e.overflow(bgmCount - 1)
		}
		return w | cmd(cmdFlags, bgmBase+e.Value), nil
	case EntrySetSpeaker:
		if e.Value >= globalBase {
			return 0, e.overflow(globalBase - 1)
		}
		return w | cmd(cmdSpeaker, e.Value), nil
	case EntrySetGlobalSpeaker:
		if e.Value > paramMask-globalBase {
			return 0, e.overflow(paramMask - globalBase)
		}
		return w | cmd(cmdSpeaker, e.Value+globalBase), nil
	case EntryPlayCutscene:
		if e.Value > paramMask {
			return 0, e.overflow(paramMask)
		}
		return w | cmd(cmdCutscene, e.Value), nil
	case EntryInvalid:
		return w | e.Value&0x9FFF, nil
	}
	return 0, codec.Malformed("script", codec.ErrUnknownCommand, "entry type %d", int(e.Type))
}

func (e Entry) overflow(limit int) error {
	return codec.Capacity("script", codec.ErrBadParameter, "%s value %d exceeds %d", e.Type, e.Value, limit)
}

// String describes the line for listings.
func (e Entry) String() string {
	switch e.Type {
	case EntryString:
		box, end := "       ", "     "
		if e.Clear {
			box = "[Clear]"
		}
		if e.End {
			end = "[End]"
		}
		return fmt.Sprintf("Message %04d %s %s", e.Value, box, end)
	case EntryItemLoad:
		return fmt.Sprintf("Load item %02d into Slot %01d", e.Value, e.Slot)
	case EntryGlobalCharLoad:
		return fmt.Sprintf("Load global character %02d into Slot %01d", e.Value, e.Slot)
	case EntryNumberLoad:
		return fmt.Sprintf("Load number % 5d into Slot 0", e.Value)
	case EntrySetFlag:
		return fmt.Sprintf("Set flag %03d", e.Value)
	case EntryGiveItem:
		return "Give item in Slot 0 to player"
	case EntryGiveMoney:
		return "Give money amount in Slot 0 to player"
	case EntryPlayBGM:
		return fmt.Sprintf("Play BGM track %01d (%q).", e.Value, BGMNames[int(e.Value)%bgmCount])
	case EntrySetSpeaker:
		return fmt.Sprintf("Set talking character to %03d", e.Value)
	case EntrySetGlobalSpeaker:
		return fmt.Sprintf("Set talking character to global character %03d", e.Value)
	case EntryPlayCutscene:
		return fmt.Sprintf("Initiate cutscene %03d", e.Value)
	}
	return fmt.Sprintf("Invalid Entry %04X", e.Value)
}
