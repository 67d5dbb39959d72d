package text

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-restruct/restruct"

	"github.com/rcarmo/landstalker/internal/codec"
)

const (
	introHeaderSize = 10
	introLineLength = 16
	introMaxChars   = 30
	introTerminator = 0xFF
	introSpace      = 0x00
)

type introHeader struct {
	Line1Y      uint16
	Line1X      uint16
	Line2Y      uint16
	Line2X      uint16
	DisplayTime uint16
}

func decodeIntro(_ *Context, buf []byte, s *String) (int, error) {
	if len(buf) < introHeaderSize {
		return 0, codec.Malformed("decode intro string", codec.ErrBufferUnderrun, "header needs %d bytes", introHeaderSize)
	}
	var h introHeader
	if err := restruct.Unpack(buf[:introHeaderSize], binary.BigEndian, &h); err != nil {
		return 0, codec.Malformed("decode intro string", err, "")
	}
	s.Line1Y, s.Line1X = h.Line1Y, h.Line1X
	s.Line2Y, s.Line2X = h.Line2Y, h.Line2X
	s.DisplayTime = h.DisplayTime

	body := buf[introHeaderSize:]
	var line1, line2 strings.Builder
	i := 0
	for ; i < introMaxChars; i++ {
		if i >= len(body) {
			return 0, codec.Malformed("decode intro string", codec.ErrBufferUnderrun, "missing terminator")
		}
		if body[i] == introTerminator {
			break
		}
		if i < introLineLength {
			line1.WriteString(IntroCharset.DecodeChar(body[i]))
		} else {
			line2.WriteString(IntroCharset.DecodeChar(body[i]))
		}
	}
	s.Text = line1.String()
	s.Line2 = line2.String()
	if i < introMaxChars {
		// terminator
		i++
	}
	return introHeaderSize + i, nil
}

func encodeIntro(_ *Context, s *String) ([]byte, error) {
	h := introHeader{
		Line1Y:      s.Line1Y,
		Line1X:      s.Line1X,
		Line2Y:      s.Line2Y,
		Line2X:      s.Line2X,
		DisplayTime: s.DisplayTime,
	}
	out, err := restruct.Pack(binary.BigEndian, &h)
	if err != nil {
		return nil, codec.Malformed("encode intro string", err, "")
	}

	line1, err := IntroCharset.EncodeChars(s.Text)
	if err != nil {
		return nil, err
	}
	chars := line1
	if s.Line2 != "" {
		if len(line1) > introLineLength {
			return nil, codec.Capacity("encode intro string", codec.ErrBufferOverrun,
				"first line is %d characters, at most %d fit before a second line", len(line1), introLineLength)
		}
		for len(chars) < introLineLength {
			chars = append(chars, introSpace)
		}
		line2, err := IntroCharset.EncodeChars(s.Line2)
		if err != nil {
			return nil, err
		}
		chars = append(chars, line2...)
	}
	if len(chars) > introMaxChars {
		return nil, codec.Capacity("encode intro string", codec.ErrBufferOverrun,
			"%d characters, at most %d fit", len(chars), introMaxChars)
	}
	out = append(out, chars...)
	if len(chars) < introMaxChars {
		out = append(out, introTerminator)
	}
	return out, nil
}

// SetLine replaces one intro caption line. Line 0 is padded or cut to 16
// characters, line 1 is cut to the 14 left over.
func (s *String) SetLine(line int, str string) {
	switch line {
	case 0:
		if len(str) > introLineLength {
			str = str[:introLineLength]
		}
		s.Text = str + strings.Repeat(" ", introLineLength-len(str))
	case 1:
		if n := introMaxChars - introLineLength; len(str) > n {
			str = str[:n]
		}
		s.Line2 = str
	}
}

// Line returns intro caption line 0 or 1.
func (s *String) Line(line int) string {
	if line == 0 {
		return s.Text
	}
	return s.Line2
}

func serialiseIntro(_ *Context, s *String) string {
	return fmt.Sprintf("%d\t%d\t%d\t%d\t%d\t%s\t%s",
		s.Line1X, s.Line1Y, s.Line2X, s.Line2Y, s.DisplayTime, s.Text, s.Line2)
}

func parseIntro(_ *Context, line string, s *String) error {
	cells := strings.Split(line, "\t")
	if len(cells) < 6 {
		return codec.Malformed("parse intro string", codec.ErrBufferUnderrun, "expected 7 cells, got %d", len(cells))
	}
	var nums [5]uint16
	for i := range nums {
		v, err := strconv.ParseUint(strings.TrimSpace(cells[i]), 10, 16)
		if err != nil {
			return codec.Malformed("parse intro string", err, "cell %d", i+1)
		}
		nums[i] = uint16(v)
	}
	s.Line1X, s.Line1Y, s.Line2X, s.Line2Y, s.DisplayTime = nums[0], nums[1], nums[2], nums[3], nums[4]
	s.Text = cells[5]
	if len(cells) > 6 {
		s.Line2 = cells[6]
	}
	return nil
}
