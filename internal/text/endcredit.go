package text

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rcarmo/landstalker/internal/codec"
)

const (
	endCreditNoString   = -1
	endCreditTerminator = 0x00
)

func decodeEndCredit(_ *Context, buf []byte, s *String) (int, error) {
	if len(buf) < 2 {
		return 0, codec.Malformed("decode end credit", codec.ErrBufferUnderrun, "not enough bytes to decode string")
	}
	s.Height = int8(buf[0])
	s.Column = int8(buf[1])
	s.Text = ""
	if s.Height == endCreditNoString {
		return 2, nil
	}
	if s.Column >= 0 {
		if len(buf) < 3 {
			return 0, codec.Malformed("decode end credit", codec.ErrBufferUnderrun, "missing glyph")
		}
		s.Text = EndCreditCharset.DecodeChar(buf[2])
		return 3, nil
	}
	end := -1
	for i := 2; i < len(buf); i++ {
		if buf[i] == endCreditTerminator {
			end = i
			break
		}
	}
	if end < 0 {
		return 0, codec.Malformed("decode end credit", codec.ErrBufferUnderrun, "missing terminator")
	}
	s.Text = EndCreditCharset.DecodeChars(buf[2:end])
	return end + 1, nil
}

func encodeEndCredit(_ *Context, s *String) ([]byte, error) {
	out := []byte{byte(s.Height), byte(s.Column)}
	if s.Height == endCreditNoString {
		return out, nil
	}
	chars, err := EndCreditCharset.EncodeChars(s.Text)
	if err != nil {
		return nil, err
	}
	if s.Column >= 0 {
		if len(chars) == 0 {
			return nil, codec.Malformed("encode end credit", codec.ErrBufferUnderrun, "single glyph record has no glyph")
		}
		return append(out, chars[0]), nil
	}
	out = append(out, chars...)
	return append(out, endCreditTerminator), nil
}

func serialiseEndCredit(_ *Context, s *String) string {
	return fmt.Sprintf("%d\t%d\t%s", s.Height, -int(s.Column), s.Text)
}

func parseEndCredit(_ *Context, line string, s *String) error {
	cells := strings.SplitN(line, "\t", 3)
	if len(cells) < 2 {
		return codec.Malformed("parse end credit", codec.ErrBufferUnderrun, "expected 3 cells, got %d", len(cells))
	}
	h, err := strconv.Atoi(strings.TrimSpace(cells[0]))
	if err != nil {
		return codec.Malformed("parse end credit", err, "height")
	}
	c, err := strconv.Atoi(strings.TrimSpace(cells[1]))
	if err != nil {
		return codec.Malformed("parse end credit", err, "column")
	}
	s.Height = int8(h)
	s.Column = int8(-c)
	if len(cells) > 2 {
		s.Text = cells[2]
	}
	return nil
}
