package text

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rcarmo/landstalker/internal/codec"
)

// Charset maps glyph codes to their printable text. Codes without an entry
// print as a {XX} hex escape.
type Charset map[byte]string

type glyph struct {
	code byte
	text string
}

// matchOrder returns the charset sorted longest text first, then by code,
// which makes prefix matching deterministic when glyphs overlap.
func (c Charset) matchOrder() []glyph {
	glyphs := make([]glyph, 0, len(c))
	for code, t := range c {
		if t == "" {
			continue
		}
		glyphs = append(glyphs, glyph{code: code, text: t})
	}
	sort.Slice(glyphs, func(i, j int) bool {
		if len(glyphs[i].text) != len(glyphs[j].text) {
			return len(glyphs[i].text) > len(glyphs[j].text)
		}
		return glyphs[i].code < glyphs[j].code
	})
	return glyphs
}

// DecodeChar returns the printable form of code.
func (c Charset) DecodeChar(code byte) string {
	if t, ok := c[code]; ok {
		return t
	}
	return fmt.Sprintf("{%02X}", code)
}

// DecodeChars joins the printable form of every code.
func (c Charset) DecodeChars(codes []byte) string {
	var b strings.Builder
	for _, code := range codes {
		b.WriteString(c.DecodeChar(code))
	}
	return b.String()
}

// EncodeChars converts printable text back into glyph codes.
func (c Charset) EncodeChars(s string) ([]byte, error) {
	order := c.matchOrder()
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); {
		code, n, err := encodeChar(order, s, i)
		if err != nil {
			return nil, err
		}
		out = append(out, code)
		i += n
	}
	return out, nil
}

func encodeChar(order []glyph, s string, index int) (byte, int, error) {
	for _, g := range order {
		if strings.HasPrefix(s[index:], g.text) {
			return g.code, len(g.text), nil
		}
	}
	if s[index] == '{' {
		end := strings.IndexByte(s[index+1:], '}')
		if end < 0 {
			return 0, 0, codec.Malformed("encode string", codec.ErrBadEscape, "unterminated escape at position %d", index)
		}
		num := s[index+1 : index+1+end]
		v, err := strconv.ParseUint(num, 16, 16)
		if err != nil || v > 0xFF {
			return 0, 0, codec.Malformed("encode string", codec.ErrBadEscape, "bad character number %q at position %d", num, index)
		}
		return byte(v), end + 2, nil
	}
	return 0, 0, codec.Malformed("encode string", codec.ErrBadEscape, "bad character code %q at position %d", s[index], index)
}

func rangeCharset(c Charset, first byte, glyphs string) {
	for i, r := range []rune(glyphs) {
		c[first+byte(i)] = string(r)
	}
}

// DefaultCharset is the glyph table of the English main string bank.
var DefaultCharset = func() Charset {
	c := Charset{0x00: " "}
	rangeCharset(c, 0x01, "0123456789")
	rangeCharset(c, 0x0B, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	rangeCharset(c, 0x25, "abcdefghijklmnopqrstuvwxyz")
	rangeCharset(c, 0x3F, "*.,?!/<>:-'\"%#&()=")
	rangeCharset(c, 0x51, "↖↗↘↙")
	return c
}()

// IntroCharset is the glyph table of the intro captions.
var IntroCharset = func() Charset {
	c := Charset{0: " "}
	rangeCharset(c, 1, "ABCDEFGHIJKLMNOPQRSTUVWXYZ123")
	return c
}()

// EndCreditCharset is the glyph table of the ending credits.
var EndCreditCharset = func() Charset {
	c := Charset{1: " "}
	rangeCharset(c, 2, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	rangeCharset(c, 28, "abcdefghijklmnopqrstuvwxyz")
	rangeCharset(c, 54, "139")
	c[57] = "(C)"
	c[58] = "(3)"
	rangeCharset(c, 59, "-,.")
	c[64] = "{K1}"
	c[65] = "{K2}"
	c[66] = "{K3}"
	c[67] = "{K4}"
	c[128] = "_"
	c[129] = "{UL1}"
	c[130] = "{UL2}"
	c[131] = "{SEGA_LOGO}"
	c[132] = "{CLIMAX_LOGO}"
	c[133] = "{DDS520_LOGO}"
	c[134] = "{MIRAGE_LOGO}"
	return c
}()
