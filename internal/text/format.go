// Package text encodes and decodes the game's string records. Every record
// kind is a Format; the per-format codecs live in a single table so that
// adding a format means adding one table row.
package text

import (
	"fmt"

	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/codec/huffman"
)

// Format selects the binary record shape of a string.
type Format int

const (
	// FormatPlain is a count byte followed by glyph codes.
	FormatPlain Format = iota
	// FormatHuffman is a length byte followed by a Huffman-compressed payload.
	FormatHuffman
	// FormatIntro is a positioned two line intro caption.
	FormatIntro
	// FormatEndCredit is an ending credits line with height and column.
	FormatEndCredit
)

// String is a decoded string record. Text holds the glyph form, with any
// diacritics still split into prefix and letter.
type String struct {
	Format Format
	Text   string

	// Intro captions
	Line2       string
	Line1X      uint16
	Line1Y      uint16
	Line2X      uint16
	Line2Y      uint16
	DisplayTime uint16

	// End credits
	Height int8
	Column int8
}

// NewString returns an empty string of format f with its default fields.
func NewString(f Format) *String {
	s := &String{Format: f}
	if f == FormatEndCredit {
		s.Column = -1
	}
	return s
}

// Equal reports whether both records hold the same data.
func (s *String) Equal(o *String) bool {
	if s == nil || o == nil {
		return s == o
	}
	return *s == *o
}

// Context carries the immutable tables a string codec needs.
type Context struct {
	Charset    Charset
	Diacritics Diacritics
	Trees      *huffman.Trees
	EOS        byte
}

// DefaultContext returns the English main bank context without Huffman trees.
func DefaultContext() *Context {
	return &Context{Charset: DefaultCharset, EOS: huffman.DefaultEOS}
}

type formatCodec struct {
	name      string
	ext       string
	header    string
	charset   func(ctx *Context) Charset
	decode    func(ctx *Context, buf []byte, s *String) (int, error)
	encode    func(ctx *Context, s *String) ([]byte, error)
	serialise func(ctx *Context, s *String) string
	parse     func(ctx *Context, line string, s *String) error
}

func contextCharset(ctx *Context) Charset { return ctx.Charset }
func introCharset(*Context) Charset       { return IntroCharset }
func endCreditCharset(*Context) Charset   { return EndCreditCharset }

var formats = [...]formatCodec{
	FormatPlain: {
		name: "plain", ext: ".bin",
		charset:   contextCharset,
		decode:    decodePlain,
		encode:    encodePlain,
		serialise: serialiseText,
		parse:     parseText,
	},
	FormatHuffman: {
		name: "huffman", ext: ".huf",
		charset:   contextCharset,
		decode:    decodeHuffman,
		encode:    encodeHuffman,
		serialise: serialiseText,
		parse:     parseText,
	},
	FormatIntro: {
		name: "intro", ext: ".bin",
		header:    "Line1_X\tLine1_Y\tLine2_X\tLine2_Y\tDisplayTime\tLine1\tLine2",
		charset:   introCharset,
		decode:    decodeIntro,
		encode:    encodeIntro,
		serialise: serialiseIntro,
		parse:     parseIntro,
	},
	FormatEndCredit: {
		name: "endcredit", ext: ".bin",
		header:    "Height\tColumn\tString",
		charset:   endCreditCharset,
		decode:    decodeEndCredit,
		encode:    encodeEndCredit,
		serialise: serialiseEndCredit,
		parse:     parseEndCredit,
	},
}

func lookup(f Format) (*formatCodec, error) {
	if f < 0 || int(f) >= len(formats) {
		return nil, codec.Config("string format", fmt.Errorf("unknown string format %d", int(f)), "")
	}
	return &formats[f], nil
}

func (f Format) String() string {
	if fc, err := lookup(f); err == nil {
		return fc.name
	}
	return "unknown"
}

// ParseFormat is the inverse of Format.String.
func ParseFormat(name string) (Format, error) {
	for i := range formats {
		if formats[i].name == name {
			return Format(i), nil
		}
	}
	return 0, codec.Config("string format", nil, "unknown string format %q", name)
}

// FileExt returns the extension used when the record is saved on its own.
func (f Format) FileExt() string {
	if fc, err := lookup(f); err == nil {
		return fc.ext
	}
	return ".bin"
}

// HeaderRow returns the TSV header for the format, empty if it has none.
func (f Format) HeaderRow() string {
	if fc, err := lookup(f); err == nil {
		return fc.header
	}
	return ""
}

// Decode reads one string record of format f from buf. It returns the
// record and the number of bytes consumed.
func (ctx *Context) Decode(f Format, buf []byte) (*String, int, error) {
	fc, err := lookup(f)
	if err != nil {
		return nil, 0, err
	}
	s := NewString(f)
	n, err := fc.decode(ctx, buf, s)
	if err != nil {
		return nil, n, err
	}
	return s, n, nil
}

// Encode serialises s in its own format.
func (ctx *Context) Encode(s *String) ([]byte, error) {
	fc, err := lookup(s.Format)
	if err != nil {
		return nil, err
	}
	return fc.encode(ctx, s)
}

// Serialise returns the user-facing single line form of s.
func (ctx *Context) Serialise(s *String) string {
	fc, err := lookup(s.Format)
	if err != nil {
		return ""
	}
	return fc.serialise(ctx, s)
}

// Deserialise parses a line produced by Serialise.
func (ctx *Context) Deserialise(f Format, line string) (*String, error) {
	fc, err := lookup(f)
	if err != nil {
		return nil, err
	}
	s := NewString(f)
	if err := fc.parse(ctx, line, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Display returns the text of s with diacritics composed.
func (ctx *Context) Display(s *String) string {
	return ctx.Diacritics.Apply(s.Text)
}

// SetText replaces the text of s from user input, splitting diacritics.
func (ctx *Context) SetText(s *String, str string) {
	s.Text = ctx.Diacritics.Remove(str)
}

// AddFrequencyCounts adds the glyph pairs of s, including its terminator, to freq.
func (ctx *Context) AddFrequencyCounts(freq huffman.FrequencyCounts, s *String) error {
	fc, err := lookup(s.Format)
	if err != nil {
		return err
	}
	chars, err := fc.charset(ctx).EncodeChars(s.Text)
	if err != nil {
		return err
	}
	freq.Add(append(chars, ctx.EOS), ctx.EOS)
	return nil
}

// RecalculateTrees trains a fresh set of Huffman trees from strs and stores
// it in the context.
func (ctx *Context) RecalculateTrees(strs []*String, numChars int) error {
	freq := huffman.FrequencyCounts{}
	for _, s := range strs {
		if err := ctx.AddFrequencyCounts(freq, s); err != nil {
			return err
		}
	}
	trees, err := huffman.Recalculate(freq, numChars)
	if err != nil {
		return err
	}
	ctx.Trees = trees
	return nil
}

func serialiseText(ctx *Context, s *String) string {
	return ctx.Diacritics.Apply(s.Text)
}

func parseText(ctx *Context, line string, s *String) error {
	s.Text = ctx.Diacritics.Remove(line)
	return nil
}
