package text

import (
	"github.com/rcarmo/landstalker/internal/codec"
)

// maxPlainLength is the largest glyph count a count byte can hold.
const maxPlainLength = 0xFF

func decodePlain(ctx *Context, buf []byte, s *String) (int, error) {
	if len(buf) == 0 {
		return 0, codec.Malformed("decode string", codec.ErrBufferUnderrun, "empty buffer")
	}
	n := int(buf[0])
	if n+1 > len(buf) {
		return 0, codec.Malformed("decode string", codec.ErrBufferUnderrun,
			"string needs %d bytes, buffer holds %d", n+1, len(buf))
	}
	s.Text = ctx.Charset.DecodeChars(buf[1 : n+1])
	return n + 1, nil
}

func encodePlain(ctx *Context, s *String) ([]byte, error) {
	chars, err := ctx.Charset.EncodeChars(s.Text)
	if err != nil {
		return nil, err
	}
	if len(chars) > maxPlainLength {
		return nil, codec.Capacity("encode string", codec.ErrTooLong, "%d glyphs", len(chars))
	}
	return append([]byte{byte(len(chars))}, chars...), nil
}

func decodeHuffman(ctx *Context, buf []byte, s *String) (int, error) {
	if len(buf) == 0 || buf[0] == 0 || len(buf) < int(buf[0]) {
		return 0, codec.Malformed("decode huffman string", codec.ErrBufferUnderrun, "not enough data in buffer")
	}
	if ctx.Trees == nil {
		return 0, codec.Malformed("decode huffman string", codec.ErrNoHuffmanTable, "no trees loaded")
	}
	chars, err := ctx.Trees.DecompressString(buf[1:buf[0]], ctx.EOS)
	if err != nil {
		return 0, err
	}
	// The decompressor always stops on the terminator.
	s.Text = ctx.Charset.DecodeChars(chars[:len(chars)-1])
	return int(buf[0]), nil
}

func encodeHuffman(ctx *Context, s *String) ([]byte, error) {
	if ctx.Trees == nil {
		return nil, codec.Malformed("encode huffman string", codec.ErrNoHuffmanTable, "no trees loaded")
	}
	chars, err := ctx.Charset.EncodeChars(s.Text)
	if err != nil {
		return nil, err
	}
	compressed, err := ctx.Trees.CompressString(append(chars, ctx.EOS), ctx.EOS)
	if err != nil {
		return nil, err
	}
	if len(compressed)+1 > maxPlainLength {
		return nil, codec.Capacity("encode huffman string", codec.ErrTooLong, "%d compressed bytes", len(compressed))
	}
	return append([]byte{byte(len(compressed) + 1)}, compressed...), nil
}
