package gamedata

import (
	"bytes"
	"fmt"

	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/rom"
	"github.com/rcarmo/landstalker/internal/text"
	"github.com/rcarmo/landstalker/internal/tilemap"
)

const (
	huffmanSection = "HuffmanSection"
	textBoxLea     = "TextBoxTilemap"
	smallBoxLea    = "InventoryTextBoxTilemap"
	huffOffsetsLea = "HuffTableOffsets"
	huffTablesLea  = "HuffTables"

	stringSection = "StringData"
	stringPtr     = "StringPtr"
	mainFontPtr   = "MainFontPtr"

	textBoxWidth   = 40
	textBoxBase    = 0x6B4
	stringBankSize = 256
)

// The Huffman section holds the three and two line text box maps, then the
// tree offsets and the trees.
func (g *GameData) loadHuffman(r *rom.Rom) error {
	leas := []string{textBoxLea, smallBoxLea, huffOffsetsLea, huffTablesLea}
	if missing(r, []string{huffmanSection}, leas) {
		return nil
	}
	targets, ok, err := leaTargets(r, leas...)
	if err != nil || !ok {
		return err
	}
	sec, err := r.Section(huffmanSection)
	if err != nil {
		return err
	}
	bounds := append(targets, sec.End)
	parts := make([][]byte, len(leas))
	for i := range leas {
		if parts[i], err = readSpan(r, leas[i], bounds[i], bounds[i+1]); err != nil {
			return err
		}
	}
	big, err := g.AddTilemap2D("TextBox3Line", "graphics/textbox_3line.bin", parts[0], textBoxWidth, 8, tilemap.CompressionNone, textBoxBase)
	if err != nil {
		return err
	}
	small, err := g.AddTilemap2D("TextBox2Line", "graphics/textbox_2line.bin", parts[1], textBoxWidth, 6, tilemap.CompressionNone, textBoxBase)
	if err != nil {
		return err
	}
	numChars := len(parts[2]) / 2
	th, err := g.AddHuffmanTrees("HuffmanTrees", "strings/huffman.bin", append(parts[2], parts[3]...), numChars)
	if err != nil {
		return err
	}
	log.Debug("huffman: %d characters", numChars)

	g.refresh = append(g.refresh, func(r *rom.Rom) error {
		trees, err := g.HuffmanTrees.Get(th)
		if err != nil {
			return err
		}
		g.text.Trees = trees
		b, err := g.HuffmanTrees.Bytes(th)
		if err != nil {
			return err
		}
		offsets, data, err := splitAt("inject huffman trees", b, numChars*2)
		if err != nil {
			return err
		}
		bigMap, err := g.Maps2D.Bytes(big)
		if err != nil {
			return err
		}
		smallMap, err := g.Maps2D.Bytes(small)
		if err != nil {
			return err
		}
		sec, err := r.Section(huffmanSection)
		if err != nil {
			return err
		}
		smallAddr := sec.Begin + uint32(len(bigMap))
		offsetsAddr := smallAddr + uint32(len(smallMap))
		g.strings.AddPendingWrite(huffmanSection, bytes.Join([][]byte{bigMap, smallMap, offsets, data}, nil))
		return g.addLeaWrites(r, g.strings, map[string]uint32{
			textBoxLea:     sec.Begin,
			smallBoxLea:    smallAddr,
			huffOffsetsLea: offsetsAddr,
			huffTablesLea:  offsetsAddr + uint32(len(offsets)),
		})
	})
	return nil
}

// The main string section holds the font, the Huffman compressed strings
// and a table of pointers to each bank of 256 strings.
func (g *GameData) loadMainStrings(r *rom.Rom) error {
	const op = "load main strings"
	if missing(r, []string{stringSection}, []string{stringPtr, mainFontPtr}) {
		return nil
	}
	if g.text.Trees == nil {
		log.Debug("main strings need Huffman trees, skipping")
		return nil
	}
	ptrs, ok, err := pointers(r, mainFontPtr, stringPtr)
	if err != nil || !ok {
		return err
	}
	font, banks := ptrs[0], ptrs[1]
	sec, err := r.Section(stringSection)
	if err != nil {
		return err
	}
	if !sec.Contains(font) || !sec.Contains(banks) {
		return codec.Malformed(op, codec.ErrInconsistent, "font 0x%06X, banks 0x%06X outside %s", font, banks, stringSection)
	}
	first, err := r.Read32(banks)
	if err != nil {
		return err
	}
	if first < font || first > banks {
		return codec.Malformed(op, codec.ErrInconsistent, "first bank at 0x%06X", first)
	}
	glyphs, err := readSpan(r, "main font", font, first)
	if err != nil {
		return err
	}
	fh, err := g.AddFont("MainFont", "graphics/fonts/main.bin", glyphs, 16, 15, 1)
	if err != nil {
		return err
	}
	data, err := readSpan(r, "main strings", first, banks)
	if err != nil {
		return err
	}
	var hs []Handle[*text.String]
	for pos := 0; pos < len(data) && data[pos] != 0x00 && data[pos] != 0xFF; {
		n := int(data[pos])
		if pos+n > len(data) {
			return codec.Malformed(op, codec.ErrBufferUnderrun, "string %d at 0x%06X", len(hs), first+uint32(pos))
		}
		name := fmt.Sprintf("MainString%04d", len(hs))
		h, err := g.AddString(name, fmt.Sprintf("strings/main/%04d%s", len(hs), text.FormatHuffman.FileExt()), data[pos:pos+n], text.FormatHuffman)
		if err != nil {
			return codec.Malformed(op, err, "%s", name)
		}
		hs = append(hs, h)
		pos += n
	}

	g.refresh = append(g.refresh, func(r *rom.Rom) error {
		sec, err := r.Section(stringSection)
		if err != nil {
			return err
		}
		out, err := g.Tilesets.Bytes(fh)
		if err != nil {
			return err
		}
		var banks []uint32
		for i, h := range hs {
			if i%stringBankSize == 0 {
				banks = append(banks, sec.Begin+uint32(len(out)))
			}
			b, err := g.Strings.Bytes(h)
			if err != nil {
				return err
			}
			out = append(out, b...)
		}
		for len(out)%4 != 0 {
			out = append(out, 0)
		}
		tableAddr := sec.Begin + uint32(len(out))
		for _, b := range banks {
			out = append(out, be32(b)...)
		}
		g.strings.AddPendingWrite(stringSection, out)
		g.strings.AddPendingWrite(stringPtr, be32(tableAddr))
		g.strings.AddPendingWrite(mainFontPtr, be32(sec.Begin))
		return nil
	})
	return nil
}
