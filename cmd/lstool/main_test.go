package main

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/rom"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	LabelsPath, OffsetsPath, Region = "", "", "auto"
	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func testRom() []byte {
	data := make([]byte, 0x200000)
	copy(data[0x150:], bytes.Repeat([]byte{' '}, 48))
	copy(data[0x150:], "LANDSTALKER")
	copy(data[0x202:], "93/07/13 20:03")
	binary.BigEndian.PutUint32(data[0x00A114:], 0x41FA0092)
	copy(data[0x00A1A8:], bytes.Repeat([]byte{0xFF}, 8))
	return data
}

func TestLZ77Commands(t *testing.T) {
	dir := t.TempDir()
	raw := bytes.Repeat([]byte("GREENMAZE "), 40)
	in := writeFile(t, dir, "raw.bin", raw)
	packed := filepath.Join(dir, "packed.lz")
	unpacked := filepath.Join(dir, "unpacked.bin")

	out, err := execute(t, "lz77", "encode", in, packed)
	require.NoError(t, err)
	assert.Contains(t, out, "400 -> ")

	out, err = execute(t, "lz77", "decode", packed, unpacked)
	require.NoError(t, err)
	assert.Contains(t, out, "-> 400 bytes")

	got, err := os.ReadFile(unpacked)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

func TestLZ77Decode_Malformed(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "bad.lz", []byte{0x00, 0x00, 0x10})

	_, err := execute(t, "lz77", "decode", in, filepath.Join(dir, "out.bin"))
	require.Error(t, err)
	assert.Equal(t, codec.KindMalformed, codec.KindOf(err))
}

func TestLZ77_Args(t *testing.T) {
	_, err := execute(t, "lz77", "decode", "only-one")
	assert.Error(t, err)
}

func TestRomInfo(t *testing.T) {
	path := writeFile(t, t.TempDir(), "ls.bin", testRom())

	out, err := execute(t, "rom", "info", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Title:    LANDSTALKER")
	assert.Contains(t, out, "Region:   US (USA)")

	_, err = execute(t, "rom", "info", "--region", "EU", path)
	assert.Error(t, err)
}

func TestRomFix(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ls.bin", testRom())
	fixed := filepath.Join(dir, "fixed.bin")

	out, err := execute(t, "rom", "fix", path, fixed)
	require.NoError(t, err)
	assert.Contains(t, out, "checksum 0000 -> ")

	r, err := rom.Load(fixed)
	require.NoError(t, err)
	assert.Equal(t, r.Checksum(), r.StoredChecksum())
}

func TestRomExtract(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ls.bin", testRom())
	outDir := filepath.Join(dir, "out")

	_, err := execute(t, "rom", "extract", path, outDir)
	require.NoError(t, err)
	entries, err := os.ReadDir(outDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries)
}

func TestRomInject(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "ls.bin", testRom())
	outDir := filepath.Join(dir, "out")
	patched := filepath.Join(dir, "patched.bin")

	_, err := execute(t, "rom", "extract", path, outDir)
	require.NoError(t, err)
	out, err := execute(t, "rom", "inject", path, outDir, patched)
	require.NoError(t, err)
	assert.Contains(t, out, "no entries changed")
	_, err = os.Stat(patched)
	assert.True(t, os.IsNotExist(err))

	writeFile(t, filepath.Join(outDir, "rooms"), "misc_warps.bin", []byte{
		0x00, 0x30, 0x00, 0x40, 0xFF, 0xFF, // falls
		0xFF, 0xFF, // climbs
		0xFF, 0xFF, 0xFF, 0xFF, // transitions
	})
	out, err = execute(t, "rom", "inject", path, outDir, patched)
	require.NoError(t, err)
	assert.Contains(t, out, "1 entries injected")

	r, err := rom.Load(patched)
	require.NoError(t, err)
	assert.Equal(t, r.Checksum(), r.StoredChecksum())
	falls, err := r.ReadBytes(0x00A1A8, 6)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x00, 0x30, 0x00, 0x40, 0xFF, 0xFF}, falls)

	original, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, testRom(), original)

	writeFile(t, filepath.Join(outDir, "rooms"), "misc_warps.bin", []byte{0x00})
	_, err = execute(t, "rom", "inject", path, outDir, patched)
	assert.Error(t, err)
}

func TestTilesetPNG(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "tiles.bin", bytes.Repeat([]byte{0x12, 0x34}, 96))
	png := filepath.Join(dir, "tiles.png")

	out, err := execute(t, "tileset", "png", "--scale", "2", in, png)
	require.NoError(t, err)
	assert.Contains(t, out, "6 tiles written")

	img, err := os.ReadFile(png)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(img, []byte("\x89PNG")))

	_, err = execute(t, "tileset", "png", "--palette", writeFile(t, dir, "short.pal", []byte{1}), in, png)
	assert.Error(t, err)
}

func TestBehavioursRoundTrip(t *testing.T) {
	dir := t.TempDir()
	offsets := writeFile(t, dir, "offsets.bin", []byte{9, 3})
	table := writeFile(t, dir, "table.bin", []byte{
		0x00, 0x0A, 0x11, 0x28, 0x41, 0x12, 0x05, 0x12, 0xFB,
		0x12, 0x02, 0x02,
	})

	out, err := execute(t, "behaviours", "yaml", offsets, table)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "---\n"))
	assert.Contains(t, out, "Name: Behaviour1")
	assert.Contains(t, out, "- TurnCW")

	doc := writeFile(t, dir, "behaviours.yaml", []byte(out))
	newOffsets := filepath.Join(dir, "offsets2.bin")
	newTable := filepath.Join(dir, "table2.bin")
	_, err = execute(t, "behaviours", "pack", doc, newOffsets, newTable)
	require.NoError(t, err)

	for _, pair := range [][2]string{{offsets, newOffsets}, {table, newTable}} {
		want, err := os.ReadFile(pair[0])
		require.NoError(t, err)
		got, err := os.ReadFile(pair[1])
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
}

func TestStringsDecode(t *testing.T) {
	rec := []byte{0x05, 0x12, 0x29, 0x30, 0x30, 0x33}
	path := writeFile(t, t.TempDir(), "strings.bin", append(append([]byte{}, rec...), rec...))

	out, err := execute(t, "strings", "decode", path)
	require.NoError(t, err)
	assert.Equal(t, "Hello\nHello\n", out)

	_, err = execute(t, "strings", "decode", "--format", "morse", path)
	require.Error(t, err)
	assert.Equal(t, codec.KindConfig, codec.KindOf(err))
}
