//go:build js && wasm

// Package main provides WebAssembly bindings for the ROM codecs so the
// browser editor can preview data without a server round trip.
// This file contains only JavaScript glue code - all actual codec logic
// is in the internal packages.
package main

import (
	"syscall/js"

	"github.com/rcarmo/landstalker/internal/codec"
	"github.com/rcarmo/landstalker/internal/palette"
	"github.com/rcarmo/landstalker/internal/tileset"
)

func bytesFromJS(v js.Value) []byte {
	buf := make([]byte, v.Get("length").Int())
	js.CopyBytesToGo(buf, v)
	return buf
}

func bytesToJS(b []byte) js.Value {
	arr := js.Global().Get("Uint8Array").New(len(b))
	js.CopyBytesToJS(arr, b)
	return arr
}

// jsLZ77Decode returns [data, consumed], or null on malformed input
func jsLZ77Decode(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}

	out, n, err := codec.LZ77Decode(bytesFromJS(args[0]))
	if err != nil {
		println("lz77 decode:", err.Error())
		return nil
	}
	return []interface{}{bytesToJS(out), n}
}

// jsLZ77Encode is the JS wrapper for LZ77Encode
func jsLZ77Encode(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}
	return bytesToJS(codec.LZ77Encode(bytesFromJS(args[0])))
}

// jsPaletteRGBA converts a full palette in Genesis format to RGBA bytes
func jsPaletteRGBA(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return nil
	}

	pal, err := palette.FromBytes("wasm", bytesFromJS(args[0]), palette.TypeFull)
	if err != nil {
		return nil
	}
	rgba := make([]byte, 0, pal.Len()*4)
	for i := 0; i < pal.Len(); i++ {
		c := pal.Colour(i)
		rgba = append(rgba, c.Red(), c.Green(), c.Blue(), c.Alpha())
	}
	return bytesToJS(rgba)
}

// jsTilesetSheet renders a tileset into dstArray as an RGBA sheet.
// Args: src, dst, compressed, columns. Returns [width, height] or null.
func jsTilesetSheet(this js.Value, args []js.Value) interface{} {
	if len(args) < 4 {
		return nil
	}

	ts, _, err := tileset.Decode(bytesFromJS(args[0]), args[2].Bool())
	if err != nil {
		return nil
	}
	pal := palette.New("debug", palette.TypeFull)
	img := ts.Sheet(pal, args[3].Int())

	b := img.Bounds()
	rgba := make([]byte, 0, b.Dx()*b.Dy()*4)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := pal.Colour(int(img.ColorIndexAt(x, y)))
			rgba = append(rgba, c.Red(), c.Green(), c.Blue(), c.Alpha())
		}
	}

	dst := args[1]
	if dst.Get("length").Int() < len(rgba) {
		return nil
	}
	js.CopyBytesToJS(dst, rgba)

	return []interface{}{b.Dx(), b.Dy()}
}

func main() {
	c := make(chan struct{})

	js.Global().Set("goLandstalker", js.ValueOf(map[string]interface{}{
		"lz77Decode":   js.FuncOf(jsLZ77Decode),
		"lz77Encode":   js.FuncOf(jsLZ77Encode),
		"paletteRGBA":  js.FuncOf(jsPaletteRGBA),
		"tilesetSheet": js.FuncOf(jsTilesetSheet),
	}))

	println("Go WASM Landstalker codec module loaded")

	<-c
}
