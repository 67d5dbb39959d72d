package tileset

import (
	"image"
	"image/png"
	"io"

	"golang.org/x/image/draw"

	"github.com/rcarmo/landstalker/internal/palette"
	"github.com/rcarmo/landstalker/internal/tile"
)

// SheetColumns is the default number of tiles per row in an exported sheet.
const SheetColumns = 16

// Sheet lays every tile out in a grid of columns, as palette indices into pal.
func (ts *Tileset) Sheet(pal *palette.Palette, columns int) *image.Paletted {
	if columns <= 0 {
		columns = SheetColumns
	}
	rows := (len(ts.tiles) + columns - 1) / columns
	if rows == 0 {
		rows = 1
	}
	img := image.NewPaletted(image.Rect(0, 0, columns*ts.width, rows*ts.height), pal.ColorPalette())
	for i := range ts.tiles {
		x0, y0 := i%columns*ts.width, i/columns*ts.height
		px := ts.GetTile(tile.FromIndex(i))
		for y := 0; y < ts.height; y++ {
			for x := 0; x < ts.width; x++ {
				img.SetColorIndex(x0+x, y0+y, uint8(ts.mapColour(px[y*ts.width+x])))
			}
		}
	}
	return img
}

// ExportPNG writes the tileset as a PNG sheet, enlarged by an integer scale
// with nearest neighbour sampling so pixels stay sharp.
func (ts *Tileset) ExportPNG(w io.Writer, pal *palette.Palette, columns, scale int) error {
	img := ts.Sheet(pal, columns)
	if scale > 1 {
		b := img.Bounds()
		dst := image.NewPaletted(image.Rect(0, 0, b.Dx()*scale, b.Dy()*scale), img.Palette)
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
		img = dst
	}
	return png.Encode(w, img)
}
