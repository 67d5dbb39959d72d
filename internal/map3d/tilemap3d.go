// Package map3d holds the isometric room maps: two block layers drawn over
// a heightmap that carries the collision, height and floor type of each
// cell, together with the tile swap and door overlays that redraw parts of
// a room at run time.
package map3d

import (
	"fmt"
	"image"

	"github.com/rcarmo/landstalker/internal/logging"
)

var log = logging.For("map3d")

const (
	// MaxDimension bounds layer and heightmap growth through the editing calls.
	MaxDimension = 64
	// HeightmapOffset is the distance between heightmap coordinates and
	// the world coordinates used by entities, doors and swaps.
	HeightmapOffset = 12
	// DefaultCell is the heightmap value given to newly created cells.
	DefaultCell uint16 = 0x4000
	// BlockMask is the range of block indices a layer can hold.
	BlockMask uint16 = 0x3FF
	// NoBlock is returned when a layer position is out of range.
	NoBlock uint16 = 0xFFFF

	defaultTileWidth  = 8
	defaultTileHeight = 8
)

// Layer selects one of the two block layers.
type Layer int

const (
	LayerBG Layer = iota
	LayerFG
)

func (l Layer) String() string {
	if l == LayerFG {
		return "fg"
	}
	return "bg"
}

// FloorType is the low byte of a heightmap cell.
type FloorType uint8

const (
	FloorNormal        FloorType = 0
	FloorDoorNE        FloorType = 1
	FloorDoorSE        FloorType = 2
	FloorDoorSW        FloorType = 3
	FloorDoorNW        FloorType = 4
	FloorStairs        FloorType = 5
	FloorDoorWarp      FloorType = 6
	FloorPit           FloorType = 7
	FloorWarp          FloorType = 8
	FloorLadderNW      FloorType = 11
	FloorLadderNE      FloorType = 12
	FloorCounter       FloorType = 14
	FloorElevator      FloorType = 15
	FloorSpikes        FloorType = 16
	FloorSwamp         FloorType = 25
	FloorLockedDoorN   FloorType = 26
	FloorLockedDoorSE  FloorType = 38
	FloorLockedDoorSW  FloorType = 39
	FloorNoleStaircase FloorType = 40
	FloorLava          FloorType = 41
	FloorIceNE         FloorType = 42
	FloorIceSE         FloorType = 43
	FloorIceSW         FloorType = 44
	FloorIceNW         FloorType = 45
	FloorHealthRecover FloorType = 46
)

var floorNames = map[FloorType]string{
	FloorNormal:        "normal",
	FloorDoorNE:        "door_ne",
	FloorDoorSE:        "door_se",
	FloorDoorSW:        "door_sw",
	FloorDoorNW:        "door_nw",
	FloorStairs:        "stairs",
	FloorDoorWarp:      "door_warp",
	FloorPit:           "pit",
	FloorWarp:          "warp",
	FloorLadderNW:      "ladder_nw",
	FloorLadderNE:      "ladder_ne",
	FloorCounter:       "counter",
	FloorElevator:      "elevator",
	FloorSpikes:        "spikes",
	FloorSwamp:         "swamp",
	FloorLockedDoorN:   "locked_door_n",
	FloorLockedDoorSE:  "locked_door_se",
	FloorLockedDoorSW:  "locked_door_sw",
	FloorNoleStaircase: "nole_staircase",
	FloorLava:          "lava",
	FloorIceNE:         "ice_ne",
	FloorIceSE:         "ice_se",
	FloorIceSW:         "ice_sw",
	FloorIceNW:         "ice_nw",
	FloorHealthRecover: "health_recover",
}

func (f FloorType) String() string {
	if s, ok := floorNames[f]; ok {
		return s
	}
	// Signs occupy two ranges of four.
	switch {
	case f >= 17 && f <= 20:
		return fmt.Sprintf("sign_nw%d", f-16)
	case f >= 21 && f <= 24:
		return fmt.Sprintf("sign_ne%d", f-20)
	case f >= 30 && f <= 33:
		return fmt.Sprintf("sign_nw%d", f-25)
	case f >= 34 && f <= 37:
		return fmt.Sprintf("sign_ne%d", f-29)
	}
	return fmt.Sprintf("floor_%d", uint8(f))
}

// Point3D is a heightmap position with an elevation.
type Point3D struct {
	X, Y, Z int
}

// Tilemap3D is an isometric room. The foreground and background layers are
// width x height grids of block indices; the heightmap has its own
// dimensions and holds one 16 bit cell per floor square:
//
//	bits 12-15  movement restrictions
//	bits 8-11   height
//	bits 0-7    floor type
type Tilemap3D struct {
	left, top     int
	width, height int
	hmWidth       int
	hmHeight      int
	tileWidth     int
	tileHeight    int
	foreground    []uint16
	background    []uint16
	heightmap     []uint16
}

// New returns an empty room with every heightmap cell set to DefaultCell.
func New(width, height, hmWidth, hmHeight int) *Tilemap3D {
	m := &Tilemap3D{
		width:      width,
		height:     height,
		hmWidth:    hmWidth,
		hmHeight:   hmHeight,
		tileWidth:  defaultTileWidth,
		tileHeight: defaultTileHeight,
		foreground: make([]uint16, width*height),
		background: make([]uint16, width*height),
		heightmap:  make([]uint16, hmWidth*hmHeight),
	}
	for i := range m.heightmap {
		m.heightmap[i] = DefaultCell
	}
	return m
}

// Equal compares geometry, both layers and the heightmap.
func (m *Tilemap3D) Equal(o *Tilemap3D) bool {
	return m.left == o.left && m.top == o.top &&
		m.width == o.width && m.height == o.height &&
		m.hmWidth == o.hmWidth && m.hmHeight == o.hmHeight &&
		equalCells(m.foreground, o.foreground) &&
		equalCells(m.background, o.background) &&
		equalCells(m.heightmap, o.heightmap)
}

func equalCells(a, b []uint16) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (m *Tilemap3D) Left() int            { return m.left }
func (m *Tilemap3D) Top() int             { return m.top }
func (m *Tilemap3D) Width() int           { return m.width }
func (m *Tilemap3D) Height() int          { return m.height }
func (m *Tilemap3D) Size() int            { return m.width * m.height }
func (m *Tilemap3D) HeightmapWidth() int  { return m.hmWidth }
func (m *Tilemap3D) HeightmapHeight() int { return m.hmHeight }
func (m *Tilemap3D) HeightmapSize() int   { return m.hmWidth * m.hmHeight }
func (m *Tilemap3D) TileWidth() int       { return m.tileWidth }
func (m *Tilemap3D) TileHeight() int      { return m.tileHeight }

func (m *Tilemap3D) SetLeft(left int) { m.left = left }
func (m *Tilemap3D) SetTop(top int)   { m.top = top }

// SetTileDims sets the pixel size of a tile used by the geometry helpers.
func (m *Tilemap3D) SetTileDims(width, height int) {
	m.tileWidth, m.tileHeight = width, height
}

func (m *Tilemap3D) layer(l Layer) []uint16 {
	if l == LayerFG {
		return m.foreground
	}
	return m.background
}

// Blocks returns the row ordered block indices of a layer.
func (m *Tilemap3D) Blocks(l Layer) []uint16 { return m.layer(l) }

// Heightmap returns the row ordered heightmap cells.
func (m *Tilemap3D) Heightmap() []uint16 { return m.heightmap }

// ClearTilemap zeroes both layers.
func (m *Tilemap3D) ClearTilemap() {
	for i := range m.foreground {
		m.foreground[i] = 0
		m.background[i] = 0
	}
}

// IsIsoPointValid reports whether p lies inside the block layers.
func (m *Tilemap3D) IsIsoPointValid(p image.Point) bool {
	return p.X >= 0 && p.X < m.width && p.Y >= 0 && p.Y < m.height
}

// IsHMPointValid reports whether p lies inside the heightmap.
func (m *Tilemap3D) IsHMPointValid(p image.Point) bool {
	return p.X >= 0 && p.X < m.hmWidth && p.Y >= 0 && p.Y < m.hmHeight
}

// Block returns the block at p, or NoBlock outside the layer.
func (m *Tilemap3D) Block(p image.Point, l Layer) uint16 {
	if !m.IsIsoPointValid(p) {
		return NoBlock
	}
	return m.layer(l)[p.Y*m.width+p.X]
}

// SetBlock stores a block index at p and reports whether p was in range.
func (m *Tilemap3D) SetBlock(p image.Point, l Layer, value uint16) bool {
	if !m.IsIsoPointValid(p) {
		return false
	}
	m.layer(l)[p.Y*m.width+p.X] = value & BlockMask
	return true
}

// Cell returns the raw heightmap cell at p.
func (m *Tilemap3D) Cell(p image.Point) (uint16, bool) {
	if !m.IsHMPointValid(p) {
		return 0, false
	}
	return m.heightmap[p.Y*m.hmWidth+p.X], true
}

// SetCell replaces the raw heightmap cell at p.
func (m *Tilemap3D) SetCell(p image.Point, value uint16) bool {
	if !m.IsHMPointValid(p) {
		return false
	}
	m.heightmap[p.Y*m.hmWidth+p.X] = value
	return true
}

func (m *Tilemap3D) cellField(p image.Point, mask uint16, shift uint) (uint8, bool) {
	c, ok := m.Cell(p)
	if !ok {
		return 0, false
	}
	return uint8(c & mask >> shift), true
}

func (m *Tilemap3D) setCellField(p image.Point, mask uint16, shift uint, v uint8) bool {
	c, ok := m.Cell(p)
	if !ok || uint16(v)<<shift&^mask != 0 {
		return false
	}
	return m.SetCell(p, c&^mask|uint16(v)<<shift)
}

// CellHeight returns the 4 bit height of the cell at p.
func (m *Tilemap3D) CellHeight(p image.Point) (uint8, bool) {
	return m.cellField(p, 0x0F00, 8)
}

// SetCellHeight sets the height of the cell at p. Heights above 15 are
// rejected.
func (m *Tilemap3D) SetCellHeight(p image.Point, h uint8) bool {
	return m.setCellField(p, 0x0F00, 8, h)
}

// CellRestrictions returns the movement restriction nibble of the cell at p.
func (m *Tilemap3D) CellRestrictions(p image.Point) (uint8, bool) {
	return m.cellField(p, 0xF000, 12)
}

// SetCellRestrictions sets the restriction nibble of the cell at p.
func (m *Tilemap3D) SetCellRestrictions(p image.Point, r uint8) bool {
	return m.setCellField(p, 0xF000, 12, r)
}

// CellType returns the floor type of the cell at p.
func (m *Tilemap3D) CellType(p image.Point) (FloorType, bool) {
	v, ok := m.cellField(p, 0x00FF, 0)
	return FloorType(v), ok
}

// SetCellType sets the floor type of the cell at p.
func (m *Tilemap3D) SetCellType(p image.Point, t FloorType) bool {
	return m.setCellField(p, 0x00FF, 0, uint8(t))
}

// regrid rebuilds a row ordered grid. from maps a destination position to a
// source position; positions outside the old grid take fill.
func regrid(src []uint16, w, h, nw, nh int, fill uint16, from func(x, y int) (int, int)) []uint16 {
	out := make([]uint16, nw*nh)
	for y := 0; y < nh; y++ {
		for x := 0; x < nw; x++ {
			sx, sy := from(x, y)
			if sx >= 0 && sx < w && sy >= 0 && sy < h && sy*w+sx < len(src) {
				out[y*nw+x] = src[sy*w+sx]
			} else {
				out[y*nw+x] = fill
			}
		}
	}
	return out
}

func same(x, y int) (int, int) { return x, y }

func (m *Tilemap3D) regridLayers(nw, nh int, from func(x, y int) (int, int)) {
	m.foreground = regrid(m.foreground, m.width, m.height, nw, nh, 0, from)
	m.background = regrid(m.background, m.width, m.height, nw, nh, 0, from)
	m.width, m.height = nw, nh
}

func (m *Tilemap3D) regridHeightmap(nw, nh int, from func(x, y int) (int, int)) {
	m.heightmap = regrid(m.heightmap, m.hmWidth, m.hmHeight, nw, nh, DefaultCell, from)
	m.hmWidth, m.hmHeight = nw, nh
}

// Resize changes the layer dimensions. Blocks keep their positions and new
// space is zero.
func (m *Tilemap3D) Resize(width, height int) {
	m.regridLayers(width, height, same)
}

// ResizeHeightmap changes the heightmap dimensions. New cells take
// DefaultCell.
func (m *Tilemap3D) ResizeHeightmap(width, height int) {
	m.regridHeightmap(width, height, same)
}

// InsertTilemapRow duplicates layer row `before`, pushing the rows below it
// down by one.
func (m *Tilemap3D) InsertTilemapRow(before int) {
	if before < 0 || before >= m.height || m.height >= MaxDimension {
		return
	}
	m.regridLayers(m.width, m.height+1, func(x, y int) (int, int) {
		if y > before {
			return x, y - 1
		}
		return x, y
	})
}

// InsertTilemapColumn duplicates layer column `before`.
func (m *Tilemap3D) InsertTilemapColumn(before int) {
	if before < 0 || before >= m.width || m.width >= MaxDimension {
		return
	}
	m.regridLayers(m.width+1, m.height, func(x, y int) (int, int) {
		if x > before {
			return x - 1, y
		}
		return x, y
	})
}

// DeleteTilemapRow removes a layer row. The layers keep at least one row.
func (m *Tilemap3D) DeleteTilemapRow(row int) {
	if row < 0 || row >= m.height || m.height <= 1 {
		return
	}
	m.regridLayers(m.width, m.height-1, func(x, y int) (int, int) {
		if y >= row {
			return x, y + 1
		}
		return x, y
	})
}

// DeleteTilemapColumn removes a layer column.
func (m *Tilemap3D) DeleteTilemapColumn(col int) {
	if col < 0 || col >= m.width || m.width <= 1 {
		return
	}
	m.regridLayers(m.width-1, m.height, func(x, y int) (int, int) {
		if x >= col {
			return x + 1, y
		}
		return x, y
	})
}

// InsertHeightmapRow duplicates heightmap row `before`.
func (m *Tilemap3D) InsertHeightmapRow(before int) {
	if before < 0 || before >= m.hmHeight || m.hmHeight >= MaxDimension {
		return
	}
	m.regridHeightmap(m.hmWidth, m.hmHeight+1, func(x, y int) (int, int) {
		if y > before {
			return x, y - 1
		}
		return x, y
	})
}

// InsertHeightmapColumn duplicates heightmap column `before`.
func (m *Tilemap3D) InsertHeightmapColumn(before int) {
	if before < 0 || before >= m.hmWidth || m.hmWidth >= MaxDimension {
		return
	}
	m.regridHeightmap(m.hmWidth+1, m.hmHeight, func(x, y int) (int, int) {
		if x > before {
			return x - 1, y
		}
		return x, y
	})
}

// DeleteHeightmapRow removes a heightmap row.
func (m *Tilemap3D) DeleteHeightmapRow(row int) {
	if row < 0 || row >= m.hmHeight || m.hmHeight <= 1 {
		return
	}
	m.regridHeightmap(m.hmWidth, m.hmHeight-1, func(x, y int) (int, int) {
		if y >= row {
			return x, y + 1
		}
		return x, y
	})
}

// DeleteHeightmapColumn removes a heightmap column.
func (m *Tilemap3D) DeleteHeightmapColumn(col int) {
	if col < 0 || col >= m.hmWidth || m.hmWidth <= 1 {
		return
	}
	m.regridHeightmap(m.hmWidth-1, m.hmHeight, func(x, y int) (int, int) {
		if x >= col {
			return x + 1, y
		}
		return x, y
	})
}
