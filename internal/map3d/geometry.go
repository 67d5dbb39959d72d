package map3d

import "image"

// CartesianWidth is the width of the drawn room in tiles.
func (m *Tilemap3D) CartesianWidth() int {
	return (m.width + m.height + m.left) * 2
}

// CartesianHeight is the height of the drawn room in tiles.
func (m *Tilemap3D) CartesianHeight() int {
	return m.width + m.height + m.top + 1
}

func (m *Tilemap3D) PixelWidth() int  { return m.CartesianWidth() * m.tileWidth }
func (m *Tilemap3D) PixelHeight() int { return m.CartesianHeight() * m.tileHeight }

// ToXYPoint returns the top left tile of the block at iso in the drawn room,
// without range checks.
func (m *Tilemap3D) ToXYPoint(iso image.Point) image.Point {
	return image.Pt((iso.X-iso.Y+m.height-1)*2+m.left, iso.X+iso.Y+m.top)
}

// ToXYPoint3D is ToXYPoint for a raised position. Each level of z lifts
// the block by two tiles.
func (m *Tilemap3D) ToXYPoint3D(p Point3D) image.Point {
	xy := m.ToXYPoint(image.Pt(p.X, p.Y))
	xy.Y -= 2 * p.Z
	return xy
}

// IsoToPixel returns the pixel position of the block at iso. Background
// blocks sit two tiles to the right of foreground blocks. With offset unset
// the room's left and top margins are ignored. Positions outside the layer
// give (-1, -1).
func (m *Tilemap3D) IsoToPixel(iso image.Point, l Layer, offset bool) image.Point {
	if !m.IsIsoPointValid(iso) {
		return image.Pt(-1, -1)
	}
	xy := m.ToXYPoint(iso)
	if !offset {
		xy = xy.Sub(image.Pt(m.left, m.top))
	}
	if l == LayerBG {
		xy.X += 2
	}
	return image.Pt(xy.X*m.tileWidth, xy.Y*m.tileHeight)
}

// ToIsometric maps a drawn tile position back to the block under it, or
// (-1, -1) when no block covers it.
func (m *Tilemap3D) ToIsometric(p image.Point) image.Point {
	xgrid := (p.X - m.left) / 2
	ygrid := p.Y - m.top
	iso := image.Pt((ygrid+xgrid-m.height+1)/2, (ygrid-xgrid+m.height-1)/2)
	if !m.IsIsoPointValid(iso) {
		return image.Pt(-1, -1)
	}
	return iso
}

// Iso3DToPixel returns the pixel position of a world position in tiles.
func (m *Tilemap3D) Iso3DToPixel(p Point3D) image.Point {
	xx := p.X - m.left
	yy := p.Y - m.top
	ix := (xx-yy+m.height-1)*2 + m.left
	iy := xx + yy - p.Z*2 + m.top
	return image.Pt(ix*m.tileWidth, iy*m.tileHeight)
}

// EntityPositionToPixel converts a world position in 1/256 tile units, as
// used by entities and warps, to pixels.
func (m *Tilemap3D) EntityPositionToPixel(x, y, z int) image.Point {
	const scale = 0x100
	left := m.left * scale
	top := m.top * scale
	height := m.height * scale
	xx := x - left
	yy := y - top
	ix := (xx-yy+height-scale)*2 + left
	iy := xx + yy - z*2 + top
	return image.Pt(ix*m.tileWidth/scale, iy*m.tileHeight/scale)
}

// HMPointToPixel returns the pixel position of a heightmap cell at floor
// level.
func (m *Tilemap3D) HMPointToPixel(p image.Point) image.Point {
	return m.Iso3DToPixel(Point3D{p.X + HeightmapOffset, p.Y + HeightmapOffset, 0})
}
