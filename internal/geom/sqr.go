package geom

// Square terrain tiles live on their own grid: one square cell covers a
// 2x2 block of hexes. The transforms below mirror the hex ones but use
// the square cell metrics (80x36 art anchored at 48/-12 and 32/24 cell
// advances).

// SqrToScreen returns the screen position of a square tile's anchor.
func (g TileGrid) SqrToScreen(p Point) Point {
	return Point{
		X: g.ScreenPos.X + 48*p.X + 32*p.Y,
		Y: g.ScreenPos.Y - 12*p.X + 24*p.Y,
	}
}

// SqrFromScreen returns the square tile containing a screen point. The
// result may lie outside the map bounds.
func (g TileGrid) SqrFromScreen(p Point) Point {
	x := p.X - g.ScreenPos.X
	y := p.Y - g.ScreenPos.Y - 12

	dx := 3*x - 4*y
	var sx int
	if dx >= 0 {
		sx = dx / 192
	} else {
		sx = (dx+1)/192 - 1
	}

	dy := 4*y + x
	var sy int
	if dy >= 0 {
		sy = dy / 128
	} else {
		sy = (dy+1)/128 - 1
	}

	return Point{sx, sy}
}

// SqrFromScreenRect returns the minimal square-tile rectangle enclosing
// the screen rectangle, clipped to map bounds when clip is set.
func (g TileGrid) SqrFromScreenRect(r Rect, clip bool) Rect {
	right := r.Right - 1
	bottom := r.Bottom - 1

	topLeft := Point{
		X: g.SqrFromScreen(Point{r.Left, bottom}).X,
		Y: g.SqrFromScreen(Point{r.Left, r.Top}).Y,
	}
	bottomRightIncl := Point{
		X: g.SqrFromScreen(Point{right, r.Top}).X,
		Y: g.SqrFromScreen(Point{right, bottom}).Y,
	}
	if clip {
		topLeft = g.Clip(topLeft)
		bottomRightIncl = g.Clip(bottomRightIncl)
	}
	return Rect{
		Left:   topLeft.X,
		Top:    topLeft.Y,
		Right:  bottomRightIncl.X + 1,
		Bottom: bottomRightIncl.Y + 1,
	}
}
