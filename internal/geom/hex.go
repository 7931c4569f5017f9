package geom

import "math"

// Legacy tile metrics in screen pixels. These are format constants, not
// tunables: every shipped asset was drawn against them.
const (
	TileWidth       = 32
	TileHeight      = 16
	TileInnerHeight = 8

	// Screen-space size of one hex cell's bounding box.
	HexWidth  = 32
	HexHeight = 16
)

// ScreenOffset is the screen-space delta between two adjacent hexes when
// going in `dir`.
func ScreenOffset(dir Direction) Point {
	const h = TileInnerHeight + (TileHeight-TileInnerHeight)/2
	switch dir {
	case DirNE:
		return Point{TileHeight, -h}
	case DirE:
		return Point{TileWidth, 0}
	case DirSE:
		return Point{TileHeight, h}
	case DirSW:
		return Point{-TileHeight, h}
	case DirW:
		return Point{-TileWidth, 0}
	case DirNW:
		return Point{-TileHeight, -h}
	}
	return Point{}
}

type tileHit int

const (
	hitInside tileHit = iota
	hitTopLeft
	hitTopRight
	hitBottomLeft
	hitBottomRight
)

// tileHitTest classifies a point within a hex cell's bounding box against
// the cell's four corner cut lines.
func tileHitTest(p Point) tileHit {
	lineTest := func(x1, y1, x2, y2 int) int {
		return (p.X-x1)*(y2-y1) - (p.Y-y1)*(x2-x1)
	}
	if lineTest(0, TileInnerHeight/2, TileWidth/2, 0) > 0 {
		return hitTopLeft
	}
	if lineTest(TileWidth/2, 0, TileWidth, TileInnerHeight/2) > 0 {
		return hitTopRight
	}
	if lineTest(0, TileHeight-TileInnerHeight/2, TileWidth/2, TileHeight) <= 0 {
		return hitBottomLeft
	}
	if lineTest(TileWidth/2, TileHeight, TileWidth, TileHeight-TileInnerHeight/2) <= 0 {
		return hitBottomRight
	}
	return hitInside
}

// TileGrid maps between hex tile coordinates and screen coordinates.
// The tile at origin is drawn at ScreenPos. The grid itself is immutable
// coordinate math; it carries no world state.
type TileGrid struct {
	// ScreenPos is the screen position of tile (0, 0).
	ScreenPos Point

	// Width and Height are the map dimensions in tiles.
	Width  int
	Height int
}

// DefaultGridSize is the legacy map side length in tiles.
const DefaultGridSize = 200

func NewTileGrid(width, height int) TileGrid {
	return TileGrid{Width: width, Height: height}
}

func (g TileGrid) Len() int { return g.Width * g.Height }

func (g TileGrid) InBounds(p Point) bool {
	return p.X >= 0 && p.X < g.Width && p.Y >= 0 && p.Y < g.Height
}

func (g TileGrid) IsOnEdge(p Point) bool {
	return p.X == 0 || p.X == g.Width-1 || p.Y == 0 || p.Y == g.Height-1
}

func (g TileGrid) Clip(p Point) Point {
	return Point{
		X: clamp(p.X, 0, g.Width-1),
		Y: clamp(p.Y, 0, g.Height-1),
	}
}

// Advance per direction for even/odd columns.
var hexAdvance = [2][DirCount]Point{
	{{1, -1}, {1, 0}, {0, 1}, {-1, 0}, {-1, -1}, {0, -1}},
	{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {0, -1}},
}

func (g TileGrid) go0(p Point, dir Direction, distance int, clip bool) Point {
	for i := 0; i < distance; i++ {
		adv := hexAdvance[abs(p.X)%2][dir]
		next := p.Add(adv)
		if clip && !g.InBounds(next) {
			break
		}
		p = next
	}
	return p
}

// Go returns the tile `distance` steps from p in `dir`, or false if it
// falls off the map.
func (g TileGrid) Go(p Point, dir Direction, distance int) (Point, bool) {
	r := g.go0(p, dir, distance, false)
	if !g.InBounds(r) {
		return Point{}, false
	}
	return r, true
}

// GoUnbounded is Go without the bounds check.
func (g TileGrid) GoUnbounded(p Point, dir Direction, distance int) Point {
	return g.go0(p, dir, distance, false)
}

// GoClipped advances step by step and stops at the last in-bounds tile.
func (g TileGrid) GoClipped(p Point, dir Direction, distance int) Point {
	return g.go0(p, dir, distance, true)
}

// Neighbors appends the in-bounds hex neighbors of p to dst and returns it.
// Off-map neighbors are excluded, so the result holds up to six tiles.
func (g TileGrid) Neighbors(dst []Point, p Point) []Point {
	for _, dir := range Directions() {
		if n, ok := g.Go(p, dir, 1); ok {
			dst = append(dst, n)
		}
	}
	return dst
}

// ToScreen returns the screen position of the top-left corner of the
// tile's bounding box.
func (g TileGrid) ToScreen(p Point) Point {
	r := g.ScreenPos
	dx := p.X / 2
	r.X += 48 * dx
	r.Y += 12 * -dx
	if p.X%2 != 0 {
		if p.X <= 0 {
			r.X -= 16
			r.Y += 12
		} else {
			r.X += 32
		}
	}
	r.X += 16 * p.Y
	r.Y += 12 * p.Y
	return r
}

// TileCenter returns the screen position of the tile's center point, the
// anchor sprites are aligned to.
func (g TileGrid) TileCenter(p Point) Point {
	return g.ToScreen(p).Add(Point{16, 8})
}

// FromScreen returns the tile whose hex footprint contains the screen
// point. Every screen point maps to some hex; the result may lie outside
// the map bounds.
func (g TileGrid) FromScreen(p Point) Point {
	absY := p.Y - g.ScreenPos.Y

	// 12 is the vertical hex advance.
	var tileY int
	if absY >= 0 {
		tileY = absY / 12
	} else {
		tileY = (absY+1)/12 - 1
	}

	// 16 is the horizontal hex advance.
	xInRow := p.X - g.ScreenPos.X - 16*tileY
	yInTile := absY - 12*tileY

	var tileHX int
	if xInRow >= 0 {
		tileHX = xInRow / 64
	} else {
		tileHX = (xInRow+1)/64 - 1
	}

	tileY += tileHX
	xInTile := xInRow - tileHX*64
	tileX := 2 * tileHX
	if xInTile >= 32 {
		xInTile -= 32
		tileX++
	}

	switch tileHitTest(Point{xInTile, yInTile}) {
	case hitTopRight:
		tileX++
		if tileX%2 == 1 {
			tileY--
		}
	case hitTopLeft:
		tileY--
	case hitBottomLeft:
		tileX--
		if tileX%2 == 0 {
			tileY++
		}
	case hitBottomRight:
		tileY++
	}

	return Point{tileX, tileY}
}

// Pick maps a screen point to the map tile under it. Points whose hex
// falls outside the map return ok=false rather than snapping to the
// nearest edge tile.
func (g TileGrid) Pick(p Point) (Point, bool) {
	t := g.FromScreen(p)
	if !g.InBounds(t) {
		return Point{}, false
	}
	return t, true
}

// FromScreenRect returns the minimal tile-space rectangle enclosing the
// screen rectangle. The result is clipped to map bounds when clip is set.
func (g TileGrid) FromScreenRect(r Rect, clip bool) Rect {
	right := r.Right - 1
	bottom := r.Bottom - 1

	topLeft := Point{
		X: g.FromScreen(Point{r.Left, bottom}).X,
		Y: g.FromScreen(Point{r.Left, r.Top}).Y,
	}
	bottomRightIncl := Point{
		X: g.FromScreen(Point{right, r.Top}).X,
		Y: g.FromScreen(Point{right, bottom}).Y,
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

// DirectionTo returns the hex direction from one tile toward another.
// The tiles must differ.
func (g TileGrid) DirectionTo(from, to Point) Direction {
	fromScr := g.ToScreen(from)
	toScr := g.ToScreen(to)
	d := toScr.Sub(fromScr)
	if d.X != 0 {
		angle := math.Atan2(float64(-d.Y), float64(d.X)) * 180 / math.Pi
		a := 90 - int(angle)
		dir := (a + 360) % 360 / 60
		if dir > 5 {
			dir = 5
		}
		return Direction(dir)
	}
	if d.Y < 0 {
		return DirNE
	}
	return DirSE
}

// Distance returns the hex distance between two tiles: the number of
// single-hex steps on the shortest unobstructed walk.
func (g TileGrid) Distance(a, b Point) int {
	d := 0
	for a != b {
		dir := g.DirectionTo(a, b)
		a = g.GoUnbounded(a, dir, 1)
		d++
	}
	return d
}

// IsInFrontOf reports whether p1 is in front of p2 when looking SE.
// Used for wall transparency decisions.
func (g TileGrid) IsInFrontOf(p1, p2 Point) bool {
	sp1 := g.ToScreen(p1)
	sp2 := g.ToScreen(p2)
	return sp2.X-sp1.X <= (sp2.Y-sp1.Y)*-4
}

// IsToRightOf reports whether p1 is to the right of p2 when looking SE.
func (g TileGrid) IsToRightOf(p1, p2 Point) bool {
	sp1 := g.ToScreen(p1)
	sp2 := g.ToScreen(p2)
	return sp1.X-sp2.X <= (sp1.Y-sp2.Y)*32/(12*2)
}

// Beyond casts a line from the center of `from` through the center of
// `to` and returns the `distance`-th distinct tile met beyond `to`,
// stopping early at the map edge. Equal endpoints give no line to walk
// and yield `from`.
func (g TileGrid) Beyond(from, to Point, distance int) Point {
	if distance == 0 || from == to {
		return from
	}

	froms := g.ToScreen(from).Add(Point{16, 8})
	tos := g.ToScreen(to).Add(Point{16, 8})

	deltaX := tos.X - froms.X
	absDX2 := 2 * abs(deltaX)
	xInc := sign(deltaX)

	deltaY := tos.Y - froms.Y
	absDY2 := 2 * abs(deltaY)
	yInc := sign(deltaY)

	cur := from
	curs := froms
	curDist := 0

	if absDX2 > absDY2 {
		j := absDY2 - absDX2/2
		for {
			next := g.FromScreen(curs)
			if next != cur {
				curDist++
				if curDist == distance || g.IsOnEdge(next) {
					return next
				}
				cur = next
			}
			if j >= 0 {
				j -= absDX2
				curs.Y += yInc
			}
			j += absDY2
			curs.X += xInc
		}
	}

	j := absDX2 - absDY2/2
	for {
		next := g.FromScreen(curs)
		if next != cur {
			curDist++
			if curDist == distance || g.IsOnEdge(next) {
				return next
			}
			cur = next
		}
		if j >= 0 {
			j -= absDY2
			curs.X += xInc
		}
		j += absDX2
		curs.Y += yInc
	}
}

// FromLinear converts a linear tile index to rectangular coordinates.
func (g TileGrid) FromLinear(num int) Point {
	return Point{X: num % g.Width, Y: num / g.Width}
}

// ToLinear converts rectangular coordinates to a linear tile index.
func (g TileGrid) ToLinear(p Point) (int, bool) {
	if !g.InBounds(p) {
		return 0, false
	}
	return g.Width*p.Y + p.X, true
}

// ToLinearInv is ToLinear with the x axis inverted. Legacy assets (maps,
// scripts) address tiles this way.
func (g TileGrid) ToLinearInv(p Point) (int, bool) {
	if !g.InBounds(p) {
		return 0, false
	}
	return g.Width*p.Y + (g.Width - 1 - p.X), true
}

// FromLinearInv is FromLinear with the x axis inverted.
func (g TileGrid) FromLinearInv(num int) Point {
	return Point{
		X: g.Width - 1 - num%g.Width,
		Y: num / g.Width,
	}
}

// InvertX mirrors an x coordinate: 0 becomes Width-1 and vice versa.
func (g TileGrid) InvertX(x int) int { return g.Width - 1 - x }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
