package geom

// Point is a 2D integer coordinate, either in tile space or screen space
// depending on context.
type Point struct {
	X int
	Y int
}

func Pt(x, y int) Point { return Point{X: x, Y: y} }

func (p Point) Add(o Point) Point { return Point{X: p.X + o.X, Y: p.Y + o.Y} }
func (p Point) Sub(o Point) Point { return Point{X: p.X - o.X, Y: p.Y - o.Y} }

func (p Point) Abs() Point {
	if p.X < 0 {
		p.X = -p.X
	}
	if p.Y < 0 {
		p.Y = -p.Y
	}
	return p
}

// ElevatedPoint is a tile coordinate plus the map elevation it belongs to.
type ElevatedPoint struct {
	Elevation int
	Point     Point
}

func (p Point) Elevated(elevation int) ElevatedPoint {
	return ElevatedPoint{Elevation: elevation, Point: p}
}

// Rect is a half-open rectangle [Left, Right) x [Top, Bottom).
type Rect struct {
	Left   int
	Top    int
	Right  int
	Bottom int
}

func (r Rect) Width() int  { return r.Right - r.Left }
func (r Rect) Height() int { return r.Bottom - r.Top }

func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X < r.Right && p.Y >= r.Top && p.Y < r.Bottom
}
