package geom

// Direction is one of the six hex directions, ordered clockwise starting
// at north-east. The numeric values match the legacy asset encoding.
type Direction int

const (
	DirNE Direction = iota
	DirE
	DirSE
	DirSW
	DirW
	DirNW

	DirCount = 6
)

var directionNames = [DirCount]string{"NE", "E", "SE", "SW", "W", "NW"}

func (d Direction) String() string {
	if d < 0 || d >= DirCount {
		return "Direction(?)"
	}
	return directionNames[d]
}

func (d Direction) Valid() bool { return d >= 0 && d < DirCount }

func (d Direction) RotateCW() Direction {
	return (d + 1) % DirCount
}

func (d Direction) RotateCCW() Direction {
	return (d + DirCount - 1) % DirCount
}

// Directions lists all six directions in encoding order.
func Directions() [DirCount]Direction {
	return [DirCount]Direction{DirNE, DirE, DirSE, DirSW, DirW, DirNW}
}
