package world

import "hexworld.dev/internal/geom"

const (
	// MaxEmitterRadius bounds an emitter's reach in hexes.
	MaxEmitterRadius = 8
	// DefaultLightIntensity is the base intensity every grid cell starts at.
	DefaultLightIntensity = 655
	// MaxIntensity is full brightness.
	MaxIntensity = 0x10000
)

// LightTest decides how an emitter's light interacts with one cone
// point: block stops propagation bookkeeping, update allows the point's
// intensity to change. The zero decision is fully transparent.
type LightTest func(i int, p geom.Point) (block, update bool)

// LightGrid accumulates per-tile light intensity per elevation. Emitter
// contributions fall off linearly with hex distance from the emitter.
type LightGrid struct {
	grid   geom.TileGrid
	levels [ElevationCount][]int
	cones  [2][geom.DirCount][]geom.Point
	radii  []int
}

func NewLightGrid(grid geom.TileGrid) *LightGrid {
	g := &LightGrid{grid: grid}
	for e := 0; e < ElevationCount; e++ {
		g.levels[e] = make([]int, grid.Len())
	}
	g.buildCones()
	g.Clear()
	return g
}

func (g *LightGrid) Clear() {
	for e := range g.levels {
		lvl := g.levels[e]
		for i := range lvl {
			lvl[i] = DefaultLightIntensity
		}
	}
}

// Get returns the raw accumulated intensity at a tile, zero off-map.
func (g *LightGrid) Get(pos geom.ElevatedPoint) int {
	if pos.Elevation < 0 || pos.Elevation >= ElevationCount {
		return 0
	}
	idx, ok := g.grid.ToLinear(pos.Point)
	if !ok {
		return 0
	}
	return g.levels[pos.Elevation][idx]
}

// GetClipped is Get clamped to the representable brightness range.
func (g *LightGrid) GetClipped(pos geom.ElevatedPoint) int {
	v := g.Get(pos)
	if v < 0 {
		return 0
	}
	if v > MaxIntensity {
		return MaxIntensity
	}
	return v
}

// Update applies an emitter delta at pos and its falloff across the
// emitter's light cone. A negative delta removes a previously applied
// emitter. The tester may veto individual cone points; nil accepts all.
func (g *LightGrid) Update(pos geom.ElevatedPoint, radius, delta int, tester LightTest) {
	if radius > MaxEmitterRadius {
		radius = MaxEmitterRadius
	}
	idx, ok := g.grid.ToLinear(pos.Point)
	if !ok || pos.Elevation < 0 || pos.Elevation >= ElevationCount {
		return
	}
	lvl := g.levels[pos.Elevation]
	lvl[idx] += delta

	sign := 1
	deltaAbs := delta
	if delta < 0 {
		sign = -1
		deltaAbs = -delta
	}
	falloff := (deltaAbs - DefaultLightIntensity) / (radius + 1)

	cones := &g.cones[abs(pos.Point.X)%2]
	for i := range g.radii {
		if radius < g.radii[i] {
			continue
		}
		amount := sign * (deltaAbs - falloff*g.radii[i])
		for d := 0; d < geom.DirCount; d++ {
			p := pos.Point.Add(cones[d][i])
			if tester != nil {
				block, update := tester(i, p)
				if block || !update {
					continue
				}
			}
			if j, ok := g.grid.ToLinear(p); ok {
				lvl[j] += amount
			}
		}
	}
}

// buildCones precomputes the cone point offsets for even and odd emitter
// columns. Cone index i lies at hex distance radii[i] from the emitter.
func (g *LightGrid) buildCones() {
	for odd := 0; odd < 2; odd++ {
		origin := geom.Pt(odd, 0)
		for d := 0; d < geom.DirCount; d++ {
			dir := geom.Direction(d)
			next := dir.RotateCW()
			var pts []geom.Point
			for startDist := 0; startDist < MaxEmitterRadius; startDist++ {
				start := g.grid.GoUnbounded(origin, next, startDist)
				for dist := 1; dist <= MaxEmitterRadius-startDist; dist++ {
					p := g.grid.GoUnbounded(start, dir, dist)
					pts = append(pts, p.Sub(origin))
					if odd == 0 && dir == geom.DirNE {
						g.radii = append(g.radii, startDist+dist)
					}
				}
			}
			g.cones[odd][d] = pts
		}
	}
}
