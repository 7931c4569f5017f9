// Package pathfind computes walkable routes over the hex grid with a
// best-first search. Step cost is a fixed base per hex plus the target
// tile's terrain cost; the heuristic is the screen-space hex distance,
// which never overestimates. Equal-priority frontier nodes resolve to
// the earlier-inserted one, so results are deterministic.
package pathfind

import (
	"errors"
	"sort"

	"hexworld.dev/internal/geom"
)

// ErrUnreachable means no path exists or the search exceeded its
// expansion bound.
var ErrUnreachable = errors.New("pathfind: unreachable")

// stepCost is the base cost of entering any hex.
const stepCost = 50

// defaultTurnPenalty is the extra cost of changing direction in smooth
// mode when the caller tunes nothing else.
const defaultTurnPenalty = 10

// TileCost reports whether a tile can be entered and at what extra
// terrain cost. Out-of-bounds tiles are never asked.
type TileCost func(p geom.Point) (cost int, passable bool)

type step struct {
	pos      geom.Point
	cameFrom int
	dir      geom.Direction
	cost     int
	estimate int
}

func (s *step) total() int { return s.cost + s.estimate }

// Finder is a reusable path searcher over one grid. A Finder is not
// safe for concurrent use; its scratch state is reused across calls.
type Finder struct {
	grid     geom.TileGrid
	maxDepth int

	// TurnPenalty is the extra cost of changing direction in smooth
	// mode. Zero makes smooth searches behave like plain ones.
	TurnPenalty int

	steps  []step
	open   []int
	closed []bool
}

// New returns a Finder bounded to maxDepth expanded steps per search.
func New(grid geom.TileGrid, maxDepth int) *Finder {
	return &Finder{
		grid:        grid,
		maxDepth:    maxDepth,
		TurnPenalty: defaultTurnPenalty,
		closed:      make([]bool, grid.Len()),
	}
}

// Find returns the tile sequence from `from` to `to`, excluding the
// start and including the goal. A path to the current tile is empty.
// Smooth mode penalizes turns, trading optimality for straighter walks.
func (f *Finder) Find(from, to geom.Point, smooth bool, state TileCost) ([]geom.Point, error) {
	if from == to {
		return []geom.Point{}, nil
	}
	if _, ok := state(to); !ok {
		return nil, ErrUnreachable
	}

	f.steps = f.steps[:0]
	f.open = f.open[:0]
	for i := range f.closed {
		f.closed[i] = false
	}

	f.steps = append(f.steps, step{
		pos:      from,
		dir:      geom.DirNE,
		estimate: f.estimate(from, to),
	})
	f.openStep(0)

outer:
	for len(f.open) > 0 {
		idx := f.open[len(f.open)-1]
		f.open = f.open[:len(f.open)-1]
		cur := f.steps[idx]

		if cur.pos == to {
			return f.assemble(idx), nil
		}

		f.close(cur.pos)

		for _, dir := range geom.Directions() {
			next, ok := f.grid.Go(cur.pos, dir, 1)
			if !ok || f.isClosed(next) {
				continue
			}
			terrain, passable := state(next)
			if !passable {
				continue
			}
			cost := cur.cost + terrain + stepCost
			if smooth && dir != cur.dir {
				cost += f.TurnPenalty
			}

			if openIdx, stepIdx, found := f.findOpen(next); found {
				// Already on the frontier; refresh its position.
				f.open = append(f.open[:openIdx], f.open[openIdx+1:]...)
				f.openStep(stepIdx)
				continue
			}
			if len(f.steps) >= f.maxDepth {
				break outer
			}
			f.steps = append(f.steps, step{
				pos:      next,
				cameFrom: idx,
				dir:      dir,
				cost:     cost,
				estimate: f.estimate(next, to),
			})
			f.openStep(len(f.steps) - 1)
		}
	}
	return nil, ErrUnreachable
}

// assemble walks the parent chain back from the goal. Step 0 is the
// start and stays out of the result.
func (f *Finder) assemble(idx int) []geom.Point {
	n := 0
	for i := idx; i != 0; i = f.steps[i].cameFrom {
		n++
	}
	path := make([]geom.Point, n)
	for i := idx; i != 0; i = f.steps[i].cameFrom {
		n--
		path[n] = f.steps[i].pos
	}
	return path
}

// openStep inserts a step index into the open list, which is kept
// sorted by descending total cost so the best candidate pops off the
// end. Among equal costs the earlier-inserted step sits closer to the
// end and wins.
func (f *Finder) openStep(stepIdx int) {
	cost := f.steps[stepIdx].total()
	i := sort.Search(len(f.open), func(i int) bool {
		return cost >= f.steps[f.open[i]].total()
	})
	f.open = append(f.open, 0)
	copy(f.open[i+1:], f.open[i:])
	f.open[i] = stepIdx
}

func (f *Finder) findOpen(pos geom.Point) (openIdx, stepIdx int, found bool) {
	for i, si := range f.open {
		if f.steps[si].pos == pos {
			return i, si, true
		}
	}
	return 0, 0, false
}

func (f *Finder) close(pos geom.Point) {
	if i, ok := f.grid.ToLinear(pos); ok {
		f.closed[i] = true
	}
}

func (f *Finder) isClosed(pos geom.Point) bool {
	i, ok := f.grid.ToLinear(pos)
	return ok && f.closed[i]
}

// estimate is the screen-space hex distance from a to b.
func (f *Finder) estimate(a, b geom.Point) int {
	d := f.grid.ToScreen(b).Sub(f.grid.ToScreen(a)).Abs()
	min := d.X
	if d.Y < min {
		min = d.Y
	}
	return d.X + d.Y - min/2
}
