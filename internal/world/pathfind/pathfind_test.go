package pathfind

import (
	"errors"
	"reflect"
	"testing"

	"hexworld.dev/internal/geom"
)

func open(p geom.Point) (int, bool) { return 0, true }

func blockedAt(pts ...geom.Point) TileCost {
	return func(p geom.Point) (int, bool) {
		for _, b := range pts {
			if p == b {
				return 0, false
			}
		}
		return 0, true
	}
}

func penaltyAt(pt geom.Point, cost int) TileCost {
	return func(p geom.Point) (int, bool) {
		if p == pt {
			return cost, true
		}
		return 0, true
	}
}

// walk expands a direction sequence into the visited tiles.
func walk(grid geom.TileGrid, from geom.Point, dirs ...geom.Direction) []geom.Point {
	out := make([]geom.Point, 0, len(dirs))
	p := from
	for _, d := range dirs {
		p = grid.GoUnbounded(p, d, 1)
		out = append(out, p)
	}
	return out
}

func TestFind(t *testing.T) {
	grid := geom.NewTileGrid(200, 200)
	f := New(grid, 5000)

	cases := []struct {
		name     string
		from, to geom.Point
		state    TileCost
		dirs     []geom.Direction
		wantErr  bool
	}{
		{"self", geom.Pt(0, 0), geom.Pt(0, 0), open, nil, false},
		{"one east", geom.Pt(0, 0), geom.Pt(1, 0), open,
			[]geom.Direction{geom.DirE}, false},
		{"two", geom.Pt(0, 0), geom.Pt(2, 0), open,
			[]geom.Direction{geom.DirE, geom.DirNE}, false},
		{"down right", geom.Pt(0, 0), geom.Pt(1, 1), open,
			[]geom.Direction{geom.DirE, geom.DirSE}, false},
		{"back", geom.Pt(1, 1), geom.Pt(0, 0), open,
			[]geom.Direction{geom.DirW, geom.DirNW}, false},
		{"three east", geom.Pt(0, 1), geom.Pt(3, 1), open,
			[]geom.Direction{geom.DirE, geom.DirE, geom.DirNE}, false},
		{"diagonal", geom.Pt(0, 1), geom.Pt(3, 0), open,
			[]geom.Direction{geom.DirE, geom.DirNE, geom.DirNE}, false},
		{"south", geom.Pt(1, 1), geom.Pt(1, 4), open,
			[]geom.Direction{geom.DirSE, geom.DirSE, geom.DirSE}, false},
		{"detour", geom.Pt(0, 0), geom.Pt(1, 1), blockedAt(geom.Pt(1, 0)),
			[]geom.Direction{geom.DirSE, geom.DirE}, false},
		{"cost detour", geom.Pt(0, 0), geom.Pt(1, 1), penaltyAt(geom.Pt(1, 0), 100),
			[]geom.Direction{geom.DirSE, geom.DirE}, false},
		{"detour back", geom.Pt(1, 1), geom.Pt(0, 0), blockedAt(geom.Pt(0, 1)),
			[]geom.Direction{geom.DirNW, geom.DirW}, false},
		{"walled in", geom.Pt(0, 0), geom.Pt(1, 1),
			blockedAt(geom.Pt(0, 1), geom.Pt(1, 0)), nil, true},
		{"blocked goal", geom.Pt(0, 0), geom.Pt(199, 199),
			func(geom.Point) (int, bool) { return 0, false }, nil, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := f.Find(tc.from, tc.to, false, tc.state)
			if tc.wantErr {
				if !errors.Is(err, ErrUnreachable) {
					t.Fatalf("err = %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("find: %v", err)
			}
			want := walk(grid, tc.from, tc.dirs...)
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("path = %v, want %v", got, want)
			}
			if len(got) > 0 && got[len(got)-1] != tc.to {
				t.Fatalf("path ends at %v, not goal %v", got[len(got)-1], tc.to)
			}
		})
	}
}

func TestFindNeighborsAdjacent(t *testing.T) {
	grid := geom.NewTileGrid(200, 200)
	f := New(grid, 5000)
	from := geom.Pt(5, 5)
	to := geom.Pt(17, 12)
	path, err := f.Find(from, to, false, open)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	prev := from
	for _, p := range path {
		if grid.Distance(prev, p) != 1 {
			t.Fatalf("non-adjacent step %v -> %v", prev, p)
		}
		prev = p
	}
	if want := grid.Distance(from, to); len(path) != want {
		t.Fatalf("path length %d, shortest distance %d", len(path), want)
	}
}

func TestFindSmooth(t *testing.T) {
	grid := geom.NewTileGrid(200, 200)
	f := New(grid, 5000)
	from := geom.Pt(2, 0)
	to := geom.Pt(0, 3)

	got, err := f.Find(from, to, false, open)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	want := walk(grid, from, geom.DirSE, geom.DirSW, geom.DirSE, geom.DirSW)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("plain path = %v, want %v", got, want)
	}

	got, err = f.Find(from, to, true, open)
	if err != nil {
		t.Fatalf("find smooth: %v", err)
	}
	want = walk(grid, from, geom.DirSE, geom.DirSW, geom.DirSW, geom.DirSE)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("smooth path = %v, want %v", got, want)
	}
}

func TestFindTurnPenaltyZero(t *testing.T) {
	grid := geom.NewTileGrid(200, 200)
	f := New(grid, 5000)
	f.TurnPenalty = 0
	from := geom.Pt(2, 0)
	to := geom.Pt(0, 3)

	got, err := f.Find(from, to, true, open)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	want := walk(grid, from, geom.DirSE, geom.DirSW, geom.DirSE, geom.DirSW)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("smooth path with zero penalty = %v, want plain shape %v", got, want)
	}
}

func TestFindMaxDepth(t *testing.T) {
	grid := geom.NewTileGrid(200, 200)
	f := New(grid, 10)
	_, err := f.Find(geom.Pt(2, 0), geom.Pt(0, 0), false,
		blockedAt(geom.Pt(1, 0), geom.Pt(0, 1)))
	if !errors.Is(err, ErrUnreachable) {
		t.Fatalf("err = %v", err)
	}
	if len(f.steps) != 10 {
		t.Fatalf("steps = %d, want bound 10", len(f.steps))
	}
}

func TestFindDeterministic(t *testing.T) {
	grid := geom.NewTileGrid(200, 200)
	f := New(grid, 5000)
	first, err := f.Find(geom.Pt(3, 3), geom.Pt(40, 40), false, open)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		again, err := f.Find(geom.Pt(3, 3), geom.Pt(40, 40), false, open)
		if err != nil {
			t.Fatal(err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %v vs %v", i, again, first)
		}
	}
}
