// Package world owns the simulation state of one loaded map: the square
// terrain tiles per elevation, every placed object with its per-tile
// occupancy index, the accumulated light grid, and animation playback.
// It is built from legacy map bytes through the archive and sprite
// layers and mutated by gameplay collaborators one tick at a time; the
// package itself decides no game rules.
package world

import (
	"errors"
	"fmt"
	"time"

	"hexworld.dev/internal/assets/frm"
	"hexworld.dev/internal/assets/protodef"
	"hexworld.dev/internal/geom"
)

var (
	// ErrMalformedMap means the map bytes violate the legacy layout.
	ErrMalformedMap = errors.New("world: malformed map")
	// ErrMissingAsset means a referenced sprite has no archive entry.
	ErrMissingAsset = errors.New("world: missing asset")
	// ErrOutOfBounds rejects a mutation targeting a tile off the map.
	ErrOutOfBounds = errors.New("world: out of bounds")
	// ErrBlocked rejects moving an actor onto an impassable tile.
	ErrBlocked = errors.New("world: blocked")
)

const (
	// ElevationCount is the fixed number of vertical map levels.
	ElevationCount = 3
	// HexGridSize is the side length of the hex grid in tiles.
	HexGridSize = 200
	// SqrGridSize is the side length of the square terrain grid; one
	// square tile covers two hexes in each axis.
	SqrGridSize = 100
)

// Tile is one square terrain cell: a floor sprite id and a roof sprite
// id, both indices into the tile art list.
type Tile struct {
	Floor uint16
	Roof  uint16
}

// SpriteSource resolves archive entry names to decoded sprites.
// *cache.SpriteCache satisfies it.
type SpriteSource interface {
	Get(name string) (*frm.Sprite, error)
}

// World is the full state of one loaded map. A single goroutine owns
// each World; mutations and reads are not synchronized internally.
type World struct {
	hexGrid geom.TileGrid
	sqrGrid geom.TileGrid

	// tiles[e] is nil when elevation e is absent from the map.
	tiles   [ElevationCount][]Tile
	objects *Objects
	lights  *LightGrid

	// AmbientLight is the uniform base brightness, clamped by readers.
	AmbientLight int
}

func New() *World {
	hexGrid := geom.NewTileGrid(HexGridSize, HexGridSize)
	return &World{
		hexGrid:      hexGrid,
		sqrGrid:      geom.NewTileGrid(SqrGridSize, SqrGridSize),
		objects:      NewObjects(hexGrid),
		lights:       NewLightGrid(hexGrid),
		AmbientLight: MaxIntensity,
	}
}

func (w *World) HexGrid() geom.TileGrid { return w.hexGrid }
func (w *World) SqrGrid() geom.TileGrid { return w.sqrGrid }
func (w *World) Objects() *Objects      { return w.objects }
func (w *World) Lights() *LightGrid     { return w.lights }

// HasElevation reports whether the map carries terrain for an elevation.
func (w *World) HasElevation(e int) bool {
	return e >= 0 && e < ElevationCount && w.tiles[e] != nil
}

// Tile returns the square terrain cell at a position.
func (w *World) Tile(e int, p geom.Point) (Tile, bool) {
	if !w.HasElevation(e) {
		return Tile{}, false
	}
	idx, ok := w.sqrGrid.ToLinear(p)
	if !ok {
		return Tile{}, false
	}
	return w.tiles[e][idx], true
}

// SetTiles installs an elevation's terrain. The slice length must match
// the square grid.
func (w *World) SetTiles(e int, tiles []Tile) {
	if e < 0 || e >= ElevationCount {
		return
	}
	w.tiles[e] = tiles
}

// Place registers an object at a position and indexes its occupancy.
func (w *World) Place(obj *Object, pos geom.ElevatedPoint) (Handle, error) {
	if pos.Elevation < 0 || pos.Elevation >= ElevationCount || !w.hexGrid.InBounds(pos.Point) {
		return 0, fmt.Errorf("%w: %d:%d,%d", ErrOutOfBounds, pos.Elevation, pos.Point.X, pos.Point.Y)
	}
	obj.HasPos = true
	obj.Pos = pos
	h := w.objects.Insert(obj)
	w.applyLight(obj, 1)
	return h, nil
}

// Insert registers an object without a position (inventory contents,
// system objects).
func (w *World) Insert(obj *Object) Handle {
	obj.HasPos = false
	return w.objects.Insert(obj)
}

// MoveObject relocates an object. Actors are refused impassable targets.
func (w *World) MoveObject(h Handle, pos geom.ElevatedPoint) error {
	obj := w.objects.Get(h)
	if obj == nil {
		return fmt.Errorf("%w: dead handle %d", ErrOutOfBounds, h)
	}
	if pos.Elevation < 0 || pos.Elevation >= ElevationCount || !w.hexGrid.InBounds(pos.Point) {
		return fmt.Errorf("%w: %d:%d,%d", ErrOutOfBounds, pos.Elevation, pos.Point.X, pos.Point.Y)
	}
	if obj.Kind() == protodef.KindCritter && !w.IsPassable(pos) {
		return fmt.Errorf("%w: %d:%d,%d", ErrBlocked, pos.Elevation, pos.Point.X, pos.Point.Y)
	}
	w.applyLight(obj, -1)
	w.objects.SetPos(h, pos)
	w.applyLight(obj, 1)
	return nil
}

// Remove destroys an object and withdraws its light contribution.
func (w *World) Remove(h Handle) {
	if obj := w.objects.Get(h); obj != nil {
		w.applyLight(obj, -1)
	}
	w.objects.Remove(h)
}

// ObjectsAt returns the handles occupying a tile in draw order.
func (w *World) ObjectsAt(pos geom.ElevatedPoint) []Handle {
	return w.objects.At(pos)
}

// IsPassable reports whether a tile is in bounds and free of blocking
// objects.
func (w *World) IsPassable(pos geom.ElevatedPoint) bool {
	if pos.Elevation < 0 || pos.Elevation >= ElevationCount || !w.hexGrid.InBounds(pos.Point) {
		return false
	}
	for _, h := range w.objects.At(pos) {
		if w.objects.Get(h).Blocks() {
			return false
		}
	}
	return true
}

// ActorAt reports whether any critter occupies a tile.
func (w *World) ActorAt(pos geom.ElevatedPoint) bool {
	for _, h := range w.objects.At(pos) {
		o := w.objects.Get(h)
		if o.Kind() == protodef.KindCritter && !o.Flags.Has(FlagTurnedOff) {
			return true
		}
	}
	return false
}

// AdvanceAnimations moves every active animation forward by elapsed.
// Looping sprites wrap; one-shot sprites stop on their last frame.
func (w *World) AdvanceAnimations(elapsed time.Duration) {
	w.objects.Each(func(_ Handle, obj *Object) {
		if !obj.Anim.Active || obj.Sprite == nil {
			return
		}
		frames := len(obj.Sprite.Directions[obj.Direction].Frames)
		if frames < 2 {
			return
		}
		obj.Anim.Elapsed += elapsed
		d := obj.Sprite.FrameDuration()
		for obj.Anim.Elapsed >= d {
			obj.Anim.Elapsed -= d
			obj.FrameIdx++
			if obj.FrameIdx < frames {
				continue
			}
			if obj.Anim.Loop {
				obj.FrameIdx = 0
			} else {
				obj.FrameIdx = frames - 1
				obj.Anim.Active = false
				break
			}
		}
	})
}

// LightAt combines the ambient level with the tile's local emitter
// contribution, clamped to full brightness.
func (w *World) LightAt(pos geom.ElevatedPoint) int {
	local := w.lights.GetClipped(pos) - DefaultLightIntensity
	if local < 0 {
		local = 0
	}
	v := w.AmbientLight + local
	if v < 0 {
		return 0
	}
	if v > MaxIntensity {
		return MaxIntensity
	}
	return v
}

// applyLight adds (sign=1) or removes (sign=-1) an object's emitter
// contribution. The light test consults sight blockers on the way.
func (w *World) applyLight(obj *Object, sign int) {
	if !obj.HasPos || obj.Light.Radius <= 0 || obj.Light.Intensity <= 0 {
		return
	}
	if obj.Flags.Has(FlagTurnedOff) {
		return
	}
	e := obj.Pos.Elevation
	w.lights.Update(obj.Pos, obj.Light.Radius, sign*obj.Light.Intensity,
		func(_ int, p geom.Point) (bool, bool) {
			for _, h := range w.objects.At(p.Elevated(e)) {
				if w.objects.Get(h).BlocksSight() {
					return true, false
				}
			}
			return false, true
		})
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
