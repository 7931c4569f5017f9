// Package render composes one frame's draw list from a loaded world:
// the visible terrain, every object in occlusion order, roofs subject
// to the visibility rule, and a light level per entry. It produces
// data, not pixels; rasterization and palette translation belong to
// the presentation layer.
package render

import (
	"fmt"

	"hexworld.dev/internal/assets/frm"
	"hexworld.dev/internal/assets/protodef"
	"hexworld.dev/internal/geom"
	"hexworld.dev/internal/world"
)

// roofHeight is the vertical lift of roof tiles over their floor.
const roofHeight = 96

// Default overscan margins around the viewport so tall sprites whose
// anchor sits off-screen still draw.
const (
	DefaultMarginX = 320
	DefaultMarginY = 190
)

// Camera positions the grid on screen.
type Camera struct {
	// Origin is the screen position of hex tile (0, 0).
	Origin geom.Point
	// Viewport is the screen rect the world is visible in.
	Viewport geom.Rect
}

// LookAt centers the viewport on a hex tile.
func (c *Camera) LookAt(p geom.Point) {
	var g geom.TileGrid
	center := geom.Pt(
		c.Viewport.Left+c.Viewport.Width()/2,
		c.Viewport.Top+c.Viewport.Height()/2,
	)
	c.Origin = center.Sub(g.TileCenter(p))
}

// Toggles are the per-frame presentation switches.
type Toggles struct {
	// Roof draws roof tiles, except over tiles where an actor stands.
	Roof bool
}

// EntryKind classifies a draw entry.
type EntryKind int

const (
	EntryFloor EntryKind = iota
	EntryObject
	EntryRoof
)

// Entry is one draw command. Entries are emitted in paint order: the
// first entry is the farthest back. A nil Sprite marks a placeholder
// for an asset that failed to resolve; the renderer substitutes its
// own marker art and the frame survives.
type Entry struct {
	Kind      EntryKind
	Elevation int

	// Handle is set for object entries.
	Handle world.Handle

	Sprite     *frm.Sprite
	SpriteName string
	Direction  geom.Direction
	Frame      int

	// Pos is the screen anchor: top-left for terrain, pivot for objects.
	Pos   geom.Point
	Light int
}

// Placeholder reports whether the entry's sprite failed to resolve.
func (e *Entry) Placeholder() bool { return e.Sprite == nil && e.Kind == EntryObject }

// Compositor builds draw lists. Terrain sprite names derive from tile
// art indices through TileName.
type Compositor struct {
	// Sprites resolves terrain art. May be nil; terrain entries then
	// carry names only.
	Sprites world.SpriteSource
	// TileName maps a terrain art index to an archive entry name.
	TileName func(id uint16) string

	MarginX int
	MarginY int
}

func NewCompositor(sprites world.SpriteSource) *Compositor {
	return &Compositor{
		Sprites:  sprites,
		TileName: DefaultTileName,
		MarginX:  DefaultMarginX,
		MarginY:  DefaultMarginY,
	}
}

// DefaultTileName is the legacy tile art naming scheme.
func DefaultTileName(id uint16) string {
	return fmt.Sprintf(`art\tiles\tile%03d.frm`, id)
}

// Compose walks the visible window elevation by elevation, back to
// front, and returns the frame's draw list.
func (c *Compositor) Compose(w *world.World, cam Camera, tog Toggles) []Entry {
	var out []Entry
	for e := 0; e < world.ElevationCount; e++ {
		if !w.HasElevation(e) {
			continue
		}
		out = c.composeElevation(out, w, cam, tog, e)
	}
	return out
}

func (c *Compositor) composeElevation(out []Entry, w *world.World, cam Camera, tog Toggles, e int) []Entry {
	window := geom.Rect{
		Left:   cam.Viewport.Left - c.MarginX,
		Top:    cam.Viewport.Top - c.MarginY,
		Right:  cam.Viewport.Right + c.MarginX,
		Bottom: cam.Viewport.Bottom + c.MarginY,
	}

	hexGrid := w.HexGrid()
	hexGrid.ScreenPos = cam.Origin
	sqrGrid := w.SqrGrid()
	sqrGrid.ScreenPos = cam.Origin.Sub(geom.Pt(16, 2))

	out = c.composeFloor(out, w, hexGrid, sqrGrid, window, e)
	out = c.composeObjects(out, w, hexGrid, window, e)
	if tog.Roof {
		out = c.composeRoof(out, w, hexGrid, sqrGrid, window, e)
	}
	return out
}

func (c *Compositor) composeFloor(out []Entry, w *world.World, hexGrid, sqrGrid geom.TileGrid, window geom.Rect, e int) []Entry {
	visible := sqrGrid.SqrFromScreenRect(window, true)
	for y := visible.Top; y < visible.Bottom; y++ {
		for x := visible.Right - 1; x >= visible.Left; x-- {
			p := geom.Pt(x, y)
			tile, ok := w.Tile(e, p)
			if !ok {
				continue
			}
			name := c.TileName(tile.Floor)
			out = append(out, Entry{
				Kind:       EntryFloor,
				Elevation:  e,
				Sprite:     c.resolve(name),
				SpriteName: name,
				Pos:        sqrGrid.SqrToScreen(p),
				Light:      w.LightAt(geom.Pt(2*x, 2*y).Elevated(e)),
			})
		}
	}
	return out
}

// composeObjects emits the elevation's objects back to front: all flat
// objects first, then the rest, rows top to bottom with x descending.
// Objects sharing a tile keep the occupancy order refined by kind, so
// an actor always draws over scenery standing on the same hex.
func (c *Compositor) composeObjects(out []Entry, w *world.World, hexGrid geom.TileGrid, window geom.Rect, e int) []Entry {
	visible := hexGrid.FromScreenRect(window, true)
	for _, flat := range []bool{true, false} {
		for y := visible.Top; y < visible.Bottom; y++ {
			for x := visible.Right - 1; x >= visible.Left; x-- {
				pos := geom.Pt(x, y).Elevated(e)
				out = c.composeTileObjects(out, w, hexGrid, pos, flat)
			}
		}
	}
	return out
}

// kindRank orders objects sharing one tile and flatness class.
func kindRank(k protodef.Kind) int {
	switch k {
	case protodef.KindTile:
		return 0
	case protodef.KindCritter:
		return 2
	}
	return 1
}

func (c *Compositor) composeTileObjects(out []Entry, w *world.World, hexGrid geom.TileGrid, pos geom.ElevatedPoint, flat bool) []Entry {
	handles := w.ObjectsAt(pos)
	if len(handles) == 0 {
		return out
	}
	// Occupancy lists keep flat objects first; split the matching run.
	run := make([]world.Handle, 0, len(handles))
	for _, h := range handles {
		obj := w.Objects().Get(h)
		if obj.Flags.Has(world.FlagFlat) == flat {
			run = append(run, h)
		}
	}
	if len(run) == 0 {
		return out
	}
	// Stable by kind: equal kinds keep their occupancy order.
	for rank := 0; rank <= 2; rank++ {
		for _, h := range run {
			obj := w.Objects().Get(h)
			if kindRank(obj.Kind()) != rank {
				continue
			}
			if obj.Flags.Has(world.FlagTurnedOff) {
				continue
			}
			out = append(out, Entry{
				Kind:       EntryObject,
				Elevation:  pos.Elevation,
				Handle:     h,
				Sprite:     obj.Sprite,
				SpriteName: obj.SpriteName,
				Direction:  obj.Direction,
				Frame:      obj.FrameIdx,
				Pos:        hexGrid.TileCenter(pos.Point).Add(obj.ScreenShift),
				Light:      w.LightAt(pos),
			})
		}
	}
	return out
}

// composeRoof draws roof tiles lifted by roofHeight. A roof tile is
// suppressed while any actor stands on one of the four hexes under it,
// so the player's figure is never hidden.
func (c *Compositor) composeRoof(out []Entry, w *world.World, hexGrid, sqrGrid geom.TileGrid, window geom.Rect, e int) []Entry {
	shifted := geom.Rect{
		Left:   window.Left,
		Top:    window.Top + roofHeight,
		Right:  window.Right,
		Bottom: window.Bottom + roofHeight,
	}
	visible := sqrGrid.SqrFromScreenRect(shifted, true)
	for y := visible.Top; y < visible.Bottom; y++ {
		for x := visible.Right - 1; x >= visible.Left; x-- {
			p := geom.Pt(x, y)
			tile, ok := w.Tile(e, p)
			if !ok || tile.Roof == 0 {
				continue
			}
			if c.actorUnderRoof(w, p, e) {
				continue
			}
			name := c.TileName(tile.Roof)
			out = append(out, Entry{
				Kind:       EntryRoof,
				Elevation:  e,
				Sprite:     c.resolve(name),
				SpriteName: name,
				Pos:        sqrGrid.SqrToScreen(p).Sub(geom.Pt(0, roofHeight)),
				Light:      world.MaxIntensity,
			})
		}
	}
	return out
}

func (c *Compositor) actorUnderRoof(w *world.World, sqr geom.Point, e int) bool {
	for dy := 0; dy < 2; dy++ {
		for dx := 0; dx < 2; dx++ {
			if w.ActorAt(geom.Pt(2*sqr.X+dx, 2*sqr.Y+dy).Elevated(e)) {
				return true
			}
		}
	}
	return false
}

// resolve fetches terrain art, tolerating failures: a missing tile
// sprite degrades to a placeholder entry instead of failing the frame.
func (c *Compositor) resolve(name string) *frm.Sprite {
	if c.Sprites == nil {
		return nil
	}
	s, err := c.Sprites.Get(name)
	if err != nil {
		return nil
	}
	return s
}
