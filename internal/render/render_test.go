package render

import (
	"testing"

	"hexworld.dev/internal/assets/frm"
	"hexworld.dev/internal/assets/protodef"
	"hexworld.dev/internal/geom"
	"hexworld.dev/internal/world"
)

const (
	pidActor   = protodef.ProtoID(0x01000001)
	pidBoulder = protodef.ProtoID(0x02000007)
)

func flatWorld() *world.World {
	w := world.New()
	tiles := make([]world.Tile, world.SqrGridSize*world.SqrGridSize)
	for i := range tiles {
		tiles[i].Floor = 1
	}
	w.SetTiles(0, tiles)
	return w
}

func testCamera() Camera {
	cam := Camera{Viewport: geom.Rect{Left: 0, Top: 0, Right: 640, Bottom: 380}}
	cam.LookAt(geom.Pt(50, 50))
	return cam
}

func testSprite() *frm.Sprite {
	fl := &frm.FrameList{Frames: []frm.Frame{{Width: 1, Height: 1, Pixels: []byte{0}}}}
	s := &frm.Sprite{FPS: 10, FramesPerDirection: 1}
	for d := range s.Directions {
		s.Directions[d] = fl
	}
	return s
}

func place(t *testing.T, w *world.World, obj *world.Object, p geom.Point) world.Handle {
	t.Helper()
	h, err := w.Place(obj, p.Elevated(0))
	if err != nil {
		t.Fatalf("Place: %v", err)
	}
	return h
}

func entryIndex(entries []Entry, h world.Handle) int {
	for i := range entries {
		if entries[i].Kind == EntryObject && entries[i].Handle == h {
			return i
		}
	}
	return -1
}

func TestComposeActorOverScenery(t *testing.T) {
	w := flatWorld()
	pos := geom.Pt(50, 50)
	boulder := place(t, w, &world.Object{PID: pidBoulder, Sprite: testSprite()}, pos)
	actor := place(t, w, &world.Object{PID: pidActor, Sprite: testSprite()}, pos)

	c := NewCompositor(nil)
	entries := c.Compose(w, testCamera(), Toggles{})

	bi := entryIndex(entries, boulder)
	ai := entryIndex(entries, actor)
	if bi < 0 || ai < 0 {
		t.Fatalf("missing entries: boulder=%d actor=%d", bi, ai)
	}
	if ai < bi {
		t.Fatalf("actor drawn at %d, under scenery at %d", ai, bi)
	}
	if entries[ai].Pos != entries[bi].Pos {
		t.Fatalf("anchors differ on shared tile: %v vs %v", entries[ai].Pos, entries[bi].Pos)
	}
}

func TestComposeFlatBeforeUpright(t *testing.T) {
	w := flatWorld()
	// The flat object sits on a tile well below the upright one on
	// screen; flatness must still win over row order.
	upright := place(t, w, &world.Object{PID: pidBoulder, Sprite: testSprite()}, geom.Pt(50, 48))
	flat := place(t, w, &world.Object{PID: pidBoulder, Flags: world.FlagFlat, Sprite: testSprite()}, geom.Pt(50, 52))

	c := NewCompositor(nil)
	entries := c.Compose(w, testCamera(), Toggles{})

	fi := entryIndex(entries, flat)
	ui := entryIndex(entries, upright)
	if fi < 0 || ui < 0 {
		t.Fatalf("missing entries: flat=%d upright=%d", fi, ui)
	}
	if fi > ui {
		t.Fatalf("flat object drawn at %d, after upright at %d", fi, ui)
	}
}

func TestComposeSkipsTurnedOff(t *testing.T) {
	w := flatWorld()
	hidden := place(t, w, &world.Object{PID: pidBoulder, Flags: world.FlagTurnedOff, Sprite: testSprite()}, geom.Pt(50, 50))

	c := NewCompositor(nil)
	entries := c.Compose(w, testCamera(), Toggles{})
	if i := entryIndex(entries, hidden); i >= 0 {
		t.Fatalf("turned-off object emitted at %d", i)
	}
}

func TestComposeFloorOrder(t *testing.T) {
	w := flatWorld()
	c := NewCompositor(nil)
	entries := c.Compose(w, testCamera(), Toggles{})

	floors := 0
	for _, e := range entries {
		if e.Kind != EntryFloor {
			continue
		}
		floors++
		if e.SpriteName != DefaultTileName(1) {
			t.Fatalf("floor sprite name %q, want %q", e.SpriteName, DefaultTileName(1))
		}
	}
	if floors == 0 {
		t.Fatal("no floor entries")
	}
	// Terrain paints before any object on the same elevation.
	firstObj := -1
	lastFloor := -1
	for i, e := range entries {
		if e.Kind == EntryFloor {
			lastFloor = i
		}
		if e.Kind == EntryObject && firstObj < 0 {
			firstObj = i
		}
	}
	if firstObj >= 0 && firstObj < lastFloor {
		t.Fatalf("object at %d precedes floor at %d", firstObj, lastFloor)
	}
}

func TestComposeRoof(t *testing.T) {
	w := flatWorld()
	tiles := make([]world.Tile, world.SqrGridSize*world.SqrGridSize)
	for i := range tiles {
		tiles[i].Floor = 1
	}
	// Roofs over the camera target and one tile to its east.
	tiles[25*world.SqrGridSize+25].Roof = 7
	tiles[25*world.SqrGridSize+27].Roof = 7
	w.SetTiles(0, tiles)

	cam := testCamera()
	c := NewCompositor(nil)

	entries := c.Compose(w, cam, Toggles{})
	for _, e := range entries {
		if e.Kind == EntryRoof {
			t.Fatal("roof entry emitted with roofs toggled off")
		}
	}

	entries = c.Compose(w, cam, Toggles{Roof: true})
	roofs := 0
	for _, e := range entries {
		if e.Kind == EntryRoof {
			roofs++
		}
	}
	if roofs != 2 {
		t.Fatalf("got %d roof entries, want 2", roofs)
	}

	// An actor under a roof suppresses that roof tile only. Square
	// tile (25, 25) covers hexes 50..51 on both axes.
	place(t, w, &world.Object{PID: pidActor, Sprite: testSprite()}, geom.Pt(51, 51))
	entries = c.Compose(w, cam, Toggles{Roof: true})
	roofs = 0
	for _, e := range entries {
		if e.Kind == EntryRoof {
			roofs++
		}
	}
	if roofs != 1 {
		t.Fatalf("got %d roof entries with actor underneath, want 1", roofs)
	}
}

func TestComposeRoofLift(t *testing.T) {
	w := flatWorld()
	tiles := make([]world.Tile, world.SqrGridSize*world.SqrGridSize)
	tiles[25*world.SqrGridSize+25] = world.Tile{Floor: 1, Roof: 7}
	w.SetTiles(0, tiles)

	cam := testCamera()
	c := NewCompositor(nil)
	entries := c.Compose(w, cam, Toggles{Roof: true})

	var roof *Entry
	for i := range entries {
		if entries[i].Kind == EntryRoof {
			roof = &entries[i]
		}
	}
	if roof == nil {
		t.Fatal("no roof entry")
	}
	g := w.SqrGrid()
	g.ScreenPos = cam.Origin.Sub(geom.Pt(16, 2))
	want := g.SqrToScreen(geom.Pt(25, 25)).Sub(geom.Pt(0, roofHeight))
	if roof.Pos != want {
		t.Fatalf("roof anchor %v, want %v", roof.Pos, want)
	}
}

func TestComposePlaceholder(t *testing.T) {
	w := flatWorld()
	broken := place(t, w, &world.Object{PID: pidBoulder}, geom.Pt(50, 50))
	ok := place(t, w, &world.Object{PID: pidBoulder, Sprite: testSprite()}, geom.Pt(52, 50))

	c := NewCompositor(nil)
	entries := c.Compose(w, testCamera(), Toggles{})

	bi := entryIndex(entries, broken)
	oi := entryIndex(entries, ok)
	if bi < 0 || oi < 0 {
		t.Fatalf("missing entries: broken=%d ok=%d", bi, oi)
	}
	if !entries[bi].Placeholder() {
		t.Fatal("spriteless object not marked placeholder")
	}
	if entries[oi].Placeholder() {
		t.Fatal("resolved object marked placeholder")
	}
}

func TestComposeCulling(t *testing.T) {
	w := flatWorld()
	near := place(t, w, &world.Object{PID: pidBoulder, Sprite: testSprite()}, geom.Pt(50, 50))
	far := place(t, w, &world.Object{PID: pidBoulder, Sprite: testSprite()}, geom.Pt(50, 150))

	c := NewCompositor(nil)
	c.MarginX, c.MarginY = 0, 0
	entries := c.Compose(w, testCamera(), Toggles{})

	if entryIndex(entries, near) < 0 {
		t.Fatal("on-screen object culled")
	}
	if i := entryIndex(entries, far); i >= 0 {
		t.Fatalf("off-screen object emitted at %d", i)
	}
}

func TestComposeLight(t *testing.T) {
	w := flatWorld()
	w.AmbientLight = 0x8000
	lamp := place(t, w, &world.Object{
		PID:    pidBoulder,
		Sprite: testSprite(),
		Light:  world.LightEmitter{Radius: 4, Intensity: 30000},
	}, geom.Pt(50, 50))

	c := NewCompositor(nil)
	entries := c.Compose(w, testCamera(), Toggles{})

	li := entryIndex(entries, lamp)
	if li < 0 {
		t.Fatal("lamp not emitted")
	}
	if got := entries[li].Light; got <= 0x8000 {
		t.Fatalf("lit tile level %d, want above ambient 0x8000", got)
	}
	darkFloor := -1
	for i, e := range entries {
		if e.Kind == EntryFloor && e.Light == 0x8000 {
			darkFloor = i
			break
		}
	}
	if darkFloor < 0 {
		t.Fatal("no floor tile at plain ambient level")
	}
}

func TestComposeSkipsAbsentElevations(t *testing.T) {
	w := world.New()
	c := NewCompositor(nil)
	if entries := c.Compose(w, testCamera(), Toggles{Roof: true}); len(entries) != 0 {
		t.Fatalf("got %d entries for empty world", len(entries))
	}
}
