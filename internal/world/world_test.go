package world

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
	"time"

	"hexworld.dev/internal/assets/frm"
	"hexworld.dev/internal/assets/protodef"
	"hexworld.dev/internal/geom"
)

const (
	pidActor   = 0x01000001
	pidDoor    = 0x02000001
	pidLamp    = 0x02000006
	pidBoulder = 0x02000007
)

func testCatalog(t *testing.T) *protodef.Catalog {
	t.Helper()
	c, err := protodef.Parse([]byte(`{
		"protos": [
			{"pid": 16777217, "name": "wanderer", "sprite": "art\\critters\\wanderer.frm",
			 "flags": {"blocks_move": true}},
			{"pid": 33554433, "name": "door", "sub_kind": "door",
			 "flags": {"blocks_move": true, "blocks_sight": true}},
			{"pid": 33554438, "name": "lamp",
			 "light": {"radius": 4, "intensity": 30000}},
			{"pid": 33554439, "name": "boulder",
			 "flags": {"blocks_move": true, "blocks_sight": true}}
		]
	}`))
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

func singleFrameSprite(frames int) *frm.Sprite {
	fl := &frm.FrameList{}
	for i := 0; i < frames; i++ {
		fl.Frames = append(fl.Frames, frm.Frame{Width: 1, Height: 1, Pixels: []byte{byte(i)}})
	}
	s := &frm.Sprite{FPS: 10, FramesPerDirection: frames}
	for d := range s.Directions {
		s.Directions[d] = fl
	}
	return s
}

func actor(pid protodef.ProtoID) *Object {
	return &Object{PID: pid}
}

func blocker() *Object {
	return &Object{PID: pidBoulder}
}

func TestOccupancyConsistency(t *testing.T) {
	w := New()
	a := geom.Pt(10, 10).Elevated(0)
	b := geom.Pt(11, 10).Elevated(0)

	h, err := w.Place(actor(pidActor), a)
	if err != nil {
		t.Fatalf("place: %v", err)
	}
	if got := w.ObjectsAt(a); len(got) != 1 || got[0] != h {
		t.Fatalf("objects at a = %v", got)
	}

	if err := w.MoveObject(h, b); err != nil {
		t.Fatalf("move: %v", err)
	}
	if got := w.ObjectsAt(a); len(got) != 0 {
		t.Fatalf("stale occupancy at a: %v", got)
	}
	if got := w.ObjectsAt(b); len(got) != 1 || got[0] != h {
		t.Fatalf("objects at b = %v", got)
	}
	if pos := w.Objects().Get(h).Pos; pos != b {
		t.Fatalf("object pos = %+v", pos)
	}

	w.Remove(h)
	if got := w.ObjectsAt(b); len(got) != 0 {
		t.Fatalf("occupancy after remove: %v", got)
	}
	if w.Objects().Get(h) != nil {
		t.Fatal("handle alive after remove")
	}
}

func TestPlaceOutOfBounds(t *testing.T) {
	w := New()
	if _, err := w.Place(actor(pidActor), geom.Pt(-1, 0).Elevated(0)); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("err = %v", err)
	}
	if _, err := w.Place(actor(pidActor), geom.Pt(0, 0).Elevated(ElevationCount)); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("err = %v", err)
	}
}

func TestMoveBlocked(t *testing.T) {
	w := New()
	target := geom.Pt(5, 5).Elevated(0)
	if _, err := w.Place(blocker(), target); err != nil {
		t.Fatalf("place blocker: %v", err)
	}
	if w.IsPassable(target) {
		t.Fatal("blocked tile reported passable")
	}

	h, err := w.Place(actor(pidActor), geom.Pt(4, 5).Elevated(0))
	if err != nil {
		t.Fatalf("place actor: %v", err)
	}
	if err := w.MoveObject(h, target); !errors.Is(err, ErrBlocked) {
		t.Fatalf("move onto blocker err = %v", err)
	}
	// The failed move must leave the actor where it was.
	if pos := w.Objects().Get(h).Pos; pos != geom.Pt(4, 5).Elevated(0) {
		t.Fatalf("actor moved despite error: %+v", pos)
	}

	// A later move to an open tile succeeds.
	if err := w.MoveObject(h, geom.Pt(6, 5).Elevated(0)); err != nil {
		t.Fatalf("move to open tile: %v", err)
	}
}

func TestDrawOrderWithinTile(t *testing.T) {
	w := New()
	pos := geom.Pt(20, 20).Elevated(0)

	top := &Object{PID: pidLamp, ScreenShift: geom.Pt(0, 5)}
	flat := &Object{PID: pidLamp, Flags: FlagFlat}
	bottom := &Object{PID: pidLamp, ScreenShift: geom.Pt(0, -5)}

	hTop, _ := w.Place(top, pos)
	hFlat, _ := w.Place(flat, pos)
	hBottom, _ := w.Place(bottom, pos)

	got := w.ObjectsAt(pos)
	want := []Handle{hFlat, hBottom, hTop}
	if len(got) != len(want) {
		t.Fatalf("occupancy = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("draw order = %v, want %v", got, want)
		}
	}
}

func TestAdvanceAnimationsLoop(t *testing.T) {
	w := New()
	obj := actor(pidActor)
	obj.Sprite = singleFrameSprite(4)
	obj.Anim = Animation{Active: true, Loop: true}
	if _, err := w.Place(obj, geom.Pt(1, 1).Elevated(0)); err != nil {
		t.Fatal(err)
	}

	// 10 fps, so 100ms per frame: 250ms advances two frames.
	w.AdvanceAnimations(250 * time.Millisecond)
	if obj.FrameIdx != 2 {
		t.Fatalf("frame = %d", obj.FrameIdx)
	}
	// Another 250ms wraps past the last frame, landing on frame 1.
	w.AdvanceAnimations(250 * time.Millisecond)
	if obj.FrameIdx != 1 || !obj.Anim.Active {
		t.Fatalf("frame = %d active = %t", obj.FrameIdx, obj.Anim.Active)
	}
}

func TestAdvanceAnimationsOneShot(t *testing.T) {
	w := New()
	obj := actor(pidActor)
	obj.Sprite = singleFrameSprite(3)
	obj.Anim = Animation{Active: true}
	if _, err := w.Place(obj, geom.Pt(1, 1).Elevated(0)); err != nil {
		t.Fatal(err)
	}

	w.AdvanceAnimations(time.Second)
	if obj.FrameIdx != 2 {
		t.Fatalf("frame = %d", obj.FrameIdx)
	}
	if obj.Anim.Active {
		t.Fatal("one-shot animation still active")
	}
}

func TestLightGridEmitter(t *testing.T) {
	g := NewLightGrid(geom.NewTileGrid(HexGridSize, HexGridSize))
	center := geom.Pt(100, 100).Elevated(0)

	g.Update(center, 8, MaxIntensity, nil)
	if got := g.GetClipped(center); got != MaxIntensity {
		t.Fatalf("center = %#x", got)
	}
	// A neighbor is lit above base but below the emitter hex.
	n := geom.Pt(101, 100).Elevated(0)
	nv := g.Get(n)
	if nv <= DefaultLightIntensity {
		t.Fatalf("neighbor = %d, not lit", nv)
	}
	if nv >= g.Get(center) {
		t.Fatalf("neighbor %d not dimmer than center %d", nv, g.Get(center))
	}
	// Light falls off monotonically along a straight line.
	prev := nv
	p := geom.Pt(101, 100)
	for i := 0; i < 6; i++ {
		p = geom.Pt(p.X+1, p.Y)
		v := g.Get(p.Elevated(0))
		if v > prev {
			t.Fatalf("light rising at %v: %d > %d", p, v, prev)
		}
		prev = v
	}

	// Removing the emitter restores the base level everywhere.
	g.Update(center, 8, -MaxIntensity, nil)
	for y := 95; y < 105; y++ {
		for x := 95; x < 105; x++ {
			if v := g.Get(geom.Pt(x, y).Elevated(0)); v != DefaultLightIntensity {
				t.Fatalf("residual light %d at %d,%d", v, x, y)
			}
		}
	}
}

func TestLightAtCombinesAmbient(t *testing.T) {
	w := New()
	w.AmbientLight = 0x8000
	lamp := &Object{PID: pidLamp, Light: LightEmitter{Radius: 4, Intensity: 30000}}
	pos := geom.Pt(50, 50).Elevated(0)
	if _, err := w.Place(lamp, pos); err != nil {
		t.Fatal(err)
	}

	lit := w.LightAt(pos)
	if lit <= 0x8000 {
		t.Fatalf("lit tile = %#x, no emitter contribution", lit)
	}
	if lit > MaxIntensity {
		t.Fatalf("lit tile %#x above clamp", lit)
	}
	if far := w.LightAt(geom.Pt(150, 150).Elevated(0)); far != 0x8000 {
		t.Fatalf("unlit tile = %#x", far)
	}

	w.Remove(w.ObjectsAt(pos)[0])
	if v := w.LightAt(pos); v != 0x8000 {
		t.Fatalf("light after remove = %#x", v)
	}
}

// mapWriter builds a minimal legacy map stream.
type mapWriter struct {
	bytes.Buffer
}

func (w *mapWriter) u32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	w.Write(b[:])
}

func (w *mapWriter) i32(v int32) { w.u32(uint32(v)) }

func (w *mapWriter) u16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	w.Write(b[:])
}

func (w *mapWriter) header(flags uint32, entranceLin int32) {
	w.u32(20) // version
	var name [16]byte
	copy(name[:], "testmap.map")
	w.Write(name[:])
	w.i32(entranceLin)
	w.u32(0)    // entrance elevation
	w.u32(2)    // entrance direction
	w.i32(0)    // local var count
	w.i32(-1)   // map script
	w.u32(flags)
	w.i32(0)
	w.i32(1) // map var count
	w.i32(7) // map id
	w.u32(0) // time
	for i := 0; i < 44; i++ {
		w.u32(0)
	}
	w.i32(42) // the single map var
}

func (w *mapWriter) tiles(floor, roof uint16) {
	for i := 0; i < SqrGridSize*SqrGridSize; i++ {
		w.u16(roof)
		w.u16(floor)
	}
}

func (w *mapWriter) noScripts() {
	for i := 0; i < scriptKindCount; i++ {
		w.i32(0)
	}
}

// object writes the fixed part of one object record.
func (w *mapWriter) object(id uint32, posLin int32, elevation uint32, pid uint32, radius, intensity int32, invLen uint32) {
	w.u32(id)
	w.i32(posLin)
	w.i32(0) // screen shift x
	w.i32(0) // screen shift y
	w.i32(0) // screen pos x
	w.i32(0) // screen pos y
	w.i32(0) // frame index
	w.u32(0) // direction
	w.u32(pid) // art fid, unused by the reader
	w.u32(0)   // flags
	w.u32(elevation)
	w.u32(pid)
	w.u32(0) // combat id
	w.i32(radius)
	w.i32(intensity)
	w.u32(0) // outline
	w.i32(-1) // script id
	w.i32(-1) // script program
	w.u32(invLen)
	w.i32(0) // inventory capacity
	w.u32(0)
	w.u32(0) // updated flags
}

func buildMap(t *testing.T) []byte {
	t.Helper()
	var w mapWriter
	// Elevations 1 and 2 absent.
	w.header(0b1100, 100*200+150)
	w.tiles(17, 3)
	w.noScripts()

	w.i32(4) // total objects
	// Elevation 0: a door, a lamp, a critter carrying one item.
	w.i32(3)
	grid := geom.NewTileGrid(HexGridSize, HexGridSize)
	lin := func(x, y int) int32 {
		v, _ := grid.ToLinearInv(geom.Pt(x, y))
		return int32(v)
	}
	w.object(1, lin(10, 10), 0, pidDoor, 0, 0, 0)
	w.u32(0xf) // door flags sub-record
	w.object(2, lin(12, 10), 0, pidLamp, 4, 30000, 0)
	w.object(3, lin(14, 10), 0, pidActor, 0, 0, 1)
	for i := 0; i < 10; i++ { // critter combat block
		w.u32(0)
	}
	w.i32(2) // inventory stack count
	w.object(4, -1, 0, pidLamp, 0, 0, 0)
	w.i32(0) // elevation 1
	w.i32(0) // elevation 2
	return w.Bytes()
}

func TestLoadMap(t *testing.T) {
	m, err := LoadMap(buildMap(t), testCatalog(t), nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if m.ID != 7 || m.Name != "testmap.map" || m.Savegame {
		t.Fatalf("header = %+v", m)
	}
	if len(m.MapVars) != 1 || m.MapVars[0] != 42 {
		t.Fatalf("map vars = %v", m.MapVars)
	}
	if m.EntranceDirection != geom.DirSE {
		t.Fatalf("entrance direction = %v", m.EntranceDirection)
	}
	wantEntrance := geom.Pt(HexGridSize-1-150, 100).Elevated(0)
	if m.Entrance != wantEntrance {
		t.Fatalf("entrance = %+v, want %+v", m.Entrance, wantEntrance)
	}

	w := m.World
	if !w.HasElevation(0) || w.HasElevation(1) || w.HasElevation(2) {
		t.Fatal("elevation presence wrong")
	}
	tile, ok := w.Tile(0, geom.Pt(40, 60))
	if !ok || tile.Floor != 17 || tile.Roof != 3 {
		t.Fatalf("tile = %+v ok=%t", tile, ok)
	}

	// 3 placed objects plus 1 inventory item.
	if w.Objects().Len() != 4 {
		t.Fatalf("object count = %d", w.Objects().Len())
	}

	doorPos := geom.Pt(10, 10).Elevated(0)
	if hs := w.ObjectsAt(doorPos); len(hs) != 1 {
		t.Fatalf("door occupancy = %v", hs)
	} else if w.Objects().Get(hs[0]).PID != pidDoor {
		t.Fatal("wrong object at door tile")
	}
	if w.IsPassable(doorPos) {
		t.Fatal("closed door tile passable")
	}
	if !w.IsPassable(geom.Pt(12, 10).Elevated(0)) {
		t.Fatal("lamp tile impassable")
	}

	// The lamp's emitter lights its own tile above base level.
	if v := w.Lights().Get(geom.Pt(12, 10).Elevated(0)); v <= DefaultLightIntensity {
		t.Fatalf("lamp tile light = %d", v)
	}

	// The critter carries the detached inventory lamp.
	hs := w.ObjectsAt(geom.Pt(14, 10).Elevated(0))
	if len(hs) != 1 {
		t.Fatalf("critter occupancy = %v", hs)
	}
	critter := w.Objects().Get(hs[0])
	if len(critter.Inventory) != 1 || critter.Inventory[0].Count != 2 {
		t.Fatalf("inventory = %+v", critter.Inventory)
	}
	item := w.Objects().Get(critter.Inventory[0].Object)
	if item == nil || item.HasPos {
		t.Fatalf("inventory item = %+v", item)
	}
}

func TestLoadMapMalformed(t *testing.T) {
	catalog := testCatalog(t)
	good := buildMap(t)

	t.Run("truncated", func(t *testing.T) {
		if _, err := LoadMap(good[:len(good)-40], catalog, nil); !errors.Is(err, ErrMalformedMap) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("empty", func(t *testing.T) {
		if _, err := LoadMap(nil, catalog, nil); !errors.Is(err, ErrMalformedMap) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("unknown prototype", func(t *testing.T) {
		var w mapWriter
		w.header(0b1100, -1)
		w.tiles(1, 0)
		w.noScripts()
		w.i32(1)
		w.i32(1)
		w.object(1, 50, 0, 0x02000099, 0, 0, 0)
		w.i32(0)
		w.i32(0)
		if _, err := LoadMap(w.Bytes(), catalog, nil); err == nil {
			t.Fatal("expected error")
		}
	})
	t.Run("count mismatch", func(t *testing.T) {
		var w mapWriter
		w.header(0b1100, -1)
		w.tiles(1, 0)
		w.noScripts()
		w.i32(5) // header promises five objects
		w.i32(0)
		w.i32(0)
		w.i32(0)
		if _, err := LoadMap(w.Bytes(), catalog, nil); !errors.Is(err, ErrMalformedMap) {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestLoadMapMissingAsset(t *testing.T) {
	src := spriteSourceFunc(func(name string) (*frm.Sprite, error) {
		return nil, errors.New("no such entry")
	})
	if _, err := LoadMap(buildMap(t), testCatalog(t), src); !errors.Is(err, ErrMissingAsset) {
		t.Fatalf("err = %v", err)
	}
}

func TestLoadMapResolvesSprites(t *testing.T) {
	sprite := singleFrameSprite(1)
	src := spriteSourceFunc(func(name string) (*frm.Sprite, error) {
		return sprite, nil
	})
	m, err := LoadMap(buildMap(t), testCatalog(t), src)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	hs := m.World.ObjectsAt(geom.Pt(14, 10).Elevated(0))
	if len(hs) != 1 {
		t.Fatalf("critter occupancy = %v", hs)
	}
	obj := m.World.Objects().Get(hs[0])
	if obj.Sprite != sprite || obj.SpriteName == "" {
		t.Fatalf("sprite not resolved: %+v", obj)
	}
}

type spriteSourceFunc func(string) (*frm.Sprite, error)

func (f spriteSourceFunc) Get(name string) (*frm.Sprite, error) { return f(name) }
