package world

import (
	"sort"
	"time"

	"hexworld.dev/internal/assets/frm"
	"hexworld.dev/internal/assets/protodef"
	"hexworld.dev/internal/geom"
)

// Flag is the per-object flag word from the legacy map encoding.
type Flag uint32

const (
	FlagTurnedOff Flag = 0x1
	FlagWalkThru  Flag = 0x4
	FlagFlat      Flag = 0x8
	FlagNoBlock   Flag = 0x10
	FlagMultiHex  Flag = 0x800
	FlagLightThru Flag = 0x20000000
	FlagShootThru Flag = 0x80000000
)

func (f Flag) Has(v Flag) bool { return f&v != 0 }

// LightEmitter is an object's light contribution to its surroundings.
type LightEmitter struct {
	Radius    int
	Intensity int
}

// Animation is the playback state of an animated object.
type Animation struct {
	Active  bool
	Loop    bool
	Elapsed time.Duration
}

// Handle identifies a live object within one World. The zero Handle is
// never issued.
type Handle uint32

// InventoryItem is a contained object and its stack count. Contained
// objects are registered in the object table but have no position.
type InventoryItem struct {
	Object Handle
	Count  int
}

// Object is a placed entity. Objects are owned exclusively by the World
// that holds them; the Sprite handle is shared and read-only.
type Object struct {
	ID  uint32
	PID protodef.ProtoID

	Flags  Flag
	HasPos bool
	Pos    geom.ElevatedPoint
	// ScreenShift is the sub-tile pixel offset from the tile anchor.
	ScreenShift geom.Point
	Direction   geom.Direction
	FrameIdx    int

	SpriteName string
	Sprite     *frm.Sprite

	Light     LightEmitter
	Anim      Animation
	Inventory []InventoryItem
}

// Kind returns the entity kind packed into the object's prototype id.
func (o *Object) Kind() protodef.Kind { return o.PID.Kind() }

// Blocks reports whether the object stops movement through its tile.
func (o *Object) Blocks() bool {
	if o.Flags.Has(FlagTurnedOff) || o.Flags.Has(FlagNoBlock) || o.Flags.Has(FlagWalkThru) {
		return false
	}
	switch o.Kind() {
	case protodef.KindCritter, protodef.KindScenery, protodef.KindWall:
		return true
	}
	return false
}

// BlocksSight reports whether the object stops light and line of sight.
func (o *Object) BlocksSight() bool {
	return !o.Flags.Has(FlagTurnedOff) && !o.Flags.Has(FlagLightThru)
}

// frameShift is the object's effective sub-tile shift: the authored
// screen shift plus the current frame's own shift.
func (o *Object) frameShift() geom.Point {
	s := o.ScreenShift
	if o.Sprite != nil {
		f := o.Sprite.Frame(o.Direction, o.FrameIdx)
		s = s.Add(f.Shift)
	}
	return s
}

// Objects owns every object of one world: a handle table plus a
// per-elevation, per-tile occupancy index. Each tile's list is kept in
// draw order, flat objects first, then by effective shift.
type Objects struct {
	grid geom.TileGrid

	next  Handle
	table map[Handle]*Object
	byPos [ElevationCount][][]Handle
	deta  []Handle
}

func NewObjects(grid geom.TileGrid) *Objects {
	o := &Objects{
		grid:  grid,
		next:  1,
		table: make(map[Handle]*Object),
	}
	for e := 0; e < ElevationCount; e++ {
		o.byPos[e] = make([][]Handle, grid.Len())
	}
	return o
}

func (s *Objects) Len() int { return len(s.table) }

// Get returns the object for a handle, or nil for a dead handle.
func (s *Objects) Get(h Handle) *Object { return s.table[h] }

// At returns the handles occupying a tile, in draw order. The returned
// slice is owned by the container and must not be mutated.
func (s *Objects) At(pos geom.ElevatedPoint) []Handle {
	idx, ok := s.linear(pos)
	if !ok {
		return nil
	}
	return s.byPos[pos.Elevation][idx]
}

// Insert registers an object and attaches it to its tile, or to the
// detached set when it has no position.
func (s *Objects) Insert(obj *Object) Handle {
	h := s.next
	s.next++
	s.table[h] = obj
	s.attach(h, obj)
	return h
}

// SetPos detaches the object from its current tile and attaches it at
// the new position. Both structures stay consistent at every return.
func (s *Objects) SetPos(h Handle, pos geom.ElevatedPoint) {
	obj := s.table[h]
	if obj == nil {
		return
	}
	s.detach(h, obj)
	obj.HasPos = true
	obj.Pos = pos
	s.attach(h, obj)
}

// Remove detaches the object and frees its handle.
func (s *Objects) Remove(h Handle) {
	obj := s.table[h]
	if obj == nil {
		return
	}
	s.detach(h, obj)
	delete(s.table, h)
}

// Each calls fn for every live object, detached ones included.
func (s *Objects) Each(fn func(Handle, *Object)) {
	hs := make([]Handle, 0, len(s.table))
	for h := range s.table {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	for _, h := range hs {
		fn(h, s.table[h])
	}
}

func (s *Objects) linear(pos geom.ElevatedPoint) (int, bool) {
	if pos.Elevation < 0 || pos.Elevation >= ElevationCount {
		return 0, false
	}
	return s.grid.ToLinear(pos.Point)
}

// drawLess orders two objects sharing a tile: flat before non-flat,
// then by effective shift y, then x.
func (s *Objects) drawLess(a, b *Object) bool {
	af := a.Flags.Has(FlagFlat)
	bf := b.Flags.Has(FlagFlat)
	if af != bf {
		return af
	}
	as := a.frameShift()
	bs := b.frameShift()
	if as.Y != bs.Y {
		return as.Y < bs.Y
	}
	return as.X < bs.X
}

func (s *Objects) attach(h Handle, obj *Object) {
	if !obj.HasPos {
		s.deta = append(s.deta, h)
		return
	}
	idx, ok := s.linear(obj.Pos)
	if !ok {
		obj.HasPos = false
		s.deta = append(s.deta, h)
		return
	}
	list := s.byPos[obj.Pos.Elevation][idx]
	i := sort.Search(len(list), func(i int) bool {
		return s.drawLess(obj, s.table[list[i]])
	})
	list = append(list, 0)
	copy(list[i+1:], list[i:])
	list[i] = h
	s.byPos[obj.Pos.Elevation][idx] = list
}

func (s *Objects) detach(h Handle, obj *Object) {
	if !obj.HasPos {
		s.deta = removeHandle(s.deta, h)
		return
	}
	idx, ok := s.linear(obj.Pos)
	if !ok {
		return
	}
	e := obj.Pos.Elevation
	s.byPos[e][idx] = removeHandle(s.byPos[e][idx], h)
	obj.HasPos = false
}

func removeHandle(list []Handle, h Handle) []Handle {
	for i, v := range list {
		if v == h {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
