package world

import (
	"encoding/binary"
	"fmt"
	"strings"

	"hexworld.dev/internal/assets/protodef"
	"hexworld.dev/internal/geom"
)

// Map is the loaded form of one legacy map file: its header data plus
// the fully populated World.
type Map struct {
	ID       uint32
	Version  uint32
	Name     string
	Savegame bool

	Entrance          geom.ElevatedPoint
	EntranceDirection geom.Direction

	MapVars []int32

	World *World
}

// LoadMap parses legacy map bytes into a World. Terrain, objects and
// light emitters are installed; script records are structurally skipped.
// Sprite references resolve through the prototype catalog and the given
// sprite source; an unresolvable entry fails the load with
// ErrMissingAsset. A nil source skips sprite resolution.
func LoadMap(data []byte, catalog *protodef.Catalog, sprites SpriteSource) (*Map, error) {
	r := &mapReader{
		buf:     data,
		catalog: catalog,
		sprites: sprites,
		world:   New(),
	}
	m, err := r.read()
	if err != nil {
		return nil, err
	}
	return m, nil
}

type mapReader struct {
	buf     []byte
	pos     int
	err     error
	catalog *protodef.Catalog
	sprites SpriteSource
	world   *World

	// objCount tracks every record read, nested inventory included; the
	// header's total covers both.
	objCount int
}

func (r *mapReader) fail(what string) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: truncated reading %s at offset %d", ErrMalformedMap, what, r.pos)
	}
}

func (r *mapReader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.buf) {
		r.fail("bytes")
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *mapReader) skip(n int) { r.bytes(n) }

func (r *mapReader) u16() uint16 {
	b := r.bytes(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *mapReader) u32() uint32 {
	b := r.bytes(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *mapReader) i32() int32 { return int32(r.u32()) }

func (r *mapReader) read() (*Map, error) {
	m := &Map{World: r.world}

	m.Version = r.u32()
	f2 := m.Version != 19

	name := r.bytes(16)
	if name != nil {
		m.Name = strings.TrimRight(string(name), "\x00")
	}

	entranceLin := r.i32()
	entranceElev := int(r.u32())
	entranceDir := geom.Direction(r.u32())
	localVarCount := int(r.i32())
	if localVarCount < 0 {
		localVarCount = 0
	}
	r.skip(4) // map script program id

	flags := r.u32()
	m.Savegame = flags&0x1 != 0

	r.skip(4)
	mapVarCount := int(r.i32())
	if mapVarCount < 0 {
		mapVarCount = 0
	}
	m.ID = r.u32()
	r.skip(4)      // in-game time
	r.skip(44 * 4) // reserved

	if r.err != nil {
		return nil, r.err
	}
	if entranceElev < 0 || entranceElev > ElevationCount {
		return nil, fmt.Errorf("%w: entrance elevation %d", ErrMalformedMap, entranceElev)
	}
	if !entranceDir.Valid() {
		return nil, fmt.Errorf("%w: entrance direction %d", ErrMalformedMap, int(entranceDir))
	}
	if entranceLin >= 0 {
		m.Entrance = r.world.HexGrid().FromLinearInv(int(entranceLin)).Elevated(entranceElev)
	}
	m.EntranceDirection = entranceDir

	m.MapVars = make([]int32, mapVarCount)
	for i := range m.MapVars {
		m.MapVars[i] = r.i32()
	}
	for i := 0; i < localVarCount; i++ {
		r.skip(4)
	}

	r.readSqrTiles(flags)
	r.readScripts()
	r.readObjects(f2)

	if r.err != nil {
		return nil, r.err
	}
	return m, nil
}

// readSqrTiles reads the per-elevation terrain. Bit i+1 of the map
// flags marks elevation i as absent. Rows run top to bottom with x
// descending, each cell a (roof, floor) pair.
func (r *mapReader) readSqrTiles(flags uint32) {
	for e := 0; e < ElevationCount; e++ {
		if flags&(1<<(e+1)) != 0 {
			continue
		}
		tiles := make([]Tile, SqrGridSize*SqrGridSize)
		for y := 0; y < SqrGridSize; y++ {
			for x := SqrGridSize - 1; x >= 0; x-- {
				roof := r.u16()
				floor := r.u16()
				tiles[y*SqrGridSize+x] = Tile{Floor: floor, Roof: roof}
			}
		}
		if r.err != nil {
			return
		}
		r.world.SetTiles(e, tiles)
	}
}

// Script records are variable-size by kind and padded to nodes of 16;
// nothing here survives into the World but the stream must stay aligned.
const scriptKindCount = 5

func (r *mapReader) readScripts() {
	for kind := 0; kind < scriptKindCount; kind++ {
		count := int(r.i32())
		if r.err != nil || count <= 0 {
			continue
		}
		const nodeLen = 16
		nodes := count / nodeLen
		if count%nodeLen != 0 {
			nodes++
		}
		for n := 0; n < nodes && r.err == nil; n++ {
			for i := 0; i < nodeLen; i++ {
				r.skipScript()
			}
			r.skip(4) // live record count within the node
			r.skip(4)
		}
	}
}

func (r *mapReader) skipScript() {
	sid := r.u32()
	if sid>>24 >= scriptKindCount {
		// Unused slot holding garbage.
		r.skip(15 * 4)
		return
	}
	r.skip(4)
	switch sid >> 24 {
	case 1: // spatial
		r.skip(8)
	case 2: // timed
		r.skip(4)
	}
	r.skip(14 * 4)
}

func (r *mapReader) readObjects(f2 bool) {
	total := int(r.i32())
	if r.err != nil {
		return
	}
	if total < 0 {
		r.err = fmt.Errorf("%w: negative object count %d", ErrMalformedMap, total)
		return
	}
	for e := 0; e < ElevationCount; e++ {
		count := int(r.u32())
		for i := 0; i < count && r.err == nil; i++ {
			obj, err := r.readObject(f2)
			if err != nil {
				r.err = err
				return
			}
			r.insert(obj)
		}
	}
	if r.err == nil && r.objCount != total {
		r.err = fmt.Errorf("%w: object count mismatch: header %d, stream %d", ErrMalformedMap, total, r.objCount)
	}
}

func (r *mapReader) insert(obj *Object) {
	if !obj.HasPos {
		r.world.Insert(obj)
		return
	}
	pos := obj.Pos
	obj.HasPos = false
	if _, err := r.world.Place(obj, pos); err != nil {
		r.err = fmt.Errorf("%w: object %d: %v", ErrMalformedMap, obj.ID, err)
	}
}

func (r *mapReader) readObject(f2 bool) (*Object, error) {
	r.objCount++
	obj := &Object{}
	obj.ID = r.u32()

	posLin := r.i32()
	obj.ScreenShift = geom.Pt(int(r.i32()), int(r.i32()))
	r.skip(8) // cached screen position
	frameIdx := int(r.i32())
	if frameIdx > 0 {
		obj.FrameIdx = frameIdx
	}
	dir := geom.Direction(r.u32())
	r.skip(4) // art fid; sprite comes from the prototype
	obj.Flags = Flag(r.u32())
	elevation := int(r.u32())
	obj.PID = protodef.ProtoID(r.u32())
	r.skip(4) // combat id
	obj.Light.Radius = int(r.i32())
	obj.Light.Intensity = int(r.i32())
	r.skip(4) // outline
	r.skip(8) // script id and program id

	inventoryLen := int(r.u32())
	r.skip(8) // inventory capacity and unused word

	r.skip(4) // updated flags

	if r.err != nil {
		return nil, r.err
	}
	if !dir.Valid() {
		return nil, fmt.Errorf("%w: object %d: direction %d", ErrMalformedMap, obj.ID, int(dir))
	}
	obj.Direction = dir
	if elevation < 0 || elevation >= ElevationCount {
		return nil, fmt.Errorf("%w: object %d: elevation %d", ErrMalformedMap, obj.ID, elevation)
	}
	if posLin >= 0 {
		obj.HasPos = true
		obj.Pos = r.world.HexGrid().FromLinearInv(int(posLin)).Elevated(elevation)
	}

	def, ok := r.catalog.Get(obj.PID)
	if !ok {
		return nil, fmt.Errorf("%w: object %d: unknown prototype %s", ErrMalformedMap, obj.ID, obj.PID)
	}
	r.applyProto(obj, def)
	r.readSub(obj, def, f2)

	for i := 0; i < inventoryLen && r.err == nil; i++ {
		count := int(r.i32())
		item, err := r.readObject(f2)
		if err != nil {
			return nil, err
		}
		item.HasPos = false
		h := r.world.Insert(item)
		obj.Inventory = append(obj.Inventory, InventoryItem{Object: h, Count: count})
	}
	if r.err != nil {
		return nil, r.err
	}

	if r.sprites != nil && def.Sprite != "" {
		s, err := r.sprites.Get(def.Sprite)
		if err != nil {
			return nil, fmt.Errorf("%w: object %d: prototype %s: entry %q: %v",
				ErrMissingAsset, obj.ID, obj.PID, def.Sprite, err)
		}
		obj.SpriteName = def.Sprite
		obj.Sprite = s
	}

	return obj, nil
}

// applyProto merges the prototype's authored flags and light into the
// instance. Map records carry per-instance state; flatness, footprint
// and passability defaults come from the prototype.
func (r *mapReader) applyProto(obj *Object, def protodef.Def) {
	if def.Flags.Flat {
		obj.Flags |= FlagFlat
	}
	if def.Flags.MultiHex {
		obj.Flags |= FlagMultiHex
	}
	if !def.Flags.BlocksMove {
		obj.Flags |= FlagNoBlock
	}
	if !def.Flags.BlocksSight {
		obj.Flags |= FlagLightThru
	}
	if obj.Light.Radius <= 0 && obj.Light.Intensity <= 0 && def.Light.Radius > 0 {
		obj.Light = LightEmitter{Radius: def.Light.Radius, Intensity: def.Light.Intensity}
	}
	if obj.Light.Radius > MaxEmitterRadius {
		obj.Light.Radius = MaxEmitterRadius
	}
}

// readSub consumes the kind-dependent trailing record. The layout is
// selected by the prototype's kind and sub-kind.
func (r *mapReader) readSub(obj *Object, def protodef.Def, f2 bool) {
	switch obj.Kind() {
	case protodef.KindCritter:
		r.skip(10 * 4)
	case protodef.KindItem:
		switch def.SubKind {
		case protodef.SubWeapon:
			r.skip(8)
		case protodef.SubAmmo, protodef.SubMiscItem, protodef.SubKey:
			r.skip(4)
		}
	case protodef.KindScenery:
		switch def.SubKind {
		case protodef.SubDoor:
			r.skip(4)
		case protodef.SubStairs, protodef.SubElevator:
			r.skip(8)
		case protodef.SubLadderUp, protodef.SubLadderDown:
			if f2 {
				r.skip(8)
			} else {
				r.skip(4)
			}
		}
	case protodef.KindMisc:
		if def.SubKind == protodef.SubExitArea {
			r.skip(16)
		}
	}
}
