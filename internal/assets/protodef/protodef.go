// Package protodef loads the prototype catalog: per-prototype metadata
// the map reader and the world need but the legacy map records leave to
// the prototype database (sub-kinds, passability, light emission, sprite
// references). Catalog documents are designer-authored JSON validated
// against the embedded schema.
package protodef

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed proto.schema.json
var schemaBytes []byte

// ErrInvalidCatalog means a catalog document failed schema or semantic
// validation.
var ErrInvalidCatalog = errors.New("protodef: invalid catalog")

// Kind is the entity kind packed into bits 24..27 of a prototype or
// sprite identifier. Values match the legacy encoding.
type Kind int

const (
	KindItem Kind = iota
	KindCritter
	KindScenery
	KindWall
	KindTile
	KindMisc
)

var kindNames = map[Kind]string{
	KindItem:    "item",
	KindCritter: "critter",
	KindScenery: "scenery",
	KindWall:    "wall",
	KindTile:    "tile",
	KindMisc:    "misc",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// ProtoID is a packed prototype identifier. The high byte's low nibble
// carries the Kind; the low 16 bits index within the kind.
type ProtoID uint32

func (p ProtoID) Kind() Kind { return Kind(p >> 24 & 0xf) }
func (p ProtoID) Index() int { return int(p & 0xffff) }

func (p ProtoID) String() string {
	return fmt.Sprintf("%s:%d", p.Kind(), p.Index())
}

// Scenery sub-kinds. The map reader needs these to know which trailing
// sub-record to parse.
const (
	SubNone        = ""
	SubDoor        = "door"
	SubStairs      = "stairs"
	SubElevator    = "elevator"
	SubLadderUp    = "ladder_up"
	SubLadderDown  = "ladder_down"
	SubWeapon      = "weapon"
	SubAmmo        = "ammo"
	SubKey         = "key"
	SubMiscItem    = "misc_item"
	SubExitArea    = "exit_area"
	SubSceneryMisc = "scenery_misc"
)

// FlagsDoc is the authored flag block of one prototype.
type FlagsDoc struct {
	BlocksMove  bool `json:"blocks_move,omitempty" jsonschema:"description=Occupying objects of this prototype block movement"`
	BlocksSight bool `json:"blocks_sight,omitempty" jsonschema:"description=Blocks line of sight and light"`
	Flat        bool `json:"flat,omitempty" jsonschema:"description=Drawn flat under non-flat objects on the same tile"`
	MultiHex    bool `json:"multi_hex,omitempty" jsonschema:"description=Footprint extends past the anchor hex"`
}

// LightDoc is the authored light emission of one prototype.
type LightDoc struct {
	Radius    int `json:"radius" jsonschema:"minimum=0,maximum=8,description=Emission radius in hexes"`
	Intensity int `json:"intensity" jsonschema:"minimum=0,maximum=65536,description=Emission intensity at the emitter hex"`
}

// Doc is one prototype as it appears on disk. The kind is carried by the
// packed pid, not duplicated in the document.
type Doc struct {
	PID     uint32    `json:"pid" jsonschema:"title=Packed prototype id,minimum=0,required"`
	Name    string    `json:"name,omitempty" jsonschema:"description=Designer-facing name"`
	SubKind string    `json:"sub_kind,omitempty" jsonschema:"description=Sub-kind selecting the map record's trailing layout"`
	Sprite  string    `json:"sprite,omitempty" jsonschema:"description=Archive entry name of the prototype's sprite"`
	Flags   FlagsDoc  `json:"flags,omitempty"`
	Light   *LightDoc `json:"light,omitempty"`
}

// FileDoc is the canonical catalog document shape.
type FileDoc struct {
	Protos []Doc `json:"protos" jsonschema:"required"`
}

// Def is a resolved prototype.
type Def struct {
	PID     ProtoID
	Name    string
	SubKind string
	Sprite  string
	Flags   FlagsDoc
	Light   LightDoc
}

// Catalog is the resolved, immutable prototype set.
type Catalog struct {
	defs map[ProtoID]Def
}

var compiledSchema = mustCompileSchema()

func mustCompileSchema() *jsonschema.Schema {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("proto.schema.json", bytes.NewReader(schemaBytes)); err != nil {
		panic(err)
	}
	return c.MustCompile("proto.schema.json")
}

// Load reads and validates a catalog file.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse validates catalog bytes against the schema and resolves them.
func Parse(raw []byte) (*Catalog, error) {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}
	if err := compiledSchema.Validate(generic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	var file FileDoc
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
	}

	defs := make(map[ProtoID]Def, len(file.Protos))
	for _, d := range file.Protos {
		pid := ProtoID(d.PID)
		if _, dup := defs[pid]; dup {
			return nil, fmt.Errorf("%w: duplicate pid %s", ErrInvalidCatalog, pid)
		}
		def := Def{
			PID:     pid,
			Name:    d.Name,
			SubKind: d.SubKind,
			Sprite:  d.Sprite,
			Flags:   d.Flags,
		}
		if d.Light != nil {
			def.Light = *d.Light
		}
		defs[pid] = def
	}
	return &Catalog{defs: defs}, nil
}

// Get returns the prototype for a packed id.
func (c *Catalog) Get(pid ProtoID) (Def, bool) {
	d, ok := c.defs[pid]
	return d, ok
}

// Len returns the number of prototypes.
func (c *Catalog) Len() int { return len(c.defs) }

// PIDs returns all prototype ids in ascending packed order.
func (c *Catalog) PIDs() []ProtoID {
	out := make([]ProtoID, 0, len(c.defs))
	for pid := range c.defs {
		out = append(out, pid)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
