package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	DataDir     string   `yaml:"data_dir"`
	Archives    []string `yaml:"archives"`
	IndexPath   string   `yaml:"index_path"`
	ProtoPath   string   `yaml:"proto_path"`
	SpriteCache string   `yaml:"sprite_cache"`

	AmbientLight int `yaml:"ambient_light"`

	Pathfind Pathfind `yaml:"pathfind"`
	Render   Render   `yaml:"render"`
}

type Pathfind struct {
	MaxDepth    int  `yaml:"max_depth"`
	Smooth      bool `yaml:"smooth"`
	TurnPenalty int  `yaml:"turn_penalty"`
}

type Render struct {
	ViewportWidth  int `yaml:"viewport_width"`
	ViewportHeight int `yaml:"viewport_height"`
	MarginX        int `yaml:"margin_x"`
	MarginY        int `yaml:"margin_y"`
}

// Default returns the tuning used when no file is supplied.
func Default() Tuning {
	return Tuning{
		DataDir:      "data",
		IndexPath:    "assets.db",
		AmbientLight: 0x10000,
		Pathfind: Pathfind{
			MaxDepth:    2000,
			Smooth:      true,
			TurnPenalty: 10,
		},
		Render: Render{
			ViewportWidth:  640,
			ViewportHeight: 380,
			MarginX:        320,
			MarginY:        190,
		},
	}
}

func Load(path string) (Tuning, error) {
	t := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}
