package cache

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"os"
	"sort"

	"github.com/klauspost/compress/zstd"

	"hexworld.dev/internal/assets/frm"
	"hexworld.dev/internal/geom"
)

const snapshotVersion = 1

// snapshotSprite is the on-disk shape of one decoded sprite. Direction
// sharing is preserved by storing unique frame lists once and per-
// direction indices into them.
type snapshotSprite struct {
	Name               string
	FPS                int
	ActionFrame        int
	FramesPerDirection int
	Lists              []frm.FrameList
	DirList            [geom.DirCount]int
}

type snapshotFile struct {
	Version int
	Sprites []snapshotSprite
}

// SaveSnapshot writes every decoded sprite to a zstd-framed gob file.
// The write goes through a temp file and rename so a crash never leaves
// a half-written snapshot behind.
func (c *SpriteCache) SaveSnapshot(path string) error {
	c.mu.RLock()
	file := snapshotFile{Version: snapshotVersion}
	names := make([]string, 0, len(c.sprites))
	for name := range c.sprites {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		file.Sprites = append(file.Sprites, flattenSprite(name, c.sprites[name]))
	}
	c.mu.RUnlock()

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		f.Close()
		return err
	}
	w := bufio.NewWriterSize(enc, 128*1024)

	if err := gob.NewEncoder(w).Encode(&file); err != nil {
		enc.Close()
		f.Close()
		return err
	}
	if err := w.Flush(); err != nil {
		enc.Close()
		f.Close()
		return err
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadSnapshot seeds the cache from a snapshot file. Sprites already in
// the cache keep their decoded instances.
func (c *SpriteCache) LoadSnapshot(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return 0, err
	}
	defer dec.Close()

	var file snapshotFile
	if err := gob.NewDecoder(bufio.NewReader(dec)).Decode(&file); err != nil {
		return 0, fmt.Errorf("sprite snapshot %s: %w", path, err)
	}
	if file.Version != snapshotVersion {
		return 0, fmt.Errorf("sprite snapshot %s: version %d, want %d", path, file.Version, snapshotVersion)
	}

	n := 0
	c.mu.Lock()
	for _, ss := range file.Sprites {
		if _, ok := c.sprites[ss.Name]; ok {
			continue
		}
		c.sprites[ss.Name] = unflattenSprite(ss)
		n++
	}
	c.mu.Unlock()
	return n, nil
}

func flattenSprite(name string, s *frm.Sprite) snapshotSprite {
	ss := snapshotSprite{
		Name:               name,
		FPS:                s.FPS,
		ActionFrame:        s.ActionFrame,
		FramesPerDirection: s.FramesPerDirection,
	}
	seen := make(map[*frm.FrameList]int, geom.DirCount)
	for d := 0; d < geom.DirCount; d++ {
		fl := s.Directions[d]
		idx, ok := seen[fl]
		if !ok {
			idx = len(ss.Lists)
			seen[fl] = idx
			ss.Lists = append(ss.Lists, *fl)
		}
		ss.DirList[d] = idx
	}
	return ss
}

func unflattenSprite(ss snapshotSprite) *frm.Sprite {
	s := &frm.Sprite{
		FPS:                ss.FPS,
		ActionFrame:        ss.ActionFrame,
		FramesPerDirection: ss.FramesPerDirection,
	}
	lists := make([]*frm.FrameList, len(ss.Lists))
	for i := range ss.Lists {
		fl := ss.Lists[i]
		lists[i] = &fl
	}
	for d := 0; d < geom.DirCount; d++ {
		s.Directions[d] = lists[ss.DirList[d]]
	}
	return s
}
