// Package cache owns decoded sprite data. Sprites are decoded once on
// first request and shared read-only afterwards; the cache is the only
// component that touches the archive layer during rendering. A decoded
// cache can be persisted as a zstd-framed snapshot to skip re-decoding
// across runs.
package cache

import (
	"errors"
	"fmt"
	"sync"

	"hexworld.dev/internal/assets/dat"
	"hexworld.dev/internal/assets/frm"
)

// Source yields raw entry bytes by name. *dat.Archive and Mounts both
// satisfy it.
type Source interface {
	Read(name string) ([]byte, error)
}

// Mounts layers several archives; later mounts win, matching how patch
// containers override base containers.
type Mounts struct {
	archives []*dat.Archive
}

func NewMounts(archives ...*dat.Archive) *Mounts {
	return &Mounts{archives: archives}
}

// Mount adds an archive with the highest priority.
func (m *Mounts) Mount(a *dat.Archive) { m.archives = append(m.archives, a) }

// Read returns the entry bytes from the highest-priority archive that
// has the entry.
func (m *Mounts) Read(name string) ([]byte, error) {
	for i := len(m.archives) - 1; i >= 0; i-- {
		b, err := m.archives[i].Read(name)
		if err == nil {
			return b, nil
		}
		if !errors.Is(err, dat.ErrNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: entry %q in any mounted archive", dat.ErrNotFound, name)
}

// Stat returns the directory record from the highest-priority archive
// that has the entry.
func (m *Mounts) Stat(name string) (dat.Entry, error) {
	for i := len(m.archives) - 1; i >= 0; i-- {
		e, err := m.archives[i].Stat(name)
		if err == nil {
			return e, nil
		}
		if !errors.Is(err, dat.ErrNotFound) {
			return dat.Entry{}, err
		}
	}
	return dat.Entry{}, fmt.Errorf("%w: entry %q in any mounted archive", dat.ErrNotFound, name)
}

// Archives returns the mounted archives in mount order.
func (m *Mounts) Archives() []*dat.Archive { return m.archives }

// SpriteCache maps normalized entry names to decoded sprites.
type SpriteCache struct {
	src Source

	mu      sync.RWMutex
	sprites map[string]*frm.Sprite
}

func NewSpriteCache(src Source) *SpriteCache {
	return &SpriteCache{
		src:     src,
		sprites: make(map[string]*frm.Sprite),
	}
}

// Get returns the decoded sprite for an entry name, decoding it on first
// use. The returned sprite is shared and must be treated as read-only.
func (c *SpriteCache) Get(name string) (*frm.Sprite, error) {
	key := dat.NormalizePath(name)

	c.mu.RLock()
	s, ok := c.sprites[key]
	c.mu.RUnlock()
	if ok {
		return s, nil
	}

	raw, err := c.src.Read(key)
	if err != nil {
		return nil, err
	}
	s, err = frm.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("entry %q: %w", key, err)
	}

	c.mu.Lock()
	// A concurrent decode of the same entry may have won; keep the first.
	if prev, ok := c.sprites[key]; ok {
		s = prev
	} else {
		c.sprites[key] = s
	}
	c.mu.Unlock()
	return s, nil
}

// Put seeds the cache with an already decoded sprite.
func (c *SpriteCache) Put(name string, s *frm.Sprite) {
	c.mu.Lock()
	c.sprites[dat.NormalizePath(name)] = s
	c.mu.Unlock()
}

// Len returns the number of decoded sprites held.
func (c *SpriteCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sprites)
}
