package dat

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
)

// errNotV2 tells Open to retry the file as the older variant.
var errNotV2 = errors.New("dat: not a v2 container")

// openV2 parses the little-endian variant: the last eight bytes hold the
// directory size and the total file size, the directory sits just before
// them.
func openV2(f *os.File, path string) (*Archive, error) {
	st, err := f.Stat()
	if err != nil {
		return nil, err
	}
	actual := st.Size()
	if actual < 8 {
		return nil, errNotV2
	}

	var trailer [8]byte
	if _, err := f.ReadAt(trailer[:], actual-8); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptHeader, path, err)
	}
	dirSize := binary.LittleEndian.Uint32(trailer[0:4])
	fileSize := binary.LittleEndian.Uint32(trailer[4:8])

	if int64(fileSize) != actual {
		return nil, errNotV2
	}
	if int64(dirSize) > actual-8 {
		return nil, fmt.Errorf("%w: %s: directory size %d exceeds file", ErrCorruptHeader, path, dirSize)
	}

	dir := make([]byte, dirSize)
	if _, err := f.ReadAt(dir, actual-8-int64(dirSize)); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptHeader, path, err)
	}

	c := cursor{buf: dir, path: path}
	count := c.u32le()
	entries := make(map[string]Entry, count)
	for i := uint32(0); i < count && c.err == nil; i++ {
		nameLen := c.u32le()
		name := NormalizePath(string(c.bytes(int(nameLen))))
		compressed := c.u8()&1 != 0
		size := c.u32le()
		packedSize := c.u32le()
		offset := c.u32le()
		if c.err != nil {
			break
		}
		if !compressed {
			packedSize = size
		}
		entries[name] = Entry{
			Name:       name,
			Size:       size,
			PackedSize: packedSize,
			Offset:     offset,
			Compressed: compressed,
		}
	}
	if c.err != nil {
		return nil, c.err
	}

	return &Archive{path: path, f: f, version: Version2, entries: entries}, nil
}

// cursor is a bounds-checked reader over an in-memory directory. The
// first structural violation latches into err; subsequent reads return
// zero values.
type cursor struct {
	buf  []byte
	pos  int
	path string
	err  error
}

func (c *cursor) fail(what string) {
	if c.err == nil {
		c.err = fmt.Errorf("%w: %s: truncated directory reading %s at offset %d",
			ErrCorruptHeader, c.path, what, c.pos)
	}
}

func (c *cursor) bytes(n int) []byte {
	if c.err != nil {
		return nil
	}
	if n < 0 || c.pos+n > len(c.buf) {
		c.fail("bytes")
		return nil
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b
}

func (c *cursor) u8() byte {
	b := c.bytes(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (c *cursor) u32le() uint32 {
	b := c.bytes(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (c *cursor) u32be() uint32 {
	b := c.bytes(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}
