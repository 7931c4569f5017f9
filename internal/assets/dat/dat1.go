package dat

import (
	"fmt"
	"io"
	"os"
)

// openV1 parses the big-endian variant: a directory-name table up front
// followed by per-directory file tables. Entry data is LZSS-coded when
// the stored size differs from zero.
func openV1(f *os.File, path string) (*Archive, error) {
	// The whole directory lives at the head of the file; read generously
	// and parse with bounds checks. Directories are small relative to
	// content, so reading until the first entry offset is not needed.
	raw, err := io.ReadAll(io.NewSectionReader(f, 0, 1<<24))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptHeader, path, err)
	}

	c := cursor{buf: raw, path: path}
	dirCount := c.u32be()
	if dirCount > 0xffff {
		return nil, fmt.Errorf("%w: %s: implausible directory count %d", ErrCorruptHeader, path, dirCount)
	}
	c.bytes(4 * 3) // unknown header words

	dirs := make([]string, 0, dirCount)
	for i := uint32(0); i < dirCount && c.err == nil; i++ {
		dirs = append(dirs, c.pstring())
	}

	entries := make(map[string]Entry)
	for _, dir := range dirs {
		fileCount := c.u32be()
		c.bytes(4 * 3)
		for i := uint32(0); i < fileCount && c.err == nil; i++ {
			name := c.pstring()
			_ = c.u32be() // per-file flags, unused by the reader
			offset := c.u32be()
			size := c.u32be()
			packedSize := c.u32be()
			if c.err != nil {
				break
			}

			full := name
			if dir != "" {
				full = dir + "\\" + name
			}
			full = NormalizePath(full)

			compressed := packedSize != 0
			if !compressed {
				packedSize = size
			}
			entries[full] = Entry{
				Name:       full,
				Size:       size,
				PackedSize: packedSize,
				Offset:     offset,
				Compressed: compressed,
			}
		}
		if c.err != nil {
			break
		}
	}
	if c.err != nil {
		return nil, c.err
	}

	return &Archive{path: path, f: f, version: Version1, entries: entries}, nil
}

// pstring reads a length-prefixed ASCII path (u8 length).
func (c *cursor) pstring() string {
	n := c.u8()
	b := c.bytes(int(n))
	if b == nil {
		return ""
	}
	return NormalizePath(string(b))
}
