// Package dat reads the legacy DAT container formats. Two variants exist
// in the wild: the original big-endian format with LZSS-compressed entries
// and the later little-endian format with zlib-compressed entries and a
// trailing directory. Open sniffs the variant from the file layout.
package dat

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

var (
	// ErrNotFound means the archive file or a named entry does not exist.
	ErrNotFound = errors.New("dat: not found")
	// ErrCorruptHeader means the archive directory cannot be parsed.
	ErrCorruptHeader = errors.New("dat: corrupt header")
	// ErrCorruptEntry means an entry's stored data does not decompress to
	// the length its directory record declares.
	ErrCorruptEntry = errors.New("dat: corrupt entry")
)

// Entry describes one named resource inside an archive. Entries are
// immutable once the archive is opened.
type Entry struct {
	Name       string
	Size       uint32 // uncompressed length
	PackedSize uint32 // stored length; equals Size for raw entries
	Offset     uint32
	Compressed bool
}

// Archive exposes the directory of one container file. It holds only the
// directory; entry bytes are read lazily per Read call.
type Archive struct {
	path    string
	f       *os.File
	version int
	entries map[string]Entry
}

const (
	Version1 = 1
	Version2 = 2
)

// Open opens a container and parses its directory. The variant is
// detected from the trailer: the later format records its own file size
// in the last eight bytes.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, err
	}

	a, err := openV2(f, path)
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, errNotV2) {
		f.Close()
		return nil, err
	}

	a, err = openV1(f, path)
	if err != nil {
		f.Close()
		return nil, err
	}
	return a, nil
}

// Close releases the underlying file. Entries can no longer be read.
func (a *Archive) Close() error { return a.f.Close() }

// Path returns the container file path the archive was opened from.
func (a *Archive) Path() string { return a.path }

// Version reports which container variant the archive uses.
func (a *Archive) Version() int { return a.version }

// List returns the entry names in normalized form, sorted.
func (a *Archive) List() []string {
	names := make([]string, 0, len(a.entries))
	for name := range a.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stat returns the directory record for a named entry.
func (a *Archive) Stat(name string) (Entry, error) {
	e, ok := a.entries[NormalizePath(name)]
	if !ok {
		return Entry{}, fmt.Errorf("%w: entry %q in %s", ErrNotFound, name, a.path)
	}
	return e, nil
}

// Read returns the uncompressed bytes of a named entry. The result is
// always exactly Entry.Size bytes; a stored stream that decompresses to
// any other length fails with ErrCorruptEntry.
func (a *Archive) Read(name string) ([]byte, error) {
	e, err := a.Stat(name)
	if err != nil {
		return nil, err
	}

	if !e.Compressed {
		buf := make([]byte, e.Size)
		if _, err := a.f.ReadAt(buf, int64(e.Offset)); err != nil {
			return nil, fmt.Errorf("%w: entry %q at offset %d: %v", ErrCorruptEntry, e.Name, e.Offset, err)
		}
		return buf, nil
	}

	packed := make([]byte, e.PackedSize)
	if _, err := a.f.ReadAt(packed, int64(e.Offset)); err != nil {
		return nil, fmt.Errorf("%w: entry %q at offset %d: %v", ErrCorruptEntry, e.Name, e.Offset, err)
	}

	var buf []byte
	switch a.version {
	case Version1:
		buf, err = lzssDecode(packed, int(e.Size))
	case Version2:
		buf, err = zlibDecode(packed, int(e.Size))
	}
	if err != nil {
		return nil, fmt.Errorf("%w: entry %q: %v", ErrCorruptEntry, e.Name, err)
	}
	if len(buf) != int(e.Size) {
		return nil, fmt.Errorf("%w: entry %q: decompressed %d bytes, directory says %d",
			ErrCorruptEntry, e.Name, len(buf), e.Size)
	}
	return buf, nil
}

// NormalizePath lowercases an entry path and folds slashes to the
// backslash form the legacy directories store. "." segments collapse the
// same way the original engine collapsed them.
func NormalizePath(path string) string {
	b := make([]byte, 0, len(path))
	for i := 0; i < len(path); i++ {
		c := path[i]
		if c == '/' {
			c = '\\'
		} else if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		b = append(b, c)
		if string(b) == ".\\" {
			b = b[:0]
		} else if strings.HasSuffix(string(b), "\\.\\") {
			b = b[:len(b)-2]
		}
	}
	if string(b) == "." {
		b = b[:0]
	}
	return string(b)
}
