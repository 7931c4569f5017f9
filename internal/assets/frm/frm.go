// Package frm decodes the legacy multi-directional sprite format. A
// sprite holds one frame list per hex direction; directions whose data
// offsets coincide share a single decoded list. Pixels stay as raw
// palette indices; color translation happens outside this core.
package frm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"hexworld.dev/internal/geom"
)

// ErrMalformedSprite means the input bytes do not form a valid sprite.
var ErrMalformedSprite = errors.New("frm: malformed sprite")

// headerSize covers version, fps, action frame, frames per direction,
// six center pairs, six direction offsets and the data length word.
const headerSize = 4 + 2 + 2 + 2 + 6*2 + 6*2 + 6*4 + 4

// Frame is one decoded animation cell. Pixels holds Width*Height palette
// indices in row order.
type Frame struct {
	Width  int
	Height int
	// Shift is the frame's offset from the sprite pivot, applied on top
	// of the per-direction center.
	Shift  geom.Point
	Pixels []byte
}

// FrameList is the frame sequence for one direction.
type FrameList struct {
	Center geom.Point
	Frames []Frame
}

// Sprite is a fully decoded sprite. Decoded sprites are immutable and
// safe to share by reference across any number of readers.
type Sprite struct {
	FPS         int
	ActionFrame int
	// FramesPerDirection is identical across all six lists.
	FramesPerDirection int
	Directions         [geom.DirCount]*FrameList
}

// FrameDuration returns the display time of one frame.
func (s *Sprite) FrameDuration() time.Duration {
	return time.Second / time.Duration(s.FPS)
}

// Frame returns the frame for a direction, wrapping the index into the
// direction's frame count.
func (s *Sprite) Frame(dir geom.Direction, idx int) *Frame {
	fl := s.Directions[dir]
	return &fl.Frames[idx%len(fl.Frames)]
}

// Decode parses sprite bytes. Decoding is deterministic and side-effect
// free: the same input always yields an identical Sprite.
func Decode(data []byte) (*Sprite, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: %d bytes, header needs %d", ErrMalformedSprite, len(data), headerSize)
	}
	be := binary.BigEndian

	// version is unused but part of the fixed layout
	fps := int(be.Uint16(data[4:6]))
	if fps == 0 {
		fps = 10
	}
	actionFrame := int(be.Uint16(data[6:8]))
	framesPerDir := int(be.Uint16(data[8:10]))
	if framesPerDir == 0 {
		return nil, fmt.Errorf("%w: zero frames per direction", ErrMalformedSprite)
	}

	var centers [geom.DirCount]geom.Point
	for i := 0; i < geom.DirCount; i++ {
		centers[i].X = int(int16(be.Uint16(data[10+2*i:])))
	}
	for i := 0; i < geom.DirCount; i++ {
		centers[i].Y = int(int16(be.Uint16(data[22+2*i:])))
	}

	var offsets [geom.DirCount]uint32
	for i := 0; i < geom.DirCount; i++ {
		offsets[i] = be.Uint32(data[34+4*i:])
	}

	dataLen := be.Uint32(data[58:62])
	if int(dataLen) > len(data)-headerSize {
		return nil, fmt.Errorf("%w: declared data length %d exceeds input", ErrMalformedSprite, dataLen)
	}

	s := &Sprite{
		FPS:                fps,
		ActionFrame:        actionFrame,
		FramesPerDirection: framesPerDir,
	}

	// Directions sharing a data offset share one decoded frame list.
	decoded := make(map[uint32]*FrameList, geom.DirCount)
	for d := 0; d < geom.DirCount; d++ {
		off := offsets[d]
		if fl, ok := decoded[off]; ok {
			s.Directions[d] = fl
			continue
		}
		fl, err := decodeFrameList(data, headerSize+int(off), framesPerDir, centers[d])
		if err != nil {
			return nil, fmt.Errorf("%w (direction %s)", err, geom.Direction(d))
		}
		decoded[off] = fl
		s.Directions[d] = fl
	}

	return s, nil
}

func decodeFrameList(data []byte, pos, count int, center geom.Point) (*FrameList, error) {
	fl := &FrameList{
		Center: center,
		Frames: make([]Frame, 0, count),
	}
	be := binary.BigEndian
	for i := 0; i < count; i++ {
		if pos < headerSize || pos+12 > len(data) {
			return nil, fmt.Errorf("%w: frame %d header at offset %d out of range", ErrMalformedSprite, i, pos)
		}
		w := int(int16(be.Uint16(data[pos:])))
		h := int(int16(be.Uint16(data[pos+2:])))
		// The recorded frame byte length is redundant (width*height) and
		// unreliable in shipped assets; the dimensions are authoritative.
		shift := geom.Point{
			X: int(int16(be.Uint16(data[pos+8:]))),
			Y: int(int16(be.Uint16(data[pos+10:]))),
		}
		pos += 12

		if w < 0 || h < 0 {
			return nil, fmt.Errorf("%w: frame %d has negative dimensions %dx%d", ErrMalformedSprite, i, w, h)
		}
		n := w * h
		if pos+n > len(data) {
			return nil, fmt.Errorf("%w: frame %d pixel span [%d,%d) exceeds input of %d",
				ErrMalformedSprite, i, pos, pos+n, len(data))
		}

		pixels := make([]byte, n)
		copy(pixels, data[pos:pos+n])
		pos += n

		fl.Frames = append(fl.Frames, Frame{
			Width:  w,
			Height: h,
			Shift:  shift,
			Pixels: pixels,
		})
	}
	return fl, nil
}
