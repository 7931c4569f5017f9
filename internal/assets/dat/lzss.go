package dat

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// LZSS parameters fixed by the legacy format.
const (
	lzssWindow    = 4096
	lzssMaxMatch  = 18
	lzssThreshold = 2
)

var errLZSS = errors.New("malformed LZSS stream")

// lzssDecode expands an entry stored as a sequence of LZSS blocks. Each
// block starts with a big-endian i16 descriptor: zero ends the stream, a
// negative value prefixes |n| raw bytes, a positive value prefixes n
// bytes of coded data. Decoding stops once expectedSize bytes have been
// produced; producing more, or running out of blocks short, is an error.
func lzssDecode(src []byte, expectedSize int) ([]byte, error) {
	out := make([]byte, 0, expectedSize)
	pos := 0

	for len(out) < expectedSize {
		if pos+2 > len(src) {
			return nil, errLZSS
		}
		descr := int(int16(binary.BigEndian.Uint16(src[pos:])))
		pos += 2
		if descr == 0 {
			break
		}

		blockSize := descr
		if blockSize < 0 {
			blockSize = -blockSize
		}
		if pos+blockSize > len(src) {
			return nil, fmt.Errorf("%w: block of %d bytes exceeds input", errLZSS, blockSize)
		}
		block := src[pos : pos+blockSize]
		pos += blockSize

		if descr < 0 {
			out = append(out, block...)
		} else {
			out = lzssDecodeBlock(block, out)
		}

		if len(out) > expectedSize {
			return nil, fmt.Errorf("%w: output exceeds declared size %d", errLZSS, expectedSize)
		}
	}

	if len(out) != expectedSize {
		return nil, fmt.Errorf("%w: produced %d of %d bytes", errLZSS, len(out), expectedSize)
	}
	return out, nil
}

// lzssDecodeBlock expands one coded block into out. The ring buffer is
// initialized to spaces and the write position starts at N-F, per the
// reference coder.
func lzssDecodeBlock(block []byte, out []byte) []byte {
	var text [lzssWindow + lzssMaxMatch - 1]byte
	for i := range text {
		text[i] = 0x20
	}
	r := lzssWindow - lzssMaxMatch
	flags := 0

	read := 0
	next := func() (byte, bool) {
		if read >= len(block) {
			return 0, false
		}
		b := block[read]
		read++
		return b, true
	}

	for {
		flags >>= 1
		if flags&0x100 == 0 {
			b, ok := next()
			if !ok {
				break
			}
			if read >= len(block) {
				break
			}
			flags = int(b) | 0xff00
		}

		if flags&1 != 0 {
			b, ok := next()
			if !ok {
				break
			}
			out = append(out, b)
			if read >= len(block) {
				break
			}
			text[r] = b
			r = (r + 1) & (lzssWindow - 1)
		} else {
			bi, ok := next()
			if !ok {
				break
			}
			if read >= len(block) {
				break
			}
			bj, ok := next()
			if !ok {
				break
			}

			i := int(bi) | (int(bj)&0xf0)<<4
			j := int(bj)&0x0f + lzssThreshold

			for k := 0; k <= j; k++ {
				b := text[(i+k)&(lzssWindow-1)]
				out = append(out, b)
				text[r] = b
				r = (r + 1) & (lzssWindow - 1)
			}
		}
	}
	return out
}
