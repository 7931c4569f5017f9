package dat

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/zlib"
)

// zlibDecode expands a zlib-framed entry. Reading is capped slightly past
// the declared size so an overlong stream is detected instead of
// ballooning memory.
func zlibDecode(src []byte, expectedSize int) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	out := make([]byte, 0, expectedSize)
	buf := make([]byte, 32*1024)
	for len(out) <= expectedSize {
		n, err := zr.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}
