package store

import (
	"context"
)

// FillPattern describes generated content: byte i is Start + i*Step.
// A zero Step repeats Start.
type FillPattern struct {
	Start byte
	Step  byte
}

const generateChunk = 1 << 20

// Generate replaces the contents of st with size bytes of pattern, written in
// chunks. report is called once per chunk; returning false cancels. A
// cancelled or failed run leaves a partially written store.
func Generate(ctx context.Context, st Store, size int64, pattern FillPattern, report func(done, total int64) bool) error {
	if err := st.Truncate(0); err != nil {
		return ioErr("truncate", st.Path(), 0, err)
	}
	bufSize := int64(generateChunk)
	if size < bufSize {
		bufSize = size
	}
	buf := make([]byte, bufSize)
	fillConstant := pattern.Step == 0
	if fillConstant {
		for i := range buf {
			buf[i] = pattern.Start
		}
	}
	for pos := int64(0); pos < size; {
		if err := ctx.Err(); err != nil {
			return ErrCancelled
		}
		if report != nil && !report(pos, size) {
			return ErrCancelled
		}
		n := size - pos
		if n > bufSize {
			n = bufSize
		}
		chunk := buf[:n]
		if !fillConstant {
			b := pattern.Start + byte(pos)*pattern.Step
			for i := range chunk {
				chunk[i] = b
				b += pattern.Step
			}
		}
		if err := WriteFullAt(st, chunk, pos); err != nil {
			return err
		}
		pos += n
	}
	if report != nil {
		report(size, size)
	}
	return nil
}
