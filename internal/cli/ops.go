package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/multierr"

	"github.com/kobzarvs/qview/internal/config"
	"github.com/kobzarvs/qview/internal/logger"
	"github.com/kobzarvs/qview/internal/progress"
	"github.com/kobzarvs/qview/internal/resize"
	"github.com/kobzarvs/qview/internal/search"
	"github.com/kobzarvs/qview/internal/store"
	"github.com/kobzarvs/qview/internal/window"
)

const dumpRows = 256

// withStore opens path, runs fn and closes the store, keeping both errors.
func withStore(path string, mode store.Mode, fn func(st store.Store) error) (err error) {
	st, err := store.Open(path, mode)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, st.Close()) }()
	return fn(st)
}

func parseInt(what, s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 0, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q: %w", what, s, err)
	}
	if n < 0 {
		return 0, fmt.Errorf("%s %d: must not be negative", what, n)
	}
	return n, nil
}

// parseSize accepts an integer with an optional k, m or g suffix (powers of 1024).
func parseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	shift := 0
	if s != "" {
		switch s[len(s)-1] {
		case 'k', 'K':
			shift = 10
		case 'm', 'M':
			shift = 20
		case 'g', 'G':
			shift = 30
		}
		if shift > 0 {
			s = s[:len(s)-1]
		}
	}
	n, err := parseInt("size", s)
	if err != nil {
		return 0, err
	}
	if n > (1<<62)>>shift {
		return 0, fmt.Errorf("size %s: too large", s)
	}
	return n << shift, nil
}

func hexLine(off int64, row []byte, cols int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%08X  ", off)
	for i := 0; i < cols; i++ {
		if i > 0 && i%8 == 0 {
			b.WriteByte(' ')
		}
		if i < len(row) {
			fmt.Fprintf(&b, "%02X ", row[i])
		} else {
			b.WriteString("   ")
		}
	}
	b.WriteString(" ")
	for _, c := range row {
		if c < 0x20 || c >= 0x7f {
			c = '.'
		}
		b.WriteByte(c)
	}
	return strings.TrimRight(b.String(), " ")
}

// dump prints [off, off+length) as hex rows, moving a window over the store.
// A negative length dumps to the end.
func dump(o *IO, st store.Store, cols int, off, length int64) error {
	w, err := window.New(st, cols*dumpRows)
	if err != nil {
		return err
	}
	view, err := w.Reposition(off, true)
	if err != nil {
		return err
	}
	if off > view.Size {
		return fmt.Errorf("offset %d past the end of %d bytes: %w", off, view.Size, store.ErrNotFound)
	}
	end := view.Size
	if length >= 0 && off+length < end {
		end = off + length
	}
	for pos := off; pos < end; {
		view, err = w.Reposition(pos, false)
		if err != nil {
			return err
		}
		for pos < end {
			n := min(int64(cols), end-pos)
			i := pos - view.Offset
			if i < 0 || i+n > int64(view.Valid) {
				break
			}
			o.Println(hexLine(pos, view.Data[i:i+n], cols))
			pos += n
		}
	}
	return nil
}

// find prints one match, or every match with all, as "decimal<TAB>hex".
func find(ctx context.Context, o *IO, st store.Store, cfg config.Config, pattern []byte, start int64, wrap, all bool) error {
	opts := search.Options{Wrap: wrap && !all, ChunkSize: cfg.Engine.SearchChunk}
	found := 0
	for {
		off, ok, err := search.Find(ctx, st, pattern, start, opts)
		if store.IsCancelled(err) {
			logger.Info("find cancelled", "path", st.Path(), "start", start, "matches", found)
			return nil
		}
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		found++
		o.Printf("%d\t0x%X\n", off, off)
		if !all {
			break
		}
		start = off + 1
	}
	logger.Info("find", "path", st.Path(), "pattern_len", len(pattern), "matches", found)
	if found == 0 {
		return errNoMatch
	}
	return nil
}

// replaceRange runs one edit to completion, optionally reporting progress
// on stderr.
func replaceRange(ctx context.Context, o *IO, st store.Store, cfg config.Config, what string, off, oldLen int64, data []byte, showProgress bool) error {
	opts := resize.Options{ScratchSize: cfg.Engine.ScratchSize}
	if showProgress {
		opts.Progress = progress.Percent(func(p int) bool {
			o.ErrPrintf("\r%s %3d%%", what, p)
			return true
		})
	}
	logger.Info("edit started", "op", what, "path", st.Path(), "offset", off, "old_len", oldLen, "new_len", len(data))
	err := resize.Replace(ctx, st, off, oldLen, data, opts)
	if showProgress {
		o.ErrPrintln()
	}
	switch {
	case store.IsCancelled(err):
		logger.Warn("edit cancelled", "op", what, "path", st.Path())
		return fmt.Errorf("%s: %w (the file may be partially shifted)", what, err)
	case err != nil:
		logger.Error("edit failed", "op", what, "path", st.Path(), "err", err)
		return fmt.Errorf("%s: %w", what, err)
	}
	logger.Info("edit finished", "op", what, "path", st.Path())
	return nil
}
