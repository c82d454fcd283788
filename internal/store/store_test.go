package store

import (
	"context"
	"errors"
	"io"
	"math"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryReadWriteTruncate(t *testing.T) {
	m := NewMemory("mem", []byte("0123456789"))

	buf := make([]byte, 4)
	n, err := m.ReadAt(buf, 8)
	assert.Equal(t, 2, n)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "89", string(buf[:n]))

	_, err = m.WriteAt([]byte("xy"), 12)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789\x00\x00xy"), m.Bytes())

	require.NoError(t, m.Truncate(3))
	require.NoError(t, m.Truncate(5))
	assert.Equal(t, []byte("012\x00\x00"), m.Bytes())
}

func TestReadFullAtStopsAtEnd(t *testing.T) {
	m := NewMemory("mem", []byte("abcdef"))
	buf := make([]byte, 10)
	n, err := ReadFullAt(m, buf, 2)
	require.NoError(t, err)
	assert.Equal(t, "cdef", string(buf[:n]))

	n, err = ReadFullAt(m, buf, 100)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReadRange(t *testing.T) {
	m := NewMemory("mem", []byte("abcdef"))
	got, err := ReadRange(m, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, "bcd", string(got))

	_, err = ReadRange(m, 4, 3)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ReadRange(m, math.MaxInt64-2, 10)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileOpenMissing(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing"), ReadOnly)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = Open(t.TempDir(), ReadOnly)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileReadOnlyRejectsWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	f, err := Open(path, ReadOnly)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.WriteAt([]byte("x"), 0)
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.ErrorIs(t, f.Truncate(1), ErrReadOnly)

	size, err := f.Size()
	require.NoError(t, err)
	assert.EqualValues(t, 5, size)
}

func TestFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.bin")
	f, err := Create(path)
	require.NoError(t, err)
	require.NoError(t, WriteFullAt(f, []byte("hello world"), 0))
	require.NoError(t, f.Truncate(5))
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestFaultyInjectsEIO(t *testing.T) {
	f := NewFaulty(NewMemory("mem", []byte("abc")))
	f.FailAfter(OpRead, 2)

	buf := make([]byte, 1)
	_, err := f.ReadAt(buf, 0)
	require.NoError(t, err)
	_, err = f.ReadAt(buf, 1)
	assert.ErrorIs(t, err, syscall.EIO)

	var ioe *IOError
	require.True(t, errors.As(err, &ioe))
	assert.Equal(t, "read", ioe.Op)
	assert.EqualValues(t, 1, ioe.Offset)

	_, err = f.ReadAt(buf, 2)
	assert.NoError(t, err, "a single fault is not sticky")

	f.Fail(OpTruncate)
	assert.Error(t, f.Truncate(0))
	assert.Error(t, f.Truncate(0))
	f.Reset()
	assert.NoError(t, f.Truncate(0))
	assert.Equal(t, 3, f.Calls(OpRead))
}

func TestIOErrorMessage(t *testing.T) {
	err := &IOError{Op: "read", Path: "a.bin", Offset: 7, Err: syscall.EIO}
	assert.Equal(t, "read a.bin at 7: input/output error", err.Error())

	err.Offset = -1
	assert.Equal(t, "read a.bin: input/output error", err.Error())
}

func TestInvalidRegionIsNotFound(t *testing.T) {
	assert.ErrorIs(t, ErrInvalidRegion, ErrNotFound)
}

func TestGeneratePattern(t *testing.T) {
	m := NewMemory("mem", []byte("leftover bytes"))
	require.NoError(t, Generate(context.Background(), m, 6, FillPattern{Start: 0x10, Step: 2}, nil))
	assert.Equal(t, []byte{0x10, 0x12, 0x14, 0x16, 0x18, 0x1a}, m.Bytes())

	require.NoError(t, Generate(context.Background(), m, 3, FillPattern{Start: 'z'}, nil))
	assert.Equal(t, "zzz", string(m.Bytes()))
}

func TestGenerateCancel(t *testing.T) {
	m := NewMemory("mem", nil)
	err := Generate(context.Background(), m, 10, FillPattern{}, func(done, total int64) bool { return false })
	assert.True(t, IsCancelled(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = Generate(ctx, m, 10, FillPattern{}, nil)
	assert.ErrorIs(t, err, ErrCancelled)
}
