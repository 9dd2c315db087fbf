package cache

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgrewell/udf-kit/pkg/udf/udferr"
)

// fakeSource records every ReadAt call so tests can assert cache hits avoid
// touching the underlying source.
type fakeSource struct {
	data  []byte
	reads int
}

func (f *fakeSource) ReadAt(p []byte, off int64) (int, error) {
	f.reads++
	n := copy(p, f.data[off:])
	return n, nil
}

func newFakeSource(sectorSize, sectorCount int) *fakeSource {
	data := make([]byte, sectorSize*sectorCount)
	for i := range data {
		data[i] = byte(i % 251)
	}
	return &fakeSource{data: data}
}

// Invariant 5: a cache hit returns identical bytes to a fresh read and does
// not touch the underlying source a second time.
func TestSectorCache_HitAvoidsSourceRead(t *testing.T) {
	source := newFakeSource(512, 4)
	c, err := New(source, 512, 2*512)
	require.NoError(t, err)

	first, err := c.ReadBlock(1)
	require.NoError(t, err)
	want := append([]byte(nil), first...)
	assert.Equal(t, 1, source.reads)

	second, err := c.ReadBlock(1)
	require.NoError(t, err)
	assert.Equal(t, want, second)
	assert.Equal(t, 1, source.reads, "cache hit must not re-read the source")
}

// Capacity 1 slot: reading a second distinct block evicts the first.
func TestSectorCache_EvictsOldestWhenFull(t *testing.T) {
	source := newFakeSource(512, 4)
	c, err := New(source, 512, 512)
	require.NoError(t, err)

	_, err = c.ReadBlock(0)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())

	_, err = c.ReadBlock(1)
	require.NoError(t, err)
	assert.Equal(t, 1, c.Len())
	assert.Equal(t, 2, source.reads)

	// block 0 was evicted, so reading it again must hit the source.
	_, err = c.ReadBlock(0)
	require.NoError(t, err)
	assert.Equal(t, 3, source.reads)
}

func TestSectorCache_ReadExactSpansSectorBoundary(t *testing.T) {
	source := newFakeSource(512, 4)
	c, err := New(source, 512, 4*512)
	require.NoError(t, err)

	buf := make([]byte, 600)
	require.NoError(t, c.ReadExact(400, buf))
	assert.True(t, bytes.Equal(buf, source.data[400:1000]))
}

type errSource struct{}

func (errSource) ReadAt(p []byte, off int64) (int, error) {
	return 0, errors.New("boom")
}

func TestSectorCache_ReadBlock_WrapsIOError(t *testing.T) {
	c, err := New(errSource{}, 512, 512)
	require.NoError(t, err)

	_, err = c.ReadBlock(0)
	require.Error(t, err)
	assert.True(t, errors.Is(err, udferr.ErrIO))
	assert.Equal(t, 0, c.Len())
}
