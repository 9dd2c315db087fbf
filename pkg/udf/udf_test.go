package udf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgrewell/udf-kit/pkg/udf/addr"
	"github.com/bgrewell/udf-kit/pkg/udf/cache"
	"github.com/bgrewell/udf-kit/pkg/udf/descriptor"
	"github.com/bgrewell/udf-kit/pkg/udf/parser"
)

func TestTitlecaseVolumeName(t *testing.T) {
	cases := []struct{ in, want string }{
		{"SOME_MOVIE", "Some Movie"},
		{"AUDIO_TS", "Audio Ts"},
		{"already Nice", "Already Nice"},
		{"", ""},
		{"_leading_underscore", "Leading Underscore"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, TitlecaseVolumeName(tc.in))
	}
}

type memSource struct{ data []byte }

func (m *memSource) ReadAt(p []byte, off int64) (int, error) {
	return copy(p, m.data[off:]), nil
}

// extentReaderAt must assemble a virtual file from multiple extents
// (one recorded, one unrecorded/sparse) across partition-relative offsets.
func TestExtentReaderAt_AssemblesRecordedAndSparseExtents(t *testing.T) {
	const sectorSize = 2048
	source := &memSource{data: make([]byte, 8*sectorSize)}
	payload := []byte("hello, udf world")
	copy(source.data[3*sectorSize:], payload)

	sectorCache, err := cache.New(source, sectorSize, 8*sectorSize)
	require.NoError(t, err)

	table := addr.PartitionTable{
		0: {PartitionStartingLocation: 0},
	}

	recorded := descriptor.ShortAllocationDescriptor{
		ExtentLengthAndType: uint32(len(payload)), // type bits 00 = recorded & allocated
		ExtentLocation:      3,
	}

	sparse := descriptor.ShortAllocationDescriptor{
		ExtentLengthAndType: uint32(16) | (1 << 30), // type bits 01 = not recorded, allocated
	}

	records := []parser.FileEntryRecord{
		{
			Entry:                 descriptor.FileEntry{AllocationDescriptors: []descriptor.ShortAllocationDescriptor{recorded, sparse}},
			PartitionReferenceNum: 0,
		},
	}

	reader := newExtentReaderAt(sectorCache, sectorSize, sectorSize, table, records)

	buf := make([]byte, len(payload)+16)
	n, err := reader.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)
	assert.Equal(t, payload, buf[:len(payload)])
	assert.Equal(t, make([]byte, 16), buf[len(payload):])
}
