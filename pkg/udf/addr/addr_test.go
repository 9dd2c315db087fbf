package addr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgrewell/udf-kit/pkg/udf/descriptor"
	"github.com/bgrewell/udf-kit/pkg/udf/udferr"
)

// Invariant 6: address resolution is partition_start + block_number * block_ratio.
func TestLongAdToAbsoluteSector(t *testing.T) {
	table := PartitionTable{
		0: {PartitionNumber: 0, PartitionStartingLocation: 1000, PartitionLength: 5000},
	}
	long := descriptor.LongAd{
		ExtentLocation: descriptor.LbAddr{LogicalBlockNumber: 42, PartitionReferenceNum: 0},
	}

	sector, err := LongAdToAbsoluteSector(table, 2048, long)
	require.NoError(t, err)
	assert.Equal(t, uint32(1042), sector)
}

func TestLongAdToAbsoluteSector_UnknownPartition(t *testing.T) {
	table := PartitionTable{}
	long := descriptor.LongAd{ExtentLocation: descriptor.LbAddr{PartitionReferenceNum: 7}}

	_, err := LongAdToAbsoluteSector(table, 2048, long)
	require.Error(t, err)
	assert.True(t, errors.Is(err, udferr.ErrInvalidPartitionNumber))
}

func TestShortADToByteOffsetInPartition(t *testing.T) {
	short := descriptor.ShortAllocationDescriptor{ExtentLocation: 10}
	assert.Equal(t, uint64(10*2048), ShortADToByteOffsetInPartition(2048, short))
}

func TestAbsoluteByteOffset(t *testing.T) {
	pd := descriptor.PartitionDescriptor{PartitionStartingLocation: 100}
	assert.Equal(t, uint64(100*2048+512), AbsoluteByteOffset(pd, 2048, 512))
}

func TestBlockRatio_LargerLogicalBlockSize(t *testing.T) {
	table := PartitionTable{0: {PartitionStartingLocation: 0}}
	long := descriptor.LongAd{ExtentLocation: descriptor.LbAddr{LogicalBlockNumber: 2, PartitionReferenceNum: 0}}

	sector, err := LongAdToAbsoluteSector(table, 4096, long)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), sector)
}
