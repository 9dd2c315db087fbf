// Package addr resolves UDF logical addresses (LongAd/ShortAllocationDescriptor,
// partition-relative) into absolute sector numbers and byte offsets, given a
// decoded partition table and logical block size (ECMA-167 3rd ed. §4/7.1).
package addr

import (
	"fmt"

	"github.com/bgrewell/udf-kit/pkg/udf/descriptor"
	"github.com/bgrewell/udf-kit/pkg/udf/udferr"
)

// PartitionTable maps a PartitionDescriptor's partition_number to that
// descriptor. Lookups index it directly with the partition_reference_number
// a LongAd's LbAddr carries, so a reference number is taken to equal the
// partition number it refers to.
type PartitionTable map[uint16]descriptor.PartitionDescriptor

// LongAdToAbsoluteSector resolves a LongAd to an absolute sector number on
// the volume, using the partition it references and the logical volume's
// block size. Returns udferr.ErrInvalidPartitionNumber if the referenced
// partition is absent from table.
func LongAdToAbsoluteSector(table PartitionTable, logicalBlockSize uint32, long descriptor.LongAd) (uint32, error) {
	pd, ok := table[long.ExtentLocation.PartitionReferenceNum]
	if !ok {
		return 0, fmt.Errorf("resolve long_ad: %w: partition %d", udferr.ErrInvalidPartitionNumber, long.ExtentLocation.PartitionReferenceNum)
	}
	return pd.PartitionStartingLocation + long.ExtentLocation.LogicalBlockNumber*blockRatio(logicalBlockSize), nil
}

// ShortADToByteOffsetInPartition returns the byte offset of the short_ad's
// extent relative to the start of its containing partition.
func ShortADToByteOffsetInPartition(logicalBlockSize uint32, short descriptor.ShortAllocationDescriptor) uint64 {
	return uint64(short.ExtentLocation) * uint64(logicalBlockSize)
}

// AbsoluteByteOffset returns the absolute byte offset of offsetInPartition
// bytes into pd, i.e. pd.PartitionStartingLocation*sectorSize + offsetInPartition.
func AbsoluteByteOffset(pd descriptor.PartitionDescriptor, sectorSize uint32, offsetInPartition uint64) uint64 {
	return uint64(pd.PartitionStartingLocation)*uint64(sectorSize) + offsetInPartition
}

// blockRatio expresses logicalBlockSize in units of the volume's native
// 2048-byte sector, preserving the ratio for media with a different block
// size; for DVD-ROM (2048) this is always 1.
func blockRatio(logicalBlockSize uint32) uint32 {
	if logicalBlockSize < 2048 {
		return 1
	}
	return logicalBlockSize / 2048
}
