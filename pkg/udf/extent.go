package udf

import (
	"fmt"
	"io"

	"github.com/bgrewell/udf-kit/pkg/udf/addr"
	"github.com/bgrewell/udf-kit/pkg/udf/cache"
	"github.com/bgrewell/udf-kit/pkg/udf/descriptor"
	"github.com/bgrewell/udf-kit/pkg/udf/parser"
)

// extentReaderAt presents a file's (possibly non-contiguous, cross-partition)
// short_ad extent list as a single virtual byte stream starting at offset 0,
// the shape filesystem.NewFileSystemEntryDirect expects (§4.7 byte-copy sink).
type extentReaderAt struct {
	sectorCache      *cache.SectorCache
	sectorSize       uint32
	logicalBlockSize uint32
	partitionTable   addr.PartitionTable
	extents          []extentRef
}

type extentRef struct {
	ad                    descriptor.ShortAllocationDescriptor
	partitionReferenceNum uint16
}

func newExtentReaderAt(sectorCache *cache.SectorCache, sectorSize uint32, logicalBlockSize uint32, partitionTable addr.PartitionTable, records []parser.FileEntryRecord) *extentReaderAt {
	var extents []extentRef
	for _, rec := range records {
		for _, ad := range rec.Entry.AllocationDescriptors {
			extents = append(extents, extentRef{ad: ad, partitionReferenceNum: rec.PartitionReferenceNum})
		}
	}
	return &extentReaderAt{
		sectorCache:      sectorCache,
		sectorSize:       sectorSize,
		logicalBlockSize: logicalBlockSize,
		partitionTable:   partitionTable,
		extents:          extents,
	}
}

// ReadAt implements io.ReaderAt over the virtual concatenation of extents,
// honoring each short_ad's extent_type: recorded extents read through the
// sector cache, unrecorded ones (types 1, 2) produce zero-filled bytes
// without I/O (§4.7).
func (e *extentReaderAt) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("extent reader: negative offset %d", off)
	}

	remaining := p
	virtualOffset := off
	total := 0

	for _, ext := range e.extents {
		if len(remaining) == 0 {
			break
		}

		extentLen := int64(ext.ad.ExtentLengthBytes())
		if virtualOffset >= extentLen {
			virtualOffset -= extentLen
			continue
		}

		n := extentLen - virtualOffset
		if n > int64(len(remaining)) {
			n = int64(len(remaining))
		}

		switch ext.ad.ExtentType() {
		case descriptor.ExtentNotRecordedAllocated, descriptor.ExtentNotRecordedNotAllocated:
			for i := int64(0); i < n; i++ {
				remaining[i] = 0
			}
		default:
			// ExtentIsNextExtent entries never reach here: descriptor.DecodeFileEntry
			// already filters them out of AllocationDescriptors.
			pd, ok := e.partitionTable[ext.partitionReferenceNum]
			if !ok {
				return total, fmt.Errorf("extent reader: partition %d not found", ext.partitionReferenceNum)
			}
			byteOffset := addr.ShortADToByteOffsetInPartition(e.logicalBlockSize, ext.ad) + uint64(virtualOffset)
			absOffset := addr.AbsoluteByteOffset(pd, e.sectorSize, byteOffset)
			if err := e.sectorCache.ReadExact(absOffset, remaining[:n]); err != nil {
				return total, fmt.Errorf("extent reader: %w", err)
			}
		}

		remaining = remaining[n:]
		total += int(n)
		virtualOffset = 0
	}

	if len(remaining) > 0 {
		return total, io.EOF
	}
	return total, nil
}
