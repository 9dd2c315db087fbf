// Package parser orchestrates UDF volume-structure discovery, ICB-chain
// walking, and directory traversal on top of the descriptor codec and
// sector cache.
package parser

import (
	"fmt"

	"github.com/bgrewell/udf-kit/pkg/logging"
	"github.com/bgrewell/udf-kit/pkg/udf/addr"
	"github.com/bgrewell/udf-kit/pkg/udf/cache"
	"github.com/bgrewell/udf-kit/pkg/udf/descriptor"
	"github.com/bgrewell/udf-kit/pkg/udf/udferr"
)

// DefaultMaxIndirectDepth bounds how many IndirectEntry hops the ICB walker
// follows by default (see option.WithMaxIndirectDepth).
const DefaultMaxIndirectDepth = 8

// VolumeStructures is the product of volume-structure discovery (§4.4):
// everything needed to resolve addresses and locate the file set.
type VolumeStructures struct {
	Anchor         descriptor.AnchorVolumeDescriptorPointer
	PrimaryVolume  descriptor.PrimaryVolumeDescriptor
	LogicalVolume  descriptor.LogicalVolumeDescriptor
	PartitionMaps  []descriptor.PartitionMap
	PartitionTable addr.PartitionTable
}

// Parser reads UDF structures through a SectorCache.
type Parser struct {
	cache            *cache.SectorCache
	sectorSize       int
	maxIndirectDepth int
	logger           *logging.Logger
}

// New creates a Parser. maxIndirectDepth <= 0 uses DefaultMaxIndirectDepth.
func New(sectorCache *cache.SectorCache, sectorSize int, maxIndirectDepth int, logger *logging.Logger) *Parser {
	if maxIndirectDepth <= 0 {
		maxIndirectDepth = DefaultMaxIndirectDepth
	}
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &Parser{
		cache:            sectorCache,
		sectorSize:       sectorSize,
		maxIndirectDepth: maxIndirectDepth,
		logger:           logger,
	}
}

// ReadAnchor locates the AnchorVolumeDescriptorPointer, trying sector 256,
// then N-256, then N-1 (N = sourceLenBytes/sectorSize), returning the first
// candidate whose tag validates with tag_identifier 2 (§4.4 step 1).
func (p *Parser) ReadAnchor(sourceLenBytes int64) (descriptor.AnchorVolumeDescriptorPointer, error) {
	n := uint64(sourceLenBytes) / uint64(p.sectorSize)
	candidates := []uint64{256}
	if n > 256 {
		candidates = append(candidates, n-256)
	}
	if n > 0 {
		candidates = append(candidates, n-1)
	}

	var lastErr error
	for _, sector := range candidates {
		buf := make([]byte, descriptor.AnchorVolumeDescriptorSize)
		if err := p.cache.ReadExact(sector*uint64(p.sectorSize), buf); err != nil {
			lastErr = err
			continue
		}
		avdp, err := descriptor.DecodeAnchorVolumeDescriptorPointer(buf)
		if err != nil {
			lastErr = err
			continue
		}
		if err := avdp.Tag.ExpectIdentifier(buf, descriptor.TagIdentifierAnchorVolumeDescriptor); err != nil {
			p.logger.Debug("anchor candidate failed validation", "sector", sector, "error", err)
			lastErr = err
			continue
		}
		p.logger.Debug("anchor found", "sector", sector)
		return avdp, nil
	}
	return descriptor.AnchorVolumeDescriptorPointer{}, fmt.Errorf("read anchor: %w: no valid anchor at sectors 256, N-256, N-1 (%v)", udferr.ErrInvalidDescriptorTag, lastErr)
}

// ReadVolumeStructures scans the main volume descriptor sequence, falling
// back to the reserve sequence if the main scan leaves the primary volume,
// logical volume, or partition table incomplete (§4.4 step 2).
func (p *Parser) ReadVolumeStructures(anchor descriptor.AnchorVolumeDescriptorPointer) (*VolumeStructures, error) {
	vs, err := p.readVolumeDescriptorSequence(anchor.MainVolumeDescriptorSequence)
	if err == nil && vs.complete() {
		vs.Anchor = anchor
		return vs, nil
	}
	p.logger.Debug("main VDS incomplete, falling back to reserve VDS", "error", err)

	vs, err = p.readVolumeDescriptorSequence(anchor.ReserveVolumeDescriptorSequence)
	if err != nil {
		return nil, fmt.Errorf("read volume structures: reserve vds: %w", err)
	}
	if !vs.complete() {
		return nil, fmt.Errorf("read volume structures: %w: reserve vds missing primary/logical volume or partition table", udferr.ErrInvalidDescriptorTag)
	}
	vs.Anchor = anchor
	return vs, nil
}

func (vs *VolumeStructures) complete() bool {
	return vs != nil && vs.PrimaryVolume.Tag.TagIdentifier == descriptor.TagIdentifierPrimaryVolumeDescriptor &&
		vs.LogicalVolume.Tag.TagIdentifier == descriptor.TagIdentifierLogicalVolumeDescriptor &&
		len(vs.PartitionTable) > 0
}

// readVolumeDescriptorSequence scans ext sector by sector, dispatching on
// each descriptor's tag_identifier, until a Terminating Descriptor or the
// extent's sector count is exhausted (§4.4 step 2, §4.4 step 3).
func (p *Parser) readVolumeDescriptorSequence(ext descriptor.ExtentAd) (*VolumeStructures, error) {
	vs := &VolumeStructures{PartitionTable: addr.PartitionTable{}}
	if ext.LengthBytes == 0 {
		return vs, nil
	}

	sectorCount := ext.SectorCount(uint32(p.sectorSize))
	var pvdSeq, lvdSeq int64 = -1, -1

	for i := uint32(0); i < sectorCount; i++ {
		sector := uint64(ext.LocationSector) + uint64(i)
		buf := make([]byte, p.sectorSize)
		if err := p.cache.ReadExact(sector*uint64(p.sectorSize), buf); err != nil {
			return nil, fmt.Errorf("read vds sector %d: %w", sector, err)
		}

		tag, err := descriptor.DecodeTag(buf)
		if err != nil {
			return nil, err
		}

		switch tag.TagIdentifier {
		case descriptor.TagIdentifierPrimaryVolumeDescriptor:
			pvd, err := descriptor.DecodePrimaryVolumeDescriptor(buf)
			if err != nil {
				return nil, err
			}
			if err := pvd.Tag.Validate(buf); err != nil {
				return nil, err
			}
			if int64(pvd.VolumeDescriptorSeqNumber) > pvdSeq {
				vs.PrimaryVolume = pvd
				pvdSeq = int64(pvd.VolumeDescriptorSeqNumber)
			}
		case descriptor.TagIdentifierPartitionDescriptor:
			pd, err := descriptor.DecodePartitionDescriptor(buf)
			if err != nil {
				return nil, err
			}
			if err := pd.Tag.Validate(buf); err != nil {
				return nil, err
			}
			vs.PartitionTable[pd.PartitionNumber] = pd
		case descriptor.TagIdentifierLogicalVolumeDescriptor:
			lvd, err := descriptor.DecodeLogicalVolumeDescriptor(buf)
			if err != nil {
				return nil, err
			}
			if err := lvd.Tag.Validate(buf); err != nil {
				return nil, err
			}
			if int64(lvd.VolumeDescriptorSeqNumber) > lvdSeq {
				maps, err := p.readPartitionMapTable(lvd)
				if err != nil {
					return nil, err
				}
				lvd.PartitionMaps = maps
				vs.LogicalVolume = lvd
				vs.PartitionMaps = maps
				lvdSeq = int64(lvd.VolumeDescriptorSeqNumber)
			}
		case descriptor.TagIdentifierTerminatingDescriptor:
			return vs, nil
		default:
			// Unknown/unused descriptor in this slot (e.g. implementation-use,
			// unallocated space); skip per §4.4 step 2.
		}
	}

	return vs, nil
}

// readPartitionMapTable reads the MapTableLength bytes immediately following
// an LVD's fixed 440-byte header, starting in the LVD's own sector (at its
// TagLocation) and running on into the next sector only if the table is longer.
func (p *Parser) readPartitionMapTable(lvd descriptor.LogicalVolumeDescriptor) ([]descriptor.PartitionMap, error) {
	if lvd.MapTableLength == 0 {
		return nil, nil
	}
	// The map table starts immediately after the fixed 440-byte LVD body,
	// within the same sector if it fits (it always does for Type1 maps on a
	// conforming DVD-ROM volume, since LVD + a handful of 6-byte entries is
	// well under one 2048-byte sector).
	buf := make([]byte, descriptor.LogicalVolumeDescriptorFixedSize+int(lvd.MapTableLength))
	sector := uint64(lvd.Tag.TagLocation)
	if err := p.cache.ReadExact(sector*uint64(p.sectorSize), buf); err != nil {
		return nil, fmt.Errorf("read partition map table: %w", err)
	}
	maps, err := descriptor.DecodePartitionMapTable(buf[descriptor.LogicalVolumeDescriptorFixedSize:], lvd.MapTableLength)
	if err != nil {
		return nil, err
	}
	if uint32(len(maps)) != lvd.NumberOfPartitionMaps {
		return nil, fmt.Errorf("read partition map table: %w: decoded %d entries, want %d", udferr.ErrInvalidPartitionMap, len(maps), lvd.NumberOfPartitionMaps)
	}
	return maps, nil
}

// ReadFileSetDescriptors locates the file set descriptor sequence for each
// Type-1 partition map in vs, reading sectors from that partition's start
// until a Terminating Descriptor or the partition's length is exhausted
// (§4.4 "File Set Descriptor location").
func (p *Parser) ReadFileSetDescriptors(vs *VolumeStructures) ([]descriptor.FileSetDescriptor, error) {
	var fsds []descriptor.FileSetDescriptor

	for _, pm := range vs.PartitionMaps {
		if pm.Type != descriptor.PartitionMapType1 {
			p.logger.Info("skipping unrecognized partition map type", "type", pm.Type)
			continue
		}
		pd, ok := vs.PartitionTable[pm.PartitionNumber]
		if !ok {
			return nil, fmt.Errorf("read file set descriptors: %w: partition %d", udferr.ErrInvalidPartitionNumber, pm.PartitionNumber)
		}

	scanPartition:
		for i := uint32(0); i < pd.PartitionLength; i++ {
			sector := uint64(pd.PartitionStartingLocation) + uint64(i)
			buf := make([]byte, p.sectorSize)
			if err := p.cache.ReadExact(sector*uint64(p.sectorSize), buf); err != nil {
				return nil, fmt.Errorf("read fsd sector %d: %w", sector, err)
			}
			tag, err := descriptor.DecodeTag(buf)
			if err != nil {
				return nil, err
			}
			switch tag.TagIdentifier {
			case descriptor.TagIdentifierFileSetDescriptor:
				fsd, err := descriptor.DecodeFileSetDescriptor(buf)
				if err != nil {
					return nil, err
				}
				if err := fsd.Tag.Validate(buf); err != nil {
					return nil, err
				}
				fsds = append(fsds, fsd)
			case descriptor.TagIdentifierTerminatingDescriptor:
				break scanPartition
			case 0:
				// unrecorded
			default:
				// ignore other descriptor kinds interleaved in the partition
			}
		}
	}

	if len(fsds) == 0 {
		return nil, fmt.Errorf("read file set descriptors: %w: no file set descriptor found", udferr.ErrInvalidDescriptorTag)
	}
	return fsds, nil
}

// FileEntryRecord pairs a decoded FileEntry with the partition it was read
// from, since a short_ad's extent location is relative to that partition and
// carries no partition number of its own.
type FileEntryRecord struct {
	Entry                 descriptor.FileEntry
	PartitionReferenceNum uint16
}

// ReadFileEntries walks the ICB chain starting at icb (§4.5), returning the
// FileEntry records in disk order. IndirectEntry hops are followed up to
// maxIndirectDepth.
func (p *Parser) ReadFileEntries(vs *VolumeStructures, icb descriptor.LongAd) ([]FileEntryRecord, error) {
	return p.readFileEntries(vs, icb, 0)
}

func (p *Parser) readFileEntries(vs *VolumeStructures, icb descriptor.LongAd, depth int) ([]FileEntryRecord, error) {
	if depth > p.maxIndirectDepth {
		return nil, fmt.Errorf("read file entries: %w: depth %d", udferr.ErrIndirectChainTooDeep, depth)
	}

	pd, ok := vs.PartitionTable[icb.ExtentLocation.PartitionReferenceNum]
	if !ok {
		return nil, fmt.Errorf("read file entries: %w: partition %d", udferr.ErrInvalidPartitionNumber, icb.ExtentLocation.PartitionReferenceNum)
	}

	byteOffset := uint64(icb.ExtentLocation.LogicalBlockNumber) * uint64(vs.LogicalVolume.LogicalBlockSize)
	length := icb.ExtentLengthBytes()
	buf := make([]byte, length)
	absOffset := addr.AbsoluteByteOffset(pd, uint32(p.sectorSize), byteOffset)
	if err := p.cache.ReadExact(absOffset, buf); err != nil {
		return nil, fmt.Errorf("read icb at partition %d block %d: %w", icb.ExtentLocation.PartitionReferenceNum, icb.ExtentLocation.LogicalBlockNumber, err)
	}

	var entries []FileEntryRecord
	offset := 0
	for offset < len(buf) {
		tag, err := descriptor.DecodeTag(buf[offset:])
		if err != nil {
			return nil, err
		}
		if tag.TagIdentifier == 0 {
			break
		}

		switch tag.TagIdentifier {
		case descriptor.TagIdentifierFileEntry:
			fe, err := descriptor.DecodeFileEntry(buf[offset:])
			if err != nil {
				return nil, err
			}
			if err := fe.Tag.Validate(buf[offset:]); err != nil {
				return nil, err
			}
			if form := fe.ICBTag.AllocationDescriptorForm(); form != descriptor.AllocationDescriptorShort {
				return nil, fmt.Errorf("read file entries: %w: form %d at icb offset %d", udferr.ErrUnsupportedAllocationForm, form, offset)
			}
			entries = append(entries, FileEntryRecord{Entry: fe, PartitionReferenceNum: icb.ExtentLocation.PartitionReferenceNum})
			offset += descriptor.FileEntryFixedSize + int(fe.LengthOfExtendedAttributes) + int(fe.LengthOfAllocationDescriptors)
		case descriptor.TagIdentifierTerminalEntry:
			return entries, nil
		case descriptor.TagIdentifierIndirectEntry:
			ie, err := descriptor.DecodeIndirectEntry(buf[offset:])
			if err != nil {
				return nil, err
			}
			if err := ie.Tag.Validate(buf[offset:]); err != nil {
				return nil, err
			}
			next, err := p.readFileEntries(vs, ie.IndirectICB, depth+1)
			if err != nil {
				return nil, err
			}
			return append(entries, next...), nil
		default:
			return nil, fmt.Errorf("read file entries: %w: unexpected tag_identifier %d at icb offset %d", udferr.ErrInvalidDescriptorTag, tag.TagIdentifier, offset)
		}
	}

	return entries, nil
}

// ReadDirectoryContents reads and concatenates the data extents referenced
// by entries' allocation descriptors, then parses the result as a sequence
// of FileIdentifierDescriptors (§4.6).
func (p *Parser) ReadDirectoryContents(vs *VolumeStructures, entries []FileEntryRecord) ([]descriptor.FileIdentifierDescriptor, error) {
	var data []byte
	for _, rec := range entries {
		for _, ad := range rec.Entry.AllocationDescriptors {
			switch ad.ExtentType() {
			case descriptor.ExtentNotRecordedAllocated, descriptor.ExtentNotRecordedNotAllocated:
				data = append(data, make([]byte, ad.ExtentLengthBytes())...)
				continue
			case descriptor.ExtentIsNextExtent:
				continue
			}

			pd, ok := vs.PartitionTable[rec.PartitionReferenceNum]
			if !ok {
				pd, ok = vs.soleType1Partition()
			}
			if !ok {
				return nil, fmt.Errorf("read directory contents: %w", udferr.ErrInvalidPartitionNumber)
			}

			extentBuf := make([]byte, ad.ExtentLengthBytes())
			byteOffset := addr.ShortADToByteOffsetInPartition(vs.LogicalVolume.LogicalBlockSize, ad)
			absOffset := addr.AbsoluteByteOffset(pd, uint32(p.sectorSize), byteOffset)
			if err := p.cache.ReadExact(absOffset, extentBuf); err != nil {
				return nil, fmt.Errorf("read directory extent: %w", err)
			}
			data = append(data, extentBuf...)
		}
	}

	var fids []descriptor.FileIdentifierDescriptor
	offset := 0
	for offset < len(data) {
		tag, err := descriptor.DecodeTag(data[offset:])
		if err != nil {
			return nil, err
		}
		if tag.TagIdentifier == 0 {
			break
		}
		if tag.TagIdentifier == descriptor.TagIdentifierTerminalEntry {
			break
		}
		if tag.TagIdentifier != descriptor.TagIdentifierFileIdentifierDescriptor {
			return nil, fmt.Errorf("read directory contents: %w: unexpected tag_identifier %d at offset %d", udferr.ErrInvalidDescriptorTag, tag.TagIdentifier, offset)
		}

		fid, consumed, err := descriptor.DecodeFileIdentifierDescriptor(data[offset:])
		if err != nil {
			return nil, err
		}
		if err := fid.Tag.Validate(data[offset:]); err != nil {
			return nil, err
		}
		fids = append(fids, fid)
		offset += descriptor.Align4(consumed)
	}

	return fids, nil
}

// soleType1Partition is a defensive fallback for a FileEntryRecord whose
// recorded PartitionReferenceNum is absent from the table; returns the lone
// partition when the volume has exactly one, the common DVD-ROM case.
func (vs *VolumeStructures) soleType1Partition() (descriptor.PartitionDescriptor, bool) {
	if len(vs.PartitionTable) != 1 {
		return descriptor.PartitionDescriptor{}, false
	}
	for _, pd := range vs.PartitionTable {
		return pd, true
	}
	return descriptor.PartitionDescriptor{}, false
}
