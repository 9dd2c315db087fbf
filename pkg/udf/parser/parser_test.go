package parser

import (
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgrewell/udf-kit/pkg/udf/cache"
	"github.com/bgrewell/udf-kit/pkg/udf/descriptor"
)

const testSectorSize = 2048

// memSource is an in-memory io.ReaderAt the size of sectorCount whole
// sectors, used to assemble synthetic volumes byte-exactly via Encode().
type memSource struct {
	data []byte
}

func newMemSource(sectorCount int) *memSource {
	return &memSource{data: make([]byte, sectorCount*testSectorSize)}
}

func (m *memSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	return n, nil
}

func (m *memSource) putSector(sector uint32, body []byte) {
	copy(m.data[int(sector)*testSectorSize:], body)
}

// buildVolume writes one minimal, valid volume descriptor sequence (PVD,
// LVD with a single Type1 partition map, PD, Terminating Descriptor) starting
// at seqSector. It writes no anchor; putAnchor does that.
func buildVolume(t *testing.T, source *memSource, seqSector uint32, volumeIdentifier string) {
	t.Helper()

	pvd := descriptor.PrimaryVolumeDescriptor{
		Tag:                 descriptor.DescriptorTag{TagIdentifier: descriptor.TagIdentifierPrimaryVolumeDescriptor, TagLocation: seqSector},
		VolumeIdentifier:    volumeIdentifier,
		VolumeSetIdentifier: "TEST_VOLSET",
	}
	pvdBuf := pvd.Encode()
	source.putSector(seqSector, pvdBuf[:])

	lvdSector := seqSector + 1
	lvd := descriptor.LogicalVolumeDescriptor{
		Tag:                     descriptor.DescriptorTag{TagIdentifier: descriptor.TagIdentifierLogicalVolumeDescriptor, TagLocation: lvdSector},
		LogicalVolumeIdentifier: volumeIdentifier,
		LogicalBlockSize:        testSectorSize,
		MapTableLength:          6,
		NumberOfPartitionMaps:   1,
	}
	lvdBuf := lvd.Encode()
	sectorBuf := make([]byte, testSectorSize)
	copy(sectorBuf, lvdBuf[:])
	// Type 1 partition map: type=1, length=6, volume_seq=0, partition_number=0
	sectorBuf[descriptor.LogicalVolumeDescriptorFixedSize+0] = 1
	sectorBuf[descriptor.LogicalVolumeDescriptorFixedSize+1] = 6
	binary.LittleEndian.PutUint16(sectorBuf[descriptor.LogicalVolumeDescriptorFixedSize+2:], 0)
	binary.LittleEndian.PutUint16(sectorBuf[descriptor.LogicalVolumeDescriptorFixedSize+4:], 0)
	source.putSector(lvdSector, sectorBuf)

	pdSector := seqSector + 2
	pd := descriptor.PartitionDescriptor{
		Tag:                       descriptor.DescriptorTag{TagIdentifier: descriptor.TagIdentifierPartitionDescriptor, TagLocation: pdSector},
		PartitionNumber:           0,
		PartitionStartingLocation: 1000,
		PartitionLength:           500,
	}
	pdBuf := pd.Encode()
	source.putSector(pdSector, pdBuf[:])

	termSector := seqSector + 3
	term := descriptor.DescriptorTag{TagIdentifier: descriptor.TagIdentifierTerminatingDescriptor, TagLocation: termSector}
	termRaw, err := term.Marshal()
	require.NoError(t, err)
	source.putSector(termSector, termRaw[:])
}

func putAnchor(source *memSource, sector uint32, mainSector, reserveSector uint32) {
	avdp := descriptor.AnchorVolumeDescriptorPointer{
		Tag:                             descriptor.DescriptorTag{TagIdentifier: descriptor.TagIdentifierAnchorVolumeDescriptor, TagLocation: sector},
		MainVolumeDescriptorSequence:    descriptor.ExtentAd{LocationSector: mainSector, LengthBytes: 4 * testSectorSize},
		ReserveVolumeDescriptorSequence: descriptor.ExtentAd{LocationSector: reserveSector, LengthBytes: 4 * testSectorSize},
	}
	buf := avdp.Encode()
	source.putSector(sector, buf[:])
}

// Anchor discovery finds the AVDP at sector 256.
func TestParser_ReadAnchor_FindsSector256(t *testing.T) {
	source := newMemSource(300)
	putAnchor(source, 256, 32, 64)
	buildVolume(t, source, 32, "TEST_VOLUME")

	c, err := cache.New(source, testSectorSize, 16*testSectorSize)
	require.NoError(t, err)
	p := New(c, testSectorSize, 0, nil)

	anchor, err := p.ReadAnchor(int64(len(source.data)))
	require.NoError(t, err)
	assert.Equal(t, uint32(32), anchor.MainVolumeDescriptorSequence.LocationSector)
}

// S5 — when the main VDS is corrupt, discovery falls back to the reserve
// sequence and still resolves the logical volume and partition table.
func TestParser_ReadVolumeStructures_FallsBackToReserveVDS(t *testing.T) {
	source := newMemSource(300)
	putAnchor(source, 256, 32, 64)
	// Main sequence left as zero bytes: decodes to tag_identifier 0, never
	// satisfying vs.complete().
	buildVolume(t, source, 64, "TEST_VOLUME")

	c, err := cache.New(source, testSectorSize, 16*testSectorSize)
	require.NoError(t, err)
	p := New(c, testSectorSize, 0, nil)

	anchor, err := p.ReadAnchor(int64(len(source.data)))
	require.NoError(t, err)

	vs, err := p.ReadVolumeStructures(anchor)
	require.NoError(t, err)
	assert.Equal(t, "TEST_VOLUME", vs.PrimaryVolume.VolumeIdentifier)
	assert.Equal(t, uint32(testSectorSize), vs.LogicalVolume.LogicalBlockSize)
	require.Len(t, vs.PartitionTable, 1)
	assert.Equal(t, uint32(1000), vs.PartitionTable[0].PartitionStartingLocation)
}

func TestParser_ReadFileSetDescriptors_NoFileSetDescriptor(t *testing.T) {
	source := newMemSource(300)
	putAnchor(source, 256, 32, 32)
	buildVolume(t, source, 32, "TEST_VOLUME")

	c, err := cache.New(source, testSectorSize, 16*testSectorSize)
	require.NoError(t, err)
	p := New(c, testSectorSize, 0, nil)

	anchor, err := p.ReadAnchor(int64(len(source.data)))
	require.NoError(t, err)
	vs, err := p.ReadVolumeStructures(anchor)
	require.NoError(t, err)

	// The synthetic partition (starting at sector 1000) has no File Set
	// Descriptor written into it, so discovery must fail cleanly rather
	// than hang or panic.
	_, err = p.ReadFileSetDescriptors(vs)
	assert.Error(t, err)
}
