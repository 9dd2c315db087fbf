package descriptor

import (
	"encoding/binary"
	"fmt"

	"github.com/bgrewell/udf-kit/pkg/udf/udferr"
)

// LogicalVolumeDescriptorFixedSize is the size of an LVD up to (but
// excluding) its trailing partition map table (ECMA-167 3/10.6).
const LogicalVolumeDescriptorFixedSize = 440

// LogicalVolumeDescriptor names the logical volume and records its block
// size and partition map table. A conforming DVD-ROM has exactly one.
type LogicalVolumeDescriptor struct {
	Tag                       DescriptorTag
	VolumeDescriptorSeqNumber uint32
	DescriptorCharacterSet    CharSpec
	LogicalVolumeIdentifier   string
	LogicalBlockSize          uint32
	DomainIdentifier          EntityID
	LogicalVolumeContentsUse  [16]byte
	MapTableLength            uint32
	NumberOfPartitionMaps     uint32
	ImplementationIdentifier  EntityID
	ImplementationUse         [128]byte
	IntegritySequenceExtent   ExtentAd

	// PartitionMaps is populated by the caller via DecodePartitionMapTable
	// against the MapTableLength bytes following this fixed-size header;
	// it is not itself part of the 440-byte on-disk layout.
	PartitionMaps []PartitionMap
}

func DecodeLogicalVolumeDescriptor(buf []byte) (LogicalVolumeDescriptor, error) {
	if len(buf) < LogicalVolumeDescriptorFixedSize {
		return LogicalVolumeDescriptor{}, fmt.Errorf("decode lvd: %w", udferr.ErrBufferTooSmall)
	}
	var l LogicalVolumeDescriptor
	var rawTag [TagSize]byte
	copy(rawTag[:], buf[0:TagSize])
	if err := l.Tag.Unmarshal(rawTag); err != nil {
		return LogicalVolumeDescriptor{}, err
	}
	l.VolumeDescriptorSeqNumber = binary.LittleEndian.Uint32(buf[16:20])

	var err error
	if l.DescriptorCharacterSet, err = DecodeCharSpec(buf[20:84]); err != nil {
		return LogicalVolumeDescriptor{}, err
	}
	l.LogicalVolumeIdentifier = DecodeDstring(buf[84:212])
	l.LogicalBlockSize = binary.LittleEndian.Uint32(buf[212:216])
	if l.DomainIdentifier, err = DecodeEntityID(buf[216:248]); err != nil {
		return LogicalVolumeDescriptor{}, err
	}
	copy(l.LogicalVolumeContentsUse[:], buf[248:264])
	l.MapTableLength = binary.LittleEndian.Uint32(buf[264:268])
	l.NumberOfPartitionMaps = binary.LittleEndian.Uint32(buf[268:272])
	if l.ImplementationIdentifier, err = DecodeEntityID(buf[272:304]); err != nil {
		return LogicalVolumeDescriptor{}, err
	}
	copy(l.ImplementationUse[:], buf[304:432])
	if l.IntegritySequenceExtent, err = DecodeExtentAd(buf[432:440]); err != nil {
		return LogicalVolumeDescriptor{}, err
	}
	return l, nil
}

func (l LogicalVolumeDescriptor) Encode() [LogicalVolumeDescriptorFixedSize]byte {
	var buf [LogicalVolumeDescriptorFixedSize]byte
	tagBuf, _ := l.Tag.Marshal()
	copy(buf[0:TagSize], tagBuf[:])
	binary.LittleEndian.PutUint32(buf[16:20], l.VolumeDescriptorSeqNumber)
	dcs := l.DescriptorCharacterSet.Encode()
	copy(buf[20:84], dcs[:])
	copy(buf[84:212], EncodeDstring(l.LogicalVolumeIdentifier, 128))
	binary.LittleEndian.PutUint32(buf[212:216], l.LogicalBlockSize)
	di := l.DomainIdentifier.Encode()
	copy(buf[216:248], di[:])
	copy(buf[248:264], l.LogicalVolumeContentsUse[:])
	binary.LittleEndian.PutUint32(buf[264:268], l.MapTableLength)
	binary.LittleEndian.PutUint32(buf[268:272], l.NumberOfPartitionMaps)
	ii := l.ImplementationIdentifier.Encode()
	copy(buf[272:304], ii[:])
	copy(buf[304:432], l.ImplementationUse[:])
	ise := l.IntegritySequenceExtent.Encode()
	copy(buf[432:440], ise[:])
	return buf
}
