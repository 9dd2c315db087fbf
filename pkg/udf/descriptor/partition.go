package descriptor

import (
	"encoding/binary"
	"fmt"

	"github.com/bgrewell/udf-kit/pkg/udf/udferr"
)

// PartitionDescriptorSize is the fixed 512-byte size of a PD.
const PartitionDescriptorSize = 512

// PartitionDescriptor maps a partition number onto a starting sector and
// length within the volume (ECMA-167 3/10.5).
type PartitionDescriptor struct {
	Tag                       DescriptorTag
	VolumeDescriptorSeqNumber uint32
	PartitionFlags            uint16
	PartitionNumber           uint16
	PartitionContents         EntityID
	PartitionContentsUse      [128]byte
	AccessType                uint32
	// PartitionStartingLocation is the sector (2048-byte for DVD) where the
	// partition begins; all LbAddr/short_ad extents within it are relative
	// to this sector.
	PartitionStartingLocation uint32
	// PartitionLength is the partition's length in logical blocks.
	PartitionLength           uint32
	ImplementationIdentifier  EntityID
	ImplementationUse         [128]byte
}

func DecodePartitionDescriptor(buf []byte) (PartitionDescriptor, error) {
	if len(buf) < PartitionDescriptorSize {
		return PartitionDescriptor{}, fmt.Errorf("decode partition descriptor: %w", udferr.ErrBufferTooSmall)
	}
	var p PartitionDescriptor
	var rawTag [TagSize]byte
	copy(rawTag[:], buf[0:TagSize])
	if err := p.Tag.Unmarshal(rawTag); err != nil {
		return PartitionDescriptor{}, err
	}
	p.VolumeDescriptorSeqNumber = binary.LittleEndian.Uint32(buf[16:20])
	p.PartitionFlags = binary.LittleEndian.Uint16(buf[20:22])
	p.PartitionNumber = binary.LittleEndian.Uint16(buf[22:24])

	var err error
	if p.PartitionContents, err = DecodeEntityID(buf[24:56]); err != nil {
		return PartitionDescriptor{}, err
	}
	copy(p.PartitionContentsUse[:], buf[56:184])
	p.AccessType = binary.LittleEndian.Uint32(buf[184:188])
	p.PartitionStartingLocation = binary.LittleEndian.Uint32(buf[188:192])
	p.PartitionLength = binary.LittleEndian.Uint32(buf[192:196])
	if p.ImplementationIdentifier, err = DecodeEntityID(buf[196:228]); err != nil {
		return PartitionDescriptor{}, err
	}
	copy(p.ImplementationUse[:], buf[228:356])
	return p, nil
}

func (p PartitionDescriptor) Encode() [PartitionDescriptorSize]byte {
	var buf [PartitionDescriptorSize]byte
	tagBuf, _ := p.Tag.Marshal()
	copy(buf[0:TagSize], tagBuf[:])
	binary.LittleEndian.PutUint32(buf[16:20], p.VolumeDescriptorSeqNumber)
	binary.LittleEndian.PutUint16(buf[20:22], p.PartitionFlags)
	binary.LittleEndian.PutUint16(buf[22:24], p.PartitionNumber)
	pc := p.PartitionContents.Encode()
	copy(buf[24:56], pc[:])
	copy(buf[56:184], p.PartitionContentsUse[:])
	binary.LittleEndian.PutUint32(buf[184:188], p.AccessType)
	binary.LittleEndian.PutUint32(buf[188:192], p.PartitionStartingLocation)
	binary.LittleEndian.PutUint32(buf[192:196], p.PartitionLength)
	ii := p.ImplementationIdentifier.Encode()
	copy(buf[196:228], ii[:])
	copy(buf[228:356], p.ImplementationUse[:])
	return buf
}

// Partition map types and their fixed encoded lengths (ECMA-167 3/10.7.1).
const (
	Type1PartitionMapLength = 6
	Type2PartitionMapLength = 64
)

// PartitionMap is one entry of a Logical Volume Descriptor's partition map
// table. Only Type1 is interpreted; Type2 (and anything else) is preserved
// as raw bytes since this reader only ever targets Type1 DVD-ROM volumes.
type PartitionMap struct {
	Type              uint8
	Length            uint8
	VolumeSeqNumber   uint16 // Type1 only
	PartitionNumber   uint16 // Type1 only
	Raw               []byte // Type2/other, includes the 2-byte header
}

// DecodePartitionMap decodes a single partition map entry starting at buf[0].
// The entry's encoded length is returned in its Length field, so the caller
// can advance to the next entry in the table.
func DecodePartitionMap(buf []byte) (PartitionMap, error) {
	if len(buf) < 2 {
		return PartitionMap{}, fmt.Errorf("decode partition map: %w", udferr.ErrBufferTooSmall)
	}
	mapType := buf[0]
	mapLength := buf[1]
	if len(buf) < int(mapLength) {
		return PartitionMap{}, fmt.Errorf("decode partition map: %w: declared length %d exceeds buffer", udferr.ErrBufferTooSmall, mapLength)
	}

	switch mapType {
	case PartitionMapType1:
		if mapLength != Type1PartitionMapLength {
			return PartitionMap{}, fmt.Errorf("decode type 1 partition map: %w: length %d", udferr.ErrInvalidPartitionMap, mapLength)
		}
		return PartitionMap{
			Type:            mapType,
			Length:          mapLength,
			VolumeSeqNumber: binary.LittleEndian.Uint16(buf[2:4]),
			PartitionNumber: binary.LittleEndian.Uint16(buf[4:6]),
		}, nil
	case PartitionMapType2:
		if mapLength != Type2PartitionMapLength {
			return PartitionMap{}, fmt.Errorf("decode type 2 partition map: %w: length %d", udferr.ErrInvalidPartitionMap, mapLength)
		}
		raw := make([]byte, mapLength)
		copy(raw, buf[:mapLength])
		return PartitionMap{Type: mapType, Length: mapLength, Raw: raw}, nil
	default:
		raw := make([]byte, mapLength)
		copy(raw, buf[:mapLength])
		return PartitionMap{Type: mapType, Length: mapLength, Raw: raw}, nil
	}
}

// DecodePartitionMapTable decodes the sequence of partition maps occupying
// the first tableLength bytes of buf (the LogicalVolumeDescriptor's
// MapTableLength trailer).
func DecodePartitionMapTable(buf []byte, tableLength uint32) ([]PartitionMap, error) {
	if uint32(len(buf)) < tableLength {
		return nil, fmt.Errorf("decode partition map table: %w", udferr.ErrBufferTooSmall)
	}
	var maps []PartitionMap
	offset := uint32(0)
	for offset < tableLength {
		m, err := DecodePartitionMap(buf[offset:tableLength])
		if err != nil {
			return nil, err
		}
		if m.Length == 0 {
			return nil, fmt.Errorf("decode partition map table: %w: zero-length entry", udferr.ErrInvalidPartitionMap)
		}
		maps = append(maps, m)
		offset += uint32(m.Length)
	}
	return maps, nil
}
