package descriptor

import (
	"encoding/binary"
	"fmt"

	"github.com/bgrewell/udf-kit/pkg/udf/udferr"
)

// AnchorVolumeDescriptorSize is the fixed 512-byte size of an AVDP.
const AnchorVolumeDescriptorSize = 512

// AnchorVolumeDescriptorPointer locates the main and reserve volume descriptor
// sequences (ECMA-167 3/10.2). A conforming volume records it at logical
// sector 256 and, redundantly, at N-256 and/or N.
type AnchorVolumeDescriptorPointer struct {
	Tag                               DescriptorTag
	MainVolumeDescriptorSequence      ExtentAd
	ReserveVolumeDescriptorSequence   ExtentAd
}

func DecodeAnchorVolumeDescriptorPointer(buf []byte) (AnchorVolumeDescriptorPointer, error) {
	if len(buf) < AnchorVolumeDescriptorSize {
		return AnchorVolumeDescriptorPointer{}, fmt.Errorf("decode avdp: %w", udferr.ErrBufferTooSmall)
	}
	var a AnchorVolumeDescriptorPointer
	var rawTag [TagSize]byte
	copy(rawTag[:], buf[0:TagSize])
	if err := a.Tag.Unmarshal(rawTag); err != nil {
		return AnchorVolumeDescriptorPointer{}, err
	}
	main, err := DecodeExtentAd(buf[16:24])
	if err != nil {
		return AnchorVolumeDescriptorPointer{}, err
	}
	reserve, err := DecodeExtentAd(buf[24:32])
	if err != nil {
		return AnchorVolumeDescriptorPointer{}, err
	}
	a.MainVolumeDescriptorSequence = main
	a.ReserveVolumeDescriptorSequence = reserve
	return a, nil
}

func (a AnchorVolumeDescriptorPointer) Encode() [AnchorVolumeDescriptorSize]byte {
	var buf [AnchorVolumeDescriptorSize]byte
	tagBuf, _ := a.Tag.Marshal()
	copy(buf[0:TagSize], tagBuf[:])
	main := a.MainVolumeDescriptorSequence.Encode()
	copy(buf[16:24], main[:])
	reserve := a.ReserveVolumeDescriptorSequence.Encode()
	copy(buf[24:32], reserve[:])
	return buf
}

// PrimaryVolumeDescriptorSize is the fixed 512-byte size of a PVD.
const PrimaryVolumeDescriptorSize = 512

// PrimaryVolumeDescriptor carries the volume's identifying strings and the
// recording timestamp (ECMA-167 3/10.1).
type PrimaryVolumeDescriptor struct {
	Tag                          DescriptorTag
	VolumeDescriptorSeqNumber    uint32
	PrimaryVolumeDescriptorNum   uint32
	VolumeIdentifier             string
	VolumeSequenceNumber         uint16
	MaximumVolumeSequenceNumber  uint16
	InterchangeLevel             uint16
	MaximumInterchangeLevel      uint16
	CharacterSetList             uint32
	MaximumCharacterSetList      uint32
	VolumeSetIdentifier          string
	DescriptorCharacterSet       CharSpec
	ExplanatoryCharacterSet      CharSpec
	VolumeAbstract               ExtentAd
	VolumeCopyrightNotice        ExtentAd
	ApplicationIdentifier        EntityID
	RecordingDateAndTime         Timestamp
	ImplementationIdentifier     EntityID
	ImplementationUse            [64]byte
	PredecessorVDSLocation       uint32
	Flags                        uint16
}

func DecodePrimaryVolumeDescriptor(buf []byte) (PrimaryVolumeDescriptor, error) {
	if len(buf) < PrimaryVolumeDescriptorSize {
		return PrimaryVolumeDescriptor{}, fmt.Errorf("decode pvd: %w", udferr.ErrBufferTooSmall)
	}
	var p PrimaryVolumeDescriptor
	var rawTag [TagSize]byte
	copy(rawTag[:], buf[0:TagSize])
	if err := p.Tag.Unmarshal(rawTag); err != nil {
		return PrimaryVolumeDescriptor{}, err
	}
	p.VolumeDescriptorSeqNumber = binary.LittleEndian.Uint32(buf[16:20])
	p.PrimaryVolumeDescriptorNum = binary.LittleEndian.Uint32(buf[20:24])
	p.VolumeIdentifier = DecodeDstring(buf[24:56])
	p.VolumeSequenceNumber = binary.LittleEndian.Uint16(buf[56:58])
	p.MaximumVolumeSequenceNumber = binary.LittleEndian.Uint16(buf[58:60])
	p.InterchangeLevel = binary.LittleEndian.Uint16(buf[60:62])
	p.MaximumInterchangeLevel = binary.LittleEndian.Uint16(buf[62:64])
	p.CharacterSetList = binary.LittleEndian.Uint32(buf[64:68])
	p.MaximumCharacterSetList = binary.LittleEndian.Uint32(buf[68:72])
	p.VolumeSetIdentifier = DecodeDstring(buf[72:200])

	var err error
	if p.DescriptorCharacterSet, err = DecodeCharSpec(buf[200:264]); err != nil {
		return PrimaryVolumeDescriptor{}, err
	}
	if p.ExplanatoryCharacterSet, err = DecodeCharSpec(buf[264:328]); err != nil {
		return PrimaryVolumeDescriptor{}, err
	}
	if p.VolumeAbstract, err = DecodeExtentAd(buf[328:336]); err != nil {
		return PrimaryVolumeDescriptor{}, err
	}
	if p.VolumeCopyrightNotice, err = DecodeExtentAd(buf[336:344]); err != nil {
		return PrimaryVolumeDescriptor{}, err
	}
	if p.ApplicationIdentifier, err = DecodeEntityID(buf[344:376]); err != nil {
		return PrimaryVolumeDescriptor{}, err
	}
	if p.RecordingDateAndTime, err = DecodeTimestamp(buf[376:388]); err != nil {
		return PrimaryVolumeDescriptor{}, err
	}
	if p.ImplementationIdentifier, err = DecodeEntityID(buf[388:420]); err != nil {
		return PrimaryVolumeDescriptor{}, err
	}
	copy(p.ImplementationUse[:], buf[420:484])
	p.PredecessorVDSLocation = binary.LittleEndian.Uint32(buf[484:488])
	p.Flags = binary.LittleEndian.Uint16(buf[488:490])
	return p, nil
}

func (p PrimaryVolumeDescriptor) Encode() [PrimaryVolumeDescriptorSize]byte {
	var buf [PrimaryVolumeDescriptorSize]byte
	tagBuf, _ := p.Tag.Marshal()
	copy(buf[0:TagSize], tagBuf[:])
	binary.LittleEndian.PutUint32(buf[16:20], p.VolumeDescriptorSeqNumber)
	binary.LittleEndian.PutUint32(buf[20:24], p.PrimaryVolumeDescriptorNum)
	copy(buf[24:56], EncodeDstring(p.VolumeIdentifier, 32))
	binary.LittleEndian.PutUint16(buf[56:58], p.VolumeSequenceNumber)
	binary.LittleEndian.PutUint16(buf[58:60], p.MaximumVolumeSequenceNumber)
	binary.LittleEndian.PutUint16(buf[60:62], p.InterchangeLevel)
	binary.LittleEndian.PutUint16(buf[62:64], p.MaximumInterchangeLevel)
	binary.LittleEndian.PutUint32(buf[64:68], p.CharacterSetList)
	binary.LittleEndian.PutUint32(buf[68:72], p.MaximumCharacterSetList)
	copy(buf[72:200], EncodeDstring(p.VolumeSetIdentifier, 128))
	dcs := p.DescriptorCharacterSet.Encode()
	copy(buf[200:264], dcs[:])
	ecs := p.ExplanatoryCharacterSet.Encode()
	copy(buf[264:328], ecs[:])
	va := p.VolumeAbstract.Encode()
	copy(buf[328:336], va[:])
	vc := p.VolumeCopyrightNotice.Encode()
	copy(buf[336:344], vc[:])
	ai := p.ApplicationIdentifier.Encode()
	copy(buf[344:376], ai[:])
	rt := p.RecordingDateAndTime.Encode()
	copy(buf[376:388], rt[:])
	ii := p.ImplementationIdentifier.Encode()
	copy(buf[388:420], ii[:])
	copy(buf[420:484], p.ImplementationUse[:])
	binary.LittleEndian.PutUint32(buf[484:488], p.PredecessorVDSLocation)
	binary.LittleEndian.PutUint16(buf[488:490], p.Flags)
	return buf
}
