package descriptor

import (
	"encoding/binary"
	"fmt"

	"github.com/bgrewell/udf-kit/pkg/udf/udferr"
)

// FileSetDescriptorSize is the fixed 512-byte size of an FSD (ECMA-167 4/14.1).
const FileSetDescriptorSize = 512

// FileSetDescriptor is the entry point into a volume's file structure: its
// RootDirectoryICB locates the root directory's FileEntry.
type FileSetDescriptor struct {
	Tag                                 DescriptorTag
	RecordingDateAndTime                Timestamp
	InterchangeLevel                    uint16
	MaximumInterchangeLevel             uint16
	CharacterSetList                    uint32
	MaximumCharacterSetList             uint32
	FileSetNumber                       uint32
	FileSetDescriptorNumber             uint32
	LogicalVolumeIdentifierCharacterSet CharSpec
	LogicalVolumeIdentifier             string
	FileSetCharacterSet                 CharSpec
	FileSetIdentifier                   string
	CopyrightFileIdentifier             string
	AbstractFileIdentifier              string
	RootDirectoryICB                    LongAd
	DomainIdentifier                    EntityID
	NextExtent                          LongAd
	SystemStreamDirectoryICB            LongAd
}

func DecodeFileSetDescriptor(buf []byte) (FileSetDescriptor, error) {
	if len(buf) < FileSetDescriptorSize {
		return FileSetDescriptor{}, fmt.Errorf("decode fsd: %w", udferr.ErrBufferTooSmall)
	}
	var f FileSetDescriptor
	var rawTag [TagSize]byte
	copy(rawTag[:], buf[0:TagSize])
	if err := f.Tag.Unmarshal(rawTag); err != nil {
		return FileSetDescriptor{}, err
	}

	var err error
	if f.RecordingDateAndTime, err = DecodeTimestamp(buf[16:28]); err != nil {
		return FileSetDescriptor{}, err
	}
	f.InterchangeLevel = binary.LittleEndian.Uint16(buf[28:30])
	f.MaximumInterchangeLevel = binary.LittleEndian.Uint16(buf[30:32])
	f.CharacterSetList = binary.LittleEndian.Uint32(buf[32:36])
	f.MaximumCharacterSetList = binary.LittleEndian.Uint32(buf[36:40])
	f.FileSetNumber = binary.LittleEndian.Uint32(buf[40:44])
	f.FileSetDescriptorNumber = binary.LittleEndian.Uint32(buf[44:48])
	if f.LogicalVolumeIdentifierCharacterSet, err = DecodeCharSpec(buf[48:112]); err != nil {
		return FileSetDescriptor{}, err
	}
	f.LogicalVolumeIdentifier = DecodeDstring(buf[112:240])
	if f.FileSetCharacterSet, err = DecodeCharSpec(buf[240:304]); err != nil {
		return FileSetDescriptor{}, err
	}
	f.FileSetIdentifier = DecodeDstring(buf[304:336])
	f.CopyrightFileIdentifier = DecodeDstring(buf[336:368])
	f.AbstractFileIdentifier = DecodeDstring(buf[368:400])
	if f.RootDirectoryICB, err = DecodeLongAd(buf[400:416]); err != nil {
		return FileSetDescriptor{}, err
	}
	if f.DomainIdentifier, err = DecodeEntityID(buf[416:448]); err != nil {
		return FileSetDescriptor{}, err
	}
	if f.NextExtent, err = DecodeLongAd(buf[448:464]); err != nil {
		return FileSetDescriptor{}, err
	}
	if f.SystemStreamDirectoryICB, err = DecodeLongAd(buf[464:480]); err != nil {
		return FileSetDescriptor{}, err
	}
	return f, nil
}

func (f FileSetDescriptor) Encode() [FileSetDescriptorSize]byte {
	var buf [FileSetDescriptorSize]byte
	tagBuf, _ := f.Tag.Marshal()
	copy(buf[0:TagSize], tagBuf[:])
	rt := f.RecordingDateAndTime.Encode()
	copy(buf[16:28], rt[:])
	binary.LittleEndian.PutUint16(buf[28:30], f.InterchangeLevel)
	binary.LittleEndian.PutUint16(buf[30:32], f.MaximumInterchangeLevel)
	binary.LittleEndian.PutUint32(buf[32:36], f.CharacterSetList)
	binary.LittleEndian.PutUint32(buf[36:40], f.MaximumCharacterSetList)
	binary.LittleEndian.PutUint32(buf[40:44], f.FileSetNumber)
	binary.LittleEndian.PutUint32(buf[44:48], f.FileSetDescriptorNumber)
	lvcs := f.LogicalVolumeIdentifierCharacterSet.Encode()
	copy(buf[48:112], lvcs[:])
	copy(buf[112:240], EncodeDstring(f.LogicalVolumeIdentifier, 128))
	fcs := f.FileSetCharacterSet.Encode()
	copy(buf[240:304], fcs[:])
	copy(buf[304:336], EncodeDstring(f.FileSetIdentifier, 32))
	copy(buf[336:368], EncodeDstring(f.CopyrightFileIdentifier, 32))
	copy(buf[368:400], EncodeDstring(f.AbstractFileIdentifier, 32))
	rd := f.RootDirectoryICB.Encode()
	copy(buf[400:416], rd[:])
	di := f.DomainIdentifier.Encode()
	copy(buf[416:448], di[:])
	ne := f.NextExtent.Encode()
	copy(buf[448:464], ne[:])
	ssd := f.SystemStreamDirectoryICB.Encode()
	copy(buf[464:480], ssd[:])
	return buf
}

// TerminatingDescriptorSize is the fixed 512-byte size of a terminator.
const TerminatingDescriptorSize = 512

// TerminatingDescriptor (tag_identifier 8) ends a volume or file set
// descriptor sequence (ECMA-167 3/10.9, 4/14.2).
type TerminatingDescriptor struct {
	Tag DescriptorTag
}

func DecodeTerminatingDescriptor(buf []byte) (TerminatingDescriptor, error) {
	if len(buf) < TerminatingDescriptorSize {
		return TerminatingDescriptor{}, fmt.Errorf("decode terminating descriptor: %w", udferr.ErrBufferTooSmall)
	}
	var t TerminatingDescriptor
	var rawTag [TagSize]byte
	copy(rawTag[:], buf[0:TagSize])
	if err := t.Tag.Unmarshal(rawTag); err != nil {
		return TerminatingDescriptor{}, err
	}
	return t, nil
}
