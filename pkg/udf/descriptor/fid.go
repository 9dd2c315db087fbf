package descriptor

import (
	"encoding/binary"
	"fmt"

	"github.com/bgrewell/udf-kit/pkg/udf/encoding"
	"github.com/bgrewell/udf-kit/pkg/udf/udferr"
)

// FileIdentifierDescriptor is one entry of a directory's contents, naming a
// child and pointing at its ICB (ECMA-167 4/14.4). It is variable-length and
// 4-byte aligned to the next FID within the directory's data (Align4).
type FileIdentifierDescriptor struct {
	Tag                      DescriptorTag
	FileVersionNumber        uint16
	FileCharacteristics      uint8
	LengthOfFileIdentifier   uint8
	ICB                      LongAd
	LengthOfImplementationUse uint16
	ImplementationUse        []byte
	// FileIdentifier is empty for the "parent directory" entry
	// (FileCharacteristics&FileCharacteristicParent != 0).
	FileIdentifier string
}

// DecodeFileIdentifierDescriptor decodes one FID starting at buf[0] and
// returns it along with its unaligned encoded length (FileIdentifierFixedSize
// + LengthOfImplementationUse + LengthOfFileIdentifier); callers advance to
// the next FID at Align4(that length).
func DecodeFileIdentifierDescriptor(buf []byte) (FileIdentifierDescriptor, int, error) {
	if len(buf) < FileIdentifierFixedSize {
		return FileIdentifierDescriptor{}, 0, fmt.Errorf("decode fid: %w", udferr.ErrBufferTooSmall)
	}
	var f FileIdentifierDescriptor
	var rawTag [TagSize]byte
	copy(rawTag[:], buf[0:TagSize])
	if err := f.Tag.Unmarshal(rawTag); err != nil {
		return FileIdentifierDescriptor{}, 0, err
	}
	f.FileVersionNumber = binary.LittleEndian.Uint16(buf[16:18])
	f.FileCharacteristics = buf[18]
	f.LengthOfFileIdentifier = buf[19]

	icb, err := DecodeLongAd(buf[20:36])
	if err != nil {
		return FileIdentifierDescriptor{}, 0, err
	}
	f.ICB = icb
	f.LengthOfImplementationUse = binary.LittleEndian.Uint16(buf[36:38])

	implEnd := FileIdentifierFixedSize + int(f.LengthOfImplementationUse)
	idEnd := implEnd + int(f.LengthOfFileIdentifier)
	if len(buf) < idEnd {
		return FileIdentifierDescriptor{}, 0, fmt.Errorf("decode fid: %w: implementation use/file identifier exceed buffer", udferr.ErrBufferTooSmall)
	}
	f.ImplementationUse = append([]byte(nil), buf[FileIdentifierFixedSize:implEnd]...)
	if f.LengthOfFileIdentifier > 0 {
		f.FileIdentifier = DecodeDstring(buf[implEnd:idEnd])
	}
	return f, idEnd, nil
}

// Encode serializes the FID back to its on-disk form, unpadded (the caller
// is responsible for 4-byte alignment between successive FIDs).
func (f FileIdentifierDescriptor) Encode() []byte {
	idBytes := []byte(nil)
	if f.FileIdentifier != "" {
		// On disk the identifier is the compression ID plus its characters,
		// with no NUL terminator (LengthOfFileIdentifier covers exactly that).
		enc := encoding.EncodeOSTA(f.FileIdentifier)
		terminator := 1
		if enc[0] == 16 {
			terminator = 2
		}
		idBytes = enc[:len(enc)-terminator]
	}
	total := FileIdentifierFixedSize + len(f.ImplementationUse) + len(idBytes)
	buf := make([]byte, total)

	tagBuf, _ := f.Tag.Marshal()
	copy(buf[0:TagSize], tagBuf[:])
	binary.LittleEndian.PutUint16(buf[16:18], f.FileVersionNumber)
	buf[18] = f.FileCharacteristics
	buf[19] = uint8(len(idBytes))
	icb := f.ICB.Encode()
	copy(buf[20:36], icb[:])
	binary.LittleEndian.PutUint16(buf[36:38], uint16(len(f.ImplementationUse)))
	copy(buf[38:38+len(f.ImplementationUse)], f.ImplementationUse)
	copy(buf[38+len(f.ImplementationUse):], idBytes)
	return buf
}

// IsParent reports whether this FID is the synthetic "parent directory" entry.
func (f FileIdentifierDescriptor) IsParent() bool {
	return f.FileCharacteristics&FileCharacteristicParent != 0
}

// IsDirectory reports whether this FID names a subdirectory.
func (f FileIdentifierDescriptor) IsDirectory() bool {
	return f.FileCharacteristics&FileCharacteristicDirectory != 0
}

// IsDeleted reports whether this FID has been marked deleted (ECMA-167 14.4.3);
// a conforming directory traversal should skip these.
func (f FileIdentifierDescriptor) IsDeleted() bool {
	return f.FileCharacteristics&FileCharacteristicDeleted != 0
}
