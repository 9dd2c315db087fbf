package descriptor

import (
	"encoding/binary"
	"fmt"

	"github.com/bgrewell/udf-kit/pkg/udf/encoding"
	"github.com/bgrewell/udf-kit/pkg/udf/udferr"
)

// DescriptorTag is the 16-byte header prefixing every ECMA-167 descriptor
// (ECMA-167 3rd ed. 7.2).
type DescriptorTag struct {
	TagIdentifier        uint16
	DescriptorVersion    uint16
	TagChecksum          uint8
	Reserved             uint8
	TagSerialNumber      uint16
	DescriptorCRC        uint16
	DescriptorCRCLength  uint16
	TagLocation          uint32
}

// Marshal encodes the tag into its 16-byte on-disk form. TagChecksum is recomputed
// from the other fields rather than trusted from the struct.
func (t *DescriptorTag) Marshal() ([TagSize]byte, error) {
	var buf [TagSize]byte
	binary.LittleEndian.PutUint16(buf[0:2], t.TagIdentifier)
	binary.LittleEndian.PutUint16(buf[2:4], t.DescriptorVersion)
	buf[4] = 0 // checksum filled in below
	buf[5] = t.Reserved
	binary.LittleEndian.PutUint16(buf[6:8], t.TagSerialNumber)
	binary.LittleEndian.PutUint16(buf[8:10], t.DescriptorCRC)
	binary.LittleEndian.PutUint16(buf[10:12], t.DescriptorCRCLength)
	binary.LittleEndian.PutUint32(buf[12:16], t.TagLocation)
	buf[4] = tagChecksum(buf)
	return buf, nil
}

// Unmarshal decodes a 16-byte buffer into the tag. It does not validate the
// checksum or CRC; use Validate for that.
func (t *DescriptorTag) Unmarshal(data [TagSize]byte) error {
	t.TagIdentifier = binary.LittleEndian.Uint16(data[0:2])
	t.DescriptorVersion = binary.LittleEndian.Uint16(data[2:4])
	t.TagChecksum = data[4]
	t.Reserved = data[5]
	t.TagSerialNumber = binary.LittleEndian.Uint16(data[6:8])
	t.DescriptorCRC = binary.LittleEndian.Uint16(data[8:10])
	t.DescriptorCRCLength = binary.LittleEndian.Uint16(data[10:12])
	t.TagLocation = binary.LittleEndian.Uint32(data[12:16])
	return nil
}

// DecodeTag reads a DescriptorTag from the first 16 bytes of buf without
// validating it. Callers that need a trustworthy tag should call Validate
// against the full descriptor body afterward.
func DecodeTag(buf []byte) (DescriptorTag, error) {
	if len(buf) < TagSize {
		return DescriptorTag{}, fmt.Errorf("decode descriptor tag: %w: need %d bytes, have %d", udferr.ErrBufferTooSmall, TagSize, len(buf))
	}
	var raw [TagSize]byte
	copy(raw[:], buf[:TagSize])
	var tag DescriptorTag
	_ = tag.Unmarshal(raw)
	return tag, nil
}

// tagChecksum computes the sum-mod-256 checksum over tag bytes 0-3 and 5-15,
// skipping byte 4 (the checksum field itself).
func tagChecksum(tag [TagSize]byte) uint8 {
	var sum uint8
	for i, b := range tag {
		if i == 4 {
			continue
		}
		sum += b
	}
	return sum
}

// Validate checks the tag's checksum against its own 16 bytes and, if
// DescriptorCRCLength is nonzero, the CRC-16/CCITT-FALSE of the CRCLength
// bytes immediately following the tag within body. body must therefore be
// the full descriptor (tag included), at least TagSize+DescriptorCRCLength
// bytes long.
func (t *DescriptorTag) Validate(body []byte) error {
	if len(body) < TagSize {
		return fmt.Errorf("validate descriptor tag: %w", udferr.ErrBufferTooSmall)
	}

	var raw [TagSize]byte
	copy(raw[:], body[:TagSize])
	want := tagChecksum(raw)
	if want != t.TagChecksum {
		return fmt.Errorf("validate descriptor tag at sector %d: %w: checksum mismatch (got 0x%02x, want 0x%02x)",
			t.TagLocation, udferr.ErrInvalidDescriptorTag, t.TagChecksum, want)
	}

	if t.DescriptorCRCLength > 0 {
		end := TagSize + int(t.DescriptorCRCLength)
		if len(body) < end {
			return fmt.Errorf("validate descriptor tag at sector %d: %w: crc_length %d exceeds buffer", t.TagLocation, udferr.ErrBufferTooSmall, t.DescriptorCRCLength)
		}
		crc := encoding.CRC16CCITTFalse(body[TagSize:end])
		if crc != t.DescriptorCRC {
			return fmt.Errorf("validate descriptor tag at sector %d: %w: crc mismatch (got 0x%04x, want 0x%04x)",
				t.TagLocation, udferr.ErrInvalidDescriptorTag, crc, t.DescriptorCRC)
		}
	}

	return nil
}

// ExpectIdentifier is a convenience check combining Validate with a required tag_identifier.
func (t *DescriptorTag) ExpectIdentifier(body []byte, want uint16) error {
	if err := t.Validate(body); err != nil {
		return err
	}
	if t.TagIdentifier != want {
		return fmt.Errorf("descriptor at sector %d: %w: expected tag_identifier %d, got %d", t.TagLocation, udferr.ErrInvalidDescriptorTag, want, t.TagIdentifier)
	}
	return nil
}
