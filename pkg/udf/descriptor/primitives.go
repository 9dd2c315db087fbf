package descriptor

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/bgrewell/udf-kit/pkg/udf/udferr"
)

// CharSpec identifies a character set accompanying a dstring field (ECMA-167 7.2.1).
type CharSpec struct {
	CharacterSetType uint8
	CharacterSetInfo [63]byte
}

const CharSpecSize = 64

// CS0 is a CharSpec with character set type 0, the type of the OSTA-mandated
// Compressed Unicode character set. The Encode methods do not substitute it;
// each writes the CharSpec its struct holds.
var CS0 = CharSpec{CharacterSetType: 0}

func DecodeCharSpec(buf []byte) (CharSpec, error) {
	if len(buf) < CharSpecSize {
		return CharSpec{}, fmt.Errorf("decode charspec: %w", udferr.ErrBufferTooSmall)
	}
	var cs CharSpec
	cs.CharacterSetType = buf[0]
	copy(cs.CharacterSetInfo[:], buf[1:64])
	return cs, nil
}

func (c CharSpec) Encode() [CharSpecSize]byte {
	var buf [CharSpecSize]byte
	buf[0] = c.CharacterSetType
	copy(buf[1:], c.CharacterSetInfo[:])
	return buf
}

// EntityID identifies an implementation or application (ECMA-167 1/7.4).
type EntityID struct {
	Flags            uint8
	Identifier       [23]byte
	IdentifierSuffix [8]byte
}

const EntityIDSize = 32

func DecodeEntityID(buf []byte) (EntityID, error) {
	if len(buf) < EntityIDSize {
		return EntityID{}, fmt.Errorf("decode entity id: %w", udferr.ErrBufferTooSmall)
	}
	var e EntityID
	e.Flags = buf[0]
	copy(e.Identifier[:], buf[1:24])
	copy(e.IdentifierSuffix[:], buf[24:32])
	return e, nil
}

func (e EntityID) Encode() [EntityIDSize]byte {
	var buf [EntityIDSize]byte
	buf[0] = e.Flags
	copy(buf[1:24], e.Identifier[:])
	copy(buf[24:32], e.IdentifierSuffix[:])
	return buf
}

// Timestamp is UDF's 12-byte binary date/time (ECMA-167 1/7.3), distinct from
// ISO9660's ASCII date forms.
type Timestamp struct {
	TypeAndTimezone     uint16
	Year                int16
	Month               uint8
	Day                 uint8
	Hour                uint8
	Minute              uint8
	Second              uint8
	Centiseconds        uint8
	HundredsOfMicrosecs uint8
	Microseconds        uint8
}

const TimestampSize = 12

func DecodeTimestamp(buf []byte) (Timestamp, error) {
	if len(buf) < TimestampSize {
		return Timestamp{}, fmt.Errorf("decode timestamp: %w", udferr.ErrBufferTooSmall)
	}
	var ts Timestamp
	ts.TypeAndTimezone = binary.LittleEndian.Uint16(buf[0:2])
	ts.Year = int16(binary.LittleEndian.Uint16(buf[2:4]))
	ts.Month = buf[4]
	ts.Day = buf[5]
	ts.Hour = buf[6]
	ts.Minute = buf[7]
	ts.Second = buf[8]
	ts.Centiseconds = buf[9]
	ts.HundredsOfMicrosecs = buf[10]
	ts.Microseconds = buf[11]
	return ts, nil
}

func (ts Timestamp) Encode() [TimestampSize]byte {
	var buf [TimestampSize]byte
	binary.LittleEndian.PutUint16(buf[0:2], ts.TypeAndTimezone)
	binary.LittleEndian.PutUint16(buf[2:4], uint16(ts.Year))
	buf[4] = ts.Month
	buf[5] = ts.Day
	buf[6] = ts.Hour
	buf[7] = ts.Minute
	buf[8] = ts.Second
	buf[9] = ts.Centiseconds
	buf[10] = ts.HundredsOfMicrosecs
	buf[11] = ts.Microseconds
	return buf
}

// Time converts the timestamp to a time.Time. The top 4 bits of TypeAndTimezone
// select the timestamp type; type 1 carries a signed offset in 15-minute units in
// the low 12 bits (sign-extended). Any other type is treated as UTC.
func (ts Timestamp) Time() time.Time {
	loc := time.UTC
	if ts.TypeAndTimezone>>12 == 1 {
		offsetField := int16(ts.TypeAndTimezone) << 4 >> 4 // sign-extend low 12 bits
		if offsetField != -2047 {
			loc = time.FixedZone("", int(offsetField)*15*60)
		}
	}
	nsec := (int(ts.Centiseconds)*10000 + int(ts.HundredsOfMicrosecs)*100 + int(ts.Microseconds)) * 1000
	return time.Date(int(ts.Year), time.Month(ts.Month), int(ts.Day), int(ts.Hour), int(ts.Minute), int(ts.Second), nsec, loc)
}

// ExtentAd is a (length, location) pair addressing an extent in absolute sectors
// (ECMA-167 7.1), used by the anchor descriptor to point at the VDS sequences.
type ExtentAd struct {
	LengthBytes    uint32
	LocationSector uint32
}

const ExtentAdSize = 8

func DecodeExtentAd(buf []byte) (ExtentAd, error) {
	if len(buf) < ExtentAdSize {
		return ExtentAd{}, fmt.Errorf("decode extent_ad: %w", udferr.ErrBufferTooSmall)
	}
	return ExtentAd{
		LengthBytes:    binary.LittleEndian.Uint32(buf[0:4]),
		LocationSector: binary.LittleEndian.Uint32(buf[4:8]),
	}, nil
}

func (e ExtentAd) Encode() [ExtentAdSize]byte {
	var buf [ExtentAdSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], e.LengthBytes)
	binary.LittleEndian.PutUint32(buf[4:8], e.LocationSector)
	return buf
}

// SectorCount returns the number of sectorSize-byte sectors needed to hold LengthBytes.
func (e ExtentAd) SectorCount(sectorSize uint32) uint32 {
	if sectorSize == 0 {
		return 0
	}
	return (e.LengthBytes + sectorSize - 1) / sectorSize
}

// LbAddr is a packed 6-byte (logical_block_number, partition_reference_number)
// tuple (ECMA-167 7.1). It must always be read field-by-field; it has no natural
// alignment as a Go struct.
type LbAddr struct {
	LogicalBlockNumber      uint32
	PartitionReferenceNum uint16
}

func DecodeLbAddr(buf []byte) (LbAddr, error) {
	if len(buf) < LbAddrSize {
		return LbAddr{}, fmt.Errorf("decode lb_addr: %w", udferr.ErrBufferTooSmall)
	}
	return LbAddr{
		LogicalBlockNumber:    binary.LittleEndian.Uint32(buf[0:4]),
		PartitionReferenceNum: binary.LittleEndian.Uint16(buf[4:6]),
	}, nil
}

func (a LbAddr) Encode() [LbAddrSize]byte {
	var buf [LbAddrSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], a.LogicalBlockNumber)
	binary.LittleEndian.PutUint16(buf[4:6], a.PartitionReferenceNum)
	return buf
}

// ShortAllocationDescriptor is an 8-byte extent reference within the containing
// partition (ECMA-167 14.14.1).
type ShortAllocationDescriptor struct {
	ExtentLengthAndType uint32
	ExtentLocation      uint32
}

func DecodeShortAD(buf []byte) (ShortAllocationDescriptor, error) {
	if len(buf) < ShortAllocationDescriptorSize {
		return ShortAllocationDescriptor{}, fmt.Errorf("decode short_ad: %w", udferr.ErrBufferTooSmall)
	}
	return ShortAllocationDescriptor{
		ExtentLengthAndType: binary.LittleEndian.Uint32(buf[0:4]),
		ExtentLocation:      binary.LittleEndian.Uint32(buf[4:8]),
	}, nil
}

func (s ShortAllocationDescriptor) Encode() [ShortAllocationDescriptorSize]byte {
	var buf [ShortAllocationDescriptorSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], s.ExtentLengthAndType)
	binary.LittleEndian.PutUint32(buf[4:8], s.ExtentLocation)
	return buf
}

// ExtentLengthBytes returns the byte length with the top 2 type bits masked off.
func (s ShortAllocationDescriptor) ExtentLengthBytes() uint32 {
	return s.ExtentLengthAndType & 0x3FFFFFFF
}

// ExtentType returns the top 2 bits of ExtentLengthAndType (Extent* constants).
func (s ShortAllocationDescriptor) ExtentType() uint8 {
	return uint8(s.ExtentLengthAndType >> 30)
}

// LongAd is a 16-byte cross-partition extent reference (ECMA-167 14.14.2).
type LongAd struct {
	ExtentLengthAndType uint32
	ExtentLocation      LbAddr
	ImplementationUse   [6]byte
}

func DecodeLongAd(buf []byte) (LongAd, error) {
	if len(buf) < LongAdSize {
		return LongAd{}, fmt.Errorf("decode long_ad: %w", udferr.ErrBufferTooSmall)
	}
	loc, err := DecodeLbAddr(buf[4:10])
	if err != nil {
		return LongAd{}, err
	}
	var iu [6]byte
	copy(iu[:], buf[10:16])
	return LongAd{
		ExtentLengthAndType: binary.LittleEndian.Uint32(buf[0:4]),
		ExtentLocation:      loc,
		ImplementationUse:   iu,
	}, nil
}

func (l LongAd) Encode() [LongAdSize]byte {
	var buf [LongAdSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], l.ExtentLengthAndType)
	loc := l.ExtentLocation.Encode()
	copy(buf[4:10], loc[:])
	copy(buf[10:16], l.ImplementationUse[:])
	return buf
}

func (l LongAd) ExtentLengthBytes() uint32 {
	return l.ExtentLengthAndType & 0x3FFFFFFF
}

func (l LongAd) ExtentType() uint8 {
	return uint8(l.ExtentLengthAndType >> 30)
}

// AsShortAD converts a LongAd to the ShortAllocationDescriptor shape expected by
// the ICB walker, which only ever reads within a single already-resolved partition.
func (l LongAd) AsShortAD() ShortAllocationDescriptor {
	return ShortAllocationDescriptor{
		ExtentLengthAndType: l.ExtentLengthAndType,
		ExtentLocation:      l.ExtentLocation.LogicalBlockNumber,
	}
}
