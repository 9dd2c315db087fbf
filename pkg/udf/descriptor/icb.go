package descriptor

import (
	"encoding/binary"
	"fmt"

	"github.com/bgrewell/udf-kit/pkg/udf/udferr"
)

// ICBTagSize is the fixed 20-byte size of an ICBTag (ECMA-167 4/14.6).
const ICBTagSize = 20

// ICBTag precedes every ICB variant (FileEntry, TerminalEntry, IndirectEntry)
// and identifies which variant follows plus which allocation descriptor form
// that variant uses.
type ICBTag struct {
	PriorRecordedNumberOfDirectEntries uint32
	StrategyType                       uint16
	StrategyParameter                  [2]byte
	MaximumNumberOfEntries             uint16
	Reserved                           uint8
	FileType                           uint8
	ParentICBLocation                  LbAddr
	Flags                              uint16
}

func DecodeICBTag(buf []byte) (ICBTag, error) {
	if len(buf) < ICBTagSize {
		return ICBTag{}, fmt.Errorf("decode icb tag: %w", udferr.ErrBufferTooSmall)
	}
	var t ICBTag
	t.PriorRecordedNumberOfDirectEntries = binary.LittleEndian.Uint32(buf[0:4])
	t.StrategyType = binary.LittleEndian.Uint16(buf[4:6])
	copy(t.StrategyParameter[:], buf[6:8])
	t.MaximumNumberOfEntries = binary.LittleEndian.Uint16(buf[8:10])
	t.Reserved = buf[10]
	t.FileType = buf[11]
	loc, err := DecodeLbAddr(buf[12:18])
	if err != nil {
		return ICBTag{}, err
	}
	t.ParentICBLocation = loc
	t.Flags = binary.LittleEndian.Uint16(buf[18:20])
	return t, nil
}

func (t ICBTag) Encode() [ICBTagSize]byte {
	var buf [ICBTagSize]byte
	binary.LittleEndian.PutUint32(buf[0:4], t.PriorRecordedNumberOfDirectEntries)
	binary.LittleEndian.PutUint16(buf[4:6], t.StrategyType)
	copy(buf[6:8], t.StrategyParameter[:])
	binary.LittleEndian.PutUint16(buf[8:10], t.MaximumNumberOfEntries)
	buf[10] = t.Reserved
	buf[11] = t.FileType
	loc := t.ParentICBLocation.Encode()
	copy(buf[12:18], loc[:])
	binary.LittleEndian.PutUint16(buf[18:20], t.Flags)
	return buf
}

// AllocationDescriptorForm returns the low 2 bits of Flags (one of the
// AllocationDescriptor* constants). This reader only decodes Short form,
// the only form a conforming UDF volume may use (UDF 2.60 4.1.1).
func (t ICBTag) AllocationDescriptorForm() uint8 {
	return uint8(t.Flags) & 0x03
}

// IsDirectory reports whether this ICB's FileType marks a directory.
func (t ICBTag) IsDirectory() bool {
	return t.FileType == FileTypeDirectory
}

// FileEntry is the UDF inode: permissions, timestamps, size, and the
// allocation descriptor table locating the file's data extents
// (ECMA-167 4/14.9). UDF restricts the allocation descriptors to short_ad
// form, so this reader decodes the trailer exclusively as a []ShortAllocationDescriptor.
type FileEntry struct {
	Tag                         DescriptorTag
	ICBTag                      ICBTag
	UID                         uint32
	GID                         uint32
	Permissions                 uint32
	FileLinkCount               uint16
	RecordFormat                uint8
	RecordDisplayAttributes     uint8
	RecordLength                uint32
	InformationLength           uint64
	LogicalBlocksRecorded       uint64
	AccessTime                  Timestamp
	ModificationTime            Timestamp
	AttributeTime               Timestamp
	Checkpoint                  uint32
	ExtendedAttributeICB        LongAd
	ImplementationIdentifier    EntityID
	UniqueID                    uint64
	LengthOfExtendedAttributes  uint32
	LengthOfAllocationDescriptors uint32
	ExtendedAttributes          []byte

	// AllocationDescriptors holds the decoded short_ad trailer when
	// ICBTag.AllocationDescriptorForm() is AllocationDescriptorShort; for
	// any other form RawAllocationDescriptors carries the undecoded bytes
	// and AllocationDescriptors is empty (see udferr.ErrUnsupportedAllocationForm).
	// Short descriptors of extent type ExtentIsNextExtent are dropped while
	// decoding; the allocation extent they point to is not read.
	AllocationDescriptors    []ShortAllocationDescriptor
	RawAllocationDescriptors []byte
}

// DecodeFileEntry decodes a FileEntry from buf, which must hold at least
// FileEntryFixedSize bytes plus LengthOfExtendedAttributes plus
// LengthOfAllocationDescriptors more, as declared by the fixed header.
func DecodeFileEntry(buf []byte) (FileEntry, error) {
	if len(buf) < FileEntryFixedSize {
		return FileEntry{}, fmt.Errorf("decode file entry: %w", udferr.ErrBufferTooSmall)
	}
	var f FileEntry
	var rawTag [TagSize]byte
	copy(rawTag[:], buf[0:TagSize])
	if err := f.Tag.Unmarshal(rawTag); err != nil {
		return FileEntry{}, err
	}

	icbTag, err := DecodeICBTag(buf[16:36])
	if err != nil {
		return FileEntry{}, err
	}
	f.ICBTag = icbTag

	f.UID = binary.LittleEndian.Uint32(buf[36:40])
	f.GID = binary.LittleEndian.Uint32(buf[40:44])
	f.Permissions = binary.LittleEndian.Uint32(buf[44:48])
	f.FileLinkCount = binary.LittleEndian.Uint16(buf[48:50])
	f.RecordFormat = buf[50]
	f.RecordDisplayAttributes = buf[51]
	f.RecordLength = binary.LittleEndian.Uint32(buf[52:56])
	f.InformationLength = binary.LittleEndian.Uint64(buf[56:64])
	f.LogicalBlocksRecorded = binary.LittleEndian.Uint64(buf[64:72])

	if f.AccessTime, err = DecodeTimestamp(buf[72:84]); err != nil {
		return FileEntry{}, err
	}
	if f.ModificationTime, err = DecodeTimestamp(buf[84:96]); err != nil {
		return FileEntry{}, err
	}
	if f.AttributeTime, err = DecodeTimestamp(buf[96:108]); err != nil {
		return FileEntry{}, err
	}
	f.Checkpoint = binary.LittleEndian.Uint32(buf[108:112])
	if f.ExtendedAttributeICB, err = DecodeLongAd(buf[112:128]); err != nil {
		return FileEntry{}, err
	}
	if f.ImplementationIdentifier, err = DecodeEntityID(buf[128:160]); err != nil {
		return FileEntry{}, err
	}
	f.UniqueID = binary.LittleEndian.Uint64(buf[160:168])
	f.LengthOfExtendedAttributes = binary.LittleEndian.Uint32(buf[168:172])
	f.LengthOfAllocationDescriptors = binary.LittleEndian.Uint32(buf[172:176])

	eaEnd := FileEntryFixedSize + int(f.LengthOfExtendedAttributes)
	adEnd := eaEnd + int(f.LengthOfAllocationDescriptors)
	if len(buf) < adEnd {
		return FileEntry{}, fmt.Errorf("decode file entry: %w: extended attributes/allocation descriptors exceed buffer", udferr.ErrBufferTooSmall)
	}
	f.ExtendedAttributes = append([]byte(nil), buf[FileEntryFixedSize:eaEnd]...)
	adBytes := buf[eaEnd:adEnd]

	if icbTag.AllocationDescriptorForm() != AllocationDescriptorShort {
		f.RawAllocationDescriptors = append([]byte(nil), adBytes...)
		return f, nil
	}

	for offset := 0; offset+ShortAllocationDescriptorSize <= len(adBytes); offset += ShortAllocationDescriptorSize {
		sad, err := DecodeShortAD(adBytes[offset : offset+ShortAllocationDescriptorSize])
		if err != nil {
			return FileEntry{}, err
		}
		if sad.ExtentType() == ExtentIsNextExtent {
			continue
		}
		f.AllocationDescriptors = append(f.AllocationDescriptors, sad)
	}
	return f, nil
}

// Encode serializes the FileEntry back to its on-disk form. Allocation
// descriptors are re-encoded from AllocationDescriptors when present,
// otherwise RawAllocationDescriptors is emitted verbatim.
func (f FileEntry) Encode() []byte {
	adBytes := f.RawAllocationDescriptors
	if len(f.AllocationDescriptors) > 0 {
		adBytes = make([]byte, 0, len(f.AllocationDescriptors)*ShortAllocationDescriptorSize)
		for _, sad := range f.AllocationDescriptors {
			enc := sad.Encode()
			adBytes = append(adBytes, enc[:]...)
		}
	}

	total := FileEntryFixedSize + len(f.ExtendedAttributes) + len(adBytes)
	buf := make([]byte, total)

	tagBuf, _ := f.Tag.Marshal()
	copy(buf[0:TagSize], tagBuf[:])
	icb := f.ICBTag.Encode()
	copy(buf[16:36], icb[:])
	binary.LittleEndian.PutUint32(buf[36:40], f.UID)
	binary.LittleEndian.PutUint32(buf[40:44], f.GID)
	binary.LittleEndian.PutUint32(buf[44:48], f.Permissions)
	binary.LittleEndian.PutUint16(buf[48:50], f.FileLinkCount)
	buf[50] = f.RecordFormat
	buf[51] = f.RecordDisplayAttributes
	binary.LittleEndian.PutUint32(buf[52:56], f.RecordLength)
	binary.LittleEndian.PutUint64(buf[56:64], f.InformationLength)
	binary.LittleEndian.PutUint64(buf[64:72], f.LogicalBlocksRecorded)
	at := f.AccessTime.Encode()
	copy(buf[72:84], at[:])
	mt := f.ModificationTime.Encode()
	copy(buf[84:96], mt[:])
	att := f.AttributeTime.Encode()
	copy(buf[96:108], att[:])
	binary.LittleEndian.PutUint32(buf[108:112], f.Checkpoint)
	ea := f.ExtendedAttributeICB.Encode()
	copy(buf[112:128], ea[:])
	ii := f.ImplementationIdentifier.Encode()
	copy(buf[128:160], ii[:])
	binary.LittleEndian.PutUint64(buf[160:168], f.UniqueID)
	binary.LittleEndian.PutUint32(buf[168:172], uint32(len(f.ExtendedAttributes)))
	binary.LittleEndian.PutUint32(buf[172:176], uint32(len(adBytes)))
	copy(buf[176:176+len(f.ExtendedAttributes)], f.ExtendedAttributes)
	copy(buf[176+len(f.ExtendedAttributes):], adBytes)
	return buf
}

// TerminalEntrySize is the fixed 36-byte size of a TerminalEntry.
const TerminalEntrySize = 36

// TerminalEntry (tag_identifier 260) marks the end of an ICB strategy-4096
// chain (ECMA-167 4/14.8); this reader stops walking when it encounters one.
type TerminalEntry struct {
	Tag    DescriptorTag
	ICBTag ICBTag
}

func DecodeTerminalEntry(buf []byte) (TerminalEntry, error) {
	if len(buf) < TerminalEntrySize {
		return TerminalEntry{}, fmt.Errorf("decode terminal entry: %w", udferr.ErrBufferTooSmall)
	}
	var t TerminalEntry
	var rawTag [TagSize]byte
	copy(rawTag[:], buf[0:TagSize])
	if err := t.Tag.Unmarshal(rawTag); err != nil {
		return TerminalEntry{}, err
	}
	icbTag, err := DecodeICBTag(buf[16:36])
	if err != nil {
		return TerminalEntry{}, err
	}
	t.ICBTag = icbTag
	return t, nil
}

// IndirectEntrySize is the fixed 52-byte size of an IndirectEntry.
const IndirectEntrySize = 52

// IndirectEntry (tag_identifier 259) redirects the ICB walker to another ICB
// location (ECMA-167 4/14.7), used by strategy-4096 ICB chains. This reader
// follows IndirectICB up to a bounded depth rather than treating it as an
// error (udferr.ErrIndirectChainTooDeep past that bound).
type IndirectEntry struct {
	Tag          DescriptorTag
	ICBTag       ICBTag
	IndirectICB  LongAd
}

func DecodeIndirectEntry(buf []byte) (IndirectEntry, error) {
	if len(buf) < IndirectEntrySize {
		return IndirectEntry{}, fmt.Errorf("decode indirect entry: %w", udferr.ErrBufferTooSmall)
	}
	var e IndirectEntry
	var rawTag [TagSize]byte
	copy(rawTag[:], buf[0:TagSize])
	if err := e.Tag.Unmarshal(rawTag); err != nil {
		return IndirectEntry{}, err
	}
	icbTag, err := DecodeICBTag(buf[16:36])
	if err != nil {
		return IndirectEntry{}, err
	}
	e.ICBTag = icbTag
	indirect, err := DecodeLongAd(buf[36:52])
	if err != nil {
		return IndirectEntry{}, err
	}
	e.IndirectICB = indirect
	return e, nil
}
