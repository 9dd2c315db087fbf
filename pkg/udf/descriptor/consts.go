package descriptor

// Descriptor tag identifiers (ECMA-167 3rd ed. 8.3.1, OSTA UDF 2.60).
const (
	TagIdentifierPrimaryVolumeDescriptor  = 1
	TagIdentifierAnchorVolumeDescriptor   = 2
	TagIdentifierVolumeDescriptorPointer  = 3
	TagIdentifierImplementationUseVolDesc = 4
	TagIdentifierPartitionDescriptor      = 5
	TagIdentifierLogicalVolumeDescriptor  = 6
	TagIdentifierUnallocatedSpaceDesc     = 7
	TagIdentifierTerminatingDescriptor    = 8
	TagIdentifierLogicalVolumeIntegrity   = 9
	TagIdentifierFileSetDescriptor        = 256
	TagIdentifierFileIdentifierDescriptor = 257
	TagIdentifierAllocationExtentDesc     = 258
	TagIdentifierIndirectEntry            = 259
	TagIdentifierTerminalEntry            = 260
	TagIdentifierFileEntry                = 261
	TagIdentifierExtendedAttributeHeader  = 262
)

// Partition map types (ECMA-167 10.7.1).
const (
	PartitionMapType1 = 1
	PartitionMapType2 = 2
)

// File characteristics bitfield on a FileIdentifierDescriptor (ECMA-167 14.4.3).
const (
	FileCharacteristicHidden    = 0x01
	FileCharacteristicDirectory = 0x02
	FileCharacteristicDeleted   = 0x04
	FileCharacteristicParent    = 0x08
	FileCharacteristicMetadata  = 0x10
)

// ICBTag file types (ECMA-167 14.6.6), the subset this reader distinguishes.
const (
	FileTypeUnspecified   = 0
	FileTypeDirectory     = 4
	FileTypeSequenceBytes = 5
	FileTypeSymlink       = 12
)

// Allocation descriptor forms, encoded in the low 2 bits of ICBTag.Flags (ECMA-167 14.6.8).
const (
	AllocationDescriptorShort    = 0
	AllocationDescriptorLong     = 1
	AllocationDescriptorExtended = 2
	AllocationDescriptorEmbedded = 3
)

// Extent type, encoded in the top 2 bits of an allocation descriptor's length field.
const (
	ExtentRecordedAndAllocated    = 0
	ExtentNotRecordedAllocated    = 1
	ExtentNotRecordedNotAllocated = 2
	ExtentIsNextExtent            = 3
)

const (
	// TagSize is the fixed size of a DescriptorTag.
	TagSize = 16
	// ShortAllocationDescriptorSize is the fixed size of a short_ad.
	ShortAllocationDescriptorSize = 8
	// LongAdSize is the fixed size of a long_ad.
	LongAdSize = 16
	// LbAddrSize is the fixed size of a packed lb_addr.
	LbAddrSize = 6
	// FileEntryFixedSize is the size of a FileEntry up to (but excluding) the
	// extended-attribute and allocation-descriptor trailers (ICBTag through checksum fields).
	FileEntryFixedSize = 176
	// FileIdentifierFixedSize is the fixed portion of a FileIdentifierDescriptor before
	// the implementation-use and file-identifier trailers.
	FileIdentifierFixedSize = 38
)

// Align4 rounds n up to the next multiple of 4, per the FID padding rule
// this implementation adopts (spec Open Question "FID alignment", resolved: 4-byte aligned).
func Align4(n int) int {
	return (n + 3) &^ 3
}
