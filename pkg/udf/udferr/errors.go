// Package udferr defines the stable error taxonomy shared across the UDF
// descriptor codec, sector cache, address resolver, and traversal walkers.
// Categories are sentinel errors rather than a single monolithic type, so
// callers can test for a specific failure class with errors.Is while the
// wrapping fmt.Errorf chain still carries the offending sector/tag context.
package udferr

import "errors"

var (
	// ErrIO marks a failure from the underlying block source.
	ErrIO = errors.New("udf: io error")

	// ErrInvalidDescriptorTag marks a tag checksum/CRC mismatch, or an
	// unexpected tag_identifier in a slot that demands a specific one.
	ErrInvalidDescriptorTag = errors.New("udf: invalid descriptor tag")

	// ErrInvalidPartitionMap marks a partition-map table whose declared
	// length disagrees with its decoded entries.
	ErrInvalidPartitionMap = errors.New("udf: invalid partition map")

	// ErrBufferTooSmall marks a variable-length descriptor claiming more
	// bytes than remain in its container.
	ErrBufferTooSmall = errors.New("udf: buffer too small")

	// ErrInvalidPartitionNumber marks a LongAd/LbAddr referencing a
	// partition absent from the partition table.
	ErrInvalidPartitionNumber = errors.New("udf: invalid partition number")

	// ErrIndirectChainTooDeep marks an IndirectEntry chain exceeding the
	// configured MaxIndirectDepth (this implementation's resolution of the
	// distilled spec's IndirectEntry open question).
	ErrIndirectChainTooDeep = errors.New("udf: indirect entry chain too deep")

	// ErrUnsupportedAllocationForm marks an allocation-descriptor form
	// (extended/embedded) this reader does not decode.
	ErrUnsupportedAllocationForm = errors.New("udf: unsupported allocation descriptor form")

	// ErrWriteNotSupported marks a mutating operation on a read-only UDF
	// extractor (write support is an explicit non-goal).
	ErrWriteNotSupported = errors.New("udf: write operations are not supported")

	// ErrNotFound marks a lookup (e.g. ReadFile) against a path absent from
	// the materialized entry tree.
	ErrNotFound = errors.New("udf: path not found")
)
