package descriptor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bgrewell/udf-kit/pkg/udf/udferr"
)

// Invariant 1: Marshal/Unmarshal round trip a DescriptorTag's fields.
func TestDescriptorTag_MarshalUnmarshalRoundTrip(t *testing.T) {
	tag := DescriptorTag{
		TagIdentifier:       TagIdentifierFileSetDescriptor,
		DescriptorVersion:   2,
		TagSerialNumber:     1,
		DescriptorCRC:       0,
		DescriptorCRCLength: 0,
		TagLocation:         512,
	}
	raw, err := tag.Marshal()
	require.NoError(t, err)

	var got DescriptorTag
	require.NoError(t, got.Unmarshal(raw))
	assert.Equal(t, tag.TagIdentifier, got.TagIdentifier)
	assert.Equal(t, tag.DescriptorVersion, got.DescriptorVersion)
	assert.Equal(t, tag.TagLocation, got.TagLocation)
}

// Invariant 2: mutating any byte of a validly-checksummed tag makes Validate fail.
func TestDescriptorTag_Validate_RejectsChecksumMutation(t *testing.T) {
	tag := DescriptorTag{TagIdentifier: TagIdentifierPrimaryVolumeDescriptor, TagLocation: 16}
	raw, err := tag.Marshal()
	require.NoError(t, err)

	var decoded DescriptorTag
	require.NoError(t, decoded.Unmarshal(raw))
	require.NoError(t, decoded.Validate(raw[:]))

	mutated := raw
	mutated[0] ^= 0xFF
	var decodedMutated DescriptorTag
	require.NoError(t, decodedMutated.Unmarshal(mutated))
	err = decodedMutated.Validate(mutated[:])
	assert.Error(t, err)
	assert.True(t, errors.Is(err, udferr.ErrInvalidDescriptorTag))
}

func TestDescriptorTag_ExpectIdentifier_Mismatch(t *testing.T) {
	tag := DescriptorTag{TagIdentifier: TagIdentifierFileEntry, TagLocation: 4}
	raw, err := tag.Marshal()
	require.NoError(t, err)

	var decoded DescriptorTag
	require.NoError(t, decoded.Unmarshal(raw))

	err = decoded.ExpectIdentifier(raw[:], TagIdentifierFileSetDescriptor)
	assert.Error(t, err)
	assert.True(t, errors.Is(err, udferr.ErrInvalidDescriptorTag))
}

func TestDecodeTag_BufferTooSmall(t *testing.T) {
	_, err := DecodeTag([]byte{1, 2, 3})
	assert.True(t, errors.Is(err, udferr.ErrBufferTooSmall))
}
