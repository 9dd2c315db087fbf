package descriptor

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// S6 — a real three-entry FID stream (parent, AUDIO_TS, VIDEO_TS) lifted
// verbatim from a DVD-ROM directory extent, matching the reference
// implementation's own parse_file_identifiers fixture.
func TestDecodeFileIdentifierDescriptor_DVDDirectoryFixture(t *testing.T) {
	data := []byte{
		1, 1, 2, 0, 200, 0, 0, 0, 71, 98, 24, 0, 3, 0, 0, 0, 1, 0, 10, 0, 0, 8, 0, 0, 2, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 2, 0, 251, 0, 0, 0, 96, 116, 32, 0, 3, 0,
		0, 0, 1, 0, 2, 9, 0, 8, 0, 0, 4, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 8, 65, 85, 68,
		73, 79, 95, 84, 83, 0, 1, 1, 2, 0, 217, 0, 0, 0, 211, 223, 32, 0, 3, 0, 0, 0, 1, 0, 2,
		9, 0, 8, 0, 0, 6, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 8, 86, 73, 68, 69, 79, 95, 84,
		83, 0,
	}

	var identifiers []string
	offset := 0
	for offset < len(data) {
		fid, consumed, err := DecodeFileIdentifierDescriptor(data[offset:])
		require.NoError(t, err)
		identifiers = append(identifiers, fid.FileIdentifier)
		if offset == 0 {
			require.True(t, fid.IsParent())
		} else {
			require.True(t, fid.IsDirectory())
		}
		offset += Align4(consumed)
	}

	require.Equal(t, []string{"", "AUDIO_TS", "VIDEO_TS"}, identifiers)
}
