package encoding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// S1 — CRC vector from ECMA-167 Annex A / the original crc.rs test fixture.
func TestCRC16CCITTFalse_Vector(t *testing.T) {
	assert.Equal(t, uint16(0x3299), CRC16CCITTFalse([]byte{0x70, 0x6A, 0x77}))
}

func TestCRC16CCITTFalse_Empty(t *testing.T) {
	assert.Equal(t, uint16(0), CRC16CCITTFalse(nil))
}

// S2 — OSTA ASCII round trip.
func TestOSTA_ASCIIRoundTrip(t *testing.T) {
	encoded := EncodeOSTA("Hello, World!")
	assert.Equal(t, byte(8), encoded[0])
	assert.Equal(t, byte(0), encoded[len(encoded)-1])
	assert.Equal(t, "Hello, World!", DecodeOSTA(encoded))
}

// S3 — OSTA mixed BMP round trip.
func TestOSTA_MixedBMPRoundTrip(t *testing.T) {
	s := "Hello, 世界!"
	encoded := EncodeOSTA(s)
	assert.Equal(t, byte(16), encoded[0])
	assert.Equal(t, s, DecodeOSTA(encoded))
}

// Invariant 4: round trip holds generally, and the 8-bit form is chosen iff every
// codepoint is <= 0xFF.
func TestOSTA_RoundTripTable(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want8 bool
	}{
		{"empty", "", true},
		{"ascii", "AUDIO_TS", true},
		{"latin1-extended", "café", true},
		{"cjk", "世界", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			encoded := EncodeOSTA(tc.input)
			if tc.input == "" {
				assert.Equal(t, []byte{8, 0}, encoded)
			} else if tc.want8 {
				assert.Equal(t, byte(8), encoded[0])
			} else {
				assert.Equal(t, byte(16), encoded[0])
			}
			assert.Equal(t, tc.input, DecodeOSTA(encoded))
		})
	}
}

func TestOSTA_DecodeEmptyField(t *testing.T) {
	assert.Equal(t, "", DecodeOSTA(nil))
	assert.Equal(t, "", DecodeOSTA([]byte{}))
}

func TestOSTA_DecodeUnknownCompressionID(t *testing.T) {
	assert.Equal(t, "", DecodeOSTA([]byte{42, 'a', 'b'}))
}
