package descriptor

import "github.com/bgrewell/udf-kit/pkg/udf/encoding"

// DecodeDstring decodes a fixed-size dstring field (OSTA compressed unicode,
// zero-padded to its declared width) into a Go string.
func DecodeDstring(buf []byte) string {
	return encoding.DecodeOSTA(buf)
}

// EncodeDstring encodes s as a dstring of exactly size bytes, truncating the
// compressed form if it overruns the field and zero-padding if it underruns.
func EncodeDstring(s string, size int) []byte {
	out := make([]byte, size)
	enc := encoding.EncodeOSTA(s)
	n := len(enc)
	if n > size {
		n = size
	}
	copy(out, enc[:n])
	return out
}
