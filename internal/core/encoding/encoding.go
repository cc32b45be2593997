// Package encoding holds the byte layouts used in emitted configurations.
package encoding

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Uint32 encodes v as four bytes, least significant first. This is the
// zero-padded hex form of v with its byte pairs reversed.
func Uint32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// Index converts a port index or port count to the unsigned 32-bit value
// the driver loader reads. Values outside that range are rejected.
func Index(v int) (uint32, error) {
	if v < 0 || uint64(v) > math.MaxUint32 {
		return 0, fmt.Errorf("%d does not fit in an unsigned 32-bit port field", v)
	}
	return uint32(v), nil
}

// Hex32 renders the bytes of Uint32(v) as eight hex digits, the way the
// listing shows raw port values.
func Hex32(v uint32) string {
	return fmt.Sprintf("%X", Uint32(v))
}

// PaddedName builds a fixed-width mnemonic from a prefix and a sequence
// number, zero-padding the number so the result has width characters.
func PaddedName(prefix string, n, width int) string {
	digits := width - len(prefix)
	if digits < 1 {
		digits = 1
	}
	return fmt.Sprintf("%s%0*d", prefix, digits, n)
}
