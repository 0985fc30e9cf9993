// Package vec32 implements the fixed-width binary encoding used to exchange
// float32 vectors with the database: each component is serialized as four
// little-endian bytes, with no header or padding.
package vec32

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Pack serializes v into the wire format.
func Pack(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Unpack deserializes a wire-format blob back into a vector.
func Unpack(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("vec32: blob length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
