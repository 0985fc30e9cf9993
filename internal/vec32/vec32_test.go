package vec32

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackUnpack(t *testing.T) {
	v := []float32{1.5, -2.25, 0, 3.75}

	b := Pack(v)
	require.Len(t, b, 16)

	got, err := Unpack(b)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestPackLittleEndian(t *testing.T) {
	// 1.0 is 0x3F800000.
	b := Pack([]float32{1.0})
	assert.Equal(t, []byte{0x00, 0x00, 0x80, 0x3F}, b)
}

func TestUnpackBadLength(t *testing.T) {
	_, err := Unpack([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestPackEmpty(t *testing.T) {
	assert.Empty(t, Pack(nil))
}
