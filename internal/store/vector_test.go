package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeVector(t *testing.T) {
	assert.Equal(t, "[0.5,-1,0.25]", EncodeVector([]float32{0.5, -1, 0.25}))
	assert.Equal(t, "[]", EncodeVector(nil))
	assert.Equal(t, "[0,0,0]", EncodeVector(ZeroVector(3)))
}

func TestDecodeVector(t *testing.T) {
	got, err := DecodeVector("[0.5,-1,0.25]")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -1, 0.25}, got)

	got, err = DecodeVector("[ 0.5, -1 , 0.25 ]")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, -1, 0.25}, got)

	got, err = DecodeVector("[]")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDecodeVectorRejectsGarbage(t *testing.T) {
	for _, bad := range []string{"", "0.5,1", "[0.5,x]", "{0.5}"} {
		_, err := DecodeVector(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestVectorRoundTrip(t *testing.T) {
	in := []float32{0.123456, -0.987654, 3072.5, 0}
	got, err := DecodeVector(EncodeVector(in))
	require.NoError(t, err)
	assert.Equal(t, in, got)
}
