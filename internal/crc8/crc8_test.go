package crc8

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteAndArrayAgree(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")

	byByte := byte(Init)
	for _, b := range data {
		byByte = Byte(b, byByte)
	}

	byArray := Array(data, Init)

	assert.Equal(t, byArray, byByte)
}

func TestArrayEmpty(t *testing.T) {
	require.Equal(t, byte(Init), Array(nil, Init))
}

func TestPlaceholderRemapsZero(t *testing.T) {
	assert.Equal(t, byte(0x01), Placeholder(0x00))
	assert.Equal(t, byte(0x42), Placeholder(0x42))
}

func TestTableDeterministic(t *testing.T) {
	// Regression pin: table[0] and table[1] for poly 0x07, since an
	// accidental reflected/bit-order variant would change these.
	assert.Equal(t, byte(0x00), table[0])
	assert.Equal(t, byte(0x07), table[1])
}
