package lozfile

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smashkin/loz/internal/codec"
	"github.com/smashkin/loz/internal/section"
)

// makePattern builds the scenario-1 input: bytes 0x00..0x13 repeated to
// the given length.
func makePattern(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(i % 0x14)
	}
	return out
}

// TestRoundTripSmallLiteral is spec.md §8 scenario 1.
func TestRoundTripSmallLiteral(t *testing.T) {
	path := tempPath(t)
	input := makePattern(81920)

	w, err := Open(path, TruncateCreate, 4096, codec.FastLZ2, nil)
	require.NoError(t, err)
	_, err = w.Write(input)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := Open(path, ReadOnly, 4096, codec.FastLZ2, nil)
	require.NoError(t, err)
	defer r.Close()

	out := make([]byte, 81920)
	n, err := r.Read(out)
	require.NoError(t, err)
	require.Equal(t, 81920, n)
	require.Equal(t, input, out)
}

// TestIncrementalAppend is spec.md §8 scenario 2.
func TestIncrementalAppend(t *testing.T) {
	path := tempPath(t)
	input := makePattern(81920)

	w1, err := Open(path, TruncateCreate, 4096, codec.FastLZ2, nil)
	require.NoError(t, err)
	_, err = w1.Write(input[:40960])
	require.NoError(t, err)
	require.NoError(t, w1.Close())

	w2, err := Open(path, Update, 4096, codec.FastLZ2, nil)
	require.NoError(t, err)
	_, err = w2.Write(input[40960:])
	require.NoError(t, err)
	require.NoError(t, w2.Close())

	r, err := Open(path, ReadOnly, 4096, codec.FastLZ2, nil)
	require.NoError(t, err)
	defer r.Close()

	out := make([]byte, 81920)
	total := 0
	for total < len(out) {
		n, err := r.Read(out[total:])
		total += n
		if err != nil {
			break
		}
		if n == 0 {
			break
		}
	}
	require.Equal(t, 81920, total)
	require.Equal(t, input, out)

	sections := 0
	h, err := r.First()
	for err == nil {
		sections++
		h, err = r.Next(h)
	}
	require.Equal(t, 20, sections)
}

// TestCorruptedPayloadCRCFillsPlaceholder is spec.md §8 scenario 3.
func TestCorruptedPayloadCRCFillsPlaceholder(t *testing.T) {
	path := tempPath(t)
	input := make([]byte, 4096)
	for i := range input {
		input[i] = byte(i)
	}

	w, err := Open(path, TruncateCreate, 4096, codec.None, nil)
	require.NoError(t, err)
	_, err = w.Write(input)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// Flip the payload CRC byte, at FileHeaderSize + sectionHeaderSize + compsize.
	raw, err := os.OpenFile(path, os.O_RDWR, 0o644)
	require.NoError(t, err)
	crcOffset := int64(FileHeaderSize + section.HeaderSize + 4096)
	var b [1]byte
	_, err = raw.ReadAt(b[:], crcOffset)
	require.NoError(t, err)
	b[0] ^= 0xFF
	if b[0] == 0 {
		b[0] = 1
	}
	_, err = raw.WriteAt(b[:], crcOffset)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	r, err := Open(path, ReadOnly, 4096, codec.None, nil)
	require.NoError(t, err)
	defer r.Close()

	out := make([]byte, 4096)
	n, err := r.Read(out)
	require.NoError(t, err)
	require.Equal(t, 4096, n)
	for _, b := range out {
		require.Equal(t, byte(placeholderByte), b)
	}

	n, err = r.Read(out)
	require.Equal(t, 0, n)
	require.Error(t, err)
	lozErr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, KindEOF, lozErr.Kind)
}

// TestCorruptedHeaderRecoversNeighboringSections is spec.md §8 scenario 4.
func TestCorruptedHeaderRecoversNeighboringSections(t *testing.T) {
	path := tempPath(t)
	s1 := make([]byte, 4096)
	s2 := make([]byte, 4096)
	s3 := make([]byte, 4096)
	for i := range s1 {
		s1[i] = 0x11
		s2[i] = 0x22
		s3[i] = 0x33
	}

	w, err := Open(path, TruncateCreate, 4096, codec.None, nil)
	require.NoError(t, err)
	_, err = w.Write(s1)
	require.NoError(t, err)
	_, err = w.Write(s2)
	require.NoError(t, err)
	_, err = w.Write(s3)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	// Section 2 begins at FileHeaderSize + 1*(section.HeaderSize+4096+1).
	sectionSpan := int64(section.HeaderSize + 4096 + 1)
	section2Offset := int64(FileHeaderSize) + sectionSpan
	headerCRCOffset := section2Offset + section.HeaderSize - 1

	raw, err := os.OpenFile(path, os.O_RDWR, 0o644)
	require.NoError(t, err)
	_, err = raw.WriteAt([]byte{0xAB}, headerCRCOffset)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	r, err := Open(path, ReadOnly, 4096, codec.None, nil)
	require.NoError(t, err)
	defer r.Close()

	out := make([]byte, 4096*3)
	total := 0
	for total < len(out) {
		n, err := r.Read(out[total:])
		total += n
		if err != nil || n == 0 {
			break
		}
	}
	require.Equal(t, 4096*3, total)

	require.Equal(t, s1, out[:4096])
	for _, b := range out[4096:8192] {
		require.Equal(t, byte(placeholderByte), b)
	}
	require.Equal(t, s3, out[8192:])
}
