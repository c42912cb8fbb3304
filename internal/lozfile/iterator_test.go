package lozfile

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smashkin/loz/internal/codec"
	"github.com/smashkin/loz/internal/section"
)

func buildThreeSectionArchive(t *testing.T) string {
	t.Helper()
	path := tempPath(t)

	w, err := Open(path, TruncateCreate, 1024, codec.None, nil)
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		buf := make([]byte, 1024)
		for j := range buf {
			buf[j] = byte(i)
		}
		_, err := w.Write(buf)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return path
}

func TestIteratorFirstNextLast(t *testing.T) {
	path := buildThreeSectionArchive(t)
	f, err := Open(path, ReadOnly, 1024, codec.None, nil)
	require.NoError(t, err)
	defer f.Close()

	first, err := f.First()
	require.NoError(t, err)
	require.True(t, first.Valid)
	require.EqualValues(t, 0, first.RawPos)

	second, err := f.Next(first)
	require.NoError(t, err)
	require.EqualValues(t, 1024, second.RawPos)

	third, err := f.Next(second)
	require.NoError(t, err)
	require.EqualValues(t, 2048, third.RawPos)

	_, err = f.Next(third)
	require.Error(t, err)
	lozErr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, KindEOF, lozErr.Kind)

	last, err := f.Last()
	require.NoError(t, err)
	require.Equal(t, third.Offset, last.Offset)
}

func TestIteratorPrev(t *testing.T) {
	path := buildThreeSectionArchive(t)
	f, err := Open(path, ReadOnly, 1024, codec.None, nil)
	require.NoError(t, err)
	defer f.Close()

	last, err := f.Last()
	require.NoError(t, err)

	mid, err := f.Prev(last)
	require.NoError(t, err)
	require.EqualValues(t, 1024, mid.RawPos)

	first, err := f.Prev(mid)
	require.NoError(t, err)
	require.EqualValues(t, 0, first.RawPos)
}

// TestBitFlipInHeaderIsDetectedAndResyncedPast covers the boundary
// behavior from spec.md §8: flipping any single bit in a section header
// causes that section to be detected as BadCrc and resynchronized past.
func TestBitFlipInHeaderIsDetectedAndResyncedPast(t *testing.T) {
	path := buildThreeSectionArchive(t)

	sectionSpan := int64(section.HeaderSize + 1024 + 1)
	secondOffset := int64(FileHeaderSize) + sectionSpan

	raw, err := os.OpenFile(path, os.O_RDWR, 0o644)
	require.NoError(t, err)
	var b [1]byte
	_, err = raw.ReadAt(b[:], secondOffset+2) // inside the rawpos field
	require.NoError(t, err)
	b[0] ^= 0x01
	_, err = raw.WriteAt(b[:], secondOffset+2)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	f, err := Open(path, ReadOnly, 1024, codec.None, nil)
	require.NoError(t, err)
	defer f.Close()

	first, err := f.First()
	require.NoError(t, err)

	_, err = f.Next(first)
	require.Error(t, err)
	lozErr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, KindBadCRC, lozErr.Kind)
}
