package lozfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/smashkin/loz/internal/codec"
	"github.com/smashkin/loz/internal/section"
)

func tempPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "archive.lzf")
}

func TestOpenRejectsSegmentSizeOutOfRange(t *testing.T) {
	path := tempPath(t)

	_, err := Open(path, TruncateCreate, 31, codec.None, nil)
	require.Error(t, err)

	_, err = Open(path, TruncateCreate, 65536, codec.None, nil)
	require.Error(t, err)
}

func TestOpenAcceptsSegmentSizeBoundaries(t *testing.T) {
	for _, size := range []int{MinSegmentSize, MaxSegmentSize} {
		path := tempPath(t)
		f, err := Open(path, TruncateCreate, size, codec.None, nil)
		require.NoError(t, err)
		require.NoError(t, f.Close())
	}
}

func TestEmptyFileIsJustTheHeader(t *testing.T) {
	path := tempPath(t)

	f, err := Open(path, TruncateCreate, 4096, codec.None, nil)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.EqualValues(t, FileHeaderSize, info.Size())

	r, err := Open(path, ReadOnly, 4096, codec.None, nil)
	require.NoError(t, err)
	defer r.Close()

	buf := make([]byte, 16)
	n, err := r.Read(buf)
	require.Equal(t, 0, n)
	require.Error(t, err)
	lozErr, ok := err.(*Error)
	require.True(t, ok)
	require.Equal(t, KindEOF, lozErr.Kind)
}

func TestSingleByteNoneCodecProducesExpectedSize(t *testing.T) {
	path := tempPath(t)

	f, err := Open(path, TruncateCreate, 4096, codec.None, nil)
	require.NoError(t, err)
	n, err := f.Write([]byte{0x99})
	require.NoError(t, err)
	require.Equal(t, 1, n)
	require.NoError(t, f.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.EqualValues(t, FileHeaderSize+section.HeaderSize+1+1, info.Size())
}

func TestFilesizeOnUnopenedHandle(t *testing.T) {
	var f File
	size, err := f.Filesize()
	require.Equal(t, int64(-1), size)
	require.ErrorIs(t, err, ErrNotOpen)
}

func TestCrashBetweenHeaderAndPayloadRecoversOnUpdate(t *testing.T) {
	path := tempPath(t)

	f, err := Open(path, TruncateCreate, 4096, codec.FastLZ2, nil)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	// Simulate phase-1-only: write a section header (CRC placeholder
	// 0x00) with no payload behind it, per spec.md §8 scenario 7.
	raw, err := os.OpenFile(path, os.O_RDWR, 0o644)
	require.NoError(t, err)
	h := section.Header{Offset: FileHeaderSize, RawPos: 0, RawSize: 10, CompSize: 10}
	_, err = section.WriteHeader(raw, h.Offset, h)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	reopened, err := Open(path, Update, 4096, codec.FastLZ2, nil)
	require.NoError(t, err)
	defer reopened.Close()

	require.EqualValues(t, FileHeaderSize, reopened.wrFPos)
	require.EqualValues(t, 0, reopened.wrRawPos)
}
