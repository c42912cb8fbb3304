package lozfile

import (
	"io"

	"github.com/smashkin/loz/internal/codec"
	"github.com/smashkin/loz/internal/crc8"
)

// FileHeaderSize is the on-disk size of the 6-byte LOZ file header.
const FileHeaderSize = 6

// Version is the only defined file format version.
const Version = 0x00

var magic = [3]byte{'L', 'O', 'Z'}

type fileHeader struct {
	Version     byte
	Compression codec.ID
	CRC         byte
}

func fileHeaderCRC(version byte, compression codec.ID) byte {
	return crc8.Placeholder(crc8.Array([]byte{version, byte(compression)}, crc8.Init))
}

func writeFileHeader(w io.WriterAt, compression codec.ID) (fileHeader, error) {
	h := fileHeader{Version: Version, Compression: compression}
	h.CRC = fileHeaderCRC(h.Version, h.Compression)

	buf := [FileHeaderSize]byte{magic[0], magic[1], magic[2], h.Version, byte(h.Compression), h.CRC}
	if _, err := w.WriteAt(buf[:], 0); err != nil {
		return fileHeader{}, newErr(KindIO, 0, err)
	}
	return h, nil
}

func readFileHeader(r io.ReaderAt) (fileHeader, error) {
	var buf [FileHeaderSize]byte
	n, err := r.ReadAt(buf[:], 0)
	if n < FileHeaderSize {
		if err == io.EOF || err == nil {
			return fileHeader{}, newErr(KindEOF, 0, io.EOF)
		}
		return fileHeader{}, newErr(KindIO, 0, err)
	}

	if buf[0] != magic[0] || buf[1] != magic[1] || buf[2] != magic[2] {
		return fileHeader{}, newErr(KindUnsupported, 0, errBadMagic)
	}

	h := fileHeader{Version: buf[3], Compression: codec.ID(buf[4]), CRC: buf[5]}
	if h.Version != Version {
		return fileHeader{}, newErr(KindUnsupported, 0, errBadVersion)
	}
	if !h.Compression.Valid() {
		return fileHeader{}, newErr(KindUnsupported, 0, errBadCodec)
	}

	want := fileHeaderCRC(h.Version, h.Compression)
	if want != h.CRC {
		return fileHeader{}, newErr(KindBadCRC, 0, errBadFileHeaderCRC)
	}
	return h, nil
}
