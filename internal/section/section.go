// Package section implements reading and writing of one LOZ section
// (header + compressed payload + payload CRC) at an explicit file
// offset.
//
// Grounded on loz_read_section_header/loz_write_section_header/
// loz_write_section_header_crc/loz_write_compdata/loz_read_compdata in
// _examples/original_source/lozfile.c. Sections are addressed by offset
// rather than a stream cursor because the iterator and scanner
// (packages lozfile, scanner) need to read sections out of sequence
// during resynchronization.
package section

import (
	"encoding/binary"
	"errors"
	"io"

	"github.com/smashkin/loz/internal/crc8"
)

// HeaderSize is the on-disk size of a section header: 2-byte marker +
// three little-endian u32 fields + 1 CRC byte.
const HeaderSize = 15

// Marker is the 2-byte section begin-marker.
var Marker = [2]byte{0xFA, 0xF5}

// ErrBadMarker is returned by ReadHeader when the bytes at the given
// offset do not begin with Marker.
var ErrBadMarker = errors.New("section: bad begin marker")

// ErrBadCRC is returned when a header or payload CRC does not match its
// recomputed value, or when a payload CRC placeholder (0x00) is read —
// meaning the two-phase write was never committed.
var ErrBadCRC = errors.New("section: bad crc")

// Header describes one section's fixed-size header fields.
type Header struct {
	Offset   int64 // file offset of the section's begin-marker
	RawPos   uint32
	RawSize  uint32
	CompSize uint32
	CRC      byte // as read/about to be written; 0x00 only transiently
	Valid    bool // true once the stored CRC has been verified
}

// End returns the file offset one past this section (where the next
// section's begin-marker would start), per spec.md §4.F.
func (h Header) End() int64 {
	return h.Offset + HeaderSize + int64(h.CompSize) + 1
}

func headerCRC(rawpos, rawsize, compsize uint32) byte {
	var buf [12]byte
	binary.LittleEndian.PutUint32(buf[0:4], rawpos)
	binary.LittleEndian.PutUint32(buf[4:8], rawsize)
	binary.LittleEndian.PutUint32(buf[8:12], compsize)
	return crc8.Placeholder(crc8.Array(buf[:], crc8.Init))
}

// WriteHeader writes a section header at offset with CRC byte 0x00 (a
// placeholder marking the header as not-yet-committed). It returns the
// real CRC value the caller must later persist with CommitHeaderCRC,
// once the payload has been written successfully — the two-phase write
// from spec.md §4.D / §9: if the process dies between this call and
// CommitHeaderCRC, the header is detectably invalid on reopen.
func WriteHeader(w io.WriterAt, offset int64, h Header) (crc byte, err error) {
	var buf [HeaderSize]byte
	buf[0], buf[1] = Marker[0], Marker[1]
	binary.LittleEndian.PutUint32(buf[2:6], h.RawPos)
	binary.LittleEndian.PutUint32(buf[6:10], h.RawSize)
	binary.LittleEndian.PutUint32(buf[10:14], h.CompSize)
	buf[14] = 0 // placeholder; committed later

	if _, err := w.WriteAt(buf[:], offset); err != nil {
		return 0, err
	}
	return headerCRC(h.RawPos, h.RawSize, h.CompSize), nil
}

// CommitHeaderCRC overwrites the single CRC byte of a previously-written
// header with its real value.
func CommitHeaderCRC(w io.WriterAt, offset int64, crc byte) error {
	_, err := w.WriteAt([]byte{crc}, offset+HeaderSize-1)
	return err
}

// WritePayload writes the compressed payload at offset (immediately
// following a section header) and appends its CRC byte.
func WritePayload(w io.WriterAt, offset int64, payload []byte) error {
	if _, err := w.WriteAt(payload, offset); err != nil {
		return err
	}
	crc := crc8.Placeholder(crc8.Array(payload, crc8.Init))
	_, err := w.WriteAt([]byte{crc}, offset+int64(len(payload)))
	return err
}

// ReadHeader reads and validates the 15-byte header at offset.
//
// On a CRC mismatch it returns (header, ErrBadCRC) with Valid left false
// and the parsed fields populated, so a caller doing resynchronization
// can still inspect Offset/End() without re-reading. On end of file it
// returns (Header{}, io.EOF). On a marker mismatch it returns
// (Header{}, ErrBadMarker) — this is not itself an error worth retrying
// at nearby offsets; callers scanning for markers only call ReadHeader
// at offsets the scanner already identified as marker candidates.
func ReadHeader(r io.ReaderAt, offset int64) (Header, error) {
	var buf [HeaderSize]byte
	n, err := r.ReadAt(buf[:], offset)
	if n < HeaderSize {
		if err == io.EOF || err == nil {
			return Header{}, io.EOF
		}
		return Header{}, err
	}

	if buf[0] != Marker[0] || buf[1] != Marker[1] {
		return Header{}, ErrBadMarker
	}

	h := Header{
		Offset:   offset,
		RawPos:   binary.LittleEndian.Uint32(buf[2:6]),
		RawSize:  binary.LittleEndian.Uint32(buf[6:10]),
		CompSize: binary.LittleEndian.Uint32(buf[10:14]),
		CRC:      buf[14],
	}

	want := headerCRC(h.RawPos, h.RawSize, h.CompSize)
	if want != h.CRC {
		return h, ErrBadCRC
	}
	h.Valid = true
	return h, nil
}

// ReadPayload reads compsize payload bytes at offset plus the trailing
// CRC byte, validating the CRC. A stored CRC of 0x00 is rejected as
// ErrBadCRC: it marks a payload whose two-phase write was never
// committed (spec.md §4.D).
func ReadPayload(r io.ReaderAt, offset int64, compsize uint32) ([]byte, error) {
	payload := make([]byte, compsize)
	n, err := r.ReadAt(payload, offset)
	if n < int(compsize) {
		if err == io.EOF || err == nil {
			return nil, io.EOF
		}
		return nil, err
	}

	var crcByte [1]byte
	n, err = r.ReadAt(crcByte[:], offset+int64(compsize))
	if n < 1 {
		if err == io.EOF || err == nil {
			return nil, io.EOF
		}
		return nil, err
	}

	if crcByte[0] == 0x00 {
		return nil, ErrBadCRC
	}

	want := crc8.Placeholder(crc8.Array(payload, crc8.Init))
	if want != crcByte[0] {
		return nil, ErrBadCRC
	}
	return payload, nil
}
