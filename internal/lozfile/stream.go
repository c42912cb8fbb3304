package lozfile

import (
	"fmt"
	"io"

	"github.com/smashkin/loz/internal/codec"
	"github.com/smashkin/loz/internal/section"
)

// placeholderByte substitutes for the raw contents of a section whose
// data could not be recovered, per spec.md's glossary entry for
// "Placeholder byte".
const placeholderByte = 0x3F

// Write appends p to the raw stream, buffering until a full segment
// accumulates and flushing it as a compressed section. Grounded on
// loz_write in _examples/original_source/lozfile.c.
func (f *File) Write(p []byte) (int, error) {
	if f == nil || f.f == nil {
		return 0, ErrNotOpen
	}
	if f.mode == ReadOnly {
		return 0, newErr(KindInvalidArgument, -1, fmt.Errorf("lozfile: file opened read-only"))
	}

	total := 0
	for total < len(p) {
		n := copy(f.wrBuf[f.wrPos:], p[total:])
		f.wrPos += n
		total += n
		if f.wrPos == f.segmentSize {
			if err := f.flushWriteBuffer(); err != nil {
				return total, err
			}
		}
	}
	return total, nil
}

// flushWriteBuffer writes the current write buffer as one section, using
// the two-phase header write from package section: header with a CRC
// placeholder, then payload and its CRC, then the committed header CRC.
// A no-op when the buffer is empty, matching spec.md §4.G's explicit-flush
// semantics.
func (f *File) flushWriteBuffer() error {
	if f.wrPos == 0 {
		return nil
	}

	raw := f.wrBuf[:f.wrPos]
	payload, err := codec.Compress(f.compression, raw)
	if err != nil {
		return newErr(KindCodecFailure, f.wrFPos, err)
	}

	h := section.Header{
		Offset:   f.wrFPos,
		RawPos:   f.wrRawPos,
		RawSize:  uint32(f.wrPos),
		CompSize: uint32(len(payload)),
	}
	crc, err := section.WriteHeader(f.f, h.Offset, h)
	if err != nil {
		return newErr(KindIO, h.Offset, err)
	}
	if err := section.WritePayload(f.f, h.Offset+section.HeaderSize, payload); err != nil {
		return newErr(KindIO, h.Offset, err)
	}
	if err := section.CommitHeaderCRC(f.f, h.Offset, crc); err != nil {
		return newErr(KindIO, h.Offset, err)
	}

	f.wrRawPos += uint32(f.wrPos)
	f.wrFPos = h.End()
	f.wrPos = 0
	return nil
}

// Read serves up to len(p) bytes of the decompressed raw stream,
// fetching and decoding sections as needed. It returns a short count only
// at genuine end of stream; corruption never shortens a read — damaged
// sections are filled with placeholderByte for their inferred logical
// length, per spec.md §4.G/§9. Grounded on loz_read.
func (f *File) Read(p []byte) (int, error) {
	if f == nil || f.f == nil {
		return 0, ErrNotOpen
	}

	total := 0
	for total < len(p) {
		if f.rdPos >= len(f.rdBuf) {
			if f.rdAtEOF {
				break
			}
			if err := f.fetchNextReadSection(); err != nil {
				if e, ok := err.(*Error); ok && e.Kind == KindEOF {
					break
				}
				return total, err
			}
			continue
		}
		n := copy(p[total:], f.rdBuf[f.rdPos:])
		f.rdPos += n
		total += n
	}

	if total == 0 && f.rdAtEOF {
		return 0, newErr(KindEOF, f.rdFPos, io.EOF)
	}
	return total, nil
}

// fetchNextReadSection advances the read cursor to the next section (or
// resumes a pending one found while recovering from a corrupted header)
// and fills f.rdBuf with that section's decoded or placeholder-filled
// bytes.
func (f *File) fetchNextReadSection() error {
	if f.rdPending != nil {
		h := *f.rdPending
		f.rdPending = nil
		return f.loadSection(h)
	}

	var h section.Header
	var err error
	if !f.rdStarted {
		h, err = f.First()
		f.rdStarted = true
	} else {
		h, err = f.Next(f.rdCurrent)
	}

	if err != nil {
		e, ok := err.(*Error)
		if ok && e.Kind == KindBadCRC {
			return f.recoverCorruptedHeader(e.Offset)
		}
		if ok && e.Kind == KindEOF {
			f.rdAtEOF = true
		}
		return err
	}
	return f.loadSection(h)
}

// recoverCorruptedHeader handles a section header whose own CRC failed:
// its rawsize field cannot be trusted, so the next verified section is
// located by scanning forward, and the gap's length is inferred as
// next.RawPos - f.rdRawPos, per spec.md §4.G.
func (f *File) recoverCorruptedHeader(offset int64) error {
	f.log.Debug("lozfile: corrupted section header, resynchronizing", "offset", offset)
	next, err := f.scanForward(offset + 1)
	if err != nil {
		if e, ok := err.(*Error); ok && e.Kind == KindEOF {
			f.rdAtEOF = true
		}
		return err
	}

	gap := next.RawPos - f.rdRawPos
	f.fillPlaceholder(int(gap))
	f.rdPending = &next
	return nil
}

// loadSection reads and decodes a verified header's payload, falling back
// to a placeholder fill if the payload CRC itself fails to verify.
func (f *File) loadSection(h section.Header) error {
	payload, err := section.ReadPayload(f.f, h.Offset+section.HeaderSize, h.CompSize)
	if err != nil {
		f.log.Debug("lozfile: corrupted section payload, filling placeholder", "offset", h.Offset)
		f.fillPlaceholder(int(h.RawSize))
		f.rdCurrent = h
		f.rdFPos = h.End()
		return nil
	}

	raw, err := codec.Decompress(f.compression, payload, int(h.RawSize))
	if err != nil {
		return newErr(KindCodecFailure, h.Offset, err)
	}

	f.rdBuf = raw
	f.rdPos = 0
	f.rdRawPos += h.RawSize
	f.rdCurrent = h
	f.rdFPos = h.End()
	return nil
}

// fillPlaceholder replaces the read buffer with n copies of
// placeholderByte and advances the logical raw position, preserving
// stream length across unrecoverable corruption.
func (f *File) fillPlaceholder(n int) {
	buf := make([]byte, n)
	for i := range buf {
		buf[i] = placeholderByte
	}
	f.rdBuf = buf
	f.rdPos = 0
	f.rdRawPos += uint32(n)
}
