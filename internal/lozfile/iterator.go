package lozfile

import (
	"io"

	"github.com/smashkin/loz/internal/scanner"
	"github.com/smashkin/loz/internal/section"
)

// First reads the section immediately following the file header. Grounded
// on loz_section_first in _examples/original_source/lozfile.c: unlike
// Next, First never falls back to scanning — a corrupted first section is
// the caller's to police, since there is no earlier section to chain from.
func (f *File) First() (section.Header, error) {
	if f == nil || f.f == nil {
		return section.Header{}, ErrNotOpen
	}
	return f.readHeaderAt(FileHeaderSize)
}

// Next returns the section following current. If current's header was
// verified, Next computes the adjacent offset directly and reads there,
// propagating BadCrc rather than recovering from it — recovery is the
// streaming read layer's job (SPEC_FULL.md §7). If current's header was
// not verified, Next resynchronizes by scanning forward for the
// begin-marker, skipping candidates that fail CRC, returning the first
// verified header or Eof.
//
// Grounded on loz_section_next in _examples/original_source/lozfile.c.
func (f *File) Next(current section.Header) (section.Header, error) {
	if f == nil || f.f == nil {
		return section.Header{}, ErrNotOpen
	}
	if current.Valid {
		return f.readHeaderAt(current.End())
	}
	return f.scanForward(current.Offset + 1)
}

// Prev scans backward from current.Offset-1 for the begin-marker,
// attempting a header read at each candidate and returning the first
// verified header. Grounded on loz_section_prev.
func (f *File) Prev(current section.Header) (section.Header, error) {
	if f == nil || f.f == nil {
		return section.Header{}, ErrNotOpen
	}
	return f.scanBackward(current.Offset - 1)
}

// Last locates the last valid section by scanning backward from end of
// file. Grounded on loz_section_last.
func (f *File) Last() (section.Header, error) {
	if f == nil || f.f == nil {
		return section.Header{}, ErrNotOpen
	}
	size, err := f.Filesize()
	if err != nil {
		return section.Header{}, err
	}
	if size <= FileHeaderSize {
		return section.Header{}, newErr(KindEOF, size, io.EOF)
	}
	return f.scanBackward(size - 1)
}

// readHeaderAt reads one header at offset, translating section package
// errors into *Error. A verified header is returned as-is; a BadCrc
// header is returned alongside its *Error so iterator callers (and the
// streaming layer) can still see Offset/End() without a second read.
func (f *File) readHeaderAt(offset int64) (section.Header, error) {
	h, err := section.ReadHeader(f.f, offset)
	switch err {
	case nil:
		return h, nil
	case io.EOF:
		return section.Header{}, newErr(KindEOF, offset, io.EOF)
	case section.ErrBadCRC:
		return h, newErr(KindBadCRC, offset, err)
	case section.ErrBadMarker:
		return section.Header{}, newErr(KindIO, offset, err)
	default:
		return section.Header{}, newErr(KindIO, offset, err)
	}
}

// scanForward resynchronizes starting at byte offset from, skipping
// marker hits whose header fails CRC, stopping at the first verified
// header or Eof.
func (f *File) scanForward(from int64) (section.Header, error) {
	pos := from
	for {
		hit, err := scanner.Forward(f.f, pos)
		if err == scanner.ErrNotFound {
			return section.Header{}, newErr(KindEOF, pos, io.EOF)
		}
		if err != nil {
			return section.Header{}, newErr(KindIO, pos, err)
		}
		h, rerr := section.ReadHeader(f.f, hit)
		if rerr == nil {
			f.log.Debug("lozfile: resynchronized forward", "offset", hit)
			return h, nil
		}
		if rerr == io.EOF {
			return section.Header{}, newErr(KindEOF, hit, io.EOF)
		}
		// ErrBadCRC or ErrBadMarker (false positive): keep scanning past
		// this candidate.
		pos = hit + 1
	}
}

// scanBackward resynchronizes starting at byte offset from, scanning
// toward the file header, skipping marker hits whose header fails CRC.
func (f *File) scanBackward(from int64) (section.Header, error) {
	pos := from
	for pos >= FileHeaderSize {
		hit, err := scanner.Reverse(f.f, pos)
		if err == scanner.ErrNotFound {
			return section.Header{}, newErr(KindEOF, pos, io.EOF)
		}
		if err != nil {
			return section.Header{}, newErr(KindIO, pos, err)
		}
		h, rerr := section.ReadHeader(f.f, hit)
		if rerr == nil {
			return h, nil
		}
		pos = hit - 1
	}
	return section.Header{}, newErr(KindEOF, from, io.EOF)
}
