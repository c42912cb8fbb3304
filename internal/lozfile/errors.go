package lozfile

import "fmt"

// Kind classifies the errors this package can return, mirroring the
// LOZ_OK/LOZ_ERROR/LOZ_EOF/LOZ_BAD_CRC/LOZ_UNSUPPORTED return codes of
// _examples/original_source/lozfile.c, generalized into idiomatic typed
// Go errors usable with errors.Is/errors.As.
type Kind int

const (
	// KindIO indicates an underlying file operation failed.
	KindIO Kind = iota
	// KindEOF indicates end-of-file was reached where more data was expected.
	KindEOF
	// KindBadCRC indicates a header or payload checksum mismatch.
	KindBadCRC
	// KindUnsupported indicates an unknown file version or codec ID.
	KindUnsupported
	// KindInvalidArgument indicates a caller-supplied parameter was out of range.
	KindInvalidArgument
	// KindCodecFailure indicates the underlying compressor/decompressor failed.
	KindCodecFailure
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindEOF:
		return "eof"
	case KindBadCRC:
		return "bad_crc"
	case KindUnsupported:
		return "unsupported"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindCodecFailure:
		return "codec_failure"
	default:
		return "unknown"
	}
}

// Error is the error type returned throughout this package. Offset, when
// non-negative, is the file offset associated with the failure — most
// useful for KindBadCRC, where the iterator and scanner use it to resume
// past the offending section.
type Error struct {
	Kind   Kind
	Offset int64
	Err    error
}

func (e *Error) Error() string {
	if e.Offset >= 0 {
		return fmt.Sprintf("lozfile: %s at offset %d: %v", e.Kind, e.Offset, e.Err)
	}
	return fmt.Sprintf("lozfile: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, so callers
// can write errors.Is(err, &lozfile.Error{Kind: lozfile.KindBadCRC}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func newErr(kind Kind, offset int64, err error) *Error {
	return &Error{Kind: kind, Offset: offset, Err: err}
}

// ErrNotOpen is returned by operations attempted on a zero-value or
// closed File.
var ErrNotOpen = newErr(KindInvalidArgument, -1, fmt.Errorf("file is not open"))

var (
	errBadMagic         = fmt.Errorf("not a LOZ file: bad magic")
	errBadVersion       = fmt.Errorf("unsupported LOZ file version")
	errBadCodec         = fmt.Errorf("unsupported codec id in file header")
	errBadFileHeaderCRC = fmt.Errorf("file header CRC mismatch")
)
