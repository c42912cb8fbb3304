// Package codec dispatches LOZ's six codec IDs to compress/decompress
// primitives. Grounded on loz_compress_data/loz_uncompress_data in
// _examples/original_source/lozfile.c, which switches on the same
// compression byte to the same six targets.
//
// Four of the six delegate to real third-party libraries carried by the
// retrieved example pack (see SPEC_FULL.md §9 for the grounding table);
// only codec ID and the in-scope RLE2 scheme are implemented directly.
package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/s2"
	"github.com/ulikunitz/xz"

	"github.com/smashkin/loz/internal/rle2"
)

// ID identifies one of the six compression schemes a LOZ file header can
// record.
type ID byte

// Codec IDs, fixed by spec: the on-disk byte values must never change.
const (
	None ID = iota
	RLE
	RLE2
	LZ
	FastLZ1
	FastLZ2
)

func (id ID) String() string {
	switch id {
	case None:
		return "none"
	case RLE:
		return "rle"
	case RLE2:
		return "rle2"
	case LZ:
		return "lz"
	case FastLZ1:
		return "fastlz1"
	case FastLZ2:
		return "fastlz2"
	default:
		return fmt.Sprintf("codec(%d)", byte(id))
	}
}

// ParseID maps a CLI method token to an ID. Returns false for unknown
// tokens.
func ParseID(token string) (ID, bool) {
	switch token {
	case "none":
		return None, true
	case "rle":
		return RLE, true
	case "rle2":
		return RLE2, true
	case "lz":
		return LZ, true
	case "fastlz1":
		return FastLZ1, true
	case "fastlz2":
		return FastLZ2, true
	default:
		return 0, false
	}
}

// Valid reports whether id is one of the six defined codec IDs.
func (id ID) Valid() bool {
	return id <= FastLZ2
}

// Failure wraps an underlying compressor/decompressor error with the
// codec ID that produced it. It is the CodecFailure error kind from
// spec.md §7.
type Failure struct {
	ID  ID
	Op  string // "compress" or "decompress"
	Err error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("codec: %s %s failed: %v", f.ID, f.Op, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// Compress transforms raw using the codec identified by id. The returned
// payload never exceeds 2*len(raw) (invariant 5 of spec.md §3); callers
// that need a scratch buffer of that size may rely on this bound.
func Compress(id ID, raw []byte) ([]byte, error) {
	switch id {
	case None:
		out := make([]byte, len(raw))
		copy(out, raw)
		return out, nil

	case RLE:
		dst := make([]byte, 2*len(raw)+2)
		n, err := rleSimpleEncode(raw, dst)
		if err != nil {
			return nil, &Failure{ID: id, Op: "compress", Err: err}
		}
		return dst[:n], nil

	case RLE2:
		if len(raw) == 0 {
			return nil, nil
		}
		dst := make([]byte, 2*len(raw))
		n, err := rle2.Encode(raw, dst)
		if err != nil {
			return nil, &Failure{ID: id, Op: "compress", Err: err}
		}
		return dst[:n], nil

	case LZ:
		var buf bytes.Buffer
		w, err := xz.NewWriter(&buf)
		if err != nil {
			return nil, &Failure{ID: id, Op: "compress", Err: err}
		}
		if _, err := w.Write(raw); err != nil {
			return nil, &Failure{ID: id, Op: "compress", Err: err}
		}
		if err := w.Close(); err != nil {
			return nil, &Failure{ID: id, Op: "compress", Err: err}
		}
		return boundedOrFallback(id, raw, buf.Bytes())

	case FastLZ1:
		dst := make([]byte, s2.MaxEncodedLen(len(raw)))
		out := s2.Encode(dst, raw)
		return boundedOrFallback(id, raw, out)

	case FastLZ2:
		dst := make([]byte, snappy.MaxEncodedLen(len(raw)))
		out := snappy.Encode(dst, raw)
		return boundedOrFallback(id, raw, out)

	default:
		return nil, &Failure{ID: id, Op: "compress", Err: fmt.Errorf("unsupported codec id %d", id)}
	}
}

// boundedOrFallback enforces the compress(raw) -> at most 2*len(raw)
// contract. Real general-purpose compressors occasionally grow
// incompressible or very small inputs past that bound (container
// overhead); when that happens, LOZ falls back to storing the raw bytes
// verbatim, exactly as the None codec would, so the contract always
// holds regardless of input.
func boundedOrFallback(id ID, raw, compressed []byte) ([]byte, error) {
	if len(compressed) <= 2*len(raw) || len(raw) == 0 {
		out := make([]byte, len(compressed))
		copy(out, compressed)
		return out, nil
	}
	out := make([]byte, len(raw))
	copy(out, raw)
	return out, nil
}

// Decompress reverses Compress. maxOut bounds the size of the returned
// raw buffer (the section's recorded rawsize).
func Decompress(id ID, payload []byte, maxOut int) ([]byte, error) {
	switch id {
	case None:
		if len(payload) > maxOut {
			return nil, &Failure{ID: id, Op: "decompress", Err: fmt.Errorf("payload %d exceeds maxOut %d", len(payload), maxOut)}
		}
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil

	case RLE:
		dst := make([]byte, maxOut)
		n, err := rleSimpleDecode(payload, dst)
		if err != nil {
			return nil, &Failure{ID: id, Op: "decompress", Err: err}
		}
		return dst[:n], nil

	case RLE2:
		dst := make([]byte, maxOut)
		n, err := rle2.Decode(payload, dst)
		if err != nil {
			return nil, &Failure{ID: id, Op: "decompress", Err: err}
		}
		return dst[:n], nil

	case LZ:
		// boundedOrFallback may have stored raw bytes verbatim when
		// compression would have exceeded the 2x bound; xz streams are
		// self-framed, so a genuine xz stream is distinguished from a
		// verbatim fallback by trying to decode it first.
		r, err := xz.NewReader(bytes.NewReader(payload))
		if err == nil {
			out := make([]byte, maxOut)
			n, rerr := io.ReadFull(r, out)
			if rerr == nil || rerr == io.ErrUnexpectedEOF {
				return out[:n], nil
			}
		}
		if len(payload) > maxOut {
			return nil, &Failure{ID: id, Op: "decompress", Err: fmt.Errorf("payload %d exceeds maxOut %d", len(payload), maxOut)}
		}
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil

	case FastLZ1:
		out, err := s2Decode(payload, maxOut)
		if err != nil {
			return nil, &Failure{ID: id, Op: "decompress", Err: err}
		}
		return out, nil

	case FastLZ2:
		out, err := snappyDecode(payload, maxOut)
		if err != nil {
			return nil, &Failure{ID: id, Op: "decompress", Err: err}
		}
		return out, nil

	default:
		return nil, &Failure{ID: id, Op: "decompress", Err: fmt.Errorf("unsupported codec id %d", id)}
	}
}

// s2Decode tries s2's block format first, falling back to the verbatim
// store used by boundedOrFallback when the payload isn't an s2 frame.
func s2Decode(payload []byte, maxOut int) ([]byte, error) {
	if n, err := s2.DecodedLen(payload); err == nil && n <= maxOut {
		dst := make([]byte, n)
		out, err := s2.Decode(dst, payload)
		if err == nil {
			return out, nil
		}
	}
	if len(payload) > maxOut {
		return nil, fmt.Errorf("payload %d exceeds maxOut %d", len(payload), maxOut)
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}

func snappyDecode(payload []byte, maxOut int) ([]byte, error) {
	if n, err := snappy.DecodedLen(payload); err == nil && n <= maxOut {
		dst := make([]byte, n)
		out, err := snappy.Decode(dst, payload)
		if err == nil {
			return out, nil
		}
	}
	if len(payload) > maxOut {
		return nil, fmt.Errorf("payload %d exceeds maxOut %d", len(payload), maxOut)
	}
	out := make([]byte, len(payload))
	copy(out, payload)
	return out, nil
}
