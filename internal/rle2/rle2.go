// Package rle2 implements the LOZ RLE2 byte-level run/literal compression
// scheme: a sequence of (signed 8-bit counter, payload) records.
//
// A positive counter in [1,127] introduces a run: the single byte that
// follows is repeated counter times. A negative counter in [-127,-1]
// introduces a literal run: the next |counter| bytes are copied verbatim.
// The counter value 0 is never written and is malformed on decode.
//
// Grounded on compress_rle2.c (rle_compress/rle_decompress) from the
// original lozfile sources: the encoder state machine below is a
// line-for-line port of that file's pointer-walking logic, translated to
// bounds-checked slice indices.
package rle2

import "errors"

// ErrOverflow is returned when an encode or decode would write past the
// caller-supplied output buffer.
var ErrOverflow = errors.New("rle2: output buffer overflow")

// ErrMalformed is returned by Decode when a counter byte of 0 is
// encountered; 0 is never a valid counter.
var ErrMalformed = errors.New("rle2: malformed stream: zero counter")

// ErrUnderrun is returned by Decode when the input is exhausted in the
// middle of a run or literal.
var ErrUnderrun = errors.New("rle2: truncated input")

// Encode compresses src into dst, returning the number of bytes written.
// dst must have enough capacity or ErrOverflow is returned; the codec
// registry always supplies len(dst) >= 2*len(src), which this scheme
// never exceeds.
func Encode(src, dst []byte) (int, error) {
	n := len(src)
	if n == 0 {
		return 0, nil
	}
	if len(dst) < 2 {
		return 0, ErrOverflow
	}

	cntrIdx := 0
	outIdx := 1
	x := src[0]
	dst[cntrIdx] = 1
	dst[outIdx] = x

	for i := 1; i < n; i++ {
		cur := src[i]
		cntr := int8(dst[cntrIdx])

		switch {
		case cur == x && cntr < 0:
			// Close the literal (its last byte seeds the new run) and
			// open a run-of-2.
			cntr++
			dst[cntrIdx] = byte(cntr)
			cntrIdx = outIdx
			outIdx++
			if outIdx >= len(dst) {
				return 0, ErrOverflow
			}
			dst[cntrIdx] = 2
			dst[outIdx] = cur

		case cur == x && cntr == 127:
			outIdx++
			if outIdx >= len(dst) {
				return 0, ErrOverflow
			}
			cntrIdx = outIdx
			outIdx++
			if outIdx >= len(dst) {
				return 0, ErrOverflow
			}
			dst[cntrIdx] = 1
			dst[outIdx] = cur

		case cur == x:
			cntr++
			dst[cntrIdx] = byte(cntr)

		case cur != x && cntr == 1:
			outIdx++
			if outIdx >= len(dst) {
				return 0, ErrOverflow
			}
			dst[cntrIdx] = byte(int8(-2))
			dst[outIdx] = cur

		case cur != x && cntr > 1:
			outIdx++
			if outIdx >= len(dst) {
				return 0, ErrOverflow
			}
			cntrIdx = outIdx
			outIdx++
			if outIdx >= len(dst) {
				return 0, ErrOverflow
			}
			dst[cntrIdx] = 1
			dst[outIdx] = cur

		case cntr == -127:
			outIdx++
			if outIdx >= len(dst) {
				return 0, ErrOverflow
			}
			cntrIdx = outIdx
			outIdx++
			if outIdx >= len(dst) {
				return 0, ErrOverflow
			}
			dst[cntrIdx] = 1
			dst[outIdx] = cur

		default:
			outIdx++
			if outIdx >= len(dst) {
				return 0, ErrOverflow
			}
			dst[outIdx] = cur
			cntr--
			dst[cntrIdx] = byte(cntr)
		}

		x = cur
	}

	return outIdx + 1, nil
}

// Decode decompresses src into dst, returning the number of bytes
// produced.
func Decode(src, dst []byte) (int, error) {
	if len(src) == 0 {
		return 0, nil
	}

	outIdx := 0
	i := 0
	for {
		cntr := int8(src[i])
		i++

		switch {
		case cntr > 0:
			c := int(cntr)
			if outIdx+c > len(dst) {
				return 0, ErrOverflow
			}
			if i >= len(src) {
				return 0, ErrUnderrun
			}
			v := src[i]
			for k := 0; k < c; k++ {
				dst[outIdx] = v
				outIdx++
			}
			i++

		case cntr < 0:
			c := -int(cntr)
			if outIdx+c > len(dst) {
				return 0, ErrOverflow
			}
			if i+c > len(src) {
				return 0, ErrUnderrun
			}
			copy(dst[outIdx:outIdx+c], src[i:i+c])
			outIdx += c
			i += c

		default:
			return 0, ErrMalformed
		}

		if i >= len(src) {
			break
		}
	}

	return outIdx, nil
}
