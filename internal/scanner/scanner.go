// Package scanner implements forward and reverse byte-level search for
// the LOZ section begin-marker (0xFA 0xF5), used to resynchronize after
// corruption when header-chain traversal breaks down.
//
// Grounded on loz_find_seq2/loz_find_seq2_reverse in
// _examples/original_source/lozfile.c: forward scan keeps a rolling
// 2-byte window, reverse scan reads one byte per position descending.
// No alignment is assumed, so a hit here is only a candidate — callers
// resolve false positives by attempting a section header read at the
// returned offset and accepting only a verified CRC (package section).
package scanner

import (
	"errors"
	"io"
)

// Marker is the 2-byte section begin-marker.
var Marker = [2]byte{0xFA, 0xF5}

// ErrNotFound is returned when the marker does not occur before a file
// boundary in the requested direction.
var ErrNotFound = errors.New("scanner: marker not found")

// Forward searches for Marker starting at byte offset start (inclusive),
// scanning toward end of file. Returns the offset of the marker's first
// byte.
func Forward(r io.ReaderAt, start int64) (int64, error) {
	if start < 0 {
		start = 0
	}
	var window [2]byte
	pos := start
	n, err := r.ReadAt(window[:], pos)
	if n < 2 {
		return 0, ErrNotFound
	}
	if err != nil && err != io.EOF {
		return 0, err
	}
	for {
		if window[0] == Marker[0] && window[1] == Marker[1] {
			return pos, nil
		}
		var next [1]byte
		n, err := r.ReadAt(next[:], pos+2)
		if n < 1 {
			return 0, ErrNotFound
		}
		if err != nil && err != io.EOF {
			return 0, err
		}
		window[0] = window[1]
		window[1] = next[0]
		pos++
	}
}

// Reverse searches for Marker starting at byte offset start (inclusive
// of start and start+1 as the marker's two bytes), scanning toward the
// beginning of file. Returns the offset of the marker's first byte.
func Reverse(r io.ReaderAt, start int64) (int64, error) {
	pos := start
	for pos >= 0 {
		var pair [2]byte
		n, err := r.ReadAt(pair[:], pos)
		if err != nil && err != io.EOF {
			return 0, err
		}
		if n == 2 && pair[0] == Marker[0] && pair[1] == Marker[1] {
			return pos, nil
		}
		pos--
	}
	return 0, ErrNotFound
}
