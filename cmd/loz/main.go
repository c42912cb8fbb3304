// loz - segmented, CRC8-protected container archiver
//
// Usage:
//
//	loz -c <input> [<output>] [-m <method>] [-s <size>]   create archive
//	loz -a <input> <archive>                              append raw bytes
//	loz -x <archive> [<output>]                            extract archive
//	loz -h                                                 show help
//
// Flags:
//
//	-m string   compression method: none|rle|rle2|lz|fastlz1|fastlz2 (default "fastlz2")
//	-s int      segment size in bytes, [32, 65535] (default 16384)
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/smashkin/loz/internal/codec"
	"github.com/smashkin/loz/internal/lozfile"
	"github.com/smashkin/loz/internal/version"
)

// envOrDefault returns the environment variable value if set, otherwise the fallback.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// envIntOrDefault returns the environment variable as int if set, otherwise the fallback.
func envIntOrDefault(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

const usageFmt = `loz v%s - segmented, CRC8-protected container archiver

Usage:
  loz -c <input> [<output>] [-m <method>] [-s <size>]   create archive
  loz -a <input> <archive>                              append raw bytes to an existing archive
  loz -x <archive> [<output>]                            extract archive
  loz -h                                                 show this help

Flags:
  -m string   compression method: none|rle|rle2|lz|fastlz1|fastlz2 (default "fastlz2")
  -s int      segment size in bytes, range [32, 65535] (default 16384)

Environment:
  LOZ_METHOD         overrides the default -m value
  LOZ_SEGMENT_SIZE   overrides the default -s value
`

func main() {
	create := flag.Bool("c", false, "create an archive")
	appendTo := flag.Bool("a", false, "append raw bytes to an existing archive")
	extract := flag.Bool("x", false, "extract an archive")
	help := flag.Bool("h", false, "show help")
	method := flag.String("m", envOrDefault("LOZ_METHOD", "fastlz2"), "compression method")
	segSize := flag.Int("s", envIntOrDefault("LOZ_SEGMENT_SIZE", 16384), "segment size in bytes")
	flag.Parse()

	if *help {
		fmt.Printf(usageFmt, version.Version)
		return
	}

	var err error
	switch {
	case *create:
		err = runCreate(flag.Args(), *method, *segSize)
	case *appendTo:
		err = runAppend(flag.Args(), *segSize)
	case *extract:
		err = runExtract(flag.Args(), *segSize)
	default:
		fmt.Printf(usageFmt, version.Version)
		return
	}
	if err != nil {
		log.Fatalf("loz: %v", err)
	}
}

func runCreate(args []string, methodToken string, segSize int) error {
	if len(args) < 1 {
		return fmt.Errorf("-c requires an <input> path")
	}
	input := args[0]
	output := input + ".lzf"
	if len(args) >= 2 {
		output = args[1]
	}

	id, ok := codec.ParseID(methodToken)
	if !ok {
		return fmt.Errorf("unknown method %q", methodToken)
	}

	in, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	out, err := lozfile.Open(output, lozfile.TruncateCreate, segSize, id, slog.Default())
	if err != nil {
		return fmt.Errorf("create archive: %w", err)
	}
	defer out.Close()

	if _, err := copyAll(out, in, make([]byte, segSize)); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}
	return out.Close()
}

func runAppend(args []string, segSize int) error {
	if len(args) < 2 {
		return fmt.Errorf("-a requires <input> and <archive> paths")
	}
	input, archive := args[0], args[1]

	in, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer in.Close()

	// codec.None is a placeholder here: Open-Update ignores the requested
	// codec and honors the one already recorded in the archive's file
	// header, per SPEC_FULL.md §12.2 / spec.md §4.H.
	out, err := lozfile.Open(archive, lozfile.Update, segSize, codec.None, slog.Default())
	if err != nil {
		return fmt.Errorf("open archive for append: %w", err)
	}
	defer out.Close()

	if _, err := copyAll(out, in, make([]byte, segSize)); err != nil {
		return fmt.Errorf("append to archive: %w", err)
	}
	return out.Close()
}

func runExtract(args []string, segSize int) error {
	if len(args) < 1 {
		return fmt.Errorf("-x requires an <archive> path")
	}
	archive := args[0]
	output := strings.TrimSuffix(archive, ".lzf")
	if output == archive {
		output += ".out"
	}
	if len(args) >= 2 {
		output = args[1]
	}

	// codec.None is a placeholder: the archive's own file header records
	// the codec actually used, and Open-ReadOnly reads it from there
	// rather than trusting a caller-supplied guess (SPEC_FULL.md §12.2).
	in, err := lozfile.Open(archive, lozfile.ReadOnly, segSize, codec.None, slog.Default())
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}
	defer in.Close()

	out, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	defer out.Close()

	if _, err := copyAll(out, in, make([]byte, segSize)); err != nil {
		return fmt.Errorf("extract archive: %w", err)
	}
	return nil
}

// copyAll drains src into dst using buf as scratch space, treating both
// io.EOF and a *lozfile.Error of KindEOF as a clean end of stream rather
// than a failure — io.Copy can't be used here since it only recognizes
// the literal io.EOF sentinel, not the wrapped Error this package's Read
// returns.
func copyAll(dst io.Writer, src io.Reader, buf []byte) (int64, error) {
	var total int64
	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return total, werr
			}
			total += int64(n)
		}
		if err != nil {
			if isEOF(err) {
				return total, nil
			}
			return total, err
		}
	}
}

func isEOF(err error) bool {
	if err == io.EOF {
		return true
	}
	var lozErr *lozfile.Error
	if errors.As(err, &lozErr) {
		return lozErr.Kind == lozfile.KindEOF
	}
	return false
}
