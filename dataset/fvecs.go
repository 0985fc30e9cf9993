package dataset

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/hupe1980/mariabench/internal/vec32"
)

// ErrFormat reports a malformed vector file.
var ErrFormat = errors.New("malformed vector file")

// ReadFVecs reads an fvecs file: per vector a little-endian int32 dimension
// header followed by that many float32 components. Files ending in .zst or
// .gz are decompressed transparently.
func ReadFVecs(path string) ([][]float32, error) {
	r, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	br := bufio.NewReaderSize(r, 1<<20)
	var out [][]float32
	dim := -1
	for {
		d, err := readDim(br, &dim)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		buf := make([]byte, 4*d)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("%s: %w: truncated vector %d: %v", path, ErrFormat, len(out), err)
		}
		vec, err := vec32.Unpack(buf)
		if err != nil {
			return nil, fmt.Errorf("%s: %w: %v", path, ErrFormat, err)
		}
		out = append(out, vec)
	}
}

// ReadIVecs reads an ivecs file, the int32 counterpart of fvecs. It is the
// conventional encoding of ground-truth neighbor lists.
func ReadIVecs(path string) ([][]int32, error) {
	r, err := openReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	br := bufio.NewReaderSize(r, 1<<20)
	var out [][]int32
	dim := -1
	for {
		d, err := readDim(br, &dim)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return out, nil
			}
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		buf := make([]byte, 4*d)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("%s: %w: truncated record %d: %v", path, ErrFormat, len(out), err)
		}
		rec := make([]int32, d)
		for i := range rec {
			rec[i] = int32(binary.LittleEndian.Uint32(buf[4*i:]))
		}
		out = append(out, rec)
	}
}

// readDim reads one record header and enforces a constant dimensionality
// across the file. io.EOF at a record boundary is the normal end of input.
func readDim(br *bufio.Reader, dim *int) (int, error) {
	var header [4]byte
	if _, err := io.ReadFull(br, header[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, io.EOF
		}
		return 0, fmt.Errorf("%w: truncated record header: %v", ErrFormat, err)
	}
	d := int(int32(binary.LittleEndian.Uint32(header[:])))
	if d <= 0 {
		return 0, fmt.Errorf("%w: dimension %d", ErrFormat, d)
	}
	if *dim == -1 {
		*dim = d
	} else if d != *dim {
		return 0, fmt.Errorf("%w: dimension changed from %d to %d", ErrFormat, *dim, d)
	}
	return d, nil
}

// WriteFVecs writes vectors in fvecs format. Paths ending in .zst or .gz
// are compressed accordingly.
func WriteFVecs(path string, vectors [][]float32) error {
	return writeRecords(path, len(vectors), func(bw *bufio.Writer, i int) error {
		vec := vectors[i]
		if len(vec) == 0 {
			return fmt.Errorf("%w: empty vector %d", ErrFormat, i)
		}
		if len(vec) != len(vectors[0]) {
			return fmt.Errorf("%w: vector %d has dimension %d, want %d", ErrFormat, i, len(vec), len(vectors[0]))
		}
		var header [4]byte
		binary.LittleEndian.PutUint32(header[:], uint32(len(vec)))
		if _, err := bw.Write(header[:]); err != nil {
			return err
		}
		_, err := bw.Write(vec32.Pack(vec))
		return err
	})
}

// WriteIVecs writes int32 records in ivecs format, typically ground-truth
// neighbor lists produced by TopK.
func WriteIVecs(path string, records [][]int32) error {
	return writeRecords(path, len(records), func(bw *bufio.Writer, i int) error {
		rec := records[i]
		if len(rec) == 0 {
			return fmt.Errorf("%w: empty record %d", ErrFormat, i)
		}
		buf := make([]byte, 4+4*len(rec))
		binary.LittleEndian.PutUint32(buf, uint32(len(rec)))
		for j, v := range rec {
			binary.LittleEndian.PutUint32(buf[4+4*j:], uint32(v))
		}
		_, err := bw.Write(buf)
		return err
	})
}

func writeRecords(path string, n int, writeOne func(*bufio.Writer, int) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w, finish, err := newCompressor(f, path)
	if err != nil {
		f.Close()
		return err
	}

	bw := bufio.NewWriterSize(w, 1<<20)
	for i := 0; i < n; i++ {
		if err := writeOne(bw, i); err != nil {
			f.Close()
			return err
		}
	}

	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	if err := finish(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

type readCloser struct {
	io.Reader
	close func() error
}

func (rc readCloser) Close() error { return rc.close() }

// openReader opens path, layering a decompressor when the suffix asks for
// one.
func openReader(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	switch {
	case strings.HasSuffix(path, ".zst"):
		dec, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return readCloser{Reader: dec, close: func() error {
			dec.Close()
			return f.Close()
		}}, nil

	case strings.HasSuffix(path, ".gz"):
		gr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, err
		}
		return readCloser{Reader: gr, close: func() error {
			gerr := gr.Close()
			if ferr := f.Close(); gerr == nil {
				gerr = ferr
			}
			return gerr
		}}, nil

	default:
		return f, nil
	}
}

// newCompressor wraps w in the compressor the path suffix asks for. The
// returned finish flushes and closes the compressor, not the file.
func newCompressor(w io.Writer, path string) (io.Writer, func() error, error) {
	switch {
	case strings.HasSuffix(path, ".zst"):
		enc, err := zstd.NewWriter(w)
		if err != nil {
			return nil, nil, err
		}
		return enc, enc.Close, nil

	case strings.HasSuffix(path, ".gz"):
		gw := gzip.NewWriter(w)
		return gw, gw.Close, nil

	default:
		return w, func() error { return nil }, nil
	}
}
