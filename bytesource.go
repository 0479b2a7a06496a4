package apng

import (
	"encoding/binary"
	"io"
	"io/fs"
	"os"

	"github.com/pkg/errors"
)

// Source is the pull interface every stage of the decoder reads through:
// a file, an in-memory buffer, the inflator, or a concatenating chunk
// stream all satisfy it the same way. Read behaves like io.Reader; AtEOF
// reports whether the source has been fully drained.
type Source interface {
	io.Reader
	AtEOF() bool
}

// FileSource pulls bytes from an open file, using the size learned from
// stat at construction time to answer AtEOF without a second syscall per
// read.
type FileSource struct {
	f    *os.File
	pos  int64
	size int64
}

// NewFileSource opens path and wraps it as a Source. The caller must
// Close it when done.
func NewFileSource(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ioErr(err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, ioErr(err)
	}
	return &FileSource{f: f, size: info.Size()}, nil
}

func (s *FileSource) Read(p []byte) (int, error) {
	n, err := s.f.Read(p)
	s.pos += int64(n)
	return n, err
}

// AtEOF reports whether every byte of the file has been consumed.
func (s *FileSource) AtEOF() bool { return s.pos >= s.size }

// Close releases the underlying file descriptor.
func (s *FileSource) Close() error { return s.f.Close() }

// MemorySource pulls bytes from a borrowed in-memory buffer.
type MemorySource struct {
	buf []byte
	pos int
}

// NewMemorySource wraps buf (not copied) as a Source.
func NewMemorySource(buf []byte) *MemorySource {
	return &MemorySource{buf: buf}
}

func (s *MemorySource) Read(p []byte) (int, error) {
	if s.pos >= len(s.buf) {
		return 0, io.EOF
	}
	n := copy(p, s.buf[s.pos:])
	s.pos += n
	return n, nil
}

// AtEOF reports whether every byte of the buffer has been consumed.
func (s *MemorySource) AtEOF() bool { return s.pos >= len(s.buf) }

// ReaderSource adapts an arbitrary io.Reader — one whose length isn't
// known up front — into a Source, tracking EOF as it's observed.
type ReaderSource struct {
	r   io.Reader
	eof bool
}

// NewReaderSource wraps r as a Source.
func NewReaderSource(r io.Reader) *ReaderSource {
	return &ReaderSource{r: r}
}

func (s *ReaderSource) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if errors.Is(err, io.EOF) {
		s.eof = true
	}
	return n, err
}

// AtEOF reports whether the wrapped reader has signalled end of stream.
func (s *ReaderSource) AtEOF() bool { return s.eof }

var be = binary.BigEndian

// ReadExact reads exactly n bytes from s. A short read because the
// source reached EOF (or the DEFLATE collaborator reported any fault
// other than its own end of stream) is InvalidPng; a short read because
// the underlying OS file operation faulted is Io.
func ReadExact(s Source, n int) ([]byte, error) {
	buf := make([]byte, n)
	if n == 0 {
		return buf, nil
	}
	_, err := io.ReadFull(s, buf)
	if err == nil {
		return buf, nil
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return nil, ioErr(err)
	}
	return nil, invalidPNG()
}

// ReadU8 reads one byte.
func ReadU8(s Source) (byte, error) {
	b, err := ReadExact(s, 1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadU16 reads a big-endian uint16.
func ReadU16(s Source) (uint16, error) {
	b, err := ReadExact(s, 2)
	if err != nil {
		return 0, err
	}
	return be.Uint16(b), nil
}

// ReadU32 reads a big-endian uint32.
func ReadU32(s Source) (uint32, error) {
	b, err := ReadExact(s, 4)
	if err != nil {
		return 0, err
	}
	return be.Uint32(b), nil
}
