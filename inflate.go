package apng

import (
	"compress/zlib"
	"io"
)

// InflateSource wraps the zlib-wrapped DEFLATE stream that is the
// concatenation of a frame's IDAT or fdAT payloads, presenting it as a
// plain pull Source. Decompression itself is treated as an external
// collaborator (spec §1); any fault it reports other than a clean end of
// stream propagates as InvalidPng.
type InflateSource struct {
	zr  io.ReadCloser
	eof bool
}

// NewInflateSource opens a zlib reader over inner.
func NewInflateSource(inner Source) (*InflateSource, error) {
	zr, err := zlib.NewReader(inner)
	if err != nil {
		return nil, invalidPNG()
	}
	return &InflateSource{zr: zr}, nil
}

func (s *InflateSource) Read(p []byte) (int, error) {
	n, err := s.zr.Read(p)
	if err == io.EOF {
		s.eof = true
		return n, io.EOF
	}
	if err != nil {
		return n, invalidPNG()
	}
	return n, nil
}

// AtEOF reports whether the DEFLATE stream has signalled a clean end.
func (s *InflateSource) AtEOF() bool { return s.eof }

// Close releases the zlib reader's internal state.
func (s *InflateSource) Close() error { return s.zr.Close() }
