package apng

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

// ErrInvalidPNG is the sentinel cause for every structural violation:
// bad signature, bad chunk length, CRC mismatch, out-of-range enum,
// out-of-canvas geometry, sequence-number mismatch, or unexpected EOF
// inside a declared-length region. Callers should compare against it with
// errors.Is.
var ErrInvalidPNG = stderrors.New("Invalid PNG file")

// invalidPNG wraps the shared sentinel with a stack trace so errors.Is
// still matches ErrInvalidPNG no matter how deep in the pipeline it
// originated.
func invalidPNG() error {
	return errors.WithStack(ErrInvalidPNG)
}

func invalidPNGf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidPNG, format, args...)
}

// IOError carries a fault surfaced by the underlying byte source itself
// (open, stat, or a read that failed for a reason other than reaching
// end of stream). Use errors.As to recover it.
type IOError struct {
	Err error
}

func (e *IOError) Error() string { return "apng: io error: " + e.Err.Error() }

func (e *IOError) Unwrap() error { return e.Err }

func ioErr(err error) error {
	return errors.WithStack(&IOError{Err: err})
}
