package images

import "github.com/pkg/errors"

var (
	// ErrInvalidInput is returned for non-positive dimensions, nil images and
	// empty or inconsistent buffers.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDimensionMismatch is returned when a matte does not have exactly the
	// dimensions of the image it is applied to.
	ErrDimensionMismatch = errors.New("dimension mismatch")
	// ErrEncodingFailure is returned when the underlying codec rejects a buffer.
	ErrEncodingFailure = errors.New("encoding failure")
)
