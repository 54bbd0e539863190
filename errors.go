package htmd

import "errors"

var (
	// ErrInvalidOrigin reports an origin that is not an absolute URL.
	ErrInvalidOrigin = errors.New("invalid origin")
	// ErrSequenceReused reports a second iteration of a single-pass sequence.
	ErrSequenceReused = errors.New("sequence already consumed")
)
