package chunker

import "errors"

var (
	// ErrInvalidRequest is returned when the text or strategy key is missing.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrUnknownStrategy is returned for strategy keys outside the registry.
	ErrUnknownStrategy = errors.New("unknown strategy")
	// ErrNotImplemented is returned for recognised but unsupported strategies.
	ErrNotImplemented = errors.New("not implemented")
	// ErrEmptyResult signals that metrics cannot be computed over zero chunks.
	ErrEmptyResult = errors.New("empty result")
)
