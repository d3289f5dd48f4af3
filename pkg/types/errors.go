package types

import "errors"

// Common errors shared across packages
var (
	ErrInvalidChunk = errors.New("invalid chunk record")
	ErrEmptyQuery   = errors.New("query cannot be empty")
)
