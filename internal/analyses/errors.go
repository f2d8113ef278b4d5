package analyses

import "errors"

var (
	// ErrNotFound covers both absent records and records owned by someone else.
	ErrNotFound     = errors.New("not found")
	ErrInvalidPatch = errors.New("invalid patch")
)

// maxErrorMessageLen bounds error_message as stored.
const maxErrorMessageLen = 500
