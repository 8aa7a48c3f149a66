package domain

import "errors"

// Engine error taxonomy. Structural errors abort the operation with no
// partial writes; ErrConcurrentModification is recoverable by re-reading the
// instance and retrying. A position resolving to zero assignees is not an
// error at all; it is surfaced as a resolution_warning log entry.
var (
	ErrNotFound               = errors.New("not found")
	ErrInvalidTemplate        = errors.New("invalid template")
	ErrInvalidState           = errors.New("invalid state")
	ErrNoMatchingTransition   = errors.New("no matching transition")
	ErrConcurrentModification = errors.New("concurrent modification")
)
