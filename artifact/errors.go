package artifact

import "errors"

var (
	// ErrNotFound is returned when an artifact for the given session / name
	// pair (or the requested version) does not exist in the underlying store.
	ErrNotFound = errors.New("artifact not found")

	// ErrInvalidName is returned when an artifact name is empty.
	ErrInvalidName = errors.New("artifact name must not be empty")
)
