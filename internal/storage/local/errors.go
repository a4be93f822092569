package local

import "errors"

var (
	// ErrNotFound is returned when a record is not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidID is returned for IDs that are not safe file names
	ErrInvalidID = errors.New("invalid record id")
)
