package storage

import "errors"

var (
	// ErrGridExists is returned by Create when the grid directory is already
	// present.
	ErrGridExists = errors.New("grid already exists")

	errInvalidName = errors.New("ID is not a valid file name")
)
