package grid

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a changeset targets an id absent from the
	// aggregate.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTag is returned when a FieldType tag is not one of the known
	// values.
	ErrInvalidTag = errors.New("invalid field type tag")
	// ErrInvalidUTF8 is returned by Envelope.StrictString when the payload is
	// not valid UTF-8.
	ErrInvalidUTF8 = errors.New("envelope value is not valid UTF-8")

	errIDRequired      = errors.New("ID is required")
	errDuplicateID     = errors.New("duplicate ID")
	errNegativeCount   = errors.New("row count must be non-negative")
	errOffsetMismatch  = errors.New("block offset does not match preceding row counts")
	errCellKeyMismatch = errors.New("cell field ID does not match its key")
)

// errTargetRequired is returned by changesets that name no target. An empty
// ID is never present in an aggregate, so it is reported as ErrNotFound.
var errTargetRequired = fmt.Errorf("changeset target ID is empty: %w", ErrNotFound)
