package pathrecord

import "errors"

var (
	// ErrEmpty is returned by Parse for a blank line.
	ErrEmpty = errors.New("empty document")

	// ErrParse is returned by Parse when a line is not a JSON object.
	ErrParse = errors.New("malformed JSON document")

	// ErrNotFound is returned when a path is absent from a record.
	ErrNotFound = errors.New("path not found")

	// ErrPathConflict is returned by Append when an intermediate path segment
	// already holds a non-object value.
	ErrPathConflict = errors.New("path traverses a non-object value")

	// ErrCast is returned when a value cannot be converted to the requested type.
	ErrCast = errors.New("value cannot be cast")
)
