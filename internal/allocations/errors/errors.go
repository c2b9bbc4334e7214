package errors

import "errors"

var (
	ErrNotFound = errors.New("allocation run not found")

	ErrInvalidID = errors.New("invalid allocation run ID format")

	ErrEmptyBatch = errors.New("reservation batch is empty")

	ErrBatchTooLarge = errors.New("reservation batch exceeds the maximum size")
)
