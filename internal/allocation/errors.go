package allocation

import "errors"

var (
	ErrInvalidPartySize = errors.New("party size must be at least 1")

	ErrEmptyGroup = errors.New("group identifier cannot be empty")

	ErrInvalidTopology = errors.New("lane count must be a positive multiple of 4")

	ErrInvalidDuration = errors.New("session duration must be positive")
)
