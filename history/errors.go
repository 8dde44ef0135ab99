// Package history implements the multi-resolution sample history used by every
// tracked signal: fixed-capacity ring windows that sub-sample raw readings,
// smooth them with an exponential moving average and answer lookback queries.
package history

import "errors"

var (
	// ErrOutOfRange is returned for lookbacks past the committed history and for
	// resolution codes outside 0..5.
	ErrOutOfRange = errors.New("history: out of range")

	// ErrConfiguration is returned when a window or series is built with
	// invalid parameters.
	ErrConfiguration = errors.New("history: invalid configuration")
)
