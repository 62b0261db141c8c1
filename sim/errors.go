package sim

import "errors"

var (
	// ErrInvalidParameters marks a malformed or contradictory request, such
	// as both a notional and a risk spec, or a stop on the wrong side of
	// entry.
	ErrInvalidParameters = errors.New("invalid parameters")

	// ErrRiskLimitExceeded marks a notional above the max-notional cap.
	ErrRiskLimitExceeded = errors.New("risk limit exceeded")

	// ErrPositionNotFound marks an unknown or already-closed position id.
	ErrPositionNotFound = errors.New("position not found")
)
