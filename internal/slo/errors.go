package slo

import "errors"

var (
	// ErrUnknownSLO is returned when a name outside the catalog is queried.
	// Callers recording observations treat it as a no-op, not a failure:
	// unknown or disabled objectives are a normal transient configuration state.
	ErrUnknownSLO = errors.New("unknown slo")

	// ErrInvalidWindow is returned when an evaluation window is not one of the
	// windows declared by the objective. This is a caller programming error.
	ErrInvalidWindow = errors.New("invalid evaluation window")

	// ErrInvalidObservation is returned for observations with a negative
	// latency. Negative durations are a programming error and fail fast.
	ErrInvalidObservation = errors.New("invalid observation")
)
