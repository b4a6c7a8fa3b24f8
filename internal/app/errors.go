package service

import "errors"

// Sentinel kinds for service lifecycle errors.
var (
	// ErrNotStarted is returned when an operation arrives before Start.
	ErrNotStarted = errors.New("service not started")
)
