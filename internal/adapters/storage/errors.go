package storage

import "errors"

// Sentinel kinds for storage errors.
var (
	ErrNotFound        = errors.New("record not found")
	ErrNotParticipant  = errors.New("player is not part of the challenge")
	ErrDuplicateRecord = errors.New("record already exists")
)
