package service

import "errors"

var (
	// ErrBusinessMismatch is returned when a turn names a lead owned by
	// a different business. This is the tenant-isolation guard; it is
	// surfaced to the caller, never silently corrected.
	ErrBusinessMismatch = errors.New("lead belongs to a different business")

	// ErrInvalidArgument is returned for malformed input such as a
	// negative session duration.
	ErrInvalidArgument = errors.New("invalid argument")
)
