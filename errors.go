package deadreckon

import "errors"

var (
	// ErrStale is returned for a snapshot whose send time is not newer than the
	// last accepted one.
	ErrStale = errors.New("stale snapshot")
	// ErrOutOfOrder is returned when a backlog entry is not newer than the
	// newest entry already stored.
	ErrOutOfOrder = errors.New("backlog entry out of order")
	// ErrMissingCollaborator is a setup error: a required clock, counter or
	// predictor was not supplied.
	ErrMissingCollaborator = errors.New("missing collaborator")

	ErrDuplicateClock  = errors.New("clock already registered")
	ErrDuplicateEntity = errors.New("entity already registered")
	ErrUnknownEntity   = errors.New("unknown entity")
)
