package model

import "errors"

// Invalid input. Operations returning these perform no partial work.
var (
	ErrInvalidMonth      = errors.New("invalid month")
	ErrInvalidDate       = errors.New("invalid date")
	ErrInvalidCapacity   = errors.New("invalid capacity")
	ErrInvalidShiftCap   = errors.New("invalid max shifts")
	ErrUnknownTeam       = errors.New("unknown team")
	ErrUnknownEngineer   = errors.New("unknown engineer")
	ErrDuplicateEngineer = errors.New("engineer already exists")
)
