package scheduler

import "errors"

var (
	// ErrEmptyRoster means no one in the roster belongs to a profession that
	// has required slots.
	ErrEmptyRoster = errors.New("no eligible people for any requested profession")
	// ErrEmptyRequirements means the requirements ask for zero slots.
	ErrEmptyRequirements = errors.New("requirements request no shift slots")
	// ErrDuplicatePersonID means two roster entries carry the same ID, so
	// their workloads could not be told apart.
	ErrDuplicatePersonID = errors.New("duplicate person ID")
)
