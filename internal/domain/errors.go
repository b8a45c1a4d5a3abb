package domain

import "errors"

// Store errors. Exported so adapters and callers can check them with
// errors.Is instead of matching driver-specific error strings.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a unique-constraint race: the caller should
	// treat it as a benign duplicate and fall back to a get.
	ErrConflict = errors.New("conflict")

	// ErrLandNameTaken indicates a Land with that name already exists.
	ErrLandNameTaken = errors.New("land name already taken")
)

// Is is a convenience wrapper around errors.Is, kept for call sites that
// already import this package for its sentinels.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
