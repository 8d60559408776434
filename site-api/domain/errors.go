package domain

import "errors"

var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUnknownKind is returned for an unrecognised content collection.
	ErrUnknownKind = errors.New("unknown content kind")
	// ErrInvalidCategory is returned when a listing filter names an unknown project category.
	ErrInvalidCategory = errors.New("invalid category")
	// ErrInvalidRole is returned for an unrecognised user role.
	ErrInvalidRole = errors.New("invalid role")
	// ErrForbidden is returned when the caller's role does not allow the operation.
	ErrForbidden = errors.New("forbidden")
	// ErrConflict is returned when a record changed between read and write.
	ErrConflict = errors.New("conflict: record was modified concurrently")
)
