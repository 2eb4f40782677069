package repository

import "errors"

var (
	ErrNotFound      = errors.New("entity not found")
	ErrInvalidID     = errors.New("invalid entity id")
	ErrAlreadyExists = errors.New("entity already exists")
	// ErrConflict means a conditional write matched nothing because its precondition no longer held.
	ErrConflict = errors.New("conditional write lost: state was modified by another request")
)
