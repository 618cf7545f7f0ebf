// Package apperr holds the sentinel errors shared by the workspace and its surfaces.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")

	// ErrIO marks a failed file read, write, rename or delete.
	ErrIO = errors.New("file operation failed")
	// ErrPersistence marks a failed index write. The operation that triggered
	// the write has already taken effect when this is returned.
	ErrPersistence = errors.New("index persistence failed")
	// ErrInvalidState marks an operation that is not allowed for the
	// document in its current lifecycle state.
	ErrInvalidState = errors.New("invalid state")
)
