package repository

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("repository: not found")
	// ErrConflict indicates a uniqueness constraint rejected the write.
	ErrConflict = errors.New("repository: conflict")
	// ErrConcurrentUpdate indicates the record changed since it was read.
	ErrConcurrentUpdate = errors.New("repository: concurrent update")
)
