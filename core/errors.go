package core

import "errors"

// Sentinel errors shared across packages, in the teacher's style of
// package-level errors.New values (core/storage.go's ErrInvalidState,
// core/cross_chain.go's ErrNotFound/ErrInvalidProof).
var (
	ErrNotFound      = errors.New("core: resource not found")
	ErrUnauthorized  = errors.New("core: unauthorized")
	ErrInvalidState  = errors.New("core: invalid state")
	ErrAlreadyExists = errors.New("core: resource already exists")
)
