package store

import "errors"

var (
	// ErrNotFound indicates the requested row does not exist within the
	// caller's tenant scope.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateEmail indicates a user row with the same email already exists.
	ErrDuplicateEmail = errors.New("email already registered")

	// ErrEmbeddingDimension indicates an embedding vector whose length does
	// not match the configured dimensionality.
	ErrEmbeddingDimension = errors.New("embedding dimension mismatch")
)
