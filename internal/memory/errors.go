package memory

import "errors"

var (
	ErrStoreUnavailable = errors.New("memory store unavailable")
	ErrEmbedding        = errors.New("embedding failed")
	ErrIndexWrite       = errors.New("index write failed")
	ErrQuery            = errors.New("index query failed")
	ErrNotFound         = errors.New("memory not found")
	// ErrEmptyFilter guards DeleteByMetadata from wiping a whole collection.
	ErrEmptyFilter = errors.New("metadata filter must not be empty")
	ErrEmptyText   = errors.New("text must not be empty")
)
