package types

import "errors"

// Catalog operation errors. Store methods wrap these with %w; callers test
// with errors.Is.
var (
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidID       = errors.New("invalid entity ID")
	ErrDuplicateName   = errors.New("name already exists")
	ErrInvalidCategory = errors.New("category does not exist")
	ErrInvalidData     = errors.New("invalid entity data")
)

// Backend lifecycle errors.
var (
	ErrDetached        = errors.New("catalog backend is detached")
	ErrAlreadyAttached = errors.New("catalog backend is already attached")
)
