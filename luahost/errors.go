package luahost

import "errors"

// Chip management errors
var (
	ErrChipExists      = errors.New("chip already loaded")
	ErrChipNotFound    = errors.New("chip not found")
	ErrInvalidChipName = errors.New("invalid chip name")
)

// Actor exposure errors
var (
	ErrInvalidGlobalName = errors.New("invalid global name")
	ErrNilActor          = errors.New("nil actor")
)
