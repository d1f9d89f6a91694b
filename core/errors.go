package core

import "errors"

// Request validation errors
var (
	ErrInvalidGroupName = errors.New("invalid group name")
	ErrInvalidScope     = errors.New("invalid group scope")
	ErrInvalidActor     = errors.New("invalid actor")
	ErrInvalidSignal    = errors.New("invalid signal")
	ErrInvalidDataType  = errors.New("invalid data type")
	ErrInvalidSender    = errors.New("invalid sender")
	ErrInvalidTarget    = errors.New("invalid target")
)

// Registration errors
var (
	ErrInvalidHandler = errors.New("invalid handler")
)
