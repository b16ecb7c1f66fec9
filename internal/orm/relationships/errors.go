package relationships

import "errors"

var (
	// ErrMaxDepthExceeded is returned when nested includes go deeper than the load context allows
	ErrMaxDepthExceeded = errors.New("maximum relationship depth exceeded")

	// ErrUnknownRelationship is returned when an include names no relationship of the resource
	ErrUnknownRelationship = errors.New("unknown relationship")

	// ErrUnknownResource is returned when a relationship targets an unregistered resource
	ErrUnknownResource = errors.New("unknown resource")

	// ErrInvalidRelationType is returned when an invalid relationship type is encountered
	ErrInvalidRelationType = errors.New("invalid relationship type")
)
