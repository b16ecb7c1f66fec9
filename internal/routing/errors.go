package routing

import "errors"

var (
	// ErrRouteNotFound is returned when no template is registered for a pattern
	ErrRouteNotFound = errors.New("route not found")

	// ErrInvalidTemplate is returned when a pattern cannot be parsed
	ErrInvalidTemplate = errors.New("invalid route template")

	// ErrMissingParam is returned when a placeholder has no value and no default
	ErrMissingParam = errors.New("missing route parameter")
)
