package routable

import "errors"

var (
	// ErrConfiguration is returned when a group cannot be set up
	ErrConfiguration = errors.New("routable configuration error")

	// ErrInvalidInput is returned when resolve receives neither a path string nor a segment list
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownGroup is returned for operations on a group that was never set up
	ErrUnknownGroup = errors.New("unknown group")
)
