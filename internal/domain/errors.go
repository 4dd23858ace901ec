package domain

import "errors"

var (
	// ErrValidation marks a form input rejected before any network call.
	ErrValidation = errors.New("validation failed")

	// ErrUnparseable is returned by the near-JSON repair pre-parser when
	// the payload cannot be turned into a valid parse.
	ErrUnparseable = errors.New("unparseable payload")

	// ErrNoAddress is returned by write flows when no wallet address is
	// available.
	ErrNoAddress = errors.New("no wallet address")
)
