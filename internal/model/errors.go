package model

import "errors"

var (
	// ErrNotFound is returned when a listing id resolves to no record.
	ErrNotFound = errors.New("not found")

	// ErrInvalidListing is returned when a listing draft fails validation.
	ErrInvalidListing = errors.New("invalid listing")

	// ErrInvalidStatus is returned for a status outside the Status enum.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrEmptyMessage is returned when chat text is empty after trimming.
	ErrEmptyMessage = errors.New("empty message")
)
