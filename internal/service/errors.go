package service

import "errors"

var (
	// ErrInvalidUserID is returned when user ID is empty.
	ErrInvalidUserID = errors.New("invalid user id")

	// ErrInvalidTargetID is returned when target user ID is empty.
	ErrInvalidTargetID = errors.New("invalid target id")

	// ErrSelfInteraction is returned when a user targets themselves.
	ErrSelfInteraction = errors.New("user cannot interact with themselves")

	// ErrMissingRequiredField is returned when a registration field is empty.
	ErrMissingRequiredField = errors.New("username, name, surname, email and password are required")

	// ErrInvalidPassword is returned when a password cannot be hashed.
	ErrInvalidPassword = errors.New("password must be at most 72 bytes")

	// ErrIncompleteLocation is returned when only one of latitude/longitude is given.
	ErrIncompleteLocation = errors.New("latitude and longitude must be provided together")

	// ErrUserExists is returned when the email is already registered.
	ErrUserExists = errors.New("user already registered")
)
