package domain

import "errors"

var (
	// ErrUserNotFound signals a missing user record.
	ErrUserNotFound = errors.New("user not found")
	// ErrEmailTaken signals that the email is already registered.
	ErrEmailTaken = errors.New("email already taken")
	// ErrInvalidArgument signals a rejected caller-supplied value.
	ErrInvalidArgument = errors.New("invalid argument")
)
