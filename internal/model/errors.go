package model

import "errors"

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrUnauthenticated is returned when an operation needs a signed-in user.
var ErrUnauthenticated = errors.New("authentication required")

// ErrForbidden is returned when the signed-in user does not own the resource.
var ErrForbidden = errors.New("not allowed to modify this event")

// ErrEmailTaken is returned when registering an address that already exists.
var ErrEmailTaken = errors.New("email already registered")

// ErrInvalidCredentials is returned when email or password do not match.
var ErrInvalidCredentials = errors.New("invalid email or password")
