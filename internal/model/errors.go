package model

import "errors"

// Common errors used across the application
var (
	// Player errors
	ErrPlayerNotFound = errors.New("player not found")
	ErrInvalidShape   = errors.New("invalid shape")
	ErrNotBound       = errors.New("connection does not drive this player")

	// Registry errors
	ErrRegistryClosed = errors.New("registry is not running")
)
