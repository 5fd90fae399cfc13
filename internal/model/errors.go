package model

import "errors"

var (
	// Profile errors
	ErrProfileNotFound = errors.New("profile not found")
	ErrProfileExists   = errors.New("profile already exists")

	// Join errors
	ErrInvalidJoin   = errors.New("missing name or user id")
	ErrIdentityTaken = errors.New("username already taken")
)
