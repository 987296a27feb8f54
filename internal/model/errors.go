package model

import "errors"

// Common errors used across the application
var (
	// Account errors
	ErrAccountNotFound    = errors.New("account not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNotAuthenticated   = errors.New("connection has no authenticated player")

	// Room errors
	ErrRoomNotFound  = errors.New("room not found")
	ErrRoomFull      = errors.New("room is full")
	ErrNotInRoom     = errors.New("connection is not in the room")
	ErrAlreadyInRoom = errors.New("connection is already in a room")

	// Handshake errors
	ErrUnauthorized           = errors.New("action not permitted for this slot")
	ErrInvalidStateTransition = errors.New("action not valid in the room's current state")
)
