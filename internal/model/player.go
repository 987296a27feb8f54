package model

import "time"

// ConnID uniquely identifies an active transport connection
type ConnID string

// Player is the ephemeral identity behind one active connection.
// Created on successful login or registration, destroyed on disconnect.
type Player struct {
	Conn     ConnID
	Username string
}

// Account is a persistent user record: credentials plus cumulative wins
type Account struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"password_hash"` // bcrypt hash
	Wins         int       `json:"wins"`
	CreatedAt    time.Time `json:"created_at"`
}

// LeaderboardEntry is one row of the top-N ranking
type LeaderboardEntry struct {
	Username string `json:"username"`
	Wins     int    `json:"wins"`
}
