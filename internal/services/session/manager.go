// Package session handles session lifecycle: disconnect cleanup and the
// match-completion path that records a win and rebuilds the leaderboard.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/duelpit/duelserver/internal/connreg"
	"github.com/duelpit/duelserver/internal/dependencies/clock"
	"github.com/duelpit/duelserver/internal/model"
	"github.com/duelpit/duelserver/internal/services/account"
	"github.com/duelpit/duelserver/internal/services/match"
	"github.com/duelpit/duelserver/internal/services/room"
)

// Manager coordinates disconnects and match completion across the room
// registry, connection registry, and user store.
type Manager struct {
	rooms    *room.Controller
	match    *match.Controller
	accounts *account.Service
	conns    *connreg.Registry
	clock    clock.Clock
	logger   *slog.Logger
}

// NewManager creates a session Manager
func NewManager(
	rooms *room.Controller,
	match *match.Controller,
	accounts *account.Service,
	conns *connreg.Registry,
	clock clock.Clock,
	logger *slog.Logger,
) *Manager {
	return &Manager{
		rooms:    rooms,
		match:    match,
		accounts: accounts,
		conns:    conns,
		clock:    clock,
		logger:   logger.With(slog.String("component", "session")),
	}
}

// DisconnectResult describes the cleanup performed for a lost connection
type DisconnectResult struct {
	RoomID      model.RoomID
	HadRoom     bool
	RoomDeleted bool
	// Peer is the remaining occupant to notify, when the room survives
	Peer model.ConnID
}

// Disconnect removes a lost connection from its room (deleting the room if
// it empties) and drops its player binding. Idempotent: a connection with no
// room association is a no-op.
func (m *Manager) Disconnect(ctx context.Context, conn model.ConnID) (DisconnectResult, error) {
	defer m.conns.Unbind(conn)

	id, ok, err := m.rooms.RoomFor(ctx, conn)
	if err != nil {
		return DisconnectResult{}, err
	}
	if !ok {
		return DisconnectResult{}, nil
	}

	remaining, deleted, err := m.rooms.Remove(ctx, id, conn)
	if err != nil {
		return DisconnectResult{}, err
	}

	m.logger.Info("connection left room",
		slog.String("room_id", string(id)),
		slog.String("conn_id", string(conn)),
		slog.Bool("room_deleted", deleted))

	return DisconnectResult{
		RoomID:      id,
		HadRoom:     true,
		RoomDeleted: deleted,
		Peer:        remaining,
	}, nil
}

// MatchReport is the outcome of a completed match
type MatchReport struct {
	RoomID      model.RoomID
	Winner      string
	TimeTaken   time.Duration
	Leaderboard []model.LeaderboardEntry
	// Occupants receive the game-over notification
	Occupants []model.ConnID
}

// CompleteMatch handles a "match over" signal from conn: the room moves to
// Completed, the signaller's win count is incremented, and the refreshed
// top-N leaderboard is returned along with elapsed time since room creation.
//
// A connection with no authenticated player identity is the one fatal case:
// the error propagates rather than silently skipping the win-count update.
// User-store calls happen after the room transition, outside the room lock.
func (m *Manager) CompleteMatch(ctx context.Context, conn model.ConnID) (*MatchReport, error) {
	player, err := m.conns.Player(conn)
	if err != nil {
		return nil, fmt.Errorf("match completion for conn %s: %w", conn, err)
	}
	winner := player.Username

	id, ok, err := m.rooms.RoomFor(ctx, conn)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrRoomNotFound
	}

	r, err := m.match.Complete(ctx, id, conn)
	if err != nil {
		return nil, err
	}

	if _, err := m.accounts.RecordWin(ctx, winner); err != nil {
		return nil, err
	}

	leaderboard, err := m.accounts.TopN(ctx, account.LeaderboardSize)
	if err != nil {
		return nil, err
	}

	elapsed := m.clock.Now().Sub(r.CreatedAt)
	m.logger.Info("match completed",
		slog.String("room_id", string(id)),
		slog.String("winner", winner),
		slog.Duration("time_taken", elapsed))

	occupants := make([]model.ConnID, len(r.Occupants))
	copy(occupants, r.Occupants)

	return &MatchReport{
		RoomID:      id,
		Winner:      winner,
		TimeTaken:   elapsed,
		Leaderboard: leaderboard,
		Occupants:   occupants,
	}, nil
}
