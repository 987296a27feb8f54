// Package relay resolves delivery targets for opaque gameplay payloads.
// Payloads are forwarded verbatim within the room and are never echoed back
// to the sender.
package relay

import (
	"context"
	"log/slog"

	"github.com/duelpit/duelserver/internal/model"
	"github.com/duelpit/duelserver/internal/services/room"
)

// Service routes in-match payloads between a room's occupants
type Service struct {
	rooms  *room.Controller
	logger *slog.Logger
}

// New creates a relay Service
func New(rooms *room.Controller, logger *slog.Logger) *Service {
	return &Service{
		rooms:  rooms,
		logger: logger.With(slog.String("component", "relay")),
	}
}

// Peer returns the connection a peer-scoped payload should be forwarded to.
// ok is false when the payload must be dropped silently: no peer present, or
// the match is not in progress. The sender not occupying the room is the only
// error case.
func (s *Service) Peer(ctx context.Context, id model.RoomID, sender model.ConnID) (model.ConnID, bool, error) {
	r, err := s.rooms.Get(ctx, id)
	if err != nil {
		return "", false, err
	}
	if !r.HasOccupant(sender) {
		return "", false, model.ErrNotInRoom
	}
	if r.Phase != model.PhaseInProgress {
		return "", false, nil
	}
	peer, ok := r.Peer(sender)
	return peer, ok, nil
}

// Occupants returns both delivery targets for a room-wide payload such as a
// scoring event. The same drop semantics as Peer apply.
func (s *Service) Occupants(ctx context.Context, id model.RoomID, sender model.ConnID) ([]model.ConnID, bool, error) {
	r, err := s.rooms.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	if !r.HasOccupant(sender) {
		return nil, false, model.ErrNotInRoom
	}
	if r.Phase != model.PhaseInProgress || !r.IsFull() {
		return nil, false, nil
	}
	occupants := make([]model.ConnID, len(r.Occupants))
	copy(occupants, r.Occupants)
	return occupants, true, nil
}
