// Package match implements the pre-game handshake state machine:
// arena selection, character selection, readiness gating, match completion,
// and the rematch re-entry path.
package match

import (
	"context"
	"log/slog"

	"github.com/duelpit/duelserver/internal/model"
	"github.com/duelpit/duelserver/internal/services/room"
)

// Controller advances rooms through the handshake. All transitions run via
// the room controller's Update so they serialise with join and remove.
type Controller struct {
	rooms  *room.Controller
	logger *slog.Logger
}

// NewController creates a match Controller
func NewController(rooms *room.Controller, logger *slog.Logger) *Controller {
	return &Controller{
		rooms:  rooms,
		logger: logger.With(slog.String("component", "match")),
	}
}

// SelectionResult reports a selection and whether it completed the
// arena-and-characters stage.
type SelectionResult struct {
	Room *model.Room
	// SelectionsComplete is true exactly once per handshake: on the
	// transition into AwaitingReady.
	SelectionsComplete bool
}

// ReadyResult reports a readiness signal and whether it started the match
type ReadyResult struct {
	Room    *model.Room
	Started bool
}

// SelectArena records the creator's arena pick. Slot player2 attempting this
// fails with ErrUnauthorized and never mutates room state. If both occupants
// already picked characters, this pick completes the selection stage.
func (c *Controller) SelectArena(ctx context.Context, id model.RoomID, conn model.ConnID, arenaIndex int) (SelectionResult, error) {
	var result SelectionResult
	updated, err := c.rooms.Update(ctx, id, func(r *model.Room) error {
		slot, ok := r.SlotOf(conn)
		if !ok {
			return model.ErrNotInRoom
		}
		if slot != model.SlotPlayer1 {
			return model.ErrUnauthorized
		}
		if r.Phase != model.PhaseAwaitingArenaAndCharacters {
			return model.ErrInvalidStateTransition
		}

		r.ArenaChosen = true
		r.ArenaIndex = arenaIndex
		if r.SelectionsComplete() {
			r.Phase = model.PhaseAwaitingReady
			result.SelectionsComplete = true
		}
		return nil
	})
	if err != nil {
		return SelectionResult{}, err
	}
	result.Room = updated

	c.logger.Info("arena selected",
		slog.String("room_id", string(id)),
		slog.Int("arena_index", arenaIndex))
	return result, nil
}

// SelectCharacter records an occupant's character pick. Re-selection by the
// same occupant overwrites the prior choice; the stage completes only when
// two distinct occupants have each picked and the arena is chosen.
func (c *Controller) SelectCharacter(ctx context.Context, id model.RoomID, conn model.ConnID, characterIndex int) (SelectionResult, error) {
	var result SelectionResult
	updated, err := c.rooms.Update(ctx, id, func(r *model.Room) error {
		if !r.HasOccupant(conn) {
			return model.ErrNotInRoom
		}
		if r.Phase != model.PhaseAwaitingArenaAndCharacters {
			return model.ErrInvalidStateTransition
		}

		r.Characters[conn] = characterIndex
		if r.SelectionsComplete() {
			r.Phase = model.PhaseAwaitingReady
			result.SelectionsComplete = true
		}
		return nil
	})
	if err != nil {
		return SelectionResult{}, err
	}
	result.Room = updated
	return result, nil
}

// Ready flags an occupant as ready. Readiness is set membership over
// occupant identities, so a repeated signal from one side is idempotent and
// never starts the match alone. Signalled in any other phase (including
// after start) it fails with ErrInvalidStateTransition.
func (c *Controller) Ready(ctx context.Context, id model.RoomID, conn model.ConnID) (ReadyResult, error) {
	var result ReadyResult
	updated, err := c.rooms.Update(ctx, id, func(r *model.Room) error {
		if !r.HasOccupant(conn) {
			return model.ErrNotInRoom
		}
		if r.Phase != model.PhaseAwaitingReady {
			return model.ErrInvalidStateTransition
		}

		r.Ready[conn] = true
		if r.AllReady() {
			r.Phase = model.PhaseInProgress
			result.Started = true
		}
		return nil
	})
	if err != nil {
		return ReadyResult{}, err
	}
	result.Room = updated

	if result.Started {
		c.logger.Info("match started", slog.String("room_id", string(id)))
	}
	return result, nil
}

// Complete moves an in-progress match to Completed. The signalling
// connection must be an occupant; a second completion signal fails, which
// guards the win count against double recording.
func (c *Controller) Complete(ctx context.Context, id model.RoomID, conn model.ConnID) (*model.Room, error) {
	return c.rooms.Update(ctx, id, func(r *model.Room) error {
		if !r.HasOccupant(conn) {
			return model.ErrNotInRoom
		}
		if r.Phase != model.PhaseInProgress {
			return model.ErrInvalidStateTransition
		}
		r.Phase = model.PhaseCompleted
		return nil
	})
}

// Rematch re-enters the handshake from Completed, resetting arena,
// character, and readiness state. Both occupants must still be present.
func (c *Controller) Rematch(ctx context.Context, id model.RoomID, conn model.ConnID) (*model.Room, error) {
	updated, err := c.rooms.Update(ctx, id, func(r *model.Room) error {
		if !r.HasOccupant(conn) {
			return model.ErrNotInRoom
		}
		if r.Phase != model.PhaseCompleted || !r.IsFull() {
			return model.ErrInvalidStateTransition
		}
		r.ResetHandshake()
		r.Phase = model.PhaseAwaitingArenaAndCharacters
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("rematch started", slog.String("room_id", string(id)))
	return updated, nil
}
