// Package room implements the room registry: creation with unique join
// tokens, slot-2 joining, removal with empty-room deletion, and the explicit
// connection->room index.
package room

import (
	"context"
	"log/slog"
	"sync"

	"github.com/duelpit/duelserver/internal/dependencies/clock"
	"github.com/duelpit/duelserver/internal/dependencies/random"
	"github.com/duelpit/duelserver/internal/model"
	"github.com/duelpit/duelserver/internal/storage"
)

const (
	// RoomIDLength is the length of generated room tokens
	RoomIDLength = 6
	// RoomIDAlphabet is the characters used in room tokens.
	// Uppercase only; lookups normalise, so tokens are case-insensitive.
	RoomIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// Controller owns room lifecycle and the connection->room index.
//
// Every mutation of a room or the index runs under mu, which is the single
// mutual-exclusion discipline for room state in the process: two occupants'
// signals can arrive concurrently on different connections, and join must be
// atomic so at most one connection ever takes slot 2. User-store calls are
// never made while mu is held.
type Controller struct {
	mu sync.Mutex

	storage storage.Storage
	clock   clock.Clock
	random  random.Random
	logger  *slog.Logger
}

// NewController creates a room Controller
func NewController(storage storage.Storage, clock clock.Clock, random random.Random, logger *slog.Logger) *Controller {
	return &Controller{
		storage: storage,
		clock:   clock,
		random:  random,
		logger:  logger.With(slog.String("component", "room")),
	}
}

// Create makes a new room with the owner in slot player1 and a fresh
// registry-unique token. On token collision the generator is re-queried;
// an existing room is never overwritten.
func (c *Controller) Create(ctx context.Context, owner model.ConnID) (*model.Room, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A connection occupies at most one room at a time
	if _, ok, err := c.storage.GetRoomForConn(ctx, owner); err != nil {
		return nil, err
	} else if ok {
		return nil, model.ErrAlreadyInRoom
	}

	var id model.RoomID
	for {
		id = model.RoomID(c.random.String(RoomIDLength, RoomIDAlphabet))
		exists, err := c.storage.RoomExists(ctx, id)
		if err != nil {
			return nil, err
		}
		if !exists {
			break
		}
	}

	room := model.NewRoom(id, owner, c.clock.Now())
	if err := c.storage.SaveRoom(ctx, room); err != nil {
		return nil, err
	}
	if err := c.storage.SetRoomForConn(ctx, owner, id); err != nil {
		return nil, err
	}

	c.logger.Info("room created",
		slog.String("room_id", string(id)),
		slog.String("conn_id", string(owner)))
	return room, nil
}

// Join appends conn as slot player2 and advances the handshake out of
// AwaitingOpponent. Fails with ErrRoomNotFound or ErrRoomFull.
func (c *Controller) Join(ctx context.Context, id model.RoomID, conn model.ConnID) (*model.Room, model.Slot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, err := c.storage.GetRoom(ctx, id)
	if err != nil {
		return nil, "", err
	}
	if room.IsFull() {
		return nil, "", model.ErrRoomFull
	}
	if room.HasOccupant(conn) {
		return nil, "", model.ErrAlreadyInRoom
	}
	if _, ok, err := c.storage.GetRoomForConn(ctx, conn); err != nil {
		return nil, "", err
	} else if ok {
		return nil, "", model.ErrAlreadyInRoom
	}

	room.Occupants = append(room.Occupants, conn)
	room.Phase = model.PhaseAwaitingArenaAndCharacters
	room.UpdatedAt = c.clock.Now()

	if err := c.storage.SaveRoom(ctx, room); err != nil {
		return nil, "", err
	}
	if err := c.storage.SetRoomForConn(ctx, conn, id); err != nil {
		return nil, "", err
	}

	c.logger.Info("room joined",
		slog.String("room_id", string(id)),
		slog.String("conn_id", string(conn)))
	return room, model.SlotPlayer2, nil
}

// Remove takes conn out of the room and its index entry. The room is deleted
// the instant its occupant count reaches zero; otherwise the handshake resets
// and the remaining occupant is returned so the caller can notify the
// departure. Resetting means a newcomer to the vacated slot always walks the
// full handshake; nothing from the previous pairing carries over.
func (c *Controller) Remove(ctx context.Context, id model.RoomID, conn model.ConnID) (remaining model.ConnID, deleted bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, err := c.storage.GetRoom(ctx, id)
	if err != nil {
		return "", false, err
	}

	found := false
	occupants := room.Occupants[:0]
	for _, occ := range room.Occupants {
		if occ == conn {
			found = true
			continue
		}
		occupants = append(occupants, occ)
	}
	if !found {
		return "", false, model.ErrNotInRoom
	}
	room.Occupants = occupants
	room.ResetHandshake()
	room.Phase = model.PhaseAwaitingOpponent
	room.UpdatedAt = c.clock.Now()

	if err := c.storage.DeleteRoomForConn(ctx, conn); err != nil {
		return "", false, err
	}

	if len(room.Occupants) == 0 {
		if err := c.storage.DeleteRoom(ctx, id); err != nil {
			return "", false, err
		}
		c.logger.Info("room deleted", slog.String("room_id", string(id)))
		return "", true, nil
	}

	if err := c.storage.SaveRoom(ctx, room); err != nil {
		return "", false, err
	}
	return room.Occupants[0], false, nil
}

// RoomFor looks up the room a connection currently occupies
func (c *Controller) RoomFor(ctx context.Context, conn model.ConnID) (model.RoomID, bool, error) {
	return c.storage.GetRoomForConn(ctx, conn)
}

// Get retrieves a room by id
func (c *Controller) Get(ctx context.Context, id model.RoomID) (*model.Room, error) {
	return c.storage.GetRoom(ctx, id)
}

// Update applies fn to the room under the registry lock and persists the
// result if fn succeeds. The match state machine funnels all its transitions
// through here so handshake mutations serialise with join/remove.
func (c *Controller) Update(ctx context.Context, id model.RoomID, fn func(*model.Room) error) (*model.Room, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	room, err := c.storage.GetRoom(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := fn(room); err != nil {
		return nil, err
	}
	room.UpdatedAt = c.clock.Now()
	if err := c.storage.SaveRoom(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}
