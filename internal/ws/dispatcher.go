package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"

	"github.com/duelpit/duelserver/internal/connreg"
	"github.com/duelpit/duelserver/internal/model"
	"github.com/duelpit/duelserver/internal/protocol"
	"github.com/duelpit/duelserver/internal/services/account"
	"github.com/duelpit/duelserver/internal/services/match"
	"github.com/duelpit/duelserver/internal/services/relay"
	"github.com/duelpit/duelserver/internal/services/room"
	"github.com/duelpit/duelserver/internal/services/session"
)

// Dispatcher routes decoded client messages to the services and fans the
// resulting events back out through the hub. One message is handled to
// completion before the connection's next is read.
//
// Failures are delivered as named error events to the offending connection
// only; the one exception is a matchOver signal from an unauthenticated
// connection, which is returned as a fatal error so the ranking gap is never
// silently swallowed.
type Dispatcher struct {
	hub      *Hub
	accounts *account.Service
	rooms    *room.Controller
	match    *match.Controller
	relay    *relay.Service
	sessions *session.Manager
	conns    *connreg.Registry
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher
func NewDispatcher(
	hub *Hub,
	accounts *account.Service,
	rooms *room.Controller,
	matchCtrl *match.Controller,
	relaySvc *relay.Service,
	sessions *session.Manager,
	conns *connreg.Registry,
	logger *slog.Logger,
) *Dispatcher {
	return &Dispatcher{
		hub:      hub,
		accounts: accounts,
		rooms:    rooms,
		match:    matchCtrl,
		relay:    relaySvc,
		sessions: sessions,
		conns:    conns,
		logger:   logger.With(slog.String("component", "dispatch")),
	}
}

// HandleMessage processes one inbound frame. A non-nil return is fatal to
// the connection.
func (d *Dispatcher) HandleMessage(ctx context.Context, conn model.ConnID, raw []byte) error {
	env, err := protocol.Decode(raw)
	if err != nil {
		d.sendError(conn, protocol.EvtError, protocol.CodeBadRequest, "malformed message")
		return nil
	}

	switch env.Type {
	case protocol.MsgLogin:
		d.handleLogin(ctx, conn, env.Data)
	case protocol.MsgRegister:
		d.handleRegister(ctx, conn, env.Data)
	case protocol.MsgCreateRoom:
		d.handleCreateRoom(ctx, conn)
	case protocol.MsgJoinRoom:
		d.handleJoinRoom(ctx, conn, env.Data)
	case protocol.MsgSelectArena:
		d.handleSelectArena(ctx, conn, env.Data)
	case protocol.MsgSelectCharacter:
		d.handleSelectCharacter(ctx, conn, env.Data)
	case protocol.MsgPlayerReady:
		d.handlePlayerReady(ctx, conn)
	case protocol.MsgGameStateUpdate:
		d.handleGameState(ctx, conn, env.Data)
	case protocol.MsgPointScored:
		d.handlePointScored(ctx, conn, env.Data)
	case protocol.MsgMatchOver:
		return d.handleMatchOver(ctx, conn)
	case protocol.MsgRematch:
		d.handleRematch(ctx, conn)
	default:
		d.sendError(conn, protocol.EvtError, protocol.CodeBadRequest, "unknown message type")
	}
	return nil
}

// HandleDisconnect cleans up after a lost connection and notifies the peer
func (d *Dispatcher) HandleDisconnect(ctx context.Context, conn model.ConnID) {
	result, err := d.sessions.Disconnect(ctx, conn)
	if err != nil {
		d.logger.Error("disconnect cleanup failed",
			slog.String("conn_id", string(conn)),
			slog.Any("error", err))
		return
	}
	if result.HadRoom && !result.RoomDeleted {
		d.send(result.Peer, protocol.EvtOpponentDisconnected, nil)
	}
}

func (d *Dispatcher) handleLogin(ctx context.Context, conn model.ConnID, data json.RawMessage) {
	var creds protocol.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		d.sendError(conn, protocol.EvtLoginError, protocol.CodeBadRequest, "malformed credentials")
		return
	}

	// Bind the canonical form so win recording resolves the same account
	// the credentials did
	username := strings.TrimSpace(creds.Username)
	if err := d.accounts.Verify(ctx, username, creds.Password); err != nil {
		d.sendError(conn, protocol.EvtLoginError, protocol.CodeAuthFailure, "invalid username or password")
		return
	}

	d.conns.Bind(conn, username)
	d.send(conn, protocol.EvtLoginSuccess, protocol.AuthResult{Username: username})
}

func (d *Dispatcher) handleRegister(ctx context.Context, conn model.ConnID, data json.RawMessage) {
	var creds protocol.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		d.sendError(conn, protocol.EvtRegisterError, protocol.CodeBadRequest, "malformed credentials")
		return
	}

	username := strings.TrimSpace(creds.Username)
	if err := d.accounts.Register(ctx, username, creds.Password); err != nil {
		reason := "registration failed"
		switch {
		case errors.Is(err, model.ErrUsernameTaken):
			reason = "username already taken"
		case errors.Is(err, model.ErrInvalidCredentials):
			reason = "username and password are required"
		}
		d.sendError(conn, protocol.EvtRegisterError, protocol.CodeAuthFailure, reason)
		return
	}

	d.conns.Bind(conn, username)
	d.send(conn, protocol.EvtRegisterSuccess, protocol.AuthResult{Username: username})
}

func (d *Dispatcher) handleCreateRoom(ctx context.Context, conn model.ConnID) {
	if _, ok := d.conns.Username(conn); !ok {
		d.sendError(conn, protocol.EvtError, protocol.CodeAuthFailure, "login required")
		return
	}

	r, err := d.rooms.Create(ctx, conn)
	if err != nil {
		d.sendModelError(conn, protocol.EvtError, err)
		return
	}
	d.send(conn, protocol.EvtRoomCreated, protocol.RoomResult{RoomID: r.ID, Role: model.SlotPlayer1})
}

func (d *Dispatcher) handleJoinRoom(ctx context.Context, conn model.ConnID, data json.RawMessage) {
	if _, ok := d.conns.Username(conn); !ok {
		d.sendError(conn, protocol.EvtJoinError, protocol.CodeAuthFailure, "login required")
		return
	}

	var req protocol.JoinRoomRequest
	if err := json.Unmarshal(data, &req); err != nil {
		d.sendError(conn, protocol.EvtJoinError, protocol.CodeBadRequest, "malformed join request")
		return
	}

	r, slot, err := d.rooms.Join(ctx, normalizeRoomID(req.RoomID), conn)
	if err != nil {
		d.sendModelError(conn, protocol.EvtJoinError, err)
		return
	}

	d.send(conn, protocol.EvtRoomJoined, protocol.RoomResult{RoomID: r.ID, Role: slot})
	d.send(r.Occupants[0], protocol.EvtOpponentJoined, nil)
}

func (d *Dispatcher) handleSelectArena(ctx context.Context, conn model.ConnID, data json.RawMessage) {
	var req protocol.SelectArenaRequest
	if err := json.Unmarshal(data, &req); err != nil {
		d.sendError(conn, protocol.EvtMapSelectionError, protocol.CodeBadRequest, "malformed arena selection")
		return
	}

	id, ok := d.roomFor(ctx, conn, protocol.EvtMapSelectionError)
	if !ok {
		return
	}

	result, err := d.match.SelectArena(ctx, id, conn, req.ArenaIndex)
	if err != nil {
		d.sendModelError(conn, protocol.EvtMapSelectionError, err)
		return
	}

	if peer, ok := result.Room.Peer(conn); ok {
		d.send(peer, protocol.EvtArenaSelected, protocol.ArenaSelected{ArenaIndex: req.ArenaIndex})
	}
	if result.SelectionsComplete {
		d.broadcast(result.Room, protocol.EvtBothCharactersSelected, nil)
	}
}

func (d *Dispatcher) handleSelectCharacter(ctx context.Context, conn model.ConnID, data json.RawMessage) {
	var req protocol.SelectCharacterRequest
	if err := json.Unmarshal(data, &req); err != nil {
		d.sendError(conn, protocol.EvtError, protocol.CodeBadRequest, "malformed character selection")
		return
	}

	id, ok := d.roomFor(ctx, conn, protocol.EvtError)
	if !ok {
		return
	}

	result, err := d.match.SelectCharacter(ctx, id, conn, req.CharacterIndex)
	if err != nil {
		d.sendModelError(conn, protocol.EvtError, err)
		return
	}

	slot, _ := result.Room.SlotOf(conn)
	if peer, ok := result.Room.Peer(conn); ok {
		d.send(peer, protocol.EvtCharacterSelected, protocol.CharacterSelected{
			CharacterIndex: req.CharacterIndex,
			Who:            slot,
		})
	}
	if result.SelectionsComplete {
		d.broadcast(result.Room, protocol.EvtBothCharactersSelected, nil)
	}
}

func (d *Dispatcher) handlePlayerReady(ctx context.Context, conn model.ConnID) {
	id, ok := d.roomFor(ctx, conn, protocol.EvtError)
	if !ok {
		return
	}

	result, err := d.match.Ready(ctx, id, conn)
	if err != nil {
		d.sendModelError(conn, protocol.EvtError, err)
		return
	}
	if result.Started {
		d.broadcast(result.Room, protocol.EvtBothPlayersReady, nil)
	}
}

func (d *Dispatcher) handleGameState(ctx context.Context, conn model.ConnID, payload json.RawMessage) {
	id, ok, err := d.rooms.RoomFor(ctx, conn)
	if err != nil || !ok {
		// No room, nothing to relay; the payload is dropped without error
		return
	}

	peer, ok, err := d.relay.Peer(ctx, id, conn)
	if err != nil || !ok {
		return
	}

	frame, err := protocol.Encode(protocol.EvtGameStateUpdate, payload)
	if err != nil {
		return
	}
	d.hub.SendTo(peer, frame)
}

func (d *Dispatcher) handlePointScored(ctx context.Context, conn model.ConnID, payload json.RawMessage) {
	id, ok, err := d.rooms.RoomFor(ctx, conn)
	if err != nil || !ok {
		return
	}

	// Scoring events go room-wide, sender included
	occupants, ok, err := d.relay.Occupants(ctx, id, conn)
	if err != nil || !ok {
		return
	}

	frame, err := protocol.Encode(protocol.EvtPointScored, payload)
	if err != nil {
		return
	}
	d.hub.SendToEach(occupants, frame)
}

func (d *Dispatcher) handleMatchOver(ctx context.Context, conn model.ConnID) error {
	report, err := d.sessions.CompleteMatch(ctx, conn)
	if err != nil {
		if errors.Is(err, model.ErrNotAuthenticated) {
			// Fatal: a silently dropped ranking update is worse than a
			// terminated connection
			return err
		}
		d.sendModelError(conn, protocol.EvtError, err)
		return nil
	}

	frame := protocol.MustEncode(protocol.EvtShowGameOverScreen, protocol.GameOver{
		Winner:      report.Winner,
		TimeTaken:   report.TimeTaken.Seconds(),
		Leaderboard: report.Leaderboard,
	})
	d.hub.SendToEach(report.Occupants, frame)
	return nil
}

func (d *Dispatcher) handleRematch(ctx context.Context, conn model.ConnID) {
	id, ok := d.roomFor(ctx, conn, protocol.EvtError)
	if !ok {
		return
	}

	r, err := d.match.Rematch(ctx, id, conn)
	if err != nil {
		d.sendModelError(conn, protocol.EvtError, err)
		return
	}
	d.broadcast(r, protocol.EvtRematchStarted, nil)
}

// roomFor resolves the sender's room or reports a scoped roomNotFound
func (d *Dispatcher) roomFor(ctx context.Context, conn model.ConnID, errType protocol.MessageType) (model.RoomID, bool) {
	id, ok, err := d.rooms.RoomFor(ctx, conn)
	if err != nil {
		d.logger.Error("room index lookup failed",
			slog.String("conn_id", string(conn)),
			slog.Any("error", err))
		d.sendError(conn, errType, protocol.CodeRoomNotFound, "room not found")
		return "", false
	}
	if !ok {
		d.sendError(conn, errType, protocol.CodeRoomNotFound, "not in a room")
		return "", false
	}
	return id, true
}

func (d *Dispatcher) send(conn model.ConnID, t protocol.MessageType, data any) {
	frame, err := protocol.Encode(t, data)
	if err != nil {
		d.logger.Error("event encode failed",
			slog.String("type", string(t)),
			slog.Any("error", err))
		return
	}
	d.hub.SendTo(conn, frame)
}

func (d *Dispatcher) broadcast(r *model.Room, t protocol.MessageType, data any) {
	frame, err := protocol.Encode(t, data)
	if err != nil {
		return
	}
	d.hub.SendToEach(r.Occupants, frame)
}

func (d *Dispatcher) sendError(conn model.ConnID, t protocol.MessageType, code, reason string) {
	d.send(conn, t, protocol.ErrorEvent{Code: code, Reason: reason})
}

// sendModelError maps a model error to a named error event for the sender
func (d *Dispatcher) sendModelError(conn model.ConnID, t protocol.MessageType, err error) {
	code := protocol.CodeBadRequest
	switch {
	case errors.Is(err, model.ErrRoomNotFound):
		code = protocol.CodeRoomNotFound
	case errors.Is(err, model.ErrRoomFull):
		code = protocol.CodeRoomFull
	case errors.Is(err, model.ErrUnauthorized):
		code = protocol.CodeUnauthorized
	case errors.Is(err, model.ErrInvalidStateTransition):
		code = protocol.CodeInvalidStateTransition
	case errors.Is(err, model.ErrNotInRoom), errors.Is(err, model.ErrAlreadyInRoom):
		code = protocol.CodeInvalidStateTransition
	}
	d.sendError(conn, t, code, err.Error())
}

// normalizeRoomID upper-cases a join token; generated tokens are uppercase
// so lookups become case-insensitive
func normalizeRoomID(id model.RoomID) model.RoomID {
	b := []byte(id)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - ('a' - 'A')
		}
	}
	return model.RoomID(b)
}
