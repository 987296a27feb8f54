// Package protocol defines the JSON message set exchanged over a client's
// WebSocket connection. Every frame is an Envelope; Data carries the
// type-specific payload and stays opaque for relayed gameplay frames.
package protocol

import (
	"encoding/json"

	"github.com/duelpit/duelserver/internal/model"
)

// MessageType identifies the kind of frame
type MessageType string

// Client -> server messages
const (
	MsgLogin           MessageType = "login"
	MsgRegister        MessageType = "register"
	MsgCreateRoom      MessageType = "createRoom"
	MsgJoinRoom        MessageType = "joinRoom"
	MsgSelectArena     MessageType = "selectArena"
	MsgSelectCharacter MessageType = "selectCharacter"
	MsgPlayerReady     MessageType = "playerReady"
	MsgGameStateUpdate MessageType = "gameStateUpdate"
	MsgPointScored     MessageType = "pointScored"
	MsgMatchOver       MessageType = "matchOver"
	MsgRematch         MessageType = "rematch"
)

// Server -> client events
const (
	EvtLoginSuccess           MessageType = "loginSuccess"
	EvtLoginError             MessageType = "loginError"
	EvtRegisterSuccess        MessageType = "registerSuccess"
	EvtRegisterError          MessageType = "registerError"
	EvtRoomCreated            MessageType = "roomCreated"
	EvtRoomJoined             MessageType = "roomJoined"
	EvtJoinError              MessageType = "joinError"
	EvtOpponentJoined         MessageType = "opponentJoined"
	EvtArenaSelected          MessageType = "arenaSelected"
	EvtMapSelectionError      MessageType = "mapSelectionError"
	EvtCharacterSelected      MessageType = "characterSelected"
	EvtBothCharactersSelected MessageType = "bothCharactersSelected"
	EvtBothPlayersReady       MessageType = "bothPlayersReady"
	EvtGameStateUpdate        MessageType = "gameStateUpdate"
	EvtPointScored            MessageType = "pointScored"
	EvtShowGameOverScreen     MessageType = "showGameOverScreen"
	EvtRematchStarted         MessageType = "rematchStarted"
	EvtOpponentDisconnected   MessageType = "opponentDisconnected"
	EvtError                  MessageType = "error"
)

// Envelope is the frame wrapper for every message in both directions
type Envelope struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode parses a raw frame into an envelope
func Decode(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Encode builds a wire frame from a type and payload
func Encode(t MessageType, data any) ([]byte, error) {
	env := Envelope{Type: t}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, err
		}
		env.Data = raw
	}
	return json.Marshal(env)
}

// MustEncode is Encode for payloads that cannot fail to marshal
func MustEncode(t MessageType, data any) []byte {
	raw, err := Encode(t, data)
	if err != nil {
		panic(err)
	}
	return raw
}

// Credentials is the payload for login and register
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// JoinRoomRequest asks to occupy slot player2 of an existing room
type JoinRoomRequest struct {
	RoomID model.RoomID `json:"roomId"`
}

// SelectArenaRequest is a creator-only arena pick
type SelectArenaRequest struct {
	ArenaIndex int `json:"arenaIndex"`
}

// SelectCharacterRequest is a per-occupant character pick
type SelectCharacterRequest struct {
	CharacterIndex int `json:"characterIndex"`
}

// AuthResult acknowledges a successful login or registration
type AuthResult struct {
	Username string `json:"username"`
}

// RoomResult acknowledges room creation or joining
type RoomResult struct {
	RoomID model.RoomID `json:"roomId"`
	Role   model.Slot   `json:"role"`
}

// ArenaSelected notifies the peer of the creator's arena pick
type ArenaSelected struct {
	ArenaIndex int `json:"arenaIndex"`
}

// CharacterSelected notifies the peer of an occupant's character pick
type CharacterSelected struct {
	CharacterIndex int        `json:"characterIndex"`
	Who            model.Slot `json:"who"`
}

// GameOver carries the match outcome and refreshed leaderboard
type GameOver struct {
	Winner      string                   `json:"winner"`
	TimeTaken   float64                  `json:"timeTaken"` // seconds
	Leaderboard []model.LeaderboardEntry `json:"leaderboard"`
}

// ErrorEvent is a named failure delivered only to the offending connection
type ErrorEvent struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// Error codes for ErrorEvent, matching the model error taxonomy
const (
	CodeAuthFailure            = "authFailure"
	CodeRoomNotFound           = "roomNotFound"
	CodeRoomFull               = "roomFull"
	CodeUnauthorized           = "unauthorized"
	CodeInvalidStateTransition = "invalidStateTransition"
	CodeBadRequest             = "badRequest"
)
