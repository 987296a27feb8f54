package model

import "time"

// RoomID is the six-character token used to join a room
type RoomID string

// Slot is one of a room's two fixed occupant positions.
// The creator holds SlotPlayer1 and has arena-selection privileges.
type Slot string

const (
	SlotPlayer1 Slot = "player1"
	SlotPlayer2 Slot = "player2"
)

// Phase represents where a room is in the pre-game handshake
type Phase string

const (
	PhaseAwaitingOpponent           Phase = "awaiting_opponent"
	PhaseAwaitingArenaAndCharacters Phase = "awaiting_arena_and_characters"
	PhaseAwaitingReady              Phase = "awaiting_ready"
	PhaseInProgress                 Phase = "in_progress"
	PhaseCompleted                  Phase = "completed"
)

// Room pairs exactly two connections through the handshake and a relayed
// match. Mutation happens only under the room controller's lock.
type Room struct {
	ID        RoomID   `json:"id"`
	Occupants []ConnID `json:"occupants"` // position 0 = creator
	Phase     Phase    `json:"phase"`

	// Handshake state. Character and ready tracking are keyed by occupant
	// identity so repeated signals from one side stay idempotent.
	ArenaChosen bool            `json:"arena_chosen"`
	ArenaIndex  int             `json:"arena_index"`
	Characters  map[ConnID]int  `json:"characters"`
	Ready       map[ConnID]bool `json:"ready"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewRoom creates a room holding only its creator
func NewRoom(id RoomID, owner ConnID, now time.Time) *Room {
	return &Room{
		ID:         id,
		Occupants:  []ConnID{owner},
		Phase:      PhaseAwaitingOpponent,
		Characters: make(map[ConnID]int),
		Ready:      make(map[ConnID]bool),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// IsFull reports whether both occupant slots are taken
func (r *Room) IsFull() bool {
	return len(r.Occupants) == 2
}

// SlotOf returns the slot a connection occupies
func (r *Room) SlotOf(conn ConnID) (Slot, bool) {
	for i, occ := range r.Occupants {
		if occ == conn {
			if i == 0 {
				return SlotPlayer1, true
			}
			return SlotPlayer2, true
		}
	}
	return "", false
}

// Peer returns the other occupant of the room, if there is one
func (r *Room) Peer(conn ConnID) (ConnID, bool) {
	for _, occ := range r.Occupants {
		if occ != conn {
			return occ, true
		}
	}
	return "", false
}

// HasOccupant reports whether conn currently occupies the room
func (r *Room) HasOccupant(conn ConnID) bool {
	_, ok := r.SlotOf(conn)
	return ok
}

// SelectionsComplete reports whether the arena is chosen and both occupants
// have each picked a character. Distinct occupants, not signal count.
func (r *Room) SelectionsComplete() bool {
	return r.ArenaChosen && r.IsFull() && len(r.Characters) == 2
}

// AllReady reports whether both occupant slots are populated and flagged ready
func (r *Room) AllReady() bool {
	if !r.IsFull() {
		return false
	}
	for _, occ := range r.Occupants {
		if !r.Ready[occ] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy sharing no slices or maps with the receiver
func (r *Room) Clone() *Room {
	copied := *r
	copied.Occupants = make([]ConnID, len(r.Occupants))
	copy(copied.Occupants, r.Occupants)
	copied.Characters = make(map[ConnID]int, len(r.Characters))
	for k, v := range r.Characters {
		copied.Characters[k] = v
	}
	copied.Ready = make(map[ConnID]bool, len(r.Ready))
	for k, v := range r.Ready {
		copied.Ready[k] = v
	}
	return &copied
}

// ResetHandshake clears the handshake bag for a rematch
func (r *Room) ResetHandshake() {
	r.ArenaChosen = false
	r.ArenaIndex = 0
	r.Characters = make(map[ConnID]int)
	r.Ready = make(map[ConnID]bool)
}
