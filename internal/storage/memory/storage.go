package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/duelpit/duelserver/internal/model"
	"github.com/duelpit/duelserver/internal/storage"
)

// Storage is an in-memory implementation of the storage interface
type Storage struct {
	mu sync.RWMutex

	accounts  map[string]*model.Account
	rooms     map[model.RoomID]*model.Room
	connIndex map[model.ConnID]model.RoomID
}

// New creates a new in-memory storage instance
func New() *Storage {
	return &Storage{
		accounts:  make(map[string]*model.Account),
		rooms:     make(map[model.RoomID]*model.Room),
		connIndex: make(map[model.ConnID]model.RoomID),
	}
}

var _ storage.Storage = (*Storage)(nil)

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, account *model.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[account.Username]; ok {
		return model.ErrUsernameTaken
	}
	copied := *account
	s.accounts[account.Username] = &copied
	return nil
}

func (s *Storage) GetAccount(ctx context.Context, username string) (*model.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[username]
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *Storage) IncrementWins(ctx context.Context, username string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[username]
	if !ok {
		return 0, model.ErrAccountNotFound
	}
	account.Wins++
	return account.Wins, nil
}

func (s *Storage) TopAccounts(ctx context.Context, n int) ([]model.LeaderboardEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]model.LeaderboardEntry, 0, len(s.accounts))
	for _, account := range s.accounts {
		entries = append(entries, model.LeaderboardEntry{
			Username: account.Username,
			Wins:     account.Wins,
		})
	}
	// Wins descending; tie order is whatever map iteration produced
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Wins > entries[j].Wins
	})
	if n >= 0 && len(entries) > n {
		entries = entries[:n]
	}
	return entries, nil
}

// Room operations
//
// Rooms are cloned on both save and load so the stored record never aliases
// a value a caller holds. Readers outside the room controller's lock see a
// snapshot, matching the isolation the Redis backend gets from its JSON
// round trip.

func (s *Storage) SaveRoom(ctx context.Context, room *model.Room) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = room.Clone()
	return nil
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	if !ok {
		return nil, model.ErrRoomNotFound
	}
	return room.Clone(), nil
}

func (s *Storage) DeleteRoom(ctx context.Context, id model.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, id)
	return nil
}

func (s *Storage) RoomExists(ctx context.Context, id model.RoomID) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rooms[id]
	return ok, nil
}

// Connection -> room index

func (s *Storage) SetRoomForConn(ctx context.Context, conn model.ConnID, id model.RoomID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connIndex[conn] = id
	return nil
}

func (s *Storage) GetRoomForConn(ctx context.Context, conn model.ConnID) (model.RoomID, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.connIndex[conn]
	return id, ok, nil
}

func (s *Storage) DeleteRoomForConn(ctx context.Context, conn model.ConnID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.connIndex, conn)
	return nil
}
