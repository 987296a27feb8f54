package storage

import (
	"context"

	"github.com/duelpit/duelserver/internal/model"
)

// Storage defines the keyed record store backing accounts, rooms, and the
// connection->room index. Implementations provide their own consistency for
// concurrent account creation (first writer wins).
type Storage interface {
	// Account operations
	// CreateAccount fails with model.ErrUsernameTaken if the username exists.
	CreateAccount(ctx context.Context, account *model.Account) error
	GetAccount(ctx context.Context, username string) (*model.Account, error)
	// IncrementWins atomically bumps the win count and returns the new total.
	IncrementWins(ctx context.Context, username string) (int, error)
	// TopAccounts returns up to n entries ordered by wins descending.
	TopAccounts(ctx context.Context, n int) ([]model.LeaderboardEntry, error)

	// Room operations
	SaveRoom(ctx context.Context, room *model.Room) error
	GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error)
	DeleteRoom(ctx context.Context, id model.RoomID) error
	RoomExists(ctx context.Context, id model.RoomID) (bool, error)

	// Connection -> room index
	SetRoomForConn(ctx context.Context, conn model.ConnID, id model.RoomID) error
	GetRoomForConn(ctx context.Context, conn model.ConnID) (model.RoomID, bool, error)
	DeleteRoomForConn(ctx context.Context, conn model.ConnID) error
}
