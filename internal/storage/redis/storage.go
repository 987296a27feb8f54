package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/duelpit/duelserver/internal/model"
	"github.com/duelpit/duelserver/internal/storage"
)

// Storage is a Redis-backed implementation of the storage interface.
// Accounts are JSON values with a companion ZSET holding the win ranking;
// rooms and the connection index are plain JSON/string values with a TTL.
type Storage struct {
	client *redis.Client
	cfg    Config
}

// New creates a new Redis storage instance
func New(cfg Config) (*Storage, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns

	client := redis.NewClient(opts)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &Storage{client: client, cfg: cfg}, nil
}

// NewWithClient creates a Redis storage with an existing client (for testing)
func NewWithClient(client *redis.Client, cfg Config) *Storage {
	return &Storage{client: client, cfg: cfg}
}

// Close closes the Redis connection
func (s *Storage) Close() error {
	return s.client.Close()
}

var _ storage.Storage = (*Storage)(nil)

// Account operations

func (s *Storage) CreateAccount(ctx context.Context, account *model.Account) error {
	data, err := json.Marshal(account)
	if err != nil {
		return err
	}

	// SETNX gives first-writer-wins on concurrent registration
	created, err := s.client.SetNX(ctx, accountKey(account.Username), data, 0).Result()
	if err != nil {
		return err
	}
	if !created {
		return model.ErrUsernameTaken
	}

	return s.client.ZAddNX(ctx, winsKey(), redis.Z{
		Score:  float64(account.Wins),
		Member: account.Username,
	}).Err()
}

func (s *Storage) GetAccount(ctx context.Context, username string) (*model.Account, error) {
	data, err := s.client.Get(ctx, accountKey(username)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrAccountNotFound
		}
		return nil, err
	}

	var account model.Account
	if err := json.Unmarshal(data, &account); err != nil {
		return nil, err
	}

	// Wins live in the ranking ZSET, not the JSON blob
	wins, err := s.client.ZScore(ctx, winsKey(), username).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}
	account.Wins = int(wins)
	return &account, nil
}

func (s *Storage) IncrementWins(ctx context.Context, username string) (int, error) {
	exists, err := s.client.Exists(ctx, accountKey(username)).Result()
	if err != nil {
		return 0, err
	}
	if exists == 0 {
		return 0, model.ErrAccountNotFound
	}

	total, err := s.client.ZIncrBy(ctx, winsKey(), 1, username).Result()
	if err != nil {
		return 0, err
	}
	return int(total), nil
}

func (s *Storage) TopAccounts(ctx context.Context, n int) ([]model.LeaderboardEntry, error) {
	if n <= 0 {
		return nil, nil
	}

	zs, err := s.client.ZRevRangeWithScores(ctx, winsKey(), 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]model.LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		username, _ := z.Member.(string)
		entries = append(entries, model.LeaderboardEntry{
			Username: username,
			Wins:     int(z.Score),
		})
	}
	return entries, nil
}

// Room operations

func (s *Storage) SaveRoom(ctx context.Context, room *model.Room) error {
	data, err := json.Marshal(room)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, roomKey(room.ID), data, s.cfg.RoomTTL).Err()
}

func (s *Storage) GetRoom(ctx context.Context, id model.RoomID) (*model.Room, error) {
	data, err := s.client.Get(ctx, roomKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrRoomNotFound
		}
		return nil, err
	}

	var room model.Room
	if err := json.Unmarshal(data, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

func (s *Storage) DeleteRoom(ctx context.Context, id model.RoomID) error {
	return s.client.Del(ctx, roomKey(id)).Err()
}

func (s *Storage) RoomExists(ctx context.Context, id model.RoomID) (bool, error) {
	count, err := s.client.Exists(ctx, roomKey(id)).Result()
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Connection -> room index

func (s *Storage) SetRoomForConn(ctx context.Context, conn model.ConnID, id model.RoomID) error {
	return s.client.Set(ctx, connRoomKey(conn), string(id), s.cfg.RoomTTL).Err()
}

func (s *Storage) GetRoomForConn(ctx context.Context, conn model.ConnID) (model.RoomID, bool, error) {
	val, err := s.client.Get(ctx, connRoomKey(conn)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return model.RoomID(val), true, nil
}

func (s *Storage) DeleteRoomForConn(ctx context.Context, conn model.ConnID) error {
	return s.client.Del(ctx, connRoomKey(conn)).Err()
}
