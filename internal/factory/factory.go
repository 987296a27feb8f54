package factory

import (
	"errors"
	"io"
	"log/slog"

	"github.com/duelpit/duelserver/internal/connreg"
	"github.com/duelpit/duelserver/internal/dependencies/clock"
	"github.com/duelpit/duelserver/internal/dependencies/random"
	"github.com/duelpit/duelserver/internal/services/account"
	"github.com/duelpit/duelserver/internal/services/match"
	"github.com/duelpit/duelserver/internal/services/relay"
	"github.com/duelpit/duelserver/internal/services/room"
	"github.com/duelpit/duelserver/internal/services/session"
	"github.com/duelpit/duelserver/internal/storage"
	"github.com/duelpit/duelserver/internal/storage/memory"
	redisstorage "github.com/duelpit/duelserver/internal/storage/redis"
	"github.com/duelpit/duelserver/internal/ws"
)

// Storage type constants
const (
	StorageTypeMemory = "memory"
	StorageTypeRedis  = "redis"
)

// App contains all wired application components
type App struct {
	Storage storage.Storage
	Clock   clock.Clock
	Random  random.Random

	Conns    *connreg.Registry
	Accounts *account.Service
	Rooms    *room.Controller
	Match    *match.Controller
	Relay    *relay.Service
	Sessions *session.Manager

	Hub        *ws.Hub
	Dispatcher *ws.Dispatcher
	Gateway    *ws.Gateway
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional; no-op if nil)
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory" or "redis").
	// Defaults to "memory".
	StorageType string
	// RedisConfig holds Redis connection settings (required for "redis")
	RedisConfig *redisstorage.Config
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	var store storage.Storage
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		store = memory.New()
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		store = redisStore
	default:
		return nil, errors.New("invalid StorageType: must be 'memory' or 'redis'")
	}

	return NewWithDependencies(store, clock.New(), random.New(), logger), nil
}

// NewWithDependencies creates an App with the given dependencies.
// Exported so tests can inject mock clock/random and shared storage.
func NewWithDependencies(store storage.Storage, clk clock.Clock, rnd random.Random, logger *slog.Logger) *App {
	conns := connreg.New()
	accounts := account.New(store, clk, logger)
	rooms := room.NewController(store, clk, rnd, logger)
	matchCtrl := match.NewController(rooms, logger)
	relaySvc := relay.New(rooms, logger)
	sessions := session.NewManager(rooms, matchCtrl, accounts, conns, clk, logger)

	hub := ws.NewHub(logger)
	dispatcher := ws.NewDispatcher(hub, accounts, rooms, matchCtrl, relaySvc, sessions, conns, logger)
	gateway := ws.NewGateway(hub, dispatcher, rnd, logger)

	return &App{
		Storage:    store,
		Clock:      clk,
		Random:     rnd,
		Conns:      conns,
		Accounts:   accounts,
		Rooms:      rooms,
		Match:      matchCtrl,
		Relay:      relaySvc,
		Sessions:   sessions,
		Hub:        hub,
		Dispatcher: dispatcher,
		Gateway:    gateway,
	}
}
