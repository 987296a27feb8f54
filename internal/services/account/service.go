// Package account implements the user store operations the session core
// depends on: credential verification, registration, win recording, and the
// top-N leaderboard.
package account

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/duelpit/duelserver/internal/dependencies/clock"
	"github.com/duelpit/duelserver/internal/model"
	"github.com/duelpit/duelserver/internal/storage"
)

// LeaderboardSize is the number of entries returned with a match outcome
const LeaderboardSize = 5

// Service handles account registration, verification, and ranking
type Service struct {
	storage storage.Storage
	clock   clock.Clock
	logger  *slog.Logger
}

// New creates a new account Service
func New(storage storage.Storage, clock clock.Clock, logger *slog.Logger) *Service {
	return &Service{
		storage: storage,
		clock:   clock,
		logger:  logger.With(slog.String("component", "account")),
	}
}

// Register creates a new account with a bcrypt-hashed credential.
// Duplicate usernames fail with model.ErrUsernameTaken; the storage layer
// guarantees first-writer-wins under concurrent registration.
func (s *Service) Register(ctx context.Context, username, password string) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return model.ErrInvalidCredentials
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	err = s.storage.CreateAccount(ctx, &model.Account{
		Username:     username,
		PasswordHash: string(hash),
		CreatedAt:    s.clock.Now(),
	})
	if err != nil {
		return err
	}

	s.logger.Info("account registered", slog.String("username", username))
	return nil
}

// Verify checks a username/password pair against the stored hash.
// Unknown usernames and bad passwords both report ErrInvalidCredentials.
func (s *Service) Verify(ctx context.Context, username, password string) error {
	// Same trimming as Register, so a padded re-entry of a registered name
	// still resolves the account
	username = strings.TrimSpace(username)

	account, err := s.storage.GetAccount(ctx, username)
	if err != nil {
		if errors.Is(err, model.ErrAccountNotFound) {
			return model.ErrInvalidCredentials
		}
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		return model.ErrInvalidCredentials
	}
	return nil
}

// RecordWin increments the win count for a username and returns the new total
func (s *Service) RecordWin(ctx context.Context, username string) (int, error) {
	total, err := s.storage.IncrementWins(ctx, username)
	if err != nil {
		return 0, err
	}
	s.logger.Info("win recorded",
		slog.String("username", username),
		slog.Int("total_wins", total))
	return total, nil
}

// TopN returns up to n leaderboard entries ordered by wins descending
func (s *Service) TopN(ctx context.Context, n int) ([]model.LeaderboardEntry, error) {
	return s.storage.TopAccounts(ctx, n)
}
