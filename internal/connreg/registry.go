// Package connreg maps active transport connections to their authenticated
// player identities. Entries exist only between a successful login/register
// and the connection's disconnect.
package connreg

import (
	"sync"

	"github.com/duelpit/duelserver/internal/model"
)

// Registry is the in-process connection -> player table
type Registry struct {
	mu      sync.RWMutex
	players map[model.ConnID]string
}

// New creates an empty Registry
func New() *Registry {
	return &Registry{
		players: make(map[model.ConnID]string),
	}
}

// Bind associates a connection with an authenticated username.
// A re-login on the same connection overwrites the previous binding.
func (r *Registry) Bind(conn model.ConnID, username string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.players[conn] = username
}

// Username returns the authenticated username for a connection
func (r *Registry) Username(conn model.ConnID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	username, ok := r.players[conn]
	return username, ok
}

// Player returns the ephemeral player for a connection
func (r *Registry) Player(conn model.ConnID) (*model.Player, error) {
	username, ok := r.Username(conn)
	if !ok {
		return nil, model.ErrNotAuthenticated
	}
	return &model.Player{Conn: conn, Username: username}, nil
}

// Unbind removes a connection's binding. No-op for unknown connections.
func (r *Registry) Unbind(conn model.ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, conn)
}

// Count returns the number of authenticated connections
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.players)
}
