package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/duelpit/duelserver/internal/middleware"
	"github.com/duelpit/duelserver/internal/services/account"
	"github.com/duelpit/duelserver/internal/ws"
)

// RouterConfig holds the dependencies for the HTTP router
type RouterConfig struct {
	Logger   *slog.Logger
	Accounts *account.Service
	Gateway  *ws.Gateway
	Hub      *ws.Hub
}

// NewRouter builds the HTTP surface: the WebSocket endpoint plus a small
// REST view used by the CLI.
func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))

	r.HandleFunc("/ws", cfg.Gateway.ServeWS).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/health", handleHealth(cfg.Hub)).Methods(http.MethodGet)
	r.HandleFunc("/api/v1/leaderboard", handleLeaderboard(cfg.Accounts)).Methods(http.MethodGet)

	return r
}

func handleHealth(hub *ws.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":  "ok",
			"clients": hub.ClientCount(),
		})
	}
}

func handleLeaderboard(accounts *account.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n := account.LeaderboardSize
		if raw := r.URL.Query().Get("n"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 || parsed > 100 {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "n must be an integer in [1, 100]"})
				return
			}
			n = parsed
		}

		entries, err := accounts.TopN(r.Context(), n)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load leaderboard"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"leaderboard": entries})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
