package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/hmcavoy/mutiny-chess/internal/services"
)

// UsageHandler exposes generative-call governance and spend.
// Routes:
//
//	GET  /v1/usage                    - global limits, today's spend, projection
//	GET  /v1/usage/games/{id}         - one game's call counts and spend
//	POST /v1/usage/games/{id}/reset   - clear one game's call counters
type UsageHandler struct {
	governor *services.Governor
	ledger   *services.CostLedger
	logger   *slog.Logger
}

func NewUsageHandler(governor *services.Governor, ledger *services.CostLedger, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{governor: governor, ledger: ledger, logger: logger}
}

// UsageResponse is the global usage snapshot.
type UsageResponse struct {
	Governor   services.GovernorStats  `json:"governor"`
	Today      services.DailyCost      `json:"today"`
	Projection services.CostProjection `json:"projection"`
}

// GameUsageResponse is one game's usage snapshot.
type GameUsageResponse struct {
	Governor services.GameGovernorStats `json:"governor"`
	Cost     services.GameCost          `json:"cost"`
}

func (h *UsageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/usage"), "/")
	parts := strings.Split(path, "/")

	switch {
	case path == "" && r.Method == http.MethodGet:
		writeJSON(w, h.logger, http.StatusOK, UsageResponse{
			Governor:   h.governor.Stats(),
			Today:      h.ledger.DailyCost(""),
			Projection: h.ledger.Projection(),
		})

	case len(parts) == 2 && parts[0] == "games" && r.Method == http.MethodGet:
		writeJSON(w, h.logger, http.StatusOK, GameUsageResponse{
			Governor: h.governor.GameStats(parts[1]),
			Cost:     h.ledger.GameCost(parts[1]),
		})

	case len(parts) == 3 && parts[0] == "games" && parts[2] == "reset" && r.Method == http.MethodPost:
		h.governor.ResetGame(parts[1])
		writeJSON(w, h.logger, http.StatusOK, GameUsageResponse{
			Governor: h.governor.GameStats(parts[1]),
			Cost:     h.ledger.GameCost(parts[1]),
		})

	case path == "" || (len(parts) == 2 && parts[0] == "games") || (len(parts) == 3 && parts[0] == "games" && parts[2] == "reset"):
		writeJSON(w, h.logger, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})

	default:
		writeJSON(w, h.logger, http.StatusNotFound, ErrorResponse{Error: "Not found"})
	}
}
