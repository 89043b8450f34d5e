package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hmcavoy/mutiny-chess/internal/resolver"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeError maps resolver error codes onto HTTP statuses. Anything that is
// not a classified resolver error is treated as internal.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var rerr *resolver.Error
	if !errors.As(err, &rerr) {
		logger.Error("Unclassified handler error", "error", err)
		writeJSON(w, logger, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}

	status := http.StatusInternalServerError
	switch rerr.Code {
	case resolver.CodeGameNotFound, resolver.CodePieceNotFound, resolver.CodeInvalidCode:
		status = http.StatusNotFound
	case resolver.CodeGameEnded, resolver.CodeGameFull, resolver.CodeNotYourTurn, resolver.CodePieceCaptured:
		status = http.StatusConflict
	case resolver.CodeForbidden:
		status = http.StatusForbidden
	case resolver.CodeInvalidMove, resolver.CodeBadRequest:
		status = http.StatusBadRequest
	case resolver.CodeInternal:
		logger.Error("Resolution failed", "error", err)
		writeJSON(w, logger, http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
		return
	}

	writeJSON(w, logger, status, ErrorResponse{Error: rerr.Message, Code: string(rerr.Code)})
}

// sessionID extracts the caller's session handle.
func sessionID(r *http.Request) string {
	return r.Header.Get("X-Session-ID")
}
