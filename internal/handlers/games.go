package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/hmcavoy/mutiny-chess/internal/resolver"
	"github.com/hmcavoy/mutiny-chess/pkg/game"
)

// GamesHandler serves everything under /v1/games.
type GamesHandler struct {
	resolver *resolver.Resolver
	logger   *slog.Logger
}

func NewGamesHandler(res *resolver.Resolver, logger *slog.Logger) *GamesHandler {
	return &GamesHandler{resolver: res, logger: logger}
}

// CreateGameRequest is the body for POST /v1/games.
type CreateGameRequest struct {
	Mode     game.Mode     `json:"game_mode"`
	Settings game.Settings `json:"settings"`
}

// JoinByCodeRequest is the body for POST /v1/games/join.
type JoinByCodeRequest struct {
	ShareCode string `json:"share_code"`
}

// CommandRequest is the body for POST /v1/games/{id}/command.
type CommandRequest struct {
	PieceID      uuid.UUID `json:"piece_id"`
	TargetSquare string    `json:"target_square"`
	Message      string    `json:"message,omitempty"`
}

// PersuadeRequest is the body for POST /v1/games/{id}/persuade.
type PersuadeRequest struct {
	PieceID      uuid.UUID `json:"piece_id"`
	TargetSquare string    `json:"target_square"`
	Argument     string    `json:"argument"`
	IsVoice      bool      `json:"is_voice"`
}

// DrawResponseRequest is the body for POST /v1/games/{id}/draw-response.
type DrawResponseRequest struct {
	Accept bool `json:"accept"`
}

// ServeHTTP routes game requests.
// Routes:
//
//	POST /v1/games                                - create game
//	POST /v1/games/join                           - join by share code
//	GET  /v1/games/{id}                           - game with pieces
//	POST /v1/games/{id}/join                      - join by ID
//	POST /v1/games/{id}/command                   - order a piece to move
//	POST /v1/games/{id}/persuade                  - argue with a piece
//	POST /v1/games/{id}/resign                    - resign
//	POST /v1/games/{id}/draw-offer                - offer a draw
//	POST /v1/games/{id}/draw-response             - accept/decline a draw
//	GET  /v1/games/{id}/moves                     - move log
//	GET  /v1/games/{id}/messages                  - chat log (limit/offset)
//	GET  /v1/games/{id}/persuasions               - persuasion log (piece_id)
//	GET  /v1/games/{id}/pieces/{pieceID}/morale   - one piece's morale history
func (h *GamesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	path := strings.Trim(strings.TrimPrefix(r.URL.Path, "/v1/games"), "/")
	if path == "" {
		if r.Method != http.MethodPost {
			h.methodNotAllowed(w, r)
			return
		}
		h.handleCreate(w, r)
		return
	}
	if path == "join" {
		if r.Method != http.MethodPost {
			h.methodNotAllowed(w, r)
			return
		}
		h.handleJoinByCode(w, r)
		return
	}

	parts := strings.Split(path, "/")
	gameID, err := uuid.Parse(parts[0])
	if err != nil {
		h.logger.Warn("Invalid game ID", "id", parts[0], "error", err)
		writeJSON(w, h.logger, http.StatusBadRequest, ErrorResponse{Error: "Invalid game ID format"})
		return
	}

	if len(parts) == 1 {
		if r.Method != http.MethodGet {
			h.methodNotAllowed(w, r)
			return
		}
		h.handleGet(w, r, gameID)
		return
	}

	if len(parts) == 4 && parts[1] == "pieces" && parts[3] == "morale" {
		if r.Method != http.MethodGet {
			h.methodNotAllowed(w, r)
			return
		}
		pieceID, err := uuid.Parse(parts[2])
		if err != nil {
			writeJSON(w, h.logger, http.StatusBadRequest, ErrorResponse{Error: "Invalid piece ID format"})
			return
		}
		h.handleMoraleLog(w, r, gameID, pieceID)
		return
	}

	if len(parts) != 2 {
		writeJSON(w, h.logger, http.StatusNotFound, ErrorResponse{Error: "Not found"})
		return
	}

	switch parts[1] {
	case "join":
		h.post(w, r, func() { h.handleJoin(w, r, gameID) })
	case "command":
		h.post(w, r, func() { h.handleCommand(w, r, gameID) })
	case "persuade":
		h.post(w, r, func() { h.handlePersuade(w, r, gameID) })
	case "resign":
		h.post(w, r, func() { h.handleResign(w, r, gameID) })
	case "draw-offer":
		h.post(w, r, func() { h.handleDrawOffer(w, r, gameID) })
	case "draw-response":
		h.post(w, r, func() { h.handleDrawResponse(w, r, gameID) })
	case "moves":
		if r.Method != http.MethodGet {
			h.methodNotAllowed(w, r)
			return
		}
		h.handleMoves(w, r, gameID)
	case "messages":
		if r.Method != http.MethodGet {
			h.methodNotAllowed(w, r)
			return
		}
		h.handleMessages(w, r, gameID)
	case "persuasions":
		if r.Method != http.MethodGet {
			h.methodNotAllowed(w, r)
			return
		}
		h.handlePersuasions(w, r, gameID)
	default:
		writeJSON(w, h.logger, http.StatusNotFound, ErrorResponse{Error: "Not found"})
	}
}

func (h *GamesHandler) post(w http.ResponseWriter, r *http.Request, fn func()) {
	if r.Method != http.MethodPost {
		h.methodNotAllowed(w, r)
		return
	}
	fn()
}

func (h *GamesHandler) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.logger.Warn("Method not allowed for games endpoint", "method", r.Method, "path", r.URL.Path)
	writeJSON(w, h.logger, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed"})
}

func (h *GamesHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		writeJSON(w, h.logger, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON in request body"})
		return
	}
	if req.Mode == "" {
		req.Mode = game.ModePvP
	}

	view, err := h.resolver.CreateGame(r.Context(), sessionID(r), req.Mode, req.Settings)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusCreated, view)
}

func (h *GamesHandler) handleGet(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	view, err := h.resolver.GetGame(r.Context(), gameID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, view)
}

func (h *GamesHandler) handleJoin(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	view, err := h.resolver.Join(r.Context(), gameID, sessionID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, view)
}

func (h *GamesHandler) handleJoinByCode(w http.ResponseWriter, r *http.Request) {
	var req JoinByCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, h.logger, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON in request body"})
		return
	}

	view, err := h.resolver.JoinByCode(r.Context(), req.ShareCode, sessionID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, view)
}

func (h *GamesHandler) handleCommand(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		writeJSON(w, h.logger, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON in request body"})
		return
	}

	result, err := h.resolver.ResolveCommand(r.Context(), game.Command{
		GameID:       gameID,
		PieceID:      req.PieceID,
		TargetSquare: req.TargetSquare,
		Message:      req.Message,
		SessionID:    sessionID(r),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

func (h *GamesHandler) handlePersuade(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	var req PersuadeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid JSON in request body", "error", err)
		writeJSON(w, h.logger, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON in request body"})
		return
	}

	result, err := h.resolver.ResolvePersuasion(r.Context(), game.PersuasionAttempt{
		GameID:       gameID,
		PieceID:      req.PieceID,
		TargetSquare: req.TargetSquare,
		Argument:     req.Argument,
		IsVoice:      req.IsVoice,
		SessionID:    sessionID(r),
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, result)
}

func (h *GamesHandler) handleResign(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	g, err := h.resolver.Resign(r.Context(), gameID, sessionID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, g)
}

func (h *GamesHandler) handleDrawOffer(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	g, err := h.resolver.OfferDraw(r.Context(), gameID, sessionID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, g)
}

func (h *GamesHandler) handleDrawResponse(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	var req DrawResponseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, h.logger, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON in request body"})
		return
	}

	g, err := h.resolver.RespondDraw(r.Context(), gameID, sessionID(r), req.Accept)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, g)
}

func (h *GamesHandler) handleMoves(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	moves, err := h.resolver.Moves(r.Context(), gameID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, moves)
}

func (h *GamesHandler) handleMessages(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	msgs, err := h.resolver.Messages(r.Context(), gameID, limit, offset)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, msgs)
}

func (h *GamesHandler) handlePersuasions(w http.ResponseWriter, r *http.Request, gameID uuid.UUID) {
	pieceID := uuid.Nil
	if raw := r.URL.Query().Get("piece_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, h.logger, http.StatusBadRequest, ErrorResponse{Error: "Invalid piece ID format"})
			return
		}
		pieceID = parsed
	}

	recs, err := h.resolver.Persuasions(r.Context(), gameID, pieceID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, recs)
}

func (h *GamesHandler) handleMoraleLog(w http.ResponseWriter, r *http.Request, gameID, pieceID uuid.UUID) {
	events, err := h.resolver.MoraleLog(r.Context(), gameID, pieceID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, h.logger, http.StatusOK, events)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
