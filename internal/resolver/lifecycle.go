package resolver

import (
	"context"
	"errors"
	"strings"

	"time"

	"github.com/google/uuid"

	"github.com/hmcavoy/mutiny-chess/internal/services"
	"github.com/hmcavoy/mutiny-chess/internal/storage"
	"github.com/hmcavoy/mutiny-chess/pkg/game"
	"github.com/hmcavoy/mutiny-chess/pkg/taunt"
)

// GameView bundles a game with its pieces for read endpoints.
type GameView struct {
	Game   *game.Game    `json:"game"`
	Pieces []*game.Piece `json:"pieces"`
}

// CreateGame starts a new game with a full set of pieces at default morale.
func (r *Resolver) CreateGame(ctx context.Context, sessionID string, mode game.Mode, settings game.Settings) (*GameView, error) {
	if sessionID == "" {
		return nil, Declined(CodeBadRequest, "session is required")
	}
	if mode != game.ModePvP && mode != game.ModePvAI {
		return nil, Declined(CodeBadRequest, "unknown game mode")
	}

	g := game.New(sessionID, mode, settings)
	pieces := game.StartingPieces(g.ID)

	if err := r.store.CreateGame(ctx, g, pieces); err != nil {
		return nil, Internal("create game", err)
	}

	r.addMessage(ctx, g.ID, game.MsgSystem, "System", "",
		"Game created. Your pieces await your orders... mostly.", nil)

	if t := r.orch.KingTaunt(ctx, services.TauntContext{
		GameID:  g.ID.String(),
		Trigger: taunt.TriggerGameStart,
	}); t != nil {
		r.addMessage(ctx, g.ID, game.MsgKingTaunt, "Opponent King", "", t.Text,
			map[string]any{"intensity": t.Intensity})
	}

	r.logger.Info("game created", "game_id", g.ID, "mode", mode, "share_code", g.ShareCode)
	return &GameView{Game: g, Pieces: pieces}, nil
}

// GetGame returns a game and its pieces.
func (r *Resolver) GetGame(ctx context.Context, gameID uuid.UUID) (*GameView, error) {
	g, err := r.store.GetGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, Declined(CodeGameNotFound, "Game not found")
		}
		return nil, Internal("load game", err)
	}
	pieces, err := r.store.GetPieces(ctx, gameID)
	if err != nil {
		return nil, Internal("load pieces", err)
	}
	return &GameView{Game: g, Pieces: pieces}, nil
}

// Join seats a second player in a waiting game.
func (r *Resolver) Join(ctx context.Context, gameID uuid.UUID, sessionID string) (*GameView, error) {
	unlock := r.locks.lock(gameID)
	defer unlock()

	g, err := r.store.GetGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, Declined(CodeGameNotFound, "Game not found")
		}
		return nil, Internal("load game", err)
	}
	return r.seatOpponent(ctx, g, sessionID)
}

// JoinByCode seats a second player via the game's share code.
func (r *Resolver) JoinByCode(ctx context.Context, shareCode, sessionID string) (*GameView, error) {
	shareCode = strings.ToUpper(strings.TrimSpace(shareCode))
	if shareCode == "" {
		return nil, Declined(CodeInvalidCode, "share code is required")
	}

	g, err := r.store.GetGameByShareCode(ctx, shareCode)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, Declined(CodeInvalidCode, "No game with that code")
		}
		return nil, Internal("load game by code", err)
	}

	unlock := r.locks.lock(g.ID)
	defer unlock()

	// Re-read under the lock; another join may have raced ours.
	g, err = r.store.GetGame(ctx, g.ID)
	if err != nil {
		return nil, Internal("load game", err)
	}
	return r.seatOpponent(ctx, g, sessionID)
}

func (r *Resolver) seatOpponent(ctx context.Context, g *game.Game, sessionID string) (*GameView, error) {
	if sessionID == "" {
		return nil, Declined(CodeBadRequest, "session is required")
	}
	if g.Status != game.StatusWaiting {
		return nil, Declined(CodeGameFull, "Game already has two players")
	}
	if sessionID == g.WhitePlayerID {
		return nil, Declined(CodeForbidden, "You cannot join your own game")
	}

	g.BlackPlayerID = sessionID
	g.Status = game.StatusActive
	g.UpdatedAt = time.Now().UTC()
	if err := r.store.UpdateGame(ctx, g); err != nil {
		return nil, Internal("update game", err)
	}

	r.addMessage(ctx, g.ID, game.MsgSystem, "System", "", "Opponent joined! The battle begins.", nil)
	r.logger.Info("player joined", "game_id", g.ID)

	pieces, err := r.store.GetPieces(ctx, g.ID)
	if err != nil {
		return nil, Internal("load pieces", err)
	}
	return &GameView{Game: g, Pieces: pieces}, nil
}

// Resign ends the game in the opponent's favor.
func (r *Resolver) Resign(ctx context.Context, gameID uuid.UUID, sessionID string) (*game.Game, error) {
	unlock := r.locks.lock(gameID)
	defer unlock()

	g, err := r.loadActiveGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	color, ok := g.ColorOf(sessionID)
	if !ok {
		return nil, Declined(CodeForbidden, "You are not a player in this game")
	}

	g.Status = game.StatusCompleted
	g.Result = game.ResultWhiteWins
	if color == game.White {
		g.Result = game.ResultBlackWins
	}
	g.DrawOfferBy = ""
	g.UpdatedAt = time.Now().UTC()
	if err := r.store.UpdateGame(ctx, g); err != nil {
		return nil, Internal("update game", err)
	}

	r.addMessage(ctx, gameID, game.MsgSystem, "System", "",
		playerName(sessionID)+" resigned. The pieces sheathe their swords.", nil)

	if t := r.orch.KingTaunt(ctx, services.TauntContext{
		GameID:  g.ID.String(),
		Trigger: taunt.TriggerResigned,
	}); t != nil {
		r.addMessage(ctx, gameID, game.MsgKingTaunt, "Opponent King", "", t.Text,
			map[string]any{"intensity": t.Intensity})
	}

	return g, nil
}

// OfferDraw records a pending draw offer from one side.
func (r *Resolver) OfferDraw(ctx context.Context, gameID uuid.UUID, sessionID string) (*game.Game, error) {
	unlock := r.locks.lock(gameID)
	defer unlock()

	g, err := r.loadActiveGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	color, ok := g.ColorOf(sessionID)
	if !ok {
		return nil, Declined(CodeForbidden, "You are not a player in this game")
	}
	if g.DrawOfferBy != "" {
		return nil, Declined(CodeBadRequest, "A draw offer is already pending")
	}

	g.DrawOfferBy = color
	g.UpdatedAt = time.Now().UTC()
	if err := r.store.UpdateGame(ctx, g); err != nil {
		return nil, Internal("update game", err)
	}

	r.addMessage(ctx, gameID, game.MsgSystem, "System", "", playerName(sessionID)+" offers a draw.", nil)
	return g, nil
}

// RespondDraw accepts or declines a pending draw offer. Only the side that
// did not offer may respond.
func (r *Resolver) RespondDraw(ctx context.Context, gameID uuid.UUID, sessionID string, accept bool) (*game.Game, error) {
	unlock := r.locks.lock(gameID)
	defer unlock()

	g, err := r.loadActiveGame(ctx, gameID)
	if err != nil {
		return nil, err
	}
	color, ok := g.ColorOf(sessionID)
	if !ok {
		return nil, Declined(CodeForbidden, "You are not a player in this game")
	}
	if g.DrawOfferBy == "" {
		return nil, Declined(CodeBadRequest, "No draw offer is pending")
	}
	if g.DrawOfferBy == color {
		return nil, Declined(CodeForbidden, "You cannot respond to your own offer")
	}

	g.DrawOfferBy = ""
	if accept {
		g.Status = game.StatusCompleted
		g.Result = game.ResultDraw
	}
	g.UpdatedAt = time.Now().UTC()
	if err := r.store.UpdateGame(ctx, g); err != nil {
		return nil, Internal("update game", err)
	}

	verdict := " declines the draw. Fight on."
	if accept {
		verdict = " accepts the draw. Peace, for now."
	}
	r.addMessage(ctx, gameID, game.MsgSystem, "System", "", playerName(sessionID)+verdict, nil)
	return g, nil
}

// Moves returns the executed-move log.
func (r *Resolver) Moves(ctx context.Context, gameID uuid.UUID) ([]*game.MoveRecord, error) {
	if _, err := r.store.GetGame(ctx, gameID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, Declined(CodeGameNotFound, "Game not found")
		}
		return nil, Internal("load game", err)
	}
	moves, err := r.store.GetMoves(ctx, gameID)
	if err != nil {
		return nil, Internal("load moves", err)
	}
	return moves, nil
}

// Messages returns a page of the chat log.
func (r *Resolver) Messages(ctx context.Context, gameID uuid.UUID, limit, offset int) ([]*game.MessageRecord, error) {
	if _, err := r.store.GetGame(ctx, gameID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, Declined(CodeGameNotFound, "Game not found")
		}
		return nil, Internal("load game", err)
	}
	msgs, err := r.store.GetMessages(ctx, gameID, limit, offset)
	if err != nil {
		return nil, Internal("load messages", err)
	}
	return msgs, nil
}

// Persuasions returns the persuasion audit log, optionally scoped to one
// piece via a non-nil pieceID.
func (r *Resolver) Persuasions(ctx context.Context, gameID, pieceID uuid.UUID) ([]*game.PersuasionRecord, error) {
	if _, err := r.store.GetGame(ctx, gameID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, Declined(CodeGameNotFound, "Game not found")
		}
		return nil, Internal("load game", err)
	}
	recs, err := r.store.GetPersuasions(ctx, gameID, pieceID)
	if err != nil {
		return nil, Internal("load persuasions", err)
	}
	return recs, nil
}

// MoraleLog returns the morale-event history for one piece.
func (r *Resolver) MoraleLog(ctx context.Context, gameID, pieceID uuid.UUID) ([]*game.MoraleEvent, error) {
	if _, err := r.store.GetPiece(ctx, gameID, pieceID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, Declined(CodePieceNotFound, "Piece not found")
		}
		return nil, Internal("load piece", err)
	}
	events, err := r.store.GetMoraleEvents(ctx, gameID)
	if err != nil {
		return nil, Internal("load morale events", err)
	}
	filtered := make([]*game.MoraleEvent, 0, len(events))
	for _, e := range events {
		if e.PieceID == pieceID {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}
