// Package storage persists games, pieces, and the append-only logs that
// record every command, message, and morale change.
package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/hmcavoy/mutiny-chess/pkg/game"
)

// ErrNotFound is returned when a game or piece does not exist.
var ErrNotFound = errors.New("not found")

// Store defines a unified interface for all persistence operations.
// Games and pieces are mutable records; messages, moves, persuasion
// attempts, and morale events are append-only logs.
type Store interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// Game operations
	CreateGame(ctx context.Context, g *game.Game, pieces []*game.Piece) error
	GetGame(ctx context.Context, id uuid.UUID) (*game.Game, error)
	GetGameByShareCode(ctx context.Context, code string) (*game.Game, error)
	UpdateGame(ctx context.Context, g *game.Game) error

	// Piece operations
	GetPieces(ctx context.Context, gameID uuid.UUID) ([]*game.Piece, error)
	GetPiece(ctx context.Context, gameID, pieceID uuid.UUID) (*game.Piece, error)
	PieceAtSquare(ctx context.Context, gameID uuid.UUID, square string) (*game.Piece, error)
	UpdatePiece(ctx context.Context, p *game.Piece) error

	// Message log
	AppendMessage(ctx context.Context, m *game.MessageRecord) error
	GetMessages(ctx context.Context, gameID uuid.UUID, limit, offset int) ([]*game.MessageRecord, error)

	// Move log
	AppendMove(ctx context.Context, m *game.MoveRecord) error
	GetMoves(ctx context.Context, gameID uuid.UUID) ([]*game.MoveRecord, error)
	MoveCount(ctx context.Context, gameID uuid.UUID) (int, error)

	// Persuasion log. A pieceID of uuid.Nil returns the whole game's log.
	AppendPersuasion(ctx context.Context, r *game.PersuasionRecord) error
	GetPersuasions(ctx context.Context, gameID, pieceID uuid.UUID) ([]*game.PersuasionRecord, error)

	// Morale event log
	AppendMoraleEvent(ctx context.Context, e *game.MoraleEvent) error
	GetMoraleEvents(ctx context.Context, gameID uuid.UUID) ([]*game.MoraleEvent, error)
}
