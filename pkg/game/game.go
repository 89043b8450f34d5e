package game

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
)

// Status is the game lifecycle state.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
)

// Mode distinguishes two-player games from games against the house.
type Mode string

const (
	ModePvP  Mode = "pvp"
	ModePvAI Mode = "pvai"
)

// Result is the terminal outcome of a game.
type Result string

const (
	ResultWhiteWins Result = "white_wins"
	ResultBlackWins Result = "black_wins"
	ResultStalemate Result = "stalemate"
	ResultDraw      Result = "draw"
)

// Settings are per-game options.
type Settings struct {
	SurpriseMode bool   `json:"surprise_mode"`
	TurnTimer    int    `json:"turn_timer,omitempty"` // seconds, 0 = untimed
	AIDifficulty string `json:"ai_difficulty"`
}

// StartingFEN is the standard initial position.
const StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Game is one game session. The FEN string is the authoritative board-state
// handle; only the resolver mutates it, and only after a validated, obeyed
// command.
type Game struct {
	ID            uuid.UUID `json:"id"`
	Status        Status    `json:"status"`
	Mode          Mode      `json:"game_mode"`
	ShareCode     string    `json:"share_code"`
	FEN           string    `json:"fen"`
	Turn          Color     `json:"turn"`
	WhitePlayerID string    `json:"white_player_id,omitempty"`
	BlackPlayerID string    `json:"black_player_id,omitempty"`
	DrawOfferBy   Color     `json:"draw_offer_by,omitempty"`
	Result        Result    `json:"result,omitempty"`
	Settings      Settings  `json:"settings"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

const shareCodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func newShareCode() string {
	b := make([]byte, 6)
	for i := range b {
		b[i] = shareCodeAlphabet[rand.Intn(len(shareCodeAlphabet))]
	}
	return string(b)
}

// New creates a game in its starting position. PvAI games begin active with
// the house playing black; PvP games wait for a second player.
func New(sessionID string, mode Mode, settings Settings) *Game {
	status := StatusWaiting
	blackID := ""
	if mode == ModePvAI {
		status = StatusActive
		blackID = "ai"
	}
	if settings.AIDifficulty == "" {
		settings.AIDifficulty = "medium"
	}
	now := time.Now().UTC()
	return &Game{
		ID:            uuid.New(),
		Status:        status,
		Mode:          mode,
		ShareCode:     newShareCode(),
		FEN:           StartingFEN,
		Turn:          White,
		WhitePlayerID: sessionID,
		BlackPlayerID: blackID,
		Settings:      settings,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// IsTerminal reports whether the game is frozen.
func (g *Game) IsTerminal() bool {
	return g.Status == StatusCompleted
}

// ColorOf returns the side a session plays, if any.
func (g *Game) ColorOf(sessionID string) (Color, bool) {
	switch sessionID {
	case "":
		return "", false
	case g.WhitePlayerID:
		return White, true
	case g.BlackPlayerID:
		return Black, true
	}
	return "", false
}

type startingSquare struct {
	color  Color
	kind   PieceType
	square string
}

var startingSquares = buildStartingSquares()

func buildStartingSquares() []startingSquare {
	backRank := []PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}
	files := "abcdefgh"

	var out []startingSquare
	for i, kind := range backRank {
		out = append(out, startingSquare{White, kind, string(files[i]) + "1"})
	}
	for i := range files {
		out = append(out, startingSquare{White, Pawn, string(files[i]) + "2"})
	}
	for i, kind := range backRank {
		out = append(out, startingSquare{Black, kind, string(files[i]) + "8"})
	}
	for i := range files {
		out = append(out, startingSquare{Black, Pawn, string(files[i]) + "7"})
	}
	return out
}

// StartingPieces builds the 32 pieces for a new game, each at default morale
// with its stock personality.
func StartingPieces(gameID uuid.UUID) []*Piece {
	pieces := make([]*Piece, 0, len(startingSquares))
	for _, s := range startingSquares {
		pieces = append(pieces, &Piece{
			ID:          uuid.New(),
			GameID:      gameID,
			Color:       s.color,
			Type:        s.kind,
			Square:      s.square,
			Morale:      DefaultMorale,
			Trust:       DefaultTrust,
			Personality: DefaultPersonalities[s.kind],
		})
	}
	return pieces
}
