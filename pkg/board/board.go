// Package board wraps the notnil/chess rules oracle. Move legality is never
// reimplemented here; this package only adapts validation, one-ply risk
// assessment, and terminal-state classification for the resolver.
package board

import (
	"fmt"

	"github.com/notnil/chess"

	"github.com/hmcavoy/mutiny-chess/pkg/game"
)

var pieceTypeNames = map[chess.PieceType]game.PieceType{
	chess.Pawn:   game.Pawn,
	chess.Knight: game.Knight,
	chess.Bishop: game.Bishop,
	chess.Rook:   game.Rook,
	chess.Queen:  game.Queen,
	chess.King:   game.King,
}

var pieceValues = map[chess.PieceType]int{
	chess.Pawn:   1,
	chess.Knight: 3,
	chess.Bishop: 3,
	chess.Rook:   5,
	chess.Queen:  9,
	chess.King:   0,
}

// Validation is the outcome of checking a proposed move. Malformed squares
// and illegal moves yield Legal=false with a reason, never an error.
type Validation struct {
	Legal          bool
	Reason         string
	Move           *chess.Move
	SAN            string
	IsCapture      bool
	CapturedType   game.PieceType
	CapturedSquare string
	IsPromotion    bool
	IsRisky        bool
	IsCastle       bool
	RookFrom       string
	RookTo         string
}

// Engine is a thin adapter over one position of the rules oracle. Construct
// it per command from the game's authoritative FEN; it is not safe for
// concurrent use.
type Engine struct {
	g *chess.Game
}

// NewEngine builds an engine from a FEN string. A FEN that does not parse
// indicates corrupted stored state, which is the caller's fatal-error path.
func NewEngine(fen string) (*Engine, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("invalid board state %q: %w", fen, err)
	}
	return &Engine{g: chess.NewGame(opt)}, nil
}

// FEN returns the current position.
func (e *Engine) FEN() string {
	return e.g.Position().String()
}

// Turn returns the side to move.
func (e *Engine) Turn() game.Color {
	if e.g.Position().Turn() == chess.White {
		return game.White
	}
	return game.Black
}

// IsCheck reports whether the side to move is in check.
func (e *Engine) IsCheck() bool {
	pos := e.g.Position()
	kingSq := chess.NoSquare
	for sq, p := range pos.Board().SquareMap() {
		if p.Type() == chess.King && p.Color() == pos.Turn() {
			kingSq = sq
			break
		}
	}
	if kingSq == chess.NoSquare {
		return false
	}
	return attackedBy(pos.Board(), pos.Turn().Other(), kingSq)
}

// IsCheckmate reports whether the side to move is checkmated.
func (e *Engine) IsCheckmate() bool {
	return e.g.Position().Status() == chess.Checkmate
}

// IsStalemate reports whether the position is a stalemate.
func (e *Engine) IsStalemate() bool {
	return e.g.Position().Status() == chess.Stalemate
}

// IsGameOver reports whether the game has a terminal outcome.
func (e *Engine) IsGameOver() bool {
	return e.g.Outcome() != chess.NoOutcome
}

// parseSquare converts algebraic notation ("e4") into an oracle square.
func parseSquare(name string) (chess.Square, error) {
	if len(name) != 2 {
		return chess.NoSquare, fmt.Errorf("invalid square %q", name)
	}
	file := name[0] - 'a'
	rank := name[1] - '1'
	if file > 7 || rank > 7 {
		return chess.NoSquare, fmt.Errorf("invalid square %q", name)
	}
	return chess.Square(int(rank)*8 + int(file)), nil
}

func squareName(sq chess.Square) string {
	file := byte('a' + int(sq)%8)
	rank := byte('1' + int(sq)/8)
	return string([]byte{file, rank})
}

// Validate checks a proposed move. Pawns reaching the last rank are
// auto-promoted to queen; no choice is offered.
func (e *Engine) Validate(from, to string) Validation {
	fromSq, err := parseSquare(from)
	if err != nil {
		return Validation{Reason: "invalid square"}
	}
	toSq, err := parseSquare(to)
	if err != nil {
		return Validation{Reason: "invalid square"}
	}

	pos := e.g.Position()
	var move *chess.Move
	for _, m := range pos.ValidMoves() {
		if m.S1() != fromSq || m.S2() != toSq {
			continue
		}
		// Promotion generates one candidate per target piece; take the queen.
		if m.Promo() != chess.NoPieceType && m.Promo() != chess.Queen {
			continue
		}
		move = m
		break
	}
	if move == nil {
		return Validation{Reason: "illegal move"}
	}

	v := Validation{
		Legal:       true,
		Move:        move,
		SAN:         chess.AlgebraicNotation{}.Encode(pos, move),
		IsCapture:   move.HasTag(chess.Capture) || move.HasTag(chess.EnPassant),
		IsPromotion: move.Promo() != chess.NoPieceType,
	}
	if move.HasTag(chess.KingSideCastle) {
		v.IsCastle = true
		if pos.Turn() == chess.White {
			v.RookFrom, v.RookTo = "h1", "f1"
		} else {
			v.RookFrom, v.RookTo = "h8", "f8"
		}
	} else if move.HasTag(chess.QueenSideCastle) {
		v.IsCastle = true
		if pos.Turn() == chess.White {
			v.RookFrom, v.RookTo = "a1", "d1"
		} else {
			v.RookFrom, v.RookTo = "a8", "d8"
		}
	}
	if v.IsCapture {
		target := toSq
		if move.HasTag(chess.EnPassant) {
			// The captured pawn sits behind the destination square.
			if pos.Turn() == chess.White {
				target = toSq - 8
			} else {
				target = toSq + 8
			}
		}
		if p := pos.Board().Piece(target); p != chess.NoPiece {
			v.CapturedType = pieceTypeNames[p.Type()]
			v.CapturedSquare = squareName(target)
		}
	}
	v.IsRisky = e.isRisky(move)
	return v
}

// isRisky simulates the move and asks whether the opponent attacks the
// destination square afterward. Raw attack map: a pinned attacker still makes
// the square risky. One-ply lookahead only; multi-move tactics are out of
// scope.
func (e *Engine) isRisky(move *chess.Move) bool {
	after := e.g.Position().Update(move)
	return attackedBy(after.Board(), after.Turn(), move.S2())
}

// attackedBy reports whether any piece of the given color attacks the target
// square. Pure geometry over the occupancy: pins and move legality are
// deliberately ignored.
func attackedBy(b *chess.Board, color chess.Color, target chess.Square) bool {
	tf, tr := int(target)%8, int(target)/8
	for sq, p := range b.SquareMap() {
		if p.Color() != color {
			continue
		}
		f, r := int(sq)%8, int(sq)/8
		df, dr := tf-f, tr-r
		if df == 0 && dr == 0 {
			continue
		}
		switch p.Type() {
		case chess.Pawn:
			forward := 1
			if color == chess.Black {
				forward = -1
			}
			if dr == forward && (df == 1 || df == -1) {
				return true
			}
		case chess.Knight:
			if (absInt(df) == 1 && absInt(dr) == 2) || (absInt(df) == 2 && absInt(dr) == 1) {
				return true
			}
		case chess.King:
			if absInt(df) <= 1 && absInt(dr) <= 1 {
				return true
			}
		case chess.Bishop:
			if absInt(df) == absInt(dr) && rayClear(b, f, r, tf, tr) {
				return true
			}
		case chess.Rook:
			if (df == 0 || dr == 0) && rayClear(b, f, r, tf, tr) {
				return true
			}
		case chess.Queen:
			if (absInt(df) == absInt(dr) || df == 0 || dr == 0) && rayClear(b, f, r, tf, tr) {
				return true
			}
		}
	}
	return false
}

// rayClear reports whether the squares strictly between (f,r) and (tf,tr)
// are empty. The endpoints must share a rank, file, or diagonal.
func rayClear(b *chess.Board, f, r, tf, tr int) bool {
	stepF, stepR := signInt(tf-f), signInt(tr-r)
	for f, r = f+stepF, r+stepR; f != tf || r != tr; f, r = f+stepF, r+stepR {
		if b.Piece(chess.Square(r*8+f)) != chess.NoPiece {
			return false
		}
	}
	return true
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func signInt(n int) int {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}

// Apply executes a previously validated move and returns the new FEN.
// Callers must not invoke Apply without a prior legal Validate result.
func (e *Engine) Apply(v Validation) (string, error) {
	if !v.Legal || v.Move == nil {
		return "", fmt.Errorf("apply called without a legal validation")
	}
	if err := e.g.Move(v.Move); err != nil {
		return "", fmt.Errorf("apply move: %w", err)
	}
	return e.FEN(), nil
}

// PieceAt returns the piece kind and color at a square, if any.
func (e *Engine) PieceAt(square string) (game.PieceType, game.Color, bool) {
	sq, err := parseSquare(square)
	if err != nil {
		return "", "", false
	}
	p := e.g.Position().Board().Piece(sq)
	if p == chess.NoPiece {
		return "", "", false
	}
	color := game.White
	if p.Color() == chess.Black {
		color = game.Black
	}
	return pieceTypeNames[p.Type()], color, true
}

// MaterialBalance sums piece values, positive meaning white is ahead.
func (e *Engine) MaterialBalance() int {
	balance := 0
	for _, p := range e.g.Position().Board().SquareMap() {
		value := pieceValues[p.Type()]
		if p.Color() == chess.White {
			balance += value
		} else {
			balance -= value
		}
	}
	return balance
}

// Result classifies the terminal state, or "" if the game continues.
func (e *Engine) Result() game.Result {
	switch e.g.Outcome() {
	case chess.WhiteWon:
		return game.ResultWhiteWins
	case chess.BlackWon:
		return game.ResultBlackWins
	case chess.Draw:
		if e.g.Method() == chess.Stalemate {
			return game.ResultStalemate
		}
		return game.ResultDraw
	}
	return ""
}
