// Package resolver turns player commands into game-state transitions. It is
// the only writer of board and morale state: every mutation flows through a
// validated, per-game-serialized resolution here.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/hmcavoy/mutiny-chess/internal/rng"
	"github.com/hmcavoy/mutiny-chess/internal/services"
	"github.com/hmcavoy/mutiny-chess/internal/storage"
	"github.com/hmcavoy/mutiny-chess/pkg/board"
	"github.com/hmcavoy/mutiny-chess/pkg/game"
	"github.com/hmcavoy/mutiny-chess/pkg/morale"
	"github.com/hmcavoy/mutiny-chess/pkg/persuade"
	"github.com/hmcavoy/mutiny-chess/pkg/taunt"
)

const refusalReason = "The move is too risky for current morale level"

// Resolver owns the command and persuasion pipelines.
type Resolver struct {
	store  storage.Store
	orch   *services.Orchestrator
	roller *rng.Roller
	logger *slog.Logger
	locks  *gameLocker
}

func New(store storage.Store, orch *services.Orchestrator, roller *rng.Roller, logger *slog.Logger) *Resolver {
	return &Resolver{
		store:  store,
		orch:   orch,
		roller: roller,
		logger: logger,
		locks:  newGameLocker(),
	}
}

func playerName(sessionID string) string {
	if len(sessionID) > 6 {
		sessionID = sessionID[:6]
	}
	return "Player-" + sessionID
}

func pieceName(p *game.Piece) string {
	return fmt.Sprintf("%s-%s", titleType(p.Type), p.Square)
}

func titleType(t game.PieceType) string {
	if t == "" {
		return ""
	}
	b := []byte(t)
	if b[0] >= 'a' && b[0] <= 'z' {
		b[0] -= 'a' - 'A'
	}
	return string(b)
}

func (r *Resolver) addMessage(ctx context.Context, gameID uuid.UUID, kind game.MessageKind, sender, senderID, content string, metadata map[string]any) {
	err := r.store.AppendMessage(ctx, &game.MessageRecord{
		ID:         uuid.New(),
		GameID:     gameID,
		Kind:       kind,
		SenderName: sender,
		SenderID:   senderID,
		Content:    content,
		Metadata:   metadata,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		r.logger.Error("failed to append message", "game_id", gameID, "kind", kind, "error", err)
	}
}

// loadActiveGame fetches a game and checks it accepts commands.
func (r *Resolver) loadActiveGame(ctx context.Context, gameID uuid.UUID) (*game.Game, error) {
	g, err := r.store.GetGame(ctx, gameID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, Declined(CodeGameNotFound, "Game not found")
		}
		return nil, Internal("load game", err)
	}
	if g.Status != game.StatusActive {
		return nil, Declined(CodeGameEnded, "Game is not active")
	}
	return g, nil
}

// ResolveCommand runs the full move-order pipeline: validate, decide
// obedience, and if obeyed mutate board, pieces, morale, and logs. An
// illegal or refused order never touches board state.
func (r *Resolver) ResolveCommand(ctx context.Context, cmd game.Command) (*game.CommandResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, Declined(CodeBadRequest, err.Error())
	}

	unlock := r.locks.lock(cmd.GameID)
	defer unlock()

	g, err := r.loadActiveGame(ctx, cmd.GameID)
	if err != nil {
		return nil, err
	}

	color, ok := g.ColorOf(cmd.SessionID)
	if !ok || color != g.Turn {
		return nil, Declined(CodeNotYourTurn, "It's not your turn")
	}

	piece, err := r.store.GetPiece(ctx, cmd.GameID, cmd.PieceID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, Declined(CodePieceNotFound, "Piece not found")
		}
		return nil, Internal("load piece", err)
	}
	if piece.Captured {
		return nil, Declined(CodePieceCaptured, "Piece is captured")
	}
	if piece.Color != color {
		return nil, Declined(CodeForbidden, "Not your piece")
	}

	// The square index must agree with the piece record; a mismatch means
	// corrupted state, not player error.
	if onSquare, err := r.store.PieceAtSquare(ctx, cmd.GameID, piece.Square); err != nil || onSquare.ID != piece.ID {
		return nil, Internal("square index mismatch", err)
	}

	engine, err := board.NewEngine(g.FEN)
	if err != nil {
		return nil, Internal("corrupt board state", err)
	}

	v := engine.Validate(piece.Square, cmd.TargetSquare)
	if !v.Legal {
		return nil, Declined(CodeInvalidMove, v.Reason)
	}

	moveCount, err := r.store.MoveCount(ctx, cmd.GameID)
	if err != nil {
		return nil, Internal("count moves", err)
	}
	moveNumber := moveCount + 1

	willMove := morale.WillObey(piece.Morale, v.IsRisky, piece.Type, r.roller.Float64())

	commandText := cmd.Message
	if commandText == "" {
		commandText = fmt.Sprintf("@%s move to %s", pieceName(piece), cmd.TargetSquare)
	}
	r.addMessage(ctx, cmd.GameID, game.MsgPlayerCommand, playerName(cmd.SessionID), cmd.SessionID, commandText,
		map[string]any{"piece_id": cmd.PieceID.String(), "target_square": cmd.TargetSquare})

	pc := services.PieceContext{
		GameID:       cmd.GameID.String(),
		MoveNumber:   moveNumber,
		PieceType:    piece.Type,
		Personality:  piece.Personality,
		Morale:       piece.Morale,
		MoveSAN:      v.SAN,
		TargetSquare: cmd.TargetSquare,
		IsRisky:      v.IsRisky,
		WillMove:     willMove,
	}
	if v.IsCapture {
		pc.CaptureText = fmt.Sprintf("the enemy %s on %s", v.CapturedType, cmd.TargetSquare)
	}
	responseText := r.orch.PieceResponse(ctx, pc)

	result := &game.CommandResult{
		Obeyed:       willMove,
		ResponseText: responseText,
		MoraleBefore: piece.Morale,
		MoraleAfter:  piece.Morale,
	}

	if !willMove {
		// A refusal mutates nothing: no board change, no morale event.
		result.RefusalReason = refusalReason
		r.addMessage(ctx, cmd.GameID, game.MsgPieceRefusal, pieceName(piece), "", responseText,
			map[string]any{"piece_id": piece.ID.String(), "morale": piece.Morale, "will_move": false})
		result.BoardState = &game.BoardState{
			FEN:     g.FEN,
			Turn:    g.Turn,
			IsCheck: engine.IsCheck(),
		}
		return result, nil
	}

	r.addMessage(ctx, cmd.GameID, game.MsgPieceResponse, pieceName(piece), "", responseText,
		map[string]any{"piece_id": piece.ID.String(), "morale": piece.Morale, "will_move": true})

	exec, err := r.executeMove(ctx, g, piece, engine, v, moveNumber, cmd.SessionID)
	if err != nil {
		return nil, err
	}
	result.MoraleAfter = exec.moverMorale
	result.BoardState = exec.boardState
	result.MoraleChanges = exec.moraleChanges

	result.Analysis = r.orch.AnalyzeMove(ctx, services.AnalysisContext{
		GameID:          cmd.GameID.String(),
		FENBefore:       g.FEN,
		FENAfter:        exec.boardState.FEN,
		MoveSAN:         v.SAN,
		MoveNumber:      moveNumber,
		MaterialBalance: exec.materialWhite,
	})
	if result.Analysis != nil {
		r.addMessage(ctx, cmd.GameID, game.MsgAnalysis, "AI Analyst", "", result.Analysis.AnalysisText,
			map[string]any{"move_quality": result.Analysis.MoveQuality, "evaluation": result.Analysis.Evaluation})
	}

	if t := r.kingTaunt(ctx, g, piece, v, exec, moveNumber); t != nil {
		result.Taunt = t.Text
		r.addMessage(ctx, cmd.GameID, game.MsgKingTaunt, "Opponent King", "", t.Text,
			map[string]any{"intensity": t.Intensity})
	}

	return result, nil
}

// kingTaunt selects the opposing king's reaction to an executed move.
func (r *Resolver) kingTaunt(ctx context.Context, g *game.Game, mover *game.Piece, v board.Validation, exec *moveExecution, moveNumber int) *services.Taunt {
	trigger := taunt.TriggerGreatMove
	tauntPiece := mover.Type
	switch {
	case exec.boardState.IsCheck:
		trigger = taunt.TriggerCheck
	case v.IsCapture:
		trigger = taunt.TriggerPieceCaptured
		tauntPiece = v.CapturedType
	}

	// Material from the taunting king's side, which is the side that did
	// not just move.
	balance := exec.materialWhite
	if mover.Color == game.White {
		balance = -balance
	}

	return r.orch.KingTaunt(ctx, services.TauntContext{
		GameID:          g.ID.String(),
		Trigger:         trigger,
		MaterialBalance: balance,
		MoveCount:       moveNumber,
		PieceType:       tauntPiece,
	})
}

// moveExecution carries the results of a board mutation.
type moveExecution struct {
	boardState    *game.BoardState
	moraleChanges []game.MoraleEvent
	moverMorale   int
	materialWhite int
}

// recordMoraleEvent applies one morale event to a piece, persists both the
// piece and the log entry, and returns the event.
func (r *Resolver) recordMoraleEvent(ctx context.Context, p *game.Piece, kind game.EventKind) (game.MoraleEvent, error) {
	delta := morale.Delta(kind, p.Personality)
	p.Morale = morale.Apply(p.Morale, delta)

	event := game.MoraleEvent{
		ID:          uuid.New(),
		GameID:      p.GameID,
		PieceID:     p.ID,
		Kind:        kind,
		Delta:       delta,
		MoraleAfter: p.Morale,
		Description: morale.Describe(kind, p.Type, delta, p.Morale),
		CreatedAt:   time.Now().UTC(),
	}

	if err := r.store.UpdatePiece(ctx, p); err != nil {
		return event, Internal("update piece morale", err)
	}
	if err := r.store.AppendMoraleEvent(ctx, &event); err != nil {
		return event, Internal("append morale event", err)
	}
	return event, nil
}

// executeMove applies a validated, accepted move: board, piece positions,
// captures, promotion, morale, move log, and game record.
func (r *Resolver) executeMove(ctx context.Context, g *game.Game, piece *game.Piece, engine *board.Engine, v board.Validation, moveNumber int, sessionID string) (*moveExecution, error) {
	fromSquare := piece.Square

	newFEN, err := engine.Apply(v)
	if err != nil {
		return nil, Internal("apply move", err)
	}

	var changes []game.MoraleEvent

	// Capture resolves before the mover takes the square.
	if v.IsCapture {
		captured, err := r.store.PieceAtSquare(ctx, g.ID, v.CapturedSquare)
		if err != nil || captured.Color == piece.Color {
			return nil, Internal("capture target missing from square index", err)
		}
		captured.Captured = true
		captured.Square = ""
		if err := r.store.UpdatePiece(ctx, captured); err != nil {
			return nil, Internal("mark piece captured", err)
		}

		// Teammates of the fallen piece mourn.
		teammates, err := r.store.GetPieces(ctx, g.ID)
		if err != nil {
			return nil, Internal("load pieces", err)
		}
		for _, tm := range teammates {
			if tm.Color != captured.Color || tm.Captured || tm.ID == captured.ID {
				continue
			}
			event, err := r.recordMoraleEvent(ctx, tm, game.EventFriendlyCaptured)
			if err != nil {
				return nil, err
			}
			changes = append(changes, event)
		}
	}

	piece.Square = v.Move.S2().String()
	if v.IsPromotion {
		piece.Type = game.Queen
	}
	if err := r.store.UpdatePiece(ctx, piece); err != nil {
		return nil, Internal("update piece position", err)
	}

	// Castling moves the rook too; its record must follow.
	if v.IsCastle {
		rook, err := r.store.PieceAtSquare(ctx, g.ID, v.RookFrom)
		if err != nil || rook.Color != piece.Color {
			return nil, Internal("castling rook missing from square index", err)
		}
		rook.Square = v.RookTo
		if err := r.store.UpdatePiece(ctx, rook); err != nil {
			return nil, Internal("update rook position", err)
		}
	}

	if err := r.store.AppendMove(ctx, &game.MoveRecord{
		ID:         uuid.New(),
		GameID:     g.ID,
		PieceID:    piece.ID,
		PlayerID:   sessionID,
		MoveNumber: moveNumber,
		FromSquare: fromSquare,
		ToSquare:   piece.Square,
		SAN:        v.SAN,
		FENAfter:   newFEN,
		CreatedAt:  time.Now().UTC(),
	}); err != nil {
		return nil, Internal("append move", err)
	}

	// Mover morale: a capture emboldens, a quiet move still feels good.
	moverEvent := game.EventGoodPosition
	if v.IsCapture {
		moverEvent = game.EventCaptureEnemy
	}
	event, err := r.recordMoraleEvent(ctx, piece, moverEvent)
	if err != nil {
		return nil, err
	}
	changes = append(changes, event)

	if v.IsPromotion {
		event, err := r.recordMoraleEvent(ctx, piece, game.EventPromotion)
		if err != nil {
			return nil, err
		}
		changes = append(changes, event)
	}

	g.FEN = newFEN
	g.Turn = g.Turn.Opponent()
	g.UpdatedAt = time.Now().UTC()
	if res := engine.Result(); res != "" {
		g.Status = game.StatusCompleted
		g.Result = res
	}
	if err := r.store.UpdateGame(ctx, g); err != nil {
		return nil, Internal("update game", err)
	}

	return &moveExecution{
		boardState: &game.BoardState{
			FEN:         newFEN,
			Turn:        g.Turn,
			IsCheck:     engine.IsCheck(),
			IsCheckmate: engine.IsCheckmate(),
			IsStalemate: engine.IsStalemate(),
			LastMove: &game.LastMove{
				FromSquare: fromSquare,
				ToSquare:   piece.Square,
				SAN:        v.SAN,
				PieceType:  piece.Type,
			},
		},
		moraleChanges: changes,
		moverMorale:   piece.Morale,
		materialWhite: engine.MaterialBalance(),
	}, nil
}

// ResolvePersuasion scores the player's argument against a piece and, on
// success with a legal target, executes the move. The attempt is recorded
// whatever the outcome.
func (r *Resolver) ResolvePersuasion(ctx context.Context, att game.PersuasionAttempt) (*game.PersuasionResult, error) {
	if err := att.Validate(); err != nil {
		return nil, Declined(CodeBadRequest, err.Error())
	}

	unlock := r.locks.lock(att.GameID)
	defer unlock()

	g, err := r.loadActiveGame(ctx, att.GameID)
	if err != nil {
		return nil, err
	}

	piece, err := r.store.GetPiece(ctx, att.GameID, att.PieceID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, Declined(CodePieceNotFound, "Piece not found")
		}
		return nil, Internal("load piece", err)
	}
	if piece.Captured {
		return nil, Declined(CodePieceCaptured, "Piece is captured")
	}

	engine, err := board.NewEngine(g.FEN)
	if err != nil {
		return nil, Internal("corrupt board state", err)
	}
	v := engine.Validate(piece.Square, att.TargetSquare)

	moveCount, err := r.store.MoveCount(ctx, att.GameID)
	if err != nil {
		return nil, Internal("count moves", err)
	}

	r.addMessage(ctx, att.GameID, game.MsgPersuasionAttempt, playerName(att.SessionID), att.SessionID, att.Argument,
		map[string]any{"piece_id": att.PieceID.String(), "is_voice": att.IsVoice})

	// Urgency sees material from the piece's own side.
	balance := engine.MaterialBalance()
	if piece.Color == game.Black {
		balance = -balance
	}

	success, score := persuade.Evaluate(persuade.Input{
		Argument:        att.Argument,
		PieceType:       piece.Type,
		Morale:          piece.Morale,
		ClaimAccurate:   v.Legal,
		IsRisky:         v.IsRisky,
		TrustHistory:    piece.Trust,
		IsCheck:         engine.IsCheck(),
		MaterialBalance: balance,
		MoveCount:       moveCount,
	}, r.roller.Float64())

	responseText := r.orch.PersuasionResponse(ctx, services.PieceContext{
		GameID:      att.GameID.String(),
		MoveNumber:  moveCount + 1,
		PieceType:   piece.Type,
		Personality: piece.Personality,
		Morale:      piece.Morale,
	}, att.Argument, success)

	r.addMessage(ctx, att.GameID, game.MsgPersuasionResult, pieceName(piece), "", responseText,
		map[string]any{"success": success, "probability": score.Probability})

	// The attempt is always persisted, success or not.
	if err := r.store.AppendPersuasion(ctx, &game.PersuasionRecord{
		ID:          uuid.New(),
		GameID:      att.GameID,
		PieceID:     att.PieceID,
		PlayerID:    att.SessionID,
		Argument:    att.Argument,
		IsVoice:     att.IsVoice,
		Success:     success,
		Probability: score.Probability,
		Response:    responseText,
		Score:       score,
		CreatedAt:   time.Now().UTC(),
	}); err != nil {
		return nil, Internal("append persuasion", err)
	}

	// Being heard or dismissed moves morale and trust.
	outcomeEvent := game.EventPersuasionFail
	trustDelta := -0.05
	if success {
		outcomeEvent = game.EventPersuasionSuccess
		trustDelta = 0.05
	}
	piece.Trust = clampTrust(piece.Trust + trustDelta)
	if _, err := r.recordMoraleEvent(ctx, piece, outcomeEvent); err != nil {
		return nil, err
	}

	result := &game.PersuasionResult{
		Success:       success,
		Probability:   score.Probability,
		PieceResponse: responseText,
		Score:         score,
	}

	if success && v.Legal {
		exec, err := r.executeMove(ctx, g, piece, engine, v, moveCount+1, att.SessionID)
		if err != nil {
			return nil, err
		}
		result.MoveExecuted = true
		result.BoardState = exec.boardState
	}

	return result, nil
}

func clampTrust(t float64) float64 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}
