package resolver

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/hmcavoy/mutiny-chess/internal/rng"
	"github.com/hmcavoy/mutiny-chess/internal/services"
	"github.com/hmcavoy/mutiny-chess/internal/storage"
	"github.com/hmcavoy/mutiny-chess/pkg/game"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fixture struct {
	resolver *Resolver
	store    *storage.MemoryStore
	gen      *services.MockGenerator
}

// newFixture wires a resolver against in-memory everything. The seeded
// roller makes obedience and persuasion draws reproducible; seed 1 draws
// low enough that a default-morale piece obeys a safe order.
func newFixture(t *testing.T, seed int64) *fixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := storage.NewMemoryStore()
	gen := services.NewMockGenerator()
	orch := services.NewOrchestrator(gen,
		services.NewGovernor(0, 0, 0, logger),
		services.NewCostLedger(logger),
		services.NewMemoryCache(),
		rng.NewSeeded(seed),
		logger)

	return &fixture{
		resolver: New(store, orch, rng.NewSeeded(seed), logger),
		store:    store,
		gen:      gen,
	}
}

// newActiveGame creates a PvP game with both seats filled.
func (f *fixture) newActiveGame(t *testing.T) *game.Game {
	t.Helper()
	ctx := context.Background()

	view, err := f.resolver.CreateGame(ctx, "white-session", game.ModePvP, game.Settings{})
	require.NoError(t, err)
	_, err = f.resolver.Join(ctx, view.Game.ID, "black-session")
	require.NoError(t, err)

	g, err := f.store.GetGame(ctx, view.Game.ID)
	require.NoError(t, err)
	return g
}

func (f *fixture) pieceAt(t *testing.T, gameID uuid.UUID, square string) *game.Piece {
	t.Helper()
	p, err := f.store.PieceAtSquare(context.Background(), gameID, square)
	require.NoError(t, err)
	return p
}

func assertCode(t *testing.T, err error, code Code) {
	t.Helper()
	var rerr *Error
	require.ErrorAs(t, err, &rerr)
	assert.Equal(t, code, rerr.Code)
}

func TestCreateGame(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	t.Run("pvp waits for opponent", func(t *testing.T) {
		view, err := f.resolver.CreateGame(ctx, "s1", game.ModePvP, game.Settings{})
		require.NoError(t, err)
		assert.Equal(t, game.StatusWaiting, view.Game.Status)
		assert.Len(t, view.Pieces, 32)
		assert.Len(t, view.Game.ShareCode, 6)

		// A fresh game announces itself and the enemy king always opens
		// with trash talk.
		msgs, err := f.resolver.Messages(ctx, view.Game.ID, 0, 0)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, game.MsgSystem, msgs[0].Kind)
		assert.Equal(t, game.MsgKingTaunt, msgs[1].Kind)
	})

	t.Run("pvai starts immediately", func(t *testing.T) {
		view, err := f.resolver.CreateGame(ctx, "s1", game.ModePvAI, game.Settings{})
		require.NoError(t, err)
		assert.Equal(t, game.StatusActive, view.Game.Status)
		assert.Equal(t, "ai", view.Game.BlackPlayerID)
	})

	t.Run("rejects unknown mode", func(t *testing.T) {
		_, err := f.resolver.CreateGame(ctx, "s1", game.Mode("3d-chess"), game.Settings{})
		assertCode(t, err, CodeBadRequest)
	})

	t.Run("rejects empty session", func(t *testing.T) {
		_, err := f.resolver.CreateGame(ctx, "", game.ModePvP, game.Settings{})
		assertCode(t, err, CodeBadRequest)
	})
}

func TestJoin(t *testing.T) {
	f := newFixture(t, 1)
	ctx := context.Background()

	t.Run("second player activates the game", func(t *testing.T) {
		view, err := f.resolver.CreateGame(ctx, "host", game.ModePvP, game.Settings{})
		require.NoError(t, err)

		joined, err := f.resolver.Join(ctx, view.Game.ID, "guest")
		require.NoError(t, err)
		assert.Equal(t, game.StatusActive, joined.Game.Status)
		assert.Equal(t, "guest", joined.Game.BlackPlayerID)
	})

	t.Run("cannot join own game", func(t *testing.T) {
		view, err := f.resolver.CreateGame(ctx, "host", game.ModePvP, game.Settings{})
		require.NoError(t, err)

		_, err = f.resolver.Join(ctx, view.Game.ID, "host")
		assertCode(t, err, CodeForbidden)
	})

	t.Run("full game rejects a third player", func(t *testing.T) {
		g := f.newActiveGame(t)
		_, err := f.resolver.Join(ctx, g.ID, "third")
		assertCode(t, err, CodeGameFull)
	})

	t.Run("join by share code is case-insensitive", func(t *testing.T) {
		view, err := f.resolver.CreateGame(ctx, "host", game.ModePvP, game.Settings{})
		require.NoError(t, err)

		code := view.Game.ShareCode
		joined, err := f.resolver.JoinByCode(ctx, " "+stringsToLower(code)+" ", "guest")
		require.NoError(t, err)
		assert.Equal(t, view.Game.ID, joined.Game.ID)
	})

	t.Run("unknown share code", func(t *testing.T) {
		_, err := f.resolver.JoinByCode(ctx, "ZZZZZZ", "guest")
		assertCode(t, err, CodeInvalidCode)
	})
}

func stringsToLower(s string) string {
	b := []byte(s)
	for i := range b {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

func TestResolveCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("obeyed pawn push mutates everything", func(t *testing.T) {
		f := newFixture(t, 1)
		g := f.newActiveGame(t)
		pawn := f.pieceAt(t, g.ID, "e2")

		res, err := f.resolver.ResolveCommand(ctx, game.Command{
			GameID:       g.ID,
			PieceID:      pawn.ID,
			TargetSquare: "e4",
			SessionID:    "white-session",
		})
		require.NoError(t, err)
		require.True(t, res.Obeyed)
		assert.NotEmpty(t, res.ResponseText)
		assert.Empty(t, res.RefusalReason)

		require.NotNil(t, res.BoardState)
		assert.Equal(t, game.Black, res.BoardState.Turn)
		require.NotNil(t, res.BoardState.LastMove)
		assert.Equal(t, "e2", res.BoardState.LastMove.FromSquare)
		assert.Equal(t, "e4", res.BoardState.LastMove.ToSquare)

		// Quiet move: good_position for the mover only.
		require.Len(t, res.MoraleChanges, 1)
		assert.Equal(t, game.EventGoodPosition, res.MoraleChanges[0].Kind)
		assert.Equal(t, 75, res.MoraleAfter)

		moved := f.pieceAt(t, g.ID, "e4")
		assert.Equal(t, pawn.ID, moved.ID)
		assert.Equal(t, 75, moved.Morale)

		moves, err := f.resolver.Moves(ctx, g.ID)
		require.NoError(t, err)
		require.Len(t, moves, 1)
		assert.Equal(t, 1, moves[0].MoveNumber)
		assert.Equal(t, "e4", moves[0].SAN)

		updated, err := f.store.GetGame(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, game.Black, updated.Turn)
		assert.Contains(t, updated.FEN, "4P3")

		require.NotNil(t, res.Analysis)
		assert.NotEmpty(t, res.Analysis.AnalysisText)
	})

	t.Run("capture marks victim and moves morale both ways", func(t *testing.T) {
		f := newFixture(t, 1)
		g := f.newActiveGame(t)

		// 1.e4 d5 2.exd5. Seed 1's first draw (0.60) obeys at every morale
		// tier these pieces hit, so reseed before each command.
		whitePawn := f.pieceAt(t, g.ID, "e2")
		_, err := f.resolver.ResolveCommand(ctx, game.Command{GameID: g.ID, PieceID: whitePawn.ID, TargetSquare: "e4", SessionID: "white-session"})
		require.NoError(t, err)
		blackPawn := f.pieceAt(t, g.ID, "d7")
		f.resolver.roller = rng.NewSeeded(1)
		_, err = f.resolver.ResolveCommand(ctx, game.Command{GameID: g.ID, PieceID: blackPawn.ID, TargetSquare: "d5", SessionID: "black-session"})
		require.NoError(t, err)

		f.resolver.roller = rng.NewSeeded(1)
		res, err := f.resolver.ResolveCommand(ctx, game.Command{GameID: g.ID, PieceID: whitePawn.ID, TargetSquare: "d5", SessionID: "white-session"})
		require.NoError(t, err)
		require.True(t, res.Obeyed)

		victim, err := f.store.GetPiece(ctx, g.ID, blackPawn.ID)
		require.NoError(t, err)
		assert.True(t, victim.Captured)
		assert.Empty(t, victim.Square, "a captured piece holds no square")

		// 15 surviving black pieces mourn, the mover celebrates.
		var mourned, captures int
		for _, ev := range res.MoraleChanges {
			switch ev.Kind {
			case game.EventFriendlyCaptured:
				mourned++
				assert.Equal(t, -10, ev.Delta)
			case game.EventCaptureEnemy:
				captures++
				assert.Equal(t, whitePawn.ID, ev.PieceID)
			}
		}
		assert.Equal(t, 15, mourned)
		assert.Equal(t, 1, captures)

		attacker := f.pieceAt(t, g.ID, "d5")
		assert.Equal(t, whitePawn.ID, attacker.ID)
	})

	t.Run("illegal move declines without mutating", func(t *testing.T) {
		f := newFixture(t, 1)
		g := f.newActiveGame(t)
		pawn := f.pieceAt(t, g.ID, "e2")

		_, err := f.resolver.ResolveCommand(ctx, game.Command{
			GameID: g.ID, PieceID: pawn.ID, TargetSquare: "e5", SessionID: "white-session",
		})
		assertCode(t, err, CodeInvalidMove)

		unchanged, err := f.store.GetGame(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, game.StartingFEN, unchanged.FEN)
		assert.Equal(t, game.White, unchanged.Turn)

		count, err := f.store.MoveCount(ctx, g.ID)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("refusal leaves board and morale untouched", func(t *testing.T) {
		f := newFixture(t, 1)
		g := f.newActiveGame(t)
		pawn := f.pieceAt(t, g.ID, "e2")

		// In the mutinous band a pawn obeys only below 0.15; seed 1's
		// first draw of 0.60 refuses.
		pawn.Morale = 5
		require.NoError(t, f.store.UpdatePiece(ctx, pawn))

		res, err := f.resolver.ResolveCommand(ctx, game.Command{
			GameID: g.ID, PieceID: pawn.ID, TargetSquare: "e4", SessionID: "white-session",
		})
		require.NoError(t, err)
		require.False(t, res.Obeyed)
		assert.Equal(t, refusalReason, res.RefusalReason)
		assert.Equal(t, res.MoraleBefore, res.MoraleAfter)
		assert.Empty(t, res.MoraleChanges)
		assert.Nil(t, res.Analysis)

		unchanged, err := f.store.GetGame(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, game.StartingFEN, unchanged.FEN)
		assert.Equal(t, game.White, unchanged.Turn)

		still, err := f.store.GetPiece(ctx, g.ID, pawn.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, still.Morale)
		assert.Equal(t, "e2", still.Square)

		// The refusal is on the record.
		msgs, err := f.resolver.Messages(ctx, g.ID, 0, 0)
		require.NoError(t, err)
		var sawRefusal bool
		for _, m := range msgs {
			if m.Kind == game.MsgPieceRefusal {
				sawRefusal = true
			}
		}
		assert.True(t, sawRefusal)
	})

	t.Run("out of turn", func(t *testing.T) {
		f := newFixture(t, 1)
		g := f.newActiveGame(t)
		pawn := f.pieceAt(t, g.ID, "e7")

		_, err := f.resolver.ResolveCommand(ctx, game.Command{
			GameID: g.ID, PieceID: pawn.ID, TargetSquare: "e5", SessionID: "black-session",
		})
		assertCode(t, err, CodeNotYourTurn)
	})

	t.Run("cannot command the opponent's piece", func(t *testing.T) {
		f := newFixture(t, 1)
		g := f.newActiveGame(t)
		pawn := f.pieceAt(t, g.ID, "e7")

		_, err := f.resolver.ResolveCommand(ctx, game.Command{
			GameID: g.ID, PieceID: pawn.ID, TargetSquare: "e5", SessionID: "white-session",
		})
		assertCode(t, err, CodeForbidden)
	})

	t.Run("unknown game and piece", func(t *testing.T) {
		f := newFixture(t, 1)
		g := f.newActiveGame(t)

		_, err := f.resolver.ResolveCommand(ctx, game.Command{
			GameID: uuid.New(), PieceID: uuid.New(), TargetSquare: "e4", SessionID: "white-session",
		})
		assertCode(t, err, CodeGameNotFound)

		_, err = f.resolver.ResolveCommand(ctx, game.Command{
			GameID: g.ID, PieceID: uuid.New(), TargetSquare: "e4", SessionID: "white-session",
		})
		assertCode(t, err, CodePieceNotFound)
	})

	t.Run("captured piece takes no orders", func(t *testing.T) {
		f := newFixture(t, 1)
		g := f.newActiveGame(t)
		pawn := f.pieceAt(t, g.ID, "e2")
		pawn.Captured = true
		require.NoError(t, f.store.UpdatePiece(ctx, pawn))

		_, err := f.resolver.ResolveCommand(ctx, game.Command{
			GameID: g.ID, PieceID: pawn.ID, TargetSquare: "e4", SessionID: "white-session",
		})
		assertCode(t, err, CodePieceCaptured)
	})

	t.Run("completed game rejects commands", func(t *testing.T) {
		f := newFixture(t, 1)
		g := f.newActiveGame(t)
		_, err := f.resolver.Resign(ctx, g.ID, "white-session")
		require.NoError(t, err)

		pawn := f.pieceAt(t, g.ID, "e2")
		_, err = f.resolver.ResolveCommand(ctx, game.Command{
			GameID: g.ID, PieceID: pawn.ID, TargetSquare: "e4", SessionID: "white-session",
		})
		assertCode(t, err, CodeGameEnded)
	})
}

func TestResolveCommandConcurrency(t *testing.T) {
	// Two goroutines hammer the same game; per-game locking must keep the
	// move log consistent with the board.
	f := newFixture(t, 1)
	g := f.newActiveGame(t)
	ctx := context.Background()

	whitePawn := f.pieceAt(t, g.ID, "e2")
	blackPawn := f.pieceAt(t, g.ID, "e7")

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			f.resolver.ResolveCommand(ctx, game.Command{GameID: g.ID, PieceID: whitePawn.ID, TargetSquare: "e4", SessionID: "white-session"}) //nolint:errcheck
		}()
		go func() {
			defer wg.Done()
			f.resolver.ResolveCommand(ctx, game.Command{GameID: g.ID, PieceID: blackPawn.ID, TargetSquare: "e5", SessionID: "black-session"}) //nolint:errcheck
		}()
	}
	wg.Wait()

	moves, err := f.resolver.Moves(ctx, g.ID)
	require.NoError(t, err)
	updated, err := f.store.GetGame(ctx, g.ID)
	require.NoError(t, err)

	// At most one move per side is legal in this position, and move
	// numbers must be dense from 1.
	assert.LessOrEqual(t, len(moves), 2)
	for i, m := range moves {
		assert.Equal(t, i+1, m.MoveNumber)
	}
	if len(moves) > 0 {
		assert.Equal(t, moves[len(moves)-1].FENAfter, updated.FEN)
	}
}

func TestResignAndDraw(t *testing.T) {
	ctx := context.Background()

	t.Run("resign awards the opponent", func(t *testing.T) {
		f := newFixture(t, 1)
		g := f.newActiveGame(t)

		done, err := f.resolver.Resign(ctx, g.ID, "white-session")
		require.NoError(t, err)
		assert.Equal(t, game.StatusCompleted, done.Status)
		assert.Equal(t, game.ResultBlackWins, done.Result)
	})

	t.Run("spectators cannot resign", func(t *testing.T) {
		f := newFixture(t, 1)
		g := f.newActiveGame(t)
		_, err := f.resolver.Resign(ctx, g.ID, "nobody")
		assertCode(t, err, CodeForbidden)
	})

	t.Run("draw offer accepted ends in a draw", func(t *testing.T) {
		f := newFixture(t, 1)
		g := f.newActiveGame(t)

		offered, err := f.resolver.OfferDraw(ctx, g.ID, "white-session")
		require.NoError(t, err)
		assert.Equal(t, game.White, offered.DrawOfferBy)

		done, err := f.resolver.RespondDraw(ctx, g.ID, "black-session", true)
		require.NoError(t, err)
		assert.Equal(t, game.StatusCompleted, done.Status)
		assert.Equal(t, game.ResultDraw, done.Result)
	})

	t.Run("declined offer keeps playing", func(t *testing.T) {
		f := newFixture(t, 1)
		g := f.newActiveGame(t)

		_, err := f.resolver.OfferDraw(ctx, g.ID, "white-session")
		require.NoError(t, err)
		still, err := f.resolver.RespondDraw(ctx, g.ID, "black-session", false)
		require.NoError(t, err)
		assert.Equal(t, game.StatusActive, still.Status)
		assert.Empty(t, still.DrawOfferBy)
	})

	t.Run("offerer cannot answer own offer", func(t *testing.T) {
		f := newFixture(t, 1)
		g := f.newActiveGame(t)

		_, err := f.resolver.OfferDraw(ctx, g.ID, "white-session")
		require.NoError(t, err)
		_, err = f.resolver.RespondDraw(ctx, g.ID, "white-session", true)
		assertCode(t, err, CodeForbidden)
	})

	t.Run("no pending offer", func(t *testing.T) {
		f := newFixture(t, 1)
		g := f.newActiveGame(t)
		_, err := f.resolver.RespondDraw(ctx, g.ID, "black-session", true)
		assertCode(t, err, CodeBadRequest)
	})
}
