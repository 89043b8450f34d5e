package storage

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gamepkg "github.com/hmcavoy/mutiny-chess/pkg/game"
)

// runStoreTests exercises one Store implementation against the shared
// contract. Both backends must behave identically.
func runStoreTests(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	newGame := func(t *testing.T, s Store) (*gamepkg.Game, []*gamepkg.Piece) {
		g := gamepkg.New("session-1", gamepkg.ModePvAI, gamepkg.Settings{})
		pieces := gamepkg.StartingPieces(g.ID)
		require.NoError(t, s.CreateGame(ctx, g, pieces))
		return g, pieces
	}

	t.Run("create and get game", func(t *testing.T) {
		s := newStore(t)
		g, _ := newGame(t, s)

		loaded, err := s.GetGame(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, g.ID, loaded.ID)
		assert.Equal(t, gamepkg.StartingFEN, loaded.FEN)
		assert.Equal(t, gamepkg.StatusActive, loaded.Status)
	})

	t.Run("missing game returns ErrNotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetGame(ctx, uuid.New())
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("share code lookup", func(t *testing.T) {
		s := newStore(t)
		g, _ := newGame(t, s)

		loaded, err := s.GetGameByShareCode(ctx, g.ShareCode)
		require.NoError(t, err)
		assert.Equal(t, g.ID, loaded.ID)

		_, err = s.GetGameByShareCode(ctx, "NOPE99")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("update game", func(t *testing.T) {
		s := newStore(t)
		g, _ := newGame(t, s)

		g.Status = gamepkg.StatusCompleted
		g.Result = gamepkg.ResultWhiteWins
		require.NoError(t, s.UpdateGame(ctx, g))

		loaded, err := s.GetGame(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, gamepkg.StatusCompleted, loaded.Status)
		assert.Equal(t, gamepkg.ResultWhiteWins, loaded.Result)

		ghost := gamepkg.New("s", gamepkg.ModePvAI, gamepkg.Settings{})
		assert.ErrorIs(t, s.UpdateGame(ctx, ghost), ErrNotFound)
	})

	t.Run("pieces round trip", func(t *testing.T) {
		s := newStore(t)
		g, pieces := newGame(t, s)

		loaded, err := s.GetPieces(ctx, g.ID)
		require.NoError(t, err)
		assert.Len(t, loaded, 32)

		p, err := s.GetPiece(ctx, g.ID, pieces[0].ID)
		require.NoError(t, err)
		assert.Equal(t, pieces[0].Type, p.Type)
		assert.Equal(t, gamepkg.DefaultMorale, p.Morale)
	})

	t.Run("piece at square follows moves", func(t *testing.T) {
		s := newStore(t)
		g, _ := newGame(t, s)

		p, err := s.PieceAtSquare(ctx, g.ID, "e2")
		require.NoError(t, err)
		assert.Equal(t, gamepkg.Pawn, p.Type)

		p.Square = "e4"
		require.NoError(t, s.UpdatePiece(ctx, p))

		moved, err := s.PieceAtSquare(ctx, g.ID, "e4")
		require.NoError(t, err)
		assert.Equal(t, p.ID, moved.ID)

		_, err = s.PieceAtSquare(ctx, g.ID, "e2")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("captured piece vacates its square", func(t *testing.T) {
		s := newStore(t)
		g, _ := newGame(t, s)

		p, err := s.PieceAtSquare(ctx, g.ID, "d7")
		require.NoError(t, err)

		p.Captured = true
		require.NoError(t, s.UpdatePiece(ctx, p))

		_, err = s.PieceAtSquare(ctx, g.ID, "d7")
		assert.ErrorIs(t, err, ErrNotFound)

		// The piece record itself survives.
		loaded, err := s.GetPiece(ctx, g.ID, p.ID)
		require.NoError(t, err)
		assert.True(t, loaded.Captured)
	})

	t.Run("morale persists on update", func(t *testing.T) {
		s := newStore(t)
		g, pieces := newGame(t, s)

		p := pieces[0]
		p.Morale = 42
		p.Trust = 0.8
		require.NoError(t, s.UpdatePiece(ctx, p))

		loaded, err := s.GetPiece(ctx, g.ID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 42, loaded.Morale)
		assert.InDelta(t, 0.8, loaded.Trust, 1e-9)
	})

	t.Run("message log with paging", func(t *testing.T) {
		s := newStore(t)
		g, _ := newGame(t, s)

		for i := 0; i < 5; i++ {
			require.NoError(t, s.AppendMessage(ctx, &gamepkg.MessageRecord{
				ID:         uuid.New(),
				GameID:     g.ID,
				Kind:       gamepkg.MsgSystem,
				SenderName: "System",
				Content:    "msg",
				CreatedAt:  time.Now().UTC(),
			}))
		}

		all, err := s.GetMessages(ctx, g.ID, 0, 0)
		require.NoError(t, err)
		assert.Len(t, all, 5)

		page, err := s.GetMessages(ctx, g.ID, 2, 1)
		require.NoError(t, err)
		assert.Len(t, page, 2)

		empty, err := s.GetMessages(ctx, g.ID, 10, 99)
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("move log and count", func(t *testing.T) {
		s := newStore(t)
		g, pieces := newGame(t, s)

		n, err := s.MoveCount(ctx, g.ID)
		require.NoError(t, err)
		assert.Zero(t, n)

		require.NoError(t, s.AppendMove(ctx, &gamepkg.MoveRecord{
			ID: uuid.New(), GameID: g.ID, PieceID: pieces[0].ID,
			MoveNumber: 1, FromSquare: "e2", ToSquare: "e4", SAN: "e4",
			CreatedAt: time.Now().UTC(),
		}))

		moves, err := s.GetMoves(ctx, g.ID)
		require.NoError(t, err)
		require.Len(t, moves, 1)
		assert.Equal(t, "e4", moves[0].SAN)

		n, err = s.MoveCount(ctx, g.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("persuasion log filters by piece", func(t *testing.T) {
		s := newStore(t)
		g, pieces := newGame(t, s)

		for _, p := range pieces[:2] {
			require.NoError(t, s.AppendPersuasion(ctx, &gamepkg.PersuasionRecord{
				ID: uuid.New(), GameID: g.ID, PieceID: p.ID,
				Argument: "please", Success: false, Probability: 0.4,
				CreatedAt: time.Now().UTC(),
			}))
		}

		all, err := s.GetPersuasions(ctx, g.ID, uuid.Nil)
		require.NoError(t, err)
		assert.Len(t, all, 2)

		one, err := s.GetPersuasions(ctx, g.ID, pieces[0].ID)
		require.NoError(t, err)
		require.Len(t, one, 1)
		assert.Equal(t, pieces[0].ID, one[0].PieceID)
	})

	t.Run("morale event log", func(t *testing.T) {
		s := newStore(t)
		g, pieces := newGame(t, s)

		require.NoError(t, s.AppendMoraleEvent(ctx, &gamepkg.MoraleEvent{
			ID: uuid.New(), GameID: g.ID, PieceID: pieces[0].ID,
			Kind: gamepkg.EventCaptureEnemy, Delta: 15, MoraleAfter: 85,
			Description: "capture", CreatedAt: time.Now().UTC(),
		}))

		events, err := s.GetMoraleEvents(ctx, g.ID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, gamepkg.EventCaptureEnemy, events[0].Kind)
		assert.Equal(t, 15, events[0].Delta)
	})
}

func TestMemoryStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		return NewMemoryStore()
	})
}

func TestRedisStore(t *testing.T) {
	runStoreTests(t, func(t *testing.T) Store {
		mr := miniredis.RunT(t)
		logger := slog.New(slog.NewTextHandler(io.Discard, nil))
		s := NewRedisStore(mr.Addr(), logger)
		t.Cleanup(func() {
			if err := s.Close(); err != nil {
				t.Errorf("failed to close store: %v", err)
			}
		})
		return s
	})
}
