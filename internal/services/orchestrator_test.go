package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmcavoy/mutiny-chess/internal/rng"
	"github.com/hmcavoy/mutiny-chess/pkg/game"
	"github.com/hmcavoy/mutiny-chess/pkg/taunt"
)

func newTestOrchestrator(gen Generator) (*Orchestrator, *[]time.Duration) {
	var slept []time.Duration
	var mu sync.Mutex
	o := NewOrchestrator(gen,
		NewGovernor(5, 200, 50, testLogger()),
		NewCostLedger(testLogger()),
		NewMemoryCache(),
		rng.NewSeeded(42),
		testLogger())
	o.sleep = func(d time.Duration) {
		mu.Lock()
		slept = append(slept, d)
		mu.Unlock()
	}
	return o, &slept
}

func pieceCtx(willMove bool) PieceContext {
	return PieceContext{
		GameID:       "game-1",
		MoveNumber:   1,
		PieceType:    game.Knight,
		Personality:  game.DefaultPersonalities[game.Knight],
		Morale:       70,
		MoveSAN:      "Nf3",
		TargetSquare: "f3",
		WillMove:     willMove,
	}
}

func TestPieceResponseUsesBackend(t *testing.T) {
	gen := NewMockGenerator()
	gen.GenerateFunc = func(ctx context.Context, req GenRequest) (*GenResponse, error) {
		return &GenResponse{Text: "Watch this!", InputTokens: 20, OutputTokens: 4}, nil
	}
	o, _ := newTestOrchestrator(gen)

	text := o.PieceResponse(context.Background(), pieceCtx(true))
	assert.Equal(t, "Watch this!", text)
	assert.Equal(t, 1, gen.CallCount())

	// Token usage lands in the ledger.
	cost := o.ledger.GameCost("game-1")
	assert.Equal(t, 1, cost.Calls)
	assert.Equal(t, 20, cost.InputTokens)
}

func TestPieceResponseGovernorDecline(t *testing.T) {
	gen := NewMockGenerator()
	o, _ := newTestOrchestrator(gen)
	o.governor = NewGovernor(1, 200, 50, testLogger())

	first := o.PieceResponse(context.Background(), pieceCtx(true))
	assert.NotEmpty(t, first)
	assert.Equal(t, 1, gen.CallCount())

	// Budget for the move is spent; no remote call, fallback text instead.
	second := o.PieceResponse(context.Background(), pieceCtx(true))
	assert.NotEmpty(t, second)
	assert.Equal(t, 1, gen.CallCount())
}

func TestGenerateRetriesTimeouts(t *testing.T) {
	gen := NewMockGenerator()
	calls := 0
	gen.GenerateFunc = func(ctx context.Context, req GenRequest) (*GenResponse, error) {
		calls++
		if calls < 3 {
			return nil, &GenError{Kind: FailureTimeout, Message: "deadline exceeded"}
		}
		return &GenResponse{Text: "finally"}, nil
	}
	o, slept := newTestOrchestrator(gen)

	resp, err := o.generate(context.Background(), "game-1", 1, "test", GenRequest{Prompt: "p"})
	require.NoError(t, err)
	assert.Equal(t, "finally", resp.Text)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
}

func TestGenerateRetryBudgetExhausted(t *testing.T) {
	gen := NewMockGenerator()
	gen.GenerateFunc = func(ctx context.Context, req GenRequest) (*GenResponse, error) {
		return nil, &GenError{Kind: FailureServer, StatusCode: 503, Message: "unavailable"}
	}
	o, slept := newTestOrchestrator(gen)

	_, err := o.generate(context.Background(), "game-1", 1, "test", GenRequest{Prompt: "p"})
	assert.Error(t, err)
	assert.Equal(t, 3, gen.CallCount())
	assert.Len(t, *slept, 2)
}

func TestGenerateNonRetryableFailsFast(t *testing.T) {
	gen := NewMockGenerator()
	gen.GenerateFunc = func(ctx context.Context, req GenRequest) (*GenResponse, error) {
		return nil, &GenError{Kind: FailureOther, StatusCode: 400, Message: "bad request"}
	}
	o, slept := newTestOrchestrator(gen)

	_, err := o.generate(context.Background(), "game-1", 1, "test", GenRequest{Prompt: "p"})
	assert.Error(t, err)
	assert.Equal(t, 1, gen.CallCount())
	assert.Empty(t, *slept)
}

func TestPieceResponseFallbackNeverEmpty(t *testing.T) {
	gen := NewMockGenerator()
	gen.GenerateFunc = func(ctx context.Context, req GenRequest) (*GenResponse, error) {
		return nil, &GenError{Kind: FailureOther, Message: "down"}
	}
	o, _ := newTestOrchestrator(gen)

	for _, pt := range game.PieceTypes {
		for _, morale := range []int{0, 25, 50, 75, 100} {
			for _, willMove := range []bool{true, false} {
				pc := pieceCtx(willMove)
				pc.PieceType = pt
				pc.Morale = morale
				assert.NotEmpty(t, o.PieceResponse(context.Background(), pc))
			}
		}
	}
}

func TestAnalyzeMoveCachesByPosition(t *testing.T) {
	gen := NewMockGenerator()
	gen.GenerateFunc = func(ctx context.Context, req GenRequest) (*GenResponse, error) {
		return &GenResponse{Text: "solid development"}, nil
	}
	o, _ := newTestOrchestrator(gen)

	ac := AnalysisContext{
		GameID:    "game-1",
		FENBefore: game.StartingFEN,
		FENAfter:  "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1",
		MoveSAN:   "e4",
	}

	first := o.AnalyzeMove(context.Background(), ac)
	require.NotNil(t, first)
	assert.Equal(t, "solid development", first.AnalysisText)

	second := o.AnalyzeMove(context.Background(), ac)
	require.NotNil(t, second)
	assert.Equal(t, first.AnalysisText, second.AnalysisText)
	assert.Equal(t, 1, gen.CallCount(), "identical position served from cache")

	// A different resulting position misses the cache.
	ac.FENAfter = "rnbqkbnr/pppppppp/8/8/3P4/8/PPP1PPPP/RNBQKBNR b KQkq - 0 1"
	ac.MoveSAN = "d4"
	o.AnalyzeMove(context.Background(), ac)
	assert.Equal(t, 2, gen.CallCount())
}

func TestAnalyzeMoveFallback(t *testing.T) {
	gen := NewMockGenerator()
	gen.GenerateFunc = func(ctx context.Context, req GenRequest) (*GenResponse, error) {
		return nil, &GenError{Kind: FailureOther, Message: "down"}
	}
	o, _ := newTestOrchestrator(gen)

	a := o.AnalyzeMove(context.Background(), AnalysisContext{
		GameID: "game-1", FENAfter: game.StartingFEN, MoveSAN: "e4", MaterialBalance: 2,
	})
	require.NotNil(t, a)
	assert.NotEmpty(t, a.AnalysisText)
	assert.Contains(t, a.AnalysisText, "e4")
	assert.GreaterOrEqual(t, a.MoveQuality, 4)
	assert.LessOrEqual(t, a.MoveQuality, 8)
}

func TestKingTauntCriticalTriggerFallsBack(t *testing.T) {
	gen := NewMockGenerator()
	gen.GenerateFunc = func(ctx context.Context, req GenRequest) (*GenResponse, error) {
		return nil, &GenError{Kind: FailureServer, StatusCode: 500, Message: "down"}
	}
	o, _ := newTestOrchestrator(gen)

	got := o.KingTaunt(context.Background(), TauntContext{
		GameID:  "game-1",
		Trigger: taunt.TriggerCheck,
	})
	require.NotNil(t, got, "critical triggers always produce a taunt")
	assert.NotEmpty(t, got.Text)
	assert.Equal(t, 4, got.Intensity)
}

func TestKingTauntCachesLine(t *testing.T) {
	gen := NewMockGenerator()
	gen.GenerateFunc = func(ctx context.Context, req GenRequest) (*GenResponse, error) {
		return &GenResponse{Text: "Run, little King!"}, nil
	}
	o, _ := newTestOrchestrator(gen)

	tc := TauntContext{GameID: "game-1", Trigger: taunt.TriggerCheck}
	first := o.KingTaunt(context.Background(), tc)
	require.NotNil(t, first)

	second := o.KingTaunt(context.Background(), tc)
	require.NotNil(t, second)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, 1, gen.CallCount())
}

func TestKingTauntNeutralNonCriticalStaysQuiet(t *testing.T) {
	gen := NewMockGenerator()
	gen.GenerateFunc = func(ctx context.Context, req GenRequest) (*GenResponse, error) {
		return nil, &GenError{Kind: FailureOther, Message: "down"}
	}
	o, _ := newTestOrchestrator(gen)

	// Unknown trigger, neutral material: fallback declines. Force the
	// 30% gate open by trying until a draw passes; with a nil result
	// either way, the call count stays bounded.
	var got *Taunt
	for i := 0; i < 50; i++ {
		got = o.KingTaunt(context.Background(), TauntContext{
			GameID: "game-1", Trigger: "quiet_positional_shuffle",
		})
		if got != nil {
			break
		}
	}
	assert.Nil(t, got)
}
