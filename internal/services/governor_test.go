package services

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func fixedClock(day string) func() time.Time {
	t, _ := time.Parse(dayKeyFormat, day)
	return func() time.Time { return t }
}

func TestGovernorPerMoveLimit(t *testing.T) {
	g := NewGovernor(5, 200, 50, testLogger())

	for i := 0; i < 5; i++ {
		allowed, reason := g.Allow("game-1", 3, "piece_response")
		assert.True(t, allowed, "call %d", i+1)
		assert.Empty(t, reason)
	}

	// Sixth call for the same move is declined.
	allowed, reason := g.Allow("game-1", 3, "piece_response")
	assert.False(t, allowed)
	assert.Contains(t, reason, "per-move limit")

	// A different move of the same game is unaffected.
	allowed, _ = g.Allow("game-1", 4, "piece_response")
	assert.True(t, allowed)
}

func TestGovernorPerGameLimit(t *testing.T) {
	g := NewGovernor(5, 10, 50, testLogger())

	calls := 0
	for move := 0; move < 10; move++ {
		for i := 0; i < 2 && calls < 10; i++ {
			allowed, _ := g.Allow("game-1", move, "analysis")
			assert.True(t, allowed)
			calls++
		}
	}

	allowed, reason := g.Allow("game-1", 99, "analysis")
	assert.False(t, allowed)
	assert.Contains(t, reason, "per-game limit")

	// Other games keep their own budget.
	allowed, _ = g.Allow("game-2", 0, "analysis")
	assert.True(t, allowed)
}

func TestGovernorDailyGameLimit(t *testing.T) {
	g := NewGovernor(5, 200, 3, testLogger())
	g.now = fixedClock("2026-08-24")

	for i := 0; i < 3; i++ {
		allowed, _ := g.Allow(fmt.Sprintf("game-%d", i), 0, "taunt")
		assert.True(t, allowed)
	}

	// A fourth distinct game is declined.
	allowed, reason := g.Allow("game-99", 0, "taunt")
	assert.False(t, allowed)
	assert.Contains(t, reason, "daily game limit")

	// Games already counted today are exempt from the daily ceiling.
	allowed, _ = g.Allow("game-1", 1, "taunt")
	assert.True(t, allowed)

	// A new day resets the ceiling.
	g.now = fixedClock("2026-08-25")
	allowed, _ = g.Allow("game-99", 0, "taunt")
	assert.True(t, allowed)
}

func TestGovernorResetGame(t *testing.T) {
	g := NewGovernor(2, 200, 50, testLogger())

	g.Allow("game-1", 0, "x")
	g.Allow("game-1", 0, "x")
	allowed, _ := g.Allow("game-1", 0, "x")
	assert.False(t, allowed)

	g.ResetGame("game-1")
	allowed, _ = g.Allow("game-1", 0, "x")
	assert.True(t, allowed)
}

func TestGovernorStats(t *testing.T) {
	g := NewGovernor(5, 200, 50, testLogger())
	g.now = fixedClock("2026-08-24")

	g.Allow("game-1", 0, "x")
	g.Allow("game-1", 0, "x")
	g.Allow("game-2", 0, "x")

	stats := g.Stats()
	assert.Equal(t, 2, stats.DailyGamesToday)
	assert.Equal(t, 48, stats.RemainingDailyGames)
	assert.Equal(t, 2, stats.TotalActiveGames)

	gs := g.GameStats("game-1")
	assert.Equal(t, 2, gs.TotalCalls)
	assert.Equal(t, 198, gs.RemainingCalls)
	assert.Equal(t, map[int]int{0: 2}, gs.MoveCalls)

	empty := g.GameStats("missing")
	assert.Equal(t, 0, empty.TotalCalls)
	assert.Equal(t, 200, empty.RemainingCalls)
}

func TestGovernorSweep(t *testing.T) {
	g := NewGovernor(5, 200, 50, testLogger())

	g.now = fixedClock("2026-08-01")
	g.Allow("old-game", 0, "x")
	g.now = fixedClock("2026-08-24")
	g.Allow("new-game", 0, "x")

	removed := g.Sweep(7)
	assert.Equal(t, 1, removed)

	stats := g.Stats()
	assert.Equal(t, 1, stats.DailyGamesToday)
}
