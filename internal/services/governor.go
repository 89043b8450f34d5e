package services

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Governor defaults.
const (
	DefaultMaxCallsPerMove = 5
	DefaultMaxCallsPerGame = 200
	DefaultDailyGameLimit  = 50
)

const dayKeyFormat = "2006-01-02"

// Governor enforces ceilings on generative calls. Three independent checks:
// per-move, per-game, and distinct games per day. A decline carries a reason
// for logging; callers fall back instead of surfacing an error.
type Governor struct {
	maxCallsPerMove int
	maxCallsPerGame int
	dailyGameLimit  int

	mu         sync.Mutex
	moveCalls  map[string]map[int]int
	gameCalls  map[string]int
	dailyGames map[string]map[string]bool

	now    func() time.Time
	logger *slog.Logger
}

// GovernorStats is the global usage snapshot.
type GovernorStats struct {
	DailyGamesToday     int `json:"daily_games_today"`
	DailyGameLimit      int `json:"daily_game_limit"`
	RemainingDailyGames int `json:"remaining_daily_games"`
	TotalActiveGames    int `json:"total_active_games"`
	MaxCallsPerMove     int `json:"max_calls_per_move"`
	MaxCallsPerGame     int `json:"max_calls_per_game"`
}

// GameGovernorStats is the per-game usage snapshot.
type GameGovernorStats struct {
	GameID          string      `json:"game_id"`
	TotalCalls      int         `json:"total_calls"`
	MaxCallsPerGame int         `json:"max_calls_per_game"`
	RemainingCalls  int         `json:"remaining_calls"`
	MoveCalls       map[int]int `json:"move_calls"`
}

func NewGovernor(maxPerMove, maxPerGame, dailyLimit int, logger *slog.Logger) *Governor {
	if maxPerMove <= 0 {
		maxPerMove = DefaultMaxCallsPerMove
	}
	if maxPerGame <= 0 {
		maxPerGame = DefaultMaxCallsPerGame
	}
	if dailyLimit <= 0 {
		dailyLimit = DefaultDailyGameLimit
	}
	return &Governor{
		maxCallsPerMove: maxPerMove,
		maxCallsPerGame: maxPerGame,
		dailyGameLimit:  dailyLimit,
		moveCalls:       make(map[string]map[int]int),
		gameCalls:       make(map[string]int),
		dailyGames:      make(map[string]map[string]bool),
		now:             time.Now,
		logger:          logger,
	}
}

// Allow checks every ceiling and, if all pass, counts the call. Returns the
// decline reason otherwise. A game already counted today is never blocked by
// the daily ceiling.
func (g *Governor) Allow(gameID string, moveNumber int, endpoint string) (bool, string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	today := g.now().UTC().Format(dayKeyFormat)
	games := g.dailyGames[today]
	if len(games) >= g.dailyGameLimit && !games[gameID] {
		reason := fmt.Sprintf("daily game limit reached (%d games)", g.dailyGameLimit)
		g.logger.Warn("generative call declined", "reason", reason, "game_id", gameID, "endpoint", endpoint)
		return false, reason
	}

	if g.moveCalls[gameID][moveNumber] >= g.maxCallsPerMove {
		reason := fmt.Sprintf("per-move limit reached (%d calls for move %d)", g.maxCallsPerMove, moveNumber)
		g.logger.Warn("generative call declined", "reason", reason, "game_id", gameID, "endpoint", endpoint)
		return false, reason
	}

	if g.gameCalls[gameID] >= g.maxCallsPerGame {
		reason := fmt.Sprintf("per-game limit reached (%d calls)", g.maxCallsPerGame)
		g.logger.Warn("generative call declined", "reason", reason, "game_id", gameID, "endpoint", endpoint)
		return false, reason
	}

	if g.moveCalls[gameID] == nil {
		g.moveCalls[gameID] = make(map[int]int)
	}
	g.moveCalls[gameID][moveNumber]++
	g.gameCalls[gameID]++
	if games == nil {
		games = make(map[string]bool)
		g.dailyGames[today] = games
	}
	games[gameID] = true

	return true, ""
}

// Stats returns the global snapshot.
func (g *Governor) Stats() GovernorStats {
	g.mu.Lock()
	defer g.mu.Unlock()

	today := g.now().UTC().Format(dayKeyFormat)
	used := len(g.dailyGames[today])
	remaining := g.dailyGameLimit - used
	if remaining < 0 {
		remaining = 0
	}
	return GovernorStats{
		DailyGamesToday:     used,
		DailyGameLimit:      g.dailyGameLimit,
		RemainingDailyGames: remaining,
		TotalActiveGames:    len(g.gameCalls),
		MaxCallsPerMove:     g.maxCallsPerMove,
		MaxCallsPerGame:     g.maxCallsPerGame,
	}
}

// GameStats returns the per-game snapshot.
func (g *Governor) GameStats(gameID string) GameGovernorStats {
	g.mu.Lock()
	defer g.mu.Unlock()

	total := g.gameCalls[gameID]
	remaining := g.maxCallsPerGame - total
	if remaining < 0 {
		remaining = 0
	}
	moveCalls := make(map[int]int, len(g.moveCalls[gameID]))
	for move, count := range g.moveCalls[gameID] {
		moveCalls[move] = count
	}
	return GameGovernorStats{
		GameID:          gameID,
		TotalCalls:      total,
		MaxCallsPerGame: g.maxCallsPerGame,
		RemainingCalls:  remaining,
		MoveCalls:       moveCalls,
	}
}

// ResetGame clears a game's counters. The game stays counted against the
// daily ceiling.
func (g *Governor) ResetGame(gameID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	delete(g.moveCalls, gameID)
	delete(g.gameCalls, gameID)
	g.logger.Info("reset governor counters", "game_id", gameID)
}

// Sweep drops daily buckets older than the retention window to bound memory.
func (g *Governor) Sweep(daysToKeep int) int {
	g.mu.Lock()
	defer g.mu.Unlock()

	cutoff := g.now().UTC().AddDate(0, 0, -daysToKeep).Format(dayKeyFormat)
	removed := 0
	for day := range g.dailyGames {
		if day < cutoff {
			delete(g.dailyGames, day)
			removed++
		}
	}
	if removed > 0 {
		g.logger.Info("swept governor daily buckets", "removed", removed)
	}
	return removed
}
