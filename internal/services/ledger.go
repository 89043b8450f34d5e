package services

import (
	"log/slog"
	"sync"
	"time"
)

// Flash-tier pricing, dollars per million tokens.
const (
	InputCostPerMillion  = 0.075
	OutputCostPerMillion = 0.30
)

type gameUsage struct {
	inputTokens  int
	outputTokens int
	calls        int
	costUSD      float64
}

type dailyUsage struct {
	inputTokens  int
	outputTokens int
	calls        int
	costUSD      float64
	games        map[string]bool
}

// CostLedger accumulates estimated token spend per game and per day.
type CostLedger struct {
	mu    sync.Mutex
	games map[string]*gameUsage
	days  map[string]*dailyUsage

	now    func() time.Time
	logger *slog.Logger
}

// GameCost is the per-game spend snapshot.
type GameCost struct {
	GameID       string  `json:"game_id"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	Calls        int     `json:"calls"`
	CostUSD      float64 `json:"cost_usd"`
}

// DailyCost is the per-day spend snapshot.
type DailyCost struct {
	Date         string  `json:"date"`
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	Calls        int     `json:"calls"`
	Games        int     `json:"games"`
	CostUSD      float64 `json:"cost_usd"`
}

// CostProjection estimates a month of spend from the trailing week.
type CostProjection struct {
	Period              string  `json:"period"`
	TotalCostUSD        float64 `json:"total_cost_usd"`
	TotalCalls          int     `json:"total_calls"`
	UniqueGames         int     `json:"unique_games"`
	AvgDailyCostUSD     float64 `json:"avg_daily_cost_usd"`
	EstimatedMonthlyUSD float64 `json:"estimated_monthly_cost_usd"`
}

func NewCostLedger(logger *slog.Logger) *CostLedger {
	return &CostLedger{
		games:  make(map[string]*gameUsage),
		days:   make(map[string]*dailyUsage),
		now:    time.Now,
		logger: logger,
	}
}

// Record accumulates one call's token usage into the game and day totals.
func (l *CostLedger) Record(gameID string, inputTokens, outputTokens int, endpoint string) {
	cost := float64(inputTokens)/1_000_000*InputCostPerMillion +
		float64(outputTokens)/1_000_000*OutputCostPerMillion

	l.mu.Lock()
	defer l.mu.Unlock()

	g := l.games[gameID]
	if g == nil {
		g = &gameUsage{}
		l.games[gameID] = g
	}
	g.inputTokens += inputTokens
	g.outputTokens += outputTokens
	g.calls++
	g.costUSD += cost

	today := l.now().UTC().Format(dayKeyFormat)
	d := l.days[today]
	if d == nil {
		d = &dailyUsage{games: make(map[string]bool)}
		l.days[today] = d
	}
	d.inputTokens += inputTokens
	d.outputTokens += outputTokens
	d.calls++
	d.costUSD += cost
	d.games[gameID] = true

	l.logger.Debug("recorded generative spend",
		"game_id", gameID,
		"endpoint", endpoint,
		"input_tokens", inputTokens,
		"output_tokens", outputTokens,
		"cost_usd", cost)
}

// GameCost returns a game's accumulated spend; zeros if never recorded.
func (l *CostLedger) GameCost(gameID string) GameCost {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := GameCost{GameID: gameID}
	if g := l.games[gameID]; g != nil {
		out.InputTokens = g.inputTokens
		out.OutputTokens = g.outputTokens
		out.TotalTokens = g.inputTokens + g.outputTokens
		out.Calls = g.calls
		out.CostUSD = g.costUSD
	}
	return out
}

// DailyCost returns a day's totals; date "" means today.
func (l *CostLedger) DailyCost(date string) DailyCost {
	l.mu.Lock()
	defer l.mu.Unlock()

	if date == "" {
		date = l.now().UTC().Format(dayKeyFormat)
	}
	out := DailyCost{Date: date}
	if d := l.days[date]; d != nil {
		out.InputTokens = d.inputTokens
		out.OutputTokens = d.outputTokens
		out.TotalTokens = d.inputTokens + d.outputTokens
		out.Calls = d.calls
		out.Games = len(d.games)
		out.CostUSD = d.costUSD
	}
	return out
}

// Projection estimates 30 days of spend from the trailing 7-day average.
func (l *CostLedger) Projection() CostProjection {
	l.mu.Lock()
	defer l.mu.Unlock()

	today := l.now().UTC()
	totalCost := 0.0
	totalCalls := 0
	uniqueGames := make(map[string]bool)

	for i := 0; i < 7; i++ {
		day := today.AddDate(0, 0, -i).Format(dayKeyFormat)
		if d := l.days[day]; d != nil {
			totalCost += d.costUSD
			totalCalls += d.calls
			for id := range d.games {
				uniqueGames[id] = true
			}
		}
	}

	avgDaily := totalCost / 7
	return CostProjection{
		Period:              "last_7_days",
		TotalCostUSD:        totalCost,
		TotalCalls:          totalCalls,
		UniqueGames:         len(uniqueGames),
		AvgDailyCostUSD:     avgDaily,
		EstimatedMonthlyUSD: avgDaily * 30,
	}
}

// Sweep drops daily records older than the retention window.
func (l *CostLedger) Sweep(daysToKeep int) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().UTC().AddDate(0, 0, -daysToKeep).Format(dayKeyFormat)
	removed := 0
	for day := range l.days {
		if day < cutoff {
			delete(l.days, day)
			removed++
		}
	}
	if removed > 0 {
		l.logger.Info("swept cost ledger daily records", "removed", removed)
	}
	return removed
}
