package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/hmcavoy/mutiny-chess/internal/rng"
	"github.com/hmcavoy/mutiny-chess/pkg/game"
	"github.com/hmcavoy/mutiny-chess/pkg/taunt"
)

const (
	// Retry budget beyond the first attempt, with exponential backoff.
	maxRetries = 2

	analysisCacheTTL = 5 * time.Minute
	tauntCacheTTL    = 30 * time.Minute
)

const pieceSystemPrompt = "You are a chess piece with a personality, part of a player's army " +
	"in a game where pieces have feelings, morale, and opinions. Stay in character. " +
	"High morale (70+): enthusiastic agreement. Medium (40-69): question risky moves. " +
	"Low (0-39): refuse risky moves. Reply in 1-2 sentences, natural and memorable."

const analysisSystemPrompt = "You are a chess analyst providing commentary after each move. " +
	"Be concise, 1-2 sentences. Consider threats, material, king safety, and piece activity."

const tauntSystemPrompt = "You are the opponent's King in a chess game. Generate short, witty " +
	"taunts. Sarcastic when winning, defiant when losing, aggressive during check. " +
	"PG-rated, one sentence, under 100 characters."

// Orchestrator mediates every generative-text request: governance first, then
// the remote call with retries, then fallback. It never returns an error to
// callers and never returns empty text.
type Orchestrator struct {
	gen      Generator
	governor *Governor
	ledger   *CostLedger
	cache    Cache
	roller   *rng.Roller
	logger   *slog.Logger

	// sleep is swapped in tests to skip real backoff waits.
	sleep func(time.Duration)

	analysisGroup singleflight.Group
}

// PieceContext describes the piece and order for response generation.
type PieceContext struct {
	GameID       string
	MoveNumber   int
	PieceType    game.PieceType
	Personality  game.Personality
	Morale       int
	MoveSAN      string
	TargetSquare string
	IsRisky      bool
	WillMove     bool
	CaptureText  string
}

// AnalysisContext describes an executed move for commentary.
type AnalysisContext struct {
	GameID          string
	FENBefore       string
	FENAfter        string
	MoveSAN         string
	MoveNumber      int
	MaterialBalance int
}

// TauntContext describes a trigger for king trash talk.
type TauntContext struct {
	GameID          string
	Trigger         string
	MaterialBalance int
	MoveCount       int
	PieceType       game.PieceType
}

// Taunt is a selected taunt with its sting rating.
type Taunt struct {
	Text      string `json:"text"`
	Intensity int    `json:"intensity"`
}

func NewOrchestrator(gen Generator, governor *Governor, ledger *CostLedger, cache Cache, roller *rng.Roller, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		gen:      gen,
		governor: governor,
		ledger:   ledger,
		cache:    cache,
		roller:   roller,
		logger:   logger,
		sleep:    time.Sleep,
	}
}

// generate runs the governed, retried remote call. Any failure path returns
// an error; callers then fall back.
func (o *Orchestrator) generate(ctx context.Context, gameID string, moveNumber int, endpoint string, req GenRequest) (*GenResponse, error) {
	if o.gen == nil {
		return nil, fmt.Errorf("no generative backend configured")
	}

	allowed, reason := o.governor.Allow(gameID, moveNumber, endpoint)
	if !allowed {
		return nil, fmt.Errorf("declined by governor: %s", reason)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			wait := time.Duration(1<<(attempt-1)) * time.Second
			o.logger.Warn("generative call retrying",
				"endpoint", endpoint,
				"attempt", attempt+1,
				"backoff", wait,
				"error", lastErr)
			o.sleep(wait)
		}

		resp, err := o.gen.Generate(ctx, req)
		if err == nil {
			o.ledger.Record(gameID, resp.InputTokens, resp.OutputTokens, endpoint)
			return resp, nil
		}
		lastErr = err
		if !IsRetryable(err) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("retries exhausted: %w", lastErr)
}

// PieceResponse produces the piece's spoken reply to an order.
func (o *Orchestrator) PieceResponse(ctx context.Context, pc PieceContext) string {
	verdict := "accepts"
	if !pc.WillMove {
		verdict = "refuses"
	}
	prompt := fmt.Sprintf(
		"Piece: %s (%s). Morale: %d. Order: %s to %s.%s The piece %s the order. Respond in character.",
		pc.PieceType, pc.Personality.Archetype, pc.Morale, pc.MoveSAN, pc.TargetSquare,
		riskClause(pc.IsRisky, pc.CaptureText), verdict)

	resp, err := o.generate(ctx, pc.GameID, pc.MoveNumber, "piece_response", GenRequest{
		System: pieceSystemPrompt,
		Prompt: prompt,
	})
	if err != nil {
		o.logger.Info("piece response falling back", "game_id", pc.GameID, "error", err)
		return FallbackPieceResponse(pc.PieceType, pc.Morale, pc.WillMove, o.roller.Intn(1<<30))
	}
	return resp.Text
}

func riskClause(isRisky bool, captureText string) string {
	clause := ""
	if captureText != "" {
		clause += " It captures " + captureText + "."
	}
	if isRisky {
		clause += " The destination is under enemy attack."
	}
	return clause
}

// PersuasionResponse voices the piece's reaction to a persuasion outcome.
func (o *Orchestrator) PersuasionResponse(ctx context.Context, pc PieceContext, argument string, success bool) string {
	outcome := "was convinced by"
	if !success {
		outcome = "rejected"
	}
	prompt := fmt.Sprintf(
		"Piece: %s (%s). Morale: %d. The player argued: %q. The piece %s the argument. Respond in character.",
		pc.PieceType, pc.Personality.Archetype, pc.Morale, argument, outcome)

	resp, err := o.generate(ctx, pc.GameID, pc.MoveNumber, "persuasion_response", GenRequest{
		System: pieceSystemPrompt,
		Prompt: prompt,
	})
	if err != nil {
		o.logger.Info("persuasion response falling back", "game_id", pc.GameID, "error", err)
		return FallbackPersuasionResponse(pc.PieceType, success, o.roller.Intn(1<<30))
	}
	return resp.Text
}

// AnalyzeMove returns commentary for an executed move. Identical resulting
// positions share one cached analysis; concurrent misses for the same
// position collapse into a single remote call.
func (o *Orchestrator) AnalyzeMove(ctx context.Context, ac AnalysisContext) *game.MoveAnalysis {
	key := analysisCacheKey(ac.FENAfter)

	if cached, err := o.cache.Get(ctx, key); err == nil && cached != "" {
		var analysis game.MoveAnalysis
		if err := json.Unmarshal([]byte(cached), &analysis); err == nil {
			return &analysis
		}
	}

	result, err, _ := o.analysisGroup.Do(key, func() (interface{}, error) {
		prompt := fmt.Sprintf(
			"Move %d: %s. Position before: %s. Position after: %s. Material balance: %+d. Comment on the move.",
			ac.MoveNumber, ac.MoveSAN, ac.FENBefore, ac.FENAfter, ac.MaterialBalance)

		resp, err := o.generate(ctx, ac.GameID, ac.MoveNumber, "analysis", GenRequest{
			System: analysisSystemPrompt,
			Prompt: prompt,
		})
		if err != nil {
			return nil, err
		}

		analysis := &game.MoveAnalysis{
			MoveQuality:  5,
			Evaluation:   float64(ac.MaterialBalance) * 0.5,
			AnalysisText: resp.Text,
		}
		if data, err := json.Marshal(analysis); err == nil {
			if err := o.cache.Set(ctx, key, string(data), analysisCacheTTL); err != nil {
				o.logger.Warn("analysis cache write failed", "error", err)
			}
		}
		return analysis, nil
	})
	if err != nil {
		o.logger.Info("analysis falling back", "game_id", ac.GameID, "error", err)
		return FallbackAnalysis(ac.MoveSAN, ac.MaterialBalance,
			o.roller.Between(4, 8), o.roller.Jitter(0.5), o.roller.Intn(1<<30))
	}
	return result.(*game.MoveAnalysis)
}

// KingTaunt decides whether the enemy king speaks and selects the line.
// Returns nil when the king stays silent.
func (o *Orchestrator) KingTaunt(ctx context.Context, tc TauntContext) *Taunt {
	if !taunt.ShouldTaunt(tc.Trigger, o.roller.Float64()) {
		return nil
	}

	intensity := taunt.Intensity(tc.MaterialBalance, tc.Trigger)
	key := tauntCacheKey(tc.Trigger, tc.MaterialBalance)

	if cached, err := o.cache.Get(ctx, key); err == nil && cached != "" {
		return &Taunt{Text: cached, Intensity: intensity}
	}

	prompt := fmt.Sprintf(
		"Trigger: %s. Material balance from your side: %+d. Move count: %d. Taunt the player.",
		tc.Trigger, tc.MaterialBalance, tc.MoveCount)

	resp, err := o.generate(ctx, tc.GameID, tc.MoveCount, "taunt", GenRequest{
		System: tauntSystemPrompt,
		Prompt: prompt,
	})
	if err == nil {
		if cacheErr := o.cache.Set(ctx, key, resp.Text, tauntCacheTTL); cacheErr != nil {
			o.logger.Warn("taunt cache write failed", "error", cacheErr)
		}
		return &Taunt{Text: resp.Text, Intensity: intensity}
	}

	o.logger.Info("taunt falling back", "game_id", tc.GameID, "error", err)
	text := taunt.Generate(tc.Trigger, tc.MaterialBalance, tc.PieceType, o.roller.Intn(1<<30))
	if text == "" {
		return nil
	}
	return &Taunt{Text: text, Intensity: intensity}
}

func analysisCacheKey(fenAfter string) string {
	sum := md5.Sum([]byte(fenAfter))
	return "analysis:" + hex.EncodeToString(sum[:])
}

func tauntCacheKey(trigger string, materialBalance int) string {
	bucket := "even"
	switch {
	case materialBalance > 3:
		bucket = "winning"
	case materialBalance < -3:
		bucket = "losing"
	}
	return fmt.Sprintf("taunt:%s:%s", trigger, bucket)
}
