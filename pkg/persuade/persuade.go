// Package persuade scores a player's argument for convincing a refusing
// piece. Scoring is deterministic; the caller supplies the uniform draw.
package persuade

import (
	"strings"

	"github.com/hmcavoy/mutiny-chess/pkg/game"
)

// keywords lists the themes each piece type responds to.
var keywords = map[game.PieceType][]string{
	game.Pawn:   {"team", "sacrifice", "together", "duty", "greater good", "promotion", "advance"},
	game.Knight: {"glory", "brave", "heroic", "adventure", "charge", "honor", "flashy"},
	game.Bishop: {"logic", "tactical", "strategy", "position", "calculated", "smart", "reason"},
	game.Rook:   {"duty", "order", "discipline", "defend", "hold", "strong", "fortress"},
	game.Queen:  {"power", "protect", "important", "safe", "retreat", "value", "worth"},
	game.King:   {"survive", "protect", "castle", "safety", "kingdom", "careful"},
}

var riskTerms = []string{"risky", "dangerous", "sacrifice", "trade"}

// Input carries everything the model needs to score one attempt.
type Input struct {
	Argument        string
	PieceType       game.PieceType
	Morale          int
	ClaimAccurate   bool
	IsRisky         bool
	TrustHistory    float64
	IsCheck         bool
	MaterialBalance int
	MoveCount       int
}

// BaseRate maps a morale tier to the starting success rate. Out-of-range
// values fall back to the middle tier.
func BaseRate(morale int) float64 {
	switch {
	case morale < 0 || morale > 100:
		return 0.45
	case morale >= 80:
		return 0.90
	case morale >= 60:
		return 0.70
	case morale >= 40:
		return 0.45
	case morale >= 20:
		return 0.25
	}
	return 0.10
}

// LogicScore rates the argument's factual grounding and effort, 0..25.
func LogicScore(argument string, claimAccurate, isRisky bool) int {
	score := 5
	if claimAccurate {
		score += 10
	} else {
		score -= 5
	}

	words := len(strings.Fields(argument))
	if words >= 10 {
		score += 5
	} else if words >= 5 {
		score += 3
	}

	// Owning up to the danger earns an honesty bonus.
	if isRisky {
		lower := strings.ToLower(argument)
		for _, term := range riskTerms {
			if strings.Contains(lower, term) {
				score += 5
				break
			}
		}
	}

	if score < 0 {
		return 0
	}
	if score > 25 {
		return 25
	}
	return score
}

// PersonalityMatch counts keyword hits for the piece type, 2..15. Any attempt
// earns minimal credit.
func PersonalityMatch(argument string, pieceType game.PieceType) int {
	lower := strings.ToLower(argument)
	matches := 0
	for _, kw := range keywords[pieceType] {
		if strings.Contains(lower, kw) {
			matches++
		}
	}
	switch {
	case matches >= 3:
		return 15
	case matches >= 2:
		return 10
	case matches >= 1:
		return 7
	}
	return 2
}

// MoraleModifier steps over the morale bands, -20..+20.
func MoraleModifier(morale int) int {
	switch {
	case morale >= 80:
		return 20
	case morale >= 60:
		return 10
	case morale >= 40:
		return 0
	case morale >= 20:
		return -10
	}
	return -20
}

// TrustModifier rewards kept promises, -15..+10. Trust history runs 0.0
// (always lied) to 1.0 (always kept).
func TrustModifier(trust float64) int {
	switch {
	case trust >= 0.8:
		return 10
	case trust >= 0.6:
		return 5
	case trust >= 0.4:
		return 0
	case trust >= 0.2:
		return -8
	}
	return -15
}

// UrgencyFactor rates how desperate the situation is, 0..10.
func UrgencyFactor(isCheck bool, materialBalance, moveCount int) int {
	urgency := 0
	if isCheck {
		urgency += 5
	}
	if materialBalance < -3 {
		urgency += 3
	} else if materialBalance < 0 {
		urgency += 1
	}
	if moveCount > 40 {
		urgency += 2
	}
	if urgency > 10 {
		return 10
	}
	return urgency
}

// Evaluate scores one persuasion attempt. Success is decided against the
// caller-supplied draw so results are reproducible in tests.
func Evaluate(in Input, draw float64) (bool, game.PersuasionScore) {
	score := game.PersuasionScore{
		LogicScore:       LogicScore(in.Argument, in.ClaimAccurate, in.IsRisky),
		PersonalityMatch: PersonalityMatch(in.Argument, in.PieceType),
		MoraleModifier:   MoraleModifier(in.Morale),
		TrustModifier:    TrustModifier(in.TrustHistory),
		UrgencyFactor:    UrgencyFactor(in.IsCheck, in.MaterialBalance, in.MoveCount),
	}

	bonus := float64(score.LogicScore)/25*0.25 +
		float64(score.PersonalityMatch)/15*0.15 +
		(float64(score.MoraleModifier)/40+0.5)*0.20 +
		(float64(score.TrustModifier)/25+0.6)*0.15 +
		float64(score.UrgencyFactor)/10*0.10

	p := BaseRate(in.Morale)*0.5 + bonus
	if p < 0.05 {
		p = 0.05
	}
	if p > 0.95 {
		p = 0.95
	}
	score.Probability = p

	return draw < p, score
}
