// Package taunt selects contextual trash talk from the opposing king.
// Selection is injectable so callers control randomness.
package taunt

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/hmcavoy/mutiny-chess/pkg/game"
)

// Trigger names the game situations a taunt can respond to. Triggers overlap
// with morale event kinds where the situations coincide.
const (
	TriggerPieceCaptured = "piece_captured"
	TriggerBlunder       = "blunder"
	TriggerCheck         = "check"
	TriggerWinning       = "winning"
	TriggerLosing        = "losing"
	TriggerStalemateRisk = "stalemate_risk"
	TriggerGreatMove     = "great_move"
	TriggerGameStart     = "game_start"
	TriggerResigned      = "opponent_resigned"
)

var pools = map[string][]string{
	TriggerPieceCaptured: {
		"Lost your {piece}? How careless.",
		"Down material already? Tsk tsk.",
		"Your {piece} won't be missed... by me.",
		"One less piece for you to worry about!",
		"That {piece} had so much potential. Had.",
	},
	TriggerBlunder: {
		"Did you just hang your {piece}? Wow.",
		"Even my Pawns saw that coming.",
		"Are you trying to lose? Impressive blunder.",
		"I almost feel bad. Almost.",
		"That was... a choice. A terrible one.",
	},
	TriggerCheck: {
		"Run, little King, run!",
		"Nowhere to hide!",
		"Check! How does that feel?",
		"Your King is sweating, I can tell.",
		"Better find cover, your Majesty!",
	},
	TriggerWinning: {
		"This is almost too easy.",
		"Should we just call it?",
		"I can do this all day.",
		"Your army is crumbling.",
		"Resistance is futile at this point.",
	},
	TriggerLosing: {
		"A lucky move. This isn't over.",
		"I've come back from worse.",
		"Don't celebrate yet.",
		"Enjoy it while it lasts.",
		"One good move doesn't make you a champion.",
	},
	TriggerStalemateRisk: {
		"Don't you dare stalemate me!",
		"I want a proper victory!",
		"Be careful, or nobody wins.",
	},
	TriggerGreatMove: {
		"...I'll admit, that was decent.",
		"Lucky shot. Won't happen again.",
		"Okay, you have SOME skill.",
		"Not bad. For an amateur.",
	},
	TriggerGameStart: {
		"Ready to lose?",
		"Let's see what you've got.",
		"May the best player win. That's me.",
		"I've already planned your defeat.",
	},
	TriggerResigned: {
		"Running away? Smart choice.",
		"I accept your surrender.",
	},
}

// criticalTriggers always warrant a taunt.
var criticalTriggers = map[string]bool{
	TriggerCheck:         true,
	TriggerBlunder:       true,
	TriggerGameStart:     true,
	TriggerPieceCaptured: true,
}

var titleCaser = cases.Title(language.English)

// ShouldTaunt decides whether the king speaks up. Critical events always
// taunt; everything else fires 30% of the time based on the caller's draw.
func ShouldTaunt(trigger string, draw float64) bool {
	if criticalTriggers[trigger] {
		return true
	}
	return draw < 0.3
}

// Generate picks a line for the trigger, or "" when no taunt fits. Unknown
// triggers fall back to winning/losing pools inferred from material, and stay
// silent in neutral positions. The pick index selects within the pool and is
// taken modulo the pool size.
func Generate(trigger string, materialBalance int, pieceType game.PieceType, pick int) string {
	pool, ok := pools[trigger]
	if !ok {
		switch {
		case materialBalance > 3:
			pool = pools[TriggerWinning]
		case materialBalance < -3:
			pool = pools[TriggerLosing]
		default:
			return ""
		}
	}
	if pick < 0 {
		pick = -pick
	}
	line := pool[pick%len(pool)]

	name := "piece"
	if pieceType != "" {
		name = titleCaser.String(string(pieceType))
	}
	return strings.ReplaceAll(line, "{piece}", name)
}

// Intensity rates a taunt 1..5. Checks and blunders cut deepest, a great
// move by the player earns only grudging respect.
func Intensity(materialBalance int, trigger string) int {
	intensity := 2
	switch trigger {
	case TriggerCheck, TriggerBlunder:
		intensity = 4
	case TriggerPieceCaptured:
		intensity = 3
	case TriggerGreatMove:
		intensity = 1
	}
	if materialBalance > 5 && intensity < 5 {
		intensity++
	}
	return intensity
}
