// Package morale implements the event-driven morale model and the obedience
// roll that decides whether a piece follows an order.
package morale

import (
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/hmcavoy/mutiny-chess/pkg/game"
)

// baseDeltas is the morale transition table. A personality override fully
// replaces the base value for any event it names.
var baseDeltas = map[game.EventKind]int{
	game.EventCaptureEnemy:      15,
	game.EventFriendlyCaptured:  -10,
	game.EventEndangered:        -8,
	game.EventProtected:         10,
	game.EventBlunder:           -5,
	game.EventIdle:              -5,
	game.EventCompliment:        5,
	game.EventPromotion:         30,
	game.EventGoodPosition:      5,
	game.EventCleverTactic:      10,
	game.EventGameStart:         0,
	game.EventPersuasionSuccess: 5,
	game.EventPersuasionFail:    -3,
	game.EventPlayerLied:        -15,
}

// Category names for morale bands, highest first.
const (
	Enthusiastic = "enthusiastic"
	Normal       = "normal"
	Reluctant    = "reluctant"
	Demoralized  = "demoralized"
	Mutinous     = "mutinous"
)

// Delta returns the morale change for an event, honoring personality
// overrides. Unknown event kinds yield zero.
func Delta(kind game.EventKind, p game.Personality) int {
	if override, ok := p.MoraleOverrides[kind]; ok {
		return override
	}
	return baseDeltas[kind]
}

// Apply adds a delta to morale, clamped to [0,100].
func Apply(current, delta int) int {
	m := current + delta
	if m < 0 {
		return 0
	}
	if m > 100 {
		return 100
	}
	return m
}

// Category maps a morale value to its band name.
func Category(m int) string {
	switch {
	case m >= 80:
		return Enthusiastic
	case m >= 60:
		return Normal
	case m >= 40:
		return Reluctant
	case m >= 20:
		return Demoralized
	default:
		return Mutinous
	}
}

var titleCaser = cases.Title(language.English)

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Describe renders a human-readable line for a morale change.
func Describe(kind game.EventKind, pieceType game.PieceType, delta, moraleAfter int) string {
	name := titleCaser.String(string(pieceType))

	switch kind {
	case game.EventCaptureEnemy:
		return fmt.Sprintf("%s feels empowered after the capture! (+%d)", name, abs(delta))
	case game.EventFriendlyCaptured:
		return fmt.Sprintf("%s mourns a fallen ally (%d)", name, delta)
	case game.EventEndangered:
		return fmt.Sprintf("%s feels threatened and unsafe (%d)", name, delta)
	case game.EventProtected:
		return fmt.Sprintf("%s feels safe and supported (+%d)", name, abs(delta))
	case game.EventBlunder:
		return fmt.Sprintf("The bad move shakes everyone's confidence (%d)", delta)
	case game.EventIdle:
		return fmt.Sprintf("%s is restless from sitting idle (%d)", name, delta)
	case game.EventCompliment:
		return fmt.Sprintf("%s appreciates the kind words (+%d)", name, abs(delta))
	case game.EventPromotion:
		return fmt.Sprintf("%s is thrilled about the promotion!! (+%d)", name, abs(delta))
	case game.EventGoodPosition:
		return fmt.Sprintf("%s likes this strategic position (+%d)", name, abs(delta))
	case game.EventCleverTactic:
		return fmt.Sprintf("%s is impressed by the clever play (+%d)", name, abs(delta))
	case game.EventPersuasionSuccess:
		return fmt.Sprintf("%s feels heard and valued (+%d)", name, abs(delta))
	case game.EventPersuasionFail:
		return fmt.Sprintf("%s is frustrated by the failed argument (%d)", name, delta)
	case game.EventPlayerLied:
		return fmt.Sprintf("%s feels betrayed - you broke your promise! (%d)", name, delta)
	}

	direction := "increased"
	if delta < 0 {
		direction = "decreased"
	}
	return fmt.Sprintf("%s morale %s by %d (now %d)", name, direction, abs(delta), moraleAfter)
}
