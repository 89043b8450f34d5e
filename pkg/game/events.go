package game

import (
	"time"

	"github.com/google/uuid"
)

// EventKind is the closed set of morale events.
type EventKind string

const (
	EventCaptureEnemy      EventKind = "capture_enemy"
	EventFriendlyCaptured  EventKind = "friendly_captured"
	EventEndangered        EventKind = "endangered"
	EventProtected         EventKind = "protected"
	EventBlunder           EventKind = "blunder"
	EventIdle              EventKind = "idle"
	EventCompliment        EventKind = "compliment"
	EventPromotion         EventKind = "promotion"
	EventGoodPosition      EventKind = "good_position"
	EventCleverTactic      EventKind = "clever_tactic"
	EventGameStart         EventKind = "game_start"
	EventPersuasionSuccess EventKind = "persuasion_success"
	EventPersuasionFail    EventKind = "persuasion_fail"
	EventPlayerLied        EventKind = "player_lied"
)

// EventKinds lists every morale event kind, in declaration order.
var EventKinds = []EventKind{
	EventCaptureEnemy, EventFriendlyCaptured, EventEndangered, EventProtected,
	EventBlunder, EventIdle, EventCompliment, EventPromotion, EventGoodPosition,
	EventCleverTactic, EventGameStart, EventPersuasionSuccess, EventPersuasionFail,
	EventPlayerLied,
}

// MoraleEvent is an append-only log entry recording one morale change.
type MoraleEvent struct {
	ID          uuid.UUID `json:"id"`
	GameID      uuid.UUID `json:"game_id"`
	PieceID     uuid.UUID `json:"piece_id"`
	Kind        EventKind `json:"event_kind"`
	Delta       int       `json:"delta"`
	MoraleAfter int       `json:"morale_after"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}
