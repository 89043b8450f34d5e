package game

import (
	"github.com/google/uuid"
)

// Color identifies a side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Opponent returns the other side.
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

// PieceType is the closed set of piece kinds. Unknown strings decode fine
// but are treated as having no keyword set and no obedience bias.
type PieceType string

const (
	Pawn   PieceType = "pawn"
	Knight PieceType = "knight"
	Bishop PieceType = "bishop"
	Rook   PieceType = "rook"
	Queen  PieceType = "queen"
	King   PieceType = "king"
)

// PieceTypes lists all known piece kinds in board order.
var PieceTypes = []PieceType{Pawn, Knight, Bishop, Rook, Queen, King}

// Personality shapes how a piece reacts to events and arguments.
// MoraleOverrides fully replaces the base delta for any event kind it names.
type Personality struct {
	Archetype       string            `json:"archetype"`
	Traits          []string          `json:"traits,omitempty"`
	DialogueStyle   string            `json:"dialogue_style,omitempty"`
	MoraleOverrides map[EventKind]int `json:"morale_overrides,omitempty"`
}

// Piece is a single chess piece with feelings. Owned by its Game; mutated
// only through the resolver's morale and board-mutation paths.
type Piece struct {
	ID          uuid.UUID   `json:"id"`
	GameID      uuid.UUID   `json:"game_id"`
	Color       Color       `json:"color"`
	Type        PieceType   `json:"piece_type"`
	Square      string      `json:"square,omitempty"` // empty once captured
	Morale      int         `json:"morale"`
	Trust       float64     `json:"trust"` // promise-keeping history, 0..1
	Personality Personality `json:"personality"`
	Captured    bool        `json:"is_captured"`
}

// DefaultMorale is the starting morale for every piece.
const DefaultMorale = 70

// DefaultTrust is the neutral starting trust-history value.
const DefaultTrust = 0.5

// DefaultPersonalities maps each piece kind to its stock archetype.
var DefaultPersonalities = map[PieceType]Personality{
	Pawn:   {Archetype: "Naive Recruit", Traits: []string{"eager", "nervous", "loyal"}, DialogueStyle: "Enthusiastic, anxious"},
	Knight: {Archetype: "Cocky Maverick", Traits: []string{"boastful", "adventurous", "impatient"}, DialogueStyle: "Confident, dramatic"},
	Bishop: {Archetype: "Intellectual Strategist", Traits: []string{"analytical", "cautious", "eloquent"}, DialogueStyle: "Measured, logical"},
	Rook:   {Archetype: "Loyal Soldier", Traits: []string{"disciplined", "stoic", "reliable"}, DialogueStyle: "Military, direct"},
	Queen:  {Archetype: "Confident Diva", Traits: []string{"commanding", "dramatic", "self-assured"}, DialogueStyle: "Regal, demanding"},
	King:   {Archetype: "Nervous Leader", Traits: []string{"anxious", "grateful", "commanding"}, DialogueStyle: "Worried, authoritative"},
}
