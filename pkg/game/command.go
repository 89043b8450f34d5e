package game

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Command is a move order for a piece. Transient: built per request, never
// stored as mutable state.
type Command struct {
	GameID       uuid.UUID `json:"game_id"`
	PieceID      uuid.UUID `json:"piece_id"`
	TargetSquare string    `json:"target_square"`
	Message      string    `json:"message,omitempty"`
	SessionID    string    `json:"-"`
}

func (c *Command) Validate() error {
	if c.PieceID == uuid.Nil {
		return fmt.Errorf("piece_id is required")
	}
	if c.TargetSquare == "" {
		return fmt.Errorf("target_square is required")
	}
	return nil
}

// PersuasionAttempt asks a piece to reconsider a refused order. Every attempt
// is recorded, success or not.
type PersuasionAttempt struct {
	GameID       uuid.UUID `json:"game_id"`
	PieceID      uuid.UUID `json:"piece_id"`
	TargetSquare string    `json:"target_square"`
	Argument     string    `json:"argument"`
	IsVoice      bool      `json:"is_voice"`
	SessionID    string    `json:"-"`
}

func (p *PersuasionAttempt) Validate() error {
	if p.PieceID == uuid.Nil {
		return fmt.Errorf("piece_id is required")
	}
	if p.TargetSquare == "" {
		return fmt.Errorf("target_square is required")
	}
	if p.Argument == "" {
		return fmt.Errorf("argument cannot be empty")
	}
	return nil
}

// MoveRecord is one executed move, append-only.
type MoveRecord struct {
	ID         uuid.UUID `json:"id"`
	GameID     uuid.UUID `json:"game_id"`
	PieceID    uuid.UUID `json:"piece_id"`
	PlayerID   string    `json:"player_id"`
	MoveNumber int       `json:"move_number"`
	FromSquare string    `json:"from_square"`
	ToSquare   string    `json:"to_square"`
	SAN        string    `json:"san"`
	FENAfter   string    `json:"fen_after"`
	CreatedAt  time.Time `json:"created_at"`
}

// MessageKind classifies chat-log entries.
type MessageKind string

const (
	MsgSystem            MessageKind = "system"
	MsgPlayerCommand     MessageKind = "player_command"
	MsgPieceResponse     MessageKind = "piece_response"
	MsgPieceRefusal      MessageKind = "piece_refusal"
	MsgPersuasionAttempt MessageKind = "persuasion_attempt"
	MsgPersuasionResult  MessageKind = "persuasion_result"
	MsgAnalysis          MessageKind = "ai_analysis"
	MsgKingTaunt         MessageKind = "king_taunt"
)

// MessageRecord is one chat-log entry, append-only.
type MessageRecord struct {
	ID         uuid.UUID      `json:"id"`
	GameID     uuid.UUID      `json:"game_id"`
	Kind       MessageKind    `json:"message_type"`
	SenderName string         `json:"sender_name"`
	SenderID   string         `json:"sender_id,omitempty"`
	Content    string         `json:"content"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// PersuasionScore is the full breakdown behind a persuasion probability.
type PersuasionScore struct {
	LogicScore       int     `json:"logic_score"`
	PersonalityMatch int     `json:"personality_match"`
	MoraleModifier   int     `json:"morale_modifier"`
	TrustModifier    int     `json:"trust_modifier"`
	UrgencyFactor    int     `json:"urgency_factor"`
	Probability      float64 `json:"total_probability"`
}

// PersuasionRecord is the audit entry for one persuasion attempt.
type PersuasionRecord struct {
	ID          uuid.UUID       `json:"id"`
	GameID      uuid.UUID       `json:"game_id"`
	PieceID     uuid.UUID       `json:"piece_id"`
	PlayerID    string          `json:"player_id"`
	Argument    string          `json:"argument_text"`
	IsVoice     bool            `json:"is_voice"`
	Success     bool            `json:"success"`
	Probability float64         `json:"success_probability"`
	Response    string          `json:"piece_response"`
	Score       PersuasionScore `json:"evaluation"`
	CreatedAt   time.Time       `json:"created_at"`
}

// BoardState is the snapshot returned with every accepted command.
type BoardState struct {
	FEN         string    `json:"fen"`
	Turn        Color     `json:"turn"`
	IsCheck     bool      `json:"is_check"`
	IsCheckmate bool      `json:"is_checkmate"`
	IsStalemate bool      `json:"is_stalemate"`
	LastMove    *LastMove `json:"last_move,omitempty"`
}

// LastMove describes the most recent executed move.
type LastMove struct {
	FromSquare string    `json:"from_square"`
	ToSquare   string    `json:"to_square"`
	SAN        string    `json:"san"`
	PieceType  PieceType `json:"piece_type"`
}

// MoveAnalysis is post-move commentary.
type MoveAnalysis struct {
	MoveQuality   int      `json:"move_quality"` // 1..10
	Evaluation    float64  `json:"evaluation"`
	Threats       []string `json:"threats,omitempty"`
	Opportunities []string `json:"opportunities,omitempty"`
	AnalysisText  string   `json:"analysis_text"`
}

// CommandResult is the outcome of a resolved move command.
type CommandResult struct {
	Obeyed        bool          `json:"obeyed"`
	ResponseText  string        `json:"response_text"`
	MoraleBefore  int           `json:"morale_before"`
	MoraleAfter   int           `json:"morale_after"`
	RefusalReason string        `json:"reason_for_refusal,omitempty"`
	BoardState    *BoardState   `json:"board_state,omitempty"`
	MoraleChanges []MoraleEvent `json:"morale_changes,omitempty"`
	Analysis      *MoveAnalysis `json:"analysis,omitempty"`
	Taunt         string        `json:"taunt,omitempty"`
}

// PersuasionResult is the outcome of a resolved persuasion attempt.
type PersuasionResult struct {
	Success       bool            `json:"success"`
	Probability   float64         `json:"probability"`
	PieceResponse string          `json:"piece_response"`
	MoveExecuted  bool            `json:"move_executed"`
	BoardState    *BoardState     `json:"board_state,omitempty"`
	Score         PersuasionScore `json:"score_breakdown"`
}
