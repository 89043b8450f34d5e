package services

import (
	"context"
	"errors"
	"fmt"
)

// FailureKind classifies generation failures for retry decisions.
type FailureKind string

const (
	FailureTimeout     FailureKind = "timeout"
	FailureRateLimited FailureKind = "rate_limited"
	FailureServer      FailureKind = "server"
	FailureOther       FailureKind = "other"
)

// GenError wraps a generation failure with its classification.
type GenError struct {
	Kind       FailureKind
	StatusCode int
	Message    string
}

func (e *GenError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("generation failed (%s, status %d): %s", e.Kind, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("generation failed (%s): %s", e.Kind, e.Message)
}

// Retryable reports whether the failure is worth another attempt. Timeouts,
// rate limits, and server errors are transient; everything else is not.
func (e *GenError) Retryable() bool {
	switch e.Kind {
	case FailureTimeout, FailureRateLimited, FailureServer:
		return true
	}
	return false
}

// IsRetryable classifies an arbitrary error from a Generator.
func IsRetryable(err error) bool {
	var genErr *GenError
	if errors.As(err, &genErr) {
		return genErr.Retryable()
	}
	return false
}

// GenRequest is one prompt for the generative backend.
type GenRequest struct {
	System string `json:"system,omitempty"`
	Prompt string `json:"prompt"`
}

// GenResponse carries the generated text and token usage for cost tracking.
type GenResponse struct {
	Text         string `json:"text"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`
}

// Generator defines the interface for the generative-text backend.
type Generator interface {
	// Generate produces text for a prompt. Failures are returned as
	// *GenError so callers can decide whether to retry.
	Generate(ctx context.Context, req GenRequest) (*GenResponse, error)

	// Name identifies the backend for logging.
	Name() string
}
