package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	DefaultGeminiModel       = "gemini-2.0-flash"
	DefaultGeminiTemperature = 0.8
	DefaultGeminiMaxTokens   = 256
)

// GeminiService implements Generator against the Gemini REST API.
type GeminiService struct {
	apiKey     string
	modelName  string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Generator = (*GeminiService)(nil)

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error,omitempty"`
}

func NewGeminiService(apiKey string, modelName string, logger *slog.Logger) *GeminiService {
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	return &GeminiService{
		apiKey:    apiKey,
		modelName: modelName,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

func (g *GeminiService) Name() string {
	return "gemini:" + g.modelName
}

func (g *GeminiService) Generate(ctx context.Context, req GenRequest) (*GenResponse, error) {
	temperature := DefaultGeminiTemperature
	geminiReq := geminiRequest{
		Contents: []geminiContent{
			{Role: "user", Parts: []geminiPart{{Text: req.Prompt}}},
		},
		GenerationConfig: &geminiGenerationConfig{
			Temperature:     &temperature,
			MaxOutputTokens: DefaultGeminiMaxTokens,
		},
	}
	if req.System != "" {
		geminiReq.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}

	reqBody, err := json.Marshal(geminiReq)
	if err != nil {
		return nil, &GenError{Kind: FailureOther, Message: fmt.Sprintf("marshal request: %v", err)}
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", geminiBaseURL, g.modelName, g.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, &GenError{Kind: FailureOther, Message: fmt.Sprintf("create request: %v", err)}
	}
	httpReq.Header.Set("content-type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &GenError{Kind: FailureOther, Message: fmt.Sprintf("read response body: %v", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, string(body))
	}

	var geminiResp geminiResponse
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return nil, &GenError{Kind: FailureOther, Message: fmt.Sprintf("parse response: %v", err)}
	}
	if geminiResp.Error != nil {
		return nil, classifyStatus(geminiResp.Error.Code, geminiResp.Error.Message)
	}

	var text string
	for _, c := range geminiResp.Candidates {
		for _, p := range c.Content.Parts {
			text += p.Text
		}
	}
	if text == "" {
		return nil, &GenError{Kind: FailureOther, Message: "empty completion"}
	}

	g.logger.Debug("Gemini completion",
		"model", g.modelName,
		"input_tokens", geminiResp.UsageMetadata.PromptTokenCount,
		"output_tokens", geminiResp.UsageMetadata.CandidatesTokenCount)

	return &GenResponse{
		Text:         text,
		InputTokens:  geminiResp.UsageMetadata.PromptTokenCount,
		OutputTokens: geminiResp.UsageMetadata.CandidatesTokenCount,
	}, nil
}

// classifyTransportError maps client-side failures. Deadline overruns count
// as timeouts so the retry policy applies.
func classifyTransportError(err error) *GenError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &GenError{Kind: FailureTimeout, Message: err.Error()}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &GenError{Kind: FailureTimeout, Message: err.Error()}
	}
	return &GenError{Kind: FailureOther, Message: err.Error()}
}

func classifyStatus(status int, message string) *GenError {
	kind := FailureOther
	switch {
	case status == http.StatusTooManyRequests:
		kind = FailureRateLimited
	case status >= 500:
		kind = FailureServer
	}
	return &GenError{Kind: kind, StatusCode: status, Message: message}
}
