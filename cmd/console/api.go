package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/hmcavoy/mutiny-chess/internal/resolver"
	"github.com/hmcavoy/mutiny-chess/pkg/game"
)

// ErrorResponse matches the API error body.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type apiClient struct {
	http      *http.Client
	baseURL   string
	sessionID string
}

func (c *apiClient) testConnection() bool {
	resp, err := c.http.Get(c.baseURL + "/health")
	if err != nil {
		return false
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()
	return resp.StatusCode == http.StatusOK
}

func (c *apiClient) do(method, path string, reqBody, out any) error {
	var buf bytes.Buffer
	if reqBody != nil {
		if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	req, err := http.NewRequest(method, c.baseURL+path, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Session-ID", c.sessionID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close() // Ignore error in defer
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var errorResp ErrorResponse
		if err := json.Unmarshal(body, &errorResp); err != nil {
			return fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
		}
		return fmt.Errorf("%s", errorResp.Error)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

func (c *apiClient) createGame(mode game.Mode) (*resolver.GameView, error) {
	var view resolver.GameView
	err := c.do(http.MethodPost, "/v1/games", map[string]any{"game_mode": mode}, &view)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *apiClient) joinByCode(code string) (*resolver.GameView, error) {
	var view resolver.GameView
	err := c.do(http.MethodPost, "/v1/games/join", map[string]any{"share_code": code}, &view)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *apiClient) getGame(gameID uuid.UUID) (*resolver.GameView, error) {
	var view resolver.GameView
	err := c.do(http.MethodGet, "/v1/games/"+gameID.String(), nil, &view)
	if err != nil {
		return nil, err
	}
	return &view, nil
}

func (c *apiClient) command(gameID, pieceID uuid.UUID, target, message string) (*game.CommandResult, error) {
	var result game.CommandResult
	err := c.do(http.MethodPost, "/v1/games/"+gameID.String()+"/command", map[string]any{
		"piece_id":      pieceID,
		"target_square": target,
		"message":       message,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *apiClient) persuade(gameID, pieceID uuid.UUID, target, argument string) (*game.PersuasionResult, error) {
	var result game.PersuasionResult
	err := c.do(http.MethodPost, "/v1/games/"+gameID.String()+"/persuade", map[string]any{
		"piece_id":      pieceID,
		"target_square": target,
		"argument":      argument,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *apiClient) resign(gameID uuid.UUID) (*game.Game, error) {
	var g game.Game
	err := c.do(http.MethodPost, "/v1/games/"+gameID.String()+"/resign", nil, &g)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (c *apiClient) messages(gameID uuid.UUID, limit int) ([]game.MessageRecord, error) {
	var msgs []game.MessageRecord
	err := c.do(http.MethodGet, fmt.Sprintf("/v1/games/%s/messages?limit=%d", gameID, limit), nil, &msgs)
	if err != nil {
		return nil, err
	}
	return msgs, nil
}
