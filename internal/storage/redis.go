package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/hmcavoy/mutiny-chess/pkg/game"
)

// gameTTL bounds how long an anonymous game survives without activity.
const gameTTL = 24 * time.Hour

// RedisStore implements the Store interface using Redis. Games live in
// JSON strings, pieces in per-game hashes, and the append-only logs in
// per-game lists. Every key carries the game TTL, refreshed on writes.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

// Ensure RedisStore implements Store interface
var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a new Redis store instance
func NewRedisStore(redisURL string, logger *slog.Logger) *RedisStore {
	rdb := redis.NewClient(&redis.Options{
		Addr: redisURL,
	})

	return &RedisStore{
		client: rdb,
		logger: logger,
	}
}

func gameKey(id uuid.UUID) string        { return "game:" + id.String() }
func shareCodeKey(code string) string    { return "sharecode:" + code }
func piecesKey(id uuid.UUID) string      { return "game:" + id.String() + ":pieces" }
func squaresKey(id uuid.UUID) string     { return "game:" + id.String() + ":squares" }
func messagesKey(id uuid.UUID) string    { return "game:" + id.String() + ":messages" }
func movesKey(id uuid.UUID) string       { return "game:" + id.String() + ":moves" }
func persuasionsKey(id uuid.UUID) string { return "game:" + id.String() + ":persuasions" }
func eventsKey(id uuid.UUID) string      { return "game:" + id.String() + ":events" }

func (r *RedisStore) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Close() error {
	if err := r.client.Close(); err != nil {
		r.logger.Error("Failed to close Redis connection", "error", err)
		return err
	}
	r.logger.Info("Redis connection closed")
	return nil
}

// WaitForConnection waits for Redis to become available (used during startup)
func (r *RedisStore) WaitForConnection(ctx context.Context) error {
	maxRetries := 30
	retryDelay := 2 * time.Second

	for i := 0; i < maxRetries; i++ {
		if err := r.Ping(ctx); err != nil {
			r.logger.Debug("Redis not ready yet", "error", err, "attempt", i+1)

			select {
			case <-ctx.Done():
				return fmt.Errorf("context cancelled while waiting for redis: %w", ctx.Err())
			case <-time.After(retryDelay):
				continue
			}
		}

		r.logger.Info("Redis connection established")
		return nil
	}

	return fmt.Errorf("redis did not become available after %d attempts", maxRetries)
}

func (r *RedisStore) CreateGame(ctx context.Context, g *game.Game, pieces []*game.Piece) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal game: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, gameKey(g.ID), string(data), gameTTL)
	pipe.Set(ctx, shareCodeKey(g.ShareCode), g.ID.String(), gameTTL)

	for _, p := range pieces {
		pd, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("failed to marshal piece: %w", err)
		}
		pipe.HSet(ctx, piecesKey(g.ID), p.ID.String(), string(pd))
		pipe.HSet(ctx, squaresKey(g.ID), p.Square, p.ID.String())
	}
	pipe.Expire(ctx, piecesKey(g.ID), gameTTL)
	pipe.Expire(ctx, squaresKey(g.ID), gameTTL)

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to create game", "game_id", g.ID, "error", err)
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}

func (r *RedisStore) GetGame(ctx context.Context, id uuid.UUID) (*game.Game, error) {
	data, err := r.client.Get(ctx, gameKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load game: %w", err)
	}

	var g game.Game
	if err := json.Unmarshal([]byte(data), &g); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game: %w", err)
	}
	return &g, nil
}

func (r *RedisStore) GetGameByShareCode(ctx context.Context, code string) (*game.Game, error) {
	idStr, err := r.client.Get(ctx, shareCodeKey(code)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve share code: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt share code index: %w", err)
	}
	return r.GetGame(ctx, id)
}

func (r *RedisStore) UpdateGame(ctx context.Context, g *game.Game) error {
	exists, err := r.client.Exists(ctx, gameKey(g.ID)).Result()
	if err != nil {
		return fmt.Errorf("failed to check game: %w", err)
	}
	if exists == 0 {
		return ErrNotFound
	}

	g.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal game: %w", err)
	}
	if err := r.client.Set(ctx, gameKey(g.ID), string(data), gameTTL).Err(); err != nil {
		r.logger.Error("Failed to update game", "game_id", g.ID, "error", err)
		return fmt.Errorf("failed to update game: %w", err)
	}
	return nil
}

func (r *RedisStore) GetPieces(ctx context.Context, gameID uuid.UUID) ([]*game.Piece, error) {
	entries, err := r.client.HGetAll(ctx, piecesKey(gameID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load pieces: %w", err)
	}
	if len(entries) == 0 {
		return nil, ErrNotFound
	}

	out := make([]*game.Piece, 0, len(entries))
	for _, raw := range entries {
		var p game.Piece
		if err := json.Unmarshal([]byte(raw), &p); err != nil {
			return nil, fmt.Errorf("failed to unmarshal piece: %w", err)
		}
		out = append(out, &p)
	}
	return out, nil
}

func (r *RedisStore) GetPiece(ctx context.Context, gameID, pieceID uuid.UUID) (*game.Piece, error) {
	raw, err := r.client.HGet(ctx, piecesKey(gameID), pieceID.String()).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load piece: %w", err)
	}

	var p game.Piece
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal piece: %w", err)
	}
	return &p, nil
}

func (r *RedisStore) PieceAtSquare(ctx context.Context, gameID uuid.UUID, square string) (*game.Piece, error) {
	idStr, err := r.client.HGet(ctx, squaresKey(gameID), square).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve square: %w", err)
	}
	id, err := uuid.Parse(idStr)
	if err != nil {
		return nil, fmt.Errorf("corrupt square index: %w", err)
	}
	return r.GetPiece(ctx, gameID, id)
}

// UpdatePiece stores the new piece value and keeps the square index in sync.
func (r *RedisStore) UpdatePiece(ctx context.Context, p *game.Piece) error {
	old, err := r.GetPiece(ctx, p.GameID, p.ID)
	if err != nil {
		return err
	}

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal piece: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, piecesKey(p.GameID), p.ID.String(), string(data))
	if old.Square != p.Square {
		pipe.HDel(ctx, squaresKey(p.GameID), old.Square)
		if !p.Captured {
			pipe.HSet(ctx, squaresKey(p.GameID), p.Square, p.ID.String())
		}
	}
	if p.Captured && !old.Captured {
		pipe.HDel(ctx, squaresKey(p.GameID), old.Square, p.Square)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		r.logger.Error("Failed to update piece", "piece_id", p.ID, "error", err)
		return fmt.Errorf("failed to update piece: %w", err)
	}
	return nil
}

// appendJSON pushes one record onto a per-game list and refreshes its TTL.
func (r *RedisStore) appendJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, string(data))
	pipe.Expire(ctx, key, gameTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to append record: %w", err)
	}
	return nil
}

func (r *RedisStore) AppendMessage(ctx context.Context, m *game.MessageRecord) error {
	return r.appendJSON(ctx, messagesKey(m.GameID), m)
}

func (r *RedisStore) GetMessages(ctx context.Context, gameID uuid.UUID, limit, offset int) ([]*game.MessageRecord, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(offset + limit - 1)
	}
	raws, err := r.client.LRange(ctx, messagesKey(gameID), int64(offset), stop).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}

	out := make([]*game.MessageRecord, 0, len(raws))
	for _, raw := range raws {
		var m game.MessageRecord
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		out = append(out, &m)
	}
	return out, nil
}

func (r *RedisStore) AppendMove(ctx context.Context, m *game.MoveRecord) error {
	return r.appendJSON(ctx, movesKey(m.GameID), m)
}

func (r *RedisStore) GetMoves(ctx context.Context, gameID uuid.UUID) ([]*game.MoveRecord, error) {
	raws, err := r.client.LRange(ctx, movesKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load moves: %w", err)
	}

	out := make([]*game.MoveRecord, 0, len(raws))
	for _, raw := range raws {
		var m game.MoveRecord
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			return nil, fmt.Errorf("failed to unmarshal move: %w", err)
		}
		out = append(out, &m)
	}
	return out, nil
}

func (r *RedisStore) MoveCount(ctx context.Context, gameID uuid.UUID) (int, error) {
	n, err := r.client.LLen(ctx, movesKey(gameID)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count moves: %w", err)
	}
	return int(n), nil
}

func (r *RedisStore) AppendPersuasion(ctx context.Context, rec *game.PersuasionRecord) error {
	return r.appendJSON(ctx, persuasionsKey(rec.GameID), rec)
}

func (r *RedisStore) GetPersuasions(ctx context.Context, gameID, pieceID uuid.UUID) ([]*game.PersuasionRecord, error) {
	raws, err := r.client.LRange(ctx, persuasionsKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load persuasion log: %w", err)
	}

	out := make([]*game.PersuasionRecord, 0, len(raws))
	for _, raw := range raws {
		var rec game.PersuasionRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal persuasion record: %w", err)
		}
		if pieceID != uuid.Nil && rec.PieceID != pieceID {
			continue
		}
		out = append(out, &rec)
	}
	return out, nil
}

func (r *RedisStore) AppendMoraleEvent(ctx context.Context, e *game.MoraleEvent) error {
	return r.appendJSON(ctx, eventsKey(e.GameID), e)
}

func (r *RedisStore) GetMoraleEvents(ctx context.Context, gameID uuid.UUID) ([]*game.MoraleEvent, error) {
	raws, err := r.client.LRange(ctx, eventsKey(gameID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load morale events: %w", err)
	}

	out := make([]*game.MoraleEvent, 0, len(raws))
	for _, raw := range raws {
		var e game.MoraleEvent
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return nil, fmt.Errorf("failed to unmarshal morale event: %w", err)
		}
		out = append(out, &e)
	}
	return out, nil
}
