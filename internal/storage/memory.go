package storage

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/hmcavoy/mutiny-chess/pkg/game"
)

type squareKey struct {
	gameID uuid.UUID
	square string
}

// MemoryStore keeps everything in process memory. Data is lost on restart,
// which is fine for dev and tests. Safe for concurrent use.
type MemoryStore struct {
	mu sync.RWMutex

	games       map[uuid.UUID]*game.Game
	pieces      map[uuid.UUID]*game.Piece
	messages    map[uuid.UUID][]*game.MessageRecord
	moves       map[uuid.UUID][]*game.MoveRecord
	persuasions map[uuid.UUID][]*game.PersuasionRecord
	events      map[uuid.UUID][]*game.MoraleEvent

	shareCodes   map[string]uuid.UUID
	piecesByGame map[uuid.UUID][]uuid.UUID
	pieceSquares map[squareKey]uuid.UUID
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		games:        make(map[uuid.UUID]*game.Game),
		pieces:       make(map[uuid.UUID]*game.Piece),
		messages:     make(map[uuid.UUID][]*game.MessageRecord),
		moves:        make(map[uuid.UUID][]*game.MoveRecord),
		persuasions:  make(map[uuid.UUID][]*game.PersuasionRecord),
		events:       make(map[uuid.UUID][]*game.MoraleEvent),
		shareCodes:   make(map[string]uuid.UUID),
		piecesByGame: make(map[uuid.UUID][]uuid.UUID),
		pieceSquares: make(map[squareKey]uuid.UUID),
	}
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }
func (s *MemoryStore) Close() error                   { return nil }

func (s *MemoryStore) CreateGame(ctx context.Context, g *game.Game, pieces []*game.Piece) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *g
	s.games[g.ID] = &stored
	s.shareCodes[g.ShareCode] = g.ID

	ids := make([]uuid.UUID, 0, len(pieces))
	for _, p := range pieces {
		cp := *p
		s.pieces[p.ID] = &cp
		ids = append(ids, p.ID)
		s.pieceSquares[squareKey{g.ID, p.Square}] = p.ID
	}
	s.piecesByGame[g.ID] = ids
	return nil
}

func (s *MemoryStore) GetGame(ctx context.Context, id uuid.UUID) (*game.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.games[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *g
	return &cp, nil
}

func (s *MemoryStore) GetGameByShareCode(ctx context.Context, code string) (*game.Game, error) {
	s.mu.RLock()
	id, ok := s.shareCodes[code]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return s.GetGame(ctx, id)
}

func (s *MemoryStore) UpdateGame(ctx context.Context, g *game.Game) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.games[g.ID]; !ok {
		return ErrNotFound
	}
	cp := *g
	s.games[g.ID] = &cp
	return nil
}

func (s *MemoryStore) GetPieces(ctx context.Context, gameID uuid.UUID) ([]*game.Piece, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, ok := s.piecesByGame[gameID]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]*game.Piece, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.pieces[id]; ok {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetPiece(ctx context.Context, gameID, pieceID uuid.UUID) (*game.Piece, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.pieces[pieceID]
	if !ok || p.GameID != gameID {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) PieceAtSquare(ctx context.Context, gameID uuid.UUID, square string) (*game.Piece, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.pieceSquares[squareKey{gameID, square}]
	if !ok {
		return nil, ErrNotFound
	}
	p, ok := s.pieces[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// UpdatePiece stores the new piece value and keeps the square index in sync:
// a moved piece vacates its old square, a captured piece holds no square.
func (s *MemoryStore) UpdatePiece(ctx context.Context, p *game.Piece) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.pieces[p.ID]
	if !ok {
		return ErrNotFound
	}

	if old.Square != p.Square {
		delete(s.pieceSquares, squareKey{p.GameID, old.Square})
		if !p.Captured {
			s.pieceSquares[squareKey{p.GameID, p.Square}] = p.ID
		}
	}
	if p.Captured && !old.Captured {
		delete(s.pieceSquares, squareKey{p.GameID, old.Square})
		delete(s.pieceSquares, squareKey{p.GameID, p.Square})
	}

	cp := *p
	s.pieces[p.ID] = &cp
	return nil
}

func (s *MemoryStore) AppendMessage(ctx context.Context, m *game.MessageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.messages[m.GameID] = append(s.messages[m.GameID], &cp)
	return nil
}

func (s *MemoryStore) GetMessages(ctx context.Context, gameID uuid.UUID, limit, offset int) ([]*game.MessageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	msgs := s.messages[gameID]
	if offset >= len(msgs) {
		return []*game.MessageRecord{}, nil
	}
	end := offset + limit
	if limit <= 0 || end > len(msgs) {
		end = len(msgs)
	}
	out := make([]*game.MessageRecord, 0, end-offset)
	for _, m := range msgs[offset:end] {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) AppendMove(ctx context.Context, m *game.MoveRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *m
	s.moves[m.GameID] = append(s.moves[m.GameID], &cp)
	return nil
}

func (s *MemoryStore) GetMoves(ctx context.Context, gameID uuid.UUID) ([]*game.MoveRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	moves := s.moves[gameID]
	out := make([]*game.MoveRecord, 0, len(moves))
	for _, m := range moves {
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) MoveCount(ctx context.Context, gameID uuid.UUID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.moves[gameID]), nil
}

func (s *MemoryStore) AppendPersuasion(ctx context.Context, r *game.PersuasionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *r
	s.persuasions[r.GameID] = append(s.persuasions[r.GameID], &cp)
	return nil
}

func (s *MemoryStore) GetPersuasions(ctx context.Context, gameID, pieceID uuid.UUID) ([]*game.PersuasionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*game.PersuasionRecord, 0)
	for _, r := range s.persuasions[gameID] {
		if pieceID != uuid.Nil && r.PieceID != pieceID {
			continue
		}
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

func (s *MemoryStore) AppendMoraleEvent(ctx context.Context, e *game.MoraleEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.events[e.GameID] = append(s.events[e.GameID], &cp)
	return nil
}

func (s *MemoryStore) GetMoraleEvents(ctx context.Context, gameID uuid.UUID) ([]*game.MoraleEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.events[gameID]
	out := make([]*game.MoraleEvent, 0, len(events))
	for _, e := range events {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}
