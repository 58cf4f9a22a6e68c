package store

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/hulopredict/market-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu           sync.RWMutex
	competitors  []model.Competitor
	history      map[string][]int
	participants map[string]model.Participant
	positions    map[string]model.Position
	trades       []model.Trade
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		history:      make(map[string][]int),
		participants: make(map[string]model.Participant),
		positions:    make(map[string]model.Position),
	}
}

func posKey(participantID, competitor string) string {
	return participantID + "\x00" + competitor
}

func (s *MemoryStore) LoadCompetitors(_ context.Context) ([]model.Competitor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Competitor, len(s.competitors))
	copy(out, s.competitors)
	return out, nil
}

func (s *MemoryStore) SeedCompetitors(_ context.Context, competitors []model.Competitor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.competitors = make([]model.Competitor, len(competitors))
	copy(s.competitors, competitors)
	return nil
}

func (s *MemoryStore) SaveCompetitorPercent(_ context.Context, name string, percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.competitors {
		if s.competitors[i].Name == name {
			s.competitors[i].Percent = percent
			s.competitors[i].UpdatedAt = time.Now().UTC()
			break
		}
	}
	return nil
}

func (s *MemoryStore) LoadPriceHistory(_ context.Context, name string, limit int) ([]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	samples := s.history[name]
	if len(samples) > limit {
		samples = samples[len(samples)-limit:]
	}
	out := make([]int, len(samples))
	copy(out, samples)
	return out, nil
}

func (s *MemoryStore) AppendPriceHistory(_ context.Context, name string, percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[name] = append(s.history[name], percent)
	return nil
}

func (s *MemoryStore) LoadOrCreateParticipant(_ context.Context, id string, initialCash decimal.Decimal) (model.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.participants[id]; ok {
		return p, nil
	}
	p := model.Participant{ID: id, Cash: initialCash, CreatedAt: time.Now().UTC()}
	s.participants[id] = p
	return p, nil
}

func (s *MemoryStore) SaveParticipantCash(_ context.Context, id string, cash decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.participants[id]
	if !ok {
		p = model.Participant{ID: id, CreatedAt: time.Now().UTC()}
	}
	p.Cash = cash
	s.participants[id] = p
	return nil
}

func (s *MemoryStore) LoadPosition(_ context.Context, participantID, competitor string) (*model.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.positions[posKey(participantID, competitor)]
	if !ok {
		return nil, nil
	}
	out := pos
	return &out, nil
}

func (s *MemoryStore) SavePosition(_ context.Context, pos *model.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.positions[posKey(pos.ParticipantID, pos.Competitor)] = *pos
	return nil
}

func (s *MemoryStore) AppendTrade(_ context.Context, t *model.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.trades = append(s.trades, *t)
	return nil
}

func (s *MemoryStore) ListRecentTrades(_ context.Context, limit int) ([]model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.trades)
	if limit > n {
		limit = n
	}
	out := make([]model.Trade, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, s.trades[i])
	}
	return out, nil
}

func (s *MemoryStore) TotalTradedVolume(_ context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, t := range s.trades {
		total = total.Add(t.Amount)
	}
	return total, nil
}
