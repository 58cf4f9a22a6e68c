package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/hulopredict/market-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for the hot read paths served straight from the store: participant
// rows, position rows, the recent-trade feed, and total volume. Writes go
// to the primary and invalidate the affected keys; the trade feed relies
// on its TTL, so staleness is bounded by that.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write paths (write to primary, invalidate cache) ---

func (s *CachedStore) SeedCompetitors(ctx context.Context, competitors []model.Competitor) error {
	return s.primary.SeedCompetitors(ctx, competitors)
}

func (s *CachedStore) SaveCompetitorPercent(ctx context.Context, name string, percent int) error {
	return s.primary.SaveCompetitorPercent(ctx, name, percent)
}

func (s *CachedStore) AppendPriceHistory(ctx context.Context, name string, percent int) error {
	return s.primary.AppendPriceHistory(ctx, name, percent)
}

func (s *CachedStore) SaveParticipantCash(ctx context.Context, id string, cash decimal.Decimal) error {
	if err := s.primary.SaveParticipantCash(ctx, id, cash); err != nil {
		return err
	}
	s.rdb.Del(ctx, participantKey(id))
	return nil
}

func (s *CachedStore) SavePosition(ctx context.Context, pos *model.Position) error {
	if err := s.primary.SavePosition(ctx, pos); err != nil {
		return err
	}
	s.rdb.Del(ctx, positionKey(pos.ParticipantID, pos.Competitor))
	return nil
}

func (s *CachedStore) AppendTrade(ctx context.Context, t *model.Trade) error {
	if err := s.primary.AppendTrade(ctx, t); err != nil {
		return err
	}
	s.rdb.Del(ctx, volumeKey)
	return nil
}

// --- Read-through paths (check cache first) ---

func (s *CachedStore) LoadOrCreateParticipant(ctx context.Context, id string, initialCash decimal.Decimal) (model.Participant, error) {
	data, err := s.rdb.Get(ctx, participantKey(id)).Bytes()
	if err == nil {
		var p model.Participant
		if json.Unmarshal(data, &p) == nil {
			return p, nil
		}
	}

	p, err := s.primary.LoadOrCreateParticipant(ctx, id, initialCash)
	if err != nil {
		return model.Participant{}, err
	}

	if data, err := json.Marshal(p); err == nil {
		s.rdb.Set(ctx, participantKey(id), data, s.ttl)
	}
	return p, nil
}

func (s *CachedStore) LoadPosition(ctx context.Context, participantID, competitor string) (*model.Position, error) {
	data, err := s.rdb.Get(ctx, positionKey(participantID, competitor)).Bytes()
	if err == nil {
		var pos model.Position
		if json.Unmarshal(data, &pos) == nil {
			return &pos, nil
		}
	}

	pos, err := s.primary.LoadPosition(ctx, participantID, competitor)
	if err != nil || pos == nil {
		return pos, err
	}

	if data, err := json.Marshal(pos); err == nil {
		s.rdb.Set(ctx, positionKey(participantID, competitor), data, s.ttl)
	}
	return pos, nil
}

func (s *CachedStore) ListRecentTrades(ctx context.Context, limit int) ([]model.Trade, error) {
	data, err := s.rdb.Get(ctx, recentTradesKey(limit)).Bytes()
	if err == nil {
		var trades []model.Trade
		if json.Unmarshal(data, &trades) == nil {
			return trades, nil
		}
	}

	trades, err := s.primary.ListRecentTrades(ctx, limit)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(trades); err == nil {
		s.rdb.Set(ctx, recentTradesKey(limit), data, s.ttl)
	}
	return trades, nil
}

func (s *CachedStore) TotalTradedVolume(ctx context.Context) (decimal.Decimal, error) {
	data, err := s.rdb.Get(ctx, volumeKey).Result()
	if err == nil {
		if total, derr := decimal.NewFromString(data); derr == nil {
			return total, nil
		}
	}

	total, err := s.primary.TotalTradedVolume(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	s.rdb.Set(ctx, volumeKey, total.String(), s.ttl)
	return total, nil
}

// --- Passthrough (hydration reads, not worth caching) ---

func (s *CachedStore) LoadCompetitors(ctx context.Context) ([]model.Competitor, error) {
	return s.primary.LoadCompetitors(ctx)
}

func (s *CachedStore) LoadPriceHistory(ctx context.Context, name string, limit int) ([]int, error) {
	return s.primary.LoadPriceHistory(ctx, name, limit)
}

// --- Cache keys ---

const volumeKey = "trades:volume"

func participantKey(id string) string { return fmt.Sprintf("participant:%s", id) }

func positionKey(id, competitor string) string {
	return fmt.Sprintf("position:%s:%s", id, competitor)
}

func recentTradesKey(limit int) string { return fmt.Sprintf("trades:recent:%d", limit) }
