// Package store defines the persistence gateway for the market engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
//
// The ledger owns all market state in memory; the store is a write-behind
// durability sink and cold-start hydration source, never a second
// authority.
package store

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/hulopredict/market-engine/internal/model"
)

// Store is the persistence interface consumed by the market ledger.
type Store interface {
	// --- Competitor roster ---

	// LoadCompetitors returns the full roster, highest percent first.
	// An empty slice (not an error) means the store has never been seeded.
	LoadCompetitors(ctx context.Context) ([]model.Competitor, error)

	// SeedCompetitors persists the bootstrap roster. Called once, when
	// LoadCompetitors comes back empty.
	SeedCompetitors(ctx context.Context, competitors []model.Competitor) error

	// SaveCompetitorPercent persists a competitor's new percent after a tick.
	SaveCompetitorPercent(ctx context.Context, name string, percent int) error

	// --- Price history ---

	// LoadPriceHistory returns up to limit stored percent samples for one
	// competitor, oldest first.
	LoadPriceHistory(ctx context.Context, name string, limit int) ([]int, error)

	// AppendPriceHistory appends one price-history sample.
	AppendPriceHistory(ctx context.Context, name string, percent int) error

	// --- Participants ---

	// LoadOrCreateParticipant returns the participant, creating it with
	// initialCash on first interaction.
	LoadOrCreateParticipant(ctx context.Context, id string, initialCash decimal.Decimal) (model.Participant, error)

	// SaveParticipantCash persists a participant's cash balance after a debit.
	SaveParticipantCash(ctx context.Context, id string, cash decimal.Decimal) error

	// --- Positions ---

	// LoadPosition returns the position for one (participant, competitor)
	// pair, or (nil, nil) when none exists.
	LoadPosition(ctx context.Context, participantID, competitor string) (*model.Position, error)

	// SavePosition upserts a position row.
	SavePosition(ctx context.Context, pos *model.Position) error

	// --- Immutable trade log ---

	// AppendTrade appends an immutable trade record.
	AppendTrade(ctx context.Context, t *model.Trade) error

	// ListRecentTrades returns up to limit trades, newest first.
	ListRecentTrades(ctx context.Context, limit int) ([]model.Trade, error)

	// TotalTradedVolume returns the sum of all trade amounts.
	TotalTradedVolume(ctx context.Context) (decimal.Decimal, error)
}
