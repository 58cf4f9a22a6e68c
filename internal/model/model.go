// Package model defines the core domain types shared across the market engine.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade sides. The market is binary: every position is YES or NO.
const (
	SideYes = "YES"
	SideNo  = "NO"
)

var hundred = decimal.NewFromInt(100)

// Competitor is one entry in the fixed roster the market prices.
// Name is the stable identity key; Percent is the integer win probability,
// always within [1, 50]. Mutated only by the price-tick cycle.
type Competitor struct {
	Name      string    `json:"name" db:"name"`
	Color     string    `json:"color" db:"color"`
	Percent   int       `json:"percent" db:"percent"`
	Score     int       `json:"score" db:"score"`
	Holes     int       `json:"holes" db:"holes"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// YesPrice is the quoted price for YES shares: percent/100.
func (c Competitor) YesPrice() decimal.Decimal {
	return decimal.NewFromInt(int64(c.Percent)).Div(hundred)
}

// NoPrice is the quoted price for NO shares: (100-percent)/100.
func (c Competitor) NoPrice() decimal.Decimal {
	return decimal.NewFromInt(int64(100 - c.Percent)).Div(hundred)
}

// Participant is a market user identified by an opaque token.
// Cash only ever decreases — there is no sell or settlement path.
type Participant struct {
	ID        string          `json:"participant_id" db:"participant_id"`
	Cash      decimal.Decimal `json:"cash" db:"cash"`
	CreatedAt time.Time       `json:"created_at" db:"created_at"`
}

// Position is one participant's accumulated holdings for one competitor.
// AvgYesPrice / AvgNoPrice are cost-basis weighted averages over every
// purchase ever made on that side; zero while the side holds no shares.
type Position struct {
	ParticipantID string          `json:"participant_id" db:"participant_id"`
	Competitor    string          `json:"competitor" db:"competitor"`
	YesShares     decimal.Decimal `json:"yes_shares" db:"yes_shares"`
	NoShares      decimal.Decimal `json:"no_shares" db:"no_shares"`
	AvgYesPrice   decimal.Decimal `json:"avg_yes_price" db:"avg_yes_price"`
	AvgNoPrice    decimal.Decimal `json:"avg_no_price" db:"avg_no_price"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// Trade is an immutable record of one executed trade.
// Once created, these are never modified or deleted. Amount == Shares * Price.
type Trade struct {
	ID            string          `json:"id" db:"id"`
	ParticipantID string          `json:"participant_id" db:"participant_id"`
	Competitor    string          `json:"competitor" db:"competitor"`
	Side          string          `json:"side" db:"side"`
	Shares        decimal.Decimal `json:"shares" db:"shares"`
	Price         decimal.Decimal `json:"price" db:"price"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	Timestamp     time.Time       `json:"timestamp" db:"timestamp"`
}

// PricePoint is one append-only price-history sample for a competitor.
type PricePoint struct {
	Competitor string    `json:"competitor" db:"competitor"`
	Percent    int       `json:"percent" db:"percent"`
	Timestamp  time.Time `json:"timestamp" db:"timestamp"`
}

// Holding is one position valued at the current market price.
type Holding struct {
	Competitor   string          `json:"competitor"`
	YesShares    decimal.Decimal `json:"yes_shares"`
	NoShares     decimal.Decimal `json:"no_shares"`
	AvgYesPrice  decimal.Decimal `json:"avg_yes_price"`
	AvgNoPrice   decimal.Decimal `json:"avg_no_price"`
	CurrentValue decimal.Decimal `json:"current_value"`
}

// Portfolio is a participant's cash plus mark-to-market holdings.
type Portfolio struct {
	ParticipantID string          `json:"participant_id"`
	Cash          decimal.Decimal `json:"cash"`
	Holdings      []Holding       `json:"holdings"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

// Snapshot is the full competitor list with prices, sent to subscribers
// after every tick or trade.
type Snapshot struct {
	Competitors []Competitor `json:"competitors"`
	Timestamp   time.Time    `json:"timestamp"`
}
