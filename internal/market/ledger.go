// Package market implements the market ledger: the authoritative in-memory
// state of competitors, participants, positions, and trades, together with
// the periodic price-tick cycle and the trade-execution protocol.
//
// The ledger is the single owner of all market state. One mutex serializes
// every mutating operation, which closes the read-modify-write race on a
// participant's cash. Persistence is write-behind: the in-memory commit
// happens first and store failures are logged, never rolled back.
//
// All monetary values use shopspring/decimal — never float64 for money.
package market

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/hulopredict/market-engine/internal/metrics"
	"github.com/hulopredict/market-engine/internal/model"
	"github.com/hulopredict/market-engine/internal/sim"
	"github.com/hulopredict/market-engine/internal/store"
)

// Broadcaster is the fan-out sink the ledger notifies after every
// state-changing operation. Delivery is best-effort; implementations must
// never block the caller.
type Broadcaster interface {
	BroadcastSnapshot(snap model.Snapshot)
	BroadcastTrade(ev TradeEvent)
}

// TradeEvent is the trade variant of the broadcast payload.
type TradeEvent struct {
	ParticipantID string          `json:"participant_id"`
	Competitor    string          `json:"competitor"`
	Side          string          `json:"side"`
	Amount        decimal.Decimal `json:"amount"`
	Shares        decimal.Decimal `json:"shares"`
	Timestamp     time.Time       `json:"timestamp"`
}

// TradeResult is returned from ExecuteTrade.
type TradeResult struct {
	TradeID        string          `json:"trade_id"`
	Side           string          `json:"side"`
	Shares         decimal.Decimal `json:"shares"`
	Price          decimal.Decimal `json:"price"`
	Amount         decimal.Decimal `json:"amount"`
	NewCash        decimal.Decimal `json:"new_cash"`
	TotalYesShares decimal.Decimal `json:"total_yes_shares"`
	TotalNoShares  decimal.Decimal `json:"total_no_shares"`
	Timestamp      time.Time       `json:"timestamp"`
}

// Config carries ledger tunables. Zero values fall back to defaults.
type Config struct {
	Seed          uint32
	HistoryLength int
	InitialCash   decimal.Decimal
}

// Ledger is the market state machine.
type Ledger struct {
	store       store.Store
	broadcaster Broadcaster // may be nil
	gen         *sim.Generator
	historyLen  int
	initialCash decimal.Decimal

	mu           sync.Mutex
	competitors  []*model.Competitor // sorted descending by percent
	byName       map[string]*model.Competitor
	history      map[string]*sim.History
	participants map[string]*model.Participant
	positions    map[string]*model.Position // keyed participantID + competitor
	lastUpdate   time.Time

	ticking atomic.Bool
}

// New creates a ledger. Call Hydrate before serving traffic.
// Pass nil for broadcaster if fan-out is not needed.
func New(st store.Store, broadcaster Broadcaster, cfg Config) *Ledger {
	if cfg.Seed == 0 {
		cfg.Seed = sim.DefaultSeed
	}
	if cfg.HistoryLength <= 0 {
		cfg.HistoryLength = sim.DefaultHistoryLength
	}
	if cfg.InitialCash.LessThanOrEqual(decimal.Zero) {
		cfg.InitialCash = decimal.NewFromInt(1000)
	}
	return &Ledger{
		store:        st,
		broadcaster:  broadcaster,
		gen:          sim.NewGenerator(cfg.Seed),
		historyLen:   cfg.HistoryLength,
		initialCash:  cfg.InitialCash,
		byName:       make(map[string]*model.Competitor),
		history:      make(map[string]*sim.History),
		participants: make(map[string]*model.Participant),
		positions:    make(map[string]*model.Position),
	}
}

// defaultRoster is the bootstrap competitor set used when the store is empty.
func defaultRoster() []model.Competitor {
	now := time.Now().UTC()
	return []model.Competitor{
		{Name: "Thomas Reynolds", Color: "#1a5f4a", Percent: 38, Score: -8, Holes: 18, UpdatedAt: now},
		{Name: "Justin Settlemoir", Color: "#d4af37", Percent: 22, Score: -6, Holes: 18, UpdatedAt: now},
		{Name: "Cole Parton", Color: "#ffb81c", Percent: 15, Score: -4, Holes: 18, UpdatedAt: now},
		{Name: "Ethan Brugger", Color: "#006747", Percent: 12, Score: -3, Holes: 18, UpdatedAt: now},
		{Name: "Conrad Murray", Color: "#5c8a6e", Percent: 8, Score: -2, Holes: 18, UpdatedAt: now},
		{Name: "Garrett Story", Color: "#4a7c59", Percent: 3, Score: -1, Holes: 18, UpdatedAt: now},
		{Name: "Dylan Huber", Color: "#2d5016", Percent: 1, Score: 0, Holes: 18, UpdatedAt: now},
		{Name: "Burke Estes", Color: "#6b8e23", Percent: 1, Score: 0, Holes: 18, UpdatedAt: now},
	}
}

// Hydrate loads competitors and price history from the store, seeding the
// default roster when the store is empty. A failure here is fatal: the
// engine must not run with an empty, inconsistent market.
func (l *Ledger) Hydrate(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hydrateLocked(ctx)
}

// Reload re-runs hydration, discarding all in-memory state. This is the
// reconciliation path after a crash: trade persistence is write-behind, so
// the durable store is the recovery source, not a mirror.
func (l *Ledger) Reload(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.competitors = nil
	l.byName = make(map[string]*model.Competitor)
	l.history = make(map[string]*sim.History)
	l.participants = make(map[string]*model.Participant)
	l.positions = make(map[string]*model.Position)
	return l.hydrateLocked(ctx)
}

func (l *Ledger) hydrateLocked(ctx context.Context) error {
	competitors, err := l.store.LoadCompetitors(ctx)
	if err != nil {
		return fmt.Errorf("hydrate competitors: %w", err)
	}

	if len(competitors) == 0 {
		competitors = defaultRoster()
		if err := l.store.SeedCompetitors(ctx, competitors); err != nil {
			return fmt.Errorf("seed default roster: %w", err)
		}
		slog.Info("seeded default roster", "competitors", len(competitors))
	}

	for i := range competitors {
		c := competitors[i]
		l.competitors = append(l.competitors, &c)
		l.byName[c.Name] = &c

		window := sim.NewHistory(l.historyLen)
		percents, err := l.store.LoadPriceHistory(ctx, c.Name, l.historyLen)
		if err != nil {
			return fmt.Errorf("hydrate price history for %s: %w", c.Name, err)
		}
		if len(percents) < l.historyLen {
			// Short real history is discarded wholesale: the window is
			// either fully real or fully synthetic, never a blend.
			window.Fill(l.gen.BackfillHistory(c.Percent, l.historyLen))
		} else {
			values := make([]float64, len(percents))
			for i, p := range percents {
				values[i] = float64(p) / 100
			}
			window.Fill(values)
		}
		l.history[c.Name] = window
	}

	l.sortLocked()
	l.lastUpdate = time.Now().UTC()

	slog.Info("market hydrated", "competitors", len(l.competitors))
	return nil
}

func (l *Ledger) sortLocked() {
	sort.SliceStable(l.competitors, func(i, j int) bool {
		return l.competitors[i].Percent > l.competitors[j].Percent
	})
}

func (l *Ledger) snapshotLocked() model.Snapshot {
	out := make([]model.Competitor, len(l.competitors))
	for i, c := range l.competitors {
		out[i] = *c
	}
	return model.Snapshot{Competitors: out, Timestamp: l.lastUpdate}
}

// Snapshot returns the current competitor list, highest percent first.
func (l *Ledger) Snapshot() model.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// PriceHistory returns the rolling normalized price window for one
// competitor, oldest first.
func (l *Ledger) PriceHistory(name string) ([]float64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	window, ok := l.history[name]
	if !ok {
		return nil, ErrCompetitorNotFound
	}
	return window.Values(), nil
}

// Tick runs one price-update cycle: every competitor's percent steps by a
// bounded random perturbation, the rolling history advances, and the new
// percents are persisted best-effort. Skipped (ok=false) when a previous
// tick is still committing.
func (l *Ledger) Tick(ctx context.Context) (model.Snapshot, bool) {
	if !l.ticking.CompareAndSwap(false, true) {
		slog.Warn("tick skipped, previous tick still committing")
		return model.Snapshot{}, false
	}
	defer l.ticking.Store(false)

	start := time.Now()

	type sample struct {
		name    string
		percent int
	}

	l.mu.Lock()
	samples := make([]sample, 0, len(l.competitors))
	now := time.Now().UTC()
	for _, c := range l.competitors {
		c.Percent = l.gen.StepPercent(c.Percent)
		c.UpdatedAt = now
		l.history[c.Name].Push(float64(c.Percent) / 100)
		samples = append(samples, sample{name: c.Name, percent: c.Percent})
	}
	l.sortLocked()
	l.lastUpdate = now
	snap := l.snapshotLocked()
	l.mu.Unlock()

	// Write-behind persistence. The in-memory update is already committed;
	// a store outage must not stop the simulation.
	for _, s := range samples {
		if err := l.store.SaveCompetitorPercent(ctx, s.name, s.percent); err != nil {
			slog.Warn("persist percent failed", "competitor", s.name, "err", err)
		}
		if err := l.store.AppendPriceHistory(ctx, s.name, s.percent); err != nil {
			slog.Warn("persist price history failed", "competitor", s.name, "err", err)
		}
	}

	metrics.TicksTotal.Inc()
	metrics.TickDuration.Observe(time.Since(start).Seconds())

	if l.broadcaster != nil {
		l.broadcaster.BroadcastSnapshot(snap)
	}
	return snap, true
}

// LastUpdate returns the timestamp of the most recent tick or hydration.
func (l *Ledger) LastUpdate() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastUpdate
}

// ensureParticipantLocked returns the in-memory participant, hydrating it
// (and all of its positions) from the store on first interaction.
func (l *Ledger) ensureParticipantLocked(ctx context.Context, id string) (*model.Participant, error) {
	if p, ok := l.participants[id]; ok {
		return p, nil
	}

	loaded, err := l.store.LoadOrCreateParticipant(ctx, id, l.initialCash)
	if err != nil {
		return nil, fmt.Errorf("load participant %s: %w", id, err)
	}
	p := &loaded
	l.participants[id] = p

	for _, c := range l.competitors {
		pos, err := l.store.LoadPosition(ctx, id, c.Name)
		if err != nil {
			return nil, fmt.Errorf("load position %s/%s: %w", id, c.Name, err)
		}
		if pos != nil {
			l.positions[posKey(id, c.Name)] = pos
		}
	}
	return p, nil
}

func posKey(participantID, competitor string) string {
	return participantID + "\x00" + competitor
}

// ExecuteTrade buys YES or NO shares of one competitor for a participant.
// Price is the current quote (percent/100 for YES, its complement for NO);
// shares are fractional. Every precondition is checked before any
// mutation, so a failed trade leaves state exactly as it was.
func (l *Ledger) ExecuteTrade(ctx context.Context, participantID, competitor, side string, amount decimal.Decimal) (*TradeResult, error) {
	start := time.Now()

	side = strings.ToUpper(side)
	if side != model.SideYes && side != model.SideNo {
		metrics.TradeRejections.WithLabelValues("invalid_side").Inc()
		return nil, ErrInvalidSide
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		metrics.TradeRejections.WithLabelValues("invalid_amount").Inc()
		return nil, ErrInvalidAmount
	}

	l.mu.Lock()

	comp, ok := l.byName[competitor]
	if !ok {
		l.mu.Unlock()
		metrics.TradeRejections.WithLabelValues("competitor_not_found").Inc()
		return nil, ErrCompetitorNotFound
	}

	participant, err := l.ensureParticipantLocked(ctx, participantID)
	if err != nil {
		l.mu.Unlock()
		return nil, err
	}

	var price decimal.Decimal
	if side == model.SideYes {
		price = comp.YesPrice()
	} else {
		price = comp.NoPrice()
	}
	shares := amount.Div(price)

	if participant.Cash.LessThan(amount) {
		l.mu.Unlock()
		metrics.TradeRejections.WithLabelValues("insufficient_funds").Inc()
		return nil, ErrInsufficientFunds
	}

	// --- In-memory commit: debit, position average, trade record ---

	now := time.Now().UTC()
	participant.Cash = participant.Cash.Sub(amount)

	key := posKey(participantID, competitor)
	pos, ok := l.positions[key]
	if !ok {
		pos = &model.Position{ParticipantID: participantID, Competitor: competitor}
		l.positions[key] = pos
	}
	if side == model.SideYes {
		if pos.YesShares.IsPositive() {
			pos.AvgYesPrice = pos.YesShares.Mul(pos.AvgYesPrice).Add(shares.Mul(price)).
				Div(pos.YesShares.Add(shares))
		} else {
			pos.AvgYesPrice = price
		}
		pos.YesShares = pos.YesShares.Add(shares)
	} else {
		if pos.NoShares.IsPositive() {
			pos.AvgNoPrice = pos.NoShares.Mul(pos.AvgNoPrice).Add(shares.Mul(price)).
				Div(pos.NoShares.Add(shares))
		} else {
			pos.AvgNoPrice = price
		}
		pos.NoShares = pos.NoShares.Add(shares)
	}
	pos.UpdatedAt = now

	trade := model.Trade{
		ID:            uuid.New().String(),
		ParticipantID: participantID,
		Competitor:    competitor,
		Side:          side,
		Shares:        shares,
		Price:         price,
		Amount:        amount,
		Timestamp:     now,
	}

	result := &TradeResult{
		TradeID:        trade.ID,
		Side:           side,
		Shares:         shares,
		Price:          price,
		Amount:         amount,
		NewCash:        participant.Cash,
		TotalYesShares: pos.YesShares,
		TotalNoShares:  pos.NoShares,
		Timestamp:      now,
	}
	posCopy := *pos
	newCash := participant.Cash
	snap := l.snapshotLocked()

	l.mu.Unlock()

	// --- Write-behind persistence (best-effort, logged) ---

	if err := l.store.SaveParticipantCash(ctx, participantID, newCash); err != nil {
		slog.Warn("persist cash failed", "participant", participantID, "err", err)
	}
	if err := l.store.SavePosition(ctx, &posCopy); err != nil {
		slog.Warn("persist position failed", "participant", participantID, "competitor", competitor, "err", err)
	}
	if err := l.store.AppendTrade(ctx, &trade); err != nil {
		slog.Warn("persist trade failed", "trade_id", trade.ID, "err", err)
	}

	metrics.TradesTotal.WithLabelValues(side).Inc()
	metrics.TradeLatency.WithLabelValues(side).Observe(time.Since(start).Seconds())
	metrics.TradedVolume.Add(amount.InexactFloat64())

	slog.Info("trade executed",
		"trade_id", trade.ID,
		"participant", participantID,
		"competitor", competitor,
		"side", side,
		"amount", amount.String(),
		"shares", shares.String(),
		"price", price.String(),
		"new_cash", newCash.String(),
	)

	if l.broadcaster != nil {
		l.broadcaster.BroadcastTrade(TradeEvent{
			ParticipantID: participantID,
			Competitor:    competitor,
			Side:          side,
			Amount:        amount,
			Shares:        shares,
			Timestamp:     now,
		})
		l.broadcaster.BroadcastSnapshot(snap)
	}

	return result, nil
}

// Portfolio returns a participant's cash and every held position valued at
// the current quote, plus total account value. Pure read.
func (l *Ledger) Portfolio(ctx context.Context, participantID string) (model.Portfolio, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	participant, err := l.ensureParticipantLocked(ctx, participantID)
	if err != nil {
		return model.Portfolio{}, err
	}

	total := participant.Cash
	holdings := make([]model.Holding, 0)

	for _, c := range l.competitors {
		pos, ok := l.positions[posKey(participantID, c.Name)]
		if !ok || (pos.YesShares.IsZero() && pos.NoShares.IsZero()) {
			continue
		}
		value := pos.YesShares.Mul(c.YesPrice()).Add(pos.NoShares.Mul(c.NoPrice()))
		total = total.Add(value)
		holdings = append(holdings, model.Holding{
			Competitor:   c.Name,
			YesShares:    pos.YesShares,
			NoShares:     pos.NoShares,
			AvgYesPrice:  pos.AvgYesPrice,
			AvgNoPrice:   pos.AvgNoPrice,
			CurrentValue: value,
		})
	}

	return model.Portfolio{
		ParticipantID: participantID,
		Cash:          participant.Cash,
		Holdings:      holdings,
		TotalValue:    total,
	}, nil
}

// RecentTrades returns up to limit executed trades, newest first.
func (l *Ledger) RecentTrades(ctx context.Context, limit int) ([]model.Trade, error) {
	return l.store.ListRecentTrades(ctx, limit)
}

// TotalVolume returns the sum of all trade amounts.
func (l *Ledger) TotalVolume(ctx context.Context) (decimal.Decimal, error) {
	return l.store.TotalTradedVolume(ctx)
}
