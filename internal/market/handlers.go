package market

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/hulopredict/market-engine/internal/model"
)

// API exposes the ledger's operations over HTTP. Framing only: every
// business rule lives in the ledger.
type API struct {
	ledger *Ledger
}

// NewAPI creates the HTTP facade for a ledger.
func NewAPI(l *Ledger) *API {
	return &API{ledger: l}
}

// TradeRequest is the JSON body for POST /trade.
type TradeRequest struct {
	ParticipantID string          `json:"participant_id"`
	Competitor    string          `json:"competitor"`
	Side          string          `json:"side"`
	Amount        decimal.Decimal `json:"amount"`
}

// ListCompetitors handles GET /api/v1/competitors
func (a *API) ListCompetitors(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.ledger.Snapshot())
}

// GetPriceHistory handles GET /api/v1/competitors/{name}/history
func (a *API) GetPriceHistory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	history, err := a.ledger.PriceHistory(name)
	if err != nil {
		writeError(w, "competitor not found: "+name, http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"competitor": name,
		"history":    history,
	})
}

// GetPortfolio handles GET /api/v1/portfolio/{participantID}
func (a *API) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	participantID := chi.URLParam(r, "participantID")

	portfolio, err := a.ledger.Portfolio(r.Context(), participantID)
	if err != nil {
		writeError(w, "failed to load portfolio", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, portfolio)
}

// ExecuteTrade handles POST /api/v1/trade
func (a *API) ExecuteTrade(w http.ResponseWriter, r *http.Request) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.ParticipantID == "" {
		writeError(w, "participant_id is required", http.StatusBadRequest)
		return
	}
	if req.Competitor == "" {
		writeError(w, "competitor is required", http.StatusBadRequest)
		return
	}

	result, err := a.ledger.ExecuteTrade(r.Context(), req.ParticipantID, req.Competitor, req.Side, req.Amount)
	if err != nil {
		writeError(w, err.Error(), tradeStatus(err))
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// ListTrades handles GET /api/v1/trades?limit=N
func (a *API) ListTrades(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	trades, err := a.ledger.RecentTrades(r.Context(), limit)
	if err != nil {
		writeError(w, "failed to list trades", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"trades": trades})
}

// GetVolume handles GET /api/v1/volume
func (a *API) GetVolume(w http.ResponseWriter, r *http.Request) {
	volume, err := a.ledger.TotalVolume(r.Context())
	if err != nil {
		writeError(w, "failed to compute volume", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]decimal.Decimal{"volume": volume})
}

// tradeStatus maps ledger errors to HTTP status codes.
func tradeStatus(err error) int {
	switch {
	case errors.Is(err, ErrCompetitorNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidSide), errors.Is(err, ErrInvalidAmount):
		return http.StatusBadRequest
	case errors.Is(err, ErrInsufficientFunds):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}
