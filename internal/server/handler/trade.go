package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shopspring/decimal"

	"predictd/internal/domain"
)

// TradeService defines the methods the trade handler requires from the
// service layer.
type TradeService interface {
	Buy(ctx context.Context, userID, marketID string, outcome domain.Outcome, amount decimal.Decimal) (*domain.Trade, error)
	ListTrades(ctx context.Context, marketID string) []*domain.Trade
}

// TradeHandler serves trading HTTP endpoints.
type TradeHandler struct {
	trades TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler with the given service and logger.
func NewTradeHandler(trades TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		trades: trades,
		logger: logger,
	}
}

type buyRequest struct {
	UserID  string          `json:"userId"`
	Outcome string          `json:"outcome"`
	Amount  decimal.Decimal `json:"amount"`
}

// Buy spends a budget on shares of one outcome of a market.
// POST /api/markets/{id}/buy
func (h *TradeHandler) Buy(w http.ResponseWriter, r *http.Request) {
	marketID := pathParam(r, "id")
	if marketID == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	var req buyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	outcome, err := domain.ParseOutcome(req.Outcome)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	trade, err := h.trades.Buy(r.Context(), req.UserID, marketID, outcome, req.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, trade)
}

// ListTrades returns the committed trades, optionally for one market.
// GET /api/trades?marketId=...
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	trades := h.trades.ListTrades(r.Context(), r.URL.Query().Get("marketId"))
	writeJSON(w, http.StatusOK, map[string]any{"trades": trades})
}
