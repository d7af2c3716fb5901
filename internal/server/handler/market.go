package handler

import (
	"context"
	"log/slog"
	"net/http"

	"predictd/internal/domain"
	"predictd/internal/service"
)

// MarketService defines the methods the market handler requires from the
// service layer. It is declared locally so the handler package does not
// depend on the concrete service implementation.
type MarketService interface {
	CreateMarket(ctx context.Context, name, description string, liquidity float64) (service.MarketView, error)
	ListMarkets(ctx context.Context, statusFilter string) ([]service.MarketView, error)
	GetMarket(ctx context.Context, id string) (service.MarketDetail, error)
	ResolveMarket(ctx context.Context, id string, outcome domain.Outcome) error
}

// MarketHandler serves market-related HTTP endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logger,
	}
}

type createMarketRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Liquidity   float64 `json:"liquidity"`
}

// CreateMarket opens a new market.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	view, err := h.markets.CreateMarket(r.Context(), req.Name, req.Description, req.Liquidity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// ListMarkets returns all markets, optionally filtered by status.
// GET /api/markets?status=OPEN
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	views, err := h.markets.ListMarkets(r.Context(), r.URL.Query().Get("status"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"markets": views})
}

// GetMarket returns a single market with derived prices.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	detail, err := h.markets.GetMarket(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

type resolveMarketRequest struct {
	Outcome string `json:"outcome"`
}

// ResolveMarket declares the winning outcome and settles all positions.
// POST /api/markets/{id}/resolve
func (h *MarketHandler) ResolveMarket(w http.ResponseWriter, r *http.Request) {
	id := pathParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing market id")
		return
	}

	var req resolveMarketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	outcome, err := domain.ParseOutcome(req.Outcome)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.markets.ResolveMarket(r.Context(), id, outcome); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: resolve market failed",
			slog.String("market_id", id),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"marketId": id, "outcome": string(outcome)})
}
