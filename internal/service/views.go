// Package service exposes the typed operations of the market engine:
// market creation and resolution, user registration, and buying. Services
// coordinate the engines, the in-memory stores, and the persistence
// coordinator; surrounding layers translate these operations to transports.
//
// All mutating operations are serialized through a single commit lock shared
// by the services (the global-write-lock concurrency option): one writer at a
// time across both stores, reads concurrent with reads. Persistence runs
// under the same lock, after the in-memory commit and before the caller is
// acknowledged.
package service

import (
	"github.com/shopspring/decimal"

	"predictd/internal/domain"
)

// MarketView is the public projection of a market. Share pool internals are
// deliberately absent; use MarketDetail for the internals projection.
type MarketView struct {
	ID              string              `json:"marketId"`
	Name            string              `json:"name"`
	Description     string              `json:"description,omitempty"`
	Status          domain.MarketStatus `json:"status"`
	ResolvedOutcome domain.Outcome      `json:"resolvedOutcome,omitempty"`
}

// MarketDetail extends MarketView with derived prices and pool internals.
type MarketDetail struct {
	MarketView
	YesPrice  float64 `json:"yesPrice"`
	NoPrice   float64 `json:"noPrice"`
	QYes      float64 `json:"qYes"`
	QNo       float64 `json:"qNo"`
	Liquidity float64 `json:"liquidity"`
	MaxLoss   float64 `json:"maxLoss"`
}

// UserView is the public projection of a user.
type UserView struct {
	ID string `json:"userId"`
}

// PositionView is a user's holdings in one market.
type PositionView struct {
	MarketID  string  `json:"marketId"`
	YesShares float64 `json:"yesShares"`
	NoShares  float64 `json:"noShares"`
	Settled   bool    `json:"settled"`
}

// UserDetail is the "me" projection: balance and positions included.
type UserDetail struct {
	ID        string          `json:"userId"`
	Balance   decimal.Decimal `json:"balance"`
	Positions []PositionView  `json:"positions"`
}

func marketView(m *domain.Market) MarketView {
	return MarketView{
		ID:              m.ID,
		Name:            m.Name,
		Description:     m.Description,
		Status:          m.Status,
		ResolvedOutcome: m.ResolvedOutcome,
	}
}

func marketDetail(m *domain.Market) MarketDetail {
	return MarketDetail{
		MarketView: marketView(m),
		YesPrice:   m.YesPrice(),
		NoPrice:    m.NoPrice(),
		QYes:       m.QYes,
		QNo:        m.QNo,
		Liquidity:  m.Liquidity,
		MaxLoss:    marketMaxLoss(m),
	}
}

func userDetail(u *domain.User) UserDetail {
	detail := UserDetail{
		ID:        u.ID,
		Balance:   u.Balance,
		Positions: []PositionView{},
	}
	for _, marketID := range sortedPositionKeys(u.Positions) {
		p := u.Positions[marketID]
		detail.Positions = append(detail.Positions, PositionView{
			MarketID:  p.MarketID,
			YesShares: p.YesShares,
			NoShares:  p.NoShares,
			Settled:   p.Settled,
		})
	}
	return detail
}
