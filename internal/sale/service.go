// Package sale exposes quoting and settlement over the pricing engine.
package sale

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/currency"
	"github.com/noah-isme/backend-pos/internal/obs"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

// SnapshotSource loads the catalog snapshot for a product set.
type SnapshotSource interface {
	Snapshot(ctx context.Context, productIDs []uuid.UUID) (pricing.Snapshot, error)
}

// RateSource resolves the current USD to LBP exchange rate.
type RateSource interface {
	Current(ctx context.Context) (decimal.Decimal, error)
}

// Service orchestrates snapshot loading, pricing, and balance computation.
type Service struct {
	Catalog            SnapshotSource
	Rates              RateSource
	AllowManualPricing bool
}

// QuoteItem is one requested cart line.
type QuoteItem struct {
	ProductID             uuid.UUID        `json:"productId" validate:"required"`
	Quantity              decimal.Decimal  `json:"quantity" validate:"required"`
	PriceRuleID           *uuid.UUID       `json:"priceRuleId,omitempty"`
	ManualDiscountPercent *decimal.Decimal `json:"manualDiscountPercent,omitempty"`
	IsWaste               bool             `json:"isWaste,omitempty"`
	ManualUnitPriceUSD    *decimal.Decimal `json:"manualUnitPriceUsd,omitempty"`
	ManualTotalPriceUSD   *decimal.Decimal `json:"manualTotalPriceUsd,omitempty"`
	ManualUnitPriceLBP    *decimal.Decimal `json:"manualUnitPriceLbp,omitempty"`
	ManualTotalPriceLBP   *decimal.Decimal `json:"manualTotalPriceLbp,omitempty"`
}

// QuoteRequest asks for a priced cart.
type QuoteRequest struct {
	Items           []QuoteItem `json:"items" validate:"required,min=1,dive"`
	PriceAtCostOnly bool        `json:"priceAtCostOnly,omitempty"`
}

// QuoteLine is the API shape of one priced transaction line.
type QuoteLine struct {
	ProductID              uuid.UUID       `json:"productId"`
	PriceRuleID            *uuid.UUID      `json:"priceRuleId,omitempty"`
	OfferID                *uuid.UUID      `json:"offerId,omitempty"`
	Quantity               decimal.Decimal `json:"quantity"`
	BaseUnitPriceUSD       decimal.Decimal `json:"baseUnitPriceUsd"`
	BaseUnitPriceLBP       decimal.Decimal `json:"baseUnitPriceLbp"`
	UnitPriceUSD           decimal.Decimal `json:"unitPriceUsd"`
	UnitPriceLBP           decimal.Decimal `json:"unitPriceLbp"`
	DiscountPercent        decimal.Decimal `json:"discountPercent"`
	TotalUSD               decimal.Decimal `json:"totalUsd"`
	TotalLBP               decimal.Decimal `json:"totalLbp"`
	CostUSD                decimal.Decimal `json:"costUsd"`
	CostLBP                decimal.Decimal `json:"costLbp"`
	ProfitUSD              decimal.Decimal `json:"profitUsd"`
	ProfitLBP              decimal.Decimal `json:"profitLbp"`
	IsWaste                bool            `json:"isWaste"`
	HasManualPriceOverride bool            `json:"hasManualPriceOverride"`
}

// Quote is the priced cart returned to the caller.
type Quote struct {
	TotalUSD decimal.Decimal `json:"totalUsd"`
	TotalLBP decimal.Decimal `json:"totalLbp"`
	Rate     decimal.Decimal `json:"rate"`
	Lines    []QuoteLine     `json:"lines"`
}

// BalanceRequest asks for a dual-currency settlement balance.
type BalanceRequest struct {
	TotalUSD decimal.Decimal  `json:"totalUsd"`
	TotalLBP *decimal.Decimal `json:"totalLbp,omitempty"`
	PaidUSD  decimal.Decimal  `json:"paidUsd"`
	PaidLBP  decimal.Decimal  `json:"paidLbp"`
}

// BalanceResponse carries the settlement totals and remaining balances.
type BalanceResponse struct {
	TotalUSD   decimal.Decimal `json:"totalUsd"`
	TotalLBP   decimal.Decimal `json:"totalLbp"`
	BalanceUSD decimal.Decimal `json:"balanceUsd"`
	BalanceLBP decimal.Decimal `json:"balanceLbp"`
	Rate       decimal.Decimal `json:"rate"`
}

// Quote prices the requested cart against a fresh snapshot.
func (s *Service) Quote(ctx context.Context, req QuoteRequest) (Quote, error) {
	if s == nil || s.Catalog == nil || s.Rates == nil {
		return Quote{}, errors.New("sale: service not configured")
	}
	if err := validateItems(req.Items); err != nil {
		return Quote{}, err
	}

	rate, err := s.Rates.Current(ctx)
	if err != nil {
		countQuote("rate_error")
		return Quote{}, err
	}

	ids := make([]uuid.UUID, 0, len(req.Items))
	items := make([]pricing.CartItemRequest, 0, len(req.Items))
	for _, it := range req.Items {
		ids = append(ids, it.ProductID)
		items = append(items, pricing.CartItemRequest{
			ProductID:             it.ProductID,
			Quantity:              it.Quantity,
			PriceRuleID:           it.PriceRuleID,
			ManualDiscountPercent: it.ManualDiscountPercent,
			IsWaste:               it.IsWaste,
			ManualUnitPriceUSD:    it.ManualUnitPriceUSD,
			ManualTotalPriceUSD:   it.ManualTotalPriceUSD,
			ManualUnitPriceLBP:    it.ManualUnitPriceLBP,
			ManualTotalPriceLBP:   it.ManualTotalPriceLBP,
		})
	}

	snap, err := s.Catalog.Snapshot(ctx, ids)
	if err != nil {
		countQuote("snapshot_error")
		return Quote{}, fmt.Errorf("load snapshot: %w", err)
	}

	start := time.Now()
	result, err := pricing.PriceCart(snap, items, &rate, pricing.Options{
		AllowManualPricing: s.AllowManualPricing,
		PriceAtCostOnly:    req.PriceAtCostOnly,
	})
	if err != nil {
		countQuote("pricing_error")
		return Quote{}, err
	}
	observeQuote(time.Since(start), result.Lines)

	quote := Quote{
		TotalUSD: result.TotalUSD,
		TotalLBP: result.TotalLBP,
		Rate:     rate,
		Lines:    make([]QuoteLine, 0, len(result.Lines)),
	}
	for _, line := range result.Lines {
		quote.Lines = append(quote.Lines, QuoteLine(line))
	}
	countQuote("ok")
	return quote, nil
}

// Balance computes remaining balances for a settlement attempt.
func (s *Service) Balance(ctx context.Context, req BalanceRequest) (BalanceResponse, error) {
	if s == nil || s.Rates == nil {
		return BalanceResponse{}, errors.New("sale: service not configured")
	}
	rate, err := s.Rates.Current(ctx)
	if err != nil {
		countBalance("rate_error")
		return BalanceResponse{}, err
	}
	bal, err := currency.ComputeBalance(req.TotalUSD, req.PaidUSD, req.PaidLBP, &rate, req.TotalLBP)
	if err != nil {
		countBalance("error")
		return BalanceResponse{}, err
	}
	countBalance("ok")
	return BalanceResponse{
		TotalUSD:   bal.TotalUSD,
		TotalLBP:   bal.TotalLBP,
		BalanceUSD: bal.BalanceUSD,
		BalanceLBP: bal.BalanceLBP,
		Rate:       rate,
	}, nil
}

func validateItems(items []QuoteItem) error {
	if len(items) == 0 {
		return &common.AppError{
			Code:       "BAD_REQUEST",
			Message:    "items are required",
			HTTPStatus: http.StatusBadRequest,
		}
	}
	for i, it := range items {
		if it.ProductID == uuid.Nil {
			return badItem(i, "productId is required")
		}
		if !it.Quantity.IsPositive() {
			return badItem(i, "quantity must be positive")
		}
	}
	return nil
}

func badItem(index int, message string) *common.AppError {
	return &common.AppError{
		Code:       "BAD_REQUEST",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Details:    map[string]any{"index": index},
	}
}

func countQuote(result string) {
	if obs.QuoteTotal != nil {
		obs.QuoteTotal.WithLabelValues(result).Inc()
	}
}

func countBalance(result string) {
	if obs.BalanceTotal != nil {
		obs.BalanceTotal.WithLabelValues(result).Inc()
	}
}

func observeQuote(d time.Duration, lines []pricing.TransactionLine) {
	if obs.QuoteDuration != nil {
		obs.QuoteDuration.Observe(obs.DurationMillis(d))
	}
	if obs.QuoteLines != nil {
		obs.QuoteLines.Observe(float64(len(lines)))
	}
	if obs.OfferApplicationsTotal != nil {
		for _, line := range lines {
			if line.OfferID != nil {
				obs.OfferApplicationsTotal.Inc()
			}
		}
	}
}
