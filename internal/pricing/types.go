package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartItemRequest is one requested cart line before pricing. It is a
// request-scoped value object and is never persisted.
type CartItemRequest struct {
	ProductID             uuid.UUID
	Quantity              decimal.Decimal
	PriceRuleID           *uuid.UUID
	ManualDiscountPercent *decimal.Decimal
	IsWaste               bool
	ManualUnitPriceUSD    *decimal.Decimal
	ManualTotalPriceUSD   *decimal.Decimal
	ManualUnitPriceLBP    *decimal.Decimal
	ManualTotalPriceLBP   *decimal.Decimal
}

// ProductSnapshot carries the catalog price and inventory cost of one
// product at the moment the pricing call started. USD is the canonical
// currency.
type ProductSnapshot struct {
	ID             uuid.UUID
	PriceUSD       decimal.Decimal
	AverageCostUSD *decimal.Decimal
}

// PriceRule is a per-product percentage discount. Only a rule explicitly
// requested by the cart line and currently active is honoured.
type PriceRule struct {
	ID              uuid.UUID
	ProductID       uuid.UUID
	DiscountPercent decimal.Decimal
	IsActive        bool
}

// OfferItem is one product requirement inside a bundle offer.
type OfferItem struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
}

// Offer is a multi-item bundle sold at a fixed combined USD price.
type Offer struct {
	ID       uuid.UUID
	PriceUSD decimal.Decimal
	IsActive bool
	Items    []OfferItem
}

// TransactionLine is one priced, cost- and profit-attributed output line.
type TransactionLine struct {
	ProductID              uuid.UUID
	PriceRuleID            *uuid.UUID
	OfferID                *uuid.UUID
	Quantity               decimal.Decimal
	BaseUnitPriceUSD       decimal.Decimal
	BaseUnitPriceLBP       decimal.Decimal
	UnitPriceUSD           decimal.Decimal
	UnitPriceLBP           decimal.Decimal
	DiscountPercent        decimal.Decimal
	TotalUSD               decimal.Decimal
	TotalLBP               decimal.Decimal
	CostUSD                decimal.Decimal
	CostLBP                decimal.Decimal
	ProfitUSD              decimal.Decimal
	ProfitLBP              decimal.Decimal
	IsWaste                bool
	HasManualPriceOverride bool
}

// Snapshot is the immutable read the engine prices against. Consistency of
// the snapshot (for example a transactional read) is the caller's concern.
type Snapshot struct {
	Products map[uuid.UUID]ProductSnapshot
	Rules    []PriceRule
	Offers   []Offer
}

// Options toggle pricing modes for a single call.
type Options struct {
	AllowManualPricing bool
	PriceAtCostOnly    bool
}

// Result is the ordered priced line set plus cart totals.
type Result struct {
	TotalUSD decimal.Decimal
	TotalLBP decimal.Decimal
	Lines    []TransactionLine
}

var (
	hundred           = decimal.NewFromInt(100)
	negHundred        = decimal.NewFromInt(-100)
	costFallbackRatio = decimal.New(6, -1) // 0.6
)

// inventoryCost resolves the unit cost of a product, falling back to 60% of
// the catalog price when no inventory record exists.
func inventoryCost(p ProductSnapshot) decimal.Decimal {
	if p.AverageCostUSD != nil {
		return *p.AverageCostUSD
	}
	return p.PriceUSD.Mul(costFallbackRatio).Round(2)
}

func clamp(v, lo, hi decimal.Decimal) decimal.Decimal {
	if v.LessThan(lo) {
		return lo
	}
	if v.GreaterThan(hi) {
		return hi
	}
	return v
}
