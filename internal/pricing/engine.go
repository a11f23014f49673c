// Package pricing turns requested cart lines into priced, cost- and
// profit-attributed transaction lines across USD and LBP. The engine is a
// pure synchronous computation over an immutable snapshot: it performs no
// I/O, holds no state between calls, and may run concurrently as long as
// each call owns its snapshot.
package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/currency"
)

// offerEligible reports whether a cart entry may participate in bundle
// offers: no waste, no explicit price rule, no manual pricing fields.
func offerEligible(item CartItemRequest) bool {
	return !item.IsWaste &&
		item.PriceRuleID == nil &&
		item.ManualDiscountPercent == nil &&
		item.ManualUnitPriceUSD == nil &&
		item.ManualTotalPriceUSD == nil &&
		item.ManualUnitPriceLBP == nil &&
		item.ManualTotalPriceLBP == nil
}

// PriceCart prices the requested cart against the snapshot. Offer lines
// always precede the remainder lines. Entries whose product is missing
// from the snapshot are dropped without error.
func PriceCart(snap Snapshot, items []CartItemRequest, rate *decimal.Decimal, opts Options) (Result, error) {
	known := make([]CartItemRequest, 0, len(items))
	for _, item := range items {
		if _, ok := snap.Products[item.ProductID]; ok {
			known = append(known, item)
		}
	}

	var lines []TransactionLine
	remainder := known
	if !opts.PriceAtCostOnly && len(known) > 0 {
		pool := make(map[uuid.UUID]decimal.Decimal)
		for _, item := range known {
			if offerEligible(item) {
				pool[item.ProductID] = pool[item.ProductID].Add(item.Quantity)
			}
		}
		offerLines, consumed, err := allocateOffers(pool, snap.Products, snap.Offers, rate)
		if err != nil {
			return Result{}, err
		}
		lines = append(lines, offerLines...)
		remainder = reduceByConsumption(known, consumed)
	}

	for _, item := range remainder {
		line, err := priceLine(snap, item, rate, opts)
		if err != nil {
			return Result{}, err
		}
		lines = append(lines, line)
	}

	totalUSD := decimal.Zero
	totalLBP := decimal.Zero
	for _, line := range lines {
		totalUSD = totalUSD.Add(line.TotalUSD)
		totalLBP = totalLBP.Add(line.TotalLBP)
	}
	// The cart-level LBP total keeps cent-style rounding even though line
	// LBP amounts are whole pounds. Persisted data depends on this.
	return Result{
		TotalUSD: currency.RoundUSD(totalUSD),
		TotalLBP: currency.RoundUSD(totalLBP),
		Lines:    lines,
	}, nil
}
