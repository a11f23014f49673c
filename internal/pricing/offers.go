package pricing

import (
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/currency"
)

type offerCandidate struct {
	offer     Offer
	baseTotal decimal.Decimal
	savings   decimal.Decimal
}

// allocateOffers greedily commits bundle offers against the eligible
// quantity pool, highest savings first. Commits are irrevocable: an earlier
// offer may starve a later one of shared inventory. The pool map is owned
// by the caller and is mutated in place; it must be scoped to one call.
//
// Returns the offer-derived lines and the per-product quantity consumed.
func allocateOffers(pool map[uuid.UUID]decimal.Decimal, products map[uuid.UUID]ProductSnapshot, offers []Offer, rate *decimal.Decimal) ([]TransactionLine, map[uuid.UUID]decimal.Decimal, error) {
	candidates := make([]offerCandidate, 0, len(offers))
	for _, offer := range offers {
		if !offer.IsActive || len(offer.Items) == 0 {
			continue
		}
		baseTotal := decimal.Zero
		valid := true
		for _, item := range offer.Items {
			product, ok := products[item.ProductID]
			if !ok || !item.Quantity.IsPositive() {
				valid = false
				break
			}
			baseTotal = baseTotal.Add(product.PriceUSD.Mul(item.Quantity))
		}
		if !valid || !baseTotal.IsPositive() {
			continue
		}
		savings := baseTotal.Sub(offer.PriceUSD)
		if !savings.IsPositive() {
			continue
		}
		candidates = append(candidates, offerCandidate{offer: offer, baseTotal: baseTotal, savings: savings})
	}
	// Stable: equal savings keep source order so allocation is deterministic.
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].savings.GreaterThan(candidates[j].savings)
	})

	consumed := make(map[uuid.UUID]decimal.Decimal)
	var lines []TransactionLine
	for _, cand := range candidates {
		count := bundleCount(cand.offer, pool)
		if !count.IsPositive() {
			continue
		}
		multiplier := cand.offer.PriceUSD.Div(cand.baseTotal)
		if multiplier.IsNegative() {
			multiplier = decimal.Zero
		}
		for _, item := range cand.offer.Items {
			take := item.Quantity.Mul(count)
			left := pool[item.ProductID].Sub(take)
			if left.IsNegative() {
				left = decimal.Zero
			}
			pool[item.ProductID] = left
			consumed[item.ProductID] = consumed[item.ProductID].Add(take)

			line, err := offerLine(cand.offer, item, count, multiplier, products[item.ProductID], rate)
			if err != nil {
				return nil, nil, err
			}
			lines = append(lines, line)
		}
	}
	return lines, consumed, nil
}

// bundleCount is the number of whole bundles the pool can still satisfy.
// Any required product with nothing left blocks the offer entirely.
func bundleCount(offer Offer, pool map[uuid.UUID]decimal.Decimal) decimal.Decimal {
	count := decimal.Zero
	for i, item := range offer.Items {
		avail := pool[item.ProductID]
		if !avail.IsPositive() {
			return decimal.Zero
		}
		fit := avail.Div(item.Quantity).Floor()
		if i == 0 || fit.LessThan(count) {
			count = fit
		}
	}
	return count
}

func offerLine(offer Offer, item OfferItem, count, multiplier decimal.Decimal, product ProductSnapshot, rate *decimal.Decimal) (TransactionLine, error) {
	qty := item.Quantity.Mul(count)
	// Offer unit prices keep 4 decimal places so that the bundle price
	// survives the split across constituent lines.
	unitUSD := product.PriceUSD.Mul(multiplier).Round(4)
	unitLBP, err := currency.USDToLBP(unitUSD, rate)
	if err != nil {
		return TransactionLine{}, err
	}
	baseLBP, err := currency.USDToLBP(product.PriceUSD, rate)
	if err != nil {
		return TransactionLine{}, err
	}
	totalUSD := currency.RoundUSD(unitUSD.Mul(qty))
	totalLBP := currency.RoundLBP(unitLBP.Mul(qty))
	costUSD := currency.RoundUSD(inventoryCost(product).Mul(qty))
	costLBP, err := currency.USDToLBP(costUSD, rate)
	if err != nil {
		return TransactionLine{}, err
	}
	profitUSD := currency.RoundUSD(totalUSD.Sub(costUSD))
	profitLBP, err := currency.USDToLBP(profitUSD, rate)
	if err != nil {
		return TransactionLine{}, err
	}

	offerID := offer.ID
	return TransactionLine{
		ProductID:        item.ProductID,
		OfferID:          &offerID,
		Quantity:         qty,
		BaseUnitPriceUSD: currency.RoundUSD(product.PriceUSD),
		BaseUnitPriceLBP: baseLBP,
		UnitPriceUSD:     unitUSD,
		UnitPriceLBP:     unitLBP,
		DiscountPercent:  clamp(decimal.NewFromInt(1).Sub(multiplier).Mul(hundred).Round(2), negHundred, hundred),
		TotalUSD:         totalUSD,
		TotalLBP:         totalLBP,
		CostUSD:          costUSD,
		CostLBP:          costLBP,
		ProfitUSD:        profitUSD,
		ProfitLBP:        profitLBP,
	}, nil
}

// reduceByConsumption subtracts the offer-consumed quantities from the
// original cart entries in input order until each product's consumption is
// exhausted. Ineligible entries pass through untouched; fully consumed
// entries are dropped.
func reduceByConsumption(items []CartItemRequest, consumed map[uuid.UUID]decimal.Decimal) []CartItemRequest {
	remaining := make(map[uuid.UUID]decimal.Decimal, len(consumed))
	for id, qty := range consumed {
		remaining[id] = qty
	}
	out := make([]CartItemRequest, 0, len(items))
	for _, item := range items {
		if !offerEligible(item) {
			out = append(out, item)
			continue
		}
		take := remaining[item.ProductID]
		if take.IsPositive() {
			if take.GreaterThanOrEqual(item.Quantity) {
				remaining[item.ProductID] = take.Sub(item.Quantity)
				continue
			}
			item.Quantity = item.Quantity.Sub(take)
			remaining[item.ProductID] = decimal.Zero
		}
		out = append(out, item)
	}
	return out
}
