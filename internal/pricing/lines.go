package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-pos/internal/currency"
)

// priceLine prices a single non-offer cart entry. The terminal branches
// (waste, cost-only, normal) are mutually exclusive and evaluated in that
// order.
func priceLine(snap Snapshot, item CartItemRequest, rate *decimal.Decimal, opts Options) (TransactionLine, error) {
	product := snap.Products[item.ProductID]
	rule := findRule(snap.Rules, item)

	baseUSD := product.PriceUSD
	baseLBP, err := currency.USDToLBP(baseUSD, rate)
	if err != nil {
		return TransactionLine{}, err
	}
	unitCost := inventoryCost(product)

	unitUSD := baseUSD
	if opts.PriceAtCostOnly {
		unitUSD = unitCost
	}
	unitLBP, err := currency.USDToLBP(unitUSD, rate)
	if err != nil {
		return TransactionLine{}, err
	}
	totalUSD := unitUSD.Mul(item.Quantity)
	totalLBP := unitLBP.Mul(item.Quantity)

	discount := decimal.Zero
	overridden := false
	if !item.IsWaste && !opts.PriceAtCostOnly {
		if rule != nil {
			discount = clamp(rule.DiscountPercent, decimal.Zero, hundred)
		}
		// A manual discount replaces the rule's discount entirely.
		if opts.AllowManualPricing && item.ManualDiscountPercent != nil {
			discount = clamp(*item.ManualDiscountPercent, decimal.Zero, hundred)
		}
		if discount.IsPositive() {
			unitUSD = baseUSD.Mul(hundred.Sub(discount)).Div(hundred)
			if unitLBP, err = currency.USDToLBP(unitUSD, rate); err != nil {
				return TransactionLine{}, err
			}
			totalUSD = unitUSD.Mul(item.Quantity)
			totalLBP = unitLBP.Mul(item.Quantity)
		}

		if opts.AllowManualPricing {
			unitUSD, totalUSD, unitLBP, totalLBP, overridden, err = applyManualOverrides(item, unitUSD, totalUSD, unitLBP, totalLBP, rate)
			if err != nil {
				return TransactionLine{}, err
			}
		}
	}

	lineCostUSD := unitCost.Mul(item.Quantity)
	lineCostLBP, err := currency.USDToLBP(lineCostUSD, rate)
	if err != nil {
		return TransactionLine{}, err
	}

	var profitUSD, profitLBP decimal.Decimal
	switch {
	case item.IsWaste:
		// Stock written off: zero revenue, full cost recognised as loss.
		unitUSD, totalUSD = decimal.Zero, decimal.Zero
		unitLBP, totalLBP = decimal.Zero, decimal.Zero
		discount = decimal.Zero
		overridden = false
		profitUSD = lineCostUSD.Neg()
		profitLBP = lineCostLBP.Neg()
	case opts.PriceAtCostOnly:
		unitUSD = unitCost
		if unitLBP, err = currency.USDToLBP(unitUSD, rate); err != nil {
			return TransactionLine{}, err
		}
		totalUSD = unitUSD.Mul(item.Quantity)
		totalLBP = unitLBP.Mul(item.Quantity)
		discount = decimal.Zero
		overridden = false
		profitUSD = decimal.Zero
		profitLBP = decimal.Zero
	default:
		profitUSD = totalUSD.Sub(lineCostUSD)
		if profitLBP, err = currency.USDToLBP(profitUSD, rate); err != nil {
			return TransactionLine{}, err
		}
	}

	return TransactionLine{
		ProductID:              item.ProductID,
		PriceRuleID:            ruleID(rule),
		Quantity:               item.Quantity,
		BaseUnitPriceUSD:       currency.RoundUSD(baseUSD),
		BaseUnitPriceLBP:       currency.RoundLBP(baseLBP),
		UnitPriceUSD:           currency.RoundUSD(unitUSD),
		UnitPriceLBP:           currency.RoundLBP(unitLBP),
		DiscountPercent:        discount,
		TotalUSD:               currency.RoundUSD(totalUSD),
		TotalLBP:               currency.RoundLBP(totalLBP),
		CostUSD:                currency.RoundUSD(lineCostUSD),
		CostLBP:                currency.RoundLBP(lineCostLBP),
		ProfitUSD:              currency.RoundUSD(profitUSD),
		ProfitLBP:              currency.RoundLBP(profitLBP),
		IsWaste:                item.IsWaste,
		HasManualPriceOverride: overridden,
	}, nil
}

// applyManualOverrides applies the caller-supplied price overrides as an
// ordered rule list. Each field is independently settable; within one
// currency side a later rule wins. When only one side was overridden, the
// other side is derived from it after the pass.
func applyManualOverrides(item CartItemRequest, unitUSD, totalUSD, unitLBP, totalLBP decimal.Decimal, rate *decimal.Decimal) (decimal.Decimal, decimal.Decimal, decimal.Decimal, decimal.Decimal, bool, error) {
	usdTouched := false
	lbpTouched := false

	if item.ManualUnitPriceUSD != nil {
		unitUSD = *item.ManualUnitPriceUSD
		totalUSD = unitUSD.Mul(item.Quantity)
		usdTouched = true
	}
	if item.ManualTotalPriceUSD != nil {
		totalUSD = *item.ManualTotalPriceUSD
		unitUSD = decimal.Zero
		if !item.Quantity.IsZero() {
			unitUSD = totalUSD.Div(item.Quantity)
		}
		usdTouched = true
	}
	if item.ManualUnitPriceLBP != nil {
		unitLBP = *item.ManualUnitPriceLBP
		totalLBP = unitLBP.Mul(item.Quantity)
		lbpTouched = true
	}
	if item.ManualTotalPriceLBP != nil {
		totalLBP = *item.ManualTotalPriceLBP
		unitLBP = decimal.Zero
		if !item.Quantity.IsZero() {
			unitLBP = totalLBP.Div(item.Quantity)
		}
		lbpTouched = true
	}

	var err error
	switch {
	case usdTouched && !lbpTouched:
		if unitLBP, err = currency.USDToLBP(unitUSD, rate); err != nil {
			return unitUSD, totalUSD, unitLBP, totalLBP, false, err
		}
		if totalLBP, err = currency.USDToLBP(totalUSD, rate); err != nil {
			return unitUSD, totalUSD, unitLBP, totalLBP, false, err
		}
	case lbpTouched && !usdTouched:
		if unitUSD, err = currency.LBPToUSD(unitLBP, rate); err != nil {
			return unitUSD, totalUSD, unitLBP, totalLBP, false, err
		}
		if totalUSD, err = currency.LBPToUSD(totalLBP, rate); err != nil {
			return unitUSD, totalUSD, unitLBP, totalLBP, false, err
		}
	}
	return unitUSD, totalUSD, unitLBP, totalLBP, usdTouched || lbpTouched, nil
}

// findRule resolves the rule the cart line asked for, if it is active and
// belongs to the line's product.
func findRule(rules []PriceRule, item CartItemRequest) *PriceRule {
	if item.PriceRuleID == nil {
		return nil
	}
	for i := range rules {
		r := &rules[i]
		if r.IsActive && r.ID == *item.PriceRuleID && r.ProductID == item.ProductID {
			return r
		}
	}
	return nil
}

func ruleID(rule *PriceRule) *uuid.UUID {
	if rule == nil {
		return nil
	}
	id := rule.ID
	return &id
}
