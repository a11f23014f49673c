package currency

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrRateRequired is returned when a conversion is attempted without a
// configured exchange rate. It must reach the caller unwrapped: pricing
// without a rate is a configuration error, not a transient fault.
var ErrRateRequired = errors.New("exchange rate required")

// RoundUSD rounds to cents. Ties round away from zero.
func RoundUSD(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// RoundLBP rounds to whole pounds. Ties round away from zero.
func RoundLBP(v decimal.Decimal) decimal.Decimal {
	return v.Round(0)
}

// USDToLBP converts a USD amount using the USD→LBP multiplier.
func USDToLBP(amount decimal.Decimal, rate *decimal.Decimal) (decimal.Decimal, error) {
	if rate == nil || !rate.IsPositive() {
		return decimal.Zero, ErrRateRequired
	}
	return RoundLBP(amount.Mul(*rate)), nil
}

// LBPToUSD converts an LBP amount using the USD→LBP multiplier.
func LBPToUSD(amount decimal.Decimal, rate *decimal.Decimal) (decimal.Decimal, error) {
	if rate == nil || !rate.IsPositive() {
		return decimal.Zero, ErrRateRequired
	}
	return RoundUSD(amount.Div(*rate)), nil
}

// Balance holds the dual-currency totals and remaining balances of one
// settlement.
type Balance struct {
	TotalUSD   decimal.Decimal
	TotalLBP   decimal.Decimal
	BalanceUSD decimal.Decimal
	BalanceLBP decimal.Decimal
}

// ComputeBalance reconciles what is still owed in each tender. The USD
// balance counts LBP already paid as a USD-equivalent credit and vice versa.
// The two balances are rounded independently and are generally not exact
// currency-converted images of each other.
func ComputeBalance(totalUSD, paidUSD, paidLBP decimal.Decimal, rate *decimal.Decimal, totalLBPOverride *decimal.Decimal) (Balance, error) {
	totalUSD = RoundUSD(totalUSD)

	var totalLBP decimal.Decimal
	if totalLBPOverride != nil {
		totalLBP = RoundLBP(*totalLBPOverride)
	} else {
		converted, err := USDToLBP(totalUSD, rate)
		if err != nil {
			return Balance{}, err
		}
		totalLBP = converted
	}

	paidUSD = RoundUSD(paidUSD)
	paidLBP = RoundLBP(paidLBP)

	lbpPaidAsUSD, err := LBPToUSD(paidLBP, rate)
	if err != nil {
		return Balance{}, err
	}
	usdPaidAsLBP, err := USDToLBP(paidUSD, rate)
	if err != nil {
		return Balance{}, err
	}

	return Balance{
		TotalUSD:   totalUSD,
		TotalLBP:   totalLBP,
		BalanceUSD: RoundUSD(totalUSD.Sub(paidUSD).Sub(lbpPaidAsUSD)),
		BalanceLBP: RoundLBP(totalLBP.Sub(paidLBP).Sub(usdPaidAsLBP)),
	}, nil
}
