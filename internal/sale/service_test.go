package sale

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/common"
	"github.com/noah-isme/backend-pos/internal/currency"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

type fakeCatalog struct {
	snap pricing.Snapshot
	err  error
}

func (f fakeCatalog) Snapshot(_ context.Context, _ []uuid.UUID) (pricing.Snapshot, error) {
	return f.snap, f.err
}

type fakeRates struct {
	rate decimal.Decimal
	err  error
}

func (f fakeRates) Current(_ context.Context) (decimal.Decimal, error) {
	return f.rate, f.err
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func testProduct(id uuid.UUID, price string) pricing.ProductSnapshot {
	return pricing.ProductSnapshot{ID: id, PriceUSD: dec(price)}
}

func TestQuoteHappyPath(t *testing.T) {
	prodID := uuid.New()
	svc := &Service{
		Catalog: fakeCatalog{snap: pricing.Snapshot{
			Products: map[uuid.UUID]pricing.ProductSnapshot{prodID: testProduct(prodID, "2.50")},
		}},
		Rates: fakeRates{rate: dec("90000")},
	}

	quote, err := svc.Quote(context.Background(), QuoteRequest{
		Items: []QuoteItem{{ProductID: prodID, Quantity: dec("4")}},
	})
	require.NoError(t, err)
	require.Len(t, quote.Lines, 1)
	require.True(t, quote.TotalUSD.Equal(dec("10")), "totalUsd = %s", quote.TotalUSD)
	require.True(t, quote.TotalLBP.Equal(dec("900000")), "totalLbp = %s", quote.TotalLBP)
	require.True(t, quote.Rate.Equal(dec("90000")))
}

func TestQuoteRejectsNonPositiveQuantity(t *testing.T) {
	svc := &Service{Catalog: fakeCatalog{}, Rates: fakeRates{rate: dec("90000")}}

	_, err := svc.Quote(context.Background(), QuoteRequest{
		Items: []QuoteItem{{ProductID: uuid.New(), Quantity: dec("0")}},
	})
	require.Error(t, err)
	require.True(t, common.IsAppError(err))
}

func TestQuoteRejectsEmptyCart(t *testing.T) {
	svc := &Service{Catalog: fakeCatalog{}, Rates: fakeRates{rate: dec("90000")}}

	_, err := svc.Quote(context.Background(), QuoteRequest{})
	require.Error(t, err)
	require.True(t, common.IsAppError(err))
}

func TestQuoteRateErrorPropagates(t *testing.T) {
	svc := &Service{Catalog: fakeCatalog{}, Rates: fakeRates{err: currency.ErrRateRequired}}

	_, err := svc.Quote(context.Background(), QuoteRequest{
		Items: []QuoteItem{{ProductID: uuid.New(), Quantity: dec("1")}},
	})
	require.ErrorIs(t, err, currency.ErrRateRequired)
}

func TestQuoteManualPricingGatedByService(t *testing.T) {
	prodID := uuid.New()
	manual := dec("1")
	snap := pricing.Snapshot{
		Products: map[uuid.UUID]pricing.ProductSnapshot{prodID: testProduct(prodID, "10")},
	}
	req := QuoteRequest{Items: []QuoteItem{{
		ProductID:          prodID,
		Quantity:           dec("1"),
		ManualUnitPriceUSD: &manual,
	}}}

	gated := &Service{Catalog: fakeCatalog{snap: snap}, Rates: fakeRates{rate: dec("90000")}}
	quote, err := gated.Quote(context.Background(), req)
	require.NoError(t, err)
	require.True(t, quote.Lines[0].UnitPriceUSD.Equal(dec("10")))
	require.False(t, quote.Lines[0].HasManualPriceOverride)

	allowed := &Service{Catalog: fakeCatalog{snap: snap}, Rates: fakeRates{rate: dec("90000")}, AllowManualPricing: true}
	quote, err = allowed.Quote(context.Background(), req)
	require.NoError(t, err)
	require.True(t, quote.Lines[0].UnitPriceUSD.Equal(dec("1")))
	require.True(t, quote.Lines[0].HasManualPriceOverride)
}

func TestBalanceMixedPayment(t *testing.T) {
	svc := &Service{Rates: fakeRates{rate: dec("90000")}}

	resp, err := svc.Balance(context.Background(), BalanceRequest{
		TotalUSD: dec("35"),
		PaidUSD:  dec("31"),
		PaidLBP:  decimal.Zero,
	})
	require.NoError(t, err)
	require.True(t, resp.TotalLBP.Equal(dec("3150000")), "totalLbp = %s", resp.TotalLBP)
	require.True(t, resp.BalanceUSD.Equal(dec("4")), "balanceUsd = %s", resp.BalanceUSD)
	require.True(t, resp.BalanceLBP.Equal(dec("360000")), "balanceLbp = %s", resp.BalanceLBP)
}

func TestBalanceOverpaymentGoesNegative(t *testing.T) {
	svc := &Service{Rates: fakeRates{rate: dec("90000")}}

	resp, err := svc.Balance(context.Background(), BalanceRequest{
		TotalUSD: dec("35"),
		PaidUSD:  decimal.Zero,
		PaidLBP:  dec("3300000"),
	})
	require.NoError(t, err)
	require.True(t, resp.BalanceUSD.Equal(dec("-1.67")), "balanceUsd = %s", resp.BalanceUSD)
	require.True(t, resp.BalanceLBP.Equal(dec("-150000")), "balanceLbp = %s", resp.BalanceLBP)
}

func TestBalanceHonoursExplicitTotalLBP(t *testing.T) {
	svc := &Service{Rates: fakeRates{rate: dec("90000")}}

	override := dec("3200000")
	resp, err := svc.Balance(context.Background(), BalanceRequest{
		TotalUSD: dec("35"),
		TotalLBP: &override,
		PaidUSD:  dec("35"),
		PaidLBP:  decimal.Zero,
	})
	require.NoError(t, err)
	require.True(t, resp.TotalLBP.Equal(dec("3200000")))
	require.True(t, resp.BalanceUSD.IsZero())
}

func TestServiceNilGuards(t *testing.T) {
	var svc *Service
	_, err := svc.Quote(context.Background(), QuoteRequest{})
	require.Error(t, err)
	_, err = svc.Balance(context.Background(), BalanceRequest{})
	require.Error(t, err)
}
