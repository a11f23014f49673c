package sale

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-pos/internal/currency"
	"github.com/noah-isme/backend-pos/internal/pricing"
)

func testHandler(svc *Service) *Handler {
	return &Handler{Svc: svc, Validate: validator.New(), Logger: zerolog.Nop()}
}

func TestQuoteEndpoint(t *testing.T) {
	prodID := uuid.New()
	svc := &Service{
		Catalog: fakeCatalog{snap: pricing.Snapshot{
			Products: map[uuid.UUID]pricing.ProductSnapshot{prodID: testProduct(prodID, "1.10")},
		}},
		Rates: fakeRates{rate: dec("90000")},
	}
	h := testHandler(svc)

	body := `{"items":[{"productId":"` + prodID.String() + `","quantity":"10"}]}`
	req := httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.Quote(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var payload struct {
		Data struct {
			TotalUSD decimal.Decimal `json:"totalUsd"`
			Lines    []QuoteLine     `json:"lines"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.Len(t, payload.Data.Lines, 1)
	require.True(t, payload.Data.TotalUSD.Equal(dec("11")), "totalUsd = %s", payload.Data.TotalUSD)
}

func TestQuoteEndpointRejectsBadJSON(t *testing.T) {
	h := testHandler(&Service{Catalog: fakeCatalog{}, Rates: fakeRates{rate: dec("90000")}})

	req := httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader("{"))
	rr := httptest.NewRecorder()
	h.Quote(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestQuoteEndpointRejectsEmptyItems(t *testing.T) {
	h := testHandler(&Service{Catalog: fakeCatalog{}, Rates: fakeRates{rate: dec("90000")}})

	req := httptest.NewRequest(http.MethodPost, "/quote", strings.NewReader(`{"items":[]}`))
	rr := httptest.NewRecorder()
	h.Quote(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestBalanceEndpoint(t *testing.T) {
	h := testHandler(&Service{Rates: fakeRates{rate: dec("90000")}})

	body := `{"totalUsd":"35","paidUsd":"31","paidLbp":"0"}`
	req := httptest.NewRequest(http.MethodPost, "/balance", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.Balance(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	var payload struct {
		Data BalanceResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.True(t, payload.Data.BalanceUSD.Equal(dec("4")))
	require.True(t, payload.Data.BalanceLBP.Equal(dec("360000")))
}

func TestMissingRateMapsTo422(t *testing.T) {
	h := testHandler(&Service{Catalog: fakeCatalog{}, Rates: fakeRates{err: currency.ErrRateRequired}})

	body := `{"totalUsd":"35","paidUsd":"0","paidLbp":"0"}`
	req := httptest.NewRequest(http.MethodPost, "/balance", strings.NewReader(body))
	rr := httptest.NewRecorder()
	h.Balance(rr, req)

	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	require.Contains(t, rr.Body.String(), "RATE_REQUIRED")
}
