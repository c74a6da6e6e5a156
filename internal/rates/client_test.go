package rates

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleBody = `{
  "date": "14.03.2023",
  "bank": "PB",
  "baseCurrency": 980,
  "baseCurrencyLit": "UAH",
  "exchangeRate": [
    {"baseCurrency": "UAH", "saleRateNB": 36.5686, "purchaseRateNB": 36.5686},
    {"baseCurrency": "UAH", "currency": "USD", "saleRateNB": 36.5686, "purchaseRateNB": 36.5686, "saleRate": 37.4, "purchaseRate": 36.9},
    {"baseCurrency": "UAH", "currency": "EUR", "saleRateNB": "39.1090", "purchaseRateNB": "39.1090", "saleRate": "40.2500", "purchaseRate": "39.2000"},
    {"baseCurrency": "UAH", "currency": "PLN", "saleRateNB": 8.3212, "purchaseRateNB": 8.3212},
    {"baseCurrency": "UAH", "currency": "USD", "saleRateNB": 1, "purchaseRateNB": 1}
  ]
}`

func newUpstream(t *testing.T, status int, body string) (*httptest.Server, *string) {
	t.Helper()
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.RequestURI()
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &path
}

var march14 = time.Date(2023, time.March, 14, 0, 0, 0, 0, time.UTC)

func TestFetchParsesTable(t *testing.T) {
	srv, path := newUpstream(t, http.StatusOK, sampleBody)
	c := NewClient(srv.URL+"/p24api/exchange_rates?json&date=", nil)

	table, err := c.Fetch(context.Background(), march14)
	require.NoError(t, err)
	assert.Equal(t, "/p24api/exchange_rates?json&date=14.03.2023", *path)

	assert.Equal(t, "14.03.2023", table.Date)
	assert.Equal(t, "PB", table.Bank)
	assert.Equal(t, "UAH", table.BaseCurrency)
	require.Len(t, table.Quotes, 5)

	usd, ok := table.Find("USD")
	require.True(t, ok)
	assert.Equal(t, "36.9", usd.PurchaseRate.String())
	assert.Equal(t, "37.4", usd.SaleRate.String())
	assert.Equal(t, "36.5686", usd.SaleRateNB.String())
	assert.Equal(t, "UAH", usd.BaseCurrency)

	eur, ok := table.Find("EUR")
	require.True(t, ok)
	assert.Equal(t, "40.2500", eur.SaleRate.String())
	assert.True(t, eur.SaleRate.Decimal().Equal(decimal.RequireFromString("40.25")))

	pln, ok := table.Find("PLN")
	require.True(t, ok)
	assert.False(t, pln.PurchaseRate.Valid())
	assert.Equal(t, NotAvailable, pln.PurchaseRate.String())

	_, ok = table.Find("XYZ")
	assert.False(t, ok)
	_, ok = table.Find("usd")
	assert.False(t, ok)
}

func TestFetchFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
		kind   Kind
	}{
		{"server error", http.StatusInternalServerError, "oops", KindStatus},
		{"not found", http.StatusNotFound, "", KindStatus},
		{"not json", http.StatusOK, "<html>", KindDecode},
		{"null body", http.StatusOK, "null", KindDecode},
		{"array body", http.StatusOK, "[]", KindDecode},
		{"missing date", http.StatusOK, `{"exchangeRate": []}`, KindDecode},
		{"missing rates", http.StatusOK, `{"date": "14.03.2023"}`, KindDecode},
		{"null entry", http.StatusOK, `{"date": "14.03.2023", "exchangeRate": [null]}`, KindDecode},
		{"scalar entry", http.StatusOK, `{"date": "14.03.2023", "exchangeRate": [1]}`, KindDecode},
		{"bad amount", http.StatusOK, `{"date": "14.03.2023", "exchangeRate": [{"currency": "USD", "saleRate": "abc"}]}`, KindDecode},
		{"bool amount", http.StatusOK, `{"date": "14.03.2023", "exchangeRate": [{"currency": "USD", "saleRate": true}]}`, KindDecode},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, _ := newUpstream(t, tc.status, tc.body)
			_, err := NewClient(srv.URL+"/?date=", nil).Fetch(context.Background(), march14)
			require.Error(t, err)

			var le *LookupError
			require.True(t, errors.As(err, &le))
			assert.Equal(t, tc.kind, le.Kind)
			assert.Equal(t, march14, le.Date)
			assert.Equal(t, "rates_"+string(tc.kind), le.Code())
			if tc.kind == KindStatus {
				assert.Equal(t, tc.status, le.Status)
				assert.Contains(t, err.Error(), "14.03.2023")
			}
		})
	}
}

func TestFetchTransportFailureIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if hj, ok := w.(http.Hijacker); ok {
			if conn, _, err := hj.Hijack(); err == nil {
				_ = conn.Close()
			}
		}
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL+"/?date=", nil).Fetch(context.Background(), march14)
	var le *LookupError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, KindTransport, le.Kind)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchHonorsContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := NewClient(srv.URL+"/?date=", nil).Fetch(ctx, march14)
	var le *LookupError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, KindTransport, le.Kind)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAmountUnmarshal(t *testing.T) {
	var a Amount
	require.NoError(t, a.UnmarshalJSON([]byte(`26.0000`)))
	assert.Equal(t, "26.0000", a.String())
	require.NoError(t, a.UnmarshalJSON([]byte(`"-0.5"`)))
	assert.Equal(t, "-0.5", a.String())
	require.NoError(t, a.UnmarshalJSON([]byte(`null`)))
	assert.False(t, a.Valid())
	require.NoError(t, a.UnmarshalJSON([]byte(`""`)))
	assert.Equal(t, NotAvailable, a.String())
	assert.Error(t, a.UnmarshalJSON([]byte(`{}`)))
	assert.Error(t, a.UnmarshalJSON([]byte(`"1,5"`)))
}
