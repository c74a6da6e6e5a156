package rates

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// NotAvailable is displayed for amounts the upstream omitted.
const NotAvailable = "N/A"

// Amount is an upstream monetary value. It keeps the exact text received so
// replies echo the bank's figures unaltered, alongside the parsed decimal.
type Amount struct {
	raw   string
	value decimal.Decimal
}

// ParseAmount validates s as a decimal number.
func ParseAmount(s string) (Amount, error) {
	v, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return Amount{raw: s, value: v}, nil
}

// UnmarshalJSON accepts JSON numbers, numeric strings and null.
func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*a = Amount{}
		return nil
	}
	raw := string(b)
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
		if raw == "" {
			*a = Amount{}
			return nil
		}
	} else if len(b) == 0 || (b[0] != '-' && (b[0] < '0' || b[0] > '9')) {
		return fmt.Errorf("amount must be a number or numeric string, got %s", b)
	}
	parsed, err := ParseAmount(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Valid reports whether the upstream supplied a value.
func (a Amount) Valid() bool { return a.raw != "" }

// Decimal returns the parsed value; zero when not Valid.
func (a Amount) Decimal() decimal.Decimal { return a.value }

// String returns the upstream text or NotAvailable.
func (a Amount) String() string {
	if a.raw == "" {
		return NotAvailable
	}
	return a.raw
}

// Quote is one currency's rates against the table's base currency.
type Quote struct {
	Currency       string
	BaseCurrency   string
	PurchaseRate   Amount
	SaleRate       Amount
	PurchaseRateNB Amount
	SaleRateNB     Amount
}

// Table is the bank response for a single date. Quotes keep upstream order.
type Table struct {
	Date         string
	Bank         string
	BaseCurrency string
	Quotes       []Quote
}

// Find returns the first quote for code. Duplicates later in the table are ignored.
func (t *Table) Find(code string) (Quote, bool) {
	if t == nil {
		return Quote{}, false
	}
	for _, q := range t.Quotes {
		if q.Currency == code {
			return q, true
		}
	}
	return Quote{}, false
}

type wireQuote struct {
	Currency       string `json:"currency"`
	BaseCurrency   string `json:"baseCurrency"`
	PurchaseRate   Amount `json:"purchaseRate"`
	SaleRate       Amount `json:"saleRate"`
	PurchaseRateNB Amount `json:"purchaseRateNB"`
	SaleRateNB     Amount `json:"saleRateNB"`
}

type wireTable struct {
	Date            *string       `json:"date"`
	Bank            string        `json:"bank"`
	BaseCurrencyLit string        `json:"baseCurrencyLit"`
	ExchangeRate    *[]*wireQuote `json:"exchangeRate"`
}

// decodeTable validates the response shape and converts it into a Table.
func decodeTable(body []byte) (*Table, error) {
	var w *wireTable
	if err := json.Unmarshal(body, &w); err != nil {
		return nil, err
	}
	if w == nil {
		return nil, fmt.Errorf("empty response body")
	}
	if w.Date == nil {
		return nil, fmt.Errorf("missing date")
	}
	if w.ExchangeRate == nil {
		return nil, fmt.Errorf("missing exchangeRate")
	}
	entries := *w.ExchangeRate
	t := &Table{
		Date:         *w.Date,
		Bank:         w.Bank,
		BaseCurrency: w.BaseCurrencyLit,
		Quotes:       make([]Quote, 0, len(entries)),
	}
	for i, e := range entries {
		if e == nil {
			return nil, fmt.Errorf("exchangeRate[%d] is null", i)
		}
		t.Quotes = append(t.Quotes, Quote(*e))
	}
	return t, nil
}
