// Package rates fetches historical exchange-rate tables from the PrivatBank
// exchange_rates API.
package rates

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/m3rciful/ratebot/core/logger"
	"github.com/m3rciful/ratebot/core/netutil"
)

const (
	// DateLayout is the request date format agreed with the upstream.
	DateLayout = "02.01.2006"
	// DefaultBaseURL is the PrivatBank archive endpoint; the date is appended.
	DefaultBaseURL = "https://api.privatbank.ua/p24api/exchange_rates?json&date="

	maxBodyBytes = 4 << 20
)

// Client performs single-attempt lookups against the bank API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for baseURL. A nil httpClient gets a netutil
// client without retries, since failed lookups are surfaced immediately.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = netutil.NewHTTPClient(netutil.ClientOptions{
			Timeout:         15 * time.Second,
			ResponseTimeout: 10 * time.Second,
		})
	}
	return &Client{baseURL: baseURL, http: httpClient}
}

// Fetch returns the rate table for date. Any failure is a *LookupError.
func (c *Client) Fetch(ctx context.Context, date time.Time) (*Table, error) {
	url := c.baseURL + date.Format(DateLayout)
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &LookupError{Kind: KindTransport, Date: date, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		logger.Debug(ctx, "rates", "fetch.transport",
			slog.String("date", date.Format(DateLayout)),
			slog.String("error_kind", netutil.Classify(err)),
			slog.Duration("duration", logger.Took(start)),
		)
		return nil, &LookupError{Kind: KindTransport, Date: date, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &LookupError{Kind: KindStatus, Date: date, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &LookupError{Kind: KindTransport, Date: date, Status: resp.StatusCode, Err: err}
	}

	table, err := decodeTable(body)
	if err != nil {
		return nil, &LookupError{
			Kind:   KindDecode,
			Date:   date,
			Status: resp.StatusCode,
			Err:    fmt.Errorf("decode exchange rates: %w", err),
		}
	}

	logger.Debug(ctx, "rates", "fetch",
		slog.String("date", date.Format(DateLayout)),
		slog.String("upstream_date", table.Date),
		slog.Int("http_code", resp.StatusCode),
		slog.Int("quotes", len(table.Quotes)),
		slog.Duration("duration", logger.Took(start)),
	)
	return table, nil
}
