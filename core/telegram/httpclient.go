package telegram

import (
	"net/http"
	"time"

	"github.com/m3rciful/ratebot/core/netutil"
)

const (
	telegramRetryAttempts = 3
	telegramRetryBackoff  = 2 * time.Second
)

// BuildHTTPClient returns an HTTP client tuned for Telegram API calls.
// Long polling holds requests open, so the response header timeout must
// exceed the poll timeout.
func BuildHTTPClient(longPollTimeout time.Duration) *http.Client {
	return netutil.NewHTTPClient(netutil.ClientOptions{
		Timeout:         longPollTimeout + 20*time.Second,
		ResponseTimeout: longPollTimeout + 5*time.Second,
		Retries:         telegramRetryAttempts,
		Backoff:         telegramRetryBackoff,
	})
}
