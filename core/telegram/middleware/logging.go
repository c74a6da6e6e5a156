package middleware

import (
	"log/slog"
	"sync"
	"time"

	"github.com/m3rciful/ratebot/core/logger"
	tghelpers "github.com/m3rciful/ratebot/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// updateWindow remembers update ids logged during the last ttl.
type updateWindow struct {
	mu    sync.Mutex
	ttl   time.Duration
	seen  map[int]time.Time
	sweep time.Time
}

func newUpdateWindow(ttl time.Duration) *updateWindow {
	return &updateWindow{ttl: ttl, seen: make(map[int]time.Time)}
}

// firstSighting records id and reports whether it was not seen within ttl.
func (w *updateWindow) firstSighting(id int, now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if now.Sub(w.sweep) > w.ttl {
		for k, at := range w.seen {
			if now.Sub(at) > w.ttl {
				delete(w.seen, k)
			}
		}
		w.sweep = now
	}
	if at, ok := w.seen[id]; ok && now.Sub(at) <= w.ttl {
		return false
	}
	w.seen[id] = now
	return true
}

// received is shared so wrapping the chain and single routes does not log an
// update twice.
var received = newUpdateWindow(10 * time.Second)

// LoggerMiddleware attaches the rid and logging context to the update and
// logs a sampled update.received line once per update.
func LoggerMiddleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)
		updateID, _, _ := tghelpers.UpdateIDs(c)
		if logger.ShouldSampleDebug() && received.firstSighting(updateID, time.Now()) {
			logger.LogEvent(ctx, logger.Component("tg"), slog.LevelDebug, "update.received", receiptAttrs(c)...)
		}
		return next(c)
	}
}

func receiptAttrs(c tele.Context) []slog.Attr {
	attrs := []slog.Attr{slog.String("status", "ok")}
	if chat := c.Chat(); chat != nil {
		attrs = append(attrs, slog.String("chat_type", string(chat.Type)))
	}
	if user := c.Sender(); user != nil {
		if user.Username != "" {
			attrs = append(attrs, slog.String("username", logger.SanitizeLimit(user.Username, 64)))
		}
		if user.LanguageCode != "" {
			attrs = append(attrs, slog.String("lang", user.LanguageCode))
		}
	}
	if c.Update().Message != nil {
		if text := c.Text(); text != "" {
			attrs = append(attrs, slog.String("payload", logger.SanitizeLimit(text, 256)))
		} else {
			attrs = append(attrs, slog.String("kind", "non_text"))
		}
	}
	return attrs
}
