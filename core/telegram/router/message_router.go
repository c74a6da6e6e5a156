package router

import (
	"time"

	tg "github.com/m3rciful/ratebot/core/telegram"
	"github.com/m3rciful/ratebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

// Conversation consumes inbound text for a chat-scoped dialogue flow.
type Conversation interface {
	HandleText(c tele.Context) error
}

// TextOptions controls fallback behaviour for text updates.
type TextOptions struct {
	// UnknownText handles text when no conversation is wired.
	UnknownText tele.HandlerFunc
}

// TextRoutes builds the handler for plain text updates, including slash
// commands telebot did not match. Non-text updates get no route and are
// dropped by telebot.
func TextRoutes(conv Conversation, opts TextOptions) []tg.Route {
	var handler tele.HandlerFunc
	switch {
	case conv != nil:
		handler = summarized("conversation", conv.HandleText)
	case opts.UnknownText != nil:
		handler = summarized("unknown_text", opts.UnknownText)
	default:
		handler = func(c tele.Context) error {
			logSummary(c, "unknown_text", time.Now(), "skip", nil)
			return nil
		}
	}
	return []tg.Route{{
		Endpoint: tele.OnText,
		Handler:  middleware.RecoverMiddleware(middleware.LoggerMiddleware(handler)),
	}}
}
