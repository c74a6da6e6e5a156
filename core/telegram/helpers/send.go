package helpers

import (
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/m3rciful/ratebot/core/logger"
	"github.com/m3rciful/ratebot/core/telegram/sender"

	tele "gopkg.in/telebot.v4"
)

var dispatcher atomic.Pointer[sender.Dispatcher]

// SetDispatcher routes the send helpers through d. With nil they send inline.
func SetDispatcher(d *sender.Dispatcher) {
	dispatcher.Store(d)
}

// Outgoing is one message of an ordered batch.
type Outgoing struct {
	Text string
	Opts *tele.SendOptions
}

func chatKey(c tele.Context) int64 {
	if chat := c.Chat(); chat != nil {
		return chat.ID
	}
	if user := c.Sender(); user != nil {
		return user.ID
	}
	return 0
}

func sendAsync(c tele.Context, action, endpoint string, run func() error) error {
	disp := dispatcher.Load()
	if disp == nil {
		return run()
	}

	ctx := BuildContext(c)
	job := sender.Job{
		Key:      chatKey(c),
		Action:   action,
		Endpoint: endpoint,
		Run:      run,
	}
	if err := disp.Enqueue(ctx, job); err != nil {
		if errors.Is(err, sender.ErrQueueFull) || errors.Is(err, sender.ErrQueueClosed) {
			logger.Warn(ctx, "tg.sender", "queue.fallback",
				slog.String("action", action),
				slog.String("endpoint", endpoint),
				slog.String("err", err.Error()),
			)
			return run()
		}
		return err
	}
	return nil
}

// SendText sends plain text to the current chat.
func SendText(c tele.Context, text string, opts ...*tele.SendOptions) error {
	m := Outgoing{Text: text}
	if len(opts) > 0 {
		m.Opts = opts[0]
	}
	return sendAsync(c, "send.text", "sendMessage", func() error { return m.send(c) })
}

// SendSequence delivers msgs in order as a single dispatcher job. A retried
// job resumes after the last message that was delivered.
func SendSequence(c tele.Context, msgs []Outgoing) error {
	if len(msgs) == 0 {
		return nil
	}
	sent := 0
	return sendAsync(c, "send.sequence", "sendMessage", func() error {
		for ; sent < len(msgs); sent++ {
			if err := msgs[sent].send(c); err != nil {
				return err
			}
		}
		return nil
	})
}

func (m Outgoing) send(c tele.Context) error {
	if m.Opts == nil {
		return c.Send(m.Text)
	}
	return c.Send(m.Text, m.Opts)
}
