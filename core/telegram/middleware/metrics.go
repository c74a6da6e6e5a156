package middleware

import (
	"sync/atomic"

	tele "gopkg.in/telebot.v4"
)

const (
	repliesKey  = "replies"
	keyboardKey = "kb"
)

// Counters aggregates handler activity across all chats.
type Counters struct {
	updates atomic.Uint64
	failed  atomic.Uint64
	replies atomic.Uint64
}

// CounterSnapshot is a point-in-time copy of Counters.
type CounterSnapshot struct {
	Updates uint64
	Failed  uint64
	Replies uint64
}

// Middleware counts every handled update, failed handlers and the replies
// handlers report through MarkReplies.
func (m *Counters) Middleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		c.Set(repliesKey, 0)
		c.Set(keyboardKey, false)

		err := next(c)

		m.updates.Add(1)
		if err != nil {
			m.failed.Add(1)
		}
		if n, _ := Replies(c); n > 0 {
			m.replies.Add(uint64(n))
		}
		return err
	}
}

// Snapshot reads the current counter values.
func (m *Counters) Snapshot() CounterSnapshot {
	if m == nil {
		return CounterSnapshot{}
	}
	return CounterSnapshot{
		Updates: m.updates.Load(),
		Failed:  m.failed.Load(),
		Replies: m.replies.Load(),
	}
}

// MarkReplies records that a handler queued n replies. Delivery happens later
// on the sender, so handlers report what they queued rather than what was sent.
func MarkReplies(c tele.Context, n int, keyboard bool) {
	if c == nil || n <= 0 {
		return
	}
	cur, kb := Replies(c)
	c.Set(repliesKey, cur+n)
	if keyboard || kb {
		c.Set(keyboardKey, true)
	}
}

// Replies reads the reply count and keyboard flag recorded for the update.
func Replies(c tele.Context) (int, bool) {
	n, _ := c.Get(repliesKey).(int)
	kb, _ := c.Get(keyboardKey).(bool)
	return n, kb
}
