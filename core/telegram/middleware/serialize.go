package middleware

import (
	"sync"

	tele "gopkg.in/telebot.v4"
)

type chatLock struct {
	mu   sync.Mutex
	refs int
}

type chatLocks struct {
	mu    sync.Mutex
	locks map[int64]*chatLock
}

func (l *chatLocks) acquire(id int64) *chatLock {
	l.mu.Lock()
	lk, ok := l.locks[id]
	if !ok {
		lk = &chatLock{}
		l.locks[id] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
	return lk
}

func (l *chatLocks) release(id int64, lk *chatLock) {
	lk.mu.Unlock()

	l.mu.Lock()
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, id)
	}
	l.mu.Unlock()
}

// SerializeChat returns a middleware that runs at most one handler per chat at
// a time. Telebot dispatches updates concurrently; dialogue flows rely on the
// turns of one chat being processed in arrival order.
func SerializeChat() tele.MiddlewareFunc {
	locks := &chatLocks{locks: make(map[int64]*chatLock)}
	return func(next tele.HandlerFunc) tele.HandlerFunc {
		return func(c tele.Context) error {
			chat := c.Chat()
			if chat == nil {
				return next(c)
			}
			lk := locks.acquire(chat.ID)
			defer locks.release(chat.ID, lk)
			return next(c)
		}
	}
}
