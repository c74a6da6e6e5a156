package sender

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

func TestDispatcher_KeepsOrderPerKey(t *testing.T) {
	d := NewDispatcher(Options{Workers: 3, QueueSize: 300})

	var (
		mu  sync.Mutex
		got = map[int64][]int{}
	)
	for i := 0; i < 50; i++ {
		for _, key := range []int64{1, 2, -3} {
			key, i := key, i
			err := d.Enqueue(context.Background(), Job{
				Key:    key,
				Action: "send.text",
				Run: func() error {
					mu.Lock()
					got[key] = append(got[key], i)
					mu.Unlock()
					return nil
				},
			})
			require.NoError(t, err)
		}
	}
	d.Close()

	for _, key := range []int64{1, 2, -3} {
		seq := got[key]
		require.Len(t, seq, 50)
		for i, v := range seq {
			assert.Equal(t, i, v, "key %d out of order", key)
		}
	}
	assert.Zero(t, d.ErrorCount())
}

func TestDispatcher_CountsFailures(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})

	calls := 0
	err := d.Enqueue(context.Background(), Job{
		Key: 9,
		Run: func() error {
			calls++
			return errors.New("bad request (400)")
		},
	})
	require.NoError(t, err)
	d.Close()

	assert.Equal(t, 1, calls, "non-network errors are not retried")
	assert.Equal(t, uint64(1), d.ErrorCount())
}

func TestDispatcher_RejectsAfterClose(t *testing.T) {
	d := NewDispatcher(Options{})
	d.Close()

	err := d.Enqueue(context.Background(), Job{Run: func() error { return nil }})
	assert.ErrorIs(t, err, ErrQueueClosed)

	open := NewDispatcher(Options{})
	defer open.Close()
	err = open.Enqueue(context.Background(), Job{})
	assert.Error(t, err)
}

func TestDispatcher_RetriesServerErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})

	var calls int
	err := d.Enqueue(context.Background(), Job{
		Key: 4,
		Run: func() error {
			calls++
			if calls < 3 {
				return errors.New("telegram: bad gateway (502)")
			}
			return nil
		},
	})
	require.NoError(t, err)
	d.Close()

	assert.Equal(t, 3, calls)
	assert.Zero(t, d.ErrorCount())
	assert.Zero(t, d.Pending())
}

func TestDispatcher_GivesUpPastMaxDuration(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 3, RetryBackoff: time.Second, MaxDuration: 50 * time.Millisecond})

	var calls int
	err := d.Enqueue(context.Background(), Job{
		Key: 1,
		Run: func() error {
			calls++
			return errors.New("telegram: internal (500)")
		},
	})
	require.NoError(t, err)
	d.Close()

	assert.Equal(t, 1, calls)
	assert.Equal(t, uint64(1), d.ErrorCount())
}

func TestRetryDelay(t *testing.T) {
	delay, ok := retryDelay(tele.FloodError{RetryAfter: 3}, 1, time.Second)
	assert.True(t, ok)
	assert.Equal(t, 3*time.Second, delay)

	delay, ok = retryDelay(errors.New("telegram: internal (500)"), 2, time.Second)
	assert.True(t, ok)
	assert.Equal(t, 2*time.Second, delay)

	_, ok = retryDelay(errors.New("telegram: chat not found (400)"), 1, time.Second)
	assert.False(t, ok)
}

func TestClassifyError(t *testing.T) {
	assert.Equal(t, "timeout", classifyError(context.DeadlineExceeded))
	assert.Equal(t, "http_4xx", classifyError(errors.New("telegram: chat not found (400)")))
	assert.Equal(t, "http_5xx", classifyError(errors.New("telegram: internal (502)")))
	assert.Equal(t, "flood", classifyError(tele.FloodError{RetryAfter: 1}))
	assert.Equal(t, "unknown", classifyError(errors.New("whatever")))
	assert.Equal(t, "unknown", classifyError(errors.New("odd (x)")))
}

func TestRedact(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123456:AAbb-cc_DD/sendMessage": EOF`)
	assert.NotContains(t, redact(err), "AAbb")
	assert.Contains(t, redact(err), "bot<redacted>")
	assert.Empty(t, redact(nil))
}
