package sender

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/ratebot/core/logger"
)

const component = "tg.sender"

var (
	// ErrQueueClosed is returned when enqueue is attempted after dispatcher stop.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the queue is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	QueueSize    int
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 256
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

// Job is a unit of outbound work. Jobs sharing a Key run on the same worker
// in enqueue order, which keeps replies to one chat ordered.
type Job struct {
	Key      int64
	Action   string
	Endpoint string
	// Run must be safe to call again after a failure if retries are enabled.
	Run func() error
}

type queued struct {
	ctx context.Context
	Job
}

// Dispatcher executes outbound Telegram calls asynchronously with retries.
type Dispatcher struct {
	opts   Options
	queues []chan queued

	mu     sync.RWMutex
	closed bool
	once   sync.Once
	wg     sync.WaitGroup

	errs atomic.Uint64
}

// NewDispatcher starts opts.Workers workers. Zero options take defaults.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	perWorker := max(opts.QueueSize/opts.Workers, 1)

	d := &Dispatcher{opts: opts, queues: make([]chan queued, opts.Workers)}
	d.wg.Add(opts.Workers)
	for i := range d.queues {
		d.queues[i] = make(chan queued, perWorker)
		go d.worker(d.queues[i])
	}
	return d
}

// Enqueue schedules the job on the worker owning its key. It never blocks:
// a saturated worker queue yields ErrQueueFull.
func (d *Dispatcher) Enqueue(ctx context.Context, j Job) error {
	if j.Run == nil {
		return errors.New("telegram sender: nil run function")
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}

	select {
	case d.queues[uint64(j.Key)%uint64(len(d.queues))] <- queued{ctx: ctx, Job: j}:
		return nil
	default:
		return ErrQueueFull
	}
}

// ErrorCount returns the number of jobs that failed after all attempts.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.errs.Load()
}

// Pending returns the number of jobs waiting in worker queues.
func (d *Dispatcher) Pending() int {
	n := 0
	for _, q := range d.queues {
		n += len(q)
	}
	return n
}

// Close stops accepting jobs and waits for workers to drain queued jobs.
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		for _, q := range d.queues {
			close(q)
		}
		d.mu.Unlock()
		d.wg.Wait()
	})
}

func (d *Dispatcher) worker(q <-chan queued) {
	defer d.wg.Done()
	for j := range q {
		d.run(j)
	}
}

func (d *Dispatcher) run(j queued) {
	ctx := j.ctx
	if ctx == nil {
		ctx = context.Background()
	}
	runCtx, cancel := context.WithTimeout(ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	logger.Debug(ctx, component, "send.start", j.attrs()...)

	var (
		err   error
		tried int
	)
	for attempt := 1; attempt <= d.opts.MaxRetries+1; attempt++ {
		if err = runCtx.Err(); err != nil {
			break
		}
		tried = attempt
		if err = j.Run(); err == nil {
			attrs := append(j.attrs(), slog.Duration("duration", logger.Took(start)))
			if attempt > 1 {
				logger.Info(ctx, component, "send.retry.success", append(attrs, slog.Int("attempts", attempt))...)
				return
			}
			logger.Debug(ctx, component, "send.success", attrs...)
			return
		}

		delay, retry := retryDelay(err, attempt, d.opts.RetryBackoff)
		if !retry || attempt > d.opts.MaxRetries {
			break
		}
		if deadline, ok := runCtx.Deadline(); ok && time.Until(deadline) < delay {
			break
		}
		logger.Debug(ctx, component, "send.retry.backoff",
			append(j.attrs(),
				slog.Int("attempt", attempt),
				slog.Duration("backoff", delay),
				slog.String("error_kind", classifyError(err)),
			)...,
		)
		if !sleep(runCtx, delay) {
			break
		}
	}

	d.errs.Add(1)
	logger.Error(ctx, component, "send.fail",
		append(j.attrs(),
			slog.String("err", redact(err)),
			slog.String("error_kind", classifyError(err)),
			slog.Int("attempts", tried),
			slog.Duration("duration", logger.Took(start)),
		)...,
	)
}

func (j queued) attrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("action", j.Action)}
	if j.Endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.Endpoint))
	}
	return attrs
}

// sleep waits for d or until ctx ends; it reports whether the full wait elapsed.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
