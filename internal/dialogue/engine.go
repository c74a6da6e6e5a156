// Package dialogue implements the per-chat conversation that walks a user from
// a date to a currency rate.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/ratebot/core/logger"
	"github.com/m3rciful/ratebot/core/telegram/state"
	"github.com/m3rciful/ratebot/internal/journal"
	"github.com/m3rciful/ratebot/internal/messages"
	"github.com/m3rciful/ratebot/internal/rates"
)

// StartCommand opens the conversation.
const StartCommand = "/start"

const (
	defaultLookupTimeout = 10 * time.Second
	defaultRecordTimeout = 2 * time.Second
)

// Fetcher loads the rate table for a day.
type Fetcher interface {
	Fetch(ctx context.Context, date time.Time) (*rates.Table, error)
}

// Recorder receives one entry per lookup.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

// Options configures an Engine.
type Options struct {
	Rates    Fetcher
	Messages messages.Catalog
	Sessions *state.Store[Session]
	Recorder Recorder

	// StartDate is the earliest accepted day.
	StartDate     time.Time
	DictionaryURL string
	Layouts       []string
	Location      *time.Location
	LookupTimeout time.Duration
	// RecordTimeout bounds each journal write. The write does not inherit
	// the turn's cancellation.
	RecordTimeout time.Duration

	Now func() time.Time
}

// Engine runs the dialogue. It is safe for concurrent use across chats.
type Engine struct {
	rates    Fetcher
	msg      messages.Catalog
	sessions *state.Store[Session]
	recorder Recorder

	start         time.Time
	dictionaryURL string
	dates         DateParser
	loc           *time.Location
	timeout       time.Duration
	recordTimeout time.Duration
	now           func() time.Time
}

// New validates opts and builds an Engine.
func New(opts Options) (*Engine, error) {
	if opts.Rates == nil {
		return nil, errors.New("dialogue: rates fetcher is required")
	}
	if err := opts.Messages.Validate(); err != nil {
		return nil, fmt.Errorf("dialogue: %w", err)
	}
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	sessions := opts.Sessions
	if sessions == nil {
		sessions = state.NewStore[Session]()
	}
	timeout := opts.LookupTimeout
	if timeout <= 0 {
		timeout = defaultLookupTimeout
	}
	recordTimeout := opts.RecordTimeout
	if recordTimeout <= 0 {
		recordTimeout = defaultRecordTimeout
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		rates:         opts.Rates,
		msg:           opts.Messages,
		sessions:      sessions,
		recorder:      opts.Recorder,
		start:         Day(opts.StartDate, loc),
		dictionaryURL: opts.DictionaryURL,
		dates:         NewDateParser(opts.Layouts, loc),
		loc:           loc,
		timeout:       timeout,
		recordTimeout: recordTimeout,
		now:           now,
	}, nil
}

// Session returns the current session of a chat.
func (e *Engine) Session(id int64) (Session, bool) {
	return e.sessions.Get(id)
}

// ActiveSessions reports how many chats are mid-dialogue.
func (e *Engine) ActiveSessions() int {
	return e.sessions.Len()
}

// Handle processes one inbound text for chat id. Session changes are applied
// before it returns, so they are visible to the chat's next turn before any
// reply is delivered. Failures never escape the turn.
func (e *Engine) Handle(ctx context.Context, id int64, text string) Turn {
	input := strings.TrimSpace(text)
	turn := e.classify(ctx, id, input)

	logger.Debug(ctx, "dialogue", "turn",
		slog.Int64("chat_id", id),
		slog.String("step", string(turn.Outcome)),
		slog.Int("replies", len(turn.Replies)),
	)
	return turn
}

func (e *Engine) classify(ctx context.Context, id int64, input string) Turn {
	if strings.EqualFold(input, StartCommand) {
		return e.reply(id, OutcomeWelcome, Reply{Text: e.msg.Welcome + e.msg.InputDate})
	}

	if day, ok := e.dates.Parse(input); ok {
		if !e.inRange(day) {
			text := messages.Render(e.msg.InvalidDate, messages.Vars{
				"start": e.start.Format(rates.DateLayout),
				"today": e.today().Format(rates.DateLayout),
			})
			return e.reply(id, OutcomeInvalidDate, Reply{Text: text + e.msg.InputDate})
		}
		e.sessions.Set(id, Session{Date: day})
		return e.reply(id, OutcomeDateAccepted, e.codePrompt())
	}

	if sess, ok := e.sessions.Get(id); ok {
		if strings.EqualFold(input, e.msg.Yes) {
			if _, kept := e.sessions.Update(id, clearCode); kept {
				return e.reply(id, OutcomeReprompt, e.codePrompt())
			}
		} else if sess.CurrencyCode == "" {
			code := strings.ToUpper(input)
			if claimed, ok := e.claimCode(id, code); ok {
				return e.lookup(ctx, id, claimed)
			}
		}
	}

	if _, had := e.sessions.Remove(id); had {
		return e.reply(id, OutcomeReset, Reply{Text: e.msg.InputDate})
	}
	return e.reply(id, OutcomeDatePrompt, Reply{Text: e.msg.InputDate})
}

func clearCode(cur Session, ok bool) (Session, bool) {
	if !ok {
		return cur, false
	}
	cur.CurrencyCode = ""
	return cur, true
}

// claimCode stores code only if the session is still waiting for one.
func (e *Engine) claimCode(id int64, code string) (Session, bool) {
	claimed := false
	sess, _ := e.sessions.Update(id, func(cur Session, ok bool) (Session, bool) {
		if !ok {
			return cur, false
		}
		if cur.CurrencyCode == "" {
			cur.CurrencyCode = code
			claimed = true
		}
		return cur, true
	})
	return sess, claimed
}

func (e *Engine) lookup(ctx context.Context, id int64, sess Session) Turn {
	lookupCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	table, err := e.rates.Fetch(lookupCtx, sess.Date)
	took := time.Since(start)

	entry := journal.Entry{
		ChatID:     id,
		LookupDate: sess.Date,
		Currency:   sess.CurrencyCode,
		DurationMS: took.Milliseconds(),
	}

	if err != nil {
		e.sessions.Remove(id)
		entry.Outcome = journal.OutcomeFailed
		entry.ErrCode = errorCode(err)
		logger.Error(ctx, "dialogue", "lookup",
			slog.Int64("chat_id", id),
			slog.String("date", sess.Date.Format(rates.DateLayout)),
			slog.String("currency", sess.CurrencyCode),
			slog.String("err_code", entry.ErrCode),
			slog.String("err", err.Error()),
			slog.Duration("duration", logger.RoundMS(took)),
		)
		e.record(ctx, entry)
		return e.reply(id, OutcomeLookupFailed, Reply{Text: e.msg.Failure})
	}

	entry.UpstreamDate = table.Date
	var (
		outcome Outcome
		result  string
	)
	if q, ok := table.Find(sess.CurrencyCode); ok {
		outcome, entry.Outcome = OutcomeRateFound, journal.OutcomeFound
		result = e.formatRate(table, q)
	} else {
		outcome, entry.Outcome = OutcomeRateNotFound, journal.OutcomeNotFound
		result = messages.Render(e.msg.NotFound, messages.Vars{
			"currency": sess.CurrencyCode,
			"date":     table.Date,
		})
	}

	logger.Info(ctx, "dialogue", "lookup",
		slog.Int64("chat_id", id),
		slog.String("date", sess.Date.Format(rates.DateLayout)),
		slog.String("currency", sess.CurrencyCode),
		slog.String("upstream_date", table.Date),
		slog.String("step", string(outcome)),
		slog.Int("quotes", len(table.Quotes)),
		slog.Duration("duration", logger.RoundMS(took)),
	)
	e.record(ctx, entry)

	turn := e.reply(id, outcome,
		Reply{Text: result},
		Reply{
			Text:   messages.Render(e.msg.AnotherCurrency, messages.Vars{"date": table.Date}),
			Choice: &Choice{Options: []string{e.msg.Yes, e.msg.No}},
		},
	)
	turn.Result = result
	return turn
}

func (e *Engine) formatRate(table *rates.Table, q rates.Quote) string {
	header := messages.Render(e.msg.RateHeader, messages.Vars{
		"base":     q.BaseCurrency,
		"currency": q.Currency,
		"date":     table.Date,
	})
	body := messages.Render(e.msg.Rates, messages.Vars{
		"purchase":    q.PurchaseRate.String(),
		"sale":        q.SaleRate.String(),
		"purchase_nb": q.PurchaseRateNB.String(),
		"sale_nb":     q.SaleRateNB.String(),
	})
	return header + body
}

func (e *Engine) record(ctx context.Context, entry journal.Entry) {
	if e.recorder == nil {
		return
	}
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.recordTimeout)
	defer cancel()
	if err := e.recorder.Record(rctx, entry); err != nil {
		logger.Warn(ctx, "journal", "record",
			slog.Int64("chat_id", entry.ChatID),
			slog.String("err", err.Error()),
		)
	}
}

func (e *Engine) codePrompt() Reply {
	r := Reply{Text: e.msg.InputCurrencyCode}
	if e.dictionaryURL != "" {
		r.Link = &LinkButton{Text: e.msg.DictionaryButton, URL: e.dictionaryURL}
	}
	return r
}

func (e *Engine) today() time.Time {
	return Day(e.now(), e.loc)
}

// inRange checks start <= day <= today, both inclusive.
func (e *Engine) inRange(day time.Time) bool {
	return !day.Before(e.start) && !day.After(e.today())
}

func (e *Engine) reply(id int64, outcome Outcome, replies ...Reply) Turn {
	for i := range replies {
		replies[i].ChatID = id
	}
	return Turn{Outcome: outcome, Replies: replies}
}

func errorCode(err error) string {
	var le *rates.LookupError
	if errors.As(err, &le) {
		return le.Code()
	}
	return "lookup"
}
