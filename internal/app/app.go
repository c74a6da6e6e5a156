// Package app wires the rate dialogue into the Telegram runtime.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	corebootstrap "github.com/m3rciful/ratebot/core/bootstrap"
	"github.com/m3rciful/ratebot/core/cmd"
	coreconfig "github.com/m3rciful/ratebot/core/config"
	"github.com/m3rciful/ratebot/core/logger"
	"github.com/m3rciful/ratebot/core/netutil"
	coretelegram "github.com/m3rciful/ratebot/core/telegram"
	"github.com/m3rciful/ratebot/core/telegram/commands"
	tghelpers "github.com/m3rciful/ratebot/core/telegram/helpers"
	"github.com/m3rciful/ratebot/core/telegram/middleware"
	"github.com/m3rciful/ratebot/core/telegram/router"
	tgsender "github.com/m3rciful/ratebot/core/telegram/sender"
	"github.com/m3rciful/ratebot/internal/config"
	"github.com/m3rciful/ratebot/internal/dialogue"
	"github.com/m3rciful/ratebot/internal/journal"
	"github.com/m3rciful/ratebot/internal/messages"
	"github.com/m3rciful/ratebot/internal/ops"
	"github.com/m3rciful/ratebot/internal/rates"

	tele "gopkg.in/telebot.v4"
)

// App holds the services behind one bot process.
type App struct {
	cfg        *config.Config
	engine     *dialogue.Engine
	journal    *journal.Store
	db         *sqlx.DB
	dispatcher *tgsender.Dispatcher
	counters   *middleware.Counters
	ops        *ops.Server

	closeOnce sync.Once
	closeErr  error
}

// Bootstrap adapts New to the shared runner.
func Bootstrap(ctx context.Context, carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	a, err := New(ctx, cfg, corebootstrap.Options{})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// New initializes logging and the optional journal database, then builds the
// dialogue engine. boot may override the bootstrap steps.
func New(ctx context.Context, cfg *config.Config, boot corebootstrap.Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	boot.Config = cfg.CoreConfig()
	boot.Database = cfg.Database
	infra, err := corebootstrap.Run(ctx, boot)
	if err != nil {
		return nil, err
	}

	catalog, err := messages.Load(cfg.Messages.Path)
	if err != nil {
		closeDB(infra.DB)
		return nil, err
	}

	httpClient := netutil.NewHTTPClient(netutil.ClientOptions{
		Timeout:         cfg.LookupTimeout(),
		ResponseTimeout: cfg.LookupTimeout(),
	})

	a := &App{
		cfg:        cfg,
		db:         infra.DB,
		dispatcher: tgsender.NewDispatcher(coretelegram.DispatcherOptionsFrom(cfg.Sender)),
		counters:   &middleware.Counters{},
	}

	opts := dialogue.Options{
		Rates:         rates.NewClient(cfg.Rates.BaseURL, httpClient),
		Messages:      catalog,
		StartDate:     cfg.StartDate(),
		DictionaryURL: cfg.Rates.DictionaryURL,
		Layouts:       cfg.Dialogue.DateLayouts,
		Location:      cfg.Location(),
		LookupTimeout: cfg.LookupTimeout(),
	}
	if infra.DB != nil {
		a.journal = journal.NewStore(infra.DB)
		opts.Recorder = a.journal
	}

	a.engine, err = dialogue.New(opts)
	if err != nil {
		a.dispatcher.Close()
		closeDB(infra.DB)
		return nil, err
	}

	logger.Info(ctx, "app", "bootstrap",
		slog.String("url", cfg.Rates.BaseURL),
		slog.String("date", cfg.StartDate().Format(rates.DateLayout)),
		slog.Bool("journal", a.journal != nil),
		slog.Bool("ops", cfg.Ops.Listen != ""),
	)
	return a, nil
}

// TelegramRunOptions describes routes, middleware and lifecycle hooks.
func (a *App) TelegramRunOptions() (coretelegram.RunOptions, error) {
	conv := conversation{engine: a.engine}

	reg := coretelegram.NewRegistry()
	reg.RegisterCommand(dialogue.StartCommand, commands.Command{
		Description: "Start a new rate lookup",
		Handler:     conv.Start,
	})
	reg.RegisterCommand("/stats", commands.Command{
		Description: "Bot statistics",
		AdminOnly:   true,
		Hidden:      true,
		Handler:     a.handleStats,
	})

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: a.cfg.Telegram.AdminID,
		// Non-admins get the regular dialogue reply.
		OnAdminReject: conv.HandleText,
	})
	routes = append(routes, router.TextRoutes(conv, router.TextOptions{})...)

	return coretelegram.RunOptions{
		Config:      a.CoreConfig(),
		Registry:    reg,
		Dispatcher:  a.dispatcher,
		Middlewares: coretelegram.DefaultMiddlewares(a.CoreConfig(), coretelegram.ChainOptions{Counters: a.counters}),
		Routes:      routes,
		OnStart:     a.onStart,
		OnStop:      a.onStop,
	}, nil
}

// CoreConfig returns the shared part of the configuration.
func (a *App) CoreConfig() *coreconfig.Config { return a.cfg.CoreConfig() }

func (a *App) onStart(ctx context.Context, _ coretelegram.Runtime) error {
	if a.cfg.Ops.Listen == "" {
		return nil
	}
	srv, err := ops.Start(ctx, a.cfg.Ops.Listen, ops.StatsFunc(a.Stats))
	if err != nil {
		return fmt.Errorf("app: ops endpoint: %w", err)
	}
	a.ops = srv
	return nil
}

func (a *App) onStop(ctx context.Context, _ coretelegram.Runtime) error {
	return a.shutdown(ctx)
}

// Close releases the ops endpoint, the dispatcher and the database. It is
// safe to call after the bot stopped.
func (a *App) Close() error {
	return a.shutdown(context.Background())
}

func (a *App) shutdown(ctx context.Context) error {
	a.closeOnce.Do(func() {
		var errs []error
		if a.ops != nil {
			if err := a.ops.Shutdown(context.WithoutCancel(ctx)); err != nil {
				errs = append(errs, fmt.Errorf("ops shutdown: %w", err))
			}
		}
		a.dispatcher.Close()
		if a.db != nil {
			if err := a.db.Close(); err != nil {
				errs = append(errs, fmt.Errorf("db close: %w", err))
			}
		}
		a.closeErr = errors.Join(errs...)
	})
	return a.closeErr
}

// Stats collects live counters for /stats and the ops endpoint.
func (a *App) Stats(ctx context.Context) ops.Stats {
	handled := a.counters.Snapshot()
	st := ops.Stats{
		Sessions:         a.engine.ActiveSessions(),
		DispatcherErrors: a.dispatcher.ErrorCount(),
		Queued:           a.dispatcher.Pending(),
		Updates:          handled.Updates,
		HandlerErrors:    handled.Failed,
	}
	if a.journal != nil {
		qctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		n, err := a.journal.Count(qctx)
		if err != nil {
			logger.Warn(ctx, "journal", "count", slog.String("err", err.Error()))
		} else {
			st.Lookups = &n
		}
	}
	return st
}

func (a *App) handleStats(c tele.Context) error {
	st := a.Stats(tghelpers.BuildContext(c))
	text := fmt.Sprintf("Active sessions: %d\nUpdates handled: %d (%d failed)\nDispatcher errors: %d",
		st.Sessions, st.Updates, st.HandlerErrors, st.DispatcherErrors)
	if st.Lookups != nil {
		text += fmt.Sprintf("\nLookups recorded: %d", *st.Lookups)
	}
	middleware.MarkReplies(c, 1, false)
	return tghelpers.SendText(c, text)
}

func closeDB(db *sqlx.DB) {
	if db != nil {
		_ = db.Close()
	}
}
