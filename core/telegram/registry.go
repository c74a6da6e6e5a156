package telegram

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"github.com/m3rciful/ratebot/core/logger"
	"github.com/m3rciful/ratebot/core/telegram/commands"

	tele "gopkg.in/telebot.v4"
)

// Registry holds the bot commands, keyed by their "/name" endpoint.
type Registry struct {
	commands map[string]commands.Command
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{commands: make(map[string]commands.Command)}
}

// RegisterCommand adds cmd under name. Invalid or duplicate entries are
// logged and skipped.
func (r *Registry) RegisterCommand(name string, cmd commands.Command) {
	if r == nil {
		return
	}
	if cause := r.rejectCause(name, cmd); cause != "" {
		logger.Warn(context.Background(), "tg.wire", "register.command.skip",
			slog.String("name", name),
			slog.String("cause", cause),
		)
		return
	}
	r.commands[name] = cmd
}

func (r *Registry) rejectCause(name string, cmd commands.Command) string {
	switch {
	case cmd.Handler == nil || cmd.Description == "":
		return "invalid"
	case !strings.HasPrefix(name, "/") || len(name) < 2:
		return "no_slash_prefix"
	}
	if _, exists := r.commands[name]; exists {
		return "duplicate"
	}
	return ""
}

// ListCommands returns the menu entries sorted by name. With visibleOnly,
// hidden and admin-only commands are left out. Menu entries carry no slash.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	var list []tele.Command
	for name, meta := range r.commands {
		if visibleOnly && (meta.Hidden || meta.AdminOnly) {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: meta.Description})
	}
	slices.SortFunc(list, func(a, b tele.Command) int { return strings.Compare(a.Text, b.Text) })
	return list
}

// Commands returns all registered commands.
func (r *Registry) Commands() map[string]commands.Command {
	return r.commands
}

// SetupCommands publishes the visible commands in the Telegram command menu.
func SetupCommands(bot *tele.Bot, reg *Registry) {
	if bot == nil || reg == nil {
		return
	}
	list := reg.ListCommands(true)
	if len(list) == 0 {
		return
	}
	if err := bot.SetCommands(list); err != nil {
		logger.Error(context.Background(), "tg.wire", "register.commands.set_failed",
			slog.String("err", logger.SanitizeLimit(err.Error(), 256)),
		)
	}
}
