package app

import (
	tghelpers "github.com/m3rciful/ratebot/core/telegram/helpers"
	"github.com/m3rciful/ratebot/core/telegram/keyboard"
	"github.com/m3rciful/ratebot/core/telegram/middleware"
	"github.com/m3rciful/ratebot/internal/dialogue"

	tele "gopkg.in/telebot.v4"
)

// conversation feeds chat text into the dialogue engine and queues its replies.
type conversation struct {
	engine *dialogue.Engine
}

// HandleText runs one dialogue turn for the message text.
func (cv conversation) HandleText(c tele.Context) error {
	return cv.run(c, c.Text())
}

// Start handles /start, including deep-link payloads and @bot suffixes.
func (cv conversation) Start(c tele.Context) error {
	return cv.run(c, dialogue.StartCommand)
}

// run handles one turn. All replies go out as a single ordered job.
func (cv conversation) run(c tele.Context, text string) error {
	chat := c.Chat()
	if chat == nil {
		return nil
	}
	ctx := tghelpers.BuildContext(c)
	turn := cv.engine.Handle(ctx, chat.ID, text)
	c.Set("step", string(turn.Outcome))
	out := outgoing(turn.Replies)
	middleware.MarkReplies(c, len(out), hasMarkup(out))
	return tghelpers.SendSequence(c, out)
}

func outgoing(replies []dialogue.Reply) []tghelpers.Outgoing {
	out := make([]tghelpers.Outgoing, 0, len(replies))
	for _, r := range replies {
		opts := &tele.SendOptions{ParseMode: tele.ModeMarkdown}
		switch {
		case r.Link != nil:
			opts.ReplyMarkup = keyboard.URLButton(r.Link.Text, r.Link.URL)
		case r.Choice != nil:
			opts.ReplyMarkup = keyboard.OneTimeButtons(r.Choice.Options)
		}
		out = append(out, tghelpers.Outgoing{Text: r.Text, Opts: opts})
	}
	return out
}

func hasMarkup(out []tghelpers.Outgoing) bool {
	for _, o := range out {
		if o.Opts != nil && o.Opts.ReplyMarkup != nil {
			return true
		}
	}
	return false
}
