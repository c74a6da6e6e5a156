package app

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	corebootstrap "github.com/m3rciful/ratebot/core/bootstrap"
	coreconfig "github.com/m3rciful/ratebot/core/config"
	coretelegram "github.com/m3rciful/ratebot/core/telegram"
	tghelpers "github.com/m3rciful/ratebot/core/telegram/helpers"
	"github.com/m3rciful/ratebot/internal/config"
	"github.com/m3rciful/ratebot/internal/dialogue"
	"github.com/m3rciful/ratebot/internal/messages"

	tele "gopkg.in/telebot.v4"
)

const upstreamBody = `{"date":"14.03.2023","bank":"PB","baseCurrency":980,"baseCurrencyLit":"UAH","exchangeRate":[
{"baseCurrency":"UAH","currency":"USD","saleRateNB":36.5686,"purchaseRateNB":36.5686,"saleRate":37.45,"purchaseRate":36.9}]}`

type sentMessage struct {
	text string
	opts *tele.SendOptions
}

type chatContext struct {
	tele.Context
	text  string
	chat  *tele.Chat
	user  *tele.User
	store map[string]any

	mu   sync.Mutex
	sent []sentMessage
}

func newChatContext(chatID int64, text string) *chatContext {
	return &chatContext{
		text:  text,
		chat:  &tele.Chat{ID: chatID, Type: tele.ChatPrivate},
		user:  &tele.User{ID: chatID},
		store: map[string]any{},
	}
}

func (c *chatContext) Text() string          { return c.text }
func (c *chatContext) Chat() *tele.Chat      { return c.chat }
func (c *chatContext) Sender() *tele.User    { return c.user }
func (c *chatContext) Update() tele.Update   { return tele.Update{ID: 7} }
func (c *chatContext) Get(key string) any    { return c.store[key] }
func (c *chatContext) Set(key string, v any) { c.store[key] = v }

func (c *chatContext) Send(what interface{}, opts ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	msg := sentMessage{text: what.(string)}
	for _, o := range opts {
		if so, ok := o.(*tele.SendOptions); ok {
			msg.opts = so
		}
	}
	c.sent = append(c.sent, msg)
	return nil
}

func newTestApp(t *testing.T, mutate func(*config.Config)) *App {
	t.Helper()
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, upstreamBody)
	}))
	t.Cleanup(upstream.Close)

	cfg := &config.Config{}
	cfg.Telegram.Token = "123:abc"
	cfg.Telegram.AdminID = 99
	cfg.Rates.BaseURL = upstream.URL + "/?date="
	if mutate != nil {
		mutate(cfg)
	}
	require.NoError(t, config.Normalize(cfg))

	a, err := New(context.Background(), cfg, corebootstrap.Options{
		LoggerInit: func(*coreconfig.Config) error { return nil },
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	tghelpers.SetDispatcher(nil)
	return a
}

func TestOutgoingMapsAffordances(t *testing.T) {
	out := outgoing([]dialogue.Reply{
		{Text: "plain"},
		{Text: "link", Link: &dialogue.LinkButton{Text: "Codes", URL: "https://example.com"}},
		{Text: "choice", Choice: &dialogue.Choice{Options: []string{"Yes", "No"}}},
	})
	require.Len(t, out, 3)
	for _, o := range out {
		assert.Equal(t, tele.ModeMarkdown, o.Opts.ParseMode)
	}
	assert.Nil(t, out[0].Opts.ReplyMarkup)

	link := out[1].Opts.ReplyMarkup
	require.NotNil(t, link)
	require.Len(t, link.InlineKeyboard, 1)
	assert.Equal(t, "https://example.com", link.InlineKeyboard[0][0].URL)

	choice := out[2].Opts.ReplyMarkup
	require.NotNil(t, choice)
	assert.True(t, choice.OneTimeKeyboard)
	assert.True(t, choice.ResizeKeyboard)
	require.Len(t, choice.ReplyKeyboard, 1)
	assert.Equal(t, "Yes", choice.ReplyKeyboard[0][0].Text)
	assert.Equal(t, "No", choice.ReplyKeyboard[0][1].Text)
}

func TestConversationFlow(t *testing.T) {
	a := newTestApp(t, nil)
	conv := conversation{engine: a.engine}
	cat := messages.Default()

	c := newChatContext(5, "/start@ratebot")
	require.NoError(t, conv.Start(c))
	require.Len(t, c.sent, 1)
	assert.Equal(t, cat.Welcome+cat.InputDate, c.sent[0].text)
	assert.Equal(t, "welcome", c.Get("step"))

	c = newChatContext(5, "14.03.2023")
	require.NoError(t, conv.HandleText(c))
	require.Len(t, c.sent, 1)
	assert.Equal(t, cat.InputCurrencyCode, c.sent[0].text)
	require.NotNil(t, c.sent[0].opts.ReplyMarkup)
	assert.Equal(t, config.DefaultDictionaryURL, c.sent[0].opts.ReplyMarkup.InlineKeyboard[0][0].URL)

	c = newChatContext(5, "usd")
	require.NoError(t, conv.HandleText(c))
	require.Len(t, c.sent, 2)
	assert.Contains(t, c.sent[0].text, "36.9")
	assert.Contains(t, c.sent[0].text, "37.45")
	assert.True(t, c.sent[1].opts.ReplyMarkup.OneTimeKeyboard)
	assert.Equal(t, "rate_found", c.Get("step"))
}

func TestTelegramRunOptions(t *testing.T) {
	a := newTestApp(t, nil)
	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)

	assert.Same(t, a.dispatcher, opts.Dispatcher)
	assert.Same(t, a.CoreConfig(), opts.Config)
	require.Len(t, opts.Routes, 3)

	endpoints := map[any]bool{}
	for _, r := range opts.Routes {
		endpoints[r.Endpoint] = true
	}
	assert.True(t, endpoints["/start"])
	assert.True(t, endpoints["/stats"])
	assert.True(t, endpoints[tele.OnText])

	visible := opts.Registry.ListCommands(true)
	require.Len(t, visible, 1)
	assert.Equal(t, "start", visible[0].Text)

	var names []string
	for _, mw := range opts.Middlewares {
		names = append(names, mw.Name)
	}
	assert.Contains(t, names, "serialize_chat")
}

func TestStatsCommand(t *testing.T) {
	a := newTestApp(t, nil)
	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)

	var stats coretelegram.Route
	for _, r := range opts.Routes {
		if r.Endpoint == "/stats" {
			stats = r
		}
	}
	require.NotNil(t, stats.Handler)

	admin := newChatContext(99, "/stats")
	require.NoError(t, stats.Handler(admin))
	require.Len(t, admin.sent, 1)
	assert.Contains(t, admin.sent[0].text, "Active sessions: 0")
	assert.NotContains(t, admin.sent[0].text, "Lookups")

	stranger := newChatContext(5, "/stats")
	require.NoError(t, stats.Handler(stranger))
	require.Len(t, stranger.sent, 1)
	assert.Equal(t, messages.Default().InputDate, stranger.sent[0].text)
}

func TestOpsLifecycle(t *testing.T) {
	a := newTestApp(t, func(cfg *config.Config) { cfg.Ops.Listen = "127.0.0.1:0" })
	ctx := context.Background()

	require.NoError(t, a.onStart(ctx, coretelegram.Runtime{}))
	require.NotNil(t, a.ops)

	resp, err := http.Get("http://" + a.ops.Addr() + "/stats")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), `"sessions":0`)
	assert.Contains(t, string(body), `"queued":0`)

	require.NoError(t, a.onStop(ctx, coretelegram.Runtime{}))
	assert.NoError(t, a.Close(), "close after stop is a no-op")
}

func TestBootstrapRejectsForeignConfig(t *testing.T) {
	_, err := Bootstrap(context.Background(), foreignConfig{})
	assert.Error(t, err)
}

type foreignConfig struct{}

func (foreignConfig) CoreConfig() *coreconfig.Config { return &coreconfig.Config{} }
