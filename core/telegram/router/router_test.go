package router

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tg "github.com/m3rciful/ratebot/core/telegram"
	"github.com/m3rciful/ratebot/core/telegram/commands"
	"github.com/m3rciful/ratebot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

type fakeContext struct {
	tele.Context
	text   string
	chat   *tele.Chat
	sender *tele.User
	store  map[string]any
}

func newFakeContext(text string, chatID, userID int64) *fakeContext {
	return &fakeContext{
		text:   text,
		chat:   &tele.Chat{ID: chatID, Type: tele.ChatPrivate},
		sender: &tele.User{ID: userID},
		store:  map[string]any{},
	}
}

func (f *fakeContext) Text() string        { return f.text }
func (f *fakeContext) Chat() *tele.Chat    { return f.chat }
func (f *fakeContext) Sender() *tele.User  { return f.sender }
func (f *fakeContext) Update() tele.Update { return tele.Update{ID: 1} }
func (f *fakeContext) Get(key string) any  { return f.store[key] }
func (f *fakeContext) Set(key string, v any) {
	f.store[key] = v
}

type convFunc func(c tele.Context) error

func (f convFunc) HandleText(c tele.Context) error { return f(c) }

type codedError struct{}

func (codedError) Error() string { return "coded" }
func (codedError) Code() string  { return "rates transport" }

type plainError struct{}

func (*plainError) Error() string { return "plain" }

func TestNormalizeHandlerName(t *testing.T) {
	assert.Equal(t, "stats", normalizeHandlerName(" /Stats "))
	assert.Equal(t, "unknown", normalizeHandlerName(""))
	assert.Equal(t, "unknown_text", normalizeHandlerName("unknown text"))
}

func TestDeriveErrorCode(t *testing.T) {
	assert.Empty(t, deriveErrorCode(nil))
	assert.Equal(t, "RATES_TRANSPORT", deriveErrorCode(codedError{}))
	assert.Equal(t, "RATES_TRANSPORT", deriveErrorCode(fmt.Errorf("send: %w", codedError{})))
	assert.Equal(t, "PLAINERROR", deriveErrorCode(&plainError{}))
	assert.Equal(t, "ERRORSTRING", deriveErrorCode(errors.New("x")))
}

func TestTextRoutesDeliverToConversation(t *testing.T) {
	var got []string
	routes := TextRoutes(convFunc(func(c tele.Context) error {
		got = append(got, c.Text())
		c.Set("step", "date_prompt")
		return nil
	}), TextOptions{})
	require.Len(t, routes, 1)
	assert.Equal(t, tele.OnText, routes[0].Endpoint)

	require.NoError(t, routes[0].Handler(newFakeContext("/START", 10, 10)))
	require.NoError(t, routes[0].Handler(newFakeContext("14.03.2023", 10, 10)))
	assert.Equal(t, []string{"/START", "14.03.2023"}, got)
}

func TestTextRoutesRecoverPanics(t *testing.T) {
	routes := TextRoutes(convFunc(func(tele.Context) error { panic("boom") }), TextOptions{})
	err := routes[0].Handler(newFakeContext("hi", 1, 1))
	assert.ErrorContains(t, err, "boom")
	var pe *middleware.PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "PANIC", deriveErrorCode(err))
}

func TestTextRoutesFallback(t *testing.T) {
	called := false
	routes := TextRoutes(nil, TextOptions{UnknownText: func(tele.Context) error {
		called = true
		return nil
	}})
	require.NoError(t, routes[0].Handler(newFakeContext("hi", 1, 1)))
	assert.True(t, called)
}

func TestCommandRoutesAdminOnly(t *testing.T) {
	reg := tg.NewRegistry()
	var calls []int64
	reg.RegisterCommand("/stats", commands.Command{
		Description: "stats",
		AdminOnly:   true,
		Hidden:      true,
		Handler: func(c tele.Context) error {
			calls = append(calls, c.Sender().ID)
			return nil
		},
	})
	rejected := 0
	routes := CommandRoutes(reg, CommandRouteOptions{
		AdminID: 99,
		OnAdminReject: func(tele.Context) error {
			rejected++
			return nil
		},
	})
	require.Len(t, routes, 1)
	assert.Equal(t, "/stats", routes[0].Endpoint)

	require.NoError(t, routes[0].Handler(newFakeContext("/stats", 5, 5)))
	require.NoError(t, routes[0].Handler(newFakeContext("/stats", 99, 99)))
	assert.Equal(t, []int64{99}, calls)
	assert.Equal(t, 1, rejected)
}

func TestCommandRoutesPropagateErrors(t *testing.T) {
	reg := tg.NewRegistry()
	reg.RegisterCommand("/start", commands.Command{
		Description: "start",
		Handler:     func(tele.Context) error { return fmt.Errorf("send: %w", codedError{}) },
	})
	routes := CommandRoutes(reg, CommandRouteOptions{})
	err := routes[0].Handler(newFakeContext("/start", 1, 1))
	assert.ErrorContains(t, err, "coded")
}
