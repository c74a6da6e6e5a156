package telegram

import (
	"testing"
	"time"

	coreconfig "github.com/m3rciful/ratebot/core/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tele "gopkg.in/telebot.v4"
)

func TestBuildPoller(t *testing.T) {
	p := BuildPoller(PollerOptions{RunMode: "longpoll"})
	lp, ok := p.(*tele.LongPoller)
	require.True(t, ok)
	assert.Equal(t, 10*time.Second, lp.Timeout)

	p = BuildPoller(PollerOptions{RunMode: "longpoll", LongPollTimeoutSeconds: 25})
	assert.Equal(t, 25*time.Second, p.(*tele.LongPoller).Timeout)

	p = BuildPoller(PollerOptions{
		RunMode: " Webhook ",
		Webhook: WebhookOptions{Listen: "0.0.0.0", Port: 8443, URL: "https://bot.example.com/hook"},
	})
	wh, ok := p.(*tele.Webhook)
	require.True(t, ok)
	assert.Equal(t, "0.0.0.0:8443", wh.Listen)
	assert.Equal(t, "https://bot.example.com/hook", wh.Endpoint.PublicURL)
}

func TestDispatcherOptionsFrom(t *testing.T) {
	opts := DispatcherOptionsFrom(coreconfig.SenderConfig{QueueSize: 64, Workers: 2, MaxRetries: 3, RetryBackoffMS: 250})
	assert.Equal(t, 64, opts.QueueSize)
	assert.Equal(t, 2, opts.Workers)
	assert.Equal(t, 3, opts.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, opts.RetryBackoff)
}
