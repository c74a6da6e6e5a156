package keyboard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOneTimeButtons(t *testing.T) {
	m := OneTimeButtons([]string{"Yes", "No"})
	require.Len(t, m.ReplyKeyboard, 1)
	require.Len(t, m.ReplyKeyboard[0], 2)
	assert.Equal(t, "Yes", m.ReplyKeyboard[0][0].Text)
	assert.Equal(t, "No", m.ReplyKeyboard[0][1].Text)
	assert.True(t, m.OneTimeKeyboard)
	assert.True(t, m.ResizeKeyboard)
}

func TestURLButton(t *testing.T) {
	m := URLButton("Codes", "https://example.com/codes")
	require.Len(t, m.InlineKeyboard, 1)
	require.Len(t, m.InlineKeyboard[0], 1)
	assert.Equal(t, "Codes", m.InlineKeyboard[0][0].Text)
	assert.Equal(t, "https://example.com/codes", m.InlineKeyboard[0][0].URL)
}
