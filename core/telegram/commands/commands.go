package commands

import (
	tele "gopkg.in/telebot.v4"
)

// Command describes a slash command. AdminOnly commands are wrapped with the
// admin check and, like Hidden ones, never shown in the command menu.
type Command struct {
	Handler     tele.HandlerFunc
	Description string
	AdminOnly   bool
	Hidden      bool
}
