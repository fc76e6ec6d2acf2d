// Package handler provides Telegram bot command handlers.
package handler

import (
	"strings"

	tele "gopkg.in/telebot.v3"
)

// displayName returns the sender's username, falling back to the first name.
func displayName(u *tele.User) string {
	if u == nil {
		return ""
	}
	if u.Username != "" {
		return u.Username
	}
	return u.FirstName
}

// callbackData returns the callback payload without telebot's \f marker.
func callbackData(c tele.Context) string {
	cb := c.Callback()
	if cb == nil {
		return ""
	}
	return strings.TrimPrefix(cb.Data, "\f")
}

// replyTarget returns the author of the message being replied to.
func replyTarget(c tele.Context) *tele.User {
	msg := c.Message()
	if msg == nil || msg.ReplyTo == nil {
		return nil
	}
	return msg.ReplyTo.Sender
}

var medals = []string{"🥇", "🥈", "🥉"}
