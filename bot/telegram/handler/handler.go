// Package handler implements the update handlers behind the bot's
// commands, song requests and inline queries.
package handler

import (
	"context"

	"github.com/mymmrac/telego"

	"github.com/song163bot/song163bot/bot/telegram"
)

// MessageHandler handles message-based updates.
type MessageHandler interface {
	Handle(ctx context.Context, update *telego.Update)
}

// InlineHandler handles inline queries.
type InlineHandler interface {
	Handle(ctx context.Context, update *telego.Update)
}

// Sender is the messaging surface handlers consume. It matches the
// rate-limited wrappers on telegram.Bot.
type Sender interface {
	SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error)
	EditMessageText(ctx context.Context, params *telego.EditMessageTextParams) (*telego.Message, error)
	DeleteMessage(ctx context.Context, params *telego.DeleteMessageParams) error
	SendAudio(ctx context.Context, params *telego.SendAudioParams) (*telego.Message, error)
	SendChatAction(ctx context.Context, chatID int64, action string) error
	AnswerInlineQuery(ctx context.Context, params *telego.AnswerInlineQueryParams) error
}

var _ Sender = (*telegram.Bot)(nil)
