package handler

import (
	"context"

	"github.com/mymmrac/telego"

	botpkg "github.com/song163bot/song163bot/bot"
	"github.com/song163bot/song163bot/bot/locale"
)

// StartHandler replies to /start with the usage blurb.
type StartHandler struct {
	Bot    Sender
	Locale *locale.Pack
	Logger botpkg.Logger
	OpLog  botpkg.OpLogger
}

func (h *StartHandler) Handle(ctx context.Context, update *telego.Update) {
	message := update.Message
	if message == nil {
		return
	}

	h.OpLog.Log(h.Locale.FormatLogStart(displayName(message)))
	_, _ = h.Bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: message.Chat.ID},
		Text:   h.Locale.Start,
	})
}

// HelpHandler replies to /help with usage details.
type HelpHandler struct {
	Bot    Sender
	Locale *locale.Pack
	Logger botpkg.Logger
	OpLog  botpkg.OpLogger
}

func (h *HelpHandler) Handle(ctx context.Context, update *telego.Update) {
	message := update.Message
	if message == nil {
		return
	}

	h.OpLog.Log(h.Locale.FormatLogHelp(displayName(message)))
	_, _ = h.Bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: message.Chat.ID},
		Text:   h.Locale.Help,
	})
}

// FallbackHandler catches everything no other rule recognized. The raw
// input goes to the operational channel, the user gets a generic reply.
type FallbackHandler struct {
	Bot    Sender
	Locale *locale.Pack
	Logger botpkg.Logger
	OpLog  botpkg.OpLogger
}

func (h *FallbackHandler) Handle(ctx context.Context, update *telego.Update) {
	message := update.Message
	if message == nil {
		return
	}

	h.OpLog.Log(h.Locale.FormatLogUnknown(displayName(message), messageText(message)))
	_, _ = h.Bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:          telego.ChatID{ID: message.Chat.ID},
		Text:            h.Locale.NotUnderstood,
		ReplyParameters: &telego.ReplyParameters{MessageID: message.MessageID},
	})
}
