package handler

import (
	"context"
	"strings"

	"github.com/mymmrac/telego"

	botpkg "github.com/song163bot/song163bot/bot"
	"github.com/song163bot/song163bot/bot/extract"
)

// Router dispatches updates to feature handlers. Song deliveries run
// on the worker pool, everything else is handled inline.
type Router struct {
	Start     MessageHandler
	Help      MessageHandler
	Stats     MessageHandler
	Music     MessageHandler
	Fallback  MessageHandler
	Inline    InlineHandler
	Extractor *extract.Extractor
	Pool      botpkg.WorkerPool
	Logger    botpkg.Logger
}

// Run consumes the update channel until it closes.
func (r *Router) Run(ctx context.Context, updates <-chan telego.Update) {
	for update := range updates {
		r.Dispatch(ctx, update)
	}
}

// Dispatch routes a single update. The first matching handler wins.
func (r *Router) Dispatch(ctx context.Context, update telego.Update) {
	switch {
	case update.InlineQuery != nil:
		r.handle(ctx, r.Inline, update)
	case update.Message != nil:
		r.dispatchMessage(ctx, update)
	}
}

func (r *Router) dispatchMessage(ctx context.Context, update telego.Update) {
	message := update.Message

	switch command(message) {
	case "start":
		r.handle(ctx, r.Start, update)
		return
	case "help":
		r.handle(ctx, r.Help, update)
		return
	case "stats":
		r.handle(ctx, r.Stats, update)
		return
	}

	if r.Extractor == nil {
		return
	}
	if _, ok := r.Extractor.Match(messageText(message)); !ok {
		r.handle(ctx, r.Fallback, update)
		return
	}

	task := update
	err := r.Pool.Submit(func() {
		r.handle(ctx, r.Music, task)
	})
	if err != nil {
		r.Logger.Warn("dropping song request, pool unavailable", "chat_id", message.Chat.ID, "error", err)
	}
}

func (r *Router) handle(ctx context.Context, h interface {
	Handle(ctx context.Context, update *telego.Update)
}, update telego.Update) {
	if h == nil {
		return
	}
	h.Handle(ctx, &update)
}

// command returns the bare command name for messages like "/start" or
// "/start@BotName", empty otherwise.
func command(message *telego.Message) string {
	if message == nil || !strings.HasPrefix(message.Text, "/") {
		return ""
	}
	for _, entity := range message.Entities {
		if entity.Type == telego.EntityTypeBotCommand && entity.Offset == 0 {
			name := message.Text[1:entity.Length]
			if at := strings.Index(name, "@"); at >= 0 {
				name = name[:at]
			}
			return name
		}
	}
	return ""
}
