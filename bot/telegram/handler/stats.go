package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/mymmrac/telego"

	botpkg "github.com/song163bot/song163bot/bot"
	"github.com/song163bot/song163bot/bot/config"
)

// Counter is implemented by cache stores that can report their size.
type Counter interface {
	Count(ctx context.Context) (int64, error)
}

// StatsHandler answers the admin-only /stats command with runtime
// figures. Requests from anyone else are silently ignored.
type StatsHandler struct {
	Bot     Sender
	Config  *config.Config
	Logger  botpkg.Logger
	Cache   botpkg.CacheStore
	Pool    botpkg.WorkerPool
	Started time.Time
}

func (h *StatsHandler) Handle(ctx context.Context, update *telego.Update) {
	message := update.Message
	if message == nil || message.From == nil {
		return
	}
	if message.From.ID != h.Config.GetInt64("AdminID") {
		return
	}

	cached := "disabled"
	if counter, ok := h.Cache.(Counter); ok {
		count, err := counter.Count(ctx)
		if err != nil {
			h.Logger.Warn("cache count failed", "error", err)
			cached = "unavailable"
		} else {
			cached = fmt.Sprintf("%d", count)
		}
	}

	text := fmt.Sprintf(
		"uptime: %s\ncached songs: %s\nworkers: %d",
		time.Since(h.Started).Round(time.Second),
		cached,
		h.Pool.Size(),
	)
	_, _ = h.Bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID: telego.ChatID{ID: message.Chat.ID},
		Text:   text,
	})
}
