package telegram

import (
	"context"
	"sync"
	"time"

	"github.com/mymmrac/telego"

	botpkg "github.com/song163bot/song163bot/bot"
)

// ChannelLogger forwards operational events to a Telegram log channel.
// Sends are queued and never block or fail the caller, a full queue
// drops the event.
type ChannelLogger struct {
	bot       *Bot
	channelID int64
	logger    botpkg.Logger
	queue     chan string
	done      chan struct{}

	mu     sync.RWMutex
	closed bool
}

var _ botpkg.OpLogger = (*ChannelLogger)(nil)

// NewChannelLogger creates a ChannelLogger. With channelID 0 the
// logger is inert and only writes to the local log.
func NewChannelLogger(bot *Bot, channelID int64, logger botpkg.Logger) *ChannelLogger {
	cl := &ChannelLogger{
		bot:       bot,
		channelID: channelID,
		logger:    logger,
		queue:     make(chan string, 128),
		done:      make(chan struct{}),
	}
	go cl.run()
	return cl
}

// Log queues an operational event. Events logged after Close are
// dropped; detached pipeline goroutines may outlive the shutdown.
func (cl *ChannelLogger) Log(text string) {
	if text == "" {
		return
	}

	cl.mu.RLock()
	defer cl.mu.RUnlock()
	if cl.closed {
		return
	}
	select {
	case cl.queue <- text:
	default:
		cl.logger.Warn("op log queue full, dropping event")
	}
}

// Close drains the queue and stops the sender. Safe to call more than
// once.
func (cl *ChannelLogger) Close() {
	cl.mu.Lock()
	if cl.closed {
		cl.mu.Unlock()
		return
	}
	cl.closed = true
	close(cl.queue)
	cl.mu.Unlock()

	<-cl.done
}

func (cl *ChannelLogger) run() {
	defer close(cl.done)
	for text := range cl.queue {
		cl.logger.Info("op log", "text", text)
		if cl.channelID == 0 || cl.bot == nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		_, err := cl.bot.SendMessage(ctx, &telego.SendMessageParams{
			ChatID: telego.ChatID{ID: cl.channelID},
			Text:   text,
		})
		cancel()
		if err != nil {
			cl.logger.Warn("op log send failed", "error", err)
		}
	}
}
