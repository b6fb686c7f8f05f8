// Package telegram wraps the telego client with rate limiting, retry
// handling and the update transports used by the bot.
package telegram

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/mymmrac/telego"

	botpkg "github.com/song163bot/song163bot/bot"
	"github.com/song163bot/song163bot/bot/config"
)

// Bot wraps telego with application configuration. A separate client
// with a long timeout is used for audio uploads.
type Bot struct {
	client  *telego.Bot
	upload  *telego.Bot
	limiter *RateLimiter
	config  *config.Config
	logger  botpkg.Logger

	webhook *webhookServer
}

// New creates a new Telegram bot client.
func New(cfg *config.Config, logger botpkg.Logger) (*Bot, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger required")
	}

	pollClient := &http.Client{
		Timeout: 2 * time.Minute,
		Transport: &http.Transport{
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   20,
			MaxConnsPerHost:       50,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
	uploadClient := &http.Client{
		Timeout: 15 * time.Minute,
		Transport: &http.Transport{
			MaxIdleConns:          100,
			MaxIdleConnsPerHost:   20,
			MaxConnsPerHost:       50,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	client, err := newClient(cfg, logger, pollClient)
	if err != nil {
		return nil, err
	}
	upload, err := newClient(cfg, logger, uploadClient)
	if err != nil {
		return nil, err
	}

	limiter := NewRateLimiter(cfg.GetFloat64("RateLimitPerSecond"), cfg.GetInt("RateLimitBurst"))
	limiter.SetLogger(logger)

	return &Bot{
		client:  client,
		upload:  upload,
		limiter: limiter,
		config:  cfg,
		logger:  logger,
	}, nil
}

func newClient(cfg *config.Config, logger botpkg.Logger, httpClient *http.Client) (*telego.Bot, error) {
	options := []telego.BotOption{
		telego.WithHTTPClient(httpClient),
		telego.WithLogger(telegoLogger{logger: logger}),
	}
	if cfg.GetString("BotAPI") != "" {
		options = append(options, telego.WithAPIServer(cfg.GetString("BotAPI")))
	}
	if cfg.GetBool("BotDebug") {
		options = append(options, telego.WithDebugMode())
	}
	return telego.NewBot(cfg.GetString("BotToken"), options...)
}

// Client exposes the underlying bot client.
func (b *Bot) Client() *telego.Bot {
	return b.client
}

// GetMe retrieves bot info.
func (b *Bot) GetMe(ctx context.Context) (*telego.User, error) {
	return b.client.GetMe(ctx)
}

// Updates starts the configured update transport. With WebhookHost set
// the bot registers a webhook and serves it, otherwise it long-polls.
// The channel closes when ctx is canceled.
func (b *Bot) Updates(ctx context.Context) (<-chan telego.Update, error) {
	if b.config.GetString("WebhookHost") != "" {
		return b.updatesViaWebhook(ctx)
	}

	if err := b.client.DeleteWebhook(ctx, &telego.DeleteWebhookParams{}); err != nil {
		b.logger.Warn("delete stale webhook", "error", err)
	}
	return b.client.UpdatesViaLongPolling(ctx, nil)
}

// Stop shuts the webhook server down if one is running.
func (b *Bot) Stop(ctx context.Context) error {
	if b.webhook == nil {
		return nil
	}
	return b.webhook.shutdown(ctx)
}

// SendMessage sends a text message with rate limiting and retry.
func (b *Bot) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	var result *telego.Message
	chatID := extractChatID(params.ChatID)
	err := WithRetry(ctx, b.limiter, chatID, func() error {
		msg, err := b.client.SendMessage(ctx, params)
		if err != nil {
			return err
		}
		result = msg
		return nil
	})
	if err != nil {
		b.logger.Error("SendMessage failed", "chat_id", chatID, "error", err)
	}
	return result, err
}

// EditMessageText edits a message with rate limiting and retry.
// "message is not modified" responses are swallowed.
func (b *Bot) EditMessageText(ctx context.Context, params *telego.EditMessageTextParams) (*telego.Message, error) {
	var result *telego.Message
	chatID := extractChatID(params.ChatID)
	err := WithRetry(ctx, b.limiter, chatID, func() error {
		msg, err := b.client.EditMessageText(ctx, params)
		if err != nil {
			return err
		}
		result = msg
		return nil
	})
	if err != nil {
		if isMessageNotModified(err) {
			return result, nil
		}
		b.logger.Error("EditMessageText failed", "chat_id", chatID, "message_id", params.MessageID, "error", err)
	}
	return result, err
}

// DeleteMessage deletes a message with rate limiting and retry.
func (b *Bot) DeleteMessage(ctx context.Context, params *telego.DeleteMessageParams) error {
	chatID := extractChatID(params.ChatID)
	err := WithRetry(ctx, b.limiter, chatID, func() error {
		return b.client.DeleteMessage(ctx, params)
	})
	if err != nil {
		b.logger.Error("DeleteMessage failed", "chat_id", chatID, "message_id", params.MessageID, "error", err)
	}
	return err
}

// SendAudio uploads audio via the long-timeout client with rate
// limiting and retry.
func (b *Bot) SendAudio(ctx context.Context, params *telego.SendAudioParams) (*telego.Message, error) {
	var result *telego.Message
	chatID := extractChatID(params.ChatID)
	err := WithRetry(ctx, b.limiter, chatID, func() error {
		msg, err := b.upload.SendAudio(ctx, params)
		if err != nil {
			return err
		}
		result = msg
		return nil
	})
	if err != nil {
		b.logger.Error("SendAudio failed", "chat_id", chatID, "error", err)
	}
	return result, err
}

// SendChatAction sends a chat action. Failures are not retried.
func (b *Bot) SendChatAction(ctx context.Context, chatID int64, action string) error {
	return b.client.SendChatAction(ctx, &telego.SendChatActionParams{
		ChatID: telego.ChatID{ID: chatID},
		Action: action,
	})
}

// AnswerInlineQuery answers an inline query. Inline answers expire
// quickly so there is no retry.
func (b *Bot) AnswerInlineQuery(ctx context.Context, params *telego.AnswerInlineQueryParams) error {
	return b.client.AnswerInlineQuery(ctx, params)
}

type telegoLogger struct {
	logger botpkg.Logger
}

func (l telegoLogger) Debugf(format string, args ...any) {
	if l.logger == nil {
		return
	}
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l telegoLogger) Errorf(format string, args ...any) {
	if l.logger == nil {
		return
	}
	l.logger.Error(fmt.Sprintf(format, args...))
}
