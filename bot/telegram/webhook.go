package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mymmrac/telego"
)

const maxUpdateSize = 2 << 20 // 2 MiB

type webhookServer struct {
	server  *http.Server
	updates chan telego.Update
}

// updatesViaWebhook registers the webhook with Telegram and serves it
// on the configured port. Updates arrive on the returned channel.
func (b *Bot) updatesViaWebhook(ctx context.Context) (<-chan telego.Update, error) {
	host := strings.TrimSuffix(b.config.GetString("WebhookHost"), "/")
	path := "/bot" + b.config.GetString("BotToken")
	certFile := b.config.GetString("WebhookCert")
	keyFile := b.config.GetString("WebhookKey")

	updates := make(chan telego.Update, 64)

	mux := http.NewServeMux()
	mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateSize))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var update telego.Update
		if err := json.Unmarshal(body, &update); err != nil {
			b.logger.Warn("webhook: malformed update", "error", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		select {
		case updates <- update:
			w.WriteHeader(http.StatusOK)
		case <-r.Context().Done():
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", b.config.GetInt("WebhookPort")),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
	b.webhook = &webhookServer{server: server, updates: updates}

	if err := b.client.SetWebhook(ctx, &telego.SetWebhookParams{URL: host + path}); err != nil {
		return nil, fmt.Errorf("set webhook: %w", err)
	}

	go func() {
		var err error
		if certFile != "" && keyFile != "" {
			err = server.ListenAndServeTLS(certFile, keyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			b.logger.Error("webhook server stopped", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = b.webhook.shutdown(shutdownCtx)
		close(updates)
	}()

	return updates, nil
}

func (ws *webhookServer) shutdown(ctx context.Context) error {
	if ws == nil || ws.server == nil {
		return nil
	}
	return ws.server.Shutdown(ctx)
}
