package handler

import (
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/song163bot/song163bot/bot/locale"
	"github.com/song163bot/song163bot/bot/resolver"
)

func TestInlineHintResult(t *testing.T) {
	h := &InlineQueryHandler{Locale: locale.Builtin()}

	result := h.hintResult()
	article, ok := result.(*telego.InlineQueryResultArticle)
	require.True(t, ok)

	assert.Equal(t, telego.ResultTypeArticle, article.Type)
	assert.Equal(t, h.Locale.InlineHint, article.Title)

	content, ok := article.InputMessageContent.(*telego.InputTextMessageContent)
	require.True(t, ok)
	assert.Equal(t, h.Locale.Help, content.MessageText)
}

func TestInlineErrorResult(t *testing.T) {
	h := &InlineQueryHandler{Locale: locale.Builtin()}

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"song not found", resolver.ErrSongNotFound, h.Locale.NotFound},
		{"other failure", assert.AnError, h.Locale.SendFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			article, ok := h.errorResult(tt.err).(*telego.InlineQueryResultArticle)
			require.True(t, ok)
			assert.Equal(t, tt.want, article.Title)
		})
	}
}
