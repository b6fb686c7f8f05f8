package handler

import (
	"context"
	"errors"

	"github.com/mymmrac/telego"

	botpkg "github.com/song163bot/song163bot/bot"
	"github.com/song163bot/song163bot/bot/extract"
	"github.com/song163bot/song163bot/bot/locale"
	"github.com/song163bot/song163bot/bot/resolver"
)

// InlineQueryHandler answers inline queries. A query only triggers
// once it ends with a dot, incomplete queries get a usage hint. Cached
// songs answer with the stored audio directly, everything else gets an
// article linking the song page.
type InlineQueryHandler struct {
	Bot       Sender
	Logger    botpkg.Logger
	Locale    *locale.Pack
	Extractor *extract.Extractor
	Resolver  botpkg.Resolver
	Cache     botpkg.CacheStore
	OpLog     botpkg.OpLogger
}

func (h *InlineQueryHandler) Handle(ctx context.Context, update *telego.Update) {
	query := update.InlineQuery
	if query == nil {
		return
	}

	req, ok := h.Extractor.MatchInline(query.Query)
	if !ok {
		h.answer(ctx, query.ID, []telego.InlineQueryResult{h.hintResult()})
		return
	}

	h.OpLog.Log(h.Locale.FormatLogInline(userDisplayName(&query.From), query.Query))

	song, err := h.Resolver.Resolve(ctx, req)
	if err != nil {
		h.Logger.Warn("inline resolve failed", "song_id", req.SongID, "error", err)
		h.answer(ctx, query.ID, []telego.InlineQueryResult{h.errorResult(err)})
		return
	}

	caption := h.Locale.FormatSongText(song.Title, song.PageURL, artistsMarkdown(song.Artists), song.StreamURL)

	fileID, err := h.Cache.Get(ctx, req.CacheKey())
	if err == nil {
		h.answer(ctx, query.ID, []telego.InlineQueryResult{
			&telego.InlineQueryResultCachedAudio{
				Type:        telego.ResultTypeAudio,
				ID:          req.CacheKey(),
				AudioFileID: fileID,
				Caption:     caption,
				ParseMode:   telego.ModeMarkdown,
			},
		})
		return
	}
	if !errors.Is(err, botpkg.ErrCacheMiss) {
		h.Logger.Warn("inline cache read failed", "error", err)
	}

	// Not cached yet: an article whose message carries the song
	// reference, sending it makes the bot deliver and cache the audio.
	article := &telego.InlineQueryResultArticle{
		Type:        telego.ResultTypeArticle,
		ID:          req.CacheKey(),
		Title:       song.Title,
		Description: song.ArtistNames(),
		InputMessageContent: &telego.InputTextMessageContent{
			MessageText: song.PageURL,
		},
	}
	if song.AlbumArtURL != "" {
		article.ThumbnailURL = song.AlbumArtURL
	}
	h.answer(ctx, query.ID, []telego.InlineQueryResult{article})
}

func (h *InlineQueryHandler) hintResult() telego.InlineQueryResult {
	return &telego.InlineQueryResultArticle{
		Type:  telego.ResultTypeArticle,
		ID:    "hint",
		Title: h.Locale.InlineHint,
		InputMessageContent: &telego.InputTextMessageContent{
			MessageText: h.Locale.Help,
		},
	}
}

func (h *InlineQueryHandler) errorResult(err error) telego.InlineQueryResult {
	title := h.Locale.SendFailed
	if errors.Is(err, resolver.ErrSongNotFound) {
		title = h.Locale.NotFound
	}
	return &telego.InlineQueryResultArticle{
		Type:  telego.ResultTypeArticle,
		ID:    "error",
		Title: title,
		InputMessageContent: &telego.InputTextMessageContent{
			MessageText: title,
		},
	}
}

func (h *InlineQueryHandler) answer(ctx context.Context, queryID string, results []telego.InlineQueryResult) {
	err := h.Bot.AnswerInlineQuery(ctx, &telego.AnswerInlineQueryParams{
		InlineQueryID: queryID,
		Results:       results,
		CacheTime:     1,
		IsPersonal:    true,
	})
	if err != nil {
		h.Logger.Warn("answer inline query failed", "error", err)
	}
}
