package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/mymmrac/telego"
	"github.com/mymmrac/telego/telegoutil"

	botpkg "github.com/song163bot/song163bot/bot"
	"github.com/song163bot/song163bot/bot/config"
	"github.com/song163bot/song163bot/bot/download"
	"github.com/song163bot/song163bot/bot/extract"
	"github.com/song163bot/song163bot/bot/id3"
	"github.com/song163bot/song163bot/bot/locale"
	"github.com/song163bot/song163bot/bot/resolver"
)

// MusicHandler resolves a song reference and delivers the audio,
// serving from cache when the same (song, bitrate) was sent before.
type MusicHandler struct {
	Bot        Sender
	Config     *config.Config
	Logger     botpkg.Logger
	Locale     *locale.Pack
	Extractor  *extract.Extractor
	Resolver   botpkg.Resolver
	Cache      botpkg.CacheStore
	Downloader *download.Service
	Tagger     *id3.Service
	OpLog      botpkg.OpLogger
}

func (h *MusicHandler) Handle(ctx context.Context, update *telego.Update) {
	message := update.Message
	if message == nil {
		return
	}

	req, ok := h.Extractor.Match(messageText(message))
	if !ok {
		return
	}

	logger := h.Logger.With("chat_id", message.Chat.ID, "song_id", req.SongID, "bitrate", req.Bitrate)

	song, err := h.Resolver.Resolve(ctx, req)
	if err != nil {
		logger.Warn("resolve failed", "error", err)
		h.OpLog.Log(fmt.Sprintf("resolve %s failed: %v", req.SongID, err))
		h.replyError(ctx, message, err)
		return
	}

	h.OpLog.Log(h.Locale.FormatLogSearch(displayName(message), fmt.Sprintf("%d", req.Bitrate), song.ArtistNames(), song.Title, song.PageURL))

	caption := h.Locale.FormatSongText(song.Title, song.PageURL, artistsMarkdown(song.Artists), song.StreamURL)

	if h.sendFromCache(ctx, message, req, song, caption, logger) {
		return
	}
	h.deliver(ctx, message, req, song, caption, logger)
}

// sendFromCache tries the file_id cache. Cache errors count as a miss,
// a stale file_id falls back to a fresh download.
func (h *MusicHandler) sendFromCache(ctx context.Context, message *telego.Message, req botpkg.SongRequest, song *botpkg.ResolvedSong, caption string, logger botpkg.Logger) bool {
	fileID, err := h.Cache.Get(ctx, req.CacheKey())
	if err != nil {
		if !errors.Is(err, botpkg.ErrCacheMiss) {
			logger.Warn("cache read failed", "error", err)
			h.OpLog.Log(fmt.Sprintf("cache read for %s failed: %v", req.CacheKey(), err))
		}
		return false
	}

	params := &telego.SendAudioParams{
		ChatID:          telego.ChatID{ID: message.Chat.ID},
		Audio:           telego.InputFile{FileID: fileID},
		Caption:         caption,
		ParseMode:       telego.ModeMarkdown,
		Title:           song.Title,
		Performer:       song.ArtistNames(),
		ReplyParameters: &telego.ReplyParameters{MessageID: message.MessageID},
	}
	if _, err := h.Bot.SendAudio(ctx, params); err != nil {
		logger.Warn("cached file_id rejected, falling back to download", "error", err)
		return false
	}

	logger.Info("served from cache")
	return true
}

// deliver runs the full pipeline: download with progress edits, tag,
// upload, then record the new file_id.
func (h *MusicHandler) deliver(ctx context.Context, message *telego.Message, req botpkg.SongRequest, song *botpkg.ResolvedSong, caption string, logger botpkg.Logger) {
	status, err := h.Bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:          telego.ChatID{ID: message.Chat.ID},
		Text:            h.Locale.DownloadInit,
		ReplyParameters: &telego.ReplyParameters{MessageID: message.MessageID},
	})
	if err != nil {
		logger.Error("send status message failed", "error", err)
		return
	}
	defer h.deleteStatus(message.Chat.ID, status)

	fileName := fmt.Sprintf("%s.%s.mp3", req.SongID, req.BitrateHz())
	path, size, err := h.Downloader.Download(ctx, song.StreamURL, fileName, func(p botpkg.DeliveryProgress) {
		_, _ = h.Bot.EditMessageText(ctx, &telego.EditMessageTextParams{
			ChatID:    telego.ChatID{ID: message.Chat.ID},
			MessageID: status.MessageID,
			Text:      progressText(h.Locale, p),
		})
	})
	if err != nil {
		logger.Error("download failed", "error", err)
		h.OpLog.Log(fmt.Sprintf("download %s failed: %v", req.SongID, err))
		h.replyError(ctx, message, err)
		return
	}
	defer os.Remove(path)
	logger.Info("downloaded", "bytes", size)

	coverArt, err := id3.FetchCover(ctx, song.AlbumArtURL)
	if err != nil {
		logger.Warn("fetch cover failed", "error", err)
		coverArt = nil
	}
	if err := h.Tagger.EmbedTags(path, song, coverArt); err != nil {
		logger.Warn("embed tags failed", "error", err)
	}

	_, _ = h.Bot.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:    telego.ChatID{ID: message.Chat.ID},
		MessageID: status.MessageID,
		Text:      h.Locale.Uploading,
	})
	_ = h.Bot.SendChatAction(ctx, message.Chat.ID, telego.ChatActionUploadDocument)

	sent, err := h.sendAudioFile(ctx, message, song, caption, path, coverArt)
	if err != nil {
		// One clean retry before giving up, uploads fail transiently.
		logger.Warn("audio upload failed, retrying once", "error", err)
		sent, err = h.sendAudioFile(ctx, message, song, caption, path, coverArt)
	}
	if err != nil {
		logger.Error("audio upload failed", "error", err)
		h.OpLog.Log(fmt.Sprintf("upload %s failed: %v", req.SongID, err))
		h.replyError(ctx, message, err)
		return
	}

	h.recordFileID(req, sent, logger)
}

func (h *MusicHandler) sendAudioFile(ctx context.Context, message *telego.Message, song *botpkg.ResolvedSong, caption, path string, coverArt []byte) (*telego.Message, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	uploadName := fmt.Sprintf("%s - %s.mp3", song.ArtistNames(), song.Title)
	params := &telego.SendAudioParams{
		ChatID:          telego.ChatID{ID: message.Chat.ID},
		Audio:           telego.InputFile{File: telegoutil.NameReader(file, uploadName)},
		Caption:         caption,
		ParseMode:       telego.ModeMarkdown,
		Title:           song.Title,
		Performer:       song.ArtistNames(),
		ReplyParameters: &telego.ReplyParameters{MessageID: message.MessageID},
	}

	if len(coverArt) > 0 {
		if thumb, err := id3.Thumbnail(coverArt); err == nil {
			params.Thumbnail = &telego.InputFile{File: telegoutil.NameReader(bytes.NewReader(thumb), "thumb.jpg")}
		}
	}

	return h.Bot.SendAudio(ctx, params)
}

// recordFileID stores the uploaded file_id. The write is fire and
// forget, failures only cost a future cache hit.
func (h *MusicHandler) recordFileID(req botpkg.SongRequest, sent *telego.Message, logger botpkg.Logger) {
	if sent == nil || sent.Audio == nil || sent.Audio.FileID == "" {
		return
	}
	fileID := sent.Audio.FileID

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := h.Cache.Set(ctx, req.CacheKey(), fileID); err != nil {
			logger.Warn("cache write failed", "error", err)
			h.OpLog.Log(fmt.Sprintf("cache write for %s failed: %v", req.CacheKey(), err))
		}
	}()
}

func (h *MusicHandler) deleteStatus(chatID int64, status *telego.Message) {
	if status == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	_ = h.Bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
		ChatID:    telego.ChatID{ID: chatID},
		MessageID: status.MessageID,
	})
}

// replyError sends a sanitized failure message, never the raw error.
func (h *MusicHandler) replyError(ctx context.Context, message *telego.Message, err error) {
	text := h.Locale.SendFailed
	if errors.Is(err, resolver.ErrSongNotFound) {
		text = h.Locale.NotFound
	}
	if contact := h.Config.GetString("AdminContact"); contact != "" {
		text += "\n" + contact
	}

	_, _ = h.Bot.SendMessage(ctx, &telego.SendMessageParams{
		ChatID:          telego.ChatID{ID: message.Chat.ID},
		Text:            text,
		ReplyParameters: &telego.ReplyParameters{MessageID: message.MessageID},
	})
}
