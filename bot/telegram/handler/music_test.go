package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	botpkg "github.com/song163bot/song163bot/bot"
	"github.com/song163bot/song163bot/bot/config"
	"github.com/song163bot/song163bot/bot/download"
	"github.com/song163bot/song163bot/bot/extract"
	"github.com/song163bot/song163bot/bot/id3"
	"github.com/song163bot/song163bot/bot/locale"
	"github.com/song163bot/song163bot/bot/resolver"
)

type fakeSender struct {
	mu        sync.Mutex
	messages  []*telego.SendMessageParams
	edits     []*telego.EditMessageTextParams
	deletes   []*telego.DeleteMessageParams
	audio     []*telego.SendAudioParams
	audioErrs []error
	nextID    int
}

func (f *fakeSender) SendMessage(_ context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, params)
	f.nextID++
	return &telego.Message{MessageID: f.nextID}, nil
}

func (f *fakeSender) EditMessageText(_ context.Context, params *telego.EditMessageTextParams) (*telego.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.edits = append(f.edits, params)
	return &telego.Message{MessageID: params.MessageID}, nil
}

func (f *fakeSender) DeleteMessage(_ context.Context, params *telego.DeleteMessageParams) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, params)
	return nil
}

func (f *fakeSender) SendAudio(_ context.Context, params *telego.SendAudioParams) (*telego.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.audio = append(f.audio, params)
	if len(f.audioErrs) > 0 {
		err := f.audioErrs[0]
		f.audioErrs = f.audioErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	f.nextID++
	return &telego.Message{MessageID: f.nextID, Audio: &telego.Audio{FileID: "file-123"}}, nil
}

func (f *fakeSender) SendChatAction(context.Context, int64, string) error { return nil }

func (f *fakeSender) AnswerInlineQuery(context.Context, *telego.AnswerInlineQueryParams) error {
	return nil
}

type fakeResolver struct {
	song *botpkg.ResolvedSong
	err  error
}

func (f fakeResolver) Resolve(context.Context, botpkg.SongRequest) (*botpkg.ResolvedSong, error) {
	return f.song, f.err
}

type fakeCache struct {
	mu   sync.Mutex
	data map[string]string
	sets map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string]string{}, sets: map[string]string{}}
}

func (f *fakeCache) Exists(_ context.Context, key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.data[key]
	return ok, nil
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fileID, ok := f.data[key]
	if !ok {
		return "", botpkg.ErrCacheMiss
	}
	return fileID, nil
}

func (f *fakeCache) Set(_ context.Context, key, fileID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key] = fileID
	f.sets[key] = fileID
	return nil
}

func (f *fakeCache) setCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sets)
}

type fakeOpLog struct {
	mu    sync.Mutex
	lines []string
}

func (f *fakeOpLog) Log(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, text)
}

func (f *fakeOpLog) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.lines)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.ini")
	require.NoError(t, os.WriteFile(path, []byte("AdminContact = @admin\n"), 0644))
	conf, err := config.Load(path)
	require.NoError(t, err)
	return conf
}

func testSong(streamURL string) *botpkg.ResolvedSong {
	return &botpkg.ResolvedSong{
		SongID:    "36990266",
		Title:     "Test Song",
		Artists:   []botpkg.Artist{{Name: "Artist", ID: "1", URL: "https://music.163.com/#/artist?id=1"}},
		AlbumName: "Test Album",
		PageURL:   "https://music.163.com/#/song?id=36990266",
		StreamURL: streamURL,
	}
}

func songMessage() *telego.Message {
	return &telego.Message{
		MessageID: 7,
		Chat:      telego.Chat{ID: 99},
		From:      &telego.User{ID: 5, FirstName: "Alice", Username: "alice"},
		Text:      "36990266",
	}
}

func newMusicHandler(t *testing.T, sender *fakeSender, res botpkg.Resolver, cache *fakeCache, opLog *fakeOpLog) *MusicHandler {
	t.Helper()
	return &MusicHandler{
		Bot:       sender,
		Config:    testConfig(t),
		Logger:    nopLogger{},
		Locale:    locale.Builtin(),
		Extractor: extract.New(320),
		Resolver:  res,
		Cache:     cache,
		Tagger:    id3.NewService(nopLogger{}),
		OpLog:     opLog,
	}
}

func TestMusicCacheHitSkipsDownload(t *testing.T) {
	sender := &fakeSender{}
	cache := newFakeCache()
	cache.data["36990266.320000"] = "cached-file"
	opLog := &fakeOpLog{}

	// Downloader stays nil: touching the download path would panic.
	h := newMusicHandler(t, sender, fakeResolver{song: testSong("https://stream.example/x")}, cache, opLog)

	h.Handle(context.Background(), &telego.Update{Message: songMessage()})

	require.Len(t, sender.audio, 1)
	assert.Equal(t, "cached-file", sender.audio[0].Audio.FileID)
	assert.Equal(t, "Test Song", sender.audio[0].Title)
	assert.Empty(t, sender.messages, "cache hit must not create a status message")
	assert.Zero(t, cache.setCount(), "cache hit must not rewrite the entry")
}

func TestMusicResolveFailureRepliesSanitized(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"song not found", resolver.ErrSongNotFound, locale.Builtin().NotFound},
		{"resolver down", errors.New("connection refused"), locale.Builtin().SendFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			cache := newFakeCache()
			opLog := &fakeOpLog{}
			h := newMusicHandler(t, sender, fakeResolver{err: tt.err}, cache, opLog)

			h.Handle(context.Background(), &telego.Update{Message: songMessage()})

			require.Len(t, sender.messages, 1)
			assert.Contains(t, sender.messages[0].Text, tt.want)
			assert.Contains(t, sender.messages[0].Text, "@admin")
			assert.NotContains(t, sender.messages[0].Text, tt.err.Error(), "raw error must not reach the user")
			assert.Empty(t, sender.audio)
			assert.Zero(t, cache.setCount(), "a resolver failure never causes a cache write")
			assert.GreaterOrEqual(t, opLog.count(), 1, "failures must reach the operational channel")
		})
	}
}

func TestMusicDeliverRetriesUploadOnce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 64*1024))
	}))
	defer server.Close()

	sender := &fakeSender{audioErrs: []error{errors.New("bad gateway")}}
	cache := newFakeCache()
	opLog := &fakeOpLog{}
	h := newMusicHandler(t, sender, fakeResolver{song: testSong(server.URL)}, cache, opLog)
	h.Downloader = download.NewService(download.Options{Timeout: 10 * time.Second, DestDir: t.TempDir()})

	h.Handle(context.Background(), &telego.Update{Message: songMessage()})

	require.Len(t, sender.audio, 2, "upload is retried once after a transient failure")
	require.Len(t, sender.messages, 1, "exactly one status message")
	assert.Equal(t, locale.Builtin().DownloadInit, sender.messages[0].Text)
	require.Len(t, sender.deletes, 1, "status message is deleted after upload")

	assert.Eventually(t, func() bool {
		cache.mu.Lock()
		defer cache.mu.Unlock()
		return cache.sets["36990266.320000"] == "file-123"
	}, 2*time.Second, 10*time.Millisecond, "new file_id is recorded")
}

func TestMusicUploadFailureRepliesError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 16*1024))
	}))
	defer server.Close()

	uploadErr := errors.New("bad gateway")
	sender := &fakeSender{audioErrs: []error{uploadErr, uploadErr}}
	cache := newFakeCache()
	opLog := &fakeOpLog{}
	h := newMusicHandler(t, sender, fakeResolver{song: testSong(server.URL)}, cache, opLog)
	h.Downloader = download.NewService(download.Options{Timeout: 10 * time.Second, DestDir: t.TempDir()})

	h.Handle(context.Background(), &telego.Update{Message: songMessage()})

	require.Len(t, sender.audio, 2)
	last := sender.messages[len(sender.messages)-1]
	assert.Contains(t, last.Text, locale.Builtin().SendFailed)
	assert.Zero(t, cache.setCount(), "a failed upload never causes a cache write")
}
