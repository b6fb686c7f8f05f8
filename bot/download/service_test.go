package download

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/song163bot/song163bot/bot"
)

func TestDownload(t *testing.T) {
	payload := make([]byte, 256*1024)
	for i := range payload {
		payload[i] = byte(i % 251)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer server.Close()

	service := NewService(Options{Timeout: 10 * time.Second, DestDir: t.TempDir()})

	var last bot.DeliveryProgress
	path, written, err := service.Download(context.Background(), server.URL, "36990266.mp3", func(p bot.DeliveryProgress) {
		last = p
	})
	require.NoError(t, err)

	assert.EqualValues(t, len(payload), written)
	assert.EqualValues(t, len(payload), last.Written)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestDownloadKeepsExtension(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("audio"))
	}))
	defer server.Close()

	service := NewService(Options{Timeout: 5 * time.Second, DestDir: t.TempDir()})

	path, _, err := service.Download(context.Background(), server.URL, "36990266.320000.mp3", nil)
	require.NoError(t, err)
	assert.Equal(t, ".mp3", filepath.Ext(path))
}

func TestDownloadConcurrentSameNameDoNotCollide(t *testing.T) {
	block := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fill := r.URL.Query().Get("fill")[0]
		payload := bytes.Repeat([]byte{fill}, 32*1024)
		w.Write(payload)
		if flusher, ok := w.(http.Flusher); ok {
			flusher.Flush()
		}
		<-block
		w.Write(payload)
	}))
	defer server.Close()

	service := NewService(Options{Timeout: 10 * time.Second, DestDir: t.TempDir()})

	type result struct {
		path string
		err  error
	}
	results := make(chan result, 2)
	for _, fill := range []string{"a", "b"} {
		go func(fill string) {
			path, _, err := service.Download(context.Background(), server.URL+"?fill="+fill, "36990266.320000.mp3", nil)
			results <- result{path: path, err: err}
		}(fill)
	}

	time.Sleep(100 * time.Millisecond)
	close(block)

	first := <-results
	second := <-results
	require.NoError(t, first.err)
	require.NoError(t, second.err)
	assert.NotEqual(t, first.path, second.path)

	for _, res := range []result{first, second} {
		data, err := os.ReadFile(res.path)
		require.NoError(t, err)
		require.NotEmpty(t, data)
		for _, b := range data {
			assert.Equal(t, data[0], b, "file must contain a single stream")
		}
	}
}

func TestDownloadServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	service := NewService(Options{Timeout: 5 * time.Second, DestDir: t.TempDir()})

	_, _, err := service.Download(context.Background(), server.URL, "x.mp3", nil)
	assert.ErrorContains(t, err, "status 403")
}

func TestDownloadCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	service := NewService(Options{Timeout: 5 * time.Second, DestDir: t.TempDir()})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := service.Download(ctx, server.URL, "x.mp3", nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDownloadMissingArgs(t *testing.T) {
	service := NewService(Options{DestDir: t.TempDir()})

	_, _, err := service.Download(context.Background(), "", "x.mp3", nil)
	assert.Error(t, err)

	_, _, err = service.Download(context.Background(), "http://example.com", "", nil)
	assert.Error(t, err)
}
