package bot

import (
	"context"
	"errors"
)

// ErrCacheMiss reports that a cache key has no stored file_id.
var ErrCacheMiss = errors.New("cache miss")

// Logger is the minimal logging abstraction used across modules.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
	With(args ...any) Logger
}

// Config provides typed access to configuration values.
type Config interface {
	GetString(key string) string
	GetInt(key string) int
	GetInt64(key string) int64
	GetBool(key string) bool
	GetFloat64(key string) float64
}

// CacheStore maps a request cache key to the Telegram file_id of the
// previously delivered audio.
type CacheStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, fileID string) error
}

// Resolver translates a song request into a resolved descriptor with a
// signed stream URL.
type Resolver interface {
	Resolve(ctx context.Context, req SongRequest) (*ResolvedSong, error)
}

// OpLogger sends operational events to a fixed log destination.
// Implementations are fire-and-forget and must never block the caller.
type OpLogger interface {
	Log(text string)
}

// WorkerPool limits concurrency for background tasks.
type WorkerPool interface {
	Submit(task func()) error
	Shutdown(ctx context.Context) error
	Size() int
}
