// Package app wires all application dependencies.
package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mymmrac/telego"
	"golang.org/x/sync/errgroup"
	gormlogger "gorm.io/gorm/logger"

	botpkg "github.com/song163bot/song163bot/bot"
	"github.com/song163bot/song163bot/bot/cache"
	"github.com/song163bot/song163bot/bot/config"
	"github.com/song163bot/song163bot/bot/download"
	"github.com/song163bot/song163bot/bot/extract"
	"github.com/song163bot/song163bot/bot/id3"
	"github.com/song163bot/song163bot/bot/locale"
	logpkg "github.com/song163bot/song163bot/bot/logger"
	"github.com/song163bot/song163bot/bot/resolver"
	"github.com/song163bot/song163bot/bot/telegram"
	"github.com/song163bot/song163bot/bot/telegram/handler"
	"github.com/song163bot/song163bot/bot/worker"
)

// App wires all application dependencies.
type App struct {
	Config   *config.Config
	Logger   *logpkg.Logger
	Locale   *locale.Pack
	Cache    botpkg.CacheStore
	Store    *cache.Store
	Pool     *worker.Pool
	Telegram *telegram.Bot
	OpLog    *telegram.ChannelLogger
	Build    BuildInfo

	group *errgroup.Group
}

// BuildInfo provides build-time metadata.
type BuildInfo struct {
	Version   string
	CommitSHA string
}

// New builds the application container.
func New(ctx context.Context, configPath string, build BuildInfo) (*App, error) {
	conf, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logpkg.New(conf.GetString("LogLevel"), conf.GetString("LogFormat"), conf.GetBool("LogSource"))
	if err != nil {
		return nil, err
	}

	pack, err := locale.Load(conf.GetString("LangDir"), conf.GetString("Language"))
	if err != nil {
		return nil, fmt.Errorf("load language pack: %w", err)
	}

	var store *cache.Store
	var cacheStore botpkg.CacheStore = cache.Disabled{}
	if conf.GetBool("CacheEnabled") {
		databasePath := strings.TrimSpace(conf.GetString("Database"))
		if databasePath == "" {
			databasePath = "cache.db"
		}
		gormLogger := logpkg.NewGormLogger(log.Slog(), mapLogLevel(conf.GetString("LogLevel")))
		store, err = cache.NewSQLiteStore(databasePath, gormLogger)
		if err != nil {
			return nil, fmt.Errorf("init cache db: %w", err)
		}
		lifetime := time.Duration(conf.GetInt("DBConnMaxLifetimeSec")) * time.Second
		if err := store.ConfigurePool(conf.GetInt("DBMaxOpenConns"), conf.GetInt("DBMaxIdleConns"), lifetime); err != nil {
			return nil, fmt.Errorf("configure db pool: %w", err)
		}
		cacheStore = store
	} else {
		log.Info("file_id cache disabled by config")
	}

	pool := worker.New(conf.GetInt("WorkerPoolSize"))

	tele, err := telegram.New(conf, log)
	if err != nil {
		return nil, fmt.Errorf("init telegram: %w", err)
	}

	return &App{
		Config:   conf,
		Logger:   log,
		Locale:   pack,
		Cache:    cacheStore,
		Store:    store,
		Pool:     pool,
		Telegram: tele,
		Build:    build,
	}, nil
}

// Start connects to Telegram and begins consuming updates.
func (a *App) Start(ctx context.Context) error {
	meCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	me, err := a.Telegram.GetMe(meCtx)
	if err != nil {
		return fmt.Errorf("getMe: %w", err)
	}
	a.Logger.Info("starting bot",
		"bot", me.Username,
		"version", a.Build.Version,
		"commit", a.Build.CommitSHA,
	)

	a.OpLog = telegram.NewChannelLogger(a.Telegram, a.Config.GetInt64("LogChannelID"), a.Logger)

	extractor := extract.New(a.Config.GetInt("DefaultBitrate"))
	resolverClient := resolver.New(
		a.Config.GetString("APIHost"),
		a.Config.GetString("APIPath"),
		a.Config.GetString("MusicPageHost"),
		a.Logger,
	)
	downloader := download.NewService(download.Options{
		Timeout: time.Duration(a.Config.GetInt("DownloadTimeout")) * time.Second,
		DestDir: a.Config.GetString("CacheDir"),
	})
	tagger := id3.NewService(a.Logger)

	router := &handler.Router{
		Start: &handler.StartHandler{
			Bot:    a.Telegram,
			Locale: a.Locale,
			Logger: a.Logger,
			OpLog:  a.OpLog,
		},
		Help: &handler.HelpHandler{
			Bot:    a.Telegram,
			Locale: a.Locale,
			Logger: a.Logger,
			OpLog:  a.OpLog,
		},
		Stats: &handler.StatsHandler{
			Bot:     a.Telegram,
			Config:  a.Config,
			Logger:  a.Logger,
			Cache:   a.Cache,
			Pool:    a.Pool,
			Started: time.Now(),
		},
		Music: &handler.MusicHandler{
			Bot:        a.Telegram,
			Config:     a.Config,
			Logger:     a.Logger,
			Locale:     a.Locale,
			Extractor:  extractor,
			Resolver:   resolverClient,
			Cache:      a.Cache,
			Downloader: downloader,
			Tagger:     tagger,
			OpLog:      a.OpLog,
		},
		Fallback: &handler.FallbackHandler{
			Bot:    a.Telegram,
			Locale: a.Locale,
			Logger: a.Logger,
			OpLog:  a.OpLog,
		},
		Inline: &handler.InlineQueryHandler{
			Bot:       a.Telegram,
			Logger:    a.Logger,
			Locale:    a.Locale,
			Extractor: extractor,
			Resolver:  resolverClient,
			Cache:     a.Cache,
			OpLog:     a.OpLog,
		},
		Extractor: extractor,
		Pool:      a.Pool,
		Logger:    a.Logger,
	}

	updates, err := a.Telegram.Updates(ctx)
	if err != nil {
		return fmt.Errorf("start update transport: %w", err)
	}

	a.setCommands(ctx)

	group, groupCtx := errgroup.WithContext(ctx)
	a.group = group
	group.Go(func() error {
		router.Run(groupCtx, updates)
		return nil
	})

	return nil
}

func (a *App) setCommands(ctx context.Context) {
	err := a.Telegram.Client().SetMyCommands(ctx, &telego.SetMyCommandsParams{
		Commands: []telego.BotCommand{
			{Command: "start", Description: "What this bot does"},
			{Command: "help", Description: "How to request a song"},
		},
	})
	if err != nil {
		a.Logger.Warn("set commands failed", "error", err)
	}
}

// Shutdown releases resources in reverse start order.
func (a *App) Shutdown(ctx context.Context) error {
	var firstErr error

	if err := a.Telegram.Stop(ctx); err != nil {
		a.Logger.Error("failed to stop webhook server", "error", err)
		firstErr = fmt.Errorf("stop webhook: %w", err)
	}

	if a.group != nil {
		_ = a.group.Wait()
	}

	if a.Pool != nil {
		if err := a.Pool.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shutdown worker pool: %w", err)
		}
	}

	if a.OpLog != nil {
		a.OpLog.Close()
	}

	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Error("failed to close cache database", "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("close cache database: %w", err)
			}
		}
	}

	if err := a.Logger.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close logger: %w", err)
	}

	return firstErr
}

func mapLogLevel(level string) gormlogger.LogLevel {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug", "trace":
		return gormlogger.Info
	case "warn", "warning":
		return gormlogger.Warn
	case "error":
		return gormlogger.Error
	default:
		return gormlogger.Warn
	}
}
