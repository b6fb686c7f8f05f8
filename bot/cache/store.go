// Package cache persists the mapping from (song, bitrate) to the
// Telegram file_id of previously delivered audio.
package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/song163bot/song163bot/bot"
)

// ErrNotFound reports a cache miss.
var ErrNotFound = bot.ErrCacheMiss

var _ bot.CacheStore = (*Store)(nil)

// Store is a SQLite-backed bot.CacheStore.
type Store struct {
	db *gorm.DB
}

// NewSQLiteStore opens (or creates) the cache database at dsn.
func NewSQLiteStore(dsn string, gormLogger logger.Interface) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("dsn required")
	}

	if gormLogger == nil {
		gormLogger = logger.Default.LogMode(logger.Silent)
	}

	dbDir := filepath.Dir(dsn)
	if dbDir != "" && dbDir != "." {
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		Logger:                 gormLogger,
	})
	if err != nil {
		return nil, err
	}

	if err := applySQLitePragmas(db); err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&EntryModel{}); err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Store{db: db}, nil
}

// ConfigurePool updates the database connection pool settings.
func (s *Store) ConfigurePool(maxOpen, maxIdle int, maxLifetime time.Duration) error {
	if s == nil || s.db == nil {
		return errors.New("store not configured")
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if maxOpen >= 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if maxIdle >= 0 {
		sqlDB.SetMaxIdleConns(maxIdle)
	}
	if maxLifetime >= 0 {
		sqlDB.SetConnMaxLifetime(maxLifetime)
	}
	return nil
}

// Exists reports whether a cache entry exists for key.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&EntryModel{}).Where("cache_key = ?", key).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Get returns the file_id stored for key, or ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var model EntryModel
	err := s.db.WithContext(ctx).Where("cache_key = ?", key).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return model.FileID, nil
}

// Set stores fileID under key, replacing any previous value.
func (s *Store) Set(ctx context.Context, key, fileID string) error {
	songID, bitrate := splitKey(key)
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"deleted_at",
			"updated_at",
			"file_id",
		}),
	}).Create(&EntryModel{
		CacheKey: key,
		SongID:   songID,
		Bitrate:  bitrate,
		FileID:   fileID,
	}).Error
}

// Count returns the number of cached entries.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&EntryModel{}).Count(&count).Error
	return count, err
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	return sqlDB.Close()
}

func applySQLitePragmas(db *gorm.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-64000;",
	}
	for _, stmt := range pragmas {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}

// splitKey recovers song ID and bitrate from a cache key. Keys look
// like "<songID>.<bitrateHz>".
func splitKey(key string) (string, int) {
	songID, bitrateHz, found := strings.Cut(key, ".")
	if !found {
		return key, 0
	}
	bitrate := 0
	fmt.Sscanf(bitrateHz, "%d", &bitrate)
	return songID, bitrate / 1000
}
