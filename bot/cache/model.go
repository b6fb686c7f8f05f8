package cache

import "gorm.io/gorm"

// EntryModel is the GORM model for a delivered-audio cache entry. The
// cache key combines song ID and bitrate, e.g. "36990266.320000".
type EntryModel struct {
	gorm.Model
	CacheKey string `gorm:"uniqueIndex;not null"`
	SongID   string `gorm:"index;not null"`
	Bitrate  int    `gorm:"not null"`
	FileID   string `gorm:"not null"`
}

// TableName keeps the table name stable across GORM versions.
func (EntryModel) TableName() string {
	return "song_cache"
}
