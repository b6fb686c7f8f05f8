package bot

import (
	"fmt"
	"strings"
	"time"
)

// ValidBitrates are the bitrates (kbps) the resolver accepts.
var ValidBitrates = []int{128, 192, 320}

// SongRequest is a canonical (songId, bitrate) pair extracted from user
// input. Immutable once constructed.
type SongRequest struct {
	SongID  string
	Bitrate int // kbps
}

// BitrateHz returns the bitrate the way the resolver and the cache key
// encode it, with the unit suffix baked in (320 -> "320000").
func (r SongRequest) BitrateHz() string {
	return fmt.Sprintf("%d000", r.Bitrate)
}

// CacheKey returns the cache key for this request.
func (r SongRequest) CacheKey() string {
	return r.SongID + "." + r.BitrateHz()
}

// IsValidBitrate reports whether b is one of the accepted bitrates.
func IsValidBitrate(b int) bool {
	for _, v := range ValidBitrates {
		if v == b {
			return true
		}
	}
	return false
}

// Artist is one performer of a resolved song.
type Artist struct {
	Name string
	ID   string
	URL  string
}

// ResolvedSong is the descriptor returned by the resolver for one
// (songId, bitrate) request. Produced fresh per request, never mutated.
type ResolvedSong struct {
	SongID      string
	Title       string
	Artists     []Artist
	AlbumName   string
	AlbumID     string
	AlbumArtURL string
	PageURL     string
	AlbumURL    string
	StreamURL   string
	PlayerURL   string
}

// ArtistNames joins the artist names with " / ".
func (s *ResolvedSong) ArtistNames() string {
	names := make([]string, 0, len(s.Artists))
	for _, a := range s.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, " / ")
}

// DeliveryProgress is the transient per-chunk state of one in-flight
// download. Discarded once the transfer ends.
type DeliveryProgress struct {
	Written  int64
	Total    int64
	SpeedBps int64
	Elapsed  time.Duration
}

// Percent returns the completed share in whole percent, 0 when the
// total size is unknown.
func (p DeliveryProgress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return int(p.Written * 100 / p.Total)
}

// ETASeconds estimates the remaining transfer time in whole seconds.
func (p DeliveryProgress) ETASeconds() int {
	if p.SpeedBps <= 0 || p.Total <= 0 || p.Written >= p.Total {
		return 0
	}
	return int((p.Total - p.Written) / p.SpeedBps)
}
