// Package extract recognizes song references in free-form text.
//
// Three forms are accepted: a message that starts with a bare numeric
// ID, a path segment "song/<id>/", and a query parameter "song?id=<id>".
// A bitrate override may follow after a dot, e.g. "36990266.128".
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/song163bot/song163bot/bot"
)

var songPattern = regexp.MustCompile(`(?:^(\d+)|song/(\d+)/|song\?id=(\d+))(?:.*?\.(\d+))?`)

// Extractor turns raw text into song requests.
type Extractor struct {
	defaultBitrate int
}

// New creates an Extractor. Requests without a valid bitrate override
// use defaultBitrate.
func New(defaultBitrate int) *Extractor {
	if !bot.IsValidBitrate(defaultBitrate) {
		defaultBitrate = 320
	}
	return &Extractor{defaultBitrate: defaultBitrate}
}

// Match scans text for a song reference. The second return value is
// false when the text carries no reference.
func (e *Extractor) Match(text string) (bot.SongRequest, bool) {
	groups := songPattern.FindStringSubmatch(text)
	if groups == nil {
		return bot.SongRequest{}, false
	}

	songID := groups[1]
	if songID == "" {
		songID = groups[2]
	}
	if songID == "" {
		songID = groups[3]
	}
	if songID == "" {
		return bot.SongRequest{}, false
	}

	return bot.SongRequest{
		SongID:  songID,
		Bitrate: e.bitrateOf(groups[4]),
	}, true
}

// MatchInline scans an inline query. Inline queries only trigger once
// complete, signalled by a trailing dot which is stripped before
// matching.
func (e *Extractor) MatchInline(query string) (bot.SongRequest, bool) {
	if !strings.HasSuffix(query, ".") {
		return bot.SongRequest{}, false
	}
	return e.Match(strings.TrimSuffix(query, "."))
}

// bitrateOf parses a bitrate override, falling back to the default for
// absent or unsupported values.
func (e *Extractor) bitrateOf(override string) int {
	if override == "" {
		return e.defaultBitrate
	}
	value, err := strconv.Atoi(override)
	if err != nil || !bot.IsValidBitrate(value) {
		return e.defaultBitrate
	}
	return value
}
