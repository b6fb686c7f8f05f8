package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/song163bot/song163bot/bot"
)

func TestMatch(t *testing.T) {
	extractor := New(320)

	tests := []struct {
		name    string
		text    string
		want    bot.SongRequest
		matched bool
	}{
		{
			name:    "bare numeric id",
			text:    "36990266",
			want:    bot.SongRequest{SongID: "36990266", Bitrate: 320},
			matched: true,
		},
		{
			name:    "bare id with bitrate override",
			text:    "36990266.128",
			want:    bot.SongRequest{SongID: "36990266", Bitrate: 128},
			matched: true,
		},
		{
			name:    "path segment url",
			text:    "https://music.163.com/song/36990266/",
			want:    bot.SongRequest{SongID: "36990266", Bitrate: 320},
			matched: true,
		},
		{
			name:    "query parameter url",
			text:    "https://music.163.com/#/song?id=36990266",
			want:    bot.SongRequest{SongID: "36990266", Bitrate: 320},
			matched: true,
		},
		{
			name:    "query parameter url with override",
			text:    "https://music.163.com/#/song?id=36990266 .192",
			want:    bot.SongRequest{SongID: "36990266", Bitrate: 192},
			matched: true,
		},
		{
			name:    "unsupported override falls back",
			text:    "36990266.999",
			want:    bot.SongRequest{SongID: "36990266", Bitrate: 320},
			matched: true,
		},
		{
			name:    "digits mid-sentence do not match",
			text:    "call me at 12345",
			matched: false,
		},
		{
			name:    "plain chatter",
			text:    "hello there",
			matched: false,
		},
		{
			name:    "empty text",
			text:    "",
			matched: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := extractor.Match(tt.text)
			assert.Equal(t, tt.matched, ok)
			if tt.matched {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestMatchInline(t *testing.T) {
	extractor := New(320)

	_, ok := extractor.MatchInline("36990266")
	assert.False(t, ok, "query without trailing dot is incomplete")

	got, ok := extractor.MatchInline("36990266.")
	assert.True(t, ok)
	assert.Equal(t, bot.SongRequest{SongID: "36990266", Bitrate: 320}, got)

	got, ok = extractor.MatchInline("36990266.192.")
	assert.True(t, ok)
	assert.Equal(t, bot.SongRequest{SongID: "36990266", Bitrate: 192}, got)
}

func TestNewRejectsBadDefault(t *testing.T) {
	extractor := New(64)

	got, ok := extractor.Match("42")
	assert.True(t, ok)
	assert.Equal(t, 320, got.Bitrate)
}
