// Package locale loads user-facing message packs from JSON files and
// falls back to the builtin English pack for missing keys.
package locale

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Pack holds every user-facing and operational-log template. Templates
// use fmt verbs and are rendered with Pack helper methods.
type Pack struct {
	Start         string `json:"start"`
	Help          string `json:"help"`
	SongText      string `json:"songText"`
	DownloadInit  string `json:"downloadInit"`
	Downloading   string `json:"downloading"`
	Uploading     string `json:"uploading"`
	Secs          string `json:"secs"`
	SendFailed    string `json:"sendFailed"`
	NotFound      string `json:"notFound"`
	NotUnderstood string `json:"notUnderstood"`
	InlineHint    string `json:"inlineHint"`
	LogStart      string `json:"logStart"`
	LogHelp       string `json:"logHelp"`
	LogSearch     string `json:"logSearch"`
	LogInline     string `json:"logInline"`
	LogUnknown    string `json:"logUnknown"`
}

// Builtin returns the builtin English pack.
func Builtin() *Pack {
	return &Pack{
		Start:         "Send me a music.163.com song link or a numeric song ID and I will fetch the audio for you.",
		Help:          "Usage:\n- send a numeric song ID, e.g. 36990266\n- send a song page link, e.g. https://music.163.com/#/song?id=36990266\n- append .128 / .192 / .320 to pick a bitrate\n- in inline mode, end the query with a dot to search",
		SongText:      "[%s](%s)\n%s\n[download](%s)",
		DownloadInit:  "Fetching song info...",
		Downloading:   "Downloading: %s %s %sKB/%sKB remaining %s",
		Uploading:     "Uploading to Telegram...",
		Secs:          "%ds",
		SendFailed:    "Failed to send the audio, please try again later.",
		NotFound:      "Song not found or unavailable.",
		NotUnderstood: "Sorry, I did not understand that. Try /help.",
		InlineHint:    "End your query with a dot to fetch, e.g. 36990266.",
		LogStart:      "%s started the bot",
		LogHelp:       "%s asked for help",
		LogSearch:     "%s requested [%skbps] %s - %s\n%s",
		LogInline:     "%s sent an inline query: %s",
		LogUnknown:    "%s sent something unrecognized: %s",
	}
}

// Load reads dir/<language>.json and overlays it on the builtin pack.
// A missing file for the default language "en" is not an error.
func Load(dir, language string) (*Pack, error) {
	pack := Builtin()

	path := filepath.Join(dir, language+".json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && language == "en" {
			return pack, nil
		}
		return nil, fmt.Errorf("read language pack %s: %w", path, err)
	}

	if err := json.Unmarshal(data, pack); err != nil {
		return nil, fmt.Errorf("parse language pack %s: %w", path, err)
	}

	return pack, nil
}

// FormatSongText renders the audio caption.
func (p *Pack) FormatSongText(title, pageURL, artistsMD, streamURL string) string {
	return fmt.Sprintf(p.SongText, title, pageURL, artistsMD, streamURL)
}

// FormatDownloading renders the progress message.
func (p *Pack) FormatDownloading(percent, speed, transferredKB, totalKB, remaining string) string {
	return fmt.Sprintf(p.Downloading, percent, speed, transferredKB, totalKB, remaining)
}

// FormatSecs renders a remaining-time value.
func (p *Pack) FormatSecs(seconds int64) string {
	return fmt.Sprintf(p.Secs, seconds)
}

// FormatLogStart renders the /start operational log line.
func (p *Pack) FormatLogStart(name string) string {
	return fmt.Sprintf(p.LogStart, name)
}

// FormatLogHelp renders the /help operational log line.
func (p *Pack) FormatLogHelp(name string) string {
	return fmt.Sprintf(p.LogHelp, name)
}

// FormatLogSearch renders the song-request operational log line.
func (p *Pack) FormatLogSearch(name, bitrate, artists, title, pageURL string) string {
	return fmt.Sprintf(p.LogSearch, name, bitrate, artists, title, pageURL)
}

// FormatLogInline renders the inline-query operational log line.
func (p *Pack) FormatLogInline(name, query string) string {
	return fmt.Sprintf(p.LogInline, name, query)
}

// FormatLogUnknown renders the unrecognized-input operational log line.
func (p *Pack) FormatLogUnknown(name, text string) string {
	return fmt.Sprintf(p.LogUnknown, name, text)
}
