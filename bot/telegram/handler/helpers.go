package handler

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mymmrac/telego"

	botpkg "github.com/song163bot/song163bot/bot"
	"github.com/song163bot/song163bot/bot/locale"
)

// messageText collects all text a song reference may hide in: the
// message text, media caption and embedded text_link entity URLs.
func messageText(message *telego.Message) string {
	if message == nil {
		return ""
	}

	parts := make([]string, 0, 4)
	if message.Text != "" {
		parts = append(parts, message.Text)
	}
	if message.Caption != "" {
		parts = append(parts, message.Caption)
	}
	for _, entity := range message.Entities {
		if entity.Type == telego.EntityTypeTextLink && entity.URL != "" {
			parts = append(parts, entity.URL)
		}
	}
	for _, entity := range message.CaptionEntities {
		if entity.Type == telego.EntityTypeTextLink && entity.URL != "" {
			parts = append(parts, entity.URL)
		}
	}
	return strings.Join(parts, " ")
}

// displayName renders "First Last (username)" for operational logs,
// falling back to the numeric ID when there is no username.
func displayName(message *telego.Message) string {
	if message == nil {
		return ""
	}
	if message.From != nil {
		return userDisplayName(message.From)
	}

	chat := message.Chat
	name := chat.FirstName
	if chat.LastName != "" {
		name += " " + chat.LastName
	}
	handle := chat.Username
	if handle == "" {
		handle = strconv.FormatInt(chat.ID, 10)
	}
	return strings.TrimSpace(name) + " (" + handle + ")"
}

func userDisplayName(user *telego.User) string {
	if user == nil {
		return ""
	}
	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}
	handle := user.Username
	if handle == "" {
		handle = strconv.FormatInt(user.ID, 10)
	}
	return strings.TrimSpace(name) + " (" + handle + ")"
}

// artistsMarkdown renders artists as markdown links joined by " / ".
func artistsMarkdown(artists []botpkg.Artist) string {
	links := make([]string, 0, len(artists))
	for _, artist := range artists {
		links = append(links, fmt.Sprintf("[%s](%s)", artist.Name, artist.URL))
	}
	return strings.Join(links, " / ")
}

// progressText renders a download progress line.
func progressText(pack *locale.Pack, p botpkg.DeliveryProgress) string {
	remaining := pack.FormatSecs(int64(p.ETASeconds()))
	return pack.FormatDownloading(
		fmt.Sprintf("%d%%", p.Percent()),
		fmt.Sprintf("%dKb/s", p.SpeedBps/1000),
		strconv.FormatInt(p.Written/1000, 10),
		strconv.FormatInt(p.Total/1000, 10),
		remaining,
	)
}
