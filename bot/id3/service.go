// Package id3 embeds metadata and cover art into downloaded mp3 files.
package id3

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2"

	botpkg "github.com/song163bot/song163bot/bot"
)

// ErrUnsupportedFormat reports a file extension the tagger cannot
// handle. The resolver serves mp3 streams, anything else is skipped.
var ErrUnsupportedFormat = errors.New("unsupported audio format for tags")

// Service writes ID3v2 tags.
type Service struct {
	logger botpkg.Logger
}

// NewService creates a tagging Service.
func NewService(logger botpkg.Logger) *Service {
	return &Service{logger: logger}
}

// EmbedTags writes title, artist, album and cover art into the mp3 at
// audioPath. coverArt may be nil.
func (s *Service) EmbedTags(audioPath string, song *botpkg.ResolvedSong, coverArt []byte) error {
	if song == nil {
		return nil
	}
	if strings.ToLower(filepath.Ext(audioPath)) != ".mp3" {
		return ErrUnsupportedFormat
	}

	meta, err := id3v2.Open(audioPath, id3v2.Options{Parse: true})
	if err != nil {
		return err
	}
	defer meta.Close()

	meta.SetDefaultEncoding(id3v2.EncodingUTF8)
	if song.Title != "" {
		meta.SetTitle(song.Title)
	}
	if names := song.ArtistNames(); names != "" {
		meta.SetArtist(names)
	}
	if song.AlbumName != "" {
		meta.SetAlbum(song.AlbumName)
	}

	if len(coverArt) > 0 {
		mime := http.DetectContentType(coverArt[:minInt(len(coverArt), 512)])
		meta.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingISO,
			MimeType:    mime,
			PictureType: id3v2.PTFrontCover,
			Description: "Front cover",
			Picture:     coverArt,
		})
	}

	return meta.Save()
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
