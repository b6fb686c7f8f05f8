// Package resolver talks to the sign-based song resolver API and turns
// song requests into resolved descriptors with a signed stream URL.
package resolver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"

	"github.com/song163bot/song163bot/bot"
)

var (
	// ErrSongNotFound reports that the resolver has no entry for the
	// requested song or bitrate.
	ErrSongNotFound = errors.New("resolver: song not found")
	// ErrMalformedResponse reports a response body that could not be
	// decoded into song metadata.
	ErrMalformedResponse = errors.New("resolver: malformed response")
	// ErrUnavailable reports that the resolver is temporarily
	// unreachable, either directly or via an open circuit breaker.
	ErrUnavailable = errors.New("resolver: unavailable")
)

const maxResponseSize = 1 << 20 // 1 MiB

// Client resolves songs against a remote resolver host.
type Client struct {
	host     string
	apiPath  string
	pageHost string
	http     *retryablehttp.Client
	breaker  *gobreaker.CircuitBreaker
	logger   bot.Logger
}

// response mirrors the resolver wire format.
type response struct {
	Sign string `json:"sign"`
	Song struct {
		Name   string `json:"name"`
		Artist []struct {
			Name string `json:"name"`
			ID   int64  `json:"id"`
		} `json:"artist"`
		Album struct {
			ID     int64  `json:"id"`
			Name   string `json:"name"`
			PicURL string `json:"picUrl"`
		} `json:"album"`
	} `json:"song"`
}

// New creates a resolver Client for the given host and API path.
func New(host, apiPath, pageHost string, logger bot.Logger) *Client {
	httpClient := retryablehttp.NewClient()
	httpClient.RetryMax = 3
	httpClient.RetryWaitMin = 500 * time.Millisecond
	httpClient.RetryWaitMax = 5 * time.Second
	httpClient.HTTPClient.Timeout = 30 * time.Second
	httpClient.Logger = nil

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "resolver",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("resolver breaker state change", "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		host:     strings.TrimSuffix(host, "/"),
		apiPath:  "/" + strings.Trim(apiPath, "/"),
		pageHost: strings.TrimSuffix(pageHost, "/"),
		http:     httpClient,
		breaker:  breaker,
		logger:   logger,
	}
}

// Resolve fetches metadata and the signed stream URL for a request.
// Only transport and server failures count against the circuit
// breaker; a stream of unknown song IDs is user input, not an outage.
func (c *Client) Resolve(ctx context.Context, req bot.SongRequest) (*bot.ResolvedSong, error) {
	var song *bot.ResolvedSong
	var resolveErr error
	_, err := c.breaker.Execute(func() (interface{}, error) {
		song, resolveErr = c.resolve(ctx, req)
		if errors.Is(resolveErr, ErrSongNotFound) || errors.Is(resolveErr, ErrMalformedResponse) {
			return nil, nil
		}
		return nil, resolveErr
	})
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w: circuit open", ErrUnavailable)
	case err != nil:
		return nil, err
	case resolveErr != nil:
		return nil, resolveErr
	}
	return song, nil
}

func (c *Client) resolve(ctx context.Context, req bot.SongRequest) (*bot.ResolvedSong, error) {
	url := fmt.Sprintf("%s%s/%s/%s", c.host, c.apiPath, req.SongID, req.BitrateHz())

	httpReq, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build resolver request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrSongNotFound
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read resolver response: %w", err)
	}

	var wire response
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if wire.Sign == "" || wire.Song.Name == "" {
		return nil, fmt.Errorf("%w: missing sign or song name", ErrMalformedResponse)
	}

	artists := make([]bot.Artist, 0, len(wire.Song.Artist))
	for _, a := range wire.Song.Artist {
		artistID := strconv.FormatInt(a.ID, 10)
		artists = append(artists, bot.Artist{
			Name: a.Name,
			ID:   artistID,
			URL:  fmt.Sprintf("%s/#/artist?id=%s", c.pageHost, artistID),
		})
	}

	albumID := strconv.FormatInt(wire.Song.Album.ID, 10)
	return &bot.ResolvedSong{
		SongID:      req.SongID,
		Title:       wire.Song.Name,
		Artists:     artists,
		AlbumID:     albumID,
		AlbumName:   wire.Song.Album.Name,
		AlbumArtURL: wire.Song.Album.PicURL,
		PageURL:     fmt.Sprintf("%s/#/song?id=%s", c.pageHost, req.SongID),
		AlbumURL:    fmt.Sprintf("%s/#/album?id=%s", c.pageHost, albumID),
		StreamURL:   fmt.Sprintf("%s/%s/%s/%s", c.host, req.SongID, req.BitrateHz(), wire.Sign),
		PlayerURL:   fmt.Sprintf("%s/%s/%s", c.host, req.SongID, req.BitrateHz()),
	}, nil
}
