package id3

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"time"

	"github.com/nfnt/resize"
)

const (
	maxCoverSize  = 10 * 1024 * 1024
	thumbnailEdge = 320
)

// FetchCover downloads album art. Failures are non-fatal to the
// delivery pipeline, callers log and continue without art.
func FetchCover(ctx context.Context, url string) ([]byte, error) {
	if url == "" {
		return nil, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch cover failed with status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, maxCoverSize))
}

// Thumbnail scales cover art down to the Telegram audio thumbnail
// size and re-encodes it as JPEG.
func Thumbnail(coverArt []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(coverArt))
	if err != nil {
		return nil, fmt.Errorf("decode cover: %w", err)
	}

	scaled := resize.Thumbnail(thumbnailEdge, thumbnailEdge, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, scaled, &jpeg.Options{Quality: 85}); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
