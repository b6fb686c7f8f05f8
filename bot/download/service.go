// Package download streams signed audio URLs to local files with
// throttled progress reporting.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/song163bot/song163bot/bot"
)

// ProgressFunc receives throttled delivery progress updates.
type ProgressFunc func(progress bot.DeliveryProgress)

// progressInterval throttles progress callbacks so message edits stay
// under the Telegram rate limit.
const progressInterval = 2 * time.Second

// Service downloads audio streams.
type Service struct {
	client  *http.Client
	timeout time.Duration
	destDir string
}

// Options configures a download Service.
type Options struct {
	Timeout time.Duration
	DestDir string
}

// NewService creates a download Service writing files under DestDir.
func NewService(opts Options) *Service {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   minDuration(opts.Timeout, 10*time.Second),
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   minDuration(opts.Timeout, 10*time.Second),
		ResponseHeaderTimeout: minDuration(opts.Timeout, 10*time.Second),
		ExpectContinueTimeout: 1 * time.Second,
	}

	destDir := opts.DestDir
	if destDir == "" {
		destDir = os.TempDir()
	}

	return &Service{
		client:  &http.Client{Transport: transport},
		timeout: opts.Timeout,
		destDir: destDir,
	}
}

// Download fetches streamURL into a uniquely named file derived from
// fileName under the service's destination directory and returns the
// final path. Concurrent downloads of the same song never share a
// path. The partial file is removed on failure.
func (s *Service) Download(ctx context.Context, streamURL, fileName string, progress ProgressFunc) (string, int64, error) {
	if streamURL == "" {
		return "", 0, errors.New("stream url missing")
	}
	if fileName == "" {
		return "", 0, errors.New("file name missing")
	}

	if err := os.MkdirAll(s.destDir, os.ModePerm); err != nil {
		return "", 0, err
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		path, written, err := s.downloadOnce(ctx, streamURL, fileName, progress)
		if err == nil {
			return path, written, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", 0, ctx.Err()
		}
		if attempt < 2 {
			time.Sleep(time.Duration(1<<attempt) * time.Second)
		}
	}
	return "", 0, lastErr
}

func (s *Service) downloadOnce(ctx context.Context, streamURL, fileName string, progress ProgressFunc) (string, int64, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, streamURL, nil)
	if err != nil {
		return "", 0, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("download failed with status %d", resp.StatusCode)
	}

	file, err := os.CreateTemp(s.destDir, tempPattern(fileName))
	if err != nil {
		return "", 0, err
	}
	defer file.Close()

	written, err := copyWithProgress(file, resp.Body, resp.ContentLength, progress)
	if err != nil {
		_ = os.Remove(file.Name())
		return "", written, err
	}
	return file.Name(), written, nil
}

// tempPattern places the random part before the extension so the
// downloaded file keeps its type suffix.
func tempPattern(fileName string) string {
	ext := filepath.Ext(fileName)
	return strings.TrimSuffix(fileName, ext) + ".*" + ext
}

func copyWithProgress(dst io.Writer, src io.Reader, total int64, progress ProgressFunc) (int64, error) {
	buf := make([]byte, 128*1024)
	var written int64
	start := time.Now()
	lastUpdate := start

	for {
		n, err := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
			if progress != nil && time.Since(lastUpdate) >= progressInterval {
				progress(snapshot(written, total, start))
				lastUpdate = time.Now()
			}
		}
		if err != nil {
			if err == io.EOF {
				if progress != nil {
					progress(snapshot(written, total, start))
				}
				return written, nil
			}
			return written, err
		}
	}
}

func snapshot(written, total int64, start time.Time) bot.DeliveryProgress {
	elapsed := time.Since(start)
	var speed int64
	if seconds := elapsed.Seconds(); seconds > 0 {
		speed = int64(float64(written) / seconds)
	}
	return bot.DeliveryProgress{
		Written:  written,
		Total:    total,
		SpeedBps: speed,
		Elapsed:  elapsed,
	}
}

func minDuration(a, b time.Duration) time.Duration {
	if a == 0 || a > b {
		return b
	}
	return a
}
