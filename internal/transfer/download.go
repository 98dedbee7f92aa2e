package transfer

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-resty/resty/v2"
)

const downloadChunkSize = 64 * 1024

func newHTTPClient(cfg Config) *resty.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.HTTPConnectTimeout,
		}).DialContext,
	}
	client := resty.NewWithClient(&http.Client{
		Transport: transport,
		Timeout:   cfg.HTTPTimeout,
	})
	return client
}

// tmpPathFor builds the collision-avoiding temp file name from spec §4.2:
// "{track_id}_{bitrate}.{now_ms}.{seq}.tmp".
func tmpPathFor(dir string, trackID, bitrate int64, nowMs, seq uint64) string {
	name := fmt.Sprintf("%d_%d.%d.%d.tmp", trackID, bitrate, nowMs, seq)
	return filepath.Join(dir, name)
}

// downloadWithRetry streams url into a fresh temp file under dir, retrying
// up to cfg.Retries additional times with exponential backoff on any
// failure (network error or non-2xx status). It returns the temp file path
// on success; the caller owns deleting it on any later failure.
func downloadWithRetry(ctx context.Context, client *resty.Client, cfg Config, dir string, trackID, bitrate int64, nowMs func() uint64, seq uint64, url, title string) (string, error) {
	var lastErr error
	attempts := cfg.Retries + 1
	backoff := cfg.RetryBackoff

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := backoff
			if wait > cfg.RetryBackoffMax {
				wait = cfg.RetryBackoffMax
			}
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			backoff *= 2
		}

		dest := tmpPathFor(dir, trackID, bitrate, nowMs(), seq)
		if err := downloadOnce(ctx, client, url, title, dest); err != nil {
			lastErr = err
			os.Remove(dest)
			continue
		}
		return dest, nil
	}
	return "", lastErr
}

func downloadOnce(ctx context.Context, client *resty.Client, url, title, dest string) error {
	resp, err := client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return fmt.Errorf("download audio (%s): %w", title, err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("download audio (%s): HTTP %d", title, resp.StatusCode())
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create temp file (%s): %w", title, err)
	}
	defer out.Close()

	buf := make([]byte, downloadChunkSize)
	if _, err := io.CopyBuffer(out, body, buf); err != nil {
		return fmt.Errorf("write temp file (%s): %w", title, err)
	}
	return nil
}
