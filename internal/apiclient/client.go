// Package apiclient adapts the external catalog HTTP API (spec §4.10,
// "out of scope, treated as external collaborator via narrow
// interfaces") behind the Client interface the reducer's API worker and
// the prefetch/preload packages depend on. Requests are signed with the
// internal/apiclient/crypto envelope and carried over a cookie-jar-backed
// resty client, the same request-builder style internal/transfer uses
// for downloads.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/http/cookiejar"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sorairo/resonance/internal/apiclient/crypto"
	"github.com/sorairo/resonance/internal/apperr"
	"github.com/sorairo/resonance/internal/domain"
)

// Client is the narrow surface the reducer and the prefetch/preload
// managers depend on. A restyClient is the only production
// implementation; tests substitute fakes.
type Client interface {
	AnonymousSession(ctx context.Context) error
	QRKey(ctx context.Context) (qrToken, imgURL string, err error)
	QRPoll(ctx context.Context, qrToken string) (domain.LoginQrStatus, error)
	Search(ctx context.Context, query string) ([]domain.Track, error)
	Playlists(ctx context.Context) ([]domain.Playlist, error)
	PlaylistTracks(ctx context.Context, playlistID int64) ([]domain.Track, error)
	ResolveSongURL(ctx context.Context, trackID, bitrate int64) (string, error)
	Lyric(ctx context.Context, trackID int64) ([]domain.LyricLine, error)

	// FetchPlaylistTrackIDs/FetchTracksByIDs split PlaylistTracks into the
	// two-step paged shape internal/preload.TrackFetcher needs for bulk
	// hydration.
	FetchPlaylistTrackIDs(ctx context.Context, playlistID int64) ([]int64, error)
	FetchTracksByIDs(ctx context.Context, playlistID int64, ids []int64) ([]domain.Track, error)
}

// Config configures the restyClient.
type Config struct {
	BaseURL        string
	DeviceID       string
	HTTPTimeout    time.Duration
	ConnectTimeout time.Duration
}

// restyClient is the production Client.
type restyClient struct {
	cfg    Config
	client *resty.Client
}

// New builds a restyClient with its own cookie jar (the caller persists
// and restores it via internal/authstate across runs).
func New(cfg Config, jar *cookiejar.Jar) *restyClient {
	if cfg.HTTPTimeout <= 0 {
		cfg.HTTPTimeout = 15 * time.Second
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 5 * time.Second
	}
	httpClient := &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{Timeout: cfg.ConnectTimeout}).DialContext,
		},
		Timeout: cfg.HTTPTimeout,
		Jar:     jar,
	}
	return &restyClient{cfg: cfg, client: resty.NewWithClient(httpClient)}
}

// doEapi signs payload for uri, posts it, decrypts the response, and
// unmarshals it into out (which may be nil to discard the body).
func (c *restyClient) doEapi(ctx context.Context, uri string, payload map[string]any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return apperr.Protocol("marshal request payload", err)
	}
	params, err := crypto.EncodeEapi(uri, body)
	if err != nil {
		return apperr.Protocol("sign request", err)
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(map[string]string{"params": params}).
		Post(c.cfg.BaseURL + uri)
	if err != nil {
		return apperr.Transient(fmt.Sprintf("request %s", uri), err)
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return apperr.Transient(fmt.Sprintf("%s returned HTTP %d", uri, resp.StatusCode()), nil)
	}

	plain, err := crypto.DecodeEapi(string(resp.Body()))
	if err != nil {
		return apperr.Protocol(fmt.Sprintf("decode %s response", uri), err)
	}

	var envelope struct {
		Code int `json:"code"`
	}
	if err := json.Unmarshal(plain, &envelope); err != nil {
		return apperr.Protocol(fmt.Sprintf("parse %s envelope", uri), err)
	}
	if envelope.Code == 301 {
		return apperr.Auth(fmt.Sprintf("%s: session expired", uri), nil)
	}
	// QR login polling reports its status as codes 800-803 (see QRPoll),
	// so those pass through to the caller's own mapping.
	isQRStatus := envelope.Code >= qrCodeExpired && envelope.Code <= qrCodeConfirmed
	if envelope.Code != 0 && envelope.Code != 200 && !isQRStatus {
		return apperr.Protocol(fmt.Sprintf("%s returned code %d", uri, envelope.Code), nil)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(plain, out); err != nil {
		return apperr.Protocol(fmt.Sprintf("unmarshal %s response", uri), err)
	}
	return nil
}
