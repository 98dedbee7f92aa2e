package apiclient

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sorairo/resonance/internal/apperr"
	"github.com/sorairo/resonance/internal/domain"
)

func (c *restyClient) AnonymousSession(ctx context.Context) error {
	return c.doEapi(ctx, "/api/register/anonimous", map[string]any{
		"username": c.cfg.DeviceID,
	}, nil)
}

func (c *restyClient) QRKey(ctx context.Context) (string, string, error) {
	var out struct {
		Data struct {
			UniKey string `json:"unikey"`
		} `json:"data"`
	}
	if err := c.doEapi(ctx, "/api/login/qrcode/unikey", map[string]any{"type": 1}, &out); err != nil {
		return "", "", err
	}
	imgURL := "https://music.163.com/login?codekey=" + out.Data.UniKey
	return out.Data.UniKey, imgURL, nil
}

// QR poll status codes the catalog API returns, translated into
// domain.LoginQrStatus.
const (
	qrCodeExpired   = 800
	qrCodeWaiting   = 801
	qrCodeScanned   = 802
	qrCodeConfirmed = 803
)

func (c *restyClient) QRPoll(ctx context.Context, qrToken string) (domain.LoginQrStatus, error) {
	var out struct {
		Code int `json:"code"`
	}
	if err := c.doEapi(ctx, "/api/login/qrcode/client/login", map[string]any{
		"key":  qrToken,
		"type": 1,
	}, &out); err != nil {
		return domain.LoginQrExpired, err
	}
	switch out.Code {
	case qrCodeExpired:
		return domain.LoginQrExpired, nil
	case qrCodeScanned:
		return domain.LoginQrScanned, nil
	case qrCodeConfirmed:
		return domain.LoginQrConfirmed, nil
	default:
		return domain.LoginQrPending, nil
	}
}

func (c *restyClient) Search(ctx context.Context, query string) ([]domain.Track, error) {
	var out struct {
		Result struct {
			Songs []catalogSong `json:"songs"`
		} `json:"result"`
	}
	if err := c.doEapi(ctx, "/api/search/get", map[string]any{
		"s":    query,
		"type": 1,
		"limit": 30,
	}, &out); err != nil {
		return nil, err
	}
	return songsToTracks(out.Result.Songs), nil
}

func (c *restyClient) Playlists(ctx context.Context) ([]domain.Playlist, error) {
	var out struct {
		Playlist []struct {
			ID          int64  `json:"id"`
			Name        string `json:"name"`
			TrackCount  int64  `json:"trackCount"`
			SpecialType int64  `json:"specialType"`
			CoverImgURL string `json:"coverImgUrl"`
		} `json:"playlist"`
	}
	if err := c.doEapi(ctx, "/api/user/playlist", map[string]any{}, &out); err != nil {
		return nil, err
	}
	playlists := make([]domain.Playlist, len(out.Playlist))
	for i, p := range out.Playlist {
		playlists[i] = domain.Playlist{
			ID: p.ID, Name: p.Name, TrackCount: p.TrackCount,
			SpecialType: p.SpecialType, CoverURL: p.CoverImgURL,
		}
	}
	return playlists, nil
}

func (c *restyClient) PlaylistTracks(ctx context.Context, playlistID int64) ([]domain.Track, error) {
	ids, err := c.FetchPlaylistTrackIDs(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	return c.FetchTracksByIDs(ctx, playlistID, ids)
}

func (c *restyClient) FetchPlaylistTrackIDs(ctx context.Context, playlistID int64) ([]int64, error) {
	var out struct {
		Playlist struct {
			TrackIds []struct {
				ID int64 `json:"id"`
			} `json:"trackIds"`
		} `json:"playlist"`
	}
	if err := c.doEapi(ctx, "/api/v6/playlist/detail", map[string]any{
		"id": strconv.FormatInt(playlistID, 10),
	}, &out); err != nil {
		return nil, err
	}
	ids := make([]int64, len(out.Playlist.TrackIds))
	for i, t := range out.Playlist.TrackIds {
		ids[i] = t.ID
	}
	return ids, nil
}

func (c *restyClient) FetchTracksByIDs(ctx context.Context, playlistID int64, ids []int64) ([]domain.Track, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = strconv.FormatInt(id, 10)
	}
	var out struct {
		Songs []catalogSong `json:"songs"`
	}
	if err := c.doEapi(ctx, "/api/v3/song/detail", map[string]any{
		"c": "[" + strings.Join(quoteEach(strIDs), ",") + "]",
	}, &out); err != nil {
		return nil, err
	}
	return songsToTracks(out.Songs), nil
}

func (c *restyClient) ResolveSongURL(ctx context.Context, trackID, bitrate int64) (string, error) {
	var out struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := c.doEapi(ctx, "/api/song/enhance/player/url", map[string]any{
		"ids": "[" + strconv.FormatInt(trackID, 10) + "]",
		"br":  bitrate,
	}, &out); err != nil {
		return "", err
	}
	if len(out.Data) == 0 || out.Data[0].URL == "" {
		return "", apperr.Transient(fmt.Sprintf("no playable url for track %d", trackID), nil)
	}
	return out.Data[0].URL, nil
}

func (c *restyClient) Lyric(ctx context.Context, trackID int64) ([]domain.LyricLine, error) {
	var out struct {
		Lrc struct {
			Lyric string `json:"lyric"`
		} `json:"lrc"`
	}
	if err := c.doEapi(ctx, "/api/song/lyric", map[string]any{
		"id": trackID,
		"lv": -1,
	}, &out); err != nil {
		return nil, err
	}
	return parseLRC(out.Lrc.Lyric), nil
}

type catalogSong struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Artists []struct {
		Name string `json:"name"`
	} `json:"ar"`
	Album struct {
		Name string `json:"name"`
	} `json:"al"`
	DurationMs int64 `json:"dt"`
}

func songsToTracks(songs []catalogSong) []domain.Track {
	tracks := make([]domain.Track, len(songs))
	for i, s := range songs {
		names := make([]string, len(s.Artists))
		for j, a := range s.Artists {
			names[j] = a.Name
		}
		tracks[i] = domain.Track{
			ID:         s.ID,
			Title:      s.Name,
			Artists:    strings.Join(names, ", "),
			Album:      s.Album.Name,
			DurationMs: s.DurationMs,
		}
	}
	return tracks
}

func quoteEach(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = `{"id":` + s + `}`
	}
	return out
}
