package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/sorairo/resonance/internal/apiclient"
	"github.com/sorairo/resonance/internal/audio"
	"github.com/sorairo/resonance/internal/domain"
	"github.com/sorairo/resonance/internal/prefetch"
	"github.com/sorairo/resonance/internal/preload"
	"github.com/sorairo/resonance/internal/queue"
	"github.com/sorairo/resonance/internal/reducer"
	"github.com/sorairo/resonance/internal/reqtracker"
	"github.com/sorairo/resonance/internal/snapshot"
)

// requestTimeout bounds every individual catalog API call dispatched from
// an effect; the UI already shows a loading state from the moment the
// request is issued, so a hung call must not hang the whole session.
const requestTimeout = 15 * time.Second

// hostLoop is the single-goroutine owner of reducer state: every inbound
// domain.Message (from the TUI, the audio engine, or an API reply) is
// reduced here, and the effects the reducer asks for are dispatched back
// out to the API client, the audio engine, and the TUI's snapshot feed.
// Reducer state needs no lock because only this goroutine touches it;
// internal/queue and internal/reqtracker, which are shared with other
// goroutines, each guard their own state with a mutex instead.
func hostLoop(
	ctx context.Context,
	state *reducer.State,
	q *queue.Queue,
	tr *reqtracker.Tracker,
	apiClient apiclient.Client,
	engine *audio.Engine,
	prefetcher *prefetch.Prefetcher,
	preloadMgr *preload.Manager,
	inbox chan domain.Message,
	snapshots chan<- snapshot.Snapshot,
	latest *snapshotHolder,
) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-inbox:
			newState, effects := reducer.Reduce(*state, q, tr, msg)
			*state = newState
			applyHostSideEffects(ctx, msg, state, q, prefetcher, preloadMgr)
			dispatchEffects(ctx, effects, state, apiClient, engine, inbox, snapshots, latest)
		}
	}
}

// applyHostSideEffects keeps the play queue and the prefetcher's
// generation counter in sync with events the reducer's pure Handle
// functions have no access to (q and the prefetcher are host-owned
// collaborators, not reducer state). This is plain wiring, not business
// logic: the reducer has already decided what happened, this only tells
// the queue/prefetcher about it.
func applyHostSideEffects(ctx context.Context, msg domain.Message, state *reducer.State, q *queue.Queue, prefetcher *prefetch.Prefetcher, preloadMgr *preload.Manager) {
	switch m := msg.(type) {
	case domain.MsgSearchResultsReceived:
		q.SetSongs(m.Tracks, 0)
		prefetcher.InvalidateGeneration()

	case domain.MsgPlaylistTracksReceived:
		q.SetSongs(m.Tracks, 0)
		prefetcher.InvalidateGeneration()

	case domain.MsgPlaylistOpened:
		preloadMgr.Preload(ctx, m.PlaylistID)

	case domain.MsgModeChanged:
		prefetcher.InvalidateGeneration()

	case domain.MsgAudioStopped:
		prefetcher.InvalidateGeneration()

	case domain.MsgAudioNowPlaying:
		prefetcher.SetBitrate(state.Player.Bitrate)
		prefetcher.OnPlaybackStarted(ctx, q)
	}
}

func dispatchEffects(
	ctx context.Context,
	effects []domain.Effect,
	state *reducer.State,
	apiClient apiclient.Client,
	engine *audio.Engine,
	inbox chan<- domain.Message,
	snapshots chan<- snapshot.Snapshot,
	latest *snapshotHolder,
) {
	for _, eff := range effects {
		switch e := eff.(type) {
		case domain.EffectEmitSnapshot:
			snap := snapshot.Build(*state, state.View)
			latest.set(snap)
			select {
			case snapshots <- snap:
			case <-ctx.Done():
			}

		case domain.EffectEmitToast:
			slog.Info("toast", "text", e.Text)

		case domain.EffectEmitError:
			slog.Error("reducer error", "error", e.Err)

		case domain.EffectSendAPIHigh:
			go dispatchAPICmd(ctx, apiClient, e.Cmd, inbox)

		case domain.EffectSendAPILow:
			go dispatchAPICmd(ctx, apiClient, e.Cmd, inbox)

		case domain.EffectSendAudio:
			dispatchAudioCmd(ctx, engine, e.Cmd)
		}
	}
}

func dispatchAPICmd(ctx context.Context, c apiclient.Client, cmd domain.APICmd, inbox chan<- domain.Message) {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var reply domain.Message
	switch c2 := cmd.(type) {
	case domain.APICmdQRKey:
		qrToken, imgURL, err := c.QRKey(reqCtx)
		if err != nil {
			reply = domain.MsgLoginFailed{ReqToken: c2.Token, Message: err.Error()}
		} else {
			reply = domain.MsgLoginQrKeyReceived{ReqToken: c2.Token, QrToken: qrToken, ImgURL: imgURL}
		}

	case domain.APICmdQRPoll:
		status, err := c.QRPoll(reqCtx, c2.QRToken)
		if err != nil {
			reply = domain.MsgLoginFailed{ReqToken: c2.Token, Message: err.Error()}
		} else {
			reply = domain.MsgLoginPollResult{ReqToken: c2.Token, Status: status}
		}

	case domain.APICmdSearch:
		tracks, err := c.Search(reqCtx, c2.Query)
		if err != nil {
			reply = domain.MsgSearchFailed{ReqToken: c2.Token, Message: err.Error()}
		} else {
			reply = domain.MsgSearchResultsReceived{ReqToken: c2.Token, Tracks: tracks}
		}

	case domain.APICmdPlaylists:
		playlists, err := c.Playlists(reqCtx)
		if err != nil {
			reply = domain.MsgPlaylistsFailed{ReqToken: c2.Token, Message: err.Error()}
		} else {
			reply = domain.MsgPlaylistsReceived{ReqToken: c2.Token, Playlists: playlists}
		}

	case domain.APICmdPlaylistTracks:
		tracks, err := c.PlaylistTracks(reqCtx, c2.PlaylistID)
		if err != nil {
			reply = domain.MsgPlaylistsFailed{ReqToken: c2.Token, Message: err.Error()}
		} else {
			reply = domain.MsgPlaylistTracksReceived{ReqToken: c2.Token, PlaylistID: c2.PlaylistID, Tracks: tracks}
		}

	case domain.APICmdSongURL:
		url, err := c.ResolveSongURL(reqCtx, c2.TrackID, c2.Bitrate)
		if err != nil {
			reply = domain.MsgSongURLFailed{ReqToken: c2.Token, TrackID: c2.TrackID, Message: err.Error()}
		} else {
			reply = domain.MsgSongURLReceived{ReqToken: c2.Token, TrackID: c2.TrackID, Bitrate: c2.Bitrate, URL: url}
		}

	case domain.APICmdLyric:
		lines, err := c.Lyric(reqCtx, c2.TrackID)
		if err != nil {
			reply = domain.MsgLyricFailed{ReqToken: c2.Token, Message: err.Error()}
		} else {
			reply = domain.MsgLyricReceived{ReqToken: c2.Token, TrackID: c2.TrackID, Lines: lines}
		}

	default:
		slog.Warn("unhandled API command", "cmd", cmd)
		return
	}

	select {
	case inbox <- reply:
	case <-ctx.Done():
	}
}

func dispatchAudioCmd(ctx context.Context, engine *audio.Engine, cmd domain.AudioCmd) {
	var err error
	switch c := cmd.(type) {
	case domain.AudioCmdPlayTrack:
		err = engine.PlayTrack(ctx, c.TrackID, c.Bitrate, c.URL, c.Title)
	case domain.AudioCmdTogglePause:
		err = engine.TogglePause(ctx)
	case domain.AudioCmdStop:
		err = engine.Stop(ctx)
	case domain.AudioCmdSeekToMs:
		err = engine.SeekToMs(ctx, c.Ms)
	case domain.AudioCmdSetVolume:
		err = engine.SetVolume(ctx, c.Volume)
	case domain.AudioCmdSetCrossfadeMs:
		err = engine.SetCrossfadeMs(ctx, c.Ms)
	case domain.AudioCmdClearCache:
		err = engine.ClearCache(ctx)
	case domain.AudioCmdSetCacheBr:
		err = engine.SetCacheBr(ctx, c.Bitrate)
	case domain.AudioCmdPrefetchAudio:
		err = engine.PrefetchAudio(ctx, c.TrackID, c.Bitrate, c.URL, c.Title)
	default:
		slog.Warn("unhandled audio command", "cmd", cmd)
		return
	}
	if err != nil {
		slog.Warn("audio command failed", "error", err)
	}
}

// audioEventPump translates audio engine events into reducer messages.
func audioEventPump(ctx context.Context, engine *audio.Engine, inbox chan<- domain.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-engine.Events():
			msg := audioEventToMessage(evt)
			if msg == nil {
				continue
			}
			select {
			case inbox <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

func audioEventToMessage(evt audio.Event) domain.Message {
	switch evt.Kind {
	case audio.EventNowPlaying:
		return domain.MsgAudioNowPlaying{
			TrackID:     evt.TrackID,
			PlayID:      evt.PlayID,
			Title:       evt.Title,
			DurationMs:  evt.DurationMs,
			HasDuration: evt.HasDuration,
		}
	case audio.EventPaused:
		return domain.MsgAudioPaused{Paused: evt.Paused}
	case audio.EventStopped:
		return domain.MsgAudioStopped{}
	case audio.EventEnded:
		return domain.MsgAudioEnded{PlayID: evt.PlayID}
	case audio.EventError:
		return domain.MsgAudioError{Message: evt.Message}
	case audio.EventNeedsReload:
		return domain.MsgAudioNeedsReload{}
	default:
		return nil
	}
}

// preloadEventPump logs background playlist-hydration progress. There is
// no dedicated view for this (spec scope stops at the track listing the
// user explicitly opened), so completion/failure is observability only.
func preloadEventPump(ctx context.Context, mgr *preload.Manager) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt := <-mgr.Events():
			slog.Info("playlist preload progress",
				"playlist_id", evt.PlaylistID,
				"status", evt.Progress.Status,
				"loaded", evt.Progress.Loaded,
				"total", evt.Progress.Total,
			)
		}
	}
}

// loginTicker drives the QR-login poll loop. login.Handle ignores the
// tick whenever it isn't mid-poll, so this can fire unconditionally for
// the process lifetime rather than being started/stopped around login.
func loginTicker(ctx context.Context, inbox chan<- domain.Message) {
	ticker := time.NewTicker(loginPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			select {
			case inbox <- domain.MsgLoginPollTick{}:
			case <-ctx.Done():
				return
			}
		}
	}
}
