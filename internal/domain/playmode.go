package domain

// PlayMode is the closed set of play-queue advancement strategies.
type PlayMode int

const (
	ModeSequential PlayMode = iota
	ModeListLoop
	ModeSingleLoop
	ModeShuffle
)

func (m PlayMode) String() string {
	switch m {
	case ModeSequential:
		return "sequential"
	case ModeListLoop:
		return "list_loop"
	case ModeSingleLoop:
		return "single_loop"
	case ModeShuffle:
		return "shuffle"
	default:
		return "unknown"
	}
}

// View is the closed set of TUI top-level views.
type View int

const (
	ViewLogin View = iota
	ViewPlaylists
	ViewSearch
	ViewLyrics
	ViewSettings
)

func (v View) String() string {
	switch v {
	case ViewLogin:
		return "login"
	case ViewPlaylists:
		return "playlists"
	case ViewSearch:
		return "search"
	case ViewLyrics:
		return "lyrics"
	case ViewSettings:
		return "settings"
	default:
		return "unknown"
	}
}

// RequestKind is the closed set of request-tracker slots (spec §4.5/§4.8).
type RequestKind int

const (
	KindSearch RequestKind = iota
	KindLoginQrKey
	KindLoginQrPoll
	KindAccount
	KindPlaylists
	KindPlaylistDetail
	KindPlaylistTracks
	KindSongURL
	KindLyric
)

func (k RequestKind) String() string {
	switch k {
	case KindSearch:
		return "search"
	case KindLoginQrKey:
		return "login_qr_key"
	case KindLoginQrPoll:
		return "login_qr_poll"
	case KindAccount:
		return "account"
	case KindPlaylists:
		return "playlists"
	case KindPlaylistDetail:
		return "playlist_detail"
	case KindPlaylistTracks:
		return "playlist_tracks"
	case KindSongURL:
		return "song_url"
	case KindLyric:
		return "lyric"
	default:
		return "unknown"
	}
}
