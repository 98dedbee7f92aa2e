package tuiapp

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sorairo/resonance/internal/domain"
	"github.com/sorairo/resonance/internal/snapshot"
)

const volumeStep = 0.05
const seekStepMs = 5000
const lyricOffsetStepMs = 100

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	activeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("120"))
)

// model is the bubbletea Model. It holds only display state; every
// piece of business state lives in the snapshot received on in.
type model struct {
	in  <-chan snapshot.Snapshot
	out chan<- domain.Message

	snap snapshot.Snapshot

	searchInput textinput.Model
	results     list.Model
	playlists   list.Model
	tracks      list.Model

	width, height int
	quitting      bool
}

func newModel(in <-chan snapshot.Snapshot, out chan<- domain.Message) model {
	ti := textinput.New()
	ti.Placeholder = "search…"
	ti.CharLimit = 200

	return model{
		in:          in,
		out:         out,
		searchInput: ti,
		results:     newList("Results"),
		playlists:   newList("Playlists"),
		tracks:      newList("Tracks"),
	}
}

func newList(title string) list.Model {
	l := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	return l
}

// snapshotMsg wraps a snapshot.Snapshot so it satisfies tea.Msg.
type snapshotMsg snapshot.Snapshot

func waitForSnapshot(in <-chan snapshot.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-in
		if !ok {
			return nil
		}
		return snapshotMsg(snap)
	}
}

func (m model) Init() tea.Cmd {
	return waitForSnapshot(m.in)
}

func (m model) send(msg domain.Message) tea.Cmd {
	return func() tea.Msg {
		m.out <- msg
		return nil
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case snapshotMsg:
		m = m.applySnapshot(snapshot.Snapshot(msg))
		return m, waitForSnapshot(m.in)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		contentHeight := msg.Height - 4
		if contentHeight < 3 {
			contentHeight = 3
		}
		m.results.SetSize(msg.Width, contentHeight)
		m.playlists.SetSize(msg.Width, contentHeight)
		m.tracks.SetSize(msg.Width, contentHeight)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m model) applySnapshot(snap snapshot.Snapshot) model {
	m.snap = snap
	switch snap.View {
	case domain.ViewSearch:
		m.results.SetItems(trackItems(snap.Search.Results))
	case domain.ViewPlaylists:
		m.playlists.SetItems(playlistItems(snap.Playlists.All))
		m.tracks.SetItems(trackItems(snap.Playlists.OpenTracks))
	}
	return m
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// the search view's text input swallows ordinary typing (including
	// "q"), so global single-letter bindings only fire outside it, and
	// only ctrl+c always quits.
	typing := m.snap.View == domain.ViewSearch && m.searchInput.Focused()

	switch {
	case key.Matches(msg, keys.Quit) && (!typing || msg.String() == "ctrl+c"):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(msg, keys.NextView) && !typing:
		return m, m.send(domain.MsgViewChanged{View: nextView(m.snap.View)})
	case key.Matches(msg, keys.PrevView) && !typing:
		return m, m.send(domain.MsgViewChanged{View: prevView(m.snap.View)})
	case key.Matches(msg, keys.TogglePlay) && !typing:
		return m, m.send(domain.MsgPauseToggled{})
	case key.Matches(msg, keys.Next) && !typing:
		return m, m.send(domain.MsgNextRequested{})
	case key.Matches(msg, keys.Prev) && !typing:
		return m, m.send(domain.MsgPrevRequested{})
	case key.Matches(msg, keys.VolumeUp) && !typing:
		return m, m.send(domain.MsgVolumeChanged{Volume: clamp01(m.snap.Player.Volume + volumeStep)})
	case key.Matches(msg, keys.VolumeDown) && !typing:
		return m, m.send(domain.MsgVolumeChanged{Volume: clamp01(m.snap.Player.Volume - volumeStep)})
	case key.Matches(msg, keys.SeekFwd) && !typing:
		return m, m.send(domain.MsgSeekRequested{Ms: m.snap.Player.PositionMs + seekStepMs})
	case key.Matches(msg, keys.SeekBack) && !typing:
		return m, m.send(domain.MsgSeekRequested{Ms: max64(0, m.snap.Player.PositionMs-seekStepMs)})
	case key.Matches(msg, keys.CycleMode) && !typing:
		return m, m.send(domain.MsgModeChanged{Mode: nextMode(m.snap.Player.Mode)})
	}

	switch m.snap.View {
	case domain.ViewLogin:
		return m.updateLogin(msg)
	case domain.ViewSearch:
		return m.updateSearch(msg)
	case domain.ViewPlaylists:
		return m.updatePlaylists(msg)
	case domain.ViewLyrics:
		return m.updateLyrics(msg)
	}
	return m, nil
}

func (m model) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "enter" || msg.String() == "l" {
		return m, m.send(domain.MsgLoginRequestQrKey{})
	}
	return m, nil
}

func (m model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.searchInput.Focused() {
			m.searchInput.Blur()
			return m, m.send(domain.MsgSearchSubmitted{})
		}
		if item, ok := m.results.SelectedItem().(trackItem); ok {
			return m, m.send(domain.MsgPlayRequested{Track: item.track})
		}
	case "/":
		m.searchInput.Focus()
		return m, textinput.Blink
	case "esc":
		m.searchInput.Blur()
	}

	if m.searchInput.Focused() {
		var cmd tea.Cmd
		m.searchInput, cmd = m.searchInput.Update(msg)
		return m, tea.Batch(cmd, m.send(domain.MsgSearchQueryChanged{Query: m.searchInput.Value()}))
	}

	var cmd tea.Cmd
	m.results, cmd = m.results.Update(msg)
	return m, cmd
}

func (m model) updatePlaylists(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.snap.Playlists.TrackLoaded || len(m.snap.Playlists.OpenTracks) > 0 {
		switch msg.String() {
		case "enter":
			if item, ok := m.tracks.SelectedItem().(trackItem); ok {
				return m, m.send(domain.MsgPlayRequested{Track: item.track})
			}
		case "esc":
			var cmd tea.Cmd
			m.playlists, cmd = m.playlists.Update(msg)
			return m, cmd
		}
		var cmd tea.Cmd
		m.tracks, cmd = m.tracks.Update(msg)
		return m, cmd
	}

	if msg.String() == "enter" {
		if item, ok := m.playlists.SelectedItem().(playlistItem); ok {
			return m, m.send(domain.MsgPlaylistOpened{PlaylistID: item.playlist.ID})
		}
	}
	var cmd tea.Cmd
	m.playlists, cmd = m.playlists.Update(msg)
	return m, cmd
}

func (m model) updateLyrics(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.OffsetUp):
		return m, m.send(domain.MsgLyricOffsetAdjusted{DeltaMs: lyricOffsetStepMs})
	case key.Matches(msg, keys.OffsetDown):
		return m, m.send(domain.MsgLyricOffsetAdjusted{DeltaMs: -lyricOffsetStepMs})
	}
	return m, nil
}

func (m model) View() string {
	if m.quitting {
		return ""
	}

	var body string
	switch m.snap.View {
	case domain.ViewLogin:
		body = m.viewLogin()
	case domain.ViewSearch:
		body = m.viewSearch()
	case domain.ViewPlaylists:
		body = m.viewPlaylists()
	case domain.ViewLyrics:
		body = m.viewLyrics()
	case domain.ViewSettings:
		body = m.viewSettings()
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s\n%s", titleStyle.Render("resonance"), body, m.viewPlayer(), dimStyle.Render(shortHelp))
}

func (m model) viewLogin() string {
	s := m.snap.Login
	if s.ImgURL == "" {
		return "press enter to request a QR login code"
	}
	status := "waiting for scan…"
	switch s.Status {
	case domain.LoginQrScanned:
		status = "scanned, waiting for confirmation…"
	case domain.LoginQrConfirmed:
		status = activeStyle.Render("confirmed")
	case domain.LoginQrExpired:
		status = errorStyle.Render("expired, press enter to retry")
	}
	errLine := ""
	if s.Error != "" {
		errLine = "\n" + errorStyle.Render(s.Error)
	}
	return fmt.Sprintf("scan: %s\n%s%s", s.ImgURL, status, errLine)
}

func (m model) viewSearch() string {
	header := "/ to search, enter to play"
	if m.snap.Search.Loading {
		header = "searching…"
	}
	if m.snap.Search.Error != "" {
		header = errorStyle.Render(m.snap.Search.Error)
	}
	return fmt.Sprintf("%s\n%s\n\n%s", m.searchInput.View(), header, m.results.View())
}

func (m model) viewPlaylists() string {
	if len(m.snap.Playlists.OpenTracks) > 0 || m.snap.Playlists.TrackLoaded {
		return m.tracks.View()
	}
	errLine := ""
	if m.snap.Playlists.Error != "" {
		errLine = "\n" + errorStyle.Render(m.snap.Playlists.Error)
	}
	return m.playlists.View() + errLine
}

func (m model) viewLyrics() string {
	s := m.snap.Lyrics
	if len(s.Lines) == 0 {
		return dimStyle.Render("no lyrics loaded")
	}
	activeIdx := activeLyricIndex(s.Lines, m.snap.Player.PositionMs+s.Offset)
	out := ""
	for i, line := range s.Lines {
		if i == activeIdx {
			out += activeStyle.Render("> "+line.Text) + "\n"
		} else {
			out += "  " + line.Text + "\n"
		}
	}
	return out
}

func (m model) viewSettings() string {
	p := m.snap.Player
	return fmt.Sprintf("volume %.0f%%  bitrate %dkbps  mode %s  crossfade %dms",
		p.Volume*100, p.Bitrate/1000, p.Mode, p.CrossfadeMs)
}

func (m model) viewPlayer() string {
	p := m.snap.Player
	if p.Track.ID == 0 {
		return dimStyle.Render("nothing playing")
	}
	state := "playing"
	if p.Paused {
		state = "paused"
	}
	if !p.Playing && !p.Paused {
		state = "stopped"
	}
	pos := formatMs(p.PositionMs)
	dur := "?"
	if p.HasDuration {
		dur = formatMs(p.DurationMs)
	}
	return fmt.Sprintf("%s — %s  [%s %s/%s, vol %.0f%%]", p.Track.Title, p.Track.Artists, state, pos, dur, p.Volume*100)
}

func activeLyricIndex(lines []domain.LyricLine, posMs int64) int {
	idx := -1
	for i, l := range lines {
		if l.TimeMs <= posMs {
			idx = i
			continue
		}
		break
	}
	return idx
}

func formatMs(ms int64) string {
	total := ms / 1000
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func nextView(v domain.View) domain.View {
	switch v {
	case domain.ViewLogin:
		return domain.ViewPlaylists
	case domain.ViewPlaylists:
		return domain.ViewSearch
	case domain.ViewSearch:
		return domain.ViewLyrics
	case domain.ViewLyrics:
		return domain.ViewSettings
	case domain.ViewSettings:
		return domain.ViewLogin
	default:
		return domain.ViewPlaylists
	}
}

func prevView(v domain.View) domain.View {
	switch v {
	case domain.ViewPlaylists:
		return domain.ViewLogin
	case domain.ViewSearch:
		return domain.ViewPlaylists
	case domain.ViewLyrics:
		return domain.ViewSearch
	case domain.ViewSettings:
		return domain.ViewLyrics
	default:
		return domain.ViewSettings
	}
}

func nextMode(mode domain.PlayMode) domain.PlayMode {
	switch mode {
	case domain.ModeSequential:
		return domain.ModeListLoop
	case domain.ModeListLoop:
		return domain.ModeSingleLoop
	case domain.ModeSingleLoop:
		return domain.ModeShuffle
	default:
		return domain.ModeSequential
	}
}
