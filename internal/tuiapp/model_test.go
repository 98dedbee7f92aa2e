package tuiapp

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sorairo/resonance/internal/domain"
	"github.com/sorairo/resonance/internal/snapshot"
)

func newTestModel() (model, chan domain.Message) {
	out := make(chan domain.Message, 4)
	in := make(chan snapshot.Snapshot)
	m := newModel(in, out)
	m.snap.View = domain.ViewPlaylists
	return m, out
}

// runCmd executes cmd the way the bubbletea runtime would, including
// unwrapping tea.Batch so nested commands (e.g. the textinput update
// batched alongside a reducer-message send) actually run.
func runCmd(t *testing.T, cmd tea.Cmd) tea.Msg {
	t.Helper()
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		for _, sub := range batch {
			runCmd(t, sub)
		}
		return nil
	}
	return msg
}

func TestTabSwitchesViewForward(t *testing.T) {
	m, out := newTestModel()
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	runCmd(t, cmd)
	select {
	case msg := <-out:
		vc, ok := msg.(domain.MsgViewChanged)
		if !ok || vc.View != domain.ViewSearch {
			t.Fatalf("expected MsgViewChanged{Search}, got %#v", msg)
		}
	default:
		t.Fatal("expected a message on out")
	}
}

func TestSpaceTogglesPause(t *testing.T) {
	m, out := newTestModel()
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeySpace})
	runCmd(t, cmd)
	msg := <-out
	if _, ok := msg.(domain.MsgPauseToggled); !ok {
		t.Fatalf("expected MsgPauseToggled, got %#v", msg)
	}
}

func TestVolumeUpClampsAtOne(t *testing.T) {
	m, out := newTestModel()
	m.snap.Player.Volume = 0.98
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("+")})
	runCmd(t, cmd)
	msg := <-out
	vc, ok := msg.(domain.MsgVolumeChanged)
	if !ok || vc.Volume != 1.0 {
		t.Fatalf("expected volume clamped to 1.0, got %#v", msg)
	}
}

func TestSearchTypingDoesNotTriggerGlobalQuit(t *testing.T) {
	m, out := newTestModel()
	m.snap.View = domain.ViewSearch
	m.searchInput.Focus()

	m, cmd := update(m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if m.quitting {
		t.Fatal("typing 'q' in the search box must not quit")
	}
	runCmd(t, cmd)
	select {
	case msg := <-out:
		qc, ok := msg.(domain.MsgSearchQueryChanged)
		if !ok || qc.Query != "q" {
			t.Fatalf("expected the query to pick up the typed rune, got %#v", msg)
		}
	default:
		t.Fatal("expected a query-changed message")
	}
}

func update(m model, msg tea.Msg) (model, tea.Cmd) {
	newM, cmd := m.Update(msg)
	return newM.(model), cmd
}

func TestNextViewCyclesThroughAllViews(t *testing.T) {
	seen := map[domain.View]bool{}
	v := domain.ViewLogin
	for i := 0; i < 5; i++ {
		seen[v] = true
		v = nextView(v)
	}
	for _, want := range []domain.View{domain.ViewLogin, domain.ViewPlaylists, domain.ViewSearch, domain.ViewLyrics, domain.ViewSettings} {
		if !seen[want] {
			t.Fatalf("expected %v to be reachable via nextView, got %v", want, seen)
		}
	}
}

func TestNextViewAndPrevViewAreInverses(t *testing.T) {
	for _, v := range []domain.View{domain.ViewLogin, domain.ViewPlaylists, domain.ViewSearch, domain.ViewLyrics, domain.ViewSettings} {
		if prevView(nextView(v)) != v {
			t.Fatalf("expected prevView(nextView(%v)) == %v, got %v", v, v, prevView(nextView(v)))
		}
	}
}

func TestActiveLyricIndexPicksLastLineAtOrBeforePosition(t *testing.T) {
	lines := []domain.LyricLine{{TimeMs: 0, Text: "a"}, {TimeMs: 1000, Text: "b"}, {TimeMs: 2000, Text: "c"}}
	if idx := activeLyricIndex(lines, 1500); idx != 1 {
		t.Fatalf("expected index 1, got %d", idx)
	}
	if idx := activeLyricIndex(lines, -100); idx != -1 {
		t.Fatalf("expected -1 before the first line, got %d", idx)
	}
}

func TestFormatMs(t *testing.T) {
	if got := formatMs(65000); got != "01:05" {
		t.Fatalf("expected 01:05, got %q", got)
	}
}
