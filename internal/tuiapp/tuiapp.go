// Package tuiapp is the bubbletea shell (spec §4.10): it only turns
// terminal events into domain.Message values sent on out, and renders
// whatever snapshot.Snapshot arrives on in. No reducer logic lives
// here, grounded on the thin-TUI shape the pack's TUI examples use
// (e.g. other_examples' climp/playlist-sorter models hold only
// display state, never business state).
package tuiapp

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/sorairo/resonance/internal/domain"
	"github.com/sorairo/resonance/internal/snapshot"
)

// Program wraps a configured tea.Program.
type Program struct {
	program *tea.Program
}

// New builds a Program that renders snapshots received on in and
// sends user-originated messages on out. Neither channel is owned by
// the Program; the caller (cmd/resonance) starts and closes them.
func New(in <-chan snapshot.Snapshot, out chan<- domain.Message) *Program {
	m := newModel(in, out)
	return &Program{program: tea.NewProgram(m, tea.WithAltScreen())}
}

// Run blocks until the user quits or the program errors.
func (p *Program) Run() error {
	_, err := p.program.Run()
	return err
}
