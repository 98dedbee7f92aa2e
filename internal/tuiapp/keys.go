package tuiapp

import "github.com/charmbracelet/bubbles/key"

// keyMap is the global and view-local key bindings, matched via
// key.Matches the way other_examples' playlist-sorter TUI does.
type keyMap struct {
	Quit       key.Binding
	NextView   key.Binding
	PrevView   key.Binding
	TogglePlay key.Binding
	Next       key.Binding
	Prev       key.Binding
	VolumeUp   key.Binding
	VolumeDown key.Binding
	SeekFwd    key.Binding
	SeekBack   key.Binding
	CycleMode  key.Binding
	OffsetUp   key.Binding
	OffsetDown key.Binding
}

var keys = keyMap{
	Quit:       key.NewBinding(key.WithKeys("ctrl+c", "q")),
	NextView:   key.NewBinding(key.WithKeys("tab")),
	PrevView:   key.NewBinding(key.WithKeys("shift+tab")),
	TogglePlay: key.NewBinding(key.WithKeys(" ")),
	Next:       key.NewBinding(key.WithKeys("n")),
	Prev:       key.NewBinding(key.WithKeys("p")),
	VolumeUp:   key.NewBinding(key.WithKeys("+", "=")),
	VolumeDown: key.NewBinding(key.WithKeys("-", "_")),
	SeekFwd:    key.NewBinding(key.WithKeys("l", "right")),
	SeekBack:   key.NewBinding(key.WithKeys("h", "left")),
	CycleMode:  key.NewBinding(key.WithKeys("m")),
	OffsetUp:   key.NewBinding(key.WithKeys("]")),
	OffsetDown: key.NewBinding(key.WithKeys("[")),
}

const shortHelp = "tab: switch view · space: play/pause · n/p: next/prev · +/-: volume · q: quit"
