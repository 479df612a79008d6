package browse

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Next     key.Binding
	Prev     key.Binding
	First    key.Binding
	Last     key.Binding
	NextUnit key.Binding
	PrevUnit key.Binding
	Goto     key.Binding
	Locate   key.Binding
	Wider    key.Binding
	Narrower key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Next:     key.NewBinding(key.WithKeys("right", "l", " ", "pgdown"), key.WithHelp("→/l", "next spread")),
		Prev:     key.NewBinding(key.WithKeys("left", "h", "pgup"), key.WithHelp("←/h", "previous spread")),
		First:    key.NewBinding(key.WithKeys("home", "0"), key.WithHelp("home", "first spread")),
		Last:     key.NewBinding(key.WithKeys("end", "$"), key.WithHelp("end", "last spread")),
		NextUnit: key.NewBinding(key.WithKeys("n", "]"), key.WithHelp("n", "next unit")),
		PrevUnit: key.NewBinding(key.WithKeys("p", "["), key.WithHelp("p", "previous unit")),
		Goto:     key.NewBinding(key.WithKeys("g", "#"), key.WithHelp("g", "go to id, unit#id or location")),
		Locate:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "location of first visible")),
		Wider:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "wider viewport")),
		Narrower: key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "narrower viewport")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Prev, k.NextUnit, k.PrevUnit, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Prev, k.First, k.Last},
		{k.NextUnit, k.PrevUnit},
		{k.Goto, k.Locate},
		{k.Wider, k.Narrower},
		{k.Help, k.Quit},
	}
}
