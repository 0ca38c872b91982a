package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"

	"github.com/mediflow/mediflow/internal/views"
)

type KeyBinding struct {
	Key    string
	Action string
}

type helpKeyMap struct {
	short []key.Binding
	full  [][]key.Binding
}

func (k helpKeyMap) ShortHelp() []key.Binding  { return k.short }
func (k helpKeyMap) FullHelp() [][]key.Binding { return k.full }

func (m Model) renderHelpIfVisible() string {
	if !m.HelpVisible {
		return ""
	}
	return m.renderHelpView()
}

func (m Model) renderHelpView() string {
	bindings := m.helpBindings()
	var plain []string
	for _, kb := range m.viewBindings() {
		plain = append(plain, fmt.Sprintf("- %s: %s", kb.Key, kb.Action))
	}
	panel := views.RenderHelpPanel(views.HelpPanelData{
		CurrentView: string(m.CurrentView),
		Bindings:    plain,
		HelpView: m.helpModel.View(helpKeyMap{
			short: bindings,
			full:  [][]key.Binding{bindings},
		}),
	})
	return panel + "\n" + views.RenderMarkdown(commandReference)
}

const commandReference = `## Commands

| Command | Effect |
| --- | --- |
| /take N | record dose N as taken |
| /skip N | record dose N as skipped |
| /snooze N | re-notify for dose N later |
| /log NAME -- NOTES | log an as-needed intake |
| /find NAME | search openFDA for a medicine |
| /show VIEW | jump to today, medicines, history or stats |
`

func (m Model) globalBindings() []KeyBinding {
	return []KeyBinding{
		{Key: m.Keys.Today, Action: "switch to Today"},
		{Key: m.Keys.Medicines, Action: "switch to Medicines"},
		{Key: m.Keys.History, Action: "switch to History"},
		{Key: m.Keys.Stats, Action: "switch to Stats"},
		{Key: "/", Action: "open command palette"},
		{Key: "r", Action: "refresh"},
		{Key: m.Keys.Help, Action: "toggle help panel"},
		{Key: m.Keys.Quit, Action: "quit app"},
	}
}

func (m Model) viewBindings() []KeyBinding {
	switch m.CurrentView {
	case ViewToday:
		return []KeyBinding{
			{Key: "j/k", Action: "move selection"},
			{Key: "t", Action: "take selected dose"},
			{Key: "s", Action: "skip selected dose"},
			{Key: "z", Action: "snooze selected dose"},
		}
	case ViewMedicines:
		return []KeyBinding{
			{Key: "j/k", Action: "move selection"},
			{Key: "a", Action: "archive selected medicine"},
			{Key: "X", Action: "delete selected medicine"},
			{Key: "1-5", Action: "adopt a lookup match"},
		}
	case ViewHistory, ViewStats:
		return []KeyBinding{{Key: "-", Action: "read-only view"}}
	default:
		return []KeyBinding{{Key: "-", Action: "no contextual bindings"}}
	}
}

func (m Model) helpBindings() []key.Binding {
	out := make([]key.Binding, 0, len(m.globalBindings())+len(m.viewBindings()))
	for _, kb := range m.globalBindings() {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	for _, kb := range m.viewBindings() {
		out = append(out, key.NewBinding(key.WithKeys(kb.Key), key.WithHelp(kb.Key, kb.Action)))
	}
	return out
}
