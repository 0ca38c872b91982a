package update

import (
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
)

func (m *Model) initBubbleComponents() {
	delegate := list.NewDefaultDelegate()
	m.todayList = list.New(nil, delegate, 54, 10)
	m.todayList.SetShowHelp(false)
	m.todayList.SetShowStatusBar(false)
	m.todayList.SetFilteringEnabled(false)
	m.todayList.Title = "Upcoming doses"

	m.medsTable = table.New(
		table.WithColumns([]table.Column{
			{Title: "Name", Width: 22},
			{Title: "Form", Width: 10},
			{Title: "Strength", Width: 10},
			{Title: "Source", Width: 8},
		}),
		table.WithHeight(8),
	)

	m.commandInput = textinput.New()
	m.commandInput.Placeholder = "take 1 | skip 2 | snooze 1 | log <name> | find <name> | show <view>"
	m.commandInput.CharLimit = 120

	m.lookupSpinner = spinner.New()
	m.lookupSpinner.Spinner = spinner.Dot

	m.helpModel = help.New()

	m.syncBubbleData()
}

// syncBubbleData pushes the current domain state into the bubble components
// so list cursors and table rows track the model after every update.
func (m *Model) syncBubbleData() {
	items := make([]list.Item, 0, len(m.TodayItems))
	for i, item := range m.TodayItems {
		items = append(items, doseListItem{
			title:       fmt.Sprintf("%d. %s %s", i+1, item.Reminder.TimeLabel(), item.Medicine.DisplayName()),
			description: fmt.Sprintf("%s %s", item.Medicine.Form, item.Medicine.Strength),
		})
	}
	m.todayList.SetItems(items)
	if m.TodayIndex >= 0 && m.TodayIndex < len(items) {
		m.todayList.Select(m.TodayIndex)
	}

	rows := make([]table.Row, 0, len(m.Medicines))
	for _, med := range m.Medicines {
		name := med.DisplayName()
		if !med.Active {
			name += " (archived)"
		}
		rows = append(rows, table.Row{name, med.Form, med.Strength, string(med.Source)})
	}
	m.medsTable.SetRows(rows)
	if m.MedicineIndex >= 0 && m.MedicineIndex < len(rows) {
		m.medsTable.SetCursor(m.MedicineIndex)
	}
}
