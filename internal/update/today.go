package update

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mediflow/mediflow/internal/model"
)

func (m Model) handleTodayKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.TodayIndex < len(m.TodayItems)-1 {
			m.TodayIndex++
		}
		return m, nil
	case "k", "up":
		if m.TodayIndex > 0 {
			m.TodayIndex--
		}
		return m, nil
	case "t":
		return m.answerSelected(model.IntakeTaken)
	case "s":
		return m.answerSelected(model.IntakeSkipped)
	case "z":
		return m.snoozeSelected()
	}
	return m, nil
}

func (m Model) selectedDose(position int) (int, bool) {
	idx := position - 1
	if idx < 0 || idx >= len(m.TodayItems) {
		return 0, false
	}
	return idx, true
}

func (m Model) answerSelected(status model.IntakeStatus) (Model, tea.Cmd) {
	return m.answerDose(m.TodayIndex+1, status)
}

// answerDose records the intake for the 1-based today-list position and
// refreshes the snapshot so the slot disappears from the list.
func (m Model) answerDose(position int, status model.IntakeStatus) (Model, tea.Cmd) {
	idx, ok := m.selectedDose(position)
	if !ok {
		m.Status = StatusBar{Text: fmt.Sprintf("no dose at position %d", position), IsError: true}
		return m, nil
	}
	item := m.TodayItems[idx]

	ctx, cancel := context.WithTimeout(context.Background(), serviceTimeout)
	defer cancel()

	var err error
	var entry model.HistoryEntry
	switch status {
	case model.IntakeTaken:
		entry, err = m.service.TakeDose(ctx, item.Reminder, item.ScheduledAt, "")
	case model.IntakeSkipped:
		entry, err = m.service.SkipDose(ctx, item.Reminder, item.ScheduledAt, "")
	default:
		m.Status = StatusBar{Text: fmt.Sprintf("cannot answer a dose with %q", status), IsError: true}
		return m, nil
	}
	if err != nil {
		m.LastError = err
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}

	delete(m.Snoozed, item.Reminder.ID)
	verb := "taken"
	if entry.Status == model.IntakeSkipped {
		verb = "skipped"
	}
	m.Status = StatusBar{Text: fmt.Sprintf("%s %s at %s", item.Medicine.DisplayName(), verb, entry.ActualTime.Format("15:04"))}
	return m, tea.Batch(m.refreshCmd(), clearStatusLater())
}

func (m Model) snoozeSelected() (Model, tea.Cmd) {
	return m.snoozeDose(m.TodayIndex + 1)
}

func (m Model) snoozeDose(position int) (Model, tea.Cmd) {
	idx, ok := m.selectedDose(position)
	if !ok {
		m.Status = StatusBar{Text: fmt.Sprintf("no dose at position %d", position), IsError: true}
		return m, nil
	}
	item := m.TodayItems[idx]

	ctx, cancel := context.WithTimeout(context.Background(), serviceTimeout)
	defer cancel()
	if err := m.service.Snooze(ctx, item.Reminder); err != nil {
		m.LastError = err
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}
	m.Snoozed[item.Reminder.ID] = true
	m.Status = StatusBar{Text: fmt.Sprintf("%s snoozed", item.Medicine.DisplayName())}
	return m, clearStatusLater()
}
