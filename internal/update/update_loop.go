package update

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mediflow/mediflow/internal/notify"
	"github.com/mediflow/mediflow/internal/views"
)

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.refreshCmd()}
	if m.deliveries != nil {
		cmds = append(cmds, waitForDeliveryCmd(m.deliveries))
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		if m.Palette.Active {
			if typed.String() == m.Keys.Help {
				m.HelpVisible = !m.HelpVisible
				return m, nil
			}
			next, cmd := m.handlePaletteKey(typed)
			next.syncBubbleData()
			return next, cmd
		}

		switch typed.String() {
		case "/":
			m.Palette.Active = true
			m.Palette.Input = ""
			m.commandInput.Focus()
			m.commandInput.SetValue("")
			m.Status = StatusBar{Text: "command palette active"}
			return m, nil
		case m.Keys.Today:
			m.CurrentView = ViewToday
			return m, nil
		case m.Keys.Medicines:
			m.CurrentView = ViewMedicines
			return m, nil
		case m.Keys.History:
			m.CurrentView = ViewHistory
			return m, nil
		case m.Keys.Stats:
			m.CurrentView = ViewStats
			return m, nil
		case m.Keys.Help:
			m.HelpVisible = !m.HelpVisible
			return m, nil
		case "r":
			m.Status = StatusBar{Text: "refreshing"}
			return m, m.refreshCmd()
		case "ctrl+c", m.Keys.Quit:
			m.Quitting = true
			return m, tea.Quit
		}

		var next Model
		var cmd tea.Cmd
		switch m.CurrentView {
		case ViewToday:
			next, cmd = m.handleTodayKey(typed)
		case ViewMedicines:
			next, cmd = m.handleMedicinesKey(typed)
		default:
			next = m
		}
		next.syncBubbleData()
		return next, cmd

	case spinner.TickMsg:
		if m.Lookup.Pending {
			var cmd tea.Cmd
			m.lookupSpinner, cmd = m.lookupSpinner.Update(typed)
			return m, cmd
		}
		return m, nil

	case RefreshedMsg:
		m.TodayItems = typed.Snapshot.Today
		m.Medicines = typed.Snapshot.Medicines
		m.History = typed.Snapshot.History
		m.Stats = typed.Snapshot.Stats
		if m.TodayIndex >= len(m.TodayItems) {
			m.TodayIndex = 0
		}
		if m.MedicineIndex >= len(m.Medicines) {
			m.MedicineIndex = 0
		}
		m.syncBubbleData()
		return m, nil

	case SwitchViewMsg:
		if isKnownView(typed.View) {
			m.CurrentView = typed.View
		}
		return m, nil

	case SetStatusMsg:
		m.Status = StatusBar{Text: typed.Text, IsError: typed.IsError}
		return m, nil

	case ClearStatusMsg:
		m.Status = StatusBar{}
		return m, nil

	case AppErrorMsg:
		m.LastError = typed.Err
		if typed.Err != nil {
			m.Status = StatusBar{Text: typed.Err.Error(), IsError: true}
		}
		return m, nil

	case DeliveryMsg:
		m.Status = StatusBar{Text: fmt.Sprintf("%s: %s", typed.Delivery.Content.Title, typed.Delivery.Content.Body)}
		if m.service != nil {
			// A snooze fire is a re-notification, not the reminder's slot:
			// sweep for missed doses but leave the trigger times alone.
			reminderID := typed.Delivery.Tag.ReminderID
			if typed.Delivery.Tag.Kind == notify.TagKindSnooze {
				reminderID = ""
			}
			ctx, cancel := context.WithTimeout(context.Background(), serviceTimeout)
			m.service.HandleDelivery(ctx, reminderID, typed.Delivery.FiredAt)
			cancel()
		}
		cmds := []tea.Cmd{m.refreshCmd()}
		if m.deliveries != nil {
			cmds = append(cmds, waitForDeliveryCmd(m.deliveries))
		}
		return m, tea.Batch(cmds...)

	case LookupResultMsg:
		return m.onLookupResult(typed)
	}

	return m, nil
}

func (m Model) View() string {
	status := ""
	if m.Status.Text != "" {
		if m.Status.IsError {
			status = fmt.Sprintf("status: error: %s", m.Status.Text)
		} else {
			status = fmt.Sprintf("status: %s", m.Status.Text)
		}
	}

	leftPane := ""
	rightPane := ""
	switch m.CurrentView {
	case ViewToday:
		leftPane = m.renderTodayView()
		rightPane = m.renderStatsView() + m.renderHelpIfVisible()
	case ViewMedicines:
		leftPane = m.renderMedicinesView()
		rightPane = m.renderLookupView() + m.renderHelpIfVisible()
	case ViewHistory:
		leftPane = m.renderHistoryView()
		rightPane = m.renderStatsView() + m.renderHelpIfVisible()
	case ViewStats:
		leftPane = m.renderStatsView()
		rightPane = m.renderHelpIfVisible()
	}
	if m.Palette.Active {
		rightPane = views.RenderCommandPalette(true, m.Palette.Input) + "\n" + m.commandInput.View() + "\n" + rightPane
	}

	return views.RenderApp(views.AppData{
		Header:     fmt.Sprintf("mediflow | view: %s", m.CurrentView),
		LeftPane:   leftPane,
		RightPane:  rightPane,
		StatusLine: status,
		Footer: fmt.Sprintf("keys: %s today | %s meds | %s history | %s stats | / cmd | %s help | %s quit",
			m.Keys.Today, m.Keys.Medicines, m.Keys.History, m.Keys.Stats, m.Keys.Help, m.Keys.Quit),
	})
}

func isKnownView(v View) bool {
	switch v {
	case ViewToday, ViewMedicines, ViewHistory, ViewStats:
		return true
	default:
		return false
	}
}
