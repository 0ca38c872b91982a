package views

import (
	"fmt"
	"strings"
)

type DoseItemData struct {
	Position     int
	Medicine     string
	Strength     string
	Time         string
	MinutesUntil int
	Snoozed      bool
}

type TodayPanelData struct {
	ListView string
	Items    []DoseItemData
	Selected int
}

type MedicineRowData struct {
	Name     string
	Form     string
	Strength string
	Source   string
	Archived bool
}

type MedicinesPanelData struct {
	TableView string
	Rows      []MedicineRowData
	Search    string
}

type HistoryRowData struct {
	Medicine  string
	Status    string
	Scheduled string
	LateBy    int
	Notes     string
}

type HistoryPanelData struct {
	Rows []HistoryRowData
}

type StatsPanelData struct {
	WindowDays int
	Total      int
	Taken      int
	Skipped    int
	Missed     int
	Rate       float64
}

type MatchRowData struct {
	Brand        string
	Generic      string
	Manufacturer string
	Confidence   float64
}

type LookupPanelData struct {
	Query    string
	Pending  bool
	SpinView string
	Matches  []MatchRowData
}

type HelpPanelData struct {
	CurrentView string
	Bindings    []string
	HelpView    string
}

func RenderTodayPanel(data TodayPanelData) string {
	var b strings.Builder
	b.WriteString("today:\n")
	b.WriteString("actions: [j/k]move [t]take [s]skip [z]snooze [/]cmd\n")
	b.WriteString(data.ListView + "\n")
	if len(data.Items) == 0 {
		b.WriteString("(all doses answered, nothing left today)")
		return strings.TrimSpace(b.String())
	}
	for _, item := range data.Items {
		cursor := " "
		if item.Position == data.Selected {
			cursor = ">"
		}
		b.WriteString(fmt.Sprintf("%s %d. %s %s", cursor, item.Position, item.Time, item.Medicine))
		if item.Strength != "" {
			b.WriteString(" " + item.Strength)
		}
		b.WriteString(fmt.Sprintf(" %s", dueBadge(item.MinutesUntil)))
		if item.Snoozed {
			b.WriteString(" [snoozed]")
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func RenderMedicinesPanel(data MedicinesPanelData) string {
	var b strings.Builder
	b.WriteString("medicines:\n")
	b.WriteString("actions: [j/k]move [a]rchive [X]delete [/]cmd\n")
	if data.Search != "" {
		b.WriteString(fmt.Sprintf("search: %s\n", data.Search))
	}
	b.WriteString(data.TableView + "\n")
	if len(data.Rows) == 0 {
		b.WriteString("(no medicines yet, /find <name> to look one up)")
	}
	return strings.TrimSpace(b.String())
}

func RenderHistoryPanel(data HistoryPanelData) string {
	var b strings.Builder
	b.WriteString("history:\n")
	if len(data.Rows) == 0 {
		b.WriteString("(no intakes recorded yet)")
		return b.String()
	}
	for _, row := range data.Rows {
		b.WriteString(fmt.Sprintf("%s [%s] %s", row.Scheduled, strings.ToUpper(row.Status), row.Medicine))
		if row.LateBy > 0 {
			b.WriteString(fmt.Sprintf(" +%dm late", row.LateBy))
		}
		if row.Notes != "" {
			b.WriteString(" — " + row.Notes)
		}
		b.WriteString("\n")
	}
	return strings.TrimSpace(b.String())
}

func RenderStatsPanel(data StatsPanelData) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("adherence (last %d days):\n", data.WindowDays))
	b.WriteString(fmt.Sprintf("rate: %.1f%%\n", data.Rate))
	b.WriteString(fmt.Sprintf("taken: %d | skipped: %d | missed: %d | total: %d\n", data.Taken, data.Skipped, data.Missed, data.Total))
	b.WriteString(rateBar(data.Rate))
	return strings.TrimSpace(b.String())
}

func RenderLookupPanel(data LookupPanelData) string {
	if data.Query == "" {
		return ""
	}
	var b strings.Builder
	b.WriteString(fmt.Sprintf("\nlookup: %s\n", data.Query))
	if data.Pending {
		b.WriteString("searching " + data.SpinView)
		return strings.TrimSuffix(b.String(), "\n")
	}
	if len(data.Matches) == 0 {
		b.WriteString("(no matches)")
		return strings.TrimSuffix(b.String(), "\n")
	}
	b.WriteString("pick with [1-5], [esc] to dismiss:\n")
	for i, m := range data.Matches {
		name := m.Brand
		if name == "" {
			name = m.Generic
		}
		b.WriteString(fmt.Sprintf("%d. %s (%s) — %s, %.0f%%\n", i+1, name, m.Generic, m.Manufacturer, m.Confidence*100))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func RenderCommandPalette(active bool, input string) string {
	if !active {
		return ""
	}
	return fmt.Sprintf("command: /%s", input)
}

func RenderNotification(level string, body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}
	return fmt.Sprintf("notification: [%s] %s", strings.ToUpper(level), body)
}

func RenderHelpPanel(data HelpPanelData) string {
	return fmt.Sprintf("help:\nglobal:\n%s view:\n%s\n%s",
		strings.ToLower(data.CurrentView),
		strings.Join(data.Bindings, "\n"),
		data.HelpView,
	)
}

func dueBadge(minutesUntil int) string {
	switch {
	case minutesUntil <= 0:
		return "[DUE]"
	case minutesUntil <= 30:
		return fmt.Sprintf("[in %dm]", minutesUntil)
	default:
		return fmt.Sprintf("[in %dh%02dm]", minutesUntil/60, minutesUntil%60)
	}
}

func rateBar(rate float64) string {
	const width = 20
	filled := int(rate / 100 * width)
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}
