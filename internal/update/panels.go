package update

import (
	"github.com/mediflow/mediflow/internal/views"
)

func (m Model) renderTodayView() string {
	items := make([]views.DoseItemData, 0, len(m.TodayItems))
	for i, item := range m.TodayItems {
		items = append(items, views.DoseItemData{
			Position:     i + 1,
			Medicine:     item.Medicine.DisplayName(),
			Strength:     item.Medicine.Strength,
			Time:         item.Reminder.TimeLabel(),
			MinutesUntil: item.MinutesUntil,
			Snoozed:      m.Snoozed[item.Reminder.ID],
		})
	}
	return views.RenderTodayPanel(views.TodayPanelData{
		ListView: m.todayList.View(),
		Items:    items,
		Selected: m.TodayIndex + 1,
	})
}

func (m Model) renderMedicinesView() string {
	rows := make([]views.MedicineRowData, 0, len(m.Medicines))
	for _, med := range m.Medicines {
		rows = append(rows, views.MedicineRowData{
			Name:     med.DisplayName(),
			Form:     med.Form,
			Strength: med.Strength,
			Source:   string(med.Source),
			Archived: !med.Active,
		})
	}
	return views.RenderMedicinesPanel(views.MedicinesPanelData{
		TableView: m.medsTable.View(),
		Rows:      rows,
	})
}

func (m Model) renderHistoryView() string {
	rows := make([]views.HistoryRowData, 0, len(m.History))
	for _, entry := range m.History {
		rows = append(rows, views.HistoryRowData{
			Medicine:  entry.MedicineName,
			Status:    entry.Status,
			Scheduled: entry.ScheduledTime.Format("Jan 02 15:04"),
			LateBy:    entry.LateByMinutes,
			Notes:     entry.Notes,
		})
	}
	return views.RenderHistoryPanel(views.HistoryPanelData{Rows: rows})
}

func (m Model) renderStatsView() string {
	return views.RenderStatsPanel(views.StatsPanelData{
		WindowDays: m.Stats.WindowDays,
		Total:      m.Stats.Total,
		Taken:      m.Stats.Taken,
		Skipped:    m.Stats.Skipped,
		Missed:     m.Stats.Missed,
		Rate:       m.Stats.Rate,
	})
}

func (m Model) renderLookupView() string {
	matches := make([]views.MatchRowData, 0, len(m.Lookup.Matches))
	for _, match := range m.Lookup.Matches {
		matches = append(matches, views.MatchRowData{
			Brand:        match.BrandName,
			Generic:      match.GenericName,
			Manufacturer: match.Manufacturer,
			Confidence:   match.Confidence,
		})
	}
	return views.RenderLookupPanel(views.LookupPanelData{
		Query:    m.Lookup.Query,
		Pending:  m.Lookup.Pending,
		SpinView: m.lookupSpinner.View(),
		Matches:  matches,
	})
}
