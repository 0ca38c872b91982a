package update

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
)

func (m Model) handleMedicinesKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.MedicineIndex < len(m.Medicines)-1 {
			m.MedicineIndex++
		}
		return m, nil
	case "k", "up":
		if m.MedicineIndex > 0 {
			m.MedicineIndex--
		}
		return m, nil
	case "a":
		return m.archiveSelectedMedicine()
	case "X":
		return m.deleteSelectedMedicine()
	case "1", "2", "3", "4", "5":
		if len(m.Lookup.Matches) > 0 && !m.Lookup.Pending {
			return m.adoptMatch(int(msg.String()[0]-'0') - 1)
		}
	case "esc":
		if m.Lookup.Query != "" {
			m.Lookup = LookupState{}
			return m, nil
		}
	}
	return m, nil
}

func (m Model) archiveSelectedMedicine() (Model, tea.Cmd) {
	if m.MedicineIndex < 0 || m.MedicineIndex >= len(m.Medicines) {
		return m, nil
	}
	med := m.Medicines[m.MedicineIndex]

	ctx, cancel := context.WithTimeout(context.Background(), serviceTimeout)
	defer cancel()
	if err := m.service.ArchiveMedicine(ctx, med.ID); err != nil {
		m.LastError = err
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}
	m.Status = StatusBar{Text: fmt.Sprintf("%s archived, reminders retracted", med.DisplayName())}
	return m, tea.Batch(m.refreshCmd(), clearStatusLater())
}

// deleteSelectedMedicine hard-deletes the medicine and everything that hangs
// off it. History is lost; archiving is the reversible path.
func (m Model) deleteSelectedMedicine() (Model, tea.Cmd) {
	if m.MedicineIndex < 0 || m.MedicineIndex >= len(m.Medicines) {
		return m, nil
	}
	med := m.Medicines[m.MedicineIndex]

	ctx, cancel := context.WithTimeout(context.Background(), serviceTimeout)
	defer cancel()
	if err := m.service.DeleteMedicine(ctx, med.ID); err != nil {
		m.LastError = err
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}
	if m.MedicineIndex > 0 {
		m.MedicineIndex--
	}
	m.Status = StatusBar{Text: fmt.Sprintf("%s deleted with its reminders and history", med.DisplayName())}
	return m, tea.Batch(m.refreshCmd(), clearStatusLater())
}
