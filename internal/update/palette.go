package update

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mediflow/mediflow/internal/commands"
	"github.com/mediflow/mediflow/internal/lookup"
	"github.com/mediflow/mediflow/internal/model"
)

func (m Model) handlePaletteKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.Palette = CommandPaletteState{}
		m.commandInput.Blur()
		m.Status = StatusBar{Text: "command cancelled"}
		return m, nil
	case "enter":
		input := m.commandInput.Value()
		m.Palette = CommandPaletteState{}
		m.commandInput.Blur()
		m.commandInput.SetValue("")
		return m.executePalette(input)
	default:
		var cmd tea.Cmd
		m.commandInput, cmd = m.commandInput.Update(msg)
		m.Palette.Input = m.commandInput.Value()
		return m, cmd
	}
}

func (m Model) executePalette(input string) (Model, tea.Cmd) {
	parsed, err := commands.Parse(input)
	if err != nil {
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, clearStatusLater()
	}

	next := m
	var cmd tea.Cmd

	_, execErr := commands.Execute(parsed, commands.Handlers{
		Take: func(args commands.DoseArgs) (commands.Result, error) {
			next, cmd = m.answerDose(args.Position, model.IntakeTaken)
			return commands.Result{Message: next.Status.Text}, nil
		},
		Skip: func(args commands.DoseArgs) (commands.Result, error) {
			next, cmd = m.answerDose(args.Position, model.IntakeSkipped)
			return commands.Result{Message: next.Status.Text}, nil
		},
		Snooze: func(args commands.DoseArgs) (commands.Result, error) {
			next, cmd = m.snoozeDose(args.Position)
			return commands.Result{Message: next.Status.Text}, nil
		},
		Log: func(args commands.LogArgs) (commands.Result, error) {
			next, cmd = m.logManualIntake(args.Medicine, args.Notes)
			return commands.Result{Message: next.Status.Text}, nil
		},
		Find: func(args commands.FindArgs) (commands.Result, error) {
			next.Lookup = LookupState{Query: args.Name, Pending: true}
			next.Status = StatusBar{Text: fmt.Sprintf("searching openFDA for %q", args.Name)}
			cmd = tea.Batch(next.lookupCmd(args.Name), next.lookupSpinner.Tick)
			return commands.Result{Message: next.Status.Text}, nil
		},
		Show: func(args commands.ShowArgs) (commands.Result, error) {
			switch args.Subject {
			case "today":
				next.CurrentView = ViewToday
			case "medicines":
				next.CurrentView = ViewMedicines
			case "history":
				next.CurrentView = ViewHistory
			case "stats":
				next.CurrentView = ViewStats
			}
			return commands.Result{Message: "view: " + args.Subject}, nil
		},
	})
	if execErr != nil {
		m.Status = StatusBar{Text: execErr.Error(), IsError: true}
		return m, clearStatusLater()
	}
	return next, cmd
}

// logManualIntake resolves the named medicine against the local list and
// appends a taken entry outside any reminder, the as-needed path.
func (m Model) logManualIntake(name, notes string) (Model, tea.Cmd) {
	med, ok := m.findMedicineByName(name)
	if !ok {
		m.Status = StatusBar{Text: fmt.Sprintf("no medicine matching %q", name), IsError: true}
		return m, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), serviceTimeout)
	defer cancel()
	if _, err := m.service.LogManualIntake(ctx, m.UserID, med.ID, notes); err != nil {
		m.LastError = err
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}
	m.Status = StatusBar{Text: fmt.Sprintf("logged %s", med.DisplayName())}
	return m, tea.Batch(m.refreshCmd(), clearStatusLater())
}

// adoptMatch turns a lookup candidate into a persisted medicine record.
func (m Model) adoptMatch(index int) (Model, tea.Cmd) {
	if index < 0 || index >= len(m.Lookup.Matches) {
		return m, nil
	}
	match := m.Lookup.Matches[index]

	ctx, cancel := context.WithTimeout(context.Background(), serviceTimeout)
	defer cancel()
	med, err := m.service.AddMedicine(ctx, match.ToMedicine(m.UserID, m.service.Now()))
	if err != nil {
		m.LastError = err
		m.Status = StatusBar{Text: err.Error(), IsError: true}
		return m, nil
	}
	m.Lookup = LookupState{}
	m.Status = StatusBar{Text: fmt.Sprintf("added %s from openFDA", med.DisplayName())}
	return m, tea.Batch(m.refreshCmd(), clearStatusLater())
}

func (m Model) onLookupResult(msg LookupResultMsg) (Model, tea.Cmd) {
	if msg.Query != m.Lookup.Query {
		// A newer search superseded this one.
		return m, nil
	}
	m.Lookup.Pending = false
	if msg.Err != nil {
		if errors.Is(msg.Err, lookup.ErrNoMatches) {
			m.Lookup.Matches = nil
			m.Status = StatusBar{Text: fmt.Sprintf("no openFDA matches for %q", msg.Query)}
			return m, clearStatusLater()
		}
		m.LastError = msg.Err
		m.Status = StatusBar{Text: msg.Err.Error(), IsError: true}
		return m, clearStatusLater()
	}
	m.Lookup.Matches = msg.Matches
	m.Status = StatusBar{Text: fmt.Sprintf("%d matches, pick with [1-5]", len(msg.Matches))}
	return m, nil
}

func (m Model) findMedicineByName(name string) (model.Medicine, bool) {
	for _, med := range m.Medicines {
		if !med.Active {
			continue
		}
		if equalsFold(med.Name, name) || equalsFold(med.BrandName, name) || equalsFold(med.GenericName, name) {
			return med, true
		}
	}
	return model.Medicine{}, false
}
