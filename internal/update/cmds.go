package update

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mediflow/mediflow/internal/notify"
)

const serviceTimeout = 5 * time.Second

// refreshCmd reloads the whole dashboard snapshot from the service.
func (m Model) refreshCmd() tea.Cmd {
	service := m.service
	userID := m.UserID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), serviceTimeout)
		defer cancel()

		todayItems, err := service.Today(ctx, userID)
		if err != nil {
			return AppErrorMsg{Err: err}
		}
		medicines, err := service.Medicines(ctx, userID, "", false)
		if err != nil {
			return AppErrorMsg{Err: err}
		}
		history, err := service.History(ctx, userID, 50)
		if err != nil {
			return AppErrorMsg{Err: err}
		}
		stats, err := service.Stats(ctx, userID)
		if err != nil {
			return AppErrorMsg{Err: err}
		}
		return RefreshedMsg{Snapshot: Snapshot{
			Today:     todayItems,
			Medicines: medicines,
			History:   history,
			Stats:     stats,
		}}
	}
}

// waitForDeliveryCmd blocks on the notification channel and turns each fired
// trigger into a message. Re-issued after every delivery.
func waitForDeliveryCmd(deliveries <-chan notify.Delivery) tea.Cmd {
	return func() tea.Msg {
		delivery, ok := <-deliveries
		if !ok {
			return nil
		}
		return DeliveryMsg{Delivery: delivery}
	}
}

func (m Model) lookupCmd(query string) tea.Cmd {
	finder := m.finder
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		matches, err := finder.Search(ctx, query)
		return LookupResultMsg{Query: query, Matches: matches, Err: err}
	}
}

func clearStatusLater() tea.Cmd {
	return tea.Tick(4*time.Second, func(time.Time) tea.Msg { return ClearStatusMsg{} })
}
