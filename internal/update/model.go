// Package update holds the terminal dashboard: the bubbletea model, its
// message loop and the key handling for each view. All domain behavior lives
// in the app service; this layer only translates keys and messages into
// service calls and re-renders.
package update

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"

	"github.com/mediflow/mediflow/internal/adherence"
	"github.com/mediflow/mediflow/internal/app"
	"github.com/mediflow/mediflow/internal/lookup"
	"github.com/mediflow/mediflow/internal/model"
	"github.com/mediflow/mediflow/internal/notify"
	"github.com/mediflow/mediflow/internal/storage"
	"github.com/mediflow/mediflow/internal/today"
)

type View string

const (
	ViewToday     View = "Today"
	ViewMedicines View = "Medicines"
	ViewHistory   View = "History"
	ViewStats     View = "Stats"
)

type StatusBar struct {
	Text    string
	IsError bool
}

type GlobalKeyMap struct {
	Today     string
	Medicines string
	History   string
	Stats     string
	Help      string
	Quit      string
}

type CommandPaletteState struct {
	Active bool
	Input  string
}

type LookupState struct {
	Query   string
	Pending bool
	Matches []lookup.Match
}

type Model struct {
	CurrentView View
	UserID      string

	TodayItems []today.Item
	TodayIndex int
	Snoozed    map[string]bool

	Medicines     []model.Medicine
	MedicineIndex int
	History       []storage.HistoryEntry
	Stats         adherence.Stats

	Palette     CommandPaletteState
	Lookup      LookupState
	HelpVisible bool
	Status      StatusBar
	Keys        GlobalKeyMap
	Quitting    bool
	LastError   error

	service    *app.Service
	finder     *lookup.Client
	deliveries <-chan notify.Delivery

	// Bubble components used for rich TUI controls
	todayList     list.Model
	medsTable     table.Model
	commandInput  textinput.Model
	lookupSpinner spinner.Model
	helpModel     help.Model
}

func NewModel(service *app.Service, finder *lookup.Client, deliveries <-chan notify.Delivery, userID string) Model {
	m := Model{
		CurrentView: ViewToday,
		UserID:      userID,
		Snoozed:     make(map[string]bool),
		service:     service,
		finder:      finder,
		deliveries:  deliveries,
		Keys: GlobalKeyMap{
			Today:     "1",
			Medicines: "2",
			History:   "3",
			Stats:     "4",
			Help:      "?",
			Quit:      "q",
		},
	}
	m.initBubbleComponents()
	return m
}

type doseListItem struct {
	title       string
	description string
}

func (i doseListItem) FilterValue() string { return i.title + " " + i.description }
func (i doseListItem) Title() string       { return i.title }
func (i doseListItem) Description() string { return i.description }

// Snapshot is everything one refresh pass loads from the service.
type Snapshot struct {
	Today     []today.Item
	Medicines []model.Medicine
	History   []storage.HistoryEntry
	Stats     adherence.Stats
}

type RefreshedMsg struct {
	Snapshot Snapshot
}

type SwitchViewMsg struct {
	View View
}

type SetStatusMsg struct {
	Text    string
	IsError bool
}

type ClearStatusMsg struct{}

type AppErrorMsg struct {
	Err error
}

type DeliveryMsg struct {
	Delivery notify.Delivery
}

type LookupResultMsg struct {
	Query   string
	Matches []lookup.Match
	Err     error
}

type DoseAnsweredMsg struct {
	Entry model.HistoryEntry
}

