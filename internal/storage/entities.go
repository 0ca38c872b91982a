package storage

import "time"

type User struct {
	ID               string
	Name             string
	Email            string
	Settings         string
	Premium          bool
	PremiumExpiresAt *time.Time
	Timezone         string
	CreatedAt        time.Time
}

type Medicine struct {
	ID           string
	UserID       string
	Name         string
	GenericName  string
	BrandName    string
	Manufacturer string
	Category     string
	Form         string
	Strength     string
	Notes        string
	Source       string
	SourceRef    string
	Active       bool
	CreatedAt    time.Time
}

type Reminder struct {
	ID                  string
	MedicineID          string
	UserID              string
	Hour                int
	Minute              int
	Days                int
	Kind                string
	IntervalDays        int
	Enabled             bool
	NotificationEnabled bool
	Sound               string
	SnoozeEnabled       bool
	StartDate           time.Time
	EndDate             *time.Time
	LastTriggered       *time.Time
	NextTrigger         *time.Time
	CreatedAt           time.Time
}

type HistoryEntry struct {
	ID            string
	ReminderID    string
	MedicineID    string
	UserID        string
	ScheduledTime time.Time
	ActualTime    time.Time
	Status        string
	Notes         string
	LateByMinutes int
	CreatedAt     time.Time
	// MedicineName is populated by list queries that join medicines; it is
	// never written.
	MedicineName string
}

type MedicineListFilter struct {
	UserID     string
	ActiveOnly bool
	Search     string
	Limit      int
	Offset     int
}

type ReminderListFilter struct {
	UserID      string
	MedicineID  string
	Enabled     *bool
	EnabledOnly bool
	Limit       int
	Offset      int
}

type HistoryListFilter struct {
	UserID     string
	MedicineID string
	ReminderID string
	Since      time.Time
	Until      time.Time
	Limit      int
	Offset     int
}

// AdherenceCounts is the raw per-status aggregation over a history window;
// rate computation lives in the adherence ledger.
type AdherenceCounts struct {
	Total   int
	Taken   int
	Skipped int
	Missed  int
}
