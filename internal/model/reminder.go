package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrInvalidRecurrenceKind = errors.New("model: invalid recurrence kind")
	ErrEmptyDaySet           = errors.New("model: specific_days reminder requires a non-empty day set")
	ErrInvalidInterval       = errors.New("model: interval reminder requires interval_days >= 1")
	ErrInvalidTimeOfDay      = errors.New("model: invalid time of day")
)

type RecurrenceKind string

const (
	RecurrenceDaily        RecurrenceKind = "daily"
	RecurrenceSpecificDays RecurrenceKind = "specific_days"
	RecurrenceInterval     RecurrenceKind = "interval"
	RecurrenceAsNeeded     RecurrenceKind = "as_needed"
)

func (k RecurrenceKind) IsValid() bool {
	switch k {
	case RecurrenceDaily, RecurrenceSpecificDays, RecurrenceInterval, RecurrenceAsNeeded:
		return true
	default:
		return false
	}
}

// Reminder is the persisted recurrence configuration from which concrete
// notification triggers are derived. Hour and Minute are wall-clock local
// time; there is no timezone conversion anywhere in the scheduling path.
type Reminder struct {
	ID                  string
	MedicineID          string
	UserID              string
	Hour                int
	Minute              int
	Days                DaySet
	Kind                RecurrenceKind
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

func (r Reminder) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("model: reminder id is required")
	}
	if strings.TrimSpace(r.MedicineID) == "" {
		return errors.New("model: reminder medicine_id is required")
	}
	if strings.TrimSpace(r.UserID) == "" {
		return errors.New("model: reminder user_id is required")
	}
	if r.Hour < 0 || r.Hour > 23 || r.Minute < 0 || r.Minute > 59 {
		return fmt.Errorf("%w: %02d:%02d", ErrInvalidTimeOfDay, r.Hour, r.Minute)
	}
	if !r.Kind.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidRecurrenceKind, r.Kind)
	}
	if r.Kind == RecurrenceSpecificDays && r.Days.IsEmpty() {
		return ErrEmptyDaySet
	}
	if r.Kind == RecurrenceInterval && r.IntervalDays < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidInterval, r.IntervalDays)
	}
	return nil
}

// MinutesOfDay returns the reminder's time of day as minutes since midnight,
// the sort key for the today projection.
func (r Reminder) MinutesOfDay() int {
	return r.Hour*60 + r.Minute
}

func (r Reminder) TimeLabel() string {
	return fmt.Sprintf("%02d:%02d", r.Hour, r.Minute)
}

// OccursOn reports whether the reminder has a deterministic slot on the given
// weekday. Interval and as-needed reminders never do.
func (r Reminder) OccursOn(day time.Weekday) bool {
	switch r.Kind {
	case RecurrenceDaily:
		return true
	case RecurrenceSpecificDays:
		return r.Days.Has(day)
	default:
		return false
	}
}

// SlotFor returns the reminder's nominal scheduled time on the day of ref.
func (r Reminder) SlotFor(ref time.Time) time.Time {
	return time.Date(ref.Year(), ref.Month(), ref.Day(), r.Hour, r.Minute, 0, 0, ref.Location())
}
