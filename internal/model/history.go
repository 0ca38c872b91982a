package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidIntakeStatus = errors.New("model: invalid intake status")

type IntakeStatus string

const (
	IntakeTaken   IntakeStatus = "taken"
	IntakeSkipped IntakeStatus = "skipped"
	IntakeMissed  IntakeStatus = "missed"
)

func (s IntakeStatus) IsValid() bool {
	switch s {
	case IntakeTaken, IntakeSkipped, IntakeMissed:
		return true
	default:
		return false
	}
}

// HistoryEntry is one immutable row of the intake log. ReminderID is empty
// for manually logged intakes that were not produced by a reminder.
type HistoryEntry struct {
	ID            string
	ReminderID    string
	MedicineID    string
	UserID        string
	ScheduledTime time.Time
	ActualTime    time.Time
	Status        IntakeStatus
	Notes         string
	LateByMinutes int
	CreatedAt     time.Time
}

func (e HistoryEntry) Validate() error {
	if strings.TrimSpace(e.ID) == "" {
		return errors.New("model: history entry id is required")
	}
	if strings.TrimSpace(e.MedicineID) == "" {
		return errors.New("model: history entry medicine_id is required")
	}
	if strings.TrimSpace(e.UserID) == "" {
		return errors.New("model: history entry user_id is required")
	}
	if e.ScheduledTime.IsZero() {
		return errors.New("model: history entry scheduled_time is required")
	}
	if !e.Status.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidIntakeStatus, e.Status)
	}
	if e.LateByMinutes < 0 {
		return errors.New("model: late_by_minutes must not be negative")
	}
	return nil
}
