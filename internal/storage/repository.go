package storage

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("storage: not found")

// Repository is the persistence gateway contract consumed by the scheduling
// core. Four record kinds keyed by opaque string ids. Deleting a medicine
// cascades to its reminders and history; deleting a reminder nulls the
// reminder reference on its history entries so intake history stays
// attributable to the medicine.
type Repository interface {
	CreateUser(ctx context.Context, in User) error
	GetUser(ctx context.Context, id string) (User, error)
	UpdateUser(ctx context.Context, in User) error

	CreateMedicine(ctx context.Context, in Medicine) error
	GetMedicine(ctx context.Context, id string) (Medicine, error)
	UpdateMedicine(ctx context.Context, in Medicine) error
	ArchiveMedicine(ctx context.Context, id string) error
	DeleteMedicine(ctx context.Context, id string) error
	ListMedicines(ctx context.Context, filter MedicineListFilter) ([]Medicine, error)

	CreateReminder(ctx context.Context, in Reminder) error
	GetReminder(ctx context.Context, id string) (Reminder, error)
	UpdateReminder(ctx context.Context, in Reminder) error
	DeleteReminder(ctx context.Context, id string) error
	ListReminders(ctx context.Context, filter ReminderListFilter) ([]Reminder, error)
	SetReminderTriggerTimes(ctx context.Context, id string, lastTriggered, nextTrigger *time.Time) error

	AppendHistory(ctx context.Context, in HistoryEntry) error
	ListHistory(ctx context.Context, filter HistoryListFilter) ([]HistoryEntry, error)
	CountAdherence(ctx context.Context, userID string, since time.Time) (AdherenceCounts, error)
}
