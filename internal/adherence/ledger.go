package adherence

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/mediflow/mediflow/internal/model"
	"github.com/mediflow/mediflow/internal/storage"
)

// DefaultWindowDays is the rolling window for adherence statistics.
const DefaultWindowDays = 7

// sweepLookback bounds how far back SweepMissed scans for unanswered slots.
const sweepLookback = 7 * 24 * time.Hour

// Stats is the aggregate view over a rolling history window. Rate is a
// percentage with one decimal of precision.
type Stats struct {
	WindowDays int
	Total      int
	Taken      int
	Skipped    int
	Missed     int
	Rate       float64
}

// Intake describes one user response to a reminder trigger, or a manual log
// entry when ReminderID is empty.
type Intake struct {
	ReminderID    string
	MedicineID    string
	UserID        string
	ScheduledTime time.Time
	Status        model.IntakeStatus
	Notes         string
}

// Ledger is the append-only intake log. Entries are never updated or deleted
// by the application; corrections are new entries.
type Ledger struct {
	repo storage.Repository
	now  func() time.Time
}

func NewLedger(repo storage.Repository) *Ledger {
	return &Ledger{repo: repo, now: time.Now}
}

// LogIntake appends one history entry. Lateness is the whole minutes between
// the scheduled slot and the moment of logging, clamped at zero; missed
// entries are always recorded with zero lateness since nothing was taken.
func (l *Ledger) LogIntake(ctx context.Context, in Intake) (model.HistoryEntry, error) {
	now := l.now()

	entry := model.HistoryEntry{
		ID:            uuid.NewString(),
		ReminderID:    in.ReminderID,
		MedicineID:    in.MedicineID,
		UserID:        in.UserID,
		ScheduledTime: in.ScheduledTime,
		ActualTime:    now,
		Status:        in.Status,
		Notes:         in.Notes,
		LateByMinutes: lateBy(in.Status, in.ScheduledTime, now),
		CreatedAt:     now,
	}
	if err := entry.Validate(); err != nil {
		return model.HistoryEntry{}, err
	}

	if err := l.repo.AppendHistory(ctx, toStoredEntry(entry)); err != nil {
		return model.HistoryEntry{}, fmt.Errorf("adherence: append history: %w", err)
	}
	return entry, nil
}

func lateBy(status model.IntakeStatus, scheduled, actual time.Time) int {
	if status == model.IntakeMissed {
		return 0
	}
	late := actual.Sub(scheduled)
	if late <= 0 {
		return 0
	}
	return int(late / time.Minute)
}

// WindowStats aggregates the user's history over the trailing windowDays and
// computes the adherence rate: taken over total, as a percentage rounded to
// one decimal place. An empty window yields a zero rate, not a division error.
func (l *Ledger) WindowStats(ctx context.Context, userID string, windowDays int) (Stats, error) {
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	since := l.now().Add(-time.Duration(windowDays) * 24 * time.Hour)

	counts, err := l.repo.CountAdherence(ctx, userID, since)
	if err != nil {
		return Stats{}, fmt.Errorf("adherence: count window: %w", err)
	}

	stats := Stats{
		WindowDays: windowDays,
		Total:      counts.Total,
		Taken:      counts.Taken,
		Skipped:    counts.Skipped,
		Missed:     counts.Missed,
	}
	if counts.Total > 0 {
		stats.Rate = math.Round(float64(counts.Taken)/float64(counts.Total)*1000) / 10
	}
	return stats, nil
}

// History returns the joined intake log, newest first.
func (l *Ledger) History(ctx context.Context, filter storage.HistoryListFilter) ([]storage.HistoryEntry, error) {
	entries, err := l.repo.ListHistory(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("adherence: list history: %w", err)
	}
	return entries, nil
}

// SweepMissed scans recent deterministic reminder slots and appends a missed
// entry for every slot past its grace period that the user never answered. It
// runs at startup and after deliveries; re-running it is harmless because a
// slot with any logged entry is skipped.
func (l *Ledger) SweepMissed(ctx context.Context, userID string, grace time.Duration) (int, error) {
	now := l.now()
	cutoff := now.Add(-sweepLookback)

	reminders, err := l.repo.ListReminders(ctx, storage.ReminderListFilter{
		UserID:      userID,
		EnabledOnly: true,
	})
	if err != nil {
		return 0, fmt.Errorf("adherence: list reminders for sweep: %w", err)
	}

	swept := 0
	for _, stored := range reminders {
		rem := model.Reminder{
			ID:         stored.ID,
			MedicineID: stored.MedicineID,
			UserID:     stored.UserID,
			Hour:       stored.Hour,
			Minute:     stored.Minute,
			Days:       model.DaySet(stored.Days),
			Kind:       model.RecurrenceKind(stored.Kind),
			StartDate:  stored.StartDate,
			EndDate:    stored.EndDate,
		}
		if rem.Kind != model.RecurrenceDaily && rem.Kind != model.RecurrenceSpecificDays {
			continue
		}

		answered, histErr := l.answeredSlots(ctx, rem.ID, cutoff)
		if histErr != nil {
			return swept, histErr
		}

		for day := startOfDay(cutoff); !day.After(now); day = day.AddDate(0, 0, 1) {
			if !rem.OccursOn(day.Weekday()) {
				continue
			}
			slot := rem.SlotFor(day)
			if slot.Before(rem.StartDate) || !slot.Add(grace).Before(now) {
				continue
			}
			if rem.EndDate != nil && slot.After(*rem.EndDate) {
				continue
			}
			if _, ok := answered[slot.Unix()]; ok {
				continue
			}
			entry := storage.HistoryEntry{
				ID:            uuid.NewString(),
				ReminderID:    rem.ID,
				MedicineID:    rem.MedicineID,
				UserID:        rem.UserID,
				ScheduledTime: slot,
				ActualTime:    now,
				Status:        string(model.IntakeMissed),
				CreatedAt:     now,
			}
			if appendErr := l.repo.AppendHistory(ctx, entry); appendErr != nil {
				return swept, fmt.Errorf("adherence: record missed slot: %w", appendErr)
			}
			swept++
		}
	}
	return swept, nil
}

func (l *Ledger) answeredSlots(ctx context.Context, reminderID string, since time.Time) (map[int64]struct{}, error) {
	entries, err := l.repo.ListHistory(ctx, storage.HistoryListFilter{
		ReminderID: reminderID,
		Since:      since,
	})
	if err != nil {
		return nil, fmt.Errorf("adherence: history for reminder %s: %w", reminderID, err)
	}
	slots := make(map[int64]struct{}, len(entries))
	for _, e := range entries {
		slots[e.ScheduledTime.Unix()] = struct{}{}
	}
	return slots, nil
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func toStoredEntry(e model.HistoryEntry) storage.HistoryEntry {
	return storage.HistoryEntry{
		ID:            e.ID,
		ReminderID:    e.ReminderID,
		MedicineID:    e.MedicineID,
		UserID:        e.UserID,
		ScheduledTime: e.ScheduledTime,
		ActualTime:    e.ActualTime,
		Status:        string(e.Status),
		Notes:         e.Notes,
		LateByMinutes: e.LateByMinutes,
		CreatedAt:     e.CreatedAt,
	}
}
