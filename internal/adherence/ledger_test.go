package adherence

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/mediflow/mediflow/internal/model"
	"github.com/mediflow/mediflow/internal/storage"
)

func setupLedger(t *testing.T, now time.Time) (*Ledger, *storage.SQLiteRepository) {
	t.Helper()
	repo, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "adherence.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { repo.DB().Close() })
	if err := storage.MigrateUp(repo.DB()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ctx := t.Context()
	if err := repo.CreateUser(ctx, storage.User{
		ID: "user-1", Name: "Dana", Settings: "{}", Timezone: "Local", CreatedAt: now,
	}); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	if err := repo.CreateMedicine(ctx, storage.Medicine{
		ID: "med-1", UserID: "user-1", Name: "Metformin",
		Source: "manual", Active: true, CreatedAt: now,
	}); err != nil {
		t.Fatalf("seed medicine: %v", err)
	}

	ledger := NewLedger(repo)
	ledger.now = func() time.Time { return now }
	return ledger, repo
}

func seedReminder(t *testing.T, repo *storage.SQLiteRepository, rem storage.Reminder) {
	t.Helper()
	if rem.Kind == "" {
		rem.Kind = string(model.RecurrenceDaily)
	}
	if rem.Sound == "" {
		rem.Sound = "default"
	}
	if err := repo.CreateReminder(t.Context(), rem); err != nil {
		t.Fatalf("seed reminder %s: %v", rem.ID, err)
	}
}

func TestLogIntakeLateness(t *testing.T) {
	now := time.Date(2026, 2, 9, 9, 12, 30, 0, time.UTC)
	scheduled := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		status    model.IntakeStatus
		scheduled time.Time
		wantLate  int
	}{
		{"taken late by twelve minutes", model.IntakeTaken, scheduled, 12},
		{"skipped late by twelve minutes", model.IntakeSkipped, scheduled, 12},
		{"missed is never late", model.IntakeMissed, scheduled, 0},
		{"taken early clamps to zero", model.IntakeTaken, now.Add(30 * time.Minute), 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ledger, _ := setupLedger(t, now)
			entry, err := ledger.LogIntake(t.Context(), Intake{
				ReminderID:    "",
				MedicineID:    "med-1",
				UserID:        "user-1",
				ScheduledTime: tc.scheduled,
				Status:        tc.status,
			})
			if err != nil {
				t.Fatalf("log intake: %v", err)
			}
			if entry.LateByMinutes != tc.wantLate {
				t.Fatalf("lateness = %d, want %d", entry.LateByMinutes, tc.wantLate)
			}
		})
	}
}

func TestLogIntakeRejectsInvalidStatus(t *testing.T) {
	now := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)
	ledger, _ := setupLedger(t, now)

	_, err := ledger.LogIntake(t.Context(), Intake{
		MedicineID:    "med-1",
		UserID:        "user-1",
		ScheduledTime: now,
		Status:        model.IntakeStatus("postponed"),
	})
	if err == nil {
		t.Fatal("expected invalid status to be rejected")
	}
}

func TestWindowStatsEmptyWindow(t *testing.T) {
	now := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)
	ledger, _ := setupLedger(t, now)

	stats, err := ledger.WindowStats(t.Context(), "user-1", 7)
	if err != nil {
		t.Fatalf("window stats: %v", err)
	}
	if stats.Total != 0 || stats.Rate != 0 {
		t.Fatalf("empty window should be all zeros, got %+v", stats)
	}
}

func TestWindowStatsRateRounding(t *testing.T) {
	now := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)
	ledger, _ := setupLedger(t, now)
	ctx := t.Context()

	log := func(status model.IntakeStatus, age time.Duration) {
		t.Helper()
		if _, err := ledger.LogIntake(ctx, Intake{
			MedicineID:    "med-1",
			UserID:        "user-1",
			ScheduledTime: now.Add(-age),
			Status:        status,
		}); err != nil {
			t.Fatalf("log %s: %v", status, err)
		}
	}

	// 4 taken, 1 skipped, 1 missed inside the window: 4/6 = 66.7%.
	for i := 0; i < 4; i++ {
		log(model.IntakeTaken, time.Duration(i+1)*time.Hour)
	}
	log(model.IntakeSkipped, 5*time.Hour)
	log(model.IntakeMissed, 6*time.Hour)
	// Outside the 7 day window; must not move the rate.
	log(model.IntakeSkipped, 8*24*time.Hour)

	stats, err := ledger.WindowStats(ctx, "user-1", 7)
	if err != nil {
		t.Fatalf("window stats: %v", err)
	}
	if stats.Total != 6 || stats.Taken != 4 || stats.Skipped != 1 || stats.Missed != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.Rate != 66.7 {
		t.Fatalf("rate = %v, want 66.7", stats.Rate)
	}
}

func TestWindowStatsEightOfTen(t *testing.T) {
	now := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)
	ledger, _ := setupLedger(t, now)
	ctx := t.Context()

	statuses := []model.IntakeStatus{
		model.IntakeTaken, model.IntakeTaken, model.IntakeTaken, model.IntakeTaken,
		model.IntakeTaken, model.IntakeTaken, model.IntakeTaken, model.IntakeTaken,
		model.IntakeSkipped, model.IntakeMissed,
	}
	for i, status := range statuses {
		if _, err := ledger.LogIntake(ctx, Intake{
			MedicineID:    "med-1",
			UserID:        "user-1",
			ScheduledTime: now.Add(-time.Duration(i+1) * time.Hour),
			Status:        status,
		}); err != nil {
			t.Fatalf("log entry %d: %v", i, err)
		}
	}

	stats, err := ledger.WindowStats(ctx, "user-1", 7)
	if err != nil {
		t.Fatalf("window stats: %v", err)
	}
	if stats.Total != 10 || stats.Taken != 8 || stats.Skipped != 1 || stats.Missed != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.Rate != 80.0 {
		t.Fatalf("rate = %v, want 80.0", stats.Rate)
	}
}

func TestSweepMissedRecordsUnansweredSlots(t *testing.T) {
	// Monday 10:00. The 08:00 daily slot is past its grace period, the 09:45
	// slot is not.
	now := time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC)
	ledger, repo := setupLedger(t, now)
	start := time.Date(2026, 2, 8, 0, 0, 0, 0, time.UTC)

	seedReminder(t, repo, storage.Reminder{
		ID: "rem-early", MedicineID: "med-1", UserID: "user-1",
		Hour: 8, Minute: 0, Enabled: true, NotificationEnabled: true,
		StartDate: start, CreatedAt: start,
	})
	seedReminder(t, repo, storage.Reminder{
		ID: "rem-recent", MedicineID: "med-1", UserID: "user-1",
		Hour: 9, Minute: 45, Enabled: true, NotificationEnabled: true,
		StartDate: start, CreatedAt: start,
	})

	swept, err := ledger.SweepMissed(t.Context(), "user-1", 30*time.Minute)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	// rem-early: yesterday 08:00 and today 08:00. rem-recent: yesterday 09:45
	// only, today's slot is still inside the grace period.
	if swept != 3 {
		t.Fatalf("swept = %d, want 3", swept)
	}

	entries, err := ledger.History(t.Context(), storage.HistoryListFilter{UserID: "user-1"})
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	for _, e := range entries {
		if e.Status != string(model.IntakeMissed) {
			t.Fatalf("sweep wrote status %q", e.Status)
		}
		if e.LateByMinutes != 0 {
			t.Fatalf("missed entry has lateness %d", e.LateByMinutes)
		}
	}
}

func TestSweepMissedIsIdempotent(t *testing.T) {
	now := time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC)
	ledger, repo := setupLedger(t, now)

	seedReminder(t, repo, storage.Reminder{
		ID: "rem-1", MedicineID: "med-1", UserID: "user-1",
		Hour: 8, Minute: 0, Enabled: true, NotificationEnabled: true,
		StartDate: now.Add(-3 * time.Hour), CreatedAt: now,
	})

	first, err := ledger.SweepMissed(t.Context(), "user-1", 30*time.Minute)
	if err != nil {
		t.Fatalf("first sweep: %v", err)
	}
	if first != 1 {
		t.Fatalf("first sweep = %d, want 1", first)
	}

	second, err := ledger.SweepMissed(t.Context(), "user-1", 30*time.Minute)
	if err != nil {
		t.Fatalf("second sweep: %v", err)
	}
	if second != 0 {
		t.Fatalf("second sweep re-recorded %d slots", second)
	}
}

func TestSweepMissedSkipsAnsweredSlots(t *testing.T) {
	now := time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC)
	ledger, repo := setupLedger(t, now)
	slot := time.Date(2026, 2, 9, 8, 0, 0, 0, time.UTC)

	seedReminder(t, repo, storage.Reminder{
		ID: "rem-1", MedicineID: "med-1", UserID: "user-1",
		Hour: 8, Minute: 0, Enabled: true, NotificationEnabled: true,
		StartDate: slot.Add(-time.Hour), CreatedAt: now,
	})
	if _, err := ledger.LogIntake(t.Context(), Intake{
		ReminderID:    "rem-1",
		MedicineID:    "med-1",
		UserID:        "user-1",
		ScheduledTime: slot,
		Status:        model.IntakeTaken,
	}); err != nil {
		t.Fatalf("log intake: %v", err)
	}

	swept, err := ledger.SweepMissed(t.Context(), "user-1", 30*time.Minute)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 0 {
		t.Fatalf("answered slot was swept: %d", swept)
	}
}

func TestSweepMissedIgnoresNonDeterministicKinds(t *testing.T) {
	now := time.Date(2026, 2, 9, 10, 0, 0, 0, time.UTC)
	ledger, repo := setupLedger(t, now)

	seedReminder(t, repo, storage.Reminder{
		ID: "rem-interval", MedicineID: "med-1", UserID: "user-1",
		Hour: 8, Minute: 0, Kind: string(model.RecurrenceInterval), IntervalDays: 2,
		Enabled: true, NotificationEnabled: true,
		StartDate: now.AddDate(0, 0, -3), CreatedAt: now,
	})
	seedReminder(t, repo, storage.Reminder{
		ID: "rem-prn", MedicineID: "med-1", UserID: "user-1",
		Hour: 8, Minute: 0, Kind: string(model.RecurrenceAsNeeded),
		Enabled: true, NotificationEnabled: true,
		StartDate: now.AddDate(0, 0, -3), CreatedAt: now,
	})

	swept, err := ledger.SweepMissed(t.Context(), "user-1", 30*time.Minute)
	if err != nil {
		t.Fatalf("sweep: %v", err)
	}
	if swept != 0 {
		t.Fatalf("non-deterministic reminders were swept: %d", swept)
	}
}
