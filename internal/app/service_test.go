package app

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mediflow/mediflow/internal/adherence"
	"github.com/mediflow/mediflow/internal/config"
	"github.com/mediflow/mediflow/internal/model"
	"github.com/mediflow/mediflow/internal/notify"
	"github.com/mediflow/mediflow/internal/sched"
	"github.com/mediflow/mediflow/internal/storage"
)

func newTestService(t *testing.T) (*Service, *notify.Engine) {
	t.Helper()
	repo, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "app.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { repo.DB().Close() })
	if err := storage.MigrateUp(repo.DB()); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	engine := notify.NewEngine(16)
	svc := NewService(repo, sched.New(engine), adherence.NewLedger(repo), config.Config{
		SnoozeDelay: 15 * time.Minute,
		MissedGrace: 30 * time.Minute,
		WindowDays:  7,
	})

	if _, err := svc.EnsureUser(t.Context(), "Tester"); err != nil {
		t.Fatalf("ensure user: %v", err)
	}
	return svc, engine
}

func addMedicine(t *testing.T, svc *Service, name string) model.Medicine {
	t.Helper()
	med, err := svc.AddMedicine(t.Context(), model.Medicine{
		UserID: DefaultUserID,
		Name:   name,
	})
	if err != nil {
		t.Fatalf("add medicine %s: %v", name, err)
	}
	return med
}

func addDailyReminder(t *testing.T, svc *Service, medicineID string, hour, minute int) model.Reminder {
	t.Helper()
	rem, err := svc.AddReminder(t.Context(), model.Reminder{
		MedicineID:          medicineID,
		UserID:              DefaultUserID,
		Hour:                hour,
		Minute:              minute,
		Kind:                model.RecurrenceDaily,
		Enabled:             true,
		NotificationEnabled: true,
		SnoozeEnabled:       true,
	})
	if err != nil {
		t.Fatalf("add reminder: %v", err)
	}
	return rem
}

func TestEnsureUserIsIdempotent(t *testing.T) {
	svc, _ := newTestService(t)

	again, err := svc.EnsureUser(t.Context(), "Someone Else")
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if again.Name != "Tester" {
		t.Fatalf("existing profile overwritten: %q", again.Name)
	}
}

func TestAddReminderPersistsAndArms(t *testing.T) {
	svc, engine := newTestService(t)
	med := addMedicine(t, svc, "Aspirin")
	rem := addDailyReminder(t, svc, med.ID, 9, 0)

	if got := len(engine.Scheduled()); got != 1 {
		t.Fatalf("expected 1 booking, got %d", got)
	}

	stored, err := svc.Reminder(t.Context(), rem.ID)
	if err != nil {
		t.Fatalf("reload reminder: %v", err)
	}
	if stored.NextTrigger == nil {
		t.Fatal("next trigger not recorded")
	}
	if !stored.NextTrigger.After(time.Now().Add(-time.Minute)) {
		t.Fatalf("next trigger in the past: %v", stored.NextTrigger)
	}
}

func TestAddReminderForUnknownMedicine(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.AddReminder(t.Context(), model.Reminder{
		MedicineID:          "missing",
		UserID:              DefaultUserID,
		Hour:                9,
		Kind:                model.RecurrenceDaily,
		Enabled:             true,
		NotificationEnabled: true,
	})
	if err == nil {
		t.Fatal("expected error for unknown medicine")
	}
}

func TestUpdateReminderRearms(t *testing.T) {
	svc, engine := newTestService(t)
	med := addMedicine(t, svc, "Aspirin")
	rem := addDailyReminder(t, svc, med.ID, 9, 0)

	rem.Kind = model.RecurrenceSpecificDays
	rem.Days = model.NewDaySet(time.Monday, time.Thursday)
	if err := svc.UpdateReminder(t.Context(), rem); err != nil {
		t.Fatalf("update: %v", err)
	}

	if got := len(engine.Scheduled()); got != 2 {
		t.Fatalf("expected 2 bookings after edit, got %d", got)
	}
}

func TestDeleteMedicineRetractsAndCascades(t *testing.T) {
	svc, engine := newTestService(t)
	med := addMedicine(t, svc, "Aspirin")
	rem := addDailyReminder(t, svc, med.ID, 9, 0)
	addDailyReminder(t, svc, med.ID, 21, 0)

	if err := svc.DeleteMedicine(t.Context(), med.ID); err != nil {
		t.Fatalf("delete medicine: %v", err)
	}

	if got := len(engine.Scheduled()); got != 0 {
		t.Fatalf("bookings survived delete: %d", got)
	}
	if _, err := svc.Reminder(t.Context(), rem.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("reminder survived cascade: %v", err)
	}
}

func TestArchiveMedicineRetractsButKeepsRecords(t *testing.T) {
	svc, engine := newTestService(t)
	med := addMedicine(t, svc, "Aspirin")
	rem := addDailyReminder(t, svc, med.ID, 9, 0)

	if err := svc.ArchiveMedicine(t.Context(), med.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}

	if got := len(engine.Scheduled()); got != 0 {
		t.Fatalf("bookings survived archive: %d", got)
	}
	if _, err := svc.Reminder(t.Context(), rem.ID); err != nil {
		t.Fatalf("reminder should survive archive: %v", err)
	}
	reloaded, err := svc.Medicine(t.Context(), med.ID)
	if err != nil {
		t.Fatalf("reload medicine: %v", err)
	}
	if reloaded.Active {
		t.Fatal("medicine still active after archive")
	}
}

func TestTakeDoseClearsSnooze(t *testing.T) {
	svc, engine := newTestService(t)
	med := addMedicine(t, svc, "Aspirin")
	rem := addDailyReminder(t, svc, med.ID, 9, 0)

	if err := svc.Snooze(t.Context(), rem); err != nil {
		t.Fatalf("snooze: %v", err)
	}
	snoozes := 0
	for _, b := range engine.Scheduled() {
		if b.Tag.Kind == notify.TagKindSnooze {
			snoozes++
		}
	}
	if snoozes != 1 {
		t.Fatalf("expected 1 snooze booking, got %d", snoozes)
	}

	entry, err := svc.TakeDose(t.Context(), rem, time.Now().Add(-10*time.Minute), "")
	if err != nil {
		t.Fatalf("take dose: %v", err)
	}
	if entry.Status != model.IntakeTaken {
		t.Fatalf("status = %q", entry.Status)
	}
	if entry.LateByMinutes < 9 || entry.LateByMinutes > 11 {
		t.Fatalf("lateness = %d, want about 10", entry.LateByMinutes)
	}

	for _, b := range engine.Scheduled() {
		if b.Tag.Kind == notify.TagKindSnooze {
			t.Fatal("snooze survived taking the dose")
		}
	}
	// The recurring trigger must still be armed.
	if got := len(engine.Scheduled()); got != 1 {
		t.Fatalf("recurring booking count = %d, want 1", got)
	}
}

func TestTodayExcludesArchivedMedicines(t *testing.T) {
	svc, _ := newTestService(t)

	// Slots one hour ahead so they always land on today's remaining list,
	// except near midnight where the day boundary makes the test moot.
	soon := time.Now().Add(time.Hour)
	if soon.Day() != time.Now().Day() {
		t.Skip("too close to midnight for a same-day slot")
	}

	active := addMedicine(t, svc, "Active Med")
	archived := addMedicine(t, svc, "Archived Med")
	addDailyReminder(t, svc, active.ID, soon.Hour(), soon.Minute())
	addDailyReminder(t, svc, archived.ID, soon.Hour(), soon.Minute())

	if err := svc.ArchiveMedicine(t.Context(), archived.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}

	items, err := svc.Today(t.Context(), DefaultUserID)
	if err != nil {
		t.Fatalf("today: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Medicine.ID != active.ID {
		t.Fatalf("wrong medicine projected: %q", items[0].Medicine.Name)
	}
}

func TestStartupRebuildsTriggers(t *testing.T) {
	svc, engine := newTestService(t)
	med := addMedicine(t, svc, "Aspirin")
	addDailyReminder(t, svc, med.ID, 9, 0)
	addDailyReminder(t, svc, med.ID, 21, 0)

	if err := svc.Startup(t.Context(), DefaultUserID); err != nil {
		t.Fatalf("startup: %v", err)
	}
	if got := len(engine.Scheduled()); got != 2 {
		t.Fatalf("expected 2 bookings, got %d", got)
	}

	// A second startup pass must not duplicate.
	if err := svc.Startup(t.Context(), DefaultUserID); err != nil {
		t.Fatalf("second startup: %v", err)
	}
	if got := len(engine.Scheduled()); got != 2 {
		t.Fatalf("startup duplicated bookings: %d", got)
	}
}

func TestStatsRollUp(t *testing.T) {
	svc, _ := newTestService(t)
	med := addMedicine(t, svc, "Aspirin")
	rem := addDailyReminder(t, svc, med.ID, 9, 0)

	scheduled := time.Now().Add(-2 * time.Hour)
	if _, err := svc.TakeDose(t.Context(), rem, scheduled, ""); err != nil {
		t.Fatalf("take: %v", err)
	}
	if _, err := svc.SkipDose(t.Context(), rem, scheduled.Add(-24*time.Hour), "travel day"); err != nil {
		t.Fatalf("skip: %v", err)
	}

	stats, err := svc.Stats(t.Context(), DefaultUserID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 2 || stats.Taken != 1 || stats.Skipped != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.Rate != 50.0 {
		t.Fatalf("rate = %v, want 50.0", stats.Rate)
	}
}
