// Package app wires the persistence gateway, the notification scheduler and
// the adherence ledger into the operations the UI calls. The ordering rule
// throughout is persist first, arm second: the database is the source of
// truth and the live trigger set is always re-derivable from it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mediflow/mediflow/internal/adherence"
	"github.com/mediflow/mediflow/internal/config"
	"github.com/mediflow/mediflow/internal/model"
	"github.com/mediflow/mediflow/internal/sched"
	"github.com/mediflow/mediflow/internal/storage"
	"github.com/mediflow/mediflow/internal/today"
)

// DefaultUserID keys the single local profile.
const DefaultUserID = "local"

type Service struct {
	repo   storage.Repository
	sched  *sched.Scheduler
	ledger *adherence.Ledger
	cfg    config.Config
	now    func() time.Time
}

func NewService(repo storage.Repository, scheduler *sched.Scheduler, ledger *adherence.Ledger, cfg config.Config) *Service {
	return &Service{
		repo:   repo,
		sched:  scheduler,
		ledger: ledger,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Now exposes the service clock for callers stamping new records.
func (s *Service) Now() time.Time {
	return s.now()
}

// EnsureUser returns the local profile, creating it on first run.
func (s *Service) EnsureUser(ctx context.Context, name string) (model.User, error) {
	stored, err := s.repo.GetUser(ctx, DefaultUserID)
	if err == nil {
		return userFromStored(stored), nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return model.User{}, fmt.Errorf("app: load user: %w", err)
	}

	user := model.User{
		ID:        DefaultUserID,
		Name:      name,
		Settings:  "{}",
		Timezone:  "Local",
		CreatedAt: s.now(),
	}
	if err := user.Validate(); err != nil {
		return model.User{}, err
	}
	if err := s.repo.CreateUser(ctx, storedUser(user)); err != nil {
		return model.User{}, fmt.Errorf("app: create user: %w", err)
	}
	return user, nil
}

// AddMedicine persists a new medicine record. The id and bookkeeping fields
// are assigned here.
func (s *Service) AddMedicine(ctx context.Context, med model.Medicine) (model.Medicine, error) {
	if med.ID == "" {
		med.ID = uuid.NewString()
	}
	if med.Source == "" {
		med.Source = model.SourceManual
	}
	med.Active = true
	med.CreatedAt = s.now()
	if err := med.Validate(); err != nil {
		return model.Medicine{}, err
	}
	if err := s.repo.CreateMedicine(ctx, storedMedicine(med)); err != nil {
		return model.Medicine{}, fmt.Errorf("app: create medicine: %w", err)
	}
	return med, nil
}

func (s *Service) UpdateMedicine(ctx context.Context, med model.Medicine) error {
	if err := med.Validate(); err != nil {
		return err
	}
	if err := s.repo.UpdateMedicine(ctx, storedMedicine(med)); err != nil {
		return fmt.Errorf("app: update medicine: %w", err)
	}
	return nil
}

// ArchiveMedicine deactivates the medicine and retracts its triggers while
// keeping reminders and history on record.
func (s *Service) ArchiveMedicine(ctx context.Context, id string) error {
	s.sched.RetractAll(id)
	if err := s.repo.ArchiveMedicine(ctx, id); err != nil {
		return fmt.Errorf("app: archive medicine: %w", err)
	}
	return nil
}

// DeleteMedicine permanently removes the medicine. Triggers are retracted
// first; the store then cascades the delete to reminders and history.
func (s *Service) DeleteMedicine(ctx context.Context, id string) error {
	s.sched.RetractAll(id)
	if err := s.repo.DeleteMedicine(ctx, id); err != nil {
		return fmt.Errorf("app: delete medicine: %w", err)
	}
	return nil
}

func (s *Service) Medicine(ctx context.Context, id string) (model.Medicine, error) {
	stored, err := s.repo.GetMedicine(ctx, id)
	if err != nil {
		return model.Medicine{}, fmt.Errorf("app: load medicine %s: %w", id, err)
	}
	return medicineFromStored(stored), nil
}

func (s *Service) Medicines(ctx context.Context, userID, search string, activeOnly bool) ([]model.Medicine, error) {
	rows, err := s.repo.ListMedicines(ctx, storage.MedicineListFilter{
		UserID:     userID,
		ActiveOnly: activeOnly,
		Search:     search,
	})
	if err != nil {
		return nil, fmt.Errorf("app: list medicines: %w", err)
	}
	out := make([]model.Medicine, len(rows))
	for i, row := range rows {
		out[i] = medicineFromStored(row)
	}
	return out, nil
}

// AddReminder persists the reminder and then arms it. A scheduling failure is
// soft: the reminder is returned alongside a *sched.SchedulingError and stays
// persisted but unarmed until the next reconcile.
func (s *Service) AddReminder(ctx context.Context, rem model.Reminder) (model.Reminder, error) {
	if rem.ID == "" {
		rem.ID = uuid.NewString()
	}
	if rem.StartDate.IsZero() {
		rem.StartDate = s.now()
	}
	rem.CreatedAt = s.now()
	if err := rem.Validate(); err != nil {
		return model.Reminder{}, err
	}
	if err := s.repo.CreateReminder(ctx, storedReminder(rem)); err != nil {
		return model.Reminder{}, fmt.Errorf("app: create reminder: %w", err)
	}
	return rem, s.armAndRecord(ctx, rem)
}

// UpdateReminder persists the edit and re-arms from the new configuration.
func (s *Service) UpdateReminder(ctx context.Context, rem model.Reminder) error {
	if err := rem.Validate(); err != nil {
		return err
	}
	if err := s.repo.UpdateReminder(ctx, storedReminder(rem)); err != nil {
		return fmt.Errorf("app: update reminder: %w", err)
	}
	return s.armAndRecord(ctx, rem)
}

func (s *Service) DeleteReminder(ctx context.Context, id string) error {
	s.sched.Retract(id)
	if err := s.repo.DeleteReminder(ctx, id); err != nil {
		return fmt.Errorf("app: delete reminder: %w", err)
	}
	return nil
}

func (s *Service) Reminder(ctx context.Context, id string) (model.Reminder, error) {
	stored, err := s.repo.GetReminder(ctx, id)
	if err != nil {
		return model.Reminder{}, fmt.Errorf("app: load reminder %s: %w", id, err)
	}
	return reminderFromStored(stored), nil
}

func (s *Service) Reminders(ctx context.Context, userID string) ([]model.Reminder, error) {
	rows, err := s.repo.ListReminders(ctx, storage.ReminderListFilter{UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("app: list reminders: %w", err)
	}
	out := make([]model.Reminder, len(rows))
	for i, row := range rows {
		out[i] = reminderFromStored(row)
	}
	return out, nil
}

// armAndRecord arms the reminder and persists the derived next fire time.
// Scheduling failures come back as soft *sched.SchedulingError values.
func (s *Service) armAndRecord(ctx context.Context, rem model.Reminder) error {
	med, err := s.Medicine(ctx, rem.MedicineID)
	if err != nil {
		return err
	}
	if !med.Active {
		s.sched.Retract(rem.ID)
		return nil
	}

	_, armErr := s.sched.Arm(ctx, rem, med)

	var nextTrigger *time.Time
	if next, ok := s.sched.NextFireAt(rem.ID); ok {
		nextTrigger = &next
	}
	if err := s.repo.SetReminderTriggerTimes(ctx, rem.ID, rem.LastTriggered, nextTrigger); err != nil {
		log.Printf("app: record trigger times for %s: %v", rem.ID, err)
	}
	return armErr
}

// Today projects the remaining dose slots for the current day.
func (s *Service) Today(ctx context.Context, userID string) ([]today.Item, error) {
	reminders, err := s.Reminders(ctx, userID)
	if err != nil {
		return nil, err
	}
	medicines, err := s.Medicines(ctx, userID, "", true)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]model.Medicine, len(medicines))
	for _, med := range medicines {
		byID[med.ID] = med
	}
	// Reminders for archived medicines have no entry in byID and are dropped
	// by the zero-value medicine check below.
	items := today.Remaining(reminders, byID, s.now())
	filtered := items[:0]
	for _, item := range items {
		if item.Medicine.ID != "" {
			filtered = append(filtered, item)
		}
	}
	return filtered, nil
}

// TakeDose logs a taken intake and clears any pending snooze for the
// reminder.
func (s *Service) TakeDose(ctx context.Context, rem model.Reminder, scheduled time.Time, notes string) (model.HistoryEntry, error) {
	return s.answerDose(ctx, rem, scheduled, model.IntakeTaken, notes)
}

// SkipDose logs a deliberately skipped intake.
func (s *Service) SkipDose(ctx context.Context, rem model.Reminder, scheduled time.Time, notes string) (model.HistoryEntry, error) {
	return s.answerDose(ctx, rem, scheduled, model.IntakeSkipped, notes)
}

// LogManualIntake records an intake that no reminder produced, for as-needed
// medicines.
func (s *Service) LogManualIntake(ctx context.Context, userID, medicineID string, notes string) (model.HistoryEntry, error) {
	now := s.now()
	return s.ledger.LogIntake(ctx, adherence.Intake{
		MedicineID:    medicineID,
		UserID:        userID,
		ScheduledTime: now,
		Status:        model.IntakeTaken,
		Notes:         notes,
	})
}

func (s *Service) answerDose(ctx context.Context, rem model.Reminder, scheduled time.Time, status model.IntakeStatus, notes string) (model.HistoryEntry, error) {
	entry, err := s.ledger.LogIntake(ctx, adherence.Intake{
		ReminderID:    rem.ID,
		MedicineID:    rem.MedicineID,
		UserID:        rem.UserID,
		ScheduledTime: scheduled,
		Status:        status,
		Notes:         notes,
	})
	if err != nil {
		return model.HistoryEntry{}, err
	}
	s.sched.RetractSnoozes(rem.ID)
	return entry, nil
}

// Snooze books a one-shot re-notification using the configured delay.
func (s *Service) Snooze(ctx context.Context, rem model.Reminder) error {
	med, err := s.Medicine(ctx, rem.MedicineID)
	if err != nil {
		return err
	}
	return s.sched.Snooze(rem, med, s.cfg.SnoozeDelay)
}

func (s *Service) Stats(ctx context.Context, userID string) (adherence.Stats, error) {
	return s.ledger.WindowStats(ctx, userID, s.cfg.WindowDays)
}

func (s *Service) History(ctx context.Context, userID string, limit int) ([]storage.HistoryEntry, error) {
	return s.ledger.History(ctx, storage.HistoryListFilter{UserID: userID, Limit: limit})
}

// HandleDelivery records that a reminder fired: last/next trigger bookkeeping
// plus a missed-slot sweep for anything the user left unanswered.
func (s *Service) HandleDelivery(ctx context.Context, reminderID string, firedAt time.Time) {
	if reminderID != "" {
		var nextTrigger *time.Time
		if next, ok := s.sched.NextFireAt(reminderID); ok {
			nextTrigger = &next
		}
		if err := s.repo.SetReminderTriggerTimes(ctx, reminderID, &firedAt, nextTrigger); err != nil {
			log.Printf("app: record delivery for %s: %v", reminderID, err)
		}
	}
	if _, err := s.ledger.SweepMissed(ctx, DefaultUserID, s.cfg.MissedGrace); err != nil {
		log.Printf("app: sweep missed after delivery: %v", err)
	}
}

// Startup rebuilds the live trigger set from the database and backfills
// missed slots accumulated while the process was down.
func (s *Service) Startup(ctx context.Context, userID string) error {
	if err := s.sched.ReconcileAll(ctx, s); err != nil {
		return err
	}
	swept, err := s.ledger.SweepMissed(ctx, userID, s.cfg.MissedGrace)
	if err != nil {
		return err
	}
	if swept > 0 {
		log.Printf("app: recorded %d missed doses while offline", swept)
	}
	return nil
}

// EnabledReminders and MedicineFor make the service the scheduler's
// reconcile source.
func (s *Service) EnabledReminders(ctx context.Context) ([]model.Reminder, error) {
	rows, err := s.repo.ListReminders(ctx, storage.ReminderListFilter{EnabledOnly: true})
	if err != nil {
		return nil, fmt.Errorf("app: list enabled reminders: %w", err)
	}
	out := make([]model.Reminder, len(rows))
	for i, row := range rows {
		out[i] = reminderFromStored(row)
	}
	return out, nil
}

func (s *Service) MedicineFor(ctx context.Context, medicineID string) (model.Medicine, error) {
	return s.Medicine(ctx, medicineID)
}
