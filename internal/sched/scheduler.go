package sched

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/mediflow/mediflow/internal/model"
	"github.com/mediflow/mediflow/internal/notify"
	"github.com/mediflow/mediflow/internal/trigger"
)

// SchedulingError marks host-facility failures. Arming failures are soft: the
// reminder stays persisted and the caller surfaces the unarmed state as a
// warning instead of failing the mutation.
type SchedulingError struct {
	ReminderID string
	Op         string
	Err        error
}

func (e *SchedulingError) Error() string {
	return fmt.Sprintf("sched: %s reminder %s: %v", e.Op, e.ReminderID, e.Err)
}

func (e *SchedulingError) Unwrap() error {
	return e.Err
}

// Scheduler owns the live trigger set. It is stateless with respect to what
// should be armed: the persisted reminder table is the source of truth, and
// every operation here is re-derivable from it via ReconcileAll.
type Scheduler struct {
	facility notify.Facility
	now      func() time.Time

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func New(facility notify.Facility) *Scheduler {
	return &Scheduler{
		facility: facility,
		now:      time.Now,
		locks:    make(map[string]*sync.Mutex),
	}
}

// lockFor returns the mutex serializing all trigger mutations for one
// reminder, so a slow retract-then-arm from one edit cannot interleave with
// another edit's sequence.
func (s *Scheduler) lockFor(reminderID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[reminderID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[reminderID] = l
	}
	return l
}

// Arm derives the reminder's triggers and books them with the facility,
// returning the booked handles. Any previously armed triggers for the
// reminder are retracted first, so calling Arm twice is equivalent to calling
// it once.
func (s *Scheduler) Arm(ctx context.Context, rem model.Reminder, med model.Medicine) ([]string, error) {
	l := s.lockFor(rem.ID)
	l.Lock()
	defer l.Unlock()
	return s.armLocked(ctx, rem, med)
}

func (s *Scheduler) armLocked(ctx context.Context, rem model.Reminder, med model.Medicine) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.retractLocked(func(tag notify.Tag) bool {
		return tag.ReminderID == rem.ID && tag.Kind == notify.TagKindReminder
	})

	if !rem.Enabled || !rem.NotificationEnabled {
		return nil, nil
	}

	specs, err := trigger.Derive(rem, s.now())
	if err != nil {
		return nil, err
	}

	content := notify.Content{
		Title: "Time for your medicine",
		Body:  "Take your " + med.DisplayName(),
		Sound: rem.Sound,
	}
	tag := notify.Tag{ReminderID: rem.ID, MedicineID: med.ID, Kind: notify.TagKindReminder}

	handles := make([]string, 0, len(specs))
	for _, spec := range specs {
		handle, schedErr := s.facility.Schedule(notify.Request{Trigger: spec, Content: content, Tag: tag})
		if schedErr != nil {
			// Roll back the partial set so a failed arm leaves nothing
			// half-booked; retraction is idempotent so a retry is safe.
			s.retractLocked(func(tag notify.Tag) bool {
				return tag.ReminderID == rem.ID && tag.Kind == notify.TagKindReminder
			})
			return nil, &SchedulingError{ReminderID: rem.ID, Op: "arm", Err: schedErr}
		}
		handles = append(handles, handle)
	}
	return handles, nil
}

// Retract cancels every armed trigger tagged with the reminder id, including
// outstanding snoozes. Retracting a reminder with nothing armed is a no-op.
func (s *Scheduler) Retract(reminderID string) {
	l := s.lockFor(reminderID)
	l.Lock()
	defer l.Unlock()
	s.retractLocked(func(tag notify.Tag) bool {
		return tag.ReminderID == reminderID
	})
}

// RetractAll cancels every armed trigger tagged with the medicine id, across
// all of its reminders. Each affected reminder is retracted under its own
// lock so an in-flight Arm cannot re-book between enumeration and
// cancellation; the enumeration repeats until no tagged booking remains.
func (s *Scheduler) RetractAll(medicineID string) {
	for {
		ids := s.remindersWithBookings(medicineID)
		if len(ids) == 0 {
			return
		}
		for _, id := range ids {
			l := s.lockFor(id)
			l.Lock()
			s.retractLocked(func(tag notify.Tag) bool {
				return tag.MedicineID == medicineID && tag.ReminderID == id
			})
			l.Unlock()
		}
	}
}

// remindersWithBookings lists, in stable order, the reminder ids that
// currently hold bookings tagged with the medicine.
func (s *Scheduler) remindersWithBookings(medicineID string) []string {
	seen := make(map[string]struct{})
	for _, booking := range s.facility.Scheduled() {
		if booking.Tag.MedicineID == medicineID {
			seen[booking.Tag.ReminderID] = struct{}{}
		}
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RetractSnoozes cancels outstanding snooze bookings for the reminder without
// touching its recurring triggers. Called when the user answers a dose so a
// stale snooze does not fire after the fact.
func (s *Scheduler) RetractSnoozes(reminderID string) {
	l := s.lockFor(reminderID)
	l.Lock()
	defer l.Unlock()
	s.retractLocked(func(tag notify.Tag) bool {
		return tag.ReminderID == reminderID && tag.Kind == notify.TagKindSnooze
	})
}

// retractLocked enumerates the facility's bookings and cancels the matches.
// Working from live enumeration rather than remembered handles keeps
// retraction correct across process restarts.
func (s *Scheduler) retractLocked(match func(notify.Tag) bool) {
	for _, booking := range s.facility.Scheduled() {
		if !match(booking.Tag) {
			continue
		}
		if err := s.facility.Cancel(booking.Handle); err != nil && !errors.Is(err, notify.ErrUnknownHandle) {
			log.Printf("sched: cancel booking %s: %v", booking.Handle, err)
		}
	}
}

// Rearm is retract-then-arm under one lock, the mutation path for edits.
func (s *Scheduler) Rearm(ctx context.Context, rem model.Reminder, med model.Medicine) ([]string, error) {
	return s.Arm(ctx, rem, med)
}

// Snooze books a single one-shot re-notification after the given delay. It
// rides alongside the reminder's recurring triggers and never perturbs them;
// no durable record of the booking is kept.
func (s *Scheduler) Snooze(rem model.Reminder, med model.Medicine, delay time.Duration) error {
	if !rem.SnoozeEnabled {
		return &SchedulingError{ReminderID: rem.ID, Op: "snooze", Err: errors.New("snooze disabled for reminder")}
	}
	_, err := s.facility.Schedule(notify.Request{
		Trigger: trigger.Once(s.now(), delay),
		Content: notify.Content{
			Title: "Snoozed reminder",
			Body:  "Take your " + med.DisplayName(),
			Sound: rem.Sound,
		},
		Tag: notify.Tag{ReminderID: rem.ID, MedicineID: med.ID, Kind: notify.TagKindSnooze},
	})
	if err != nil {
		return &SchedulingError{ReminderID: rem.ID, Op: "snooze", Err: err}
	}
	return nil
}

// ArmedCount reports how many recurring triggers are currently booked for the
// reminder (snoozes excluded).
func (s *Scheduler) ArmedCount(reminderID string) int {
	n := 0
	for _, booking := range s.facility.Scheduled() {
		if booking.Tag.ReminderID == reminderID && booking.Tag.Kind == notify.TagKindReminder {
			n++
		}
	}
	return n
}

// NextFireAt returns the earliest upcoming fire time among the reminder's
// recurring bookings, or false when nothing is armed.
func (s *Scheduler) NextFireAt(reminderID string) (time.Time, bool) {
	var next time.Time
	found := false
	for _, booking := range s.facility.Scheduled() {
		if booking.Tag.ReminderID != reminderID || booking.Tag.Kind != notify.TagKindReminder {
			continue
		}
		if !found || booking.NextAt.Before(next) {
			next = booking.NextAt
			found = true
		}
	}
	return next, found
}

// ReminderSource is the slice of the persistence gateway ReconcileAll needs.
type ReminderSource interface {
	EnabledReminders(ctx context.Context) ([]model.Reminder, error)
	MedicineFor(ctx context.Context, medicineID string) (model.Medicine, error)
}

// ReconcileAll re-derives and re-arms every enabled reminder from persisted
// state. It is the startup and crash-recovery path: a crash between retract
// and arm leaves no record to repair, so the fix is to always rebuild the
// whole live set from the reminder table. Soft scheduling failures are
// collected, not fatal.
func (s *Scheduler) ReconcileAll(ctx context.Context, source ReminderSource) error {
	reminders, err := source.EnabledReminders(ctx)
	if err != nil {
		return fmt.Errorf("sched: load reminders for reconcile: %w", err)
	}

	var failures []error
	for _, rem := range reminders {
		med, medErr := source.MedicineFor(ctx, rem.MedicineID)
		if medErr != nil {
			failures = append(failures, fmt.Errorf("sched: medicine %s for reminder %s: %w", rem.MedicineID, rem.ID, medErr))
			continue
		}
		if !med.Active {
			s.Retract(rem.ID)
			continue
		}
		if _, armErr := s.Arm(ctx, rem, med); armErr != nil {
			var schedErr *SchedulingError
			if errors.As(armErr, &schedErr) {
				log.Printf("sched: reconcile left reminder %s unarmed: %v", rem.ID, armErr)
				continue
			}
			failures = append(failures, armErr)
		}
	}
	return errors.Join(failures...)
}
