package trigger

import (
	"errors"
	"testing"
	"time"

	"github.com/mediflow/mediflow/internal/model"
)

func baseReminder(kind model.RecurrenceKind) model.Reminder {
	return model.Reminder{
		ID:         "rem-1",
		MedicineID: "med-1",
		UserID:     "user-1",
		Hour:       8,
		Minute:     30,
		Kind:       kind,
		Days:       model.EveryDay,
		Enabled:    true,
		StartDate:  time.Date(2026, 2, 9, 0, 0, 0, 0, time.UTC),
	}
}

func TestDeriveDaily(t *testing.T) {
	specs, err := Derive(baseReminder(model.RecurrenceDaily), time.Now())
	if err != nil {
		t.Fatalf("derive daily: %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("expected 1 spec, got %d", len(specs))
	}
	spec := specs[0]
	if spec.Kind != KindDaily || spec.Hour != 8 || spec.Minute != 30 {
		t.Fatalf("unexpected spec: %+v", spec)
	}
}

func TestDeriveSpecificDaysFansOutPerWeekday(t *testing.T) {
	rem := baseReminder(model.RecurrenceSpecificDays)
	rem.Days = model.NewDaySet(time.Monday, time.Wednesday, time.Friday)

	specs, err := Derive(rem, time.Now())
	if err != nil {
		t.Fatalf("derive specific_days: %v", err)
	}
	if len(specs) != 3 {
		t.Fatalf("expected one spec per member weekday, got %d", len(specs))
	}

	seen := map[int]bool{}
	for _, spec := range specs {
		if spec.Kind != KindWeekly {
			t.Fatalf("expected weekly spec, got %q", spec.Kind)
		}
		if spec.Hour != 8 || spec.Minute != 30 {
			t.Fatalf("time of day must be identical across specs: %+v", spec)
		}
		if seen[spec.Weekday] {
			t.Fatalf("duplicate weekday %d", spec.Weekday)
		}
		seen[spec.Weekday] = true
	}
	for _, d := range []time.Weekday{time.Monday, time.Wednesday, time.Friday} {
		if !seen[HostWeekday(d)] {
			t.Fatalf("missing weekly spec for %s", d)
		}
	}
}

func TestDeriveInterval(t *testing.T) {
	now := time.Date(2026, 2, 9, 12, 0, 0, 0, time.UTC)
	rem := baseReminder(model.RecurrenceInterval)
	rem.IntervalDays = 3

	specs, err := Derive(rem, now)
	if err != nil {
		t.Fatalf("derive interval: %v", err)
	}
	if len(specs) != 1 {
		t.Fatalf("expected 1 spec, got %d", len(specs))
	}
	if specs[0].Kind != KindInterval || specs[0].Every != 72*time.Hour {
		t.Fatalf("unexpected spec: %+v", specs[0])
	}
	if !specs[0].StartsAt.Equal(now) {
		t.Fatalf("interval must be anchored at now, got %s", specs[0].StartsAt)
	}
}

func TestDeriveAsNeededYieldsNothing(t *testing.T) {
	specs, err := Derive(baseReminder(model.RecurrenceAsNeeded), time.Now())
	if err != nil {
		t.Fatalf("derive as_needed: %v", err)
	}
	if len(specs) != 0 {
		t.Fatalf("as_needed must derive zero triggers, got %d", len(specs))
	}
}

func TestDeriveRejectsInvalidReminder(t *testing.T) {
	rem := baseReminder(model.RecurrenceSpecificDays)
	rem.Days = 0
	if _, err := Derive(rem, time.Now()); !errors.Is(err, model.ErrEmptyDaySet) {
		t.Fatalf("expected ErrEmptyDaySet, got %v", err)
	}
}

func TestHostWeekdayRoundTrip(t *testing.T) {
	if HostWeekday(time.Sunday) != 1 {
		t.Fatalf("Sunday must map to host index 1, got %d", HostWeekday(time.Sunday))
	}
	if HostWeekday(time.Saturday) != 7 {
		t.Fatalf("Saturday must map to host index 7, got %d", HostWeekday(time.Saturday))
	}
	seen := map[int]bool{}
	for d := time.Sunday; d <= time.Saturday; d++ {
		host := HostWeekday(d)
		if host < 1 || host > 7 {
			t.Fatalf("host index out of range for %s: %d", d, host)
		}
		if seen[host] {
			t.Fatalf("host index %d produced twice", host)
		}
		seen[host] = true
		if back := WeekdayFromHost(host); back != d {
			t.Fatalf("round trip failed: %s -> %d -> %s", d, host, back)
		}
	}
}

func TestOnce(t *testing.T) {
	now := time.Date(2026, 2, 9, 9, 0, 0, 0, time.UTC)
	spec := Once(now, 15*time.Minute)
	if spec.Kind != KindOnce {
		t.Fatalf("expected once spec, got %q", spec.Kind)
	}
	if !spec.At.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("unexpected fire time: %s", spec.At)
	}
}
