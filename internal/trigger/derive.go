package trigger

import (
	"fmt"
	"time"

	"github.com/mediflow/mediflow/internal/model"
)

type Kind string

const (
	KindDaily    Kind = "daily"
	KindWeekly   Kind = "weekly"
	KindInterval Kind = "interval"
	KindOnce     Kind = "once"
)

// Spec is one concrete trigger specification understood by the host
// notification facility. Weekly specs carry the weekday in the host's 1-based
// convention (Sunday = 1); see HostWeekday.
type Spec struct {
	Kind     Kind
	Hour     int
	Minute   int
	Weekday  int
	Every    time.Duration
	At       time.Time
	StartsAt time.Time
}

func (s Spec) String() string {
	switch s.Kind {
	case KindDaily:
		return fmt.Sprintf("daily at %02d:%02d", s.Hour, s.Minute)
	case KindWeekly:
		return fmt.Sprintf("weekly on %s at %02d:%02d", WeekdayFromHost(s.Weekday), s.Hour, s.Minute)
	case KindInterval:
		return fmt.Sprintf("every %s", s.Every)
	case KindOnce:
		return "once at " + s.At.Format("2006-01-02 15:04")
	default:
		return string(s.Kind)
	}
}

// HostWeekday translates a calendar weekday (0 = Sunday) to the host
// facility's 1-based index (1 = Sunday .. 7 = Saturday). The off-by-one here
// is load-bearing; WeekdayFromHost must invert it exactly.
func HostWeekday(d time.Weekday) int {
	return int(d) + 1
}

func WeekdayFromHost(host int) time.Weekday {
	return time.Weekday(host - 1)
}

// Derive maps a reminder configuration to its trigger specifications. It is
// pure: no storage, no facility, no clock beyond the supplied now (used only
// to anchor interval triggers).
//
// daily yields one repeating daily spec. specific_days yields one independent
// weekly spec per member weekday, so each day can be cancelled or edited
// without touching its siblings. interval yields a single every-N-days spec
// anchored at now. as_needed yields nothing.
func Derive(rem model.Reminder, now time.Time) ([]Spec, error) {
	if err := rem.Validate(); err != nil {
		return nil, err
	}

	switch rem.Kind {
	case model.RecurrenceDaily:
		return []Spec{{Kind: KindDaily, Hour: rem.Hour, Minute: rem.Minute}}, nil
	case model.RecurrenceSpecificDays:
		days := rem.Days.Days()
		out := make([]Spec, 0, len(days))
		for _, d := range days {
			out = append(out, Spec{
				Kind:    KindWeekly,
				Hour:    rem.Hour,
				Minute:  rem.Minute,
				Weekday: HostWeekday(d),
			})
		}
		return out, nil
	case model.RecurrenceInterval:
		return []Spec{{
			Kind:     KindInterval,
			Every:    time.Duration(rem.IntervalDays) * 24 * time.Hour,
			StartsAt: now,
		}}, nil
	case model.RecurrenceAsNeeded:
		return []Spec{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidRecurrenceKind, rem.Kind)
	}
}

// Once builds a one-shot spec firing after the given delay, used by the
// snooze side-channel.
func Once(now time.Time, delay time.Duration) Spec {
	return Spec{Kind: KindOnce, At: now.Add(delay)}
}
