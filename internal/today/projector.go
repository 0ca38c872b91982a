// Package today projects the reminder table onto "what is still due today",
// the list the dashboard renders. The projection is pure: it reads the
// reminder set and a clock instant and computes, never stores.
package today

import (
	"sort"
	"time"

	"github.com/mediflow/mediflow/internal/model"
)

// Item is one upcoming dose slot for the current day.
type Item struct {
	Reminder     model.Reminder
	Medicine     model.Medicine
	ScheduledAt  time.Time
	MinutesUntil int
}

// Remaining returns the slots still ahead of now on now's calendar day,
// ordered by time of day with reminder id as the tie-break. A reminder
// qualifies when it is enabled, occurs on today's weekday, and its slot has
// not yet passed. Interval and as-needed reminders have no deterministic
// daily slot and never appear.
func Remaining(reminders []model.Reminder, medicines map[string]model.Medicine, now time.Time) []Item {
	nowMinutes := now.Hour()*60 + now.Minute()

	items := make([]Item, 0, len(reminders))
	for _, rem := range reminders {
		if !rem.Enabled || !rem.OccursOn(now.Weekday()) {
			continue
		}
		if rem.MinutesOfDay() < nowMinutes {
			continue
		}
		slot := rem.SlotFor(now)
		if slot.Before(rem.StartDate) {
			continue
		}
		if rem.EndDate != nil && slot.After(*rem.EndDate) {
			continue
		}
		items = append(items, Item{
			Reminder:     rem,
			Medicine:     medicines[rem.MedicineID],
			ScheduledAt:  slot,
			MinutesUntil: rem.MinutesOfDay() - nowMinutes,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Reminder.MinutesOfDay() != items[j].Reminder.MinutesOfDay() {
			return items[i].Reminder.MinutesOfDay() < items[j].Reminder.MinutesOfDay()
		}
		return items[i].Reminder.ID < items[j].Reminder.ID
	})
	return items
}
