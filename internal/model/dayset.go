package model

import (
	"strings"
	"time"
)

// DaySet is a weekday membership set packed into the low seven bits of a
// uint8, bit i corresponding to time.Weekday(i) (Sunday = bit 0). The zero
// value is the empty set.
type DaySet uint8

const EveryDay DaySet = 0x7f

func NewDaySet(days ...time.Weekday) DaySet {
	var s DaySet
	for _, d := range days {
		s = s.With(d)
	}
	return s
}

func (s DaySet) With(d time.Weekday) DaySet {
	return s | 1<<uint(d)
}

func (s DaySet) Without(d time.Weekday) DaySet {
	return s &^ (1 << uint(d))
}

func (s DaySet) Has(d time.Weekday) bool {
	return s&(1<<uint(d)) != 0
}

func (s DaySet) IsEmpty() bool {
	return s&EveryDay == 0
}

func (s DaySet) Count() int {
	n := 0
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			n++
		}
	}
	return n
}

// Days returns the member weekdays in calendar order, Sunday first.
func (s DaySet) Days() []time.Weekday {
	out := make([]time.Weekday, 0, 7)
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			out = append(out, d)
		}
	}
	return out
}

func (s DaySet) String() string {
	if s&EveryDay == EveryDay {
		return "every day"
	}
	if s.IsEmpty() {
		return "no days"
	}
	parts := make([]string, 0, 7)
	for _, d := range s.Days() {
		parts = append(parts, d.String()[:3])
	}
	return strings.Join(parts, ",")
}
