package notify

import (
	"time"

	"github.com/mediflow/mediflow/internal/trigger"
)

const (
	TagKindReminder = "reminder"
	TagKindSnooze   = "snooze"
)

// Tag is the opaque metadata attached to every booking. The scheduler finds
// and cancels triggers by enumerating bookings and filtering on these fields,
// never by remembered handles.
type Tag struct {
	ReminderID string
	MedicineID string
	Kind       string
}

type Content struct {
	Title string
	Body  string
	Sound string
}

type Request struct {
	Trigger trigger.Spec
	Content Content
	Tag     Tag
}

// Booking is one currently scheduled trigger as reported by the facility.
type Booking struct {
	Handle  string
	Trigger trigger.Spec
	Content Content
	Tag     Tag
	NextAt  time.Time
}

// Delivery is emitted when a booking fires.
type Delivery struct {
	Handle  string
	Content Content
	Tag     Tag
	FiredAt time.Time
}

// Facility is the minimal capability set the scheduling core requires from a
// host notification service: book a trigger, list what is booked, cancel by
// handle, and fire a notification immediately.
type Facility interface {
	Schedule(req Request) (string, error)
	Cancel(handle string) error
	Scheduled() []Booking
	FireNow(content Content, tag Tag) error
}
