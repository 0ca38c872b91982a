package app

import (
	"github.com/mediflow/mediflow/internal/model"
	"github.com/mediflow/mediflow/internal/storage"
)

func storedUser(u model.User) storage.User {
	return storage.User{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		Settings:         u.Settings,
		Premium:          u.Premium,
		PremiumExpiresAt: u.PremiumExpiresAt,
		Timezone:         u.Timezone,
		CreatedAt:        u.CreatedAt,
	}
}

func userFromStored(u storage.User) model.User {
	return model.User{
		ID:               u.ID,
		Name:             u.Name,
		Email:            u.Email,
		Settings:         u.Settings,
		Premium:          u.Premium,
		PremiumExpiresAt: u.PremiumExpiresAt,
		Timezone:         u.Timezone,
		CreatedAt:        u.CreatedAt,
	}
}

func storedMedicine(m model.Medicine) storage.Medicine {
	return storage.Medicine{
		ID:           m.ID,
		UserID:       m.UserID,
		Name:         m.Name,
		GenericName:  m.GenericName,
		BrandName:    m.BrandName,
		Manufacturer: m.Manufacturer,
		Category:     m.Category,
		Form:         m.Form,
		Strength:     m.Strength,
		Notes:        m.Notes,
		Source:       string(m.Source),
		SourceRef:    m.SourceRef,
		Active:       m.Active,
		CreatedAt:    m.CreatedAt,
	}
}

func medicineFromStored(m storage.Medicine) model.Medicine {
	return model.Medicine{
		ID:           m.ID,
		UserID:       m.UserID,
		Name:         m.Name,
		GenericName:  m.GenericName,
		BrandName:    m.BrandName,
		Manufacturer: m.Manufacturer,
		Category:     m.Category,
		Form:         m.Form,
		Strength:     m.Strength,
		Notes:        m.Notes,
		Source:       model.Source(m.Source),
		SourceRef:    m.SourceRef,
		Active:       m.Active,
		CreatedAt:    m.CreatedAt,
	}
}

func storedReminder(r model.Reminder) storage.Reminder {
	return storage.Reminder{
		ID:                  r.ID,
		MedicineID:          r.MedicineID,
		UserID:              r.UserID,
		Hour:                r.Hour,
		Minute:              r.Minute,
		Days:                int(r.Days),
		Kind:                string(r.Kind),
		IntervalDays:        r.IntervalDays,
		Enabled:             r.Enabled,
		NotificationEnabled: r.NotificationEnabled,
		Sound:               r.Sound,
		SnoozeEnabled:       r.SnoozeEnabled,
		StartDate:           r.StartDate,
		EndDate:             r.EndDate,
		LastTriggered:       r.LastTriggered,
		NextTrigger:         r.NextTrigger,
		CreatedAt:           r.CreatedAt,
	}
}

func reminderFromStored(r storage.Reminder) model.Reminder {
	return model.Reminder{
		ID:                  r.ID,
		MedicineID:          r.MedicineID,
		UserID:              r.UserID,
		Hour:                r.Hour,
		Minute:              r.Minute,
		Days:                model.DaySet(r.Days),
		Kind:                model.RecurrenceKind(r.Kind),
		IntervalDays:        r.IntervalDays,
		Enabled:             r.Enabled,
		NotificationEnabled: r.NotificationEnabled,
		Sound:               r.Sound,
		SnoozeEnabled:       r.SnoozeEnabled,
		StartDate:           r.StartDate,
		EndDate:             r.EndDate,
		LastTriggered:       r.LastTriggered,
		NextTrigger:         r.NextTrigger,
		CreatedAt:           r.CreatedAt,
	}
}
