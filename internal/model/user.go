package model

import (
	"errors"
	"strings"
	"time"
)

// User is the single local profile. Settings is an opaque JSON blob owned by
// the UI layer; the scheduling core only uses the user as a tenant key.
type User struct {
	ID               string
	Name             string
	Email            string
	Settings         string
	Premium          bool
	PremiumExpiresAt *time.Time
	Timezone         string
	CreatedAt        time.Time
}

func (u User) Validate() error {
	if strings.TrimSpace(u.ID) == "" {
		return errors.New("model: user id is required")
	}
	if strings.TrimSpace(u.Name) == "" {
		return errors.New("model: user name is required")
	}
	return nil
}
