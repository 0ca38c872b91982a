package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidSource = errors.New("model: invalid medicine source")

// Source records where a medicine record came from: manual entry or an
// external drug-database lookup.
type Source string

const (
	SourceManual  Source = "manual"
	SourceOpenFDA Source = "openfda"
)

func (s Source) IsValid() bool {
	switch s {
	case SourceManual, SourceOpenFDA:
		return true
	default:
		return false
	}
}

type Medicine struct {
	ID           string
	UserID       string
	Name         string
	GenericName  string
	BrandName    string
	Manufacturer string
	Category     string
	Form         string
	Strength     string
	Notes        string
	Source       Source
	SourceRef    string
	Active       bool
	CreatedAt    time.Time
}

func (m Medicine) Validate() error {
	if strings.TrimSpace(m.ID) == "" {
		return errors.New("model: medicine id is required")
	}
	if strings.TrimSpace(m.UserID) == "" {
		return errors.New("model: medicine user_id is required")
	}
	if strings.TrimSpace(m.Name) == "" {
		return errors.New("model: medicine name is required")
	}
	if !m.Source.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidSource, m.Source)
	}
	return nil
}

// DisplayName prefers the brand name when the verified name is missing.
func (m Medicine) DisplayName() string {
	if strings.TrimSpace(m.Name) != "" {
		return m.Name
	}
	return m.BrandName
}
