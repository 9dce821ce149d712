package models

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/meditrack/internal/common"
)

const (
	MaxNameLen      = 50
	MaxDoseLen      = 50
	MaxFrequencyLen = 100
	MaxNotesLen     = 1000
	MaxEmailLen     = 254
	MinPasswordLen  = 6
)

var (
	emailRe     = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	startTimeRe = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)
)

// ValidateMedication checks m against the field rules and returns a
// *common.ValidationError naming the first field that fails, or nil.
// Lengths are counted in characters after trimming.
func ValidateMedication(m Medication) error {
	if err := requiredMax("name", m.Name, MaxNameLen); err != nil {
		return err
	}
	if err := requiredMax("dose", m.Dose, MaxDoseLen); err != nil {
		return err
	}
	if err := requiredMax("frequency", m.Frequency, MaxFrequencyLen); err != nil {
		return err
	}
	if utf8.RuneCountInString(strings.TrimSpace(m.Notes)) > MaxNotesLen {
		return common.NewValidationError("notes", fmt.Sprintf("must be at most %d characters", MaxNotesLen))
	}
	if st := strings.TrimSpace(m.StartTime); st != "" && !startTimeRe.MatchString(st) {
		return common.NewValidationError("start_time", "must be a 24-hour time HH:MM")
	}
	if owner := strings.TrimSpace(m.OwnerEmail); owner != "" {
		if err := checkEmail("owner_email", owner); err != nil {
			return err
		}
	}
	return nil
}

// ValidateUser checks registration input.
func ValidateUser(name, email, password string) error {
	if strings.TrimSpace(name) == "" {
		return common.NewValidationError("name", "is required")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return common.NewValidationError("email", "is required")
	}
	if err := checkEmail("email", email); err != nil {
		return err
	}
	return ValidatePassword(password)
}

// ValidatePassword applies the minimum length rule used at registration and
// on password reset.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(strings.TrimSpace(password)) < MinPasswordLen {
		return common.NewValidationError("password", fmt.Sprintf("must be at least %d characters", MinPasswordLen))
	}
	return nil
}

func requiredMax(field, value string, max int) error {
	v := strings.TrimSpace(value)
	if v == "" {
		return common.NewValidationError(field, "is required")
	}
	if utf8.RuneCountInString(v) > max {
		return common.NewValidationError(field, fmt.Sprintf("must be at most %d characters", max))
	}
	return nil
}

func checkEmail(field, email string) error {
	if utf8.RuneCountInString(email) > MaxEmailLen || !emailRe.MatchString(email) {
		return common.NewValidationError(field, "must be a valid email address")
	}
	return nil
}
