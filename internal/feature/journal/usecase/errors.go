// Package usecase implements the business logic for the journal feature.
package usecase

import "errors"

var (
	// ErrEntryNotFound is returned when no entry exists for the given ID, or
	// the entry belongs to a different user. Storage failures are never
	// reported as ErrEntryNotFound.
	ErrEntryNotFound = errors.New("entry not found")

	// ErrTitleRequired is returned when a draft is saved with a blank title.
	ErrTitleRequired = errors.New("title is required")

	// ErrContentRequired is returned when a draft is saved with blank content.
	ErrContentRequired = errors.New("content is required")

	// ErrInvalidMood is returned when a draft carries a mood outside the fixed set.
	ErrInvalidMood = errors.New("invalid mood")

	// ErrContentTooShort is returned when a reflection is requested for
	// content shorter than MinReflectionLength characters.
	ErrContentTooShort = errors.New("content too short for reflection")
)

// IsValidation reports whether err is a draft or reflection validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrTitleRequired) ||
		errors.Is(err, ErrContentRequired) ||
		errors.Is(err, ErrInvalidMood) ||
		errors.Is(err, ErrContentTooShort)
}
