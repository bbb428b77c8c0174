package common

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// ValidateRequiredString validates required string fields
func ValidateRequiredString(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%w: %s is required", ErrValidation, fieldName)
	}
	return nil
}

// ValidateMaxLength rejects values longer than maxLength characters
func ValidateMaxLength(value, fieldName string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s cannot exceed %d characters", ErrValidation, fieldName, maxLength)
	}
	return nil
}

// ValidateOneOf checks that value is one of the allowed options
func ValidateOneOf(value, fieldName string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %s must be one of: %s", ErrValidation, fieldName, strings.Join(allowed, ", "))
}

// ValidateTimeRange validates that end is not before start
func ValidateTimeRange(start, end time.Time) error {
	if start.IsZero() {
		return fmt.Errorf("%w: start is required", ErrValidation)
	}
	if !end.IsZero() && end.Before(start) {
		return fmt.Errorf("%w: end cannot be before start", ErrValidation)
	}
	return nil
}

const maxSearchQueryRunes = 100

// NormalizeSearchQuery trims and lower-cases a free-text query and caps its
// length in runes.
func NormalizeSearchQuery(query string) string {
	query = strings.ToLower(strings.TrimSpace(query))
	if utf8.RuneCountInString(query) > maxSearchQueryRunes {
		query = string([]rune(query)[:maxSearchQueryRunes])
	}
	return query
}

// ContainsFold reports whether substr is within s, ignoring case. An empty
// substr never matches.
func ContainsFold(s, substr string) bool {
	if substr == "" {
		return false
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// ValidatePaginationParams validates pagination parameters
func ValidatePaginationParams(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
