package server

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/smallbiznis/leadbilling/internal/providers/leadapi"
)

const dateOnlyLayout = "2006-01-02"

func parseOptionalBool(value string) (*bool, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(trimmed)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseOptionalInt(value string) (int, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, nil
	}
	return strconv.Atoi(trimmed)
}

// parseOptionalTime accepts RFC3339 or a bare date. Bare dates resolve in
// loc to the start of the day, or its last millisecond when endOfDay is set.
func parseOptionalTime(value string, endOfDay bool, loc *time.Location) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	if parsed, err := time.ParseInLocation(dateOnlyLayout, trimmed, loc); err == nil {
		if endOfDay {
			parsed = parsed.AddDate(0, 0, 1).Add(-time.Millisecond)
		}
		return &parsed, nil
	}
	if parsed, err := leadapi.ParseTime(trimmed); err == nil && !parsed.IsZero() {
		return &parsed, nil
	}
	return nil, errors.New("invalid_time")
}
