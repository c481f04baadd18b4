package http

import (
	"net/http"
	"time"

	"FinPrompt/pkg/util"
)

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int { return util.ParseIntDefault(s, def) }

// ParseDateParam parses a YYYY-MM-DD (or timestamp) request value into a UTC day.
func ParseDateParam(field, value string) (time.Time, *AppError) {
	t, ok := util.ParseDate(value)
	if !ok {
		return time.Time{}, NewAppError("ERR_DATE", field, field+" must be a date (YYYY-MM-DD)", http.StatusBadRequest).WithParam("value", value)
	}
	return t, nil
}

// ParseOptionalDate is ParseDateParam for open-ended bounds; an empty value yields nil.
func ParseOptionalDate(field, value string) (*time.Time, *AppError) {
	if value == "" {
		return nil, nil
	}
	t, err := ParseDateParam(field, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
