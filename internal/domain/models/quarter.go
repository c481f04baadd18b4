package models

import (
	"strings"
	"time"

	"FinPrompt/internal/domain/apperr"
)

// Quarter is a fiscal calendar bucket, Q1..Q4.
type Quarter string

const (
	Q1 Quarter = "Q1"
	Q2 Quarter = "Q2"
	Q3 Quarter = "Q3"
	Q4 Quarter = "Q4"
)

// ParseQuarter accepts "Q1".."Q4" (case-insensitive).
func ParseQuarter(s string) (Quarter, error) {
	q := Quarter(strings.ToUpper(strings.TrimSpace(s)))
	if q.Num() == 0 {
		return "", apperr.InvalidParameter("quarter", "invalid quarter: %q", s)
	}
	return q, nil
}

// Num returns 1..4, or 0 for an unknown label.
func (q Quarter) Num() int {
	switch q {
	case Q1:
		return 1
	case Q2:
		return 2
	case Q3:
		return 3
	case Q4:
		return 4
	default:
		return 0
	}
}

// QuarterKey orders (year, quarter) pairs: year*10 + q.
func QuarterKey(year int, q Quarter) int {
	return year*10 + q.Num()
}

// QuarterRange returns the first and last calendar day of a quarter.
func QuarterRange(year int, q Quarter) (time.Time, time.Time, error) {
	n := q.Num()
	if n == 0 {
		return time.Time{}, time.Time{}, apperr.InvalidParameter("quarter_range", "invalid quarter: %q", string(q))
	}
	startMonth := time.Month(3*(n-1) + 1)
	start := time.Date(year, startMonth, 1, 0, 0, 0, 0, time.UTC)
	// day 0 of the following month is the last day of the quarter
	end := time.Date(year, startMonth+3, 0, 0, 0, 0, 0, time.UTC)
	return start, end, nil
}
