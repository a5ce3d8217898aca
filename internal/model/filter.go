package model

import (
	"fmt"
	"time"
)

const (
	DefaultLimit = 10
	MinLimit     = 1
	MaxLimit     = 50

	// DashboardTopN bounds every "top related entities" chart of a dashboard.
	DashboardTopN = 5
)

const dateLayout = "2006-01-02"

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

func NewDateRange(from, to time.Time) DateRange {
	return DateRange{From: truncateDay(from), To: truncateDay(to)}
}

func ParseDateRange(from, to string) (DateRange, error) {
	var rng DateRange
	if from != "" {
		parsed, err := time.Parse(dateLayout, from)
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: from must be YYYY-MM-DD", ErrInvalidArgument)
		}
		rng.From = parsed
	}
	if to != "" {
		parsed, err := time.Parse(dateLayout, to)
		if err != nil {
			return DateRange{}, fmt.Errorf("%w: to must be YYYY-MM-DD", ErrInvalidArgument)
		}
		rng.To = parsed
	}
	return rng, nil
}

func (r DateRange) IsZero() bool {
	return r.From.IsZero() && r.To.IsZero()
}

// WithDefault fills an empty range with the given number of days ending at now.
func (r DateRange) WithDefault(days int, now time.Time) DateRange {
	if !r.IsZero() {
		return r
	}
	to := truncateDay(now)
	return DateRange{From: to.AddDate(0, 0, -(days - 1)), To: to}
}

func (r DateRange) Validate() error {
	if r.From.IsZero() || r.To.IsZero() {
		return fmt.Errorf("%w: both from and to are required", ErrInvalidArgument)
	}
	if r.To.Before(r.From) {
		return fmt.Errorf("%w: to is before from", ErrInvalidArgument)
	}
	return nil
}

func (r DateRange) String() string {
	return r.From.Format(dateLayout) + ".." + r.To.Format(dateLayout)
}

func ValidateLimit(limit int) error {
	if limit < MinLimit || limit > MaxLimit {
		return fmt.Errorf("%w: limit must be between %d and %d", ErrInvalidArgument, MinLimit, MaxLimit)
	}
	return nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
