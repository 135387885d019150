package core

import (
	"time"
)

// Month is a year-month key in "YYYY-MM" form, the unit a budget is
// scoped to and the bucket expenses aggregate into.
type Month string

func ParseMonth(s string) (Month, error) {
	m := Month(s)
	if err := m.Validate(); err != nil {
		return "", err
	}
	return m, nil
}

// MonthOf returns the month bucket a timestamp falls into, in UTC.
func MonthOf(t time.Time) Month {
	return Month(t.UTC().Format("2006-01"))
}

func (m Month) Validate() error {
	if _, err := time.Parse("2006-01", string(m)); err != nil {
		return ErrInvalidMonth
	}
	return nil
}

func (m Month) String() string {
	return string(m)
}

// Bounds returns the half-open UTC interval [start, end) covering the
// month, used to scope expense queries by occurred_at.
func (m Month) Bounds() (start, end time.Time, err error) {
	start, err = time.Parse("2006-01", string(m))
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidMonth
	}
	return start, start.AddDate(0, 1, 0), nil
}
