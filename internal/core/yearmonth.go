package core

import (
	"time"
)

// YearMonth is a calendar month key in "YYYY-MM" form. It is the month
// component of the alert ledger's composite key and the grouping unit for
// month-to-date spend.
type YearMonth string

// YearMonthOf derives the month key from an expense date.
func YearMonthOf(t time.Time) YearMonth {
	return YearMonth(t.Format("2006-01"))
}

func (ym YearMonth) Validate() error {
	if _, err := time.Parse("2006-01", string(ym)); err != nil {
		return ErrInvalidDate
	}
	return nil
}

func (ym YearMonth) String() string {
	return string(ym)
}

// Bounds returns the half-open interval [start, end) covering the whole
// calendar month in UTC, for use in spend aggregation queries.
func (ym YearMonth) Bounds() (start, end time.Time) {
	t, err := time.Parse("2006-01", string(ym))
	if err != nil {
		return time.Time{}, time.Time{}
	}
	start = time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	end = start.AddDate(0, 1, 0)
	return start, end
}
