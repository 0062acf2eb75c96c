package chrono

import (
	"time"
)

var tokyo *time.Location

func init() {
	var err error
	tokyo, err = time.LoadLocation("Asia/Tokyo")
	if err != nil {
		tokyo = time.FixedZone("JST", 9*60*60)
	}
}

// Tokyo returns a [*time.Location] for Asia/Tokyo, the survey is published
// on Japan time.
func Tokyo() *time.Location {
	return tokyo
}

// MonthStart truncates t to midnight of the first day of its month in Tokyo.
func MonthStart(t time.Time) time.Time {
	t = t.In(tokyo)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, tokyo)
}

// AddMonths moves a month start by n calendar months.
func AddMonths(month time.Time, n int) time.Time {
	month = MonthStart(month)
	return time.Date(month.Year(), month.Month()+time.Month(n), 1, 0, 0, 0, 0, tokyo)
}

// Month builds the month start of the given year and month.
func Month(year int, month time.Month) time.Time {
	return time.Date(year, month, 1, 0, 0, 0, 0, tokyo)
}

const MonthLayout = "2006-01"

// ParseMonth parses a "YYYY-MM" month in Tokyo.
func ParseMonth(s string) (time.Time, error) {
	return time.ParseInLocation(MonthLayout, s, tokyo)
}
