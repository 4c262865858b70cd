package market

import (
	"sync"
	"time"
)

var (
	locOnce sync.Once
	loc     *time.Location
)

// Location returns US Eastern Time, where NYSE and NASDAQ sessions are dated
func Location() *time.Location {
	locOnce.Do(func() {
		l, err := time.LoadLocation("America/New_York")
		if err != nil {
			// no tzdata: assume EST
			l = time.FixedZone("EST", -5*60*60)
		}
		loc = l
	})
	return loc
}

// SessionDate maps an instant to midnight UTC of its exchange-local date
func SessionDate(t time.Time) time.Time {
	et := t.In(Location())
	return time.Date(et.Year(), et.Month(), et.Day(), 0, 0, 0, 0, time.UTC)
}

// Full-day NYSE closures
var usHolidays = map[string]bool{
	"2023-01-02": true, // New Year's Day (observed)
	"2023-01-16": true, // MLK Day
	"2023-02-20": true, // Presidents Day
	"2023-04-07": true, // Good Friday
	"2023-05-29": true, // Memorial Day
	"2023-06-19": true, // Juneteenth
	"2023-07-04": true, // Independence Day
	"2023-09-04": true, // Labor Day
	"2023-11-23": true, // Thanksgiving
	"2023-12-25": true, // Christmas

	"2024-01-01": true,
	"2024-01-15": true,
	"2024-02-19": true,
	"2024-03-29": true,
	"2024-05-27": true,
	"2024-06-19": true,
	"2024-07-04": true,
	"2024-09-02": true,
	"2024-11-28": true,
	"2024-12-25": true,

	"2025-01-01": true,
	"2025-01-09": true, // national day of mourning
	"2025-01-20": true,
	"2025-02-17": true,
	"2025-04-18": true,
	"2025-05-26": true,
	"2025-06-19": true,
	"2025-07-04": true,
	"2025-09-01": true,
	"2025-11-27": true,
	"2025-12-25": true,

	"2026-01-01": true,
	"2026-01-19": true,
	"2026-02-16": true,
	"2026-04-03": true,
	"2026-05-25": true,
	"2026-06-19": true,
	"2026-07-03": true, // Independence Day (observed)
	"2026-09-07": true,
	"2026-11-26": true,
	"2026-12-25": true,
}

// IsUSHoliday reports whether the exchange-local date of t is a full closure.
// Only 2023 through 2026 are known.
func IsUSHoliday(t time.Time) bool {
	return usHolidays[SessionDate(t).Format("2006-01-02")]
}

// IsTradingDay reports whether a regular session is held on the
// exchange-local date of t
func IsTradingDay(t time.Time) bool {
	switch t.In(Location()).Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	return !IsUSHoliday(t)
}
