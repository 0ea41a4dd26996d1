package domain

import "time"

// MaxBirthdayWindowDays is the largest window accepted for birthday queries.
// A window of this size covers every day of the year.
const MaxBirthdayWindowDays = 365

// BirthdayWindow is an inclusive span of calendar days, ignoring the year.
type BirthdayWindow struct {
	StartMonth time.Month
	StartDay   int
	EndMonth   time.Month
	EndDay     int
	// All is set when the window spans a full year and matches every birthday.
	All bool
}

// NewBirthdayWindow returns the window [today, today+days].
func NewBirthdayWindow(today time.Time, days int) BirthdayWindow {
	if days >= MaxBirthdayWindowDays {
		return BirthdayWindow{All: true}
	}
	end := today.AddDate(0, 0, days)
	return BirthdayWindow{
		StartMonth: today.Month(),
		StartDay:   today.Day(),
		EndMonth:   end.Month(),
		EndDay:     end.Day(),
	}
}

// Wraps reports whether the window crosses from December into January.
func (w BirthdayWindow) Wraps() bool {
	return !w.All && w.EndKey() < w.StartKey()
}

// StartKey and EndKey encode the bounds as month*100+day, the same MMDD
// integer the repositories derive from stored birth dates.
func (w BirthdayWindow) StartKey() int { return int(w.StartMonth)*100 + w.StartDay }

func (w BirthdayWindow) EndKey() int { return int(w.EndMonth)*100 + w.EndDay }

// Contains reports whether a birthday on the given month and day falls in
// the window.
func (w BirthdayWindow) Contains(month time.Month, day int) bool {
	if w.All {
		return true
	}
	if w.StartMonth == w.EndMonth && !w.Wraps() {
		return month == w.StartMonth && day >= w.StartDay && day <= w.EndDay
	}
	if month == w.StartMonth && day >= w.StartDay {
		return true
	}
	if month == w.EndMonth && day <= w.EndDay {
		return true
	}
	return w.strictlyBetween(month)
}

func (w BirthdayWindow) strictlyBetween(month time.Month) bool {
	if w.StartMonth < w.EndMonth {
		return month > w.StartMonth && month < w.EndMonth
	}
	// Wrapped across the year end.
	return month > w.StartMonth || month < w.EndMonth
}
