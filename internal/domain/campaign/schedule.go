package campaign

import "time"

// Moment is the UTC date, time of day and weekday the schedule is evaluated at.
// Date and Time are zero padded so they compare lexicographically.
type Moment struct {
	Date    string // YYYY-MM-DD
	Time    string // HH:MM:SS
	Weekday int    // 0=Sunday ... 6=Saturday
}

func MomentOf(t time.Time) Moment {
	u := t.UTC()
	return Moment{
		Date:    u.Format(dateLayout),
		Time:    u.Format(timeLayout),
		Weekday: int(u.Weekday()),
	}
}

// startRule either decides startability or passes to the next rule.
type startRule func(c *Campaign, now Moment) (decided bool, startable bool)

// Order matters: except-date beats include-date beats the window test.
var startRules = []startRule{
	exceptDateRule,
	includeDateRule,
	windowRule,
}

func exceptDateRule(c *Campaign, now Moment) (bool, bool) {
	if c.ScDateListExcept.Contains(now.Date) {
		return true, false
	}
	return false, false
}

// includeDateRule forces a start on listed dates, ignoring day and time of day.
func includeDateRule(c *Campaign, now Moment) (bool, bool) {
	if c.ScDateList.Contains(now.Date) {
		return true, true
	}
	return false, false
}

func windowRule(c *Campaign, now Moment) (bool, bool) {
	return true, WindowHolds(c, now)
}

// IsStartable reports whether a scheduled campaign should be started at now.
func IsStartable(c *Campaign, now Moment) bool {
	if c == nil {
		return false
	}
	for _, rule := range startRules {
		if decided, ok := rule(c, now); decided {
			return ok
		}
	}
	return false
}

// IsStoppable reports whether a running scheduled campaign has left its
// window. Include and except dates are not consulted.
func IsStoppable(c *Campaign, now Moment) bool {
	if c == nil {
		return false
	}
	return !WindowHolds(c, now)
}

// WindowHolds applies the date range, weekday and time of day constraints.
// Unset or malformed fields do not constrain.
func WindowHolds(c *Campaign, now Moment) bool {
	if dateSet(c.ScDateStart) && *c.ScDateStart > now.Date {
		return false
	}
	if dateSet(c.ScDateEnd) && *c.ScDateEnd < now.Date {
		return false
	}
	if !dayAllowed(c.ScDayList, now.Weekday) {
		return false
	}
	if timeSet(c.ScTimeEnd) && *c.ScTimeEnd < now.Time {
		return false
	}
	if timeSet(c.ScTimeStart) && *c.ScTimeStart > now.Time {
		return false
	}
	return true
}

func dayAllowed(days DayList, weekday int) bool {
	if weekday < 0 || weekday > 6 {
		return false
	}
	if len(days) == 0 {
		return true
	}
	return days.Contains(weekday)
}

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04:05"
)

// ValidDate reports whether s is a zero padded YYYY-MM-DD calendar date.
func ValidDate(s string) bool {
	return matchesLayout(dateLayout, s)
}

// ValidTime reports whether s is a zero padded HH:MM:SS time of day.
func ValidTime(s string) bool {
	return matchesLayout(timeLayout, s)
}

// time.Parse accepts "9:00:00" for "15", so the length is checked too.
func matchesLayout(layout, s string) bool {
	if len(s) != len(layout) {
		return false
	}
	_, err := time.Parse(layout, s)
	return err == nil
}

func dateSet(v *string) bool {
	return v != nil && ValidDate(*v)
}

func timeSet(v *string) bool {
	return v != nil && ValidTime(*v)
}
