package streak

import "time"

// DateLayout is the calendar-day format used for activity dates.
const DateLayout = "2006-01-02"

// Record is a learner's consecutive-day practice streak.
type Record struct {
	Current    int    `json:"current"`
	Longest    int    `json:"longest"`
	LastActive string `json:"last_active,omitempty"` // DateLayout; empty before first activity
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Touch records activity on the day of t. It changes the record at most
// once per calendar day and reports whether it did. A day after LastActive
// extends the streak; any larger gap restarts it at one. Activity dated
// before LastActive is ignored.
func (r *Record) Touch(t time.Time) bool {
	day := Day(t)
	today := day.Format(DateLayout)

	if r.LastActive != "" {
		last, err := time.ParseInLocation(DateLayout, r.LastActive, day.Location())
		if err == nil {
			switch {
			case !day.After(last):
				return false
			case day.Equal(last.AddDate(0, 0, 1)):
				r.Current++
			default:
				r.Current = 1
			}
		} else {
			r.Current = 1
		}
	} else {
		r.Current = 1
	}

	r.LastActive = today
	if r.Current > r.Longest {
		r.Longest = r.Current
	}
	return true
}

// Live returns the streak as of now: zero once a full day has passed
// without activity.
func (r Record) Live(now time.Time) int {
	if r.LastActive == "" {
		return 0
	}
	day := Day(now)
	last, err := time.ParseInLocation(DateLayout, r.LastActive, day.Location())
	if err != nil {
		return 0
	}
	if day.After(last.AddDate(0, 0, 1)) {
		return 0
	}
	return r.Current
}
