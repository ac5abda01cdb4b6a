package store

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const dateLayout = "2006-01-02"

var isoWeekPattern = regexp.MustCompile(`^(\d{4})-W(\d{2})$`)

// Week identifies one ad week. The folder key is always the ISO week form.
type Week struct {
	Year int
	Num  int
}

// WeekOf returns the ISO week containing t.
func WeekOf(t time.Time) Week {
	y, w := t.ISOWeek()
	return Week{Year: y, Num: w}
}

// CurrentWeek returns the ISO week key for now.
func CurrentWeek() string {
	return WeekOf(time.Now()).Key()
}

// ParseWeek accepts either "YYYY-Www" or a "YYYY-MM-DD" date inside the week.
func ParseWeek(s string) (Week, error) {
	if m := isoWeekPattern.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		n, _ := strconv.Atoi(m[2])
		wk := Week{Year: y, Num: n}
		if n < 1 || n > weeksInYear(y) {
			return Week{}, fmt.Errorf("invalid week %q: %d has %d ISO weeks", s, y, weeksInYear(y))
		}
		return wk, nil
	}

	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Week{}, fmt.Errorf("invalid week %q: want YYYY-Www or YYYY-MM-DD", s)
	}
	return WeekOf(t), nil
}

// Key is the canonical folder name, e.g. "2025-W10".
func (w Week) Key() string {
	return fmt.Sprintf("%04d-W%02d", w.Year, w.Num)
}

// String implements fmt.Stringer.
func (w Week) String() string {
	return w.Key()
}

// Monday returns midnight UTC on the first day of the week.
func (w Week) Monday() time.Time {
	// Jan 4th is always in ISO week 1.
	jan4 := time.Date(w.Year, time.January, 4, 0, 0, 0, 0, time.UTC)
	offset := (int(jan4.Weekday()) + 6) % 7
	week1 := jan4.AddDate(0, 0, -offset)
	return week1.AddDate(0, 0, (w.Num-1)*7)
}

// StartDate is the Monday of the week as "YYYY-MM-DD", the form the relational
// mirror keys rows by.
func (w Week) StartDate() string {
	return w.Monday().Format(dateLayout)
}

func weeksInYear(year int) int {
	_, w := time.Date(year, time.December, 28, 0, 0, 0, 0, time.UTC).ISOWeek()
	return w
}

// WeekKey resolves either accepted form to the folder key.
func WeekKey(s string) (string, error) {
	w, err := ParseWeek(s)
	if err != nil {
		return "", err
	}
	return w.Key(), nil
}

// StartDate resolves s to a weekly_ad_starting_date. A date is kept as given
// since ads do not all start on Monday; a week key maps to its Monday.
func StartDate(s string) (string, error) {
	if _, err := time.Parse(dateLayout, s); err == nil {
		return s, nil
	}
	w, err := ParseWeek(s)
	if err != nil {
		return "", err
	}
	return w.StartDate(), nil
}
