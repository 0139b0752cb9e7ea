// Package schedule does the day arithmetic behind scheduling and postponing
// tasks. Everything is computed in one configured time zone.
package schedule

import (
	"fmt"
	"time"

	"github.com/BuzzLyutic/todo-board/internal/model"
)

// WorkWeekDays is how many days the weekly view shows, Monday first.
const WorkWeekDays = 5

type Calendar struct {
	loc *time.Location
	now func() time.Time
}

// New returns a Calendar for loc. A nil now falls back to time.Now.
func New(loc *time.Location, now func() time.Time) *Calendar {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &Calendar{loc: loc, now: now}
}

func (c *Calendar) Location() *time.Location {
	return c.loc
}

func (c *Calendar) Now() time.Time {
	return c.now().In(c.loc)
}

func (c *Calendar) Today() model.Date {
	return model.DateOf(c.Now())
}

func (c *Calendar) Tomorrow() model.Date {
	return model.DateOf(c.midnight().AddDate(0, 0, 1))
}

// NextWeek is the Monday after the start of next week, weeks starting on
// Sunday: a week from now, back to that week's Sunday, plus one day.
func (c *Calendar) NextWeek() model.Date {
	return model.DateOf(NextWeekStart(c.midnight()))
}

// DateOf returns the calendar day t falls on in the calendar's zone.
func (c *Calendar) DateOf(t time.Time) model.Date {
	return model.DateOf(t.In(c.loc))
}

// EndOfDay is the last millisecond of d.
func (c *Calendar) EndOfDay(d model.Date) (time.Time, error) {
	start, err := d.In(c.loc)
	if err != nil {
		return time.Time{}, err
	}
	return start.AddDate(0, 0, 1).Add(-time.Millisecond), nil
}

// WeekDays lists Monday to Friday of the ISO week offset weeks away from
// the current one.
func (c *Calendar) WeekDays(offset int) []model.Date {
	monday := Monday(c.midnight()).AddDate(0, 0, 7*offset)
	days := make([]model.Date, 0, WorkWeekDays)
	for i := range WorkWeekDays {
		days = append(days, model.DateOf(monday.AddDate(0, 0, i)))
	}
	return days
}

func (c *Calendar) midnight() time.Time {
	n := c.Now()
	return time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, c.loc)
}

// Monday returns the Monday of t's ISO week at t's clock time.
func Monday(t time.Time) time.Time {
	back := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -back)
}

func NextWeekStart(t time.Time) time.Time {
	next := t.AddDate(0, 0, 7)
	sunday := next.AddDate(0, 0, -int(next.Weekday()))
	return sunday.AddDate(0, 0, 1)
}

func AddDays(d model.Date, n int) (model.Date, error) {
	t, err := d.In(time.UTC)
	if err != nil {
		return "", err
	}
	return model.DateOf(t.AddDate(0, 0, n)), nil
}

// WeekLabel renders "M/D – M/D" for the first and last day.
func WeekLabel(days []model.Date) string {
	if len(days) == 0 {
		return ""
	}
	first, err1 := days[0].In(time.UTC)
	last, err2 := days[len(days)-1].In(time.UTC)
	if err1 != nil || err2 != nil {
		return ""
	}
	return fmt.Sprintf("%d/%d – %d/%d", int(first.Month()), first.Day(), int(last.Month()), last.Day())
}
