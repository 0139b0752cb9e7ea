// Package lifecycle derives the date fields that follow from a status
// change.
package lifecycle

import (
	"time"

	"github.com/BuzzLyutic/todo-board/internal/model"
)

// Apply settles next against prev, the stored state before the edit. Use a
// zero Task as prev for a task that does not exist yet.
//
//   - entering doing stamps the start date when missing
//   - entering done stamps the completion time when missing and backfills
//     the start date from the scheduled date (or today)
//   - leaving done clears the completion time
//   - today and doing always carry a scheduled date, today by default
//
// Only the last rule runs on an edit that keeps the status.
func Apply(prev, next model.Task, now time.Time, today model.Date) model.Task {
	if (next.Status == model.StatusToday || next.Status == model.StatusDoing) && next.ScheduledDate == nil {
		next.ScheduledDate = ptr(today)
	}
	if next.Status == prev.Status {
		return next
	}

	switch next.Status {
	case model.StatusDoing:
		if next.StartDate == nil {
			next.StartDate = ptr(today)
		}
	case model.StatusDone:
		if next.DoneAt == nil {
			next.DoneAt = ptr(now)
		}
		if next.StartDate == nil {
			start := today
			if next.ScheduledDate != nil {
				start = *next.ScheduledDate
			}
			next.StartDate = ptr(start)
		}
	}

	if prev.Status == model.StatusDone && next.Status != model.StatusDone {
		next.DoneAt = nil
	}
	return next
}

// Toggle flips a task between done and today.
func Toggle(t model.Task) model.Task {
	if t.Status == model.StatusDone {
		t.Status = model.StatusToday
	} else {
		t.Status = model.StatusDone
	}
	return t
}

// Reschedule is the outcome of dropping a task on a day (or on the backlog
// when date is nil). The bool is false when nothing changes.
func Reschedule(t model.Task, date *model.Date, today model.Date) (model.Task, bool) {
	if date == nil {
		if t.Status == model.StatusBacklog && t.ScheduledDate == nil {
			return t, false
		}
		t.Status = model.StatusBacklog
		t.ScheduledDate = nil
		return t, true
	}

	if t.ScheduledDate != nil && *t.ScheduledDate == *date {
		return t, false
	}
	t.ScheduledDate = ptr(*date)
	if t.Status == model.StatusBacklog && *date <= today {
		t.Status = model.StatusToday
	}
	return t, true
}

// Postpone moves the task to target (nil means "no date") and counts it.
func Postpone(t model.Task, target *model.Date) model.Task {
	if target != nil {
		t.ScheduledDate = ptr(*target)
		t.Status = model.StatusToday
	} else {
		t.ScheduledDate = nil
		t.Status = model.StatusBacklog
	}
	t.PostponeCount++
	return t
}

func ptr[T any](v T) *T {
	return &v
}
