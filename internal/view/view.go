// Package view projects the task list into the today, week and board
// screens. Input slices are expected in sort order; output slices are never
// nil so they encode as [].
package view

import (
	"time"

	"github.com/BuzzLyutic/todo-board/internal/model"
	"github.com/BuzzLyutic/todo-board/internal/schedule"
)

type Today struct {
	Date      model.Date   `json:"date"`
	Todo      []model.Task `json:"todo"`
	Doing     []model.Task `json:"doing"`
	Done      []model.Task `json:"done"`
	Remaining int          `json:"remaining"`
}

func BuildToday(tasks []model.Task, date model.Date) Today {
	v := Today{
		Date:  date,
		Todo:  []model.Task{},
		Doing: []model.Task{},
		Done:  []model.Task{},
	}
	for _, t := range tasks {
		switch {
		case t.Status == model.StatusDoing:
			v.Doing = append(v.Doing, t)
		case t.Status == model.StatusToday && scheduledOn(t, date):
			v.Todo = append(v.Todo, t)
		case t.Status == model.StatusDone && scheduledOn(t, date):
			v.Done = append(v.Done, t)
		}
	}
	v.Remaining = len(v.Todo) + len(v.Doing)
	return v
}

type Day struct {
	Date  model.Date   `json:"date"`
	Tasks []model.Task `json:"tasks"`
}

type Week struct {
	Offset  int          `json:"offset"`
	Label   string       `json:"label"`
	Days    []Day        `json:"days"`
	Backlog []model.Task `json:"backlog"`
}

// BuildWeek places tasks on days. A doing or done task with a start date
// spans every day from the start to its completion day (today while still
// open); any task also shows on its scheduled day. A task is listed at most
// once per day.
func BuildWeek(tasks []model.Task, days []model.Date, offset int, today model.Date, loc *time.Location) Week {
	w := Week{
		Offset:  offset,
		Label:   schedule.WeekLabel(days),
		Days:    make([]Day, len(days)),
		Backlog: []model.Task{},
	}
	index := make(map[model.Date]int, len(days))
	for i, d := range days {
		w.Days[i] = Day{Date: d, Tasks: []model.Task{}}
		index[d] = i
	}

	for _, t := range tasks {
		placed := make(map[int]bool)

		if t.StartDate != nil && (t.Status == model.StatusDoing || t.Status == model.StatusDone) {
			end := today
			if t.DoneAt != nil {
				end = model.DateOf(t.DoneAt.In(loc))
			}
			for i, d := range days {
				if d >= *t.StartDate && d <= end {
					w.Days[i].Tasks = append(w.Days[i].Tasks, t)
					placed[i] = true
				}
			}
		}

		if t.ScheduledDate != nil {
			if i, ok := index[*t.ScheduledDate]; ok && !placed[i] {
				w.Days[i].Tasks = append(w.Days[i].Tasks, t)
			}
		}

		if t.Status == model.StatusBacklog && t.ScheduledDate == nil {
			w.Backlog = append(w.Backlog, t)
		}
	}
	return w
}

type Column struct {
	Status model.Status `json:"status"`
	Tasks  []model.Task `json:"tasks"`
}

type Board struct {
	Columns []Column `json:"columns"`
}

func BuildBoard(tasks []model.Task) Board {
	b := Board{Columns: make([]Column, len(model.Statuses))}
	index := make(map[model.Status]int, len(model.Statuses))
	for i, s := range model.Statuses {
		b.Columns[i] = Column{Status: s, Tasks: []model.Task{}}
		index[s] = i
	}
	for _, t := range tasks {
		if i, ok := index[t.Status]; ok {
			b.Columns[i].Tasks = append(b.Columns[i].Tasks, t)
		}
	}
	return b
}

func scheduledOn(t model.Task, d model.Date) bool {
	return t.ScheduledDate != nil && *t.ScheduledDate == d
}
