package model

import (
	"slices"
	"time"
)

type Status string

const (
	StatusBacklog Status = "backlog"
	StatusToday   Status = "today"
	StatusDoing   Status = "doing"
	StatusDone    Status = "done"
)

// Statuses в порядке колонок доски
var Statuses = []Status{StatusBacklog, StatusToday, StatusDoing, StatusDone}

func (s Status) Valid() bool {
	return slices.Contains(Statuses, s)
}

type Priority string

const (
	PriorityP1 Priority = "p1"
	PriorityP2 Priority = "p2"
	PriorityP3 Priority = "p3"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityP1, PriorityP2, PriorityP3:
		return true
	}
	return false
}

type Task struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Status        Status     `json:"status"`
	Priority      *Priority  `json:"priority"`
	ScheduledDate *Date      `json:"scheduled_date"`
	DueDate       *Date      `json:"due_date"`
	StartDate     *Date      `json:"start_date"`
	DoneAt        *time.Time `json:"done_at"`
	Tags          []int64    `json:"tags"`
	Notes         string     `json:"notes"`
	Links         []string   `json:"links"`
	Order         int64      `json:"order"`
	PostponeCount int        `json:"postpone_count"`
	Version       int        `json:"version"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// NewTask is the payload for creating a task. ScheduledDate left unset
// means "today"; an explicit null keeps the task unscheduled.
type NewTask struct {
	Title         string         `json:"title"`
	Status        Status         `json:"status,omitempty"`
	Priority      *Priority      `json:"priority,omitempty"`
	ScheduledDate Nullable[Date] `json:"scheduled_date,omitzero"`
	DueDate       *Date          `json:"due_date,omitempty"`
	Tags          []int64        `json:"tags,omitempty"`
	Notes         string         `json:"notes,omitempty"`
	Links         []string       `json:"links,omitempty"`
}

// TaskPatch is a partial update. Nil pointers and unset Nullable fields
// are left untouched.
type TaskPatch struct {
	Title         *string             `json:"title,omitempty"`
	Status        *Status             `json:"status,omitempty"`
	Priority      Nullable[Priority]  `json:"priority,omitzero"`
	ScheduledDate Nullable[Date]      `json:"scheduled_date,omitzero"`
	DueDate       Nullable[Date]      `json:"due_date,omitzero"`
	StartDate     Nullable[Date]      `json:"start_date,omitzero"`
	DoneAt        Nullable[time.Time] `json:"done_at,omitzero"`
	Tags          *[]int64            `json:"tags,omitempty"`
	Notes         *string             `json:"notes,omitempty"`
	Links         *[]string           `json:"links,omitempty"`
	Version       *int                `json:"version,omitempty"`
}

// Merge returns a copy of t with every field set in p applied.
func (t Task) Merge(p TaskPatch) Task {
	if p.Title != nil {
		t.Title = *p.Title
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	if p.Priority.Set {
		t.Priority = p.Priority.Value
	}
	if p.ScheduledDate.Set {
		t.ScheduledDate = p.ScheduledDate.Value
	}
	if p.DueDate.Set {
		t.DueDate = p.DueDate.Value
	}
	if p.StartDate.Set {
		t.StartDate = p.StartDate.Value
	}
	if p.DoneAt.Set {
		t.DoneAt = p.DoneAt.Value
	}
	if p.Tags != nil {
		t.Tags = slices.Clone(*p.Tags)
	}
	if p.Notes != nil {
		t.Notes = *p.Notes
	}
	if p.Links != nil {
		t.Links = slices.Clone(*p.Links)
	}
	return t
}

type TaskFilter struct {
	Status        *Status
	ScheduledDate *Date
	TagID         *int64
}

// Postpone targets
const (
	PostponeTomorrow = "tomorrow"
	PostponeNextWeek = "nextweek"
	PostponeNone     = "none"
)
