package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BuzzLyutic/todo-board/internal/model"
)

var (
	now   = time.Date(2024, 10, 16, 14, 0, 0, 0, time.UTC)
	today = model.Date("2024-10-16")
)

func date(s string) *model.Date {
	d := model.Date(s)
	return &d
}

func TestApply(t *testing.T) {
	earlier := now.Add(-48 * time.Hour)

	tests := []struct {
		name  string
		prev  model.Task
		next  model.Task
		check func(*testing.T, model.Task)
	}{
		{
			name: "doing stamps start date",
			prev: model.Task{Status: model.StatusToday, ScheduledDate: date("2024-10-15")},
			next: model.Task{Status: model.StatusDoing, ScheduledDate: date("2024-10-15")},
			check: func(t *testing.T, got model.Task) {
				require.NotNil(t, got.StartDate)
				assert.Equal(t, today, *got.StartDate)
				assert.Equal(t, model.Date("2024-10-15"), *got.ScheduledDate)
			},
		},
		{
			name: "doing keeps existing start date",
			prev: model.Task{Status: model.StatusToday, StartDate: date("2024-10-01"), ScheduledDate: date("2024-10-01")},
			next: model.Task{Status: model.StatusDoing, StartDate: date("2024-10-01"), ScheduledDate: date("2024-10-01")},
			check: func(t *testing.T, got model.Task) {
				assert.Equal(t, model.Date("2024-10-01"), *got.StartDate)
			},
		},
		{
			name: "done stamps completion and start from schedule",
			prev: model.Task{Status: model.StatusToday, ScheduledDate: date("2024-10-10")},
			next: model.Task{Status: model.StatusDone, ScheduledDate: date("2024-10-10")},
			check: func(t *testing.T, got model.Task) {
				require.NotNil(t, got.DoneAt)
				assert.Equal(t, now, *got.DoneAt)
				assert.Equal(t, model.Date("2024-10-10"), *got.StartDate)
			},
		},
		{
			name: "done keeps completion set by the edit",
			prev: model.Task{Status: model.StatusDoing, StartDate: date("2024-10-12")},
			next: model.Task{Status: model.StatusDone, StartDate: date("2024-10-12"), DoneAt: &earlier},
			check: func(t *testing.T, got model.Task) {
				assert.Equal(t, earlier, *got.DoneAt)
			},
		},
		{
			name: "unscheduled backlog to done starts today",
			prev: model.Task{Status: model.StatusBacklog},
			next: model.Task{Status: model.StatusDone},
			check: func(t *testing.T, got model.Task) {
				assert.Equal(t, today, *got.StartDate)
				assert.Nil(t, got.ScheduledDate)
			},
		},
		{
			name: "leaving done clears completion",
			prev: model.Task{Status: model.StatusDone, DoneAt: &earlier, ScheduledDate: date("2024-10-14")},
			next: model.Task{Status: model.StatusToday, DoneAt: &earlier, ScheduledDate: date("2024-10-14")},
			check: func(t *testing.T, got model.Task) {
				assert.Nil(t, got.DoneAt)
				assert.Equal(t, model.Date("2024-10-14"), *got.ScheduledDate)
			},
		},
		{
			name: "done to backlog clears completion and keeps no date",
			prev: model.Task{Status: model.StatusDone, DoneAt: &earlier},
			next: model.Task{Status: model.StatusBacklog, DoneAt: &earlier},
			check: func(t *testing.T, got model.Task) {
				assert.Nil(t, got.DoneAt)
				assert.Nil(t, got.ScheduledDate)
			},
		},
		{
			name: "today without date gets today",
			prev: model.Task{Status: model.StatusBacklog},
			next: model.Task{Status: model.StatusToday},
			check: func(t *testing.T, got model.Task) {
				assert.Equal(t, today, *got.ScheduledDate)
			},
		},
		{
			name: "unchanged status is untouched",
			prev: model.Task{Status: model.StatusDone},
			next: model.Task{Status: model.StatusDone, Title: "renamed"},
			check: func(t *testing.T, got model.Task) {
				assert.Nil(t, got.DoneAt)
				assert.Nil(t, got.StartDate)
			},
		},
		{
			name: "clearing the date of a today task puts it back on today",
			prev: model.Task{Status: model.StatusToday, ScheduledDate: date("2024-10-14")},
			next: model.Task{Status: model.StatusToday},
			check: func(t *testing.T, got model.Task) {
				require.NotNil(t, got.ScheduledDate)
				assert.Equal(t, today, *got.ScheduledDate)
			},
		},
		{
			name: "doing without date keeps status and gets today",
			prev: model.Task{Status: model.StatusDoing, StartDate: date("2024-10-10")},
			next: model.Task{Status: model.StatusDoing, StartDate: date("2024-10-10")},
			check: func(t *testing.T, got model.Task) {
				assert.Equal(t, today, *got.ScheduledDate)
				assert.Equal(t, model.Date("2024-10-10"), *got.StartDate)
			},
		},
		{
			name: "backlog may stay unscheduled",
			prev: model.Task{Status: model.StatusBacklog, ScheduledDate: date("2024-10-20")},
			next: model.Task{Status: model.StatusBacklog},
			check: func(t *testing.T, got model.Task) {
				assert.Nil(t, got.ScheduledDate)
			},
		},
		{
			name: "new task created as doing",
			prev: model.Task{},
			next: model.Task{Status: model.StatusDoing},
			check: func(t *testing.T, got model.Task) {
				assert.Equal(t, today, *got.StartDate)
				assert.Equal(t, today, *got.ScheduledDate)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Apply(tt.prev, tt.next, now, today))
		})
	}
}

func TestApply_DoesNotAliasDates(t *testing.T) {
	got := Apply(model.Task{}, model.Task{Status: model.StatusDoing}, now, today)
	*got.StartDate = "2000-01-01"
	assert.Equal(t, today, *got.ScheduledDate)
}

func TestToggle(t *testing.T) {
	assert.Equal(t, model.StatusDone, Toggle(model.Task{Status: model.StatusDoing}).Status)
	assert.Equal(t, model.StatusDone, Toggle(model.Task{Status: model.StatusBacklog}).Status)
	assert.Equal(t, model.StatusToday, Toggle(model.Task{Status: model.StatusDone}).Status)
}

func TestReschedule(t *testing.T) {
	t.Run("to backlog", func(t *testing.T) {
		got, changed := Reschedule(model.Task{Status: model.StatusToday, ScheduledDate: date("2024-10-16")}, nil, today)
		assert.True(t, changed)
		assert.Equal(t, model.StatusBacklog, got.Status)
		assert.Nil(t, got.ScheduledDate)
	})

	t.Run("already in backlog", func(t *testing.T) {
		_, changed := Reschedule(model.Task{Status: model.StatusBacklog}, nil, today)
		assert.False(t, changed)
	})

	t.Run("same day", func(t *testing.T) {
		_, changed := Reschedule(model.Task{Status: model.StatusToday, ScheduledDate: date("2024-10-17")}, date("2024-10-17"), today)
		assert.False(t, changed)
	})

	t.Run("backlog to past day is promoted", func(t *testing.T) {
		got, changed := Reschedule(model.Task{Status: model.StatusBacklog}, date("2024-10-15"), today)
		assert.True(t, changed)
		assert.Equal(t, model.StatusToday, got.Status)
		assert.Equal(t, model.Date("2024-10-15"), *got.ScheduledDate)
	})

	t.Run("backlog to future day stays backlog", func(t *testing.T) {
		got, changed := Reschedule(model.Task{Status: model.StatusBacklog}, date("2024-10-18"), today)
		assert.True(t, changed)
		assert.Equal(t, model.StatusBacklog, got.Status)
	})

	t.Run("doing keeps status", func(t *testing.T) {
		got, _ := Reschedule(model.Task{Status: model.StatusDoing, ScheduledDate: date("2024-10-14")}, date("2024-10-10"), today)
		assert.Equal(t, model.StatusDoing, got.Status)
	})
}

func TestPostpone(t *testing.T) {
	got := Postpone(model.Task{Status: model.StatusDoing, PostponeCount: 2}, date("2024-10-17"))
	assert.Equal(t, model.StatusToday, got.Status)
	assert.Equal(t, model.Date("2024-10-17"), *got.ScheduledDate)
	assert.Equal(t, 3, got.PostponeCount)

	got = Postpone(model.Task{Status: model.StatusToday, ScheduledDate: date("2024-10-16")}, nil)
	assert.Equal(t, model.StatusBacklog, got.Status)
	assert.Nil(t, got.ScheduledDate)
	assert.Equal(t, 1, got.PostponeCount)
}
