package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-board/internal/model"
	"github.com/BuzzLyutic/todo-board/internal/repo"
	"github.com/BuzzLyutic/todo-board/internal/schedule"
	"github.com/BuzzLyutic/todo-board/internal/service"
	"github.com/BuzzLyutic/todo-board/internal/testutil"
	"github.com/BuzzLyutic/todo-board/internal/view"
)

// 2024-10-16 is a Wednesday.
var fixedNow = time.Date(2024, 10, 16, 14, 0, 0, 0, time.UTC)

type testServer struct {
	*httptest.Server
	tasks *service.TaskService
}

func setupServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	pool, cleanup := testutil.SetupTestDB(t)
	testutil.TruncateTables(t, pool)

	cal := schedule.New(time.UTC, func() time.Time { return fixedNow })
	tagService := service.NewTagService(repo.NewTagRepo(pool))
	taskService := service.NewTaskService(repo.NewTaskRepo(pool, "UTC"), tagService, cal)
	logger := zap.NewNop()

	router := Router{
		Tasks:  NewTaskHandler(taskService, logger),
		Tags:   NewTagHandler(tagService, logger),
		DB:     pool,
		Logger: logger,
	}
	server := httptest.NewServer(router.Handler())

	return &testServer{Server: server, tasks: taskService}, func() {
		server.Close()
		cleanup()
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, out any) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, s.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func (s *testServer) create(t *testing.T, body any) model.Task {
	t.Helper()
	var task model.Task
	resp := s.do(t, http.MethodPost, "/api/tasks", body, &task)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return task
}

func TestTaskHandler_Create(t *testing.T) {
	server, cleanup := setupServer(t)
	defer cleanup()

	tests := []struct {
		name          string
		body          any
		idempKey      string
		wantCode      int
		checkResponse func(*testing.T, *http.Response, model.Task)
	}{
		{
			name:     "successful creation",
			body:     map[string]any{"title": "Test Task", "priority": "p2"},
			wantCode: http.StatusCreated,
			checkResponse: func(t *testing.T, resp *http.Response, task model.Task) {
				assert.NotZero(t, task.ID)
				assert.Equal(t, "Test Task", task.Title)
				assert.Equal(t, model.StatusToday, task.Status)
				require.NotNil(t, task.ScheduledDate)
				assert.Equal(t, model.Date("2024-10-16"), *task.ScheduledDate)
				assert.Equal(t, 1, task.Version)
				assert.Contains(t, resp.Header.Get("Location"), "/api/tasks/")
			},
		},
		{
			name:     "explicit null keeps it unscheduled",
			body:     map[string]any{"title": "Someday", "status": "backlog", "scheduled_date": nil},
			wantCode: http.StatusCreated,
			checkResponse: func(t *testing.T, _ *http.Response, task model.Task) {
				assert.Nil(t, task.ScheduledDate)
				assert.Equal(t, model.StatusBacklog, task.Status)
			},
		},
		{
			name:     "created as doing gets a start date",
			body:     map[string]any{"title": "Started", "status": "doing"},
			wantCode: http.StatusCreated,
			checkResponse: func(t *testing.T, _ *http.Response, task model.Task) {
				require.NotNil(t, task.StartDate)
				assert.Equal(t, model.Date("2024-10-16"), *task.StartDate)
			},
		},
		{
			name:     "empty body",
			body:     nil,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "validation error",
			body:     map[string]any{"title": "   "},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "bad priority",
			body:     map[string]any{"title": "x", "priority": "p9"},
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "with idempotency key",
			body:     map[string]any{"title": "Idempotent Task"},
			idempKey: "test-key-123",
			wantCode: http.StatusCreated,
			checkResponse: func(t *testing.T, _ *http.Response, first model.Task) {
				raw, _ := json.Marshal(map[string]any{"title": "Idempotent Task"})
				req, _ := http.NewRequest(http.MethodPost, server.URL+"/api/tasks", bytes.NewReader(raw))
				req.Header.Set("Idempotency-Key", "test-key-123")
				resp, err := http.DefaultClient.Do(req)
				require.NoError(t, err)
				defer resp.Body.Close()

				var second model.Task
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&second))
				assert.Equal(t, first.ID, second.ID, "should return same task")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body []byte
			if tt.body != nil {
				body, _ = json.Marshal(tt.body)
			}

			req, err := http.NewRequest(http.MethodPost, server.URL+"/api/tasks", bytes.NewReader(body))
			require.NoError(t, err)
			req.Header.Set("Content-Type", "application/json")
			if tt.idempKey != "" {
				req.Header.Set("Idempotency-Key", tt.idempKey)
			}

			resp, err := http.DefaultClient.Do(req)
			require.NoError(t, err)
			defer resp.Body.Close()

			assert.Equal(t, tt.wantCode, resp.StatusCode)

			if tt.checkResponse != nil {
				var task model.Task
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&task))
				tt.checkResponse(t, resp, task)
			}
		})
	}
}

func TestTaskHandler_QuickAdd(t *testing.T) {
	server, cleanup := setupServer(t)
	defer cleanup()

	var task model.Task
	resp := server.do(t, http.MethodPost, "/api/tasks/quick",
		map[string]any{"text": "buy milk #home !p1 @tomorrow #home"}, &task)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Equal(t, "buy milk", task.Title)
	require.NotNil(t, task.Priority)
	assert.Equal(t, model.PriorityP1, *task.Priority)
	require.NotNil(t, task.ScheduledDate)
	assert.Equal(t, model.Date("2024-10-17"), *task.ScheduledDate)
	require.Len(t, task.Tags, 1)

	var tags []model.Tag
	server.do(t, http.MethodGet, "/api/tags", nil, &tags)
	require.Len(t, tags, 1)
	assert.Equal(t, "home", tags[0].Name)
	assert.Equal(t, tags[0].ID, task.Tags[0])

	t.Run("default date for lines without a date", func(t *testing.T) {
		var task model.Task
		resp := server.do(t, http.MethodPost, "/api/tasks/quick",
			map[string]any{"text": "water plants #home", "default_date": "2024-10-18"}, &task)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		assert.Equal(t, model.Date("2024-10-18"), *task.ScheduledDate)
		assert.Equal(t, tags[0].ID, task.Tags[0], "existing tag is reused")
	})

	t.Run("only tokens", func(t *testing.T) {
		resp := server.do(t, http.MethodPost, "/api/tasks/quick", map[string]any{"text": "#home !p2"}, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestTaskHandler_Get(t *testing.T) {
	server, cleanup := setupServer(t)
	defer cleanup()

	created := server.create(t, map[string]any{"title": "Get Test"})

	t.Run("get existing task", func(t *testing.T) {
		var task model.Task
		resp := server.do(t, http.MethodGet, fmt.Sprintf("/api/tasks/%d", created.ID), nil, &task)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, created.ID, task.ID)
	})

	t.Run("get non-existing task", func(t *testing.T) {
		resp := server.do(t, http.MethodGet, "/api/tasks/99999", nil, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("bad id", func(t *testing.T) {
		resp := server.do(t, http.MethodGet, "/api/tasks/abc", nil, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestTaskHandler_List(t *testing.T) {
	server, cleanup := setupServer(t)
	defer cleanup()

	for i := range 5 {
		server.create(t, map[string]any{"title": fmt.Sprintf("Task %d", i)})
	}
	server.create(t, map[string]any{"title": "Later", "status": "backlog", "scheduled_date": nil})

	t.Run("list all tasks in order", func(t *testing.T) {
		var tasks []model.Task
		resp := server.do(t, http.MethodGet, "/api/tasks", nil, &tasks)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, tasks, 6)
		for i := 1; i < len(tasks); i++ {
			assert.Less(t, tasks[i-1].Order, tasks[i].Order)
		}
	})

	t.Run("filter by status", func(t *testing.T) {
		var tasks []model.Task
		server.do(t, http.MethodGet, "/api/tasks?status=backlog", nil, &tasks)
		require.Len(t, tasks, 1)
		assert.Equal(t, "Later", tasks[0].Title)
	})

	t.Run("filter by date", func(t *testing.T) {
		var tasks []model.Task
		server.do(t, http.MethodGet, "/api/tasks?date=2024-10-16", nil, &tasks)
		assert.Len(t, tasks, 5)
	})

	t.Run("with limit", func(t *testing.T) {
		var tasks []model.Task
		server.do(t, http.MethodGet, "/api/tasks?limit=3", nil, &tasks)
		assert.Len(t, tasks, 3)
	})

	t.Run("invalid filters", func(t *testing.T) {
		for _, q := range []string{"status=pending", "date=16.10.2024", "tag=x"} {
			resp := server.do(t, http.MethodGet, "/api/tasks?"+q, nil, nil)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, q)
		}
	})
}

func TestTaskHandler_Update(t *testing.T) {
	server, cleanup := setupServer(t)
	defer cleanup()

	created := server.create(t, map[string]any{"title": "Original", "priority": "p3"})

	t.Run("successful update", func(t *testing.T) {
		var updated model.Task
		resp := server.do(t, http.MethodPatch, fmt.Sprintf("/api/tasks/%d", created.ID),
			map[string]any{"title": "Updated", "priority": nil, "version": created.Version}, &updated)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "Updated", updated.Title)
		assert.Nil(t, updated.Priority)
		assert.Equal(t, created.Version+1, updated.Version)
		assert.Equal(t, created.ScheduledDate, updated.ScheduledDate, "absent fields are kept")
	})

	t.Run("moving to done stamps done_at", func(t *testing.T) {
		var updated model.Task
		resp := server.do(t, http.MethodPatch, fmt.Sprintf("/api/tasks/%d", created.ID),
			map[string]any{"status": "done"}, &updated)

		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.NotNil(t, updated.DoneAt)
		assert.True(t, updated.DoneAt.Equal(fixedNow))
		require.NotNil(t, updated.StartDate)
	})

	t.Run("version conflict", func(t *testing.T) {
		resp := server.do(t, http.MethodPatch, fmt.Sprintf("/api/tasks/%d", created.ID),
			map[string]any{"title": "Conflict", "version": 999}, nil)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("invalid json", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPatch, fmt.Sprintf("%s/api/tasks/%d", server.URL, created.ID),
			bytes.NewReader([]byte("{")))
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestTaskHandler_Delete(t *testing.T) {
	server, cleanup := setupServer(t)
	defer cleanup()

	created := server.create(t, map[string]any{"title": "To Delete"})

	t.Run("successful delete", func(t *testing.T) {
		resp := server.do(t, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", created.ID), nil, nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	})

	t.Run("delete non-existing", func(t *testing.T) {
		resp := server.do(t, http.MethodDelete, fmt.Sprintf("/api/tasks/%d", created.ID), nil, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestTaskHandler_Actions(t *testing.T) {
	server, cleanup := setupServer(t)
	defer cleanup()

	task := server.create(t, map[string]any{"title": "Act"})
	path := fmt.Sprintf("/api/tasks/%d", task.ID)

	t.Run("toggle to done and back", func(t *testing.T) {
		var done model.Task
		server.do(t, http.MethodPost, path+"/toggle", nil, &done)
		assert.Equal(t, model.StatusDone, done.Status)
		assert.NotNil(t, done.DoneAt)

		var back model.Task
		server.do(t, http.MethodPost, path+"/toggle", nil, &back)
		assert.Equal(t, model.StatusToday, back.Status)
		assert.Nil(t, back.DoneAt)
	})

	t.Run("postpone to next week", func(t *testing.T) {
		var moved model.Task
		resp := server.do(t, http.MethodPost, path+"/postpone", map[string]string{"target": "nextweek"}, &moved)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, model.Date("2024-10-21"), *moved.ScheduledDate)
		assert.Equal(t, 1, moved.PostponeCount)
	})

	t.Run("postpone unknown target", func(t *testing.T) {
		resp := server.do(t, http.MethodPost, path+"/postpone", map[string]string{"target": "someday"}, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("schedule into backlog", func(t *testing.T) {
		var moved model.Task
		server.do(t, http.MethodPut, path+"/schedule", map[string]any{"date": nil}, &moved)
		assert.Equal(t, model.StatusBacklog, moved.Status)
		assert.Nil(t, moved.ScheduledDate)
	})

	t.Run("schedule without a date key is rejected", func(t *testing.T) {
		resp := server.do(t, http.MethodPut, path+"/schedule", map[string]any{}, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		var still model.Task
		server.do(t, http.MethodGet, path, nil, &still)
		assert.Equal(t, model.StatusBacklog, still.Status, "left where it was")
	})

	t.Run("schedule backlog task on today promotes it", func(t *testing.T) {
		var moved model.Task
		server.do(t, http.MethodPut, path+"/schedule", map[string]any{"date": "2024-10-16"}, &moved)
		assert.Equal(t, model.StatusToday, moved.Status)
	})

	t.Run("move to doing", func(t *testing.T) {
		var moved model.Task
		resp := server.do(t, http.MethodPut, path+"/status", map[string]any{"status": "doing"}, &moved)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, model.StatusDoing, moved.Status)
		assert.NotNil(t, moved.StartDate)
	})

	t.Run("move to unknown status", func(t *testing.T) {
		resp := server.do(t, http.MethodPut, path+"/status", map[string]any{"status": "archived"}, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestTaskHandler_Reorder(t *testing.T) {
	server, cleanup := setupServer(t)
	defer cleanup()

	a := server.create(t, map[string]any{"title": "a"})
	b := server.create(t, map[string]any{"title": "b"})
	c := server.create(t, map[string]any{"title": "c"})

	resp := server.do(t, http.MethodPut, "/api/tasks/order", map[string]any{"ids": []int64{c.ID, a.ID, b.ID}}, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	var tasks []model.Task
	server.do(t, http.MethodGet, "/api/tasks", nil, &tasks)
	require.Len(t, tasks, 3)
	assert.Equal(t, []string{"c", "a", "b"}, []string{tasks[0].Title, tasks[1].Title, tasks[2].Title})
	assert.Equal(t, int64(0), tasks[0].Order)
	assert.Equal(t, int64(2000), tasks[2].Order)

	resp = server.do(t, http.MethodPut, "/api/tasks/order", map[string]any{"ids": []int64{a.ID, a.ID}}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = server.do(t, http.MethodPut, "/api/tasks/order", map[string]any{"ids": []int64{b.ID, 4242}}, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	server.do(t, http.MethodGet, "/api/tasks", nil, &tasks)
	assert.Equal(t, "c", tasks[0].Title, "failed reorder changes nothing")
}

func TestTaskHandler_Views(t *testing.T) {
	server, cleanup := setupServer(t)
	defer cleanup()

	server.create(t, map[string]any{"title": "todo"})
	server.create(t, map[string]any{"title": "working", "status": "doing"})
	server.create(t, map[string]any{"title": "finished", "status": "done"})
	server.create(t, map[string]any{"title": "parked", "status": "backlog", "scheduled_date": nil})

	t.Run("today", func(t *testing.T) {
		var today view.Today
		resp := server.do(t, http.MethodGet, "/api/views/today", nil, &today)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, model.Date("2024-10-16"), today.Date)
		assert.Len(t, today.Todo, 1)
		assert.Len(t, today.Doing, 1)
		assert.Len(t, today.Done, 1)
		assert.Equal(t, 2, today.Remaining)
	})

	t.Run("week", func(t *testing.T) {
		var week view.Week
		resp := server.do(t, http.MethodGet, "/api/views/week?offset=0", nil, &week)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		require.Len(t, week.Days, 5)
		assert.Equal(t, model.Date("2024-10-14"), week.Days[0].Date)
		assert.Len(t, week.Days[2].Tasks, 3)
		assert.Len(t, week.Backlog, 1)

		resp = server.do(t, http.MethodGet, "/api/views/week?offset=x", nil, nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("board", func(t *testing.T) {
		var board view.Board
		server.do(t, http.MethodGet, "/api/views/board", nil, &board)
		require.Len(t, board.Columns, 4)
		for _, col := range board.Columns {
			assert.Len(t, col.Tasks, 1, col.Status)
		}
	})

	t.Run("stats", func(t *testing.T) {
		var stats repo.Stats
		resp := server.do(t, http.MethodGet, "/api/stats", nil, &stats)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, 4, stats.TotalTasks)
		assert.Equal(t, 1, stats.ByStatus["done"])
	})
}

func TestTaskHandler_Health(t *testing.T) {
	server, cleanup := setupServer(t)
	defer cleanup()

	var body map[string]string
	resp := server.do(t, http.MethodGet, "/health", nil, &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestConcurrent_IdempotencyKeys(t *testing.T) {
	server, cleanup := setupServer(t)
	defer cleanup()

	const goroutines = 10
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make([]model.Task, goroutines)
	errs := make([]error, goroutines)

	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = server.tasks.Create(ctx, model.NewTask{Title: fmt.Sprintf("Concurrent %d", i)}, "concurrent-key")
		}()
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "request %d should not error", i)
	}
	for i, result := range results {
		assert.Equal(t, results[0].ID, result.ID, "request %d should return same ID", i)
	}

	var tasks []model.Task
	server.do(t, http.MethodGet, "/api/tasks", nil, &tasks)
	assert.Len(t, tasks, 1, "only one task should survive")
}

func TestConcurrent_OptimisticLocking(t *testing.T) {
	server, cleanup := setupServer(t)
	defer cleanup()

	ctx := context.Background()
	task := server.create(t, map[string]any{"title": "Optimistic Lock Test"})

	const goroutines = 10
	var wg sync.WaitGroup
	errs := make([]error, goroutines)

	for i := range goroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			title := fmt.Sprintf("Updated %d", i)
			_, errs[i] = server.tasks.Update(ctx, task.ID, model.TaskPatch{Title: &title, Version: &task.Version})
		}()
	}
	wg.Wait()

	success, conflict := 0, 0
	for i, err := range errs {
		switch err {
		case nil:
			success++
		case repo.ErrorConflict:
			conflict++
		default:
			t.Errorf("unexpected error at %d: %v", i, err)
		}
	}

	assert.Equal(t, 1, success, "exactly one update should succeed")
	assert.Equal(t, goroutines-1, conflict, "others should conflict")
}
