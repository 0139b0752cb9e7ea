// Package client is a typed HTTP client for the todo-board API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/BuzzLyutic/todo-board/internal/model"
	"github.com/BuzzLyutic/todo-board/internal/repo"
	"github.com/BuzzLyutic/todo-board/internal/view"
)

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// ListOptions narrows ListTasks. Zero values mean "no filter".
type ListOptions struct {
	Status model.Status
	Date   model.Date
	TagID  int64
	Limit  int
}

func (c *Client) CreateTask(ctx context.Context, in model.NewTask, idempKey string) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, http.MethodPost, "/api/tasks", in, &t, idempKey)
	return t, err
}

func (c *Client) QuickAdd(ctx context.Context, text string, defaultDate *model.Date) (model.Task, error) {
	var t model.Task
	body := map[string]any{"text": text}
	if defaultDate != nil {
		body["default_date"] = *defaultDate
	}
	err := c.do(ctx, http.MethodPost, "/api/tasks/quick", body, &t, "")
	return t, err
}

func (c *Client) GetTask(ctx context.Context, id int64) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, http.MethodGet, taskPath(id, ""), nil, &t, "")
	return t, err
}

func (c *Client) ListTasks(ctx context.Context, opts ListOptions) ([]model.Task, error) {
	q := url.Values{}
	if opts.Status != "" {
		q.Set("status", string(opts.Status))
	}
	if opts.Date != "" {
		q.Set("date", string(opts.Date))
	}
	if opts.TagID != 0 {
		q.Set("tag", strconv.FormatInt(opts.TagID, 10))
	}
	if opts.Limit != 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}

	path := "/api/tasks"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var tasks []model.Task
	err := c.do(ctx, http.MethodGet, path, nil, &tasks, "")
	return tasks, err
}

func (c *Client) UpdateTask(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, http.MethodPatch, taskPath(id, ""), patch, &t, "")
	return t, err
}

func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, taskPath(id, ""), nil, nil, "")
}

func (c *Client) Toggle(ctx context.Context, id int64) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, http.MethodPost, taskPath(id, "/toggle"), nil, &t, "")
	return t, err
}

func (c *Client) Postpone(ctx context.Context, id int64, target string) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, http.MethodPost, taskPath(id, "/postpone"), map[string]string{"target": target}, &t, "")
	return t, err
}

// Schedule puts the task on date; nil sends it to the backlog.
func (c *Client) Schedule(ctx context.Context, id int64, date *model.Date) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, http.MethodPut, taskPath(id, "/schedule"), map[string]*model.Date{"date": date}, &t, "")
	return t, err
}

func (c *Client) Move(ctx context.Context, id int64, status model.Status) (model.Task, error) {
	var t model.Task
	err := c.do(ctx, http.MethodPut, taskPath(id, "/status"), map[string]model.Status{"status": status}, &t, "")
	return t, err
}

func (c *Client) Reorder(ctx context.Context, ids []int64) error {
	return c.do(ctx, http.MethodPut, "/api/tasks/order", map[string][]int64{"ids": ids}, nil, "")
}

func (c *Client) Today(ctx context.Context, date *model.Date) (view.Today, error) {
	path := "/api/views/today"
	if date != nil {
		path += "?date=" + url.QueryEscape(string(*date))
	}
	var v view.Today
	err := c.do(ctx, http.MethodGet, path, nil, &v, "")
	return v, err
}

func (c *Client) Week(ctx context.Context, offset int) (view.Week, error) {
	var v view.Week
	err := c.do(ctx, http.MethodGet, "/api/views/week?offset="+strconv.Itoa(offset), nil, &v, "")
	return v, err
}

func (c *Client) Board(ctx context.Context) (view.Board, error) {
	var v view.Board
	err := c.do(ctx, http.MethodGet, "/api/views/board", nil, &v, "")
	return v, err
}

func (c *Client) Stats(ctx context.Context) (repo.Stats, error) {
	var s repo.Stats
	err := c.do(ctx, http.MethodGet, "/api/stats", nil, &s, "")
	return s, err
}

func (c *Client) Tags(ctx context.Context) ([]model.Tag, error) {
	var tags []model.Tag
	err := c.do(ctx, http.MethodGet, "/api/tags", nil, &tags, "")
	return tags, err
}

func (c *Client) CreateTag(ctx context.Context, name, color string) (model.Tag, error) {
	var tag model.Tag
	err := c.do(ctx, http.MethodPost, "/api/tags", map[string]string{"name": name, "color": color}, &tag, "")
	return tag, err
}

func (c *Client) DeleteTag(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/tags/%d", id), nil, nil, "")
}

func (c *Client) do(ctx context.Context, method, path string, in, out any, idempKey string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idempKey != "" {
		req.Header.Set("Idempotency-Key", idempKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		if e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func taskPath(id int64, suffix string) string {
	return fmt.Sprintf("/api/tasks/%d%s", id, suffix)
}
