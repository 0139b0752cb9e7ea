package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/BuzzLyutic/todo-board/internal/model"
	"github.com/BuzzLyutic/todo-board/internal/service"
	"github.com/BuzzLyutic/todo-board/pkg/respond"
)

type TaskHandler struct {
	service *service.TaskService
	logger  *zap.Logger
}

func NewTaskHandler(srv *service.TaskService, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{
		service: srv,
		logger:  logger,
	}
}

type quickAddRequest struct {
	Text        string      `json:"text"`
	DefaultDate *model.Date `json:"default_date,omitempty"`
}

type postponeRequest struct {
	Target string `json:"target"`
}

type scheduleRequest struct {
	Date model.Nullable[model.Date] `json:"date"`
}

type statusRequest struct {
	Status model.Status `json:"status"`
}

type reorderRequest struct {
	IDs []int64 `json:"ids"`
}

func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength == 0 {
		respond.Error(w, r, http.StatusBadRequest, "empty request body")
		return
	}

	var req model.NewTask
	if !h.decode(w, r, &req) {
		return
	}

	task, err := h.service.Create(r.Context(), req, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/tasks/%d", task.ID))
	respond.JSON(w, r, http.StatusCreated, task)
}

// QuickAdd creates a task from a line like "buy milk #home !p1 @tomorrow".
func (h *TaskHandler) QuickAdd(w http.ResponseWriter, r *http.Request) {
	var req quickAddRequest
	if !h.decode(w, r, &req) {
		return
	}

	task, err := h.service.QuickAdd(r.Context(), req.Text, req.DefaultDate, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	w.Header().Set("Location", fmt.Sprintf("/api/tasks/%d", task.ID))
	respond.JSON(w, r, http.StatusCreated, task)
}

func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	task, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var filter model.TaskFilter
	if v := q.Get("status"); v != "" {
		status := model.Status(v)
		if !status.Valid() {
			respond.Error(w, r, http.StatusBadRequest, "invalid status")
			return
		}
		filter.Status = &status
	}
	if v := q.Get("date"); v != "" {
		date, err := model.ParseDate(v)
		if err != nil {
			respond.Error(w, r, http.StatusBadRequest, "invalid date")
			return
		}
		filter.ScheduledDate = &date
	}
	if v := q.Get("tag"); v != "" {
		tagID, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			respond.Error(w, r, http.StatusBadRequest, "invalid tag")
			return
		}
		filter.TagID = &tagID
	}

	limit, _ := strconv.Atoi(q.Get("limit"))

	tasks, err := h.service.List(r.Context(), filter, limit)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, tasks)
}

func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	var patch model.TaskPatch
	if !h.decode(w, r, &patch) {
		return
	}

	task, err := h.service.Update(r.Context(), id, patch)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.handleErrors(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	task, err := h.service.ToggleDone(r.Context(), id)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Postpone(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	var req postponeRequest
	if !h.decode(w, r, &req) {
		return
	}

	task, err := h.service.Postpone(r.Context(), id, req.Target)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

// Schedule is the outcome of dropping a task on a weekday or on the
// backlog ({"date": null}).
func (h *TaskHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	var req scheduleRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !req.Date.Set {
		respond.Error(w, r, http.StatusBadRequest, "date is required (null moves the task to the backlog)")
		return
	}

	task, err := h.service.Schedule(r.Context(), id, req.Date.Value)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Move(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	var req statusRequest
	if !h.decode(w, r, &req) {
		return
	}

	task, err := h.service.MoveStatus(r.Context(), id, req.Status)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, task)
}

func (h *TaskHandler) Reorder(w http.ResponseWriter, r *http.Request) {
	var req reorderRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.Reorder(r.Context(), req.IDs); err != nil {
		h.handleErrors(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TaskHandler) Today(w http.ResponseWriter, r *http.Request) {
	var date *model.Date
	if v := r.URL.Query().Get("date"); v != "" {
		d := model.Date(v)
		date = &d
	}

	today, err := h.service.Today(r.Context(), date)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, today)
}

func (h *TaskHandler) Week(w http.ResponseWriter, r *http.Request) {
	offset := 0
	if v := r.URL.Query().Get("offset"); v != "" {
		var err error
		if offset, err = strconv.Atoi(v); err != nil {
			respond.Error(w, r, http.StatusBadRequest, "invalid offset")
			return
		}
	}

	week, err := h.service.Week(r.Context(), offset)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, week)
}

func (h *TaskHandler) Board(w http.ResponseWriter, r *http.Request) {
	board, err := h.service.Board(r.Context())
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, board)
}

func (h *TaskHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}
	respond.JSON(w, r, http.StatusOK, stats)
}

func (h *TaskHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.logger.Debug("failed to decode json", zap.Error(err))
		respond.Error(w, r, http.StatusBadRequest, fmt.Sprintf("invalid json: %v", err))
		return false
	}
	return true
}

func (h *TaskHandler) handleErrors(w http.ResponseWriter, r *http.Request, err error) {
	handleErrors(w, r, h.logger, err)
}
