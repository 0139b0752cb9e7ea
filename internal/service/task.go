package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BuzzLyutic/todo-board/internal/lifecycle"
	"github.com/BuzzLyutic/todo-board/internal/model"
	"github.com/BuzzLyutic/todo-board/internal/quickadd"
	"github.com/BuzzLyutic/todo-board/internal/repo"
	"github.com/BuzzLyutic/todo-board/internal/schedule"
	"github.com/BuzzLyutic/todo-board/internal/view"
)

var (
	ErrValidation = errors.New("validation error")
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

type TaskService struct {
	repo repo.TaskRepository
	tags *TagService
	cal  *schedule.Calendar
}

func NewTaskService(repo repo.TaskRepository, tags *TagService, cal *schedule.Calendar) *TaskService {
	return &TaskService{repo: repo, tags: tags, cal: cal}
}

func (s *TaskService) Create(ctx context.Context, in model.NewTask, idempKey string) (model.Task, error) {
	t := s.draft(in)
	if err := s.validate(t); err != nil { // Валидация модели на корректность введенных данных
		return t, err
	}

	if idempKey != "" { // Обеспечение идемпотентности - если ключ с ресурсом уже существует, мы не создаем его еще раз
		if existingID, err := s.repo.GetIdempotencyKey(ctx, idempKey); err == nil {
			return s.repo.Get(ctx, existingID)
		}
	}

	return s.persist(ctx, t, idempKey)
}

// QuickAdd creates a task from one line of quick-add syntax. defaultDate,
// when given, replaces today for lines without a date token. Unknown tag
// names are created and attached.
func (s *TaskService) QuickAdd(ctx context.Context, text string, defaultDate *model.Date, idempKey string) (model.Task, error) {
	if strings.TrimSpace(text) == "" {
		return model.Task{}, fmt.Errorf("%w: text is required", ErrValidation)
	}
	if defaultDate != nil && !defaultDate.Valid() {
		return model.Task{}, fmt.Errorf("%w: invalid default date %q", ErrValidation, *defaultDate)
	}

	if idempKey != "" {
		if existingID, err := s.repo.GetIdempotencyKey(ctx, idempKey); err == nil {
			return s.repo.Get(ctx, existingID)
		}
	}

	parsed := quickadd.Parse(text, s.cal)
	if parsed.Title == "" {
		return model.Task{}, fmt.Errorf("%w: title is empty once tokens are removed", ErrValidation)
	}

	// @дата в тексте важнее defaultDate
	date := parsed.ScheduledDate
	if !parsed.DateGiven && defaultDate != nil {
		date = *defaultDate
	}

	tagIDs := make([]int64, 0, len(parsed.TagNames))
	for _, name := range parsed.TagNames {
		tag, err := s.tags.Ensure(ctx, name)
		if err != nil {
			return model.Task{}, fmt.Errorf("resolve tag %q: %w", name, err)
		}
		tagIDs = append(tagIDs, tag.ID)
	}

	t := s.draft(model.NewTask{
		Title:         parsed.Title,
		Status:        model.StatusToday,
		Priority:      parsed.Priority,
		ScheduledDate: model.Some(date),
		Tags:          tagIDs,
	})
	if err := s.validate(t); err != nil {
		return t, err
	}
	return s.persist(ctx, t, idempKey)
}

func (s *TaskService) persist(ctx context.Context, t model.Task, idempKey string) (model.Task, error) {
	// Создание новой задачи
	resource, err := s.repo.Create(ctx, t)
	if err != nil {
		return resource, err
	}

	// Сохранение нового ключа
	if idempKey != "" {
		if err := s.repo.SaveIdempotencyKey(ctx, idempKey, resource.ID); err != nil {
			return resource, fmt.Errorf("save idempotency key: %w", err)
		}
		// ключ мог занять параллельный запрос: его задача побеждает, наша удаляется
		if owner, err := s.repo.GetIdempotencyKey(ctx, idempKey); err == nil && owner != resource.ID {
			if err := s.repo.Delete(ctx, resource.ID); err != nil {
				return resource, fmt.Errorf("drop duplicate task: %w", err)
			}
			return s.repo.Get(ctx, owner)
		}
	}

	return resource, nil
}

func (s *TaskService) Get(ctx context.Context, id int64) (model.Task, error) {
	return s.repo.Get(ctx, id)
}

func (s *TaskService) List(ctx context.Context, filter model.TaskFilter, limit int) ([]model.Task, error) {
	if limit <= 0 || limit > maxLimit {
		limit = defaultLimit
	}
	return s.repo.List(ctx, filter, limit)
}

// Snapshot is the whole collection in sort order.
func (s *TaskService) Snapshot(ctx context.Context) ([]model.Task, error) {
	return s.repo.List(ctx, model.TaskFilter{}, 0)
}

func (s *TaskService) Update(ctx context.Context, id int64, patch model.TaskPatch) (model.Task, error) {
	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return cur, err
	}
	if patch.Version != nil && *patch.Version != cur.Version {
		return cur, repo.ErrorConflict
	}
	return s.save(ctx, cur, cur.Merge(patch))
}

// MoveStatus is a column move on the board or today screen.
func (s *TaskService) MoveStatus(ctx context.Context, id int64, status model.Status) (model.Task, error) {
	return s.Update(ctx, id, model.TaskPatch{Status: &status})
}

func (s *TaskService) ToggleDone(ctx context.Context, id int64) (model.Task, error) {
	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return cur, err
	}
	return s.save(ctx, cur, lifecycle.Toggle(cur))
}

// Postpone pushes the task to tomorrow, to next week or off the calendar.
func (s *TaskService) Postpone(ctx context.Context, id int64, target string) (model.Task, error) {
	var date *model.Date
	switch target {
	case model.PostponeTomorrow:
		d := s.cal.Tomorrow()
		date = &d
	case model.PostponeNextWeek:
		d := s.cal.NextWeek()
		date = &d
	case model.PostponeNone:
	default:
		return model.Task{}, fmt.Errorf("%w: unknown postpone target %q", ErrValidation, target)
	}

	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return cur, err
	}
	return s.save(ctx, cur, lifecycle.Postpone(cur, date))
}

// Schedule moves the task onto date, or into the backlog when date is nil.
func (s *TaskService) Schedule(ctx context.Context, id int64, date *model.Date) (model.Task, error) {
	if date != nil && !date.Valid() {
		return model.Task{}, fmt.Errorf("%w: invalid date %q", ErrValidation, *date)
	}

	cur, err := s.repo.Get(ctx, id)
	if err != nil {
		return cur, err
	}
	next, changed := lifecycle.Reschedule(cur, date, s.cal.Today())
	if !changed {
		return cur, nil
	}
	return s.save(ctx, cur, next)
}

func (s *TaskService) Reorder(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: task %d listed twice", ErrValidation, id)
		}
		seen[id] = struct{}{}
	}
	return s.repo.Reorder(ctx, ids)
}

func (s *TaskService) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

func (s *TaskService) GetStats(ctx context.Context) (repo.Stats, error) {
	return s.repo.GetStats(ctx, s.cal.Today())
}

// Today builds the daily screen for date (today when nil).
func (s *TaskService) Today(ctx context.Context, date *model.Date) (view.Today, error) {
	day := s.cal.Today()
	if date != nil {
		if !date.Valid() {
			return view.Today{}, fmt.Errorf("%w: invalid date %q", ErrValidation, *date)
		}
		day = *date
	}
	tasks, err := s.Snapshot(ctx)
	if err != nil {
		return view.Today{}, err
	}
	return view.BuildToday(tasks, day), nil
}

func (s *TaskService) Week(ctx context.Context, offset int) (view.Week, error) {
	tasks, err := s.Snapshot(ctx)
	if err != nil {
		return view.Week{}, err
	}
	return view.BuildWeek(tasks, s.cal.WeekDays(offset), offset, s.cal.Today(), s.cal.Location()), nil
}

func (s *TaskService) Board(ctx context.Context) (view.Board, error) {
	tasks, err := s.Snapshot(ctx)
	if err != nil {
		return view.Board{}, err
	}
	return view.BuildBoard(tasks), nil
}

func (s *TaskService) save(ctx context.Context, cur, next model.Task) (model.Task, error) {
	next = lifecycle.Apply(cur, next, s.cal.Now(), s.cal.Today())
	next.Title = strings.TrimSpace(next.Title)
	next.Tags = dedupe(next.Tags)
	if err := s.validate(next); err != nil {
		return cur, err
	}
	return s.repo.Update(ctx, next)
}

func (s *TaskService) draft(in model.NewTask) model.Task {
	t := model.Task{
		Title:    strings.TrimSpace(in.Title),
		Status:   in.Status,
		Priority: in.Priority,
		DueDate:  in.DueDate,
		Tags:     dedupe(in.Tags),
		Notes:    in.Notes,
		Links:    in.Links,
	}
	if t.Status == "" {
		t.Status = model.StatusToday
	}
	if in.ScheduledDate.Set {
		t.ScheduledDate = in.ScheduledDate.Value
	} else {
		today := s.cal.Today()
		t.ScheduledDate = &today
	}
	if t.Links == nil {
		t.Links = []string{}
	}
	return lifecycle.Apply(model.Task{}, t, s.cal.Now(), s.cal.Today())
}

func (s *TaskService) validate(t model.Task) error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrValidation, t.Status)
	}
	if t.Priority != nil && !t.Priority.Valid() {
		return fmt.Errorf("%w: unknown priority %q", ErrValidation, *t.Priority)
	}
	for name, d := range map[string]*model.Date{
		"scheduled_date": t.ScheduledDate,
		"due_date":       t.DueDate,
		"start_date":     t.StartDate,
	} {
		if d != nil && !d.Valid() {
			return fmt.Errorf("%w: invalid %s %q", ErrValidation, name, *d)
		}
	}
	return nil
}

// dedupe drops repeated ids keeping the first occurrence.
func dedupe(ids []int64) []int64 {
	out := make([]int64, 0, len(ids))
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
