package repo

import (
	"context"

	"github.com/BuzzLyutic/todo-board/internal/model"
)

// TaskRepository определяет интерфейс для работы с задачами
type TaskRepository interface {
	Create(ctx context.Context, t model.Task) (model.Task, error)
	Get(ctx context.Context, id int64) (model.Task, error)
	// List returns tasks in sort order; limit 0 means no limit.
	List(ctx context.Context, filter model.TaskFilter, limit int) ([]model.Task, error)
	Update(ctx context.Context, t model.Task) (model.Task, error)
	Delete(ctx context.Context, id int64) error
	Reorder(ctx context.Context, ids []int64) error
	SaveIdempotencyKey(ctx context.Context, key string, resourceID int64) error
	GetIdempotencyKey(ctx context.Context, key string) (int64, error)
	GetStats(ctx context.Context, today model.Date) (Stats, error)
}

// TagRepository определяет интерфейс для работы с тегами
type TagRepository interface {
	Create(ctx context.Context, t model.Tag) (model.Tag, error)
	Get(ctx context.Context, id int64) (model.Tag, error)
	GetByName(ctx context.Context, name string) (model.Tag, error)
	List(ctx context.Context) ([]model.Tag, error)
	Update(ctx context.Context, t model.Tag) (model.Tag, error)
	Delete(ctx context.Context, id int64) error
}
