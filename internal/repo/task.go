package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/todo-board/internal/model"
)

var (
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("conflict")
)

// OrderStep is the gap between neighbouring sort keys.
const OrderStep = 1000

const taskColumns = `id, title, status, priority, scheduled_date, due_date, start_date, done_at,
	tag_ids, notes, links, sort_order, postpone_count, version, created_at, updated_at`

type Stats struct {
	ByStatus    map[string]int `json:"by_status"`
	TotalTasks  int            `json:"total_tasks"`
	Overdue     int            `json:"overdue"`
	Postponed   int            `json:"postponed"`
	AvgLeadDays float64        `json:"avg_lead_days"`
}

type TaskRepo struct { // Репозиторий для работы непосредственно с БД
	pool *pgxpool.Pool
	tz   string
}

// NewTaskRepo returns a repo whose date arithmetic runs in the IANA zone tz
// (UTC when empty).
func NewTaskRepo(pool *pgxpool.Pool, tz string) *TaskRepo { // Конструктор
	if tz == "" {
		tz = "UTC"
	}
	return &TaskRepo{
		pool: pool,
		tz:   tz,
	}
}

func (r *TaskRepo) Create(ctx context.Context, t model.Task) (model.Task, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO tasks (title, status, priority, scheduled_date, due_date, start_date, done_at,
			tag_ids, notes, links, sort_order, postpone_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			COALESCE((SELECT MAX(sort_order) FROM tasks), 0) + $11, $12)
		RETURNING `+taskColumns,
		t.Title, string(t.Status), text(t.Priority), text(t.ScheduledDate), text(t.DueDate), text(t.StartDate),
		t.DoneAt, ids(t.Tags), t.Notes, strs(t.Links), OrderStep, t.PostponeCount,
	)
	created, err := scanTask(row)
	return created, mapError(err)
}

func (r *TaskRepo) Get(ctx context.Context, id int64) (model.Task, error) {
	t, err := scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrorNotFound
	}
	return t, err
}

func (r *TaskRepo) List(ctx context.Context, filter model.TaskFilter, limit int) ([]model.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR scheduled_date = $2)
		  AND ($3::bigint IS NULL OR $3 = ANY(tag_ids))
		ORDER BY sort_order, id
		LIMIT NULLIF($4::int, 0)
	`

	rows, err := r.pool.Query(ctx, query, text(filter.Status), text(filter.ScheduledDate), filter.TagID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tasks := make([]model.Task, 0, max(limit, 0))
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// Update rewrites every editable column when the stored version still
// matches t.Version. A mismatch (or a vanished row) is ErrorConflict.
func (r *TaskRepo) Update(ctx context.Context, t model.Task) (model.Task, error) {
	updated, err := scanTask(r.pool.QueryRow(ctx, `
		UPDATE tasks
		SET title = $2, status = $3, priority = $4, scheduled_date = $5, due_date = $6,
			start_date = $7, done_at = $8, tag_ids = $9, notes = $10, links = $11,
			postpone_count = $12, version = version + 1, updated_at = now()
		WHERE id = $1 AND version = $13
		RETURNING `+taskColumns,
		t.ID, t.Title, string(t.Status), text(t.Priority), text(t.ScheduledDate), text(t.DueDate),
		text(t.StartDate), t.DoneAt, ids(t.Tags), t.Notes, strs(t.Links), t.PostponeCount, t.Version,
	))

	if errors.Is(err, pgx.ErrNoRows) {
		return t, ErrorConflict
	}
	return updated, mapError(err)
}

func (r *TaskRepo) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return nil
}

// Reorder gives ids[i] the sort key i*OrderStep in one transaction. If any
// id is missing nothing is changed.
func (r *TaskRepo) Reorder(ctx context.Context, taskIDs []int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
		UPDATE tasks
		SET sort_order = (o.idx - 1) * $2
		FROM unnest($1::bigint[]) WITH ORDINALITY AS o(id, idx)
		WHERE tasks.id = o.id
	`, taskIDs, OrderStep)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() != int64(len(taskIDs)) {
		return ErrorNotFound
	}
	return tx.Commit(ctx)
}

func (r *TaskRepo) SaveIdempotencyKey(ctx context.Context, key string, resourceID int64) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO idempotency_keys (key, resource_id) VALUES ($1, $2)
		ON CONFLICT (key) DO NOTHING
	`, key, resourceID)
	return err
}

func (r *TaskRepo) GetIdempotencyKey(ctx context.Context, key string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		SELECT resource_id from idempotency_keys WHERE key = $1
	`, key).Scan(&id)

	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrorNotFound
	}
	return id, err
}

func (r *TaskRepo) GetStats(ctx context.Context, today model.Date) (Stats, error) {
	stats := Stats{ByStatus: make(map[string]int)}

	rows, err := r.pool.Query(ctx, `SELECT status, COUNT(*) FROM tasks GROUP BY status`)
	if err != nil {
		return stats, err
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			rows.Close()
			return stats, err
		}
		stats.ByStatus[status] = count
		stats.TotalTasks += count
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return stats, err
	}

	err = r.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE due_date IS NOT NULL AND due_date < $1 AND status <> 'done'),
			COALESCE(SUM(postpone_count), 0),
			COALESCE(AVG(EXTRACT(EPOCH FROM done_at - ((start_date::date)::timestamp AT TIME ZONE $2::text)) / 86400)
				FILTER (WHERE status = 'done' AND done_at IS NOT NULL AND start_date IS NOT NULL), 0)::float8
		FROM tasks
	`, string(today), r.tz).Scan(&stats.Overdue, &stats.Postponed, &stats.AvgLeadDays)
	return stats, err
}

func mapError(err error) error { // уникальность -> конфликт
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			return ErrorConflict
		}
	}
	return err
}

func scanTask(row pgx.Row) (model.Task, error) {
	var t model.Task
	var status string
	var priority, scheduled, due, start *string

	err := row.Scan(
		&t.ID, &t.Title, &status, &priority, &scheduled, &due, &start, &t.DoneAt,
		&t.Tags, &t.Notes, &t.Links, &t.Order, &t.PostponeCount, &t.Version, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return t, err
	}

	t.Status = model.Status(status)
	t.Priority = typed[model.Priority](priority)
	t.ScheduledDate = typed[model.Date](scheduled)
	t.DueDate = typed[model.Date](due)
	t.StartDate = typed[model.Date](start)
	if t.Tags == nil {
		t.Tags = []int64{}
	}
	if t.Links == nil {
		t.Links = []string{}
	}
	return t, nil
}

// text converts an optional string-kinded value into a nullable query arg.
func text[T ~string](v *T) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}

func typed[T ~string](s *string) *T {
	if s == nil {
		return nil
	}
	v := T(*s)
	return &v
}

// pgx кодирует nil-срез как NULL, а колонки NOT NULL
func ids(v []int64) []int64 {
	if v == nil {
		return []int64{}
	}
	return v
}

func strs(v []string) []string {
	if v == nil {
		return []string{}
	}
	return v
}
