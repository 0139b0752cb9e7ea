package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/BuzzLyutic/todo-board/internal/model"
)

const tagColumns = `id, name, color, created_at`

type TagRepo struct {
	pool *pgxpool.Pool
}

func NewTagRepo(pool *pgxpool.Pool) *TagRepo {
	return &TagRepo{pool: pool}
}

func (r *TagRepo) Create(ctx context.Context, t model.Tag) (model.Tag, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO tags (name, color) VALUES ($1, $2)
		RETURNING `+tagColumns,
		t.Name, t.Color,
	).Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt)
	return t, mapTagError(err)
}

func (r *TagRepo) Get(ctx context.Context, id int64) (model.Tag, error) {
	var t model.Tag
	err := r.pool.QueryRow(ctx, `SELECT `+tagColumns+` FROM tags WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt)
	return t, mapTagError(err)
}

func (r *TagRepo) GetByName(ctx context.Context, name string) (model.Tag, error) {
	var t model.Tag
	err := r.pool.QueryRow(ctx, `SELECT `+tagColumns+` FROM tags WHERE name = $1`, name).
		Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt)
	return t, mapTagError(err)
}

func (r *TagRepo) List(ctx context.Context) ([]model.Tag, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+tagColumns+` FROM tags ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tags := []model.Tag{}
	for rows.Next() {
		var t model.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt); err != nil {
			return nil, err
		}
		tags = append(tags, t)
	}
	return tags, rows.Err()
}

func (r *TagRepo) Update(ctx context.Context, t model.Tag) (model.Tag, error) {
	err := r.pool.QueryRow(ctx, `
		UPDATE tags SET name = $2, color = $3
		WHERE id = $1
		RETURNING `+tagColumns,
		t.ID, t.Name, t.Color,
	).Scan(&t.ID, &t.Name, &t.Color, &t.CreatedAt)
	return t, mapTagError(err)
}

// Delete removes the tag and strips its id from every task that carries it.
func (r *TagRepo) Delete(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		UPDATE tasks SET tag_ids = array_remove(tag_ids, $1), version = version + 1, updated_at = now()
		WHERE $1 = ANY(tag_ids)
	`, id); err != nil {
		return err
	}

	cmd, err := tx.Exec(ctx, "DELETE FROM tags WHERE id = $1", id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrorNotFound
	}
	return tx.Commit(ctx)
}

func mapTagError(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrorNotFound
	}
	return mapError(err)
}
