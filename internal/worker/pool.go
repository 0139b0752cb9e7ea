// Package worker runs background maintenance over the tasks table.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const DefaultBatch = 500

// errIdle means there was nothing left to backfill.
var errIdle = errors.New("nothing to backfill")

// Pool backfills done tasks that predate start dates and completion
// timestamps: start_date becomes the scheduled date and done_at the last
// millisecond of that day in the configured time zone. Workers claim rows
// with SKIP LOCKED, so any number of them (or instances) can run at once.
type Pool struct {
	pool     *pgxpool.Pool
	logger   *zap.Logger
	count    int
	interval time.Duration
	batch    int
	tz       string
	wg       sync.WaitGroup
	stop     chan struct{}
	once     sync.Once
}

func NewPool(pool *pgxpool.Pool, logger *zap.Logger, count int, interval time.Duration, batch int, tz string) *Pool {
	if batch <= 0 {
		batch = DefaultBatch
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Pool{
		pool:     pool,
		logger:   logger,
		count:    count,
		interval: interval,
		batch:    batch,
		tz:       tz,
		stop:     make(chan struct{}),
	}
}

func (p *Pool) Start(ctx context.Context) {
	p.logger.Info("Starting worker pool", zap.Int("workers", p.count), zap.Duration("interval", p.interval))

	for i := range p.count {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
}

func (p *Pool) Stop() {
	p.once.Do(func() {
		p.logger.Info("Stopping worker pool...")
		close(p.stop)
		p.wg.Wait()
		p.logger.Info("Worker pool stopped")
	})
}

func (p *Pool) worker(ctx context.Context, id int) {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.processNext(ctx, id); err != nil && !errors.Is(err, errIdle) && ctx.Err() == nil {
				p.logger.Error("worker error", zap.Int("worker", id), zap.Error(err))
			}
		}
	}
}

func (p *Pool) processNext(ctx context.Context, workerID int) error {
	n, err := p.backfillBatch(ctx)
	if err != nil {
		return err
	}
	if n == 0 {
		return errIdle
	}

	p.logger.Info("Backfilled done tasks",
		zap.Int("worker", workerID),
		zap.Int64("rows", n),
	)
	return nil
}

// backfillBatch claims and fixes up to p.batch rows.
func (p *Pool) backfillBatch(ctx context.Context) (int64, error) {
	tag, err := p.pool.Exec(ctx, `
		WITH claimed AS (
			SELECT id
			FROM tasks
			WHERE status = 'done'
			  AND scheduled_date IS NOT NULL
			  AND (start_date IS NULL OR done_at IS NULL)
			ORDER BY id
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE tasks
		SET start_date = COALESCE(tasks.start_date, tasks.scheduled_date),
		    done_at    = COALESCE(tasks.done_at,
		                 ((tasks.scheduled_date::date + 1)::timestamp AT TIME ZONE $2::text) - interval '1 millisecond'),
		    version    = tasks.version + 1,
		    updated_at = now()
		FROM claimed
		WHERE tasks.id = claimed.id
	`, p.batch, p.tz)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// Pending reports how many done tasks still need a backfill.
func (p *Pool) Pending(ctx context.Context) (int, error) {
	var n int
	err := p.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM tasks
		WHERE status = 'done'
		  AND scheduled_date IS NOT NULL
		  AND (start_date IS NULL OR done_at IS NULL)
	`).Scan(&n)
	return n, err
}
