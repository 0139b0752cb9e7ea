package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Channel is the Postgres notification channel the schema triggers write to.
const Channel = "board_changes"

// Change is the payload of one notification.
type Change struct {
	Collection string `json:"collection"`
	Op         string `json:"op"`
	ID         int64  `json:"id"`
}

type Notifier interface {
	Notify(collection string)
	NotifyAll()
}

// Relay forwards Postgres notifications to a Notifier over a dedicated
// connection, reconnecting with exponential backoff.
type Relay struct {
	pool     *pgxpool.Pool
	notifier Notifier
	logger   *zap.Logger
}

func NewRelay(pool *pgxpool.Pool, notifier Notifier, logger *zap.Logger) *Relay {
	return &Relay{pool: pool, notifier: notifier, logger: logger}
}

// Run blocks until ctx is done.
func (r *Relay) Run(ctx context.Context) {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = 0

	for {
		err := r.listen(ctx, b)
		if ctx.Err() != nil {
			return
		}

		wait := b.NextBackOff()
		r.logger.Warn("change stream lost, reconnecting", zap.Error(err), zap.Duration("in", wait))
		select {
		case <-ctx.Done():
			return
		case <-time.After(wait):
		}
	}
}

func (r *Relay) listen(ctx context.Context, b backoff.BackOff) error {
	pooled, err := r.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire: %w", err)
	}
	// соединение после LISTEN не возвращаем в пул
	conn := pooled.Hijack()
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	b.Reset()
	r.logger.Info("listening for changes", zap.String("channel", Channel))

	// anything may have changed while we were disconnected
	r.notifier.NotifyAll()

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return fmt.Errorf("wait: %w", err)
		}
		change, err := ParseChange(n.Payload)
		if err != nil {
			r.logger.Warn("bad change payload", zap.String("payload", n.Payload), zap.Error(err))
			continue
		}
		r.notifier.Notify(change.Collection)
	}
}

func ParseChange(payload string) (Change, error) {
	var c Change
	if err := json.Unmarshal([]byte(payload), &c); err != nil {
		return c, err
	}
	if c.Collection == "" {
		return c, fmt.Errorf("missing collection")
	}
	return c, nil
}
