// Package feed keeps subscribers in sync with the tasks and tags
// collections. Every change reloads the whole collection and pushes it as a
// snapshot, so a subscriber only ever needs the latest frame.
package feed

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	CollectionTasks = "tasks"
	CollectionTags  = "tags"
)

// Source loads the current contents of one collection.
type Source func(ctx context.Context) (any, error)

type Frame struct {
	Type       string `json:"type"`
	Collection string `json:"collection"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
}

type Subscription struct {
	ID         string
	Collection string
	C          <-chan Frame

	ch   chan Frame
	hub  *Hub
	once sync.Once
}

// Close unregisters the subscription. Safe to call more than once.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

type Hub struct {
	sources map[string]Source
	logger  *zap.Logger

	mu      sync.Mutex
	subs    map[string]map[string]*Subscription
	signals map[string]chan struct{}
}

func NewHub(sources map[string]Source, logger *zap.Logger) *Hub {
	h := &Hub{
		sources: sources,
		logger:  logger,
		subs:    make(map[string]map[string]*Subscription),
		signals: make(map[string]chan struct{}),
	}
	for name := range sources {
		h.subs[name] = make(map[string]*Subscription)
		h.signals[name] = make(chan struct{}, 1)
	}
	return h
}

func (h *Hub) Has(collection string) bool {
	_, ok := h.sources[collection]
	return ok
}

// Notify marks collection as changed. Bursts collapse into one reload.
func (h *Hub) Notify(collection string) {
	sig, ok := h.signals[collection]
	if !ok {
		return
	}
	select {
	case sig <- struct{}{}:
	default:
	}
}

// NotifyAll is used after the change stream reconnects and events may have
// been missed.
func (h *Hub) NotifyAll() {
	for name := range h.sources {
		h.Notify(name)
	}
}

// Run reloads and broadcasts changed collections until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for name, sig := range h.signals {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-sig:
					h.broadcast(ctx, name)
				}
			}
		}()
	}
	wg.Wait()
}

// Subscribe registers for collection and queues its current snapshot.
func (h *Hub) Subscribe(ctx context.Context, collection string) (*Subscription, error) {
	if !h.Has(collection) {
		return nil, fmt.Errorf("unknown collection %q", collection)
	}

	ch := make(chan Frame, 1)
	sub := &Subscription{ID: uuid.NewString(), Collection: collection, C: ch, ch: ch, hub: h}

	h.mu.Lock()
	h.subs[collection][sub.ID] = sub
	h.mu.Unlock()

	frame := h.load(ctx, collection)
	if frame.Type == "error" {
		sub.Close()
		return nil, fmt.Errorf("load %s: %s", collection, frame.Error)
	}

	// a broadcast that raced with the load may already have queued a frame
	h.mu.Lock()
	if len(sub.ch) == 0 {
		deliver(sub.ch, frame)
	}
	h.mu.Unlock()
	return sub, nil
}

// Subscribers reports how many subscriptions a collection has.
func (h *Hub) Subscribers(collection string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[collection])
}

func (h *Hub) broadcast(ctx context.Context, collection string) {
	if h.Subscribers(collection) == 0 {
		return
	}
	frame := h.load(ctx, collection)

	h.mu.Lock()
	defer h.mu.Unlock()
	for _, sub := range h.subs[collection] {
		deliver(sub.ch, frame)
	}
}

func (h *Hub) load(ctx context.Context, collection string) Frame {
	data, err := h.sources[collection](ctx)
	if err != nil {
		h.logger.Error("snapshot load failed", zap.String("collection", collection), zap.Error(err))
		return Frame{Type: "error", Collection: collection, Error: "snapshot unavailable"}
	}
	return Frame{Type: "snapshot", Collection: collection, Data: data}
}

func (h *Hub) remove(sub *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.subs[sub.Collection], sub.ID)
}

// deliver replaces an unread frame with the newer one. Callers hold h.mu.
func deliver(ch chan Frame, frame Frame) {
	for {
		select {
		case ch <- frame:
			return
		default:
		}
		select {
		case <-ch:
		default:
		}
	}
}
