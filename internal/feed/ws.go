package feed

import (
	"context"
	"net/http"

	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	"github.com/BuzzLyutic/todo-board/pkg/respond"
)

// Handler streams collection snapshots over a websocket:
//
//	GET /api/ws?collection=tasks
//
// The client only listens; anything it sends is discarded.
func Handler(hub *Hub, logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.Header().Set("Allow", http.MethodGet)
			respond.Error(w, r, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		collection := r.URL.Query().Get("collection")
		if !hub.Has(collection) {
			respond.Error(w, r, http.StatusBadRequest, "unknown collection")
			return
		}

		websocket.Handler(func(conn *websocket.Conn) {
			serve(r.Context(), conn, hub, collection, logger)
		}).ServeHTTP(w, r)
	})
}

func serve(ctx context.Context, conn *websocket.Conn, hub *Hub, collection string, logger *zap.Logger) {
	defer conn.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub, err := hub.Subscribe(ctx, collection)
	if err != nil {
		logger.Warn("subscribe failed", zap.String("collection", collection), zap.Error(err))
		_ = websocket.JSON.Send(conn, Frame{Type: "error", Collection: collection, Error: "snapshot unavailable"})
		return
	}
	defer sub.Close()

	log := logger.With(zap.String("subscription", sub.ID), zap.String("collection", collection))
	log.Debug("subscriber connected")

	// читаем только чтобы заметить закрытие соединения
	go func() {
		defer cancel()
		var discard []byte
		for {
			if err := websocket.Message.Receive(conn, &discard); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug("subscriber disconnected")
			return
		case frame := <-sub.C:
			if err := websocket.JSON.Send(conn, frame); err != nil {
				log.Debug("send failed", zap.Error(err))
				return
			}
		}
	}
}
