package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/net/websocket"
)

// Frame is one message of the /api/ws feed. Data holds the raw snapshot.
type Frame struct {
	Type       string          `json:"type"`
	Collection string          `json:"collection"`
	Data       json.RawMessage `json:"data"`
	Error      string          `json:"error"`
}

// ErrStop can be returned by a Watch handler to end the watch cleanly.
var ErrStop = errors.New("stop watching")

// Watch streams snapshots of collection to handle until ctx is done or
// handle returns an error. Dropped connections are redialed with
// exponential backoff.
func (c *Client) Watch(ctx context.Context, collection string, handle func(Frame) error) error {
	exp := backoff.NewExponentialBackOff()
	exp.MaxElapsedTime = 0
	b := backoff.WithContext(exp, ctx)

	for {
		err := c.watchOnce(ctx, collection, func(f Frame) error {
			b.Reset()
			return handle(f)
		})
		switch {
		case errors.Is(err, ErrStop):
			return nil
		case ctx.Err() != nil:
			return nil
		case errors.As(err, new(*handlerError)):
			return errors.Unwrap(err)
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(wait):
		}
	}
}

type handlerError struct{ err error }

func (e *handlerError) Error() string { return e.err.Error() }
func (e *handlerError) Unwrap() error { return e.err }

func (c *Client) watchOnce(ctx context.Context, collection string, handle func(Frame) error) error {
	wsURL, origin, err := c.wsURL(collection)
	if err != nil {
		return err
	}
	conn, err := websocket.Dial(wsURL, "", origin)
	if err != nil {
		return fmt.Errorf("dial feed: %w", err)
	}
	defer conn.Close()

	// websocket.Conn не знает про контекст
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var f Frame
		if err := websocket.JSON.Receive(conn, &f); err != nil {
			return fmt.Errorf("receive: %w", err)
		}
		if err := handle(f); err != nil {
			if errors.Is(err, ErrStop) {
				return err
			}
			return &handlerError{err: err}
		}
	}
}

func (c *Client) wsURL(collection string) (string, string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", "", err
	}
	origin := u.Scheme + "://" + u.Host
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	default:
		return "", "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/ws"
	u.RawQuery = url.Values{"collection": {collection}}.Encode()
	return u.String(), origin, nil
}
