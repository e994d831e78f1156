// Package watcher subscribes a session to the device's position stream and
// connectivity changes, delivering them to a handler in arrival order.
package watcher

import (
	"context"
	"errors"
	"sync"

	"github.com/alexivanou/roamai/internal/model"
	"go.uber.org/zap"
)

// ErrClosed is returned after the watcher was closed
var ErrClosed = errors.New("watcher: closed")

// Geolocation error codes reported by devices
const (
	CodePermissionDenied    = 1
	CodePositionUnavailable = 2
	CodeTimeout             = 3
)

// Handler receives sensor events. Calls are serialized.
type Handler interface {
	OnPosition(at model.Coordinate)
	OnPositionError(code int, message string)
	OnOnline()
	OnOffline()
}

// ShouldResolve reports whether a new position moved far enough from the
// last resolved one to warrant another reverse-geocode
func ShouldResolve(last *model.Coordinate, next model.Coordinate, threshold float64) bool {
	return last == nil || next.LatDelta(*last) > threshold
}

type event struct {
	apply func(h Handler)
	ack   chan struct{}
}

// Watcher dispatches device sensor input to a Handler
type Watcher struct {
	handler Handler
	logger  *zap.Logger
	events  chan event
	quit    chan struct{}
	done    chan struct{}

	mu     sync.Mutex
	online bool
	closed bool

	closeOnce sync.Once
}

// New starts a watcher. online is the connectivity at mount.
func New(handler Handler, online bool, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &Watcher{
		handler: handler,
		logger:  logger,
		online:  online,
		events:  make(chan event),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Watcher) run() {
	defer close(w.done)
	for {
		select {
		case <-w.quit:
			return
		case ev := <-w.events:
			ev.apply(w.handler)
			close(ev.ack)
		}
	}
}

// Online reports the last known connectivity
func (w *Watcher) Online() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.online
}

// Position delivers a position update
func (w *Watcher) Position(ctx context.Context, at model.Coordinate) error {
	return w.dispatch(ctx, func(h Handler) { h.OnPosition(at) })
}

// PositionError delivers a geolocation failure
func (w *Watcher) PositionError(ctx context.Context, code int, message string) error {
	w.logger.Info("Position error", zap.Int("code", code), zap.String("message", message))
	return w.dispatch(ctx, func(h Handler) { h.OnPositionError(code, message) })
}

// Connectivity records a network state change. Repeated reports of the same
// state are ignored.
func (w *Watcher) Connectivity(ctx context.Context, online bool) error {
	return w.dispatch(ctx, func(h Handler) {
		w.mu.Lock()
		changed := w.online != online
		w.online = online
		w.mu.Unlock()
		if !changed {
			return
		}
		if online {
			h.OnOnline()
		} else {
			h.OnOffline()
		}
	})
}

func (w *Watcher) dispatch(ctx context.Context, apply func(Handler)) error {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return ErrClosed
	}

	ev := event{apply: apply, ack: make(chan struct{})}
	select {
	case w.events <- ev:
	case <-w.quit:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}

	<-ev.ack
	return nil
}

// Close releases the subscriptions. No handler call starts after Close returns.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		w.closed = true
		w.mu.Unlock()
		close(w.quit)
	})
	<-w.done
}
