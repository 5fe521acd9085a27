package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/set-night/tokobot/internal/domain"
)

// CatalogReader is the read side of the catalog store.
type CatalogReader interface {
	ListItems(ctx context.Context) ([]domain.CatalogItem, error)
}

// RebuildEvent describes one invalidation attempt.
type RebuildEvent struct {
	Reason   string
	Version  uint64
	Items    int
	Duration time.Duration
	Err      error
}

// RebuildListener is told about every invalidation, successful or not.
type RebuildListener func(RebuildEvent)

// Coordinator owns invalidation: it rebuilds the model handle from the
// catalog and clears the session cache, and it gates session routing so a
// message is never routed halfway through a rebuild.
type Coordinator struct {
	catalog  CatalogReader
	builder  *ContextBuilder
	models   *ModelCache
	sessions *SessionCache
	listener RebuildListener

	mu sync.RWMutex
}

func NewCoordinator(catalog CatalogReader, builder *ContextBuilder, models *ModelCache, sessions *SessionCache) *Coordinator {
	return &Coordinator{
		catalog:  catalog,
		builder:  builder,
		models:   models,
		sessions: sessions,
	}
}

// OnRebuild registers the listener. Call before serving traffic.
func (c *Coordinator) OnRebuild(l RebuildListener) {
	c.listener = l
}

// Invalidate re-reads the catalog, rebuilds the model handle and clears all
// sessions. If any step before the clear fails the previous handle and
// sessions are kept and a *domain.RebuildError is returned.
func (c *Coordinator) Invalidate(ctx context.Context, reason string) error {
	ev := c.invalidate(ctx, reason)

	if ev.Err != nil {
		slog.Error("context rebuild failed", "reason", reason, "error", ev.Err)
	} else {
		slog.Info("context rebuilt",
			"reason", reason,
			"version", ev.Version,
			"items", ev.Items,
			"duration", ev.Duration,
		)
	}
	if c.listener != nil {
		c.listener(ev)
	}
	return ev.Err
}

func (c *Coordinator) invalidate(ctx context.Context, reason string) RebuildEvent {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := time.Now()
	ev := RebuildEvent{Reason: reason}
	ev.Err = c.rebuild(ctx, &ev)
	ev.Duration = time.Since(start)
	return ev
}

func (c *Coordinator) rebuild(ctx context.Context, ev *RebuildEvent) error {
	items, err := c.catalog.ListItems(ctx)
	if err != nil {
		return &domain.RebuildError{Step: "read catalog", Err: err}
	}
	ev.Items = len(items)

	built, err := c.builder.Build(items)
	if err != nil {
		return &domain.RebuildError{Step: "build context", Err: err}
	}

	handle, err := c.models.Rebuild(ctx, built)
	if err != nil {
		return &domain.RebuildError{Step: "configure model", Err: err}
	}
	ev.Version = handle.Version

	c.sessions.Clear()
	return nil
}

// Resolve returns the conversation's session, waiting for any rebuild in
// progress to finish first.
func (c *Coordinator) Resolve(ctx context.Context, conversationID string) (*ChatSession, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessions.GetOrCreate(ctx, conversationID)
}

// Forget drops a single conversation's session.
func (c *Coordinator) Forget(conversationID string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessions.Forget(conversationID)
}

// Version is the version of the active model handle.
func (c *Coordinator) Version() uint64 {
	return c.models.Version()
}
