package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/set-night/tokobot/internal/domain"
	"github.com/set-night/tokobot/internal/llm"
)

// ModelHandle is a configured model bound to one rendered context.
type ModelHandle struct {
	Version uint64
	Handle  llm.Handle
	Context domain.BuiltContext
	BuiltAt time.Time
}

// ModelCache holds the single active ModelHandle.
type ModelCache struct {
	provider llm.Provider

	mu      sync.RWMutex
	current *ModelHandle
	version uint64
}

func NewModelCache(provider llm.Provider) *ModelCache {
	return &ModelCache{provider: provider}
}

// Rebuild configures a handle for built and swaps it in. On error the
// previous handle stays active.
func (c *ModelCache) Rebuild(ctx context.Context, built domain.BuiltContext) (*ModelHandle, error) {
	handle, err := c.provider.Configure(ctx, built.Instruction)
	if err != nil {
		return nil, fmt.Errorf("configure model: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.version++
	c.current = &ModelHandle{
		Version: c.version,
		Handle:  handle,
		Context: built,
		BuiltAt: time.Now(),
	}
	return c.current, nil
}

// Current returns the active handle or domain.ErrNotReady before the first Rebuild.
func (c *ModelCache) Current() (*ModelHandle, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.current == nil {
		return nil, domain.ErrNotReady
	}
	return c.current, nil
}

// Version is the version of the active handle, 0 before the first Rebuild.
func (c *ModelCache) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}
