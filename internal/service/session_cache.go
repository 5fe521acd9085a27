package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/set-night/tokobot/internal/llm"
)

// ChatSession is one conversation's dialogue, bound to the handle it was
// created against. Turns on a session are serialized by its mutex.
type ChatSession struct {
	ConversationID string
	Handle         *ModelHandle
	CreatedAt      time.Time

	mu       sync.Mutex
	dialogue llm.Dialogue
}

// Send forwards one user message to the bound dialogue.
func (s *ChatSession) Send(ctx context.Context, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dialogue.Send(ctx, text)
}

// SessionCache maps conversation ids to sessions. Entries are evicted when
// the cache is full (least recently used first), ttl after creation,
// or all at once by Clear.
type SessionCache struct {
	models *ModelCache

	mu       sync.Mutex
	sessions *expirable.LRU[string, *ChatSession]
}

// NewSessionCache creates a cache holding at most size sessions. A size or
// ttl of zero disables that bound.
func NewSessionCache(models *ModelCache, size int, ttl time.Duration) *SessionCache {
	return &SessionCache{
		models:   models,
		sessions: expirable.NewLRU[string, *ChatSession](size, nil, ttl),
	}
}

// GetOrCreate returns the session for conversationID, creating it against the
// current model handle if there is none. Check and insert happen under one
// lock so concurrent callers for the same id share a single session.
func (c *SessionCache) GetOrCreate(ctx context.Context, conversationID string) (*ChatSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if s, ok := c.sessions.Get(conversationID); ok {
		return s, nil
	}

	handle, err := c.models.Current()
	if err != nil {
		return nil, err
	}
	dialogue, err := handle.Handle.StartDialogue(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("start dialogue: %w", err)
	}

	s := &ChatSession{
		ConversationID: conversationID,
		Handle:         handle,
		CreatedAt:      time.Now(),
		dialogue:       dialogue,
	}
	c.sessions.Add(conversationID, s)
	return s, nil
}

// Clear drops every session. Only the invalidation coordinator calls it.
func (c *SessionCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions.Purge()
}

// Forget drops one conversation's session, if any.
func (c *SessionCache) Forget(conversationID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions.Remove(conversationID)
}

func (c *SessionCache) Len() int {
	return c.sessions.Len()
}
