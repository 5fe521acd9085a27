package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/set-night/tokobot/internal/domain"
	"github.com/set-night/tokobot/internal/llm"
)

var testShop = domain.ShopProfile{
	Name:         "Toko Uji",
	Owner:        "Pak Uji",
	BotName:      "UjiBot",
	Location:     "Jl. Uji 1",
	Hours:        "07.00 - 21.00",
	Payment:      "Tunai",
	Delivery:     "Tidak ada",
	Returns:      "Tidak ada",
	AdminContact: "0800",
}

type fakeProvider struct {
	mu         sync.Mutex
	configured []string
	err        error
	configure  func(instruction string)
	reply      func(ctx context.Context, instruction, text string) (string, error)
	dialogues  atomic.Int32
}

func (p *fakeProvider) Name() string { return "fake" }

func (p *fakeProvider) Configure(_ context.Context, instruction string) (llm.Handle, error) {
	p.mu.Lock()
	err, hook := p.err, p.configure
	p.mu.Unlock()
	if hook != nil {
		hook(instruction)
	}
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	p.configured = append(p.configured, instruction)
	p.mu.Unlock()
	return &fakeHandle{p: p, instruction: instruction}, nil
}

func (p *fakeProvider) setErr(err error) {
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
}

type fakeHandle struct {
	p           *fakeProvider
	instruction string
}

func (h *fakeHandle) StartDialogue(context.Context, []llm.Turn) (llm.Dialogue, error) {
	h.p.dialogues.Add(1)
	return &fakeDialogue{h: h}, nil
}

type fakeDialogue struct {
	h     *fakeHandle
	turns []string
}

func (d *fakeDialogue) Send(ctx context.Context, text string) (string, error) {
	d.turns = append(d.turns, text)
	if d.h.p.reply != nil {
		return d.h.p.reply(ctx, d.h.instruction, text)
	}
	return "jawaban: " + text, nil
}

type memCatalog struct {
	mu    sync.Mutex
	items map[string]domain.CatalogItem
	err   error
}

func newMemCatalog(items ...domain.CatalogItem) *memCatalog {
	c := &memCatalog{items: make(map[string]domain.CatalogItem)}
	for _, it := range items {
		c.items[it.ID] = it
	}
	return c
}

func (c *memCatalog) setErr(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

func (c *memCatalog) ListItems(context.Context) ([]domain.CatalogItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	items := make([]domain.CatalogItem, 0, len(c.items))
	for _, it := range c.items {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (c *memCatalog) GetItem(_ context.Context, id string) (domain.CatalogItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[id]
	if !ok {
		return domain.CatalogItem{}, domain.ErrItemNotFound
	}
	return it, nil
}

func (c *memCatalog) CountItems(context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items), nil
}

func (c *memCatalog) InsertItem(_ context.Context, it domain.CatalogItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[it.ID]; ok {
		return domain.ErrItemExists
	}
	c.items[it.ID] = it
	return nil
}

func (c *memCatalog) UpdateItem(_ context.Context, it domain.CatalogItem) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[it.ID]; !ok {
		return domain.ErrItemNotFound
	}
	c.items[it.ID] = it
	return nil
}

func (c *memCatalog) DeleteItem(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.items[id]; !ok {
		return domain.ErrItemNotFound
	}
	delete(c.items, id)
	return nil
}

type testStack struct {
	catalog     *memCatalog
	provider    *fakeProvider
	models      *ModelCache
	sessions    *SessionCache
	coordinator *Coordinator
}

func newTestStack(t *testing.T, items ...domain.CatalogItem) *testStack {
	t.Helper()
	s := &testStack{
		catalog:  newMemCatalog(items...),
		provider: &fakeProvider{},
	}
	s.models = NewModelCache(s.provider)
	s.sessions = NewSessionCache(s.models, 100, 0)
	s.coordinator = NewCoordinator(s.catalog, NewContextBuilder(testShop), s.models, s.sessions)
	return s
}

// ready runs the startup invalidation.
func (s *testStack) ready(t *testing.T) *testStack {
	t.Helper()
	require.NoError(t, s.coordinator.Invalidate(context.Background(), "startup"))
	return s
}

type sentReply struct {
	SenderID string
	Text     string
}

type fakeReplier struct {
	mu      sync.Mutex
	replies []sentReply
	err     error
}

func (r *fakeReplier) Reply(_ context.Context, senderID, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.replies = append(r.replies, sentReply{SenderID: senderID, Text: text})
	return nil
}

func (r *fakeReplier) all() []sentReply {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentReply(nil), r.replies...)
}

type fakeRecorder struct {
	mu      sync.Mutex
	records []domain.InteractionRecord
}

func (r *fakeRecorder) Record(conversationID, question, answer string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, domain.NewInteractionRecord(time.Now(), conversationID, question, answer, d))
}

func (r *fakeRecorder) all() []domain.InteractionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.InteractionRecord(nil), r.records...)
}

var errBoom = errors.New("boom")
