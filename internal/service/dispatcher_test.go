package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/set-night/tokobot/internal/domain"
	"github.com/set-night/tokobot/internal/llm"
)

const testApology = "maaf"

type dispatchFixture struct {
	*testStack
	replier  *fakeReplier
	recorder *fakeRecorder
	catalogs *CatalogService
	failures []domain.DispatchResult
}

func newDispatchFixture(t *testing.T, opts DispatcherOptions, items ...domain.CatalogItem) (*dispatchFixture, *Dispatcher) {
	t.Helper()
	f := &dispatchFixture{
		testStack: newTestStack(t, items...),
		replier:   &fakeReplier{},
		recorder:  &fakeRecorder{},
	}
	f.catalogs = NewCatalogService(f.catalog, f.coordinator)
	if opts.Apology == "" {
		opts.Apology = testApology
	}
	d := NewDispatcher(f.coordinator, f.replier, f.recorder, opts)
	d.OnFailure(func(_ domain.InboundMessage, res domain.DispatchResult) {
		f.failures = append(f.failures, res)
	})
	return f, d
}

func msg(sender, body string) domain.InboundMessage {
	return domain.InboundMessage{SenderID: sender, Body: body, ReceivedAt: time.Now()}
}

func TestDispatchReplied(t *testing.T) {
	f, d := newDispatchFixture(t, DispatcherOptions{}, beras)
	f.ready(t)

	res := d.Dispatch(context.Background(), msg("62811", "stok beras?"))

	require.Equal(t, domain.StateReplied, res.State)
	assert.True(t, res.State.Terminal())
	assert.Equal(t, "jawaban: stok beras?", res.Reply)
	assert.Equal(t, uint64(1), res.HandleVersion)
	assert.Equal(t, []sentReply{{SenderID: "62811", Text: "jawaban: stok beras?"}}, f.replier.all())

	recs := f.recorder.all()
	require.Len(t, recs, 1)
	assert.Equal(t, "62811", recs[0].ConversationID)
	assert.Equal(t, "stok beras?", recs[0].Question)
	assert.Equal(t, "jawaban: stok beras?", recs[0].Answer)
	assert.GreaterOrEqual(t, recs[0].Duration, time.Duration(0))
}

func TestDispatchDropped(t *testing.T) {
	tests := []struct {
		name string
		msg  domain.InboundMessage
	}{
		{"group", domain.InboundMessage{SenderID: "62811", Body: "halo", IsGroup: true}},
		{"broadcast", msg(BroadcastSenderID, "promo")},
		{"system sender", msg("777000", "halo")},
		{"no sender", msg("", "halo")},
		{"empty body", msg("62811", "  \n")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, d := newDispatchFixture(t, DispatcherOptions{SystemSenders: []string{"777000", " "}}, beras)
			f.ready(t)

			res := d.Dispatch(context.Background(), tt.msg)

			assert.Equal(t, domain.StateDropped, res.State)
			assert.Empty(t, f.replier.all())
			assert.Empty(t, f.recorder.all())
			assert.Zero(t, f.sessions.Len())
			assert.Empty(t, f.failures)
		})
	}
}

func TestDispatchSafetyRejectionRepliesApology(t *testing.T) {
	f, d := newDispatchFixture(t, DispatcherOptions{}, beras)
	f.ready(t)
	f.provider.reply = func(context.Context, string, string) (string, error) {
		return "", fmt.Errorf("gemini: %w", llm.ErrSafetyRejection)
	}

	res := d.Dispatch(context.Background(), msg("62811", "sesuatu yang ditolak"))

	require.Equal(t, domain.StateReplied, res.State)
	assert.Equal(t, testApology, res.Reply)
	assert.Equal(t, []sentReply{{SenderID: "62811", Text: testApology}}, f.replier.all())

	recs := f.recorder.all()
	require.Len(t, recs, 1)
	assert.Equal(t, testApology, recs[0].Answer)
	assert.Equal(t, "sesuatu yang ditolak", recs[0].Question)
}

func TestDispatchFailures(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T, f *dispatchFixture)
		at    domain.DispatchState
	}{
		{
			name:  "not ready",
			setup: func(*testing.T, *dispatchFixture) {},
			at:    domain.StateRouting,
		},
		{
			name: "generation error",
			setup: func(t *testing.T, f *dispatchFixture) {
				f.ready(t)
				f.provider.reply = func(context.Context, string, string) (string, error) { return "", errBoom }
			},
			at: domain.StateGenerating,
		},
		{
			name: "generation panic",
			setup: func(t *testing.T, f *dispatchFixture) {
				f.ready(t)
				f.provider.reply = func(context.Context, string, string) (string, error) { panic("model exploded") }
			},
			at: domain.StateGenerating,
		},
		{
			name: "reply error",
			setup: func(t *testing.T, f *dispatchFixture) {
				f.ready(t)
				f.replier.err = errBoom
			},
			at: domain.StateReplying,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, d := newDispatchFixture(t, DispatcherOptions{}, beras)
			tt.setup(t, f)

			res := d.Dispatch(context.Background(), msg("62811", "halo"))

			assert.Equal(t, domain.StateFailed, res.State)
			assert.Equal(t, tt.at, res.FailedAt)
			assert.Error(t, res.Err)
			assert.Empty(t, res.Reply)
			assert.Empty(t, f.recorder.all())
			require.Len(t, f.failures, 1)
		})
	}
}

func TestDispatchGenerationTimeout(t *testing.T) {
	f, d := newDispatchFixture(t, DispatcherOptions{GenerationTimeout: 20 * time.Millisecond}, beras)
	f.ready(t)
	f.provider.reply = func(ctx context.Context, _, _ string) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	}

	res := d.Dispatch(context.Background(), msg("62811", "halo"))

	assert.Equal(t, domain.StateFailed, res.State)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Empty(t, f.replier.all())
}

// stockReply answers with the stock of SMB-001 found in the instruction.
// Questions containing "tunggu" block until release is closed.
func stockReply(entered chan<- struct{}, release <-chan struct{}) func(context.Context, string, string) (string, error) {
	return func(_ context.Context, instruction, text string) (string, error) {
		if strings.Contains(text, "tunggu") {
			entered <- struct{}{}
			<-release
		}
		for _, stock := range []string{"10", "3"} {
			if strings.Contains(instruction, `"stok": `+stock) {
				return "Stok beras " + stock, nil
			}
		}
		return "tidak tahu", nil
	}
}

func TestDispatchStaleInFlightReply(t *testing.T) {
	tests := []struct {
		name        string
		retry       bool
		wantReply   string
		wantVersion uint64
	}{
		{"allow", false, "Stok beras 3", 1},
		{"retry", true, "Stok beras 10", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := domain.CatalogItem{ID: "SMB-001", Category: "Sembako", Name: "Beras", Variant: "5kg", Price: 65000, Stock: 3}
			f, d := newDispatchFixture(t, DispatcherOptions{RetryStale: tt.retry}, item)
			f.ready(t)

			entered := make(chan struct{}, 1)
			release := make(chan struct{})
			f.provider.reply = stockReply(entered, release)
			ctx := context.Background()

			inflight := make(chan domain.DispatchResult, 1)
			go func() { inflight <- d.Dispatch(ctx, msg("lama", "stok beras? tunggu")) }()
			<-entered

			stock := int64(10)
			mut, err := f.catalogs.Update(ctx, "SMB-001", domain.ItemPatch{Stock: &stock})
			require.NoError(t, err)
			require.NoError(t, mut.RebuildErr)

			fresh := d.Dispatch(ctx, msg("baru", "stok beras?"))
			require.Equal(t, domain.StateReplied, fresh.State)
			assert.Equal(t, "Stok beras 10", fresh.Reply)
			assert.Equal(t, uint64(2), fresh.HandleVersion)

			close(release)
			stale := <-inflight
			require.Equal(t, domain.StateReplied, stale.State)
			assert.Equal(t, tt.wantReply, stale.Reply)
			assert.Equal(t, tt.wantVersion, stale.HandleVersion)
			assert.Len(t, f.recorder.all(), 2)
		})
	}
}
