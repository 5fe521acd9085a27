package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/set-night/tokobot/internal/domain"
)

// Replier sends a reply through the messaging channel.
type Replier interface {
	Reply(ctx context.Context, senderID, text string) error
}

// SessionResolver routes a conversation to its session.
type SessionResolver interface {
	Resolve(ctx context.Context, conversationID string) (*ChatSession, error)
	Version() uint64
}

// InteractionRecorder accepts finished exchanges. It must not block.
type InteractionRecorder interface {
	Record(conversationID, question, answer string, duration time.Duration)
}

// FailureListener is told about every turn that ends in StateFailed.
type FailureListener func(msg domain.InboundMessage, res domain.DispatchResult)

type DispatcherOptions struct {
	// SystemSenders are sender ids that never get a reply.
	SystemSenders []string
	// RetryStale regenerates once against a fresh session when the catalog
	// was rebuilt while the answer was being generated.
	RetryStale bool
	// GenerationTimeout bounds a single model call. Zero means no limit.
	GenerationTimeout time.Duration
	// Apology replaces answers the model refused to produce.
	Apology string
}

// Dispatcher runs one inbound message through routing, generation, reply
// and recording.
type Dispatcher struct {
	resolver SessionResolver
	replier  Replier
	recorder InteractionRecorder
	opts     DispatcherOptions
	system   map[string]struct{}
	onFail   FailureListener
}

func NewDispatcher(resolver SessionResolver, replier Replier, recorder InteractionRecorder, opts DispatcherOptions) *Dispatcher {
	system := make(map[string]struct{}, len(opts.SystemSenders))
	for _, id := range opts.SystemSenders {
		if id = strings.TrimSpace(id); id != "" {
			system[id] = struct{}{}
		}
	}
	return &Dispatcher{
		resolver: resolver,
		replier:  replier,
		recorder: recorder,
		opts:     opts,
		system:   system,
	}
}

// OnFailure registers the listener. Call before serving traffic.
func (d *Dispatcher) OnFailure(l FailureListener) {
	d.onFail = l
}

// Dispatch handles msg to completion and returns the terminal state.
// Errors never reach the sender; a safety rejection is answered with the
// configured apology and recorded like any other exchange.
func (d *Dispatcher) Dispatch(ctx context.Context, msg domain.InboundMessage) (res domain.DispatchResult) {
	log := slog.With("turn_id", uuid.NewString(), "sender_id", msg.SenderID)
	state := domain.StateReceived

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic in dispatch", "panic", r, "stack", string(debug.Stack()))
			res = d.fail(log, msg, state, fmt.Errorf("panic: %v", r))
		}
	}()

	if reason := d.dropReason(msg); reason != "" {
		log.Debug("message dropped", "reason", reason)
		return domain.DispatchResult{State: domain.StateDropped}
	}

	state = domain.StateRouting
	session, err := d.resolver.Resolve(ctx, msg.SenderID)
	if err != nil {
		return d.fail(log, msg, state, fmt.Errorf("resolve session: %w", err))
	}

	state = domain.StateGenerating
	start := time.Now()
	answer, version, err := d.generate(ctx, log, session, msg)
	switch {
	case errors.Is(err, domain.ErrSafetyRejection):
		log.Warn("model declined to answer", "error", err)
		answer = d.opts.Apology
	case err != nil:
		return d.fail(log, msg, state, err)
	}

	state = domain.StateReplying
	if err := d.replier.Reply(ctx, msg.SenderID, answer); err != nil {
		return d.fail(log, msg, state, fmt.Errorf("send reply: %w", err))
	}
	elapsed := time.Since(start)

	state = domain.StateRecorded
	d.recorder.Record(msg.SenderID, msg.Body, answer, elapsed)

	log.Info("message answered",
		"handle_version", version,
		"duration", elapsed,
		"question_bytes", len(msg.Body),
		"answer_bytes", len(answer),
	)
	return domain.DispatchResult{
		State:         domain.StateReplied,
		Reply:         answer,
		HandleVersion: version,
	}
}

func (d *Dispatcher) dropReason(msg domain.InboundMessage) string {
	switch {
	case msg.IsGroup:
		return "group"
	case msg.SenderID == "":
		return "no sender"
	case msg.SenderID == BroadcastSenderID:
		return "broadcast"
	case strings.TrimSpace(msg.Body) == "":
		return "empty body"
	}
	if _, ok := d.system[msg.SenderID]; ok {
		return "system sender"
	}
	return ""
}

// BroadcastSenderID is the pseudo-sender of status broadcasts.
const BroadcastSenderID = "status@broadcast"

// generate asks the session for an answer. With RetryStale set, an answer
// produced while the handle was replaced is discarded and regenerated once
// on a session bound to the new handle.
func (d *Dispatcher) generate(ctx context.Context, log *slog.Logger, session *ChatSession, msg domain.InboundMessage) (string, uint64, error) {
	answer, err := d.send(ctx, session, msg.Body)
	if err != nil || !d.opts.RetryStale || d.resolver.Version() == session.Handle.Version {
		return answer, session.Handle.Version, err
	}

	log.Info("answer generated against replaced context, regenerating",
		"stale_version", session.Handle.Version,
		"current_version", d.resolver.Version(),
	)
	fresh, err := d.resolver.Resolve(ctx, msg.SenderID)
	if err != nil {
		return "", 0, fmt.Errorf("resolve fresh session: %w", err)
	}
	answer, err = d.send(ctx, fresh, msg.Body)
	return answer, fresh.Handle.Version, err
}

func (d *Dispatcher) send(ctx context.Context, session *ChatSession, text string) (string, error) {
	if d.opts.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.GenerationTimeout)
		defer cancel()
	}
	answer, err := session.Send(ctx, text)
	if err != nil {
		return "", fmt.Errorf("generate: %w", err)
	}
	return answer, nil
}

func (d *Dispatcher) fail(log *slog.Logger, msg domain.InboundMessage, at domain.DispatchState, err error) domain.DispatchResult {
	log.Error("dispatch failed", "state", at, "error", err)
	res := domain.DispatchResult{State: domain.StateFailed, FailedAt: at, Err: err}
	if d.onFail != nil {
		d.onFail(msg, res)
	}
	return res
}
