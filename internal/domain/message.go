package domain

import "time"

// InboundMessage is a text message delivered by the messaging channel.
type InboundMessage struct {
	SenderID   string
	Body       string
	IsGroup    bool
	MessageID  int
	ReceivedAt time.Time
}

// DispatchState is a step of the per-message state machine.
type DispatchState string

const (
	StateReceived   DispatchState = "received"
	StateRouting    DispatchState = "routing"
	StateGenerating DispatchState = "generating"
	StateReplying   DispatchState = "replying"
	StateRecorded   DispatchState = "recorded"
	StateReplied    DispatchState = "replied"
	StateDropped    DispatchState = "dropped"
	StateFailed     DispatchState = "failed"
)

// Terminal reports whether no further transition follows s.
func (s DispatchState) Terminal() bool {
	return s == StateReplied || s == StateDropped || s == StateFailed
}

// DispatchResult is the outcome of one inbound message.
type DispatchResult struct {
	State DispatchState
	// FailedAt is the state in which a Failed turn stopped.
	FailedAt DispatchState
	Reply    string
	// HandleVersion is the model handle version the reply was generated against.
	HandleVersion uint64
	Err           error
}
