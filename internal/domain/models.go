// Package domain provides domain models and identifier handling for the paper bot.
package domain

// ChatEvent is one inbound chat message as delivered by the event source.
type ChatEvent struct {
	Text      string `json:"text"`
	AuthorID  string `json:"user" validate:"required_unless=IsBot true"`
	IsBot     bool   `json:"-"`
	Channel   string `json:"channel" validate:"required"`
	Timestamp string `json:"ts" validate:"required"`

	// RetryNum is the redelivery counter reported by the event source;
	// zero for a first delivery.
	RetryNum int `json:"-"`

	// RetryReason is the event source's explanation for a redelivery.
	RetryReason string `json:"-"`
}

// IsRetry reports whether the event is a redelivery of an earlier one.
func (e ChatEvent) IsRetry() bool {
	return e.RetryNum > 0 || e.RetryReason != ""
}

// RequestKind is the classification of an inbound message.
type RequestKind string

const (
	RequestKindSingle  RequestKind = "single"
	RequestKindTop     RequestKind = "top"
	RequestKindIgnored RequestKind = "ignored"
)

// DispatchOutcome is the terminal state an event reaches in the dispatcher.
type DispatchOutcome string

const (
	OutcomeDispatchedSingle DispatchOutcome = "dispatched_single"
	OutcomeDispatchedTop    DispatchOutcome = "dispatched_top"
	OutcomeIgnored          DispatchOutcome = "ignored"
	OutcomeRejectedBot      DispatchOutcome = "rejected_bot"
	OutcomeRejectedRetry    DispatchOutcome = "rejected_retry"
	OutcomeSaturated        DispatchOutcome = "saturated"
)

// IsDispatched returns true if a worker task was started for the event.
func (o DispatchOutcome) IsDispatched() bool {
	return o == OutcomeDispatchedSingle || o == OutcomeDispatchedTop
}
