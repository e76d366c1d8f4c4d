package model

import "time"

// FlowState is a capture flow state. CAPTURED and FAILED are terminal.
type FlowState string

const (
	StateInitiated            FlowState = "INITIATED"
	StateProviderOrderCreated FlowState = "PROVIDER_ORDER_CREATED"
	StateReturned             FlowState = "RETURNED"
	StateIntegrityVerified    FlowState = "INTEGRITY_VERIFIED"
	StateLocalOrderCreated    FlowState = "LOCAL_ORDER_CREATED"
	StateCaptured             FlowState = "CAPTURED"
	StateFailed               FlowState = "FAILED"
)

// IsTerminal reports whether no further transition is possible.
func (s FlowState) IsTerminal() bool {
	return s == StateCaptured || s == StateFailed
}

// FlowPath distinguishes express checkout from the synchronous redirect path.
type FlowPath string

const (
	PathExpress  FlowPath = "express"
	PathRedirect FlowPath = "redirect"
)

// FlowRecord is the persisted progress of one capture flow, keyed by provider token.
// Only these typed fields are stored.
type FlowRecord struct {
	Token          string    `json:"token"`
	Path           FlowPath  `json:"path"`
	CartToken      string    `json:"cart_token,omitempty"`
	OrderID        string    `json:"order_id,omitempty"`
	State          FlowState `json:"state"`
	TransactionRef string    `json:"transaction_ref,omitempty"`
	FailureKind    ErrorKind `json:"failure_kind,omitempty"`
	FailureMessage string    `json:"failure_message,omitempty"`
	UpdatedAt      time.Time `json:"updated_at"`
}
