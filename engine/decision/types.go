package decision

import (
	"time"
)

// Intent is the closed set of categories a message routes toward.
type Intent string

const (
	IntentSupport Intent = "support"
	IntentSales   Intent = "sales"
	IntentBilling Intent = "billing"
	IntentUnknown Intent = "unknown"
)

// Intents lists every valid intent, unknown last.
func Intents() []Intent {
	return []Intent{IntentSupport, IntentSales, IntentBilling, IntentUnknown}
}

func (i Intent) Valid() bool {
	switch i {
	case IntentSupport, IntentSales, IntentBilling, IntentUnknown:
		return true
	}
	return false
}

// Reason explains how the effective intent was produced.
type Reason string

const (
	ReasonOK            Reason = "ok"
	ReasonLowConfidence Reason = "low_confidence"
	ReasonTimeout       Reason = "timeout"
	ReasonError         Reason = "error"
)

// Mode distinguishes live decisions from shadow evaluations.
type Mode string

const (
	ModeLive   Mode = "live"
	ModeShadow Mode = "shadow"
)

type DestinationType string

const (
	DestinationTriage DestinationType = "triage"
	DestinationQueue  DestinationType = "queue"
	DestinationUser   DestinationType = "user"
)

// Destination is where the message is routed. Triage carries no id;
// queue and user destinations carry the target id.
type Destination struct {
	Type DestinationType `json:"type" validate:"required,oneof=triage queue user"`
	ID   string          `json:"id,omitempty"`
}

// Thresholds are the two calibrated cut points in effect when the
// decision was made, echoed back for auditability.
type Thresholds struct {
	Route   float64 `json:"route"   validate:"gte=0,lte=1"`
	Unknown float64 `json:"unknown" validate:"gte=0,lte=1"`
}

// ClassifyRequest is the inbound contract. Text length is bounded and
// enforced before any processing; oversize requests are rejected whole.
type ClassifyRequest struct {
	MessageID      string `json:"messageId"      binding:"required,uuid"`
	ConversationID string `json:"conversationId" binding:"required,uuid"`
	Text           string `json:"text"           binding:"required"`
	RequestID      string `json:"requestId,omitempty"`
	TraceID        string `json:"traceId,omitempty"`
	// DeadlineMS optionally tightens the per-request classifier deadline.
	// It can only shorten the configured default, never extend it.
	DeadlineMS int `json:"deadlineMs,omitempty"`
}

// Decision is the outcome of one evaluation. Created once, immutable
// thereafter; emitted as an event and optionally cached for idempotent
// replay.
type Decision struct {
	Intent       Intent      `json:"intent"       validate:"required,oneof=support sales billing unknown"`
	Confidence   float64     `json:"confidence"   validate:"gte=0,lte=1"`
	Destination  Destination `json:"destination"`
	ModelVersion string      `json:"modelVersion" validate:"required"`
	PromptID     string      `json:"promptId"     validate:"required"`
	Thresholds   Thresholds  `json:"thresholds"`
	LatencyMS    int64       `json:"latencyMs"    validate:"gte=0"`
	RequestID    string      `json:"requestId"    validate:"required"`
	TraceID      string      `json:"traceId"      validate:"required"`
	Reason       Reason      `json:"reason"       validate:"required,oneof=ok low_confidence timeout error"`
	Mode         Mode        `json:"mode"         validate:"required,oneof=live shadow"`
}

// Event is the persisted form of a decision, one per logical evaluation.
// Emission is fire-and-forget; downstream consumers must never see a
// silent gap, so failure paths still produce an event.
type Event struct {
	MessageID      string    `json:"messageId"`
	ConversationID string    `json:"conversationId"`
	Decision       Decision  `json:"decision"`
	CreatedAt      time.Time `json:"createdAt"`
}
