// Package policy maps raw classifier output to an effective routing
// decision using two calibrated thresholds. The band between them is a
// deliberate reject region: it trades recall for precision on unknown by
// widening the region instead of using a single cut point.
package policy

import (
	"github.com/google/uuid"

	"github.com/chatstack/intentd/engine/decision"
)

// queueNamespace seeds the stable per-intent queue ids. Changing it would
// reshuffle every queue id, so it is fixed for the life of the system.
var queueNamespace = uuid.MustParse("8f64a2b1-0c4e-4d57-9a36-5f1be0c7d210")

// Decide applies the three-way threshold band. Callers guarantee
// tRoute > tUnknown; the config loader treats a violation as fatal.
//
//   - confidence < tUnknown: forced unknown, low_confidence
//   - confidence >= tRoute: predicted intent kept (unknown stays
//     low_confidence, anything else is ok)
//   - in between: ambiguous, forced unknown, low_confidence
func Decide(intent decision.Intent, confidence, tUnknown, tRoute float64) (decision.Intent, decision.Reason) {
	if confidence < tUnknown {
		return decision.IntentUnknown, decision.ReasonLowConfidence
	}
	if confidence >= tRoute {
		if intent == decision.IntentUnknown {
			return decision.IntentUnknown, decision.ReasonLowConfidence
		}
		return intent, decision.ReasonOK
	}
	return decision.IntentUnknown, decision.ReasonLowConfidence
}

// DestinationFor derives the routing destination deterministically from
// the effective intent: unknown goes to triage with no id, everything
// else to that intent's stable queue.
func DestinationFor(intent decision.Intent) decision.Destination {
	if intent == decision.IntentUnknown {
		return decision.Destination{Type: decision.DestinationTriage}
	}
	return decision.Destination{Type: decision.DestinationQueue, ID: QueueID(intent)}
}

// QueueID returns the stable queue id for an intent. Derived from a fixed
// namespace so every deployment agrees without coordination.
func QueueID(intent decision.Intent) string {
	return uuid.NewSHA1(queueNamespace, []byte(intent)).String()
}
