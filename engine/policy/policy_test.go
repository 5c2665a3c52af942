package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/chatstack/intentd/engine/decision"
)

const (
	tUnknown = 0.5
	tRoute   = 0.7
)

func TestDecide(t *testing.T) {
	t.Run("Should force unknown below the unknown threshold regardless of predicted intent", func(t *testing.T) {
		for _, intent := range decision.Intents() {
			for _, c := range []float64{0, 0.1, 0.3, 0.49, 0.499} {
				effective, reason := Decide(intent, c, tUnknown, tRoute)
				assert.Equal(t, decision.IntentUnknown, effective, "intent=%s c=%v", intent, c)
				assert.Equal(t, decision.ReasonLowConfidence, reason)
			}
		}
	})

	t.Run("Should keep non-unknown predictions at or above the route threshold", func(t *testing.T) {
		for _, intent := range []decision.Intent{decision.IntentSupport, decision.IntentSales, decision.IntentBilling} {
			for _, c := range []float64{0.7, 0.85, 0.9, 1.0} {
				effective, reason := Decide(intent, c, tUnknown, tRoute)
				assert.Equal(t, intent, effective)
				assert.Equal(t, decision.ReasonOK, reason)
			}
		}
	})

	t.Run("Should keep unknown predictions unknown even with high confidence", func(t *testing.T) {
		effective, reason := Decide(decision.IntentUnknown, 0.95, tUnknown, tRoute)
		assert.Equal(t, decision.IntentUnknown, effective)
		assert.Equal(t, decision.ReasonLowConfidence, reason)
	})

	t.Run("Should force unknown inside the ambiguous band", func(t *testing.T) {
		for _, intent := range decision.Intents() {
			for _, c := range []float64{0.5, 0.55, 0.6, 0.69, 0.699} {
				effective, reason := Decide(intent, c, tUnknown, tRoute)
				assert.Equal(t, decision.IntentUnknown, effective, "intent=%s c=%v", intent, c)
				assert.Equal(t, decision.ReasonLowConfidence, reason)
			}
		}
	})

	t.Run("Should treat the band boundaries as half-open", func(t *testing.T) {
		effective, _ := Decide(decision.IntentSupport, tUnknown, tUnknown, tRoute)
		assert.Equal(t, decision.IntentUnknown, effective, "confidence == tUnknown lands in the band")

		effective, reason := Decide(decision.IntentSupport, tRoute, tUnknown, tRoute)
		assert.Equal(t, decision.IntentSupport, effective, "confidence == tRoute routes")
		assert.Equal(t, decision.ReasonOK, reason)
	})
}

func TestDestinationFor(t *testing.T) {
	t.Run("Should route unknown to triage with no id", func(t *testing.T) {
		dest := DestinationFor(decision.IntentUnknown)
		assert.Equal(t, decision.DestinationTriage, dest.Type)
		assert.Empty(t, dest.ID)
	})

	t.Run("Should route each known intent to its own stable queue", func(t *testing.T) {
		seen := map[string]bool{}
		for _, intent := range []decision.Intent{decision.IntentSupport, decision.IntentSales, decision.IntentBilling} {
			dest := DestinationFor(intent)
			assert.Equal(t, decision.DestinationQueue, dest.Type)
			assert.NotEmpty(t, dest.ID)
			assert.False(t, seen[dest.ID], "queue ids must be distinct")
			seen[dest.ID] = true
			assert.Equal(t, dest.ID, QueueID(intent), "queue id must be stable")
		}
	})
}
