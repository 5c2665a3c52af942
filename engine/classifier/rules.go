package classifier

import (
	"context"
	"regexp"

	"github.com/chatstack/intentd/engine/decision"
)

const (
	ruleModelVersion = "rule-0.1"
	rulePromptID     = "baseline-0"

	matchConfidence   = 0.9
	noMatchConfidence = 0.4
)

// rule order matters: the first matching branch wins.
var rules = []struct {
	intent  decision.Intent
	pattern *regexp.Regexp
}{
	{decision.IntentSupport, regexp.MustCompile(`(?i)(bug|error|help|issue|crash|broken)`)},
	{decision.IntentSales, regexp.MustCompile(`(?i)(price|buy|quote|demo|sales)`)},
	{decision.IntentBilling, regexp.MustCompile(`(?i)(invoice|billing|charge|refund|receipt|payment)`)},
}

// RuleEngine is the reference keyword-pattern implementation. Pure given
// its configuration, no observable side effects.
type RuleEngine struct{}

func NewRuleEngine() *RuleEngine {
	return &RuleEngine{}
}

func (e *RuleEngine) Classify(ctx context.Context, text string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	result := Result{
		Intent:       decision.IntentUnknown,
		Confidence:   noMatchConfidence,
		ModelVersion: ruleModelVersion,
		PromptID:     rulePromptID,
	}
	for _, rule := range rules {
		if rule.pattern.MatchString(text) {
			result.Intent = rule.intent
			result.Confidence = matchConfidence
			break
		}
	}
	return result, nil
}
