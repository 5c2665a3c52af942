// Package classifier produces (intent, confidence) predictions for chat
// text. The reference engine is rule-based; the Engine contract allows a
// model-backed replacement as long as it honors the caller's deadline.
package classifier

import (
	"context"

	"github.com/chatstack/intentd/engine/decision"
)

// Result is a raw prediction before the threshold policy is applied.
type Result struct {
	Intent       decision.Intent
	Confidence   float64
	ModelVersion string
	PromptID     string
}

// Engine classifies free text. Implementations must return promptly when
// the context is canceled; in-flight work past the deadline must not
// continue consuming resources.
type Engine interface {
	Classify(ctx context.Context, text string) (Result, error)
}

// Func adapts a plain function to the Engine interface.
type Func func(ctx context.Context, text string) (Result, error)

func (f Func) Classify(ctx context.Context, text string) (Result, error) {
	return f(ctx, text)
}
