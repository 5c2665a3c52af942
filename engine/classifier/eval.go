package classifier

import (
	"context"
	"sort"

	"github.com/chatstack/intentd/engine/decision"
)

// LabeledItem pairs text with its ground-truth intent.
type LabeledItem struct {
	Text   string          `json:"text"`
	Intent decision.Intent `json:"intent"`
}

// IntentMetrics holds the per-intent confusion counts and derived scores.
type IntentMetrics struct {
	TP        int     `json:"tp"`
	FP        int     `json:"fp"`
	FN        int     `json:"fn"`
	TN        int     `json:"tn"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
}

// EvalResult summarizes an engine evaluated against a labeled dataset.
type EvalResult struct {
	Total     int                                             `json:"total"`
	Accuracy  float64                                         `json:"accuracy"`
	PerIntent map[decision.Intent]*IntentMetrics              `json:"perIntent"`
	Confusion map[decision.Intent]map[decision.Intent]int     `json:"confusion"`
	// UnknownAUROC measures how well confidence separates unknown from
	// known items; 0.5 is chance.
	UnknownAUROC float64 `json:"unknownAUROC"`
	// ProposedUnknownThreshold is the minimal cut achieving 95% precision
	// on unknown, useful when recalibrating the reject band.
	ProposedUnknownThreshold float64 `json:"proposedUnknownThreshold"`
}

type scoredItem struct {
	score       float64
	trueUnknown bool
}

// Evaluate runs the engine over the dataset and computes accuracy,
// per-intent precision/recall/F1, the confusion matrix and unknown-vs-known
// separability. Items the engine fails on count as misclassified unknown.
func Evaluate(ctx context.Context, engine Engine, items []LabeledItem) EvalResult {
	intents := decision.Intents()
	result := EvalResult{
		Total:     len(items),
		PerIntent: make(map[decision.Intent]*IntentMetrics, len(intents)),
		Confusion: make(map[decision.Intent]map[decision.Intent]int, len(intents)),
	}
	for _, i := range intents {
		result.PerIntent[i] = &IntentMetrics{}
		result.Confusion[i] = make(map[decision.Intent]int, len(intents))
	}

	scores := make([]scoredItem, 0, len(items))
	correct := 0
	for _, item := range items {
		pred, err := engine.Classify(ctx, item.Text)
		if err != nil {
			pred = Result{Intent: decision.IntentUnknown, Confidence: 0}
		}
		if pred.Intent == item.Intent {
			correct++
		}
		result.Confusion[item.Intent][pred.Intent]++
		for _, k := range intents {
			m := result.PerIntent[k]
			switch {
			case k == item.Intent && k == pred.Intent:
				m.TP++
			case k == item.Intent:
				m.FN++
			case k == pred.Intent:
				m.FP++
			default:
				m.TN++
			}
		}
		// Score orientation: high means "looks unknown".
		knownScore := pred.Confidence
		if pred.Intent == decision.IntentUnknown {
			knownScore = 1 - pred.Confidence
		}
		scores = append(scores, scoredItem{score: knownScore, trueUnknown: item.Intent == decision.IntentUnknown})
	}

	for _, k := range intents {
		m := result.PerIntent[k]
		m.Precision = safeDiv(float64(m.TP), float64(m.TP+m.FP))
		m.Recall = safeDiv(float64(m.TP), float64(m.TP+m.FN))
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
	}
	result.Accuracy = safeDiv(float64(correct), float64(len(items)))
	result.UnknownAUROC = computeAUROC(scores)
	result.ProposedUnknownThreshold = proposeUnknownThreshold(scores, 0.95)
	return result
}

// computeAUROC computes the area under the ROC curve for unknown-vs-known
// via the trapezoid rule over all unique score thresholds.
func computeAUROC(points []scoredItem) float64 {
	sorted := make([]scoredItem, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].score > sorted[j].score })

	positives := 0
	for _, p := range sorted {
		if p.trueUnknown {
			positives++
		}
	}
	negatives := len(sorted) - positives
	if positives == 0 || negatives == 0 {
		return 0.5
	}

	var auc, prevFPR, prevTPR float64
	tp, fp := 0, 0
	lastScore := 2.0
	for _, p := range sorted {
		if p.score != lastScore {
			tpr := float64(tp) / float64(positives)
			fpr := float64(fp) / float64(negatives)
			auc += trapezoid(prevFPR, prevTPR, fpr, tpr)
			prevTPR, prevFPR, lastScore = tpr, fpr, p.score
		}
		if p.trueUnknown {
			tp++
		} else {
			fp++
		}
	}
	auc += trapezoid(prevFPR, prevTPR, float64(fp)/float64(negatives), float64(tp)/float64(positives))
	return clamp01(auc)
}

// proposeUnknownThreshold sweeps cut points to find the minimal threshold
// achieving the target precision on unknown.
func proposeUnknownThreshold(points []scoredItem, targetPrecision float64) float64 {
	for t := 0; t <= 100; t++ {
		thr := float64(t) / 100
		tp, fp := 0, 0
		for _, p := range points {
			if p.score >= thr {
				if p.trueUnknown {
					tp++
				} else {
					fp++
				}
			}
		}
		if safeDiv(float64(tp), float64(tp+fp)) >= targetPrecision {
			return thr
		}
	}
	return 0.5
}

func trapezoid(x1, y1, x2, y2 float64) float64 {
	return (x2 - x1) * (y1 + y2) / 2
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
