// Package canary watches live service metrics and drives the staged
// rollout of the classifier: it ramps the traffic-split flag while every
// monitored service stays inside its SLO and rolls the flag back to zero
// the moment any service sustains a breach.
package canary

import (
	"time"
)

// Sample is one observation of a service's health.
type Sample struct {
	At        time.Time
	ErrorRate float64
	P95MS     float64
}

// SLO holds the thresholds a healthy sample must stay within.
type SLO struct {
	MaxErrorRate float64
	MaxP95MS     float64
}

// Breaches reports whether the sample exceeds either threshold.
func (s Sample) Breaches(slo SLO) bool {
	return s.ErrorRate > slo.MaxErrorRate || s.P95MS > slo.MaxP95MS
}

// Window is the per-service sliding history of samples, ordered oldest
// first.
type Window struct {
	samples []Sample
}

func (w *Window) Append(s Sample) {
	w.samples = append(w.samples, s)
}

// Prune drops samples observed before the cutoff.
func (w *Window) Prune(cutoff time.Time) {
	keep := 0
	for keep < len(w.samples) && w.samples[keep].At.Before(cutoff) {
		keep++
	}
	if keep > 0 {
		w.samples = append(w.samples[:0], w.samples[keep:]...)
	}
}

func (w *Window) Len() int {
	return len(w.samples)
}

// Violation reports whether the last n samples all breach the SLO.
// Fewer than n samples is never a violation; the decision is deferred
// until enough history exists.
func (w *Window) Violation(slo SLO, n int) bool {
	if n < 1 || len(w.samples) < n {
		return false
	}
	for _, s := range w.samples[len(w.samples)-n:] {
		if !s.Breaches(slo) {
			return false
		}
	}
	return true
}

// Stable reports whether the last n samples all stay within the SLO.
// Fewer than n samples defers, same as Violation.
func (w *Window) Stable(slo SLO, n int) bool {
	if n < 1 || len(w.samples) < n {
		return false
	}
	for _, s := range w.samples[len(w.samples)-n:] {
		if s.Breaches(slo) {
			return false
		}
	}
	return true
}
