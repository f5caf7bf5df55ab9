package portfolio

import (
	"math"
	"sort"

	"github.com/ducminhle1904/strategy-orchestrator/pkg/types"
)

// Allocation maps a strategy id to the fraction of capital it receives.
type Allocation map[string]float64

// Copy returns an independent copy. A nil allocation copies to nil.
func (a Allocation) Copy() Allocation {
	if a == nil {
		return nil
	}
	out := make(Allocation, len(a))
	for id, w := range a {
		out[id] = w
	}
	return out
}

// Total returns the sum of all weights.
func (a Allocation) Total() float64 {
	total := 0.0
	for _, w := range a {
		total += w
	}
	return total
}

// Active returns the ids carrying a positive weight, sorted.
func (a Allocation) Active() []string {
	ids := make([]string, 0, len(a))
	for id, w := range a {
		if w > 0 {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// Normalize turns a raw allocation into weights summing to 1 over the known
// strategy ids. Unknown ids are dropped and negative or NaN weights count as
// zero. When nothing positive remains the capital is split equally across
// every known id. The result is empty only when no ids are known.
func Normalize(raw map[string]float64, known []string) Allocation {
	out := make(Allocation, len(known))
	if len(known) == 0 {
		return out
	}

	sum := 0.0
	for _, id := range known {
		w := sanitize(raw[id])
		out[id] = w
		sum += w
	}

	if sum <= 0 || math.IsInf(sum, 0) {
		equal := 1.0 / float64(len(known))
		for _, id := range known {
			out[id] = equal
		}
		return out
	}

	for id, w := range out {
		out[id] = w / sum
	}
	return out
}

// FromScores synthesizes an allocation from strategy scores, weighting each
// strategy by score times confidence.
func FromScores(scores map[string]types.StrategyScore, known []string) Allocation {
	raw := make(map[string]float64, len(scores))
	for id, s := range scores {
		raw[id] = s.Score * s.Confidence
	}
	return Normalize(raw, known)
}

func sanitize(w float64) float64 {
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return 0
	}
	return w
}
