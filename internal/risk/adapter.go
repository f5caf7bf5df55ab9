package risk

import (
	"math"
	"strings"
	"unicode"

	"github.com/ducminhle1904/strategy-orchestrator/pkg/types"
)

// Direction is the intent of a recommendation on risk exposure.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionReduce
	DirectionIncrease
)

func (d Direction) String() string {
	switch d {
	case DirectionReduce:
		return "REDUCE"
	case DirectionIncrease:
		return "INCREASE"
	default:
		return "NONE"
	}
}

const (
	reduceMultiplier   = 0.9
	increaseMultiplier = 1.1
)

var (
	subjectWords = wordSet("risk", "exposure", "position", "size", "leverage")

	// Matched against single words and adjacent word pairs
	intentWords = map[string]Direction{
		"reduce":     DirectionReduce,
		"decrease":   DirectionReduce,
		"lower":      DirectionReduce,
		"cut":        DirectionReduce,
		"tighten":    DirectionReduce,
		"limit":      DirectionReduce,
		"de-risk":    DirectionReduce,
		"scale down": DirectionReduce,
		"increase":   DirectionIncrease,
		"raise":      DirectionIncrease,
		"expand":     DirectionIncrease,
		"boost":      DirectionIncrease,
		"grow":       DirectionIncrease,
		"scale up":   DirectionIncrease,
	}
)

// Adjustment describes one application of the adapter.
type Adjustment struct {
	Before  Profile     `json:"before"`
	After   Profile     `json:"after"`
	Applied []Direction `json:"applied"`
}

// Changed reports whether any recommendation moved the profile.
func (a Adjustment) Changed() bool {
	return a.Before != a.After
}

// Adapter nudges the position size factor and per-asset exposure cap in
// response to high priority risk recommendations.
type Adapter struct{}

// NewAdapter creates a risk adapter.
func NewAdapter() *Adapter {
	return &Adapter{}
}

// Apply applies every qualifying recommendation in order, clamping after each.
// A profile that starts out of bounds is clamped first.
func (a *Adapter) Apply(profile Profile, commentary types.PerformanceCommentary) Adjustment {
	adj := Adjustment{Before: profile, After: profile.Clamp()}

	for _, rec := range commentary.Recommendations {
		if types.ParsePriority(string(rec.Priority)) != types.PriorityHigh {
			continue
		}
		dir := Classify(rec)
		switch dir {
		case DirectionReduce:
			adj.After.PositionSizeFactor = math.Max(adj.After.PositionSizeFactor*reduceMultiplier, MinPositionSizeFactor)
			adj.After.MaxExposurePerAsset = math.Max(adj.After.MaxExposurePerAsset*reduceMultiplier, MinMaxExposurePerAsset)
		case DirectionIncrease:
			adj.After.PositionSizeFactor = math.Min(adj.After.PositionSizeFactor*increaseMultiplier, MaxPositionSizeFactor)
			adj.After.MaxExposurePerAsset = math.Min(adj.After.MaxExposurePerAsset*increaseMultiplier, MaxMaxExposurePerAsset)
		default:
			continue
		}
		adj.Applied = append(adj.Applied, dir)
	}

	return adj
}

// Classify reads a recommendation's risk intent. A recommendation must talk
// about risk or exposure in its action or category to count, and the first
// intent word in the action decides the direction.
func Classify(rec types.Recommendation) Direction {
	action := words(rec.Action)

	if !mentionsSubject(action) && !mentionsSubject(words(rec.Category)) {
		return DirectionNone
	}
	for i, w := range action {
		if i+1 < len(action) {
			if dir, ok := intentWords[w+" "+action[i+1]]; ok {
				return dir
			}
		}
		if dir, ok := intentWords[w]; ok {
			return dir
		}
	}
	return DirectionNone
}

// words lower-cases s and splits it on anything but letters and hyphens
func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '-'
	})
}

func mentionsSubject(ws []string) bool {
	for _, w := range ws {
		if subjectWords[w] || subjectWords[strings.TrimSuffix(w, "s")] {
			return true
		}
	}
	return false
}

func wordSet(ws ...string) map[string]bool {
	set := make(map[string]bool, len(ws))
	for _, w := range ws {
		set[w] = true
	}
	return set
}
