package risk

import "github.com/ducminhle1904/strategy-orchestrator/pkg/types"

// Adjuster adapts a risk profile from performance commentary.
type Adjuster interface {
	// Apply returns the adjusted profile and what changed.
	Apply(profile Profile, commentary types.PerformanceCommentary) Adjustment
}
