package planner

import (
	"context"
	"fmt"

	"majordomo/internal/llm"
	"majordomo/internal/logging"
)

// Facet names produced by the intent analyzer.
const (
	FacetIntent   = "intent"
	FacetEntities = "entities"
	FacetUrgency  = "urgency"
)

var facetPrompts = map[string]string{
	FacetIntent:   "In one short phrase, what does the user want done?\n\n%s",
	FacetEntities: "List the concrete people, places, items, or services mentioned, comma-separated. Reply 'none' if there are none.\n\n%s",
	FacetUrgency:  "Is this request urgent, routine, or ambient? Reply with one word.\n\n%s",
}

// IntentAnalysis is the merged output of the parallel facet calls.
// Facets whose call failed are absent from the map.
type IntentAnalysis struct {
	Facets map[string]string
}

// Get returns a facet value, empty when the facet failed or is unknown.
func (a IntentAnalysis) Get(facet string) string {
	return a.Facets[facet]
}

// ParallelIntentAnalyzer fans independent analysis prompts out
// through the batcher. It degrades gracefully: a failed facet is
// dropped, never fails the analysis as a whole.
type ParallelIntentAnalyzer struct {
	batcher *llm.Batcher
}

// NewParallelIntentAnalyzer creates an analyzer over a batcher.
func NewParallelIntentAnalyzer(batcher *llm.Batcher) *ParallelIntentAnalyzer {
	return &ParallelIntentAnalyzer{batcher: batcher}
}

// Analyze runs all facet prompts concurrently and merges the results.
func (a *ParallelIntentAnalyzer) Analyze(ctx context.Context, message string) IntentAnalysis {
	facets := []string{FacetIntent, FacetEntities, FacetUrgency}

	requests := make([]llm.Request, len(facets))
	for i, facet := range facets {
		requests[i] = llm.Request{Prompt: fmt.Sprintf(facetPrompts[facet], message)}
	}

	results := a.batcher.ExecuteParallel(ctx, requests)

	analysis := IntentAnalysis{Facets: make(map[string]string, len(facets))}
	for i, res := range results {
		if res.Err != nil {
			logging.PlannerDebug("intent facet %s failed: %v", facets[i], res.Err)
			continue
		}
		analysis.Facets[facets[i]] = res.Output
	}
	return analysis
}
