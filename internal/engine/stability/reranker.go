// Package stability estimates, per context cluster, the Laplace-smoothed
// probability that its foods historically preceded a stable emotional
// outcome, and blends that estimate into the first-pass scores. It also
// fills the exploration slot from the unobserved pool.
package stability

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/moodplate/engine/internal/domain/food"
	"github.com/moodplate/engine/internal/domain/mealcontext"
	"github.com/moodplate/engine/internal/domain/recommendation"
	"github.com/moodplate/engine/internal/engine/scorer"
)

// DefaultAlpha is the Laplace smoothing constant.
const DefaultAlpha = 1.0

// Weights are the per-candidate-type blend strengths. Stability nudges the
// ranking; it cannot overturn a large first-pass margin unless the weight
// is large.
type Weights struct {
	Preference  float64
	Health      float64
	Exploration float64
}

// DefaultWeights returns the production blend weights.
func DefaultWeights() Weights {
	return Weights{Preference: 0.5, Health: 0.6, Exploration: 0.3}
}

// BuildEstimates derives the stability table from the context-food rows
// and their cluster assignments. A food counts as "ever stable" in a
// context when any of its logs there had a stable outcome.
func BuildEstimates(
	stats []food.ContextStat,
	assignments map[food.ContextFood]int,
	alpha float64,
) map[food.ContextCluster]food.StabilityEstimate {
	if alpha <= 0 {
		alpha = DefaultAlpha
	}

	type agg struct{ rows, stable int }
	aggs := make(map[food.ContextCluster]*agg)
	for _, stat := range stats {
		idx, ok := assignments[food.ContextFood{Context: stat.Context, FoodName: stat.FoodName}]
		if !ok {
			continue
		}
		key := food.ContextCluster{Context: stat.Context, Cluster: idx}
		a := aggs[key]
		if a == nil {
			a = &agg{}
			aggs[key] = a
		}
		a.rows++
		if stat.MeanOutcome > 0 {
			a.stable++
		}
	}

	out := make(map[food.ContextCluster]food.StabilityEstimate, len(aggs))
	for key, a := range aggs {
		out[key] = food.StabilityEstimate{
			Context: key.Context,
			Cluster: key.Cluster,
			Rows:    a.rows,
			Stable:  a.stable,
			P:       (float64(a.stable) + alpha) / (float64(a.rows) + 2*alpha),
		}
	}
	return out
}

// Reranker blends stability estimates into candidate scores.
type Reranker struct {
	weights Weights
	logger  *zap.Logger
}

// NewReranker creates a reranker.
func NewReranker(weights Weights, logger *zap.Logger) *Reranker {
	return &Reranker{weights: weights, logger: logger.Named("stability")}
}

// Rerank sets each candidate's final score to base + w*(p - 0.5), where p
// is the candidate's cluster stability under the request context, or the
// neutral 0.5 when the cluster is unknown or no stability table exists.
func (r *Reranker) Rerank(
	ctx mealcontext.Context,
	candidates []recommendation.Candidate,
	estimates map[food.ContextCluster]food.StabilityEstimate,
) []recommendation.Candidate {
	out := make([]recommendation.Candidate, len(candidates))
	for i, cand := range candidates {
		out[i] = cand
		if cand.IsSentinel() {
			continue
		}
		p := food.NeutralStability
		if cand.ClusterIndex != nil && estimates != nil {
			key := food.ContextCluster{Context: ctx, Cluster: *cand.ClusterIndex}
			if est, ok := estimates[key]; ok {
				p = est.P
			}
		}
		w := r.weight(cand.Type)
		out[i].FinalScore = cand.BaseScore + w*(p-food.NeutralStability)
		if p != food.NeutralStability {
			out[i].Explanation = fmt.Sprintf("%s; cluster stability %.2f", cand.Explanation, p)
		}
	}
	return out
}

func (r *Reranker) weight(t recommendation.CandidateType) float64 {
	switch t {
	case recommendation.TypeHealth:
		return r.weights.Health
	case recommendation.TypeExploration:
		return r.weights.Exploration
	default:
		return r.weights.Preference
	}
}

// ExplorationMix is the preference/health blend for the exploration target.
type ExplorationMix struct {
	Preference float64
}

// DefaultExplorationMix returns the 0.6/0.4 production mix.
func DefaultExplorationMix() ExplorationMix {
	return ExplorationMix{Preference: 0.6}
}

// PickExploration scores the unobserved pool against the blended
// preference/health target with the first-pass formula and returns the best
// food not excluded or already chosen. An empty pool yields the sentinel.
func PickExploration(
	sc *scorer.Scorer,
	unobserved []food.Item,
	in scorer.Input,
	mix ExplorationMix,
	chosen map[string]bool,
) recommendation.Candidate {
	target := in.Target.Blend(food.HealthyRatio, mix.Preference)

	type scored struct {
		item  food.Item
		score float64
	}
	var best *scored
	for _, item := range unobserved {
		if in.Exclude[item.Name] || chosen[item.Name] {
			continue
		}
		s := sc.ScoreAgainst(item, target, in)
		if best == nil || s > best.score || (s == best.score && item.Name < best.item.Name) {
			best = &scored{item: item, score: s}
		}
	}
	if best == nil {
		return recommendation.NoCandidate(recommendation.TypeExploration,
			"unobserved pool empty after exclusions")
	}

	return recommendation.Candidate{
		Type:         recommendation.TypeExploration,
		FoodName:     best.item.Name,
		FoodID:       best.item.CatalogID,
		BaseScore:    best.score,
		FinalScore:   best.score,
		Explanation:  "never logged before; close to your blended preference/health target",
		ClusterLabel: "N/A",
		Pool:         "unobserved",
	}
}
