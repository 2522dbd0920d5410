// Package scorer implements the rule-based first pass: it pools candidate
// foods for an emotional context, applies guardrails, and picks one
// preference-optimal and one health-optimal food.
package scorer

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/moodplate/engine/internal/domain/food"
	"github.com/moodplate/engine/internal/domain/mealcontext"
	"github.com/moodplate/engine/internal/domain/recommendation"
)

// Config carries the scorer's weights and guardrails.
type Config struct {
	WeightPreference float64
	WeightHealth     float64
	WeightContext    float64
	WeightGlobal     float64
	CalorieLambda    float64
	CalorieSoftClip  float64
	PurposeDelta     float64
	FatRatioCap      float64
	ProteinFloorG    float64
	KeywordFilter    bool
	BlockedKeywords  []string
}

// DefaultConfig returns the production weight set.
func DefaultConfig() Config {
	return Config{
		WeightPreference: 1.0,
		WeightHealth:     1.0,
		WeightContext:    0.3,
		WeightGlobal:     0.2,
		CalorieLambda:    0.5,
		CalorieSoftClip:  1.0,
		PurposeDelta:     0.15,
		FatRatioCap:      0.65,
		ProteinFloorG:    3.0,
		KeywordFilter:    true,
		BlockedKeywords:  []string{"oil", "sauce", "dressing", "syrup", "mayonnaise"},
	}
}

// Dataset is the read-only artifact slice the scorer works over.
type Dataset struct {
	StatsByContext map[mealcontext.Context][]food.ContextStat
	Foods          map[string]food.Item
	Blacklist      map[string]bool
}

// Input is one request's scoring parameters.
type Input struct {
	Context       mealcontext.Context
	Target        food.MacroRatio
	CalorieTarget float64
	Purpose       recommendation.Purpose
	Exclude       map[string]bool
}

// Scorer is the Phase-1 rule-based scorer.
type Scorer struct {
	cfg    Config
	logger *zap.Logger
}

// New creates a scorer.
func New(cfg Config, logger *zap.Logger) *Scorer {
	return &Scorer{cfg: cfg, logger: logger.Named("scorer")}
}

// pooled is one filtered candidate with its aggregated context outcome.
type pooled struct {
	item        food.Item
	meanOutcome float64
}

// Pick returns the preference and health candidates for the input context.
// Either slot degrades to a "no candidate" sentinel when the filtered pool
// is empty; it never fails the request.
func (s *Scorer) Pick(data Dataset, in Input) (pref, health recommendation.Candidate) {
	pool, poolName := s.selectPool(data, in.Context)
	candidates := s.filter(data, pool, in.Exclude)

	if len(candidates) == 0 {
		reason := fmt.Sprintf("candidate pool %q empty after filtering", poolName)
		s.logger.Debug("Empty candidate pool",
			zap.String("context", in.Context.String()),
			zap.String("pool", poolName),
		)
		return recommendation.NoCandidate(recommendation.TypePreference, reason),
			recommendation.NoCandidate(recommendation.TypeHealth, reason)
	}

	prefRanking := s.rank(candidates, in, s.cfg.WeightPreference, 0)
	pref = s.toCandidate(prefRanking[0], recommendation.TypePreference, poolName, in)

	healthRanking := s.rank(candidates, in, 0, s.cfg.WeightHealth)
	health = recommendation.NoCandidate(recommendation.TypeHealth,
		fmt.Sprintf("pool %q has a single food, already used for the preference slot", poolName))
	for _, scored := range healthRanking {
		if scored.entry.item.Name == pref.FoodName {
			continue
		}
		health = s.toCandidate(scored, recommendation.TypeHealth, poolName, in)
		break
	}
	return pref, health
}

// ScoreAgainst scores one item with the full penalty formula against an
// arbitrary target. Used by the exploration pass, which shares Phase 1's
// distance-plus-penalties shape.
func (s *Scorer) ScoreAgainst(item food.Item, target food.MacroRatio, in Input) float64 {
	base := -s.cfg.WeightPreference * item.Ratio.L1Distance(target)
	base += s.cfg.WeightGlobal * item.EmotionScore
	base += s.caloriePenalty(item.MeanCalories, in.CalorieTarget)
	base += s.purposePenalty(item.MeanCalories, in.CalorieTarget, in.Purpose)
	return base
}

// selectPool returns the candidate rows for a context: the context's own
// rows when the state is stable, otherwise the union of the recovery
// contexts. A distressed or overstimulated user is steered toward foods
// historically eaten while calm.
func (s *Scorer) selectPool(data Dataset, ctx mealcontext.Context) ([]food.ContextStat, string) {
	if ctx.IsStable() {
		return data.StatsByContext[ctx], "stable:" + ctx.String()
	}
	var union []food.ContextStat
	for _, rc := range mealcontext.RecoveryContexts() {
		union = append(union, data.StatsByContext[rc]...)
	}
	return union, "recovery-union"
}

// filter applies blacklist, exclusion and guardrail checks, deduplicating
// foods that appear in multiple pooled contexts with a count-weighted mean
// outcome.
func (s *Scorer) filter(data Dataset, pool []food.ContextStat, exclude map[string]bool) []pooled {
	type agg struct {
		outcomeSum float64
		count      int
	}
	aggs := make(map[string]*agg)
	for _, stat := range pool {
		if data.Blacklist[stat.FoodName] || exclude[stat.FoodName] {
			continue
		}
		a := aggs[stat.FoodName]
		if a == nil {
			a = &agg{}
			aggs[stat.FoodName] = a
		}
		a.outcomeSum += stat.MeanOutcome * float64(stat.Count)
		a.count += stat.Count
	}

	names := make([]string, 0, len(aggs))
	for name := range aggs {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]pooled, 0, len(names))
	for _, name := range names {
		item, ok := data.Foods[name]
		if !ok {
			continue
		}
		if item.Ratio.Fat > s.cfg.FatRatioCap {
			continue
		}
		if s.cfg.ProteinFloorG > 0 && item.MeanProteinG < s.cfg.ProteinFloorG {
			continue
		}
		if s.cfg.KeywordFilter && s.containsBlockedKeyword(name) {
			continue
		}
		a := aggs[name]
		out = append(out, pooled{item: item, meanOutcome: a.outcomeSum / float64(a.count)})
	}
	return out
}

func (s *Scorer) containsBlockedKeyword(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range s.cfg.BlockedKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

type scoredEntry struct {
	entry pooled
	score float64
}

// rank scores every pooled food with the given preference/health weight
// split and sorts best-first (name ascending on ties, for determinism).
func (s *Scorer) rank(candidates []pooled, in Input, wPref, wHealth float64) []scoredEntry {
	out := make([]scoredEntry, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, scoredEntry{entry: c, score: s.score(c, in, wPref, wHealth)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].entry.item.Name < out[j].entry.item.Name
	})
	return out
}

func (s *Scorer) score(c pooled, in Input, wPref, wHealth float64) float64 {
	item := c.item
	score := -(wPref*item.Ratio.L1Distance(in.Target) + wHealth*item.Ratio.L1Distance(food.HealthyRatio))
	score += s.cfg.WeightContext * c.meanOutcome
	score += s.cfg.WeightGlobal * item.EmotionScore
	score += s.caloriePenalty(item.MeanCalories, in.CalorieTarget)
	score += s.purposePenalty(item.MeanCalories, in.CalorieTarget, in.Purpose)
	return score
}

// caloriePenalty penalizes distance from the per-meal target, soft-clipped.
// A non-positive target yields no penalty; the guard is intentional.
func (s *Scorer) caloriePenalty(calories, target float64) float64 {
	if target <= 0 {
		return 0
	}
	deviation := math.Abs(calories-target) / target
	return -s.cfg.CalorieLambda * math.Min(deviation, s.cfg.CalorieSoftClip)
}

// purposePenalty penalizes overshoot for dieters and undershoot for
// bulkers, proportional to the violation; maintain carries none.
func (s *Scorer) purposePenalty(calories, target float64, purpose recommendation.Purpose) float64 {
	if target <= 0 {
		return 0
	}
	switch purpose {
	case recommendation.PurposeDiet:
		ceiling := target * (1 + s.cfg.PurposeDelta)
		if calories > ceiling {
			return -(calories - ceiling) / target
		}
	case recommendation.PurposeBulk:
		floor := target * (1 - s.cfg.PurposeDelta)
		if calories < floor {
			return -(floor - calories) / target
		}
	}
	return 0
}

func (s *Scorer) toCandidate(scored scoredEntry, ctype recommendation.CandidateType, poolName string, in Input) recommendation.Candidate {
	item := scored.entry.item
	var axis string
	switch ctype {
	case recommendation.TypeHealth:
		axis = fmt.Sprintf("closest to the 5:3:2 healthy ratio (L1=%.2f)", item.Ratio.L1Distance(food.HealthyRatio))
	default:
		axis = fmt.Sprintf("closest to your macro preference (L1=%.2f)", item.Ratio.L1Distance(in.Target))
	}
	explanation := fmt.Sprintf("%s; eaten %d times with a %.0f%% stable outcome in %s contexts",
		axis, item.LogCount, scored.entry.meanOutcome*100, in.Context.String())

	return recommendation.Candidate{
		Type:         ctype,
		FoodName:     item.Name,
		FoodID:       item.CatalogID,
		BaseScore:    scored.score,
		FinalScore:   scored.score,
		Explanation:  explanation,
		ClusterLabel: "N/A",
		Pool:         poolName,
	}
}
