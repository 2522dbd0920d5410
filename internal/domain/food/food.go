// Package food contains the derived nutrition statistics the engine scores
// against. Everything here is computed by the artifact builder and treated
// as immutable for the lifetime of one artifact generation.
package food

import (
	"math"

	"github.com/moodplate/engine/internal/domain/mealcontext"
)

// Kcal-per-gram factors for the three macronutrients.
const (
	KcalPerGramCarb    = 4.0
	KcalPerGramProtein = 4.0
	KcalPerGramFat     = 9.0
)

// MacroRatio is the fraction of kcal contributed by carbohydrate, protein
// and fat. Components always sum to 1; degenerate inputs collapse to the
// equal split.
type MacroRatio struct {
	Carb    float64 `json:"carb"`
	Protein float64 `json:"protein"`
	Fat     float64 `json:"fat"`
}

// HealthyRatio is the fixed 5:3:2 health-alignment anchor.
var HealthyRatio = MacroRatio{Carb: 0.5, Protein: 0.3, Fat: 0.2}

// EqualRatio is the fallback for users or foods with no usable macro data.
var EqualRatio = MacroRatio{Carb: 1.0 / 3, Protein: 1.0 / 3, Fat: 1.0 / 3}

// NewMacroRatio normalizes gram amounts into a kcal-fraction triple.
func NewMacroRatio(carbG, proteinG, fatG float64) MacroRatio {
	carbKcal := math.Max(carbG, 0) * KcalPerGramCarb
	proteinKcal := math.Max(proteinG, 0) * KcalPerGramProtein
	fatKcal := math.Max(fatG, 0) * KcalPerGramFat

	total := carbKcal + proteinKcal + fatKcal
	if total <= 0 {
		return EqualRatio
	}
	return MacroRatio{
		Carb:    carbKcal / total,
		Protein: proteinKcal / total,
		Fat:     fatKcal / total,
	}
}

// NormalizeRatio renormalizes a triple that is already in kcal-fraction
// units, such as the profile's declared slider input. No gram conversion
// is applied; degenerate input collapses to the equal split.
func NormalizeRatio(carb, protein, fat float64) MacroRatio {
	carb = math.Max(carb, 0)
	protein = math.Max(protein, 0)
	fat = math.Max(fat, 0)

	total := carb + protein + fat
	if total <= 0 {
		return EqualRatio
	}
	return MacroRatio{
		Carb:    carb / total,
		Protein: protein / total,
		Fat:     fat / total,
	}
}

// Blend returns w*r + (1-w)*other, renormalized.
func (r MacroRatio) Blend(other MacroRatio, w float64) MacroRatio {
	blended := MacroRatio{
		Carb:    w*r.Carb + (1-w)*other.Carb,
		Protein: w*r.Protein + (1-w)*other.Protein,
		Fat:     w*r.Fat + (1-w)*other.Fat,
	}
	sum := blended.Carb + blended.Protein + blended.Fat
	if sum <= 0 {
		return EqualRatio
	}
	blended.Carb /= sum
	blended.Protein /= sum
	blended.Fat /= sum
	return blended
}

// L1Distance is the Manhattan distance between two ratio triples.
func (r MacroRatio) L1Distance(other MacroRatio) float64 {
	return math.Abs(r.Carb-other.Carb) +
		math.Abs(r.Protein-other.Protein) +
		math.Abs(r.Fat-other.Fat)
}

// Sum returns the component total; 1 within tolerance for any valid ratio.
func (r MacroRatio) Sum() float64 {
	return r.Carb + r.Protein + r.Fat
}

// Item is a food's aggregated catalog entry: identity plus the nutrition
// and stability statistics derived from every historical log mentioning it.
type Item struct {
	Name         string
	CatalogID    int64
	MeanCalories float64
	MeanCarbG    float64
	MeanProteinG float64
	MeanFatG     float64
	Ratio        MacroRatio
	// EmotionScore is the mean stable-outcome flag across all logs; 0 for
	// foods never logged.
	EmotionScore float64
	LogCount     int
}

// ContextStat is one (mood, energy, food) cell of the context table.
type ContextStat struct {
	Context     mealcontext.Context
	FoodName    string
	Count       int
	MeanOutcome float64
}

// Cluster is one Phase-2 cluster of a context cohort.
type Cluster struct {
	Context        mealcontext.Context
	Index          int
	CentroidRatio  MacroRatio
	CentroidNorm   float64 // normalized calories, cohort-relative [0,1]
	CentroidScore  float64 // emotion score
	HealthDistance float64 // L1 to HealthyRatio
	LabelKey       string
	DisplayLabel   string
	Size           int
}

// Assignment maps a (context, food) row to its cluster index.
type Assignment struct {
	Context  mealcontext.Context
	FoodName string
	Cluster  int
}

// ContextFood is the (context, food) composite lookup key.
type ContextFood struct {
	Context  mealcontext.Context
	FoodName string
}

// ContextCluster is the (context, cluster index) composite lookup key.
type ContextCluster struct {
	Context mealcontext.Context
	Cluster int
}

// StabilityEstimate is the Laplace-smoothed probability that foods in a
// cluster historically preceded a stable outcome.
type StabilityEstimate struct {
	Context mealcontext.Context
	Cluster int
	Rows    int
	Stable  int
	P       float64
}

// NeutralStability is the probability used when no estimate exists for a
// candidate's cluster: exactly neutral, so reranking has no effect.
const NeutralStability = 0.5

// UserPreference is the per-user macro preference artifact row.
type UserPreference struct {
	UserID        string
	DeclaredRatio MacroRatio
	ObservedRatio MacroRatio
	HybridRatio   MacroRatio
}
