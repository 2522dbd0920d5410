package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"

	"github.com/moodplate/engine/internal/domain/food"
	"github.com/moodplate/engine/internal/domain/mealcontext"
	"github.com/moodplate/engine/internal/domain/recommendation"
)

type ScorerTestSuite struct {
	suite.Suite
	scorer *Scorer
}

func (s *ScorerTestSuite) SetupTest() {
	s.scorer = New(DefaultConfig(), zap.NewNop())
}

func TestScorerTestSuite(t *testing.T) {
	suite.Run(t, new(ScorerTestSuite))
}

// item builds a food whose ratio is exactly the given kcal-fraction triple.
func item(name string, carb, protein, fat, calories, proteinG float64) food.Item {
	return food.Item{
		Name:         name,
		MeanCalories: calories,
		MeanProteinG: proteinG,
		Ratio:        food.MacroRatio{Carb: carb, Protein: protein, Fat: fat},
		EmotionScore: 0.5,
		LogCount:     5,
	}
}

func dataset(items []food.Item, stats map[mealcontext.Context][]food.ContextStat) Dataset {
	foods := make(map[string]food.Item, len(items))
	for _, it := range items {
		foods[it.Name] = it
	}
	return Dataset{StatsByContext: stats, Foods: foods, Blacklist: map[string]bool{}}
}

func stat(ctx mealcontext.Context, name string, count int, outcome float64) food.ContextStat {
	return food.ContextStat{Context: ctx, FoodName: name, Count: count, MeanOutcome: outcome}
}

// Stable context: the pool is the user's own context and the preference
// pick tracks the macro target while the health pick tracks 5:3:2.
func (s *ScorerTestSuite) TestStableContextPicksFromOwnPool() {
	ctx := mealcontext.Context{Mood: mealcontext.MoodPositive, Energy: mealcontext.EnergyMedium}
	other := mealcontext.Context{Mood: mealcontext.MoodNeutral, Energy: mealcontext.EnergyLow}

	items := []food.Item{
		item("protein bowl", 0.30, 0.50, 0.20, 450, 40),
		item("balanced plate", 0.50, 0.30, 0.20, 500, 25),
		item("elsewhere only", 0.50, 0.30, 0.20, 500, 25),
	}
	data := dataset(items, map[mealcontext.Context][]food.ContextStat{
		ctx:   {stat(ctx, "protein bowl", 4, 0.8), stat(ctx, "balanced plate", 6, 0.7)},
		other: {stat(other, "elsewhere only", 3, 0.9)},
	})

	in := Input{
		Context:       ctx,
		Target:        food.MacroRatio{Carb: 0.30, Protein: 0.50, Fat: 0.20},
		CalorieTarget: 500,
		Purpose:       recommendation.PurposeMaintain,
		Exclude:       map[string]bool{},
	}
	pref, health := s.scorer.Pick(data, in)

	require.False(s.T(), pref.IsSentinel())
	require.False(s.T(), health.IsSentinel())
	assert.Equal(s.T(), "protein bowl", pref.FoodName)
	assert.Equal(s.T(), "balanced plate", health.FoodName)
	assert.Equal(s.T(), "stable:positive/medium", pref.Pool)

	// Foods logged only in other contexts never leak into a stable pool.
	assert.NotEqual(s.T(), "elsewhere only", pref.FoodName)
	assert.NotEqual(s.T(), "elsewhere only", health.FoodName)
}

// A food near the 500 kcal target with the user's own 5:3:2 ratio beats a
// heavy fat-dominant one on the preference ranking and the health ranking.
func (s *ScorerTestSuite) TestNearTargetFoodTopsBothRankings() {
	ctx := mealcontext.Context{Mood: mealcontext.MoodNeutral, Energy: mealcontext.EnergyLow}
	items := []food.Item{
		item("steady bowl", 0.50, 0.30, 0.20, 480, 36),
		item("comfort platter", 0.20, 0.20, 0.60, 900, 45),
	}
	data := dataset(items, map[mealcontext.Context][]food.ContextStat{
		ctx: {stat(ctx, "steady bowl", 4, 0.5), stat(ctx, "comfort platter", 4, 0.5)},
	})
	in := Input{
		Context:       ctx,
		Target:        food.MacroRatio{Carb: 0.50, Protein: 0.30, Fat: 0.20},
		CalorieTarget: 500,
		Purpose:       recommendation.PurposeMaintain,
		Exclude:       map[string]bool{},
	}

	pool := s.scorer.filter(data, data.StatsByContext[ctx], in.Exclude)
	require.Len(s.T(), pool, 2)

	prefRanking := s.scorer.rank(pool, in, s.scorer.cfg.WeightPreference, 0)
	assert.Equal(s.T(), "steady bowl", prefRanking[0].entry.item.Name)
	assert.Greater(s.T(), prefRanking[0].score, prefRanking[1].score)

	healthRanking := s.scorer.rank(pool, in, 0, s.scorer.cfg.WeightHealth)
	assert.Equal(s.T(), "steady bowl", healthRanking[0].entry.item.Name)
	assert.Greater(s.T(), healthRanking[0].score, healthRanking[1].score)

	pref, health := s.scorer.Pick(data, in)
	assert.Equal(s.T(), "steady bowl", pref.FoodName)
	assert.Equal(s.T(), "comfort platter", health.FoodName)
}

// Unstable context: candidates come from the recovery union, not from the
// distressed context's own history.
func (s *ScorerTestSuite) TestUnstableContextUsesRecoveryUnion() {
	distressed := mealcontext.Context{Mood: mealcontext.MoodNegative, Energy: mealcontext.EnergyHigh}
	calm := mealcontext.Context{Mood: mealcontext.MoodPositive, Energy: mealcontext.EnergyLow}

	items := []food.Item{
		item("comfort binge", 0.20, 0.20, 0.60, 900, 15),
		item("calm soup", 0.50, 0.30, 0.20, 350, 18),
	}
	data := dataset(items, map[mealcontext.Context][]food.ContextStat{
		distressed: {stat(distressed, "comfort binge", 8, 0.1)},
		calm:       {stat(calm, "calm soup", 5, 0.9)},
	})

	in := Input{
		Context:       distressed,
		Target:        food.HealthyRatio,
		CalorieTarget: 400,
		Exclude:       map[string]bool{},
	}
	pref, _ := s.scorer.Pick(data, in)

	require.False(s.T(), pref.IsSentinel())
	assert.Equal(s.T(), "calm soup", pref.FoodName)
	assert.Equal(s.T(), "recovery-union", pref.Pool)
}

// Guardrails: fat cap, protein floor, keyword filter and blacklist all
// remove foods before scoring.
func (s *ScorerTestSuite) TestGuardrailsFilterPool() {
	ctx := mealcontext.Context{Mood: mealcontext.MoodNeutral, Energy: mealcontext.EnergyLow}

	items := []food.Item{
		item("butter block", 0.05, 0.05, 0.90, 700, 5),  // fat above cap
		item("plain lettuce", 0.70, 0.20, 0.10, 20, 1),  // protein below floor
		item("chili sauce", 0.60, 0.25, 0.15, 120, 6),   // blocked keyword
		item("banned thing", 0.50, 0.30, 0.20, 400, 20), // blacklisted
		item("chicken salad", 0.40, 0.40, 0.20, 420, 30),
	}
	stats := make([]food.ContextStat, 0, len(items))
	for _, it := range items {
		stats = append(stats, stat(ctx, it.Name, 3, 0.6))
	}
	data := dataset(items, map[mealcontext.Context][]food.ContextStat{ctx: stats})
	data.Blacklist["banned thing"] = true

	in := Input{Context: ctx, Target: food.HealthyRatio, CalorieTarget: 450, Exclude: map[string]bool{}}
	pref, health := s.scorer.Pick(data, in)

	require.False(s.T(), pref.IsSentinel())
	assert.Equal(s.T(), "chicken salad", pref.FoodName)

	// Only one survivor, so the health slot degrades to the sentinel.
	assert.True(s.T(), health.IsSentinel())
	assert.Equal(s.T(), string(recommendation.TypeHealth), health.Pool)
}

// Exclusions: the current food and recently recommended foods are skipped,
// and an empty post-filter pool yields sentinels for both slots.
func (s *ScorerTestSuite) TestExclusionsAndEmptyPool() {
	ctx := mealcontext.Context{Mood: mealcontext.MoodPositive, Energy: mealcontext.EnergyLow}
	items := []food.Item{
		item("only dish", 0.50, 0.30, 0.20, 400, 20),
	}
	data := dataset(items, map[mealcontext.Context][]food.ContextStat{
		ctx: {stat(ctx, "only dish", 2, 0.5)},
	})

	in := Input{
		Context: ctx,
		Target:  food.HealthyRatio,
		Exclude: map[string]bool{"only dish": true},
	}
	pref, health := s.scorer.Pick(data, in)
	assert.True(s.T(), pref.IsSentinel())
	assert.True(s.T(), health.IsSentinel())
	assert.Equal(s.T(), string(recommendation.TypePreference), pref.Pool)
}

// The health pick never duplicates the preference pick.
func (s *ScorerTestSuite) TestHealthSlotExcludesPreferencePick() {
	ctx := mealcontext.Context{Mood: mealcontext.MoodNeutral, Energy: mealcontext.EnergyMedium}
	// The same food is best on both axes.
	items := []food.Item{
		item("perfect plate", 0.50, 0.30, 0.20, 400, 25),
		item("runner up", 0.45, 0.35, 0.20, 420, 22),
	}
	data := dataset(items, map[mealcontext.Context][]food.ContextStat{
		ctx: {stat(ctx, "perfect plate", 5, 0.8), stat(ctx, "runner up", 4, 0.6)},
	})

	in := Input{Context: ctx, Target: food.HealthyRatio, CalorieTarget: 400, Exclude: map[string]bool{}}
	pref, health := s.scorer.Pick(data, in)

	require.False(s.T(), pref.IsSentinel())
	require.False(s.T(), health.IsSentinel())
	assert.Equal(s.T(), "perfect plate", pref.FoodName)
	assert.NotEqual(s.T(), pref.FoodName, health.FoodName)
}

func (s *ScorerTestSuite) TestCaloriePenaltyGuardsAndClips() {
	// Non-positive target disables the penalty entirely.
	assert.Equal(s.T(), 0.0, s.scorer.caloriePenalty(500, 0))
	assert.Equal(s.T(), 0.0, s.scorer.caloriePenalty(500, -100))

	// On target: no penalty. Far off target: clipped at lambda.
	assert.Equal(s.T(), 0.0, s.scorer.caloriePenalty(400, 400))
	assert.InDelta(s.T(), -0.5, s.scorer.caloriePenalty(4000, 400), 1e-9)
	assert.InDelta(s.T(), -0.25, s.scorer.caloriePenalty(600, 400), 1e-9)
}

func (s *ScorerTestSuite) TestPurposePenalty() {
	target := 400.0

	// Diet: penalize only above the 15% ceiling.
	assert.Equal(s.T(), 0.0, s.scorer.purposePenalty(450, target, recommendation.PurposeDiet))
	assert.InDelta(s.T(), -(560.0-460.0)/400.0,
		s.scorer.purposePenalty(560, target, recommendation.PurposeDiet), 1e-9)

	// Bulk: penalize only below the 15% floor.
	assert.Equal(s.T(), 0.0, s.scorer.purposePenalty(380, target, recommendation.PurposeBulk))
	assert.InDelta(s.T(), -(340.0-200.0)/400.0,
		s.scorer.purposePenalty(200, target, recommendation.PurposeBulk), 1e-9)

	// Maintain: never penalized.
	assert.Equal(s.T(), 0.0, s.scorer.purposePenalty(1000, target, recommendation.PurposeMaintain))
	assert.Equal(s.T(), 0.0, s.scorer.purposePenalty(50, target, recommendation.PurposeMaintain))
}

func (s *ScorerTestSuite) TestDeterministicTieBreakByName() {
	ctx := mealcontext.Context{Mood: mealcontext.MoodPositive, Energy: mealcontext.EnergyLow}
	// Identical stats: the alphabetically first name must win every run.
	items := []food.Item{
		item("beta bowl", 0.50, 0.30, 0.20, 400, 20),
		item("alpha bowl", 0.50, 0.30, 0.20, 400, 20),
	}
	data := dataset(items, map[mealcontext.Context][]food.ContextStat{
		ctx: {stat(ctx, "beta bowl", 3, 0.5), stat(ctx, "alpha bowl", 3, 0.5)},
	})

	in := Input{Context: ctx, Target: food.HealthyRatio, CalorieTarget: 400, Exclude: map[string]bool{}}
	for i := 0; i < 5; i++ {
		pref, _ := s.scorer.Pick(data, in)
		assert.Equal(s.T(), "alpha bowl", pref.FoodName)
	}
}
