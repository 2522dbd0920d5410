// Package artifacts builds, persists and caches the derived tables the
// recommendation engine scores against. The builder is a pure function of
// the raw catalog, profile and meal-log rows; it runs offline, never on the
// request hot path.
package artifacts

import (
	"fmt"
	"sort"

	"github.com/moodplate/engine/internal/domain/food"
	"github.com/moodplate/engine/internal/domain/mealcontext"
)

// CatalogRow is one raw food-catalog record.
type CatalogRow struct {
	ID   int64
	Name string
}

// ProfileRow is one raw user-profile record (declared slider ratios).
type ProfileRow struct {
	UserID          string
	DeclaredCarb    float64
	DeclaredProtein float64
	DeclaredFat     float64
}

// MealLogRow is one raw historical meal-and-mood log record.
type MealLogRow struct {
	UserID   string
	Mood     string
	Energy   string
	FoodName string
	Calories float64
	CarbG    float64
	ProteinG float64
	FatG     float64
	Stable   bool
}

// Tables holds the builder's four derived tables plus the blacklist.
type Tables struct {
	Foods        []food.Item
	Prefs        []food.UserPreference
	ContextStats []food.ContextStat
	Unobserved   []food.Item
	Blacklist    []string
}

// DefaultHybridAlpha is the declared-vs-observed blend weight.
const DefaultHybridAlpha = 0.5

// Build derives the engine's artifact tables from raw rows.
//
// Foods with zero logs are permitted and keep an emotion score of 0; they
// feed the unobserved pool. Foods whose logs appear only in structurally
// unstable contexts (negative mood or high energy) are blacklisted.
func Build(catalog []CatalogRow, profiles []ProfileRow, logs []MealLogRow, hybridAlpha float64) (*Tables, error) {
	if hybridAlpha < 0 || hybridAlpha > 1 {
		return nil, fmt.Errorf("hybrid alpha %v out of [0,1]", hybridAlpha)
	}

	catalogByName := make(map[string]CatalogRow, len(catalog))
	for _, row := range catalog {
		if row.Name == "" {
			return nil, fmt.Errorf("catalog row %d: missing food name", row.ID)
		}
		catalogByName[row.Name] = row
	}

	type foodAgg struct {
		calories, carbG, proteinG, fatG float64
		stableSum                       float64
		count                           int
		everCalm                        bool
		seen                            bool
	}
	type ctxAgg struct {
		count     int
		stableSum float64
	}
	type userAgg struct {
		carbG, proteinG, fatG float64
	}

	foodAggs := make(map[string]*foodAgg)
	ctxAggs := make(map[mealcontext.Context]map[string]*ctxAgg)
	userAggs := make(map[string]*userAgg)

	for i, row := range logs {
		if row.FoodName == "" {
			return nil, fmt.Errorf("meal log row %d: missing food name", i)
		}
		ctx, err := mealcontext.Parse(row.Mood, row.Energy)
		if err != nil {
			return nil, fmt.Errorf("meal log row %d: %w", i, err)
		}

		fa := foodAggs[row.FoodName]
		if fa == nil {
			fa = &foodAgg{}
			foodAggs[row.FoodName] = fa
		}
		fa.seen = true
		fa.count++
		fa.calories += row.Calories
		fa.carbG += row.CarbG
		fa.proteinG += row.ProteinG
		fa.fatG += row.FatG
		if row.Stable {
			fa.stableSum++
		}
		if !ctx.IsStructurallyUnstable() {
			fa.everCalm = true
		}

		byFood := ctxAggs[ctx]
		if byFood == nil {
			byFood = make(map[string]*ctxAgg)
			ctxAggs[ctx] = byFood
		}
		ca := byFood[row.FoodName]
		if ca == nil {
			ca = &ctxAgg{}
			byFood[row.FoodName] = ca
		}
		ca.count++
		if row.Stable {
			ca.stableSum++
		}

		ua := userAggs[row.UserID]
		if ua == nil {
			ua = &userAgg{}
			userAggs[row.UserID] = ua
		}
		ua.carbG += row.CarbG
		ua.proteinG += row.ProteinG
		ua.fatG += row.FatG
	}

	tables := &Tables{}

	for name, agg := range foodAggs {
		n := float64(agg.count)
		item := food.Item{
			Name:         name,
			MeanCalories: agg.calories / n,
			MeanCarbG:    agg.carbG / n,
			MeanProteinG: agg.proteinG / n,
			MeanFatG:     agg.fatG / n,
			EmotionScore: agg.stableSum / n,
			LogCount:     agg.count,
		}
		item.Ratio = food.NewMacroRatio(item.MeanCarbG, item.MeanProteinG, item.MeanFatG)
		if row, ok := catalogByName[name]; ok {
			item.CatalogID = row.ID
		}
		tables.Foods = append(tables.Foods, item)

		if !agg.everCalm {
			tables.Blacklist = append(tables.Blacklist, name)
		}
	}
	sort.Slice(tables.Foods, func(i, j int) bool { return tables.Foods[i].Name < tables.Foods[j].Name })
	sort.Strings(tables.Blacklist)

	// Catalog foods never appearing in any log form the exploration pool.
	// They have no observed nutrition, so the equal ratio stands in.
	for _, row := range catalog {
		if _, logged := foodAggs[row.Name]; logged {
			continue
		}
		tables.Unobserved = append(tables.Unobserved, food.Item{
			Name:      row.Name,
			CatalogID: row.ID,
			Ratio:     food.EqualRatio,
		})
	}
	sort.Slice(tables.Unobserved, func(i, j int) bool { return tables.Unobserved[i].Name < tables.Unobserved[j].Name })

	for _, ctx := range mealcontext.All() {
		byFood := ctxAggs[ctx]
		names := make([]string, 0, len(byFood))
		for name := range byFood {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			agg := byFood[name]
			tables.ContextStats = append(tables.ContextStats, food.ContextStat{
				Context:     ctx,
				FoodName:    name,
				Count:       agg.count,
				MeanOutcome: agg.stableSum / float64(agg.count),
			})
		}
	}

	for _, profile := range profiles {
		if profile.UserID == "" {
			return nil, fmt.Errorf("profile row: missing user id")
		}
		// Slider ratios are already kcal fractions; no gram conversion.
		declared := food.NormalizeRatio(profile.DeclaredCarb, profile.DeclaredProtein, profile.DeclaredFat)
		observed := food.EqualRatio
		if ua, ok := userAggs[profile.UserID]; ok {
			observed = food.NewMacroRatio(ua.carbG, ua.proteinG, ua.fatG)
		}
		tables.Prefs = append(tables.Prefs, food.UserPreference{
			UserID:        profile.UserID,
			DeclaredRatio: declared,
			ObservedRatio: observed,
			HybridRatio:   declared.Blend(observed, hybridAlpha),
		})
	}
	sort.Slice(tables.Prefs, func(i, j int) bool { return tables.Prefs[i].UserID < tables.Prefs[j].UserID })

	return tables, nil
}
