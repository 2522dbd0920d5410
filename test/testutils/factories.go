// Package testutils provides test data factories for consistent test data
// generation across the engine's test suites.
package testutils

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/moodplate/engine/internal/domain/food"
	"github.com/moodplate/engine/internal/domain/mealcontext"
	"github.com/moodplate/engine/internal/engine/artifacts"
)

// FoodFactory builds deterministic food items and log rows.
type FoodFactory struct {
	faker  *gofakeit.Faker
	nextID int64
}

// NewFoodFactory creates a factory with a seeded faker so test data is
// reproducible run to run.
func NewFoodFactory(seed int64) *FoodFactory {
	return &FoodFactory{faker: gofakeit.New(seed), nextID: 1}
}

// Item builds a food item with the given macro grams and sane defaults.
func (f *FoodFactory) Item(name string, carbG, proteinG, fatG float64) food.Item {
	id := f.nextID
	f.nextID++
	calories := carbG*food.KcalPerGramCarb + proteinG*food.KcalPerGramProtein + fatG*food.KcalPerGramFat
	return food.Item{
		Name:         name,
		CatalogID:    id,
		MeanCalories: calories,
		MeanCarbG:    carbG,
		MeanProteinG: proteinG,
		MeanFatG:     fatG,
		Ratio:        food.NewMacroRatio(carbG, proteinG, fatG),
		EmotionScore: 0.5,
		LogCount:     f.faker.Number(1, 20),
	}
}

// CatalogRow builds a catalog export row.
func (f *FoodFactory) CatalogRow(name string) artifacts.CatalogRow {
	id := f.nextID
	f.nextID++
	return artifacts.CatalogRow{ID: id, Name: name}
}

// RandomName returns a unique fake dish name.
func (f *FoodFactory) RandomName() string {
	id := f.nextID
	f.nextID++
	return fmt.Sprintf("%s #%d", f.faker.Dinner(), id)
}

// LogRow builds a meal log row in the named context.
func (f *FoodFactory) LogRow(userID, foodName, mood, energy string, stable bool) artifacts.MealLogRow {
	carb := f.faker.Float64Range(10, 80)
	protein := f.faker.Float64Range(5, 40)
	fat := f.faker.Float64Range(2, 30)
	return artifacts.MealLogRow{
		UserID:   userID,
		FoodName: foodName,
		Mood:     mood,
		Energy:   energy,
		Stable:   stable,
		Calories: carb*food.KcalPerGramCarb + protein*food.KcalPerGramProtein + fat*food.KcalPerGramFat,
		CarbG:    carb,
		ProteinG: protein,
		FatG:     fat,
	}
}

// ContextStat builds one context-table cell.
func (f *FoodFactory) ContextStat(ctx mealcontext.Context, foodName string, count int, meanOutcome float64) food.ContextStat {
	return food.ContextStat{
		Context:     ctx,
		FoodName:    foodName,
		Count:       count,
		MeanOutcome: meanOutcome,
	}
}
