package recommendation

import (
	"regexp"

	"github.com/moodplate/engine/internal/domain/food"
	"github.com/moodplate/engine/internal/domain/mealcontext"
	"github.com/moodplate/engine/internal/ports/inbound"
	"github.com/moodplate/engine/internal/ports/outbound"
	apperrors "github.com/moodplate/engine/pkg/errors"
)

var datePattern = regexp.MustCompile(`^\d{8}$`)

// mealsRemaining maps a slot to the number of meals left in the day,
// including the requested one.
var mealsRemaining = map[string]int{"M": 3, "L": 2, "D": 1}

// validate checks the wire-level request contract and normalizes the
// context labels. Runs before any lock is acquired and fails fast.
func validate(cmd inbound.RecommendCommand) (mealcontext.Context, error) {
	if cmd.UserID == "" {
		return mealcontext.Context{}, apperrors.NewValidationError("userId is required")
	}
	if !datePattern.MatchString(cmd.Date) {
		return mealcontext.Context{}, apperrors.NewValidationError("date must be 8 numeric digits (YYYYMMDD)")
	}
	if _, ok := mealsRemaining[cmd.Slot]; !ok {
		return mealcontext.Context{}, apperrors.NewValidationError("slot must be one of M, L, D")
	}
	ctx, err := mealcontext.Parse(cmd.Mood, cmd.Energy)
	if err != nil {
		return mealcontext.Context{}, apperrors.NewValidationError(err.Error())
	}
	return ctx, nil
}

// resolveMealTarget splits the remaining daily budget across the meals
// still to come. Remaining calories never go negative.
func resolveMealTarget(recommended, eatenToday float64, slot string) (target, remaining float64) {
	remaining = recommended - eatenToday
	if remaining < 0 {
		remaining = 0
	}
	return remaining / float64(mealsRemaining[slot]), remaining
}

// resolveTargetVector picks the macro target by source priority: an
// explicit declared ratio (hybrid-blended with observed intake) beats the
// 7-day observed ratio, which beats the fixed healthy default.
func resolveTargetVector(profile *outbound.Profile, recent outbound.MacroSum, hybridAlpha float64) food.MacroRatio {
	observed := food.EqualRatio
	hasObserved := !recent.IsZero()
	if hasObserved {
		observed = food.NewMacroRatio(recent.CarbG, recent.ProteinG, recent.FatG)
	}

	if profile.HasDeclaredRatio {
		declared := normalizeDeclared(profile)
		return declared.Blend(observed, hybridAlpha)
	}
	if hasObserved {
		return observed
	}
	return food.HealthyRatio
}

// normalizeDeclared renormalizes the slider input, which is already a kcal
// fraction triple but may not sum exactly to 1.
func normalizeDeclared(profile *outbound.Profile) food.MacroRatio {
	return food.NormalizeRatio(
		profile.DeclaredCarbRatio,
		profile.DeclaredProteinRatio,
		profile.DeclaredFatRatio,
	)
}

// buildExclusions collects the foods the scorer must not return.
func buildExclusions(cmd inbound.RecommendCommand) map[string]bool {
	exclude := make(map[string]bool, len(cmd.RecentFoods)+1)
	if cmd.CurrentFood != "" {
		exclude[cmd.CurrentFood] = true
	}
	for _, name := range cmd.RecentFoods {
		if name != "" {
			exclude[name] = true
		}
	}
	return exclude
}
