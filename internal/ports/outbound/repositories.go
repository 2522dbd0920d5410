// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the engine uses to interact with external systems
package outbound

import (
	"context"
	"time"
)

// Profile is the user's stored preference profile.
type Profile struct {
	UserID string
	// Purpose uses the 1-indexed external representation: 1=diet,
	// 2=maintain, 3=bulk.
	Purpose              int
	RecommendedCalories  float64
	DeclaredCarbRatio    float64
	DeclaredProteinRatio float64
	DeclaredFatRatio     float64
	// HasDeclaredRatio distinguishes an explicit slider input from an
	// unconfigured profile.
	HasDeclaredRatio bool
}

// MacroSum is a summed intake over some window.
type MacroSum struct {
	Kcal     float64
	CarbG    float64
	ProteinG float64
	FatG     float64
}

// IsZero reports whether nothing was eaten in the window.
func (m MacroSum) IsZero() bool {
	return m.Kcal == 0 && m.CarbG == 0 && m.ProteinG == 0 && m.FatG == 0
}

// ProfileRepository reads user profiles and the consumption ledger.
type ProfileRepository interface {
	// GetProfile returns the profile or a PROFILE_NOT_FOUND error.
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	// GetDayEatenSum sums what the user ate on a YYYYMMDD date.
	GetDayEatenSum(ctx context.Context, userID, date string) (MacroSum, error)
	// GetRecentMacroSum sums intake over the trailing N days.
	GetRecentMacroSum(ctx context.Context, userID string, days int) (MacroSum, error)
}

// CatalogRepository resolves food names to catalog identifiers.
type CatalogRepository interface {
	MapFoodNamesToIDs(ctx context.Context, names []string) (map[string]int64, error)
}

// RecommendationRow is one persisted candidate.
type RecommendationRow struct {
	Type         string
	FoodID       int64
	FoodName     string
	Score        float64
	ClusterLabel string
	Explanation  string
}

// RecommendationRepository persists the final candidate set.
type RecommendationRepository interface {
	// UpsertRecommendations writes all rows for (user, date, slot) in one
	// transaction, idempotent by (user, date, slot, type) with
	// last-write-wins conflict semantics.
	UpsertRecommendations(ctx context.Context, userID, date, slot string, rows []RecommendationRow) error
}

// ReleaseFunc releases an acquired lock. Safe to call exactly once.
type ReleaseFunc func()

// Locker provides named advisory locks for per-key mutual exclusion.
type Locker interface {
	// Acquire tries to take the lock within wait. ok=false with a nil
	// error means the lock is held elsewhere; callers treat that as a
	// soft skip, never a fault.
	Acquire(ctx context.Context, key string, ttl, wait time.Duration) (release ReleaseFunc, ok bool, err error)
}
