// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the use cases the engine exposes to the transport layer
package inbound

import (
	"context"

	"github.com/moodplate/engine/internal/domain/recommendation"
)

// RecommendCommand is one recommendation request, fields in wire form.
type RecommendCommand struct {
	UserID      string
	Mood        string // pos | neu | neg
	Energy      string // low | med | hig
	Date        string // YYYYMMDD
	Slot        string // M | L | D
	CurrentFood string
	RecentFoods []string
}

// RecommendationService is the engine's single use case: produce and
// persist up to three complementary menu candidates for a (user, date,
// slot) key.
type RecommendationService interface {
	Recommend(ctx context.Context, cmd RecommendCommand) (*recommendation.Result, error)
}
