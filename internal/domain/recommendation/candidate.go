// Package recommendation defines the engine's output types: the three
// candidate slots and the per-request result envelope.
package recommendation

import (
	"github.com/moodplate/engine/internal/domain/mealcontext"
)

// CandidateType identifies the three recommendation slots.
type CandidateType string

const (
	TypePreference  CandidateType = "P"
	TypeHealth      CandidateType = "H"
	TypeExploration CandidateType = "E"

	// TypeNone marks the "no candidate" sentinel produced when a pool is
	// empty after filtering. It is an encoded degradation, not an error.
	TypeNone CandidateType = "NONE"
)

// Candidate is one scored recommendation. Ephemeral: produced per request
// and persisted by the orchestration service.
type Candidate struct {
	Type         CandidateType
	FoodName     string
	FoodID       int64
	BaseScore    float64
	FinalScore   float64
	Explanation  string
	ClusterIndex *int
	ClusterLabel string
	Pool         string
}

// IsSentinel reports whether this is a "no candidate" placeholder.
func (c Candidate) IsSentinel() bool {
	return c.Type == TypeNone
}

// NoCandidate builds the sentinel row for a slot whose pool filtered down
// to nothing. The intended slot is preserved in Pool for diagnostics.
func NoCandidate(slot CandidateType, reason string) Candidate {
	return Candidate{
		Type:         TypeNone,
		ClusterLabel: "N/A",
		Explanation:  reason,
		Pool:         string(slot),
	}
}

// Result is the engine's answer for one (user, date, slot) request.
type Result struct {
	UserID            string
	Date              string
	Slot              string
	Context           mealcontext.Context
	PerMealTarget     float64
	RemainingCalories float64
	Candidates        []Candidate
	// Skipped is set when the per-key lock could not be acquired in time.
	// The caller treats "no result yet" as transient and re-queries.
	Skipped bool
}

// Purpose is the user's dietary goal, 0-indexed internally.
type Purpose int

const (
	PurposeDiet Purpose = iota
	PurposeMaintain
	PurposeBulk
)

// PurposeFromExternal maps the 1-indexed external representation.
// Out-of-range values fall back to maintain.
func PurposeFromExternal(v int) Purpose {
	switch v {
	case 1:
		return PurposeDiet
	case 3:
		return PurposeBulk
	default:
		return PurposeMaintain
	}
}

func (p Purpose) String() string {
	switch p {
	case PurposeDiet:
		return "diet"
	case PurposeBulk:
		return "bulk"
	default:
		return "maintain"
	}
}
