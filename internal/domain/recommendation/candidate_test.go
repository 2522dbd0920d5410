package recommendation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPurposeFromExternal(t *testing.T) {
	assert.Equal(t, PurposeDiet, PurposeFromExternal(1))
	assert.Equal(t, PurposeMaintain, PurposeFromExternal(2))
	assert.Equal(t, PurposeBulk, PurposeFromExternal(3))

	// Out-of-range values degrade to maintain.
	assert.Equal(t, PurposeMaintain, PurposeFromExternal(0))
	assert.Equal(t, PurposeMaintain, PurposeFromExternal(7))
}

func TestNoCandidateSentinel(t *testing.T) {
	s := NoCandidate(TypeHealth, "pool empty")
	assert.True(t, s.IsSentinel())
	assert.Equal(t, TypeNone, s.Type)
	assert.Equal(t, string(TypeHealth), s.Pool)
	assert.Equal(t, "pool empty", s.Explanation)
	assert.Equal(t, "N/A", s.ClusterLabel)

	real := Candidate{Type: TypePreference, FoodName: "oatmeal"}
	assert.False(t, real.IsSentinel())
}
