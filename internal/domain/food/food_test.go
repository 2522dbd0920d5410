package food

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const tolerance = 1e-9

func TestNewMacroRatioNormalizes(t *testing.T) {
	// 50g carb, 30g protein, 20g fat: 200 + 120 + 180 kcal = 500 kcal.
	r := NewMacroRatio(50, 30, 20)
	assert.InDelta(t, 0.40, r.Carb, tolerance)
	assert.InDelta(t, 0.24, r.Protein, tolerance)
	assert.InDelta(t, 0.36, r.Fat, tolerance)
	assert.InDelta(t, 1.0, r.Sum(), tolerance)
}

func TestNewMacroRatioDegenerateInputs(t *testing.T) {
	assert.Equal(t, EqualRatio, NewMacroRatio(0, 0, 0))
	assert.Equal(t, EqualRatio, NewMacroRatio(-10, -5, 0))

	// Negative components clamp to zero rather than poisoning the total.
	r := NewMacroRatio(-10, 0, 10)
	assert.InDelta(t, 0.0, r.Carb, tolerance)
	assert.InDelta(t, 1.0, r.Fat, tolerance)
	assert.InDelta(t, 1.0, r.Sum(), tolerance)
}

func TestNormalizeRatioKeepsFractionUnits(t *testing.T) {
	// Slider input is already kcal fractions: 0.5/0.3/0.2 passes through
	// unchanged, with no 4/4/9 gram conversion.
	r := NormalizeRatio(0.5, 0.3, 0.2)
	assert.InDelta(t, 0.5, r.Carb, tolerance)
	assert.InDelta(t, 0.3, r.Protein, tolerance)
	assert.InDelta(t, 0.2, r.Fat, tolerance)

	// A triple not summing to 1 renormalizes proportionally.
	r = NormalizeRatio(2, 1, 1)
	assert.InDelta(t, 0.5, r.Carb, tolerance)
	assert.InDelta(t, 0.25, r.Protein, tolerance)
	assert.InDelta(t, 1.0, r.Sum(), tolerance)

	assert.Equal(t, EqualRatio, NormalizeRatio(0, 0, 0))
	assert.Equal(t, EqualRatio, NormalizeRatio(-1, -1, 0))
}

func TestBlendRenormalizes(t *testing.T) {
	a := MacroRatio{Carb: 0.6, Protein: 0.3, Fat: 0.1}
	b := MacroRatio{Carb: 0.2, Protein: 0.3, Fat: 0.5}

	blended := a.Blend(b, 0.5)
	assert.InDelta(t, 0.4, blended.Carb, tolerance)
	assert.InDelta(t, 0.3, blended.Protein, tolerance)
	assert.InDelta(t, 0.3, blended.Fat, tolerance)
	assert.InDelta(t, 1.0, blended.Sum(), tolerance)

	// w=1 keeps the receiver, w=0 yields the other side.
	assert.InDelta(t, a.Carb, a.Blend(b, 1).Carb, tolerance)
	assert.InDelta(t, a.Fat, a.Blend(b, 1).Fat, tolerance)
	assert.InDelta(t, b.Carb, a.Blend(b, 0).Carb, tolerance)

	assert.Equal(t, EqualRatio, MacroRatio{}.Blend(MacroRatio{}, 0.5))
}

func TestL1Distance(t *testing.T) {
	assert.InDelta(t, 0.0, HealthyRatio.L1Distance(HealthyRatio), tolerance)

	a := MacroRatio{Carb: 1, Protein: 0, Fat: 0}
	b := MacroRatio{Carb: 0, Protein: 1, Fat: 0}
	assert.InDelta(t, 2.0, a.L1Distance(b), tolerance)

	// Symmetric.
	assert.InDelta(t, a.L1Distance(b), b.L1Distance(a), tolerance)
}

func TestHealthyRatioAnchor(t *testing.T) {
	assert.InDelta(t, 1.0, HealthyRatio.Sum(), tolerance)
	assert.Equal(t, 0.5, HealthyRatio.Carb)
	assert.Equal(t, 0.3, HealthyRatio.Protein)
	assert.Equal(t, 0.2, HealthyRatio.Fat)
}
