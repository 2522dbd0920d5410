// Package mealcontext defines the two-axis emotional context a
// recommendation is made in: mood and energy at meal time.
//
// Artifact files and inbound requests carry these labels in several loose
// spellings; normalization happens here, once, at the boundary. Downstream
// code only ever sees the canonical enums.
package mealcontext

import (
	"fmt"
	"strings"
)

// Mood is the emotional valence axis.
type Mood string

// Energy is the arousal axis.
type Energy string

const (
	MoodPositive Mood = "positive"
	MoodNeutral  Mood = "neutral"
	MoodNegative Mood = "negative"

	EnergyLow    Energy = "low"
	EnergyMedium Energy = "medium"
	EnergyHigh   Energy = "high"
)

// Context is a (mood, energy) pair.
type Context struct {
	Mood   Mood
	Energy Energy
}

func (c Context) String() string {
	return string(c.Mood) + "/" + string(c.Energy)
}

var moodAliases = map[string]Mood{
	"positive": MoodPositive,
	"pos":      MoodPositive,
	"good":     MoodPositive,
	"neutral":  MoodNeutral,
	"neu":      MoodNeutral,
	"negative": MoodNegative,
	"neg":      MoodNegative,
	"bad":      MoodNegative,
}

var energyAliases = map[string]Energy{
	"low":    EnergyLow,
	"lo":     EnergyLow,
	"medium": EnergyMedium,
	"med":    EnergyMedium,
	"mid":    EnergyMedium,
	"high":   EnergyHigh,
	"hig":    EnergyHigh,
	"hi":     EnergyHigh,
}

// ParseMood maps a loosely-typed mood label to the canonical vocabulary.
func ParseMood(s string) (Mood, error) {
	if m, ok := moodAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m, nil
	}
	return "", fmt.Errorf("unknown mood label %q", s)
}

// ParseEnergy maps a loosely-typed energy label to the canonical vocabulary.
func ParseEnergy(s string) (Energy, error) {
	if e, ok := energyAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return e, nil
	}
	return "", fmt.Errorf("unknown energy label %q", s)
}

// Parse normalizes a (mood, energy) label pair.
func Parse(mood, energy string) (Context, error) {
	m, err := ParseMood(mood)
	if err != nil {
		return Context{}, err
	}
	e, err := ParseEnergy(energy)
	if err != nil {
		return Context{}, err
	}
	return Context{Mood: m, Energy: e}, nil
}

// recoveryContexts are the calm, non-negative states whose historical food
// choices are used to steer distressed or overstimulated users.
var recoveryContexts = []Context{
	{MoodPositive, EnergyLow},
	{MoodPositive, EnergyMedium},
	{MoodNeutral, EnergyLow},
}

// stableContexts is the superset of recovery states that also counts as
// "already in a good place": candidates come from the user's own context.
var stableContexts = []Context{
	{MoodPositive, EnergyLow},
	{MoodPositive, EnergyMedium},
	{MoodNeutral, EnergyLow},
	{MoodNeutral, EnergyMedium},
}

// IsStable reports whether candidates should be pooled from the context
// itself rather than from the recovery union.
func (c Context) IsStable() bool {
	for _, s := range stableContexts {
		if c == s {
			return true
		}
	}
	return false
}

// RecoveryContexts returns the fixed recovery pool, in stable order.
func RecoveryContexts() []Context {
	out := make([]Context, len(recoveryContexts))
	copy(out, recoveryContexts)
	return out
}

// IsStructurallyUnstable classifies a context as unstable by structure
// alone: negative mood or high energy, regardless of the other axis.
// Foods logged only in such contexts are blacklisted by the builder.
func (c Context) IsStructurallyUnstable() bool {
	return c.Mood == MoodNegative || c.Energy == EnergyHigh
}

// All enumerates the full nine-cell context grid.
func All() []Context {
	moods := []Mood{MoodPositive, MoodNeutral, MoodNegative}
	energies := []Energy{EnergyLow, EnergyMedium, EnergyHigh}
	out := make([]Context, 0, 9)
	for _, m := range moods {
		for _, e := range energies {
			out = append(out, Context{m, e})
		}
	}
	return out
}
