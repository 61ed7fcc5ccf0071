package draft

import "strings"

// Creativity selects a sampling profile.
type Creativity string

const (
	Precise  Creativity = "precise"
	Balanced Creativity = "balanced"
	Creative Creativity = "creative"
)

// Profile controls the variability of model output.
type Profile struct {
	Temperature   float64
	TopP          float64
	RepeatPenalty float64
}

var profiles = map[Creativity]Profile{
	Precise:  {Temperature: 0.2, TopP: 0.8, RepeatPenalty: 1.15},
	Balanced: {Temperature: 0.5, TopP: 0.9, RepeatPenalty: 1.1},
	Creative: {Temperature: 0.8, TopP: 0.95, RepeatPenalty: 1.05},
}

// ParseCreativity maps free text onto a known level. Unknown or empty values
// become Balanced.
func ParseCreativity(s string) Creativity {
	c := Creativity(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := profiles[c]; ok {
		return c
	}
	return Balanced
}

// ProfileFor returns the preset for c, Balanced when c is unknown.
func ProfileFor(c Creativity) Profile {
	return profiles[ParseCreativity(string(c))]
}
