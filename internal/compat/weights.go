// Package compat scores how compatible two profiles are, first from their
// stored attributes and later blended with conversation signals.
package compat

import (
	"fmt"
	"math"
)

const weightTolerance = 1e-9

// Weights are the static model's dimension weights. They are passed by value
// and never modified after construction.
type Weights struct {
	ValuesAlignment     float64 `mapstructure:"values-alignment"`
	InterestOverlap     float64 `mapstructure:"interest-overlap"`
	PersonalityFit      float64 `mapstructure:"personality-fit"`
	PreferenceMatch     float64 `mapstructure:"preference-match"`
	ComplementaryTraits float64 `mapstructure:"complementary-traits"`
}

func DefaultWeights() Weights {
	return Weights{
		ValuesAlignment:     0.30,
		InterestOverlap:     0.20,
		PersonalityFit:      0.25,
		PreferenceMatch:     0.15,
		ComplementaryTraits: 0.10,
	}
}

func (w Weights) Validate() error {
	return validateWeights("weights", []float64{
		w.ValuesAlignment, w.InterestOverlap, w.PersonalityFit, w.PreferenceMatch, w.ComplementaryTraits,
	})
}

// ConversationWeights weight the six conversation signals.
type ConversationWeights struct {
	Engagement         float64 `mapstructure:"engagement"`
	Depth              float64 `mapstructure:"depth"`
	HumorCompatibility float64 `mapstructure:"humor-compatibility"`
	ValueDiscovery     float64 `mapstructure:"value-discovery"`
	ConflictHandling   float64 `mapstructure:"conflict-handling"`
	MutualCuriosity    float64 `mapstructure:"mutual-curiosity"`
}

func DefaultConversationWeights() ConversationWeights {
	return ConversationWeights{
		Engagement:         0.15,
		Depth:              0.20,
		HumorCompatibility: 0.15,
		ValueDiscovery:     0.25,
		ConflictHandling:   0.15,
		MutualCuriosity:    0.10,
	}
}

func (w ConversationWeights) Validate() error {
	return validateWeights("conversation weights", []float64{
		w.Engagement, w.Depth, w.HumorCompatibility, w.ValueDiscovery, w.ConflictHandling, w.MutualCuriosity,
	})
}

// Adjustment is the weighted sum of the signals.
func (w ConversationWeights) Adjustment(s Signals) float64 {
	return s.Engagement*w.Engagement +
		s.Depth*w.Depth +
		s.HumorCompatibility*w.HumorCompatibility +
		s.ValueDiscovery*w.ValueDiscovery +
		s.ConflictHandling*w.ConflictHandling +
		s.MutualCuriosity*w.MutualCuriosity
}

func validateWeights(name string, weights []float64) error {
	var sum float64
	for _, w := range weights {
		if w < 0 || math.IsNaN(w) {
			return fmt.Errorf("%s: weight %v must be non-negative", name, w)
		}
		sum += w
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%s: weights sum to %.6f, expected 1.0", name, sum)
	}
	return nil
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(max(v, 0), 1)
}
