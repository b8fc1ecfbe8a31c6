package compat

import (
	"math"
	"sort"

	"github.com/spigell/blindmatch/internal/profile"
)

const (
	sameCommunicationFit = 0.7

	bothInRangeMatch    = 0.8
	oneInRangeMatch     = 0.5
	neitherInRangeMatch = 0.2
	relationshipBonus   = 0.2

	dealbreakerPenalty = 0.5
)

// ComplementaryScorer rates how well two personalities complement each other, in [0,1].
type ComplementaryScorer interface {
	Complementary(a, b profile.Profile) float64
}

// FixedComplementary scores every pair with the same value.
type FixedComplementary float64

func (f FixedComplementary) Complementary(profile.Profile, profile.Profile) float64 { return float64(f) }

// Model is the static compatibility model. It is stateless and safe for concurrent use.
type Model struct {
	weights       Weights
	complementary ComplementaryScorer
}

// NewModel returns a Model. A nil scorer falls back to a fixed 0.5.
func NewModel(weights Weights, complementary ComplementaryScorer) *Model {
	if complementary == nil {
		complementary = FixedComplementary(neutralScore)
	}
	return &Model{weights: weights, complementary: complementary}
}

func (m *Model) Weights() Weights { return m.weights }

// Score rates a pair of profiles from their attributes alone and explains the
// result in the returned details.
func (m *Model) Score(a, b profile.Profile) (float64, Details) {
	interestsA, interestsB := toSet(a.Interests), toSet(b.Interests)
	shared := intersect(interestsA, interestsB)

	values := valuesAlignment(a.Values, b.Values)
	interests := interestOverlap(interestsA, interestsB, len(shared))
	personality := personalityFit(a.Personality, b.Personality)
	humor := humorCompatibility(a.Personality.HumorStyle, b.Personality.HumorStyle)
	preference := preferenceMatch(a, b)
	complementary := clamp01(m.complementary.Complementary(a, b))

	conflict := hasDealbreakerConflict(a.Dealbreakers, interestsB) || hasDealbreakerConflict(b.Dealbreakers, interestsA)
	if conflict {
		preference *= dealbreakerPenalty
	}

	w := m.weights
	score := clamp01(values*w.ValuesAlignment +
		interests*w.InterestOverlap +
		personality*w.PersonalityFit +
		preference*w.PreferenceMatch +
		complementary*w.ComplementaryTraits)

	details := Details{
		KeyValuesAlignment:     values,
		KeyInterestOverlap:     interests,
		KeyPersonalityFit:      personality,
		KeyHumorCompatibility:  humor,
		KeyPreferenceMatch:     preference,
		KeyComplementaryTraits: complementary,
		KeySharedInterests:     shared,
		KeyDealbreakerConflict: conflict,
		KeyInitialScore:        score,
	}

	return score, details
}

func valuesAlignment(a, b map[string]float64) float64 {
	if len(a) == 0 || len(b) == 0 {
		return neutralScore
	}

	var sum float64
	var n int
	for key, va := range a {
		vb, ok := b[key]
		if !ok {
			continue
		}
		sum += 1 - math.Abs(clamp01(va)-clamp01(vb))
		n++
	}

	if n == 0 {
		return neutralScore
	}
	return sum / float64(n)
}

func interestOverlap(a, b map[string]struct{}, shared int) float64 {
	if len(a) == 0 || len(b) == 0 {
		return neutralScore
	}
	union := len(a) + len(b) - shared
	return float64(shared) / float64(union)
}

func personalityFit(a, b profile.Personality) float64 {
	if a.Communication != "" && a.Communication == b.Communication {
		return sameCommunicationFit
	}
	return neutralScore
}

func humorCompatibility(a, b []string) float64 {
	setA, setB := toSet(a), toSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return neutralScore
	}
	shared := len(intersect(setA, setB))
	return float64(shared) / float64(max(len(setA), len(setB)))
}

func preferenceMatch(a, b profile.Profile) float64 {
	score := neutralScore

	if a.HasAge() && b.HasAge() {
		aFitsB := b.LookingFor.Range().Contains(*a.Age)
		bFitsA := a.LookingFor.Range().Contains(*b.Age)
		switch {
		case aFitsB && bFitsA:
			score = bothInRangeMatch
		case aFitsB || bFitsA:
			score = oneInRangeMatch
		default:
			score = neitherInRangeMatch
		}
	}

	relA, relB := a.LookingFor.RelationshipType, b.LookingFor.RelationshipType
	if relA != "" && relA == relB {
		score = min(score+relationshipBonus, 1.0)
	}

	return score
}

func hasDealbreakerConflict(dealbreakers []string, interests map[string]struct{}) bool {
	for _, d := range dealbreakers {
		if _, ok := interests[d]; ok {
			return true
		}
	}
	return false
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item == "" {
			continue
		}
		set[item] = struct{}{}
	}
	return set
}

// intersect returns the sorted intersection of two sets.
func intersect(a, b map[string]struct{}) []string {
	if len(b) < len(a) {
		a, b = b, a
	}

	shared := make([]string, 0, len(a))
	for item := range a {
		if _, ok := b[item]; ok {
			shared = append(shared, item)
		}
	}
	sort.Strings(shared)
	return shared
}
