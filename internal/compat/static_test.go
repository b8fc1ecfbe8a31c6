package compat

import (
	"math"
	"reflect"
	"testing"

	"github.com/spigell/blindmatch/internal/profile"
)

func intPtr(v int) *int { return &v }

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-4 {
		t.Fatalf("%s: expected %.4f, got %.4f", name, want, got)
	}
}

func TestScoreSharedValuesAndInterests(t *testing.T) {
	a := profile.Profile{ID: "a", Values: map[string]float64{"family": 0.8}, Interests: []string{"hiking", "jazz"}}
	b := profile.Profile{ID: "b", Values: map[string]float64{"family": 0.8}, Interests: []string{"hiking", "chess"}}

	score, details := NewModel(DefaultWeights(), nil).Score(a, b)

	approx(t, "score", score, 0.5667)

	values, _ := details.Float(KeyValuesAlignment)
	approx(t, "values", values, 1.0)
	interests, _ := details.Float(KeyInterestOverlap)
	approx(t, "interests", interests, 1.0/3.0)
	personality, _ := details.Float(KeyPersonalityFit)
	approx(t, "personality", personality, 0.5)
	preference, _ := details.Float(KeyPreferenceMatch)
	approx(t, "preference", preference, 0.5)

	if !reflect.DeepEqual(details.Strings(KeySharedInterests), []string{"hiking"}) {
		t.Fatalf("unexpected shared interests %v", details[KeySharedInterests])
	}
	if details.DealbreakerConflict() {
		t.Fatalf("expected no dealbreaker conflict")
	}
	approx(t, "initial", details.InitialScore(), score)
}

func TestScoreEmptyProfilesAreNeutral(t *testing.T) {
	score, details := NewModel(DefaultWeights(), nil).Score(profile.Profile{ID: "a"}, profile.Profile{ID: "b"})

	approx(t, "score", score, 0.5)
	for _, key := range []string{KeyValuesAlignment, KeyInterestOverlap, KeyPersonalityFit, KeyHumorCompatibility, KeyPreferenceMatch, KeyComplementaryTraits} {
		v, ok := details.Float(key)
		if !ok {
			t.Fatalf("missing %s", key)
		}
		approx(t, key, v, 0.5)
	}
	if shared := details.Strings(KeySharedInterests); len(shared) != 0 {
		t.Fatalf("expected no shared interests, got %v", shared)
	}
}

func TestScoreIsSymmetric(t *testing.T) {
	a := profile.Profile{
		ID:           "a",
		Age:          intPtr(30),
		Interests:    []string{"hiking", "jazz", "cooking"},
		Dealbreakers: []string{"smoking"},
		Values:       map[string]float64{"family": 0.9, "career": 0.2},
		Personality:  profile.Personality{Communication: "direct", HumorStyle: []string{"dry", "witty"}},
		LookingFor:   profile.LookingFor{AgeRange: profile.AgeRange{25, 35}, RelationshipType: "long-term"},
	}
	b := profile.Profile{
		ID:          "b",
		Age:         intPtr(40),
		Interests:   []string{"jazz", "smoking"},
		Values:      map[string]float64{"family": 0.5, "travel": 0.7},
		Personality: profile.Personality{Communication: "direct", HumorStyle: []string{"dry"}},
		LookingFor:  profile.LookingFor{AgeRange: profile.AgeRange{28, 45}, RelationshipType: "long-term"},
	}

	model := NewModel(DefaultWeights(), nil)
	ab, detailsAB := model.Score(a, b)
	ba, detailsBA := model.Score(b, a)

	approx(t, "symmetry", ab, ba)
	if !reflect.DeepEqual(detailsAB, detailsBA) {
		t.Fatalf("expected symmetric details\n%v\n%v", detailsAB, detailsBA)
	}
}

func TestScoreDimensions(t *testing.T) {
	tests := []struct {
		name string
		a, b profile.Profile
		key  string
		want float64
	}{
		{
			name: "values only on shared keys",
			a:    profile.Profile{Values: map[string]float64{"family": 0.9, "career": 0.1}},
			b:    profile.Profile{Values: map[string]float64{"family": 0.5, "travel": 1}},
			key:  KeyValuesAlignment,
			want: 0.6,
		},
		{
			name: "values without shared keys",
			a:    profile.Profile{Values: map[string]float64{"family": 0.9}},
			b:    profile.Profile{Values: map[string]float64{"travel": 0.1}},
			key:  KeyValuesAlignment,
			want: 0.5,
		},
		{
			name: "disjoint interests",
			a:    profile.Profile{Interests: []string{"jazz"}},
			b:    profile.Profile{Interests: []string{"chess"}},
			key:  KeyInterestOverlap,
			want: 0,
		},
		{
			name: "same communication style",
			a:    profile.Profile{Personality: profile.Personality{Communication: "direct"}},
			b:    profile.Profile{Personality: profile.Personality{Communication: "direct"}},
			key:  KeyPersonalityFit,
			want: 0.7,
		},
		{
			name: "different communication style",
			a:    profile.Profile{Personality: profile.Personality{Communication: "direct"}},
			b:    profile.Profile{Personality: profile.Personality{Communication: "gentle"}},
			key:  KeyPersonalityFit,
			want: 0.5,
		},
		{
			name: "humor over larger set",
			a:    profile.Profile{Personality: profile.Personality{HumorStyle: []string{"dry", "witty"}}},
			b:    profile.Profile{Personality: profile.Personality{HumorStyle: []string{"dry"}}},
			key:  KeyHumorCompatibility,
			want: 0.5,
		},
		{
			name: "both ages in range",
			a:    profile.Profile{Age: intPtr(30), LookingFor: profile.LookingFor{AgeRange: profile.AgeRange{25, 35}}},
			b:    profile.Profile{Age: intPtr(32), LookingFor: profile.LookingFor{AgeRange: profile.AgeRange{28, 40}}},
			key:  KeyPreferenceMatch,
			want: 0.8,
		},
		{
			name: "one age in range",
			a:    profile.Profile{Age: intPtr(30), LookingFor: profile.LookingFor{AgeRange: profile.AgeRange{40, 50}}},
			b:    profile.Profile{Age: intPtr(32), LookingFor: profile.LookingFor{AgeRange: profile.AgeRange{28, 40}}},
			key:  KeyPreferenceMatch,
			want: 0.5,
		},
		{
			name: "no age in range",
			a:    profile.Profile{Age: intPtr(30), LookingFor: profile.LookingFor{AgeRange: profile.AgeRange{40, 50}}},
			b:    profile.Profile{Age: intPtr(32), LookingFor: profile.LookingFor{AgeRange: profile.AgeRange{18, 25}}},
			key:  KeyPreferenceMatch,
			want: 0.2,
		},
		{
			name: "relationship bonus capped",
			a: profile.Profile{Age: intPtr(30), LookingFor: profile.LookingFor{
				AgeRange: profile.AgeRange{25, 35}, RelationshipType: "casual",
			}},
			b: profile.Profile{Age: intPtr(32), LookingFor: profile.LookingFor{
				AgeRange: profile.AgeRange{28, 40}, RelationshipType: "casual",
			}},
			key:  KeyPreferenceMatch,
			want: 1.0,
		},
		{
			name: "missing age is neutral",
			a:    profile.Profile{Age: intPtr(30)},
			b:    profile.Profile{},
			key:  KeyPreferenceMatch,
			want: 0.5,
		},
	}

	model := NewModel(DefaultWeights(), nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, details := model.Score(tt.a, tt.b)
			got, ok := details.Float(tt.key)
			if !ok {
				t.Fatalf("missing %s", tt.key)
			}
			approx(t, tt.key, got, tt.want)
		})
	}
}

func TestScoreDealbreakerHalvesPreference(t *testing.T) {
	a := profile.Profile{
		ID:           "a",
		Age:          intPtr(30),
		Dealbreakers: []string{"smoking"},
		LookingFor:   profile.LookingFor{AgeRange: profile.AgeRange{25, 35}},
	}
	b := profile.Profile{
		ID:         "b",
		Age:        intPtr(32),
		Interests:  []string{"smoking"},
		LookingFor: profile.LookingFor{AgeRange: profile.AgeRange{25, 35}},
	}

	model := NewModel(DefaultWeights(), nil)
	score, details := model.Score(a, b)

	if !details.DealbreakerConflict() {
		t.Fatalf("expected dealbreaker conflict")
	}
	preference, _ := details.Float(KeyPreferenceMatch)
	approx(t, "preference", preference, 0.4)

	b.Interests = []string{"hiking"}
	clean, _ := model.Score(a, b)
	approx(t, "penalty", clean-score, 0.4*DefaultWeights().PreferenceMatch)
}

type stubComplementary float64

func (s stubComplementary) Complementary(profile.Profile, profile.Profile) float64 { return float64(s) }

func TestScoreStaysInRange(t *testing.T) {
	perfect := profile.Profile{
		Age:         intPtr(30),
		Interests:   []string{"jazz"},
		Values:      map[string]float64{"family": 1},
		Personality: profile.Personality{Communication: "direct", HumorStyle: []string{"dry"}},
		LookingFor:  profile.LookingFor{AgeRange: profile.AgeRange{18, 99}, RelationshipType: "long-term"},
	}

	heavy := Weights{ValuesAlignment: 1, InterestOverlap: 1, PersonalityFit: 1, PreferenceMatch: 1, ComplementaryTraits: 1}
	score, _ := NewModel(heavy, stubComplementary(5)).Score(perfect, perfect)
	if score != 1 {
		t.Fatalf("expected clamp to 1, got %v", score)
	}

	score, details := NewModel(DefaultWeights(), stubComplementary(-3)).Score(perfect, perfect)
	if score < 0 || score > 1 {
		t.Fatalf("score out of range: %v", score)
	}
	complementary, _ := details.Float(KeyComplementaryTraits)
	approx(t, "complementary", complementary, 0)
}

func TestWeightsValidate(t *testing.T) {
	if err := DefaultWeights().Validate(); err != nil {
		t.Fatalf("default weights: %v", err)
	}
	if err := DefaultConversationWeights().Validate(); err != nil {
		t.Fatalf("default conversation weights: %v", err)
	}

	bad := DefaultWeights()
	bad.ValuesAlignment = 0.9
	if err := bad.Validate(); err == nil {
		t.Fatalf("expected error for weights not summing to one")
	}

	negative := DefaultConversationWeights()
	negative.Depth = -0.2
	negative.ValueDiscovery = 0.65
	if err := negative.Validate(); err == nil {
		t.Fatalf("expected error for negative weight")
	}
}
