// Package profile holds the read-only view of a user's profile that the
// compatibility engine scores.
package profile

import "time"

type Status string

const (
	StatusOnboarding Status = "onboarding"
	StatusActive     Status = "active"
	StatusPaused     Status = "paused"
	StatusInChat     Status = "in_chat"
)

const (
	DefaultMinAge = 18
	DefaultMaxAge = 100
)

// Profile is the attribute set of one user. ID is the user identifier.
type Profile struct {
	ID                  string             `json:"id"`
	Age                 *int               `json:"age,omitempty"`
	Interests           []string           `json:"interests,omitempty"`
	Dealbreakers        []string           `json:"dealbreakers,omitempty"`
	Values              map[string]float64 `json:"values,omitempty"`
	Personality         Personality        `json:"personality"`
	LookingFor          LookingFor         `json:"looking_for"`
	Status              Status             `json:"status,omitempty"`
	Pseudonym           string             `json:"pseudonym,omitempty"`
	DisplayName         string             `json:"display_name,omitempty"`
	OnboardingCompleted *time.Time         `json:"onboarding_completed,omitempty"`
	Vector              []float32          `json:"vector,omitempty"`
}

type Personality struct {
	Communication string   `json:"communication,omitempty" mapstructure:"communication"`
	HumorStyle    []string `json:"humor_style,omitempty" mapstructure:"humor_style"`
}

type LookingFor struct {
	AgeRange         AgeRange `json:"age_range" mapstructure:"age_range"`
	RelationshipType string   `json:"relationship_type,omitempty" mapstructure:"relationship_type"`
}

// AgeRange is an inclusive [min, max] pair.
type AgeRange [2]int

// Range returns the declared age range, or [18, 100] when it is unset or inverted.
func (l LookingFor) Range() AgeRange {
	r := l.AgeRange
	if r == (AgeRange{}) || r[0] > r[1] {
		return AgeRange{DefaultMinAge, DefaultMaxAge}
	}
	return r
}

func (r AgeRange) Contains(age int) bool {
	return r[0] <= age && age <= r[1]
}

// HasAge reports whether a usable age is present.
func (p Profile) HasAge() bool {
	return p.Age != nil && *p.Age > 0
}

// Complete reports whether the profile finished onboarding and carries a vector.
func (p Profile) Complete() bool {
	return p.OnboardingCompleted != nil && len(p.Vector) > 0
}

// Name returns the pseudonym shown before a reveal.
func (p Profile) Name() string {
	if p.Pseudonym == "" {
		return "Mystery Person"
	}
	return p.Pseudonym
}
