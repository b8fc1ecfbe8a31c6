package profile

import (
	"math"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// FromAttributes builds a Profile from a raw attribute map such as a decoded
// JSON document. Every attribute is decoded on its own: a malformed attribute
// is left at its neutral default and never fails the whole profile.
func FromAttributes(attrs map[string]any) Profile {
	var p Profile

	decodeInto(attrs["id"], &p.ID)
	decodeInto(attrs["pseudonym"], &p.Pseudonym)
	decodeInto(attrs["display_name"], &p.DisplayName)

	var status string
	if decodeInto(attrs["status"], &status) {
		p.Status = Status(strings.ToLower(strings.TrimSpace(status)))
	}

	var age int
	if decodeInto(attrs["age"], &age) && age > 0 {
		p.Age = &age
	}

	var interests, dealbreakers []string
	if decodeInto(attrs["interests"], &interests) {
		p.Interests = cleanSet(interests)
	}
	if decodeInto(attrs["dealbreakers"], &dealbreakers) {
		p.Dealbreakers = cleanSet(dealbreakers)
	}

	var values map[string]float64
	if decodeInto(attrs["values"], &values) {
		p.Values = cleanValues(values)
	}

	var personality Personality
	if decodeInto(attrs["personality"], &personality) {
		personality.Communication = strings.TrimSpace(personality.Communication)
		personality.HumorStyle = cleanSet(personality.HumorStyle)
		p.Personality = personality
	}

	var lookingFor LookingFor
	if decodeInto(attrs["looking_for"], &lookingFor) {
		lookingFor.RelationshipType = strings.TrimSpace(lookingFor.RelationshipType)
		p.LookingFor = lookingFor
	}

	var completed time.Time
	if decodeInto(attrs["onboarding_completed"], &completed) && !completed.IsZero() {
		p.OnboardingCompleted = &completed
	}

	var vector []float32
	if decodeInto(attrs["vector"], &vector) && len(vector) > 0 {
		p.Vector = vector
	}

	return p
}

func decodeInto(input any, out any) bool {
	if input == nil {
		return false
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeHookFunc(time.RFC3339),
		Result:           out,
	})
	if err != nil {
		return false
	}

	return decoder.Decode(input) == nil
}

func cleanSet(items []string) []string {
	if len(items) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(items))
	result := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		result = append(result, item)
	}

	return result
}

func cleanValues(values map[string]float64) map[string]float64 {
	if len(values) == 0 {
		return nil
	}

	result := make(map[string]float64, len(values))
	for key, v := range values {
		key = strings.TrimSpace(key)
		if key == "" || math.IsNaN(v) {
			continue
		}
		result[key] = min(max(v, 0), 1)
	}

	return result
}
