package compat

import (
	"maps"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/blindmatch/internal/conversation"
)

// Keys written by the compatibility engine.
const (
	KeyValuesAlignment      = "values_alignment"
	KeyInterestOverlap      = "interest_overlap"
	KeyPersonalityFit       = "personality_fit"
	KeyHumorCompatibility   = "humor_compatibility"
	KeyPreferenceMatch      = "preference_match"
	KeyComplementaryTraits  = "complementary_traits"
	KeySharedInterests      = "shared_interests"
	KeyDealbreakerConflict  = "dealbreaker_conflict"
	KeyInitialScore         = "initial_score"
	KeyConversationAnalysis = "conversation_analysis"
	KeyConversationSignals  = "conversation_signals"
	KeyCurrentScore         = "current_score"
)

const neutralScore = 0.5

// Details explains a compatibility score. It is owned by the caller and
// usually persisted as JSON; the engine only writes the keys above and
// carries any other key through untouched.
type Details map[string]any

// Clone returns a shallow copy. A nil receiver yields an empty map.
func (d Details) Clone() Details {
	out := make(Details, len(d)+4)
	maps.Copy(out, d)
	return out
}

// Float reads a numeric entry, accepting the shapes JSON round-trips produce.
func (d Details) Float(key string) (float64, bool) {
	var v float64
	return v, decodeValue(d[key], &v)
}

func (d Details) Bool(key string) bool {
	var v bool
	decodeValue(d[key], &v)
	return v
}

func (d Details) Strings(key string) []string {
	var v []string
	decodeValue(d[key], &v)
	return v
}

// InitialScore returns the stored static score, or 0.5 when it is missing.
func (d Details) InitialScore() float64 {
	if v, ok := d.Float(KeyInitialScore); ok {
		return clamp01(v)
	}
	return neutralScore
}

// DealbreakerConflict reports the stored conflict flag.
func (d Details) DealbreakerConflict() bool {
	return d.Bool(KeyDealbreakerConflict)
}

// ConversationAnalysis decodes the stored conversation analysis, if any.
func (d Details) ConversationAnalysis() (conversation.Analysis, bool) {
	var a conversation.Analysis
	return a, decodeValue(d[KeyConversationAnalysis], &a)
}

// ConversationSignals decodes the stored conversation signals, if any.
func (d Details) ConversationSignals() (Signals, bool) {
	var s Signals
	return s, decodeValue(d[KeyConversationSignals], &s)
}

func decodeValue(input any, out any) bool {
	if input == nil {
		return false
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "json",
		Result:           out,
	})
	if err != nil {
		return false
	}

	return decoder.Decode(input) == nil
}
