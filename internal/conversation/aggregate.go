package conversation

import (
	"sort"
	"strings"
)

const (
	humorShareThreshold = 0.3
	// One question per two messages counts as fully curious.
	expectedQuestionsPerMessage = 0.5
	defaultConflictResolution   = 0.5
	neutralQuestionBalance      = 0.5
)

// Analysis is the conversation-level summary of all analysed messages.
type Analysis struct {
	AvgEngagement           float64  `json:"avg_engagement" mapstructure:"avg_engagement"`
	OverallDepth            Depth    `json:"overall_depth" mapstructure:"overall_depth"`
	HumorMatch              bool     `json:"humor_match" mapstructure:"humor_match"`
	SharedValuesDiscovered  []string `json:"shared_values_discovered" mapstructure:"shared_values_discovered"`
	QuestionBalance         float64  `json:"question_balance" mapstructure:"question_balance"`
	ConflictResolutionScore float64  `json:"conflict_resolution_score" mapstructure:"conflict_resolution_score"`
	MessageCount            int      `json:"message_count" mapstructure:"message_count"`
	RedFlags                []string `json:"red_flags,omitempty" mapstructure:"red_flags"`
}

// ConflictScorer rates how a conversation handles disagreement, in [0,1].
type ConflictScorer interface {
	ConflictResolution(analyses []MessageAnalysis) float64
}

// FixedConflict scores every conversation with the same value.
type FixedConflict float64

func (f FixedConflict) ConflictResolution([]MessageAnalysis) float64 { return float64(f) }

// Aggregator reduces message analyses into an Analysis. It holds no state
// between calls and is safe for concurrent use.
type Aggregator struct {
	conflict ConflictScorer
}

// NewAggregator returns an Aggregator. A nil scorer falls back to a fixed 0.5.
func NewAggregator(conflict ConflictScorer) *Aggregator {
	if conflict == nil {
		conflict = FixedConflict(defaultConflictResolution)
	}
	return &Aggregator{conflict: conflict}
}

var defaultAggregator = NewAggregator(nil)

// Aggregate runs the default aggregator.
func Aggregate(messages []Message) (Analysis, bool) {
	return defaultAggregator.Aggregate(messages)
}

// Aggregate summarises the messages. The message count is len(messages);
// averages only use messages that carry an analysis. ok is false when there
// is nothing to summarise.
func (ag *Aggregator) Aggregate(messages []Message) (Analysis, bool) {
	analyses := make([]MessageAnalysis, 0, len(messages))
	for _, m := range messages {
		if m.Analysis == nil {
			continue
		}
		a := *m.Analysis
		Normalize(&a)
		analyses = append(analyses, a)
	}

	if len(analyses) == 0 {
		return Analysis{}, false
	}

	var (
		engagement int
		depth      int
		humorous   int
		questions  int
		values     = make(map[string]struct{})
		flags      = make(map[string]struct{})
	)

	for _, a := range analyses {
		engagement += a.EngagementLevel
		depth += depthRank(a.ConversationDepth)
		questions += a.QuestionsAsked
		if a.HumorDetected {
			humorous++
		}
		addSignals(values, a.ValueSignals)
		addSignals(flags, a.RedFlags)
	}

	n := float64(len(analyses))
	count := len(messages)

	return Analysis{
		AvgEngagement:           float64(engagement) / n,
		OverallDepth:            depthBucket(float64(depth) / n),
		HumorMatch:              float64(humorous)/n > humorShareThreshold,
		SharedValuesDiscovered:  sortedKeys(values),
		QuestionBalance:         min(float64(questions)/(float64(count)*expectedQuestionsPerMessage), 1.0),
		ConflictResolutionScore: clamp01(ag.conflict.ConflictResolution(analyses)),
		MessageCount:            count,
		RedFlags:                sortedKeys(flags),
	}, true
}

// NeutralAnalysis is used when messages exist but none was analysed.
func NeutralAnalysis(messageCount int) Analysis {
	return Analysis{
		AvgEngagement:           DefaultEngagement,
		OverallDepth:            DefaultDepth,
		QuestionBalance:         neutralQuestionBalance,
		ConflictResolutionScore: defaultConflictResolution,
		MessageCount:            messageCount,
	}
}

func depthRank(d Depth) int {
	switch d {
	case DepthSurface:
		return 1
	case DepthDeep:
		return 3
	default:
		return 2
	}
}

func depthBucket(avg float64) Depth {
	switch {
	case avg < 1.5:
		return DepthSurface
	case avg > 2.5:
		return DepthDeep
	default:
		return DepthMedium
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func clamp01(v float64) float64 {
	return min(max(v, 0), 1)
}

// addSignals adds the trimmed non-blank signals to set.
func addSignals(set map[string]struct{}, signals []string) {
	for _, s := range signals {
		if s = strings.TrimSpace(s); s != "" {
			set[s] = struct{}{}
		}
	}
}
