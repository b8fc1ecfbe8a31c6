package compat

import (
	"github.com/spigell/blindmatch/internal/conversation"
	"github.com/spigell/blindmatch/internal/profile"
)

const (
	// The conversation reaches its full share of the score at this many messages.
	rampMessages         = 50
	maxConversationShare = 0.6

	recencyWindow        = 5
	vulnerabilityBonus   = 0.02
	connectionBonus      = 0.01
	connectionBonusAbove = 7

	humorMatched   = 0.7
	humorUnmatched = 0.4

	valueDiscoveryBase = 0.4
	valueDiscoveryStep = 0.1
)

// Signals are the six named conversation signals fed into the blend.
type Signals struct {
	Engagement         float64 `json:"engagement"`
	Depth              float64 `json:"depth"`
	HumorCompatibility float64 `json:"humor_compatibility"`
	ValueDiscovery     float64 `json:"value_discovery"`
	ConflictHandling   float64 `json:"conflict_handling"`
	MutualCuriosity    float64 `json:"mutual_curiosity"`
}

// SignalsFrom maps a conversation analysis onto the named signals.
func SignalsFrom(a conversation.Analysis) Signals {
	humor := humorUnmatched
	if a.HumorMatch {
		humor = humorMatched
	}

	return Signals{
		Engagement:         a.AvgEngagement / 10,
		Depth:              depthSignal(a.OverallDepth),
		HumorCompatibility: humor,
		// Grows with every shared value found; the final clamp bounds the score.
		ValueDiscovery:   valueDiscoveryBase + valueDiscoveryStep*float64(len(a.SharedValuesDiscovered)),
		ConflictHandling: a.ConflictResolutionScore,
		MutualCuriosity:  a.QuestionBalance,
	}
}

func depthSignal(d conversation.Depth) float64 {
	switch d {
	case conversation.DepthSurface:
		return 0.3
	case conversation.DepthDeep:
		return 0.9
	default:
		return 0.6
	}
}

// MessageFactor is the share of the score given to the conversation after
// count messages.
func MessageFactor(count int) float64 {
	return min(float64(count)/rampMessages, maxConversationShare)
}

// Blender refreshes a match score as the conversation evolves. It is
// stateless between calls; callers serialise updates per match.
type Blender struct {
	weights    ConversationWeights
	aggregator *conversation.Aggregator
}

// NewBlender returns a Blender. A nil aggregator uses the default one.
func NewBlender(weights ConversationWeights, aggregator *conversation.Aggregator) *Blender {
	if aggregator == nil {
		aggregator = conversation.NewAggregator(nil)
	}
	return &Blender{weights: weights, aggregator: aggregator}
}

// Blend combines the static score stored in details with the signals of the
// message history. With an empty history it returns the initial score and
// the details as given. Otherwise it returns a copy of details extended with
// the conversation analysis, the signals and the current score.
func (b *Blender) Blend(_, _ profile.Profile, history []conversation.Message, details Details) (float64, Details) {
	initial := details.InitialScore()
	if len(history) == 0 {
		return initial, details
	}

	analysis, ok := b.aggregator.Aggregate(history)
	if !ok {
		analysis = conversation.NeutralAnalysis(len(history))
	}

	signals := SignalsFrom(analysis)
	adjustment := b.weights.Adjustment(signals)
	factor := MessageFactor(len(history))

	score := clamp01(initial*(1-factor) + adjustment*factor)
	score = applyRecency(score, history)

	updated := details.Clone()
	updated[KeyConversationAnalysis] = analysis
	updated[KeyConversationSignals] = signals
	updated[KeyCurrentScore] = score

	return score, updated
}

// applyRecency rewards disclosures in the trailing messages.
func applyRecency(score float64, history []conversation.Message) float64 {
	start := max(len(history)-recencyWindow, 0)
	for _, m := range history[start:] {
		if m.Analysis == nil {
			continue
		}
		a := *m.Analysis
		conversation.Normalize(&a)

		if a.VulnerabilityShown {
			score = clamp01(score + vulnerabilityBonus)
		}
		if a.ConnectionIndicators > connectionBonusAbove {
			score = clamp01(score + connectionBonus)
		}
	}
	return score
}
