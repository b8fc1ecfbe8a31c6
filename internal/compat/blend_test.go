package compat

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/spigell/blindmatch/internal/conversation"
	"github.com/spigell/blindmatch/internal/profile"
)

func message(sender string, a conversation.MessageAnalysis) conversation.Message {
	return conversation.Message{SenderID: sender, Analysis: &a}
}

func lively() conversation.MessageAnalysis {
	a := conversation.Neutral()
	a.Sentiment = conversation.SentimentPositive
	a.EngagementLevel = 8
	a.ConversationDepth = conversation.DepthDeep
	a.HumorDetected = true
	a.ValueSignals = []string{"family", "honesty"}
	return a
}

func TestMessageFactor(t *testing.T) {
	tests := []struct {
		count int
		want  float64
	}{
		{count: 0, want: 0},
		{count: 10, want: 0.2},
		{count: 25, want: 0.5},
		{count: 30, want: 0.6},
		{count: 500, want: 0.6},
	}

	for _, tt := range tests {
		approx(t, "factor", MessageFactor(tt.count), tt.want)
	}
}

func TestBlendEmptyHistoryKeepsInitialScore(t *testing.T) {
	details := Details{KeyInitialScore: 0.72, "custom": "kept"}

	score, got := NewBlender(DefaultConversationWeights(), nil).Blend(profile.Profile{}, profile.Profile{}, nil, details)

	approx(t, "score", score, 0.72)
	if !reflect.DeepEqual(got, details) {
		t.Fatalf("expected details unchanged, got %v", got)
	}
}

func TestBlendMissingInitialScoreDefaults(t *testing.T) {
	score, _ := NewBlender(DefaultConversationWeights(), nil).Blend(profile.Profile{}, profile.Profile{}, nil, nil)
	approx(t, "score", score, 0.5)
}

func TestBlendTenMessages(t *testing.T) {
	history := make([]conversation.Message, 0, 10)
	for i := range 10 {
		a := lively()
		if i < 3 {
			a.QuestionsAsked = 1
		}
		sender := "a"
		if i%2 == 1 {
			sender = "b"
		}
		history = append(history, message(sender, a))
	}

	details := Details{KeyInitialScore: 0.567, "note": "carried"}
	score, updated := NewBlender(DefaultConversationWeights(), nil).Blend(profile.Profile{}, profile.Profile{}, history, details)

	approx(t, "score", score, 0.5926)

	signals, ok := updated.ConversationSignals()
	if !ok {
		t.Fatalf("expected stored signals")
	}
	approx(t, "engagement", signals.Engagement, 0.8)
	approx(t, "depth", signals.Depth, 0.9)
	approx(t, "humor", signals.HumorCompatibility, 0.7)
	approx(t, "values", signals.ValueDiscovery, 0.6)
	approx(t, "conflict", signals.ConflictHandling, 0.5)
	approx(t, "curiosity", signals.MutualCuriosity, 0.6)
	approx(t, "adjustment", DefaultConversationWeights().Adjustment(signals), 0.695)

	analysis, ok := updated.ConversationAnalysis()
	if !ok || analysis.MessageCount != 10 {
		t.Fatalf("unexpected stored analysis %+v", analysis)
	}

	current, _ := updated.Float(KeyCurrentScore)
	approx(t, "current", current, score)
	if updated["note"] != "carried" {
		t.Fatalf("expected unknown keys preserved")
	}
	if _, ok := details[KeyCurrentScore]; ok {
		t.Fatalf("input details must not be modified")
	}
	approx(t, "initial", updated.InitialScore(), 0.567)
}

func TestBlendIsIdempotent(t *testing.T) {
	history := []conversation.Message{message("a", lively()), message("b", lively())}
	details := Details{KeyInitialScore: 0.6}
	blender := NewBlender(DefaultConversationWeights(), nil)

	first, once := blender.Blend(profile.Profile{}, profile.Profile{}, history, details)
	second, twice := blender.Blend(profile.Profile{}, profile.Profile{}, history, once)

	approx(t, "rerun", second, first)
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("expected same details\n%v\n%v", once, twice)
	}
}

func TestBlendAfterJSONRoundTrip(t *testing.T) {
	history := []conversation.Message{message("a", lively())}
	blender := NewBlender(DefaultConversationWeights(), nil)

	first, details := blender.Blend(profile.Profile{}, profile.Profile{}, history, Details{KeyInitialScore: 0.4})

	raw, err := json.Marshal(details)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var stored Details
	if err := json.Unmarshal(raw, &stored); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	second, _ := blender.Blend(profile.Profile{}, profile.Profile{}, history, stored)
	approx(t, "rerun", second, first)

	if _, ok := stored.ConversationAnalysis(); !ok {
		t.Fatalf("expected analysis to decode from JSON")
	}
}

func TestBlendUnanalysedHistoryUsesNeutralAnalysis(t *testing.T) {
	history := []conversation.Message{{SenderID: "a"}, {SenderID: "b"}}

	score, details := NewBlender(DefaultConversationWeights(), nil).Blend(profile.Profile{}, profile.Profile{}, history, Details{KeyInitialScore: 0.5})

	analysis, ok := details.ConversationAnalysis()
	if !ok {
		t.Fatalf("expected stored analysis")
	}
	if analysis.AvgEngagement != conversation.DefaultEngagement || analysis.MessageCount != 2 {
		t.Fatalf("unexpected neutral analysis %+v", analysis)
	}

	// 0.5*0.15 + 0.6*0.20 + 0.4*0.15 + 0.4*0.25 + 0.5*0.15 + 0.5*0.10 = 0.48
	approx(t, "score", score, 0.5*0.96+0.48*0.04)
}

func TestBlendRecencyBonuses(t *testing.T) {
	warm := conversation.Neutral()
	warm.VulnerabilityShown = true
	warm.ConnectionIndicators = 9

	cold := conversation.Neutral()

	blender := NewBlender(DefaultConversationWeights(), nil)

	base, _ := blender.Blend(profile.Profile{}, profile.Profile{}, []conversation.Message{message("a", cold)}, Details{KeyInitialScore: 0.5})
	bonus, _ := blender.Blend(profile.Profile{}, profile.Profile{}, []conversation.Message{message("a", warm)}, Details{KeyInitialScore: 0.5})

	approx(t, "bonus", bonus-base, 0.03)

	// Only the last five messages earn a bonus.
	old := []conversation.Message{message("a", warm)}
	for range 5 {
		old = append(old, message("b", cold))
	}
	recent := []conversation.Message{message("a", cold)}
	for range 5 {
		recent = append(recent, message("b", cold))
	}
	withOld, _ := blender.Blend(profile.Profile{}, profile.Profile{}, old, Details{KeyInitialScore: 0.5})
	withoutOld, _ := blender.Blend(profile.Profile{}, profile.Profile{}, recent, Details{KeyInitialScore: 0.5})
	approx(t, "window", withOld, withoutOld)
}

func TestBlendClampsAtOne(t *testing.T) {
	warm := lively()
	warm.EngagementLevel = 10
	warm.VulnerabilityShown = true
	warm.ConnectionIndicators = 10

	history := make([]conversation.Message, 0, 40)
	for range 40 {
		history = append(history, message("a", warm))
	}

	engagementOnly := ConversationWeights{Engagement: 1}
	score, _ := NewBlender(engagementOnly, nil).Blend(profile.Profile{}, profile.Profile{}, history, Details{KeyInitialScore: 1})
	if score != 1 {
		t.Fatalf("expected score clamped to 1, got %v", score)
	}
}

func TestHighlights(t *testing.T) {
	details := Details{
		KeySharedInterests:    []any{"chess", "hiking", "jazz", "wine"},
		KeyValuesAlignment:    0.9,
		KeyHumorCompatibility: 0.5,
	}

	want := []string{"You both love: chess, hiking, jazz", "Strong values alignment"}
	if got := Highlights(details); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if got := Highlights(Details{}); len(got) != 0 {
		t.Fatalf("expected no highlights, got %v", got)
	}
}
