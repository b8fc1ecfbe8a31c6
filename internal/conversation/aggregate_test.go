package conversation

import (
	"math"
	"reflect"
	"testing"
)

func analysed(a MessageAnalysis) Message {
	return Message{SenderID: "u1", Analysis: &a}
}

func base() MessageAnalysis {
	return Neutral()
}

func TestAggregateEmpty(t *testing.T) {
	if _, ok := Aggregate(nil); ok {
		t.Fatalf("expected no analysis for empty history")
	}

	if _, ok := Aggregate([]Message{{SenderID: "u1"}, {SenderID: "u2"}}); ok {
		t.Fatalf("expected no analysis when nothing was analysed")
	}
}

func TestAggregateSignals(t *testing.T) {
	deep := base()
	deep.EngagementLevel = 8
	deep.ConversationDepth = DepthDeep
	deep.HumorDetected = true
	deep.QuestionsAsked = 1
	deep.ValueSignals = []string{"family", "honesty"}
	deep.RedFlags = []string{"pushy"}

	plain := base()
	plain.EngagementLevel = 6
	plain.ConversationDepth = DepthMedium
	plain.ValueSignals = []string{"family"}

	messages := []Message{analysed(deep), analysed(plain), analysed(deep), {SenderID: "u2"}}

	got, ok := Aggregate(messages)
	if !ok {
		t.Fatalf("expected analysis")
	}

	if math.Abs(got.AvgEngagement-22.0/3.0) > 1e-9 {
		t.Fatalf("unexpected engagement %v", got.AvgEngagement)
	}
	// (3+2+3)/3 = 2.67 > 2.5
	if got.OverallDepth != DepthDeep {
		t.Fatalf("expected deep, got %s", got.OverallDepth)
	}
	if !got.HumorMatch {
		t.Fatalf("expected humor match with 2/3 humorous messages")
	}
	if !reflect.DeepEqual(got.SharedValuesDiscovered, []string{"family", "honesty"}) {
		t.Fatalf("unexpected values %v", got.SharedValuesDiscovered)
	}
	// 2 questions over 4 messages, expectation 2 => capped at 1.
	if got.QuestionBalance != 1.0 {
		t.Fatalf("unexpected question balance %v", got.QuestionBalance)
	}
	if got.MessageCount != 4 {
		t.Fatalf("message count must include unanalysed messages, got %d", got.MessageCount)
	}
	if got.ConflictResolutionScore != 0.5 {
		t.Fatalf("expected fixed conflict score, got %v", got.ConflictResolutionScore)
	}
	if !reflect.DeepEqual(got.RedFlags, []string{"pushy"}) {
		t.Fatalf("unexpected red flags %v", got.RedFlags)
	}
}

func TestAggregateSkipsBlankSignals(t *testing.T) {
	a := base()
	a.ValueSignals = []string{"", "  ", " honesty ", "honesty"}
	a.RedFlags = []string{" ", "pushy"}

	got, ok := Aggregate([]Message{analysed(a)})
	if !ok {
		t.Fatalf("expected analysis")
	}
	if !reflect.DeepEqual(got.SharedValuesDiscovered, []string{"honesty"}) {
		t.Fatalf("unexpected values %q", got.SharedValuesDiscovered)
	}
	if !reflect.DeepEqual(got.RedFlags, []string{"pushy"}) {
		t.Fatalf("unexpected red flags %q", got.RedFlags)
	}
}

func TestAggregateDepthBuckets(t *testing.T) {
	cases := []struct {
		name   string
		depths []Depth
		want   Depth
	}{
		{name: "all surface", depths: []Depth{DepthSurface, DepthSurface}, want: DepthSurface},
		{name: "exact 1.5 is medium", depths: []Depth{DepthSurface, DepthMedium}, want: DepthMedium},
		{name: "exact 2.5 is medium", depths: []Depth{DepthMedium, DepthDeep}, want: DepthMedium},
		{name: "all deep", depths: []Depth{DepthDeep}, want: DepthDeep},
		{name: "unknown counts as medium", depths: []Depth{"bottomless"}, want: DepthMedium},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			messages := make([]Message, 0, len(tc.depths))
			for _, d := range tc.depths {
				a := base()
				a.ConversationDepth = d
				messages = append(messages, analysed(a))
			}

			got, _ := Aggregate(messages)
			if got.OverallDepth != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got.OverallDepth)
			}
		})
	}
}

func TestAggregateHumorThresholdIsStrict(t *testing.T) {
	messages := make([]Message, 0, 10)
	for i := range 10 {
		a := base()
		a.HumorDetected = i < 3
		messages = append(messages, analysed(a))
	}

	got, _ := Aggregate(messages)
	if got.HumorMatch {
		t.Fatalf("exactly 30%% humour must not count as a match")
	}
}

func TestAggregateQuestionBalance(t *testing.T) {
	messages := make([]Message, 0, 10)
	for i := range 10 {
		a := base()
		if i%5 == 0 {
			a.QuestionsAsked = 1
		}
		messages = append(messages, analysed(a))
	}

	got, _ := Aggregate(messages)
	// 2 / (10 * 0.5)
	if math.Abs(got.QuestionBalance-0.4) > 1e-9 {
		t.Fatalf("unexpected question balance %v", got.QuestionBalance)
	}
}

func TestAggregateDoesNotMutateInput(t *testing.T) {
	a := base()
	a.EngagementLevel = 42
	messages := []Message{analysed(a)}

	got, _ := Aggregate(messages)
	if got.AvgEngagement != DefaultEngagement {
		t.Fatalf("expected malformed engagement to be neutral, got %v", got.AvgEngagement)
	}
	if messages[0].Analysis.EngagementLevel != 42 {
		t.Fatalf("input analysis must not be modified")
	}
}

type overshootConflict struct{ calls int }

func (h *overshootConflict) ConflictResolution(analyses []MessageAnalysis) float64 {
	h.calls++
	return 1.7
}

func TestAggregatorUsesConflictScorer(t *testing.T) {
	scorer := &overshootConflict{}
	got, _ := NewAggregator(scorer).Aggregate([]Message{analysed(base())})

	if scorer.calls != 1 {
		t.Fatalf("expected scorer to be consulted once, got %d", scorer.calls)
	}
	if got.ConflictResolutionScore != 1 {
		t.Fatalf("expected conflict score to be clamped, got %v", got.ConflictResolutionScore)
	}
}

func TestNormalize(t *testing.T) {
	a := MessageAnalysis{
		Sentiment:            "ecstatic",
		EngagementLevel:      0,
		ConversationDepth:    DepthDeep,
		QuestionsAsked:       -2,
		ConnectionIndicators: 11,
	}

	reset := Normalize(&a)
	if len(reset) != 4 {
		t.Fatalf("expected 4 reset fields, got %v", reset)
	}

	want := Neutral()
	want.ConversationDepth = DepthDeep
	if !reflect.DeepEqual(a, want) {
		t.Fatalf("unexpected normalized analysis %+v", a)
	}

	valid := Neutral()
	if reset := Normalize(&valid); len(reset) != 0 {
		t.Fatalf("expected valid analysis to pass, got %v", reset)
	}
}
