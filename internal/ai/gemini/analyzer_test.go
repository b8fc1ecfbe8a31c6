package gemini

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/blindmatch/internal/ai"
	"github.com/spigell/blindmatch/internal/conversation"
)

type stubGenerator struct {
	response    string
	err         error
	lastSystem  string
	lastMessage string
}

func (s *stubGenerator) GenerateContent(_ context.Context, system, message string) (string, error) {
	s.lastSystem = system
	s.lastMessage = message
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func TestAnalyzerAnalyze(t *testing.T) {
	stub := &stubGenerator{response: "```json\n" + `{
		"sentiment": "Positive",
		"engagement_level": "8",
		"conversation_depth": "deep",
		"humor_detected": "yes",
		"questions_asked": 2,
		"vulnerability_shown": true,
		"interest_signals": ["hiking", "jazz"],
		"value_signals": "family",
		"red_flags": [],
		"connection_indicators": 7
	}` + "\n```"}

	analysis, err := NewAnalyzer(stub, zap.NewNop(), 0).Analyze(context.Background(), "I love hiking with my family. You?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := &conversation.MessageAnalysis{
		Sentiment:            conversation.SentimentPositive,
		EngagementLevel:      8,
		ConversationDepth:    conversation.DepthDeep,
		HumorDetected:        true,
		QuestionsAsked:       2,
		VulnerabilityShown:   true,
		InterestSignals:      []string{"hiking", "jazz"},
		ValueSignals:         []string{"family"},
		RedFlags:             []string{},
		ConnectionIndicators: 7,
	}
	if !reflect.DeepEqual(analysis, want) {
		t.Fatalf("unexpected analysis\n got: %+v\nwant: %+v", analysis, want)
	}

	if stub.lastSystem != systemPrompt || stub.lastMessage != "I love hiking with my family. You?" {
		t.Fatalf("unexpected request %q / %q", stub.lastSystem, stub.lastMessage)
	}
}

func TestAnalyzerMalformedFieldsFallBackToDefaults(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	stub := &stubGenerator{response: `{"sentiment": "ecstatic", "engagement_level": 42, "conversation_depth": 3, "questions_asked": -1}`}

	analysis, err := NewAnalyzer(stub, zap.New(core), 0).Analyze(context.Background(), "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if analysis.Sentiment != conversation.DefaultSentiment ||
		analysis.EngagementLevel != conversation.DefaultEngagement ||
		analysis.ConversationDepth != conversation.DefaultDepth ||
		analysis.QuestionsAsked != conversation.DefaultQuestions ||
		analysis.ConnectionIndicators != conversation.DefaultConnection {
		t.Fatalf("expected neutral defaults, got %+v", analysis)
	}

	if logs.FilterMessage("reset malformed analysis fields").Len() != 1 {
		t.Fatalf("expected reset to be logged")
	}
}

func TestAnalyzerErrors(t *testing.T) {
	cases := []struct {
		name   string
		stub   *stubGenerator
		text   string
		wantOp string
	}{
		{name: "empty text", stub: &stubGenerator{}, text: " ", wantOp: "analyze"},
		{name: "generator failure", stub: &stubGenerator{err: errors.New("boom")}, text: "hi", wantOp: "analyze"},
		{name: "not json", stub: &stubGenerator{response: "I think it is positive"}, text: "hi", wantOp: "parse"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewAnalyzer(tc.stub, nil, 0).Analyze(context.Background(), tc.text)

			var oracleErr *ai.OracleError
			if !errors.As(err, &oracleErr) {
				t.Fatalf("expected OracleError, got %v", err)
			}
			if oracleErr.Op != tc.wantOp {
				t.Fatalf("expected op %q, got %q", tc.wantOp, oracleErr.Op)
			}
		})
	}
}

func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```": `{"a":1}`,
		"```\n{\"a\":1}```":       `{"a":1}`,
		"  {\"a\":1}  ":           `{"a":1}`,
		"`{\"a\":1}`":             `{"a":1}`,
	}

	for input, want := range cases {
		if got := extractJSON(input); got != want {
			t.Fatalf("extractJSON(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestCoerceInt(t *testing.T) {
	cases := []struct {
		input any
		want  int
	}{
		{input: float64(7), want: 7},
		{input: "6.6", want: 7},
		{input: "high", want: 5},
		{input: nil, want: 5},
		{input: true, want: 5},
	}

	for _, tc := range cases {
		if got := coerceInt(tc.input, 5); got != tc.want {
			t.Fatalf("coerceInt(%v) = %d, want %d", tc.input, got, tc.want)
		}
	}
}
