package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"go.uber.org/zap"

	"github.com/spigell/blindmatch/internal/ai"
	"github.com/spigell/blindmatch/internal/conversation"
	"github.com/spigell/blindmatch/internal/logger"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
}

//go:embed prompt.md
var systemPrompt string

const defaultMaxLogLength = 200

// Analyzer is the Gemini backed ai.Oracle.
type Analyzer struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

var _ ai.Oracle = (*Analyzer)(nil)

func NewAnalyzer(generator contentGenerator, logger *zap.Logger, maxLogLength int) *Analyzer {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Analyzer{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (a *Analyzer) Analyze(ctx context.Context, text string) (*conversation.MessageAnalysis, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ai.Wrap("analyze", errors.New("message text is empty"))
	}

	a.logger.Debug("gemini analyze request",
		zap.Int("message_length", utf8.RuneCountInString(text)),
		zap.String("message_preview", logger.TruncateForLog(text, a.maxLogLen)),
	)

	raw, err := a.generator.GenerateContent(ctx, systemPrompt, text)
	if err != nil {
		return nil, ai.Wrap("analyze", err)
	}

	a.logger.Debug("gemini analyze response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", logger.TruncateForLog(raw, a.maxLogLen)),
	)

	analysis, err := parseResponse(raw)
	if err != nil {
		return nil, ai.Wrap("parse", err)
	}

	if reset := conversation.Normalize(analysis); len(reset) > 0 {
		a.logger.Debug("reset malformed analysis fields", zap.Strings("fields", reset))
	}

	return analysis, nil
}

// parseResponse reads the oracle answer leniently. Missing or mistyped
// fields come back as values Normalize replaces with neutral defaults.
func parseResponse(raw string) (*conversation.MessageAnalysis, error) {
	cleaned := extractJSON(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil, fmt.Errorf("parse gemini response: %w", err)
	}

	return &conversation.MessageAnalysis{
		Sentiment:            conversation.Sentiment(strings.ToLower(coerceString(data["sentiment"]))),
		EngagementLevel:      coerceInt(data["engagement_level"], conversation.DefaultEngagement),
		ConversationDepth:    conversation.Depth(strings.ToLower(coerceString(data["conversation_depth"]))),
		HumorDetected:        coerceBool(data["humor_detected"]),
		QuestionsAsked:       coerceInt(data["questions_asked"], conversation.DefaultQuestions),
		VulnerabilityShown:   coerceBool(data["vulnerability_shown"]),
		InterestSignals:      coerceStrings(data["interest_signals"]),
		ValueSignals:         coerceStrings(data["value_signals"]),
		RedFlags:             coerceStrings(data["red_flags"]),
		ConnectionIndicators: coerceInt(data["connection_indicators"], conversation.DefaultConnection),
	}, nil
}

func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	raw = strings.Trim(raw, "`")
	return strings.TrimSpace(raw)
}

func coerceBool(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case string:
		lower := strings.ToLower(strings.TrimSpace(val))
		return lower == "true" || lower == "yes"
	case float64:
		return val != 0
	default:
		return false
	}
}

func coerceFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int:
		return float64(val)
	case string:
		trimmed := strings.TrimSpace(val)
		if trimmed == "" {
			return math.NaN()
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil {
			return math.NaN()
		}
		return f
	default:
		return math.NaN()
	}
}

func coerceInt(v any, fallback int) int {
	f := coerceFloat(v)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fallback
	}
	return int(math.Round(f))
}

func coerceString(v any) string {
	switch val := v.(type) {
	case string:
		return strings.TrimSpace(val)
	case nil:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

func coerceStrings(v any) []string {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			if s := coerceString(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if s := strings.TrimSpace(val); s != "" {
			return []string{s}
		}
	}
	return nil
}
