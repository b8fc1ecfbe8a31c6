// Package conversation reduces per-message analyses produced by the NLP
// oracle into conversation-level signals.
package conversation

import (
	"errors"
	"sync"

	"github.com/go-playground/validator/v10"
)

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

type Depth string

const (
	DepthSurface Depth = "surface"
	DepthMedium  Depth = "medium"
	DepthDeep    Depth = "deep"
)

// Neutral defaults substituted for missing or malformed analysis fields.
const (
	DefaultEngagement = 5
	DefaultConnection = 5
	DefaultDepth      = DepthMedium
	DefaultSentiment  = SentimentNeutral
	DefaultQuestions  = 0
)

// MessageAnalysis is the structured record the NLP oracle returns for one message.
type MessageAnalysis struct {
	Sentiment            Sentiment `json:"sentiment" mapstructure:"sentiment" validate:"oneof=positive negative neutral"`
	EngagementLevel      int       `json:"engagement_level" mapstructure:"engagement_level" validate:"min=1,max=10"`
	ConversationDepth    Depth     `json:"conversation_depth" mapstructure:"conversation_depth" validate:"oneof=surface medium deep"`
	HumorDetected        bool      `json:"humor_detected" mapstructure:"humor_detected"`
	QuestionsAsked       int       `json:"questions_asked" mapstructure:"questions_asked" validate:"min=0"`
	VulnerabilityShown   bool      `json:"vulnerability_shown" mapstructure:"vulnerability_shown"`
	InterestSignals      []string  `json:"interest_signals" mapstructure:"interest_signals"`
	ValueSignals         []string  `json:"value_signals" mapstructure:"value_signals"`
	RedFlags             []string  `json:"red_flags" mapstructure:"red_flags"`
	ConnectionIndicators int       `json:"connection_indicators" mapstructure:"connection_indicators" validate:"min=1,max=10"`
}

// Message is one conversation message as seen by the aggregator. Analysis is
// nil when the message was never analysed.
type Message struct {
	SenderID string           `json:"sender_id"`
	Analysis *MessageAnalysis `json:"analysis,omitempty"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func analysisValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Normalize validates the record and resets every field that breaks the
// oracle contract to its neutral default. It returns the names of the fields
// that were reset.
func Normalize(a *MessageAnalysis) []string {
	if a == nil {
		return nil
	}

	err := analysisValidator().Struct(a)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		*a = Neutral()
		return []string{"*"}
	}

	reset := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		switch fe.StructField() {
		case "Sentiment":
			a.Sentiment = DefaultSentiment
		case "EngagementLevel":
			a.EngagementLevel = DefaultEngagement
		case "ConversationDepth":
			a.ConversationDepth = DefaultDepth
		case "QuestionsAsked":
			a.QuestionsAsked = DefaultQuestions
		case "ConnectionIndicators":
			a.ConnectionIndicators = DefaultConnection
		default:
			continue
		}
		reset = append(reset, fe.Field())
	}

	return reset
}

// Neutral returns an analysis carrying only neutral defaults.
func Neutral() MessageAnalysis {
	return MessageAnalysis{
		Sentiment:            DefaultSentiment,
		EngagementLevel:      DefaultEngagement,
		ConversationDepth:    DefaultDepth,
		QuestionsAsked:       DefaultQuestions,
		ConnectionIndicators: DefaultConnection,
	}
}
