package logger

import (
	"strings"

	"go.uber.org/zap"
)

const (
	// FieldMatch is the structured log field key for a match identifier.
	FieldMatch = "match_id"
	// FieldUser is the structured log field key for the acting user.
	FieldUser = "user_id"
	// FieldCandidate is the structured log field key for a scored candidate.
	FieldCandidate = "candidate_id"
)

// StringField describes a string-valued structured logging field.
type StringField struct {
	Key   string
	Value string
}

// StringFields converts the provided key/value pairs into zap fields, trimming
// whitespace and omitting entries with empty keys or values.
func StringFields(fields ...StringField) []zap.Field {
	result := make([]zap.Field, 0, len(fields))
	for _, field := range fields {
		key := strings.TrimSpace(field.Key)
		if key == "" {
			continue
		}

		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		result = append(result, zap.String(key, value))
	}

	return result
}

// WithFields attaches the provided fields to the logger.
// A nil logger becomes a no-op logger.
func WithFields(logger *zap.Logger, fields ...zap.Field) *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}

	if len(fields) == 0 {
		return logger
	}

	return logger.With(fields...)
}

// MatchFields returns the match and user fields, skipping empty values.
func MatchFields(matchID, userID string) []zap.Field {
	return StringFields(
		StringField{Key: FieldMatch, Value: matchID},
		StringField{Key: FieldUser, Value: userID},
	)
}

// WithMatch attaches match and user fields to the logger.
func WithMatch(logger *zap.Logger, matchID, userID string) *zap.Logger {
	return WithFields(logger, MatchFields(matchID, userID)...)
}
