// Package logger builds the zap logger used across blindmatch and the field
// helpers that keep match and user keys consistent.
package logger

import (
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const ellipsis = "..."

// New builds the cli logger. Output goes to stderr; stdout carries command
// results. json selects the json encoder, debug adds debug entries, callers
// and stack traces.
func New(json bool, debug bool) (*zap.Logger, error) {
	cfg := zap.Config{
		Encoding:          "console",
		Level:             zap.NewAtomicLevelAt(zapcore.InfoLevel),
		OutputPaths:       []string{"stderr"},
		ErrorOutputPaths:  []string{"stderr"},
		DisableCaller:     !debug,
		DisableStacktrace: !debug,
		EncoderConfig:     encoderConfig(),
	}

	if json {
		cfg.Encoding = "json"
	}
	if debug {
		cfg.Level.SetLevel(zapcore.DebugLevel)
	}

	return cfg.Build()
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		MessageKey:    "step",
		LevelKey:      "level",
		TimeKey:       "time",
		CallerKey:     "caller",
		StacktraceKey: "stacktrace",
		NameKey:       "component",

		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeTime:     zapcore.RFC3339TimeEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeName:     zapcore.FullNameEncoder,
	}
}

// TruncateForLog trims s and cuts it to limit runes, marking the cut with an
// ellipsis. Message texts and oracle replies go through it before logging.
func TruncateForLog(s string, limit int) string {
	s = strings.TrimSpace(s)
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}

	n := 0
	for i := range s {
		if n == limit {
			return s[:i] + ellipsis
		}
		n++
	}
	return s
}
