// Package ai holds the contract of the NLP oracle that analyses chat messages.
package ai

import (
	"context"
	"fmt"

	"github.com/spigell/blindmatch/internal/conversation"
)

// Oracle turns the text of one message into a structured analysis.
type Oracle interface {
	Analyze(ctx context.Context, text string) (*conversation.MessageAnalysis, error)
}

// OracleError wraps every failure of an Oracle implementation.
type OracleError struct {
	Op  string
	Err error
}

func (e *OracleError) Error() string {
	return fmt.Sprintf("oracle %s: %v", e.Op, e.Err)
}

func (e *OracleError) Unwrap() error {
	return e.Err
}

// Wrap returns err as an *OracleError unless it already is one.
func Wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*OracleError); ok {
		return err
	}
	return &OracleError{Op: op, Err: err}
}
