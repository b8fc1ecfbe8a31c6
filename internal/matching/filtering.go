package matching

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Filter represents a single filtering step applied to scored candidates.
type Filter interface {
	Name() string
	Validate(cfg *Config) error
	Apply(ctx context.Context, deps Deps, c *Candidates) (*Candidates, Step, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger *zap.Logger
	UserID string
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Config contains the thresholds consumed by the filters.
type Config struct {
	MinimumScore  float64 `mapstructure:"minimum-score"`
	FallbackScore float64 `mapstructure:"fallback-score"`
}

func DefaultConfig() Config {
	return Config{MinimumScore: 0.5, FallbackScore: 0.4}
}

// Status is what a filter reports about its last run.
type Status struct {
	Name    string
	Details map[string]string
}

type statusProvider interface {
	Status() Status
}

// DefaultFilters returns the selection pipeline in the order it must run.
func DefaultFilters() []Filter {
	return []Filter{NewSelf(), NewDealbreaker(), NewTier()}
}

// Run executes the supplied filters sequentially and returns the surviving candidates.
func Run(ctx context.Context, cfg *Config, deps Deps, steps []Filter, c *Candidates) (*Candidates, error) {
	for _, step := range steps {
		if err := step.Validate(cfg); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	for _, step := range steps {
		next, info, err := step.Apply(ctx, deps, c)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		if deps.Logger != nil {
			deps.Logger.Debug("filter step",
				zap.String("name", step.Name()),
				zap.Int("initial", info.Initial),
				zap.Int("dropped", info.Dropped),
				zap.Int("left", info.Left),
			)
		}

		c = next
		if c.Len() == 0 {
			break
		}
	}

	return c, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{Name: step.Name()})
	}
	return statuses
}
