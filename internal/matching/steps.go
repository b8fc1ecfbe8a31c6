package matching

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/blindmatch/internal/logger"
)

type selfFilter struct{}

// NewSelf creates a filter that removes the requester from their own candidates.
func NewSelf() Filter {
	return &selfFilter{}
}

func (f *selfFilter) Name() string { return "self" }

func (f *selfFilter) Validate(*Config) error { return nil }

func (f *selfFilter) Apply(_ context.Context, deps Deps, c *Candidates) (*Candidates, Step, error) {
	initial := c.Len()
	excluded := c.Exclude(func(s *Scored) bool { return s.Profile.ID == deps.UserID })
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Warn("candidate pool returned the requester", zap.String(logger.FieldUser, deps.UserID))
	}

	return c, Step{Initial: initial, Dropped: len(excluded), Left: c.Len()}, nil
}

type dealbreakerFilter struct{}

// NewDealbreaker creates a filter that drops every candidate with a dealbreaker conflict.
func NewDealbreaker() Filter {
	return &dealbreakerFilter{}
}

func (f *dealbreakerFilter) Name() string { return "dealbreaker" }

func (f *dealbreakerFilter) Validate(*Config) error { return nil }

func (f *dealbreakerFilter) Apply(_ context.Context, deps Deps, c *Candidates) (*Candidates, Step, error) {
	initial := c.Len()
	excluded := c.Exclude(func(s *Scored) bool { return s.Details.DealbreakerConflict() })
	if deps.Logger != nil && len(excluded) > 0 {
		deps.Logger.Debug("excluding candidates with dealbreaker conflicts",
			zap.Strings("excluded_candidates", excluded),
			zap.Int("candidates_left", c.Len()),
		)
	}

	return c, Step{Initial: initial, Dropped: len(excluded), Left: c.Len()}, nil
}

type tierFilter struct {
	config Config
	tier   string
}

// NewTier creates a filter that keeps the qualified tier, or the fallback
// tier when nobody qualifies.
func NewTier() Filter {
	return &tierFilter{}
}

func (f *tierFilter) Name() string { return "tier" }

func (f *tierFilter) Validate(cfg *Config) error {
	f.config = DefaultConfig()
	if cfg != nil {
		f.config = *cfg
	}

	minimum, fallback := f.config.MinimumScore, f.config.FallbackScore
	if minimum < 0 || minimum > 1 || fallback < 0 || fallback > 1 {
		return fmt.Errorf("thresholds must be within [0,1], got minimum %.2f and fallback %.2f", minimum, fallback)
	}
	if fallback > minimum {
		return fmt.Errorf("fallback score %.2f must not exceed minimum score %.2f", fallback, minimum)
	}
	return nil
}

func (f *tierFilter) Apply(_ context.Context, deps Deps, c *Candidates) (*Candidates, Step, error) {
	initial := c.Len()

	threshold := f.config.MinimumScore
	f.tier = "qualified"
	if !c.has(func(s *Scored) bool { return s.Score >= f.config.MinimumScore }) {
		threshold = f.config.FallbackScore
		f.tier = "fallback"
	}

	excluded := c.Exclude(func(s *Scored) bool { return s.Score < threshold })
	if c.Len() == 0 {
		f.tier = "none"
	}

	if deps.Logger != nil {
		deps.Logger.Debug("selected candidate tier",
			zap.String("tier", f.tier),
			zap.Float64("threshold", threshold),
			zap.Int("candidates_left", c.Len()),
		)
	}

	return c, Step{Initial: initial, Dropped: len(excluded), Left: c.Len()}, nil
}

func (f *tierFilter) Status() Status {
	details := map[string]string{
		"minimum_score":  fmt.Sprintf("%.2f", f.config.MinimumScore),
		"fallback_score": fmt.Sprintf("%.2f", f.config.FallbackScore),
	}
	if f.tier != "" {
		details["tier"] = f.tier
	}
	return Status{Name: f.Name(), Details: details}
}
