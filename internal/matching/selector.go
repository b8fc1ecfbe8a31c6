// Package matching picks the best partner for a user out of a candidate pool.
package matching

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/blindmatch/internal/compat"
	"github.com/spigell/blindmatch/internal/logger"
	"github.com/spigell/blindmatch/internal/profile"
)

const defaultConcurrency = 8

// Scorer rates a pair of profiles. compat.Model implements it.
type Scorer interface {
	Score(a, b profile.Profile) (float64, compat.Details)
}

// Result is the selected partner with the static score that won.
type Result struct {
	Profile profile.Profile
	Score   float64
	Details compat.Details
}

// Selector runs the static model over a candidate pool and picks the best
// candidate. A Selector is safe for concurrent use; the filters are built
// per call.
type Selector struct {
	scorer      Scorer
	config      Config
	concurrency int
	logger      *zap.Logger
}

func NewSelector(scorer Scorer, config Config, concurrency int, logger *zap.Logger) (*Selector, error) {
	if scorer == nil {
		return nil, errors.New("scorer is required")
	}
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := NewTier().Validate(&config); err != nil {
		return nil, err
	}

	return &Selector{scorer: scorer, config: config, concurrency: concurrency, logger: logger}, nil
}

// FindBestMatch returns the best candidate for user, or nil when nobody is
// eligible. Pool errors are returned wrapped.
func (s *Selector) FindBestMatch(ctx context.Context, userID string, user profile.Profile, pool CandidatePool) (*Result, error) {
	log := s.logger.With(zap.String(logger.FieldUser, userID))

	profiles, err := pool.Candidates(ctx, userID, user)
	if err != nil {
		return nil, fmt.Errorf("load candidates: %w", err)
	}
	if len(profiles) == 0 {
		log.Debug("candidate pool is empty")
		return nil, nil
	}

	candidates, err := s.score(ctx, user, profiles)
	if err != nil {
		return nil, err
	}

	steps := DefaultFilters()
	survivors, err := Run(ctx, &s.config, Deps{Logger: log, UserID: userID}, steps, candidates)
	if err != nil {
		return nil, fmt.Errorf("filter candidates: %w", err)
	}

	for _, status := range Describe(steps) {
		if len(status.Details) > 0 {
			log.Debug("filter status", zap.String("name", status.Name), zap.Any("details", status.Details))
		}
	}

	best := survivors.Best()
	if best == nil {
		log.Debug("no candidate passed the filters", zap.Int("scored", len(profiles)))
		return nil, nil
	}

	log.Debug("selected candidate",
		zap.String(logger.FieldCandidate, best.Profile.ID),
		zap.Float64("score", best.Score),
		zap.Int("scored", len(profiles)),
		zap.Strings("survivors", survivors.IDs()),
	)

	return &Result{Profile: best.Profile, Score: best.Score, Details: best.Details}, nil
}

// score rates every candidate against user. Results keep the pool order.
func (s *Selector) score(ctx context.Context, user profile.Profile, profiles []profile.Profile) (*Candidates, error) {
	items := make([]*Scored, len(profiles))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, candidate := range profiles {
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			score, details := s.scorer.Score(user, candidate)
			items[i] = &Scored{Profile: candidate, Score: score, Details: details}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("score candidates: %w", err)
	}

	return &Candidates{Items: items}, nil
}
