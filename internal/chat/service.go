// Package chat drives a blind match from selection through the conversation
// to the reveal and both decisions.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/blindmatch/internal/ai"
	"github.com/spigell/blindmatch/internal/compat"
	"github.com/spigell/blindmatch/internal/conversation"
	"github.com/spigell/blindmatch/internal/logger"
	"github.com/spigell/blindmatch/internal/matching"
	"github.com/spigell/blindmatch/internal/profile"
	"github.com/spigell/blindmatch/internal/store"
)

const DefaultRevealThreshold = 0.80

// Repository is the persistence the service needs. *store.Store implements it.
type Repository interface {
	GetProfile(ctx context.Context, id string) (profile.Profile, error)
	GetMatch(ctx context.Context, id string) (store.Match, error)
	ActiveMatch(ctx context.Context, userID string) (*store.Match, error)
	MatchesFor(ctx context.Context, userID string) ([]store.Match, error)
	CreateMatch(ctx context.Context, m *store.Match) error
	UpdateMatch(ctx context.Context, m *store.Match) error
	Messages(ctx context.Context, matchID string) ([]store.Message, error)
	RecordMessage(ctx context.Context, msg *store.Message, m *store.Match) error
}

type Config struct {
	RevealThreshold float64
}

// Service orchestrates matches. Updates of one match are serialised; the
// selection of new matches runs one at a time.
type Service struct {
	repo     Repository
	pool     matching.CandidatePool
	selector *matching.Selector
	blender  *compat.Blender
	oracle   ai.Oracle
	config   Config
	logger   *zap.Logger
	now      func() time.Time

	findMu     sync.Mutex
	matchLocks keyedMutex
}

// New returns a Service. A nil oracle stores messages without analysis.
func New(repo Repository, pool matching.CandidatePool, selector *matching.Selector, blender *compat.Blender, oracle ai.Oracle, config Config, log *zap.Logger) (*Service, error) {
	if repo == nil || pool == nil || selector == nil || blender == nil {
		return nil, errors.New("repository, pool, selector and blender are required")
	}
	if config.RevealThreshold <= 0 {
		config.RevealThreshold = DefaultRevealThreshold
	}
	if config.RevealThreshold > 1 {
		return nil, fmt.Errorf("reveal threshold %.2f is above 1", config.RevealThreshold)
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{
		repo:     repo,
		pool:     pool,
		selector: selector,
		blender:  blender,
		oracle:   oracle,
		config:   config,
		logger:   log,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// FindMatch selects a partner for userID and opens a chatting match. It
// returns nil when nobody compatible is available.
func (s *Service) FindMatch(ctx context.Context, userID string) (*store.Match, error) {
	s.findMu.Lock()
	defer s.findMu.Unlock()

	log := logger.WithMatch(s.logger, "", userID)

	user, err := s.repo.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if user.Status != profile.StatusActive {
		return nil, ErrNotActive
	}

	active, err := s.repo.ActiveMatch(ctx, userID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return nil, ErrActiveMatchExists
	}

	if !user.Complete() {
		return nil, ErrProfileIncomplete
	}

	result, err := s.selector.FindBestMatch(ctx, userID, user, s.pool)
	if err != nil {
		return nil, fmt.Errorf("error computing match: %w", err)
	}
	if result == nil {
		log.Info("no compatible match found")
		return nil, nil
	}

	m := &store.Match{
		UserA:                userID,
		UserB:                result.Profile.ID,
		Status:               store.MatchChatting,
		InitialCompatibility: result.Score,
		CurrentCompatibility: result.Score,
		Details:              result.Details,
	}
	if err := s.repo.CreateMatch(ctx, m); err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}

	logger.WithMatch(log, m.ID, "").Info("match created",
		zap.String(logger.FieldCandidate, m.UserB),
		zap.Float64("score", m.InitialCompatibility),
	)

	return m, nil
}

// SendResult is the outcome of one delivered message.
type SendResult struct {
	Message         store.Message
	Match           store.Match
	RevealTriggered bool
}

// SendMessage analyses text, refreshes the match score with it and stores
// both. Nothing is stored when the oracle fails; its error is returned as is.
func (s *Service) SendMessage(ctx context.Context, matchID, senderID, text string) (*SendResult, error) {
	unlock := s.matchLocks.Lock(matchID)
	defer unlock()

	log := logger.WithMatch(s.logger, matchID, senderID)

	m, err := s.participantMatch(ctx, matchID, senderID)
	if err != nil {
		return nil, err
	}
	if m.Status == store.MatchEnded {
		return nil, ErrMatchEnded
	}

	var analysis *conversation.MessageAnalysis
	if s.oracle != nil {
		analysis, err = s.oracle.Analyze(ctx, text)
		if err != nil {
			log.Warn("message analysis failed", zap.Error(err))
			return nil, err
		}
	}

	stored, err := s.repo.Messages(ctx, matchID)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	history := make([]conversation.Message, 0, len(stored)+1)
	for _, msg := range stored {
		history = append(history, conversation.Message{SenderID: msg.SenderID, Analysis: msg.Analysis})
	}
	history = append(history, conversation.Message{SenderID: senderID, Analysis: analysis})

	userA, err := s.repo.GetProfile(ctx, m.UserA)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	userB, err := s.repo.GetProfile(ctx, m.UserB)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}

	score, details := s.blender.Blend(userA, userB, history, m.Details)
	m.CurrentCompatibility = score
	m.Details = details

	revealed := false
	if score >= s.config.RevealThreshold && m.Status == store.MatchChatting {
		now := s.now()
		m.Status = store.MatchRevealed
		m.RevealedAt = &now
		revealed = true
	}

	msg := &store.Message{
		MatchID:   matchID,
		SenderID:  senderID,
		Content:   text,
		Analysis:  analysis,
		CreatedAt: s.now(),
	}
	if err := s.repo.RecordMessage(ctx, msg, &m); err != nil {
		return nil, fmt.Errorf("record message: %w", err)
	}

	log.Debug("compatibility updated",
		zap.Float64("score", score),
		zap.Int("messages", len(history)),
		zap.Bool("analysed", analysis != nil),
	)
	if revealed {
		log.Info("reveal threshold reached", zap.Float64("score", score))
	}

	return &SendResult{Message: *msg, Match: m, RevealTriggered: revealed}, nil
}

// Decide records the decision of userID after a reveal. When both decided
// the match continues only if both chose to continue.
func (s *Service) Decide(ctx context.Context, matchID, userID string, decision store.Decision) (*store.Match, error) {
	if decision != store.DecisionContinue && decision != store.DecisionPass {
		return nil, fmt.Errorf("%w, got %q", ErrInvalidDecision, decision)
	}

	unlock := s.matchLocks.Lock(matchID)
	defer unlock()

	m, err := s.participantMatch(ctx, matchID, userID)
	if err != nil {
		return nil, err
	}
	if m.Status != store.MatchRevealed {
		return nil, fmt.Errorf("%w: expected %s, match is %s", ErrInvalidState, store.MatchRevealed, m.Status)
	}

	if m.UserA == userID {
		m.DecisionA = decision
	} else {
		m.DecisionB = decision
	}

	if m.DecisionA != store.DecisionNone && m.DecisionB != store.DecisionNone {
		if m.DecisionA == store.DecisionContinue && m.DecisionB == store.DecisionContinue {
			m.Status = store.MatchContinued
		} else {
			m.Status = store.MatchEnded
		}
	}

	if err := s.repo.UpdateMatch(ctx, &m); err != nil {
		return nil, fmt.Errorf("save decision: %w", err)
	}

	logger.WithMatch(s.logger, matchID, userID).Info("decision recorded",
		zap.String("decision", string(decision)),
		zap.String("status", string(m.Status)),
	)

	return &m, nil
}

// Revealed is the partner as shown after the reveal.
type Revealed struct {
	Partner    profile.Profile
	Highlights []string
}

// Reveal returns the partner of userID once the match has been revealed.
func (s *Service) Reveal(ctx context.Context, matchID, userID string) (*Revealed, error) {
	m, err := s.participantMatch(ctx, matchID, userID)
	if err != nil {
		return nil, err
	}
	if m.Status != store.MatchRevealed && m.Status != store.MatchContinued {
		return nil, fmt.Errorf("%w: profile not yet revealed", ErrInvalidState)
	}

	partner, err := s.repo.GetProfile(ctx, m.Partner(userID))
	if err != nil {
		return nil, fmt.Errorf("load partner: %w", err)
	}

	return &Revealed{Partner: partner, Highlights: compat.Highlights(m.Details)}, nil
}

// Conversation returns the match and its messages for one of its participants.
func (s *Service) Conversation(ctx context.Context, matchID, userID string) (store.Match, []store.Message, error) {
	m, err := s.participantMatch(ctx, matchID, userID)
	if err != nil {
		return store.Match{}, nil, err
	}

	messages, err := s.repo.Messages(ctx, matchID)
	if err != nil {
		return store.Match{}, nil, fmt.Errorf("load history: %w", err)
	}
	return m, messages, nil
}

// Summary is one entry of a user's match history.
type Summary struct {
	Match            store.Match
	PartnerPseudonym string
}

// History lists the matches of userID, newest first.
func (s *Service) History(ctx context.Context, userID string) ([]Summary, error) {
	matches, err := s.repo.MatchesFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]Summary, 0, len(matches))
	for _, m := range matches {
		pseudonym := "Unknown"
		partner, err := s.repo.GetProfile(ctx, m.Partner(userID))
		switch {
		case err == nil:
			pseudonym = partner.Name()
		case !errors.Is(err, store.ErrNotFound):
			return nil, fmt.Errorf("load partner: %w", err)
		}
		summaries = append(summaries, Summary{Match: m, PartnerPseudonym: pseudonym})
	}
	return summaries, nil
}

func (s *Service) participantMatch(ctx context.Context, matchID, userID string) (store.Match, error) {
	m, err := s.repo.GetMatch(ctx, matchID)
	if err != nil {
		return store.Match{}, err
	}
	if !m.Has(userID) {
		return store.Match{}, ErrNotParticipant
	}
	return m, nil
}
