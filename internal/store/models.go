package store

import (
	"errors"
	"time"

	"github.com/spigell/blindmatch/internal/compat"
	"github.com/spigell/blindmatch/internal/conversation"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

type MatchStatus string

const (
	MatchChatting  MatchStatus = "chatting"
	MatchRevealed  MatchStatus = "revealed"
	MatchContinued MatchStatus = "continued"
	MatchEnded     MatchStatus = "ended"
)

type Decision string

const (
	DecisionNone     Decision = ""
	DecisionContinue Decision = "continue"
	DecisionPass     Decision = "pass"
)

// Match pairs two users. UserA is the user who asked for the match.
type Match struct {
	ID                   string         `json:"id"`
	UserA                string         `json:"user_a"`
	UserB                string         `json:"user_b"`
	Status               MatchStatus    `json:"status"`
	InitialCompatibility float64        `json:"initial_compatibility"`
	CurrentCompatibility float64        `json:"current_compatibility"`
	Details              compat.Details `json:"compatibility_details,omitempty"`
	DecisionA            Decision       `json:"decision_a,omitempty"`
	DecisionB            Decision       `json:"decision_b,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
	RevealedAt           *time.Time     `json:"revealed_at,omitempty"`
}

// Has reports whether userID is one of the two participants.
func (m Match) Has(userID string) bool {
	return userID != "" && (m.UserA == userID || m.UserB == userID)
}

// Partner returns the other participant.
func (m Match) Partner(userID string) string {
	if m.UserA == userID {
		return m.UserB
	}
	return m.UserA
}

// Message is one chat message. Analysis is nil when the message was stored
// without an oracle.
type Message struct {
	ID        string                        `json:"id"`
	MatchID   string                        `json:"match_id"`
	SenderID  string                        `json:"sender_id"`
	Content   string                        `json:"content"`
	Analysis  *conversation.MessageAnalysis `json:"analysis,omitempty"`
	CreatedAt time.Time                     `json:"created_at"`
}
