package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/spigell/blindmatch/internal/compat"
	"github.com/spigell/blindmatch/internal/conversation"
	"github.com/spigell/blindmatch/internal/profile"
)

const matchColumns = `id, user_a, user_b, status, initial_compatibility, current_compatibility,
	details, decision_a, decision_b, created_at, updated_at, revealed_at`

// CreateMatch stores a new match and moves both participants to in_chat in
// the same transaction. Empty ID and CreatedAt are filled in.
func (s *Store) CreateMatch(ctx context.Context, m *Match) error {
	if m.UserA == "" || m.UserB == "" || m.UserA == m.UserB {
		return fmt.Errorf("match needs two distinct users, got %q and %q", m.UserA, m.UserB)
	}

	now := s.now()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.Status == "" {
		m.Status = MatchChatting
	}
	m.UpdatedAt = now

	details, err := encodeDetails(m.Details)
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO matches (`+matchColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			m.ID, m.UserA, m.UserB, string(m.Status), m.InitialCompatibility, m.CurrentCompatibility,
			details, string(m.DecisionA), string(m.DecisionB), formatTime(m.CreatedAt), formatTime(m.UpdatedAt), nullTime(m.RevealedAt),
		); err != nil {
			return fmt.Errorf("inserting match: %w", err)
		}

		return setStatusTx(ctx, tx, profile.StatusInChat, formatTime(now), m.UserA, m.UserB)
	})
}

func (s *Store) GetMatch(ctx context.Context, id string) (Match, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+matchColumns+` FROM matches WHERE id = ?`, id)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Match{}, ErrNotFound
	}
	if err != nil {
		return Match{}, fmt.Errorf("loading match %s: %w", id, err)
	}
	return m, nil
}

// ActiveMatch returns the chatting match of userID, or nil when there is none.
func (s *Store) ActiveMatch(ctx context.Context, userID string) (*Match, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+matchColumns+` FROM matches
		WHERE (user_a = ? OR user_b = ?) AND status = ?
		ORDER BY created_at DESC LIMIT 1`,
		userID, userID, string(MatchChatting),
	)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading active match of %s: %w", userID, err)
	}
	return &m, nil
}

// MatchesFor returns every match of userID, newest first.
func (s *Store) MatchesFor(ctx context.Context, userID string) ([]Match, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+matchColumns+` FROM matches
		WHERE user_a = ? OR user_b = ?
		ORDER BY created_at DESC, rowid DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying matches: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating matches: %w", err)
	}
	return matches, nil
}

// UpdateMatch saves the mutable fields of m. When m has ended both
// participants return to active in the same transaction.
func (s *Store) UpdateMatch(ctx context.Context, m *Match) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return s.updateMatchTx(ctx, tx, m)
	})
}

// Messages returns the history of a match in the order it was written.
func (s *Store) Messages(ctx context.Context, matchID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, match_id, sender_id, content, analysis, created_at
		FROM messages WHERE match_id = ?
		ORDER BY created_at ASC, rowid ASC`,
		matchID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var (
			msg       Message
			analysis  sql.NullString
			createdAt string
		)
		if err := rows.Scan(&msg.ID, &msg.MatchID, &msg.SenderID, &msg.Content, &analysis, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		if msg.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		msg.Analysis = decodeAnalysis(analysis)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return messages, nil
}

// RecordMessage stores msg and the refreshed match atomically. Empty ID and
// CreatedAt of msg are filled in.
func (s *Store) RecordMessage(ctx context.Context, msg *Message, m *Match) error {
	if msg.MatchID != m.ID {
		return fmt.Errorf("message belongs to match %q, not %q", msg.MatchID, m.ID)
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = s.now()
	}

	var analysis sql.NullString
	if msg.Analysis != nil {
		raw, err := json.Marshal(msg.Analysis)
		if err != nil {
			return fmt.Errorf("encoding analysis: %w", err)
		}
		analysis = sql.NullString{String: string(raw), Valid: true}
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO messages (id, match_id, sender_id, content, analysis, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`,
			msg.ID, msg.MatchID, msg.SenderID, msg.Content, analysis, formatTime(msg.CreatedAt),
		); err != nil {
			return fmt.Errorf("inserting message: %w", err)
		}

		return s.updateMatchTx(ctx, tx, m)
	})
}

func (s *Store) updateMatchTx(ctx context.Context, tx *sql.Tx, m *Match) error {
	details, err := encodeDetails(m.Details)
	if err != nil {
		return err
	}

	now := s.now()
	m.UpdatedAt = now

	res, err := tx.ExecContext(ctx, `
		UPDATE matches SET
			status = ?, current_compatibility = ?, details = ?,
			decision_a = ?, decision_b = ?, updated_at = ?, revealed_at = ?
		WHERE id = ?`,
		string(m.Status), m.CurrentCompatibility, details,
		string(m.DecisionA), string(m.DecisionB), formatTime(now), nullTime(m.RevealedAt),
		m.ID,
	)
	if err != nil {
		return fmt.Errorf("updating match %s: %w", m.ID, err)
	}
	if err := requireRow(res); err != nil {
		return err
	}

	if m.Status == MatchEnded {
		return setStatusTx(ctx, tx, profile.StatusActive, formatTime(now), m.UserA, m.UserB)
	}
	return nil
}

func setStatusTx(ctx context.Context, tx *sql.Tx, status profile.Status, at string, ids ...string) error {
	for _, id := range ids {
		res, err := tx.ExecContext(ctx, `UPDATE profiles SET status = ?, updated_at = ? WHERE id = ?`, string(status), at, id)
		if err != nil {
			return fmt.Errorf("updating status of %s: %w", id, err)
		}
		if err := requireRow(res); err != nil {
			return fmt.Errorf("updating status of %s: %w", id, err)
		}
	}
	return nil
}

func scanMatch(row scanner) (Match, error) {
	var (
		m                    Match
		status, details      string
		decisionA, decisionB string
		createdAt, updatedAt string
		revealedAt           sql.NullString
	)
	if err := row.Scan(&m.ID, &m.UserA, &m.UserB, &status, &m.InitialCompatibility, &m.CurrentCompatibility,
		&details, &decisionA, &decisionB, &createdAt, &updatedAt, &revealedAt); err != nil {
		return Match{}, err
	}

	m.Status = MatchStatus(status)
	m.DecisionA = Decision(decisionA)
	m.DecisionB = Decision(decisionB)

	if err := json.Unmarshal([]byte(details), &m.Details); err != nil {
		m.Details = compat.Details{}
	}

	var err error
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return Match{}, err
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return Match{}, err
	}
	if m.RevealedAt, err = parseNullTime(revealedAt); err != nil {
		return Match{}, err
	}

	return m, nil
}

func encodeDetails(d compat.Details) (string, error) {
	if d == nil {
		return "{}", nil
	}
	raw, err := json.Marshal(d)
	if err != nil {
		return "", fmt.Errorf("encoding compatibility details: %w", err)
	}
	return string(raw), nil
}

// decodeAnalysis returns nil for missing or unreadable analyses so the
// message counts as unanalysed.
func decodeAnalysis(value sql.NullString) *conversation.MessageAnalysis {
	if !value.Valid || value.String == "" {
		return nil
	}
	var a conversation.MessageAnalysis
	if err := json.Unmarshal([]byte(value.String), &a); err != nil {
		return nil
	}
	return &a
}
