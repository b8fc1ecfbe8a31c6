package store

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/spigell/blindmatch/internal/matching"
	"github.com/spigell/blindmatch/internal/profile"
)

var _ matching.CandidatePool = (*Store)(nil)

const profileColumns = `id, attributes, status, onboarding_completed_at, vector`

// UpsertProfile stores p. Status, onboarding time and vector live in their
// own columns; the rest is kept as a JSON attribute document.
func (s *Store) UpsertProfile(ctx context.Context, p profile.Profile) error {
	if strings.TrimSpace(p.ID) == "" {
		return errors.New("profile id is required")
	}

	status := p.Status
	if status == "" {
		status = profile.StatusOnboarding
	}
	vector := encodeFloat32s(p.Vector)

	attrs := p
	attrs.Status = ""
	attrs.OnboardingCompleted = nil
	attrs.Vector = nil
	doc, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("encoding profile %s: %w", p.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO profiles (id, attributes, status, onboarding_completed_at, vector, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			attributes = excluded.attributes,
			status = excluded.status,
			onboarding_completed_at = excluded.onboarding_completed_at,
			vector = excluded.vector,
			updated_at = excluded.updated_at`,
		p.ID, string(doc), string(status), nullTime(p.OnboardingCompleted), vector, formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("saving profile %s: %w", p.ID, err)
	}
	return nil
}

func (s *Store) GetProfile(ctx context.Context, id string) (profile.Profile, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+profileColumns+` FROM profiles WHERE id = ?`, id)
	p, err := scanProfile(row)
	if errors.Is(err, sql.ErrNoRows) {
		return profile.Profile{}, ErrNotFound
	}
	if err != nil {
		return profile.Profile{}, fmt.Errorf("loading profile %s: %w", id, err)
	}
	return p, nil
}

// ListProfiles returns every stored profile ordered by id.
func (s *Store) ListProfiles(ctx context.Context) ([]profile.Profile, error) {
	return s.queryProfiles(ctx, `SELECT `+profileColumns+` FROM profiles ORDER BY id`)
}

func (s *Store) SetStatus(ctx context.Context, id string, status profile.Status) error {
	res, err := s.db.ExecContext(ctx, `UPDATE profiles SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), formatTime(s.now()), id)
	if err != nil {
		return fmt.Errorf("updating status of %s: %w", id, err)
	}
	return requireRow(res)
}

// Candidates returns the eligible partners of userID: active, onboarded,
// carrying a vector and never matched with userID in either direction.
func (s *Store) Candidates(ctx context.Context, userID string, _ profile.Profile) ([]profile.Profile, error) {
	return s.queryProfiles(ctx, `
		SELECT `+profileColumns+` FROM profiles p
		WHERE p.status = ?
			AND p.onboarding_completed_at IS NOT NULL
			AND p.vector IS NOT NULL AND length(p.vector) > 0
			AND p.id <> ?
			AND NOT EXISTS (
				SELECT 1 FROM matches m
				WHERE (m.user_a = ? AND m.user_b = p.id) OR (m.user_b = ? AND m.user_a = p.id)
			)
		ORDER BY p.id`,
		string(profile.StatusActive), userID, userID, userID,
	)
}

func (s *Store) queryProfiles(ctx context.Context, query string, args ...any) ([]profile.Profile, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying profiles: %w", err)
	}
	defer rows.Close()

	var profiles []profile.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating profiles: %w", err)
	}
	return profiles, nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanProfile decodes a row leniently: broken attributes fall back to
// neutral defaults instead of failing the read.
func scanProfile(row scanner) (profile.Profile, error) {
	var (
		id, doc, status string
		completed       sql.NullString
		blob            []byte
	)
	if err := row.Scan(&id, &doc, &status, &completed, &blob); err != nil {
		return profile.Profile{}, err
	}

	var attrs map[string]any
	if err := json.Unmarshal([]byte(doc), &attrs); err != nil {
		attrs = nil
	}

	p := profile.FromAttributes(attrs)
	p.ID = id
	p.Status = profile.Status(status)

	if t, err := parseNullTime(completed); err == nil {
		p.OnboardingCompleted = t
	}
	if v, err := decodeFloat32s(blob); err == nil && len(v) > 0 {
		p.Vector = v
	}

	return p, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// encodeFloat32s serializes a float32 slice to little-endian bytes.
func encodeFloat32s(v []float32) []byte {
	if len(v) == 0 {
		return nil
	}
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// decodeFloat32s deserializes little-endian bytes into a new float32 slice.
func decodeFloat32s(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("byte slice length %d is not a multiple of 4", len(b))
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v, nil
}
