package database

import (
	"database/sql"
	"errors"
	"time"
)

// MatchStatus mirrors game.Status for stored matches.
type MatchStatus string

const (
	MatchStatusSetup    MatchStatus = "setup"
	MatchStatusPlaying  MatchStatus = "playing"
	MatchStatusFinished MatchStatus = "finished"
)

// MatchInfo contains match metadata for listings.
type MatchInfo struct {
	ID          string      `json:"id"`
	MapType     string      `json:"mapType"`
	PlayerCount int         `json:"playerCount"`
	Status      MatchStatus `json:"status"`
	Winner      string      `json:"winner,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
	FinishedAt  *time.Time  `json:"finishedAt,omitempty"`
}

// ErrMatchNotFound is returned when a match is not found.
var ErrMatchNotFound = errors.New("match not found")

// CreateMatch records a new match.
func (db *DB) CreateMatch(id, mapType string, playerCount int) (*MatchInfo, error) {
	now := time.Now().UTC()
	_, err := db.conn.Exec(`
		INSERT INTO matches (id, map_type, player_count, status, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, id, mapType, playerCount, MatchStatusSetup, now)
	if err != nil {
		return nil, err
	}
	return &MatchInfo{
		ID:          id,
		MapType:     mapType,
		PlayerCount: playerCount,
		Status:      MatchStatusSetup,
		CreatedAt:   now,
	}, nil
}

// GetMatch retrieves a match by ID.
func (db *DB) GetMatch(id string) (*MatchInfo, error) {
	row := db.conn.QueryRow(`
		SELECT id, map_type, player_count, status, winner, created_at, finished_at
		FROM matches WHERE id = ?
	`, id)
	m, err := scanMatch(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMatchNotFound
	}
	return m, err
}

// ListActiveMatches returns matches that have not finished, newest first.
func (db *DB) ListActiveMatches() ([]*MatchInfo, error) {
	rows, err := db.conn.Query(`
		SELECT id, map_type, player_count, status, winner, created_at, finished_at
		FROM matches
		WHERE status != ?
		ORDER BY created_at DESC
	`, MatchStatusFinished)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matches := []*MatchInfo{}
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, m)
	}
	return matches, rows.Err()
}

// UpdateMatchStatus sets the match status.
func (db *DB) UpdateMatchStatus(id string, status MatchStatus) error {
	res, err := db.conn.Exec(`UPDATE matches SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// FinishMatch marks a match as finished with the given winner.
func (db *DB) FinishMatch(id, winner string) error {
	res, err := db.conn.Exec(`
		UPDATE matches SET status = ?, winner = ?, finished_at = ? WHERE id = ?
	`, MatchStatusFinished, winner, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SaveSnapshot stores the latest snapshot of a match.
func (db *DB) SaveSnapshot(matchID string, snapshot []byte, currentTurn int, phase string) error {
	_, err := db.conn.Exec(`
		INSERT INTO match_state (match_id, state_json, current_turn, phase, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(match_id) DO UPDATE SET
			state_json = excluded.state_json,
			current_turn = excluded.current_turn,
			phase = excluded.phase,
			updated_at = excluded.updated_at
	`, matchID, string(snapshot), currentTurn, phase, time.Now().UTC())
	return err
}

// LoadSnapshot retrieves the latest snapshot, or nil if none was saved.
func (db *DB) LoadSnapshot(matchID string) ([]byte, error) {
	var stateJSON string
	err := db.conn.QueryRow(`
		SELECT state_json FROM match_state WHERE match_id = ?
	`, matchID).Scan(&stateJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(stateJSON), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMatch(s scanner) (*MatchInfo, error) {
	var m MatchInfo
	var winner sql.NullString
	var finishedAt sql.NullTime
	if err := s.Scan(&m.ID, &m.MapType, &m.PlayerCount, &m.Status, &winner, &m.CreatedAt, &finishedAt); err != nil {
		return nil, err
	}
	if winner.Valid {
		m.Winner = winner.String
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		m.FinishedAt = &t
	}
	return &m, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrMatchNotFound
	}
	return nil
}
