package database

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"time"
)

// Seat binds a player id in a match to a reconnect token.
type Seat struct {
	MatchID  string
	PlayerID string
	Token    string
	JoinedAt time.Time
}

// ErrSeatNotFound is returned when a seat token is unknown.
var ErrSeatNotFound = errors.New("seat not found")

// ErrSeatTaken is returned when a seat already has an owner.
var ErrSeatTaken = errors.New("seat already taken")

// ClaimSeat records that playerID in matchID is held, returning a fresh token.
func (db *DB) ClaimSeat(matchID, playerID string) (*Seat, error) {
	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	_, err = db.conn.Exec(`
		INSERT INTO match_seats (match_id, player_id, token, joined_at)
		VALUES (?, ?, ?, ?)
	`, matchID, playerID, token, now)
	if err != nil {
		var count int
		if qerr := db.conn.QueryRow(`
			SELECT COUNT(*) FROM match_seats WHERE match_id = ? AND player_id = ?
		`, matchID, playerID).Scan(&count); qerr == nil && count > 0 {
			return nil, ErrSeatTaken
		}
		return nil, err
	}

	return &Seat{MatchID: matchID, PlayerID: playerID, Token: token, JoinedAt: now}, nil
}

// GetSeatByToken retrieves a seat by its reconnect token.
func (db *DB) GetSeatByToken(token string) (*Seat, error) {
	var s Seat
	err := db.conn.QueryRow(`
		SELECT match_id, player_id, token, joined_at
		FROM match_seats WHERE token = ?
	`, token).Scan(&s.MatchID, &s.PlayerID, &s.Token, &s.JoinedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSeatNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CountSeats returns how many seats of a match are claimed.
func (db *DB) CountSeats(matchID string) (int, error) {
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM match_seats WHERE match_id = ?`, matchID).Scan(&n)
	return n, err
}

// generateToken creates a secure random token.
func generateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
