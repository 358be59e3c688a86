package database

import "time"

// HistoryEvent represents a single match event in the history log.
type HistoryEvent struct {
	ID        int64     `json:"id"`
	MatchID   string    `json:"matchId"`
	Turn      int       `json:"turn"`
	PlayerID  string    `json:"playerId,omitempty"`
	EventType string    `json:"eventType"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
}

// AddHistoryEvent adds a new event to the match history.
func (db *DB) AddHistoryEvent(matchID string, turn int, playerID, eventType, message string) error {
	_, err := db.conn.Exec(`
		INSERT INTO match_history (match_id, turn, player_id, event_type, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, matchID, turn, playerID, eventType, message, time.Now().UTC())
	return err
}

// GetMatchHistory retrieves all history events for a match, ordered chronologically.
func (db *DB) GetMatchHistory(matchID string) ([]*HistoryEvent, error) {
	return db.GetMatchHistorySince(matchID, 0)
}

// GetMatchHistorySince retrieves history events after a given ID (for incremental updates).
func (db *DB) GetMatchHistorySince(matchID string, afterID int64) ([]*HistoryEvent, error) {
	rows, err := db.conn.Query(`
		SELECT id, match_id, turn, COALESCE(player_id, ''), event_type, message, created_at
		FROM match_history
		WHERE match_id = ? AND id > ?
		ORDER BY id ASC
	`, matchID, afterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*HistoryEvent
	for rows.Next() {
		e := &HistoryEvent{}
		if err := rows.Scan(&e.ID, &e.MatchID, &e.Turn, &e.PlayerID, &e.EventType, &e.Message, &e.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
