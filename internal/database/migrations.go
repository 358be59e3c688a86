package database

type migration struct {
	id   int
	name string
	sql  string
}

var migrations = []migration{
	{
		id:   1,
		name: "initial_schema",
		sql: `
			-- Matches table: one row per match
			CREATE TABLE matches (
				id TEXT PRIMARY KEY,
				map_type TEXT NOT NULL,
				player_count INTEGER NOT NULL,
				status TEXT NOT NULL DEFAULT 'setup',
				winner TEXT,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				finished_at DATETIME
			);
			CREATE INDEX idx_matches_status ON matches(status);

			-- Latest snapshot per match
			CREATE TABLE match_state (
				match_id TEXT PRIMARY KEY,
				state_json TEXT NOT NULL,
				current_turn INTEGER NOT NULL DEFAULT 1,
				phase TEXT NOT NULL,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				FOREIGN KEY (match_id) REFERENCES matches(id) ON DELETE CASCADE
			);
		`,
	},
	{
		id:   2,
		name: "match_history",
		sql: `
			CREATE TABLE match_history (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				match_id TEXT NOT NULL,
				turn INTEGER NOT NULL,
				player_id TEXT,
				event_type TEXT NOT NULL,
				message TEXT NOT NULL,
				created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				FOREIGN KEY (match_id) REFERENCES matches(id) ON DELETE CASCADE
			);
			CREATE INDEX idx_match_history_match ON match_history(match_id);
		`,
	},
	{
		id:   3,
		name: "match_seats",
		sql: `
			-- Seat tokens let a client reclaim its seat after a reconnect
			CREATE TABLE match_seats (
				match_id TEXT NOT NULL,
				player_id TEXT NOT NULL,
				token TEXT UNIQUE NOT NULL,
				joined_at DATETIME DEFAULT CURRENT_TIMESTAMP,
				PRIMARY KEY (match_id, player_id),
				FOREIGN KEY (match_id) REFERENCES matches(id) ON DELETE CASCADE
			);
		`,
	},
}
