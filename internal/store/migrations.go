package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// Activities (one row per canonical activity)
		`CREATE TABLE IF NOT EXISTS activities (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			name TEXT,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			distance REAL NOT NULL,
			moving_time REAL NOT NULL,
			avg_speed REAL NOT NULL,
			track_polyline TEXT,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_activities_start_time ON activities(start_time)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_type ON activities(type)`,

		// Records (parallel arrays kept as one JSON document per activity)
		`CREATE TABLE IF NOT EXISTS records (
			activity_id TEXT PRIMARY KEY,
			samples INTEGER NOT NULL,
			data TEXT NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}
