package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteBackend keeps activities and records in a single SQLite database
type SQLiteBackend struct {
	db *sql.DB
}

// OpenSQLite opens the SQLite database at path, creating it if necessary
func OpenSQLite(path string) (*SQLiteBackend, error) {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	b, err := NewSQLiteBackend(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

// NewSQLiteBackend wraps an open connection and runs migrations
func NewSQLiteBackend(db *sql.DB) (*SQLiteBackend, error) {
	// A single connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return &SQLiteBackend{db: db}, nil
}

// LoadActivities reads every activity row
func (b *SQLiteBackend) LoadActivities() ([]Activity, error) {
	rows, err := b.db.Query(`
		SELECT id, type, name, start_time, end_time, distance, moving_time,
			avg_speed, track_polyline
		FROM activities
		ORDER BY start_time
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		var (
			a                  Activity
			typ                string
			name, polyline     sql.NullString
			startTime, endTime string
		)
		err := rows.Scan(&a.ID, &typ, &name, &startTime, &endTime,
			&a.Distance, &a.MovingTime, &a.AvgSpeed, &polyline)
		if err != nil {
			return nil, err
		}
		a.Type = ActivityType(typ)
		a.Name = name.String
		a.TrackPolyline = polyline.String
		if a.StartTime, err = time.Parse(time.RFC3339Nano, startTime); err != nil {
			return nil, fmt.Errorf("activity %s: parsing start_time: %w", a.ID, err)
		}
		if a.EndTime, err = time.Parse(time.RFC3339Nano, endTime); err != nil {
			return nil, fmt.Errorf("activity %s: parsing end_time: %w", a.ID, err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// SaveActivity inserts or replaces an activity row
func (b *SQLiteBackend) SaveActivity(a Activity) error {
	_, err := b.db.Exec(`
		INSERT INTO activities (
			id, type, name, start_time, end_time, distance, moving_time,
			avg_speed, track_polyline, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			type = excluded.type,
			name = excluded.name,
			start_time = excluded.start_time,
			end_time = excluded.end_time,
			distance = excluded.distance,
			moving_time = excluded.moving_time,
			avg_speed = excluded.avg_speed,
			track_polyline = excluded.track_polyline,
			updated_at = CURRENT_TIMESTAMP
	`,
		a.ID, string(a.Type), toNullString(a.Name),
		a.StartTime.UTC().Format(time.RFC3339Nano), a.EndTime.UTC().Format(time.RFC3339Nano),
		a.Distance, a.MovingTime, a.AvgSpeed, toNullString(a.TrackPolyline),
	)
	return err
}

// RecordIDs lists activities that have records
func (b *SQLiteBackend) RecordIDs() ([]string, error) {
	rows, err := b.db.Query(`SELECT activity_id FROM records ORDER BY activity_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// LoadRecords reads the records of an activity
func (b *SQLiteBackend) LoadRecords(id string) (*Records, error) {
	var data string
	err := b.db.QueryRow(`SELECT data FROM records WHERE activity_id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRecordsNotFound
	}
	if err != nil {
		return nil, err
	}

	var r Records
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("decoding records %s: %w", id, err)
	}
	return &r, nil
}

// SaveRecords replaces the records of an activity
func (b *SQLiteBackend) SaveRecords(id string, r *Records) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encoding records %s: %w", id, err)
	}
	_, err = b.db.Exec(`
		INSERT INTO records (activity_id, samples, data, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(activity_id) DO UPDATE SET
			samples = excluded.samples,
			data = excluded.data,
			updated_at = CURRENT_TIMESTAMP
	`, id, r.Len(), string(data))
	return err
}

// Close closes the underlying database connection
func (b *SQLiteBackend) Close() error {
	return b.db.Close()
}

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
