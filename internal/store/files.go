package store

import (
	"path/filepath"
)

// FileBackend stores one JSON file per activity and per records set:
//
//	<root>/activities/<id>.json
//	<root>/records/<id>.json
type FileBackend struct {
	root string
}

// NewFileBackend creates the backend rooted at dir. Directories are created
// lazily on first write.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{root: dir}
}

func (b *FileBackend) activitiesDir() string { return filepath.Join(b.root, "activities") }
func (b *FileBackend) recordsDir() string    { return filepath.Join(b.root, "records") }

// LoadActivities reads every activity file
func (b *FileBackend) LoadActivities() ([]Activity, error) {
	ids, err := ListJSONIDs(b.activitiesDir())
	if err != nil {
		return nil, err
	}

	activities := make([]Activity, 0, len(ids))
	for _, id := range ids {
		var a Activity
		found, err := ReadJSON(b.activityPath(id), &a)
		if err != nil {
			return nil, err
		}
		if !found {
			// removed between listing and reading
			continue
		}
		if a.ID == "" {
			a.ID = id
		}
		activities = append(activities, a)
	}
	return activities, nil
}

// SaveActivity replaces the activity file
func (b *FileBackend) SaveActivity(a Activity) error {
	return WriteJSON(b.activityPath(a.ID), a)
}

// RecordIDs lists activities that have a records file
func (b *FileBackend) RecordIDs() ([]string, error) {
	return ListJSONIDs(b.recordsDir())
}

// LoadRecords reads the records file of an activity
func (b *FileBackend) LoadRecords(id string) (*Records, error) {
	var r Records
	found, err := ReadJSON(b.recordsPath(id), &r)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrRecordsNotFound
	}
	return &r, nil
}

// SaveRecords replaces the records file of an activity
func (b *FileBackend) SaveRecords(id string, r *Records) error {
	return WriteJSON(b.recordsPath(id), r)
}

// Close is a no-op
func (b *FileBackend) Close() error { return nil }

func (b *FileBackend) activityPath(id string) string {
	return filepath.Join(b.activitiesDir(), safeName(id)+".json")
}

func (b *FileBackend) recordsPath(id string) string {
	return filepath.Join(b.recordsDir(), safeName(id)+".json")
}

// safeName keeps ids from escaping the store directory
func safeName(id string) string {
	return filepath.Base(id)
}
