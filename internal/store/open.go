package store

import (
	"fmt"
	"path/filepath"
	"time"
)

// Backend names accepted by Open
const (
	BackendFiles  = "files"
	BackendSQLite = "sqlite"
)

// Open creates the configured backend under dir and loads the store.
// The files backend lays out dir/activities and dir/records; the sqlite
// backend keeps everything in dir/runtopsy.db.
func Open(dir, backend string, notifyInterval time.Duration) (*Store, error) {
	var b Backend
	switch backend {
	case "", BackendFiles:
		b = NewFileBackend(dir)
	case BackendSQLite:
		sb, err := OpenSQLite(filepath.Join(dir, "runtopsy.db"))
		if err != nil {
			return nil, err
		}
		b = sb
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}

	s, err := New(b, notifyInterval)
	if err != nil {
		b.Close()
		return nil, err
	}
	return s, nil
}
