package store

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Metadata is the persisted key/value state of one importer
type Metadata map[string]json.RawMessage

// String returns the string value of key, or "" when absent
func (m Metadata) String(key string) string {
	raw, ok := m[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// Int64 returns the integer value of key. Numbers written as floats or
// quoted strings are accepted.
func (m Metadata) Int64(key string) (int64, bool) {
	raw, ok := m[key]
	if !ok {
		return 0, false
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return int64(f), true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, true
		}
	}
	return 0, false
}

// MetadataStore reads and merges the metadata file of one importer.
// Concurrent updates from several processes are not supported.
type MetadataStore struct {
	path string
}

// NewMetadataStore returns a store backed by the file at path
func NewMetadataStore(path string) *MetadataStore {
	return &MetadataStore{path: path}
}

// Path returns the metadata file location
func (s *MetadataStore) Path() string {
	return s.path
}

// Read returns the persisted metadata, or an empty object if the file
// does not exist yet
func (s *MetadataStore) Read() (Metadata, error) {
	m := Metadata{}
	if _, err := ReadJSON(s.path, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = Metadata{}
	}
	return m, nil
}

// Update merges patch into the persisted metadata, last write wins per key,
// and returns the merged result
func (s *MetadataStore) Update(patch map[string]any) (Metadata, error) {
	m, err := s.Read()
	if err != nil {
		return nil, err
	}
	for key, value := range patch {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encoding metadata %s: %w", key, err)
		}
		m[key] = raw
	}
	if err := WriteJSON(s.path, m); err != nil {
		return nil, err
	}
	return m, nil
}
