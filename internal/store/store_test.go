package store

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestSQLiteBackend(t *testing.T) *SQLiteBackend {
	t.Helper()

	sqlDB, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err, "failed to open test database")

	b, err := NewSQLiteBackend(sqlDB)
	require.NoError(t, err, "failed to run migrations")
	return b
}

// backends returns a fresh instance of every backend for table-driven tests
func backends(t *testing.T) map[string]func() Backend {
	return map[string]func() Backend{
		"files": func() Backend { return NewFileBackend(t.TempDir()) },
		"sqlite": func() Backend {
			return newTestSQLiteBackend(t)
		},
	}
}

// memBackend keeps everything in maps so timing-sensitive tests avoid disk I/O
type memBackend struct {
	activities map[string]Activity
	records    map[string]*Records
}

func newMemBackend() *memBackend {
	return &memBackend{activities: map[string]Activity{}, records: map[string]*Records{}}
}

func (m *memBackend) LoadActivities() ([]Activity, error) {
	var all []Activity
	for _, a := range m.activities {
		all = append(all, a)
	}
	return all, nil
}

func (m *memBackend) SaveActivity(a Activity) error { m.activities[a.ID] = a; return nil }

func (m *memBackend) RecordIDs() ([]string, error) {
	var ids []string
	for id := range m.records {
		ids = append(ids, id)
	}
	return ids, nil
}

func (m *memBackend) LoadRecords(id string) (*Records, error) {
	r, ok := m.records[id]
	if !ok {
		return nil, ErrRecordsNotFound
	}
	return r, nil
}

func (m *memBackend) SaveRecords(id string, r *Records) error { m.records[id] = r; return nil }

func (m *memBackend) Close() error { return nil }

func sampleActivity(id string) Activity {
	start := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	return Activity{
		ID:         id,
		Type:       TypeRunning,
		StartTime:  start,
		EndTime:    start.Add(30 * time.Minute),
		Distance:   5000,
		MovingTime: 1800,
		AvgSpeed:   2.78,
	}
}

func TestUpsertSameIDTwiceKeepsOneRecord(t *testing.T) {
	for name, newBackend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			b := newBackend()
			s, err := New(b, time.Millisecond)
			require.NoError(t, err)
			defer s.Close()

			first := sampleActivity("file_abc_1717228800000")
			changed, err := s.Upsert(first)
			require.NoError(t, err)
			require.True(t, changed)

			second := first
			second.Distance = 5100
			second.Name = "Morning run"
			changed, err = s.Upsert(second)
			require.NoError(t, err)
			require.True(t, changed)

			require.Equal(t, 1, s.Count())
			got, err := s.Get(first.ID)
			require.NoError(t, err)
			require.Equal(t, 5100.0, got.Distance)
			require.Equal(t, "Morning run", got.Name)

			// Reloading from the backend sees a single, updated activity
			persisted, err := b.LoadActivities()
			require.NoError(t, err)
			require.Len(t, persisted, 1)
			require.True(t, persisted[0].Equal(second))
		})
	}
}

func TestUpsertUnchangedDoesNotWrite(t *testing.T) {
	dir := t.TempDir()
	s, err := New(NewFileBackend(dir), time.Millisecond)
	require.NoError(t, err)
	defer s.Close()

	a := sampleActivity("strava_42")
	changed, err := s.Upsert(a)
	require.NoError(t, err)
	require.True(t, changed)

	path := filepath.Join(dir, "activities", "strava_42.json")
	info, err := os.Stat(path)
	require.NoError(t, err)

	// Same instant in another location is still the same activity
	again := a
	again.StartTime = a.StartTime.In(time.FixedZone("CEST", 2*3600))
	changed, err = s.Upsert(again)
	require.NoError(t, err)
	require.False(t, changed)

	after, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, info.ModTime(), after.ModTime())
}

func TestGetMissing(t *testing.T) {
	s, err := New(NewFileBackend(t.TempDir()), time.Millisecond)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Get("nope")
	require.ErrorIs(t, err, ErrActivityNotFound)

	_, err = s.GetRecords("nope")
	require.ErrorIs(t, err, ErrRecordsNotFound)
	require.Empty(t, s.GetAll())
}

func TestUpsertRejectsInvalidID(t *testing.T) {
	s, err := New(NewFileBackend(t.TempDir()), time.Millisecond)
	require.NoError(t, err)
	defer s.Close()

	for _, id := range []string{"", ".", "..", "../escape", `a\b`} {
		_, err := s.Upsert(sampleActivity(id))
		require.Error(t, err, "id %q", id)
	}
}

func TestRecordsRoundTripKeepsNullPositions(t *testing.T) {
	for name, newBackend := range backends(t) {
		t.Run(name, func(t *testing.T) {
			b := newBackend()
			s, err := New(b, time.Millisecond)
			require.NoError(t, err)
			defer s.Close()

			var r Records
			r.Append(0, 0, 0, &LatLng{52.5, 13.4})
			r.Append(1, 2.5, 2.5, nil)
			r.Append(2, 5.1, 2.6, &LatLng{52.50002, 13.40003})

			require.False(t, s.HasRecords("a1"))
			require.NoError(t, s.PutRecords("a1", &r))
			require.True(t, s.HasRecords("a1"))

			got, err := s.GetRecords("a1")
			require.NoError(t, err)
			require.Equal(t, 3, got.Len())
			require.NoError(t, got.Validate())
			require.Nil(t, got.Position[1])
			require.Equal(t, LatLng{52.5, 13.4}, *got.Position[0])

			// A second store over the same backend knows about the records
			reopened, err := New(b, time.Millisecond)
			require.NoError(t, err)
			require.True(t, reopened.HasRecords("a1"))
		})
	}
}

func TestPutRecordsRejectsMisalignedArrays(t *testing.T) {
	s, err := New(NewFileBackend(t.TempDir()), time.Millisecond)
	require.NoError(t, err)
	defer s.Close()

	r := &Records{
		Time:     []float64{0, 1},
		Distance: []float64{0, 1},
		Speed:    []float64{0, 1},
		Position: []*LatLng{nil},
	}
	err = s.PutRecords("a1", r)
	require.ErrorIs(t, err, ErrMisalignedRecords)
	require.False(t, s.HasRecords("a1"))
}

func TestFileBackendMissingDirectoryIsEmpty(t *testing.T) {
	b := NewFileBackend(filepath.Join(t.TempDir(), "does", "not", "exist"))

	activities, err := b.LoadActivities()
	require.NoError(t, err)
	require.Empty(t, activities)

	ids, err := b.RecordIDs()
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestFileBackendIgnoresTempAndForeignFiles(t *testing.T) {
	dir := t.TempDir()
	b := NewFileBackend(dir)
	require.NoError(t, b.SaveActivity(sampleActivity("x1")))

	actDir := filepath.Join(dir, "activities")
	require.NoError(t, os.WriteFile(filepath.Join(actDir, ".x2.json.123.tmp"), []byte("{"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(actDir, "notes.txt"), []byte("hi"), 0644))

	activities, err := b.LoadActivities()
	require.NoError(t, err)
	require.Len(t, activities, 1)
	require.Equal(t, "x1", activities[0].ID)
}

func TestObserversReceiveCoalescedChanges(t *testing.T) {
	s, err := New(newMemBackend(), 200*time.Millisecond)
	require.NoError(t, err)

	var (
		mu      sync.Mutex
		batches [][]Activity
	)
	unsubscribe := s.Subscribe(ObserverFunc(func(changed []Activity) {
		mu.Lock()
		defer mu.Unlock()
		batches = append(batches, changed)
	}))
	defer unsubscribe()

	for i := 0; i < 20; i++ {
		a := sampleActivity("bulk")
		a.Distance = float64(1000 + i)
		_, err := s.Upsert(a)
		require.NoError(t, err)
	}
	b := sampleActivity("other")
	b.StartTime = b.StartTime.Add(-time.Hour)
	_, err = s.Upsert(b)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(batches) > 0
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, s.Close())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)
	require.Equal(t, "other", batches[0][0].ID)
	require.Equal(t, 1019.0, batches[0][1].Distance)
}

func TestCloseFlushesPendingChanges(t *testing.T) {
	s, err := New(NewFileBackend(t.TempDir()), time.Hour)
	require.NoError(t, err)

	var got []Activity
	s.Subscribe(ObserverFunc(func(changed []Activity) { got = changed }))

	_, err = s.Upsert(sampleActivity("a"))
	require.NoError(t, err)
	require.Nil(t, got)

	require.NoError(t, s.Close())
	require.Len(t, got, 1)
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(t.TempDir(), "postgres", 0)
	require.Error(t, err)
}

func TestOpenSQLiteBackend(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, BackendSQLite, time.Millisecond)
	require.NoError(t, err)
	_, err = s.Upsert(sampleActivity("a"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(dir, BackendSQLite, time.Millisecond)
	require.NoError(t, err)
	defer s.Close()
	require.True(t, s.Has("a"))
	require.FileExists(t, filepath.Join(dir, "runtopsy.db"))
}

func TestSortByStartTime(t *testing.T) {
	a := sampleActivity("b")
	b := sampleActivity("a")
	c := sampleActivity("c")
	c.StartTime = c.StartTime.Add(-time.Hour)

	list := []Activity{a, b, c}
	SortByStartTime(list)
	require.Equal(t, []string{"c", "a", "b"}, []string{list[0].ID, list[1].ID, list[2].ID})
}
