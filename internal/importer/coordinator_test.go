package importer

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeImporter struct {
	name  string
	err   error
	block chan struct{}

	mu         sync.Mutex
	order      *[]string
	reconciled int
}

func (f *fakeImporter) Name() string { return f.name }

func (f *fakeImporter) Import(ctx context.Context, log *slog.Logger) (Result, error) {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.order != nil {
		*f.order = append(*f.order, f.name)
	}
	return Result{Upserted: 1}, f.err
}

func (f *fakeImporter) Reconcile(ctx context.Context, log *slog.Logger) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reconciled++
	return Result{}, nil
}

func TestCoordinatorRunsInOrder(t *testing.T) {
	var order []string
	c := NewCoordinator(discardLogger(),
		&fakeImporter{name: "file", order: &order},
		&fakeImporter{name: "strava", order: &order},
	)

	results, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"file", "strava"}, order)
	require.Len(t, results, 2)
	require.Equal(t, "file", results[0].Importer)
	require.Equal(t, "strava", results[1].Importer)
}

func TestCoordinatorSkipsMisconfiguredImporter(t *testing.T) {
	var order []string
	c := NewCoordinator(discardLogger(),
		&fakeImporter{name: "file", order: &order, err: &ConfigError{Importer: "file", Msg: "not a directory: /media/GARMIN"}},
		&fakeImporter{name: "strava", order: &order},
	)

	results, err := c.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"file", "strava"}, order)
	require.Len(t, results, 2)
	require.Equal(t, "file", results[0].Importer)
	require.Equal(t, 1, results[0].Upserted)
	require.Equal(t, "strava", results[1].Importer)
}

func TestCoordinatorStopsOnOtherErrors(t *testing.T) {
	var order []string
	boom := errors.New("disk full")
	c := NewCoordinator(discardLogger(),
		&fakeImporter{name: "file", order: &order, err: boom},
		&fakeImporter{name: "strava", order: &order},
	)

	_, err := c.Run(context.Background())
	require.ErrorIs(t, err, boom)
	require.Equal(t, []string{"file"}, order)
}

func TestCoordinatorRejectsConcurrentRun(t *testing.T) {
	block := make(chan struct{})
	c := NewCoordinator(discardLogger(), &fakeImporter{name: "slow", block: block})

	done := make(chan error, 1)
	go func() {
		_, err := c.Run(context.Background())
		done <- err
	}()
	require.Eventually(t, c.Running, time.Second, time.Millisecond)

	_, err := c.Run(context.Background())
	require.ErrorIs(t, err, ErrImportInProgress)
	_, err = c.Reconcile(context.Background())
	require.ErrorIs(t, err, ErrImportInProgress)

	close(block)
	require.NoError(t, <-done)
	require.False(t, c.Running())
}

func TestCoordinatorReconcileSkipsPlainImporters(t *testing.T) {
	f := &fakeImporter{name: "file"}
	c := NewCoordinator(discardLogger(), f, plainImporter{})

	results, err := c.Reconcile(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, 1, f.reconciled)
}

type plainImporter struct{}

func (plainImporter) Name() string { return "plain" }

func (plainImporter) Import(ctx context.Context, log *slog.Logger) (Result, error) {
	return Result{}, nil
}

func TestWatchRunsAfterFilesSettle(t *testing.T) {
	dir := t.TempDir()
	var order []string
	imp := &fakeImporter{name: "file", order: &order}
	c := NewCoordinator(discardLogger(), imp)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, dir, c, 50*time.Millisecond, discardLogger()) }()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "run.fit"), []byte("x"), 0644))

	require.Eventually(t, func() bool {
		imp.mu.Lock()
		defer imp.mu.Unlock()
		return len(order) == 1
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
}
