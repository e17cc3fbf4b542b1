package importer

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"runtopsy/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestStore opens a files-backed store under configDir/db
func newTestStore(t *testing.T, configDir string) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(configDir, "db"), store.BackendFiles, 10*time.Millisecond)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}
