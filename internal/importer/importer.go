// Package importer pulls activities from device files and Strava into the
// activity store.
package importer

import (
	"context"
	"fmt"
	"log/slog"
)

// Importer brings activities from one source into the store
type Importer interface {
	Name() string
	Import(ctx context.Context, log *slog.Logger) (Result, error)
}

// Reconciler loads on-disk raw caches into the store without network access
type Reconciler interface {
	Reconcile(ctx context.Context, log *slog.Logger) (Result, error)
}

// Result counts what one importer run did
type Result struct {
	Importer  string
	Upserted  int // activities written
	Unchanged int // activities already stored as-is
	Records   int // records sets written
	Failed    int // files or payloads that could not be decoded
}

func (r *Result) add(o Result) {
	r.Upserted += o.Upserted
	r.Unchanged += o.Unchanged
	r.Records += o.Records
	r.Failed += o.Failed
}

// ConfigError reports an importer that cannot run with the current
// configuration. The coordinator skips that importer and continues.
type ConfigError struct {
	Importer string
	Msg      string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s importer: %s", e.Importer, e.Msg)
}
