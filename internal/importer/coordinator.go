package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// ErrImportInProgress is returned when Run is called while a run is active
var ErrImportInProgress = errors.New("import already in progress")

// Coordinator runs importers one after another, in the order given
type Coordinator struct {
	importers []Importer
	logger    *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewCoordinator creates a coordinator for the given importers
func NewCoordinator(logger *slog.Logger, importers ...Importer) *Coordinator {
	return &Coordinator{importers: importers, logger: logger}
}

// Importers returns the configured importers
func (c *Coordinator) Importers() []Importer {
	return c.importers
}

// Run imports from every importer. A configuration error skips only that
// importer; any other error ends the run.
func (c *Coordinator) Run(ctx context.Context) ([]Result, error) {
	if !c.start() {
		return nil, ErrImportInProgress
	}
	defer c.finish()

	log := c.logger.With("run", uuid.NewString())
	log.Info("import started", "importers", len(c.importers))

	var results []Result
	for _, imp := range c.importers {
		ilog := log.With("importer", imp.Name())
		res, err := imp.Import(ctx, ilog)
		res.Importer = imp.Name()

		// work done before a configuration error still counts
		results = append(results, res)

		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			ilog.Error("importer skipped", "err", cfgErr)
			continue
		}
		if err != nil {
			log.Error("import failed", "importer", imp.Name(), "err", err)
			return results, fmt.Errorf("%s importer: %w", imp.Name(), err)
		}
	}

	log.Info("import finished")
	return results, nil
}

// Reconcile runs only the offline reconciliation of every importer
func (c *Coordinator) Reconcile(ctx context.Context) ([]Result, error) {
	if !c.start() {
		return nil, ErrImportInProgress
	}
	defer c.finish()

	log := c.logger.With("run", uuid.NewString())

	var results []Result
	for _, imp := range c.importers {
		r, ok := imp.(Reconciler)
		if !ok {
			continue
		}
		res, err := r.Reconcile(ctx, log.With("importer", imp.Name()))
		res.Importer = imp.Name()
		results = append(results, res)
		if err != nil {
			return results, fmt.Errorf("%s importer: %w", imp.Name(), err)
		}
	}
	return results, nil
}

// Running reports whether a run is active
func (c *Coordinator) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

func (c *Coordinator) start() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.running {
		return false
	}
	c.running = true
	return true
}

func (c *Coordinator) finish() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}
