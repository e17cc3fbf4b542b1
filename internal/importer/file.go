package importer

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"runtopsy/internal/decode"
	"runtopsy/internal/store"
)

// FileImporter copies device files from an import directory (usually a
// mounted watch) into a managed directory and loads every managed file.
type FileImporter struct {
	importDir string
	filesDir  string
	store     *store.Store
	registry  decode.Registry
}

// NewFileImporter manages files under <configDir>/files
func NewFileImporter(configDir, importDir string, st *store.Store, registry decode.Registry) *FileImporter {
	if registry == nil {
		registry = decode.DefaultRegistry()
	}
	return &FileImporter{
		importDir: importDir,
		filesDir:  filepath.Join(configDir, "files"),
		store:     st,
		registry:  registry,
	}
}

func (f *FileImporter) Name() string { return "file" }

// ImportDir is the directory files are copied from
func (f *FileImporter) ImportDir() string { return f.importDir }

// Import copies new files from the import directory and loads all managed files
func (f *FileImporter) Import(ctx context.Context, log *slog.Logger) (Result, error) {
	if f.importDir == "" {
		return Result{}, &ConfigError{Importer: f.Name(), Msg: "import directory not configured"}
	}
	info, err := os.Stat(f.importDir)
	if err != nil || !info.IsDir() {
		return Result{}, &ConfigError{Importer: f.Name(), Msg: "not a directory: " + f.importDir}
	}

	log.Info("importing files", "from", f.importDir)
	if err := f.copyFiles(ctx, log); err != nil {
		return Result{}, err
	}
	return f.load(ctx, log)
}

// Reconcile loads the managed directory only
func (f *FileImporter) Reconcile(ctx context.Context, log *slog.Logger) (Result, error) {
	return f.load(ctx, log)
}

func (f *FileImporter) copyFiles(ctx context.Context, log *slog.Logger) error {
	files, err := f.findFiles(f.importDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(f.filesDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", f.filesDir, err)
	}

	for _, src := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		dst := filepath.Join(f.filesDir, filepath.Base(src))
		if _, err := os.Stat(dst); err == nil {
			continue
		}
		log.Debug("copying file", "file", filepath.Base(src))
		if err := copyFile(src, dst); err != nil {
			return err
		}
	}
	return nil
}

func (f *FileImporter) load(ctx context.Context, log *slog.Logger) (Result, error) {
	res := Result{Importer: f.Name()}

	files, err := f.findFiles(f.filesDir)
	if err != nil {
		return res, err
	}
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		r, err := f.loadFile(ctx, path)
		var decodeErr *decodeError
		if errors.As(err, &decodeErr) {
			log.Warn("skipping file", "file", filepath.Base(path), "err", decodeErr.err)
			res.Failed++
			continue
		}
		if err != nil {
			return res, err
		}
		res.add(r)
	}

	log.Info("files loaded", "files", len(files), "upserted", res.Upserted, "unchanged", res.Unchanged, "failed", res.Failed)
	return res, nil
}

type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return e.err.Error() }

func (f *FileImporter) loadFile(ctx context.Context, path string) (Result, error) {
	var res Result

	dec, ok := f.registry.For(path)
	if !ok {
		return res, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return res, fmt.Errorf("reading %s: %w", path, err)
	}
	file, err := dec.Decode(ctx, bytes.NewReader(data))
	if err != nil {
		return res, &decodeError{err: err}
	}

	hash := contentHash(data)
	for _, session := range file.Sessions {
		activity := extractFileActivity(hash, session)
		changed, err := f.store.Upsert(activity)
		if err != nil {
			return res, err
		}
		if changed {
			res.Upserted++
		} else {
			res.Unchanged++
			if f.store.HasRecords(activity.ID) {
				continue
			}
		}
		if err := f.store.PutRecords(activity.ID, extractFileRecords(session)); err != nil {
			return res, err
		}
		res.Records++
	}
	return res, nil
}

// findFiles lists regular files in dir that have a decoder. A missing
// directory has no files.
func (f *FileImporter) findFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", dir, err)
	}

	var files []string
	for _, e := range entries {
		if _, ok := f.registry.For(e.Name()); !ok {
			continue
		}
		path := filepath.Join(dir, e.Name())
		// follow symlinks, skip directories named like files
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

// fileActivityID derives a stable id from the file content and session start
func fileActivityID(hash string, session decode.Session) string {
	return fmt.Sprintf("file_%s_%d", hash, session.StartTime.UnixMilli())
}

func contentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:12]
}

func extractFileActivity(hash string, session decode.Session) store.Activity {
	return store.Activity{
		ID:         fileActivityID(hash, session),
		Type:       typeFromSport(session.Sport),
		StartTime:  session.StartTime,
		EndTime:    session.Timestamp,
		Distance:   session.TotalDistance,
		MovingTime: session.TotalTimerTime,
		AvgSpeed:   session.AvgSpeed,
	}
}

// extractFileRecords flattens the records of all laps. A missing distance
// repeats the previous one, a missing speed is 0.
func extractFileRecords(session decode.Session) *store.Records {
	r := &store.Records{
		Time:     []float64{},
		Distance: []float64{},
		Speed:    []float64{},
		Position: []*store.LatLng{},
	}
	var distance float64
	for _, lap := range session.Laps {
		for _, rec := range lap.Records {
			if rec.Distance != nil {
				distance = *rec.Distance
			}
			var speed float64
			if rec.Speed != nil {
				speed = *rec.Speed
			}
			var pos *store.LatLng
			if rec.PositionLat != nil && rec.PositionLong != nil {
				pos = &store.LatLng{*rec.PositionLat, *rec.PositionLong}
			}
			r.Append(rec.ElapsedTime, distance, speed, pos)
		}
	}
	return r
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), "."+filepath.Base(dst)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("copying %s: %w", src, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return nil
}
