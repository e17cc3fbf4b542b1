package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"

	"runtopsy/internal/auth"
	"runtopsy/internal/config"
	"runtopsy/internal/decode"
	"runtopsy/internal/importer"
	"runtopsy/internal/store"
	"runtopsy/internal/tui"
)

const usage = `usage: runtopsy [-home dir] [command]

commands:
  tui          browse activities (default)
  import       run every enabled importer once
  watch        import whenever files appear in the import directory
  list         print stored activities
  show <id>    print one activity and its speed chart
  dump [-format json|yaml] <file>
               print the decoded content of a device file
`

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	home := flag.String("home", "", "config directory (default $"+config.HomeEnv+" or ~/.runtopsy)")
	flag.Usage = func() { fmt.Fprint(flag.CommandLine.Output(), usage) }
	flag.Parse()

	cmd, args := "tui", flag.Args()
	if len(args) > 0 {
		cmd, args = args[0], args[1:]
	}

	// dump needs neither config nor store
	if cmd == "dump" {
		return dump(os.Stdout, args)
	}

	dir, err := config.Dir(*home)
	if err != nil {
		return err
	}

	// Load configuration
	cfg, err := config.Load(dir)
	if errors.Is(err, config.ErrNoConfig) {
		fmt.Println("No config file found. Creating example config...")
		if err := config.CreateExample(dir); err != nil {
			return fmt.Errorf("creating example config: %w", err)
		}
		fmt.Printf("\nPlease edit the config file at:\n  %s\n\n", filepath.Join(dir, "config.json"))
		fmt.Println("Set importers.file.import_dir to the activity folder of your device,")
		fmt.Println("and add Strava API credentials from https://www.strava.com/settings/api to import from Strava.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// Validate config
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Config validation failed: %v\n\n", err)
		fmt.Printf("Please edit the config file at:\n  %s\n", filepath.Join(dir, "config.json"))
		return nil
	}

	// The TUI owns the terminal, so it logs to a file
	logOut := io.Writer(os.Stderr)
	if cmd == "tui" {
		f, err := os.OpenFile(filepath.Join(dir, "runtopsy.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		logOut = f
	}
	level, _ := config.ParseLevel(cfg.Log.Level)
	logger := slog.New(slog.NewTextHandler(logOut, &slog.HandlerOptions{Level: level}))

	// Open the activity store
	st, err := store.Open(filepath.Join(dir, "db"), cfg.Storage.Backend, store.DefaultNotifyInterval)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var notes *tui.NoteWriter
	if cmd == "tui" {
		notes = tui.NewNoteWriter()
	}
	coordinator, fileImp := buildCoordinator(dir, cfg, st, logger, notes)

	// Bring the store up to date with anything already on disk
	if _, err := coordinator.Reconcile(ctx); err != nil {
		logger.Warn("reconcile failed", "err", err)
	}

	units := tui.NewUnits(cfg.Display)

	switch cmd {
	case "tui":
		app := tui.NewApp(st, coordinator, units, notes)
		defer app.Close()
		p := tea.NewProgram(app, tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("running TUI: %w", err)
		}
		return nil

	case "import":
		results, err := coordinator.Run(ctx)
		printResults(os.Stdout, results)
		return err

	case "watch":
		if fileImp == nil {
			return errors.New("watch needs the file importer; enable importers.file in the config")
		}
		return importer.Watch(ctx, fileImp.ImportDir(), coordinator, importer.DefaultSettle, logger)

	case "list":
		list(os.Stdout, st, units)
		return nil

	case "show":
		if len(args) != 1 {
			return errors.New("usage: runtopsy show <activity id>")
		}
		return show(os.Stdout, st, units, args[0])
	}

	flag.Usage()
	return fmt.Errorf("unknown command %q", cmd)
}

// buildCoordinator wires the enabled importers, file first
func buildCoordinator(dir string, cfg *config.Config, st *store.Store, logger *slog.Logger, notes *tui.NoteWriter) (*importer.Coordinator, *importer.FileImporter) {
	var importers []importer.Importer
	var fileImp *importer.FileImporter

	if cfg.Importers.File.Enabled {
		fileImp = importer.NewFileImporter(dir, cfg.Importers.File.ImportDir, st, nil)
		importers = append(importers, fileImp)
	}

	if s := cfg.Importers.Strava; s.Enabled {
		importers = append(importers, importer.NewStravaImporter(dir, st, importer.StravaOptions{
			ClientID:     s.ClientID,
			ClientSecret: s.ClientSecret,
			Provider:     authProvider(s.CallbackPort, notes),
		}))
	}

	return importer.NewCoordinator(logger, importers...), fileImp
}

// authProvider picks how the Strava authorization code reaches us. A
// callback port of 0 means the user pastes the redirect URL, which only
// works outside the TUI.
func authProvider(port int, notes *tui.NoteWriter) auth.AuthorizationProvider {
	if port > 0 {
		p := auth.NewLocalServerProvider(port)
		if notes != nil {
			p.Out = notes
		}
		return p
	}
	if notes != nil {
		return nil
	}
	return &auth.PromptProvider{In: os.Stdin, Out: os.Stderr}
}

func printResults(w io.Writer, results []importer.Result) {
	for _, r := range results {
		fmt.Fprintf(w, "%s: %s imported, %s unchanged, %s time series",
			r.Importer, humanize.Comma(int64(r.Upserted)), humanize.Comma(int64(r.Unchanged)), humanize.Comma(int64(r.Records)))
		if r.Failed > 0 {
			fmt.Fprintf(w, ", %d failed", r.Failed)
		}
		fmt.Fprintln(w)
	}
}

func list(w io.Writer, st *store.Store, units tui.Units) {
	activities := st.GetAllSorted()
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTART\tTYPE\tDISTANCE\tMOVING\tPACE\tNAME")
	for _, a := range activities {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			a.ID,
			a.StartTime.Local().Format("2006-01-02 15:04"),
			a.Type,
			units.FormatDistance(a.Distance),
			seconds(a.MovingTime),
			units.FormatTempo(a),
			a.Name,
		)
	}
	tw.Flush()
	fmt.Fprintf(w, "%s activities\n", humanize.Comma(int64(len(activities))))
}

func show(w io.Writer, st *store.Store, units tui.Units, id string) error {
	a, err := st.Get(id)
	if err != nil {
		return fmt.Errorf("%s: %w", id, err)
	}

	fmt.Fprintf(w, "%s  %s\n", a.ID, a.Name)
	fmt.Fprintf(w, "  type      %s\n", a.Type)
	fmt.Fprintf(w, "  start     %s (%s)\n", a.StartTime.Local().Format(time.RFC1123), humanize.Time(a.StartTime))
	fmt.Fprintf(w, "  distance  %s\n", units.FormatDistance(a.Distance))
	fmt.Fprintf(w, "  moving    %s\n", seconds(a.MovingTime))
	fmt.Fprintf(w, "  elapsed   %s\n", a.EndTime.Sub(a.StartTime).Round(time.Second))
	fmt.Fprintf(w, "  tempo     %s\n", units.FormatTempo(a))

	records, err := st.GetRecords(id)
	if errors.Is(err, store.ErrRecordsNotFound) {
		fmt.Fprintln(w, "\nno time series stored")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%s samples, speed (%s):\n", humanize.Comma(int64(records.Len())), units.SpeedLabel())
	fmt.Fprintln(w, tui.SpeedChart(units.ConvertSpeedData(records.Speed), 60))
	return nil
}

func dump(w io.Writer, args []string) error {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	format := fs.String("format", "json", "output format: json or yaml")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("usage: runtopsy dump [-format json|yaml] <file>")
	}
	path := fs.Arg(0)

	d, ok := decode.DefaultRegistry().For(path)
	if !ok {
		return fmt.Errorf("%s: unsupported file type, expected one of %s",
			path, strings.Join(decode.DefaultRegistry().Extensions(), ", "))
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	file, err := d.Decode(context.Background(), f)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	switch *format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(file)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(file)
	}
	return fmt.Errorf("unknown format %q", *format)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second)).Round(time.Second)
}
