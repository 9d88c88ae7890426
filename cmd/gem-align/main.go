// Command gem-align aligns the middle plane of a three-plane GEM tracker.
//
// It reads the per-plane hit files named in a TOML config, keeps the events
// seen by all three planes, shifts the target plane in x and y until the
// straight-line chi-square stops improving, and writes the leave-one-out
// residuals, track angles and corrected hits as whitespace separated tables.
//
//	gem-align -config config.toml [-plots] [-db runs.db] [-verbose]
//	gem-align runs -db runs.db [-n 20]
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/samstevens127/MOLLER-tracking/internal/align"
	"github.com/samstevens127/MOLLER-tracking/internal/config"
	"github.com/samstevens127/MOLLER-tracking/internal/fsutil"
	"github.com/samstevens127/MOLLER-tracking/internal/hits"
	"github.com/samstevens127/MOLLER-tracking/internal/runstore"
	"github.com/samstevens127/MOLLER-tracking/internal/version"
)

var (
	configPath  = flag.String("config", config.DefaultConfigPath, "Path to the TOML run configuration")
	plotsFlag   = flag.Bool("plots", false, "Write residual histograms, tilt plots and the convergence chart")
	dbPath      = flag.String("db", "", "Record the run in this SQLite ledger (overrides store.path)")
	verbose     = flag.Bool("verbose", false, "Log ingest counts and optimizer progress")
	trace       = flag.Bool("trace", false, "Log every gradient evaluation")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "runs" {
		if err := runsCommand(os.Args[2:], os.Stdout); err != nil {
			log.Fatalf("runs: %v", err)
		}
		return
	}

	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	setupLogging(os.Stderr, *verbose, *trace)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := pipeline{
		fsys:   fsutil.OSFileSystem{},
		cfg:    cfg,
		plots:  *plotsFlag,
		dbPath: *dbPath,
	}
	out, err := p.run(ctx)
	if err != nil {
		log.Fatalf("alignment failed: %v", err)
	}
	printSummary(os.Stdout, out)
}

// setupLogging routes the align and hits streams. Lifecycle messages always
// go to w; progress and per-evaluation logs are opt-in.
func setupLogging(w io.Writer, verbose, trace bool) {
	lw := align.LogWriters{Ops: w}
	if verbose || trace {
		lw.Diag = w
		hits.SetDebugLogger(w)
	} else {
		hits.SetDebugLogger(nil)
	}
	if trace {
		lw.Trace = w
	}
	align.SetLogWriters(lw)
}

// runsCommand lists the most recent runs recorded in a ledger.
func runsCommand(args []string, w io.Writer) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	path := fs.String("db", "", "SQLite ledger to read")
	limit := fs.Int("n", 20, "Number of runs to list; 0 lists all")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("-db is required")
	}

	store, err := runstore.Open(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.ListRuns(context.Background(), *limit)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tINPUT\tEVENTS\tTARGET\tSHIFT X\tSHIFT Y\tSTATUS X\tSTATUS Y")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%+.6f\t%+.6f\t%s (%d)\t%s (%d)\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Input, r.Events, r.Params.Target,
			r.X.Shift, r.Y.Shift, r.X.Status(), r.X.Iterations, r.Y.Status(), r.Y.Iterations)
	}
	return tw.Flush()
}
