// Command reconcile checks the cached customer and supplier balances against
// the order and transaction history, and optionally repairs them.
//
//	reconcile [-snapshot data.json [-out fixed.json]] validate|fix|purge-orphans [-confirm]
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"meatledger/backend/internal/app"
	"meatledger/backend/internal/config"
	"meatledger/backend/internal/logger"
	"meatledger/backend/internal/reconcile"
	"meatledger/backend/internal/store"
	"meatledger/backend/internal/store/memory"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitInvalid = 2
	exitUsage   = 64
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, config.Load(), os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	snapshot string
	out      string
	confirm  bool
	timeout  time.Duration
}

func run(ctx context.Context, cfg config.Config, args []string, stdout, stderr io.Writer) int {
	var opts options
	fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&opts.snapshot, "snapshot", "", "JSON export to reconcile instead of the database")
	fs.StringVar(&opts.out, "out", "", "write the snapshot back to this file after fix or purge-orphans")
	fs.BoolVar(&opts.confirm, "confirm", false, "actually delete orphans in purge-orphans")
	fs.DurationVar(&opts.timeout, "timeout", 5*time.Minute, "overall deadline")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: reconcile [flags] validate|fix|purge-orphans [-confirm]")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return exitUsage
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return exitUsage
	}
	command := fs.Arg(0)
	// Flags may also follow the command.
	if err := fs.Parse(fs.Args()[1:]); err != nil {
		return exitUsage
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return exitUsage
	}

	log := logger.NewWriter(cfg.LogLevel, "console", stderr)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(ctx, opts.timeout)
	defer cancel()

	docs, snapshot, closeDocs, err := openDocuments(ctx, cfg, opts, log)
	if err != nil {
		log.Error("open store", zap.Error(err))
		return exitFailure
	}
	components := app.Wire(ctx, cfg, docs, log)
	components.AddCloser(closeDocs)
	defer func() {
		if err := components.Close(); err != nil {
			log.Warn("close", zap.Error(err))
		}
	}()

	var (
		result any
		code   = exitOK
	)
	switch command {
	case "validate":
		report, err := components.Reconciler.Validate(ctx)
		if err != nil {
			log.Error("validate", zap.Error(err))
			return exitFailure
		}
		if !report.IsValid {
			code = exitInvalid
		}
		result = report
	case "fix":
		fixed, err := components.Reconciler.FixDiscrepancies(ctx)
		if err != nil {
			log.Error("fix", zap.Error(err))
			if fixed != nil {
				_ = printJSON(stdout, fixed)
			}
			return exitFailure
		}
		result = fixed
	case "purge-orphans":
		purged, err := components.Reconciler.PurgeOrphans(ctx, opts.confirm)
		switch {
		case errors.Is(err, reconcile.ErrConfirmationRequired):
			log.Warn("orphans found; rerun with -confirm to delete them", zap.Int("orphans", len(purged.Orphans)))
			code = exitInvalid
		case err != nil:
			log.Error("purge orphans", zap.Error(err))
			return exitFailure
		}
		result = purged
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", command)
		fs.Usage()
		return exitUsage
	}

	if err := printJSON(stdout, result); err != nil {
		log.Error("write result", zap.Error(err))
		return exitFailure
	}
	if snapshot != nil && opts.out != "" && command != "validate" {
		if err := writeSnapshot(snapshot, opts.out); err != nil {
			log.Error("write snapshot", zap.String("path", opts.out), zap.Error(err))
			return exitFailure
		}
		log.Info("snapshot written", zap.String("path", opts.out))
	}
	return code
}

// openDocuments prefers -snapshot, then DATABASE_URL. Reconciling the seeded
// demo store would be meaningless, so one of the two is required.
func openDocuments(ctx context.Context, cfg config.Config, opts options, log *zap.Logger) (store.Documents, *memory.Store, func() error, error) {
	if opts.snapshot != "" {
		f, err := os.Open(opts.snapshot)
		if err != nil {
			return nil, nil, nil, err
		}
		defer f.Close()

		mem := memory.New()
		if err := mem.LoadSnapshot(f); err != nil {
			return nil, nil, nil, err
		}
		log.Info("repository: snapshot", zap.String("path", opts.snapshot))
		return mem, mem, func() error { return nil }, nil
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, nil, errors.New("either -snapshot or DATABASE_URL is required")
	}
	docs, closeFn, err := app.OpenDocuments(ctx, cfg, log)
	return docs, nil, closeFn, err
}

func writeSnapshot(mem *memory.Store, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := mem.WriteSnapshot(f); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func printJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
