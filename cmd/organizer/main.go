// Package main provides the entry point for the organizer CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/listenupapp/listenup-organizer/internal/config"
	"github.com/listenupapp/listenup-organizer/internal/di"
	"github.com/listenupapp/listenup-organizer/internal/domain"
	"github.com/listenupapp/listenup-organizer/internal/inventory"
	"github.com/listenupapp/listenup-organizer/internal/logger"
	"github.com/listenupapp/listenup-organizer/internal/pipeline"
	"github.com/listenupapp/listenup-organizer/internal/scan"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	injector := di.NewContainer(args)

	cfg, err := do.Invoke[*config.Config](injector)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return 1
	}
	log := do.MustInvoke[*logger.Logger](injector)

	p, err := do.Invoke[*pipeline.Pipeline](injector)
	if err != nil {
		log.Error("startup failed", "error", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	code := runOperation(ctx, cfg, p, log)

	if err := injector.Shutdown(); err != nil {
		log.Error("shutdown error", "error", err)
	}
	return code
}

func runOperation(ctx context.Context, cfg *config.Config, p *pipeline.Pipeline, log *logger.Logger) int {
	switch cfg.Operation {
	case config.OpOrganize:
		report, err := p.Organize(ctx)
		if err != nil && report == nil {
			log.Error("organize run failed", "error", err)
			return 1
		}
		printReport(os.Stdout, report)
		if err != nil {
			log.Warn("run interrupted", "error", err)
			return 1
		}
		return 0

	case config.OpTag:
		report, err := p.Tag(ctx)
		if err != nil && report == nil {
			log.Error("tag run failed", "error", err)
			return 1
		}
		printReport(os.Stdout, report)
		if err != nil {
			log.Warn("run interrupted", "error", err)
			return 1
		}
		return 0

	case config.OpInventory:
		books, err := p.LibraryBooks()
		if err != nil {
			log.Error("inventory failed", "error", err)
			return 1
		}
		entries := inventory.Build(ctx, scan.NewWalker(log.Logger), books)
		if err := inventory.Write(os.Stdout, entries); err != nil {
			log.Error("inventory output failed", "error", err)
			return 1
		}
		return 0

	default:
		// Unreachable: config validation rejects unknown operations.
		log.Error("unknown operation", "operation", cfg.Operation)
		return 1
	}
}

// printReport renders the end-of-run summary. Every unclassified, failed,
// and cover-missing book is listed by path so it can be inspected; partial
// failure is never silent.
func printReport(w io.Writer, report *domain.RunReport) {
	s := report.Summary
	fmt.Fprintf(w, "\norganized: %d  unclassified: %d  failed: %d  cover missing: %d\n",
		s.Organized, s.Unclassified, s.Failed, s.CoverMissing)
	if report.DryRun {
		fmt.Fprintln(w, "dry run: no files were moved and no tags were written")
	}

	printSection(w, report, domain.StatusUnclassified, "unclassified")
	printSection(w, report, domain.StatusCoverMissing, "cover missing")
	printSection(w, report, domain.StatusFailed, "failed")
}

func printSection(w io.Writer, report *domain.RunReport, status, label string) {
	first := true
	for _, u := range report.Units {
		if u.Status != status {
			continue
		}
		if first {
			fmt.Fprintf(w, "\n%s:\n", label)
			first = false
		}
		where := u.Path
		if where == "" {
			where = u.GroupKey
		}
		if u.ErrorMsg != "" {
			fmt.Fprintf(w, "  %s: %s\n", where, u.ErrorMsg)
		} else {
			fmt.Fprintf(w, "  %s\n", where)
		}
	}
}
