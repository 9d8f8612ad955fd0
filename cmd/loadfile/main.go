package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/loadfile/internal/config"
	"github.com/JonMunkholm/loadfile/internal/core"
	"github.com/JonMunkholm/loadfile/internal/handler"
	"github.com/JonMunkholm/loadfile/internal/logging"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	} else {
		slog.Debug("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		slog.Error("failed to load configuration", "error", err)
		os.Exit(2)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"import", cfg.Import.Path,
		"format", cfg.Import.Format,
		"overlay", cfg.Overlay.Path,
		"edits", cfg.Transform.EditsFile,
	)
	slog.Debug("configuration", "config", cfg.String())
	for _, group := range core.Groups() {
		slog.Debug("format group", "group", group, "formats", len(core.ByGroup(group)))
	}

	// Cancel the run on SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := handler.Run(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		stop()
		os.Exit(1)
	}

	printSummary(res)
}

func printSummary(res *handler.RunResult) {
	s := res.Stats
	fmt.Printf("run %s: %s\n", res.RunID, res.Phase)
	fmt.Printf("  %-12s %s (%s, %d records)\n", "imported", res.Import.FileName, res.Import.Format, res.Import.Rows)
	if res.Overlay != nil {
		fmt.Printf("  %-12s %s: %d merged, %d added, %d skipped\n", "overlay",
			res.Overlay.FileName, res.Merge.Matched, res.Merge.Added, res.Merge.Skipped)
	}
	if res.Edits > 0 {
		fmt.Printf("  %-12s %d\n", "edits", res.Edits)
	}
	fmt.Printf("  %-12s %d\n", "documents", res.Collection.Len())
	fmt.Printf("  %-12s %d parents, %d children, %d stand-alone\n", "families", s.Parents, s.Children, s.StandAlone)
	fmt.Printf("  %-12s %d images, %d natives, %d texts\n", "files", s.Images, s.Natives, s.Texts)
	fmt.Printf("  %-12s %s\n", "duration", res.Duration.Round(1e6))
}
