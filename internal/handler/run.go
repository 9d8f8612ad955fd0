package handler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/loadfile/internal/config"
	"github.com/JonMunkholm/loadfile/internal/core"
	"github.com/JonMunkholm/loadfile/internal/logging"
	"github.com/JonMunkholm/loadfile/internal/schema"
)

// RunResult summarizes a full run: import, optional overlay, optional edits.
type RunResult struct {
	RunID      string
	Phase      core.ImportPhase
	Import     core.ImportResult
	Overlay    *core.ImportResult // nil when no overlay was configured
	Merge      OverlayResult
	Edits      int
	Stats      core.CollectionStats
	Duration   time.Duration
	Collection *core.Collection
}

// ImportOptionsFromConfig builds the options for the base load file.
func ImportOptionsFromConfig(cfg *config.Config) (ImportOptions, error) {
	ic := cfg.Import
	reps, err := schema.ParseRepresentativeSpecs(ic.Representatives)
	if err != nil {
		return ImportOptions{}, err
	}
	return ImportOptions{
		Path:     ic.Path,
		Format:   ic.Format,
		Encoding: ic.Encoding,
		Delimiters: DelimiterOverrides{
			Field:      ic.FieldDelimiter,
			Qualifier:  ic.TextQualifier,
			Record:     ic.RecordDelimiter,
			Escape:     ic.EscapeCharacter,
			MultiValue: ic.MultiValue,
		},
		Build: core.BuildOptions{
			HasHeader:       ic.HasHeader,
			KeyColumn:       ic.KeyColumn,
			ParentColumn:    ic.ParentColumn,
			ChildColumn:     ic.ChildColumn,
			ChildSeparator:  ic.ChildSeparator,
			Representatives: reps,
			PathSeparator:   ic.PathSeparator,
			BaseDir:         ic.BaseDir,
		},
		MappingFile: ic.MappingFile,
		MaxFileSize: ic.MaxFileSize,
	}, nil
}

// OverlayImportOptionsFromConfig builds the options for the overlay file.
// It shares the base import's delimiter overrides, base directory and size
// limit. The key column falls back to the base import's; the other column
// roles come from the overlay settings alone.
func OverlayImportOptionsFromConfig(cfg *config.Config) (ImportOptions, error) {
	opts, err := ImportOptionsFromConfig(cfg)
	if err != nil {
		return ImportOptions{}, err
	}
	oc := cfg.Overlay

	opts.Path = oc.Path
	opts.Format = oc.Format
	if oc.Encoding != "" {
		opts.Encoding = oc.Encoding
	}
	opts.MappingFile = oc.MappingFile
	opts.Build.HasHeader = oc.HasHeader
	if oc.KeyColumn != "" {
		opts.Build.KeyColumn = oc.KeyColumn
	}
	opts.Build.ParentColumn = oc.ParentColumn
	opts.Build.ChildColumn = oc.ChildColumn
	if opts.Build.Representatives, err = schema.ParseRepresentativeSpecs(oc.Representatives); err != nil {
		return ImportOptions{}, err
	}
	return opts, nil
}

// Run executes a configured run: the base import, then the overlay when one
// is configured, then the edit list when one is configured. Each run gets a
// fresh run ID carried by every log entry.
func Run(ctx context.Context, cfg *config.Config) (*RunResult, error) {
	start := time.Now()
	res := &RunResult{RunID: uuid.NewString(), Phase: core.PhaseStarting}
	ctx = logging.ContextWithRunID(ctx, res.RunID)
	logger := logging.FromContext(ctx)

	fail := func(phase core.ImportPhase, err error) (*RunResult, error) {
		res.Phase = core.PhaseFailed
		res.Duration = time.Since(start)
		logger.Error("run failed", "phase", phase, "error", err)
		return res, err
	}

	// Load edits first so a broken edit list fails before any file is read
	var edits []core.Edit
	if cfg.Transform.EditsFile != "" {
		var err error
		if edits, err = schema.LoadEditsFile(cfg.Transform.EditsFile); err != nil {
			return fail(core.PhaseStarting, err)
		}
	}

	opts, err := ImportOptionsFromConfig(cfg)
	if err != nil {
		return fail(core.PhaseStarting, err)
	}
	res.Phase = core.PhaseReading
	coll, importRes, err := ImportFile(ctx, opts)
	res.Import = importRes
	if err != nil {
		return fail(core.PhaseReading, err)
	}
	res.Collection = coll

	if cfg.Overlay.Enabled() {
		res.Phase = core.PhaseOverlay
		oopts, err := OverlayImportOptionsFromConfig(cfg)
		if err != nil {
			return fail(core.PhaseOverlay, err)
		}
		ocoll, ores, err := ImportFile(ctx, oopts)
		res.Overlay = &ores
		if err != nil {
			return fail(core.PhaseOverlay, err)
		}
		mergeOpts := core.OverlayOptions{
			MergeFamilies:        cfg.Overlay.MergeFamilies,
			MergeMetadata:        cfg.Overlay.MergeMetadata,
			MergeRepresentatives: cfg.Overlay.MergeRepresentatives,
		}
		if res.Merge, err = OverlayCollections(ctx, coll, ocoll, mergeOpts, cfg.Overlay.AddNew); err != nil {
			return fail(core.PhaseOverlay, err)
		}
	}

	if len(edits) > 0 {
		res.Phase = core.PhaseEditing
		t := core.NewTransformer(logging.WithFields(ctx, "phase", "edit"))
		if err := t.Transform(coll, edits); err != nil {
			return fail(core.PhaseEditing, fmt.Errorf("applying %s: %w", cfg.Transform.EditsFile, err))
		}
		res.Edits = len(edits)
	}

	res.Phase = core.PhaseComplete
	res.Stats = coll.Stats()
	res.Duration = time.Since(start)
	logger.Info("run complete",
		"documents", coll.Len(),
		"parents", res.Stats.Parents,
		"children", res.Stats.Children,
		"stand_alone", res.Stats.StandAlone,
		"edits", res.Edits,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}
