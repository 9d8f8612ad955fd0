package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/JonMunkholm/loadfile/internal/core"
	"github.com/JonMunkholm/loadfile/internal/logging"
	"github.com/JonMunkholm/loadfile/internal/schema"
)

// ContextCheckInterval is how often (in records) to check for context cancellation.
// Checking every record would be expensive; 100 records is typically
// sub-millisecond of parsing.
var ContextCheckInterval = 100

// DelimiterOverrides replaces parts of a format's delimiter profile. Empty
// values keep the format's character; see core.ParseDelimiterChar for the
// accepted spellings.
type DelimiterOverrides struct {
	Field      string
	Qualifier  string
	Record     string
	Escape     string
	MultiValue string
}

// IsZero reports whether no override is set.
func (o DelimiterOverrides) IsZero() bool {
	return o == DelimiterOverrides{}
}

// Apply returns d with the overrides applied and validated.
func (o DelimiterOverrides) Apply(d core.Delimiters) (core.Delimiters, error) {
	chars := []struct {
		value string
		dst   rune
	}{
		{o.Field, d.Field()},
		{o.Qualifier, d.Qualifier()},
		{o.Record, d.Record()},
		{o.Escape, d.Escape()},
		{o.MultiValue, d.MultiValue()},
	}
	for i := range chars {
		if chars[i].value == "" {
			continue
		}
		r, err := core.ParseDelimiterChar(chars[i].value)
		if err != nil {
			return core.Delimiters{}, err
		}
		chars[i].dst = r
	}
	return core.NewDelimiters(chars[0].dst, chars[1].dst, chars[2].dst, chars[3].dst, chars[4].dst)
}

// ImportOptions describes one load file to import.
type ImportOptions struct {
	Path     string
	Format   string // registered format key; empty selects by extension
	Encoding string

	Delimiters DelimiterOverrides

	// Build holds the column roles for delimited formats. BaseDir defaults
	// to the load file's directory.
	Build core.BuildOptions

	// MappingFile, when set, overrides the column roles in Build that it names.
	MappingFile string

	MaxFileSize int64
}

// ResolveFormat picks the format for opts: the named one, or the one
// registered for the file extension.
func ResolveFormat(opts ImportOptions) (core.FormatDefinition, error) {
	if opts.Format != "" {
		def, ok := core.GetFormat(opts.Format)
		if !ok {
			return core.FormatDefinition{}, &core.ConfigurationError{
				Field:   "format",
				Value:   opts.Format,
				Message: "unknown load-file format",
			}
		}
		return def, nil
	}
	def, ok := core.FormatForPath(opts.Path)
	if !ok {
		return core.FormatDefinition{}, &core.ConfigurationError{
			Field:   "format",
			Value:   filepath.Ext(opts.Path),
			Message: "cannot infer load-file format from extension, set the format explicitly",
		}
	}
	return def, nil
}

// ImportFile reads one load file into a collection.
//
// The result is returned even on failure, with Phase set to PhaseFailed and
// Error describing the cause.
func ImportFile(ctx context.Context, opts ImportOptions) (*core.Collection, core.ImportResult, error) {
	start := time.Now()
	result := core.ImportResult{
		RunID:    logging.RunIDFromContext(ctx),
		FileName: filepath.Base(opts.Path),
		Phase:    core.PhaseStarting,
	}
	fail := func(err error) (*core.Collection, core.ImportResult, error) {
		result.Phase = core.PhaseFailed
		result.Error = err.Error()
		result.Duration = time.Since(start)
		return nil, result, err
	}

	// Check context before starting
	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("operation cancelled: %w", err))
	}

	def, err := ResolveFormat(opts)
	if err != nil {
		return fail(err)
	}
	result.Format = def.Key

	logger := logging.WithFields(ctx,
		"phase", "import",
		"file", result.FileName,
		"format", def.Key,
	)

	delims := def.Delimiters
	if def.Grammar == core.GrammarDelimited && !opts.Delimiters.IsZero() {
		if delims, err = opts.Delimiters.Apply(delims); err != nil {
			return fail(err)
		}
	}

	contents, err := readLoadFile(ctx, logger, def, delims, opts, &result)
	if err != nil {
		logger.Warn("import failed",
			"phase_reached", result.Phase,
			"progress_pct", contents.progress,
			"error", err,
		)
		return fail(err)
	}

	result.Phase = core.PhaseBuilding
	var coll *core.Collection
	switch def.Grammar {
	case core.GrammarDelimited:
		coll, result.Rows, err = buildDelimited(ctx, contents.rows, delims, opts, &result)
	default:
		result.Rows = len(contents.images)
		coll, err = buildImages(ctx, contents.images, defaultBaseDir(opts.Build.BaseDir, opts.Path), &result)
	}
	if err != nil {
		logger.Warn("import failed",
			"phase_reached", result.Phase,
			"error", err,
		)
		return fail(err)
	}

	result.Phase = core.PhaseComplete
	result.Documents = coll.Len()
	result.Stats = coll.Stats()
	result.Duration = time.Since(start)

	logger.Info("import complete",
		"rows", result.Rows,
		"documents", result.Documents,
		"parents", result.Stats.Parents,
		"children", result.Stats.Children,
		"images", result.Stats.Images,
		"natives", result.Stats.Natives,
		"texts", result.Stats.Texts,
		"duration_ms", result.Duration.Milliseconds(),
	)
	return coll, result, nil
}

// fileContents holds the records read from one load file.
type fileContents struct {
	rows     [][]string
	images   []core.ImageRecord
	progress int
}

// readLoadFile opens, consumes and closes the load file.
func readLoadFile(
	ctx context.Context,
	logger *slog.Logger,
	def core.FormatDefinition,
	delims core.Delimiters,
	opts ImportOptions,
	result *core.ImportResult,
) (fileContents, error) {
	var contents fileContents

	f, err := os.Open(opts.Path)
	if err != nil {
		return contents, fmt.Errorf("opening load file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return contents, fmt.Errorf("reading load file info: %w", err)
	}
	if opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize {
		return contents, fmt.Errorf("%w: %s is %d bytes, limit %d", core.ErrFileTooLarge, result.FileName, info.Size(), opts.MaxFileSize)
	}

	stream, err := core.WrapForStreaming(f, core.StreamOptions{
		Encoding:  opts.Encoding,
		TotalSize: info.Size(),
		MaxSize:   opts.MaxFileSize,
	})
	if err != nil {
		return contents, err
	}

	logger.Info("import started", "bytes", info.Size(), "encoding", opts.Encoding)
	result.Phase = core.PhaseReading

	switch def.Grammar {
	case core.GrammarDelimited:
		contents.rows, err = readRecords(ctx, core.NewParser(stream, delims))
	case core.GrammarLFP:
		contents.images, err = core.ParseLFP(stream)
	case core.GrammarOpticon:
		contents.images, err = core.ParseOpticon(stream)
	default:
		err = fmt.Errorf("format %s has unsupported grammar %s", def.Key, def.Grammar)
	}
	result.BytesRead = stream.Counter.BytesRead
	contents.progress = stream.Counter.Progress()
	if err != nil {
		return contents, err
	}
	if err := ctx.Err(); err != nil {
		return contents, fmt.Errorf("operation cancelled: %w", err)
	}
	return contents, nil
}

// buildDelimited builds a collection from parsed rows. It returns the
// number of data rows.
func buildDelimited(
	ctx context.Context,
	rows [][]string,
	delims core.Delimiters,
	opts ImportOptions,
	result *core.ImportResult,
) (*core.Collection, int, error) {
	build := opts.Build
	if opts.MappingFile != "" {
		m, err := schema.LoadMappingFile(opts.MappingFile)
		if err != nil {
			return nil, 0, err
		}
		if err := m.Apply(&build); err != nil {
			return nil, 0, err
		}
	}
	if build.ChildSeparator == "" && delims.MultiValue() != core.NoChar {
		build.ChildSeparator = string(delims.MultiValue())
	}
	build.BaseDir = defaultBaseDir(build.BaseDir, opts.Path)
	if build.Logger == nil {
		build.Logger = logging.WithFields(ctx, "phase", "build", "file", result.FileName)
	}

	n := len(rows)
	if build.HasHeader && n > 0 {
		n--
	}

	coll, err := core.BuildCollection(rows, build)
	if err != nil {
		return nil, n, err
	}
	return coll, n, nil
}

// readRecords reads every record, checking ctx periodically.
func readRecords(ctx context.Context, p *core.Parser) ([][]string, error) {
	var rows [][]string
	for i := 0; ; i++ {
		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("operation cancelled at line %d: %w", p.Line(), err)
			}
		}
		row, err := p.Read()
		if errors.Is(err, io.EOF) {
			return rows, nil
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
}

func buildImages(
	ctx context.Context,
	records []core.ImageRecord,
	baseDir string,
	result *core.ImportResult,
) (*core.Collection, error) {
	return core.BuildImageCollection(records, core.ImageBuildOptions{
		BaseDir: baseDir,
		Logger:  logging.WithFields(ctx, "phase", "build", "file", result.FileName),
	})
}

// defaultBaseDir falls back to the load file's directory.
func defaultBaseDir(baseDir, path string) string {
	if baseDir != "" {
		return baseDir
	}
	return filepath.Dir(path)
}
