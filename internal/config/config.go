// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Import    ImportConfig
	Overlay   OverlayConfig
	Transform TransformConfig
	Logging   LoggingConfig
}

// ImportConfig describes the base load file.
type ImportConfig struct {
	// Path is the load file to import (required)
	Path string `env:"LOADFILE_IMPORT_PATH" envAlt:"LOADFILE_PATH" required:"true"`

	// Format is a registered format key: dat, csv, tsv, opt, lfp.
	// Empty selects the format from the file extension.
	Format string `env:"LOADFILE_FORMAT"`

	// Encoding is the declared input encoding (default: utf-8)
	Encoding string `env:"LOADFILE_ENCODING" default:"utf-8"`

	// Delimiter characters override the format's profile. Each accepts a
	// literal character, a name (tab, lf, cr, none) or a decimal code ("20").
	FieldDelimiter  string `env:"LOADFILE_FIELD_DELIMITER"`
	TextQualifier   string `env:"LOADFILE_TEXT_QUALIFIER"`
	RecordDelimiter string `env:"LOADFILE_RECORD_DELIMITER"`
	EscapeCharacter string `env:"LOADFILE_ESCAPE_CHARACTER"`
	MultiValue      string `env:"LOADFILE_MULTI_VALUE_DELIMITER"`

	// HasHeader reports whether the first record is a header (default: true)
	HasHeader bool `env:"LOADFILE_HAS_HEADER" default:"true"`

	// Column roles. Names when HasHeader is set, 1-based positions otherwise.
	KeyColumn    string `env:"LOADFILE_KEY_COLUMN"`
	ParentColumn string `env:"LOADFILE_PARENT_COLUMN"`
	ChildColumn  string `env:"LOADFILE_CHILD_COLUMN"`

	// ChildSeparator splits ChildColumn values (default: the profile's multi-value separator)
	ChildSeparator string `env:"LOADFILE_CHILD_SEPARATOR"`

	// Representatives lists COLUMN=TYPE pairs, e.g. "NATIVE_PATH=native,TEXT_PATH=text"
	Representatives []string `env:"LOADFILE_REPRESENTATIVES"`

	// PathSeparator splits multi-file representative values (default: ;)
	PathSeparator string `env:"LOADFILE_PATH_SEPARATOR" default:";"`

	// BaseDir resolves relative file paths (default: the load file's directory)
	BaseDir string `env:"LOADFILE_BASE_DIR"`

	// MappingFile is a YAML column-role mapping that overrides the column settings above that it names
	MappingFile string `env:"LOADFILE_MAPPING_FILE"`

	// MaxFileSize is the maximum allowed file size in bytes (default: 1GB)
	MaxFileSize int64 `env:"LOADFILE_MAX_FILE_SIZE" default:"1073741824"`
}

// OverlayConfig describes an optional corrective load file.
type OverlayConfig struct {
	// Path is the overlay load file; empty disables the overlay phase
	Path string `env:"LOADFILE_OVERLAY_PATH"`

	Format          string   `env:"LOADFILE_OVERLAY_FORMAT"`
	Encoding        string   `env:"LOADFILE_OVERLAY_ENCODING" default:"utf-8"`
	HasHeader       bool     `env:"LOADFILE_OVERLAY_HAS_HEADER" default:"true"`
	KeyColumn       string   `env:"LOADFILE_OVERLAY_KEY_COLUMN"`
	ParentColumn    string   `env:"LOADFILE_OVERLAY_PARENT_COLUMN"`
	ChildColumn     string   `env:"LOADFILE_OVERLAY_CHILD_COLUMN"`
	Representatives []string `env:"LOADFILE_OVERLAY_REPRESENTATIVES"`
	MappingFile     string   `env:"LOADFILE_OVERLAY_MAPPING_FILE"`

	// Merge switches (defaults: metadata and representatives on, families off)
	MergeFamilies        bool `env:"LOADFILE_OVERLAY_MERGE_FAMILIES" default:"false"`
	MergeMetadata        bool `env:"LOADFILE_OVERLAY_MERGE_METADATA" default:"true"`
	MergeRepresentatives bool `env:"LOADFILE_OVERLAY_MERGE_REPRESENTATIVES" default:"true"`

	// AddNew appends overlay documents that have no base match (default: false)
	AddNew bool `env:"LOADFILE_OVERLAY_ADD_NEW" default:"false"`
}

// TransformConfig holds the edit list location.
type TransformConfig struct {
	// EditsFile is a YAML edit list; empty skips the transform phase
	EditsFile string `env:"LOADFILE_EDITS_FILE"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Enabled reports whether an overlay file is configured.
func (c *OverlayConfig) Enabled() bool { return c.Path != "" }
