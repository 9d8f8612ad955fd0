package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Load reads configuration from environment variables.
// It applies defaults for unset values and validates the result.
// Returns an error if required values are missing or validation fails.
func Load() (*Config, error) {
	cfg := &Config{}

	if err := loadStruct(reflect.ValueOf(cfg).Elem()); err != nil {
		return nil, fmt.Errorf("config load: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

// loadStruct recursively populates struct fields from environment variables.
func loadStruct(v reflect.Value) error {
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		fieldVal := v.Field(i)

		// Skip unexported fields
		if !fieldVal.CanSet() {
			continue
		}

		// Recurse into nested structs
		if field.Type.Kind() == reflect.Struct && field.Type != reflect.TypeOf(time.Time{}) {
			if err := loadStruct(fieldVal); err != nil {
				return err
			}
			continue
		}

		// Get tags
		envName := field.Tag.Get("env")
		envAlt := field.Tag.Get("envAlt")
		defaultVal := field.Tag.Get("default")
		required := field.Tag.Get("required") == "true"

		if envName == "" {
			continue
		}

		// Try primary env var, then alternate
		value := os.Getenv(envName)
		if value == "" && envAlt != "" {
			value = os.Getenv(envAlt)
		}

		// Apply default if not set
		if value == "" {
			if required {
				return fmt.Errorf("required environment variable %s is not set", envName)
			}
			value = defaultVal
		}

		if value == "" {
			continue
		}

		// Set the field value
		if err := setField(fieldVal, value); err != nil {
			return fmt.Errorf("invalid value for %s=%q: %w", envName, value, err)
		}
	}

	return nil
}

// setField sets a reflect.Value from a string based on its type.
func setField(field reflect.Value, value string) error {
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int64:
		// Handle time.Duration specially
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return fmt.Errorf("invalid duration: %w", err)
			}
			field.Set(reflect.ValueOf(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid integer: %w", err)
			}
			field.SetInt(i)
		}

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid boolean: %w", err)
		}
		field.SetBool(b)

	case reflect.Slice:
		if field.Type().Elem().Kind() == reflect.String {
			// Split comma-separated values, trim whitespace
			parts := strings.Split(value, ",")
			result := make([]string, 0, len(parts))
			for _, p := range parts {
				p = strings.TrimSpace(p)
				if p != "" {
					result = append(result, p)
				}
			}
			field.Set(reflect.ValueOf(result))
		} else {
			return fmt.Errorf("unsupported slice type: %s", field.Type().Elem().Kind())
		}

	default:
		return fmt.Errorf("unsupported field type: %s", field.Kind())
	}

	return nil
}

// Validate checks that the configuration is valid.
// Returns an error describing all validation failures.
func (c *Config) Validate() error {
	var errs []string

	// Import validation
	if c.Import.Path == "" {
		errs = append(errs, "LOADFILE_IMPORT_PATH is required")
	}
	if c.Import.KeyColumn == "" && c.Import.MappingFile == "" && !isImageFormat(c.Import.Format, c.Import.Path) {
		errs = append(errs, "LOADFILE_KEY_COLUMN or LOADFILE_MAPPING_FILE is required for delimited load files")
	}
	if c.Import.MaxFileSize <= 0 {
		errs = append(errs, "LOADFILE_MAX_FILE_SIZE must be positive")
	}
	if c.Import.PathSeparator == "" {
		errs = append(errs, "LOADFILE_PATH_SEPARATOR must not be empty")
	}
	errs = append(errs, checkRepresentatives("LOADFILE_REPRESENTATIVES", c.Import.Representatives)...)

	// Overlay validation
	if c.Overlay.Enabled() {
		if c.Overlay.Path == c.Import.Path {
			errs = append(errs, "LOADFILE_OVERLAY_PATH must differ from LOADFILE_IMPORT_PATH")
		}
		if !c.Overlay.MergeFamilies && !c.Overlay.MergeMetadata && !c.Overlay.MergeRepresentatives && !c.Overlay.AddNew {
			errs = append(errs, "overlay is configured but every LOADFILE_OVERLAY_MERGE_* switch is off")
		}
		errs = append(errs, checkRepresentatives("LOADFILE_OVERLAY_REPRESENTATIVES", c.Overlay.Representatives)...)
	}

	// Logging validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Sprintf("LOG_LEVEL (%q) must be one of: debug, info, warn, error", c.Logging.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Sprintf("LOG_FORMAT (%q) must be one of: text, json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// checkRepresentatives reports COLUMN=TYPE entries missing either side.
func checkRepresentatives(env string, specs []string) []string {
	var errs []string
	for _, spec := range specs {
		col, typ, ok := strings.Cut(spec, "=")
		if !ok || strings.TrimSpace(col) == "" || strings.TrimSpace(typ) == "" {
			errs = append(errs, fmt.Sprintf("%s entry %q must be COLUMN=TYPE", env, spec))
		}
	}
	return errs
}

// isImageFormat reports whether the import is an image manifest, which
// carries its own document keys.
func isImageFormat(format, path string) bool {
	switch strings.ToLower(format) {
	case "opt", "lfp":
		return true
	case "":
		ext := strings.ToLower(filepath.Ext(path))
		return ext == ".opt" || ext == ".lfp"
	}
	return false
}

// String returns a safe string representation of the config for logging.
func (c *Config) String() string {
	var b strings.Builder
	b.WriteString("Config{")
	b.WriteString(fmt.Sprintf("Import: {Path: %q, Format: %q, Encoding: %q, Key: %q, Header: %v, MaxFileSize: %d}, ",
		c.Import.Path, c.Import.Format, c.Import.Encoding, c.Import.KeyColumn, c.Import.HasHeader, c.Import.MaxFileSize))
	b.WriteString(fmt.Sprintf("Overlay: {Path: %q, Families: %v, Metadata: %v, Representatives: %v, AddNew: %v}, ",
		c.Overlay.Path, c.Overlay.MergeFamilies, c.Overlay.MergeMetadata, c.Overlay.MergeRepresentatives, c.Overlay.AddNew))
	b.WriteString(fmt.Sprintf("Transform: {EditsFile: %q}, ", c.Transform.EditsFile))
	b.WriteString(fmt.Sprintf("Logging: {Level: %q, Format: %q}",
		c.Logging.Level, c.Logging.Format))
	b.WriteString("}")
	return b.String()
}
