package core

// validation.go checks a header row against the configured column roles
// before any document is built.
//
// Validation happens at two levels:
//  1. Header validation: every configured column must be present
//  2. Row validation: each row must have as many fields as the header
//
// Header problems are reported all at once so a misconfigured import can be
// fixed in one pass.

import (
	"fmt"
	"strings"
)

// ValidationError represents a single validation problem.
type ValidationError struct {
	Field   string // Column or role name
	Value   string // The offending value
	Message string // Human-readable error message
}

func (e ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// requiredColumns lists every column opts refers to, keyed by role.
func requiredColumns(opts BuildOptions) []ValidationError {
	var cols []ValidationError
	add := func(role, col string) {
		if strings.TrimSpace(col) != "" {
			cols = append(cols, ValidationError{Field: role, Value: col})
		}
	}
	add("key column", opts.KeyColumn)
	add("parent column", opts.ParentColumn)
	add("child column", opts.ChildColumn)
	for _, rc := range opts.Representatives {
		add(strings.ToLower(rc.Type.String())+" column", rc.Column)
	}
	return cols
}

// ValidateHeaders checks that every column referenced by opts exists in
// header. It returns the header index, or a ConfigurationError listing all
// missing columns.
func ValidateHeaders(header []string, opts BuildOptions) (HeaderIndex, error) {
	idx := MakeHeaderIndex(header)

	var missing []string
	for _, col := range requiredColumns(opts) {
		if _, ok := idx[strings.ToLower(CleanCell(col.Value))]; !ok {
			missing = append(missing, fmt.Sprintf("%s (%s)", col.Value, col.Field))
		}
	}
	if len(missing) > 0 {
		return nil, &ConfigurationError{
			Field:   "header",
			Value:   strings.Join(missing, ", "),
			Message: "missing required columns",
		}
	}
	return idx, nil
}

// ValidateRowWidth reports a row whose field count differs from the header.
func ValidateRowWidth(row []string, width int) error {
	if len(row) == width {
		return nil
	}
	return ValidationError{
		Value:   fmt.Sprint(len(row)),
		Message: fmt.Sprintf("row has %d columns, header has %d", len(row), width),
	}
}
