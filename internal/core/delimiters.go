package core

// delimiters.go describes how a delimited load file separates its fields and
// records. Vendors disagree on every one of these characters, so a profile is
// built once per import and validated up front.

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// NoChar marks an optional delimiter character as absent.
const NoChar rune = 0

// Common Concordance characters. Concordance DAT files use control and
// Latin-1 characters so that ordinary text never collides with them.
const (
	ConcordanceField     rune = '\u0014' // DC4, shown as ¶ in most viewers
	ConcordanceQualifier rune = 'þ'
	DefaultMultiValue    rune = ';'
)

// Delimiters is an immutable delimiter profile.
type Delimiters struct {
	field      rune
	qualifier  rune
	record     rune
	escape     rune
	multiValue rune
}

// NewDelimiters validates and returns a delimiter profile. Qualifier, escape
// and multiValue may be NoChar. An escape equal to the qualifier selects the
// doubled-qualifier convention and is allowed.
func NewDelimiters(field, qualifier, record, escape, multiValue rune) (Delimiters, error) {
	d := Delimiters{
		field:      field,
		qualifier:  qualifier,
		record:     record,
		escape:     escape,
		multiValue: multiValue,
	}
	if err := d.validate(); err != nil {
		return Delimiters{}, err
	}
	return d, nil
}

// MustDelimiters is like NewDelimiters but panics on an invalid profile.
// Use it only for package-level presets.
func MustDelimiters(field, qualifier, record, escape, multiValue rune) Delimiters {
	d, err := NewDelimiters(field, qualifier, record, escape, multiValue)
	if err != nil {
		panic(err)
	}
	return d
}

// ConcordanceDelimiters returns the standard Concordance DAT profile.
func ConcordanceDelimiters() Delimiters {
	return MustDelimiters(ConcordanceField, ConcordanceQualifier, '\n', NoChar, DefaultMultiValue)
}

// CSVDelimiters returns an RFC 4180 style profile.
func CSVDelimiters() Delimiters {
	return MustDelimiters(',', '"', '\n', NoChar, DefaultMultiValue)
}

// TSVDelimiters returns a tab-separated profile without a qualifier.
func TSVDelimiters() Delimiters {
	return MustDelimiters('\t', NoChar, '\n', NoChar, DefaultMultiValue)
}

func (d Delimiters) validate() error {
	if d.field == NoChar {
		return &ConfigurationError{Field: "field separator", Message: "is required"}
	}
	if d.record == NoChar {
		return &ConfigurationError{Field: "record separator", Message: "is required"}
	}

	checks := []struct {
		a, b  rune
		aName string
		bName string
	}{
		{d.field, d.qualifier, "field separator", "text qualifier"},
		{d.field, d.record, "field separator", "record separator"},
		{d.qualifier, d.record, "text qualifier", "record separator"},
		{d.field, d.escape, "field separator", "escape character"},
		{d.escape, d.record, "escape character", "record separator"},
		{d.multiValue, d.field, "multi-value separator", "field separator"},
		{d.multiValue, d.record, "multi-value separator", "record separator"},
		{d.multiValue, d.qualifier, "multi-value separator", "text qualifier"},
	}
	for _, c := range checks {
		if c.a != NoChar && c.a == c.b {
			return &ConfigurationError{
				Field:   c.aName,
				Value:   string(c.a),
				Message: fmt.Sprintf("must differ from the %s", c.bName),
			}
		}
	}
	return nil
}

// Field returns the field separator.
func (d Delimiters) Field() rune { return d.field }

// Qualifier returns the text qualifier, or NoChar.
func (d Delimiters) Qualifier() rune { return d.qualifier }

// Record returns the record separator.
func (d Delimiters) Record() rune { return d.record }

// Escape returns the escape character, or NoChar.
func (d Delimiters) Escape() rune { return d.escape }

// MultiValue returns the multi-value separator, or NoChar.
func (d Delimiters) MultiValue() rune { return d.multiValue }

// separateEscape reports whether the profile escapes with a character other
// than the qualifier itself.
func (d Delimiters) separateEscape() bool {
	return d.escape != NoChar && d.escape != d.qualifier
}

func (d Delimiters) String() string {
	return fmt.Sprintf("Delimiters{field: %q, qualifier: %q, record: %q, escape: %q, multi: %q}",
		d.field, d.qualifier, d.record, d.escape, d.multiValue)
}

// ParseDelimiterChar reads a delimiter setting: a single literal character,
// a name (tab, lf, cr, space, none) or a decimal code of two or more digits
// such as "20" for the Concordance field separator. The empty string and
// "none" yield NoChar.
func ParseDelimiterChar(s string) (rune, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return NoChar, nil
	case "tab", `\t`:
		return '\t', nil
	case "lf", "newline", `\n`:
		return '\n', nil
	case "cr", `\r`:
		return '\r', nil
	case "space":
		return ' ', nil
	}

	if utf8.RuneCountInString(s) == 1 {
		r, _ := utf8.DecodeRuneInString(s)
		return r, nil
	}

	code, err := strconv.ParseUint(strings.TrimSpace(s), 10, 32)
	if err != nil || code == 0 || !utf8.ValidRune(rune(code)) {
		return NoChar, &ConfigurationError{
			Field:   "delimiter",
			Value:   s,
			Message: "must be one character, a name (tab, lf, cr, space, none) or a decimal character code",
		}
	}
	return rune(code), nil
}
