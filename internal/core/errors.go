package core

// errors.go defines the error kinds returned by the load-file core.
//
// Every kind is a concrete type so callers can recover its context with
// errors.As, and each one also matches a sentinel through errors.Is:
//
//	var perr *ParseError
//	if errors.As(err, &perr) {
//	    log.Printf("bad record at line %d", perr.Line)
//	}
//	if errors.Is(err, ErrParse) { ... }

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the concrete error kinds below.
var (
	// ErrConfiguration is matched by ConfigurationError.
	ErrConfiguration = errors.New("configuration error")

	// ErrParse is matched by ParseError.
	ErrParse = errors.New("parse error")

	// ErrOverlayKeyMismatch is matched by OverlayKeyMismatchError.
	ErrOverlayKeyMismatch = errors.New("overlay key mismatch")

	// ErrMalformedBates is matched by MalformedBatesError.
	ErrMalformedBates = errors.New("malformed bates number")

	// ErrDateTransform is matched by DateTransformError.
	ErrDateTransform = errors.New("date transform failure")

	// ErrFamilyCycle is returned when wiring a parent would make a document its own ancestor.
	ErrFamilyCycle = errors.New("family cycle")
)

// ConfigurationError reports caller misuse: an invalid delimiter profile,
// conflicting column roles, or an edit missing a required parameter.
type ConfigurationError struct {
	Field   string // Setting or column that is wrong
	Value   string // Offending value, if any
	Message string
}

func (e *ConfigurationError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("configuration error: %s %q: %s", e.Field, e.Value, e.Message)
	}
	if e.Field != "" {
		return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
	}
	return "configuration error: " + e.Message
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// ParseError reports a malformed record. Line is 1-based and refers to the
// physical line the record starts on; Record is the 1-based record number
// when the line is not known.
type ParseError struct {
	Line    int
	Record  int
	Value   string
	Message string
}

func (e *ParseError) Error() string {
	loc := ""
	switch {
	case e.Line > 0:
		loc = fmt.Sprintf(" at line %d", e.Line)
	case e.Record > 0:
		loc = fmt.Sprintf(" at record %d", e.Record)
	}
	if e.Value != "" {
		return fmt.Sprintf("parse error%s: %s (value %q)", loc, e.Message, e.Value)
	}
	return fmt.Sprintf("parse error%s: %s", loc, e.Message)
}

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// OverlayKeyMismatchError is returned when a base and overlay document do
// not share an identifier.
type OverlayKeyMismatchError struct {
	BaseKey    string
	OverlayKey string
}

func (e *OverlayKeyMismatchError) Error() string {
	return fmt.Sprintf("overlay key mismatch: base %q, overlay %q", e.BaseKey, e.OverlayKey)
}

func (e *OverlayKeyMismatchError) Is(target error) bool { return target == ErrOverlayKeyMismatch }

// MalformedBatesError reports a Bates number that cannot be decomposed.
type MalformedBatesError struct {
	Value   string
	Message string
}

func (e *MalformedBatesError) Error() string {
	return fmt.Sprintf("malformed bates number %q: %s", e.Value, e.Message)
}

func (e *MalformedBatesError) Is(target error) bool { return target == ErrMalformedBates }

// DateTransformError reports a date that could not be parsed or fell outside
// the configured range.
type DateTransformError struct {
	DocID   string
	Field   string
	Value   string
	Message string
}

func (e *DateTransformError) Error() string {
	return fmt.Sprintf("date transform failure: document %q field %q value %q: %s",
		e.DocID, e.Field, e.Value, e.Message)
}

func (e *DateTransformError) Is(target error) bool { return target == ErrDateTransform }
