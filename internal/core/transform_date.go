package core

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DateFailurePolicy decides what happens to a date that cannot be parsed
// or falls outside the valid range.
type DateFailurePolicy int

const (
	DateDoNothing  DateFailurePolicy = iota // leave the field as read
	DateClearField                          // set the field to ""
	DateThrowError                          // stop the transform with a DateTransformError
)

func (p DateFailurePolicy) String() string {
	switch p {
	case DateDoNothing:
		return "do_nothing"
	case DateClearField:
		return "clear_field"
	case DateThrowError:
		return "throw_error"
	default:
		return fmt.Sprintf("DateFailurePolicy(%d)", int(p))
	}
}

// ParseDateFailurePolicy accepts do_nothing, clear_field and throw_error,
// case-insensitively, with or without separators.
func ParseDateFailurePolicy(s string) (DateFailurePolicy, error) {
	key := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch key {
	case "", "donothing", "none":
		return DateDoNothing, nil
	case "clearfield", "clear":
		return DateClearField, nil
	case "throwerror", "throw", "error":
		return DateThrowError, nil
	default:
		return 0, &ConfigurationError{
			Field:   "date failure policy",
			Value:   s,
			Message: "must be do_nothing, clear_field or throw_error",
		}
	}
}

// DateEdit reformats a date field.
//
// The raw value goes through Find/Replace first, which is how vendor zone
// abbreviations embedded in the text are normalized. It is then parsed with
// InputFormat (a Go time layout) or, when that is empty, with ParseDateTime.
// A value without its own offset is read in InputZone; the instant is then
// moved to OutputZone. Values outside [RangeStart, RangeEnd] fail the same
// way unparsable ones do, through OnFailure. A zero range bound is open.
// Empty values are left alone.
type DateEdit struct {
	Field   string
	Find    *regexp.Regexp
	Replace string

	FilterField string
	Filter      *regexp.Regexp

	OutputFormat string
	InputFormat  string
	InputZone    *time.Location
	OutputZone   *time.Location

	RangeStart time.Time
	RangeEnd   time.Time

	OnFailure DateFailurePolicy
}

func (DateEdit) isEdit()      {}
func (DateEdit) Kind() string { return "date" }

func (e DateEdit) Validate() error {
	if e.Field == "" {
		return &ConfigurationError{Field: "date edit", Message: "target field is required"}
	}
	if e.OutputFormat == "" {
		return &ConfigurationError{Field: "date edit", Value: e.Field, Message: "output format is required"}
	}
	if !e.RangeStart.IsZero() && !e.RangeEnd.IsZero() && e.RangeStart.After(e.RangeEnd) {
		return &ConfigurationError{Field: "date edit", Value: e.Field, Message: "range start is after range end"}
	}
	if e.OnFailure < DateDoNothing || e.OnFailure > DateThrowError {
		return &ConfigurationError{Field: "date edit", Value: e.OnFailure.String(), Message: "unknown failure policy"}
	}
	return nil
}

func (e DateEdit) Apply(doc *Document) error {
	if (filter{e.FilterField, e.Filter}).skip(doc) {
		return nil
	}

	raw := doc.Field(e.Field)
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	value := raw
	if e.Find != nil {
		value = e.Find.ReplaceAllString(value, e.Replace)
	}

	t, reason := e.parse(value)
	if reason == "" {
		reason = e.checkRange(t)
	}
	if reason != "" {
		return e.fail(doc, raw, reason)
	}

	doc.SetField(e.Field, t.Format(e.OutputFormat))
	return nil
}

func (e DateEdit) parse(value string) (time.Time, string) {
	loc := e.InputZone
	if loc == nil {
		loc = time.UTC
	}

	var (
		t   time.Time
		err error
	)
	if e.InputFormat != "" {
		t, err = time.ParseInLocation(e.InputFormat, strings.TrimSpace(value), loc)
	} else {
		t, err = ParseDateTime(value, loc)
	}
	if err != nil {
		if e.InputFormat != "" {
			return time.Time{}, fmt.Sprintf("does not match input format %q", e.InputFormat)
		}
		return time.Time{}, "unrecognized date format"
	}

	if e.OutputZone != nil {
		t = t.In(e.OutputZone)
	}
	return t, ""
}

func (e DateEdit) checkRange(t time.Time) string {
	if !e.RangeStart.IsZero() && t.Before(e.RangeStart) {
		return fmt.Sprintf("outside range, before %s", e.RangeStart.Format(time.RFC3339))
	}
	if !e.RangeEnd.IsZero() && t.After(e.RangeEnd) {
		return fmt.Sprintf("outside range, after %s", e.RangeEnd.Format(time.RFC3339))
	}
	return ""
}

func (e DateEdit) fail(doc *Document, raw, reason string) error {
	switch e.OnFailure {
	case DateClearField:
		doc.SetField(e.Field, "")
		return nil
	case DateThrowError:
		return &DateTransformError{DocID: doc.ID, Field: e.Field, Value: raw, Message: reason}
	default:
		return nil
	}
}
