// Package schema reads the YAML documents that configure a run: the ordered
// edit list applied after import and the column-role mapping used to build
// documents. It converts both into core values.
package schema

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata" // zone names must resolve on hosts without a zoneinfo database

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/loadfile/internal/core"
)

// Edit kinds accepted in an edit list.
const (
	KindMetadata       = "metadata"
	KindRepresentative = "representative"
	KindDate           = "date"
)

// EditList is the root of an edit-list file.
//
//	version: "1"
//	edits:
//	  - kind: metadata
//	    field: CUSTODIAN
//	    find: "^smith, j$"
//	    replace: "Smith, John"
//	  - kind: date
//	    field: DATESENT
//	    output_format: "2006-01-02"
//	    on_failure: clear_field
type EditList struct {
	Version string     `yaml:"version"`
	Edits   []EditSpec `yaml:"edits"`
}

// EditSpec is one edit as written in YAML. Which fields apply depends on Kind.
type EditSpec struct {
	Kind string `yaml:"kind"`

	// metadata, representative and date
	Field   string `yaml:"field,omitempty"`
	Find    string `yaml:"find,omitempty"`
	Replace string `yaml:"replace,omitempty"`

	// metadata and date
	FilterField string `yaml:"filter_field,omitempty"`
	Filter      string `yaml:"filter,omitempty"`

	// metadata
	Destination  string  `yaml:"destination,omitempty"`
	PrependField string  `yaml:"prepend_field,omitempty"`
	AppendField  string  `yaml:"append_field,omitempty"`
	Join         *string `yaml:"join,omitempty"`

	// representative
	Type string `yaml:"type,omitempty"`

	// date
	OutputFormat string `yaml:"output_format,omitempty"`
	InputFormat  string `yaml:"input_format,omitempty"`
	InputZone    string `yaml:"input_zone,omitempty"`
	OutputZone   string `yaml:"output_zone,omitempty"`
	RangeStart   string `yaml:"range_start,omitempty"`
	RangeEnd     string `yaml:"range_end,omitempty"`
	OnFailure    string `yaml:"on_failure,omitempty"`
}

// LoadEditsFile reads an edit list from path and compiles it.
func LoadEditsFile(path string) ([]core.Edit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read edits file %s: %w", path, err)
	}

	list, err := ParseEdits(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return list.Compile()
}

// ParseEdits parses YAML data into an EditList.
func ParseEdits(data []byte) (*EditList, error) {
	var list EditList
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to parse edits YAML: %w", err)
	}
	if list.Version == "" {
		list.Version = "1"
	}
	return &list, nil
}

// Compile converts every spec in order. The first invalid spec fails the
// whole list.
func (l *EditList) Compile() ([]core.Edit, error) {
	edits := make([]core.Edit, 0, len(l.Edits))
	for i, spec := range l.Edits {
		e, err := spec.Edit()
		if err != nil {
			return nil, fmt.Errorf("edit %d: %w", i+1, err)
		}
		edits = append(edits, e)
	}
	return edits, nil
}

// Edit converts the spec to its core edit and validates it.
func (s EditSpec) Edit() (core.Edit, error) {
	var (
		e   core.Edit
		err error
	)
	switch strings.ToLower(strings.TrimSpace(s.Kind)) {
	case KindMetadata:
		e, err = s.metadataEdit()
	case KindRepresentative:
		e, err = s.representativeEdit()
	case KindDate:
		e, err = s.dateEdit()
	default:
		return nil, &core.ConfigurationError{
			Field:   "kind",
			Value:   s.Kind,
			Message: "must be metadata, representative or date",
		}
	}
	if err != nil {
		return nil, err
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

func (s EditSpec) metadataEdit() (core.Edit, error) {
	find, err := compile("find", s.Find)
	if err != nil {
		return nil, err
	}
	filter, err := compile("filter", s.Filter)
	if err != nil {
		return nil, err
	}
	e := core.MetadataEdit{
		Field:        s.Field,
		Find:         find,
		Replace:      s.Replace,
		FilterField:  s.FilterField,
		Filter:       filter,
		Destination:  s.Destination,
		PrependField: s.PrependField,
		AppendField:  s.AppendField,
	}
	if s.Join != nil {
		e.JoinDelimiter = *s.Join
	}
	return e, nil
}

func (s EditSpec) representativeEdit() (core.Edit, error) {
	typ, err := core.ParseRepresentativeType(s.Type)
	if err != nil {
		return nil, err
	}
	find, err := compile("find", s.Find)
	if err != nil {
		return nil, err
	}
	return core.RepresentativeEdit{Type: typ, Find: find, Replace: s.Replace}, nil
}

func (s EditSpec) dateEdit() (core.Edit, error) {
	find, err := compile("find", s.Find)
	if err != nil {
		return nil, err
	}
	filter, err := compile("filter", s.Filter)
	if err != nil {
		return nil, err
	}
	inZone, err := location("input_zone", s.InputZone)
	if err != nil {
		return nil, err
	}
	outZone, err := location("output_zone", s.OutputZone)
	if err != nil {
		return nil, err
	}
	start, err := rangeBound("range_start", s.RangeStart, false)
	if err != nil {
		return nil, err
	}
	end, err := rangeBound("range_end", s.RangeEnd, true)
	if err != nil {
		return nil, err
	}
	policy, err := core.ParseDateFailurePolicy(s.OnFailure)
	if err != nil {
		return nil, err
	}

	return core.DateEdit{
		Field:        s.Field,
		Find:         find,
		Replace:      s.Replace,
		FilterField:  s.FilterField,
		Filter:       filter,
		OutputFormat: s.OutputFormat,
		InputFormat:  s.InputFormat,
		InputZone:    inZone,
		OutputZone:   outZone,
		RangeStart:   start,
		RangeEnd:     end,
		OnFailure:    policy,
	}, nil
}

func compile(name, expr string) (*regexp.Regexp, error) {
	if expr == "" {
		return nil, nil
	}
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, &core.ConfigurationError{Field: name, Value: expr, Message: err.Error()}
	}
	return re, nil
}

func location(name, zone string) (*time.Location, error) {
	if zone == "" {
		return nil, nil
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, &core.ConfigurationError{Field: name, Value: zone, Message: "unknown time zone"}
	}
	return loc, nil
}

// rangeBound parses an RFC 3339 timestamp or a plain date. A plain date used
// as the end of a range covers that whole day.
func rangeBound(name, value string, end bool) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, &core.ConfigurationError{
			Field:   name,
			Value:   value,
			Message: "must be RFC 3339 or YYYY-MM-DD",
		}
	}
	if end {
		t = t.Add(24*time.Hour - time.Nanosecond)
	}
	return t, nil
}
