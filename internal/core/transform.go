package core

// transform.go applies ordered edits to every document of a collection.
//
// Edits form a closed set (MetadataEdit, RepresentativeEdit, DateEdit). Each
// is a plain configuration record with a single Apply operation; Transform
// walks the list in order and calls Apply on every document. Edits only
// read the document they are applied to.

import (
	"fmt"
	"log/slog"
	"regexp"
	"time"
)

// Edit is one step of a transformation.
type Edit interface {
	// Apply edits doc in place.
	Apply(doc *Document) error
	// Validate reports a missing or conflicting parameter.
	Validate() error
	// Kind names the edit in logs and errors.
	Kind() string

	isEdit()
}

// filter is the optional document filter shared by metadata and date edits.
// It only applies when both the field and the expression are set.
type filter struct {
	field string
	re    *regexp.Regexp
}

func (f filter) skip(doc *Document) bool {
	if f.field == "" || f.re == nil {
		return false
	}
	return !f.re.MatchString(doc.Field(f.field))
}

// MetadataEdit rewrites one metadata field.
//
// The current value of Field is run through Find/Replace when Find is set,
// then wrapped with the values of PrependField and AppendField. When both
// are set, JoinDelimiter goes between each part. The result is written to
// Destination, or back to Field when Destination is empty. Missing source
// fields read as "".
type MetadataEdit struct {
	Field   string
	Find    *regexp.Regexp
	Replace string

	FilterField string
	Filter      *regexp.Regexp

	Destination   string
	PrependField  string
	AppendField   string
	JoinDelimiter string
}

func (MetadataEdit) isEdit()      {}
func (MetadataEdit) Kind() string { return "metadata" }

func (e MetadataEdit) Validate() error {
	if e.Field == "" {
		return &ConfigurationError{Field: "metadata edit", Message: "target field is required"}
	}
	return nil
}

func (e MetadataEdit) Apply(doc *Document) error {
	if (filter{e.FilterField, e.Filter}).skip(doc) {
		return nil
	}

	value := doc.Field(e.Field)
	if e.Find != nil {
		value = e.Find.ReplaceAllString(value, e.Replace)
	}

	switch {
	case e.PrependField != "" && e.AppendField != "":
		value = doc.Field(e.PrependField) + e.JoinDelimiter + value + e.JoinDelimiter + doc.Field(e.AppendField)
	case e.PrependField != "":
		value = doc.Field(e.PrependField) + value
	case e.AppendField != "":
		value += doc.Field(e.AppendField)
	}

	dest := e.Destination
	if dest == "" {
		dest = e.Field
	}
	doc.SetField(dest, value)
	return nil
}

// RepresentativeEdit rewrites every file path of one representative type.
type RepresentativeEdit struct {
	Type    RepresentativeType
	Find    *regexp.Regexp
	Replace string
}

func (RepresentativeEdit) isEdit()      {}
func (RepresentativeEdit) Kind() string { return "representative" }

func (e RepresentativeEdit) Validate() error {
	if e.Find == nil {
		return &ConfigurationError{Field: "representative edit", Message: "find expression is required"}
	}
	if _, err := ParseRepresentativeType(e.Type.String()); err != nil {
		return err
	}
	return nil
}

func (e RepresentativeEdit) Apply(doc *Document) error {
	rep := doc.Representative(e.Type)
	if rep == nil {
		return nil
	}
	for k, p := range rep.Files {
		rep.Files[k] = e.Find.ReplaceAllString(p, e.Replace)
	}
	return nil
}

// Transformer applies edit lists and logs each step.
type Transformer struct {
	Logger *slog.Logger
}

// NewTransformer returns a transformer logging to logger, or to the
// default logger when nil.
func NewTransformer(logger *slog.Logger) *Transformer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Transformer{Logger: logger}
}

// Transform applies edits in list order to every document of c. Every edit
// is validated before any document is touched. The first error from an
// edit stops the run; documents already edited keep their changes.
func (t *Transformer) Transform(c *Collection, edits []Edit) error {
	for i, e := range edits {
		if err := e.Validate(); err != nil {
			return fmt.Errorf("edit %d (%s): %w", i+1, e.Kind(), err)
		}
	}

	for i, e := range edits {
		start := time.Now()
		for _, doc := range c.docs {
			if err := e.Apply(doc); err != nil {
				t.Logger.Warn("edit failed", "edit", i+1, "kind", e.Kind(), "doc_id", doc.ID, "error", err)
				return fmt.Errorf("edit %d (%s): %w", i+1, e.Kind(), err)
			}
		}
		t.Logger.Debug("edit applied",
			"edit", i+1,
			"kind", e.Kind(),
			"documents", len(c.docs),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
	return nil
}

// Transform applies edits with a transformer on the default logger.
func Transform(c *Collection, edits []Edit) error {
	return NewTransformer(nil).Transform(c, edits)
}
