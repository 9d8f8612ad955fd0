package core

// builder.go turns parsed rows into a Collection with resolved families and
// attached representative files.
//
// Rows are processed in order; each data row yields one document appended in
// encounter order. Family links are collected while reading and resolved once
// every row is in, so a parent that appears after its children still wires.
// A parent that never appears leaves the child stand-alone.

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
)

// RepresentativeColumn maps a column to the file type it holds.
type RepresentativeColumn struct {
	Column string
	Type   RepresentativeType
}

// BuildOptions configures how rows become documents.
//
// Column references are header names matched case-insensitively when
// HasHeader is set, or 1-based column positions ("1", "2", ...) otherwise.
// Without a header, metadata field names are those positions.
type BuildOptions struct {
	HasHeader bool

	KeyColumn    string // required
	ParentColumn string // optional: row declares its parent
	ChildColumn  string // optional: row declares its children

	// ChildSeparator splits ChildColumn values (default ";").
	ChildSeparator string

	Representatives []RepresentativeColumn

	// PathSeparator splits a representative value into several files,
	// keyed 1..n in order (default ";").
	PathSeparator string

	// BaseDir resolves relative representative paths.
	BaseDir string

	// Logger receives debug notes about unresolved family links.
	Logger *slog.Logger
}

func (o *BuildOptions) defaults() {
	if o.ChildSeparator == "" {
		o.ChildSeparator = string(DefaultMultiValue)
	}
	if o.PathSeparator == "" {
		o.PathSeparator = string(DefaultMultiValue)
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
}

// familyLink is a pending parent assignment discovered while reading rows.
type familyLink struct {
	child, parent string
	record        int
}

// columnRoles holds resolved column positions.
type columnRoles struct {
	key, parent, child int
	reps               []repColumn
}

type repColumn struct {
	pos int
	typ RepresentativeType
}

// BuildCollection builds a Collection from rows. When opts.HasHeader is set,
// rows[0] is the header. Any error aborts the build and no collection is
// returned.
func BuildCollection(rows [][]string, opts BuildOptions) (*Collection, error) {
	opts.defaults()

	if len(rows) == 0 {
		return NewCollection(), nil
	}

	var header []string
	data := rows
	if opts.HasHeader {
		header = make([]string, len(rows[0]))
		for i, h := range rows[0] {
			header[i] = CleanCell(h)
		}
		data = rows[1:]
	}

	idx := MakeHeaderIndex(header)
	var err error
	if opts.HasHeader && strings.TrimSpace(opts.KeyColumn) != "" {
		if idx, err = ValidateHeaders(header, opts); err != nil {
			return nil, err
		}
	}
	roles, err := resolveRoles(idx, opts)
	if err != nil {
		return nil, err
	}

	coll := NewCollection()
	var links []familyLink

	for i, row := range data {
		record := i + 1
		if opts.HasHeader {
			record++
		}
		if header != nil {
			if err := ValidateRowWidth(row, len(header)); err != nil {
				return nil, &ParseError{Record: record, Message: err.Error()}
			}
		}
		if roles.key >= len(row) {
			return nil, &ParseError{Record: record, Message: "row has no key column"}
		}

		id := strings.TrimSpace(row[roles.key])
		if id == "" {
			return nil, &ParseError{Record: record, Message: "empty document key"}
		}

		rowDoc := NewDocument(id)
		for pos, value := range row {
			rowDoc.SetField(fieldName(header, pos), value)
		}
		for _, rc := range roles.reps {
			if rc.pos >= len(row) {
				continue
			}
			for _, p := range splitTrim(row[rc.pos], opts.PathSeparator) {
				rowDoc.AddFile(rc.typ, ResolvePath(opts.BaseDir, p))
			}
		}

		if doc, exists := coll.Get(id); exists {
			// Duplicate key: later values win, the first slot is kept.
			opts.Logger.Debug("duplicate document key, merging row", "doc_id", id, "record", record)
			for k, v := range rowDoc.Metadata {
				doc.SetField(k, v)
			}
			for _, rep := range rowDoc.Representatives {
				doc.SetRepresentative(rep)
			}
		} else {
			coll.Add(rowDoc)
		}

		if roles.parent >= 0 && roles.parent < len(row) {
			if pid := strings.TrimSpace(row[roles.parent]); pid != "" && pid != id {
				links = append(links, familyLink{child: id, parent: pid, record: record})
			}
		}
		if roles.child >= 0 && roles.child < len(row) {
			for _, cid := range splitTrim(row[roles.child], opts.ChildSeparator) {
				if cid != id {
					links = append(links, familyLink{child: cid, parent: id, record: record})
				}
			}
		}
	}

	if err := wireFamilies(coll, links, opts.Logger); err != nil {
		return nil, err
	}
	coll.invalidate()
	return coll, nil
}

func wireFamilies(coll *Collection, links []familyLink, logger *slog.Logger) error {
	for _, l := range links {
		if _, ok := coll.Get(l.parent); !ok {
			logger.Debug("parent not found, document left stand-alone",
				"doc_id", l.child, "parent_id", l.parent, "record", l.record)
			continue
		}
		if _, ok := coll.Get(l.child); !ok {
			logger.Debug("listed child not found", "doc_id", l.parent, "child_id", l.child, "record", l.record)
			continue
		}
		if err := coll.SetParent(l.child, l.parent); err != nil {
			if errors.Is(err, ErrFamilyCycle) {
				return &ParseError{Record: l.record, Value: l.child, Message: err.Error()}
			}
			return err
		}
	}
	return nil
}

func resolveRoles(idx HeaderIndex, opts BuildOptions) (columnRoles, error) {
	roles := columnRoles{parent: -1, child: -1}

	if strings.TrimSpace(opts.KeyColumn) == "" {
		return roles, &ConfigurationError{Field: "key column", Message: "is required"}
	}

	lookup := func(role, col string) (int, error) {
		if opts.HasHeader {
			pos, ok := idx[strings.ToLower(CleanCell(col))]
			if !ok {
				return -1, &ConfigurationError{Field: role, Value: col, Message: "column not found in header"}
			}
			return pos, nil
		}
		n, err := strconv.Atoi(strings.TrimSpace(col))
		if err != nil || n < 1 {
			return -1, &ConfigurationError{Field: role, Value: col, Message: "must be a 1-based column number when there is no header"}
		}
		return n - 1, nil
	}

	var err error
	if roles.key, err = lookup("key column", opts.KeyColumn); err != nil {
		return roles, err
	}
	if opts.ParentColumn != "" {
		if roles.parent, err = lookup("parent column", opts.ParentColumn); err != nil {
			return roles, err
		}
	}
	if opts.ChildColumn != "" {
		if roles.child, err = lookup("child column", opts.ChildColumn); err != nil {
			return roles, err
		}
	}

	if roles.parent >= 0 && roles.parent == roles.key {
		return roles, &ConfigurationError{Field: "parent column", Value: opts.ParentColumn, Message: "cannot also be the key column"}
	}
	if roles.child >= 0 && (roles.child == roles.key || roles.child == roles.parent) {
		return roles, &ConfigurationError{Field: "child column", Value: opts.ChildColumn, Message: "cannot also be the key or parent column"}
	}

	for _, rc := range opts.Representatives {
		pos, err := lookup("representative column", rc.Column)
		if err != nil {
			return roles, err
		}
		if pos == roles.key {
			return roles, &ConfigurationError{Field: "representative column", Value: rc.Column, Message: "cannot also be the key column"}
		}
		roles.reps = append(roles.reps, repColumn{pos: pos, typ: rc.Type})
	}
	return roles, nil
}

func fieldName(header []string, pos int) string {
	if pos < len(header) {
		return header[pos]
	}
	return strconv.Itoa(pos + 1)
}

// ResolvePath normalizes a vendor file path and resolves it against base.
// Backslashes become the OS separator; a path rooted with a backslash is
// treated as relative to base, as load files root paths at the volume.
// Absolute paths and Windows drive paths are returned cleaned but unresolved.
func ResolvePath(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return ""
	}
	if len(p) >= 2 && p[1] == ':' {
		return p
	}
	volumeRooted := strings.HasPrefix(p, `\`)
	p = filepath.FromSlash(strings.ReplaceAll(p, `\`, "/"))
	if filepath.IsAbs(p) && !volumeRooted {
		return filepath.Clean(p)
	}
	p = strings.TrimLeft(p, string(filepath.Separator))
	if base == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}

// ImageBuildOptions configures BuildImageCollection.
type ImageBuildOptions struct {
	BaseDir string
	Logger  *slog.Logger
}

// BuildImageCollection groups image records into documents. A record with a
// document break starts a new document keyed by its image key; following
// records attach to it as image pages, keyed by their page sequence when one
// is given and in encounter order otherwise. Non-image LFP records are
// skipped.
func BuildImageCollection(records []ImageRecord, opts ImageBuildOptions) (*Collection, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	coll := NewCollection()
	var current *Document
	for _, rec := range records {
		if !rec.IsImage() {
			continue
		}
		if rec.DocBreak || current == nil {
			if current == nil && !rec.DocBreak {
				opts.Logger.Warn("first image record has no document break, starting a document",
					"image_key", rec.Key, "line", rec.Line)
			}
			doc, exists := coll.Get(rec.Key)
			if exists {
				opts.Logger.Debug("duplicate image document key, appending pages", "doc_id", rec.Key, "line", rec.Line)
			} else {
				doc = NewDocument(rec.Key)
				coll.Add(doc)
			}
			current = doc
		}
		addImagePage(current, rec, ResolvePath(opts.BaseDir, rec.Path()), opts.Logger)
	}
	coll.invalidate()
	return coll, nil
}

func addImagePage(doc *Document, rec ImageRecord, path string, logger *slog.Logger) {
	if rec.PageSeq <= 0 {
		doc.AddFile(RepImage, path)
		return
	}
	rep := doc.Representatives[RepImage]
	if rep == nil {
		rep = NewRepresentative(RepImage)
		doc.Representatives[RepImage] = rep
	}
	if _, taken := rep.Files[rec.PageSeq]; taken {
		logger.Debug("duplicate page sequence, appending page",
			"doc_id", doc.ID, "page_seq", rec.PageSeq, "line", rec.Line)
		rep.Append(path)
		return
	}
	rep.Set(rec.PageSeq, path)
}
