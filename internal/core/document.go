package core

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// RepresentativeType tags the role of a document's files.
type RepresentativeType int

const (
	RepImage RepresentativeType = iota + 1
	RepNative
	RepText
)

// RepresentativeTypes lists every type in a stable order.
var RepresentativeTypes = []RepresentativeType{RepImage, RepNative, RepText}

func (t RepresentativeType) String() string {
	switch t {
	case RepImage:
		return "IMAGE"
	case RepNative:
		return "NATIVE"
	case RepText:
		return "TEXT"
	default:
		return fmt.Sprintf("RepresentativeType(%d)", int(t))
	}
}

// ParseRepresentativeType accepts the full name or its first letter,
// case-insensitively.
func ParseRepresentativeType(s string) (RepresentativeType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "IMAGE", "IMAGES", "I":
		return RepImage, nil
	case "NATIVE", "NATIVES", "N":
		return RepNative, nil
	case "TEXT", "T":
		return RepText, nil
	default:
		return 0, &ConfigurationError{
			Field:   "representative type",
			Value:   s,
			Message: "must be IMAGE, NATIVE or TEXT",
		}
	}
}

// Representative is a role-tagged set of files keyed by page or item
// sequence.
type Representative struct {
	Type  RepresentativeType
	Files map[int]string
}

// NewRepresentative returns an empty representative of the given type.
func NewRepresentative(t RepresentativeType) *Representative {
	return &Representative{Type: t, Files: make(map[int]string)}
}

// Set stores path under key, replacing any existing entry.
func (r *Representative) Set(key int, path string) {
	r.Files[key] = path
}

// Append stores path under the next key after the highest in use.
func (r *Representative) Append(path string) int {
	next := 1
	for k := range r.Files {
		if k >= next {
			next = k + 1
		}
	}
	r.Files[next] = path
	return next
}

// Keys returns the sequence keys in ascending order.
func (r *Representative) Keys() []int {
	var keys []int
	for k := range r.Files {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Paths returns the file paths in page order.
func (r *Representative) Paths() []string {
	keys := r.Keys()
	paths := make([]string, len(keys))
	for i, k := range keys {
		paths[i] = r.Files[k]
	}
	return paths
}

// Len returns the number of files.
func (r *Representative) Len() int { return len(r.Files) }

// Clone returns a deep copy.
func (r *Representative) Clone() *Representative {
	return &Representative{Type: r.Type, Files: maps.Clone(r.Files)}
}

// Document is one produced document. ParentID is a weak back-reference by
// identifier; the child set is a derived index kept consistent by Collection
// and SetParent.
type Document struct {
	ID              string
	ParentID        string
	Metadata        map[string]string
	Representatives map[RepresentativeType]*Representative

	children []string
}

// NewDocument returns an empty document with the given identifier.
func NewDocument(id string) *Document {
	return &Document{
		ID:              id,
		Metadata:        make(map[string]string),
		Representatives: make(map[RepresentativeType]*Representative),
	}
}

// Field returns a metadata value, or "" when the field is absent.
func (d *Document) Field(name string) string {
	return d.Metadata[name]
}

// HasField reports whether the field is present.
func (d *Document) HasField(name string) bool {
	_, ok := d.Metadata[name]
	return ok
}

// SetField sets a metadata value.
func (d *Document) SetField(name, value string) {
	d.Metadata[name] = value
}

// Representative returns the representative of type t, or nil.
func (d *Document) Representative(t RepresentativeType) *Representative {
	return d.Representatives[t]
}

// SetRepresentative stores rep under its own type.
func (d *Document) SetRepresentative(rep *Representative) {
	d.Representatives[rep.Type] = rep
}

// AddFile appends a file to the representative of type t, creating it if
// needed, and returns the sequence key used.
func (d *Document) AddFile(t RepresentativeType, path string) int {
	rep := d.Representatives[t]
	if rep == nil {
		rep = NewRepresentative(t)
		d.Representatives[t] = rep
	}
	return rep.Append(path)
}

// FileCount returns the number of files of type t.
func (d *Document) FileCount(t RepresentativeType) int {
	if rep := d.Representatives[t]; rep != nil {
		return rep.Len()
	}
	return 0
}

// ChildIDs returns the identifiers of the document's children in the order
// they were wired.
func (d *Document) ChildIDs() []string {
	return slices.Clone(d.children)
}

// HasChild reports whether id is in the child set.
func (d *Document) HasChild(id string) bool {
	return slices.Contains(d.children, id)
}

// IsParent reports whether the document has children.
func (d *Document) IsParent() bool { return len(d.children) > 0 }

// IsChild reports whether the document has a parent.
func (d *Document) IsChild() bool { return d.ParentID != "" }

// IsStandAlone reports whether the document has neither parent nor children.
func (d *Document) IsStandAlone() bool { return !d.IsParent() && !d.IsChild() }

// SetParent wires d under parent in both directions. It does not detach d
// from a previous parent; inside a collection use Collection.SetParent.
func (d *Document) SetParent(parent *Document) {
	d.ParentID = parent.ID
	parent.addChild(d.ID)
}

func (d *Document) addChild(id string) {
	if !slices.Contains(d.children, id) {
		d.children = append(d.children, id)
	}
}

func (d *Document) removeChild(id string) {
	d.children = slices.DeleteFunc(d.children, func(c string) bool { return c == id })
}

// Clone returns a deep copy, including the child index.
func (d *Document) Clone() *Document {
	c := &Document{
		ID:              d.ID,
		ParentID:        d.ParentID,
		Metadata:        maps.Clone(d.Metadata),
		Representatives: make(map[RepresentativeType]*Representative, len(d.Representatives)),
		children:        slices.Clone(d.children),
	}
	if c.Metadata == nil {
		c.Metadata = make(map[string]string)
	}
	for t, rep := range d.Representatives {
		if rep != nil {
			c.Representatives[t] = rep.Clone()
		}
	}
	return c
}

// Equal reports whether two documents carry the same identifier, family
// wiring, metadata and representatives. Child order is ignored.
func (d *Document) Equal(o *Document) bool {
	if d.ID != o.ID || d.ParentID != o.ParentID {
		return false
	}
	if !maps.Equal(d.Metadata, o.Metadata) {
		return false
	}
	if len(d.children) != len(o.children) {
		return false
	}
	for _, c := range d.children {
		if !o.HasChild(c) {
			return false
		}
	}
	if len(nonEmptyReps(d)) != len(nonEmptyReps(o)) {
		return false
	}
	for t, rep := range nonEmptyReps(d) {
		other := o.Representatives[t]
		if other == nil || !maps.Equal(rep.Files, other.Files) {
			return false
		}
	}
	return true
}

func nonEmptyReps(d *Document) map[RepresentativeType]*Representative {
	out := make(map[RepresentativeType]*Representative, len(d.Representatives))
	for t, rep := range d.Representatives {
		if rep != nil && rep.Len() > 0 {
			out[t] = rep
		}
	}
	return out
}
