package core

import "fmt"

// CollectionStats holds the aggregate counters of a Collection.
type CollectionStats struct {
	Images     int // image files across all documents
	Texts      int // text files across all documents
	Natives    int // native files across all documents
	Parents    int // documents with at least one child
	Children   int // documents with a parent
	StandAlone int // documents with neither
}

// Collection is an ordered arena of documents addressed by identifier.
// Insertion order is encounter order. A Collection is not safe for
// concurrent use.
//
// Aggregate counters are computed lazily: every mutation of the sequence
// marks them stale and the next read recomputes them in one pass.
type Collection struct {
	docs  []*Document
	index map[string]int

	stale bool
	stats CollectionStats
}

// NewCollection returns an empty collection.
func NewCollection() *Collection {
	return &Collection{index: make(map[string]int), stale: true}
}

// Len returns the number of documents.
func (c *Collection) Len() int { return len(c.docs) }

// At returns the document at position i.
func (c *Collection) At(i int) *Document { return c.docs[i] }

// Documents returns the documents in order. The slice is a copy; the
// documents are shared.
func (c *Collection) Documents() []*Document {
	out := make([]*Document, len(c.docs))
	copy(out, c.docs)
	return out
}

// Get returns the document with the given identifier.
func (c *Collection) Get(id string) (*Document, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return c.docs[i], true
}

// Index returns the position of id, or -1.
func (c *Collection) Index(id string) int {
	if i, ok := c.index[id]; ok {
		return i
	}
	return -1
}

// Add appends doc. A document whose identifier is already present replaces
// the existing one in place and takes over its children; the parent's child
// set follows doc.ParentID.
func (c *Collection) Add(doc *Document) {
	if i, ok := c.index[doc.ID]; ok {
		old := c.docs[i]
		if old != doc {
			for _, cid := range old.children {
				doc.addChild(cid)
			}
			if old.ParentID != doc.ParentID {
				if p, ok := c.Get(old.ParentID); ok {
					p.removeChild(doc.ID)
				}
				if p, ok := c.Get(doc.ParentID); ok && p != old {
					p.addChild(doc.ID)
				}
			}
		}
		c.docs[i] = doc
	} else {
		c.index[doc.ID] = len(c.docs)
		c.docs = append(c.docs, doc)
	}
	c.invalidate()
}

// AddRange appends every document in order.
func (c *Collection) AddRange(docs []*Document) {
	for _, doc := range docs {
		c.Add(doc)
	}
}

// Set replaces the document at position i. It fails when i is out of range
// or when doc's identifier already lives at another position.
func (c *Collection) Set(i int, doc *Document) error {
	if i < 0 || i >= len(c.docs) {
		return fmt.Errorf("collection index %d out of range [0,%d)", i, len(c.docs))
	}
	if j, ok := c.index[doc.ID]; ok && j != i {
		return fmt.Errorf("document %q already at index %d", doc.ID, j)
	}
	delete(c.index, c.docs[i].ID)
	c.docs[i] = doc
	c.index[doc.ID] = i
	c.invalidate()
	return nil
}

// Parent returns the parent of id, or nil.
func (c *Collection) Parent(id string) *Document {
	doc, ok := c.Get(id)
	if !ok || doc.ParentID == "" {
		return nil
	}
	parent, _ := c.Get(doc.ParentID)
	return parent
}

// Children returns the children of id in wiring order.
func (c *Collection) Children(id string) []*Document {
	doc, ok := c.Get(id)
	if !ok {
		return nil
	}
	var out []*Document
	for _, cid := range doc.children {
		if child, ok := c.Get(cid); ok {
			out = append(out, child)
		}
	}
	return out
}

// SetParent wires childID under parentID, detaching it from any previous
// parent. An empty parentID makes the child stand-alone.
func (c *Collection) SetParent(childID, parentID string) error {
	child, ok := c.Get(childID)
	if !ok {
		return fmt.Errorf("document %q not in collection", childID)
	}
	if parentID == childID {
		return fmt.Errorf("document %q cannot be its own parent: %w", childID, ErrFamilyCycle)
	}

	var parent *Document
	if parentID != "" {
		if parent, ok = c.Get(parentID); !ok {
			return fmt.Errorf("parent %q of %q not in collection", parentID, childID)
		}
		p := parent
		for steps := 0; p != nil && p.ParentID != "" && steps <= len(c.docs); steps++ {
			if p.ParentID == childID {
				return fmt.Errorf("wiring %q under %q: %w", childID, parentID, ErrFamilyCycle)
			}
			p, _ = c.Get(p.ParentID)
		}
	}

	if old, ok := c.Get(child.ParentID); ok {
		old.removeChild(childID)
	}
	child.ParentID = ""
	if parent != nil {
		child.SetParent(parent)
	}
	c.invalidate()
	return nil
}

// RelinkFamilies rebuilds every child set from the documents' ParentID
// values. Parent references to identifiers not in the collection are
// cleared, leaving those documents stand-alone. It returns the identifiers
// whose parent could not be resolved.
func (c *Collection) RelinkFamilies() []string {
	var unresolved []string
	for _, doc := range c.docs {
		doc.children = nil
	}
	for _, doc := range c.docs {
		if doc.ParentID == "" {
			continue
		}
		parent, ok := c.Get(doc.ParentID)
		if !ok || parent == doc {
			unresolved = append(unresolved, doc.ID)
			doc.ParentID = ""
			continue
		}
		parent.addChild(doc.ID)
	}
	c.invalidate()
	return unresolved
}

// Families returns the top-level documents, each followed by its
// descendants depth first, in collection order.
func (c *Collection) Families() [][]*Document {
	var out [][]*Document
	for _, doc := range c.docs {
		if doc.ParentID != "" {
			if _, ok := c.index[doc.ParentID]; ok {
				continue
			}
		}
		family := []*Document{doc}
		family = c.appendDescendants(family, doc, map[string]bool{doc.ID: true})
		out = append(out, family)
	}
	return out
}

func (c *Collection) appendDescendants(out []*Document, doc *Document, seen map[string]bool) []*Document {
	for _, child := range c.Children(doc.ID) {
		if seen[child.ID] {
			continue
		}
		seen[child.ID] = true
		out = append(out, child)
		out = c.appendDescendants(out, child, seen)
	}
	return out
}

// Stats returns the aggregate counters, recomputing them if stale.
func (c *Collection) Stats() CollectionStats {
	if c.stale {
		c.recount()
	}
	return c.stats
}

// ImageCount returns the number of image files.
func (c *Collection) ImageCount() int { return c.Stats().Images }

// TextCount returns the number of text files.
func (c *Collection) TextCount() int { return c.Stats().Texts }

// NativeCount returns the number of native files.
func (c *Collection) NativeCount() int { return c.Stats().Natives }

// ParentCount returns the number of documents with children.
func (c *Collection) ParentCount() int { return c.Stats().Parents }

// ChildCount returns the number of documents with a parent.
func (c *Collection) ChildCount() int { return c.Stats().Children }

// StandAloneCount returns the number of documents outside any family.
func (c *Collection) StandAloneCount() int { return c.Stats().StandAlone }

func (c *Collection) invalidate() { c.stale = true }

func (c *Collection) recount() {
	var s CollectionStats
	for _, doc := range c.docs {
		s.Images += doc.FileCount(RepImage)
		s.Texts += doc.FileCount(RepText)
		s.Natives += doc.FileCount(RepNative)
		switch {
		case doc.IsParent() && doc.IsChild():
			s.Parents++
			s.Children++
		case doc.IsParent():
			s.Parents++
		case doc.IsChild():
			s.Children++
		default:
			s.StandAlone++
		}
	}
	c.stats = s
	c.stale = false
}
