package core

import "slices"

// OverlayOptions selects which dimensions of a document an overlay replaces.
// A dimension left false keeps the base document's values untouched.
type OverlayOptions struct {
	MergeFamilies        bool
	MergeMetadata        bool
	MergeRepresentatives bool
}

// AllDimensions returns options with every merge switch on.
func AllDimensions() OverlayOptions {
	return OverlayOptions{MergeFamilies: true, MergeMetadata: true, MergeRepresentatives: true}
}

// Overlay merges overlay onto base and returns the result as a new document;
// neither input is modified. The two documents must share an identifier.
//
// With MergeFamilies the overlay's parent reference replaces the base's and
// the overlay's children come first in the merged child set. Children the
// base had that the overlay does not list stay attached to the merged
// document, so they follow the base's identity onto the result. Callers
// holding both documents in a Collection should call RelinkFamilies after
// replacing the base.
func Overlay(base, overlay *Document, opts OverlayOptions) (*Document, error) {
	if base.ID != overlay.ID {
		return nil, &OverlayKeyMismatchError{BaseKey: base.ID, OverlayKey: overlay.ID}
	}

	merged := base.Clone()

	if opts.MergeMetadata {
		for k, v := range overlay.Metadata {
			merged.Metadata[k] = v
		}
	}

	if opts.MergeRepresentatives {
		for t, orep := range overlay.Representatives {
			if orep == nil {
				continue
			}
			rep := merged.Representatives[t]
			if rep == nil {
				merged.Representatives[t] = orep.Clone()
				continue
			}
			for key, p := range orep.Files {
				rep.Set(key, p)
			}
		}
	}

	if opts.MergeFamilies {
		merged.ParentID = overlay.ParentID
		children := slices.Clone(overlay.children)
		for _, id := range base.children {
			if !slices.Contains(children, id) {
				children = append(children, id)
			}
		}
		merged.children = slices.DeleteFunc(children, func(id string) bool {
			return id == merged.ID || id == merged.ParentID
		})
	}

	return merged, nil
}
