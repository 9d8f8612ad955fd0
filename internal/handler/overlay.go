package handler

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/loadfile/internal/core"
	"github.com/JonMunkholm/loadfile/internal/logging"
)

// OverlayResult counts what an overlay pass did.
type OverlayResult struct {
	Matched    int      // base documents replaced by a merge
	Added      int      // overlay documents appended (AddNew)
	Skipped    int      // overlay documents with no base match
	Unresolved []string // documents left stand-alone after relinking
}

// OverlayCollections merges every overlay document onto the base document
// with the same identifier, in place. Overlay documents without a match are
// appended when addNew is set and skipped otherwise.
//
// With MergeFamilies the overlay's wiring wins: a merged document keeps the
// parent the overlay gave it, children the overlay lists follow their overlay
// parent, and only the remaining children the base listed stay with their
// base parent. The child sets of the whole base collection are then rebuilt.
func OverlayCollections(ctx context.Context, base, overlay *core.Collection, opts core.OverlayOptions, addNew bool) (OverlayResult, error) {
	var res OverlayResult
	logger := logging.WithFields(ctx, "phase", "overlay")

	var merged []*core.Document
	for i, odoc := range overlay.Documents() {
		if i%ContextCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return res, fmt.Errorf("overlay cancelled at document %d: %w", i+1, err)
			}
		}

		pos := base.Index(odoc.ID)
		if pos < 0 {
			if addNew {
				added := odoc.Clone()
				base.Add(added)
				merged = append(merged, added)
				res.Added++
			} else {
				res.Skipped++
				logger.Debug("overlay document has no base match", "doc_id", odoc.ID)
			}
			continue
		}

		doc, err := core.Overlay(base.At(pos), odoc, opts)
		if err != nil {
			return res, err
		}
		if err := base.Set(pos, doc); err != nil {
			return res, fmt.Errorf("replacing %s: %w", odoc.ID, err)
		}
		merged = append(merged, doc)
		res.Matched++
	}

	if opts.MergeFamilies {
		wireMergedFamilies(base, overlay, merged)
	}
	if opts.MergeFamilies || res.Added > 0 {
		res.Unresolved = base.RelinkFamilies()
		for _, id := range res.Unresolved {
			logger.Debug("parent not found after overlay, document left stand-alone", "doc_id", id)
		}
	}

	logger.Info("overlay applied",
		"matched", res.Matched,
		"added", res.Added,
		"skipped", res.Skipped,
		"unresolved", len(res.Unresolved),
	)
	return res, nil
}

// wireMergedFamilies points children at their merged parents. Documents taken
// from the overlay already carry the overlay's parent and are left alone.
func wireMergedFamilies(base, overlay *core.Collection, merged []*core.Document) {
	claimed := make(map[string]bool, len(merged))
	for _, doc := range merged {
		claimed[doc.ID] = true
	}

	claim := func(parent *core.Document, ids []string) {
		for _, id := range ids {
			if claimed[id] {
				continue
			}
			if child, ok := base.Get(id); ok && child != parent {
				child.ParentID = parent.ID
				claimed[id] = true
			}
		}
	}

	for _, doc := range merged {
		if odoc, ok := overlay.Get(doc.ID); ok {
			claim(doc, odoc.ChildIDs())
		}
	}
	for _, doc := range merged {
		claim(doc, doc.ChildIDs())
	}
}
